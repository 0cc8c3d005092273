package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/service"
	"github.com/Jamolkhon5/intake/internal/ai/intake/session"
	appmodels "github.com/Jamolkhon5/intake/internal/models"
	"github.com/Jamolkhon5/intake/internal/repository"
)

type recordingSaver struct {
	mu   sync.Mutex
	msgs []appmodels.ChatMessage
	err  error
}

func (s *recordingSaver) SaveMessages(_ context.Context, msgs []appmodels.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func newRouter(t *testing.T, saver MessageSaver) (http.Handler, *session.MemoryStore) {
	t.Helper()
	cat := catalog.Default()
	engine := service.NewEngine(cat, service.Ports{})
	store := session.NewMemoryStore(engine)
	h := NewIntakeHandler(store, saver, repository.NewStaticCategories(cat), nil)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	h.RegisterStream(r)
	return r, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler) sessionResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/intake/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var out sessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.NotEmpty(t, out.SessionID)
	return out
}

func TestCreateSessionAndTurn(t *testing.T) {
	saver := &recordingSaver{}
	h, _ := newRouter(t, saver)

	created := createSession(t, h)
	require.NotNil(t, created.Turn.CurrentQuestion)
	assert.Equal(t, catalog.FieldCategory, created.Turn.CurrentQuestion.FieldID)
	assert.NotEmpty(t, created.Turn.Options)
	assert.Equal(t, 1, saver.count())

	rec := do(t, h, http.MethodPost, "/v1/intake/sessions/"+created.SessionID+"/turns", `{"message":"Peinture"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res service.TurnResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.False(t, res.IsComplete)
	require.NotNil(t, res.CurrentQuestion)
	assert.NotEqual(t, catalog.FieldCategory, res.CurrentQuestion.FieldID)
	assert.Equal(t, 3, saver.count())

	rec = do(t, h, http.MethodGet, "/v1/intake/sessions/"+created.SessionID+"/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		SessionID    string                          `json:"session_id"`
		Project      map[models.FieldID]models.Value `json:"project"`
		Conversation models.ConversationState        `json:"conversation"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, created.SessionID, state.SessionID)
	assert.Equal(t, "Peinture", state.Project[catalog.FieldCategory].Text)
	assert.Equal(t, res.CurrentQuestion.FieldID, state.Conversation.CurrentFocus)
}

func TestTurnErrors(t *testing.T) {
	h, _ := newRouter(t, nil)
	created := createSession(t, h)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session turn", http.MethodPost, "/v1/intake/sessions/nope/turns", `{"message":"x"}`, http.StatusNotFound},
		{"unknown session state", http.MethodGet, "/v1/intake/sessions/nope/state", "", http.StatusNotFound},
		{"bad body", http.MethodPost, "/v1/intake/sessions/" + created.SessionID + "/turns", `{`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/intake/sessions/" + created.SessionID + "/focus/nope", "", http.StatusBadRequest},
		{"unknown session ws", http.MethodGet, "/v1/intake/sessions/nope/ws", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestFocusAndReset(t *testing.T) {
	h, _ := newRouter(t, nil)
	created := createSession(t, h)
	base := "/v1/intake/sessions/" + created.SessionID

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/turns", `{"message":"Plomberie"}`).Code)

	rec := do(t, h, http.MethodPost, base+"/focus/"+string(catalog.FieldLocation), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res service.TurnResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.NotNil(t, res.CurrentQuestion)
	assert.Equal(t, catalog.FieldLocation, res.CurrentQuestion.FieldID)

	rec = do(t, h, http.MethodPost, base+"/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, catalog.FieldCategory, res.CurrentQuestion.FieldID)

	rec = do(t, h, http.MethodGet, base+"/state", "")
	var state struct {
		Project map[string]models.Value `json:"project"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Empty(t, state.Project)
}

func TestSaveFailureDoesNotFailTurn(t *testing.T) {
	h, _ := newRouter(t, &recordingSaver{err: errors.New("db down")})
	created := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/v1/intake/sessions/"+created.SessionID+"/turns", `{"message":"Peinture"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListCategories(t *testing.T) {
	h, _ := newRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/v1/intake/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []categoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out, len(catalog.Default().Categories()))
	for _, c := range out {
		assert.NotEmpty(t, c.ID)
		assert.NotNil(t, c.Services, c.Name)
	}
}

func TestServeWS(t *testing.T) {
	h, _ := newRouter(t, nil)
	created := createSession(t, h)

	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/intake/sessions/" + created.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() wsOutbound {
		t.Helper()
		var out wsOutbound
		require.NoError(t, conn.ReadJSON(&out))
		return out
	}

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "ping"}))
	assert.Equal(t, "pong", read().Type)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "send", Message: "Peinture"}))
	out := read()
	require.Equal(t, "turn", out.Type)
	require.NotNil(t, out.Result)
	require.NotNil(t, out.Result.CurrentQuestion)
	assert.NotEqual(t, catalog.FieldCategory, out.Result.CurrentQuestion.FieldID)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "focus", FieldID: "nope"}))
	out = read()
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, "invalid_argument", out.Code)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "dance"}))
	out = read()
	assert.Equal(t, "error", out.Type)
	assert.Contains(t, out.Message, "unsupported type")
}
