package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jamolkhon5/intake/internal/models"
	"github.com/Jamolkhon5/intake/internal/repository"
)

type failingStore struct {
	repository.MemoryTranscript
}

func (*failingStore) GetMessages(context.Context, string) ([]models.ChatMessage, error) {
	return nil, errors.New("connection refused")
}

func serve(h *Handler, method, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHistoryAndClear(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTranscript()
	require.NoError(t, store.SaveMessages(ctx, []models.ChatMessage{
		models.NewChatMessage("s1", models.RoleBot, "Quel type de travaux ?"),
		models.NewChatMessage("s1", models.RoleUser, "Peinture"),
	}))
	h := NewHandler(store, nil)

	rec := serve(h, http.MethodGet, "/v1/intake/sessions/s1/messages")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist models.HistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hist))
	assert.Equal(t, "s1", hist.SessionID)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "Peinture", hist.Messages[1].Content)

	rec = serve(h, http.MethodDelete, "/v1/intake/sessions/s1/messages")
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared struct {
		Tokens int `json:"tokens"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cleared))
	assert.Zero(t, cleared.Tokens)

	rec = serve(h, http.MethodGet, "/v1/intake/sessions/s1/messages")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hist))
	assert.NotNil(t, hist.Messages)
	assert.Empty(t, hist.Messages)
}

func TestHistoryStoreError(t *testing.T) {
	h := NewHandler(&failingStore{}, nil)
	rec := serve(h, http.MethodGet, "/v1/intake/sessions/s1/messages")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
