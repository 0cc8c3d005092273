package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
	"github.com/Jamolkhon5/intake/internal/ai/intake/service"
	"github.com/Jamolkhon5/intake/internal/ai/intake/session"
	appmodels "github.com/Jamolkhon5/intake/internal/models"
)

// MessageSaver persists the messages produced by each turn.
type MessageSaver interface {
	SaveMessages(ctx context.Context, msgs []appmodels.ChatMessage) error
}

type IntakeHandler struct {
	sessions    session.Store
	transcripts MessageSaver
	categories  service.CategoryCatalog
	log         *zap.Logger
}

func NewIntakeHandler(sessions session.Store, transcripts MessageSaver, categories service.CategoryCatalog,
	log *zap.Logger) *IntakeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &IntakeHandler{
		sessions:    sessions,
		transcripts: transcripts,
		categories:  categories,
		log:         log,
	}
}

type sessionResponse struct {
	SessionID string             `json:"session_id"`
	Turn      service.TurnResult `json:"turn"`
}

type stateResponse struct {
	SessionID    string                   `json:"session_id"`
	Project      catalog.ProjectState     `json:"project"`
	Conversation models.ConversationState `json:"conversation"`
	Estimate     *models.EstimatedPrice   `json:"estimated_price,omitempty"`
}

type categoryResponse struct {
	models.Category
	Services []models.Service `json:"services"`
}

// CreateSession opens a conversation and returns its first question.
func (h *IntakeHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	conv := h.sessions.Create()

	var res service.TurnResult
	err := h.sessions.With(conv.ID(), func(c *service.Conversation) error {
		res = c.Start(r.Context())
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	h.persist(r.Context(), res.Messages)

	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: conv.ID(), Turn: res})
}

// SendTurn runs one user turn.
func (h *IntakeHandler) SendTurn(w http.ResponseWriter, r *http.Request) {
	var req appmodels.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.turn(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IntakeHandler) turn(ctx context.Context, id string, req appmodels.ChatRequest) (service.TurnResult, error) {
	var res service.TurnResult
	err := h.sessions.With(id, func(c *service.Conversation) error {
		res = c.ProcessInput(ctx, req.Message, req.Photos)
		return nil
	})
	if err != nil {
		return service.TurnResult{}, err
	}
	h.persist(ctx, res.Messages)
	return res, nil
}

func (h *IntakeHandler) GetState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var out stateResponse
	err := h.sessions.With(id, func(c *service.Conversation) error {
		out = stateResponse{
			SessionID:    id,
			Project:      c.ProjectState(),
			Conversation: c.ConversationState(),
			Estimate:     c.Estimate(),
		}
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Reset clears the answers and asks the opening question again.
// The stored transcript is kept.
func (h *IntakeHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var res service.TurnResult
	err := h.sessions.With(chi.URLParam(r, "id"), func(c *service.Conversation) error {
		c.Reset()
		res = c.Start(r.Context())
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	h.persist(r.Context(), res.Messages)
	writeJSON(w, http.StatusOK, res)
}

// Focus moves the conversation to a given field, reopening it if needed.
func (h *IntakeHandler) Focus(w http.ResponseWriter, r *http.Request) {
	res, err := h.focus(r.Context(), chi.URLParam(r, "id"), models.FieldID(chi.URLParam(r, "fieldID")))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IntakeHandler) focus(ctx context.Context, id string, field models.FieldID) (service.TurnResult, error) {
	var res service.TurnResult
	err := h.sessions.With(id, func(c *service.Conversation) error {
		var ferr error
		res, ferr = c.GoToQuestion(ctx, field)
		return ferr
	})
	if err != nil {
		return service.TurnResult{}, err
	}
	h.persist(ctx, res.Messages)
	return res, nil
}

func (h *IntakeHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.categories.ListCategories(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	out := make([]categoryResponse, 0, len(list))
	for _, c := range list {
		services, err := h.categories.ServicesFor(r.Context(), c.Name)
		if err != nil {
			h.fail(w, err)
			return
		}
		if services == nil {
			services = []models.Service{}
		}
		out = append(out, categoryResponse{Category: c, Services: services})
	}
	writeJSON(w, http.StatusOK, out)
}

// persist saves turn messages. A storage failure is logged and does not fail the turn.
func (h *IntakeHandler) persist(ctx context.Context, msgs []appmodels.ChatMessage) {
	if h.transcripts == nil || len(msgs) == 0 {
		return
	}
	if err := h.transcripts.SaveMessages(ctx, msgs); err != nil {
		h.log.Error("intake: saving transcript failed",
			zap.String("session", msgs[0].SessionID), zap.Error(err))
	}
}

func (h *IntakeHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrUnknownField):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error("intake: request failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RegisterRoutes mounts the request/response intake endpoints.
func (h *IntakeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/v1/intake/categories", h.ListCategories)
	r.Post("/v1/intake/sessions", h.CreateSession)
	r.Post("/v1/intake/sessions/{id}/turns", h.SendTurn)
	r.Get("/v1/intake/sessions/{id}/state", h.GetState)
	r.Post("/v1/intake/sessions/{id}/reset", h.Reset)
	r.Post("/v1/intake/sessions/{id}/focus/{fieldID}", h.Focus)
}

// RegisterStream mounts the websocket endpoint. It must stay outside any
// request timeout middleware.
func (h *IntakeHandler) RegisterStream(r chi.Router) {
	r.Get("/v1/intake/sessions/{id}/ws", h.ServeWS)
}
