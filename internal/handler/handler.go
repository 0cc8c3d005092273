package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Jamolkhon5/intake/internal/models"
)

// TranscriptStore is the persisted history of intake sessions.
type TranscriptStore interface {
	SaveMessages(ctx context.Context, msgs []models.ChatMessage) error
	GetMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	ClearHistory(ctx context.Context, sessionID string) error
	CountSessionTokens(ctx context.Context, sessionID string) (int, error)
}

type Handler struct {
	repo TranscriptStore
	log  *zap.Logger
}

func NewHandler(repo TranscriptStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{repo: repo, log: log}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	msgs, err := h.repo.GetMessages(r.Context(), sessionID)
	if err != nil {
		h.log.Error("history: load failed", zap.String("session", sessionID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.HistoryResponse{
		SessionID: sessionID,
		Messages:  msgs,
	})
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := h.repo.ClearHistory(r.Context(), sessionID); err != nil {
		h.log.Error("history: clear failed", zap.String("session", sessionID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Should be zero after clearing.
	tokens, err := h.repo.CountSessionTokens(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Historique supprimé",
		"tokens":  tokens,
	})
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/v1/intake/sessions/{id}/messages", h.History)
	r.Delete("/v1/intake/sessions/{id}/messages", h.ClearHistory)
}
