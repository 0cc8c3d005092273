package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleBot       Role = "bot"
	RoleSystem    Role = "system"
	RoleSelection Role = "selection"
	RoleSummary   Role = "summary"
	RolePhotos    Role = "photos"
)

// UI hint flags carried by a message.
const (
	HintAllowFreeText = "allow_free_text"
	HintMultiSelect   = "multi_select"
	HintUpload        = "upload"
)

// ChatMessage is one append-only entry of an intake transcript.
type ChatMessage struct {
	ID        string         `json:"id" db:"id"`
	SessionID string         `json:"sessionId" db:"session_id"`
	Role      Role           `json:"role" db:"role"`
	Content   string         `json:"content" db:"message"`
	FieldID   string         `json:"fieldId,omitempty" db:"field_id"`
	Options   pq.StringArray `json:"options,omitempty" db:"options"`
	PhotoURLs pq.StringArray `json:"photoUrls,omitempty" db:"photo_urls"`
	Hints     pq.StringArray `json:"hints,omitempty" db:"hints"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}

func NewChatMessage(sessionID string, role Role, content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// ChatRequest is one user turn as received by the transport.
type ChatRequest struct {
	Message string   `json:"message"`
	Photos  []string `json:"photos,omitempty"`
}

type HistoryResponse struct {
	SessionID string        `json:"sessionId"`
	Messages  []ChatMessage `json:"messages"`
}
