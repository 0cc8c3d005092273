package repository

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/Jamolkhon5/intake/internal/models"
)

// MemoryTranscript keeps transcripts in process memory when no database is
// configured. Contents are lost on restart.
type MemoryTranscript struct {
	messages map[string][]models.ChatMessage
	mu       sync.RWMutex
}

func NewMemoryTranscript() *MemoryTranscript {
	return &MemoryTranscript{messages: make(map[string][]models.ChatMessage)}
}

func (m *MemoryTranscript) SaveMessages(_ context.Context, msgs []models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	}
	return nil
}

func (m *MemoryTranscript) GetMessages(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.ChatMessage{}, m.messages[sessionID]...), nil
}

func (m *MemoryTranscript) ClearHistory(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, sessionID)
	return nil
}

func (m *MemoryTranscript) CountSessionTokens(_ context.Context, sessionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, msg := range m.messages[sessionID] {
		total += utf8.RuneCountInString(msg.Content)
	}
	return total / 4, nil
}
