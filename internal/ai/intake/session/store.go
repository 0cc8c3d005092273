// Package session keeps live conversations in memory, one lock per session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jamolkhon5/intake/internal/ai/intake/service"
)

var ErrNotFound = errors.New("session: not found")

type Store interface {
	Create() *service.Conversation
	With(id string, fn func(*service.Conversation) error) error
	Delete(id string)
}

type entry struct {
	mu      sync.Mutex
	conv    *service.Conversation
	touched time.Time
}

type MemoryStore struct {
	engine  *service.Engine
	entries map[string]*entry
	mu      sync.RWMutex
	now     func() time.Time
}

func NewMemoryStore(engine *service.Engine) *MemoryStore {
	return &MemoryStore{
		engine:  engine,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Create opens a conversation under a fresh id.
func (m *MemoryStore) Create() *service.Conversation {
	conv := service.NewConversation(m.engine, uuid.NewString())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[conv.ID()] = &entry{conv: conv, touched: m.now()}
	return conv
}

// With runs fn while holding the session lock, so turns of one session are
// serialised while other sessions proceed.
func (m *MemoryStore) With(id string, fn func(*service.Conversation) error) error {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = m.now()
	return fn(e.conv)
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many it removed.
func (m *MemoryStore) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.touched.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}
