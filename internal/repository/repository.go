package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Jamolkhon5/intake/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS intake_messages (
    id VARCHAR(36) PRIMARY KEY,
    session_id VARCHAR(36) NOT NULL,
    role VARCHAR(20) NOT NULL,
    message TEXT NOT NULL,
    field_id VARCHAR(64) NOT NULL DEFAULT '',
    options TEXT[] NOT NULL DEFAULT '{}',
    photo_urls TEXT[] NOT NULL DEFAULT '{}',
    hints TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS intake_messages_session_idx ON intake_messages (session_id, created_at);

CREATE TABLE IF NOT EXISTS intake_categories (
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(120) NOT NULL UNIQUE,
    position INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS intake_services (
    id VARCHAR(120) PRIMARY KEY,
    category VARCHAR(120) NOT NULL REFERENCES intake_categories (name) ON DELETE CASCADE,
    name VARCHAR(200) NOT NULL,
    position INT NOT NULL DEFAULT 0
);`

// Repository persists intake transcripts.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the tables used by the service.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveMessages appends a turn's messages in one transaction.
func (r *Repository) SaveMessages(ctx context.Context, msgs []models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO intake_messages (id, session_id, role, message, field_id, options, photo_urls, hints, created_at)
        VALUES (:id, :session_id, :role, :message, :field_id, :options, :photo_urls, :hints, :created_at)`
	for _, m := range msgs {
		if m.Options == nil {
			m.Options = []string{}
		}
		if m.PhotoURLs == nil {
			m.PhotoURLs = []string{}
		}
		if m.Hints == nil {
			m.Hints = []string{}
		}
		if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
			return fmt.Errorf("insert message %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

func (r *Repository) GetMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	query := `
        SELECT id, session_id, role, message, field_id, options, photo_urls, hints, created_at
        FROM intake_messages
        WHERE session_id = $1
        ORDER BY created_at, id`

	messages := []models.ChatMessage{}
	if err := r.db.SelectContext(ctx, &messages, query, sessionID); err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	return messages, nil
}

func (r *Repository) ClearHistory(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM intake_messages WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

// CountSessionTokens gives a rough token count of a transcript.
func (r *Repository) CountSessionTokens(ctx context.Context, sessionID string) (int, error) {
	query := `
        SELECT COALESCE(SUM(LENGTH(message)), 0) AS total_tokens
        FROM intake_messages
        WHERE session_id = $1`

	var totalTokens int
	if err := r.db.GetContext(ctx, &totalTokens, query, sessionID); err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return totalTokens / 4, nil
}
