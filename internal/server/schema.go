package server

import (
	"context"
	"fmt"
)

// EnsureSchema provisions the conversation tables on startup. There is no
// external migration tool in this deployment; the statements are idempotent.
func EnsureSchema(ctx context.Context, q dbQuerier) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations (id),
			sender TEXT NOT NULL CHECK (sender IN ('USER', 'AI')),
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			seq BIGSERIAL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_conversation_order_idx
			ON messages (conversation_id, created_at, seq)`,
	}

	for _, statement := range statements {
		if _, err := q.Exec(ctx, statement); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
	}
	return nil
}
