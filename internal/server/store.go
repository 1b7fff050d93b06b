package server

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	SenderUser = "USER"
	SenderAI   = "AI"
)

var ErrSessionNotFound = errors.New("session not found")

type Conversation struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationStore owns session rows and their ordered turn history.
// History returns turns ascending by creation time; equal timestamps keep
// insertion order.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, sessionID string) (Conversation, error)
	Append(ctx context.Context, sessionID, sender, text string) (Message, error)
	History(ctx context.Context, sessionID string) ([]Message, error)
}

type dbQuerier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type PGStore struct {
	db dbQuerier
}

func NewPGStore(db dbQuerier) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) GetOrCreate(ctx context.Context, sessionID string) (Conversation, error) {
	// ON CONFLICT DO NOTHING keeps concurrent first-touch from producing a
	// second row for the same session id.
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO conversations (id, session_id, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (session_id) DO NOTHING`,
		uuid.NewString(),
		sessionID,
	)
	if err != nil {
		return Conversation{}, err
	}

	var conversation Conversation
	err = s.db.QueryRow(
		ctx,
		`SELECT id, session_id, created_at
		 FROM conversations
		 WHERE session_id = $1`,
		sessionID,
	).Scan(&conversation.ID, &conversation.SessionID, &conversation.CreatedAt)
	if err != nil {
		return Conversation{}, err
	}
	return conversation, nil
}

func (s *PGStore) Append(ctx context.Context, sessionID, sender, text string) (Message, error) {
	message := Message{SessionID: sessionID, Sender: sender, Text: text}
	err := s.db.QueryRow(
		ctx,
		`INSERT INTO messages (id, conversation_id, sender, text, created_at)
		 SELECT $1, c.id, $2, $3, NOW()
		 FROM conversations c
		 WHERE c.session_id = $4
		 RETURNING id, created_at`,
		uuid.NewString(),
		sender,
		text,
		sessionID,
	).Scan(&message.ID, &message.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrSessionNotFound
	}
	if err != nil {
		return Message{}, err
	}
	return message, nil
}

func (s *PGStore) History(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.Query(
		ctx,
		`SELECT m.id, m.sender, m.text, m.created_at
		 FROM messages m
		 JOIN conversations c ON c.id = m.conversation_id
		 WHERE c.session_id = $1
		 ORDER BY m.created_at ASC, m.seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		message := Message{SessionID: sessionID}
		if err := rows.Scan(&message.ID, &message.Sender, &message.Text, &message.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}
