package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps conversations in process memory. It backs tests and
// DB-less runs; slice order doubles as the insertion-order tie-break the
// store contract requires.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	messages      map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]Message),
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, sessionID string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conversation, ok := s.conversations[sessionID]; ok {
		return conversation, nil
	}

	conversation := Conversation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	s.conversations[sessionID] = conversation
	s.messages[sessionID] = make([]Message, 0, 16)
	return conversation, nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID, sender, text string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[sessionID]; !ok {
		return Message{}, ErrSessionNotFound
	}

	message := Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	s.messages[sessionID] = append(s.messages[sessionID], message)
	return message, nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[sessionID]
	copied := make([]Message, len(stored))
	copy(copied, stored)
	return copied, nil
}
