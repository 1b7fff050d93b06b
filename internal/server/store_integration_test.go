package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newIntegrationSession(t *testing.T) string {
	t.Helper()
	return "it-" + uuid.NewString()
}

func TestPGStoreGetOrCreateIdempotent(t *testing.T) {
	requireIntegrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewPGStore(testPool)
	sessionID := newIntegrationSession(t)

	first, err := store.GetOrCreate(ctx, sessionID)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := store.GetOrCreate(ctx, sessionID)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one conversation row, got ids %q and %q", first.ID, second.ID)
	}
	if first.SessionID != sessionID {
		t.Fatalf("unexpected session id: %q", first.SessionID)
	}
}

func TestPGStoreConcurrentFirstTouch(t *testing.T) {
	requireIntegrationDB(t)

	store := NewPGStore(testPool)
	sessionID := newIntegrationSession(t)

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			conversation, err := store.GetOrCreate(ctx, sessionID)
			ids[slot], errs[slot] = conversation.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("duplicate conversation rows under concurrent first-touch: %q vs %q", ids[0], ids[i])
		}
	}
}

func TestPGStoreAppendAndHistoryOrder(t *testing.T) {
	requireIntegrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := NewPGStore(testPool)
	sessionID := newIntegrationSession(t)
	if _, err := store.GetOrCreate(ctx, sessionID); err != nil {
		t.Fatalf("get or create failed: %v", err)
	}

	// Rapid appends share NOW() at coarse resolution; the seq tie-break
	// must keep call order.
	const turns = 12
	for i := 0; i < turns; i++ {
		sender := SenderUser
		if i%2 == 1 {
			sender = SenderAI
		}
		message, err := store.Append(ctx, sessionID, sender, fmt.Sprintf("turn %02d", i))
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
		if message.ID == "" {
			t.Fatalf("append %d returned no id", i)
		}
	}

	history, err := store.History(ctx, sessionID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != turns {
		t.Fatalf("expected %d turns, got %d", turns, len(history))
	}
	for i, message := range history {
		if want := fmt.Sprintf("turn %02d", i); message.Text != want {
			t.Fatalf("turn %d out of order: got %q", i, message.Text)
		}
	}
}

func TestPGStoreAppendUnknownSession(t *testing.T) {
	requireIntegrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewPGStore(testPool)
	_, err := store.Append(ctx, newIntegrationSession(t), SenderUser, "hello")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPGStoreHistoryUnknownSessionEmpty(t *testing.T) {
	requireIntegrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewPGStore(testPool)
	history, err := store.History(ctx, newIntegrationSession(t))
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %v", history)
	}
}
