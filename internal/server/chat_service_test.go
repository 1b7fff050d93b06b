package server

import (
	"context"
	"errors"
	"strings"
	"testing"
)

var errStoreDown = errors.New("store unavailable")

// failingStore simulates an unreachable persistence layer.
type failingStore struct{}

func (failingStore) GetOrCreate(context.Context, string) (Conversation, error) {
	return Conversation{}, errStoreDown
}

func (failingStore) Append(context.Context, string, string, string) (Message, error) {
	return Message{}, errStoreDown
}

func (failingStore) History(context.Context, string) ([]Message, error) {
	return nil, errStoreDown
}

// appendFailStore lets reads succeed but fails the turn write.
type appendFailStore struct {
	*MemoryStore
}

func (s appendFailStore) Append(context.Context, string, string, string) (Message, error) {
	return Message{}, errStoreDown
}

func TestStartIsStateless(t *testing.T) {
	ai := &stubGenerator{reply: "Great, let's talk about travel."}
	// A store that fails every call proves Start never touches it.
	service := NewChatService(failingStore{}, ai)

	reply := service.Start(context.Background(), "travel")
	if reply != "Great, let's talk about travel." {
		t.Fatalf("unexpected reply: %q", reply)
	}

	prompts := ai.recorded()
	if len(prompts) != 1 {
		t.Fatalf("expected one AI call, got %d", len(prompts))
	}
	if !strings.Contains(prompts[0], `The topic is "travel"`) {
		t.Fatalf("expected topic embedded in prompt: %q", prompts[0])
	}
	if !strings.Contains(prompts[0], "Do not use emojis") {
		t.Fatalf("expected plain-text instruction in prompt: %q", prompts[0])
	}
}

func TestSendMessageBuildsTranscriptPrompt(t *testing.T) {
	ctx := context.Background()
	ai := &stubGenerator{reply: "Hi there!"}
	service := NewChatService(NewMemoryStore(), ai)

	if _, err := service.SendMessage(ctx, "s1", "Hello"); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if _, err := service.SendMessage(ctx, "s1", "How are you?"); err != nil {
		t.Fatalf("second send failed: %v", err)
	}

	prompts := ai.recorded()
	if len(prompts) != 2 {
		t.Fatalf("expected two AI calls, got %d", len(prompts))
	}
	if prompts[0] != "USER: Hello\n" {
		t.Fatalf("unexpected first prompt: %q", prompts[0])
	}
	if prompts[1] != "USER: Hello\nAI: Hi there!\nUSER: How are you?\n" {
		t.Fatalf("unexpected second prompt: %q", prompts[1])
	}
}

func TestSendMessagePersistsUserThenAI(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	service := NewChatService(store, &stubGenerator{reply: "Sure!"})

	result, err := service.SendMessage(ctx, "s1", "Hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.SessionID != "s1" {
		t.Fatalf("unexpected session id: %q", result.SessionID)
	}
	if result.Reply != "Sure!" {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}

	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Sender != SenderUser || history[0].Text != "Hello" {
		t.Fatalf("unexpected user turn: %+v", history[0])
	}
	if history[1].Sender != SenderAI || history[1].Text != "Sure!" {
		t.Fatalf("unexpected AI turn: %+v", history[1])
	}
	if result.MessageID != history[1].ID {
		t.Fatalf("expected returned message id to be the AI turn's id")
	}
}

func TestSendMessageSanitizesOnlyAIReply(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	service := NewChatService(store, &stubGenerator{reply: "L1\nL2\nL3\nL4\nL5"})

	userText := "  spaced out message  "
	result, err := service.SendMessage(ctx, "s1", userText)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.Reply != "L1\nL2\nL3\nL4" {
		t.Fatalf("expected sanitized reply, got %q", result.Reply)
	}

	history, _ := store.History(ctx, "s1")
	if history[0].Text != userText {
		t.Fatalf("expected user text stored verbatim, got %q", history[0].Text)
	}
	if history[1].Text != "L1\nL2\nL3\nL4" {
		t.Fatalf("expected sanitized AI text stored, got %q", history[1].Text)
	}
}

func TestSendMessageMockModeEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cfg := newTestConfig() // no GeminiAPIKey: client answers in mock mode
	service := NewChatService(store, NewGeminiClient(cfg))

	result, err := service.SendMessage(ctx, "s1", "Hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !strings.Contains(result.Reply, "mock AI response") {
		t.Fatalf("expected mock marker in reply: %q", result.Reply)
	}
	if !strings.Contains(result.Reply, "Hello") {
		t.Fatalf("expected user text echoed in mock reply: %q", result.Reply)
	}

	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns after one send, got %d", len(history))
	}
}

func TestSendMessageStoreFailureAborts(t *testing.T) {
	service := NewChatService(failingStore{}, &stubGenerator{})
	if _, err := service.SendMessage(context.Background(), "s1", "Hello"); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestSendMessageAppendFailureAborts(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	if _, err := inner.GetOrCreate(ctx, "s1"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	service := NewChatService(appendFailStore{inner}, &stubGenerator{})
	if _, err := service.SendMessage(ctx, "s1", "Hello"); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected append error to abort the turn, got %v", err)
	}
}
