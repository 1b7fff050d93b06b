package server

import (
	"context"
	"strings"
)

type ChatReply struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
}

// ChatService coordinates the store, the AI client and the reply sanitizer
// for the two conversation flows: priming a topic and exchanging a turn.
type ChatService struct {
	store ConversationStore
	ai    TextGenerator
}

func NewChatService(store ConversationStore, ai TextGenerator) *ChatService {
	return &ChatService{store: store, ai: ai}
}

// Start primes the model for a new practice topic. Nothing is recorded
// until the first send; this call is stateless.
func (s *ChatService) Start(ctx context.Context, topic string) string {
	prompt := `Let's practice English. The topic is "` + topic +
		`". Keep your replies short, clear, and natural. Do not use emojis. Speak like a human conversation partner.`
	return s.ai.Generate(ctx, prompt)
}

// SendMessage runs one conversation turn: prior history plus the new user
// line become the prompt, the reply is sanitized, and both turns are
// persisted USER first. AI fallback strings are ordinary replies and get
// stored like any other text; only store failures abort the turn.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, userText string) (ChatReply, error) {
	if _, err := s.store.GetOrCreate(ctx, sessionID); err != nil {
		return ChatReply{}, err
	}
	history, err := s.store.History(ctx, sessionID)
	if err != nil {
		return ChatReply{}, err
	}

	var prompt strings.Builder
	for _, message := range history {
		prompt.WriteString(message.Sender)
		prompt.WriteString(": ")
		prompt.WriteString(message.Text)
		prompt.WriteString("\n")
	}
	prompt.WriteString(SenderUser)
	prompt.WriteString(": ")
	prompt.WriteString(userText)
	prompt.WriteString("\n")

	aiResponse := s.ai.Generate(ctx, prompt.String())
	reply := cleanReply(&aiResponse)

	// The user text is stored verbatim; only the AI reply is sanitized.
	if _, err := s.store.Append(ctx, sessionID, SenderUser, userText); err != nil {
		return ChatReply{}, err
	}
	aiMessage, err := s.store.Append(ctx, sessionID, SenderAI, reply)
	if err != nil {
		return ChatReply{}, err
	}

	return ChatReply{
		Reply:     reply,
		SessionID: sessionID,
		MessageID: aiMessage.ID,
	}, nil
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]Message, error) {
	return s.store.History(ctx, sessionID)
}

// renderTranscript is the ROLE: text line-per-turn form of a history, used
// as analysis input. No trailing newline.
func renderTranscript(history []Message) string {
	lines := make([]string, 0, len(history))
	for _, message := range history {
		lines = append(lines, message.Sender+": "+message.Text)
	}
	return strings.Join(lines, "\n")
}
