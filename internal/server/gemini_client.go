package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"keeptalking/backend/internal/config"
)

// Fallback strings returned instead of errors. The three failure classes
// (transport/HTTP, unreadable body, unexpected response shape) stay an
// internal concern of the client; callers only ever see a reply string.
const (
	replyConnectionTrouble = "Sorry, I'm having trouble connecting to the AI service right now."
	replySomethingWrong    = "Sorry, something went wrong. Please try again."
	replyNotUnderstood     = "Sorry, I couldn't understand the response."

	mockReplyPrefix = "Hello! I'm a mock AI response since no API key is configured. Your message was: "
)

// TextGenerator produces a reply for a prompt. Implementations are total:
// every failure maps to a fallback string, never an error.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) string
}

type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewGeminiClient(cfg config.Config) *GeminiClient {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	return &GeminiClient{
		apiKey:  strings.TrimSpace(cfg.GeminiAPIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/"),
		model:   strings.TrimSpace(cfg.GeminiModel),
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) string {
	if c.apiKey == "" {
		log.Printf("gemini api key not configured, using mock response")
		return mockReplyPrefix + prompt
	}

	payload := map[string]any{
		"contents": []any{
			map[string]any{
				"parts": []any{
					map[string]any{"text": prompt},
				},
			},
		},
	}
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("gemini request encode failed: %v", err)
		return replySomethingWrong
	}

	endpoint := c.baseURL + "/models/" + c.model + ":generateContent?key=" + url.QueryEscape(c.apiKey)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyRaw))
	if err != nil {
		log.Printf("gemini request build failed: %v", err)
		return replyConnectionTrouble
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		log.Printf("gemini request failed: %v", err)
		return replyConnectionTrouble
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		log.Printf("gemini response read failed: %v", err)
		return replySomethingWrong
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		log.Printf("gemini api error (%d): %s", response.StatusCode, truncateForLog(string(responseBody), 600))
		return replyConnectionTrouble
	}

	var parsed map[string]any
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		log.Printf("gemini response decode failed: %v", err)
		return replySomethingWrong
	}
	return extractCandidateText(parsed)
}

// extractCandidateText walks candidates[0].content.parts[0].text. Any
// missing or mistyped level yields the not-understood fallback.
func extractCandidateText(data map[string]any) string {
	candidates, ok := data["candidates"].([]any)
	if !ok || len(candidates) == 0 {
		return replyNotUnderstood
	}
	candidate, ok := candidates[0].(map[string]any)
	if !ok {
		return replyNotUnderstood
	}
	content, ok := candidate["content"].(map[string]any)
	if !ok {
		return replyNotUnderstood
	}
	parts, ok := content["parts"].([]any)
	if !ok || len(parts) == 0 {
		return replyNotUnderstood
	}
	part, ok := parts[0].(map[string]any)
	if !ok {
		return replyNotUnderstood
	}
	text, ok := part["text"].(string)
	if !ok {
		return replyNotUnderstood
	}
	return text
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
