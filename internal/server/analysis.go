package server

import (
	"context"
	"log"
	"strings"
)

const (
	labelMistakes    = "MISTAKES:"
	labelSuggestions = "SUGGESTIONS:"
	labelVocabTips   = "VOCAB_TIPS:"
)

// AnalysisResult is transient; it is parsed out of free-form AI text and
// never persisted. After defaulting every category is non-empty, except the
// documented empty-history response.
type AnalysisResult struct {
	Mistakes    []string `json:"mistakes"`
	Suggestions []string `json:"suggestions"`
	VocabTips   []string `json:"vocabTips"`
}

type AnalysisService struct {
	store ConversationStore
	ai    TextGenerator
}

func NewAnalysisService(store ConversationStore, ai TextGenerator) *AnalysisService {
	return &AnalysisService{store: store, ai: ai}
}

// Analyze builds an analysis prompt from the full session transcript and
// parses the AI's reply into the three fixed categories. An empty session
// short-circuits with the one legal partially-empty result, distinguishing
// "nothing to analyze" from "analysis failed".
func (s *AnalysisService) Analyze(ctx context.Context, sessionID string) (AnalysisResult, error) {
	history, err := s.store.History(ctx, sessionID)
	if err != nil {
		return AnalysisResult{}, err
	}
	if len(history) == 0 {
		return AnalysisResult{
			Mistakes:    []string{"No conversation found for analysis"},
			Suggestions: []string{},
			VocabTips:   []string{},
		}, nil
	}

	prompt := buildAnalysisPrompt(renderTranscript(history))
	analysis := s.ai.Generate(ctx, prompt)
	return parseAnalysis(analysis), nil
}

func buildAnalysisPrompt(conversationText string) string {
	return "Analyze this conversation for grammar mistakes, provide suggestions for improvement, and give vocabulary tips. " +
		"Return your analysis in the following format:\n" +
		labelMistakes + " [list grammar mistakes]\n" +
		labelSuggestions + " [list improvement suggestions]\n" +
		labelVocabTips + " [list vocabulary tips]\n\n" +
		"Conversation:\n" + conversationText
}

// extract is a seam over extractSection so a parsing failure can be
// simulated when exercising the recovery path.
var extract = extractSection

func parseAnalysis(analysis string) (result AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("analysis parsing failed: %v", r)
			result = AnalysisResult{
				Mistakes:    []string{"Analysis parsing error"},
				Suggestions: []string{"Please try again"},
				VocabTips:   []string{"Keep practicing"},
			}
		}
	}()

	return AnalysisResult{
		Mistakes:    withDefault(extract(analysis, labelMistakes), "No significant grammar mistakes found"),
		Suggestions: withDefault(extract(analysis, labelSuggestions), "Keep practicing!"),
		VocabTips:   withDefault(extract(analysis, labelVocabTips), "Continue expanding your vocabulary"),
	}
}

func withDefault(items []string, fallback string) []string {
	if len(items) == 0 {
		return []string{fallback}
	}
	return items
}

// extractSection scans the text line by line with two states: seeking the
// label, then collecting until any of the three labels (including a repeat
// of the target) closes the section. Content on the label line itself
// splits on commas and semicolons; collected lines are taken whole. The
// split will fragment items that legitimately contain a comma; that
// limitation is accepted and pinned by tests.
func extractSection(text, label string) []string {
	const (
		stateSeeking = iota
		stateInSection
	)

	state := stateSeeking
	items := make([]string, 0)

scan:
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch state {
		case stateSeeking:
			if !strings.HasPrefix(trimmed, label) {
				continue
			}
			state = stateInSection
			if inline := strings.TrimSpace(trimmed[len(label):]); inline != "" {
				items = append(items, splitListItems(inline)...)
			}
		case stateInSection:
			if isSectionLabel(trimmed) {
				break scan
			}
			if trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func isSectionLabel(line string) bool {
	return strings.HasPrefix(line, labelMistakes) ||
		strings.HasPrefix(line, labelSuggestions) ||
		strings.HasPrefix(line, labelVocabTips)
}

func splitListItems(inline string) []string {
	return strings.FieldsFunc(inline, func(r rune) bool {
		return r == ',' || r == ';'
	})
}
