package server

import "strings"

const replyNotProcessed = "Sorry, I could not process that."

const (
	maxReplyChars = 500
	maxReplyLines = 4
)

// cleanReply bounds an AI reply for display. The character cut runs before
// the line cut, then the result is trimmed, so an overlong reply can be
// shortened twice. The cut counts runes, not bytes; a byte slice could
// split a multi-byte character and the store rejects invalid UTF-8.
func cleanReply(text *string) string {
	if text == nil {
		return replyNotProcessed
	}
	reply := *text
	if runes := []rune(reply); len(runes) > maxReplyChars {
		reply = string(runes[:maxReplyChars]) + "..."
	}
	lines := strings.Split(reply, "\n")
	if len(lines) > maxReplyLines {
		reply = strings.Join(lines[:maxReplyLines], "\n")
	}
	return strings.TrimSpace(reply)
}
