package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type startChatRequest struct {
	Topic string `json:"topic"`
}

type sendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type analyzeRequest struct {
	SessionID string `json:"sessionId"`
}

func (a *App) startChat(c *gin.Context) {
	var payload startChatRequest
	if !mustJSON(c, &payload) {
		return
	}
	topic := strings.TrimSpace(payload.Topic)
	if topic == "" {
		writeError(c, http.StatusBadRequest, "topic is required")
		return
	}

	// The priming reply goes back as a raw string, not a JSON envelope.
	c.String(http.StatusOK, a.chat.Start(c.Request.Context(), topic))
}

func (a *App) sendMessage(c *gin.Context) {
	var payload sendMessageRequest
	if !mustJSON(c, &payload) {
		return
	}
	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		writeError(c, http.StatusBadRequest, "sessionId is required")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}

	result, err := a.chat.SendMessage(c.Request.Context(), sessionID, payload.Message)
	if err != nil {
		log.Printf("send message failed for session %s: %v", sessionID, err)
		writeError(c, http.StatusInternalServerError, "Failed to record the conversation turn")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *App) getHistory(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("sessionId"))
	if sessionID == "" {
		writeError(c, http.StatusBadRequest, "sessionId is required")
		return
	}

	messages, err := a.chat.History(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("history load failed for session %s: %v", sessionID, err)
		writeError(c, http.StatusInternalServerError, "Failed to load chat history")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

func (a *App) analyzeConversation(c *gin.Context) {
	var payload analyzeRequest
	if !mustJSON(c, &payload) {
		return
	}
	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		writeError(c, http.StatusBadRequest, "sessionId is required")
		return
	}

	result, err := a.analysis.Analyze(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("analysis failed for session %s: %v", sessionID, err)
		writeError(c, http.StatusInternalServerError, "Failed to analyze the conversation")
		return
	}
	c.JSON(http.StatusOK, result)
}
