package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"assistant-backend/internal/agent/session"
	"assistant-backend/internal/agent/usecase"
	"assistant-backend/internal/memory"
	"assistant-backend/pkg/extract"
)

// Handler wires the HTTP surface to the agent and its stores.
type Handler struct {
	agent    *usecase.Agent
	memory   *memory.LongTerm
	sessions *session.Store
}

func NewHandler(agent *usecase.Agent, mem *memory.LongTerm, sessions *session.Store) *Handler {
	return &Handler{agent: agent, memory: mem, sessions: sessions}
}

// ChatRequest is the JSON body of POST /api/chat. Multipart requests carry
// the same fields as form values plus an optional file.
type ChatRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Chat processes one user message through the agent.
// POST /api/chat
func (h *Handler) Chat(c *gin.Context) {
	userID, message, ok := h.readChatInput(c)
	if !ok {
		return
	}

	log.Info().Str("user_id", userID).Msg("received chat message")

	// The agent converts its own panics to the generic reply; this guard
	// covers anything that escapes, keeping the response shape instead of
	// an empty 500.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("user_id", userID).Interface("panic", r).Msg("chat request panicked")
			c.JSON(http.StatusOK, usecase.Result{Response: usecase.ErrorResponse, Status: "error"})
		}
	}()

	result := h.agent.Process(c.Request.Context(), userID, message)
	c.JSON(http.StatusOK, result)
}

// readChatInput accepts either a JSON body or a multipart form with an
// optional file upload. Extracted file text is prepended to the message
// inside document markers; extraction failures become an inline note so the
// turn still goes through.
func (h *Handler) readChatInput(c *gin.Context) (userID, message string, ok bool) {
	contentType := c.GetHeader("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return "", "", false
		}
		return req.UserID, req.Message, true
	}

	userID = c.PostForm("user_id")
	message = c.PostForm("message")
	if userID == "" || message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and message are required"})
		return "", "", false
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// No file attached; plain multipart message.
		return userID, message, true
	}

	f, err := fileHeader.Open()
	if err != nil {
		log.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("opening upload failed")
		return userID, message + "\n\n[Note: the attached file could not be read]", true
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		log.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("reading upload failed")
		return userID, message + "\n\n[Note: the attached file could not be read]", true
	}

	text, err := extract.FromUpload(fileHeader.Filename, data)
	if err != nil {
		log.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("text extraction failed")
		return userID, message + fmt.Sprintf("\n\n[Note: text could not be extracted from %s]", fileHeader.Filename), true
	}

	message = fmt.Sprintf("%s\n\n---START OF DOCUMENT---\n%s\n---END OF DOCUMENT---", message, text)
	return userID, message, true
}

// GetHistory returns the user's most recent conversation turns, oldest
// first.
// GET /api/history/:userId?limit=10
func (h *Handler) GetHistory(c *gin.Context) {
	userID := c.Param("userId")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	conversations, err := h.memory.Recent(userID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("loading history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve conversation history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":       userID,
		"count":         len(conversations),
		"conversations": conversations,
	})
}

// ClearSession discards the user's in-process session buffer. Persisted
// history is unaffected.
// DELETE /api/session/:userId
func (h *Handler) ClearSession(c *gin.Context) {
	userID := c.Param("userId")
	h.sessions.Clear(userID)
	c.JSON(http.StatusOK, gin.H{"message": "session cleared", "user_id": userID})
}

// WipeUserMemory deletes all persisted conversations and semantic-index
// entries for one user.
// DELETE /api/memory/:userId (admin)
func (h *Handler) WipeUserMemory(c *gin.Context) {
	userID := c.Param("userId")

	if err := h.memory.DeleteUser(c.Request.Context(), userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("wiping user memory failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user memory"})
		return
	}

	h.sessions.Clear(userID)
	c.JSON(http.StatusOK, gin.H{"message": "memory deleted", "user_id": userID})
}

// WipeAllMemory deletes every conversation for every user. Requires an
// explicit confirm flag.
// DELETE /api/memory?confirm=true (admin)
func (h *Handler) WipeAllMemory(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pass confirm=true to delete all memory"})
		return
	}

	if err := h.memory.DeleteAll(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("wiping all memory failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete memory"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all memory deleted"})
}
