package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/apihub-support/internal/chat"
)

type ChatHandler struct {
	sessions *chat.SessionStore
	turns    *chat.Handler
}

func NewChatHandler(sessions *chat.SessionStore, turns *chat.Handler) *ChatHandler {
	return &ChatHandler{sessions: sessions, turns: turns}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	s := h.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID})
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"contact":    s.Contact(),
		"messages":   s.Transcript(),
	})
}

// ResetSession clears the transcript and pending flags.
func (h *ChatHandler) ResetSession(c *gin.Context) {
	if _, err := h.sessions.Reset(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Contact string `json:"contact"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if contact := strings.TrimSpace(req.Contact); contact != "" {
		s.SetContact(contact)
	}
	c.JSON(http.StatusOK, h.turns.Handle(c.Request.Context(), s, req.Content))
}

// SubmitTicket takes the manual form shown after the "new ticket" command.
func (h *ChatHandler) SubmitTicket(c *gin.Context) {
	var req chat.ManualTicket
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	created, err := h.turns.SubmitManualTicket(c.Request.Context(), s, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"ticket":   created.Ticket,
		"warnings": created.Warnings,
		"flags":    s.TakeFlags(),
	})
}
