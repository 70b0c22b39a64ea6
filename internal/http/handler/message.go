package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketdesk.app/portal/internal/http/dto"
	"ticketdesk.app/portal/internal/http/middleware"
	"ticketdesk.app/portal/internal/service"
)

type MessageHandler struct {
	conversations service.ConversationService
	messages      service.MessageService
}

func NewMessageHandler(conversations service.ConversationService, messages service.MessageService) *MessageHandler {
	return &MessageHandler{
		conversations: conversations,
		messages:      messages,
	}
}

func (h *MessageHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	session := middleware.GetSession(ctx)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	conv, ok := lookupOwnedConversation(c, h.conversations, session.UserID)
	if !ok {
		return
	}

	views, err := h.messages.ListForConversation(ctx, conv)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list messages", "error", err, "conversation_id", conv.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": views})
}

func (h *MessageHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()
	session := middleware.GetSession(ctx)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, ok := lookupOwnedConversation(c, h.conversations, session.UserID)
	if !ok {
		return
	}

	view, err := h.messages.Send(ctx, conv, req.Content)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send message", "error", err, "conversation_id", conv.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, view)
}
