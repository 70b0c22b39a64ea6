package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ticketdesk.app/portal/common/logger"
	"ticketdesk.app/portal/internal/http/dto"
	"ticketdesk.app/portal/internal/http/middleware"
	"ticketdesk.app/portal/internal/mapper"
	"ticketdesk.app/portal/internal/service"
	"ticketdesk.app/portal/internal/store"
)

const (
	syncEventMessageCreated  = "message.created"
	syncEventConversation    = "conversation.updated"
	syncEventStatusChanged   = "conversation.status_changed"
	syncEventAssigneeChanged = "assignee.changed"
)

// SyncHandler applies realtime cable frames to the local conversation state.
// It runs behind the admin API key: the realtime listener is its only caller.
type SyncHandler struct {
	conversations service.ConversationService
	sync          service.TicketSyncService
}

func NewSyncHandler(conversations service.ConversationService, sync service.TicketSyncService) *SyncHandler {
	return &SyncHandler{
		conversations: conversations,
		sync:          sync,
	}
}

func (h *SyncHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req dto.SyncEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: logger.Ptr(conversationID),
		EventName:      logger.Ptr(req.Event),
		Component:      "portal.http.sync",
	})

	conversation, err := h.conversations.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to fetch conversation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch conversation"})
		return
	}

	// Session callers may only sync their own conversations; the admin-key
	// path (no session in context) acts for all owners.
	if session := middleware.GetSession(ctx); session != nil && conversation.UserID != session.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	data := mapper.FromJSON(req.Data)

	switch req.Event {
	case syncEventMessageCreated:
		if _, err := h.sync.PersistMessage(ctx, conversation.ID, data); err != nil {
			slog.ErrorContext(ctx, "failed to persist realtime message", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist message"})
			return
		}
	case syncEventConversation, syncEventStatusChanged, syncEventAssigneeChanged:
		status := mapper.ResolveStatus(data, conversation.Status)
		if _, err := h.sync.ApplyConversationStatus(ctx, conversation.ID, status, data); err != nil {
			slog.ErrorContext(ctx, "failed to apply conversation sync", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply sync"})
			return
		}
	default:
		slog.InfoContext(ctx, "ignoring unsupported sync event")
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
