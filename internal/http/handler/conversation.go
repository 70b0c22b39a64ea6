package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ticketdesk.app/portal/internal/http/dto"
	"ticketdesk.app/portal/internal/http/middleware"
	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/service"
	"ticketdesk.app/portal/internal/store"
)

type ConversationHandler struct {
	conversations service.ConversationService
}

func NewConversationHandler(conversations service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	session := middleware.GetSession(ctx)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid create conversation request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.conversations.Create(ctx, service.CreateConversationParams{
		UserID:          session.UserID,
		UserName:        session.UserName,
		UserEmail:       session.UserEmail,
		Title:           req.Title,
		Description:     req.Description,
		Complexity:      model.Complexity(req.Complexity),
		Sector:          req.Sector,
		RequestTarget:   model.RequestTarget(req.RequestTarget),
		RequestForName:  req.RequestForName,
		RequestForEmail: req.RequestForEmail,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create conversation", "error", err, "user_id", session.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create conversation"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToConversationResponse(conv))
}

func (h *ConversationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	session := middleware.GetSession(ctx)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	conversations, err := h.conversations.ListForUser(ctx, session.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list conversations", "error", err, "user_id", session.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}

	responses := make([]*dto.ConversationResponse, 0, len(conversations))
	for i := range conversations {
		responses = append(responses, dto.ToConversationResponse(&conversations[i]))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": responses})
}

func (h *ConversationHandler) Get(c *gin.Context) {
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

	c.JSON(http.StatusOK, dto.ToConversationResponse(conv))
}

func (h *ConversationHandler) Timeline(c *gin.Context) {
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

	events, err := h.conversations.Timeline(ctx, conv.ID, 15)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load timeline", "error", err, "conversation_id", conv.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load timeline"})
		return
	}

	c.JSON(http.StatusOK, dto.ToTimelineResponse(conv, events))
}

// lookupOwnedConversation resolves the :id path param to a conversation owned
// by the caller. Writes the error response itself when the lookup fails.
func lookupOwnedConversation(c *gin.Context, conversations service.ConversationService, userID int64) (*model.Conversation, bool) {
	ctx := c.Request.Context()

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return nil, false
	}

	conv, err := conversations.GetForUser(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return nil, false
		}
		slog.ErrorContext(ctx, "failed to fetch conversation", "error", err, "conversation_id", conversationID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch conversation"})
		return nil, false
	}

	return conv, true
}
