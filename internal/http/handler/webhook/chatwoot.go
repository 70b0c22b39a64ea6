package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketdesk.app/portal/common/id"
	"ticketdesk.app/portal/common/logger"
	"ticketdesk.app/portal/core/config"
	"ticketdesk.app/portal/internal/mapper"
	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/service"
	"ticketdesk.app/portal/internal/store"
)

const (
	eventMessageCreated            = "message_created"
	eventConversationStatusChanged = "conversation_status_changed"
	eventConversationUpdated       = "conversation_updated"
)

type ChatwootWebhookHandler struct {
	conversations service.ConversationService
	sync          service.TicketSyncService
	deliveries    store.WebhookDeliveryStore
	cfg           config.ChatwootConfig
}

func NewChatwootWebhookHandler(
	conversations service.ConversationService,
	sync service.TicketSyncService,
	deliveries store.WebhookDeliveryStore,
	cfg config.ChatwootConfig,
) *ChatwootWebhookHandler {
	return &ChatwootWebhookHandler{
		conversations: conversations,
		sync:          sync,
		deliveries:    deliveries,
		cfg:           cfg,
	}
}

func (h *ChatwootWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cfg.WebhookAuthEnabled() {
		// Chatwoot installations deliver the token in either place; a match
		// on one is enough.
		if c.Query("token") != h.cfg.WebhookToken && c.GetHeader("X-Chatwoot-Token") != h.cfg.WebhookToken {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	var payload mapper.Record
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	eventName, _ := payload["event"].(string)
	chatwootID := mapper.ConversationID(payload)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ExternalConversationID: chatwootID,
		EventName:              logger.Ptr(eventName),
		Component:              "portal.http.webhook",
	})

	var conversation *model.Conversation
	if chatwootID != nil {
		conversation, err = h.conversations.GetByChatwootID(ctx, *chatwootID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to match conversation", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to match conversation"})
			return
		}
	}

	// Every delivery is audited, matched or not. The trail is what makes
	// replay and missed-event debugging possible.
	delivery := &model.WebhookDelivery{
		ID:                     id.New(),
		Event:                  eventName,
		ChatwootConversationID: chatwootID,
		Payload:                json.RawMessage(body),
	}
	if conversation != nil {
		delivery.ConversationID = &conversation.ID
	}
	if err := h.deliveries.Create(ctx, delivery); err != nil {
		slog.ErrorContext(ctx, "failed to audit webhook delivery", "error", err)
	}

	if conversation == nil {
		slog.InfoContext(ctx, "webhook for unknown conversation ignored")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	switch eventName {
	case eventMessageCreated:
		if err := h.handleMessageCreated(c, conversation, payload); err != nil {
			return
		}
	case eventConversationStatusChanged, eventConversationUpdated:
		status := mapper.ResolveStatus(payload, conversation.Status)
		if _, err := h.sync.ApplyConversationStatus(ctx, conversation.ID, status, payload); err != nil {
			slog.ErrorContext(ctx, "failed to apply webhook sync", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
			return
		}
	default:
		slog.InfoContext(ctx, "unsupported webhook event ignored")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *ChatwootWebhookHandler) handleMessageCreated(c *gin.Context, conversation *model.Conversation, payload mapper.Record) error {
	ctx := c.Request.Context()

	if _, err := h.sync.PersistMessage(ctx, conversation.ID, payload); err != nil {
		slog.ErrorContext(ctx, "failed to persist webhook message", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return err
	}
	if err := h.sync.RecordMessageEvent(ctx, conversation.ID, payload); err != nil {
		slog.ErrorContext(ctx, "failed to record message event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return err
	}
	return nil
}
