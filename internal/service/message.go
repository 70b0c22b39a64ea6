package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ticketdesk.app/portal/internal/chatwoot"
	"ticketdesk.app/portal/internal/mapper"
	"ticketdesk.app/portal/internal/model"
)

// MessageView is the shape the portal UI renders. Agent authorship is
// derived, not stored: outgoing messages and messages sent by a Chatwoot
// "user" (an agent, in Chatwoot's vocabulary) count as agent messages.
type MessageView struct {
	ID          int64               `json:"id"`
	Content     string              `json:"content"`
	CreatedAt   time.Time           `json:"created_at"`
	IsFromAgent bool                `json:"is_from_agent"`
	SenderName  *string             `json:"sender_name,omitempty"`
	EchoID      *string             `json:"echo_id,omitempty"`
	Attachments []mapper.Attachment `json:"attachments,omitempty"`
}

type MessageService interface {
	ListForConversation(ctx context.Context, conv *model.Conversation) ([]MessageView, error)
	Send(ctx context.Context, conv *model.Conversation, content string) (*MessageView, error)
}

type messageService struct {
	gateway ChatwootGateway
	sync    TicketSyncService
	logger  *slog.Logger
}

func NewMessageService(gateway ChatwootGateway, sync TicketSyncService, logger *slog.Logger) MessageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &messageService{
		gateway: gateway,
		sync:    sync,
		logger:  logger,
	}
}

// ListForConversation pulls the canonical message list from Chatwoot,
// persists every message locally (idempotent by external id) and returns the
// client views. Chatwoot stays the source of truth for ordering.
func (s *messageService) ListForConversation(ctx context.Context, conv *model.Conversation) ([]MessageView, error) {
	if conv.ChatwootConversationID == nil {
		return []MessageView{}, nil
	}

	rawMessages, err := s.gateway.ListMessages(ctx, conv.ChatwootContactID, *conv.ChatwootConversationID)
	if err != nil {
		return nil, fmt.Errorf("listing chatwoot messages: %w", err)
	}

	views := make([]MessageView, 0, len(rawMessages))
	for _, raw := range rawMessages {
		record := mapper.FromJSON(raw)
		persisted, err := s.sync.PersistMessage(ctx, conv.ID, record)
		if err != nil {
			return nil, fmt.Errorf("persisting message: %w", err)
		}
		if persisted == nil {
			continue
		}
		views = append(views, buildView(persisted, record))
	}

	return views, nil
}

func (s *messageService) Send(ctx context.Context, conv *model.Conversation, content string) (*MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}
	if conv.ChatwootConversationID == nil {
		return nil, fmt.Errorf("conversation is not linked to chatwoot")
	}

	raw, err := s.gateway.SendMessage(ctx, conv.ChatwootContactID, *conv.ChatwootConversationID, chatwoot.SendMessageParams{
		Content: content,
		EchoID:  fmt.Sprintf("msg-%d", time.Now().UnixMilli()),
	})
	if err != nil {
		return nil, fmt.Errorf("sending chatwoot message: %w", err)
	}

	record := mapper.FromJSON(raw)
	persisted, err := s.sync.PersistMessage(ctx, conv.ID, record)
	if err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}
	if persisted == nil {
		return nil, fmt.Errorf("chatwoot returned an empty message")
	}

	view := buildView(persisted, record)
	return &view, nil
}

func buildView(msg *model.Message, record mapper.Record) MessageView {
	isFromAgent := msg.MessageType == model.MessageTypeOutgoing
	if msg.SenderType != nil && strings.EqualFold(*msg.SenderType, "user") {
		isFromAgent = true
	}

	return MessageView{
		ID:          msg.ID,
		Content:     msg.Content,
		CreatedAt:   msg.ExternalCreatedAt,
		IsFromAgent: isFromAgent,
		SenderName:  msg.SenderName,
		EchoID:      msg.EchoID,
		Attachments: mapper.Attachments(record),
	}
}
