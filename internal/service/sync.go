package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ticketdesk.app/portal/common/id"
	"ticketdesk.app/portal/internal/mapper"
	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/store"
)

// TicketSyncService reconciles the local conversation record against a
// Chatwoot payload. It is the single entry point for both webhook and
// realtime deliveries, so every write it performs must be idempotent.
type TicketSyncService interface {
	ApplyConversationStatus(ctx context.Context, conversationID int64, newStatus model.Status, payload mapper.Record) (*SyncResult, error)
	PersistMessage(ctx context.Context, conversationID int64, raw mapper.Record) (*model.Message, error)
	RecordMessageEvent(ctx context.Context, conversationID int64, raw mapper.Record) error
}

// SyncResult reports what a reconciliation pass actually changed.
type SyncResult struct {
	StatusChanged   bool
	AssigneeChanged bool
	Status          model.Status
}

type ticketSyncService struct {
	messages store.MessageStore
	events   store.EventStore
	txRunner TxRunner
	logger   *slog.Logger
}

func NewTicketSyncService(messages store.MessageStore, events store.EventStore, txRunner TxRunner, logger *slog.Logger) TicketSyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ticketSyncService{
		messages: messages,
		events:   events,
		txRunner: txRunner,
		logger:   logger,
	}
}

func (s *ticketSyncService) ApplyConversationStatus(ctx context.Context, conversationID int64, newStatus model.Status, payload mapper.Record) (*SyncResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal sync payload: %w", err)
	}

	var result SyncResult
	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		conv, err := sp.Conversations().GetByID(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("fetching conversation: %w", err)
		}

		statusChanged := conv.Status != newStatus
		assignee := mapper.ResolveAssignee(payload)
		assigneeChanged := !equalInt64Ptr(conv.AssignedAgentID, assignee.ID) ||
			!equalStringPtr(conv.AssignedAgentName, assignee.Name)

		now := time.Now().UTC()
		occurredAt := mapper.ResolveEventTimestamp(payload)

		params := store.ApplySyncParams{
			ID:                conversationID,
			Status:            newStatus,
			AssignedAgentID:   assignee.ID,
			AssignedAgentName: assignee.Name,
			AssignedAt:        conv.AssignedAt,
			ResolvedAt:        conv.ResolvedAt,
			ReopenedAt:        conv.ReopenedAt,
			Metadata:          raw,
		}
		if assigneeChanged && assignee.ID != nil {
			params.AssignedAt = &now
		}
		if newStatus == model.StatusResolved && conv.Status != model.StatusResolved {
			params.ResolvedAt = &now
		}
		if newStatus == model.StatusOpen && conv.Status == model.StatusResolved {
			params.ReopenedAt = &now
		}

		if err := sp.Conversations().ApplySync(ctx, params); err != nil {
			return fmt.Errorf("applying sync: %w", err)
		}

		if statusChanged {
			event := &model.Event{
				ID:             id.New(),
				ConversationID: conversationID,
				Event:          model.EventStatusChanged,
				Title:          statusEventTitle(newStatus),
				OccurredAt:     occurredAt,
				Payload:        raw,
			}
			if _, err := sp.Events().CreateIfMissing(ctx, event); err != nil {
				return fmt.Errorf("recording status event: %w", err)
			}
		}

		if assigneeChanged {
			event := &model.Event{
				ID:             id.New(),
				ConversationID: conversationID,
				Event:          model.EventAssigneeChanged,
				Title:          assigneeEventTitle(conv, assignee),
				OccurredAt:     occurredAt,
				Payload:        raw,
			}
			if _, err := sp.Events().CreateIfMissing(ctx, event); err != nil {
				return fmt.Errorf("recording assignee event: %w", err)
			}
		}

		result = SyncResult{
			StatusChanged:   statusChanged,
			AssigneeChanged: assigneeChanged,
			Status:          newStatus,
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &result, nil
}

// PersistMessage writes one Chatwoot message locally. Messages carrying an
// external id upsert on (conversation, chatwoot_message_id) so repeated
// deliveries converge on a single row; payloads with no content and no
// attachments are dropped.
func (s *ticketSyncService) PersistMessage(ctx context.Context, conversationID int64, raw mapper.Record) (*model.Message, error) {
	canonical := mapper.ToCanonicalMessage(raw, nil)
	if canonical.Content == "" && !mapper.HasAttachments(raw) {
		return nil, nil
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal message payload: %w", err)
	}

	msg := &model.Message{
		ID:                id.New(),
		ConversationID:    conversationID,
		ChatwootMessageID: canonical.ExternalID,
		Content:           canonical.Content,
		MessageType:       canonical.MessageType,
		SenderName:        canonical.SenderName,
		SenderType:        canonical.SenderType,
		EchoID:            canonical.EchoID,
		ExternalCreatedAt: canonical.ExternalCreatedAt,
		Payload:           payload,
	}

	if canonical.ExternalID != nil {
		return s.messages.UpsertByExternalID(ctx, msg)
	}
	return s.messages.Create(ctx, msg)
}

// RecordMessageEvent appends a timeline entry for an inbound webhook
// message. These are not deduped: the message row itself is the dedup
// surface, the timeline entry is advisory.
func (s *ticketSyncService) RecordMessageEvent(ctx context.Context, conversationID int64, raw mapper.Record) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	var description *string
	if content, ok := raw["content"].(string); ok && content != "" {
		description = &content
	}

	event := &model.Event{
		ID:             id.New(),
		ConversationID: conversationID,
		Event:          model.EventWebhookMessageCreate,
		Title:          "Nova mensagem no Chatwoot",
		Description:    description,
		OccurredAt:     mapper.ResolveEventTimestamp(raw),
		Payload:        payload,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("recording message event: %w", err)
	}
	return nil
}

func statusEventTitle(status model.Status) string {
	switch status {
	case model.StatusResolved:
		return "Conversa resolvida no Chatwoot"
	case model.StatusPending:
		return "Conversa marcada como pendente"
	case model.StatusSnoozed:
		return "Conversa pausada (snoozed)"
	default:
		return "Conversa reaberta"
	}
}

func assigneeEventTitle(conv *model.Conversation, assignee mapper.AssigneeRef) string {
	hadAssignee := conv.AssignedAgentID != nil || conv.AssignedAgentName != nil

	var label string
	switch {
	case assignee.Name != nil:
		label = *assignee.Name
	case assignee.ID != nil:
		label = fmt.Sprintf("agente #%d", *assignee.ID)
	default:
		return "Conversa sem agente atribuido"
	}

	if hadAssignee {
		return fmt.Sprintf("Atendimento transferido para %s", label)
	}
	return fmt.Sprintf("Conversa atribuida para %s", label)
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
