package store

import (
	"context"
	"time"

	"ticketdesk.app/portal/internal/model"
)

type webhookDeliveryStore struct {
	db DBTX
}

func (s *webhookDeliveryStore) Create(ctx context.Context, d *model.WebhookDelivery) error {
	d.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(ctx,
		`INSERT INTO webhook_deliveries (id, event, chatwoot_conversation_id, conversation_id, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.Event, toNullableInt8(d.ChatwootConversationID), toNullableInt8(d.ConversationID),
		[]byte(d.Payload), d.CreatedAt)
	return err
}
