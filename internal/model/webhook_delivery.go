package model

import (
	"encoding/json"
	"time"
)

// WebhookDelivery is a write-only audit row recorded for every inbound
// webhook, before any processing. Never read by the reconciliation logic.
type WebhookDelivery struct {
	ID                     int64           `json:"id"`
	Event                  string          `json:"event"`
	ChatwootConversationID *int64          `json:"chatwoot_conversation_id,omitempty"`
	ConversationID         *int64          `json:"conversation_id,omitempty"`
	Payload                json.RawMessage `json:"payload"`
	CreatedAt              time.Time       `json:"created_at"`
}
