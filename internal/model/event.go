package model

import (
	"encoding/json"
	"time"
)

// Timeline event kinds.
const (
	EventConversationCreated  = "conversation.created"
	EventStatusChanged        = "conversation.status_changed"
	EventAssigneeChanged      = "conversation.assignee_changed"
	EventWebhookMessageCreate = "message_created"
)

// Event is one append-only timeline entry shown to the end user.
// (ConversationID, Event, Title, OccurredAt) is the dedup tuple: a delivery
// reproducing it exactly is dropped.
type Event struct {
	ID             int64           `json:"id"`
	ConversationID int64           `json:"conversation_id"`
	Event          string          `json:"event"`
	Title          string          `json:"title"`
	Description    *string         `json:"description,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
