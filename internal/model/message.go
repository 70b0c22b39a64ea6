package model

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageTypeIncoming MessageType = "INCOMING"
	MessageTypeOutgoing MessageType = "OUTGOING"
	MessageTypeActivity MessageType = "ACTIVITY"
	MessageTypeSystem   MessageType = "SYSTEM"
)

// Message is one persisted conversation message. ChatwootMessageID is the
// dedup key against double delivery (webhook + cable); when nil no dedup key
// exists and every delivery inserts a fresh row.
type Message struct {
	ID                int64           `json:"id"`
	ConversationID    int64           `json:"conversation_id"`
	ChatwootMessageID *int64          `json:"chatwoot_message_id,omitempty"`
	Content           string          `json:"content"`
	MessageType       MessageType     `json:"message_type"`
	SenderName        *string         `json:"sender_name,omitempty"`
	SenderType        *string         `json:"sender_type,omitempty"`
	EchoID            *string         `json:"echo_id,omitempty"`
	ExternalCreatedAt time.Time       `json:"external_created_at"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
