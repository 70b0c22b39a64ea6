package mapper

import (
	"time"

	"ticketdesk.app/portal/internal/model"
)

// CanonicalMessage is the internal normalized shape of a message, identical
// whether the raw payload arrived via REST pull, webhook push or cable push.
type CanonicalMessage struct {
	ExternalID        *int64
	Content           string
	MessageType       model.MessageType
	SenderName        *string
	SenderType        *string
	EchoID            *string
	ExternalCreatedAt time.Time
}

// ToCanonicalMessage projects a raw message record into the canonical shape.
// ExternalCreatedAt is guaranteed: parsed timestamp, else fallback, else now —
// every message gets an ordering key even when the source omits one.
func ToCanonicalMessage(raw Record, fallbackCreatedAt *time.Time) CanonicalMessage {
	createdAt := ParseTimestamp(raw["created_at"])
	if createdAt == nil {
		createdAt = fallbackCreatedAt
	}
	if createdAt == nil {
		now := time.Now().UTC()
		createdAt = &now
	}

	content := ""
	if s, ok := raw["content"].(string); ok {
		content = s
	}

	sender := raw.Rec("sender")

	var echoID *string
	if s, ok := raw["echo_id"].(string); ok && s != "" {
		echoID = &s
	}

	return CanonicalMessage{
		ExternalID:        NumericID(raw["id"]),
		Content:           content,
		MessageType:       MapMessageType(raw["message_type"]),
		SenderName:        OptionalString(sender["name"]),
		SenderType:        OptionalString(sender["type"]),
		EchoID:            echoID,
		ExternalCreatedAt: *createdAt,
	}
}

// HasAttachments reports whether the raw message carries at least one
// attachment entry.
func HasAttachments(raw Record) bool {
	list, ok := raw["attachments"].([]any)
	return ok && len(list) > 0
}

// Attachments normalizes every attachment entry of a raw message.
func Attachments(raw Record) []Attachment {
	list, ok := raw["attachments"].([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	out := make([]Attachment, 0, len(list))
	for _, entry := range list {
		out = append(out, NormalizeAttachment(AsRecord(entry)))
	}
	return out
}
