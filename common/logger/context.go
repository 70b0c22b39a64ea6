package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment so business context
// (conversation_id, delivery_id, etc.) shows up in every log statement
// without threading it through call signatures.
type LogFields struct {
	ConversationID         *int64  // Internal ticket conversation ID
	ExternalConversationID *int64  // Chatwoot conversation ID
	DeliveryID             *int64  // Webhook delivery audit row ID
	EventName              *string // Inbound event name (e.g. "message_created")
	Channel                *string // Delivery channel ("webhook", "sync", "cable")
	Component              string  // Component name (e.g. "portal.service.sync")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.ConversationID != nil {
		result.ConversationID = next.ConversationID
	}
	if next.ExternalConversationID != nil {
		result.ExternalConversationID = next.ExternalConversationID
	}
	if next.DeliveryID != nil {
		result.DeliveryID = next.DeliveryID
	}
	if next.EventName != nil {
		result.EventName = next.EventName
	}
	if next.Channel != nil {
		result.Channel = next.Channel
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging raw payloads.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
