package store

import (
	"context"
	"errors"

	"ticketdesk.app/portal/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ConversationStore defines the contract for conversation data access.
// Everything user-facing is scoped by the owning user id.
type ConversationStore interface {
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	GetForUser(ctx context.Context, id int64, userID int64) (*model.Conversation, error)
	GetByChatwootID(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error)
	Create(ctx context.Context, conversation *model.Conversation) error
	ApplySync(ctx context.Context, params ApplySyncParams) error
	ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error)
	ListLinked(ctx context.Context) ([]model.Conversation, error)
}

// MessageStore defines the contract for message data access
type MessageStore interface {
	Create(ctx context.Context, message *model.Message) (*model.Message, error)
	UpsertByExternalID(ctx context.Context, message *model.Message) (*model.Message, error)
	LatestByConversation(ctx context.Context, conversationID int64) (*model.Message, error)
}

// EventStore defines the contract for timeline event data access
type EventStore interface {
	Create(ctx context.Context, event *model.Event) error
	// CreateIfMissing inserts the event unless a row with the same
	// (conversation, event, title, occurredAt) tuple already exists.
	// Returns whether a row was created.
	CreateIfMissing(ctx context.Context, event *model.Event) (bool, error)
	ListRecent(ctx context.Context, conversationID int64, limit int32) ([]model.Event, error)
	LatestByConversation(ctx context.Context, conversationID int64) (*model.Event, error)
}

// WebhookDeliveryStore is the append-only webhook audit trail
type WebhookDeliveryStore interface {
	Create(ctx context.Context, delivery *model.WebhookDelivery) error
}

// ContactLinkStore defines the contract for user-to-contact link data access
type ContactLinkStore interface {
	GetByUserAndInbox(ctx context.Context, userID int64, inboxIdentifier string) (*model.ContactLink, error)
	Upsert(ctx context.Context, link *model.ContactLink) (*model.ContactLink, error)
}

// SessionStore defines the contract for session data access
type SessionStore interface {
	GetValidByToken(ctx context.Context, token string) (*model.Session, error) // checks expiry
}
