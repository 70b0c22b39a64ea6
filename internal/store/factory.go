package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, letting the same store
// implementations run inside and outside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Stores struct {
	db DBTX
}

func NewStores(db DBTX) *Stores {
	return &Stores{db: db}
}

func (s *Stores) Conversations() ConversationStore {
	return &conversationStore{db: s.db}
}

func (s *Stores) Messages() MessageStore {
	return &messageStore{db: s.db}
}

func (s *Stores) Events() EventStore {
	return &eventStore{db: s.db}
}

func (s *Stores) WebhookDeliveries() WebhookDeliveryStore {
	return &webhookDeliveryStore{db: s.db}
}

func (s *Stores) ContactLinks() ContactLinkStore {
	return &contactLinkStore{db: s.db}
}

func (s *Stores) Sessions() SessionStore {
	return &sessionStore{db: s.db}
}
