package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ticketdesk.app/portal/internal/model"
)

type contactLinkStore struct {
	db DBTX
}

const contactLinkColumns = `id, user_id, inbox_identifier, contact_identifier, source_id, pubsub_token, created_at, updated_at`

func (s *contactLinkStore) GetByUserAndInbox(ctx context.Context, userID int64, inboxIdentifier string) (*model.ContactLink, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+contactLinkColumns+` FROM contact_links WHERE user_id = $1 AND inbox_identifier = $2`,
		userID, inboxIdentifier)
	return scanContactLink(row)
}

// Upsert refreshes the stored contact identity on every conversation create:
// Chatwoot may rotate source ids and pubsub tokens between calls.
func (s *contactLinkStore) Upsert(ctx context.Context, link *model.ContactLink) (*model.ContactLink, error) {
	now := time.Now().UTC()
	row := s.db.QueryRow(ctx,
		`INSERT INTO contact_links (id, user_id, inbox_identifier, contact_identifier, source_id, pubsub_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (user_id, inbox_identifier) DO UPDATE
		 SET contact_identifier = EXCLUDED.contact_identifier,
			 source_id = EXCLUDED.source_id,
			 pubsub_token = EXCLUDED.pubsub_token,
			 updated_at = EXCLUDED.updated_at
		 RETURNING `+contactLinkColumns,
		link.ID, link.UserID, link.InboxIdentifier, link.ContactIdentifier, link.SourceID, link.PubsubToken, now)
	return scanContactLink(row)
}

func scanContactLink(row pgx.Row) (*model.ContactLink, error) {
	var link model.ContactLink
	err := row.Scan(&link.ID, &link.UserID, &link.InboxIdentifier, &link.ContactIdentifier,
		&link.SourceID, &link.PubsubToken, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}
