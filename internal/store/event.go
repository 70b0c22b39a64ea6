package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"ticketdesk.app/portal/internal/model"
)

type eventStore struct {
	db DBTX
}

const eventColumns = `id, conversation_id, event, title, description, occurred_at, payload, created_at`

func (s *eventStore) Create(ctx context.Context, e *model.Event) error {
	e.CreatedAt = time.Now().UTC()
	if e.OccurredAt.IsZero() {
		e.OccurredAt = e.CreatedAt
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO events (id, conversation_id, event, title, description, occurred_at, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ConversationID, e.Event, e.Title, toNullableText(e.Description),
		e.OccurredAt, []byte(e.Payload), e.CreatedAt)
	return err
}

func (s *eventStore) CreateIfMissing(ctx context.Context, e *model.Event) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM events
			WHERE conversation_id = $1 AND event = $2 AND title = $3 AND occurred_at = $4
		 )`,
		e.ConversationID, e.Event, e.Title, e.OccurredAt).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.Create(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}

func (s *eventStore) ListRecent(ctx context.Context, conversationID int64, limit int32) ([]model.Event, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE conversation_id = $1 ORDER BY occurred_at DESC LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *eventStore) LatestByConversation(ctx context.Context, conversationID int64) (*model.Event, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE conversation_id = $1 ORDER BY occurred_at DESC LIMIT 1`, conversationID)
	return scanEvent(row)
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e           model.Event
		description pgtype.Text
		payload     []byte
	)

	err := row.Scan(&e.ID, &e.ConversationID, &e.Event, &e.Title, &description,
		&e.OccurredAt, &payload, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	e.Description = toStringPointer(description)
	e.Payload = json.RawMessage(payload)
	return &e, nil
}
