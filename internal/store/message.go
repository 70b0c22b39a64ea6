package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"ticketdesk.app/portal/internal/model"
)

type messageStore struct {
	db DBTX
}

const messageColumns = `id, conversation_id, chatwoot_message_id, content, message_type,
	sender_name, sender_type, echo_id, external_created_at, payload, created_at, updated_at`

func (s *messageStore) Create(ctx context.Context, m *model.Message) (*model.Message, error) {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, chatwoot_message_id, content, message_type,
			sender_name, sender_type, echo_id, external_created_at, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.ConversationID, toNullableInt8(m.ChatwootMessageID), m.Content, string(m.MessageType),
		toNullableText(m.SenderName), toNullableText(m.SenderType), toNullableText(m.EchoID),
		m.ExternalCreatedAt, []byte(m.Payload), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpsertByExternalID inserts the message or, when the
// (conversation_id, chatwoot_message_id) pair already exists, updates the
// stored row in place. This is the backstop against webhook + cable double
// delivery of the same message.
//
// The dedup index is partial (chatwoot_message_id IS NOT NULL), so the
// conflict target must repeat its predicate or Postgres finds no arbiter.
func (s *messageStore) UpsertByExternalID(ctx context.Context, m *model.Message) (*model.Message, error) {
	if m.ChatwootMessageID == nil {
		return nil, fmt.Errorf("chatwoot message id is required for upsert")
	}

	now := time.Now().UTC()
	row := s.db.QueryRow(ctx,
		`INSERT INTO messages (id, conversation_id, chatwoot_message_id, content, message_type,
			sender_name, sender_type, echo_id, external_created_at, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		 ON CONFLICT (conversation_id, chatwoot_message_id) WHERE chatwoot_message_id IS NOT NULL DO UPDATE
		 SET content = EXCLUDED.content,
			 message_type = EXCLUDED.message_type,
			 sender_name = EXCLUDED.sender_name,
			 sender_type = EXCLUDED.sender_type,
			 echo_id = EXCLUDED.echo_id,
			 external_created_at = EXCLUDED.external_created_at,
			 payload = EXCLUDED.payload,
			 updated_at = EXCLUDED.updated_at
		 RETURNING `+messageColumns,
		m.ID, m.ConversationID, *m.ChatwootMessageID, m.Content, string(m.MessageType),
		toNullableText(m.SenderName), toNullableText(m.SenderType), toNullableText(m.EchoID),
		m.ExternalCreatedAt, []byte(m.Payload), now)
	return scanMessage(row)
}

func (s *messageStore) LatestByConversation(ctx context.Context, conversationID int64) (*model.Message, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT 1`, conversationID)
	return scanMessage(row)
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	var (
		m                 model.Message
		chatwootMessageID pgtype.Int8
		senderName        pgtype.Text
		senderType        pgtype.Text
		echoID            pgtype.Text
		payload           []byte
		messageType       string
	)

	err := row.Scan(&m.ID, &m.ConversationID, &chatwootMessageID, &m.Content, &messageType,
		&senderName, &senderType, &echoID, &m.ExternalCreatedAt, &payload, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	m.MessageType = model.MessageType(messageType)
	m.ChatwootMessageID = toInt64Pointer(chatwootMessageID)
	m.SenderName = toStringPointer(senderName)
	m.SenderType = toStringPointer(senderType)
	m.EchoID = toStringPointer(echoID)
	m.Payload = json.RawMessage(payload)
	return &m, nil
}
