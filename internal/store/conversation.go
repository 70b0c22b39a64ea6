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

// ApplySyncParams is the reconciler's single persistence step: status,
// assignee and lifecycle timestamps written together so no partial
// status-without-timestamps state can be observed.
type ApplySyncParams struct {
	ID                int64
	Status            model.Status
	AssignedAgentID   *int64
	AssignedAgentName *string
	AssignedAt        *time.Time
	ResolvedAt        *time.Time
	ReopenedAt        *time.Time
	Metadata          json.RawMessage
}

type conversationStore struct {
	db DBTX
}

const conversationColumns = `id, user_id, title, description, complexity, sector, request_target,
	request_for_name, request_for_email, status, chatwoot_conversation_id, chatwoot_contact_id,
	chatwoot_source_id, chatwoot_inbox_identifier, chatwoot_pubsub_token, assigned_agent_id,
	assigned_agent_name, assigned_at, resolved_at, reopened_at, metadata, created_at, updated_at`

func (s *conversationStore) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (s *conversationStore) GetForUser(ctx context.Context, id int64, userID int64) (*model.Conversation, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1 AND user_id = $2`, id, userID)
	return scanConversation(row)
}

func (s *conversationStore) GetByChatwootID(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE chatwoot_conversation_id = $1`, chatwootConversationID)
	return scanConversation(row)
}

func (s *conversationStore) Create(ctx context.Context, c *model.Conversation) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO conversations (id, user_id, title, description, complexity, sector, request_target,
			request_for_name, request_for_email, status, chatwoot_conversation_id, chatwoot_contact_id,
			chatwoot_source_id, chatwoot_inbox_identifier, chatwoot_pubsub_token, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		c.ID, c.UserID, c.Title, c.Description, string(c.Complexity), c.Sector, string(c.RequestTarget),
		toNullableText(c.RequestForName), toNullableText(c.RequestForEmail), string(c.Status),
		toNullableInt8(c.ChatwootConversationID), c.ChatwootContactID, c.ChatwootSourceID,
		c.ChatwootInbox, c.ChatwootPubsubToken, []byte(c.Metadata), c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *conversationStore) ApplySync(ctx context.Context, params ApplySyncParams) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE conversations
		 SET status = $2,
			 assigned_agent_id = $3,
			 assigned_agent_name = $4,
			 assigned_at = $5,
			 resolved_at = $6,
			 reopened_at = $7,
			 metadata = $8,
			 updated_at = now()
		 WHERE id = $1`,
		params.ID, string(params.Status),
		toNullableInt8(params.AssignedAgentID), toNullableText(params.AssignedAgentName),
		toNullableTimestamp(params.AssignedAt), toNullableTimestamp(params.ResolvedAt),
		toNullableTimestamp(params.ReopenedAt), []byte(params.Metadata))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *conversationStore) ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConversations(rows)
}

func (s *conversationStore) ListLinked(ctx context.Context) ([]model.Conversation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE chatwoot_conversation_id IS NOT NULL AND chatwoot_pubsub_token <> ''
		 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConversations(rows)
}

func collectConversations(rows pgx.Rows) ([]model.Conversation, error) {
	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var (
		c                          model.Conversation
		requestForName             pgtype.Text
		requestForEmail            pgtype.Text
		chatwootConversationID     pgtype.Int8
		assignedAgentID            pgtype.Int8
		assignedAgentName          pgtype.Text
		assignedAt                 pgtype.Timestamptz
		resolvedAt                 pgtype.Timestamptz
		reopenedAt                 pgtype.Timestamptz
		metadata                   []byte
		complexity, target, status string
	)

	err := row.Scan(
		&c.ID, &c.UserID, &c.Title, &c.Description, &complexity, &c.Sector, &target,
		&requestForName, &requestForEmail, &status, &chatwootConversationID, &c.ChatwootContactID,
		&c.ChatwootSourceID, &c.ChatwootInbox, &c.ChatwootPubsubToken, &assignedAgentID,
		&assignedAgentName, &assignedAt, &resolvedAt, &reopenedAt, &metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	c.Complexity = model.Complexity(complexity)
	c.RequestTarget = model.RequestTarget(target)
	c.Status = model.Status(status)
	c.RequestForName = toStringPointer(requestForName)
	c.RequestForEmail = toStringPointer(requestForEmail)
	c.ChatwootConversationID = toInt64Pointer(chatwootConversationID)
	c.AssignedAgentID = toInt64Pointer(assignedAgentID)
	c.AssignedAgentName = toStringPointer(assignedAgentName)
	c.AssignedAt = toTimePointer(assignedAt)
	c.ResolvedAt = toTimePointer(resolvedAt)
	c.ReopenedAt = toTimePointer(reopenedAt)
	c.Metadata = json.RawMessage(metadata)
	return &c, nil
}
