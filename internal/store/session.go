package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ticketdesk.app/portal/internal/model"
)

type sessionStore struct {
	db DBTX
}

func (s *sessionStore) GetValidByToken(ctx context.Context, token string) (*model.Session, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, user_id, token, user_name, user_email, expires_at, created_at
		 FROM sessions WHERE token = $1 AND expires_at > now()`, token)

	var session model.Session
	err := row.Scan(&session.ID, &session.UserID, &session.Token, &session.UserName,
		&session.UserEmail, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}
