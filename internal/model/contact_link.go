package model

import "time"

// ContactLink ties a portal user to a Chatwoot contact within one inbox.
// The pubsub token authorizes subscription to the contact's realtime channel.
type ContactLink struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	InboxIdentifier   string    `json:"inbox_identifier"`
	ContactIdentifier string    `json:"contact_identifier"`
	SourceID          string    `json:"source_id"`
	PubsubToken       string    `json:"pubsub_token"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
