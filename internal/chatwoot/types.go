package chatwoot

import "encoding/json"

// Contact is the resolved identity of a portal user on the Chatwoot inbox.
type Contact struct {
	Identifier  string
	SourceID    string
	PubsubToken string
}

type contactResponse struct {
	SourceID    string `json:"source_id"`
	Identifier  string `json:"identifier"`
	PubsubToken string `json:"pubsub_token"`
	Contact     struct {
		Identifier string `json:"identifier"`
	} `json:"contact"`
}

// resolveIdentifier mirrors Chatwoot's inconsistent contact payloads: the
// usable identifier may live in source_id, identifier, or contact.identifier.
func (c contactResponse) resolveIdentifier(fallback string) string {
	if c.SourceID != "" {
		return c.SourceID
	}
	if c.Identifier != "" {
		return c.Identifier
	}
	if c.Contact.Identifier != "" {
		return c.Contact.Identifier
	}
	return fallback
}

// ConversationSummary is the decoded shape of a create-conversation
// response. Raw keeps the verbatim body for audit storage.
type ConversationSummary struct {
	ID       int64             `json:"id"`
	Status   string            `json:"status"`
	Messages []json.RawMessage `json:"messages"`

	Raw json.RawMessage `json:"-"`
}

// SendAttachment is one file to upload with an outbound message.
type SendAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SendMessageParams carries an outbound message. Content may be empty only
// when attachments are present.
type SendMessageParams struct {
	Content     string
	EchoID      string
	Attachments []SendAttachment
}
