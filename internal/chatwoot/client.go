package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ticketdesk.app/portal/core/config"
)

// APIError carries the upstream HTTP status and body of a failed call so the
// boundary can surface them to the caller.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatwoot request failed (%d): %s", e.StatusCode, e.Body)
}

// Client talks to Chatwoot's public inbox API. It performs no internal
// retries; delivery systems on both sides already retry by nature.
type Client struct {
	baseURL    string
	inbox      string
	httpClient *http.Client
}

func NewClient(cfg config.ChatwootConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		inbox:      cfg.InboxIdentifier,
		httpClient: httpClient,
	}
}

// WebSocketURL derives the cable endpoint by swapping the base URL scheme.
func (c *Client) WebSocketURL() (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/cable"
	return parsed.String(), nil
}

// GetOrCreateContact resolves the inbox contact for the given identifier,
// creating it when the lookup fails (Chatwoot answers 404 for unknown
// identifiers).
func (c *Client) GetOrCreateContact(ctx context.Context, identifier, name, email string, attributes map[string]any) (Contact, error) {
	if attributes == nil {
		attributes = map[string]any{}
	}

	contactPath := fmt.Sprintf("/public/api/v1/inboxes/%s/contacts/%s", c.inbox, url.PathEscape(identifier))

	body, err := c.do(ctx, http.MethodGet, contactPath, "", nil)
	if err == nil {
		var existing contactResponse
		if err := json.Unmarshal(body, &existing); err != nil {
			return Contact{}, fmt.Errorf("decoding contact: %w", err)
		}
		return contactFromResponse(existing, identifier), nil
	}

	payload, err := json.Marshal(map[string]any{
		"identifier":        identifier,
		"name":              name,
		"email":             email,
		"custom_attributes": attributes,
	})
	if err != nil {
		return Contact{}, fmt.Errorf("encoding contact: %w", err)
	}

	body, err = c.do(ctx, http.MethodPost, fmt.Sprintf("/public/api/v1/inboxes/%s/contacts", c.inbox), "application/json", bytes.NewReader(payload))
	if err != nil {
		return Contact{}, err
	}

	var created contactResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return Contact{}, fmt.Errorf("decoding contact: %w", err)
	}
	return contactFromResponse(created, identifier), nil
}

func contactFromResponse(res contactResponse, fallback string) Contact {
	resolved := res.resolveIdentifier(fallback)
	sourceID := res.SourceID
	if sourceID == "" {
		sourceID = resolved
	}
	return Contact{
		Identifier:  resolved,
		SourceID:    sourceID,
		PubsubToken: res.PubsubToken,
	}
}

// CreateConversation opens a conversation for the contact, tagging it with
// the given custom attributes.
func (c *Client) CreateConversation(ctx context.Context, contactIdentifier string, attributes map[string]any) (ConversationSummary, error) {
	if attributes == nil {
		attributes = map[string]any{}
	}

	payload, err := json.Marshal(map[string]any{"custom_attributes": attributes})
	if err != nil {
		return ConversationSummary{}, fmt.Errorf("encoding conversation: %w", err)
	}

	path := fmt.Sprintf("/public/api/v1/inboxes/%s/contacts/%s/conversations", c.inbox, url.PathEscape(contactIdentifier))
	body, err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return ConversationSummary{}, err
	}

	var summary ConversationSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return ConversationSummary{}, fmt.Errorf("decoding conversation: %w", err)
	}
	summary.Raw = json.RawMessage(body)
	return summary, nil
}

// SendMessage posts a message into a conversation. The request is multipart
// when attachments are present, plain JSON otherwise. Returns the raw
// message body as Chatwoot echoed it back.
func (c *Client) SendMessage(ctx context.Context, contactIdentifier string, conversationID int64, params SendMessageParams) (json.RawMessage, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" && len(params.Attachments) == 0 {
		return nil, fmt.Errorf("message content is required when no attachments are present")
	}

	path := fmt.Sprintf("/public/api/v1/inboxes/%s/contacts/%s/conversations/%d/messages",
		c.inbox, url.PathEscape(contactIdentifier), conversationID)

	if len(params.Attachments) > 0 {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)

		if content != "" {
			if err := writer.WriteField("content", content); err != nil {
				return nil, fmt.Errorf("writing content field: %w", err)
			}
		}
		if params.EchoID != "" {
			if err := writer.WriteField("echo_id", params.EchoID); err != nil {
				return nil, fmt.Errorf("writing echo_id field: %w", err)
			}
		}
		for _, attachment := range params.Attachments {
			part, err := writer.CreateFormFile("attachments[]", attachment.Filename)
			if err != nil {
				return nil, fmt.Errorf("creating attachment part: %w", err)
			}
			if _, err := part.Write(attachment.Data); err != nil {
				return nil, fmt.Errorf("writing attachment: %w", err)
			}
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("closing multipart body: %w", err)
		}

		body, err := c.do(ctx, http.MethodPost, path, writer.FormDataContentType(), &buf)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(body), nil
	}

	payload, err := json.Marshal(map[string]any{
		"content": content,
		"echo_id": params.EchoID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// ListMessages fetches every message of a conversation. Chatwoot has shipped
// three response envelopes over time: a bare array, {payload: [...]} and
// {messages: [...]}; all are tolerated.
func (c *Client) ListMessages(ctx context.Context, contactIdentifier string, conversationID int64) ([]json.RawMessage, error) {
	path := fmt.Sprintf("/public/api/v1/inboxes/%s/contacts/%s/conversations/%d/messages",
		c.inbox, url.PathEscape(contactIdentifier), conversationID)

	body, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var direct []json.RawMessage
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var envelope struct {
		Payload  []json.RawMessage `json:"payload"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	if envelope.Payload != nil {
		return envelope.Payload, nil
	}
	if envelope.Messages != nil {
		return envelope.Messages, nil
	}
	return []json.RawMessage{}, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling chatwoot: %w", err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &APIError{StatusCode: res.StatusCode, Body: string(payload)}
	}
	return payload, nil
}
