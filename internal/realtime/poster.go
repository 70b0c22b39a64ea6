package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SyncPoster re-posts cable broadcasts to the portal's sync endpoint. The
// listener process has no database access of its own; the server applies the
// state change.
type SyncPoster struct {
	baseURL     string
	adminAPIKey string
	httpClient  *http.Client
}

func NewSyncPoster(baseURL, adminAPIKey string, httpClient *http.Client) *SyncPoster {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SyncPoster{
		baseURL:     baseURL,
		adminAPIKey: adminAPIKey,
		httpClient:  httpClient,
	}
}

func (p *SyncPoster) Post(ctx context.Context, conversationID int64, event string, data json.RawMessage) error {
	payload, err := json.Marshal(map[string]any{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return fmt.Errorf("encoding sync payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/conversations/%d/sync", p.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-API-Key", p.adminAPIKey)

	res, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting sync event: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("sync endpoint returned %d: %s", res.StatusCode, string(body))
	}
	return nil
}
