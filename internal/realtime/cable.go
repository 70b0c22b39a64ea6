package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Frame is one ActionCable frame. Control frames carry only Type; broadcast
// frames carry the subscription identifier and a message envelope.
type Frame struct {
	Type       string          `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
}

// BroadcastMessage is the envelope Chatwoot publishes on RoomChannel.
type BroadcastMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

var controlFrameTypes = map[string]struct{}{
	"welcome":              {},
	"ping":                 {},
	"confirm_subscription": {},
}

// CableConn is a single ActionCable connection subscribed to one pubsub
// token. Chatwoot fans every conversation of a contact out over that token.
type CableConn struct {
	conn *websocket.Conn
}

func Dial(ctx context.Context, wsURL string) (*CableConn, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing cable endpoint: %w", err)
	}
	// Cable frames are small; the default 32KiB read limit is too tight for
	// conversation payloads with embedded messages.
	conn.SetReadLimit(1 << 20)
	return &CableConn{conn: conn}, nil
}

// Subscribe sends the RoomChannel subscribe command. ActionCable wants the
// identifier as a JSON-encoded string, not a nested object.
func (c *CableConn) Subscribe(ctx context.Context, pubsubToken string) error {
	identifier, err := json.Marshal(map[string]string{
		"channel":      "RoomChannel",
		"pubsub_token": pubsubToken,
	})
	if err != nil {
		return fmt.Errorf("encoding identifier: %w", err)
	}

	command := map[string]string{
		"command":    "subscribe",
		"identifier": string(identifier),
	}
	if err := wsjson.Write(ctx, c.conn, command); err != nil {
		return fmt.Errorf("sending subscribe command: %w", err)
	}
	return nil
}

// ReadBroadcast blocks until the next broadcast message, silently consuming
// control frames (welcome, ping, confirm_subscription) in between.
func (c *CableConn) ReadBroadcast(ctx context.Context) (*BroadcastMessage, error) {
	for {
		var frame Frame
		if err := wsjson.Read(ctx, c.conn, &frame); err != nil {
			return nil, fmt.Errorf("reading cable frame: %w", err)
		}

		if _, ok := controlFrameTypes[frame.Type]; ok {
			continue
		}
		if len(frame.Message) == 0 {
			continue
		}

		var msg BroadcastMessage
		if err := json.Unmarshal(frame.Message, &msg); err != nil || msg.Event == "" {
			continue
		}
		return &msg, nil
	}
}

func (c *CableConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
