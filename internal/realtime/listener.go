package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ticketdesk.app/portal/common/logger"
	"ticketdesk.app/portal/internal/mapper"
	"ticketdesk.app/portal/internal/queue"
	"ticketdesk.app/portal/internal/store"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = time.Minute
)

// Listener follows Chatwoot's cable endpoint on behalf of every linked
// conversation and forwards broadcasts to the portal's sync endpoint. One
// connection runs per pubsub token; broadcasts are routed back to local
// conversations by their Chatwoot conversation id.
type Listener struct {
	wsURL         string
	conversations store.ConversationStore
	consumer      *queue.RedisConsumer
	poster        *SyncPoster
	logger        *slog.Logger

	mu     sync.Mutex
	tokens map[string]struct{} // pubsub tokens with a running connection
	routes map[int64]int64     // chatwoot conversation id -> local conversation id
}

func NewListener(
	wsURL string,
	conversations store.ConversationStore,
	consumer *queue.RedisConsumer,
	poster *SyncPoster,
	logger *slog.Logger,
) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		wsURL:         wsURL,
		conversations: conversations,
		consumer:      consumer,
		poster:        poster,
		logger:        logger,
		tokens:        map[string]struct{}{},
		routes:        map[int64]int64{},
	}
}

// Run bootstraps subscriptions from the database, then consumes subscription
// notices until the context is canceled.
func (l *Listener) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "portal.realtime.listener"})

	linked, err := l.conversations.ListLinked(ctx)
	if err != nil {
		return err
	}
	for i := range linked {
		conv := &linked[i]
		l.track(ctx, *conv.ChatwootConversationID, conv.ID, conv.ChatwootPubsubToken)
	}
	l.logger.InfoContext(ctx, "bootstrapped cable subscriptions", "conversations", len(linked))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := l.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.ErrorContext(ctx, "failed to read subscription notices", "error", err)
			time.Sleep(reconnectBaseDelay)
			continue
		}

		for _, msg := range messages {
			l.track(ctx, msg.ChatwootConversationID, msg.ConversationID, msg.PubsubToken)
			if err := l.consumer.Ack(ctx, msg); err != nil {
				l.logger.ErrorContext(ctx, "failed to ack subscription notice", "error", err, "message_id", msg.ID)
			}
		}
	}
}

// track registers the route and starts a connection for the token if one is
// not already running.
func (l *Listener) track(ctx context.Context, chatwootConversationID, conversationID int64, pubsubToken string) {
	l.mu.Lock()
	l.routes[chatwootConversationID] = conversationID
	_, running := l.tokens[pubsubToken]
	if !running {
		l.tokens[pubsubToken] = struct{}{}
	}
	l.mu.Unlock()

	if !running {
		go l.runToken(ctx, pubsubToken)
	}
}

// runToken keeps one cable connection alive for the token, reconnecting with
// exponential backoff. It only returns when the context is canceled.
func (l *Listener) runToken(ctx context.Context, pubsubToken string) {
	delay := reconnectBaseDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := l.followToken(ctx, pubsubToken); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.WarnContext(ctx, "cable connection lost, reconnecting",
				"error", err,
				"delay", delay.String())
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, reconnectMaxDelay)
	}
}

func (l *Listener) followToken(ctx context.Context, pubsubToken string) error {
	conn, err := Dial(ctx, l.wsURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Subscribe(ctx, pubsubToken); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "cable subscription established")

	for {
		broadcast, err := conn.ReadBroadcast(ctx)
		if err != nil {
			return err
		}
		l.dispatch(ctx, broadcast)
	}
}

// dispatch forwards a broadcast to the sync endpoint. Failures are logged and
// dropped: the webhook path delivers the same facts, the cable path only
// shortens the latency.
func (l *Listener) dispatch(ctx context.Context, broadcast *BroadcastMessage) {
	data := mapper.FromJSON(broadcast.Data)
	chatwootID := mapper.ConversationID(data)
	if chatwootID == nil {
		return
	}

	l.mu.Lock()
	conversationID, ok := l.routes[*chatwootID]
	l.mu.Unlock()
	if !ok {
		return
	}

	if err := l.poster.Post(ctx, conversationID, broadcast.Event, broadcast.Data); err != nil {
		l.logger.ErrorContext(ctx, "failed to forward cable broadcast",
			"error", err,
			"event", broadcast.Event,
			"conversation_id", conversationID)
	}
}
