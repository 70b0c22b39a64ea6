package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// SubscriptionNotice tells the realtime listener to start following a
// conversation's cable channel.
type SubscriptionNotice struct {
	ConversationID         int64
	ChatwootConversationID int64
	PubsubToken            string
}

type Producer interface {
	Enqueue(ctx context.Context, msg SubscriptionNotice) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg SubscriptionNotice) error {
	fields := map[string]any{
		"conversation_id":          msg.ConversationID,
		"chatwoot_conversation_id": msg.ChatwootConversationID,
		"pubsub_token":             msg.PubsubToken,
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue subscription notice: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued subscription notice", "conversation_id", msg.ConversationID, "chatwoot_conversation_id", msg.ChatwootConversationID)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
