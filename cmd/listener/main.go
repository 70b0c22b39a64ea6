package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"ticketdesk.app/portal/common/id"
	"ticketdesk.app/portal/common/logger"
	"ticketdesk.app/portal/common/otel"
	"ticketdesk.app/portal/core/config"
	"ticketdesk.app/portal/core/db"
	"ticketdesk.app/portal/internal/chatwoot"
	"ticketdesk.app/portal/internal/queue"
	"ticketdesk.app/portal/internal/realtime"
	"ticketdesk.app/portal/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeListener)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "listener starting", "env", cfg.Env)
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Realtime.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:    cfg.Realtime.RedisStream,
		Group:     cfg.Realtime.RedisGroup,
		Consumer:  cfg.Realtime.RedisConsumer,
		BatchSize: 16,
		Block:     5 * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create stream consumer", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Realtime.RedisStream, "group", cfg.Realtime.RedisGroup)

	wsURL, err := chatwoot.NewClient(cfg.Chatwoot, nil).WebSocketURL()
	if err != nil {
		slog.ErrorContext(ctx, "failed to derive cable url", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Pool())
	poster := realtime.NewSyncPoster(cfg.Realtime.SyncBaseURL, cfg.AdminAPIKey, nil)
	listener := realtime.NewListener(wsURL, stores.Conversations(), consumer, poster, slog.Default())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- listener.Run(runCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.InfoContext(ctx, "shutting down...")
		cancel()
		<-done
	case err := <-done:
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "listener stopped", "error", err)
		}
	}

	if telemetry != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "shutdown complete")
}
