package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"ticketpilot/backend/internal/app"
	"ticketpilot/backend/internal/config"
	"ticketpilot/backend/internal/logger"
)

func main() {
	// Initialize structured logger
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	a, err := app.New(cfg, deps.DB, deps.VectorStore, deps.NSQProducer, deps.Inference)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	// Background workers
	startConsumer(cfg, config.TopicKBReindex, a.ReindexConsumer)
	startConsumer(cfg, config.TopicKBEmbed, a.EmbedConsumer)

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func startConsumer(cfg *config.Config, topic string, handler nsq.Handler) {
	consumer, err := nsq.NewConsumer(topic, "backend", nsq.NewConfig())
	if err != nil {
		slog.Error("failed to create NSQ consumer", "topic", topic, "error", err)
		return
	}
	consumer.AddHandler(handler)
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		slog.Error("failed to connect to NSQLookupd", "topic", topic, "error", err)
		return
	}
	slog.Info("NSQ consumer connected", "topic", topic)
}
