// Command consumer drains reservation events from RabbitMQ into the SMS
// notification outbox under EVENTS_LOG_DIR.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/resort-reservation/internal/config"
	"github.com/iliyamo/resort-reservation/internal/logger"
	"github.com/iliyamo/resort-reservation/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.Env, cfg.LogLevel).With("component", "reservation-consumer")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := &queue.Consumer{URL: cfg.AMQPURL, Dir: cfg.EventsLogDir, Log: log}
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "err", err)
		os.Exit(1)
	}
	log.Info("consumer stopped")
}
