package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gemnet/internal/mockgateway"
	"gemnet/internal/platform/config"
	"gemnet/internal/platform/httpserver"
	"gemnet/internal/platform/logger"
	auditkafka "gemnet/pkg/platform/audit/kafka"
)

// main wires the mock verification backend: a user store, a scriptable NIC
// verifier, and optionally a Kafka audit publisher. Business logic lives in
// internal/mockgateway.
func main() {
	cfg := config.GatewayFromEnv()
	log := logger.New()
	ctx := context.Background()

	var store mockgateway.UserStore = mockgateway.NewMemoryUserStore()
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgStore := mockgateway.NewPgxUserStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("failed to prepare postgres schema", "error", err)
			os.Exit(1)
		}
		store = pgStore
	}

	opts := []mockgateway.Option{
		mockgateway.WithLogger(log),
		mockgateway.WithJWTSigningKey([]byte(cfg.JWTSigningKey)),
	}

	if cfg.KafkaBrokers != "" {
		publisher, err := auditkafka.NewPublisher(
			strings.Split(cfg.KafkaBrokers, ","),
			auditkafka.WithLogger(log),
		)
		if err != nil {
			log.Error("failed to connect audit publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		opts = append(opts, mockgateway.WithAuditPublisher(publisher))
	}

	handler, err := mockgateway.New(store, mockgateway.NewNICVerifier(), opts...)
	if err != nil {
		log.Error("failed to build handler", "error", err)
		os.Exit(1)
	}

	srv := httpserver.New(cfg.Addr, handler.Router())
	log.Info("starting mock verification gateway", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
