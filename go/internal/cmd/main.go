package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/gateway"
	"github.com/brainstormlabs/brainstormx/go/internal/outbox"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(getEnv("CONFIG_PATH", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	database, dbCfg, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup database")
	}
	defer database.Close()

	services := setupServices(database, config)

	// Outbox pipeline: events committed by the domain transactions flow
	// through the worker onto JetStream, and the gateway consumer fans them
	// out to connected rooms.
	jsCfg := outbox.DefaultJetStreamConfig()
	jsCfg.URL = config.NATS.URL
	publisher, err := outbox.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close publisher")
		}
	}()

	outboxRepo := outbox.NewRepository(database)
	worker := outbox.NewWorker(outboxRepo, publisher, outbox.DefaultConfig(), clockwork.NewRealClock())

	listener, err := outbox.NewListener(worker, outbox.DefaultListenerConfig(dbCfg.DSN()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}

	consumerCfg := gateway.DefaultJetStreamConsumerConfig()
	consumerCfg.URL = config.NATS.URL
	consumer, err := gateway.NewEventConsumer(services.ConnectionManager, consumerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event consumer")
	}
	defer func() {
		if err := consumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop consumer")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start outbox worker")
	}
	defer worker.Stop()

	go services.ConnectionManager.Start(ctx)
	go func() {
		if err := listener.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("outbox listener exited unexpectedly")
		}
	}()
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("event consumer exited unexpectedly")
		}
	}()

	server := setupServer(config, services)
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting HTTP server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
		log.Info().Msg("graceful shutdown complete")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server exited unexpectedly")
		}
	}
}
