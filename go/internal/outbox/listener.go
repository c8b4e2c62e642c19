package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ListenerConfig holds LISTEN/NOTIFY settings for the outbox wake path.
type ListenerConfig struct {
	DatabaseURL   string
	NotifyChannel string
	PingInterval  time.Duration
}

func DefaultListenerConfig(dsn string) ListenerConfig {
	return ListenerConfig{
		DatabaseURL:   dsn,
		NotifyChannel: "workshop_outbox_events",
		PingInterval:  90 * time.Second,
	}
}

// Listener turns Postgres NOTIFY signals into worker wakeups, so events reach
// the bus with low latency between the worker's fallback polls.
type Listener struct {
	listener *pq.Listener
	worker   *Worker
	cfg      ListenerConfig
}

func NewListener(worker *Worker, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("outbox listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for outbox notifications")

	return &Listener{
		listener: l,
		worker:   worker,
		cfg:      cfg,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()
	defer l.listener.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-l.listener.Notify:
			if n != nil {
				log.Debug().Str("workshop_id", n.Extra).Msg("outbox notify received")
			}
			l.worker.Wake()
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("outbox listener ping failed")
			}
		}
	}
}
