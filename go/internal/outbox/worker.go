package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds outbox worker settings.
type Config struct {
	PollInterval time.Duration
	BatchSize    int32
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
	}
}

// Worker drains the outbox table to the publisher. It polls on an interval
// and additionally wakes immediately when Wake is called (the LISTEN/NOTIFY
// listener feeds that path).
type Worker struct {
	repo      *Repository
	publisher Publisher
	config    Config
	clock     interface{ Now() time.Time }

	wakeCh chan struct{}

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(repo *Repository, publisher Publisher, cfg Config, clock interface{ Now() time.Time }) *Worker {
	return &Worker{
		repo:      repo,
		publisher: publisher,
		config:    cfg,
		clock:     clock,
		wakeCh:    make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}
}

// Wake asks the worker to process the outbox now. Safe from any goroutine;
// coalesces into at most one pending wakeup.
func (w *Worker) Wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int32("batch_size", w.config.BatchSize).
		Msg("outbox worker started")
	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().Msg("outbox worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on start
	w.processOutbox(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-w.wakeCh:
			w.processOutbox(ctx)
		case <-ticker.C:
			w.processOutbox(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	tx, err := w.repo.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to begin outbox transaction")
		return
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	events, err := w.repo.FetchUnpublished(ctx, tx, w.config.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch unpublished events")
		return
	}

	published := 0
	for _, event := range events {
		if err := w.publisher.Publish(ctx, event); err != nil {
			// Leave the row unpublished; the next cycle retries it. Stop the
			// batch here to keep per-workshop ordering intact.
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			break
		}
		if err := w.repo.MarkPublished(ctx, tx, event.ID, w.clock.Now()); err != nil {
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark event published")
			break
		}
		published++
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("failed to commit outbox transaction")
		return
	}
	committed = true

	if published > 0 {
		log.Debug().Int("published", published).Msg("outbox batch published")
	}
}
