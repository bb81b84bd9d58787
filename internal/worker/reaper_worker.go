package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SessionRegistry is the part of the session service the reaper drives.
type SessionRegistry interface {
	EvictCompleted(retention time.Duration) int
	FinishAll() int
}

// ReaperWorker periodically drops finished sessions from the registry.
type ReaperWorker struct {
	registry  SessionRegistry
	interval  time.Duration
	retention time.Duration
	log       zerolog.Logger
}

// NewReaperWorker creates a new ReaperWorker.
func NewReaperWorker(registry SessionRegistry, interval, retention time.Duration, log zerolog.Logger) *ReaperWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReaperWorker{
		registry:  registry,
		interval:  interval,
		retention: retention,
		log:       log.With().Str("component", "reaper_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine. When ctx is cancelled
// every in-progress session is finished before Start returns.
func (w *ReaperWorker) Start(ctx context.Context) {
	w.log.Info().
		Dur("interval", w.interval).
		Dur("retention", w.retention).
		Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			finished := w.registry.FinishAll()
			w.log.Info().Int("finished", finished).Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ReaperWorker) sweep() {
	if n := w.registry.EvictCompleted(w.retention); n > 0 {
		w.log.Info().Int("count", n).Msg("Evicted completed sessions")
	}
}
