package session

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/letterdesk/pkg/log"
)

const (
	DefaultCleanupInterval = 5 * time.Minute
	DefaultSessionTimeout  = 30 * time.Minute
)

// Sweeper periodically evicts sessions idle for longer than Timeout.
type Sweeper struct {
	store    *Store
	Interval time.Duration
	Timeout  time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewSweeper(store *Store, interval, timeout time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Sweeper{
		store:    store,
		Interval: interval,
		Timeout:  timeout,
	}
}

// Start runs the sweep loop until ctx is cancelled. A second call while
// running returns immediately.
func (w *Sweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(done)
	}()

	logger := log.Component(ctx, "session_sweeper")
	logger.Info().
		Dur("interval", w.Interval).
		Dur("timeout", w.Timeout).
		Msg("starting session sweeper")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down session sweeper")
			return nil
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Shutdown waits for a running loop to finish its current tick.
func (w *Sweeper) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep evicts every session idle past the timeout and returns how many
// were removed.
func (w *Sweeper) Sweep(ctx context.Context) int {
	now := w.store.clock()
	removed := 0

	for _, id := range w.store.ids() {
		if w.store.expire(ctx, id, now, w.Timeout) {
			removed++
		}
	}

	logger := log.FromCtx(ctx)
	if removed > 0 {
		logger.Info().
			Int("removed", removed).
			Int("live", w.store.Count()).
			Msg("expired sessions evicted")
	} else {
		logger.Debug().Int("live", w.store.Count()).Msg("session sweep found nothing to evict")
	}
	return removed
}
