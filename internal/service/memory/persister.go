package memory

import (
	"context"
	"fmt"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/log"
	"github.com/sandevgo/letterdesk/pkg/retry"
)

// Persister writes store snapshots to the repository whenever durable state
// changes. Write failures are logged and the store keeps working in memory.
type Persister struct {
	store   *Store
	repo    core.InstructionRepository
	Retrier *retry.Retrier

	done chan struct{}
}

func NewPersister(store *Store, repo core.InstructionRepository) *Persister {
	return &Persister{
		store:   store,
		repo:    repo,
		Retrier: retry.NewRetrier(retry.NewPersistenceConfig()),
		done:    make(chan struct{}),
	}
}

func (p *Persister) Start(ctx context.Context) error {
	defer close(p.done)

	logger := log.Component(ctx, "instruction_persister")
	logger.Info().Msg("starting instruction persister")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.store.Changes():
			_ = p.Flush(ctx)
		}
	}
}

// Shutdown waits for the loop to exit and writes a final snapshot.
func (p *Persister) Shutdown(ctx context.Context) error {
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.Flush(ctx)
}

// Flush saves the current snapshot, retrying transient failures.
func (p *Persister) Flush(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	records := p.store.Snapshot()

	err := p.Retrier.Do(ctx, func() error {
		return p.repo.Save(ctx, records)
	}, func(attempt int, err error) {
		logger.Warn().Err(err).Int("attempt", attempt).Msg("instruction save failed, retrying")
	})
	if err != nil {
		logger.Error().Err(err).Int("count", len(records)).Msg("failed to persist instructions, continuing in memory")
		return fmt.Errorf("persist instructions: %w", err)
	}

	logger.Debug().Int("count", len(records)).Msg("instructions persisted")
	return nil
}
