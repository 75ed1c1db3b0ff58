package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/log"
)

const (
	DefaultExtractionTimeout = 15 * time.Second
	DefaultExtractionWorkers = 2
	DefaultExtractionQueue   = 64
)

// Job is one user message waiting to be classified.
type Job struct {
	SessionID string
	Message   string
	History   []core.Turn
}

type classified struct {
	job       Job
	candidate core.InstructionCandidate
}

// Dispatcher runs instruction extraction off the request path. Workers call
// the classifier concurrently; accepted candidates are applied to the store
// by a single goroutine.
type Dispatcher struct {
	classifier core.InstructionClassifier
	store      *Store

	Workers int
	Timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	jobs    chan Job
	results chan classified
	done    chan struct{}
}

func NewDispatcher(classifier core.InstructionClassifier, store *Store, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = DefaultExtractionWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultExtractionQueue
	}
	if timeout <= 0 {
		timeout = DefaultExtractionTimeout
	}
	return &Dispatcher{
		classifier: classifier,
		store:      store,
		Workers:    workers,
		Timeout:    timeout,
		jobs:       make(chan Job, queueSize),
		results:    make(chan classified, queueSize),
		done:       make(chan struct{}),
	}
}

// Submit enqueues a job without blocking. It reports false when the queue
// is full or the dispatcher has stopped; the message is then not classified.
func (d *Dispatcher) Submit(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return false
	}
	select {
	case d.jobs <- job:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	defer close(d.done)

	logger := log.Component(ctx, "extraction")
	logger.Info().
		Int("workers", d.Workers).
		Dur("timeout", d.Timeout).
		Msg("starting instruction extraction")

	var workers sync.WaitGroup
	for i := 0; i < d.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			d.work(ctx)
		}()
	}

	applied := make(chan struct{})
	go func() {
		defer close(applied)
		d.apply(ctx)
	}()

	<-ctx.Done()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	workers.Wait()
	<-applied
	logger.Info().Int("dropped", len(d.jobs)).Msg("instruction extraction stopped")
	return nil
}

// Shutdown waits for Start to return.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			d.classify(ctx, job)
		}
	}
}

func (d *Dispatcher) classify(ctx context.Context, job Job) {
	logger := log.FromCtx(ctx)

	jobCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	candidate, err := d.classifier.Classify(jobCtx, job.Message, job.History)
	expired := jobCtx.Err()
	cancel()

	switch {
	case err != nil:
		logger.Warn().Err(err).Str("session_id", job.SessionID).Msg("instruction extraction failed")
		return
	case expired != nil:
		logger.Warn().Err(expired).Str("session_id", job.SessionID).Msg("instruction extraction abandoned")
		return
	case !candidate.HasInstruction:
		return
	}

	select {
	case d.results <- classified{job: job, candidate: candidate}:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) apply(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// apply what the workers already produced
			for {
				select {
				case r := <-d.results:
					d.upsert(ctx, r)
				default:
					return
				}
			}
		case r := <-d.results:
			d.upsert(ctx, r)
		}
	}
}

func (d *Dispatcher) upsert(ctx context.Context, r classified) {
	if _, err := d.store.Upsert(ctx, r.candidate, r.job.SessionID, r.job.Message); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("session_id", r.job.SessionID).Msg("instruction candidate rejected")
	}
}
