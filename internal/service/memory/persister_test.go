package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier(retries int) *retry.Retrier {
	return retry.NewRetrier(&retry.Config{
		MaxRetries:    retries,
		BackoffFactor: 1,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
	})
}

func TestPersister_SavesOnChange(t *testing.T) {
	s := NewStore()
	repo := &fakeRepo{}
	p := NewPersister(s, repo)
	p.Retrier = fastRetrier(0)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Start(ctx) }()

	_, err := s.Upsert(context.Background(), candidate(core.InstructionStyle, "be formal", 3, core.ScopeAll, ""), "s1", "m")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		records, _ := repo.snapshot()
		return len(records) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	_, err = s.Upsert(context.Background(), candidate(core.InstructionFormat, "one page", 3, core.ScopeAll, ""), "s1", "m")
	require.NoError(t, err)
	require.NoError(t, p.Shutdown(context.Background()))

	records, _ := repo.snapshot()
	assert.Len(t, records, 2)
}

func TestPersister_OneTimeNeverSaved(t *testing.T) {
	s := NewStore()
	repo := &fakeRepo{}
	p := NewPersister(s, repo)
	p.Retrier = fastRetrier(0)

	_, err := s.Upsert(context.Background(), candidate(core.InstructionContent, "mention Friday", 3, core.ScopeOneTime, ""), "s1", "m")
	require.NoError(t, err)

	require.NoError(t, p.Flush(context.Background()))
	records, saves := repo.snapshot()
	assert.Empty(t, records)
	assert.Equal(t, 1, saves)
}

func TestPersister_Flush(t *testing.T) {
	tests := []struct {
		name      string
		saveErrs  []error
		retries   int
		wantErr   bool
		wantSaves int
	}{
		{"first_try", nil, 2, false, 1},
		{"recovers_after_retry", []error{errors.New("locked"), nil}, 2, false, 2},
		{"gives_up", []error{errors.New("locked"), errors.New("locked"), errors.New("locked")}, 2, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			_, err := s.Upsert(context.Background(), candidate(core.InstructionStyle, "be formal", 3, core.ScopeAll, ""), "s1", "m")
			require.NoError(t, err)

			repo := &fakeRepo{saveErrs: tt.saveErrs}
			p := NewPersister(s, repo)
			p.Retrier = fastRetrier(tt.retries)

			err = p.Flush(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			_, saves := repo.snapshot()
			assert.Equal(t, tt.wantSaves, saves)

			// the store keeps working regardless
			assert.Equal(t, 1, s.Stats().Active)
		})
	}
}
