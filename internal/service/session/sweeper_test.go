package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_Sweep(t *testing.T) {
	tests := []struct {
		name        string
		idleFor     time.Duration
		wantRemoved int
	}{
		{"fresh_session_survives", time.Minute, 0},
		{"exactly_at_timeout_survives", 30 * time.Minute, 0},
		{"idle_past_timeout_evicted", 31 * time.Minute, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, clock := newTestStore(10)
			sw := NewSweeper(st, time.Minute, 30*time.Minute)

			id, err := st.Create("")
			require.NoError(t, err)

			clock.Advance(tt.idleFor)
			assert.Equal(t, tt.wantRemoved, sw.Sweep(context.Background()))

			_, err = st.Info(id)
			if tt.wantRemoved > 0 {
				assert.ErrorIs(t, err, core.ErrSessionNotFound)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSweeper_EmptyStore(t *testing.T) {
	st, _ := newTestStore(10)
	sw := NewSweeper(st, time.Minute, time.Minute)

	assert.Equal(t, 0, sw.Sweep(context.Background()))
	assert.Equal(t, 0, sw.Sweep(context.Background()))
}

func TestSweeper_ActiveSessionSurvivesManyTicks(t *testing.T) {
	st, clock := newTestStore(10)
	sw := NewSweeper(st, 5*time.Minute, 30*time.Minute)
	ctx := context.Background()

	active, err := st.Create("")
	require.NoError(t, err)
	idle, err := st.Create("")
	require.NoError(t, err)

	for tick := 0; tick < 50; tick++ {
		clock.Advance(5 * time.Minute)
		_, err := st.TouchAndGet(active)
		require.NoError(t, err, "tick %d", tick)
		sw.Sweep(ctx)
	}

	_, err = st.Info(active)
	assert.NoError(t, err)
	_, err = st.Info(idle)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.Equal(t, 1, st.Count())
}

func TestSweeper_FiresExpiredHook(t *testing.T) {
	st, clock := newTestStore(10)
	sw := NewSweeper(st, time.Minute, time.Minute)

	var mu sync.Mutex
	evicted := map[string]EvictReason{}
	st.OnEvict(func(_ context.Context, id string, reason EvictReason) {
		mu.Lock()
		defer mu.Unlock()
		evicted[id] = reason
	})

	id, err := st.Create("")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	require.Equal(t, 1, sw.Sweep(context.Background()))
	assert.Equal(t, map[string]EvictReason{id: EvictExpired}, evicted)
}

func TestSweeper_TouchAfterSnapshotWins(t *testing.T) {
	st, clock := newTestStore(10)
	id, err := st.Create("")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	snapshotNow := clock.Now()

	// a touch lands after the sweeper captured `now`
	clock.Advance(time.Second)
	_, err = st.TouchAndGet(id)
	require.NoError(t, err)

	assert.False(t, st.expire(context.Background(), id, snapshotNow, 30*time.Minute))
	assert.Equal(t, 1, st.Count())
}

func TestSweeper_StartAndShutdown(t *testing.T) {
	st, clock := newTestStore(10)
	sw := NewSweeper(st, 10*time.Millisecond, time.Minute)

	_, err := st.Create("")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sw.Start(ctx) }()

	require.Eventually(t, func() bool { return st.Count() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	require.NoError(t, sw.Shutdown(shutdownCtx))
	require.NoError(t, <-errCh)
}

func TestSweeper_ShutdownWithoutStart(t *testing.T) {
	st, _ := newTestStore(10)
	sw := NewSweeper(st, time.Minute, time.Minute)
	assert.NoError(t, sw.Shutdown(context.Background()))
}
