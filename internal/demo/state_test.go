package demo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

func newTestTracker(t *testing.T) (*Tracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewTracker(client, time.Second), mr
}

func TestPeriodFromBatchID(t *testing.T) {
	cases := []struct {
		batchID string
		want    string
		wantErr bool
	}{
		{"morning_baseline", StateMorningBaseline, false},
		{"morning_refresh", StateMorningBaseline, false},
		{"afternoon_ops", StateAfternoon, false},
		{"evening_ops", StateEvening, false},
		{"night_ops", StateNight, false},
		{"afternoon", StateAfternoon, false},
		{"midnight_ops", "", true},
		{"", "", true},
	}

	for _, tc := range cases {
		got, err := PeriodFromBatchID(tc.batchID)
		if tc.wantErr {
			assert.Error(t, err, tc.batchID)
			assert.True(t, model.IsValidation(err))
			continue
		}
		require.NoError(t, err, tc.batchID)
		assert.Equal(t, tc.want, got, tc.batchID)
	}
}

func TestCurrentDefaultsToMorningBaseline(t *testing.T) {
	tr, _ := newTestTracker(t)

	state, err := tr.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateMorningBaseline, state)
}

func TestAdvanceMovesForwardOnly(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.Advance(ctx, StateEvening))
	state, err := tr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateEvening, state)

	// Re-applying an earlier period leaves the state untouched.
	require.NoError(t, tr.Advance(ctx, StateAfternoon))
	state, err = tr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateEvening, state)

	require.NoError(t, tr.Advance(ctx, StateNight))
	state, err = tr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateNight, state)
}

func TestAdvanceConcurrentNeverRegresses(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.Advance(ctx, StateNight))

	// Stragglers from earlier periods racing each other must not move the
	// state backwards. Contention aborts with TxFailedErr; anything else is
	// a real failure.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		period := StateAfternoon
		if i%2 == 0 {
			period = StateEvening
		}
		wg.Add(1)
		go func(period string) {
			defer wg.Done()
			if err := tr.Advance(ctx, period); err != nil {
				assert.ErrorIs(t, err, redis.TxFailedErr)
			}
		}(period)
	}
	wg.Wait()

	state, err := tr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateNight, state)
}

func TestAdvanceRejectsUnknownPeriod(t *testing.T) {
	tr, _ := newTestTracker(t)

	err := tr.Advance(context.Background(), "midnight")
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestResetStateReturnsToBaseline(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.Advance(ctx, StateNight))
	require.NoError(t, tr.ResetState(ctx))

	state, err := tr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateMorningBaseline, state)
}

func TestResetLockIsExclusive(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.AcquireResetLock(ctx))

	err := tr.AcquireResetLock(ctx)
	assert.ErrorIs(t, err, model.ErrResetInProgress)

	locked, err := tr.ResetInProgress(ctx)
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, tr.ReleaseResetLock(ctx))

	locked, err = tr.ResetInProgress(ctx)
	require.NoError(t, err)
	assert.False(t, locked)

	// Lock can be re-acquired after release.
	require.NoError(t, tr.AcquireResetLock(ctx))
}

func TestResetLockExpires(t *testing.T) {
	tr, mr := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.AcquireResetLock(ctx))

	// A crashed reset never releases; the TTL bounds the outage.
	mr.FastForward(2 * time.Second)

	locked, err := tr.ResetInProgress(ctx)
	require.NoError(t, err)
	assert.False(t, locked)
}
