package baseline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runsheet-systems/runsheet-data/internal/demo"
	"github.com/runsheet-systems/runsheet-data/internal/model"
	"github.com/runsheet-systems/runsheet-data/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.InMemoryStore, *demo.Tracker) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tracker := demo.NewTracker(client, time.Second)
	st := store.NewInMemoryStore()

	mgr, err := NewManager(st, tracker, nil, nil)
	require.NoError(t, err)
	return mgr, st, tracker
}

func TestLoadFixtures(t *testing.T) {
	fx, err := Load()
	require.NoError(t, err)

	assert.Len(t, fx[model.DomainFleet], 6)
	assert.Len(t, fx[model.DomainOrders], 4)
	assert.Len(t, fx[model.DomainInventory], 5)
	assert.Len(t, fx[model.DomainSupport], 4)

	// Every fixture document must carry its natural key.
	for _, domain := range model.AllDomains {
		for _, doc := range fx[domain] {
			_, err := model.Key(domain, doc)
			assert.NoError(t, err)
		}
	}
}

func TestFixtureRecordsCarryBaselineEnvelope(t *testing.T) {
	fx, err := Load()
	require.NoError(t, err)

	at := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	recs, err := fx.Records(model.DomainFleet, at)
	require.NoError(t, err)
	require.Len(t, recs, 6)

	for _, rec := range recs {
		assert.Equal(t, demo.BaselineBatchID, rec.Envelope.BatchID)
		assert.Equal(t, OperationalTime, rec.Envelope.OperationalTime)
		assert.Equal(t, 1, rec.Envelope.DataVersion)
		assert.Equal(t, at, rec.Envelope.IngestionTimestamp)
	}
}

func TestResetReplacesDataAndState(t *testing.T) {
	mgr, st, tracker := newTestManager(t)
	ctx := context.Background()

	// Simulate an evening demo in progress.
	require.NoError(t, tracker.Advance(ctx, demo.StateEvening))
	require.NoError(t, st.Create(ctx, model.Record{
		Domain:   model.DomainFleet,
		Key:      "ZZ-999Z",
		Fields:   model.Document{"truck_id": "ZZ-999Z", "status": "arrived"},
		Envelope: model.Envelope{BatchID: "evening_ops", OperationalTime: "17:00", DataVersion: 4},
	}))

	require.NoError(t, mgr.Reset(ctx))

	state, err := tracker.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, demo.StateMorningBaseline, state)

	_, _, err = st.GetCurrent(ctx, model.DomainFleet, "ZZ-999Z")
	assert.ErrorIs(t, err, model.ErrNotFound)

	rec, _, err := st.GetCurrent(ctx, model.DomainFleet, "GI-58A")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Envelope.DataVersion)
	assert.Equal(t, "on_time", rec.Fields["status"])

	n, err := st.Count(ctx, model.DomainOrders)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestResetReleasesLock(t *testing.T) {
	mgr, _, tracker := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Reset(ctx))

	locked, err := tracker.ResetInProgress(ctx)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestResetFailsWhenLockHeld(t *testing.T) {
	mgr, _, tracker := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, tracker.AcquireResetLock(ctx))

	err := mgr.Reset(ctx)
	assert.ErrorIs(t, err, model.ErrResetInProgress)
}

func TestSeedOnlyFillsEmptyDomains(t *testing.T) {
	mgr, st, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, st.Create(ctx, model.Record{
		Domain:   model.DomainFleet,
		Key:      "ZZ-999Z",
		Fields:   model.Document{"truck_id": "ZZ-999Z", "status": "on_time"},
		Envelope: model.Envelope{BatchID: "morning_baseline", OperationalTime: "09:00", DataVersion: 1},
	}))

	require.NoError(t, mgr.Seed(ctx))

	// Fleet already had data, so it is left alone.
	n, err := st.Count(ctx, model.DomainFleet)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Empty domains get the fixtures.
	n, err = st.Count(ctx, model.DomainInventory)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
