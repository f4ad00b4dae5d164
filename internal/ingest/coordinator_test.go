package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runsheet-systems/runsheet-data/internal/model"
	"github.com/runsheet-systems/runsheet-data/internal/store"
)

func newTestCoordinator(st store.Store) *Coordinator {
	resolver := NewResolver(st, ResolverConfig{ConflictRetries: 3, StoreRetries: 1, RetryBackoff: time.Millisecond})
	return NewCoordinator(NewEnveloper(nil), resolver, CoordinatorConfig{MaxWorkers: 4}, nil)
}

func fleetRows() ([]string, [][]string) {
	return []string{"truck_id", "driver_name", "status", "route", "current_location"},
		[][]string{
			{"GI-58A", "John Kamau", "on_time", "kisumu-mombasa", "Kisumu Depot"},
			{"MO-84A", "Mary Wanjiku", "delayed", "nairobi-kinara", "Nairobi Station"},
		}
}

func TestRunSingleDomain(t *testing.T) {
	st := store.NewInMemoryStore()
	c := newTestCoordinator(st)

	header, rows := fleetRows()
	source := NewStaticSource().Add(model.DomainFleet, header, rows)

	report, err := c.Run(context.Background(), []model.DomainType{model.DomainFleet}, source, "morning_baseline", "09:00")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Breakdown[model.DomainFleet])
	assert.Empty(t, report.Errors)
	assert.True(t, report.Succeeded())

	n, err := st.Count(context.Background(), model.DomainFleet)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunRejectsBadOperationalTime(t *testing.T) {
	c := newTestCoordinator(store.NewInMemoryStore())
	source := NewStaticSource()

	_, err := c.Run(context.Background(), nil, source, "morning_baseline", "9am")
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestRunReportsRowErrorsWithoutAborting(t *testing.T) {
	st := store.NewInMemoryStore()
	c := newTestCoordinator(st)

	header := []string{"truck_id", "driver_name", "status", "route", "current_location"}
	rows := [][]string{
		{"GI-58A", "John Kamau", "on_time", "kisumu-mombasa", "Kisumu Depot"},
		{"", "No Truck", "on_time", "route", "somewhere"},
		{"CE-57A", "Peter Ochieng", "delayed", "kisumu-mombasa-2", "Kisumu Depot"},
	}
	source := NewStaticSource().Add(model.DomainFleet, header, rows)

	report, err := c.Run(context.Background(), []model.DomainType{model.DomainFleet}, source, "morning_baseline", "09:00")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 1, report.Errors[0].Row)
	assert.True(t, report.Succeeded())
}

func TestRunDomainFailureIsIsolated(t *testing.T) {
	st := store.NewInMemoryStore()
	c := newTestCoordinator(st)

	// Orders has no registered rows, so its source call fails; fleet must
	// still apply.
	header, rows := fleetRows()
	source := NewStaticSource().Add(model.DomainFleet, header, rows)

	report, err := c.Run(context.Background(), []model.DomainType{model.DomainFleet, model.DomainOrders}, source, "morning_baseline", "09:00")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Breakdown[model.DomainFleet])
	require.NotEmpty(t, report.Errors)

	var domainLevel bool
	for _, e := range report.Errors {
		if e.Domain == model.DomainOrders && e.Row == -1 {
			domainLevel = true
		}
	}
	assert.True(t, domainLevel)
	assert.True(t, report.Succeeded())
}

func TestRunIdempotentReplay(t *testing.T) {
	st := store.NewInMemoryStore()
	c := newTestCoordinator(st)
	ctx := context.Background()

	header, rows := fleetRows()
	source := NewStaticSource().Add(model.DomainFleet, header, rows)

	first, err := c.Run(ctx, []model.DomainType{model.DomainFleet}, source, "morning_baseline", "09:00")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Total)

	// Replaying the identical batch applies nothing and bumps no versions.
	second, err := c.Run(ctx, []model.DomainType{model.DomainFleet}, source, "morning_baseline", "09:00")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Total)
	assert.Equal(t, 2, second.Skipped[model.DomainFleet])

	rec, _, err := st.GetCurrent(ctx, model.DomainFleet, "GI-58A")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Envelope.DataVersion)
}

func TestRunAllRowsFailedIsNotSuccess(t *testing.T) {
	st := &failingStore{InMemoryStore: store.NewInMemoryStore(), failures: 100}
	c := newTestCoordinator(st)

	header, rows := fleetRows()
	source := NewStaticSource().Add(model.DomainFleet, header, rows)

	report, err := c.Run(context.Background(), []model.DomainType{model.DomainFleet}, source, "afternoon_ops", "13:00")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, report.Skipped[model.DomainFleet])
	require.Len(t, report.Errors, 2)
	assert.False(t, report.Succeeded())
	assert.True(t, report.StoreUnavailable())
}

func TestRunCancelledContext(t *testing.T) {
	st := store.NewInMemoryStore()
	c := newTestCoordinator(st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	header, rows := fleetRows()
	source := NewStaticSource().Add(model.DomainFleet, header, rows)

	report, err := c.Run(ctx, []model.DomainType{model.DomainFleet}, source, "morning_baseline", "09:00")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.NotEmpty(t, report.Errors)
}

func TestEnveloperWrap(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 13, 5, 0, 0, time.UTC)
	e := NewEnveloper(func() time.Time { return fixed })

	doc := model.Document{"truck_id": "GI-58A"}
	got, env, err := e.Wrap(doc, "afternoon_ops", "13:00")
	require.NoError(t, err)

	assert.Equal(t, doc, got)
	assert.Equal(t, "afternoon_ops", env.BatchID)
	assert.Equal(t, "13:00", env.OperationalTime)
	assert.Equal(t, fixed, env.IngestionTimestamp)
	assert.Zero(t, env.DataVersion)

	_, _, err = e.Wrap(doc, "afternoon_ops", "1pm")
	assert.Error(t, err)
}
