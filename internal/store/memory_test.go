package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

func testRecord(key, status string, version int) model.Record {
	return model.Record{
		Domain: model.DomainFleet,
		Key:    key,
		Fields: model.Document{"truck_id": key, "status": status},
		Envelope: model.Envelope{
			BatchID:            "morning_baseline",
			OperationalTime:    "09:00",
			IngestionTimestamp: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			DataVersion:        version,
		},
	}
}

func TestMemoryGetCurrentNotFound(t *testing.T) {
	s := NewInMemoryStore()
	_, _, err := s.GetCurrent(context.Background(), model.DomainFleet, "GI-58A")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryCreateThenGet(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testRecord("GI-58A", "on_time", 1)))

	rec, tok, err := s.GetCurrent(ctx, model.DomainFleet, "GI-58A")
	require.NoError(t, err)
	assert.Equal(t, "on_time", rec.Fields["status"])
	assert.Equal(t, int64(1), tok.SeqNo)
}

func TestMemoryCreateConflictsOnExisting(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testRecord("GI-58A", "on_time", 1)))
	err := s.Create(ctx, testRecord("GI-58A", "delayed", 1))
	assert.ErrorIs(t, err, model.ErrVersionConflict)
}

func TestMemoryUpdateWithStaleToken(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testRecord("GI-58A", "on_time", 1)))

	_, tok, err := s.GetCurrent(ctx, model.DomainFleet, "GI-58A")
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, testRecord("GI-58A", "delayed", 2), tok))

	// The original token is now stale.
	err = s.Update(ctx, testRecord("GI-58A", "arrived", 3), tok)
	assert.ErrorIs(t, err, model.ErrVersionConflict)
}

func TestMemoryReplaceAll(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testRecord("GI-58A", "on_time", 1)))
	require.NoError(t, s.Create(ctx, testRecord("MO-84A", "delayed", 1)))

	err := s.ReplaceAll(ctx, model.DomainFleet, []model.Record{testRecord("CE-57A", "on_time", 1)})
	require.NoError(t, err)

	n, err := s.Count(ctx, model.DomainFleet)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, _, err = s.GetCurrent(ctx, model.DomainFleet, "GI-58A")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryListReturnsCopies(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testRecord("GI-58A", "on_time", 1)))

	recs, err := s.List(ctx, model.DomainFleet)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	recs[0].Fields["status"] = "mutated"

	rec, _, err := s.GetCurrent(ctx, model.DomainFleet, "GI-58A")
	require.NoError(t, err)
	assert.Equal(t, "on_time", rec.Fields["status"])
}

func TestEncodeDecodeBody(t *testing.T) {
	rec := testRecord("GI-58A", "on_time", 3)
	body := encodeBody(rec)

	assert.Equal(t, "morning_baseline", body[model.FieldBatchID])
	assert.Equal(t, 3, body[model.FieldDataVersion])

	decoded := decodeBody(model.DomainFleet, "GI-58A", body)
	assert.Equal(t, rec.Envelope.BatchID, decoded.Envelope.BatchID)
	assert.Equal(t, rec.Envelope.DataVersion, decoded.Envelope.DataVersion)
	assert.Equal(t, "on_time", decoded.Fields["status"])
	assert.True(t, rec.Envelope.IngestionTimestamp.Equal(decoded.Envelope.IngestionTimestamp))

	// Envelope fields must not leak into domain fields.
	_, leaked := decoded.Fields[model.FieldBatchID]
	assert.False(t, leaked)
}
