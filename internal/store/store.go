// Package store persists current records keyed by domain and natural key.
package store

import (
	"context"
	"time"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

// Token is the opaque concurrency token returned with a read and required on a
// conditional update. For the OpenSearch store this is the document's seq_no /
// primary_term pair; the in-memory store folds the version into SeqNo.
type Token struct {
	SeqNo       int64
	PrimaryTerm int64
}

// Store is the record store's read/write interface. The upsert resolver and the
// batch coordinator communicate only through it.
//
// GetCurrent returns model.ErrNotFound when no record exists under the key.
// Create fails with model.ErrVersionConflict if a record already exists;
// Update fails with model.ErrVersionConflict when the token is stale. Both let
// concurrent writers retry via a fresh read instead of silently overwriting.
// I/O failures surface as model.ErrStoreUnavailable wrapped with detail.
type Store interface {
	GetCurrent(ctx context.Context, domain model.DomainType, key string) (*model.Record, Token, error)
	Create(ctx context.Context, rec model.Record) error
	Update(ctx context.Context, rec model.Record, tok Token) error

	// ReplaceAll atomically swaps the domain's full record set (reset path).
	ReplaceAll(ctx context.Context, domain model.DomainType, recs []model.Record) error

	List(ctx context.Context, domain model.DomainType) ([]model.Record, error)
	Count(ctx context.Context, domain model.DomainType) (int, error)
	Ping(ctx context.Context) error
}

// encodeBody flattens a record into the stored document shape: domain fields
// plus envelope metadata in one object, the way the dashboard indices lay
// documents out.
func encodeBody(rec model.Record) map[string]interface{} {
	body := make(map[string]interface{}, len(rec.Fields)+4)
	for k, v := range rec.Fields {
		body[k] = v
	}
	body[model.FieldBatchID] = rec.Envelope.BatchID
	body[model.FieldOperationalTime] = rec.Envelope.OperationalTime
	body[model.FieldIngestionTimestamp] = rec.Envelope.IngestionTimestamp.UTC().Format(time.RFC3339Nano)
	body[model.FieldDataVersion] = rec.Envelope.DataVersion
	return body
}

// decodeBody splits a stored document back into domain fields and envelope.
func decodeBody(domain model.DomainType, key string, body map[string]interface{}) model.Record {
	rec := model.Record{Domain: domain, Key: key, Fields: make(model.Document, len(body))}
	for k, v := range body {
		switch k {
		case model.FieldBatchID:
			rec.Envelope.BatchID, _ = v.(string)
		case model.FieldOperationalTime:
			rec.Envelope.OperationalTime, _ = v.(string)
		case model.FieldIngestionTimestamp:
			if s, ok := v.(string); ok {
				rec.Envelope.IngestionTimestamp, _ = time.Parse(time.RFC3339Nano, s)
			}
		case model.FieldDataVersion:
			switch n := v.(type) {
			case float64:
				rec.Envelope.DataVersion = int(n)
			case int:
				rec.Envelope.DataVersion = n
			}
		default:
			rec.Fields[k] = v
		}
	}
	return rec
}
