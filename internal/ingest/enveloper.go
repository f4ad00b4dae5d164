// Package ingest implements the temporal upsert pipeline: envelope building,
// per-record version arbitration, and multi-domain batch coordination.
package ingest

import (
	"time"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

// Enveloper stamps normalized documents with their temporal envelope. The
// ingestion timestamp is taken once per record from the injected clock and
// never mutated afterwards. data_version is left unset; only the resolver
// knows about prior versions.
type Enveloper struct {
	now func() time.Time
}

// NewEnveloper creates an enveloper using the given clock, or time.Now when nil.
func NewEnveloper(now func() time.Time) *Enveloper {
	if now == nil {
		now = time.Now
	}
	return &Enveloper{now: now}
}

// Wrap validates the operational time label and attaches the envelope.
func (e *Enveloper) Wrap(doc model.Document, batchID, operationalTime string) (model.Document, model.Envelope, error) {
	if _, err := model.ParseOperationalTime(operationalTime); err != nil {
		return nil, model.Envelope{}, err
	}
	env := model.Envelope{
		BatchID:            batchID,
		OperationalTime:    operationalTime,
		IngestionTimestamp: e.now().UTC(),
	}
	return doc, env, nil
}
