package model

import (
	"time"
)

// Envelope carries the temporal metadata attached to every record. BatchID and
// OperationalTime represent business time as chosen by the demo operator;
// IngestionTimestamp is the wall-clock write time. The two clocks are kept
// separate on purpose.
type Envelope struct {
	BatchID            string    `json:"batch_id"`
	OperationalTime    string    `json:"operational_time"`
	IngestionTimestamp time.Time `json:"ingestion_timestamp"`
	DataVersion        int       `json:"data_version"`
}

// Envelope field names as stored alongside domain fields in a document body.
const (
	FieldBatchID            = "batch_id"
	FieldOperationalTime    = "operational_time"
	FieldIngestionTimestamp = "ingestion_timestamp"
	FieldDataVersion        = "data_version"
)

// ParseOperationalTime validates an HH:MM 24-hour business-time label.
func ParseOperationalTime(s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: FieldOperationalTime, Value: s, Reason: "must be HH:MM 24-hour time"}
	}
	return t, nil
}

// NewerThan reports whether e should supersede old under the recency rule:
// operational_time compared as a same-day clock value, ties (or unparseable
// values) falling back to ingestion_timestamp, then to lexical batch_id order.
func (e Envelope) NewerThan(old Envelope) bool {
	nt, nerr := time.Parse("15:04", e.OperationalTime)
	ot, oerr := time.Parse("15:04", old.OperationalTime)
	if nerr == nil && oerr == nil && !nt.Equal(ot) {
		return nt.After(ot)
	}
	if !e.IngestionTimestamp.Equal(old.IngestionTimestamp) {
		return e.IngestionTimestamp.After(old.IngestionTimestamp)
	}
	return e.BatchID > old.BatchID
}
