package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService  = "service"
	FieldDomain   = "domain"
	FieldBatchID  = "batch_id"
	FieldDuration = "duration_ms"
	FieldError    = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Domain returns a slog attribute for the domain type.
func Domain(d string) slog.Attr {
	return slog.String(FieldDomain, d)
}

// BatchID returns a slog attribute for the batch identifier.
func BatchID(id string) slog.Attr {
	return slog.String(FieldBatchID, id)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
