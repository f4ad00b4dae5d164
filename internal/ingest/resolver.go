package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runsheet-systems/runsheet-data/internal/metrics"
	"github.com/runsheet-systems/runsheet-data/internal/model"
	"github.com/runsheet-systems/runsheet-data/internal/store"
)

// Outcome classifies a single record upsert.
type Outcome string

const (
	OutcomeInserted         Outcome = "inserted"
	OutcomeUpdated          Outcome = "updated"
	OutcomeSkippedStale     Outcome = "skipped_stale"
	OutcomeSkippedUnchanged Outcome = "skipped_unchanged"
)

// ResolverConfig bounds the resolver's retry behavior.
type ResolverConfig struct {
	ConflictRetries int           `mapstructure:"conflict_retries"`
	StoreRetries    int           `mapstructure:"store_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
}

// DefaultResolverConfig returns the retry budget used when config is absent.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		ConflictRetries: 3,
		StoreRetries:    3,
		RetryBackoff:    100 * time.Millisecond,
	}
}

// Resolver owns per-record version arbitration: insert, supersede, or discard
// against the current stored state. The read-compare-write sequence for a key
// is serialized through the store's optimistic concurrency tokens; losing
// writers re-read and retry within a bounded budget.
type Resolver struct {
	store store.Store
	cfg   ResolverConfig
}

// NewResolver creates a resolver over the given store.
func NewResolver(st store.Store, cfg ResolverConfig) *Resolver {
	if cfg.ConflictRetries <= 0 {
		cfg.ConflictRetries = DefaultResolverConfig().ConflictRetries
	}
	if cfg.StoreRetries <= 0 {
		cfg.StoreRetries = DefaultResolverConfig().StoreRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultResolverConfig().RetryBackoff
	}
	return &Resolver{store: st, cfg: cfg}
}

// Upsert arbitrates one enveloped document against the store.
func (r *Resolver) Upsert(ctx context.Context, domain model.DomainType, doc model.Document, env model.Envelope) (Outcome, error) {
	key, err := model.Key(domain, doc)
	if err != nil {
		return "", &model.ValidationError{Field: domain.KeyField(), Row: -1, Reason: err.Error()}
	}

	var outcome Outcome
	for attempt := 0; attempt <= r.cfg.ConflictRetries; attempt++ {
		outcome, err = r.tryUpsert(ctx, domain, key, doc, env)
		if err == nil {
			metrics.RowsTotal.WithLabelValues(domain.String(), string(outcome)).Inc()
			return outcome, nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return "", err
		}
		metrics.StoreRetries.WithLabelValues("conflict").Inc()
	}

	metrics.StoreErrors.Inc()
	return "", fmt.Errorf("upsert %s/%s: %w", domain, key, model.ErrConflictRetryExhausted)
}

func (r *Resolver) tryUpsert(ctx context.Context, domain model.DomainType, key string, doc model.Document, env model.Envelope) (Outcome, error) {
	current, tok, err := r.getCurrent(ctx, domain, key)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return "", err
	}

	if current == nil {
		env.DataVersion = 1
		rec := model.Record{Domain: domain, Key: key, Fields: doc, Envelope: env}
		if err := r.write(ctx, func(ctx context.Context) error {
			return r.store.Create(ctx, rec)
		}); err != nil {
			return "", err
		}
		return OutcomeInserted, nil
	}

	// Content-equality short-circuit: a byte-identical re-upload must not bump
	// the version even when its envelope timestamps differ nominally.
	if doc.Equal(current.Fields) {
		return OutcomeSkippedUnchanged, nil
	}

	if !env.NewerThan(current.Envelope) {
		return OutcomeSkippedStale, nil
	}

	env.DataVersion = current.Envelope.DataVersion + 1
	rec := model.Record{Domain: domain, Key: key, Fields: doc, Envelope: env}
	if err := r.write(ctx, func(ctx context.Context) error {
		return r.store.Update(ctx, rec, tok)
	}); err != nil {
		return "", err
	}
	return OutcomeUpdated, nil
}

// getCurrent reads with bounded retries on store unavailability.
func (r *Resolver) getCurrent(ctx context.Context, domain model.DomainType, key string) (*model.Record, store.Token, error) {
	var (
		rec *model.Record
		tok store.Token
		err error
	)
	err = r.withStoreRetry(ctx, func(ctx context.Context) error {
		rec, tok, err = r.store.GetCurrent(ctx, domain, key)
		return err
	})
	return rec, tok, err
}

// write applies one store mutation with bounded retries on unavailability.
// Version conflicts propagate immediately so the caller can re-read.
func (r *Resolver) write(ctx context.Context, op func(context.Context) error) error {
	return r.withStoreRetry(ctx, op)
}

func (r *Resolver) withStoreRetry(ctx context.Context, op func(context.Context) error) error {
	backoff := r.cfg.RetryBackoff
	var err error
	for attempt := 0; attempt <= r.cfg.StoreRetries; attempt++ {
		err = op(ctx)
		if err == nil || !errors.Is(err, model.ErrStoreUnavailable) {
			return err
		}
		metrics.StoreRetries.WithLabelValues("unavailable").Inc()

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	metrics.StoreErrors.Inc()
	return err
}
