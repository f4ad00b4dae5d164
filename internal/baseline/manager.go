// Package baseline restores the demo dataset to its known-good morning state.
package baseline

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runsheet-systems/runsheet-data/internal/demo"
	"github.com/runsheet-systems/runsheet-data/internal/logging"
	"github.com/runsheet-systems/runsheet-data/internal/metrics"
	"github.com/runsheet-systems/runsheet-data/internal/model"
	"github.com/runsheet-systems/runsheet-data/internal/store"
)

//go:embed baseline.yaml
var baselineYAML []byte

// OperationalTime stamped on every baseline record. All demo overlays carry a
// later clock time, so the baseline always loses a recency comparison.
const OperationalTime = "09:00"

// Fixtures holds the parsed baseline documents per domain.
type Fixtures map[model.DomainType][]model.Document

// Load parses the embedded baseline fixtures.
func Load() (Fixtures, error) {
	var raw map[string][]model.Document
	if err := yaml.Unmarshal(baselineYAML, &raw); err != nil {
		return nil, fmt.Errorf("parse baseline fixtures: %w", err)
	}

	fx := make(Fixtures, len(raw))
	for name, docs := range raw {
		domain, err := model.ParseDomainType(name)
		if err != nil {
			return nil, fmt.Errorf("baseline fixtures: %w", err)
		}
		fx[domain] = docs
	}
	for _, domain := range model.AllDomains {
		if len(fx[domain]) == 0 {
			return nil, fmt.Errorf("baseline fixtures: no documents for domain %s", domain)
		}
	}
	return fx, nil
}

// Records converts a domain's fixtures into versioned records carrying the
// reserved baseline envelope. Every reset yields data_version 1 regardless of
// prior history.
func (f Fixtures) Records(domain model.DomainType, ingestedAt time.Time) ([]model.Record, error) {
	recs := make([]model.Record, 0, len(f[domain]))
	for _, doc := range f[domain] {
		key, err := model.Key(domain, doc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, model.Record{
			Domain: domain,
			Key:    key,
			Fields: doc.Clone(),
			Envelope: model.Envelope{
				BatchID:            demo.BaselineBatchID,
				OperationalTime:    OperationalTime,
				IngestionTimestamp: ingestedAt.UTC(),
				DataVersion:        1,
			},
		})
	}
	return recs, nil
}

// Manager performs full resets under the demo tracker's advisory lock.
type Manager struct {
	fixtures Fixtures
	store    store.Store
	tracker  *demo.Tracker
	now      func() time.Time
	log      *logging.Logger
}

// NewManager loads the embedded fixtures and wires the reset dependencies.
// now may be nil, selecting time.Now.
func NewManager(st store.Store, tracker *demo.Tracker, now func() time.Time, log *logging.Logger) (*Manager, error) {
	fx, err := Load()
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logging.Default()
	}
	return &Manager{fixtures: fx, store: st, tracker: tracker, now: now, log: log}, nil
}

// Fixtures exposes the loaded baseline documents, for seeding and the
// spreadsheet simulator.
func (m *Manager) Fixtures() Fixtures {
	return m.fixtures
}

// Reset replaces every domain's record set with the baseline fixtures and
// returns the demo state machine to morning_baseline. Exactly one reset runs
// at a time; a concurrent attempt fails fast with ErrResetInProgress. Uploads
// arriving during the window are rejected by the handlers, which consult the
// same lock.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.tracker.AcquireResetLock(ctx); err != nil {
		return err
	}
	defer func() {
		if err := m.tracker.ReleaseResetLock(context.WithoutCancel(ctx)); err != nil {
			m.log.ErrorContext(ctx, "failed to release reset lock", logging.Error(err))
		}
	}()

	started := m.now()
	for _, domain := range model.AllDomains {
		recs, err := m.fixtures.Records(domain, started)
		if err != nil {
			return err
		}
		if err := m.store.ReplaceAll(ctx, domain, recs); err != nil {
			return fmt.Errorf("reset %s: %w", domain, err)
		}
	}

	if err := m.tracker.ResetState(ctx); err != nil {
		return err
	}

	metrics.ResetsTotal.Inc()
	m.log.InfoContext(ctx, "baseline reset complete",
		logging.Duration(time.Since(started).Milliseconds()),
	)
	return nil
}

// Seed loads the baseline fixtures without touching the reset lock or demo
// state, for first-boot initialization of an empty store.
func (m *Manager) Seed(ctx context.Context) error {
	started := m.now()
	for _, domain := range model.AllDomains {
		n, err := m.store.Count(ctx, domain)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		recs, err := m.fixtures.Records(domain, started)
		if err != nil {
			return err
		}
		if err := m.store.ReplaceAll(ctx, domain, recs); err != nil {
			return fmt.Errorf("seed %s: %w", domain, err)
		}
		m.log.InfoContext(ctx, "seeded baseline data", logging.Domain(domain.String()), "records", len(recs))
	}
	return nil
}
