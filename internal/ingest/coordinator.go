package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/runsheet-systems/runsheet-data/internal/logging"
	"github.com/runsheet-systems/runsheet-data/internal/metrics"
	"github.com/runsheet-systems/runsheet-data/internal/model"
	"github.com/runsheet-systems/runsheet-data/internal/rowparse"
)

// RowSource supplies the raw rows for a domain: a parsed CSV upload, the
// simulated spreadsheet generator, or a test fixture.
type RowSource interface {
	Rows(ctx context.Context, domain model.DomainType) (header []string, rows [][]string, err error)
}

// RowError records a single failed row or a domain-level failure (Row == -1).
// Err keeps the wrapped cause so callers can classify the failure; only the
// message goes over the wire.
type RowError struct {
	Domain model.DomainType `json:"domain"`
	Row    int              `json:"row"`
	Error  string           `json:"error"`
	Err    error            `json:"-"`
}

// Report aggregates the outcome of one batch upload.
type Report struct {
	BatchID         string                   `json:"batch_id"`
	OperationalTime string                   `json:"operational_time"`
	Total           int                      `json:"recordCount"`
	Breakdown       map[model.DomainType]int `json:"breakdown"`
	Skipped         map[model.DomainType]int `json:"skipped"`
	Errors          []RowError               `json:"errors,omitempty"`
}

// Succeeded reports whether at least one domain processed a row to completion:
// no domain-level failure, and at least one row applied or deliberately
// skipped. A domain whose every row errored does not count.
func (r *Report) Succeeded() bool {
	failed := make(map[model.DomainType]bool)
	for _, e := range r.Errors {
		if e.Row == -1 {
			failed[e.Domain] = true
		}
	}
	for d := range r.Breakdown {
		if !failed[d] && r.Breakdown[d]+r.Skipped[d] > 0 {
			return true
		}
	}
	return false
}

// StoreUnavailable reports whether any failure in the batch traces back to the
// record store being unreachable.
func (r *Report) StoreUnavailable() bool {
	for _, e := range r.Errors {
		if errors.Is(e.Err, model.ErrStoreUnavailable) {
			return true
		}
	}
	return false
}

// CoordinatorConfig bounds batch fan-out.
type CoordinatorConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

// Coordinator orchestrates multi-domain batch uploads: it owns the decision of
// which domain types participate and runs each selected domain's rows through
// parse -> envelope -> upsert, accumulating the per-type breakdown. A failure
// in one domain never blocks the others.
type Coordinator struct {
	enveloper *Enveloper
	resolver  *Resolver
	workers   int
	log       *logging.Logger
}

// NewCoordinator wires the pipeline stages together.
func NewCoordinator(enveloper *Enveloper, resolver *Resolver, cfg CoordinatorConfig, log *logging.Logger) *Coordinator {
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logging.Default()
	}
	return &Coordinator{enveloper: enveloper, resolver: resolver, workers: workers, log: log}
}

// Run processes a batch across the selected domains. Domains fan out
// concurrently; within a domain, rows are upserted by a bounded worker pool.
func (c *Coordinator) Run(ctx context.Context, domains []model.DomainType, source RowSource, batchID, operationalTime string) (*Report, error) {
	if _, err := model.ParseOperationalTime(operationalTime); err != nil {
		return nil, err
	}
	if len(domains) == 0 {
		domains = model.AllDomains
	}

	started := time.Now()
	report := &Report{
		BatchID:         batchID,
		OperationalTime: operationalTime,
		Breakdown:       make(map[model.DomainType]int, len(domains)),
		Skipped:         make(map[model.DomainType]int, len(domains)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, domain := range domains {
		wg.Add(1)
		go func(domain model.DomainType) {
			defer wg.Done()
			applied, skipped, errs := c.runDomain(ctx, domain, source, batchID, operationalTime)

			mu.Lock()
			defer mu.Unlock()
			report.Breakdown[domain] = applied
			report.Skipped[domain] = skipped
			report.Total += applied
			report.Errors = append(report.Errors, errs...)
		}(domain)
	}
	wg.Wait()

	sort.Slice(report.Errors, func(i, j int) bool {
		if report.Errors[i].Domain != report.Errors[j].Domain {
			return report.Errors[i].Domain < report.Errors[j].Domain
		}
		return report.Errors[i].Row < report.Errors[j].Row
	})

	metrics.BatchDuration.Observe(time.Since(started).Seconds())
	c.log.InfoContext(ctx, "batch processed",
		logging.BatchID(batchID),
		"operational_time", operationalTime,
		"records", report.Total,
		"errors", len(report.Errors),
		logging.Duration(time.Since(started).Milliseconds()),
	)
	return report, nil
}

// runDomain executes the pipeline for a single domain. Domain-level failures
// (source or header errors) are reported with Row == -1.
func (c *Coordinator) runDomain(ctx context.Context, domain model.DomainType, source RowSource, batchID, operationalTime string) (applied, skipped int, errs []RowError) {
	header, rows, err := source.Rows(ctx, domain)
	if err != nil {
		return 0, 0, []RowError{{Domain: domain, Row: -1, Error: fmt.Sprintf("row source: %v", err), Err: err}}
	}

	parser, err := rowparse.New(domain, header)
	if err != nil {
		return 0, 0, []RowError{{Domain: domain, Row: -1, Error: err.Error(), Err: err}}
	}

	results := parser.ParseAll(rows)

	type rowOutcome struct {
		row     int
		outcome Outcome
		err     error
	}

	sem := make(chan struct{}, c.workers)
	outcomes := make([]rowOutcome, len(results))
	var wg sync.WaitGroup

	for i, res := range results {
		if res.Err != nil {
			outcomes[i] = rowOutcome{row: res.Row, err: res.Err}
			continue
		}
		if ctx.Err() != nil {
			outcomes[i] = rowOutcome{row: res.Row, err: ctx.Err()}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, res rowparse.RowResult) {
			defer wg.Done()
			defer func() { <-sem }()

			doc, env, err := c.enveloper.Wrap(res.Doc, batchID, operationalTime)
			if err != nil {
				outcomes[i] = rowOutcome{row: res.Row, err: err}
				return
			}
			outcome, err := c.resolver.Upsert(ctx, domain, doc, env)
			outcomes[i] = rowOutcome{row: res.Row, outcome: outcome, err: err}
		}(i, res)
	}
	wg.Wait()

	for _, o := range outcomes {
		switch {
		case o.err != nil:
			metrics.RowErrors.WithLabelValues(domain.String()).Inc()
			errs = append(errs, RowError{Domain: domain, Row: o.row, Error: o.err.Error(), Err: o.err})
		case o.outcome == OutcomeInserted || o.outcome == OutcomeUpdated:
			applied++
		default:
			skipped++
		}
	}
	return applied, skipped, errs
}
