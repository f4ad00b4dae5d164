package ingest

import (
	"context"
	"fmt"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

// StaticSource serves pre-parsed rows for a fixed set of domains, e.g. a CSV
// upload that targets exactly one domain type.
type StaticSource struct {
	data map[model.DomainType]staticRows
}

type staticRows struct {
	header []string
	rows   [][]string
}

// NewStaticSource creates an empty static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{data: make(map[model.DomainType]staticRows)}
}

// Add registers rows for a domain, replacing any previous registration.
func (s *StaticSource) Add(domain model.DomainType, header []string, rows [][]string) *StaticSource {
	s.data[domain] = staticRows{header: header, rows: rows}
	return s
}

// Rows implements RowSource.
func (s *StaticSource) Rows(ctx context.Context, domain model.DomainType) ([]string, [][]string, error) {
	d, ok := s.data[domain]
	if !ok {
		return nil, nil, fmt.Errorf("no rows registered for domain %s", domain)
	}
	return d.header, d.rows, nil
}
