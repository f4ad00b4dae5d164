// Package rowparse converts raw tabular rows into normalized documents for a
// declared domain type.
package rowparse

import (
	"strconv"
	"strings"
	"time"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindFloat
	kindInt
	kindTimestamp
)

type fieldSpec struct {
	name     string
	kind     fieldKind
	required bool
}

// Field sets mirror the dashboard index mappings. Required fields must be
// present and non-empty; optional fields are parsed when the header carries
// them.
var domainFields = map[model.DomainType][]fieldSpec{
	model.DomainFleet: {
		{"truck_id", kindString, true},
		{"driver_name", kindString, true},
		{"status", kindString, true},
		{"route", kindString, true},
		{"current_location", kindString, true},
		{"plate_number", kindString, false},
		{"driver_id", kindString, false},
		{"destination", kindString, false},
		{"estimated_arrival", kindTimestamp, false},
		{"last_update", kindTimestamp, false},
	},
	model.DomainOrders: {
		{"order_id", kindString, true},
		{"customer", kindString, true},
		{"region", kindString, true},
		{"status", kindString, true},
		{"value", kindFloat, true},
		{"items", kindString, true},
		{"truck_id", kindString, false},
		{"priority", kindString, false},
		{"created_at", kindTimestamp, false},
		{"delivery_eta", kindTimestamp, false},
	},
	model.DomainInventory: {
		{"item_id", kindString, true},
		{"name", kindString, true},
		{"category", kindString, true},
		{"quantity", kindInt, true},
		{"location", kindString, true},
		{"status", kindString, true},
		{"unit", kindString, false},
		{"last_updated", kindTimestamp, false},
	},
	model.DomainSupport: {
		{"ticket_id", kindString, true},
		{"customer", kindString, true},
		{"issue", kindString, true},
		{"priority", kindString, true},
		{"status", kindString, true},
		{"description", kindString, false},
		{"assigned_to", kindString, false},
		{"related_order", kindString, false},
		{"created_at", kindTimestamp, false},
	},
}

// RowResult is the per-row outcome: either a normalized document or the error
// that disqualified the row. One bad row never aborts its siblings.
type RowResult struct {
	Row int
	Doc model.Document
	Err error
}

// Parser maps raw rows to documents using a header-derived column index.
type Parser struct {
	domain model.DomainType
	cols   map[string]int
}

// New builds a parser for one domain from the batch header row. Header names
// are matched case-insensitively with surrounding whitespace ignored.
func New(domain model.DomainType, header []string) (*Parser, error) {
	specs, ok := domainFields[domain]
	if !ok {
		return nil, &model.ValidationError{Field: "data_type", Value: string(domain), Row: -1, Reason: "unknown domain type"}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, spec := range specs {
		if !spec.required {
			continue
		}
		if _, ok := cols[spec.name]; !ok {
			return nil, &model.ValidationError{Field: spec.name, Row: -1, Reason: "required column missing from header"}
		}
	}

	return &Parser{domain: domain, cols: cols}, nil
}

// ParseRow normalizes a single row. rowIdx is the zero-based data-row index
// used in error reporting.
func (p *Parser) ParseRow(rowIdx int, row []string) (model.Document, error) {
	doc := make(model.Document)
	for _, spec := range domainFields[p.domain] {
		col, ok := p.cols[spec.name]
		if !ok || col >= len(row) {
			if spec.required {
				return nil, &model.ValidationError{Field: spec.name, Row: rowIdx, Reason: "missing required field"}
			}
			continue
		}

		raw := strings.TrimSpace(row[col])
		if raw == "" {
			if spec.required {
				return nil, &model.ValidationError{Field: spec.name, Row: rowIdx, Reason: "missing required field"}
			}
			continue
		}

		v, err := parseValue(spec, raw, rowIdx)
		if err != nil {
			return nil, err
		}
		doc[spec.name] = v
	}
	return doc, nil
}

// ParseAll normalizes every row, collecting per-row successes and failures.
func (p *Parser) ParseAll(rows [][]string) []RowResult {
	results := make([]RowResult, 0, len(rows))
	for i, row := range rows {
		doc, err := p.ParseRow(i, row)
		results = append(results, RowResult{Row: i, Doc: doc, Err: err})
	}
	return results
}

func parseValue(spec fieldSpec, raw string, rowIdx int) (interface{}, error) {
	switch spec.kind {
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &model.ValidationError{Field: spec.name, Value: raw, Row: rowIdx, Reason: "malformed numeric value"}
		}
		return f, nil
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &model.ValidationError{Field: spec.name, Value: raw, Row: rowIdx, Reason: "malformed integer value"}
		}
		return n, nil
	case kindTimestamp:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, &model.ValidationError{Field: spec.name, Value: raw, Row: rowIdx, Reason: "malformed timestamp, want RFC3339"}
		}
		return t.UTC().Format(time.RFC3339), nil
	default:
		return raw, nil
	}
}
