package model

import "math"

// Document is a normalized record body: canonical field name to typed value
// (string, float64, int, or RFC3339 timestamp string). The ingestion engine is
// agnostic to domain fields beyond the natural key.
type Document map[string]interface{}

// Clone returns a shallow copy. Values are primitives after row parsing, so a
// shallow copy is sufficient for the pipeline's ownership handoffs.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Equal reports whether two documents carry the same field values. Numeric
// values are compared by magnitude so that an int 5 read back from the store
// as float64 5 still counts as unchanged.
func (d Document) Equal(other Document) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		ov, ok := other[k]
		if !ok {
			return false
		}
		if !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && math.Abs(af-bf) < 1e-9
	}
	return a == b
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Record is the unit the store persists: one current document per natural key
// and domain, wrapped in its temporal envelope.
type Record struct {
	Domain   DomainType `json:"domain"`
	Key      string     `json:"key"`
	Fields   Document   `json:"fields"`
	Envelope Envelope   `json:"envelope"`
}
