// Package model defines the record and temporal envelope types shared across
// the ingestion pipeline and the record store.
package model

import "fmt"

// DomainType identifies which dashboard dataset a record belongs to.
type DomainType string

const (
	DomainFleet     DomainType = "fleet"
	DomainOrders    DomainType = "orders"
	DomainInventory DomainType = "inventory"
	DomainSupport   DomainType = "support"
)

// AllDomains lists every domain type in seeding order.
var AllDomains = []DomainType{DomainFleet, DomainOrders, DomainInventory, DomainSupport}

// ParseDomainType validates a wire-level data_type value.
func ParseDomainType(s string) (DomainType, error) {
	switch DomainType(s) {
	case DomainFleet, DomainOrders, DomainInventory, DomainSupport:
		return DomainType(s), nil
	}
	return "", &ValidationError{Field: "data_type", Value: s, Reason: "unknown domain type"}
}

// Index returns the store index backing the domain. Fleet records live in the
// trucks index and support records in support_tickets, matching the dashboard's
// read paths.
func (d DomainType) Index() string {
	switch d {
	case DomainFleet:
		return "trucks"
	case DomainSupport:
		return "support_tickets"
	default:
		return string(d)
	}
}

// KeyField returns the natural-key field name for the domain.
func (d DomainType) KeyField() string {
	switch d {
	case DomainFleet:
		return "truck_id"
	case DomainOrders:
		return "order_id"
	case DomainInventory:
		return "item_id"
	case DomainSupport:
		return "ticket_id"
	}
	return ""
}

func (d DomainType) String() string { return string(d) }

// Key extracts the natural key from a document for the given domain.
func Key(d DomainType, doc Document) (string, error) {
	v, ok := doc[d.KeyField()]
	if !ok {
		return "", fmt.Errorf("document missing key field %q", d.KeyField())
	}
	key, ok := v.(string)
	if !ok || key == "" {
		return "", fmt.Errorf("key field %q is not a non-empty string", d.KeyField())
	}
	return key, nil
}
