// Package sheets simulates the demo's spreadsheet feed: each demo period
// yields a tabular snapshot of every domain derived from the morning baseline,
// with the period's operational changes applied.
package sheets

import (
	"context"
	"fmt"
	"strconv"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/runsheet-systems/runsheet-data/internal/baseline"
	"github.com/runsheet-systems/runsheet-data/internal/demo"
	"github.com/runsheet-systems/runsheet-data/internal/model"
)

// OperationalTimeFor maps a demo period to its scripted clock time.
func OperationalTimeFor(period string) string {
	switch period {
	case demo.StateAfternoon:
		return "13:00"
	case demo.StateEvening:
		return "17:00"
	case demo.StateNight:
		return "21:00"
	default:
		return baseline.OperationalTime
	}
}

// Generator produces the simulated sheet rows for one demo period. The same
// period and seed always yield identical rows, so repeating a sync is a no-op
// at the resolver.
type Generator struct {
	fixtures baseline.Fixtures
	period   string
	faker    *gofakeit.Faker
}

// NewGenerator builds a generator over the baseline fixtures. The seed pins
// the faker so generated remarks are reproducible across calls.
func NewGenerator(fixtures baseline.Fixtures, period string, seed int64) (*Generator, error) {
	if _, err := demo.PeriodFromBatchID(period); err != nil {
		return nil, err
	}
	return &Generator{
		fixtures: fixtures,
		period:   period,
		faker:    gofakeit.New(seed),
	}, nil
}

// Rows implements the batch coordinator's row source.
func (g *Generator) Rows(ctx context.Context, domain model.DomainType) ([]string, [][]string, error) {
	docs, ok := g.fixtures[domain]
	if !ok {
		return nil, nil, fmt.Errorf("no fixtures for domain %s", domain)
	}

	switch domain {
	case model.DomainFleet:
		return g.fleetRows(docs)
	case model.DomainOrders:
		return g.orderRows(docs)
	case model.DomainInventory:
		return g.inventoryRows(docs)
	case model.DomainSupport:
		return g.supportRows(docs)
	}
	return nil, nil, fmt.Errorf("unsupported domain %s", domain)
}

// rank orders the periods so the per-period drift compounds: evening includes
// the afternoon changes, night includes both.
func (g *Generator) rank() int {
	switch g.period {
	case demo.StateAfternoon:
		return 1
	case demo.StateEvening:
		return 2
	case demo.StateNight:
		return 3
	}
	return 0
}

func (g *Generator) fleetRows(docs []model.Document) ([]string, [][]string, error) {
	header := []string{"truck_id", "driver_name", "status", "route", "current_location", "plate_number", "destination"}
	rank := g.rank()

	rows := make([][]string, 0, len(docs))
	for i, doc := range docs {
		status := str(doc["status"])
		location := str(doc["current_location"])
		destination := str(doc["destination"])

		// Trucks progress toward their destinations over the day. Odd-indexed
		// trucks run late in the evening; everything is parked by night.
		switch {
		case rank >= 3:
			status = "arrived"
			location = destination
		case rank == 2:
			if i%2 == 1 {
				status = "delayed"
			} else {
				status = "on_time"
			}
			location = "En route to " + destination
		case rank == 1:
			status = "on_time"
			location = "En route to " + destination
		}

		rows = append(rows, []string{
			str(doc["truck_id"]), str(doc["driver_name"]), status,
			str(doc["route"]), location, str(doc["plate_number"]), destination,
		})
	}
	return header, rows, nil
}

func (g *Generator) orderRows(docs []model.Document) ([]string, [][]string, error) {
	header := []string{"order_id", "customer", "region", "status", "value", "items", "priority"}
	rank := g.rank()

	progress := map[string]string{
		"pending":    "in_transit",
		"in_transit": "delivered",
		"delivered":  "delivered",
	}

	rows := make([][]string, 0, len(docs))
	for _, doc := range docs {
		status := str(doc["status"])
		for step := 0; step < rank; step++ {
			if next, ok := progress[status]; ok {
				status = next
			}
		}
		rows = append(rows, []string{
			str(doc["order_id"]), str(doc["customer"]), str(doc["region"]),
			status, num(doc["value"]), str(doc["items"]), str(doc["priority"]),
		})
	}
	return header, rows, nil
}

func (g *Generator) inventoryRows(docs []model.Document) ([]string, [][]string, error) {
	header := []string{"item_id", "name", "category", "quantity", "location", "status", "unit"}
	rank := g.rank()

	rows := make([][]string, 0, len(docs))
	for _, doc := range docs {
		qty := intVal(doc["quantity"])

		// Stock draws down roughly 15% per period, restocked overnight.
		if rank >= 3 {
			qty = qty*2 + 100
		} else {
			for step := 0; step < rank; step++ {
				qty -= qty * 15 / 100
			}
		}

		status := "in_stock"
		switch {
		case qty == 0:
			status = "out_of_stock"
		case qty < 30:
			status = "low_stock"
		}

		rows = append(rows, []string{
			str(doc["item_id"]), str(doc["name"]), str(doc["category"]),
			strconv.Itoa(qty), str(doc["location"]), status, str(doc["unit"]),
		})
	}
	return header, rows, nil
}

func (g *Generator) supportRows(docs []model.Document) ([]string, [][]string, error) {
	header := []string{"ticket_id", "customer", "issue", "priority", "status", "description", "assigned_to"}
	rank := g.rank()

	progress := map[string]string{
		"open":        "in_progress",
		"in_progress": "resolved",
		"resolved":    "resolved",
	}

	rows := make([][]string, 0, len(docs)+1)
	for _, doc := range docs {
		status := str(doc["status"])
		assignee := str(doc["assigned_to"])
		for step := 0; step < rank; step++ {
			if next, ok := progress[status]; ok {
				status = next
			}
		}
		if status != "open" && assignee == "" {
			assignee = g.faker.Name()
		}
		rows = append(rows, []string{
			str(doc["ticket_id"]), str(doc["customer"]), str(doc["issue"]),
			str(doc["priority"]), status, str(doc["description"]), assignee,
		})
	}

	// The evening run raises one fresh incident so the queue never empties.
	if rank == 2 {
		rows = append(rows, []string{
			fmt.Sprintf("TKT-%03d", len(docs)+1),
			g.faker.Company(),
			"Route deviation reported by customer",
			"medium",
			"open",
			fmt.Sprintf("Customer reports the assigned truck diverted near %s; requesting confirmation of revised arrival.", g.faker.City()),
			"",
		})
	}
	return header, rows, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func num(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	}
	return ""
}

func intVal(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
