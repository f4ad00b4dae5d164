package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/runsheet-systems/runsheet-data/internal/httputil"
	"github.com/runsheet-systems/runsheet-data/internal/model"
)

// listSorted returns a domain's records ordered by natural key so read
// responses are stable across calls.
func (h *Handler) listSorted(r *http.Request, domain model.DomainType) ([]model.Record, error) {
	recs, err := h.store.List(r.Context(), domain)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })
	return recs, nil
}

// provenance adds the envelope metadata the dashboard shows in its data
// inspector.
func provenance(rec model.Record, out map[string]interface{}) map[string]interface{} {
	out["batchId"] = rec.Envelope.BatchID
	out["operationalTime"] = rec.Envelope.OperationalTime
	out["dataVersion"] = rec.Envelope.DataVersion
	return out
}

func formatTruck(rec model.Record) map[string]interface{} {
	f := rec.Fields
	return provenance(rec, map[string]interface{}{
		"id":               f["truck_id"],
		"plateNumber":      f["plate_number"],
		"driverId":         f["driver_id"],
		"driverName":       f["driver_name"],
		"currentLocation":  f["current_location"],
		"destination":      f["destination"],
		"route":            f["route"],
		"status":           f["status"],
		"estimatedArrival": f["estimated_arrival"],
		"lastUpdate":       f["last_update"],
	})
}

// Trucks lists the fleet.
func (h *Handler) Trucks(w http.ResponseWriter, r *http.Request) {
	recs, err := h.listSorted(r, model.DomainFleet)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	trucks := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		trucks = append(trucks, formatTruck(rec))
	}
	httputil.WriteData(w, http.StatusOK, trucks)
}

// TruckByID returns a single truck by its identifier.
func (h *Handler) TruckByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("truck_id")
	rec, _, err := h.store.GetCurrent(r.Context(), model.DomainFleet, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "truck not found")
			return
		}
		h.writeDomainError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, formatTruck(*rec))
}

// FleetSummary aggregates truck statuses for the dashboard header.
func (h *Handler) FleetSummary(w http.ResponseWriter, r *http.Request) {
	recs, err := h.listSorted(r, model.DomainFleet)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	var onTime, delayed int
	for _, rec := range recs {
		switch rec.Fields["status"] {
		case "on_time":
			onTime++
		case "delayed":
			delayed++
		}
	}

	httputil.WriteData(w, http.StatusOK, map[string]interface{}{
		"totalTrucks":   len(recs),
		"activeTrucks":  onTime + delayed,
		"onTimeTrucks":  onTime,
		"delayedTrucks": delayed,
	})
}

// Orders lists all orders.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	recs, err := h.listSorted(r, model.DomainOrders)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	orders := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		f := rec.Fields
		orders = append(orders, provenance(rec, map[string]interface{}{
			"id":          f["order_id"],
			"customer":    f["customer"],
			"status":      f["status"],
			"value":       f["value"],
			"items":       f["items"],
			"truckId":     f["truck_id"],
			"region":      f["region"],
			"priority":    f["priority"],
			"createdAt":   f["created_at"],
			"deliveryEta": f["delivery_eta"],
		}))
	}
	httputil.WriteData(w, http.StatusOK, orders)
}

// Inventory lists all inventory items.
func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	recs, err := h.listSorted(r, model.DomainInventory)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	items := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		f := rec.Fields
		items = append(items, provenance(rec, map[string]interface{}{
			"id":          f["item_id"],
			"name":        f["name"],
			"category":    f["category"],
			"quantity":    f["quantity"],
			"unit":        f["unit"],
			"location":    f["location"],
			"status":      f["status"],
			"lastUpdated": f["last_updated"],
		}))
	}
	httputil.WriteData(w, http.StatusOK, items)
}

// SupportTickets lists all support tickets.
func (h *Handler) SupportTickets(w http.ResponseWriter, r *http.Request) {
	recs, err := h.listSorted(r, model.DomainSupport)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	tickets := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		f := rec.Fields
		tickets = append(tickets, provenance(rec, map[string]interface{}{
			"id":           f["ticket_id"],
			"customer":     f["customer"],
			"issue":        f["issue"],
			"description":  f["description"],
			"priority":     f["priority"],
			"status":       f["status"],
			"assignedTo":   f["assigned_to"],
			"relatedOrder": f["related_order"],
			"createdAt":    f["created_at"],
		}))
	}
	httputil.WriteData(w, http.StatusOK, tickets)
}
