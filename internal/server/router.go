// Package server wires the HTTP routes for the data service.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runsheet-systems/runsheet-data/internal/handlers"
	"github.com/runsheet-systems/runsheet-data/internal/middleware"
)

// NewRouter constructs a ServeMux with the data API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Batch ingestion and demo control
	mux.HandleFunc("POST /api/data/upload/csv", h.UploadCSV)
	mux.HandleFunc("POST /api/data/upload/sheets", h.UploadSheets)
	mux.HandleFunc("POST /api/data/reset", h.Reset)
	mux.HandleFunc("GET /api/data/status", h.Status)

	// Dashboard read paths
	mux.HandleFunc("GET /api/fleet/summary", h.FleetSummary)
	mux.HandleFunc("GET /api/fleet/trucks", h.Trucks)
	mux.HandleFunc("GET /api/fleet/trucks/{truck_id}", h.TruckByID)
	mux.HandleFunc("GET /api/orders", h.Orders)
	mux.HandleFunc("GET /api/inventory", h.Inventory)
	mux.HandleFunc("GET /api/support/tickets", h.SupportTickets)

	// Health endpoints
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
