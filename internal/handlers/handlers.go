// Package handlers implements the dashboard data API: batch uploads, resets,
// demo status, and the per-domain read endpoints.
package handlers

import (
	"errors"
	"net/http"

	"github.com/runsheet-systems/runsheet-data/internal/baseline"
	"github.com/runsheet-systems/runsheet-data/internal/demo"
	"github.com/runsheet-systems/runsheet-data/internal/httputil"
	"github.com/runsheet-systems/runsheet-data/internal/ingest"
	"github.com/runsheet-systems/runsheet-data/internal/logging"
	"github.com/runsheet-systems/runsheet-data/internal/model"
	"github.com/runsheet-systems/runsheet-data/internal/notify"
	"github.com/runsheet-systems/runsheet-data/internal/store"
)

// Handler carries the API's dependencies. publisher may be nil when messaging
// is disabled.
type Handler struct {
	store       store.Store
	coordinator *ingest.Coordinator
	tracker     *demo.Tracker
	baseline    *baseline.Manager
	publisher   *notify.Publisher
	log         *logging.Logger

	maxUploadBytes int64
	sheetsSeed     int64
}

// New creates the API handler.
func New(st store.Store, coord *ingest.Coordinator, tracker *demo.Tracker, bm *baseline.Manager, pub *notify.Publisher, log *logging.Logger, maxUploadBytes, sheetsSeed int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	if log == nil {
		log = logging.Default()
	}
	return &Handler{
		store:          st,
		coordinator:    coord,
		tracker:        tracker,
		baseline:       bm,
		publisher:      pub,
		log:            log,
		maxUploadBytes: maxUploadBytes,
		sheetsSeed:     sheetsSeed,
	}
}

// writeDomainError maps pipeline errors onto API status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.WriteError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, model.ErrResetInProgress):
		httputil.WriteError(w, http.StatusServiceUnavailable, "reset in progress, retry shortly")
	case errors.Is(err, model.ErrStoreUnavailable):
		httputil.WriteError(w, http.StatusServiceUnavailable, "record store unavailable")
	default:
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// Health reports process liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready reports readiness: the record store must answer a ping.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "record store unreachable",
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
