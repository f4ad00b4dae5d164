package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/runsheet-systems/runsheet-data/internal/demo"
	"github.com/runsheet-systems/runsheet-data/internal/httputil"
	"github.com/runsheet-systems/runsheet-data/internal/ingest"
	"github.com/runsheet-systems/runsheet-data/internal/logging"
	"github.com/runsheet-systems/runsheet-data/internal/metrics"
	"github.com/runsheet-systems/runsheet-data/internal/model"
	"github.com/runsheet-systems/runsheet-data/internal/rowparse"
	"github.com/runsheet-systems/runsheet-data/internal/sheets"
)

// rejectDuringReset returns true (and writes 503) when a reset holds the lock.
// Uploads are rejected outright rather than queued behind the bulk replace.
func (h *Handler) rejectDuringReset(w http.ResponseWriter, r *http.Request) bool {
	locked, err := h.tracker.ResetInProgress(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "reset lock check failed", logging.Error(err))
		httputil.WriteError(w, http.StatusServiceUnavailable, "demo state unavailable")
		return true
	}
	if locked {
		metrics.UploadsRejected.WithLabelValues("reset_in_progress").Inc()
		httputil.WriteError(w, http.StatusServiceUnavailable, "reset in progress, retry shortly")
		return true
	}
	return false
}

// UploadCSV ingests a single-domain CSV file.
//
// Multipart fields: file (the CSV), data_type, batch_id, operational_time.
// The first CSV row is the header. Bad rows are reported individually; the
// batch succeeds if any row applies.
func (h *Handler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	if h.rejectDuringReset(w, r) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	dataType := r.FormValue("data_type")
	if dataType == "" {
		dataType = r.FormValue("dataType")
	}
	domain, err := model.ParseDomainType(dataType)
	if err != nil {
		metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
		h.writeDomainError(w, err)
		return
	}

	batchID := r.FormValue("batch_id")
	operationalTime := r.FormValue("operational_time")
	period, err := demo.PeriodFromBatchID(batchID)
	if err != nil {
		metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
		h.writeDomainError(w, err)
		return
	}
	if operationalTime == "" {
		operationalTime = sheets.OperationalTimeFor(period)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	header, rows, err := rowparse.ReadCSV(file)
	if err != nil {
		metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "malformed CSV: "+err.Error())
		return
	}

	source := ingest.NewStaticSource().Add(domain, header, rows)
	h.runBatch(w, r, []model.DomainType{domain}, source, batchID, operationalTime, period)
}

type sheetsUploadRequest struct {
	DataTypes       []string `json:"data_types"`
	BatchID         string   `json:"batch_id"`
	OperationalTime string   `json:"operational_time"`
}

// UploadSheets runs the simulated spreadsheet sync: every domain receives the
// requested period's snapshot derived from the baseline fixtures.
func (h *Handler) UploadSheets(w http.ResponseWriter, r *http.Request) {
	if h.rejectDuringReset(w, r) {
		return
	}

	var req sheetsUploadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadBytes)).Decode(&req); err != nil {
		metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	period, err := demo.PeriodFromBatchID(req.BatchID)
	if err != nil {
		metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
		h.writeDomainError(w, err)
		return
	}
	operationalTime := req.OperationalTime
	if operationalTime == "" {
		operationalTime = sheets.OperationalTimeFor(period)
	}

	// Empty data_types means every domain participates.
	var domains []model.DomainType
	for _, dt := range req.DataTypes {
		domain, err := model.ParseDomainType(dt)
		if err != nil {
			metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
			h.writeDomainError(w, err)
			return
		}
		domains = append(domains, domain)
	}

	gen, err := sheets.NewGenerator(h.baseline.Fixtures(), period, h.sheetsSeed)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.runBatch(w, r, domains, gen, req.BatchID, operationalTime, period)
}

// runBatch drives the coordinator and translates its report into the API
// response. Partial failures return 200 with per-row errors listed; a batch
// where no domain processed a single row is a failure and never advances the
// demo state (503 when the store was down, 400 otherwise).
func (h *Handler) runBatch(w http.ResponseWriter, r *http.Request, domains []model.DomainType, source ingest.RowSource, batchID, operationalTime, period string) {
	report, err := h.coordinator.Run(r.Context(), domains, source, batchID, operationalTime)
	if err != nil {
		metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
		h.writeDomainError(w, err)
		return
	}

	if !report.Succeeded() {
		status := http.StatusBadRequest
		reason := "all_rows_failed"
		if report.StoreUnavailable() {
			status = http.StatusServiceUnavailable
			reason = "store_unavailable"
		}
		metrics.UploadsRejected.WithLabelValues(reason).Inc()
		httputil.WriteData(w, status, report)
		return
	}

	if err := h.tracker.Advance(r.Context(), period); err != nil {
		h.log.ErrorContext(r.Context(), "failed to advance demo state", "period", period, logging.Error(err))
	}
	if err := h.publisher.PublishBatchApplied(report); err != nil {
		h.log.WarnContext(r.Context(), "batch event publish failed", logging.Error(err))
	}

	httputil.WriteData(w, http.StatusOK, report)
}

// Reset restores the baseline dataset and returns the demo to morning state.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.baseline.Reset(r.Context()); err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.publisher.PublishReset(demo.StateMorningBaseline); err != nil {
		h.log.WarnContext(r.Context(), "reset event publish failed", logging.Error(err))
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{
		"state":   demo.StateMorningBaseline,
		"message": "baseline restored",
	})
}

// Status reports the demo state machine position and per-domain record counts.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	state, err := h.tracker.Current(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "demo state unavailable")
		return
	}
	resetting, err := h.tracker.ResetInProgress(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "demo state unavailable")
		return
	}

	counts := make(map[string]int, len(model.AllDomains))
	for _, domain := range model.AllDomains {
		n, err := h.store.Count(r.Context(), domain)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		counts[domain.String()] = n
	}

	httputil.WriteData(w, http.StatusOK, map[string]interface{}{
		"current_state":     state,
		"reset_in_progress": resetting,
		"record_counts":     counts,
	})
}
