// Package admin implements the /health, /api/status, and /api/stats HTTP
// surface, grounded on the teacher's web/handlers.go JSON-response idiom.
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mjpeg-core/internal/capture"
	"mjpeg-core/internal/rtsp"
)

// Handlers exposes admin/observability endpoints over the components it is
// wired to. Any component may be nil (e.g. before capture starts); handlers
// degrade gracefully rather than panicking.
type Handlers struct {
	logger      *zap.Logger
	startedAt   time.Time
	producer    *capture.Producer
	clientTable *rtsp.ClientTable
}

// New constructs Handlers. producer/table may be nil if not yet wired.
func New(producer *capture.Producer, table *rtsp.ClientTable, logger *zap.Logger) *Handlers {
	return &Handlers{logger: logger, startedAt: time.Now(), producer: producer, clientTable: table}
}

// Register wires /health, /api/status, /api/stats onto mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/api/status", h.HandleStatus)
	mux.HandleFunc("/api/stats", h.HandleStats)
}

// HandleHealth reports a liveness summary.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":     "ok",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"uptime_sec": int(time.Since(h.startedAt).Seconds()),
	}
	h.writeJSON(w, health)
}

// HandleStatus reports component-level status: capture running state and
// active RTSP session count.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"uptime_sec": int(time.Since(h.startedAt).Seconds()),
	}
	if h.producer != nil {
		status["capture"] = h.producer.GetStats()
	}
	if h.clientTable != nil {
		status["rtsp_sessions"] = h.clientTable.Count()
	}
	h.writeJSON(w, status)
}

// HandleStats reports the same data as /api/status today; kept as a
// separate endpoint per spec.md §6 so future counters (frames dropped by
// the pump, per-session delivery stats) have a natural home without
// reshaping /api/status's contract.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.HandleStatus(w, r)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}
