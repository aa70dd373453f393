package handlers

import (
	"log/slog"
	"net/http"
	"time"

	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/server/responses"
	"git.home.luguber.info/inful/watertracker/internal/version"
)

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	counter      Counter
	startTime    time.Time
	errorAdapter *derrors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(c Counter, startTime time.Time, logger *slog.Logger) *MonitoringHandlers {
	return &MonitoringHandlers{
		counter:      c,
		startTime:    startTime,
		errorAdapter: derrors.NewHTTPErrorAdapter(logger),
	}
}

// HandleHealthCheck handles GET /health.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if h.counter != nil {
		health.Scheduler = h.counter.SchedulerState().String()
		health.Surfaces = len(h.counter.Surfaces())
	}

	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.InternalError("failed to write health response", err))
	}
}
