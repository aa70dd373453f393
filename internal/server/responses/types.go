// Package responses defines API response types used by the tracker HTTP handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	"git.home.luguber.info/inful/watertracker/internal/eventstore"
)

// StateResponse is today's stale-aware counter state.
type StateResponse struct {
	counter.Snapshot
	Scheduler string `json:"scheduler"`
	Surfaces  []int  `json:"surfaces"`
}

// ViewResponse is returned by mutating endpoints.
type ViewResponse struct {
	counter.View
}

// SurfaceResponse describes one surface after activation or lookup.
type SurfaceResponse struct {
	ID    int          `json:"id"`
	Added bool         `json:"added,omitempty"`
	View  counter.View `json:"view"`
}

// RefreshResponse reports which surfaces were redrawn.
type RefreshResponse struct {
	View     counter.View `json:"view"`
	Surfaces []int        `json:"surfaces"`
}

// HistoryResponse lists recent mutations.
type HistoryResponse struct {
	Events []eventstore.Event `json:"events"`
}

// DaysResponse lists per-day summaries.
type DaysResponse struct {
	Days []eventstore.DaySummary `json:"days"`
}

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
	Scheduler string    `json:"scheduler,omitempty"`
	Surfaces  int       `json:"surfaces"`
}
