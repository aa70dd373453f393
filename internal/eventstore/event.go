// Package eventstore records counter mutations and projects per-day summaries.
package eventstore

import (
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/watertracker/internal/counter"
)

// Kind names what changed the counter.
type Kind string

const (
	KindTap   Kind = "tap"
	KindReset Kind = "reset"
)

// Event is one counter mutation.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Outcome   string    `json:"outcome,omitempty"`
	Count     int       `json:"count"`
	Day       string    `json:"day"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTapEvent records a tap that produced st.
func NewTapEvent(st counter.State, outcome counter.TapOutcome, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      KindTap,
		Outcome:   string(outcome),
		Count:     st.Count,
		Day:       st.LastUpdateDate,
		Timestamp: at,
	}
}

// NewResetEvent records a reset that produced st. trigger ("scheduled" or
// "manual") is kept as the event outcome.
func NewResetEvent(st counter.State, trigger string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      KindReset,
		Outcome:   trigger,
		Count:     st.Count,
		Day:       st.LastUpdateDate,
		Timestamp: at,
	}
}
