package tracker

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	"git.home.luguber.info/inful/watertracker/internal/eventstore"
	"git.home.luguber.info/inful/watertracker/internal/metrics"
	"git.home.luguber.info/inful/watertracker/internal/surface"
)

// Option configures a Service.
type Option func(*Service)

// WithRenderer sets where redraws go in addition to the in-memory view cache.
func WithRenderer(r surface.Renderer) Option { return func(s *Service) { s.renderer = r } }

// WithTimer sets the reset timer. Without one the scheduler state still
// changes but nothing fires.
func WithTimer(t Timer) Option { return func(s *Service) { s.timer = t } }

// WithHistory records every mutation in h.
func WithHistory(h eventstore.Store) Option { return func(s *Service) { s.history = h } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock sets the clock used to derive today and the next midnight.
func WithClock(c clockwork.Clock) Option { return func(s *Service) { s.clock = c } }

// WithLocation sets the zone in which calendar days are counted.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithGoal sets the daily goal. Invalid goals are ignored.
func WithGoal(g counter.Goal) Option {
	return func(s *Service) {
		if g.Validate() == nil {
			s.goal = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
