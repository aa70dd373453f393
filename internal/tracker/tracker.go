// Package tracker runs the counter state machine against real collaborators:
// the persisted store, the active surfaces, the reset timer and the optional
// history and metrics sinks.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/eventstore"
	"git.home.luguber.info/inful/watertracker/internal/logfields"
	"git.home.luguber.info/inful/watertracker/internal/metrics"
	"git.home.luguber.info/inful/watertracker/internal/storage"
	"git.home.luguber.info/inful/watertracker/internal/surface"
)

// Timer arms and cancels named one-shot callbacks. Arming a name that is
// already pending replaces it.
type Timer interface {
	ScheduleOnce(name string, delay time.Duration, fn func()) (string, error)
	Cancel(name string)
}

// Service is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	store    storage.Store
	surfaces *surface.Registry
	views    *surface.ViewCache
	renderer surface.Renderer
	timer    Timer
	history  eventstore.Store
	recorder metrics.Recorder
	clock    clockwork.Clock
	location *time.Location
	logger   *slog.Logger

	goal  counter.Goal
	sched counter.SchedulerState
}

// New creates a tracker over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		surfaces: surface.NewRegistry(),
		views:    surface.NewViewCache(),
		recorder: metrics.NoopRecorder{},
		clock:    clockwork.NewRealClock(),
		location: time.Local,
		logger:   slog.Default(),
		goal:     counter.DefaultGoal,
		sched:    counter.Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.location)
}

func (s *Service) render(ctx context.Context, id int, v counter.View) error {
	if err := s.views.Render(ctx, id, v); err != nil {
		return err
	}
	if s.renderer == nil {
		return nil
	}
	return s.renderer.Render(ctx, id, v)
}

func (s *Service) redraw(ctx context.Context, ids []int, v counter.View) {
	ok, failed := surface.RenderAll(ctx, ids, surface.RendererFunc(s.render), v)
	for range ok {
		s.recorder.IncRedraw(metrics.ResultSuccess)
	}
	for range failed {
		s.recorder.IncRedraw(metrics.ResultFailed)
	}
}

// execute applies cmds in order. A failed Persist suppresses the redraw that
// follows it so surfaces never show a state that was not stored. Timer
// commands always run.
func (s *Service) execute(ctx context.Context, cmds []counter.Command) error {
	var errs []error
	persisted := true
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case counter.Persist:
			if err := s.store.Set(ctx, c.State); err != nil {
				persisted = false
				s.logger.ErrorContext(ctx, "Failed to persist counter", logfields.Count(c.State.Count), logfields.Date(c.State.LastUpdateDate), logfields.Error(err))
				errs = append(errs, err)
				continue
			}
			s.recorder.SetCount(c.State.Count)
		case counter.RedrawAll:
			if !persisted {
				continue
			}
			s.redraw(ctx, s.surfaces.IDs(), c.View)
		case counter.Arm:
			if s.timer == nil {
				continue
			}
			id, err := s.timer.ScheduleOnce(c.Name, c.Delay, s.onTimer)
			if err != nil {
				s.logger.ErrorContext(ctx, "Failed to arm reset timer", logfields.JobName(c.Name), logfields.Error(err))
				if !derrors.IsCategory(err, derrors.CategoryScheduler) {
					err = derrors.SchedulerFailed(c.Name, err)
				}
				errs = append(errs, err)
				continue
			}
			s.logger.DebugContext(ctx, "Reset timer armed", logfields.JobName(c.Name), logfields.JobID(id), logfields.DelayMS(c.Delay))
		case counter.Cancel:
			if s.timer == nil {
				continue
			}
			s.timer.Cancel(c.Name)
			s.logger.DebugContext(ctx, "Reset timer cancelled", logfields.JobName(c.Name))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) onTimer() {
	ctx := context.Background()
	if err := s.FireReset(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Daily reset failed", logfields.Error(err))
	}
}

func (s *Service) record(ctx context.Context, e eventstore.Event) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to record history", logfields.Error(err))
	}
}

// Tap applies one increment and returns the new view.
func (s *Service) Tap(ctx context.Context) (counter.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Get(ctx)
	if err != nil {
		return counter.View{}, err
	}
	now := s.now()
	next, outcome, cmds := counter.OnTap(st, now, s.goal)
	if err := s.execute(ctx, cmds); err != nil {
		return counter.View{}, err
	}

	s.recorder.IncTap(string(outcome))
	s.record(ctx, eventstore.NewTapEvent(next, outcome, now))
	s.logger.InfoContext(ctx, "Water count incremented",
		logfields.Count(next.Count), logfields.Goal(int(s.goal)), logfields.Date(next.LastUpdateDate), logfields.Outcome(string(outcome)))
	return counter.NewView(next.Count, s.goal), nil
}

// Current returns today's view of the stored state without writing to it.
func (s *Service) Current(ctx context.Context) (counter.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(ctx)
}

func (s *Service) current(ctx context.Context) (counter.Snapshot, error) {
	st, err := s.store.Get(ctx)
	if err != nil {
		return counter.Snapshot{}, err
	}
	return counter.Observe(st, s.now(), s.goal), nil
}

// Activate registers surface id and draws it. The first surface arms the
// reset timer. It reports whether id was newly added.
func (s *Service) Activate(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.current(ctx)
	if err != nil {
		return false, err
	}
	added, first := s.surfaces.Add(id)
	s.recorder.SetSurfaces(s.surfaces.Len())
	s.redraw(ctx, []int{id}, snap.View)

	if !first {
		return added, nil
	}
	s.logger.InfoContext(ctx, "First surface activated", logfields.SurfaceID(id))
	var cmds []counter.Command
	s.sched, cmds = counter.OnActivated(s.sched, s.now())
	s.recorder.SetSchedulerArmed(s.sched == counter.Armed)
	return added, s.execute(ctx, cmds)
}

// Remove unregisters surface id. The last surface cancels the reset timer.
// It reports whether id was registered.
func (s *Service) Remove(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, last := s.surfaces.Remove(id)
	if !removed {
		return false, nil
	}
	s.views.Forget(id)
	s.recorder.SetSurfaces(s.surfaces.Len())
	if !last {
		return true, nil
	}
	s.logger.InfoContext(ctx, "Last surface removed", logfields.SurfaceID(id))
	var cmds []counter.Command
	s.sched, cmds = counter.OnRemoved(s.sched)
	s.recorder.SetSchedulerArmed(s.sched == counter.Armed)
	return true, s.execute(ctx, cmds)
}

// Refresh redraws ids, or every active surface when ids is empty, with
// today's view.
func (s *Service) Refresh(ctx context.Context, ids ...int) (counter.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.current(ctx)
	if err != nil {
		return counter.View{}, err
	}
	if len(ids) == 0 {
		ids = s.surfaces.IDs()
	}
	s.redraw(ctx, ids, snap.View)
	return snap.View, nil
}

// FireReset zeroes the counter for today, redraws every surface and arms
// the next midnight.
func (s *Service) FireReset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	next, sched, cmds := counter.OnTimerFired(now)
	s.sched = sched
	s.recorder.SetSchedulerArmed(true)
	err := s.execute(ctx, cmds)
	if err == nil {
		s.recorder.IncReset(metrics.TriggerScheduled)
		s.record(ctx, eventstore.NewResetEvent(next, metrics.TriggerScheduled, now))
	}
	s.logger.InfoContext(ctx, "Daily reset", logfields.Date(next.LastUpdateDate), logfields.Surfaces(s.surfaces.Len()))
	return err
}

// Reset zeroes the counter for today on request. The timer is left alone.
func (s *Service) Reset(ctx context.Context) (counter.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	next := counter.State{Count: 0, LastUpdateDate: counter.Today(now)}
	cmds := []counter.Command{counter.Persist{State: next}, counter.RedrawAll{View: counter.View{}}}
	if err := s.execute(ctx, cmds); err != nil {
		return counter.View{}, err
	}
	s.recorder.IncReset(metrics.TriggerManual)
	s.record(ctx, eventstore.NewResetEvent(next, metrics.TriggerManual, now))
	s.logger.InfoContext(ctx, "Water count reset", logfields.Date(next.LastUpdateDate))
	return counter.View{}, nil
}

// SetGoal changes N for subsequent operations and redraws every surface.
func (s *Service) SetGoal(ctx context.Context, goal counter.Goal) error {
	if err := goal.Validate(); err != nil {
		return derrors.ConfigInvalid("goal", err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if goal == s.goal {
		return nil
	}
	s.logger.InfoContext(ctx, "Daily goal changed", logfields.Goal(int(goal)))
	s.goal = goal
	snap, err := s.current(ctx)
	if err != nil {
		return err
	}
	s.redraw(ctx, s.surfaces.IDs(), snap.View)
	return nil
}

// Goal returns the active daily goal.
func (s *Service) Goal() counter.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goal
}

// SchedulerState reports whether the reset timer is armed.
func (s *Service) SchedulerState() counter.SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched
}

// Surfaces returns the active surface ids in ascending order.
func (s *Service) Surfaces() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surfaces.IDs()
}

// LastView returns what surface id last drew.
func (s *Service) LastView(id int) (counter.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.surfaces.Has(id) {
		return counter.View{}, false
	}
	return s.views.Get(id)
}
