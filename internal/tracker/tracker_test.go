package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/eventstore"
	"git.home.luguber.info/inful/watertracker/internal/storage"
)

type armed struct {
	delay time.Duration
	fn    func()
}

type fakeTimer struct {
	mu      sync.Mutex
	pending map[string]armed
	arms    int
	cancels int
	err     error
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{pending: map[string]armed{}}
}

func (f *fakeTimer) ScheduleOnce(name string, delay time.Duration, fn func()) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.arms++
	f.pending[name] = armed{delay: delay, fn: fn}
	return "job-" + name, nil
}

func (f *fakeTimer) Cancel(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	delete(f.pending, name)
}

func (f *fakeTimer) get(name string) (armed, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.pending[name]
	return a, ok
}

// fire runs the pending callback outside the timer lock, as gocron would.
func (f *fakeTimer) fire(t *testing.T, name string) {
	t.Helper()
	f.mu.Lock()
	a, ok := f.pending[name]
	delete(f.pending, name)
	f.mu.Unlock()
	require.True(t, ok, "timer %q not armed", name)
	a.fn()
}

type recordingRenderer struct {
	mu    sync.Mutex
	draws map[int][]counter.View
	fail  map[int]bool
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{draws: map[int][]counter.View{}, fail: map[int]bool{}}
}

func (r *recordingRenderer) Render(_ context.Context, id int, v counter.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[id] {
		return errors.New("surface gone")
	}
	r.draws[id] = append(r.draws[id], v)
	return nil
}

func (r *recordingRenderer) last(id int) counter.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.draws[id]
	if len(d) == 0 {
		return counter.View{Count: -1}
	}
	return d[len(d)-1]
}

type failingSetStore struct {
	storage.Store
}

func (failingSetStore) Set(context.Context, counter.State) error { return errors.New("disk full") }

type fixture struct {
	svc      *Service
	store    *storage.MemoryStore
	timer    *fakeTimer
	renderer *recordingRenderer
	clock    *clockwork.FakeClock
}

func newFixture(t *testing.T, st counter.State, now time.Time, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    storage.NewMemoryStoreWith(st),
		timer:    newFakeTimer(),
		renderer: newRecordingRenderer(),
		clock:    clockwork.NewFakeClockAt(now),
	}
	base := []Option{
		WithTimer(f.timer),
		WithRenderer(f.renderer),
		WithClock(f.clock),
		WithLocation(time.UTC),
	}
	f.svc = New(f.store, append(base, opts...)...)
	return f
}

func (f *fixture) state(t *testing.T) counter.State {
	t.Helper()
	st, err := f.store.Get(context.Background())
	require.NoError(t, err)
	return st
}

func at(day string, hour int) time.Time {
	d, _ := time.Parse(counter.DateLayout, day)
	return d.Add(time.Duration(hour) * time.Hour)
}

func TestTapSameDay(t *testing.T) {
	f := newFixture(t, counter.State{Count: 0, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 9))
	_, err := f.svc.Activate(t.Context(), 7)
	require.NoError(t, err)

	v, err := f.svc.Tap(t.Context())
	require.NoError(t, err)

	assert.Equal(t, counter.View{Count: 1, Level: 1000}, v)
	assert.Equal(t, counter.State{Count: 1, LastUpdateDate: "2025-06-20"}, f.state(t))
	assert.Equal(t, v, f.renderer.last(7))
}

func TestTapWrapsAtGoal(t *testing.T) {
	f := newFixture(t, counter.State{Count: 10, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 9))

	v, err := f.svc.Tap(t.Context())
	require.NoError(t, err)

	assert.Equal(t, counter.View{}, v)
	assert.Equal(t, counter.State{Count: 0, LastUpdateDate: "2025-06-20"}, f.state(t))
}

func TestTapRolloverStartsAtOne(t *testing.T) {
	f := newFixture(t, counter.State{Count: 5, LastUpdateDate: "2025-06-20"}, at("2025-06-21", 8))

	v, err := f.svc.Tap(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, v.Count)
	assert.Equal(t, counter.State{Count: 1, LastUpdateDate: "2025-06-21"}, f.state(t))
}

func TestTapFromEmptyStore(t *testing.T) {
	f := newFixture(t, counter.State{}, at("2025-06-20", 9))

	v, err := f.svc.Tap(t.Context())
	require.NoError(t, err)
	assert.Equal(t, counter.View{Count: 1, Level: 1000}, v)
}

func TestTapHonoursGoal(t *testing.T) {
	f := newFixture(t, counter.State{Count: 3, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 9), WithGoal(4))

	v, err := f.svc.Tap(t.Context())
	require.NoError(t, err)
	assert.Equal(t, counter.View{Count: 4, Level: counter.MaxLevel}, v)

	v, err = f.svc.Tap(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, v.Count)
}

func TestTapPersistFailureSkipsRedraw(t *testing.T) {
	timer := newFakeTimer()
	renderer := newRecordingRenderer()
	store := failingSetStore{Store: storage.NewMemoryStoreWith(counter.State{Count: 2, LastUpdateDate: "2025-06-20"})}
	svc := New(store, WithTimer(timer), WithRenderer(renderer), WithClock(clockwork.NewFakeClockAt(at("2025-06-20", 9))), WithLocation(time.UTC))
	_, err := svc.Activate(t.Context(), 1)
	require.NoError(t, err)

	_, err = svc.Tap(t.Context())
	require.Error(t, err)
	assert.Equal(t, counter.View{Count: 2, Level: 2000}, renderer.last(1), "surface keeps the stored state")
}

func TestTapStoreReadFailure(t *testing.T) {
	f := newFixture(t, counter.State{}, at("2025-06-20", 9))
	f.store.FailWith = errors.New("unavailable")

	_, err := f.svc.Tap(t.Context())
	require.Error(t, err)
}

func TestRedrawFailureDoesNotFailTap(t *testing.T) {
	f := newFixture(t, counter.State{}, at("2025-06-20", 9))
	_, err := f.svc.Activate(t.Context(), 1)
	require.NoError(t, err)
	_, err = f.svc.Activate(t.Context(), 2)
	require.NoError(t, err)
	f.renderer.fail[1] = true

	v, err := f.svc.Tap(t.Context())
	require.NoError(t, err)
	assert.Equal(t, v, f.renderer.last(2))
}

func TestCurrentIsStaleAwareAndReadOnly(t *testing.T) {
	f := newFixture(t, counter.State{Count: 6, LastUpdateDate: "2025-06-19"}, at("2025-06-20", 9))

	snap, err := f.svc.Current(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 0, snap.Count)
	assert.True(t, snap.Stale)
	assert.Equal(t, "2025-06-20", snap.Date)
	assert.Equal(t, 0, f.store.Calls().Set)
}

func TestActivateArmsOnFirstSurfaceOnly(t *testing.T) {
	f := newFixture(t, counter.State{Count: 3, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 22))

	added, err := f.svc.Activate(t.Context(), 1)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, counter.Armed, f.svc.SchedulerState())

	a, ok := f.timer.get(counter.ResetJobName)
	require.True(t, ok)
	assert.Equal(t, 2*time.Hour, a.delay)
	assert.Equal(t, counter.View{Count: 3, Level: 3000}, f.renderer.last(1))

	added, err = f.svc.Activate(t.Context(), 2)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = f.svc.Activate(t.Context(), 2)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, f.timer.arms)
	assert.Equal(t, []int{1, 2}, f.svc.Surfaces())
}

func TestRemoveCancelsOnLastSurface(t *testing.T) {
	f := newFixture(t, counter.State{}, at("2025-06-20", 9))
	for _, id := range []int{1, 2} {
		_, err := f.svc.Activate(t.Context(), id)
		require.NoError(t, err)
	}

	removed, err := f.svc.Remove(t.Context(), 1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, counter.Armed, f.svc.SchedulerState())
	assert.Equal(t, 0, f.timer.cancels)

	removed, err = f.svc.Remove(t.Context(), 2)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, counter.Idle, f.svc.SchedulerState())
	_, ok := f.timer.get(counter.ResetJobName)
	assert.False(t, ok)

	removed, err = f.svc.Remove(t.Context(), 2)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, f.timer.cancels)
}

func TestReactivationRearms(t *testing.T) {
	f := newFixture(t, counter.State{}, at("2025-06-20", 9))
	_, err := f.svc.Activate(t.Context(), 1)
	require.NoError(t, err)
	_, err = f.svc.Remove(t.Context(), 1)
	require.NoError(t, err)
	_, err = f.svc.Activate(t.Context(), 4)
	require.NoError(t, err)

	assert.Equal(t, counter.Armed, f.svc.SchedulerState())
	assert.Equal(t, 2, f.timer.arms)
}

func TestTimerFireResetsAndRearms(t *testing.T) {
	f := newFixture(t, counter.State{Count: 7, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 23))
	for _, id := range []int{1, 2} {
		_, err := f.svc.Activate(t.Context(), id)
		require.NoError(t, err)
	}

	f.clock.Advance(time.Hour)
	f.timer.fire(t, counter.ResetJobName)

	assert.Equal(t, counter.State{Count: 0, LastUpdateDate: "2025-06-21"}, f.state(t))
	assert.Equal(t, counter.View{}, f.renderer.last(1))
	assert.Equal(t, counter.View{}, f.renderer.last(2))
	assert.Equal(t, counter.Armed, f.svc.SchedulerState())

	a, ok := f.timer.get(counter.ResetJobName)
	require.True(t, ok, "re-armed for the following midnight")
	assert.Equal(t, 24*time.Hour, a.delay)
}

func TestFireResetArmFailureReported(t *testing.T) {
	f := newFixture(t, counter.State{Count: 1, LastUpdateDate: "2025-06-20"}, at("2025-06-21", 0))
	f.timer.err = errors.New("scheduler stopped")

	err := f.svc.FireReset(t.Context())
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryScheduler))
	assert.Equal(t, counter.State{Count: 0, LastUpdateDate: "2025-06-21"}, f.state(t), "reset is still persisted")
}

func TestArmFailureIsNotWrappedTwice(t *testing.T) {
	f := newFixture(t, counter.State{}, at("2025-06-20", 12))
	schedErr := derrors.SchedulerFailed(counter.ResetJobName, errors.New("start must not be in the past"))
	f.timer.err = schedErr

	_, err := f.svc.Activate(t.Context(), 1)
	require.Error(t, err)
	require.ErrorIs(t, err, schedErr)
	assert.Equal(t, 1, strings.Count(err.Error(), "scheduler operation failed"))
}

func TestManualResetLeavesTimer(t *testing.T) {
	f := newFixture(t, counter.State{Count: 4, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 12))
	_, err := f.svc.Activate(t.Context(), 1)
	require.NoError(t, err)

	v, err := f.svc.Reset(t.Context())
	require.NoError(t, err)

	assert.Equal(t, counter.View{}, v)
	assert.Equal(t, counter.State{Count: 0, LastUpdateDate: "2025-06-20"}, f.state(t))
	assert.Equal(t, counter.View{}, f.renderer.last(1))
	assert.Equal(t, 1, f.timer.arms)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, counter.State{Count: 5, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 12))
	_, err := f.svc.Activate(t.Context(), 1)
	require.NoError(t, err)

	v, err := f.svc.Refresh(t.Context(), 9)
	require.NoError(t, err)
	assert.Equal(t, counter.View{Count: 5, Level: 5000}, v)
	assert.Equal(t, v, f.renderer.last(9))

	f.clock.Advance(24 * time.Hour)
	v, err = f.svc.Refresh(t.Context())
	require.NoError(t, err)
	assert.Equal(t, counter.View{}, v, "stale state draws zero")
	assert.Equal(t, counter.View{}, f.renderer.last(1))
}

func TestSetGoalRedraws(t *testing.T) {
	f := newFixture(t, counter.State{Count: 5, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 12))
	_, err := f.svc.Activate(t.Context(), 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.SetGoal(t.Context(), 4))
	assert.Equal(t, counter.Goal(4), f.svc.Goal())
	assert.Equal(t, counter.View{Count: 5, Level: counter.MaxLevel}, f.renderer.last(1))

	require.Error(t, f.svc.SetGoal(t.Context(), 0))
	assert.Equal(t, counter.Goal(4), f.svc.Goal())
}

func TestLastView(t *testing.T) {
	f := newFixture(t, counter.State{Count: 2, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 12))
	_, err := f.svc.Activate(t.Context(), 3)
	require.NoError(t, err)

	v, ok := f.svc.LastView(3)
	require.True(t, ok)
	assert.Equal(t, counter.View{Count: 2, Level: 2000}, v)

	_, err = f.svc.Remove(t.Context(), 3)
	require.NoError(t, err)
	_, ok = f.svc.LastView(3)
	assert.False(t, ok)
}

func TestHistoryRecordsMutations(t *testing.T) {
	history, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = history.Close() }()

	f := newFixture(t, counter.State{}, at("2025-06-20", 12), WithHistory(history))
	_, err = f.svc.Tap(t.Context())
	require.NoError(t, err)
	_, err = f.svc.Reset(t.Context())
	require.NoError(t, err)

	events, err := history.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, eventstore.KindReset, events[0].Kind)
	assert.Equal(t, "manual", events[0].Outcome)
	assert.Equal(t, eventstore.KindTap, events[1].Kind)
	assert.Equal(t, "rollover", events[1].Outcome)
	assert.Equal(t, 1, events[1].Count)
}

func TestScheduledResetIsRecordedAsScheduled(t *testing.T) {
	history, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = history.Close() }()

	f := newFixture(t, counter.State{Count: 3, LastUpdateDate: "2025-06-20"}, at("2025-06-21", 0), WithHistory(history))
	require.NoError(t, f.svc.FireReset(t.Context()))

	events, err := history.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventstore.KindReset, events[0].Kind)
	assert.Equal(t, "scheduled", events[0].Outcome)
	assert.Equal(t, "2025-06-21", events[0].Day)
}

func TestConcurrentTapsAreSerialised(t *testing.T) {
	f := newFixture(t, counter.State{Count: 0, LastUpdateDate: "2025-06-20"}, at("2025-06-20", 12), WithGoal(100))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Tap(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, f.state(t).Count)
}

func TestViewCacheIsAlwaysUpdated(t *testing.T) {
	svc := New(storage.NewMemoryStore(), WithClock(clockwork.NewFakeClockAt(at("2025-06-20", 12))), WithLocation(time.UTC))
	_, err := svc.Activate(t.Context(), 1)
	require.NoError(t, err)
	_, err = svc.Tap(t.Context())
	require.NoError(t, err)

	v, ok := svc.LastView(1)
	require.True(t, ok)
	assert.Equal(t, 1, v.Count)
}
