package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/watertracker/internal/config"
	"git.home.luguber.info/inful/watertracker/internal/counter"
	"git.home.luguber.info/inful/watertracker/internal/eventstore"
	"git.home.luguber.info/inful/watertracker/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.Store.Backend = config.BackendMemory
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.Metrics.Enabled = true
	return cfg
}

func startDaemon(t *testing.T, d *Daemon) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx) }()
	require.Eventually(t, func() bool { return d.GetStatus() == StatusRunning }, 5*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		require.NoError(t, d.Stop(stopCtx))
		cancel()
		require.NoError(t, <-errCh)
	})
}

func TestDaemonLifecycle(t *testing.T) {
	store := storage.NewMemoryStoreWith(counter.State{Count: 4, LastUpdateDate: time.Now().UTC().Format(counter.DateLayout)})
	d, err := New(t.Context(), testConfig(t), "", WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, d.GetStatus())
	startDaemon(t, d)

	base := "http://" + d.Addr()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPut, base+"/api/surfaces/1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, counter.Armed, d.Tracker().SchedulerState())

	resp, err = http.Post(base+"/api/tap", "application/json", nil)
	require.NoError(t, err)
	var view counter.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	_ = resp.Body.Close()
	assert.Equal(t, 5, view.Count)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/api/history")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDaemonStartTwiceFails(t *testing.T) {
	d, err := New(t.Context(), testConfig(t), "")
	require.NoError(t, err)
	startDaemon(t, d)

	err = d.Start(t.Context())
	require.Error(t, err)
}

func TestDaemonRejectsBadTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timezone = "Mars/Olympus"
	_, err := New(t.Context(), cfg, "")
	require.Error(t, err)
}

func TestReloadConfigAppliesGoal(t *testing.T) {
	d, err := New(t.Context(), testConfig(t), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.closeResources() })

	next := testConfig(t)
	next.Goal = 8
	require.NoError(t, d.ReloadConfig(t.Context(), next))
	assert.Equal(t, counter.Goal(8), d.Tracker().Goal())
	assert.Equal(t, 8, d.GetConfig().Goal)

	bad := testConfig(t)
	bad.Goal = -1
	require.Error(t, d.ReloadConfig(t.Context(), bad))
	assert.Equal(t, 8, d.GetConfig().Goal, "rolled back")
}

func TestPruneRemovesOldHistory(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(t)
	cfg.History.RetentionDays = 30

	seed, err := eventstore.NewSQLiteStore(cfg.History.Path)
	require.NoError(t, err)
	old := counter.State{Count: 1, LastUpdateDate: "2025-01-01"}
	require.NoError(t, seed.Append(t.Context(), eventstore.NewTapEvent(old, counter.OutcomeRollover, now.AddDate(0, -5, 0))))
	recent := counter.State{Count: 1, LastUpdateDate: "2025-06-19"}
	require.NoError(t, seed.Append(t.Context(), eventstore.NewTapEvent(recent, counter.OutcomeRollover, now.AddDate(0, 0, -1))))
	require.NoError(t, seed.Close())

	d, err := New(t.Context(), cfg, "", WithClock(clockwork.NewFakeClockAt(now)))
	require.NoError(t, err)
	startDaemon(t, d)

	events, err := d.history.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2025-06-19", events[0].Day)
}

// crossMidnight advances clock to just past midnight, waits for the reset
// to land in store and for the next reset to be armed.
func crossMidnight(t *testing.T, d *Daemon, clock *clockwork.FakeClock, store storage.Store, midnight, following time.Time) {
	t.Helper()
	pendingAt := func(want time.Time) func() bool {
		return func() bool {
			// The clock keeps ticking while the reset re-arms, so allow a
			// few seconds of slack past the target.
			next, ok := d.scheduler.Pending(counter.ResetJobName)
			return ok && !next.Before(want) && next.Sub(want) < time.Minute
		}
	}
	require.Eventually(t, pendingAt(midnight), 5*time.Second, 10*time.Millisecond)

	clock.Advance(midnight.Sub(clock.Now()) - time.Second)
	day := counter.Today(midnight)
	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		st, err := store.Get(t.Context())
		return err == nil && st == counter.State{Count: 0, LastUpdateDate: day}
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, pendingAt(following), 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, d.scheduler.Count(counter.ResetJobName))
	assert.Equal(t, counter.Armed, d.Tracker().SchedulerState())
	view, ok := d.Tracker().LastView(1)
	require.True(t, ok)
	assert.Equal(t, counter.View{}, view)
}

func TestDaemonMidnightResetRearms(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 20, 22, 0, 0, 0, time.UTC))
	store := storage.NewMemoryStoreWith(counter.State{Count: 3, LastUpdateDate: "2025-06-20"})
	d, err := New(t.Context(), testConfig(t), "", WithClock(clock), WithStore(store))
	require.NoError(t, err)
	startDaemon(t, d)

	_, err = d.Tracker().Activate(t.Context(), 1)
	require.NoError(t, err)

	first := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)
	second := time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC)
	third := time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC)
	crossMidnight(t, d, clock, store, first, second)

	_, err = d.Tracker().Tap(t.Context())
	require.NoError(t, err)
	crossMidnight(t, d, clock, store, second, third)
}

func TestDaemonMidnightResetAcrossSkippedMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 9, 7, 12, 0, 0, 0, loc))
	store := storage.NewMemoryStoreWith(counter.State{Count: 2, LastUpdateDate: "2024-09-07"})
	cfg := testConfig(t)
	cfg.Timezone = "America/Santiago"
	d, err := New(t.Context(), cfg, "", WithClock(clock), WithStore(store))
	require.NoError(t, err)
	startDaemon(t, d)

	_, err = d.Tracker().Activate(t.Context(), 1)
	require.NoError(t, err)

	// 2024-09-08 starts at 01:00 -03 because 00:00 does not exist.
	jump := time.Date(2024, 9, 8, 0, 0, 0, 0, time.FixedZone("-04", -4*3600))
	following := time.Date(2024, 9, 9, 0, 0, 0, 0, loc)
	crossMidnight(t, d, clock, store, jump, following)
}

type recordingReloader struct {
	mu    sync.Mutex
	goals []int
}

func (r *recordingReloader) ReloadConfig(_ context.Context, cfg *config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goals = append(r.goals, cfg.Goal)
	return nil
}

func (r *recordingReloader) last() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.goals) == 0 {
		return 0
	}
	return r.goals[len(r.goals)-1]
}

func TestConfigWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watertracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("goal: 10\nstore:\n  backend: memory\n"), 0o600))

	target := &recordingReloader{}
	cw, err := NewConfigWatcher(path, target)
	require.NoError(t, err)
	cw.SetDebounce(20 * time.Millisecond)
	require.NoError(t, cw.Start(t.Context()))
	t.Cleanup(func() { _ = cw.Stop(context.Background()) })

	require.NoError(t, os.WriteFile(path, []byte("goal: 6\nstore:\n  backend: memory\n"), 0o600))
	require.Eventually(t, func() bool { return target.last() == 6 }, 5*time.Second, 20*time.Millisecond)
}

func TestConfigWatcherIgnoresInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watertracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("goal: 10\n"), 0o600))

	target := &recordingReloader{}
	cw, err := NewConfigWatcher(path, target)
	require.NoError(t, err)
	cw.SetDebounce(10 * time.Millisecond)
	require.NoError(t, cw.Start(t.Context()))
	t.Cleanup(func() { _ = cw.Stop(context.Background()) })

	require.NoError(t, os.WriteFile(path, []byte("goal: 0\nstore:\n  backend: tape\n"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, target.last())
}
