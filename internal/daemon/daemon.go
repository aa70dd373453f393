// Package daemon assembles the long-running watertracker process: the counter
// store, the reset scheduler, the tracker service, the HTTP API and the
// configuration watcher.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/watertracker/internal/config"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/eventstore"
	"git.home.luguber.info/inful/watertracker/internal/logfields"
	"git.home.luguber.info/inful/watertracker/internal/metrics"
	"git.home.luguber.info/inful/watertracker/internal/scheduler"
	"git.home.luguber.info/inful/watertracker/internal/server/handlers"
	"git.home.luguber.info/inful/watertracker/internal/server/httpserver"
	"git.home.luguber.info/inful/watertracker/internal/storage"
	"git.home.luguber.info/inful/watertracker/internal/surface"
	"git.home.luguber.info/inful/watertracker/internal/tracker"
)

// PruneJobName names the daily history retention job.
const PruneJobName = "history_prune"

// pruneSchedule runs shortly after the midnight reset.
const pruneSchedule = "15 0 * * *"

// Status represents the current state of the daemon
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Option configures a Daemon.
type Option func(*Daemon)

// WithClock drives both the scheduler and the tracker from c.
func WithClock(c clockwork.Clock) Option { return func(d *Daemon) { d.clock = c } }

// WithLogger sets the daemon logger.
func WithLogger(l *slog.Logger) Option { return func(d *Daemon) { d.logger = l } }

// WithStore uses st instead of opening the configured backend.
func WithStore(st storage.Store) Option { return func(d *Daemon) { d.store = st } }

// Daemon represents the main daemon service
type Daemon struct {
	config         *config.Config
	configFilePath string
	status         atomic.Value // Status
	startTime      time.Time
	stopChan       chan struct{}
	mu             sync.RWMutex

	clock    clockwork.Clock
	logger   *slog.Logger
	registry *prom.Registry

	// Core components
	store         storage.Store
	history       *eventstore.SQLiteStore
	closers       []io.Closer
	scheduler     *scheduler.Scheduler
	tracker       *tracker.Service
	httpServer    *httpserver.Server
	configWatcher *ConfigWatcher
}

// New builds every component from cfg. configFilePath enables hot reload
// when non-empty.
func New(ctx context.Context, cfg *config.Config, configFilePath string, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, derrors.DaemonError("configuration is required")
	}
	d := &Daemon{
		config:         cfg,
		configFilePath: configFilePath,
		stopChan:       make(chan struct{}),
		clock:          clockwork.NewRealClock(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.status.Store(StatusStopped)

	if err := d.init(ctx); err != nil {
		_ = d.closeResources()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) init(ctx context.Context) error {
	cfg := d.config
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if d.store == nil {
		st, err := storage.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		d.store = st
	}

	var history handlers.History
	trackerOpts := []tracker.Option{
		tracker.WithClock(d.clock),
		tracker.WithLocation(loc),
		tracker.WithGoal(cfg.DailyGoal()),
		tracker.WithLogger(d.logger),
	}
	if cfg.History.Enabled {
		h, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return err
		}
		d.history = h
		history = h
		trackerOpts = append(trackerOpts, tracker.WithHistory(h))
	}

	renderer, err := d.buildRenderers()
	if err != nil {
		return err
	}
	if renderer != nil {
		trackerOpts = append(trackerOpts, tracker.WithRenderer(renderer))
	}

	if cfg.Metrics.Enabled {
		d.registry = prom.NewRegistry()
		trackerOpts = append(trackerOpts, tracker.WithRecorder(metrics.NewPrometheusRecorder(d.registry)))
	}

	sched, err := scheduler.New(
		scheduler.WithClock(d.clock),
		scheduler.WithLocation(loc),
		scheduler.WithLogger(d.logger),
	)
	if err != nil {
		return err
	}
	d.scheduler = sched
	trackerOpts = append(trackerOpts, tracker.WithTimer(sched))

	d.tracker = tracker.New(d.store, trackerOpts...)

	srvOpts := httpserver.Options{
		Addr:    cfg.HTTP.Addr,
		Counter: d.tracker,
		History: history,
		Logger:  d.logger,
	}
	if d.registry != nil {
		srvOpts.Metrics = metrics.HTTPHandler(d.registry)
	}
	d.httpServer = httpserver.New(srvOpts)

	if d.configFilePath != "" {
		cw, err := NewConfigWatcher(d.configFilePath, d)
		if err != nil {
			d.logger.Warn("Config watcher unavailable", logfields.Error(err))
		} else {
			d.configWatcher = cw
		}
	}
	return nil
}

func (d *Daemon) buildRenderers() (surface.Renderer, error) {
	var rs surface.Multi
	if d.config.Surfaces.Log {
		rs = append(rs, surface.LogRenderer{Logger: d.logger})
	}
	if pub := d.config.Surfaces.NATS; pub.Enabled {
		nr, err := surface.NewNATSRenderer(pub.URL, pub.Subject)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, nr)
		rs = append(rs, nr)
	}
	if len(rs) == 0 {
		return nil, nil
	}
	return rs, nil
}

// Start runs the daemon until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.GetStatus() != StatusStopped {
		d.mu.Unlock()
		return derrors.DaemonError(fmt.Sprintf("daemon is not in stopped state: %s", d.GetStatus()))
	}

	d.status.Store(StatusStarting)
	d.startTime = d.clock.Now()
	d.logger.Info("Starting watertracker daemon",
		logfields.Backend(string(d.config.Store.Backend)),
		logfields.Goal(d.config.Goal))

	d.scheduler.Start(ctx)

	if err := d.schedulePrune(ctx, d.config.History); err != nil {
		d.logger.Error("Failed to schedule history prune", logfields.Error(err))
	}

	if err := d.httpServer.Start(ctx); err != nil {
		d.status.Store(StatusError)
		d.mu.Unlock()
		return err
	}

	if d.configWatcher != nil {
		if err := d.configWatcher.Start(ctx); err != nil {
			d.logger.Error("Failed to start config watcher", logfields.Error(err))
		}
	}

	d.status.Store(StatusRunning)
	d.logger.Info("Watertracker daemon started", slog.String("addr", d.httpServer.Addr()))
	d.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-d.stopChan:
	}
	return nil
}

// schedulePrune runs once immediately and then daily. The caller holds d.mu.
func (d *Daemon) schedulePrune(ctx context.Context, hc config.HistoryConfig) error {
	if d.history == nil || hc.RetentionDays <= 0 {
		return nil
	}
	d.prune(ctx, hc)
	_, err := d.scheduler.ScheduleCron(PruneJobName, pruneSchedule, func() {
		d.prune(context.Background(), d.GetConfig().History)
	})
	return err
}

func (d *Daemon) prune(ctx context.Context, hc config.HistoryConfig) {
	if hc.RetentionDays <= 0 {
		return
	}
	cutoff := hc.RetentionCutoff(d.clock.Now())
	n, err := d.history.Prune(ctx, cutoff)
	if err != nil {
		d.logger.Error("History prune failed", logfields.Error(err))
		return
	}
	d.logger.Info("History pruned", slog.Int64("removed", n), slog.Time("before", cutoff))
}

// Stop gracefully shuts down the daemon
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.GetStatus()
	if current == StatusStopped || current == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)
	d.logger.Info("Stopping watertracker daemon")

	select {
	case <-d.stopChan:
	default:
		close(d.stopChan)
	}

	var errs []error
	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if d.httpServer != nil {
		if err := d.httpServer.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.closeResources(); err != nil {
		errs = append(errs, err)
	}

	d.status.Store(StatusStopped)
	d.logger.Info("Watertracker daemon stopped", slog.Duration("uptime", d.clock.Since(d.startTime)))
	return errors.Join(errs...)
}

func (d *Daemon) closeResources() error {
	var errs []error
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Error("Failed to close history", logfields.Error(err))
			errs = append(errs, err)
		}
		d.history = nil
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Error("Failed to close store", logfields.Error(err))
			errs = append(errs, err)
		}
		d.store = nil
	}
	return errors.Join(errs...)
}

// GetStatus returns the current daemon status
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// GetStartTime returns when Start was last called.
func (d *Daemon) GetStartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Tracker exposes the running tracker service.
func (d *Daemon) Tracker() *tracker.Service { return d.tracker }

// Addr returns the bound HTTP address.
func (d *Daemon) Addr() string { return d.httpServer.Addr() }

// ReloadConfig applies the settings that can change at runtime. Store,
// address and timezone changes need a restart and are only logged.
func (d *Daemon) ReloadConfig(ctx context.Context, newConfig *config.Config) error {
	d.mu.Lock()
	old := d.config
	d.config = newConfig
	d.mu.Unlock()

	if old.Store != newConfig.Store {
		d.logger.Warn("Store configuration changed; restart required to apply")
	}
	if old.HTTP.Addr != newConfig.HTTP.Addr {
		d.logger.Warn("HTTP address changed; restart required to apply")
	}
	if old.Timezone != newConfig.Timezone {
		d.logger.Warn("Timezone changed; restart required to apply")
	}

	if err := d.tracker.SetGoal(ctx, newConfig.DailyGoal()); err != nil {
		d.mu.Lock()
		d.config = old // Rollback
		d.mu.Unlock()
		return err
	}
	return nil
}
