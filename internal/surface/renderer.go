package surface

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	"git.home.luguber.info/inful/watertracker/internal/logfields"
)

// Renderer redraws a single surface.
type Renderer interface {
	Render(ctx context.Context, id int, v counter.View) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, id int, v counter.View) error

func (f RendererFunc) Render(ctx context.Context, id int, v counter.View) error { return f(ctx, id, v) }

// LogRenderer writes each redraw to a slog logger.
type LogRenderer struct {
	Logger *slog.Logger
}

func (l LogRenderer) Render(ctx context.Context, id int, v counter.View) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Surface redrawn",
		logfields.SurfaceID(id),
		logfields.Count(v.Count),
		logfields.Level(v.Level))
	return nil
}

// ViewCache remembers the last view drawn on every surface.
type ViewCache struct {
	mu    sync.RWMutex
	views map[int]counter.View
}

func NewViewCache() *ViewCache {
	return &ViewCache{views: make(map[int]counter.View)}
}

func (c *ViewCache) Render(_ context.Context, id int, v counter.View) error {
	c.mu.Lock()
	c.views[id] = v
	c.mu.Unlock()
	return nil
}

// Get returns the last view drawn on id.
func (c *ViewCache) Get(id int) (counter.View, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.views[id]
	return v, ok
}

// Forget drops the cached view of a removed surface.
func (c *ViewCache) Forget(id int) {
	c.mu.Lock()
	delete(c.views, id)
	c.mu.Unlock()
}

// Multi renders to every renderer and joins their errors.
type Multi []Renderer

func (m Multi) Render(ctx context.Context, id int, v counter.View) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(ctx, id, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Broadcast redraws every surface active in reg with v. Per-surface failures
// are logged and do not stop the fan-out. It returns how many surfaces
// rendered successfully and how many failed.
func Broadcast(ctx context.Context, reg *Registry, r Renderer, v counter.View) (ok, failed int) {
	return RenderAll(ctx, reg.IDs(), r, v)
}

// RenderAll redraws the given ids with v.
func RenderAll(ctx context.Context, ids []int, r Renderer, v counter.View) (ok, failed int) {
	for _, id := range ids {
		if err := r.Render(ctx, id, v); err != nil {
			failed++
			slog.WarnContext(ctx, "Surface redraw failed", logfields.SurfaceID(id), logfields.Error(err))
			continue
		}
		ok++
	}
	return ok, failed
}
