package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/eventstore"
	"git.home.luguber.info/inful/watertracker/internal/server/responses"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
	defaultSummaryDays  = 7
	maxSummaryDays      = 366
)

// Counter is the tracker surface the API drives.
type Counter interface {
	Tap(ctx context.Context) (counter.View, error)
	Reset(ctx context.Context) (counter.View, error)
	Current(ctx context.Context) (counter.Snapshot, error)
	Activate(ctx context.Context, id int) (bool, error)
	Remove(ctx context.Context, id int) (bool, error)
	Refresh(ctx context.Context, ids ...int) (counter.View, error)
	LastView(id int) (counter.View, bool)
	Surfaces() []int
	SchedulerState() counter.SchedulerState
}

// History is the read side of the mutation log.
type History interface {
	Recent(ctx context.Context, limit int) ([]eventstore.Event, error)
	Range(ctx context.Context, start, end time.Time) ([]eventstore.Event, error)
}

// APIHandlers contains the counter and surface handlers.
type APIHandlers struct {
	counter      Counter
	history      History
	now          func() time.Time
	errorAdapter *derrors.HTTPErrorAdapter
}

// NewAPIHandlers creates a new API handlers instance. history may be nil when
// history recording is disabled.
func NewAPIHandlers(c Counter, history History, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		counter:      c,
		history:      history,
		now:          time.Now,
		errorAdapter: derrors.NewHTTPErrorAdapter(logger),
	}
}

func (h *APIHandlers) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSONPretty(w, r, status, v); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.InternalError("failed to write response", err))
	}
}

// HandleTap handles POST /api/tap.
func (h *APIHandlers) HandleTap(w http.ResponseWriter, r *http.Request) {
	v, err := h.counter.Tap(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, responses.ViewResponse{View: v})
}

// HandleReset handles POST /api/reset.
func (h *APIHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	v, err := h.counter.Reset(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, responses.ViewResponse{View: v})
}

// HandleState handles GET /api/state.
func (h *APIHandlers) HandleState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.counter.Current(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, responses.StateResponse{
		Snapshot:  snap,
		Scheduler: h.counter.SchedulerState().String(),
		Surfaces:  h.counter.Surfaces(),
	})
}

// HandleActivateSurface handles PUT /api/surfaces/{id}. Repeating it for an
// active surface redraws that surface only.
func (h *APIHandlers) HandleActivateSurface(w http.ResponseWriter, r *http.Request) {
	id, err := surfaceID(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	added, err := h.counter.Activate(r.Context(), id)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	v, _ := h.counter.LastView(id)
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	h.respond(w, r, status, responses.SurfaceResponse{ID: id, Added: added, View: v})
}

// HandleRemoveSurface handles DELETE /api/surfaces/{id}.
func (h *APIHandlers) HandleRemoveSurface(w http.ResponseWriter, r *http.Request) {
	id, err := surfaceID(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	removed, err := h.counter.Remove(r.Context(), id)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if !removed {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFound("surface").WithContext("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSurface handles GET /api/surfaces/{id}.
func (h *APIHandlers) HandleGetSurface(w http.ResponseWriter, r *http.Request) {
	id, err := surfaceID(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	v, ok := h.counter.LastView(id)
	if !ok {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFound("surface").WithContext("id", id))
		return
	}
	h.respond(w, r, http.StatusOK, responses.SurfaceResponse{ID: id, View: v})
}

// HandleRefresh handles POST /api/surfaces/refresh.
func (h *APIHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	v, err := h.counter.Refresh(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, responses.RefreshResponse{View: v, Surfaces: h.counter.Surfaces()})
}

// HandleHistory handles GET /api/history?limit=N.
func (h *APIHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFound("history"))
		return
	}
	limit, err := queryInt(r, "limit", defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	events, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if events == nil {
		events = []eventstore.Event{}
	}
	h.respond(w, r, http.StatusOK, responses.HistoryResponse{Events: events})
}

// HandleHistoryDays handles GET /api/history/days?days=N.
func (h *APIHandlers) HandleHistoryDays(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFound("history"))
		return
	}
	days, err := queryInt(r, "days", defaultSummaryDays, maxSummaryDays)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	now := h.now()
	events, err := h.history.Range(r.Context(), now.AddDate(0, 0, -days), now)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, responses.DaysResponse{Days: eventstore.Summarize(events)})
}
