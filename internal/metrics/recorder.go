package metrics

// ResultLabel enumerates redraw result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Reset triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Recorder defines observability hooks for the counter. Implementations
// may forward to Prometheus or any other backend.
type Recorder interface {
	IncTap(outcome string)   // outcome: same_day|rollover|wrap
	IncReset(trigger string) // trigger: scheduled|manual
	IncRedraw(result ResultLabel)
	SetCount(n int)
	SetSchedulerArmed(armed bool)
	SetSurfaces(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncTap(string)          {}
func (NoopRecorder) IncReset(string)        {}
func (NoopRecorder) IncRedraw(ResultLabel)  {}
func (NoopRecorder) SetCount(int)           {}
func (NoopRecorder) SetSchedulerArmed(bool) {}
func (NoopRecorder) SetSurfaces(int)        {}
