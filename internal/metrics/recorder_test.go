package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderInterfaceSatisfied(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = (*PrometheusRecorder)(nil)
}

func TestNoopRecorderDoesNotPanic(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.IncTap("same_day")
		r.IncReset(TriggerScheduled)
		r.IncRedraw(ResultSuccess)
		r.SetCount(3)
		r.SetSchedulerArmed(true)
		r.SetSurfaces(2)
	})
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var p *PrometheusRecorder
	assert.NotPanics(t, func() {
		p.IncTap("wrap")
		p.IncReset(TriggerManual)
		p.IncRedraw(ResultFailed)
		p.SetCount(1)
		p.SetSchedulerArmed(false)
		p.SetSurfaces(0)
	})
}
