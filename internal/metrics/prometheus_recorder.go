package metrics

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric.
const Namespace = "watertracker"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once     sync.Once
	taps     *prom.CounterVec
	resets   *prom.CounterVec
	redraws  *prom.CounterVec
	count    prom.Gauge
	armed    prom.Gauge
	surfaces prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.taps = prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "taps_total",
			Help:      "Counter increments by outcome",
		}, []string{"outcome"})
		pr.resets = prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "resets_total",
			Help:      "Counter resets by trigger",
		}, []string{"trigger"})
		pr.redraws = prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "redraws_total",
			Help:      "Surface redraws by result",
		}, []string{"result"})
		pr.count = prom.NewGauge(prom.GaugeOpts{
			Namespace: Namespace,
			Name:      "count",
			Help:      "Current persisted water count",
		})
		pr.armed = prom.NewGauge(prom.GaugeOpts{
			Namespace: Namespace,
			Name:      "scheduler_armed",
			Help:      "1 when the daily reset timer is armed",
		})
		pr.surfaces = prom.NewGauge(prom.GaugeOpts{
			Namespace: Namespace,
			Name:      "surfaces",
			Help:      "Number of active display surfaces",
		})
		reg.MustRegister(pr.taps, pr.resets, pr.redraws, pr.count, pr.armed, pr.surfaces)
	})
	return pr
}

func (p *PrometheusRecorder) IncTap(outcome string) {
	if p == nil || p.taps == nil {
		return
	}
	p.taps.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncReset(trigger string) {
	if p == nil || p.resets == nil {
		return
	}
	p.resets.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) IncRedraw(result ResultLabel) {
	if p == nil || p.redraws == nil {
		return
	}
	p.redraws.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetCount(n int) {
	if p == nil || p.count == nil {
		return
	}
	p.count.Set(float64(n))
}

func (p *PrometheusRecorder) SetSchedulerArmed(armed bool) {
	if p == nil || p.armed == nil {
		return
	}
	v := 0.0
	if armed {
		v = 1
	}
	p.armed.Set(v)
}

func (p *PrometheusRecorder) SetSurfaces(n int) {
	if p == nil || p.surfaces == nil {
		return
	}
	p.surfaces.Set(float64(n))
}
