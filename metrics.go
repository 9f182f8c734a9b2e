package sidecarssr

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records dispatch outcomes and remote render latency.
type Metrics struct {
	dispatches *prometheus.CounterVec
	latency    prometheus.Histogram
	coldStarts prometheus.Counter
}

// NewMetrics registers the gateway collectors on reg. Collectors that are
// already registered (a second gateway in the same process) are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sidecar_ssr",
			Name:      "dispatches_total",
			Help:      "SSR dispatches by terminal state.",
		}, []string{"state"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sidecar_ssr",
			Name:      "render_duration_seconds",
			Help:      "Wall time of remote render calls, failures included.",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		coldStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sidecar_ssr",
			Name:      "cold_starts_total",
			Help:      "Successful renders that paid a Lambda init phase.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.dispatches, err = register(reg, m.dispatches); err != nil {
		return nil, err
	}
	if m.latency, err = register(reg, m.latency); err != nil {
		return nil, err
	}
	if m.coldStarts, err = register(reg, m.coldStarts); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observe(outcome Outcome, elapsed time.Duration, coldStart bool) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(outcome.State.String()).Inc()
	if outcome.State == StateDisabled || outcome.State == StateMisconfigured {
		return
	}
	m.latency.Observe(elapsed.Seconds())
	if coldStart {
		m.coldStarts.Inc()
	}
}
