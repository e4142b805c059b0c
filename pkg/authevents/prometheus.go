package authevents

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/guardkit/pkg/guard"
)

// MetricsConfig configures the Prometheus sink.
type MetricsConfig struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
	Registry    prometheus.Registerer
}

type MetricsOption func(*MetricsConfig)

func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithRegistry sets the registerer. Defaults to prometheus.DefaultRegisterer.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

// Prometheus counts guard events.
type Prometheus struct {
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewPrometheus registers the counters and returns the sink. Registering
// twice on the same registry panics.
func NewPrometheus(opts ...MetricsOption) *Prometheus {
	cfg := MetricsConfig{
		Namespace: "guardkit",
		Subsystem: "auth",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)
	return &Prometheus{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "events_total",
			Help:        "Guard events by name.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"event", "guard", "driver", "via_remember"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "failures_total",
			Help:        "Failed authentication attempts by reason.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"guard", "driver", "reason"}),
	}
}

func (p *Prometheus) Emit(_ context.Context, e guard.Event) {
	via := "false"
	if e.ViaRemember {
		via = "true"
	}
	p.events.WithLabelValues(e.Name, e.Guard, e.Driver, via).Inc()

	if e.Name != guard.EventFailed {
		return
	}
	reason := "error"
	if errors.Is(e.Err, guard.ErrUnauthorized) {
		reason = "unauthorized"
	}
	p.failures.WithLabelValues(e.Guard, e.Driver, reason).Inc()
}
