// Package metrics provides Prometheus instrumentation for imgflow components.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metric instances for imgflow components.
type Registry struct {
	// Gate Metrics
	GateInUse        *prometheus.GaugeVec
	GateWaiting      *prometheus.GaugeVec
	GateAcquires     *prometheus.CounterVec
	GateWaitDuration *prometheus.HistogramVec

	// Loader Metrics
	LoaderRequests *prometheus.CounterVec
	LoaderPartials *prometheus.CounterVec
	LoaderInFlight *prometheus.GaugeVec
	LoaderDuration *prometheus.HistogramVec
}

// DefaultRegistry is the default metrics registry used by imgflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer
// using the default namespace.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{
		Enabled:   true,
		Registry:  reg,
		Namespace: DefaultNamespace,
	})
}

// NewRegistryWithConfig creates a metrics registry honoring the namespace and
// constant labels in config. Collectors already registered on the same
// registerer under the same descriptors are reused, so several components may
// share one registerer.
func NewRegistryWithConfig(config Config) *Registry {
	reg := config.Registry
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	labels := config.Labels

	return &Registry{
		GateInUse: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "gate",
				Name:        "in_use",
				Help:        "Number of gate slots currently held",
				ConstLabels: labels,
			},
			[]string{"gate_name"},
		)),

		GateWaiting: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "gate",
				Name:        "waiting",
				Help:        "Number of callers queued for a gate slot",
				ConstLabels: labels,
			},
			[]string{"gate_name"},
		)),

		GateAcquires: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "gate",
				Name:        "acquires_total",
				Help:        "Total number of slot acquisitions by result",
				ConstLabels: labels,
			},
			[]string{"gate_name", "result"},
		)),

		GateWaitDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "gate",
				Name:        "wait_duration_seconds",
				Help:        "Time spent waiting for a gate slot",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"gate_name"},
		)),

		LoaderRequests: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "loader",
				Name:        "requests_total",
				Help:        "Total number of load requests by terminal outcome",
				ConstLabels: labels,
			},
			[]string{"loader_name", "outcome"},
		)),

		LoaderPartials: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "loader",
				Name:        "partials_total",
				Help:        "Total number of degraded results delivered to consumers",
				ConstLabels: labels,
			},
			[]string{"loader_name"},
		)),

		LoaderInFlight: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "loader",
				Name:        "in_flight",
				Help:        "Number of load requests not yet in a terminal state",
				ConstLabels: labels,
			},
			[]string{"loader_name"},
		)),

		LoaderDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "loader",
				Name:        "duration_seconds",
				Help:        "Time from load request to terminal state",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"loader_name", "outcome"},
		)),
	}
}

// FromConfig returns the registry a component should record into.
func FromConfig(config Config) *Registry {
	if config.Registry == nil {
		return DefaultRegistry
	}
	return NewRegistryWithConfig(config)
}

// register adds c to reg, returning the already registered collector when an
// identical one exists. A nil registerer leaves c unregistered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic("metrics: " + err.Error())
	}
	return c
}
