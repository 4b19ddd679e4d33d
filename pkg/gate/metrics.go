package gate

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/imgflow/pkg/metrics"
)

// MetricsGate wraps a Gate with Prometheus metrics collection.
type MetricsGate struct {
	gate Gate
	name string

	mu       sync.RWMutex
	registry *metrics.Registry
	enabled  bool
}

var _ metrics.Instrumentable = (*MetricsGate)(nil)

// NewWithMetrics creates a gate with metrics recorded into a private registry.
func NewWithMetrics(capacity int, name string) Gate {
	return NewWithConfigAndMetrics(Config{Capacity: capacity}, name, metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	})
}

// NewWithConfigAndMetrics creates a gate with custom config and metrics.
// It panics on an invalid config.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) Gate {
	base, err := NewWithConfigSafe(config)
	if err != nil {
		panic("invalid gate configuration: " + err.Error())
	}

	if !metricsConfig.Enabled {
		return base
	}

	return Instrument(base, name, metricsConfig)
}

// Instrument wraps an existing gate so its activity is recorded under name.
func Instrument(g Gate, name string, metricsConfig metrics.Config) *MetricsGate {
	mg := &MetricsGate{
		gate:     g,
		name:     name,
		registry: metrics.FromConfig(metricsConfig),
		enabled:  metricsConfig.Enabled,
	}
	mg.updateMetrics()
	return mg
}

func (mg *MetricsGate) recorder() (*metrics.Registry, bool) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	return mg.registry, mg.enabled
}

// updateMetrics refreshes the state gauges.
func (mg *MetricsGate) updateMetrics() {
	reg, ok := mg.recorder()
	if !ok {
		return
	}
	reg.GateInUse.WithLabelValues(mg.name).Set(float64(mg.gate.InUse()))
	reg.GateWaiting.WithLabelValues(mg.name).Set(float64(mg.gate.Waiting()))
}

// Acquire blocks until a slot is held by the caller or ctx is done.
func (mg *MetricsGate) Acquire(ctx context.Context) error {
	reg, ok := mg.recorder()
	if !ok {
		return mg.gate.Acquire(ctx)
	}

	if mg.gate.TryAcquire() {
		reg.GateAcquires.WithLabelValues(mg.name, "acquired").Inc()
		reg.GateWaitDuration.WithLabelValues(mg.name).Observe(0)
		mg.updateMetrics()
		return nil
	}

	start := time.Now()
	reg.GateWaiting.WithLabelValues(mg.name).Inc()
	err := mg.gate.Acquire(ctx)
	reg.GateWaitDuration.WithLabelValues(mg.name).Observe(time.Since(start).Seconds())

	result := "acquired"
	if err != nil {
		result = "canceled"
	}
	reg.GateAcquires.WithLabelValues(mg.name, result).Inc()
	mg.updateMetrics()

	return err
}

// TryAcquire takes a slot only if one is free and nobody is queued.
func (mg *MetricsGate) TryAcquire() bool {
	acquired := mg.gate.TryAcquire()
	if acquired {
		if reg, ok := mg.recorder(); ok {
			reg.GateAcquires.WithLabelValues(mg.name, "acquired").Inc()
		}
	}
	mg.updateMetrics()
	return acquired
}

// Release returns a slot.
func (mg *MetricsGate) Release() {
	mg.gate.Release()
	mg.updateMetrics()
}

// Do runs fn while holding a slot.
func (mg *MetricsGate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := mg.Acquire(ctx); err != nil {
		return err
	}
	defer mg.Release()
	return fn(ctx)
}

// Capacity returns the total number of slots.
func (mg *MetricsGate) Capacity() int { return mg.gate.Capacity() }

// Available returns the number of free slots.
func (mg *MetricsGate) Available() int { return mg.gate.Available() }

// InUse returns the number of slots currently held.
func (mg *MetricsGate) InUse() int { return mg.gate.InUse() }

// Waiting returns the number of callers queued in Acquire.
func (mg *MetricsGate) Waiting() int { return mg.gate.Waiting() }

// EnableMetrics enables metrics collection.
func (mg *MetricsGate) EnableMetrics(config metrics.Config) error {
	mg.mu.Lock()
	mg.enabled = config.Enabled
	if config.Registry != nil {
		mg.registry = metrics.FromConfig(config)
	}
	mg.mu.Unlock()

	mg.updateMetrics()
	return nil
}

// DisableMetrics disables metrics collection.
func (mg *MetricsGate) DisableMetrics() {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	mg.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mg *MetricsGate) MetricsEnabled() bool {
	_, ok := mg.recorder()
	return ok
}
