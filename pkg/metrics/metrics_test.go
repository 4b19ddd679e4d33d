package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Enabled {
		t.Error("default config should be enabled")
	}
	if cfg.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, DefaultNamespace)
	}
	if cfg.Registry != prometheus.DefaultRegisterer {
		t.Error("default config should use prometheus.DefaultRegisterer")
	}
}

func TestNewRegistryWithConfig_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistryWithConfig(Config{Enabled: true, Registry: reg, Namespace: "photos"})

	r.LoaderRequests.WithLabelValues("thumbs", "completed").Add(3)

	expected := `
# HELP photos_loader_requests_total Total number of load requests by terminal outcome
# TYPE photos_loader_requests_total counter
photos_loader_requests_total{loader_name="thumbs",outcome="completed"} 3
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "photos_loader_requests_total"); err != nil {
		t.Fatal(err)
	}
}

func TestNewRegistry_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewRegistry(reg)
	second := NewRegistry(reg)

	if first.GateInUse != second.GateInUse {
		t.Fatal("registries on the same registerer should share collectors")
	}

	first.GateInUse.WithLabelValues("decode").Set(2)
	if got := promtest.ToFloat64(second.GateInUse.WithLabelValues("decode")); got != 2 {
		t.Errorf("shared gauge = %v, want 2", got)
	}
}

func TestNewRegistryWithConfig_ConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistryWithConfig(Config{
		Enabled:  true,
		Registry: reg,
		Labels:   prometheus.Labels{"version": "1.0"},
	})
	r.GateWaiting.WithLabelValues("decode").Set(4)

	expected := `
# HELP imgflow_gate_waiting Number of callers queued for a gate slot
# TYPE imgflow_gate_waiting gauge
imgflow_gate_waiting{gate_name="decode",version="1.0"} 4
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "imgflow_gate_waiting"); err != nil {
		t.Fatal(err)
	}
}

func TestFromConfig(t *testing.T) {
	if FromConfig(Config{Enabled: true}) != DefaultRegistry {
		t.Error("nil registerer should map to DefaultRegistry")
	}

	reg := prometheus.NewRegistry()
	if FromConfig(Config{Enabled: true, Registry: reg}) == DefaultRegistry {
		t.Error("custom registerer should get its own registry")
	}
}

func TestUnregisteredRegistry(t *testing.T) {
	r := NewRegistryWithConfig(Config{Enabled: true})
	r.LoaderPartials.WithLabelValues("x").Inc()
	if got := promtest.ToFloat64(r.LoaderPartials.WithLabelValues("x")); got != 1 {
		t.Errorf("partials = %v, want 1", got)
	}
}
