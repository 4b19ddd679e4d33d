// Package metrics provides Prometheus instrumentation for imgflow components.
//
// # Overview
//
// Gates and loaders record into a Registry when metrics are enabled:
//   - Gate slots held, queued callers, acquisitions and wait time
//   - Loader requests by outcome, partial deliveries, in-flight requests and duration
//
// # Quick Start
//
//	g := gate.NewWithConfigAndMetrics(gate.Config{Capacity: 20}, "decode", metrics.DefaultConfig())
//
//	l, err := loader.New(provider, loader.Config{
//		Gate:    g,
//		Name:    "thumbnails",
//		Metrics: metrics.DefaultConfig(),
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Available Metrics
//
//   - imgflow_gate_in_use{gate_name}: Number of gate slots currently held
//   - imgflow_gate_waiting{gate_name}: Number of callers queued for a gate slot
//   - imgflow_gate_acquires_total{gate_name,result}: Slot acquisitions ("acquired", "canceled")
//   - imgflow_gate_wait_duration_seconds{gate_name}: Time spent waiting for a slot
//   - imgflow_loader_requests_total{loader_name,outcome}: Requests by outcome
//     ("completed", "failed", "cancelled", "violated")
//   - imgflow_loader_partials_total{loader_name}: Degraded results delivered
//   - imgflow_loader_in_flight{loader_name}: Requests not yet terminal
//   - imgflow_loader_duration_seconds{loader_name,outcome}: Request lifetime
//
// # Custom Registry
//
// Several components may share one registerer; collectors with identical
// descriptors are reused rather than registered twice.
//
//	reg := prometheus.NewRegistry()
//	cfg := metrics.Config{Enabled: true, Registry: reg, Namespace: "photos"}
//
// # Runtime Control
//
// Components implementing Instrumentable can toggle collection:
//
//	g.(metrics.Instrumentable).DisableMetrics()
package metrics
