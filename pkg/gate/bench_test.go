package gate

import (
	"context"
	"fmt"
	"testing"
)

// BenchmarkAcquireRelease measures the uncontended fast path
func BenchmarkAcquireRelease(b *testing.B) {
	g := New(1000)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if g.Acquire(ctx) == nil {
				g.Release()
			}
		}
	})
}

// BenchmarkDo measures the scoped helper
func BenchmarkDo(b *testing.B) {
	g := New(1000)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = g.Do(ctx, noop)
		}
	})
}

// BenchmarkContended measures handoff when callers outnumber slots
func BenchmarkContended(b *testing.B) {
	for _, capacity := range []int{1, 4, 20} {
		b.Run(fmt.Sprintf("Capacity-%d", capacity), func(b *testing.B) {
			g := New(capacity)
			ctx := context.Background()

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if g.Acquire(ctx) == nil {
						g.Release()
					}
				}
			})
		})
	}
}

// BenchmarkInstrumented measures the overhead of the metrics wrapper
func BenchmarkInstrumented(b *testing.B) {
	g := NewWithMetrics(1000, "bench")
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if g.Acquire(ctx) == nil {
			g.Release()
		}
	}
}
