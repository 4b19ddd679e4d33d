/*
Package imgflow provides a Go library for loading images with bounded
concurrency and progressively improving results.

Loading (pkg/loader):
  - loader: Streams degraded then final images from a Provider as a pull-based sequence
  - loadertest: Scripted provider for tests and demos

Concurrency (pkg/gate):
  - gate: FIFO counting gate bounding concurrent decodes, with cancellation that never leaks slots

Providers (pkg/fetch):
  - redisstore: Serves encoded images and previews from Redis

Example usage:

	import (
		"github.com/vnykmshr/imgflow/pkg/fetch/redisstore"
		"github.com/vnykmshr/imgflow/pkg/loader"
	)

	store, _ := redisstore.New(redisstore.Config{Redis: rdb})
	l, _ := loader.New(store, loader.Config{Capacity: 20})

	seq, _ := l.Load(ctx, "IMG_0042", loader.DefaultParams(image.Pt(512, 512)))
	defer seq.Close()
	for res, err := range seq.All(ctx) {
		if err != nil {
			break
		}
		show(res.Image, res.Degraded) // degraded previews first, final image last
	}

All components support context cancellation, validate their configuration,
and can export Prometheus metrics through pkg/metrics.
*/
package imgflow
