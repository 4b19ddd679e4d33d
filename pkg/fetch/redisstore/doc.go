/*
Package redisstore provides a loader.Provider that serves encoded images
stored in Redis.

Images are kept as raw PNG, JPEG or GIF bytes. The full image of a resource
lives at <prefix>:<id>; an optional preview lives at <prefix>:<id>:preview.

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	store, err := redisstore.New(redisstore.Config{
		Redis:             rdb,
		KeyPrefix:         "photos",
		RequestsPerSecond: 200,
		Burst:             20,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	l, err := loader.New(store, loader.DefaultConfig())

Delivery:

With HighQuality delivery and secondary degraded images disallowed, only
the full image is read. Otherwise the preview, when present, is delivered
first as a degraded image. FastFormat requests are answered by the preview
alone when one exists.

A missing full image ends the submission with ErrNotFound. Redis and decode
failures are reported as *errors.OperationError.

Cancellation:

Cancel aborts the Redis read or throttle wait of a submission, which then
reports a single delivery flagged Cancelled.
*/
package redisstore
