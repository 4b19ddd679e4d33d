/*
Package loader fetches images through a callback-style Provider and hands the
results to the caller as a pull-based sequence of progressively better images.

Each Load call waits for a slot on a gate.Gate, submits one request to the
provider and forwards every image the provider reports. Degraded images come
first; the non-degraded image is always the last element of a completed
sequence.

Basic usage:

	l, err := loader.New(provider, loader.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}

	seq, err := l.Load(ctx, "IMG_0042", loader.DefaultParams(image.Pt(512, 512)))
	if err != nil {
		return err
	}
	defer seq.Close()

	for res, err := range seq.All(ctx) {
		if err != nil {
			return err
		}
		show(res.Image, res.Degraded)
	}

Only the final image:

	img, err := l.LoadFinal(ctx, "IMG_0042", params)

LoadFinal rejects Opportunistic delivery, which exists for streaming only.

Cancellation:

Canceling the context passed to Load, canceling the context of a pending Next
call, or calling Close abandons the request. The provider submission is
canceled, the sequence ends with ErrCanceled and the gate slot is released.
Deliveries the provider makes afterwards, including ones flagged Cancelled,
are dropped.

Backpressure:

The bridge between provider callbacks and the consumer buffers one result.
A provider callback blocks until the consumer pulled the previous result or
the request ended.

Errors:

A provider error ends the sequence with an *ExternalError. A final delivery
carrying neither an image nor an error is a contract violation: Next panics
with a *ContractViolation.

Sharing a gate:

Loaders created with the same Config.Gate share one concurrency budget.
Without one each loader gets a private gate of Config.Capacity slots.
*/
package loader
