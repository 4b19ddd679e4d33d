/*
Package gate provides a counting gate that bounds how many expensive
operations, such as image decodes, run at the same time.

A gate holds a fixed number of slots. Acquire takes a slot or queues the
caller; Release hands the slot straight to the oldest queued caller, or
returns it to the free pool when nobody is waiting.

Basic usage:

	g, err := gate.NewSafe(20)
	if err != nil {
		log.Fatal(err)
	}

	err = g.Do(ctx, func(ctx context.Context) error {
		return decode(ctx, asset)
	})

Manual acquire and release:

	if err := g.Acquire(ctx); err != nil {
		return err // ctx canceled while queued, no slot held
	}
	defer g.Release()

Ordering:

Queued callers are served strictly first-in, first-out. TryAcquire never
jumps the queue: it fails while anyone is waiting, even if a slot is about
to be handed over. There is no priority ordering.

Cancellation:

A caller whose context ends while queued is removed from the queue and gets
ctx.Err(). If a slot was handed to it at the same instant, the slot is passed
on to the next waiter, so cancellation never leaks capacity.

Accounting:

At all times Available()+InUse() == Capacity(). Releasing a slot that was
never acquired panics, as does any state that breaks the equation; these are
programming errors and are not silently corrected.

Metrics:

NewWithConfigAndMetrics and Instrument record slot usage, queue length and
wait time through package metrics. Pass metrics.DefaultConfig() to export them
on the default Prometheus registerer. NewWithMetrics records into a private
registry.
*/
package gate
