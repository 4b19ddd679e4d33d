package loader

import (
	"context"
	"image"
	"iter"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle stage of one request.
type State int

const (
	// Pending requests are waiting for a gate slot or for their first image.
	Pending State = iota
	// Streaming requests have produced at least one image.
	Streaming
	// Completed requests delivered their final image.
	Completed
	// Failed requests ended with an ExternalError.
	Failed
	// Cancelled requests were abandoned by the consumer.
	Cancelled
	// Violated requests ended because the provider broke its contract.
	Violated
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	case Violated:
		return "violated"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s >= Completed
}

// Result is one element of a sequence.
type Result struct {
	Image image.Image

	// Degraded is true for every element except the last one of a completed sequence.
	Degraded bool
}

// Sequence is the lazily pulled output of one Load call. It owns the request
// driving it: at most one gate slot, one provider submission.
//
// A Sequence is meant to be consumed by one goroutine; Close and State may be
// called from any goroutine.
type Sequence struct {
	id       string
	resource ResourceID
	params   Params
	loader   *Loader
	logger   *slog.Logger
	started  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	items chan Result   // size 1; the provider blocks until the consumer pulls
	done  chan struct{} // closed on the terminal transition

	mu        sync.Mutex
	state     State
	err       error
	held      bool // a gate slot is held
	submitted bool
	token     CancelToken
}

// ID returns the request id used in logs.
func (s *Sequence) ID() string {
	return s.id
}

// Resource returns the resource being loaded.
func (s *Sequence) Resource() ResourceID {
	return s.resource
}

// State returns the current lifecycle stage.
func (s *Sequence) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the request reached a terminal state and released its slot.
func (s *Sequence) Done() <-chan struct{} {
	return s.done
}

// Next returns the next result. It returns ok=false once the sequence is
// over, together with nil after the final image, an *ExternalError, or
// ErrCanceled. Results already buffered before a failure are returned first.
//
// If ctx ends while Next is waiting, the sequence is abandoned as by Close.
// Next panics with a *ContractViolation if the provider broke its contract.
func (s *Sequence) Next(ctx context.Context) (Result, bool, error) {
	select {
	case res := <-s.items:
		return res, true, nil
	case <-s.done:
		return s.drain()
	case <-ctx.Done():
		s.abandon()
		return s.drain()
	}
}

// Close abandons the sequence: the provider submission is canceled and the
// gate slot released. Closing a finished sequence does nothing.
func (s *Sequence) Close() error {
	s.abandon()
	return nil
}

// All returns an iterator over the remaining results. A terminal error is
// yielded once as the final pair. Stopping the iteration early closes the
// sequence.
func (s *Sequence) All(ctx context.Context) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		for {
			res, ok, err := s.Next(ctx)
			if !ok {
				if err != nil {
					yield(Result{}, err)
				}
				return
			}
			if !yield(res, nil) {
				s.Close()
				return
			}
		}
	}
}

// drain returns whatever is left after the terminal transition.
func (s *Sequence) drain() (Result, bool, error) {
	s.mu.Lock()
	state, err := s.state, s.err
	s.mu.Unlock()

	if state != Cancelled {
		select {
		case res := <-s.items:
			return res, true, nil
		default:
		}
	}
	if state == Violated {
		panic(err)
	}
	return Result{}, false, err
}

// run drives the request: slot, submission, then wait for the end.
func (s *Sequence) run() {
	g := s.loader.gate
	if err := g.Acquire(s.ctx); err != nil {
		s.finish(Cancelled, ErrCanceled)
		return
	}

	s.mu.Lock()
	if s.state.Terminal() {
		// Abandoned while the slot was being granted.
		s.mu.Unlock()
		g.Release()
		return
	}
	s.held = true
	s.mu.Unlock()

	s.logger.Debug("submitting", "in_use", g.InUse())
	token := s.loader.provider.Submit(s.resource, s.params, s.deliver)

	s.mu.Lock()
	s.token = token
	s.submitted = true
	abandoned := s.state == Cancelled
	s.mu.Unlock()
	if abandoned {
		s.loader.provider.Cancel(token)
	}

	select {
	case <-s.done:
	case <-s.ctx.Done():
		s.abandon()
	}
}

// deliver is the callback handed to the provider.
func (s *Sequence) deliver(d Delivery) {
	if d.Cancelled {
		return
	}
	select {
	case <-s.done:
		return
	default:
	}

	if d.Err != nil {
		s.finish(Failed, &ExternalError{Resource: s.resource, Err: d.Err})
		return
	}
	if d.Image == nil {
		if d.Degraded {
			return
		}
		s.finish(Violated, &ContractViolation{
			Resource: s.resource,
			Reason:   "final delivery carried neither an image nor an error",
		})
		return
	}

	s.mu.Lock()
	if s.state == Pending {
		s.state = Streaming
	}
	s.mu.Unlock()

	select {
	case s.items <- Result{Image: d.Image, Degraded: d.Degraded}:
	case <-s.done:
		return
	}

	if d.Degraded {
		s.loader.recordPartial()
		return
	}
	s.finish(Completed, nil)
}

// abandon is the cancellation hook. It wins only if the request is not
// already terminal.
func (s *Sequence) abandon() {
	s.mu.Lock()
	won := s.finishLocked(Cancelled, ErrCanceled)
	token, submitted := s.token, s.submitted
	s.mu.Unlock()

	if !won {
		return
	}
	if submitted {
		s.loader.provider.Cancel(token)
	}
	s.loader.record(s, Cancelled, ErrCanceled)
}

// finish moves to a terminal state unless one was already reached.
func (s *Sequence) finish(state State, err error) {
	s.mu.Lock()
	won := s.finishLocked(state, err)
	s.mu.Unlock()

	if won {
		s.loader.record(s, state, err)
	}
}

// finishLocked performs the single terminal transition: it records the
// outcome, releases the slot if one is held and wakes the consumer.
// Must be called with s.mu held.
func (s *Sequence) finishLocked(state State, err error) bool {
	if s.state.Terminal() {
		return false
	}
	s.state = state
	s.err = err
	if s.held {
		s.held = false
		s.loader.gate.Release()
	}
	s.cancel()
	close(s.done)
	return true
}
