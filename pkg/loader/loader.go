package loader

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	gfcontext "github.com/vnykmshr/imgflow/pkg/common/context"
	gferrors "github.com/vnykmshr/imgflow/pkg/common/errors"
	"github.com/vnykmshr/imgflow/pkg/common/validation"
	"github.com/vnykmshr/imgflow/pkg/gate"
	"github.com/vnykmshr/imgflow/pkg/metrics"
)

// DefaultCapacity is the number of concurrent decodes a loader allows when
// no gate or capacity is configured.
const DefaultCapacity = 20

// Config holds configuration for a Loader.
type Config struct {
	// Capacity bounds concurrent submissions when Gate is nil.
	// Zero means DefaultCapacity.
	Capacity int

	// Gate, if set, is used instead of a private gate. Loaders sharing a gate
	// share its concurrency budget.
	Gate gate.Gate

	// Name labels the loader in logs and metrics.
	Name string

	// Logger receives request lifecycle logs. A logger attached to the
	// context passed to Load takes precedence. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics controls Prometheus instrumentation. Disabled by default.
	Metrics metrics.Config
}

// DefaultConfig returns a default loader configuration.
func DefaultConfig() Config {
	return Config{
		Capacity: DefaultCapacity,
		Name:     "default",
	}
}

// Loader runs image fetches through a Provider, never letting more of them
// hold a gate slot at once than the gate allows.
type Loader struct {
	provider Provider
	gate     gate.Gate
	name     string
	logger   *slog.Logger

	registry *metrics.Registry // nil when metrics are disabled
}

// New creates a loader for provider.
func New(provider Provider, config Config) (*Loader, error) {
	if err := validation.ValidateNotNil("loader", "provider", provider); err != nil {
		return nil, err
	}

	g := config.Gate
	if g == nil {
		capacity := config.Capacity
		if capacity == 0 {
			capacity = DefaultCapacity
		}
		var err error
		if g, err = gate.NewSafe(capacity); err != nil {
			return nil, err
		}
	}

	name := config.Name
	if name == "" {
		name = DefaultConfig().Name
	}

	l := &Loader{
		provider: provider,
		gate:     g,
		name:     name,
		logger:   config.Logger,
	}
	if config.Metrics.Enabled {
		l.registry = metrics.FromConfig(config.Metrics)
	}
	return l, nil
}

// Gate returns the gate bounding this loader's submissions.
func (l *Loader) Gate() gate.Gate {
	return l.gate
}

// Load starts fetching id and returns the sequence of results.
//
// The fetch waits for a gate slot, then submits to the provider. Every image
// the provider reports becomes one element; the non-degraded image is the
// last element. Canceling ctx or closing the sequence cancels the submission
// and ends the sequence with ErrCanceled. The gate slot is released exactly
// once whichever way the request ends.
func (l *Loader) Load(ctx context.Context, id ResourceID, params Params) (*Sequence, error) {
	if err := validation.ValidateNotEmpty("loader", "resource", string(id)); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.AllowSecondaryDegraded {
		if s, ok := l.provider.(SecondaryDegradedSupporter); ok && !s.SupportsSecondaryDegraded() {
			params.AllowSecondaryDegraded = false
		}
	}

	reqID := uuid.NewString()
	logger := gfcontext.Logger(ctx, l.logger).With(
		"loader", l.name,
		"request_id", reqID,
		"resource", string(id),
	)

	seqCtx, cancel := context.WithCancel(ctx)
	s := &Sequence{
		id:       reqID,
		resource: id,
		params:   params,
		loader:   l,
		logger:   logger,
		ctx:      seqCtx,
		cancel:   cancel,
		items:    make(chan Result, 1),
		done:     make(chan struct{}),
		started:  time.Now(),
	}

	if l.registry != nil {
		l.registry.LoaderInFlight.WithLabelValues(l.name).Inc()
	}
	logger.Debug("load requested", "delivery", params.Delivery.String(), "target", params.TargetSize)

	go s.run()
	return s, nil
}

// LoadFinal fetches id and returns only the final image.
//
// Opportunistic delivery is rejected before anything is submitted, since
// its degraded images would be discarded anyway. The rejection is a returned
// *errors.ValidationError, not a panic.
func (l *Loader) LoadFinal(ctx context.Context, id ResourceID, params Params) (image.Image, error) {
	if params.Delivery == Opportunistic {
		return nil, gferrors.NewValidationError("loader", "delivery", params.Delivery.String(), "streaming only").
			WithHint("use Load for opportunistic delivery")
	}

	s, err := l.Load(ctx, id, params)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var (
		last Result
		seen bool
	)
	for {
		res, ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		last, seen = res, true
	}

	if !seen {
		panic(&ContractViolation{Resource: id, Reason: ErrNoResult.Error()})
	}
	return last.Image, nil
}

// record updates metrics and logs for a request reaching a terminal state.
func (l *Loader) record(s *Sequence, state State, err error) {
	elapsed := time.Since(s.started)
	outcome := state.String()

	if l.registry != nil {
		l.registry.LoaderInFlight.WithLabelValues(l.name).Dec()
		l.registry.LoaderRequests.WithLabelValues(l.name, outcome).Inc()
		l.registry.LoaderDuration.WithLabelValues(l.name, outcome).Observe(elapsed.Seconds())
	}

	switch state {
	case Failed:
		s.logger.Warn("load failed", "error", err, "elapsed", elapsed)
	case Violated:
		s.logger.Error("provider contract violated", "error", err)
	default:
		s.logger.Debug("load finished", "outcome", outcome, "elapsed", elapsed)
	}
}

// recordPartial counts a degraded result handed to the consumer.
func (l *Loader) recordPartial() {
	if l.registry != nil {
		l.registry.LoaderPartials.WithLabelValues(l.name).Inc()
	}
}
