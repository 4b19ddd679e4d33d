package redisstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoding
	_ "image/jpeg" // register JPEG decoding
	_ "image/png"  // register PNG decoding
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	gfcontext "github.com/vnykmshr/imgflow/pkg/common/context"
	gferrors "github.com/vnykmshr/imgflow/pkg/common/errors"
	"github.com/vnykmshr/imgflow/pkg/common/validation"
	"github.com/vnykmshr/imgflow/pkg/loader"
)

// ErrNotFound is reported when no image is stored for a resource.
var ErrNotFound = errors.New("redisstore: image not found")

// Config holds configuration for a Store.
type Config struct {
	// Redis client holding the encoded images
	Redis redis.UniversalClient

	// KeyPrefix is prepended to every resource id
	KeyPrefix string

	// RedisTimeout bounds each Redis read and write
	RedisTimeout time.Duration

	// RequestsPerSecond throttles image reads across all submissions.
	// Zero means unlimited.
	RequestsPerSecond float64

	// Burst is the number of reads allowed at once when throttled.
	Burst int

	// MaxThrottleWait bounds how long a read waits for the throttle. A read
	// that would wait longer fails with errors.ErrRateLimited. Zero means no bound.
	MaxThrottleWait time.Duration

	// Logger receives fetch diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a default store configuration. Redis must still be set.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:    "imgflow:image",
		RedisTimeout: 500 * time.Millisecond,
		Burst:        1,
	}
}

// Store is a loader.Provider serving encoded images from Redis.
//
// The full image lives at <prefix>:<id>. An optional low resolution preview
// at <prefix>:<id>:preview is delivered first as a degraded image when the
// request allows one.
type Store struct {
	config  Config
	limiter *rate.Limiter // nil when unthrottled
	logger  *slog.Logger

	mu       sync.Mutex
	next     loader.CancelToken
	inflight map[loader.CancelToken]context.CancelFunc
	closed   bool
	busy     int        // fetches doing Redis work, not blocked in a callback
	idle     *sync.Cond // signalled when busy drops to zero
}

var (
	_ loader.Provider                   = (*Store)(nil)
	_ loader.SecondaryDegradedSupporter = (*Store)(nil)
)

// New creates a store reading from config.Redis.
func New(config Config) (*Store, error) {
	if err := validation.ValidateNotNil("redisstore", "redis", config.Redis); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("redisstore", "requests_per_second", config.RequestsPerSecond); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("redisstore", "burst", float64(config.Burst)); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("redisstore", "max_throttle_wait", config.MaxThrottleWait.Seconds()); err != nil {
		return nil, err
	}

	defaults := DefaultConfig()
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.RedisTimeout == 0 {
		config.RedisTimeout = defaults.RedisTimeout
	}
	if config.Burst == 0 {
		config.Burst = defaults.Burst
	}

	s := &Store{
		config:   config,
		logger:   config.Logger,
		inflight: make(map[loader.CancelToken]context.CancelFunc),
	}
	s.idle = sync.NewCond(&s.mu)
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if config.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}
	return s, nil
}

// Key returns the Redis key of the full image for id.
func (s *Store) Key(id loader.ResourceID) string {
	return s.config.KeyPrefix + ":" + string(id)
}

// PreviewKey returns the Redis key of the preview image for id.
func (s *Store) PreviewKey(id loader.ResourceID) string {
	return s.Key(id) + ":preview"
}

// Put stores the encoded full image for id.
func (s *Store) Put(ctx context.Context, id loader.ResourceID, encoded []byte) error {
	return s.set(ctx, s.Key(id), encoded)
}

// PutPreview stores the encoded preview image for id.
func (s *Store) PutPreview(ctx context.Context, id loader.ResourceID, encoded []byte) error {
	return s.set(ctx, s.PreviewKey(id), encoded)
}

// Delete removes the full and preview images for id.
func (s *Store) Delete(ctx context.Context, id loader.ResourceID) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RedisTimeout)
	defer cancel()

	if err := s.config.Redis.Del(ctx, s.Key(id), s.PreviewKey(id)).Err(); err != nil {
		return gferrors.NewOperationError("redisstore", "delete", err).WithContext(string(id))
	}
	return nil
}

func (s *Store) set(ctx context.Context, key string, encoded []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RedisTimeout)
	defer cancel()

	if err := s.config.Redis.Set(ctx, key, encoded, 0).Err(); err != nil {
		return gferrors.NewOperationError("redisstore", "put", err).WithContext(key)
	}
	return nil
}

// SupportsSecondaryDegraded reports that previews can always be served.
func (s *Store) SupportsSecondaryDegraded() bool {
	return true
}

// Submit implements loader.Provider. The fetch runs on its own goroutine.
func (s *Store) Submit(id loader.ResourceID, params loader.Params, callback func(loader.Delivery)) loader.CancelToken {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.next++
	token := s.next
	if s.closed {
		s.mu.Unlock()
		cancel()
		go callback(loader.Delivery{Err: gferrors.ErrClosed})
		return token
	}
	s.inflight[token] = cancel
	s.busy++
	s.mu.Unlock()

	go s.fetch(ctx, token, id, params, callback)
	return token
}

// Cancel implements loader.Provider. The canceled fetch reports one final
// delivery flagged Cancelled. Unknown or finished tokens are ignored.
func (s *Store) Cancel(token loader.CancelToken) {
	s.mu.Lock()
	cancel, ok := s.inflight[token]
	delete(s.inflight, token)
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

// Close cancels all in-flight fetches and waits until none of them is
// still reading from Redis. It does not wait for a fetch blocked inside its
// callback, for instance on a consumer that stopped pulling; such a fetch
// returns without touching Redis again once the callback does.
// Later submissions fail with errors.ErrClosed. The Redis client is not closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for token, cancel := range s.inflight {
		cancel()
		delete(s.inflight, token)
	}
	for s.busy > 0 {
		s.idle.Wait()
	}
	return nil
}

// leave marks the calling fetch as no longer doing Redis work.
func (s *Store) leave() {
	s.mu.Lock()
	s.busy--
	if s.busy == 0 {
		s.idle.Broadcast()
	}
	s.mu.Unlock()
}

func (s *Store) enter() {
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()
}

// report hands d to callback without counting the fetch as busy, so a
// blocked consumer cannot stall Close.
func (s *Store) report(callback func(loader.Delivery), d loader.Delivery) {
	s.leave()
	defer s.enter()
	callback(d)
}

func (s *Store) fetch(ctx context.Context, token loader.CancelToken, id loader.ResourceID, params loader.Params, callback func(loader.Delivery)) {
	defer s.leave()
	defer s.forget(token)

	logger := s.logger.With("resource", string(id), "token", int64(token))

	wantPreview := params.Delivery != loader.HighQuality || params.AllowSecondaryDegraded
	if wantPreview {
		img, err := s.load(ctx, s.PreviewKey(id))
		switch {
		case err == nil && params.Delivery == loader.FastFormat:
			// A fast format request is satisfied by the preview alone.
			s.report(callback, loader.Delivery{Image: img})
			return
		case err == nil:
			s.report(callback, loader.Delivery{Image: img, Degraded: true})
		case gfcontext.IsCanceled(ctx):
			s.report(callback, loader.Delivery{Cancelled: true})
			return
		case !errors.Is(err, ErrNotFound):
			logger.Debug("preview unavailable", "error", err)
		}
	}

	img, err := s.load(ctx, s.Key(id))
	switch {
	case gfcontext.IsCanceled(ctx):
		s.report(callback, loader.Delivery{Cancelled: true})
	case err != nil:
		logger.Debug("fetch failed", "error", err)
		s.report(callback, loader.Delivery{Err: err})
	default:
		s.report(callback, loader.Delivery{Image: img})
	}
}

// load reads and decodes the image stored at key.
func (s *Store) load(ctx context.Context, key string) (image.Image, error) {
	if gfcontext.IsCanceled(ctx) {
		return nil, ctx.Err()
	}
	if err := s.throttle(ctx, key); err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, s.config.RedisTimeout)
	defer cancel()

	data, err := s.config.Redis.Get(rctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		if gfcontext.IsCanceled(ctx) {
			return nil, ctx.Err()
		}
		if gfcontext.IsTimedOut(rctx) || isTimeout(err) {
			err = fmt.Errorf("%w after %v: %w", gferrors.ErrTimeout, s.config.RedisTimeout, err)
		}
		return nil, gferrors.NewOperationError("redisstore", "get", err).WithContext(key)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, gferrors.NewOperationError("redisstore", "decode", err).WithContext(key)
	}
	return img, nil
}

// throttle waits for the read limiter, at most MaxThrottleWait.
func (s *Store) throttle(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}

	wctx := ctx
	if s.config.MaxThrottleWait > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, s.config.MaxThrottleWait)
		defer cancel()
	}

	if err := s.limiter.Wait(wctx); err != nil {
		if gfcontext.IsCanceled(ctx) {
			return ctx.Err()
		}
		return gferrors.NewOperationError("redisstore", "throttle",
			fmt.Errorf("%w: %w", gferrors.ErrRateLimited, err)).WithContext(key)
	}
	return nil
}

// isTimeout reports whether err is a network or context timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}

func (s *Store) forget(token loader.CancelToken) {
	s.mu.Lock()
	delete(s.inflight, token)
	s.mu.Unlock()
}
