// Package poll provides a scheduled-refresh primitive: fetch a resource
// immediately, then again on a fixed interval, until a terminal condition is
// observed or the context is cancelled.
//
// Concurrency model: Run executes fetches sequentially in the calling
// goroutine. Cancellation is checked after every fetch completes, so a
// response that arrives once the owner has torn the loop down is discarded
// rather than delivered. A late result never mutates state the caller no
// longer owns.
package poll

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// DefaultInterval is the refresh cadence used by every call site in the
// system.
const DefaultInterval = 5 * time.Second

// Sentinel configuration errors.
var (
	ErrNoFetch    = errors.New("poll: fetch function is required")
	ErrNoSink     = errors.New("poll: update sink is required")
	ErrNoInterval = errors.New("poll: interval must be positive")
)

// FetchFunc loads the current state of the watched resource.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Config describes one refresh loop.
type Config[T any] struct {
	// Fetch loads the resource. Required.
	Fetch FetchFunc[T]
	// Interval between refreshes. Required.
	Interval time.Duration
	// Terminal, when set, stops the loop once a fetched value satisfies it.
	// List-refresh call sites leave it nil and poll until cancelled.
	Terminal func(T) bool
	// OnUpdate receives every successfully fetched value. Required.
	OnUpdate func(T)
	// OnError receives transient fetch failures after the first fetch. The
	// loop keeps running; the next tick is the retry. Optional.
	OnError func(error)
}

// Refresher runs one scheduled refresh loop.
type Refresher[T any] struct {
	cfg Config[T]
}

// New validates the configuration and builds a Refresher.
func New[T any](cfg Config[T]) (*Refresher[T], error) {
	if cfg.Fetch == nil {
		return nil, ErrNoFetch
	}
	if cfg.OnUpdate == nil {
		return nil, ErrNoSink
	}
	if cfg.Interval <= 0 {
		return nil, ErrNoInterval
	}
	return &Refresher[T]{cfg: cfg}, nil
}

// Run blocks until the loop ends. It fetches once immediately; a failure of
// that first fetch is a load failure and is returned to the caller, who may
// retry. Subsequent failures go to OnError and do not stop the loop.
//
// Run returns nil when a terminal value was observed, ctx.Err() on
// cancellation, and the wrapped fetch error only for the first fetch.
func (r *Refresher[T]) Run(ctx context.Context) error {
	v, err := r.cfg.Fetch(ctx)
	if cErr := ctx.Err(); cErr != nil {
		// Torn down while the first fetch was in flight: discard the result.
		return cErr
	}
	if err != nil {
		return errors.Wrap(err, "initial fetch")
	}
	r.cfg.OnUpdate(v)
	if r.cfg.Terminal != nil && r.cfg.Terminal(v) {
		return nil
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		v, err := r.cfg.Fetch(ctx)
		if cErr := ctx.Err(); cErr != nil {
			return cErr
		}
		if err != nil {
			if r.cfg.OnError != nil {
				r.cfg.OnError(err)
			}
			continue
		}
		r.cfg.OnUpdate(v)
		if r.cfg.Terminal != nil && r.cfg.Terminal(v) {
			return nil
		}
	}
}
