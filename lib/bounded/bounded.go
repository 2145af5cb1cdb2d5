// Package bounded runs remote calls against a deadline.
//
// A call that loses the race against its deadline is abandoned: its context is cancelled and
// whatever it eventually returns is dropped. Abandoned calls keep occupying a worker until
// they return, so the pool size caps how many hung requests can pile up.
package bounded

import (
	"context"
	"time"

	"github.com/go-errors/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/raulk/clock"
)

var (
	ErrTimeout    = errors.New("request timed out")
	ErrOverloaded = errors.New("too many requests in flight")
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxInflight = 4
)

type Config struct {
	Timeout     time.Duration
	MaxInflight int
	Clock       clock.Clock
}

type Runner struct {
	pool    *ants.Pool
	clock   clock.Clock
	timeout time.Duration
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = defaultMaxInflight
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	pool, err := ants.NewPool(cfg.MaxInflight, ants.WithNonblocking(true))
	if err != nil {
		return nil, errors.Errorf("create worker pool: %w", err)
	}
	return &Runner{pool: pool, clock: cfg.Clock, timeout: cfg.Timeout}, nil
}

func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

func (r *Runner) Release() {
	r.pool.Release()
}

type result[T any] struct {
	value T
	err   error
}

// Do runs op and returns its result if it completes before the runner's deadline.
// Otherwise it returns ErrTimeout, or ctx.Err() when the caller is cancelled first.
func Do[T any](ctx context.Context, r *Runner, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so an abandoned op can always deliver and exit
	resCh := make(chan result[T], 1)
	err := r.pool.Submit(func() {
		value, err := op(opCtx)
		resCh <- result[T]{value: value, err: err}
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			return zero, ErrOverloaded
		}
		return zero, errors.Errorf("submit request: %w", err)
	}

	timer := r.clock.Timer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-resCh:
		return res.value, res.err
	case <-timer.C:
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
