// Package racex implements the "first settled wins" pattern used for every
// timed remote call in the client: the operation is raced against a deadline,
// whichever finishes first decides the outcome, and the loser's eventual
// result is discarded.
package racex

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut is returned when the deadline fires before the operation
// settles. Callers are expected to surface a friendlier message.
var ErrTimedOut = errors.New("racex: timed out")

type settled[T any] struct {
	value T
	err   error
}

// Run executes fn with a context that is cancelled after timeout. If the
// timer or the parent context wins the race, the operation keeps running in
// its goroutine until its own context check fires, but its result is dropped.
func Run[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the loser can settle without a receiver.
	done := make(chan settled[T], 1)
	go func() {
		v, err := fn(runCtx)
		done <- settled[T]{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case s := <-done:
		return s.value, s.err
	case <-timer.C:
		return zero, ErrTimedOut
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Do is Run for operations with no result value.
func Do(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	_, err := Run(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
