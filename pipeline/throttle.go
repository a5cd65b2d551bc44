package pipeline

import (
	"context"

	"golang.org/x/time/rate"
)

// throttled is an identity stage that paces item flow through a shared rate
// limiter. Used to keep a pipeline from hammering a downstream collaborator
// with per-token chunks.
type throttled[T any] struct {
	limiter *rate.Limiter
}

// Throttle returns an identity stage that waits on limiter before passing
// each value through, in both single-value and streaming modes.
func Throttle[T any](limiter *rate.Limiter) Stage[T, T] {
	return throttled[T]{limiter: limiter}
}

func (t throttled[T]) Invoke(ctx context.Context, input T) (T, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return input, nil
}

func (t throttled[T]) Transform(ctx context.Context, in <-chan Item[T]) <-chan Item[T] {
	return TransformEach(ctx, in, t.Invoke)
}
