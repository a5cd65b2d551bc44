package pipeline

import "context"

// piped composes two stages into one. Streaming composition is direct
// channel plumbing: the second stage consumes the first stage's output
// channel, so laziness and cancellation behavior of both stages carry
// through unchanged.
type piped[A, B, C any] struct {
	first  Stage[A, B]
	second Stage[B, C]
}

// Pipe composes two stages so the output of first feeds second. The result
// is itself a Stage and can be piped again.
func Pipe[A, B, C any](first Stage[A, B], second Stage[B, C]) Stage[A, C] {
	return piped[A, B, C]{first: first, second: second}
}

func (p piped[A, B, C]) Invoke(ctx context.Context, input A) (C, error) {
	mid, err := p.first.Invoke(ctx, input)
	if err != nil {
		var zero C
		return zero, err
	}
	return p.second.Invoke(ctx, mid)
}

func (p piped[A, B, C]) Transform(ctx context.Context, in <-chan Item[A]) <-chan Item[C] {
	return p.second.Transform(ctx, p.first.Transform(ctx, in))
}
