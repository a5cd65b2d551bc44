package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Combiner folds the outputs of several stages run against the same input
// into one value. Outputs arrive indexed by stage position, so combiners
// can rely on a stable order regardless of completion order.
type Combiner[Out, Final any] func(ctx context.Context, outputs []Out) (Final, error)

// fanout runs each member stage on the same input concurrently and combines
// the results. The first member error cancels the remaining members and is
// returned as-is.
type fanout[In, Out, Final any] struct {
	members []Stage[In, Out]
	combine Combiner[Out, Final]
}

// Fanout builds a stage that invokes every member on each input value in
// parallel and reduces their outputs with combine.
func Fanout[In, Out, Final any](combine Combiner[Out, Final], members ...Stage[In, Out]) Stage[In, Final] {
	return fanout[In, Out, Final]{members: members, combine: combine}
}

func (f fanout[In, Out, Final]) Invoke(ctx context.Context, input In) (Final, error) {
	outputs := make([]Out, len(f.members))
	g, gctx := errgroup.WithContext(ctx)
	for i, member := range f.members {
		i, member := i, member
		g.Go(func() error {
			out, err := member.Invoke(gctx, input)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var zero Final
		return zero, err
	}
	return f.combine(ctx, outputs)
}

func (f fanout[In, Out, Final]) Transform(ctx context.Context, in <-chan Item[In]) <-chan Item[Final] {
	return TransformEach(ctx, in, f.Invoke)
}
