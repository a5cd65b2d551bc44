// Package pipeline provides the composable stage framework used throughout
// textflow. A stage is invoked either on a single value or on a lazy stream
// of values; stages compose with Pipe so that any stage can run after any
// other stage producing its input type.
package pipeline

import "context"

// Item is one element of a stream: either a value or the error the upstream
// producer hit while reading. A stream delivers items in FIFO order on an
// unbuffered channel and closes the channel when the sequence ends.
type Item[T any] struct {
	Value T
	Err   error
}

// Stage is the contract every pipeline stage implements.
//
// Invoke processes a single value. It must not retain input or output across
// calls; any per-stage state is fixed at construction.
//
// Transform consumes a stream and produces a stream. Implementations must
// close the returned channel when the input closes, forward items in input
// order, and stop reading the input when ctx is cancelled so an abandoned
// upstream producer is not drained forever.
type Stage[In, Out any] interface {
	Invoke(ctx context.Context, input In) (Out, error)
	Transform(ctx context.Context, in <-chan Item[In]) <-chan Item[Out]
}

// StageFunc adapts a plain function into a Stage. Transform applies the
// function item by item: one output per input, lazily, with input errors
// forwarded in position.
type StageFunc[In, Out any] func(ctx context.Context, input In) (Out, error)

// Invoke calls the function.
func (f StageFunc[In, Out]) Invoke(ctx context.Context, input In) (Out, error) {
	return f(ctx, input)
}

// Transform maps the stream 1:1 through the function.
func (f StageFunc[In, Out]) Transform(ctx context.Context, in <-chan Item[In]) <-chan Item[Out] {
	return TransformEach(ctx, in, f)
}

// TransformEach is the canonical 1:1 streaming loop: each input item is
// mapped as soon as it arrives, input errors pass through at their position,
// and a mapping error replaces the item that caused it. Cancellation of ctx
// stops both reading and sending.
func TransformEach[In, Out any](ctx context.Context, in <-chan Item[In], f func(ctx context.Context, input In) (Out, error)) <-chan Item[Out] {
	out := make(chan Item[Out])
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-in:
				if !ok {
					return
				}
				var next Item[Out]
				if item.Err != nil {
					next = Item[Out]{Err: item.Err}
				} else {
					v, err := f(ctx, item.Value)
					if err != nil {
						next = Item[Out]{Err: err}
					} else {
						next = Item[Out]{Value: v}
					}
				}
				select {
				case <-ctx.Done():
					return
				case out <- next:
				}
			}
		}
	}()
	return out
}
