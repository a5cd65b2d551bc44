package pipeline

import (
	"context"

	"github.com/eapache/queue/v2"
)

// buffered is an identity stage that decouples producer and consumer pace:
// items are accepted from upstream as fast as they arrive and queued until
// the consumer drains them. Upstream is never blocked by a slow consumer.
type buffered[T any] struct{}

// Buffer returns an identity stage with an unbounded internal FIFO between
// its input and output streams. Ordering is preserved; error items queue
// like any other item.
func Buffer[T any]() Stage[T, T] {
	return buffered[T]{}
}

func (buffered[T]) Invoke(ctx context.Context, input T) (T, error) {
	return input, nil
}

func (buffered[T]) Transform(ctx context.Context, in <-chan Item[T]) <-chan Item[T] {
	out := make(chan Item[T])
	go func() {
		defer close(out)
		pending := queue.New[Item[T]]()
		input := in
		for {
			// Send is only armed while something is queued; a select case
			// on a nil channel never fires.
			var send chan Item[T]
			var head Item[T]
			if pending.Length() > 0 {
				send = out
				head = pending.Peek()
			} else if input == nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case item, ok := <-input:
				if !ok {
					input = nil
					continue
				}
				pending.Add(item)
			case send <- head:
				pending.Remove()
			}
		}
	}()
	return out
}
