package pipeline

import "context"

// Emit turns a slice into a stream. The channel closes after the last
// element, or early when ctx is cancelled. Intended for tests and for
// adapting batch inputs to streaming stages.
func Emit[T any](ctx context.Context, values ...T) <-chan Item[T] {
	out := make(chan Item[T])
	go func() {
		defer close(out)
		for _, v := range values {
			select {
			case <-ctx.Done():
				return
			case out <- Item[T]{Value: v}:
			}
		}
	}()
	return out
}

// EmitItems is Emit for pre-built items, allowing error items to be placed
// at chosen positions.
func EmitItems[T any](ctx context.Context, items ...Item[T]) <-chan Item[T] {
	out := make(chan Item[T])
	go func() {
		defer close(out)
		for _, it := range items {
			select {
			case <-ctx.Done():
				return
			case out <- it:
			}
		}
	}()
	return out
}

// Collect drains a stream into a slice. It stops at the first error item and
// returns the values received before it together with that error. A nil
// error means the stream closed normally.
func Collect[T any](ctx context.Context, in <-chan Item[T]) ([]T, error) {
	var values []T
	for {
		select {
		case <-ctx.Done():
			return values, ctx.Err()
		case item, ok := <-in:
			if !ok {
				return values, nil
			}
			if item.Err != nil {
				return values, item.Err
			}
			values = append(values, item.Value)
		}
	}
}
