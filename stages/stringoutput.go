// Package stages provides concrete pipeline stages: model invocation, text
// normalization, and input guards. Stages compose through the pipeline
// package and stay free of transport concerns.
package stages

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/textflow-ai/textflow/llm"
	"github.com/textflow-ai/textflow/pipeline"
)

// StringOutput reduces heterogeneous upstream results to plain text, so
// downstream stages always receive a string regardless of what produced it.
// It accepts completion results, chat results, bare messages, retrieved
// documents, and anything else via a generic fallback.
//
// The stage is stateless apart from its construction-time options and is
// safe for concurrent use.
type StringOutput struct {
	reduce bool
	logger *zap.Logger
}

// StringOutputOption configures a StringOutput stage at construction.
type StringOutputOption func(*StringOutput)

// WithReduceOutputStream controls streaming behavior. When false (the
// default), Transform maps items 1:1. When true, Transform drains the whole
// input stream and emits a single concatenated string once the input ends.
func WithReduceOutputStream(reduce bool) StringOutputOption {
	return func(s *StringOutput) {
		s.reduce = reduce
	}
}

// WithLogger attaches a logger for stream-level debug logging.
func WithLogger(logger *zap.Logger) StringOutputOption {
	return func(s *StringOutput) {
		s.logger = logger
	}
}

// NewStringOutput creates a StringOutput stage. Options are fixed for the
// stage's lifetime.
func NewStringOutput(opts ...StringOutputOption) *StringOutput {
	s := &StringOutput{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize maps any single value to its text form. The dispatch is ordered
// and total: the first matching rule wins and the fallback accepts anything,
// so no input can fail to normalize.
//
// Rule order is a contract, not an accident: a chat result satisfies
// llm.Completion, so conversational results resolve through the completion
// rule even if a variant also carries message content. Reordering these
// cases would silently change which text a dual-capability value yields.
func Normalize(v any) string {
	// A typed nil pointer still satisfies the capability interfaces, but
	// calling their methods would dereference nil. Treat it as empty input.
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ""
	}
	switch r := v.(type) {
	case nil:
		return ""
	case llm.Completion:
		return r.OutputText()
	case llm.ContentMessage:
		return r.ContentString()
	case llm.ContentPage:
		return r.PageText()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Invoke normalizes a single value. It never fails and has no side effects.
func (s *StringOutput) Invoke(ctx context.Context, input any) (string, error) {
	return Normalize(input), nil
}

// Transform normalizes a stream of values.
//
// In the default mode each input item yields one output item in input
// order, available as soon as the input item is. An input error is
// forwarded at its position.
//
// In reduce mode the entire input is drained first; the normalized texts
// are concatenated without separator and emitted as a single item after the
// input closes. An empty input emits nothing: a reduction over zero
// elements has no result. An input error aborts the reduction and is the
// only item emitted. Cancelling ctx stops the drain loop, so an abandoned
// output stream does not keep the stage reading upstream.
func (s *StringOutput) Transform(ctx context.Context, in <-chan pipeline.Item[any]) <-chan pipeline.Item[string] {
	if !s.reduce {
		return pipeline.TransformEach(ctx, in, s.Invoke)
	}

	out := make(chan pipeline.Item[string])
	go func() {
		defer close(out)
		var b strings.Builder
		seen := 0
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-in:
				if !ok {
					if seen == 0 {
						return
					}
					s.logger.Debug("Reduced output stream",
						zap.Int("items", seen),
						zap.Int("bytes", b.Len()),
					)
					select {
					case <-ctx.Done():
					case out <- pipeline.Item[string]{Value: b.String()}:
					}
					return
				}
				if item.Err != nil {
					select {
					case <-ctx.Done():
					case out <- pipeline.Item[string]{Err: item.Err}:
					}
					return
				}
				b.WriteString(Normalize(item.Value))
				seen++
			}
		}
	}()
	return out
}

// Compile-time check that StringOutput composes as a pipeline stage.
var _ pipeline.Stage[any, string] = (*StringOutput)(nil)
