package stages

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textflow-ai/textflow/llm"
	"github.com/textflow-ai/textflow/pipeline"
)

// resultMessage satisfies both the completion and message capabilities. The
// dispatch must resolve it through the completion rule: message content and
// output text deliberately differ so a shadowing bug is visible.
type resultMessage struct{}

func (resultMessage) OutputText() string    { return "result rule" }
func (resultMessage) ContentString() string { return "message rule" }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			name:  "nil input",
			input: nil,
			want:  "",
		},
		{
			name: "completion result",
			input: &llm.CompletionResult{
				Generations: []llm.Generation{{Text: "Hello, world"}},
			},
			want: "Hello, world",
		},
		{
			name:  "completion result without generations",
			input: &llm.CompletionResult{},
			want:  "",
		},
		{
			name: "completion result uses first generation",
			input: &llm.CompletionResult{
				Generations: []llm.Generation{{Text: "first"}, {Text: "second"}},
			},
			want: "first",
		},
		{
			name: "chat result",
			input: &llm.ChatResult{
				Message: llm.Message{Role: "assistant", Content: "Hi there"},
			},
			want: "Hi there",
		},
		{
			name:  "message",
			input: llm.Message{Role: "user", Content: "How are you?"},
			want:  "How are you?",
		},
		{
			name:  "document verbatim",
			input: llm.Document{PageContent: "  raw page text\n"},
			want:  "  raw page text\n",
		},
		{
			name:  "plain string unchanged",
			input: "already text",
			want:  "already text",
		},
		{
			name:  "number",
			input: 42,
			want:  "42",
		},
		{
			name:  "float",
			input: 1.5,
			want:  "1.5",
		},
		{
			name:  "arbitrary struct",
			input: struct{ A, B int }{1, 2},
			want:  "{1 2}",
		},
		{
			name:  "dual capability resolves via completion rule",
			input: resultMessage{},
			want:  "result rule",
		},
		{
			name:  "typed nil completion result",
			input: (*llm.CompletionResult)(nil),
			want:  "",
		},
		{
			name:  "typed nil chat result",
			input: (*llm.ChatResult)(nil),
			want:  "",
		},
		{
			name:  "typed nil message pointer",
			input: (*llm.Message)(nil),
			want:  "",
		},
		{
			name:  "typed nil document pointer",
			input: (*llm.Document)(nil),
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

// Normalizing already-normalized text must be a fixed point.
func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize(llm.Message{Content: "stable"})
	assert.Equal(t, once, Normalize(once))
}

func TestInvokeNeverFails(t *testing.T) {
	s := NewStringOutput()
	for _, input := range []any{nil, (*llm.CompletionResult)(nil), 42, llm.Document{PageContent: "x"}, make(chan int)} {
		out, err := s.Invoke(context.Background(), input)
		require.NoError(t, err)
		assert.IsType(t, "", out)
	}
}

func TestTransformMapsItemsInOrder(t *testing.T) {
	s := NewStringOutput()
	ctx := context.Background()

	// At least 5 mixed-type inputs, per the ordering contract.
	inputs := []any{
		&llm.CompletionResult{Generations: []llm.Generation{{Text: "one"}}},
		llm.Message{Content: "two"},
		llm.Document{PageContent: "three"},
		4,
		"five",
		&llm.ChatResult{Message: llm.Message{Content: "six"}},
	}

	got, err := pipeline.Collect(ctx, s.Transform(ctx, pipeline.Emit(ctx, inputs...)))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three", "4", "five", "six"}, got)
}

// Output items must become available before the input sequence completes:
// the non-reducing mode is a lazy 1:1 mapping, not a batch.
func TestTransformIsIncremental(t *testing.T) {
	s := NewStringOutput()
	ctx := context.Background()

	in := make(chan pipeline.Item[any])
	out := s.Transform(ctx, in)

	in <- pipeline.Item[any]{Value: "first"}
	got := <-out
	require.NoError(t, got.Err)
	assert.Equal(t, "first", got.Value)

	in <- pipeline.Item[any]{Value: "second"}
	got = <-out
	require.NoError(t, got.Err)
	assert.Equal(t, "second", got.Value)

	close(in)
	_, ok := <-out
	assert.False(t, ok, "output must close when input closes")
}

func TestTransformForwardsUpstreamErrors(t *testing.T) {
	s := NewStringOutput()
	ctx := context.Background()
	upstream := fmt.Errorf("connection reset")

	items := []pipeline.Item[any]{
		{Value: "ok"},
		{Err: upstream},
	}

	out := s.Transform(ctx, pipeline.EmitItems(ctx, items...))

	first := <-out
	require.NoError(t, first.Err)
	assert.Equal(t, "ok", first.Value)

	second := <-out
	assert.Same(t, upstream, second.Err, "the originating failure must arrive intact")
}

func TestTransformReduce(t *testing.T) {
	ctx := context.Background()

	t.Run("concatenates all items into one", func(t *testing.T) {
		s := NewStringOutput(WithReduceOutputStream(true))
		got, err := pipeline.Collect(ctx, s.Transform(ctx, pipeline.Emit[any](ctx, "A", "B", "C")))
		require.NoError(t, err)
		assert.Equal(t, []string{"ABC"}, got)
	})

	t.Run("mixed types concatenate via normalization", func(t *testing.T) {
		s := NewStringOutput(WithReduceOutputStream(true))
		inputs := []any{
			llm.Message{Content: "Hel"},
			&llm.CompletionResult{Generations: []llm.Generation{{Text: "lo "}}},
			llm.Document{PageContent: "world"},
		}
		got, err := pipeline.Collect(ctx, s.Transform(ctx, pipeline.Emit(ctx, inputs...)))
		require.NoError(t, err)
		assert.Equal(t, []string{"Hello world"}, got)
	})

	t.Run("empty input emits nothing", func(t *testing.T) {
		s := NewStringOutput(WithReduceOutputStream(true))
		got, err := pipeline.Collect(ctx, s.Transform(ctx, pipeline.Emit[any](ctx)))
		require.NoError(t, err)
		assert.Empty(t, got, "a reduction over zero elements yields no result")
	})

	t.Run("nothing is emitted before input completes", func(t *testing.T) {
		s := NewStringOutput(WithReduceOutputStream(true))
		in := make(chan pipeline.Item[any])
		out := s.Transform(ctx, in)

		in <- pipeline.Item[any]{Value: "A"}
		in <- pipeline.Item[any]{Value: "B"}
		select {
		case item := <-out:
			t.Fatalf("got %+v before the input sequence completed", item)
		default:
		}

		close(in)
		item := <-out
		require.NoError(t, item.Err)
		assert.Equal(t, "AB", item.Value)
	})

	t.Run("upstream error aborts the reduction", func(t *testing.T) {
		s := NewStringOutput(WithReduceOutputStream(true))
		upstream := fmt.Errorf("stream broke")
		items := []pipeline.Item[any]{
			{Value: "A"},
			{Err: upstream},
			{Value: "B"},
		}
		got, err := pipeline.Collect(ctx, s.Transform(ctx, pipeline.EmitItems(ctx, items...)))
		assert.Same(t, upstream, err)
		assert.Empty(t, got, "no partial reduction may be emitted")
	})
}

func TestTransformStopsOnCancel(t *testing.T) {
	for _, reduce := range []bool{false, true} {
		name := "map"
		if reduce {
			name = "reduce"
		}
		t.Run(name, func(t *testing.T) {
			s := NewStringOutput(WithReduceOutputStream(reduce))
			ctx, cancel := context.WithCancel(context.Background())

			in := make(chan pipeline.Item[any])
			out := s.Transform(ctx, in)

			in <- pipeline.Item[any]{Value: "x"}
			cancel()

			// The stage must stop reading the abandoned input and close its
			// output instead of draining forever.
			for range out {
			}
		})
	}
}
