package stages

import (
	"context"
	"fmt"

	"github.com/teilomillet/gollm"
	"go.uber.org/zap"

	"github.com/textflow-ai/textflow/errors"
	"github.com/textflow-ai/textflow/llm"
	"github.com/textflow-ai/textflow/pipeline"
)

// Model is a source stage that turns prompts into completion results using
// a gollm-backed LLM. It sits at the head of a pipeline, typically followed
// by StringOutput.
type Model struct {
	llm    gollm.LLM
	logger *zap.Logger
}

// NewModel creates a model stage. The LLM instance is required; a nil
// logger disables logging.
func NewModel(model gollm.LLM, logger *zap.Logger) (*Model, error) {
	if model == nil {
		return nil, fmt.Errorf("LLM instance is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{llm: model, logger: logger}, nil
}

// Invoke sends a single prompt to the model and wraps the generated text as
// a completion result.
func (m *Model) Invoke(ctx context.Context, prompt string) (*llm.CompletionResult, error) {
	text, err := m.llm.Generate(ctx, &gollm.Prompt{
		Messages: []gollm.PromptMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, errors.NewProviderError("LLM generation failed", err)
	}

	m.logger.Debug("Model generation complete",
		zap.String("provider", m.llm.GetProvider()),
		zap.String("model", m.llm.GetModel()),
		zap.Int("response_length", len(text)),
	)

	return &llm.CompletionResult{
		Generations: []llm.Generation{{Text: text}},
		Model:       m.llm.GetModel(),
	}, nil
}

// Transform maps a stream of prompts to a stream of completion results, one
// call per prompt. Generation errors replace the item that caused them.
func (m *Model) Transform(ctx context.Context, in <-chan pipeline.Item[string]) <-chan pipeline.Item[*llm.CompletionResult] {
	return pipeline.TransformEach(ctx, in, m.Invoke)
}

var _ pipeline.Stage[string, *llm.CompletionResult] = (*Model)(nil)
