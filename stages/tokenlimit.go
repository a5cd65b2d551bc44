package stages

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/textflow-ai/textflow/errors"
	"github.com/textflow-ai/textflow/pipeline"
)

// Tokenizer counts tokens in a piece of text.
type Tokenizer interface {
	CountTokens(text string) int
}

// tiktokenWrapper adapts a tiktoken encoding to the Tokenizer interface.
type tiktokenWrapper struct {
	*tiktoken.Tiktoken
}

func (t *tiktokenWrapper) CountTokens(text string) int {
	return len(t.Encode(text, nil, nil))
}

// NewTiktokenTokenizer returns a Tokenizer backed by the tiktoken encoding
// for the given model.
func NewTiktokenTokenizer(model string) (Tokenizer, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding for model %s: %w", model, err)
	}
	return &tiktokenWrapper{encoding}, nil
}

// TokenLimit is an identity guard stage: text within the limit passes
// through unchanged, text over it is rejected with a validation error.
type TokenLimit struct {
	tokenizer Tokenizer
	maxTokens int
}

// NewTokenLimit creates the guard. maxTokens must be positive.
func NewTokenLimit(tokenizer Tokenizer, maxTokens int) (*TokenLimit, error) {
	if tokenizer == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("invalid max tokens: must be greater than 0")
	}
	return &TokenLimit{tokenizer: tokenizer, maxTokens: maxTokens}, nil
}

// Invoke returns the input unchanged when it is within the token limit.
func (t *TokenLimit) Invoke(ctx context.Context, input string) (string, error) {
	count := t.tokenizer.CountTokens(input)
	if count > t.maxTokens {
		return "", errors.NewValidationError(
			fmt.Sprintf("input of %d tokens exceeds limit of %d", count, t.maxTokens),
			map[string]interface{}{
				"tokens":     count,
				"max_tokens": t.maxTokens,
			},
		)
	}
	return input, nil
}

// Transform applies the guard per item; oversized items become error items
// at their position.
func (t *TokenLimit) Transform(ctx context.Context, in <-chan pipeline.Item[string]) <-chan pipeline.Item[string] {
	return pipeline.TransformEach(ctx, in, t.Invoke)
}

var _ pipeline.Stage[string, string] = (*TokenLimit)(nil)
