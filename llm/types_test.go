package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionResultOutputText(t *testing.T) {
	result := &CompletionResult{
		Generations: []Generation{
			{Text: "first"},
			{Text: "second"},
		},
	}
	assert.Equal(t, "first", result.OutputText())
}

func TestCompletionResultOutputTextEmpty(t *testing.T) {
	result := &CompletionResult{}
	assert.Equal(t, "", result.OutputText())
}

func TestOutputTextNilReceivers(t *testing.T) {
	var completion *CompletionResult
	assert.Equal(t, "", completion.OutputText())

	var chat *ChatResult
	assert.Equal(t, "", chat.OutputText())
}

func TestChatResultOutputText(t *testing.T) {
	result := &ChatResult{
		Message: Message{Role: "assistant", Content: "hello there"},
	}
	assert.Equal(t, "hello there", result.OutputText())
}

func TestMessageContentString(t *testing.T) {
	msg := Message{Role: "user", Content: "a question"}
	assert.Equal(t, "a question", msg.ContentString())
}

func TestDocumentPageText(t *testing.T) {
	doc := Document{
		PageContent: "  raw page content\nwith newlines  ",
		Metadata:    map[string]any{"source": "kb"},
	}
	assert.Equal(t, "  raw page content\nwith newlines  ", doc.PageText())
}

// ChatResult must not satisfy ContentMessage; conversational results are
// handled by the completion rule, not the message rule.
func TestChatResultIsNotContentMessage(t *testing.T) {
	var v any = &ChatResult{}
	_, ok := v.(ContentMessage)
	assert.False(t, ok)
}
