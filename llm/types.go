// Package llm defines the result shapes produced by upstream model and
// retrieval stages, together with the capability interfaces the output
// stages dispatch on. Types here are plain data carriers: they perform no
// I/O and know nothing about how they were produced.
package llm

// Completion is satisfied by any result that can render "the output" as a
// single string. Both CompletionResult and ChatResult satisfy it, which is
// what gives conversational results precedence over the bare message rule
// in the output stages.
type Completion interface {
	OutputText() string
}

// ContentMessage is satisfied by any value carrying message content that
// can be rendered as a string.
type ContentMessage interface {
	ContentString() string
}

// ContentPage is satisfied by any retrieved content unit carrying page or
// body text.
type ContentPage interface {
	PageText() string
}

// Message is a single unit of conversational content.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentString returns the message content as a string.
func (m Message) ContentString() string {
	return m.Content
}

// TokenUsage records token accounting for a generation call, when the
// provider reports it.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Generation is a single candidate output of a free-text generation call.
type Generation struct {
	Text string         `json:"text"`
	Info map[string]any `json:"info,omitempty"`
}

// CompletionResult is the result of a free-text generation call. Providers
// may return several candidate generations; the first one is canonical.
type CompletionResult struct {
	Generations []Generation `json:"generations"`
	Model       string       `json:"model,omitempty"`
	Usage       TokenUsage   `json:"usage,omitempty"`
}

// OutputText returns the text of the first generation, or the empty string
// when the provider returned none. Safe on a nil receiver.
func (r *CompletionResult) OutputText() string {
	if r == nil || len(r.Generations) == 0 {
		return ""
	}
	return r.Generations[0].Text
}

// ChatResult is the result of a chat-style generation call, wrapping the
// output message.
//
// ChatResult satisfies Completion but deliberately not ContentMessage: a
// conversational result is distinguished from a bare message by which
// capability it satisfies. If a future variant satisfies both, the output
// stages resolve it through the completion rule first.
type ChatResult struct {
	Message Message    `json:"message"`
	Model   string     `json:"model,omitempty"`
	Usage   TokenUsage `json:"usage,omitempty"`
}

// OutputText returns the output message's content. Safe on a nil receiver.
func (r *ChatResult) OutputText() string {
	if r == nil {
		return ""
	}
	return r.Message.Content
}

// Document is a unit of text retrieved from a content store.
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// PageText returns the document body verbatim.
func (d Document) PageText() string {
	return d.PageContent
}

// Capability checks, compile-time.
var (
	_ ContentMessage = Message{}
	_ Completion     = (*CompletionResult)(nil)
	_ Completion     = (*ChatResult)(nil)
	_ ContentPage    = Document{}
)
