package gateway

import "time"

// Message represents a single message in the conversation history sent to
// the completion gateway.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`

	// ImageURLs carries attached image references for vision-capable
	// backends. Empty for text-only turns.
	ImageURLs []string `json:"image_urls,omitempty"`
}

// Request is the provider-agnostic completion request the core hands to the
// gateway. The gateway transforms it to the remote wire format; the core
// only depends on the fields below.
type Request struct {
	// Model is the upstream model identifier for the chosen backend.
	Model string `json:"model"`

	// Messages is the ordered conversation history ending with the
	// current user turn.
	Messages []Message `json:"messages"`

	// MaxTokens is the completion token budget hint.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature,omitempty"`
}

// Usage reports token consumption for a completed request. A timed-out
// attempt carries no usage, and the core charges zero cost for it.
type Usage struct {
	// InputTokens is the number of tokens in the prompt.
	InputTokens int `json:"prompt_tokens"`

	// OutputTokens is the number of tokens in the completion.
	OutputTokens int `json:"completion_tokens"`
}

// Completion is the gateway's normalized response.
type Completion struct {
	// Text is the completion text.
	Text string

	// Usage is the reported token consumption.
	Usage Usage

	// Latency is the observed round-trip time for the call.
	Latency time.Duration
}
