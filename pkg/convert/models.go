// Package convert translates between the canonical OpenAI-shaped chat
// wire format the proxy accepts from clients and the provider-specific
// request/response/stream-chunk shapes each upstream channel expects.
package convert

// ChatMessage is one turn in a canonical chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the canonical, OpenAI-shaped request the proxy accepts
// from clients regardless of which provider ultimately serves it.
type ChatRequest struct {
	Model            string         `json:"model"`
	Messages         []ChatMessage  `json:"messages"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	N                *int           `json:"n,omitempty"`
	Stream           bool           `json:"stream,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]int `json:"logit_bias,omitempty"`
	User             string         `json:"user,omitempty"`
}

// ChatChoice is one candidate completion in a canonical response.
type ChatChoice struct {
	Index        int            `json:"index"`
	Message      map[string]any `json:"message"`
	FinishReason *string        `json:"finish_reason"`
}

// ChatUsage is canonical token accounting.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the canonical, OpenAI-shaped response returned to
// clients regardless of which provider actually served the request.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// StreamChoice is one delta in a canonical streamed chunk.
type StreamChoice struct {
	Index        int            `json:"index"`
	Delta        map[string]any `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

// StreamResponse is the canonical, OpenAI-shaped streamed chunk format
// ("chat.completion.chunk") relayed to clients over SSE.
type StreamResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// ProviderRequest is a converted request ready to send to a specific
// provider's wire endpoint, together with the metadata needed to route
// and convert its response back.
type ProviderRequest struct {
	ChannelID    string
	ProviderType string
	Params       map[string]any
}
