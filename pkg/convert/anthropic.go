package convert

import (
	"time"

	"github.com/google/uuid"
)

// AnthropicConverter adapts the canonical chat shape to and from
// Anthropic's Messages API, which splits system prompts out of the
// message list and always requires max_tokens.
type AnthropicConverter struct{}

func (AnthropicConverter) ToProviderRequest(req ChatRequest) (map[string]any, error) {
	var messages []map[string]any
	var systemMessage string

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			systemMessage = msg.Content
			continue
		}
		messages = append(messages, map[string]any{"role": msg.Role, "content": msg.Content})
	}

	maxTokens := 1000
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	params := map[string]any{
		"model":      req.Model,
		"messages":   messages,
		"max_tokens": maxTokens,
	}

	if systemMessage != "" {
		params["system"] = systemMessage
	}
	if req.Temperature != nil {
		params["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		params["top_p"] = *req.TopP
	}
	if len(req.Stop) > 0 {
		params["stop_sequences"] = req.Stop
	}
	if req.Stream {
		params["stream"] = true
	}

	return params, nil
}

func (AnthropicConverter) FromProviderResponse(raw map[string]any) (ChatResponse, error) {
	contentBlocks, _ := raw["content"].([]any)
	var text string
	if len(contentBlocks) > 0 {
		if block, ok := contentBlocks[0].(map[string]any); ok {
			text = asString(block["text"])
		}
	}

	stopReason := asString(raw["stop_reason"])
	finishReason := mapAnthropicFinishReason(stopReason)

	usageRaw := asMap(raw["usage"])
	inputTokens := asInt(usageRaw["input_tokens"])
	outputTokens := asInt(usageRaw["output_tokens"])

	return ChatResponse{
		ID:      "chatcmpl-" + shortUUID(),
		Object:  "chat.completion",
		Created: nowUnix(),
		Model:   asString(raw["model"]),
		Choices: []ChatChoice{
			{
				Index:        0,
				Message:      map[string]any{"role": "assistant", "content": text},
				FinishReason: finishReason,
			},
		},
		Usage: ChatUsage{
			PromptTokens:     inputTokens,
			CompletionTokens: outputTokens,
			TotalTokens:      inputTokens + outputTokens,
		},
	}, nil
}

// mapAnthropicFinishReason translates Anthropic's stop_reason vocabulary
// to the OpenAI finish_reason vocabulary clients expect.
func mapAnthropicFinishReason(reason string) *string {
	var mapped string
	switch reason {
	case "end_turn":
		mapped = "stop"
	case "max_tokens":
		mapped = "length"
	case "stop_sequence":
		mapped = "stop"
	case "":
		return nil
	default:
		mapped = reason
	}
	return &mapped
}

func (AnthropicConverter) FromProviderStreamChunk(raw map[string]any) (*StreamResponse, error) {
	chunkType := asString(raw["type"])

	switch chunkType {
	case "content_block_delta":
		delta := asMap(raw["delta"])
		text := asString(delta["text"])
		return &StreamResponse{
			ID:      "chatcmpl-" + shortUUID(),
			Object:  "chat.completion.chunk",
			Created: nowUnix(),
			Model:   modelOr(raw, "claude-3"),
			Choices: []StreamChoice{
				{Index: 0, Delta: map[string]any{"content": text}, FinishReason: nil},
			},
		}, nil
	case "message_stop":
		stop := "stop"
		return &StreamResponse{
			ID:      "chatcmpl-" + shortUUID(),
			Object:  "chat.completion.chunk",
			Created: nowUnix(),
			Model:   modelOr(raw, "claude-3"),
			Choices: []StreamChoice{
				{Index: 0, Delta: map[string]any{}, FinishReason: &stop},
			},
		}, nil
	default:
		return nil, nil
	}
}

func modelOr(raw map[string]any, fallback string) string {
	if m := asString(raw["model"]); m != "" {
		return m
	}
	return fallback
}

func shortUUID() string {
	return uuid.NewString()[:12]
}

func nowUnix() int64 {
	return time.Now().Unix()
}
