package convert_test

import (
	"testing"

	"github.com/Abraxas-365/manifesto/pkg/convert"
)

func TestOpenAIToProviderRequestOmitsUnsetFields(t *testing.T) {
	req := convert.ChatRequest{
		Model:    "gpt-4o",
		Messages: []convert.ChatMessage{{Role: "user", Content: "hi"}},
	}

	c := convert.OpenAIConverter{}
	params, err := c.ToProviderRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := params["temperature"]; ok {
		t.Fatal("expected temperature to be omitted when unset")
	}
	if params["model"] != "gpt-4o" {
		t.Fatalf("expected model gpt-4o, got %v", params["model"])
	}
}

func TestAnthropicToProviderRequestSplitsSystemMessage(t *testing.T) {
	req := convert.ChatRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []convert.ChatMessage{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hi"},
		},
	}

	c := convert.AnthropicConverter{}
	params, err := c.ToProviderRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params["system"] != "be terse" {
		t.Fatalf("expected system prompt to be hoisted out, got %v", params["system"])
	}
	msgs, ok := params["messages"].([]map[string]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("expected one non-system message, got %v", params["messages"])
	}
	if params["max_tokens"] != 1000 {
		t.Fatalf("expected default max_tokens of 1000, got %v", params["max_tokens"])
	}
}

func TestAnthropicFromProviderResponseMapsFinishReason(t *testing.T) {
	c := convert.AnthropicConverter{}
	raw := map[string]any{
		"model":       "claude-sonnet-4-20250514",
		"stop_reason": "max_tokens",
		"content": []any{
			map[string]any{"text": "hello there"},
		},
		"usage": map[string]any{
			"input_tokens":  float64(10),
			"output_tokens": float64(5),
		},
	}

	resp, err := c.FromProviderResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("expected one choice, got %d", len(resp.Choices))
	}
	if resp.Choices[0].FinishReason == nil || *resp.Choices[0].FinishReason != "length" {
		t.Fatalf("expected finish_reason length, got %v", resp.Choices[0].FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("expected total tokens 15, got %d", resp.Usage.TotalTokens)
	}
}

func TestAnthropicStreamChunkContentDelta(t *testing.T) {
	c := convert.AnthropicConverter{}
	raw := map[string]any{
		"type":  "content_block_delta",
		"delta": map[string]any{"text": "ab"},
	}

	chunk, err := c.FromProviderStreamChunk(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk == nil {
		t.Fatal("expected a chunk, got nil")
	}
	if chunk.Choices[0].Delta["content"] != "ab" {
		t.Fatalf("expected delta content 'ab', got %v", chunk.Choices[0].Delta["content"])
	}
}

func TestAnthropicStreamChunkUnknownTypeSkipped(t *testing.T) {
	c := convert.AnthropicConverter{}
	chunk, err := c.FromProviderStreamChunk(map[string]any{"type": "ping"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk != nil {
		t.Fatal("expected nil chunk for an unrecognized event type")
	}
}

func TestRegistryRejectsUnknownProvider(t *testing.T) {
	r := convert.NewRegistry()
	if _, err := r.For("mystery-provider"); err == nil {
		t.Fatal("expected error for unregistered provider type")
	}
}
