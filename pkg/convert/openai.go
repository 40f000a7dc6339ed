package convert

// OpenAIConverter is the identity case: canonical requests are already
// OpenAI-shaped, and OpenAI responses are already canonical. It still owns
// the optional-field pruning so params sent upstream only include fields
// the caller actually set.
type OpenAIConverter struct{}

func (OpenAIConverter) ToProviderRequest(req ChatRequest) (map[string]any, error) {
	messages := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]any{"role": m.Role, "content": m.Content})
	}

	params := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}

	if req.Temperature != nil {
		params["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		params["top_p"] = *req.TopP
	}
	if req.N != nil {
		params["n"] = *req.N
	}
	if req.Stream {
		params["stream"] = true
	}
	if len(req.Stop) > 0 {
		params["stop"] = req.Stop
	}
	if req.MaxTokens != nil {
		params["max_tokens"] = *req.MaxTokens
	}
	if req.PresencePenalty != nil {
		params["presence_penalty"] = *req.PresencePenalty
	}
	if req.FrequencyPenalty != nil {
		params["frequency_penalty"] = *req.FrequencyPenalty
	}
	if len(req.LogitBias) > 0 {
		params["logit_bias"] = req.LogitBias
	}
	if req.User != "" {
		params["user"] = req.User
	}

	return params, nil
}

func (OpenAIConverter) FromProviderResponse(raw map[string]any) (ChatResponse, error) {
	rawChoices, _ := raw["choices"].([]any)
	choices := make([]ChatChoice, 0, len(rawChoices))
	for _, rc := range rawChoices {
		choice, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		choices = append(choices, ChatChoice{
			Index:        asInt(choice["index"]),
			Message:      asMap(choice["message"]),
			FinishReason: asStringPtr(choice["finish_reason"]),
		})
	}

	usageRaw := asMap(raw["usage"])
	usage := ChatUsage{
		PromptTokens:     asInt(usageRaw["prompt_tokens"]),
		CompletionTokens: asInt(usageRaw["completion_tokens"]),
		TotalTokens:      asInt(usageRaw["total_tokens"]),
	}

	return ChatResponse{
		ID:      asString(raw["id"]),
		Object:  asString(raw["object"]),
		Created: asInt64(raw["created"]),
		Model:   asString(raw["model"]),
		Choices: choices,
		Usage:   usage,
	}, nil
}

func (OpenAIConverter) FromProviderStreamChunk(raw map[string]any) (*StreamResponse, error) {
	rawChoices, _ := raw["choices"].([]any)
	if len(rawChoices) == 0 {
		return nil, nil
	}

	choices := make([]StreamChoice, 0, len(rawChoices))
	for _, rc := range rawChoices {
		choice, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		choices = append(choices, StreamChoice{
			Index:        asInt(choice["index"]),
			Delta:        asMap(choice["delta"]),
			FinishReason: asStringPtr(choice["finish_reason"]),
		})
	}

	return &StreamResponse{
		ID:      asString(raw["id"]),
		Object:  "chat.completion.chunk",
		Created: asInt64(raw["created"]),
		Model:   asString(raw["model"]),
		Choices: choices,
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
