// Package channelhealth provides HealthProber implementations, one per
// provider family, each wrapping the provider's official SDK client
// directly. A probe issues the cheapest possible live call (a one-token
// completion) rather than a dedicated ping endpoint, since that is what
// actually exercises the stored credential end to end.
package channelhealth

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAIProber struct {
	model string
}

func NewOpenAIProber(model string) *OpenAIProber {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProber{model: model}
}

func (p *OpenAIProber) Probe(ctx context.Context, credential string) error {
	client := openai.NewClient(option.WithAPIKey(credential))
	_, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     p.model,
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage("ping")},
		MaxTokens: openai.Int(1),
	})
	return err
}
