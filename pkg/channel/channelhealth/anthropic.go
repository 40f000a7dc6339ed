package channelhealth

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicProber struct {
	model string
}

func NewAnthropicProber(model string) *AnthropicProber {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProber{model: model}
}

func (p *AnthropicProber) Probe(ctx context.Context, credential string) error {
	client := anthropic.NewClient(option.WithAPIKey(credential))
	_, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	return err
}
