package llm

import (
	"context"
	"fmt"
)

// New builds the configured provider wrapped with Observe
func New(ctx context.Context, cfg Config, obs Observer) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		p, err = NewAnthropic(cfg.Anthropic)
	case ProviderOpenAI:
		p, err = NewOpenAI(cfg.OpenAI)
	case ProviderGemini:
		p, err = NewGemini(ctx, cfg.Gemini)
	case ProviderMock:
		p = NewMock()
	case ProviderNone, "":
		p = Disabled{}
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("llm: init %s: %w", cfg.Provider, err)
	}
	return Observe(p, obs), nil
}

// Enabled reports whether p will ever make a call
func Enabled(p Provider) bool { return p != nil && p.Name() != ProviderNone }

func maxTokens(p Prompt) int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return 256
}
