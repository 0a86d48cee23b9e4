package llm

import (
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/config"
)

// Provider names accepted by LLM_PROVIDER
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
	ProviderNone      = "none"
)

// Config selects and configures one provider
type Config struct {
	Provider  string
	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
}

// AnthropicConfig configures the Anthropic provider
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig configures the OpenAI provider. BaseURL is optional
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GeminiConfig configures the Gemini provider
type GeminiConfig struct {
	APIKey string
	Model  string
}

// ConfigFromEnv reads LLM_*. The provider defaults to none so a bare
// deployment never calls out
func ConfigFromEnv() Config {
	c := config.New().Prefix("LLM_")
	return Config{
		Provider: c.MayEnum("PROVIDER", ProviderNone,
			ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderMock, ProviderNone),
		Anthropic: AnthropicConfig{
			APIKey: c.MayString("ANTHROPIC_API_KEY", ""),
			Model:  c.MayString("ANTHROPIC_MODEL", "claude-haiku"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  c.MayString("OPENAI_API_KEY", ""),
			Model:   c.MayString("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: c.MayString("OPENAI_BASE_URL", ""),
		},
		Gemini: GeminiConfig{
			APIKey: c.MayString("GEMINI_API_KEY", ""),
			Model:  c.MayString("GEMINI_MODEL", "gemini-flash"),
		},
	}
}
