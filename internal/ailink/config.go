package ailink

import "time"

// Provider identifiers accepted in Config.Provider.
const (
	ProviderGemini    = "gemini"
	ProviderGeminiSDK = "gemini-sdk"
	ProviderOpenAI    = "openai"
)

// Config defines the completion provider used for document analysis.
//
// It is self-contained so it can be decoded as the `ailink` subtree of the
// application configuration.
type Config struct {
	Provider string `mapstructure:"provider" validate:"oneof=gemini gemini-sdk openai"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey   string `mapstructure:"api_key"`
	// Model is passed through to the driver; empty selects the driver default.
	Model string `mapstructure:"model"`

	Timeout         time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Temperature     float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" validate:"gt=0"`

	// RequestsPerSecond paces outbound calls; zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`

	// PromptFile overrides the embedded summary prompt.
	PromptFile string `mapstructure:"prompt_file"`
}

// DefaultConfig returns the provider settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Provider:        ProviderGemini,
		Timeout:         60 * time.Second,
		Temperature:     0.7,
		MaxOutputTokens: 1024,
		Burst:           1,
	}
}
