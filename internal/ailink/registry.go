package ailink

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/picolens/picolens/internal/ailink/driver"
	"github.com/picolens/picolens/internal/ailink/driver/gemini"
	"github.com/picolens/picolens/internal/ailink/driver/genaisdk"
	"github.com/picolens/picolens/internal/ailink/driver/openai"
)

// NewDriver builds the configured provider driver, wrapped with pacing when
// requests_per_second is set. httpClient may be nil.
func NewDriver(cfg Config, httpClient *http.Client) (driver.Driver, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("ailink: api key is required for provider %q", providerName(cfg.Provider))
	}

	var drv driver.Driver
	switch providerName(cfg.Provider) {
	case ProviderGemini:
		client := gemini.NewClient(cfg.BaseURL, apiKey)
		client.Timeout = cfg.Timeout
		client.HTTPClient = httpClient
		drv = client
	case ProviderGeminiSDK:
		client, err := genaisdk.New(genaisdk.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.BaseURL,
			HTTPClient: httpClient,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("ailink: %w", err)
		}
		drv = client
	case ProviderOpenAI:
		client := openai.NewClient(cfg.BaseURL, apiKey)
		client.Timeout = cfg.Timeout
		client.HTTPClient = httpClient
		drv = client
	default:
		return nil, fmt.Errorf("ailink: unsupported provider %q", cfg.Provider)
	}

	return driver.WithPacing(drv, cfg.RequestsPerSecond, cfg.Burst), nil
}

func providerName(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return ProviderGemini
	}
	return provider
}
