// Package genaisdk implements the Gemini driver on top of the official
// google.golang.org/genai SDK.
package genaisdk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/picolens/picolens/internal/ailink/driver"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "gemini-2.0-flash"

// Config holds SDK client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client implements driver.Driver via the genai SDK.
type Client struct {
	client  *genai.Client
	timeout time.Duration
	baseURL string
}

// New creates an SDK-backed client.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientConfig.HTTPOptions.BaseURL = strings.TrimRight(base, "/") + "/"
	}
	if version := strings.TrimSpace(cfg.APIVersion); version != "" {
		clientConfig.HTTPOptions.APIVersion = version
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client, timeout: cfg.Timeout, baseURL: clientConfig.HTTPOptions.BaseURL}, nil
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini-sdk"
}

// Complete sends a generateContent request through the SDK.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("gemini-sdk client not configured")
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, buildConfig(req))
	entry := driver.TraceEntry{
		Driver:      c.Name(),
		Endpoint:    c.baseURL,
		Model:       model,
		PromptChars: len(req.Prompt),
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
		driver.Trace(entry)
		return nil, mapError(c.Name(), err)
	}
	entry.StatusCode = http.StatusOK
	driver.Trace(entry)

	return toDriverResponse(resp)
}

func buildConfig(req *driver.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		if *req.MaxTokens > math.MaxInt32 {
			config.MaxOutputTokens = math.MaxInt32
		} else {
			config.MaxOutputTokens = int32(*req.MaxTokens)
		}
	}
	return config
}

func toDriverResponse(resp *genai.GenerateContentResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", driver.ErrInvalidResponse)
	}
	first := resp.Candidates[0]
	if first.Content == nil || len(first.Content.Parts) == 0 || first.Content.Parts[0] == nil {
		return nil, fmt.Errorf("%w: candidate has no content parts", driver.ErrInvalidResponse)
	}
	text := first.Content.Parts[0].Text
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion text", driver.ErrInvalidResponse)
	}

	response := &driver.Response{
		Text:         text,
		FinishReason: string(first.FinishReason),
	}
	if usage := resp.UsageMetadata; usage != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return response, nil
}

// mapError converts SDK API errors into driver.ProviderError and leaves
// transport and context errors wrapped as they are.
func mapError(provider string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &driver.ProviderError{Provider: provider, StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &driver.ProviderError{Provider: provider, StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("request failed: %w", err)
}
