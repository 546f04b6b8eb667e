// Package analysis validates document text and asks the completion provider
// for a summary.
package analysis

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/picolens/picolens/internal/ailink"
	"github.com/picolens/picolens/internal/ailink/driver"
	"github.com/picolens/picolens/internal/ailink/prompt"
	"github.com/picolens/picolens/internal/metrics"
)

// DefaultMaxTextLength is the number of characters forwarded to the provider.
const DefaultMaxTextLength = 30000

// Validation messages returned to clients.
const (
	MessageTextRequired = "Invalid input: text is required and must be a string"
	MessageTextEmpty    = "Invalid input: text cannot be empty"
)

// Input is the decoded analyze request. Text holds whatever the client sent
// under "text"; nil means absent or null.
type Input struct {
	Text any `json:"text"`
}

// Summary is the successful analysis result.
type Summary struct {
	Summary string `json:"summary"`

	Truncated    bool          `json:"-"`
	FinishReason string        `json:"-"`
	Usage        *driver.Usage `json:"-"`
}

// ValidationError reports unusable input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Options tune the request sent to the provider.
type Options struct {
	Model           string
	MaxTextLength   int
	Temperature     float64
	MaxOutputTokens int
}

// Service performs document analysis.
type Service struct {
	Driver  driver.Driver
	Prompt  *prompt.Prompt
	Options Options
	Logger  *logging.Logger
}

// NewService wires a service. Values in opts win; the prompt's temperature
// and token limit only fill fields left at zero.
func NewService(drv driver.Driver, p *prompt.Prompt, opts Options) *Service {
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = DefaultMaxTextLength
	}
	if p != nil {
		if opts.Temperature == 0 && p.Config.Temperature != nil {
			opts.Temperature = *p.Config.Temperature
		}
		if opts.MaxOutputTokens <= 0 && p.Config.MaxOutputTokens != nil {
			opts.MaxOutputTokens = *p.Config.MaxOutputTokens
		}
	}
	return &Service{Driver: drv, Prompt: p, Options: opts}
}

// Validate returns the text to analyze or a *ValidationError.
func Validate(in Input) (string, error) {
	text, ok := in.Text.(string)
	if !ok {
		return "", &ValidationError{Field: "text", Message: MessageTextRequired}
	}
	if text == "" {
		return "", &ValidationError{Field: "text", Message: MessageTextEmpty}
	}
	return text, nil
}

// Truncate shortens text to at most limit characters.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i], true
		}
		count++
	}
	return text, false
}

// Analyze validates, truncates, renders the prompt and calls the provider.
// Provider failures are returned as *ailink.Failure.
func (s *Service) Analyze(ctx context.Context, in Input) (*Summary, error) {
	text, err := Validate(in)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Driver == nil {
		return nil, fmt.Errorf("analysis service not configured")
	}

	text, truncated := Truncate(text, s.Options.MaxTextLength)
	if truncated {
		metrics.RecordTruncation()
		s.debug("Input truncated", zap.Int("max_chars", s.Options.MaxTextLength))
	}

	rendered := text
	if s.Prompt != nil {
		rendered, err = s.Prompt.Render(text)
		if err != nil {
			return nil, err
		}
	}

	req := &driver.Request{
		Model:       s.Options.Model,
		Prompt:      rendered,
		Temperature: driver.Float64(s.Options.Temperature),
	}
	if s.Options.MaxOutputTokens > 0 {
		req.MaxTokens = driver.Int(s.Options.MaxOutputTokens)
	}

	start := time.Now()
	resp, err := s.Driver.Complete(ctx, req)
	duration := time.Since(start)
	if err != nil {
		failure := ailink.MapProviderError(err)
		metrics.RecordUpstreamRequest(s.Driver.Name(), failure.Code, duration)
		return nil, failure
	}
	metrics.RecordUpstreamRequest(s.Driver.Name(), "success", duration)

	s.debug("Analysis completed",
		zap.String("provider", s.Driver.Name()),
		zap.Duration("duration", duration),
		zap.String("finish_reason", resp.FinishReason))

	return &Summary{
		Summary:      resp.Text,
		Truncated:    truncated,
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
	}, nil
}

func (s *Service) debug(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Debug(msg, fields...)
	}
}
