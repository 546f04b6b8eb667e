package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/picolens/picolens/internal/analysis"
	apperrors "github.com/picolens/picolens/internal/errors"
	"github.com/picolens/picolens/internal/observability"
	"github.com/picolens/picolens/internal/ratelimit"
)

// DefaultMaxBodyBytes bounds the analyze request body.
const DefaultMaxBodyBytes int64 = 4 << 20

// Analyzer produces a summary for a decoded request.
type Analyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (*analysis.Summary, error)
}

// AnalyzeResponse is the success body of POST /api/analyze.
type AnalyzeResponse struct {
	Summary string `json:"summary"`
}

// AnalyzeHandler serves POST /api/analyze. The rate limit is consulted
// before the body is read.
type AnalyzeHandler struct {
	Limiter      *ratelimit.Limiter
	Analyzer     Analyzer
	MaxBodyBytes int64
}

// NewAnalyzeHandler wires the handler with the default body limit.
func NewAnalyzeHandler(limiter *ratelimit.Limiter, analyzer Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{Limiter: limiter, Analyzer: analyzer, MaxBodyBytes: DefaultMaxBodyBytes}
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := ratelimit.ClientIdentifier(r)

	if err := h.Limiter.Check(ctx, client); err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	input, err := h.decode(w, r)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	if h.Analyzer == nil {
		apperrors.RespondWithError(w, r, errors.New("analyzer not configured"))
		return
	}

	summary, err := h.Analyzer.Analyze(ctx, input)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	if observability.ServerLogger != nil && summary.Truncated {
		observability.ServerLogger.Debug("Analyzed truncated document", zap.String("client", client))
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{Summary: summary.Summary})
}

// decode reads the body as an analysis.Input. A body that is not a JSON
// object yields an empty input; only an oversized body is an error.
func (h *AnalyzeHandler) decode(w http.ResponseWriter, r *http.Request) (analysis.Input, error) {
	var input analysis.Input
	if r.Body == nil {
		return input, nil
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close() // nolint:errcheck

	if err := json.NewDecoder(body).Decode(&input); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return analysis.Input{}, err
		}
		return analysis.Input{}, nil
	}
	return input, nil
}
