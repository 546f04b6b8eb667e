package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"
	"strconv"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/picolens/picolens/internal/ailink"
	"github.com/picolens/picolens/internal/analysis"
	"github.com/picolens/picolens/internal/metrics"
	"github.com/picolens/picolens/internal/observability"
	"github.com/picolens/picolens/internal/ratelimit"
	"github.com/picolens/picolens/internal/server/middleware"
)

// Error codes
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUpstream         = ailink.CodeUpstream
	CodeUpstreamContract = ailink.CodeUpstreamContract
	CodeTimeout          = ailink.CodeTimeout
	CodeExternalService  = ailink.CodeTransport
	CodeInternal         = ailink.CodeUnknown
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeServiceUnavail   = "SERVICE_UNAVAILABLE"
)

// MessageRateLimited is the client-facing message for rejected requests.
const MessageRateLimited = "Rate limit exceeded. Please try again later."

// upstreamStatusKey carries the response status for CodeUpstream envelopes.
const upstreamStatusKey = "upstream_status"

// retryAfterKey carries the Retry-After value for CodeRateLimited envelopes.
const retryAfterKey = "retry_after_seconds"

// resetTimeLayout renders ISO-8601 UTC with millisecond precision.
const resetTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// User Errors (400-level)
func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewPayloadTooLargeError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodePayloadTooLarge, message)
}

// NewRateLimitedError reports a rejected request with its reset estimate.
func NewRateLimitedError(exceeded *ratelimit.ExceededError) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(CodeRateLimited, MessageRateLimited)
	if exceeded == nil {
		return envelope
	}
	envelope = envelope.WithDetails(map[string]interface{}{
		"limitResetTime": exceeded.ResetAt.UTC().Format(resetTimeLayout),
	})
	return withContext(envelope, map[string]interface{}{
		"client":      exceeded.Identifier,
		"limit":       exceeded.Limit,
		retryAfterKey: int(math.Ceil(exceeded.Window.Seconds())),
	})
}

// Server Errors (500-level)
func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewServiceUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeServiceUnavail, message)
}

// WrapInternal hides err behind a generic message; err is logged only.
func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(CodeInternal, message)
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	envelope = withWrappedError(envelope, err)
	envelope, _ = envelope.WithSeverity(errors.SeverityHigh)
	if envelope != nil && err != nil {
		envelope.Original = err
	}
	return envelope
}

// WrapProviderFailure converts a classified provider failure. The provider's
// raw body stays in the envelope context and is never sent to clients.
func WrapProviderFailure(ctx context.Context, failure *ailink.Failure) *errors.ErrorEnvelope {
	if failure == nil {
		return WrapInternal(ctx, nil, ailink.MessageUnknown)
	}

	envelope := errors.NewErrorEnvelope(failure.Code, failure.Message)
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	envelope = withWrappedError(envelope, failure.Cause)

	fields := map[string]interface{}{}
	if failure.Code == CodeUpstream {
		fields[upstreamStatusKey] = failure.Status
		fields["provider_status"] = failure.UpstreamStatus
	}
	envelope = withContext(envelope, fields)

	severity := errors.SeverityMedium
	if failure.Code == CodeInternal || failure.Code == CodeUpstreamContract {
		severity = errors.SeverityHigh
	}
	envelope, _ = envelope.WithSeverity(severity)
	return envelope
}

// Helper functions for ID generation

// extractCorrelationID gets correlation ID from context, falls back to generating new UUID
func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return envelope
	}

	var validation *analysis.ValidationError
	if stderrors.As(err, &validation) {
		return NewInvalidInputError(validation.Message)
	}

	var exceeded *ratelimit.ExceededError
	if stderrors.As(err, &exceeded) {
		return NewRateLimitedError(exceeded)
	}

	var failure *ailink.Failure
	if stderrors.As(err, &failure) {
		return WrapProviderFailure(context.Background(), failure)
	}

	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		return NewPayloadTooLargeError("Request body too large")
	}

	env := errors.NewErrorEnvelope(CodeInternal, ailink.MessageUnknown)
	env = withWrappedError(env, err)
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// EnsureCorrelationID attaches a correlation ID to the envelope using the context when available.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	var correlationID string
	if ctx != nil {
		correlationID = middleware.GetRequestID(ctx)
	}
	if correlationID != "" {
		return envelope.WithCorrelationID(correlationID)
	}
	if envelope.CorrelationID != "" {
		return envelope
	}

	return envelope.WithCorrelationID("fallback-" + errors.GenerateCorrelationID())
}

// HTTPStatusFromEnvelope resolves the HTTP status code corresponding to an error envelope.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	if envelope.Code == CodeUpstream {
		return upstreamStatus(envelope.Context[upstreamStatusKey])
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode resolves the HTTP status code corresponding to an error code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeExternalService, CodeUpstream:
		return http.StatusBadGateway
	case CodeServiceUnavail:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func upstreamStatus(value interface{}) int {
	var status int
	switch v := value.(type) {
	case int:
		status = v
	case int64:
		status = int(v)
	case float64:
		status = int(v)
	case string:
		status, _ = strconv.Atoi(v)
	}
	if status < 400 || status > 599 {
		return http.StatusBadGateway
	}
	return status
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}
	return withContext(envelope, map[string]interface{}{
		"wrapped_error": err.Error(),
	})
}

func withContext(envelope *errors.ErrorEnvelope, fields map[string]interface{}) *errors.ErrorEnvelope {
	if envelope == nil || len(fields) == 0 {
		return envelope
	}
	merged := make(map[string]interface{}, len(envelope.Context)+len(fields))
	for key, value := range envelope.Context {
		merged[key] = value
	}
	for key, value := range fields {
		merged[key] = value
	}
	updated, err := envelope.WithContext(merged)
	if err != nil {
		return envelope
	}
	return updated
}

// ResponseDetails returns the client-safe details of an envelope. Context
// is diagnostic and stays in logs.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil || len(envelope.Details) == 0 {
		return nil
	}
	details := make(map[string]interface{}, len(envelope.Details))
	for key, value := range envelope.Details {
		details[key] = value
	}
	return details
}

// HTTPErrorResponse is the error body returned to callers.
type HTTPErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// RespondWithError normalizes the supplied error and writes a JSON response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope finalizes the provided envelope, logging and emitting metrics.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}
	if envelope == nil {
		envelope = EnsureEnvelope(nil)
	}

	if r != nil {
		envelope = EnsureCorrelationID(envelope, r.Context())
	} else {
		envelope = EnsureCorrelationID(envelope, nil)
	}

	statusCode := HTTPStatusFromEnvelope(envelope)

	response := HTTPErrorResponse{
		Error:     envelope.Message,
		Code:      envelope.Code,
		Details:   ResponseDetails(envelope),
		RequestID: envelope.CorrelationID,
	}

	logHTTPError(envelope, statusCode)
	emitErrorMetrics(r, envelope, statusCode)

	w.Header().Set("Content-Type", "application/json")
	if statusCode == http.StatusTooManyRequests {
		if retry := retryAfterSeconds(envelope); retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
	}
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func retryAfterSeconds(envelope *errors.ErrorEnvelope) int {
	switch v := envelope.Context[retryAfterKey].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	if observability.ServerLogger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}

	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}

	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		observability.ServerLogger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		observability.ServerLogger.Warn(envelope.Message, fields...)
	default:
		observability.ServerLogger.Info(envelope.Message, fields...)
	}
}

func emitErrorMetrics(r *http.Request, envelope *errors.ErrorEnvelope, statusCode int) {
	if envelope == nil {
		return
	}

	metrics.RecordError(envelope.Code, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}
}
