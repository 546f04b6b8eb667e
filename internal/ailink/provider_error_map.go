package ailink

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/picolens/picolens/internal/ailink/driver"
)

// Failure codes produced by MapProviderError.
const (
	CodeUpstream         = "UPSTREAM_ERROR"
	CodeUpstreamContract = "UPSTREAM_CONTRACT"
	CodeTimeout          = "TIMEOUT"
	CodeTransport        = "EXTERNAL_SERVICE_ERROR"
	CodeUnknown          = "INTERNAL_ERROR"
)

// Client-facing messages for provider failures.
const (
	MessageInvalidResponse = "Invalid response from AI service"
	MessageTimeout         = "AI service request timed out"
	MessageTransport       = "AI service request failed"
	MessageUnknown         = "Unknown error occurred"
)

// Failure is a provider error classified for an HTTP response.
type Failure struct {
	Code    string
	Status  int
	Message string
	// UpstreamStatus is the provider's own status for CodeUpstream.
	UpstreamStatus int
	Cause          error
}

func (f *Failure) Error() string {
	if f == nil {
		return "provider failure"
	}
	if f.Cause != nil {
		return f.Message + ": " + f.Cause.Error()
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Cause
}

// MapProviderError classifies an error returned by a driver.
func MapProviderError(err error) *Failure {
	if err == nil {
		return nil
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return &Failure{
			Code:           CodeUpstream,
			Status:         status,
			Message:        perr.DisplayMessage(),
			UpstreamStatus: perr.StatusCode,
			Cause:          err,
		}
	}

	if errors.Is(err, driver.ErrInvalidResponse) {
		return &Failure{Code: CodeUpstreamContract, Status: http.StatusInternalServerError, Message: MessageInvalidResponse, Cause: err}
	}

	if isTimeout(err) {
		return &Failure{Code: CodeTimeout, Status: http.StatusGatewayTimeout, Message: MessageTimeout, Cause: err}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &Failure{Code: CodeTransport, Status: http.StatusBadGateway, Message: MessageTransport, Cause: err}
	}

	return &Failure{Code: CodeUnknown, Status: http.StatusInternalServerError, Message: MessageUnknown, Cause: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
