package driver

import (
	"fmt"
	"net/http"
	"strings"
)

// ProviderError is returned when a provider responds with a non-2xx status.
//
// RawResponse holds the provider body bytes and must never include API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.DisplayMessage())
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.DisplayMessage())
}

// DisplayMessage returns the provider's own message, or a generic one built
// from the status text when the provider gave none.
func (e *ProviderError) DisplayMessage() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	text := http.StatusText(e.StatusCode)
	if text == "" {
		text = fmt.Sprintf("status %d", e.StatusCode)
	}
	return "Failed to analyze document: " + text
}
