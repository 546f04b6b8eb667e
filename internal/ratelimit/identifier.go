package ratelimit

import (
	"net/http"
	"strings"
)

// FallbackIdentifier is used when a request carries no forwarded-for header.
// Every such client shares one bucket.
const FallbackIdentifier = "127.0.0.1"

// ClientIdentifier returns the first X-Forwarded-For entry of r.
func ClientIdentifier(r *http.Request) string {
	if r == nil {
		return FallbackIdentifier
	}
	header := r.Header.Get("X-Forwarded-For")
	if header == "" {
		return FallbackIdentifier
	}
	first, _, _ := strings.Cut(header, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return FallbackIdentifier
	}
	return first
}
