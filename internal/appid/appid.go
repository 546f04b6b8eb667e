// Package appid defines the application identity shared by the CLI, config
// loader, logging and telemetry.
package appid

import (
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName         = "picolens"
	EnvPrefix          = "PICOLENS_"
	TelemetryNamespace = "picolens"
	Description        = "Summarize research documents with a rate-limited generative-AI gateway"
)

// Get returns the picolens identity. The value is a fresh copy.
func Get() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName:  BinaryName,
		ConfigName:  BinaryName,
		Description: Description,
		EnvPrefix:   EnvPrefix,
	}
}

// EnvVar returns the prefixed environment variable for a dotted config key,
// e.g. "ratelimit.window" -> "PICOLENS_RATELIMIT_WINDOW".
func EnvVar(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
