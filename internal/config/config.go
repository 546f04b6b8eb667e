package config

import (
	"time"

	"github.com/picolens/picolens/internal/ailink"
)

// Rate limiter backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	AILink    ailink.Config   `mapstructure:"ailink"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Port of the exporter; /metrics on the main server proxies to it.
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// RateLimitConfig is the fixed-window policy applied to POST /api/analyze.
type RateLimitConfig struct {
	Backend           string        `mapstructure:"backend" validate:"oneof=memory redis"`
	RequestsPerWindow int           `mapstructure:"requests_per_window" validate:"gt=0"`
	Window            time.Duration `mapstructure:"window" validate:"gt=0"`
	// Capacity bounds the number of clients tracked by the memory backend.
	Capacity int         `mapstructure:"capacity" validate:"gt=0"`
	Redis    RedisConfig `mapstructure:"redis"`
}

// RedisConfig locates the shared counter store for the redis backend.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AnalysisConfig bounds the input accepted by the analyze route.
type AnalysisConfig struct {
	MaxTextLength int   `mapstructure:"max_text_length" validate:"gt=0"`
	MaxBodyBytes  int64 `mapstructure:"max_body_bytes" validate:"gt=0"`
}
