// Package config loads picolens configuration from defaults, an optional
// YAML file and PICOLENS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/picolens/picolens/internal/ailink"
	"github.com/picolens/picolens/internal/analysis"
	"github.com/picolens/picolens/internal/appid"
	"github.com/picolens/picolens/internal/ratelimit"
)

// GeminiAPIKeyEnv is read when ailink.api_key is not configured.
const GeminiAPIKeyEnv = "GEMINI_API_KEY"

var (
	appConfig *Config
	configMu  sync.RWMutex

	validate = newValidator()
)

// SetDefaults registers every configuration key with its default. Keys
// must be registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	ai := ailink.DefaultConfig()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("ratelimit.backend", BackendMemory)
	v.SetDefault("ratelimit.requests_per_window", ratelimit.DefaultRequestsPerWindow)
	v.SetDefault("ratelimit.window", ratelimit.DefaultWindow.String())
	v.SetDefault("ratelimit.capacity", ratelimit.DefaultCapacity)
	v.SetDefault("ratelimit.redis.addr", "localhost:6379")
	v.SetDefault("ratelimit.redis.password", "")
	v.SetDefault("ratelimit.redis.db", 0)
	v.SetDefault("ratelimit.redis.key_prefix", ratelimit.DefaultRedisKeyPrefix)

	v.SetDefault("analysis.max_text_length", analysis.DefaultMaxTextLength)
	v.SetDefault("analysis.max_body_bytes", 4<<20)

	v.SetDefault("ailink.provider", ai.Provider)
	v.SetDefault("ailink.base_url", "")
	v.SetDefault("ailink.api_key", "")
	v.SetDefault("ailink.model", "")
	v.SetDefault("ailink.timeout", ai.Timeout.String())
	v.SetDefault("ailink.temperature", ai.Temperature)
	v.SetDefault("ailink.max_output_tokens", ai.MaxOutputTokens)
	v.SetDefault("ailink.requests_per_second", 0.0)
	v.SetDefault("ailink.burst", ai.Burst)
	v.SetDefault("ailink.prompt_file", "")
}

// BindEnv maps ratelimit.window to PICOLENS_RATELIMIT_WINDOW and so on.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(strings.TrimSuffix(appid.EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v. The result also
// becomes the value returned by GetConfig.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.AILink.APIKey) == "" {
		cfg.AILink.APIKey = strings.TrimSpace(os.Getenv(GeminiAPIKeyEnv))
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var problems []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if cfg.RateLimit.Backend == BackendRedis && strings.TrimSpace(cfg.RateLimit.Redis.Addr) == "" {
		problems = append(problems, "ratelimit.redis.addr: required when ratelimit.backend is redis")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetConfig returns the most recently loaded configuration.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the XDG config directory for picolens.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(appid.BinaryName)
}

// DefaultConfigPath returns the XDG path of the user config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// newValidator reports fields by their mapstructure names so messages match
// the keys users write.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func describe(fe validator.FieldError) string {
	// Namespace is "Config.ratelimit.window"; drop the root type name.
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}

	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "gt", "gte", "lte":
		return fmt.Sprintf("%s: must be %s %s", key, fe.Tag(), fe.Param())
	case "url":
		return fmt.Sprintf("%s: must be a valid URL", key)
	default:
		return fmt.Sprintf("%s: failed %s validation", key, fe.Tag())
	}
}
