package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/redis/go-redis/v9"

	"github.com/picolens/picolens/internal/ailink"
	"github.com/picolens/picolens/internal/ailink/prompt"
	"github.com/picolens/picolens/internal/analysis"
	"github.com/picolens/picolens/internal/config"
	"github.com/picolens/picolens/internal/metrics"
	"github.com/picolens/picolens/internal/ratelimit"
)

// newAnalysisService wires the configured provider driver and prompt.
func newAnalysisService(cfg *config.Config, logger *logging.Logger) (*analysis.Service, error) {
	drv, err := ailink.NewDriver(cfg.AILink, nil)
	if err != nil {
		return nil, err
	}

	p, err := prompt.Resolve(cfg.AILink.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}

	svc := analysis.NewService(drv, p, analysis.Options{
		Model:           cfg.AILink.Model,
		MaxTextLength:   cfg.Analysis.MaxTextLength,
		Temperature:     cfg.AILink.Temperature,
		MaxOutputTokens: cfg.AILink.MaxOutputTokens,
	})
	svc.Logger = logger
	return svc, nil
}

// rateLimitBackend is the counter store selected by ratelimit.backend.
type rateLimitBackend struct {
	name  string
	store ratelimit.Store
	redis *ratelimit.RedisStore
}

func newRateLimitBackend(cfg config.RateLimitConfig) (*rateLimitBackend, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := ratelimit.NewRedisStore(client, cfg.Redis.KeyPrefix)
		return &rateLimitBackend{name: config.BackendRedis, store: store, redis: store}, nil
	case config.BackendMemory, "":
		store, err := ratelimit.NewMemoryStore(cfg.Capacity, ratelimit.WithEvictionHook(func(string) {
			metrics.RecordRateLimitEviction()
		}))
		if err != nil {
			return nil, err
		}
		return &rateLimitBackend{name: config.BackendMemory, store: store}, nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend %q", cfg.Backend)
	}
}

// newLimiter applies cfg's policy over the backend and reports decisions to
// telemetry.
func (b *rateLimitBackend) newLimiter(cfg config.RateLimitConfig, logger *logging.Logger) *ratelimit.Limiter {
	limiter := ratelimit.NewLimiter(b.store, cfg.RequestsPerWindow, cfg.Window)
	limiter.Observer = &metrics.RateLimitObserver{Backend: b.name, Logger: logger}
	return limiter
}

// CheckHealth pings Redis; the memory backend is always healthy.
func (b *rateLimitBackend) CheckHealth(ctx context.Context) error {
	if b == nil || b.redis == nil {
		return nil
	}
	return b.redis.Ping(ctx)
}

func (b *rateLimitBackend) Close() error {
	if b == nil || b.redis == nil {
		return nil
	}
	return b.redis.Close()
}
