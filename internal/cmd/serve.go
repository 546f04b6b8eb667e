package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/picolens/picolens/internal/appid"
	"github.com/picolens/picolens/internal/config"
	apperrors "github.com/picolens/picolens/internal/errors"
	"github.com/picolens/picolens/internal/metrics"
	"github.com/picolens/picolens/internal/observability"
	"github.com/picolens/picolens/internal/ratelimit"
	"github.com/picolens/picolens/internal/server"
	"github.com/picolens/picolens/internal/server/handlers"
)

// gaugeInterval is how often uptime and store size gauges are refreshed.
const gaugeInterval = 15 * time.Second

// telemetryHealthChecker fails when metrics are enabled but the exporter
// is not running.
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return apperrors.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing POST /api/analyze.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload configuration (log level only; restart for other changes)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
			return err
		}

		identity := appid.Get()
		namespace := appid.TelemetryNamespace
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		observability.InitServerLogger(identity.BinaryName, level, namespace)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(namespace, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return apperrors.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		backend, err := newRateLimitBackend(cfg.RateLimit)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Invalid rate limit configuration", err)
			return err
		}
		limiter := backend.newLimiter(cfg.RateLimit, logger)

		svc, err := newAnalysisService(cfg, logger)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Completion provider is not configured", err)
			return err
		}

		health := handlers.NewHealthManager(versionInfo.Version)
		health.RegisterChecker("ratelimit_store", backend)
		if cfg.Metrics.Enabled {
			health.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		analyze := handlers.NewAnalyzeHandler(limiter, svc)
		analyze.MaxBodyBytes = cfg.Analysis.MaxBodyBytes

		srv := server.New(server.Options{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}, server.Dependencies{Analyze: analyze, Health: health})

		logger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("version", versionInfo.Version),
			zap.String("addr", srv.Addr()),
			zap.String("provider", cfg.AILink.Provider),
			zap.String("ratelimit_backend", backend.name),
			zap.Int("ratelimit_requests", limiter.Limit),
			zap.Duration("ratelimit_window", limiter.Window),
			zap.Bool("metrics_enabled", cfg.Metrics.Enabled))

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}

		gaugeCtx, stopGauges := context.WithCancel(context.Background())
		defer stopGauges()
		go refreshGauges(gaugeCtx, backend.store)

		// LIFO: the HTTP server stops before resources are released.
		signals.OnShutdown(func(ctx context.Context) error {
			stopGauges()
			if err := backend.Close(); err != nil {
				logger.Warn("Rate limit store close returned error", zap.Error(err))
			}
			if err := observability.ShutdownMetrics(); err != nil {
				logger.Warn("Metrics exporter shutdown returned error", zap.Error(err))
			}
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})
		signals.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return apperrors.WrapInternal(ctx, err, "server shutdown failed")
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			return reloadConfig(identity.BinaryName, namespace, logger)
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 2)
		go func() {
			errChan <- srv.Start()
		}()
		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return apperrors.WrapInternal(ctx, err, "server error")
		}
		return nil
	},
}

// reloadConfig re-reads the config file on SIGHUP. Only the log level is
// applied to the running server.
func reloadConfig(service, namespace string, logger *logging.Logger) error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Info("No config file found - using defaults and environment variables")
			return nil
		}
		logger.Error("Failed to reload config file",
			zap.String("file", viper.ConfigFileUsed()),
			zap.Error(err))
		return err
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		logger.Error("Reloaded configuration is invalid, keeping current settings", zap.Error(err))
		return err
	}

	observability.InitServerLogger(service, cfg.Logging.Level, namespace)
	observability.ServerLogger.Info("Configuration reloaded",
		zap.String("file", viper.ConfigFileUsed()),
		zap.String("log_level", cfg.Logging.Level))
	return nil
}

func refreshGauges(ctx context.Context, store ratelimit.Store) {
	started := time.Now()
	metrics.SetServerStartTime(started.Unix())

	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()
	for {
		metrics.SetServerUptime(int64(time.Since(started).Seconds()))
		if n := store.Len(); n >= 0 {
			metrics.SetRateLimitStoreEntries(n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
}
