package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/picolens/picolens/internal/appid"
	"github.com/picolens/picolens/internal/observability"
	"github.com/picolens/picolens/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	health := s.deps.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	if s.deps.Analyze != nil {
		s.router.Method("POST", "/api/analyze", s.deps.Analyze)
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes POST /admin/signal when PICOLENS_ADMIN_TOKEN
// is set.
func (s *Server) registerAdminEndpoint() {
	envVar := appid.EnvVar("admin_token")
	adminToken := os.Getenv(envVar)
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled", zap.String("env", envVar))
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Warn("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}
