package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/picolens/picolens/internal/observability"
	"github.com/picolens/picolens/internal/server/handlers"
	servermw "github.com/picolens/picolens/internal/server/middleware"
)

// Options configures the listener and its timeouts. Zero timeouts take
// the defaults below.
type Options struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 90 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// Dependencies are the handlers the server routes to.
type Dependencies struct {
	Analyze http.Handler
	Health  *handlers.HealthManager
}

// Server is the picolens HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	opts   Options
	deps   Dependencies
}

// New builds the router and middleware stack.
func New(opts Options, deps Dependencies) *Server {
	if deps.Health == nil {
		deps.Health = handlers.NewHealthManager(handlers.AppVersion)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	s := &Server{router: r, opts: opts, deps: deps}
	s.server = &http.Server{
		Handler:      r,
		ReadTimeout:  orDefault(opts.ReadTimeout, defaultReadTimeout),
		WriteTimeout: orDefault(opts.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:  orDefault(opts.IdleTimeout, defaultIdleTimeout),
	}
	s.registerRoutes()
	return s
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port))
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("addr", ln.Addr().String()))
	}

	err := s.server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
