// Package server provides the HTTP server shared by the probe and catalog
// binaries.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/config"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/middleware"
)

// Routes registers a group of handlers on the router.
type Routes interface {
	RegisterRoutes(router *mux.Router)
}

// connectionCloser is implemented by route groups holding long-lived
// connections that must be closed before shutdown.
type connectionCloser interface {
	CloseAllConnections()
}

// Server represents the HTTP server.
type Server struct {
	name       string
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	logger     *zap.Logger
	routes     []Routes
}

// New creates a Server called name listening on addr and serving routes.
func New(name, addr string, cfg *config.Config, logger *zap.Logger, routes ...Routes) *Server {
	router := mux.NewRouter()

	s := &Server{
		name:   name,
		router: router,
		config: cfg,
		logger: logger.With(zap.String("server", name)),
		routes: routes,
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupHTTPServer(addr)

	return s
}

// setupMiddleware installs the middleware chain; the first entry is the
// outermost.
func (s *Server) setupMiddleware() {
	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
	}
	if s.config.MetricsEnabled {
		chain = append(chain, middleware.Metrics(s.name))
	}
	chain = append(chain, middleware.Logging(s.logger))

	s.router.Use(mux.MiddlewareFunc(middleware.Chain(chain...)))
}

// setupRoutes registers every route group plus the metrics endpoint.
func (s *Server) setupRoutes() {
	for _, r := range s.routes {
		r.RegisterRoutes(s.router)
	}

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer(addr string) {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves requests from ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server",
		zap.String("address", ln.Addr().String()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	// Hijacked connections are not tracked by http.Server.
	for _, r := range s.routes {
		if c, ok := r.(connectionCloser); ok {
			c.CloseAllConnections()
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Handler returns the router wrapped in CORS. Preflight requests are
// answered before mux method matching, which rejects OPTIONS on GET routes.
func (s *Server) Handler() http.Handler {
	return middleware.CORS(http.MethodGet, http.MethodOptions)(s.router)
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}
