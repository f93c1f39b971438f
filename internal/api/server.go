package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ZertGraf/pr-readiness/internal/api/handler"
	"github.com/ZertGraf/pr-readiness/internal/api/middleware"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	AllowOrigin    string

	// per client address limit on the readiness endpoint
	ReadinessLimit  int
	ReadinessWindow time.Duration
}

type HTTPServer struct {
	server *http.Server
	config *ServerConfig
	logger *logger.Logger
}

func NewHTTPServer(config *ServerConfig,
	prHandler *handler.PRHandler,
	systemHandler *handler.SystemHandler,
	logger *logger.Logger) *HTTPServer {

	router := NewRouter(config, prHandler, systemHandler, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		config: config,
		logger: logger.Component("http"),
	}
}

// Start binds the listen address and serves in the background. A bind
// failure is returned to the caller.
func (s *HTTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}

	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("http server shutdown failed", "error", err)
		return err
	}

	s.logger.Info("http server stopped")
	return nil
}

// NewRouter builds the API routes with the shared middleware stack.
func NewRouter(
	config *ServerConfig,
	prHandler *handler.PRHandler,
	systemHandler *handler.SystemHandler,
	logger *logger.Logger,
) http.Handler {
	log := logger.Component("http")
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Security())
	r.Use(middleware.CORS(config.AllowOrigin))
	r.Use(middleware.Timeout(config.RequestTimeout))

	r.Get("/health", systemHandler.Health)

	readinessLimit := middleware.RateLimitByIP(config.ReadinessLimit, config.ReadinessWindow, log)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", systemHandler.Status)
		r.Get("/rate-limit", systemHandler.RateLimit)

		r.Get("/repos", prHandler.ListRepos)
		r.Get("/authors", prHandler.ListAuthors)

		r.Mount("/prs", prHandler.Routes(readinessLimit))
		r.Post("/refresh", prHandler.Refresh)
		r.Post("/refresh-batch", prHandler.RefreshBatch)

		r.Post("/readiness/calculate", prHandler.Calculate)
	})

	return r
}
