package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/handlers"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/middleware"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/plugin"
)

// Server exposes the dispatcher as a local HTTP proxy.
type Server struct {
	config  *config.Manager
	runtime *plugin.Runtime
	logger  *slog.Logger
	server  *http.Server

	countTokens func(text string) int
}

func New(configManager *config.Manager, runtime *plugin.Runtime, logger *slog.Logger) *Server {
	return &Server{
		config:  configManager,
		runtime: runtime,
		logger:  logger,
	}
}

// Start serves until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.config.Get()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting server", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited", "requests", s.runtime.Dispatcher.Requests())
	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Handler is the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	proxyHandler := handlers.NewProxyHandler(s.config, s.runtime.Dispatcher, s.runtime.Metrics, s.logger)
	if s.countTokens != nil {
		proxyHandler.SetTokenCounter(s.countTokens)
	}
	healthHandler := handlers.NewHealthHandler(s.config, s.runtime.Dispatcher, s.logger)

	middlewareSet := middleware.NewMiddlewareSet(s.config, s.logger)

	mux.Handle("/health", middlewareSet.HealthChain().Handler(healthHandler))
	mux.Handle("/metrics", middlewareSet.PublicChain().Handler(s.runtime.Metrics.Handler()))
	mux.Handle("/", middlewareSet.DefaultChain().Handler(proxyHandler))

	return mux
}
