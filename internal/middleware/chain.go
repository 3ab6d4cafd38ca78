package middleware

import (
	"log/slog"
	"net/http"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
)

// Middleware represents a middleware function
type Middleware func(http.Handler) http.Handler

// Chain represents a middleware chain
type Chain struct {
	middlewares []Middleware
}

// New creates a new middleware chain
func New(middlewares ...Middleware) Chain {
	return Chain{middlewares: middlewares}
}

// Then adds more middleware to the chain
func (c Chain) Then(middlewares ...Middleware) Chain {
	return Chain{middlewares: append(c.middlewares, middlewares...)}
}

// Handler applies all middleware in the chain to the given handler
func (c Chain) Handler(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}

	return handler
}

// MiddlewareSet contains all configured middleware for easy composition
type MiddlewareSet struct {
	Logging Middleware
	Auth    Middleware
}

func NewMiddlewareSet(config *config.Manager, logger *slog.Logger) MiddlewareSet {
	return MiddlewareSet{
		Logging: NewLoggingMiddleware(logger),
		Auth:    NewAuthMiddleware(config, logger),
	}
}

// DefaultChain is used for proxied routes.
func (ms MiddlewareSet) DefaultChain() Chain {
	return New(
		ms.Logging,
		ms.Auth,
	)
}

// HealthChain returns the middleware chain for health endpoints (no auth)
func (ms MiddlewareSet) HealthChain() Chain {
	return New(
		ms.Logging,
	)
}

// PublicChain has no middleware. /metrics uses it.
func (ms MiddlewareSet) PublicChain() Chain {
	return New()
}
