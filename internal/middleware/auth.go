package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
)

type AuthMiddleware struct {
	config *config.Manager
	logger *slog.Logger
}

func NewAuthMiddleware(config *config.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	am := &AuthMiddleware{
		config: config,
		logger: logger,
	}

	return am.middleware
}

func (am *AuthMiddleware) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := am.authenticate(r); err != nil {
			am.logger.Error("Authentication failed", "error", err, "remote_addr", r.RemoteAddr)
			http.Error(w, "Proxy API key not authorized", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate checks the proxy key. Gateway keys are not checked here;
// the gateway does that.
func (am *AuthMiddleware) authenticate(r *http.Request) error {
	cfg := am.config.Get()

	if r.URL.Path == "/health" || cfg.ProxyKey == "" {
		return nil
	}

	var token string

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	} else if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		token = apiKey
	} else if apiKey := r.Header.Get("X-Goog-Api-Key"); apiKey != "" {
		token = apiKey
	}

	if token == "" {
		return errors.New("no authentication token provided")
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.ProxyKey)) != 1 {
		return errors.New("invalid proxy key")
	}

	return nil
}
