package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
)

// HealthStatus is the /health body.
type HealthStatus struct {
	Status   string `json:"status"`
	Upstream string `json:"upstream"`
	Requests int64  `json:"requests"`
}

// RequestCounter reports how many requests the dispatcher has handled.
type RequestCounter interface {
	Requests() int64
}

type HealthHandler struct {
	config  *config.Manager
	counter RequestCounter
	logger  *slog.Logger
}

func NewHealthHandler(config *config.Manager, counter RequestCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		config:  config,
		counter: counter,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:   "ok",
		Upstream: h.config.Get().Upstream,
	}
	if h.counter != nil {
		status.Requests = h.counter.Requests()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Error("Failed to write health check response", "error", err)
	}
}
