// Package plugin is the host hook surface: config reconciliation at
// startup, the auth loader that hands the host a rewriting transport, and
// the chat parameter and event hooks.
package plugin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/opencode"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/update"
)

const (
	AuthMethodLabel       = "AICodewith API Key"
	DefaultOutputTokenMax = 32000
)

// Auth is the stored credential the host passes to the loader.
type Auth struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

// LoaderResult is empty when the credential cannot be used.
type LoaderResult struct {
	APIKey    string
	Transport http.RoundTripper
}

type AuthPrompt struct {
	Type        string `json:"type"`
	Key         string `json:"key"`
	Message     string `json:"message"`
	Placeholder string `json:"placeholder,omitempty"`
}

type AuthMethod struct {
	Type    string       `json:"type"`
	Label   string       `json:"label"`
	Prompts []AuthPrompt `json:"prompts"`
}

type AuthResult struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

const (
	AuthSuccess = "success"
	AuthFailed  = "failed"
)

// ChatModel is the subset of the host's model description the chat.params
// hook reads.
type ChatModel struct {
	ID          string
	ProviderID  string
	OutputLimit int
}

type ChatParamsInput struct {
	Model ChatModel
}

type ChatParamsOutput struct {
	Options map[string]any
}

type Hooks struct {
	runtime *Runtime
	update  *update.Checker
	logger  *slog.Logger
}

// New builds the hook set. checker may be nil to disable update checks.
func New(rt *Runtime, checker *update.Checker, logger *slog.Logger) *Hooks {
	return &Hooks{
		runtime: rt,
		update:  checker,
		logger:  logger,
	}
}

// Init reconciles the host config and syncs OMO assignments concurrently.
// Failures are logged; the plugin keeps loading.
func (h *Hooks) Init(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := h.runtime.Reconciler.Ensure(ctx); err != nil {
			h.logger.Warn("Failed to update opencode config", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if added := h.runtime.Omo.Sync(ctx); len(added) > 0 {
			h.logger.Info("Synced OMO model assignments", "added", added)
		}
		return nil
	})

	_ = g.Wait()
}

// Config patches the host's in-memory config.
func (h *Hooks) Config(cfg map[string]any) opencode.Result {
	rec := h.runtime.Reconciler
	res := opencode.ApplyToMap(cfg, rec.Standard(), rec.PluginEntry(), h.runtime.Models.Migrations())
	if res.Changed {
		h.logger.Debug("Patched host config", "changes", res.Changes)
	}
	return res
}

func (h *Hooks) Provider() string {
	return models.ProviderID
}

// Loader gives the host the API key and a transport that routes model
// requests through the gateway.
func (h *Hooks) Loader(auth Auth) LoaderResult {
	if auth.Type != "api" {
		return LoaderResult{}
	}
	key := strings.TrimSpace(auth.Key)
	if key == "" {
		return LoaderResult{}
	}
	return LoaderResult{
		APIKey:    key,
		Transport: &keyedTransport{key: key, next: h.runtime.Dispatcher},
	}
}

func (h *Hooks) Methods() []AuthMethod {
	return []AuthMethod{{
		Type:  "api",
		Label: AuthMethodLabel,
		Prompts: []AuthPrompt{{
			Type:        "text",
			Key:         "apiKey",
			Message:     "AICodewith API key",
			Placeholder: "sk-...",
		}},
	}}
}

func (h *Hooks) Authorize(inputs map[string]string) AuthResult {
	key := strings.TrimSpace(inputs["apiKey"])
	if key == "" {
		return AuthResult{Type: AuthFailed}
	}
	return AuthResult{Type: AuthSuccess, Key: key}
}

func (h *Hooks) Event(ctx context.Context, e update.Event) {
	if h.update == nil {
		return
	}
	h.update.HandleEvent(ctx, e)
}

// ChatParams drops extended thinking for Claude models when its budget
// would leave no room for output.
func (h *Hooks) ChatParams(in ChatParamsInput, out *ChatParamsOutput) {
	if in.Model.ProviderID != models.ProviderID || !strings.HasPrefix(in.Model.ID, "claude-") {
		return
	}
	if out == nil || out.Options == nil {
		return
	}
	thinking, ok := out.Options["thinking"].(map[string]any)
	if !ok {
		return
	}
	budget, ok := number(thinking["budgetTokens"])
	if !ok {
		return
	}
	if budget < float64(outputTokenLimit(in, out)) {
		return
	}

	next := make(map[string]any, len(out.Options))
	for k, v := range out.Options {
		if k != "thinking" {
			next[k] = v
		}
	}
	out.Options = next
}

func outputTokenLimit(in ChatParamsInput, out *ChatParamsOutput) int {
	if in.Model.OutputLimit > 0 {
		return in.Model.OutputLimit
	}
	if limit, ok := number(out.Options["maxTokens"]); ok && limit > 0 {
		return int(limit)
	}
	return DefaultOutputTokenMax
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
