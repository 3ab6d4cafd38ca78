package providers

import (
	"log/slog"
	"sort"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/reqlog"
)

// Options configures the built-in providers.
type Options struct {
	Models       *models.Registry
	Prompts      PromptSource
	GeminiUserID string
	Recorder     *reqlog.Recorder
}

// Registry manages provider instances
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(provider Provider) {
	r.providers[provider.Name()] = provider
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	provider, exists := r.providers[name]
	return provider, exists
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Initialize registers the codex, claude and gemini providers against
// the given gateway endpoints.
func (r *Registry) Initialize(endpoints Endpoints, opts Options, logger *slog.Logger) {
	r.Register(NewCodexProvider(endpoints.Codex, NewNormalizer(opts.Models), opts.Prompts, opts.Recorder, logger))
	r.Register(NewClaudeProvider(endpoints.Anthropic, endpoints.Lite, logger))
	r.Register(NewGeminiProvider(endpoints.Gemini, opts.GeminiUserID, logger))
}
