package providers

import (
	"strings"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
)

// DefaultCodexModel is used whenever a model id cannot be resolved.
const DefaultCodexModel = "gpt-5.3-codex"

// Normalizer resolves host model ids to gateway model ids. The alias and
// migration tables are derived once from the registry.
type Normalizer struct {
	registry   *models.Registry
	aliases    map[string]string
	migrations map[string]string
}

func NewNormalizer(registry *models.Registry) *Normalizer {
	if registry == nil {
		registry = models.Default()
	}
	return &Normalizer{
		registry:   registry,
		aliases:    registry.AliasMap(),
		migrations: registry.Migrations(),
	}
}

// Normalize never fails: unknown ids fall back to DefaultCodexModel and
// deprecated ids are replaced.
func (n *Normalizer) Normalize(model string) string {
	return n.migrate(n.resolve(model))
}

func (n *Normalizer) resolve(model string) string {
	id := strings.TrimSpace(model)
	if id == "" {
		return DefaultCodexModel
	}
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}

	lower := strings.ToLower(strings.TrimSpace(id))
	if mapped, ok := n.aliases[lower]; ok {
		return mapped
	}
	if _, ok := n.migrations[lower]; ok {
		return lower
	}

	switch {
	case strings.Contains(lower, "gpt-5.2-codex"), strings.Contains(lower, "gpt 5.2 codex"):
		return "gpt-5.2-codex"
	case strings.Contains(lower, "gpt-5.2"), strings.Contains(lower, "gpt 5.2"):
		return "gpt-5.2"
	case strings.Contains(lower, "codex"):
		return DefaultCodexModel
	}
	return DefaultCodexModel
}

func (n *Normalizer) migrate(id string) string {
	if to, ok := n.migrations[id]; ok {
		return to
	}
	return id
}

type ReasoningOptions struct {
	Effort  string
	Summary string
}

type ReasoningSettings struct {
	Effort  string `json:"effort"`
	Summary string `json:"summary"`
}

// ReasoningConfig applies the effort policy for model. Only the GPT-5.2
// line accepts "xhigh"; only general GPT-5.2 accepts "none".
func (n *Normalizer) ReasoningConfig(model string, opts ReasoningOptions) ReasoningSettings {
	name := strings.ToLower(model)

	isCodex52 := strings.Contains(name, "gpt-5.2-codex") || strings.Contains(name, "gpt 5.2 codex")
	isGeneral52 := !isCodex52 && (strings.Contains(name, "gpt-5.2") || strings.Contains(name, "gpt 5.2"))

	supportsXHigh := isGeneral52 || isCodex52
	supportsNone := isGeneral52

	effort := opts.Effort
	if effort == "" {
		effort = "medium"
		if supportsXHigh {
			effort = "high"
		}
	}
	if effort == "xhigh" && !supportsXHigh {
		effort = "high"
	}
	if effort == "none" && !supportsNone {
		effort = "low"
	}

	summary := opts.Summary
	if summary == "" {
		summary = "auto"
	}
	return ReasoningSettings{Effort: effort, Summary: summary}
}
