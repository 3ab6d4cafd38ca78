package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	ProviderID       = "aicodewith"
	ProviderName     = "AICodewith"
	APIKeyEnv        = "AICODEWITH_API_KEY"
	ThirdPartySuffix = "-third-party"

	OmoSchemaURL = "https://raw.githubusercontent.com/code-yeongyu/oh-my-opencode/master/assets/oh-my-opencode.schema.json"
)

type Family string

const (
	FamilyCodex  Family = "codex"
	FamilyGPT    Family = "gpt"
	FamilyClaude Family = "claude"
	FamilyGemini Family = "gemini"
)

type Reasoning string

const (
	ReasoningNone  Reasoning = "none"
	ReasoningBasic Reasoning = "basic"
	ReasoningFull  Reasoning = "full"
	ReasoningXHigh Reasoning = "xhigh"
)

// EffortLevels are the suffixes the host appends to model ids to pick a
// reasoning effort, e.g. "gpt-5.2-high".
var EffortLevels = []string{"none", "low", "medium", "high", "xhigh"}

type Limit struct {
	Context int `json:"context"`
	Output  int `json:"output"`
}

type Modalities struct {
	Input  []string `json:"input"`
	Output []string `json:"output"`
}

type Model struct {
	ID          string
	Family      Family
	DisplayName string
	Version     string
	Limit       Limit
	Modalities  Modalities
	Reasoning   Reasoning
	Deprecated  bool
	ReplacedBy  string
	Aliases     []string
}

// FullID returns the provider-qualified id used in host config files.
func (m Model) FullID() string {
	return ProviderID + "/" + m.ID
}

// ProviderModel is one entry of the provider block's models map.
type ProviderModel struct {
	Name       string     `json:"name"`
	Limit      Limit      `json:"limit"`
	Modalities Modalities `json:"modalities"`
}

// ProviderConfig is the desired state of provider.aicodewith in the
// host config.
type ProviderConfig struct {
	Name   string                   `json:"name"`
	Env    []string                 `json:"env"`
	Models map[string]ProviderModel `json:"models"`
	NPM    string                   `json:"npm,omitempty"`
}

// JSON encodes the config with its declared field order.
func (c ProviderConfig) JSON() []byte {
	data, err := json.Marshal(c)
	if err != nil {
		// every field is a plain string, int or slice
		panic(fmt.Sprintf("marshal provider config: %v", err))
	}
	return data
}

// Value returns the config in decoded-JSON form (map[string]any,
// float64 numbers) so it compares directly against parsed user files.
func (c ProviderConfig) Value() any {
	var v any
	if err := json.Unmarshal(c.JSON(), &v); err != nil {
		panic(fmt.Sprintf("unmarshal provider config: %v", err))
	}
	return v
}

type OmoAssignments struct {
	Agents     map[string]string `json:"agents"`
	Categories map[string]string `json:"categories"`
}

type Registry struct {
	models []Model
	byID   map[string]int
}

var defaultRegistry = NewRegistry(Catalog)

// Default returns the registry built from Catalog.
func Default() *Registry {
	return defaultRegistry
}

func NewRegistry(models []Model) *Registry {
	r := &Registry{
		models: models,
		byID:   make(map[string]int, len(models)),
	}
	for i, m := range models {
		if _, dup := r.byID[m.ID]; !dup {
			r.byID[m.ID] = i
		}
	}
	return r
}

func (r *Registry) All() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}

func (r *Registry) Active() []Model {
	return r.filter(func(m Model) bool { return !m.Deprecated })
}

func (r *Registry) Deprecated() []Model {
	return r.filter(func(m Model) bool { return m.Deprecated })
}

func (r *Registry) ByFamily(f Family) []Model {
	return r.filter(func(m Model) bool { return !m.Deprecated && m.Family == f })
}

func (r *Registry) filter(keep func(Model) bool) []Model {
	var out []Model
	for _, m := range r.models {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) ByID(id string) (Model, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Model{}, false
	}
	return r.models[i], true
}

// ByAlias looks a model up by id, declared alias or "{id}-{effort}",
// ignoring case and surrounding whitespace.
func (r *Registry) ByAlias(alias string) (Model, bool) {
	needle := strings.ToLower(strings.TrimSpace(alias))
	if needle == "" {
		return Model{}, false
	}

	for _, m := range r.models {
		id := strings.ToLower(m.ID)
		if id == needle {
			return m, true
		}
		for _, a := range m.Aliases {
			if strings.ToLower(a) == needle {
				return m, true
			}
		}
		for _, effort := range EffortLevels {
			if id+"-"+effort == needle {
				return m, true
			}
		}
	}
	return Model{}, false
}

// AliasMap maps every accepted spelling of an active model to its id.
func (r *Registry) AliasMap() map[string]string {
	out := make(map[string]string)
	for _, m := range r.Active() {
		out[m.ID] = m.ID
		out[m.FullID()] = m.ID

		for _, a := range m.Aliases {
			out[strings.ToLower(a)] = m.ID
		}

		for _, effort := range EffortLevels {
			out[m.ID+"-"+effort] = m.ID
			out[m.FullID()+"-"+effort] = m.ID
		}
	}
	return out
}

// Migrations maps deprecated ids (bare and provider-qualified) to their
// replacements. Claude ids also get a third-party spelling when the
// catalog does not already define one.
func (r *Registry) Migrations() map[string]string {
	out := make(map[string]string)
	add := func(from, to string) {
		out[from] = to
		out[ProviderID+"/"+from] = ProviderID + "/" + to
	}

	for _, m := range r.Deprecated() {
		if m.ReplacedBy == "" {
			continue
		}
		add(m.ID, m.ReplacedBy)

		if m.Family != FamilyClaude || strings.HasSuffix(m.ID, ThirdPartySuffix) {
			continue
		}
		variant := m.ID + ThirdPartySuffix
		if _, exists := r.ByID(variant); exists {
			continue
		}
		target := m.ReplacedBy + ThirdPartySuffix
		if t, ok := r.ByID(target); !ok || t.Deprecated {
			target = m.ReplacedBy
		}
		add(variant, target)
	}
	return out
}

// Migrate returns the replacement for a deprecated id, or the id itself.
func (r *Registry) Migrate(id string) string {
	if to, ok := r.Migrations()[id]; ok {
		return to
	}
	return id
}

func (r *Registry) ProviderConfig(npm string) ProviderConfig {
	cfg := ProviderConfig{
		Name:   ProviderName,
		Env:    []string{APIKeyEnv},
		Models: make(map[string]ProviderModel),
		NPM:    npm,
	}
	for _, m := range r.Active() {
		cfg.Models[m.ID] = ProviderModel{
			Name:       m.DisplayName,
			Limit:      m.Limit,
			Modalities: m.Modalities,
		}
	}
	return cfg
}

func (r *Registry) OmoAssignments() OmoAssignments {
	a := OmoAssignments{
		Agents:     make(map[string]string, len(omoAgents)),
		Categories: make(map[string]string, len(omoCategories)),
	}
	for name, id := range omoAgents {
		a.Agents[name] = ProviderID + "/" + id
	}
	for name, id := range omoCategories {
		a.Categories[name] = ProviderID + "/" + id
	}
	return a
}

// OmoConfig renders the assignment table as an oh-my-opencode document.
func (r *Registry) OmoConfig() map[string]any {
	a := r.OmoAssignments()
	agents := make(map[string]any, len(a.Agents))
	for name, model := range a.Agents {
		agents[name] = map[string]any{"model": model}
	}
	categories := make(map[string]any, len(a.Categories))
	for name, model := range a.Categories {
		categories[name] = map[string]any{"model": model}
	}
	return map[string]any{
		"$schema":    OmoSchemaURL,
		"agents":     agents,
		"categories": categories,
	}
}

// Validate reports catalog problems: duplicate ids, replacements that
// are missing or themselves deprecated, and OMO entries that point at
// unknown or deprecated models.
func (r *Registry) Validate() []string {
	var problems []string

	seen := make(map[string]bool)
	for _, m := range r.models {
		if seen[m.ID] {
			problems = append(problems, fmt.Sprintf("duplicate model id %q", m.ID))
		}
		seen[m.ID] = true
	}

	for _, m := range r.Deprecated() {
		if m.ReplacedBy == "" {
			problems = append(problems, fmt.Sprintf("deprecated model %q has no replacement", m.ID))
			continue
		}
		target, ok := r.ByID(m.ReplacedBy)
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("model %q replaced by unknown %q", m.ID, m.ReplacedBy))
		case target.Deprecated:
			problems = append(problems, fmt.Sprintf("model %q replaced by deprecated %q", m.ID, m.ReplacedBy))
		}
	}

	check := func(kind string, table map[string]string) {
		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			id := strings.TrimPrefix(table[name], ProviderID+"/")
			if m, ok := r.ByID(id); !ok || m.Deprecated {
				problems = append(problems, fmt.Sprintf("omo %s %q assigned to unavailable model %q", kind, name, id))
			}
		}
	}
	a := r.OmoAssignments()
	check("agent", a.Agents)
	check("category", a.Categories)

	return problems
}
