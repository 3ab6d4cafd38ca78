package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CatalogIsValid(t *testing.T) {
	assert.Empty(t, Default().Validate(), "built-in catalog should have no problems")
}

func TestRegistry_ActiveAndDeprecatedPartition(t *testing.T) {
	r := Default()

	active := r.Active()
	deprecated := r.Deprecated()
	assert.Equal(t, len(Catalog), len(active)+len(deprecated), "partition should cover the catalog")

	for _, m := range active {
		assert.False(t, m.Deprecated, "active list should not contain %s", m.ID)
	}
	for _, m := range deprecated {
		assert.True(t, m.Deprecated, "deprecated list should only contain deprecated models")
		target, ok := r.ByID(m.ReplacedBy)
		require.True(t, ok, "replacement of %s should exist", m.ID)
		assert.False(t, target.Deprecated, "replacement of %s should be active", m.ID)
	}
}

func TestRegistry_ByAlias(t *testing.T) {
	r := Default()

	testCases := []struct {
		name     string
		alias    string
		expected string
		found    bool
	}{
		{name: "canonical id", alias: "gpt-5.2", expected: "gpt-5.2", found: true},
		{name: "declared alias", alias: "codex", expected: "gpt-5.3-codex", found: true},
		{name: "alias with spaces", alias: "gpt 5.3 codex", expected: "gpt-5.3-codex", found: true},
		{name: "case and whitespace", alias: "  GPT-5.2  ", expected: "gpt-5.2", found: true},
		{name: "effort variant", alias: "gpt-5.2-xhigh", expected: "gpt-5.2", found: true},
		{name: "effort variant on claude", alias: "claude-sonnet-4-5-20250929-low", expected: "claude-sonnet-4-5-20250929", found: true},
		{name: "deprecated id", alias: "gpt-5.1-codex", expected: "gpt-5.1-codex", found: true},
		{name: "unknown", alias: "llama-3", found: false},
		{name: "empty", alias: "   ", found: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := r.ByAlias(tc.alias)
			assert.Equal(t, tc.found, ok, "lookup result for %q", tc.alias)
			if tc.found {
				assert.Equal(t, tc.expected, m.ID)
			}
		})
	}
}

func TestRegistry_MigrationsCoverEveryDeprecatedModel(t *testing.T) {
	r := Default()
	migrations := r.Migrations()

	for _, m := range r.Deprecated() {
		assert.Equal(t, m.ReplacedBy, migrations[m.ID], "bare migration for %s", m.ID)
		assert.Equal(t, ProviderID+"/"+m.ReplacedBy, migrations[ProviderID+"/"+m.ID], "prefixed migration for %s", m.ID)
	}

	for from, to := range migrations {
		_, chained := migrations[to]
		assert.False(t, chained, "migration %s -> %s should not chain", from, to)
	}
}

func TestRegistry_MigrationsSynthesizeThirdPartyVariants(t *testing.T) {
	r := NewRegistry([]Model{
		{ID: "claude-new", Family: FamilyClaude},
		{ID: "claude-old", Family: FamilyClaude, Deprecated: true, ReplacedBy: "claude-new"},
	})

	migrations := r.Migrations()
	assert.Equal(t, "claude-new", migrations["claude-old-third-party"])
	assert.Equal(t, "aicodewith/claude-new", migrations["aicodewith/claude-old-third-party"])
}

func TestRegistry_AliasMapOnlyActive(t *testing.T) {
	aliases := Default().AliasMap()

	assert.Equal(t, "gpt-5.3-codex", aliases["aicodewith/gpt-5.3-codex-high"])
	assert.Equal(t, "gpt-5.2", aliases["gpt 5.2"])
	assert.NotContains(t, aliases, "gpt-5.1-codex", "deprecated ids must not be aliased")

	for _, target := range aliases {
		m, ok := Default().ByID(target)
		require.True(t, ok)
		assert.False(t, m.Deprecated, "alias target %s should be active", target)
	}
}

func TestRegistry_ProviderConfig(t *testing.T) {
	cfg := Default().ProviderConfig("file:///plugin/provider.js")

	assert.Equal(t, "AICodewith", cfg.Name)
	assert.Equal(t, []string{"AICODEWITH_API_KEY"}, cfg.Env)
	assert.Len(t, cfg.Models, len(Default().Active()), "only active models are published")

	opus, ok := cfg.Models["claude-opus-4-6-20260205"]
	require.True(t, ok)
	assert.Equal(t, "Claude Opus 4.6", opus.Name)
	assert.Equal(t, Limit{Context: 200000, Output: 64000}, opus.Limit)

	raw := string(cfg.JSON())
	assert.True(t, strings.HasPrefix(raw, `{"name":"AICodewith","env":`), "field order should follow the struct: %s", raw)

	decoded, ok := cfg.Value().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "file:///plugin/provider.js", decoded["npm"])
}

func TestRegistry_OmoConfig(t *testing.T) {
	doc := Default().OmoConfig()

	assert.Equal(t, OmoSchemaURL, doc["$schema"])

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var parsed struct {
		Agents     map[string]struct{ Model string } `json:"agents"`
		Categories map[string]struct{ Model string } `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "aicodewith/gpt-5.2", parsed.Agents["oracle"].Model)
	assert.Equal(t, "aicodewith/claude-opus-4-6-20260205", parsed.Agents["build"].Model)
	assert.Equal(t, "aicodewith/gemini-3-pro", parsed.Categories["visual-engineering"].Model)
	assert.Len(t, parsed.Agents, 17)
	assert.Len(t, parsed.Categories, 11)
}

func TestRegistry_ValidateReportsProblems(t *testing.T) {
	r := NewRegistry([]Model{
		{ID: "a"},
		{ID: "a"},
		{ID: "b", Deprecated: true},
		{ID: "c", Deprecated: true, ReplacedBy: "b"},
	})

	problems := r.Validate()
	joined := strings.Join(problems, "\n")
	assert.Contains(t, joined, `duplicate model id "a"`)
	assert.Contains(t, joined, `"b" has no replacement`)
	assert.Contains(t, joined, `replaced by deprecated "b"`)
}
