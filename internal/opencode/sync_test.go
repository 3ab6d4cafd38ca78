package opencode

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
)

const testEntry = "file:///plugins/opencode-aicodewith-auth/index.js"

func standard() models.ProviderConfig {
	return models.Default().ProviderConfig("file:///plugins/opencode-aicodewith-auth/provider.js")
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestDeepEqual(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     any
		expected bool
	}{
		{name: "nil vs nil", a: nil, b: nil, expected: true},
		{name: "nil vs object", a: nil, b: map[string]any{}, expected: false},
		{name: "key order ignored", a: map[string]any{"a": 1.0, "b": "x"}, b: map[string]any{"b": "x", "a": 1.0}, expected: true},
		{name: "extra key", a: map[string]any{"a": 1.0}, b: map[string]any{"a": 1.0, "b": nil}, expected: false},
		{name: "array order matters", a: []any{"a", "b"}, b: []any{"b", "a"}, expected: false},
		{name: "nested", a: map[string]any{"x": []any{map[string]any{"y": true}}}, b: map[string]any{"x": []any{map[string]any{"y": true}}}, expected: true},
		{name: "type mismatch", a: "1", b: 1.0, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DeepEqual(tc.a, tc.b))
		})
	}
}

func TestEnsurePluginEntry(t *testing.T) {
	testCases := []struct {
		name      string
		list      any
		expected  []any
		wantAdded bool
	}{
		{name: "not an array", list: "oops", expected: []any{testEntry}, wantAdded: true},
		{name: "missing", list: nil, expected: []any{testEntry}, wantAdded: true},
		{name: "exact entry", list: []any{"other", testEntry}, expected: []any{"other", testEntry}},
		{name: "package name", list: []any{"opencode-aicodewith-auth"}, expected: []any{"opencode-aicodewith-auth"}},
		{name: "pinned package", list: []any{"opencode-aicodewith-auth@1.2.3"}, expected: []any{"opencode-aicodewith-auth@1.2.3"}},
		{name: "append keeps others", list: []any{"other", 3.0}, expected: []any{"other", 3.0, testEntry}, wantAdded: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, added := EnsurePluginEntry(tc.list, testEntry)
			assert.Equal(t, tc.wantAdded, added)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestIsPackageEntry(t *testing.T) {
	assert.True(t, IsPackageEntry("opencode-aicodewith-auth"))
	assert.True(t, IsPackageEntry("opencode-aicodewith-auth@latest"))
	assert.False(t, IsPackageEntry("opencode-aicodewith-auth-fork"))
	assert.False(t, IsPackageEntry("other"))
}

func TestApplyProviderConfig_FreshDocument(t *testing.T) {
	doc := NewDocument(SchemaURL)

	res, err := ApplyProviderConfig(doc, standard(), testEntry, models.Default().Migrations())
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{ChangeProviderUpdated, ChangePluginAdded}, res.Changes)

	out := decode(t, doc.Raw())
	assert.Equal(t, SchemaURL, out["$schema"])
	assert.Equal(t, []any{testEntry}, out["plugin"])
	assert.True(t, DeepEqual(out["provider"].(map[string]any)["aicodewith"], standard().Value()))
}

func TestApplyProviderConfig_Idempotent(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"model": "aicodewith/gpt-5.1-codex", "theme": "dark"}`), false)
	require.NoError(t, err)

	migrations := models.Default().Migrations()
	first, err := ApplyProviderConfig(doc, standard(), testEntry, migrations)
	require.NoError(t, err)
	assert.Contains(t, first.Changes, "model_migrated:aicodewith/gpt-5.1-codex")

	second, err := ApplyProviderConfig(doc, standard(), testEntry, migrations)
	require.NoError(t, err)
	assert.False(t, second.Changed, "second application should be a no-op, got %v", second.Changes)
	assert.Equal(t, "aicodewith/gpt-5.3-codex", doc.Get("model").String())
}

func TestApplyProviderConfig_PreservesSiblings(t *testing.T) {
	input := `{
  "theme": "dark",
  "provider": {
    "openai": {"name": "OpenAI", "options": {"baseURL": "https://example.com/v1"}},
    "aicodewith": {"name": "stale", "models": {}}
  },
  "plugin": ["some-other-plugin@2.0.0"],
  "keybinds": {"leader": "ctrl+x"}
}`
	doc, err := ParseDocument([]byte(input), false)
	require.NoError(t, err)

	res, err := ApplyProviderConfig(doc, standard(), testEntry, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ChangeProviderUpdated, ChangePluginAdded}, res.Changes)

	out := decode(t, doc.Raw())
	assert.Equal(t, "dark", out["theme"])
	assert.Equal(t, map[string]any{"leader": "ctrl+x"}, out["keybinds"])
	assert.Equal(t, []any{"some-other-plugin@2.0.0", testEntry}, out["plugin"])

	providers := out["provider"].(map[string]any)
	assert.Equal(t, map[string]any{"name": "OpenAI", "options": map[string]any{"baseURL": "https://example.com/v1"}}, providers["openai"])
	assert.Equal(t, "AICodewith", providers["aicodewith"].(map[string]any)["name"], "our block is replaced wholesale")

	rendered, err := doc.Bytes()
	require.NoError(t, err)
	text := string(rendered)
	assert.True(t, strings.HasSuffix(text, "}\n"), "output should end with a newline")
	assert.Less(t, strings.Index(text, `"theme"`), strings.Index(text, `"keybinds"`), "user key order should be kept")
	assert.Contains(t, text, "\n  \"theme\": \"dark\",", "two-space indent")
}

func TestApplyProviderConfig_NonObjectProviderIsReplaced(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"provider": "broken", "plugin": ["opencode-aicodewith-auth"]}`), false)
	require.NoError(t, err)

	res, err := ApplyProviderConfig(doc, standard(), testEntry, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ChangeProviderUpdated}, res.Changes)
	assert.True(t, doc.Get("provider.aicodewith").IsObject())
}

func TestApplyProviderConfig_UnknownModelLeftAlone(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"model": "anthropic/claude-3-opus"}`), false)
	require.NoError(t, err)

	res, err := ApplyProviderConfig(doc, standard(), testEntry, models.Default().Migrations())
	require.NoError(t, err)
	for _, c := range res.Changes {
		assert.NotContains(t, c, ChangeModelMigrated)
	}
	assert.Equal(t, "anthropic/claude-3-opus", doc.Get("model").String())
}

func TestParseDocument(t *testing.T) {
	_, err := ParseDocument([]byte(`{"a": `), false)
	assert.Error(t, err, "truncated JSON")

	_, err = ParseDocument([]byte(`[1, 2]`), false)
	assert.ErrorIs(t, err, ErrNotObject)

	doc, err := ParseDocument([]byte("{\n  // comment\n  \"a\": 1,\n}"), true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Get("a").Int())
}

func TestApplyToMap(t *testing.T) {
	cfg := map[string]any{
		"model":  "claude-opus-4-5-20251101",
		"plugin": []any{"opencode-aicodewith-auth@1.0.0"},
		"provider": map[string]any{
			"other": map[string]any{"name": "Other"},
		},
	}

	res := ApplyToMap(cfg, standard(), testEntry, models.Default().Migrations())
	assert.Equal(t, []string{ChangeProviderUpdated, "model_migrated:claude-opus-4-5-20251101"}, res.Changes)
	assert.Equal(t, "claude-opus-4-6-20260205", cfg["model"])

	providers := cfg["provider"].(map[string]any)
	assert.Contains(t, providers, "other")
	assert.Contains(t, providers, "aicodewith")

	again := ApplyToMap(cfg, standard(), testEntry, models.Default().Migrations())
	assert.False(t, again.Changed)
}
