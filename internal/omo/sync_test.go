package omo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubSource struct {
	assignments models.OmoAssignments
	err         error
	calls       int
}

func (s *stubSource) Assignments(context.Context) (models.OmoAssignments, error) {
	s.calls++
	return s.assignments, s.err
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestIsDisabled(t *testing.T) {
	testCases := []struct {
		value    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" 1 ", true},
		{"", false},
		{"0", false},
		{"yes", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, IsDisabled(tc.value), "value %q", tc.value)
	}
}

func TestSync_AddsOnlyMissingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oh-my-opencode.json")
	existing := `{
  "$schema": "custom",
  "agents": {
    "oracle": {"model": "openai/gpt-4o", "temperature": 0.2},
    "build": {"model": "aicodewith/gpt-5.1-codex"}
  },
  "categories": {"quick": {"model": "x/y"}},
  "extra": true
}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0644))

	syncer := NewSyncer(path, RegistrySource{Registry: models.Default()}, Options{}, testLogger())
	added := syncer.Sync(context.Background())

	assert.NotEmpty(t, added)
	assert.NotContains(t, added, "agents.oracle")
	assert.Contains(t, added, "agents.sisyphus")

	out := readJSON(t, path)
	agents := out["agents"].(map[string]any)
	assert.Equal(t, map[string]any{"model": "openai/gpt-4o", "temperature": 0.2}, agents["oracle"], "user entries are never overwritten")
	assert.Equal(t, map[string]any{"model": "aicodewith/gpt-5.1-codex"}, agents["build"], "stale entries are not migrated")
	assert.Equal(t, map[string]any{"model": "aicodewith/claude-sonnet-4-5-20250929"}, agents["sisyphus"])
	assert.Len(t, agents, 17)

	categories := out["categories"].(map[string]any)
	assert.Equal(t, map[string]any{"model": "x/y"}, categories["quick"])
	assert.Len(t, categories, 11)

	assert.Equal(t, "custom", out["$schema"])
	assert.Equal(t, true, out["extra"])

	assert.Nil(t, syncer.Sync(context.Background()), "second run has nothing to add")
}

func TestSync_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "oh-my-opencode.json")

	syncer := NewSyncer(path, RegistrySource{}, Options{}, testLogger())
	added := syncer.Sync(context.Background())
	assert.Len(t, added, 28)

	out := readJSON(t, path)
	assert.Equal(t, models.OmoSchemaURL, out["$schema"])
	assert.Contains(t, out, "agents")
	assert.Contains(t, out, "categories")
}

func TestSync_DisabledDoesNoIO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oh-my-opencode.json")
	source := &stubSource{}

	syncer := NewSyncer(path, source, Options{Disabled: true}, testLogger())
	assert.Nil(t, syncer.Sync(context.Background()))

	assert.Equal(t, 0, source.calls, "source must not be consulted")
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file must not be created")
}

func TestSync_SourceFailureAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oh-my-opencode.json")

	syncer := NewSyncer(path, &stubSource{err: errors.New("offline")}, Options{}, testLogger())
	assert.Nil(t, syncer.Sync(context.Background()))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSync_MalformedUserFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oh-my-opencode.json")
	original := []byte(`{"agents": {`)
	require.NoError(t, os.WriteFile(path, original, 0644))

	syncer := NewSyncer(path, RegistrySource{}, Options{}, testLogger())
	assert.Nil(t, syncer.Sync(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestSync_MalformedSectionSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oh-my-opencode.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"agents": "nope"}`), 0644))

	var keys []string
	syncer := NewSyncer(path, RegistrySource{}, Options{OnAdded: func(k string) { keys = append(keys, k) }}, testLogger())
	added := syncer.Sync(context.Background())

	assert.Len(t, added, 11, "only categories are filled")
	assert.Equal(t, added, keys)

	out := readJSON(t, path)
	assert.Equal(t, "nope", out["agents"])
}

func TestRemoteSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"agents": {"oracle": {"model": "aicodewith/gpt-5.2"}, "bad": {"temperature": 1}}, "categories": {"deep": {"model": "aicodewith/gemini-3-pro"}}}`))
	}))
	defer server.Close()

	got, err := RemoteSource{URL: server.URL}.Assignments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"oracle": "aicodewith/gpt-5.2"}, got.Agents)
	assert.Equal(t, map[string]string{"deep": "aicodewith/gemini-3-pro"}, got.Categories)
}

func TestRemoteSource_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"agents":`))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout: 50 * time.Millisecond,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			_, err := RemoteSource{URL: server.URL, Timeout: tc.timeout}.Assignments(context.Background())
			assert.Error(t, err)
		})
	}
}
