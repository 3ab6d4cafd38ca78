package plugin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/providers"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/update"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type captureTransport struct {
	last *http.Request
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.last = req
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{}`)),
		Request:    req,
	}, nil
}

func newTestRuntime(t *testing.T, base http.RoundTripper) *Runtime {
	t.Helper()
	cfg := &config.Config{
		Home:     t.TempDir(),
		Upstream: "https://gw.example.com",
		APIKey:   "sk-config",
	}
	return NewRuntime(cfg, RuntimeOptions{
		Prompts: providers.StaticPrompt("You are OpenCode."),
		Base:    base,
	}, testLogger())
}

func TestHooks_InitWritesHostConfig(t *testing.T) {
	rt := newTestRuntime(t, &captureTransport{})
	New(rt, nil, testLogger()).Init(context.Background())

	data, err := os.ReadFile(rt.Paths.JSON)
	require.NoError(t, err, "opencode.json should be created")
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc["provider"], models.ProviderID)
	assert.Contains(t, doc["plugin"], "opencode-aicodewith-auth")

	omoData, err := os.ReadFile(rt.Paths.Omo)
	require.NoError(t, err, "oh-my-opencode.json should be created")
	assert.Contains(t, string(omoData), models.OmoSchemaURL)

	assert.Equal(t, filepath.Join(rt.Config.Home, ".config", "opencode"), rt.Paths.Dir)
}

func TestHooks_InitSurvivesMalformedConfig(t *testing.T) {
	rt := newTestRuntime(t, &captureTransport{})
	require.NoError(t, os.MkdirAll(rt.Paths.Dir, 0755))
	require.NoError(t, os.WriteFile(rt.Paths.JSON, []byte("{not json"), 0644))

	New(rt, nil, testLogger()).Init(context.Background())

	data, err := os.ReadFile(rt.Paths.JSON)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data), "malformed config is left alone")
}

func TestHooks_InitRespectsDisabledOmo(t *testing.T) {
	cfg := &config.Config{Home: t.TempDir(), DisableOmoSync: true}
	rt := NewRuntime(cfg, RuntimeOptions{Prompts: providers.StaticPrompt("x")}, testLogger())

	New(rt, nil, testLogger()).Init(context.Background())

	_, err := os.Stat(rt.Paths.Omo)
	assert.True(t, os.IsNotExist(err))
}

func TestHooks_Config(t *testing.T) {
	rt := newTestRuntime(t, &captureTransport{})
	hooks := New(rt, nil, testLogger())

	cfg := map[string]any{"model": "aicodewith/gpt-5.2-codex"}
	res := hooks.Config(cfg)

	assert.True(t, res.Changed)
	assert.Equal(t, "aicodewith/gpt-5.3-codex", cfg["model"])
	assert.Contains(t, cfg["provider"], models.ProviderID)

	again := hooks.Config(cfg)
	assert.False(t, again.Changed, "second pass is a no-op")
}

func TestHooks_Loader(t *testing.T) {
	base := &captureTransport{}
	hooks := New(newTestRuntime(t, base), nil, testLogger())

	testCases := []struct {
		name    string
		auth    Auth
		wantKey string
	}{
		{name: "api key", auth: Auth{Type: "api", Key: "  sk-user  "}, wantKey: "sk-user"},
		{name: "blank key", auth: Auth{Type: "api", Key: "   "}},
		{name: "oauth", auth: Auth{Type: "oauth", Key: "sk-user"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := hooks.Loader(tc.auth)
			assert.Equal(t, tc.wantKey, res.APIKey)
			if tc.wantKey == "" {
				assert.Nil(t, res.Transport)
			} else {
				assert.NotNil(t, res.Transport)
			}
		})
	}
}

func TestHooks_LoaderTransportUsesUserKey(t *testing.T) {
	base := &captureTransport{}
	hooks := New(newTestRuntime(t, base), nil, testLogger())
	res := hooks.Loader(Auth{Type: "api", Key: "sk-user"})

	client := &http.Client{Transport: res.Transport}
	req, err := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/responses", strings.NewReader(`{"model":"gpt-5.2","stream":true}`))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.NotNil(t, base.last)
	assert.Equal(t, "Bearer sk-user", base.last.Header.Get("Authorization"))
	assert.Equal(t, "https://gw.example.com/chatgpt/v1/responses", base.last.URL.String())
}

func TestHooks_Authorize(t *testing.T) {
	hooks := New(newTestRuntime(t, nil), nil, testLogger())

	assert.Equal(t, AuthResult{Type: AuthSuccess, Key: "sk-1"}, hooks.Authorize(map[string]string{"apiKey": " sk-1 "}))
	assert.Equal(t, AuthResult{Type: AuthFailed}, hooks.Authorize(map[string]string{"apiKey": "  "}))
	assert.Equal(t, AuthResult{Type: AuthFailed}, hooks.Authorize(nil))

	methods := hooks.Methods()
	require.Len(t, methods, 1)
	assert.Equal(t, AuthMethodLabel, methods[0].Label)
	assert.Equal(t, "apiKey", methods[0].Prompts[0].Key)
}

func TestHooks_Event(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"version":"9.9.9"}`))
	}))
	defer server.Close()

	var notified string
	checker := update.NewChecker("0.1.0", update.NotifierFunc(func(_, latest string) { notified = latest }), testLogger())
	checker.URL = server.URL
	hooks := New(newTestRuntime(t, nil), checker, testLogger())

	hooks.Event(context.Background(), update.Event{Type: update.EventSessionCreated})
	hooks.Event(context.Background(), update.Event{Type: update.EventSessionCreated})

	assert.Equal(t, "9.9.9", notified)
	assert.Equal(t, int32(1), hits.Load())

	// A nil checker is a no-op.
	New(newTestRuntime(t, nil), nil, testLogger()).Event(context.Background(), update.Event{Type: update.EventSessionCreated})
}

func TestHooks_ChatParams(t *testing.T) {
	claude := ChatModel{ID: "claude-opus-4-5-20251101", ProviderID: models.ProviderID}

	testCases := []struct {
		name         string
		model        ChatModel
		options      map[string]any
		keepThinking bool
	}{
		{
			name:    "budget at default limit",
			model:   claude,
			options: map[string]any{"thinking": map[string]any{"budgetTokens": 32000.0}},
		},
		{
			name:         "budget under default limit",
			model:        claude,
			options:      map[string]any{"thinking": map[string]any{"budgetTokens": 31999.0}},
			keepThinking: true,
		},
		{
			name:    "model limit wins",
			model:   ChatModel{ID: claude.ID, ProviderID: claude.ProviderID, OutputLimit: 16000},
			options: map[string]any{"thinking": map[string]any{"budgetTokens": 16000}, "maxTokens": 64000.0},
		},
		{
			name:         "options max tokens",
			model:        claude,
			options:      map[string]any{"thinking": map[string]any{"budgetTokens": 8000.0}, "maxTokens": 10000.0},
			keepThinking: true,
		},
		{
			name:         "other provider",
			model:        ChatModel{ID: claude.ID, ProviderID: "anthropic"},
			options:      map[string]any{"thinking": map[string]any{"budgetTokens": 64000.0}},
			keepThinking: true,
		},
		{
			name:         "non-claude model",
			model:        ChatModel{ID: "gpt-5.2", ProviderID: models.ProviderID},
			options:      map[string]any{"thinking": map[string]any{"budgetTokens": 64000.0}},
			keepThinking: true,
		},
		{
			name:         "budget not a number",
			model:        claude,
			options:      map[string]any{"thinking": map[string]any{"budgetTokens": "64000"}},
			keepThinking: true,
		},
	}

	hooks := New(newTestRuntime(t, nil), nil, testLogger())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			original := tc.options
			out := &ChatParamsOutput{Options: tc.options}
			hooks.ChatParams(ChatParamsInput{Model: tc.model}, out)

			_, has := out.Options["thinking"]
			assert.Equal(t, tc.keepThinking, has)
			_, stillThere := original["thinking"]
			assert.True(t, stillThere, "the caller's map is not modified")
		})
	}
}
