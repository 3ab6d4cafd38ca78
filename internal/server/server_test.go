package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/plugin"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/providers"
)

type okUpstream struct{}

func (okUpstream) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"ok":true}`)),
		Request:    req,
	}, nil
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	manager := config.NewManager(t.TempDir())
	require.NoError(t, manager.Save(cfg))

	cfg.Home = t.TempDir()
	rt := plugin.NewRuntime(cfg, plugin.RuntimeOptions{
		Prompts: providers.StaticPrompt("x"),
		Base:    okUpstream{},
	}, logger)
	srv := New(manager, rt, logger)
	srv.countTokens = func(string) int { return 1 }
	return srv
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t, &config.Config{Upstream: "https://gw.example.com", ProxyKey: "local"})
	handler := srv.Handler()

	// Cases run in order; the metrics case depends on the proxied request.
	testCases := []struct {
		name     string
		method   string
		path     string
		auth     string
		expected int
		contains string
	}{
		{name: "health", method: http.MethodGet, path: "/health", expected: http.StatusOK, contains: `"status":"ok"`},
		{name: "proxy without key", method: http.MethodPost, path: "/v1/responses", expected: http.StatusUnauthorized},
		{name: "proxy with key", method: http.MethodPost, path: "/v1/responses", auth: "Bearer local", expected: http.StatusOK, contains: `"ok":true`},
		{name: "metrics after traffic", method: http.MethodGet, path: "/metrics", expected: http.StatusOK, contains: `aicodewith_requests_total{family="codex",status="200"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{"model":"gpt-5.2"}`))
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.expected, rec.Code)
			if tc.contains != "" {
				assert.Contains(t, rec.Body.String(), tc.contains)
			}
		})
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, &config.Config{Upstream: "https://gw.example.com"})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/health")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
