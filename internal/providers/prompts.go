package providers

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

//go:embed prompts/codex.md
var codexInstructions string

//go:embed prompts/bridge.md
var codexBridge string

const (
	OpenCodePromptURL = "https://raw.githubusercontent.com/anomalyco/opencode/dev/packages/opencode/src/session/prompt/codex_header.txt"
	PromptCacheTTL    = 15 * time.Minute

	promptFetchTimeout = 10 * time.Second

	promptFile     = "opencode-codex-header.txt"
	promptMetaFile = "opencode-codex-header-meta.json"
)

// CodexInstructions is the system prompt sent as "instructions" on every
// Codex request.
func CodexInstructions() string {
	return codexInstructions
}

// CodexBridge is the developer message prepended when tools are present.
func CodexBridge() string {
	return codexBridge
}

// PromptSource yields the host's own Codex system prompt so it can be
// filtered out of the input.
type PromptSource interface {
	Prompt(ctx context.Context) (string, error)
}

// DefaultCacheDir is ~/.opencode/cache.
func DefaultCacheDir(home string) string {
	return filepath.Join(home, ".opencode", "cache")
}

type promptMeta struct {
	ETag        string `json:"etag"`
	URL         string `json:"url"`
	LastChecked int64  `json:"lastChecked"`
}

// PromptCache fetches the prompt with ETag revalidation and keeps a copy
// in memory and on disk. A failed refresh serves the last good copy; a
// failure with no copy is remembered for TTL before the next attempt.
// Concurrent callers share one fetch.
type PromptCache struct {
	URL    string
	Dir    string
	TTL    time.Duration
	Client *http.Client

	now func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	content  string
	meta     promptMeta
	loaded   bool
	failedAt time.Time
	failErr  error
}

func NewPromptCache(dir string) *PromptCache {
	return &PromptCache{
		URL:    OpenCodePromptURL,
		Dir:    dir,
		TTL:    PromptCacheTTL,
		Client: &http.Client{Timeout: promptFetchTimeout},
	}
}

func (c *PromptCache) Prompt(ctx context.Context) (string, error) {
	if content, ok, err := c.cached(); ok {
		return content, err
	}

	// The first caller's cancellation must not fail the callers sharing
	// its fetch; the client timeout still bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do("prompt", func() (any, error) {
		return c.refresh(fetchCtx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// cached answers from memory when the copy is fresh or a recent attempt
// failed.
func (c *PromptCache) cached() (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.loadDisk()
		c.loaded = true
	}

	now := c.clock()
	if c.content != "" && now.Sub(time.UnixMilli(c.meta.LastChecked)) < c.ttl() {
		return c.content, true, nil
	}
	if c.content == "" && c.failErr != nil && now.Sub(c.failedAt) < c.ttl() {
		return "", true, c.failErr
	}
	return "", false, nil
}

func (c *PromptCache) refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	etag := ""
	if c.content != "" {
		etag = c.meta.ETag
	}
	c.mu.Unlock()

	content, newETag, status, err := c.fetch(ctx, etag)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	switch {
	case err == nil && status == http.StatusNotModified && c.content != "":
		c.meta.LastChecked = now.UnixMilli()
		c.saveDisk(false)
		return c.content, nil
	case err == nil && status >= 200 && status < 300 && content != "":
		c.content = content
		c.meta = promptMeta{ETag: newETag, URL: c.URL, LastChecked: now.UnixMilli()}
		c.failErr = nil
		c.saveDisk(true)
		return c.content, nil
	}

	if c.content != "" {
		// keep serving the stale copy until the next TTL window
		c.meta.LastChecked = now.UnixMilli()
		return c.content, nil
	}
	if err == nil {
		err = fmt.Errorf("unexpected status %d", status)
	}
	c.failErr = fmt.Errorf("fetch opencode prompt: %w", err)
	c.failedAt = now
	return "", c.failErr
}

func (c *PromptCache) fetch(ctx context.Context, etag string) (string, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", "", 0, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: promptFetchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", resp.StatusCode, err
	}
	return string(data), resp.Header.Get("ETag"), resp.StatusCode, nil
}

func (c *PromptCache) loadDisk() {
	if c.Dir == "" {
		return
	}
	data, err := os.ReadFile(filepath.Join(c.Dir, promptFile))
	if err != nil {
		return
	}
	c.content = string(data)

	if raw, err := os.ReadFile(filepath.Join(c.Dir, promptMetaFile)); err == nil {
		var meta promptMeta
		if json.Unmarshal(raw, &meta) == nil && meta.URL == c.URL {
			c.meta = meta
		}
	}
}

// saveDisk is best-effort; the in-memory copy stays authoritative.
func (c *PromptCache) saveDisk(content bool) {
	if c.Dir == "" {
		return
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return
	}
	if content {
		_ = os.WriteFile(filepath.Join(c.Dir, promptFile), []byte(c.content), 0644)
	}
	if data, err := json.Marshal(c.meta); err == nil {
		_ = os.WriteFile(filepath.Join(c.Dir, promptMetaFile), data, 0644)
	}
}

func (c *PromptCache) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *PromptCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return PromptCacheTTL
}

// StaticPrompt is a fixed PromptSource.
type StaticPrompt string

func (s StaticPrompt) Prompt(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return string(s), nil
}
