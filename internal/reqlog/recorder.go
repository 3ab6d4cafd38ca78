// Package reqlog writes per-request debug artifacts: staged request
// snapshots and raw upstream bodies.
package reqlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

const (
	LoggingEnv = "ENABLE_PLUGIN_REQUEST_LOGGING"
	DebugEnv   = "DEBUG_CODEX_PLUGIN"
	RawEnv     = "SAVE_RAW_RESPONSE"

	dirName = "opencode-aicodewith-auth"
)

// DefaultDir is ~/.opencode/logs/opencode-aicodewith-auth.
func DefaultDir(home string) string {
	return filepath.Join(home, ".opencode", "logs", dirName)
}

type Options struct {
	Dir            string
	RequestLogging bool
	Debug          bool
	SaveRaw        bool
}

// Recorder is safe for concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	opts   Options
	logger *slog.Logger

	requests atomic.Int64
	raws     atomic.Int64
}

func New(opts Options, logger *slog.Logger) *Recorder {
	if opts.RequestLogging {
		opts.Debug = true
		logger.Info("Request logging enabled", "dir", opts.Dir)
	} else if opts.Debug {
		logger.Info("Debug logging enabled")
	}
	return &Recorder{opts: opts, logger: logger}
}

func (r *Recorder) DebugEnabled() bool {
	return r != nil && r.opts.Debug
}

// Debug logs at info level when debug mode is on, so it shows without
// lowering the global level.
func (r *Recorder) Debug(msg string, args ...any) {
	if !r.DebugEnabled() {
		return
	}
	r.logger.Info(msg, args...)
}

func (r *Recorder) Warn(msg string, args ...any) {
	if !r.DebugEnabled() {
		return
	}
	r.logger.Warn(msg, args...)
}

// Log writes request-{n}-{stage}.json when request logging is enabled.
func (r *Recorder) Log(stage string, data map[string]any) {
	if r == nil || !r.opts.RequestLogging {
		return
	}

	n := r.requests.Add(1)
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"requestId": n,
		"stage":     stage,
	}
	for k, v := range data {
		entry[k] = v
	}

	path := filepath.Join(r.opts.Dir, fmt.Sprintf("request-%d-%s.json", n, stage))
	if err := r.writeJSON(path, entry); err != nil {
		r.logger.Error("Failed to write request log", "error", err)
		return
	}
	r.logger.Info("Logged request stage", "stage", stage, "path", path)
}

// Requests reports how many stage logs have been written.
func (r *Recorder) Requests() int64 {
	if r == nil {
		return 0
	}
	return r.requests.Load()
}

type RawMeta struct {
	URL    string
	Status int
	Model  string
}

// CaptureBody tees body into a raw-{provider}-{n}.json file that is
// written once the caller closes the returned reader. The stream is not
// delayed.
func (r *Recorder) CaptureBody(provider string, meta RawMeta, body io.ReadCloser) io.ReadCloser {
	if r == nil || !r.opts.SaveRaw || body == nil {
		return body
	}
	c := &capture{recorder: r, provider: provider, meta: meta, src: body}
	c.tee = io.TeeReader(body, &c.buf)
	return c
}

type capture struct {
	recorder *Recorder
	provider string
	meta     RawMeta
	src      io.ReadCloser
	tee      io.Reader
	buf      bytes.Buffer
	once     sync.Once
}

func (c *capture) Read(p []byte) (int, error) {
	return c.tee.Read(p)
}

func (c *capture) Close() error {
	err := c.src.Close()
	c.once.Do(func() {
		c.recorder.saveRaw(c.provider, c.meta, c.buf.String())
	})
	return err
}

func (r *Recorder) saveRaw(provider string, meta RawMeta, body string) {
	n := r.raws.Add(1)
	path := filepath.Join(r.opts.Dir, fmt.Sprintf("raw-%s-%d.json", provider, n))
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"provider":  provider,
		"url":       meta.URL,
		"status":    meta.Status,
		"model":     meta.Model,
		"body":      body,
	}
	if err := r.writeJSON(path, entry); err != nil {
		r.logger.Error("Failed to save raw response", "error", err)
		return
	}
	r.logger.Info("Saved raw response", "provider", provider, "path", path)
}

func (r *Recorder) writeJSON(path string, v any) error {
	if err := os.MkdirAll(r.opts.Dir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
