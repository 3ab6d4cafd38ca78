package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/metrics"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/providers"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/reqlog"
)

type apiKeyKey struct{}

// WithAPIKey overrides the dispatcher's API key for requests made with ctx.
func WithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, apiKeyKey{}, key)
}

func apiKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(apiKeyKey{}).(string)
	return key, ok && key != ""
}

type Options struct {
	APIKey string
	// Base performs the actual requests. Defaults to http.DefaultTransport.
	Base      http.RoundTripper
	Providers *providers.Registry
	Recorder  *reqlog.Recorder
	Metrics   *metrics.Collector
}

// Dispatcher is an http.RoundTripper that sends model API requests to the
// gateway. Requests for other APIs go out unchanged.
type Dispatcher struct {
	apiKey    string
	base      http.RoundTripper
	providers *providers.Registry
	recorder  *reqlog.Recorder
	metrics   *metrics.Collector
	logger    *slog.Logger

	requests atomic.Int64
}

func New(opts Options, logger *slog.Logger) *Dispatcher {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	registry := opts.Providers
	if registry == nil {
		registry = providers.NewRegistry()
		registry.Initialize(providers.EndpointsFor(""), providers.Options{Recorder: opts.Recorder}, logger)
	}
	return &Dispatcher{
		apiKey:    opts.APIKey,
		base:      base,
		providers: registry,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		logger:    logger,
	}
}

// Requests reports how many requests this dispatcher has handled.
func (d *Dispatcher) Requests() int64 {
	return d.requests.Load()
}

// Client returns an http.Client that uses d as its transport.
func (d *Dispatcher) Client() *http.Client {
	return &http.Client{Transport: d}
}

func (d *Dispatcher) RoundTrip(req *http.Request) (*http.Response, error) {
	d.requests.Add(1)

	body, err := readBody(req)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	route := Classify(req.URL.String(), body)
	provider, ok := d.providers.Get(string(route.Family))
	if route.Family == FamilyPassthrough || !ok {
		return d.passthrough(req, body)
	}

	call := &providers.Call{
		Request:    req.Clone(req.Context()),
		Body:       body,
		Model:      route.Model,
		Streaming:  route.Streaming,
		ThirdParty: route.ThirdParty,
		APIKey:     d.keyFor(req.Context()),
	}
	if err := provider.Rewrite(call); err != nil {
		d.logger.Warn("Request rewrite failed", "family", route.Family, "error", err)
		return nil, fmt.Errorf("rewrite %s request: %w", route.Family, err)
	}
	if call.Fallback {
		d.metrics.RecordTransformFallback(string(route.Family))
	}
	setBody(call.Request, call.Body)

	d.recorder.Debug("Routing request",
		"family", route.Family,
		"model", route.Model,
		"streaming", route.Streaming,
		"third_party", route.ThirdParty,
		"url", call.Request.URL.String(),
	)

	start := time.Now()
	resp, err := d.base.RoundTrip(call.Request)
	if err != nil {
		d.metrics.RecordUpstreamError(string(route.Family))
		return nil, err
	}
	d.metrics.RecordRequest(string(route.Family), resp.StatusCode, time.Since(start))

	resp.Body = d.recorder.CaptureBody(rawName(route), reqlog.RawMeta{
		URL:    call.Request.URL.String(),
		Status: resp.StatusCode,
		Model:  route.Model,
	}, resp.Body)

	return provider.HandleResponse(call, resp)
}

func (d *Dispatcher) passthrough(req *http.Request, body []byte) (*http.Response, error) {
	out := req.Clone(req.Context())
	if req.Body != nil {
		setBody(out, body)
	}
	return d.base.RoundTrip(out)
}

func (d *Dispatcher) keyFor(ctx context.Context) string {
	if key, ok := apiKeyFrom(ctx); ok {
		return key
	}
	return d.apiKey
}

func rawName(route Route) string {
	if route.Family == FamilyClaude && route.ThirdParty {
		return "claude-third-party"
	}
	return string(route.Family)
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

func setBody(req *http.Request, body []byte) {
	req.Header.Del("Content-Length")
	req.ContentLength = int64(len(body))
	if len(body) == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}
