package handlers

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/pkoukk/tiktoken-go"
	"github.com/tidwall/gjson"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/dispatch"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/metrics"
)

const streamChunk = 32 * 1024

// Inbound credential headers. They are never forwarded; the key they carry
// is handed to the dispatcher instead.
var credentialHeaders = []string{"Authorization", "X-Api-Key", "X-Goog-Api-Key"}

var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Connection", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// ProxyHandler forwards local requests through the dispatcher as if the
// caller had addressed the gateway directly.
type ProxyHandler struct {
	config     *config.Manager
	dispatcher http.RoundTripper
	metrics    *metrics.Collector
	logger     *slog.Logger

	countTokens func(text string) int
}

func NewProxyHandler(config *config.Manager, dispatcher http.RoundTripper, collector *metrics.Collector, logger *slog.Logger) *ProxyHandler {
	h := &ProxyHandler{
		config:     config,
		dispatcher: dispatcher,
		metrics:    collector,
		logger:     logger,
	}
	h.countTokens = h.countInputTokens
	return h
}

// SetTokenCounter replaces the tiktoken estimate.
func (h *ProxyHandler) SetTokenCounter(count func(text string) int) {
	h.countTokens = count
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := h.config.Get()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.httpError(w, http.StatusBadRequest, "failed to read request body: %v", err)
		return
	}

	target := strings.TrimRight(cfg.Upstream, "/") + r.URL.RequestURI()
	route := dispatch.Classify(target, body)

	inputTokens := h.countTokens(string(body))
	h.metrics.RecordInputTokens(string(route.Family), inputTokens)

	ctx := r.Context()
	if key := callerKey(r); key != "" && cfg.ProxyKey == "" {
		ctx = dispatch.WithAPIKey(ctx, key)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, strings.NewReader(string(body)))
	if err != nil {
		h.httpError(w, http.StatusInternalServerError, "failed to create upstream request: %v", err)
		return
	}
	req.Header = r.Header.Clone()
	for _, name := range append(credentialHeaders, hopHeaders...) {
		req.Header.Del(name)
	}
	if route.Family == dispatch.FamilyPassthrough {
		passthroughCredentials(req.Header, r.Header, cfg)
	}
	if len(body) == 0 {
		req.Body = http.NoBody
		req.ContentLength = 0
	}

	h.logger.Info("Proxying request",
		"family", route.Family,
		"model", route.Model,
		"streaming", route.Streaming,
		"url", target,
		"input_tokens", inputTokens,
	)

	resp, err := h.dispatcher.RoundTrip(req)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "upstream request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if isEventStream(resp.Header) {
		h.handleStreamingResponse(w, resp, inputTokens)
	} else {
		h.handleResponse(w, resp, inputTokens)
	}
}

func (h *ProxyHandler) handleStreamingResponse(w http.ResponseWriter, resp *http.Response, inputTokens int) {
	bodyReader, err := h.decompressReader(resp)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "decompression error: %v", err)
		return
	}
	if closer, ok := bodyReader.(io.Closer); ok {
		defer closer.Close()
	}

	h.copyHeaders(w, resp)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(resp.StatusCode)

	var written int64
	buf := make([]byte, streamChunk)
	for {
		n, err := bodyReader.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				h.logger.Debug("Client went away during stream", "error", werr)
				return
			}
			written += int64(n)
			h.flushResponse(w)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.logger.Error("Stream read error", "error", err)
			break
		}
	}

	h.logger.Info("Completed streaming response",
		"status", resp.StatusCode,
		"input_tokens", inputTokens,
		"bytes", written,
	)
}

func (h *ProxyHandler) handleResponse(w http.ResponseWriter, resp *http.Response, inputTokens int) {
	bodyReader, err := h.decompressReader(resp)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "decompression error: %v", err)
		return
	}
	if closer, ok := bodyReader.(io.Closer); ok {
		defer closer.Close()
	}

	respBody, err := io.ReadAll(bodyReader)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "failed to read upstream response: %v", err)
		return
	}

	h.copyHeaders(w, resp)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(respBody); err != nil {
		h.logger.Debug("Failed to write response", "error", err)
	}

	h.logResponseTokens(respBody, resp.StatusCode, inputTokens)
}

// callerKey extracts the gateway key the caller supplied, if any.
func callerKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if key := r.Header.Get("X-Api-Key"); key != "" {
		return key
	}
	return r.Header.Get("X-Goog-Api-Key")
}

// passthroughCredentials authenticates requests the dispatcher forwards
// untouched. An open proxy keeps the caller's own credential headers;
// behind a proxy key the configured gateway key is sent instead.
func passthroughCredentials(out, in http.Header, cfg *config.Config) {
	if cfg.ProxyKey == "" {
		for _, name := range credentialHeaders {
			if values := in.Values(name); len(values) > 0 {
				out[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
			}
		}
		return
	}
	if cfg.APIKey != "" {
		out.Set("Authorization", "Bearer "+cfg.APIKey)
	}
}

func isEventStream(h http.Header) bool {
	return strings.Contains(h.Get("Content-Type"), "text/event-stream")
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

func (h *ProxyHandler) countInputTokens(text string) int {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	if encodingErr != nil {
		h.logger.Error("Failed to get tiktoken encoding", "error", encodingErr)
		return 0
	}
	return len(encoding.Encode(text, nil, nil))
}

func (h *ProxyHandler) decompressReader(resp *http.Response) (io.Reader, error) {
	var bodyReader io.Reader = resp.Body
	encoding := resp.Header.Get("Content-Encoding")

	switch encoding {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		bodyReader = gzipReader
	case "br":
		bodyReader = brotli.NewReader(resp.Body)
	}

	return bodyReader, nil
}

func (h *ProxyHandler) copyHeaders(w http.ResponseWriter, resp *http.Response) {
	for key, values := range resp.Header {
		// Skip compression headers since we handle decompression
		if key == "Content-Encoding" || key == "Content-Length" {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
}

func (h *ProxyHandler) flushResponse(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (h *ProxyHandler) httpError(w http.ResponseWriter, code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.logger.Error("HTTP Error", "code", code, "message", msg)
	http.Error(w, msg, code)
}

func (h *ProxyHandler) logResponseTokens(respBody []byte, statusCode int, inputTokens int) {
	logFields := []any{
		"status", statusCode,
		"input_tokens", inputTokens,
	}

	// Anthropic and OpenAI responses both report usage at the top level.
	usage := gjson.GetBytes(respBody, "usage")
	for _, field := range []string{"output_tokens", "completion_tokens"} {
		if v := usage.Get(field); v.Exists() {
			logFields = append(logFields, "output_tokens", v.Int())
			break
		}
	}

	if statusCode >= http.StatusBadRequest {
		h.logger.Error("Upstream error response", append(logFields, "body", string(respBody))...)
	} else {
		h.logger.Info("Successful response", logFields...)
	}
}
