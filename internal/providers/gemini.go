package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type GeminiProvider struct {
	baseURL string
	// userID, when set, is sent as the privileged user id header.
	userID string
	logger *slog.Logger
}

func NewGeminiProvider(baseURL, userID string, logger *slog.Logger) *GeminiProvider {
	return &GeminiProvider{baseURL: baseURL, userID: userID, logger: logger}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Rewrite(call *Call) error {
	target, err := BuildGeminiURL(call.Request.URL, p.baseURL, call.Streaming)
	if err != nil {
		return err
	}
	call.Request.URL = target
	call.Request.Host = target.Host

	GeminiHeaders(call.Request.Header, call.APIKey, p.userID)
	return nil
}

// BuildGeminiURL moves original onto base, inserting /v1beta when the path
// has no version segment. Streaming requests get alt=sse.
func BuildGeminiURL(original *url.URL, baseURL string, streaming bool) (*url.URL, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gemini base url: %w", err)
	}

	path := original.Path
	if !strings.Contains(path, "/v1beta/") && !strings.Contains(path, "/v1/") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		path = "/v1beta" + path
	}

	target := &url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     strings.TrimSuffix(base.Path, "/") + path,
		RawQuery: original.RawQuery,
	}

	if streaming {
		query := target.Query()
		if query.Get("alt") != "sse" {
			query.Set("alt", "sse")
			target.RawQuery = query.Encode()
		}
	}
	return target, nil
}

// GeminiHeaders swaps inbound credentials for the gateway API key and the
// Gemini CLI identification.
func GeminiHeaders(h http.Header, apiKey, userID string) {
	h.Del(HeaderAuthorization)
	h.Del(HeaderAPIKey)

	h.Set(HeaderUserAgent, GeminiUserAgent)
	h.Set(HeaderGoogAPIClient, GeminiAPIClient)
	h.Set(HeaderGoogAPIKey, apiKey)

	if h.Get(HeaderAccept) == "" {
		h.Set(HeaderAccept, "*/*")
	}
	if h.Get(HeaderContentType) == "" {
		h.Set(HeaderContentType, ContentTypeJSON)
	}
	if userID != "" && h.Get(HeaderGeminiPrivilegedUserID) == "" {
		h.Set(HeaderGeminiPrivilegedUserID, userID)
	}
}

// HandleResponse passes the upstream response through.
func (p *GeminiProvider) HandleResponse(_ *Call, resp *http.Response) (*http.Response, error) {
	return resp, nil
}
