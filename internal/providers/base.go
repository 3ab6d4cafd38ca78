package providers

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

const (
	DefaultUpstream = "https://api.aicodewith.com"

	// Fixed client identification expected by the gateway.
	CodexOriginator = "codex_cli_rs"
	CodexUserAgent  = "codex_cli_rs/0.77.0 (Mac OS 26.2.0; arm64) iTerm.app/3.6.6"
	GeminiUserAgent = "GeminiCLI/v25.2.1 (darwin; arm64)"
	GeminiAPIClient = "google-genai-sdk/1.30.0 gl-node/v25.2.1"

	ContentTypeJSON        = "application/json"
	ContentTypeEventStream = "text/event-stream"
)

// Header names, matched case-insensitively by net/http.
const (
	HeaderAuthorization          = "authorization"
	HeaderOriginator             = "originator"
	HeaderSessionID              = "session_id"
	HeaderConversationID         = "conversation_id"
	HeaderUserAgent              = "user-agent"
	HeaderAccept                 = "accept"
	HeaderContentType            = "content-type"
	HeaderOpenAIBeta             = "openai-beta"
	HeaderChatGPTAccountID       = "chatgpt-account-id"
	HeaderGoogAPIKey             = "x-goog-api-key"
	HeaderGoogAPIClient          = "x-goog-api-client"
	HeaderGeminiPrivilegedUserID = "x-gemini-api-privileged-user-id"
	HeaderAPIKey                 = "x-api-key"
)

// Endpoints are the per-family base URLs on the gateway.
type Endpoints struct {
	Codex     string
	Anthropic string
	Lite      string
	Gemini    string
}

// EndpointsFor derives the family bases from a gateway origin.
func EndpointsFor(upstream string) Endpoints {
	if upstream == "" {
		upstream = DefaultUpstream
	}
	upstream = strings.TrimRight(upstream, "/")
	return Endpoints{
		Codex:     upstream + "/chatgpt/v1",
		Anthropic: upstream + "/v1",
		Lite:      upstream + "/lite",
		Gemini:    upstream + "/gemini_cli",
	}
}

// Call carries one intercepted request through a provider.
type Call struct {
	// Request is the outbound request. Providers rewrite its URL and
	// headers in place; the body travels separately in Body.
	Request *http.Request
	Body    []byte

	Model      string
	Streaming  bool
	ThirdParty bool
	APIKey     string

	// Fallback is set when the body could not be transformed and is
	// forwarded as received.
	Fallback bool
}

func (c *Call) Context() context.Context {
	return c.Request.Context()
}

// Provider adapts one upstream family.
type Provider interface {
	Name() string
	// Rewrite prepares call for the gateway. It must not fail the
	// request over malformed input; it falls back to forwarding as is.
	Rewrite(call *Call) error
	HandleResponse(call *Call, resp *http.Response) (*http.Response, error)
}

// decodeBody returns resp.Body with any gzip or brotli content encoding
// removed, and clears the encoding headers to match.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(resp.Header.Get("Content-Encoding"))

	var reader io.ReadCloser
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		reader = readCloser{Reader: gz, close: func() error {
			gz.Close()
			return resp.Body.Close()
		}}
	case "br":
		reader = readCloser{Reader: brotli.NewReader(resp.Body), close: resp.Body.Close}
	default:
		return resp.Body, nil
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return reader, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error {
	return r.close()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
