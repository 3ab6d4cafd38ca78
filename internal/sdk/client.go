// Package sdk builds vendor SDK clients whose traffic goes through the
// gateway dispatcher. It is the direct construction path for hosts that
// want language model clients instead of a fetch override.
package sdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

type Family string

const (
	FamilyAnthropic Family = "anthropic"
	FamilyGoogle    Family = "google"
	// FamilyResponses models use the OpenAI responses API.
	FamilyResponses Family = "responses"
	FamilyChat      Family = "chat"
)

// VendorSettings override the shared settings for one vendor.
type VendorSettings struct {
	APIKey  string
	BaseURL string
	Headers map[string]string
}

type Settings struct {
	APIKey string
	// BaseURL and Headers apply to the OpenAI client, and to the others
	// unless overridden.
	BaseURL string
	Headers map[string]string
	// Transport carries every request. It is normally the dispatcher.
	Transport http.RoundTripper

	Anthropic VendorSettings
	Google    VendorSettings
}

type Client struct {
	Anthropic anthropic.Client
	OpenAI    openai.Client
	Google    *genai.Client
}

func New(ctx context.Context, s Settings) (*Client, error) {
	httpClient := &http.Client{Transport: s.Transport}

	openaiOpts := []openaioption.RequestOption{
		openaioption.WithAPIKey(s.APIKey),
		openaioption.WithHTTPClient(httpClient),
	}
	if s.BaseURL != "" {
		openaiOpts = append(openaiOpts, openaioption.WithBaseURL(s.BaseURL))
	}
	for k, v := range s.Headers {
		openaiOpts = append(openaiOpts, openaioption.WithHeader(k, v))
	}

	anthropicCfg := merged(s.Anthropic, s)
	anthropicOpts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(anthropicCfg.APIKey),
		anthropicoption.WithHTTPClient(httpClient),
	}
	if anthropicCfg.BaseURL != "" {
		anthropicOpts = append(anthropicOpts, anthropicoption.WithBaseURL(anthropicCfg.BaseURL))
	}
	for k, v := range anthropicCfg.Headers {
		anthropicOpts = append(anthropicOpts, anthropicoption.WithHeader(k, v))
	}

	googleCfg := merged(s.Google, s)
	header := http.Header{}
	for k, v := range googleCfg.Headers {
		header.Set(k, v)
	}
	google, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     googleCfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: googleCfg.BaseURL,
			Headers: header,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		Anthropic: anthropic.NewClient(anthropicOpts...),
		OpenAI:    openai.NewClient(openaiOpts...),
		Google:    google,
	}, nil
}

// merged fills v from the shared settings. The shared BaseURL is an OpenAI
// base and is never inherited.
func merged(v VendorSettings, s Settings) VendorSettings {
	if v.APIKey == "" {
		v.APIKey = s.APIKey
	}
	if v.Headers == nil {
		v.Headers = s.Headers
	}
	return v
}

// ModelFamily picks the client for a model id. Ids are trimmed first.
func ModelFamily(modelID string) (string, Family) {
	id := strings.TrimSpace(modelID)
	switch {
	case strings.HasPrefix(id, "claude-"):
		return id, FamilyAnthropic
	case strings.HasPrefix(id, "gemini-"):
		return id, FamilyGoogle
	case strings.HasPrefix(id, "gpt-"), strings.HasPrefix(id, "codex"):
		return id, FamilyResponses
	default:
		return id, FamilyChat
	}
}
