package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		body     string
		expected Route
	}{
		{
			name:     "claude by model",
			url:      "https://example.com/anything",
			body:     `{"model":"claude-sonnet-4-5-20250929","stream":true}`,
			expected: Route{Family: FamilyClaude, Model: "claude-sonnet-4-5-20250929", Streaming: true},
		},
		{
			name:     "claude third party",
			url:      "https://api.anthropic.com/v1/messages",
			body:     `{"model":"claude-opus-4-5-20251101-third-party"}`,
			expected: Route{Family: FamilyClaude, Model: "claude-opus-4-5-20251101-third-party", ThirdParty: true},
		},
		{
			name:     "claude by url beats gpt model",
			url:      "https://api.anthropic.com/v1/messages",
			body:     `{"model":"gpt-5.2"}`,
			expected: Route{Family: FamilyClaude, Model: "gpt-5.2"},
		},
		{
			name:     "claude model beats gemini url",
			url:      "https://x/v1beta/models/foo:generateContent",
			body:     `{"model":"claude-haiku-4-5-20251001"}`,
			expected: Route{Family: FamilyClaude, Model: "claude-haiku-4-5-20251001"},
		},
		{
			name:     "gemini by model",
			url:      "https://example.com/chat",
			body:     `{"model":"gemini-3-pro"}`,
			expected: Route{Family: FamilyGemini, Model: "gemini-3-pro"},
		},
		{
			name:     "gemini by generateContent url",
			url:      "https://x/v1/models/foo:generateContent",
			body:     `{"contents":[]}`,
			expected: Route{Family: FamilyGemini},
		},
		{
			name:     "gemini streaming from url",
			url:      "https://x/v1beta/models/foo:streamGenerateContent",
			body:     `{}`,
			expected: Route{Family: FamilyGemini, Streaming: true},
		},
		{
			name:     "gemini by versioned models path",
			url:      "https://x/v1beta/models/foo",
			expected: Route{Family: FamilyGemini},
		},
		{
			name:     "gemini url beats gpt model",
			url:      "https://x/v1/models/foo:generateContent",
			body:     `{"model":"gpt-5.2"}`,
			expected: Route{Family: FamilyGemini, Model: "gpt-5.2"},
		},
		{
			name:     "codex by gpt prefix",
			url:      "https://api.openai.com/v1/responses",
			body:     `{"model":"gpt-5.2","stream":false}`,
			expected: Route{Family: FamilyCodex, Model: "gpt-5.2"},
		},
		{
			name:     "codex by codex prefix",
			url:      "https://api.openai.com/v1/responses",
			body:     `{"model":"codex-mini-latest"}`,
			expected: Route{Family: FamilyCodex, Model: "codex-mini-latest"},
		},
		{
			name:     "provider-prefixed model passes through",
			url:      "https://api.openai.com/v1/responses",
			body:     `{"model":"aicodewith/gpt-5.2"}`,
			expected: Route{Family: FamilyPassthrough, Model: "aicodewith/gpt-5.2"},
		},
		{
			name:     "unknown model passes through",
			url:      "https://example.com/v1/chat/completions",
			body:     `{"model":"llama-3"}`,
			expected: Route{Family: FamilyPassthrough, Model: "llama-3"},
		},
		{
			name:     "malformed body passes through",
			url:      "https://api.openai.com/v1/responses",
			body:     `{"model":`,
			expected: Route{Family: FamilyPassthrough},
		},
		{
			name:     "non-string model is ignored",
			url:      "https://api.openai.com/v1/responses",
			body:     `{"model":42,"stream":"true"}`,
			expected: Route{Family: FamilyPassthrough},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.url, []byte(tt.body)))
		})
	}
}
