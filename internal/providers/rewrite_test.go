package providers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteURL(t *testing.T) {
	tests := []struct {
		name     string
		original string
		base     string
		expected string
	}{
		{
			name:     "codex responses onto chatgpt base",
			original: "https://api.openai.com/v1/responses",
			base:     "https://api.aicodewith.com/chatgpt/v1",
			expected: "https://api.aicodewith.com/chatgpt/v1/responses",
		},
		{
			name:     "claude messages onto v1 base collapses duplicate v1",
			original: "https://api.anthropic.com/v1/messages?beta=true",
			base:     "https://api.aicodewith.com/v1",
			expected: "https://api.aicodewith.com/v1/messages?beta=true",
		},
		{
			name:     "claude messages onto lite base",
			original: "https://api.anthropic.com/v1/messages",
			base:     "https://api.aicodewith.com/lite",
			expected: "https://api.aicodewith.com/lite/v1/messages",
		},
		{
			name:     "already under base is untouched",
			original: "https://api.aicodewith.com/chatgpt/v1/responses?x=1",
			base:     "https://api.aicodewith.com/chatgpt/v1/",
			expected: "https://api.aicodewith.com/chatgpt/v1/responses?x=1",
		},
		{
			name:     "path without version",
			original: "http://localhost:8080/responses",
			base:     "https://api.aicodewith.com/chatgpt/v1",
			expected: "https://api.aicodewith.com/chatgpt/v1/responses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original, err := url.Parse(tt.original)
			require.NoError(t, err)

			got, err := RewriteURL(original, tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())

			again, err := RewriteURL(got, tt.base)
			require.NoError(t, err)
			assert.Equal(t, got.String(), again.String(), "rewrite should be idempotent")
		})
	}
}

func TestRewriteURL_DoesNotMutateOriginal(t *testing.T) {
	original, err := url.Parse("https://api.openai.com/v1/responses")
	require.NoError(t, err)

	_, err = RewriteURL(original, "https://api.aicodewith.com/chatgpt/v1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1/responses", original.String())
}

func TestRewriteURL_InvalidBase(t *testing.T) {
	original, err := url.Parse("https://api.openai.com/v1/responses")
	require.NoError(t, err)

	_, err = RewriteURL(original, "://bad")
	assert.Error(t, err)
}
