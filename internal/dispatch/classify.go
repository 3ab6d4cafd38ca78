// Package dispatch routes intercepted model API requests to the
// matching gateway provider.
package dispatch

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
)

type Family string

const (
	FamilyClaude      Family = "claude"
	FamilyGemini      Family = "gemini"
	FamilyCodex       Family = "codex"
	FamilyPassthrough Family = "passthrough"
)

var codexPrefixes = []string{"gpt-", "codex"}

// Route is what classification learned about one request.
type Route struct {
	Family Family
	// Model is the body's model field, empty when absent or not a string.
	Model      string
	Streaming  bool
	ThirdParty bool
}

// Classify picks the upstream family for a request. Claude is checked
// first, then Gemini, then Codex; a request matching none passes through.
// An unparseable body classifies on the URL alone.
func Classify(rawURL string, body []byte) Route {
	var route Route
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		if m := doc.Get("model"); m.Type == gjson.String {
			route.Model = m.Str
		}
		route.Streaming = doc.Get("stream").Type == gjson.True
	}

	switch {
	case strings.HasPrefix(route.Model, "claude-") || isClaudeURL(rawURL):
		route.Family = FamilyClaude
		route.ThirdParty = strings.HasSuffix(route.Model, models.ThirdPartySuffix)
	case strings.HasPrefix(route.Model, "gemini-") || isGeminiURL(rawURL):
		route.Family = FamilyGemini
		route.Streaming = route.Streaming || strings.Contains(rawURL, "streamGenerateContent")
	case isCodexModel(route.Model):
		route.Family = FamilyCodex
	default:
		route.Family = FamilyPassthrough
	}
	return route
}

func isClaudeURL(u string) bool {
	return strings.Contains(u, "/v1/messages")
}

func isGeminiURL(u string) bool {
	return strings.Contains(u, ":generateContent") ||
		strings.Contains(u, ":streamGenerateContent") ||
		(strings.Contains(u, "/models/") && strings.Contains(u, "/v1"))
}

func isCodexModel(model string) bool {
	for _, prefix := range codexPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
