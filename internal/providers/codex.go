package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/reqlog"
)

const encryptedReasoning = "reasoning.encrypted_content"

// CodexRequest is a transformed responses-API body.
type CodexRequest struct {
	Body           []byte
	Model          string
	PromptCacheKey string
	HasTools       bool
}

type CodexProvider struct {
	baseURL    string
	normalizer *Normalizer
	prompts    PromptSource
	recorder   *reqlog.Recorder
	logger     *slog.Logger
}

func NewCodexProvider(baseURL string, normalizer *Normalizer, prompts PromptSource, recorder *reqlog.Recorder, logger *slog.Logger) *CodexProvider {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &CodexProvider{
		baseURL:    baseURL,
		normalizer: normalizer,
		prompts:    prompts,
		recorder:   recorder,
		logger:     logger,
	}
}

func (p *CodexProvider) Name() string {
	return "codex"
}

func (p *CodexProvider) Rewrite(call *Call) error {
	var cacheKey string
	if transformed, err := p.TransformBody(call.Context(), call.Body); err != nil {
		p.recorder.Warn("Codex transform failed, forwarding original body", "error", err)
		call.Fallback = true
	} else {
		call.Body = transformed.Body
		cacheKey = transformed.PromptCacheKey
	}

	target, err := RewriteURL(call.Request.URL, p.baseURL)
	if err != nil {
		return err
	}
	call.Request.URL = target
	call.Request.Host = target.Host

	CodexHeaders(call.Request.Header, call.APIKey, cacheKey)
	return nil
}

// TransformBody rewrites a responses-API body for the gateway.
func (p *CodexProvider) TransformBody(ctx context.Context, raw []byte) (*CodexRequest, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode codex body: %w", err)
	}
	if body == nil {
		return nil, fmt.Errorf("decode codex body: not an object")
	}

	original, _ := body["model"].(string)
	model := p.normalizer.Normalize(original)
	hasTools := truthy(body["tools"])
	p.recorder.Debug("Model lookup", "from", original, "to", model, "has_tools", hasTools)

	body["model"] = model
	body["stream"] = true
	body["store"] = false
	body["instructions"] = CodexInstructions()

	if input, ok := body["input"].([]any); ok {
		input = FilterInput(input)

		prompt := ""
		if p.prompts != nil {
			var err error
			if prompt, err = p.prompts.Prompt(ctx); err != nil {
				p.recorder.Debug("Host prompt unavailable", "error", err)
			}
		}
		input = FilterHostPrompts(input, prompt)

		if hasTools {
			input = AddBridgeMessage(input)
		}
		body["input"] = NormalizeOrphanedToolOutputs(input)
	}

	openai := nestedMap(body, "providerOptions", "openai")
	reasoning, _ := body["reasoning"].(map[string]any)

	settings := p.normalizer.ReasoningConfig(model, ReasoningOptions{
		Effort:  firstString(reasoning["effort"], openai["reasoningEffort"]),
		Summary: firstString(reasoning["summary"], openai["reasoningSummary"]),
	})
	merged := cloneItem(reasoning)
	merged["effort"] = settings.Effort
	merged["summary"] = settings.Summary
	body["reasoning"] = merged

	text, _ := body["text"].(map[string]any)
	if verbosity := firstString(text["verbosity"], openai["textVerbosity"]); verbosity != "" {
		next := cloneItem(text)
		next["verbosity"] = verbosity
		body["text"] = next
	}

	body["include"] = resolveInclude(body["include"], openai["include"])

	delete(body, "max_output_tokens")
	delete(body, "max_completion_tokens")

	encoded, err := marshalBody(body)
	if err != nil {
		return nil, fmt.Errorf("encode codex body: %w", err)
	}

	cacheKey, _ := body["prompt_cache_key"].(string)
	_, hasInput := body["input"]
	p.recorder.Log("after-transform", map[string]any{
		"model":    model,
		"hasTools": hasTools,
		"hasInput": hasInput,
	})

	return &CodexRequest{
		Body:           encoded,
		Model:          model,
		PromptCacheKey: cacheKey,
		HasTools:       hasTools,
	}, nil
}

// CodexHeaders sets the gateway auth and client identification headers.
// Session headers are cleared when there is no cache key so a reused
// header set never carries a stale one.
func CodexHeaders(h http.Header, apiKey, cacheKey string) {
	h.Del(HeaderOpenAIBeta)
	h.Del(HeaderChatGPTAccountID)
	h.Del(HeaderAPIKey)

	h.Set(HeaderAuthorization, "Bearer "+apiKey)
	h.Set(HeaderOriginator, CodexOriginator)
	h.Set(HeaderUserAgent, CodexUserAgent)
	h.Set(HeaderAccept, ContentTypeEventStream)

	if h.Get(HeaderContentType) == "" {
		h.Set(HeaderContentType, ContentTypeJSON)
	}

	if cacheKey != "" {
		h.Set(HeaderConversationID, cacheKey)
		h.Set(HeaderSessionID, cacheKey)
	} else {
		h.Del(HeaderConversationID)
		h.Del(HeaderSessionID)
	}
}

func (p *CodexProvider) HandleResponse(call *Call, resp *http.Response) (*http.Response, error) {
	if !isSuccess(resp.StatusCode) {
		p.recorder.Log("error-response", map[string]any{
			"status":     resp.StatusCode,
			"statusText": resp.Status,
		})
		return resp, nil
	}

	if resp.Header.Get(HeaderContentType) == "" {
		resp.Header.Set(HeaderContentType, ContentTypeEventStream+"; charset=utf-8")
	}
	if call.Streaming {
		return resp, nil
	}

	reader, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("decode codex response: %w", err)
	}
	stream, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return nil, fmt.Errorf("read codex response: %w", err)
	}

	body := stream
	if final, ok := finalResponse(stream); ok {
		body = final
		resp.Header.Set(HeaderContentType, ContentTypeJSON+"; charset=utf-8")
	} else {
		p.recorder.Warn("No terminal event in codex stream, returning raw text", "bytes", len(stream))
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Header.Del("Content-Encoding")
	return resp, nil
}

func resolveInclude(values ...any) []any {
	var base []any
	for _, v := range values {
		if list, ok := v.([]any); ok {
			base = list
			break
		}
	}
	if base == nil {
		base = []any{encryptedReasoning}
	}

	seen := make(map[string]bool)
	out := make([]any, 0, len(base)+1)
	for _, raw := range base {
		s, ok := raw.(string)
		if !ok || s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if !seen[encryptedReasoning] {
		out = append(out, encryptedReasoning)
	}
	return out
}

func marshalBody(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func nestedMap(m map[string]any, keys ...string) map[string]any {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func firstString(values ...any) string {
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	}
	return true
}
