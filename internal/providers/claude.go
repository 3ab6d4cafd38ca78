package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
)

const (
	// ToolPrefix is added to tool names on the way out and stripped on the
	// way back.
	ToolPrefix = "mcp_"

	ClaudeUserID = "user_7b18c0b8358639d7ff4cdbf78a1552a7d5ca63ba83aee236c4b22ae2be77ba5f_account_3bb3dcbe-4efe-4795-b248-b73603575290_session_4a72737c-93d6-4c45-aebe-6e2d47281338"
)

type claudeMarker struct{}

// MarkClaudeTransformed records on ctx that the body has been rewritten,
// so a second pass leaves tool names alone.
func MarkClaudeTransformed(ctx context.Context) context.Context {
	return context.WithValue(ctx, claudeMarker{}, true)
}

func claudeTransformed(ctx context.Context) bool {
	done, _ := ctx.Value(claudeMarker{}).(bool)
	return done
}

type ClaudeProvider struct {
	directURL string
	liteURL   string
	logger    *slog.Logger
}

func NewClaudeProvider(directURL, liteURL string, logger *slog.Logger) *ClaudeProvider {
	return &ClaudeProvider{directURL: directURL, liteURL: liteURL, logger: logger}
}

func (p *ClaudeProvider) Name() string {
	return "claude"
}

func (p *ClaudeProvider) Rewrite(call *Call) error {
	base := p.directURL
	if call.ThirdParty {
		base = p.liteURL
	}
	target, err := RewriteURL(call.Request.URL, base)
	if err != nil {
		return err
	}
	call.Request.URL = target
	call.Request.Host = target.Host

	if !claudeTransformed(call.Context()) {
		if body, err := TransformClaudeBody(call.Body); err != nil {
			p.logger.Debug("Claude body left as is", "error", err)
			call.Fallback = true
		} else {
			call.Body = body
			call.Request = call.Request.WithContext(MarkClaudeTransformed(call.Context()))
		}
	}

	if call.ThirdParty && call.Model != "" && gjson.ValidBytes(call.Body) {
		if body, err := sjson.SetBytes(call.Body, "model", StripThirdPartySuffix(call.Model)); err == nil {
			call.Body = body
		}
	}

	h := call.Request.Header
	if call.APIKey != "" && h.Get(HeaderAPIKey) == "" && h.Get(HeaderAuthorization) == "" {
		h.Set(HeaderAPIKey, call.APIKey)
	}
	return nil
}

// TransformClaudeBody injects metadata.user_id when unset and prefixes
// every declared tool name and tool_use block name with ToolPrefix.
func TransformClaudeBody(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("claude body is not valid json")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("claude body is not an object")
	}

	var err error
	out := body

	if !doc.Get("metadata").IsObject() {
		if out, err = sjson.SetRawBytes(out, "metadata", []byte("{}")); err != nil {
			return nil, err
		}
	}
	if !truthyResult(doc.Get("metadata.user_id")) {
		if out, err = sjson.SetBytes(out, "metadata.user_id", ClaudeUserID); err != nil {
			return nil, err
		}
	}

	for i, tool := range doc.Get("tools").Array() {
		name := tool.Get("name")
		if name.Type != gjson.String || name.String() == "" {
			continue
		}
		if out, err = sjson.SetBytes(out, "tools."+strconv.Itoa(i)+".name", ToolPrefix+name.String()); err != nil {
			return nil, err
		}
	}

	for i, msg := range doc.Get("messages").Array() {
		for j, block := range msg.Get("content").Array() {
			if block.Get("type").String() != "tool_use" {
				continue
			}
			name := block.Get("name")
			if name.Type != gjson.String || name.String() == "" {
				continue
			}
			path := "messages." + strconv.Itoa(i) + ".content." + strconv.Itoa(j) + ".name"
			if out, err = sjson.SetBytes(out, path, ToolPrefix+name.String()); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// StripThirdPartySuffix removes a trailing "-third-party".
func StripThirdPartySuffix(model string) string {
	return strings.TrimSuffix(model, models.ThirdPartySuffix)
}

func (p *ClaudeProvider) HandleResponse(call *Call, resp *http.Response) (*http.Response, error) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}
	reader, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("decode claude response: %w", err)
	}
	resp.Body = NewToolNameStripper(reader)
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return resp, nil
}

func truthyResult(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	}
	return r.Exists()
}
