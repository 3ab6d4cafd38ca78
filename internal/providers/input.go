package providers

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// Host prompts are matched on their first promptSignatureLen characters.
	promptSignatureLen = 200
	// Used when the host prompt could not be fetched.
	fallbackPromptPrefix = "You are a coding agent running in"

	orphanOutputLimit = 16000
)

// FilterInput drops item_reference entries and strips ids from the rest.
// Items are copied; the input slice is not modified.
func FilterInput(input []any) []any {
	out := make([]any, 0, len(input))
	for _, raw := range input {
		item, ok := raw.(map[string]any)
		if !ok {
			out = append(out, raw)
			continue
		}
		if item["type"] == "item_reference" {
			continue
		}
		if _, has := item["id"]; has {
			item = cloneItem(item)
			delete(item, "id")
		}
		out = append(out, item)
	}
	return out
}

// FilterHostPrompts removes developer and system messages that carry the
// host's own Codex prompt. An empty prompt falls back to a fixed prefix.
func FilterHostPrompts(input []any, prompt string) []any {
	prompt = strings.TrimSpace(prompt)
	signature := fallbackPromptPrefix
	if prompt != "" {
		signature = truncateRunes(prompt, promptSignatureLen)
	}

	out := make([]any, 0, len(input))
	for _, raw := range input {
		item, ok := raw.(map[string]any)
		if ok && isSystemRole(item["role"]) {
			text := strings.TrimSpace(messageText(item["content"]))
			if text != "" && ((prompt != "" && text == prompt) || strings.HasPrefix(text, signature)) {
				continue
			}
		}
		out = append(out, raw)
	}
	return out
}

// AddBridgeMessage prepends the developer bridge message.
func AddBridgeMessage(input []any) []any {
	bridge := map[string]any{
		"type": "message",
		"role": "developer",
		"content": []any{
			map[string]any{"type": "input_text", "text": CodexBridge()},
		},
	}
	return append([]any{bridge}, input...)
}

var toolOutputCalls = map[string]string{
	"function_call_output":    "function_call",
	"custom_tool_call_output": "custom_tool_call",
	"local_shell_call_output": "local_shell_call",
}

// NormalizeOrphanedToolOutputs rewrites tool outputs whose call does not
// appear earlier in input into assistant messages, which the upstream
// accepts without a matching call.
func NormalizeOrphanedToolOutputs(input []any) []any {
	seen := make(map[string]string)
	out := make([]any, 0, len(input))

	for _, raw := range input {
		item, ok := raw.(map[string]any)
		if !ok {
			out = append(out, raw)
			continue
		}

		typ, _ := item["type"].(string)
		callID, _ := item["call_id"].(string)

		if _, isOutput := toolOutputCalls[typ]; isOutput {
			if _, matched := seen[callID]; callID == "" || !matched {
				out = append(out, orphanMessage(item, callID))
				continue
			}
		} else if isToolCall(typ) && callID != "" {
			name, _ := item["name"].(string)
			seen[callID] = name
		}
		out = append(out, item)
	}
	return out
}

func isToolCall(typ string) bool {
	for _, call := range toolOutputCalls {
		if call == typ {
			return true
		}
	}
	return false
}

func orphanMessage(item map[string]any, callID string) map[string]any {
	name, _ := item["name"].(string)
	if name == "" {
		name = "tool"
	}
	text := fmt.Sprintf("[Previous %s result; call_id=%s]: %s", name, callID, outputText(item["output"]))
	return map[string]any{
		"type": "message",
		"role": "assistant",
		"content": []any{
			map[string]any{"type": "output_text", "text": truncateRunes(text, orphanOutputLimit)},
		},
	}
}

func outputText(v any) string {
	switch out := v.(type) {
	case nil:
		return ""
	case string:
		return out
	default:
		data, err := json.Marshal(out)
		if err != nil {
			return fmt.Sprint(out)
		}
		return string(data)
	}
}

func isSystemRole(role any) bool {
	return role == "developer" || role == "system"
}

// messageText joins the text parts of a message content field.
func messageText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []any:
		var parts []string
		for _, raw := range c {
			part, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := part["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

func cloneItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
