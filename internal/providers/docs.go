/*
Package providers implements the per-family request and response adapters for the AICodewith gateway.

Each provider takes a request that the host addressed to a vendor API
(OpenAI responses, Anthropic messages, Google generateContent) and
reshapes it so the gateway accepts it. Responses are adjusted on the way
back so the host sees what the vendor API would have returned.

# Provider Implementation Guide

## Provider Interface

All providers implement the Provider interface:

	type Provider interface {
		Name() string
		Rewrite(call *Call) error
		HandleResponse(call *Call, resp *http.Response) (*http.Response, error)
	}

A Call carries the outbound *http.Request, its body as bytes, and what the
dispatcher learned while classifying it: the model id, whether the caller
asked for a stream, whether the model is a third-party variant, and the
API key to send upstream.

## Request Flow

 1. The dispatcher reads the body and classifies the request (claude, gemini, codex or passthrough).
 2. **Provider rewrites the call**: URL, headers and body are changed in place by `Rewrite()`.
 3. The dispatcher sends the request through the base transport.
 4. **Provider adjusts the response** with `HandleResponse()`.
 5. The response is returned to the caller.

Rewrite must not fail a request over a body it cannot parse. It forwards
the original body, sets Call.Fallback, and still fixes URL and headers.
It only returns an error when the target URL cannot be built.

## Codex (responses API)

Target: `{upstream}/chatgpt/v1`.

### Body

  - `model` is normalized through the catalog aliases and migrations, with ordered substring fallbacks and a fixed default.
  - `stream` is forced to true, `store` to false, and `instructions` is set to the embedded Codex prompt.
  - `input` drops `item_reference` items, strips `id` fields, removes the host's own Codex system prompt, prepends the bridge message when tools are declared, and turns orphaned tool outputs into assistant messages.
  - `reasoning` gets an effort and summary from the body or `providerOptions.openai`, subject to the model's supported effort range.
  - `include` always carries `reasoning.encrypted_content`.
  - `max_output_tokens` and `max_completion_tokens` are removed.

### Headers

	authorization:   Bearer {key}
	originator:      codex_cli_rs
	user-agent:      codex_cli_rs/0.77.0 (Mac OS 26.2.0; arm64) iTerm.app/3.6.6
	accept:          text/event-stream
	session_id:      {prompt_cache_key}, removed when absent
	conversation_id: {prompt_cache_key}, removed when absent

### Response

The gateway always streams. When the caller did not ask for a stream the
event stream is read to the end and the `response` object of the final
`response.completed` (or `response.done`) event is returned as JSON.

## Claude (messages API)

Target: `{upstream}/v1`, or `{upstream}/lite` for `-third-party` models,
whose suffix is removed from the body's model.

Tool names in `tools[]` and in `tool_use` blocks are prefixed with `mcp_`,
and `metadata.user_id` is filled in when missing. The response stream is
filtered so every `"name": "mcp_..."` field loses the prefix again:

	// upstream event
	{"type":"content_block_start","content_block":{"type":"tool_use","name":"mcp_bash"}}

	// what the host sees
	{"type":"content_block_start","content_block":{"type":"tool_use","name": "bash"}}

The filter holds back a tail that could be the start of a split name, so
chunk boundaries never leak a prefixed name.

## Gemini (generateContent API)

Target: `{upstream}/gemini_cli`, with `/v1beta` inserted when the path has
no version segment. Streaming requests carry `alt=sse`. Inbound
`authorization` and `x-api-key` headers are replaced by `x-goog-api-key`
plus the Gemini CLI user agent and client identification.

## Adding a Provider

 1. Implement Provider in its own file and give it a unique Name().
 2. Register it in Registry.Initialize.
 3. Teach the dispatcher's classifier to route to it.
 4. Cover Rewrite and HandleResponse with table-driven tests against httptest responses.
*/
package providers
