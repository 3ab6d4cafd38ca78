package opencode

import "github.com/tailscale/hujson"

// StripJSONComments turns JSONC into JSON. Comments and trailing commas
// become whitespace; string literals are untouched. Input hujson cannot
// parse is returned as is so the JSON decoder reports the error.
func StripJSONComments(src []byte) []byte {
	out, err := hujson.Standardize(append([]byte(nil), src...))
	if err != nil {
		return src
	}
	return out
}
