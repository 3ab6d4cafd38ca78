package opencode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
)

const (
	PackageName = "opencode-aicodewith-auth"
	SchemaURL   = "https://opencode.ai/config.json"

	ChangeProviderUpdated = "provider_updated"
	ChangePluginAdded     = "plugin_added"
	ChangeModelMigrated   = "model_migrated"
)

var ErrNotObject = errors.New("config root is not a JSON object")

type Result struct {
	Changed bool
	Changes []string
}

func (r *Result) record(tag string) {
	r.Changes = append(r.Changes, tag)
	r.Changed = true
}

// Document is a host config file held as raw JSON. Edits go through
// sjson so user keys keep their order.
type Document struct {
	raw []byte
}

// ParseDocument validates data as a JSON object. When jsonc is set,
// comments and trailing commas are removed first.
func ParseDocument(data []byte, jsonc bool) (*Document, error) {
	if jsonc {
		data = StripJSONComments(data)
	}
	data = bytes.TrimSpace(data)

	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, ErrNotObject
	}
	return &Document{raw: data}, nil
}

// NewDocument returns a document holding only a $schema reference.
func NewDocument(schema string) *Document {
	raw, _ := sjson.SetBytes([]byte("{}"), EscapeKey("$schema"), schema)
	return &Document{raw: raw}
}

func (d *Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

func (d *Document) Raw() []byte {
	return d.raw
}

// Bytes returns the document indented with two spaces and a trailing
// newline, the format the host writes.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, d.raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent config: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (d *Document) Set(path string, value any) error {
	raw, err := sjson.SetBytes(d.raw, path, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	d.raw = raw
	return nil
}

func (d *Document) SetRaw(path string, value []byte) error {
	raw, err := sjson.SetRawBytes(d.raw, path, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	d.raw = raw
	return nil
}

// ApplyProviderConfig drives the document toward the standard provider
// block, makes sure the plugin list references this package, and
// migrates a deprecated default model.
func ApplyProviderConfig(doc *Document, standard models.ProviderConfig, pluginEntry string, migrations map[string]string) (Result, error) {
	var res Result

	providerKey := EscapeKey(models.ProviderID)
	providers := doc.Get("provider")
	existing := providers.Get(providerKey)

	var current any
	if providers.IsObject() && existing.Exists() {
		current = existing.Value()
	}

	if !DeepEqual(current, standard.Value()) {
		if !providers.IsObject() {
			if err := doc.SetRaw("provider", []byte("{}")); err != nil {
				return res, err
			}
		}
		if err := doc.SetRaw("provider."+providerKey, standard.JSON()); err != nil {
			return res, err
		}
		res.record(ChangeProviderUpdated)
	}

	plugins := doc.Get("plugin")
	var list any
	if plugins.IsArray() {
		list = plugins.Value()
	}
	if _, added := EnsurePluginEntry(list, pluginEntry); added {
		var err error
		if plugins.IsArray() {
			err = doc.Set("plugin.-1", pluginEntry)
		} else {
			err = doc.Set("plugin", []string{pluginEntry})
		}
		if err != nil {
			return res, err
		}
		res.record(ChangePluginAdded)
	}

	model := doc.Get("model")
	if model.Type == gjson.String {
		if to, ok := migrations[model.Str]; ok {
			if err := doc.Set("model", to); err != nil {
				return res, err
			}
			res.record(ChangeModelMigrated + ":" + model.Str)
		}
	}

	return res, nil
}

// ApplyToMap is ApplyProviderConfig for a config the host hands over
// already decoded. The map is modified in place.
func ApplyToMap(cfg map[string]any, standard models.ProviderConfig, pluginEntry string, migrations map[string]string) Result {
	var res Result

	providers, ok := cfg["provider"].(map[string]any)
	if !ok {
		providers = map[string]any{}
	}
	want := standard.Value()
	if !DeepEqual(providers[models.ProviderID], want) {
		providers[models.ProviderID] = want
		cfg["provider"] = providers
		res.record(ChangeProviderUpdated)
	}

	if next, added := EnsurePluginEntry(cfg["plugin"], pluginEntry); added {
		cfg["plugin"] = next
		res.record(ChangePluginAdded)
	}

	if model, ok := cfg["model"].(string); ok {
		if to, found := migrations[model]; found {
			cfg["model"] = to
			res.record(ChangeModelMigrated + ":" + model)
		}
	}

	return res
}

// EnsurePluginEntry returns list with entry appended unless a string in
// it already names this plugin. added is false when list is returned
// as is.
func EnsurePluginEntry(list any, entry string) ([]any, bool) {
	items, ok := list.([]any)
	if !ok {
		return []any{entry}, true
	}

	for _, item := range items {
		s, isString := item.(string)
		if isString && (s == entry || IsPackageEntry(s)) {
			return items, false
		}
	}

	next := make([]any, len(items), len(items)+1)
	copy(next, items)
	return append(next, entry), true
}

// IsPackageEntry matches the bare package name or name@version.
func IsPackageEntry(value string) bool {
	return value == PackageName || strings.HasPrefix(value, PackageName+"@")
}

// EscapeKey quotes path metacharacters so key addresses a single
// object member in gjson/sjson paths.
func EscapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
