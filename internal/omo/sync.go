package omo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/opencode"
)

// DisableEnv switches the sync off when set to "1" or "true".
const DisableEnv = "AICODEWITH_DISABLE_OMO_SYNC"

// IsDisabled interprets the value of DisableEnv.
func IsDisabled(value string) bool {
	v := strings.TrimSpace(value)
	return v == "1" || strings.EqualFold(v, "true")
}

type Options struct {
	Disabled bool
	// OnAdded is called for every entry written, as "agents.<name>" or
	// "categories.<name>".
	OnAdded func(key string)
}

// Syncer fills missing agent and category model assignments in the
// oh-my-opencode file. Existing entries are never modified.
type Syncer struct {
	path   string
	source Source
	opts   Options
	logger *slog.Logger
}

func NewSyncer(path string, source Source, opts Options, logger *slog.Logger) *Syncer {
	return &Syncer{
		path:   path,
		source: source,
		opts:   opts,
		logger: logger,
	}
}

// Sync never fails from the caller's point of view. It returns the keys
// that were added, nil when nothing was written.
func (s *Syncer) Sync(ctx context.Context) []string {
	if s.opts.Disabled {
		s.logger.Debug("OMO sync disabled", "env", DisableEnv)
		return nil
	}

	defaults, err := s.source.Assignments(ctx)
	if err != nil {
		s.logger.Debug("OMO defaults unavailable, skipping sync", "error", err)
		return nil
	}

	doc, err := s.load()
	if err != nil {
		s.logger.Debug("OMO config unreadable, skipping sync", "path", s.path, "error", err)
		return nil
	}

	var added []string
	for _, section := range []struct {
		name    string
		entries map[string]string
	}{
		{"agents", defaults.Agents},
		{"categories", defaults.Categories},
	} {
		keys, err := merge(doc, section.name, section.entries)
		if err != nil {
			s.logger.Debug("OMO merge failed, skipping sync", "section", section.name, "error", err)
			return nil
		}
		added = append(added, keys...)
	}

	if len(added) == 0 {
		return nil
	}

	data, err := doc.Bytes()
	if err != nil {
		s.logger.Warn("Failed to sync OMO config", "error", err)
		return nil
	}
	if err := write(s.path, data); err != nil {
		s.logger.Warn("Failed to sync OMO config", "path", s.path, "error", err)
		return nil
	}

	s.logger.Info("Synced OMO config", "path", s.path, "added", len(added))
	if s.opts.OnAdded != nil {
		for _, key := range added {
			s.opts.OnAdded(key)
		}
	}
	return added
}

func (s *Syncer) load() (*opencode.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return opencode.NewDocument(models.OmoSchemaURL), nil
	}
	if err != nil {
		return nil, err
	}
	return opencode.ParseDocument(data, false)
}

type entry struct {
	Model string `json:"model"`
}

// merge adds {model} for every name missing from doc[section]. A
// section that exists but is not an object is left alone.
func merge(doc *opencode.Document, section string, entries map[string]string) ([]string, error) {
	current := doc.Get(section)
	if current.Exists() && !current.IsObject() {
		return nil, nil
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var added []string
	for _, name := range names {
		key := opencode.EscapeKey(name)
		if current.Get(key).Exists() {
			continue
		}
		value, err := json.Marshal(entry{Model: entries[name]})
		if err != nil {
			return nil, err
		}
		if err := doc.SetRaw(section+"."+key, value); err != nil {
			return nil, err
		}
		added = append(added, section+"."+name)
	}
	return added, nil
}

func write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
