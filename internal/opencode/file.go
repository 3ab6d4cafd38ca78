package opencode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
)

const (
	ConfigFilename    = "opencode.json"
	ConfigFilenameC   = "opencode.jsonc"
	OmoConfigFilename = "oh-my-opencode.json"
)

// Paths locates the host's config files.
type Paths struct {
	Dir   string
	JSON  string
	JSONC string
	Omo   string
}

// ResolvePaths mirrors the host lookup: $XDG_CONFIG_HOME/opencode, or
// ~/.config/opencode when xdg is empty.
func ResolvePaths(home, xdg string) Paths {
	root := xdg
	if root == "" {
		root = filepath.Join(home, ".config")
	}
	dir := filepath.Join(root, "opencode")
	return Paths{
		Dir:   dir,
		JSON:  filepath.Join(dir, ConfigFilename),
		JSONC: filepath.Join(dir, ConfigFilenameC),
		Omo:   filepath.Join(dir, OmoConfigFilename),
	}
}

type ReconcilerOptions struct {
	// PluginEntry is the reference written into the plugin list.
	PluginEntry string
	// NPM is the provider module reference stored in the provider block.
	NPM string
	// OnChange is called once per change tag after a successful write.
	OnChange func(tag string)
}

// Reconciler keeps the primary host config converged on the catalog.
type Reconciler struct {
	paths    Paths
	registry *models.Registry
	opts     ReconcilerOptions
	logger   *slog.Logger

	once   sync.Once
	result Result
	err    error
}

func NewReconciler(paths Paths, registry *models.Registry, opts ReconcilerOptions, logger *slog.Logger) *Reconciler {
	if opts.PluginEntry == "" {
		opts.PluginEntry = PackageName
	}
	return &Reconciler{
		paths:    paths,
		registry: registry,
		opts:     opts,
		logger:   logger,
	}
}

// Ensure reconciles at most once for the lifetime of r. Later calls
// return the first outcome.
func (r *Reconciler) Ensure(ctx context.Context) (Result, error) {
	r.once.Do(func() {
		r.result, r.err = r.Reconcile(ctx)
	})
	return r.result, r.err
}

// Reconcile reads, patches and, when something changed, rewrites the
// config file. A missing file is created from the schema stub. A
// malformed file is left untouched.
func (r *Reconciler) Reconcile(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	path, doc, err := r.load()
	if err != nil {
		return Result{}, err
	}

	res, err := ApplyProviderConfig(doc, r.Standard(), r.opts.PluginEntry, r.registry.Migrations())
	if err != nil {
		return Result{}, fmt.Errorf("apply provider config: %w", err)
	}
	if !res.Changed {
		r.logger.Debug("Host config already up to date", "path", path)
		return res, nil
	}

	data, err := doc.Bytes()
	if err != nil {
		return Result{}, err
	}
	if err := writeConfig(path, data); err != nil {
		return Result{}, err
	}

	r.logger.Info("Updated host config", "path", path, "changes", res.Changes)
	if r.opts.OnChange != nil {
		for _, tag := range res.Changes {
			r.opts.OnChange(tag)
		}
	}
	return res, nil
}

// Standard is the provider block this reconciler writes.
func (r *Reconciler) Standard() models.ProviderConfig {
	return r.registry.ProviderConfig(r.opts.NPM)
}

func (r *Reconciler) PluginEntry() string {
	return r.opts.PluginEntry
}

func (r *Reconciler) load() (string, *Document, error) {
	for _, candidate := range []struct {
		path  string
		jsonc bool
	}{
		{r.paths.JSONC, true},
		{r.paths.JSON, false},
	} {
		data, err := os.ReadFile(candidate.path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("read config file: %w", err)
		}

		doc, err := ParseDocument(data, candidate.jsonc)
		if err != nil {
			return "", nil, fmt.Errorf("parse %s: %w", candidate.path, err)
		}
		return candidate.path, doc, nil
	}

	return r.paths.JSON, NewDocument(SchemaURL), nil
}

func writeConfig(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
