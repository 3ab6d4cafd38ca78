package plugin

import (
	"log/slog"
	"net/http"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/dispatch"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/metrics"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/omo"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/opencode"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/providers"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/reqlog"
)

// Runtime is everything built from one Config: the dispatcher and its
// providers, the host config reconciler and the OMO syncer.
type Runtime struct {
	Config     *config.Config
	Models     *models.Registry
	Paths      opencode.Paths
	Recorder   *reqlog.Recorder
	Metrics    *metrics.Collector
	Providers  *providers.Registry
	Dispatcher *dispatch.Dispatcher
	Reconciler *opencode.Reconciler
	Omo        *omo.Syncer
}

type RuntimeOptions struct {
	// Prompts overrides the OpenCode prompt cache.
	Prompts providers.PromptSource
	// Base overrides the dispatcher's transport.
	Base http.RoundTripper
	// OmoSource overrides the source chosen from Config.OmoSourceURL.
	OmoSource omo.Source
}

func NewRuntime(cfg *config.Config, opts RuntimeOptions, logger *slog.Logger) *Runtime {
	rt := &Runtime{
		Config:  cfg,
		Models:  models.Default(),
		Paths:   opencode.ResolvePaths(cfg.Home, cfg.XDGConfigHome),
		Metrics: metrics.New(),
	}

	rt.Recorder = reqlog.New(reqlog.Options{
		Dir:            reqlog.DefaultDir(cfg.Home),
		RequestLogging: cfg.RequestLogging,
		Debug:          cfg.Debug,
		SaveRaw:        cfg.SaveRawResponse,
	}, logger)

	prompts := opts.Prompts
	if prompts == nil {
		prompts = providers.NewPromptCache(providers.DefaultCacheDir(cfg.Home))
	}

	rt.Providers = providers.NewRegistry()
	rt.Providers.Initialize(cfg.Endpoints(), providers.Options{
		Models:       rt.Models,
		Prompts:      prompts,
		GeminiUserID: cfg.GeminiUserID,
		Recorder:     rt.Recorder,
	}, logger)

	rt.Dispatcher = dispatch.New(dispatch.Options{
		APIKey:    cfg.APIKey,
		Base:      opts.Base,
		Providers: rt.Providers,
		Recorder:  rt.Recorder,
		Metrics:   rt.Metrics,
	}, logger)

	rt.Reconciler = opencode.NewReconciler(rt.Paths, rt.Models, opencode.ReconcilerOptions{
		PluginEntry: cfg.PluginEntry,
		NPM:         cfg.NPMPath,
		OnChange:    rt.Metrics.RecordConfigChange,
	}, logger)

	source := opts.OmoSource
	if source == nil {
		source = omo.RegistrySource{Registry: rt.Models}
		if cfg.OmoSourceURL != "" {
			source = omo.RemoteSource{URL: cfg.OmoSourceURL}
		}
	}
	rt.Omo = omo.NewSyncer(rt.Paths.Omo, source, omo.Options{
		Disabled: cfg.DisableOmoSync,
		OnAdded: func(key string) {
			rt.Metrics.RecordConfigChange("omo_" + key)
		},
	}, logger)

	return rt
}
