package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/omo"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/providers"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/reqlog"
)

const (
	DefaultPort           = 6970
	DefaultConfigFilename = "settings.json"
	DefaultHost           = "127.0.0.1"
	EnvPrefix             = "AICODEWITH"
)

// legacyEnv are the unprefixed variable names the plugin has always read.
// AICODEWITH_<KEY> works for every setting as well.
var legacyEnv = map[string]string{
	"home":              "OPENCODE_TEST_HOME",
	"xdg_config_home":   "XDG_CONFIG_HOME",
	"api_key":           models.APIKeyEnv,
	"disable_omo_sync":  omo.DisableEnv,
	"debug":             reqlog.DebugEnv,
	"request_logging":   reqlog.LoggingEnv,
	"save_raw_response": reqlog.RawEnv,
}

type Config struct {
	Host string `json:"host,omitempty" mapstructure:"host"`
	Port int    `json:"port,omitempty" mapstructure:"port"`
	// APIKey is sent to the gateway when the host supplies none.
	APIKey string `json:"api_key,omitempty" mapstructure:"api_key"`
	// ProxyKey guards the local proxy. Empty disables the check.
	ProxyKey string `json:"proxy_key,omitempty" mapstructure:"proxy_key"`
	Upstream string `json:"upstream,omitempty" mapstructure:"upstream"`

	Home          string `json:"home,omitempty" mapstructure:"home"`
	XDGConfigHome string `json:"xdg_config_home,omitempty" mapstructure:"xdg_config_home"`

	DisableOmoSync bool   `json:"disable_omo_sync,omitempty" mapstructure:"disable_omo_sync"`
	OmoSourceURL   string `json:"omo_source_url,omitempty" mapstructure:"omo_source_url"`
	GeminiUserID   string `json:"gemini_user_id,omitempty" mapstructure:"gemini_user_id"`
	PluginEntry    string `json:"plugin_entry,omitempty" mapstructure:"plugin_entry"`
	NPMPath        string `json:"npm_path,omitempty" mapstructure:"npm_path"`

	Debug           bool `json:"debug,omitempty" mapstructure:"debug"`
	RequestLogging  bool `json:"request_logging,omitempty" mapstructure:"request_logging"`
	SaveRawResponse bool `json:"save_raw_response,omitempty" mapstructure:"save_raw_response"`
}

// Endpoints are the gateway bases derived from Upstream.
func (c *Config) Endpoints() providers.Endpoints {
	return providers.EndpointsFor(c.Upstream)
}

// Addr is the local proxy listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if u, err := url.Parse(c.Upstream); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("upstream %q is not an absolute URL", c.Upstream))
	}
	if c.OmoSourceURL != "" {
		if u, err := url.Parse(c.OmoSourceURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("omo_source_url %q is not an absolute URL", c.OmoSourceURL))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

type Manager struct {
	configPath  string
	envFile     string
	configValue atomic.Value
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		configPath: filepath.Join(baseDir, DefaultConfigFilename),
		envFile:    filepath.Join(baseDir, ".env"),
	}
}

// Load merges defaults, the settings file, a .env file next to it and the
// process environment, in increasing priority. A missing settings file is
// not an error.
func (m *Manager) Load() (*Config, error) {
	_ = godotenv.Load(m.envFile)

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(m.configPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Home = home
		}
	}

	m.configValue.Store(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("upstream", providers.DefaultUpstream)
	v.SetDefault("api_key", "")
	v.SetDefault("proxy_key", "")
	v.SetDefault("home", "")
	v.SetDefault("xdg_config_home", "")
	v.SetDefault("disable_omo_sync", false)
	v.SetDefault("omo_source_url", "")
	v.SetDefault("gemini_user_id", "")
	v.SetDefault("plugin_entry", "")
	v.SetDefault("npm_path", "")
	v.SetDefault("debug", false)
	v.SetDefault("request_logging", false)
	v.SetDefault("save_raw_response", false)
}

func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		return &Config{
			Host:     DefaultHost,
			Port:     DefaultPort,
			Upstream: providers.DefaultUpstream,
		}
	}
	return cfg
}

func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.configValue.Store(cfg)
	return nil
}

func (m *Manager) GetPath() string {
	return m.configPath
}

func (m *Manager) Exists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}
