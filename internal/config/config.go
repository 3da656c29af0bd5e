// Package config resolves the server configuration from flags and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/hautechai/github-mcp/pkg/buffer"
)

const (
	DefaultAPIURL            = "https://api.github.com"
	DefaultAPIVersion        = "2022-11-28"
	DefaultHTTPTimeoutSecs   = 30
	DefaultContentWindowSize = 5000
)

// ErrMissingToken is returned by Validate when neither GITHUB_TOKEN nor
// GH_TOKEN is set.
var ErrMissingToken = errors.New("missing GITHUB_TOKEN or GH_TOKEN")

// Config is the resolved runtime configuration.
type Config struct {
	Token             string   `mapstructure:"token"`
	APIURL            string   `mapstructure:"api_url"`
	GraphQLURL        string   `mapstructure:"graphql_url"`
	APIVersion        string   `mapstructure:"api_version"`
	HTTPTimeoutSecs   int      `mapstructure:"http_timeout_secs"`
	UserAgent         string   `mapstructure:"user_agent"`
	Toolsets          []string `mapstructure:"toolsets"`
	Tools             []string `mapstructure:"tools"`
	ReadOnly          bool     `mapstructure:"read_only"`
	ContentWindowSize int      `mapstructure:"content_window_size"`
	LogFile           string   `mapstructure:"log_file"`
	CommandLogging    bool     `mapstructure:"enable_command_logging"`
}

// envKeys maps each config key to the environment variables it is read
// from, in order of precedence.
var envKeys = map[string][]string{
	"token":                  {"GITHUB_TOKEN", "GH_TOKEN"},
	"api_url":                {"GITHUB_API_URL"},
	"graphql_url":            {"GITHUB_GRAPHQL_URL"},
	"api_version":            {"GITHUB_API_VERSION"},
	"http_timeout_secs":      {"GITHUB_HTTP_TIMEOUT_SECS"},
	"user_agent":             {"GITHUB_USER_AGENT"},
	"toolsets":               {"GITHUB_TOOLSETS"},
	"tools":                  {"GITHUB_TOOLS"},
	"read_only":              {"GITHUB_READ_ONLY"},
	"content_window_size":    {"GITHUB_CONTENT_WINDOW_SIZE"},
	"log_file":               {"GITHUB_LOG_FILE"},
	"enable_command_logging": {"GITHUB_ENABLE_COMMAND_LOGGING"},
}

// Bind registers defaults and environment bindings on v. Flags bound with
// v.BindPFlag take precedence over both.
func Bind(v *viper.Viper) error {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("api_version", DefaultAPIVersion)
	v.SetDefault("http_timeout_secs", DefaultHTTPTimeoutSecs)
	v.SetDefault("content_window_size", DefaultContentWindowSize)

	for key, envs := range envKeys {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Load decodes the configuration held by v and fills derived defaults.
func Load(v *viper.Viper, version string) (Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToSliceHookFunc(",")))
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// An untouched flag still decodes to its empty default; only an explicit
	// setting may narrow the toolsets.
	if !v.IsSet("toolsets") {
		cfg.Toolsets = nil
	}
	if !v.IsSet("tools") {
		cfg.Tools = nil
	}
	cfg.Toolsets = trimList(cfg.Toolsets)
	cfg.Tools = trimList(cfg.Tools)
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.GraphQLURL == "" {
		cfg.GraphQLURL = cfg.APIURL + "/graphql"
	}
	if cfg.HTTPTimeoutSecs <= 0 {
		cfg.HTTPTimeoutSecs = DefaultHTTPTimeoutSecs
	}
	if cfg.ContentWindowSize <= 0 {
		cfg.ContentWindowSize = DefaultContentWindowSize
	}
	// The log ring buffer never keeps more lines than this.
	cfg.ContentWindowSize = min(cfg.ContentWindowSize, buffer.MaxRetainedLines)
	if cfg.UserAgent == "" {
		cfg.UserAgent = fmt.Sprintf("github-mcp/%s (+https://github.com/HautechAI/github-mcp)", version)
	}
	return cfg, nil
}

// Validate reports settings that make serving impossible.
func (c Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// HTTPTimeout returns the per-request timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSecs) * time.Second
}

// trimList drops blank entries. A nil input stays nil so that "unset" and
// "explicitly empty" remain distinguishable.
func trimList(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var (
	version = "dev"
	loaded  = sync.OnceValues(func() (Config, error) {
		v := viper.GetViper()
		if err := Bind(v); err != nil {
			return Config{}, err
		}
		return Load(v, version)
	})
)

// SetVersion records the build version used for the default user agent. It
// only has an effect before the first call to Get.
func SetVersion(v string) {
	version = v
}

// Get returns the process-wide configuration, resolved from the global viper
// instance on first use and immutable afterwards.
func Get() (Config, error) {
	return loaded()
}
