// Package config loads harness configuration from the YAML file under
// the harness home directory, applies HARNESS_* environment overrides,
// and validates the result. Missing file means defaults: the harness
// must come up with zero configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DirName is the harness home directory under $HOME.
const DirName = ".openclaw-harness"

// Config is the root configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	ControlPlane ControlPlaneConfig `yaml:"control_plane"`
	Engine       EngineConfig       `yaml:"engine"`
	Rules        RulesConfig        `yaml:"rules"`
	Alerts       AlertsConfig       `yaml:"alerts"`
	Log          LogConfig          `yaml:"log"`
}

// EngineConfig controls enforcement behavior.
type EngineConfig struct {
	// Enforce defaults to true. When false, blocking verdicts from
	// provided rules are reported but not enforced; self-protection
	// still blocks.
	Enforce *bool `yaml:"enforce" envconfig:"HARNESS_ENFORCE"`
}

// Enforcing reports whether blocking verdicts are enforced.
func (e EngineConfig) Enforcing() bool {
	return e.Enforce == nil || *e.Enforce
}

// ServerConfig configures the local hook API.
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"HARNESS_HOST" validate:"required"`
	Port int    `yaml:"port" envconfig:"HARNESS_PORT" validate:"min=1,max=65535"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ControlPlaneConfig locates the remote rules endpoint.
type ControlPlaneConfig struct {
	BaseURL      string        `yaml:"base_url" envconfig:"HARNESS_CONTROL_PLANE_URL" validate:"omitempty,url"`
	Token        string        `yaml:"token" envconfig:"HARNESS_CONTROL_PLANE_TOKEN"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" envconfig:"HARNESS_FETCH_TIMEOUT"`
}

// RulesConfig tunes the rule provider.
type RulesConfig struct {
	CacheTTL    time.Duration `yaml:"cache_ttl" envconfig:"HARNESS_RULES_TTL"`
	OverlayPath string        `yaml:"overlay_path" envconfig:"HARNESS_RULES_OVERLAY"`
}

// AlertsConfig locates alert channel definitions.
type AlertsConfig struct {
	ChannelsPath string        `yaml:"channels_path" envconfig:"HARNESS_ALERT_CHANNELS"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"HARNESS_ALERT_TIMEOUT"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level   string `yaml:"level" envconfig:"HARNESS_LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error"`
	Colored *bool  `yaml:"colored" envconfig:"HARNESS_LOG_COLORED"`
}

// Dir returns the harness home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8380,
		},
		ControlPlane: ControlPlaneConfig{
			FetchTimeout: 2 * time.Second,
		},
		Rules: RulesConfig{
			CacheTTL:    30 * time.Second,
			OverlayPath: filepath.Join(Dir(), "rules.yaml"),
		},
		Alerts: AlertsConfig{
			ChannelsPath: filepath.Join(Dir(), "alerts.json"),
			Timeout:      5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path (the default location when empty),
// layers environment overrides on top, and validates. A missing file is
// fine; an unreadable or invalid one is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults apply.
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Redacted returns a copy safe for logging, with credentials masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.ControlPlane.Token != "" {
		out.ControlPlane.Token = redact(out.ControlPlane.Token)
	}
	return out
}

func redact(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
