// Package config loads postie settings from a YAML file and POSTIE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config
// file location.
const EnvConfigPath = "POSTIE_CONFIG"

// Config holds every postie setting.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	LogDir   string         `mapstructure:"log_dir" yaml:"log_dir"`
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type HTTPConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" yaml:"-"`
	FollowRedirects   bool          `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// MarshalYAML writes the timeout as a duration string.
func (h HTTPConfig) MarshalYAML() (any, error) {
	type plain HTTPConfig
	return struct {
		Timeout string `yaml:"timeout"`
		plain   `yaml:",inline"`
	}{Timeout: h.Timeout.String(), plain: plain(h)}, nil
}

// DefaultDir returns ~/.config/postie.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".postie"
	}
	return filepath.Join(home, ".config", "postie")
}

// DefaultPath returns $POSTIE_CONFIG, or config.yaml under DefaultDir.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dir, "postie.db"),
		},
		LogDir:   filepath.Join(dir, "logs"),
		LogLevel: "info",
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			FollowRedirects:   true,
			RequestsPerSecond: 0,
			UserAgent:         "postie",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("log_dir", d.LogDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.follow_redirects", d.HTTP.FollowRedirects)
	v.SetDefault("http.requests_per_second", d.HTTP.RequestsPerSecond)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
}

// Load reads the config file at path, or DefaultPath when path is empty.
// A missing file is not an error: defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(expandHome(path))
	v.SetConfigType("yaml")
	v.SetEnvPrefix("POSTIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.LogDir = expandHome(cfg.LogDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("invalid config: database.path is empty")
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("invalid config: http.timeout %s is negative", c.HTTP.Timeout)
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid config: http.requests_per_second %g is negative", c.HTTP.RequestsPerSecond)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// WriteDefault writes DefaultConfig to path as YAML. An existing file is
// left alone unless force is set.
func WriteDefault(path string, force bool) error {
	path = expandHome(path)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
