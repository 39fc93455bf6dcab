package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is read from a YAML file under the user's home directory.
// All fields are optional; defaults are applied by the accessor methods.
//
// Example (~/.mentiond/config.yaml):
//
// server:
//   host: 127.0.0.1
//   port: 8000
// database:
//   path: ~/.mentiond/mentiond.db
// retention:
//   days: 7
// cache:
//   mentions: 1000
//   conversations: 100
// debug: false
//
// Notes:
// - If the config file does not exist, Load returns defaults without error.
// - If the config file exists but cannot be parsed, Load returns an error.
// - Port must be between 1 and 65535.

type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Retention RetentionConfig `yaml:"retention"`
	Cache     CacheConfig     `yaml:"cache"`
	Debug     *bool           `yaml:"debug"`
}

type ServerConfig struct {
	Host *string `yaml:"host"`
	Port *int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path *string `yaml:"path"`
}

type RetentionConfig struct {
	Days *int `yaml:"days"`
}

type CacheConfig struct {
	Mentions      *int `yaml:"mentions"`
	Conversations *int `yaml:"conversations"`
}

const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 8000
	DefaultRetentionDays = 7
	DefaultMentionCap    = 1000
	DefaultConvCap       = 100
)

// DefaultPaths returns the config dir and config file path.
func DefaultPaths() (configDir string, configFile string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("get user home dir: %w", err)
	}
	configDir = filepath.Join(home, ".mentiond")
	configFile = filepath.Join(configDir, "config.yaml")
	return configDir, configFile, nil
}

// Load reads ~/.mentiond/config.yaml.
// If the file doesn't exist, it returns a default config and nil error.
func Load() (*AppConfig, string, error) {
	_, configFile, err := DefaultPaths()
	if err != nil {
		return nil, "", err
	}

	cfg := &AppConfig{}

	b, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, configFile, nil
		}
		return nil, "", fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse yaml config %s: %w", configFile, err)
	}

	if strings.TrimSpace(cfg.Host()) == "" {
		return nil, "", fmt.Errorf("invalid server.host (empty) in %s", configFile)
	}
	if port := cfg.Port(); port < 1 || port > 65535 {
		return nil, "", fmt.Errorf("invalid server.port %d in %s", port, configFile)
	}
	if days := cfg.RetentionDays(); days < 0 {
		return nil, "", fmt.Errorf("invalid retention.days %d in %s", days, configFile)
	}
	if n := cfg.MentionCapacity(); n < 1 {
		return nil, "", fmt.Errorf("invalid cache.mentions %d in %s", n, configFile)
	}
	if n := cfg.ConversationCapacity(); n < 1 {
		return nil, "", fmt.Errorf("invalid cache.conversations %d in %s", n, configFile)
	}

	return cfg, configFile, nil
}

// EnsureDefaultConfig writes a default config file if it doesn't already exist.
// It is safe to call on startup.
func EnsureDefaultConfig() (string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configFile); err == nil {
		return configFile, nil
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	defaultCfg := AppConfig{
		Server:    ServerConfig{Host: ptr(DefaultHost), Port: ptr(DefaultPort)},
		Retention: RetentionConfig{Days: ptr(DefaultRetentionDays)},
	}
	b, err := yaml.Marshal(&defaultCfg)
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}

	// Write with restrictive permissions.
	if err := os.WriteFile(configFile, b, 0o600); err != nil {
		return "", fmt.Errorf("write default config file %s: %w", configFile, err)
	}

	return configFile, nil
}

func (c *AppConfig) Host() string {
	if c == nil || c.Server.Host == nil {
		return DefaultHost
	}
	if v := strings.TrimSpace(*c.Server.Host); v != "" {
		return v
	}
	return DefaultHost
}

func (c *AppConfig) Port() int {
	if c == nil || c.Server.Port == nil {
		return DefaultPort
	}
	return *c.Server.Port
}

// DatabasePath returns the SQLite file path, defaulting to
// ~/.mentiond/mentiond.db when unset.
func (c *AppConfig) DatabasePath() (string, error) {
	if c != nil && c.Database.Path != nil && strings.TrimSpace(*c.Database.Path) != "" {
		return expandHome(*c.Database.Path)
	}
	configDir, _, err := DefaultPaths()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "mentiond.db"), nil
}

func (c *AppConfig) RetentionDays() int {
	if c == nil || c.Retention.Days == nil {
		return DefaultRetentionDays
	}
	return *c.Retention.Days
}

func (c *AppConfig) MentionCapacity() int {
	if c == nil || c.Cache.Mentions == nil {
		return DefaultMentionCap
	}
	return *c.Cache.Mentions
}

func (c *AppConfig) ConversationCapacity() int {
	if c == nil || c.Cache.Conversations == nil {
		return DefaultConvCap
	}
	return *c.Cache.Conversations
}

func (c *AppConfig) DebugEnabled() bool {
	if c == nil || c.Debug == nil {
		return false
	}
	return *c.Debug
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func ptr[T any](v T) *T { return &v }
