// Package config loads the reader CLI configuration from a TOML file.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"comicshelf/internal/gateway"
)

//go:embed config.default.toml
var defaultConf []byte

// Config is the reader CLI configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
}

// ServerConfig points the client at a comicshelf deployment.
type ServerConfig struct {
	BaseURL  string `toml:"base_url"`
	SyncAddr string `toml:"sync_addr"`
}

// ClientConfig holds local file locations. Empty values fall back to
// ~/.comicshelf defaults.
type ClientConfig struct {
	TokenPath string `toml:"token_path"`
	LogFile   string `toml:"log_file"`
}

// DefaultPath returns ~/.comicshelf/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".comicshelf", "config.toml")
}

// Default returns the embedded default configuration.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(defaultConf, &cfg); err != nil {
		panic(fmt.Sprintf("parse embedded default config: %v", err))
	}
	return &cfg
}

// Load reads and parses a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and parses, otherwise falls back
// to the embedded default.
func LoadOrDefault(path string) *Config {
	if _, err := os.Stat(path); err == nil {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return Default()
}

// WriteDefault creates a config file at path from the embedded default. It
// refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, defaultConf, 0o644)
}

// TokenPath resolves the token file location.
func (c *Config) TokenPath() string {
	if c.Client.TokenPath != "" {
		return c.Client.TokenPath
	}
	return gateway.DefaultTokenPath()
}

// LogFile resolves where TUI logs are written.
func (c *Config) LogFile() string {
	if c.Client.LogFile != "" {
		return c.Client.LogFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "comicshelf.log"
	}
	return filepath.Join(home, ".comicshelf", "comicshelf.log")
}
