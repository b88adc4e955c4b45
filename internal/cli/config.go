package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const defaultServer = "http://localhost:8080"

// Config is the CLI's file config, kept at ~/.config/voicenote/config.toml.
type Config struct {
	Server string `toml:"server"`
	Token  string `toml:"token"`
	Email  string `toml:"email"`
	Input  string `toml:"input"`
}

// ConfigPath returns the config file location, honouring XDG_CONFIG_HOME.
func ConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "voicenote", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".config", "voicenote", "config.toml"), nil
}

// LoadConfig reads path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Server: defaultServer}

	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if v := os.Getenv("VOICENOTE_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("VOICENOTE_TOKEN"); v != "" {
		cfg.Token = v
	}

	return cfg, nil
}

// Save writes cfg to path with owner-only permissions; it holds a token.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
