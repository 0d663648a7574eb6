package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/hexcrack/internal/hexcodec"
)

// Config captures the hexcrack configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Hex     HexConfig     `yaml:"hex"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Recipes RecipesConfig `yaml:"recipes"`
	Updater UpdaterConfig `yaml:"updater"`
}

// WindowConfig sizes the streaming read window in whole Base64 groups.
type WindowConfig struct {
	Groups int `yaml:"groups"`
}

// HexConfig selects the nibble decoder and terminator handling.
type HexConfig struct {
	// Legacy enables the permissive range-offset nibble decoder.
	Legacy bool `yaml:"legacy"`
	// Trim drops a trailing non-alphanumeric byte from each window.
	Trim bool `yaml:"trim"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	MaxConns int    `yaml:"max_conns"`
}

type LogConfig struct {
	File string `yaml:"file"`
}

type RecipesConfig struct {
	Dir string `yaml:"dir"`
}

type UpdaterConfig struct {
	BaseURL string `yaml:"base_url"`
	Channel string `yaml:"channel"`
	Dir     string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: WindowConfig{Groups: hexcodec.DefaultWindowGroups},
		Hex:    HexConfig{Legacy: false, Trim: true},
		Server: ServerConfig{Addr: "127.0.0.1:50077", MaxConns: 64},
		Updater: UpdaterConfig{
			BaseURL: "https://updates.hexcrack.dev",
			Channel: "stable",
		},
	}
}

// Load resolves the configuration. Files are applied in this order, later
// ones winning:
//  1. ~/.hexcrack/config.yml
//  2. ./hexcrack.yml
//
// Environment variables prefixed with HEXCRACK_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		if err := applyFile(&cfg, filepath.Join(home, ".hexcrack", "config.yml")); err != nil {
			return Config{}, err
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("determine working directory: %w", err)
	}
	if err := applyFile(&cfg, filepath.Join(wd, "hexcrack.yml")); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the codec cannot run with.
func (c Config) Validate() error {
	if c.Window.Groups <= 0 {
		return fmt.Errorf("window.groups must be positive, got %d", c.Window.Groups)
	}
	if c.Server.MaxConns < 0 {
		return fmt.Errorf("server.max_conns must not be negative, got %d", c.Server.MaxConns)
	}
	return nil
}

// WindowSize returns the window capacity in bytes.
func (c Config) WindowSize() int {
	return c.Window.Groups * hexcodec.GroupChars
}

// CodecOptions converts the hex settings into encoder options.
func (c Config) CodecOptions() hexcodec.Options {
	opts := hexcodec.Options{WindowSize: c.WindowSize(), Nibble: hexcodec.Nibble, Trim: hexcodec.NoTrim}
	if c.Hex.Legacy {
		opts.Nibble = hexcodec.LegacyNibble
	}
	if c.Hex.Trim {
		opts.Trim = hexcodec.TrimTerminator
	}
	return opts
}

// fileConfig mirrors Config with pointer fields so a file only overrides the
// keys it sets.
type fileConfig struct {
	Window *struct {
		Groups *int `yaml:"groups"`
	} `yaml:"window"`
	Hex *struct {
		Legacy *bool `yaml:"legacy"`
		Trim   *bool `yaml:"trim"`
	} `yaml:"hex"`
	Server *struct {
		Addr     *string `yaml:"addr"`
		MaxConns *int    `yaml:"max_conns"`
	} `yaml:"server"`
	Log *struct {
		File *string `yaml:"file"`
	} `yaml:"log"`
	Recipes *struct {
		Dir *string `yaml:"dir"`
	} `yaml:"recipes"`
	Updater *struct {
		BaseURL *string `yaml:"base_url"`
		Channel *string `yaml:"channel"`
		Dir     *string `yaml:"dir"`
	} `yaml:"updater"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Window != nil && fc.Window.Groups != nil {
		cfg.Window.Groups = *fc.Window.Groups
	}
	if fc.Hex != nil {
		if fc.Hex.Legacy != nil {
			cfg.Hex.Legacy = *fc.Hex.Legacy
		}
		if fc.Hex.Trim != nil {
			cfg.Hex.Trim = *fc.Hex.Trim
		}
	}
	if fc.Server != nil {
		if fc.Server.Addr != nil {
			cfg.Server.Addr = strings.TrimSpace(*fc.Server.Addr)
		}
		if fc.Server.MaxConns != nil {
			cfg.Server.MaxConns = *fc.Server.MaxConns
		}
	}
	if fc.Log != nil && fc.Log.File != nil {
		cfg.Log.File = strings.TrimSpace(*fc.Log.File)
	}
	if fc.Recipes != nil && fc.Recipes.Dir != nil {
		cfg.Recipes.Dir = strings.TrimSpace(*fc.Recipes.Dir)
	}
	if fc.Updater != nil {
		if fc.Updater.BaseURL != nil {
			cfg.Updater.BaseURL = strings.TrimSpace(*fc.Updater.BaseURL)
		}
		if fc.Updater.Channel != nil {
			cfg.Updater.Channel = strings.TrimSpace(*fc.Updater.Channel)
		}
		if fc.Updater.Dir != nil {
			cfg.Updater.Dir = strings.TrimSpace(*fc.Updater.Dir)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if val, ok := lookup("HEXCRACK_WINDOW_GROUPS", ""); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("HEXCRACK_WINDOW_GROUPS: %w", err)
		}
		cfg.Window.Groups = n
	}
	if val, ok := lookup("HEXCRACK_LEGACY_HEX", ""); ok {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("HEXCRACK_LEGACY_HEX: %w", err)
		}
		cfg.Hex.Legacy = parsed
	}
	if val, ok := lookup("HEXCRACK_TRIM", ""); ok {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("HEXCRACK_TRIM: %w", err)
		}
		cfg.Hex.Trim = parsed
	}
	if val, ok := lookup("HEXCRACK_ADDR", "HEXCRACK_SERVER"); ok {
		cfg.Server.Addr = val
	}
	if val, ok := lookup("HEXCRACK_MAX_CONNS", ""); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("HEXCRACK_MAX_CONNS: %w", err)
		}
		cfg.Server.MaxConns = n
	}
	if val, ok := lookup("HEXCRACK_LOG_FILE", ""); ok {
		cfg.Log.File = val
	}
	if val, ok := lookup("HEXCRACK_RECIPES_DIR", ""); ok {
		cfg.Recipes.Dir = val
	}
	if val, ok := lookup("HEXCRACK_UPDATE_URL", ""); ok {
		cfg.Updater.BaseURL = val
	}
	if val, ok := lookup("HEXCRACK_UPDATE_CHANNEL", ""); ok {
		cfg.Updater.Channel = val
	}
	return nil
}
