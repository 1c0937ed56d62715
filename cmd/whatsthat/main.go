package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ============================================================================
// Config types
// ============================================================================

// Config represents the CLI configuration stored in ~/.whatsthat/config.toml.
type Config struct {
	Default ConfigDefault `toml:"default"`
	Storage ConfigStorage `toml:"storage"`
}

// ConfigDefault holds general client settings.
type ConfigDefault struct {
	BaseURL       string `toml:"base_url"`
	Env           string `toml:"env"`
	LogLevel      string `toml:"log_level"`
	TrailingSpace *bool  `toml:"trailing_space,omitempty"`
}

// ConfigStorage holds where session and draft state is kept.
type ConfigStorage struct {
	Path string `toml:"path"`
}

// trailingSpace defaults to on when unset.
func (c *Config) trailingSpace() bool {
	return c.Default.TrailingSpace == nil || *c.Default.TrailingSpace
}

// ============================================================================
// Config helpers
// ============================================================================

// configDir returns the path to ~/.whatsthat (or $WHATSTHAT_HOME), creating
// it if needed.
func configDir() (string, error) {
	dir := os.Getenv("WHATSTHAT_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".whatsthat")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// configPath returns the full path to the config file.
func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// statePath returns the SQLite state file, from [storage] path or the
// config directory.
func statePath(cfg *Config) (string, error) {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

// loadConfig reads and parses the config file.
// If the file does not exist, it returns a zero-value Config.
func loadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return &cfg, nil
}

// saveConfig writes the config struct back to disk as TOML.
func saveConfig(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return nil
}

// setConfigValue sets a config field using dot notation (e.g. "default.base_url").
func setConfigValue(cfg *Config, key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("key must use dot notation: section.field (e.g. default.base_url)")
	}
	section, field := parts[0], parts[1]

	switch section {
	case "default":
		switch field {
		case "base_url":
			cfg.Default.BaseURL = value
		case "env":
			cfg.Default.Env = value
		case "log_level":
			if _, err := zerolog.ParseLevel(value); err != nil {
				return fmt.Errorf("invalid log level %q: %w", value, err)
			}
			cfg.Default.LogLevel = value
		case "trailing_space":
			on, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("trailing_space must be true or false: %w", err)
			}
			cfg.Default.TrailingSpace = &on
		default:
			return fmt.Errorf("unknown field %q in section [default]", field)
		}
	case "storage":
		switch field {
		case "path":
			cfg.Storage.Path = value
		default:
			return fmt.Errorf("unknown field %q in section [storage]", field)
		}
	default:
		return fmt.Errorf("unknown config section %q (valid: default, storage)", section)
	}
	return nil
}

// unsetConfigValue resets a field to its default. The key uses the same dot
// notation as setConfigValue.
func unsetConfigValue(cfg *Config, key string) error {
	if key == "default.trailing_space" {
		cfg.Default.TrailingSpace = nil
		return nil
	}
	if key == "default.log_level" {
		cfg.Default.LogLevel = ""
		return nil
	}
	return setConfigValue(cfg, key, "")
}

// initLogging configures the global logger. Logs go to stderr so command
// output stays clean.
func initLogging(cfg *Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.WarnLevel
	if cfg.Default.LogLevel != "" {
		if l, err := zerolog.ParseLevel(cfg.Default.LogLevel); err == nil {
			level = l
		}
	}
	if cfg.Default.Env == "dev" {
		cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(cw).Level(level).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// ============================================================================
// Root command
// ============================================================================

var rootCmd = &cobra.Command{
	Use:           "whatsthat",
	Short:         "WhatsThat messaging CLI",
	Long:          "Command-line client for the WhatsThat messaging API.\nSign in, read and write chats, keep drafts and manage contacts.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		initLogging(cfg)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errorText(err))
		os.Exit(1)
	}
}
