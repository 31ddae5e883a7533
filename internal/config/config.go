package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultLogFile is where the application writes its log.
const DefaultLogFile = "tmp/app.log"

// Color modes accepted by Config.Color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds viewer settings. Keys absent from a YAML file keep their
// default values.
type Config struct {
	File          string `yaml:"file"`
	Lines         int    `yaml:"lines"`
	Poll          bool   `yaml:"poll"`
	Color         string `yaml:"color"`
	TUI           bool   `yaml:"tui"`
	LogLevel      string `yaml:"log_level"`
	BookmarksFile string `yaml:"bookmarks_file"`
}

// Default returns the settings used when no config file or flags are given.
func Default() Config {
	return Config{
		File:          DefaultLogFile,
		Poll:          true,
		Color:         ColorAuto,
		LogLevel:      "warn",
		BookmarksFile: "bookmarks.txt",
	}
}

// Load reads a YAML config file on top of Default. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.File == "" {
		return errors.New("log file path must not be empty")
	}
	if c.Lines < 0 {
		return fmt.Errorf("lines must be >= 0, got %d", c.Lines)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("unknown color mode %q (want auto, always or never)", c.Color)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}
