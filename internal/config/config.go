// Package config loads quill's configuration file. YAML is the default
// format; files ending in .toml are decoded as TOML. Unknown keys are
// rejected in both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all quill configuration.
type Config struct {
	Bridge  Bridge  `yaml:"bridge" toml:"bridge"`
	Log     Log     `yaml:"log" toml:"log"`
	Journal Journal `yaml:"journal" toml:"journal"`
	UI      UI      `yaml:"ui" toml:"ui"`
}

// Bridge holds queue sizes and file-handling switches.
type Bridge struct {
	InboundCapacity  int  `yaml:"inbound_capacity" toml:"inbound_capacity"`
	OutboundCapacity int  `yaml:"outbound_capacity" toml:"outbound_capacity"`
	MaxLineBytes     int  `yaml:"max_line_bytes" toml:"max_line_bytes"`
	EchoReads        bool `yaml:"echo_reads" toml:"echo_reads"`               // DebugMessage with every file read
	WatchActiveFile  bool `yaml:"watch_active_file" toml:"watch_active_file"` // reload on external change
}

// Log holds logging settings.
type Log struct {
	Level string `yaml:"level" toml:"level"` // debug | info | warn | error
	File  string `yaml:"file" toml:"file"`   // "" means stderr
}

// Journal holds the traffic journal settings.
type Journal struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"` // "" means $QUILL_HOME/journal.db
}

// UI holds terminal UI settings.
type UI struct {
	Headless bool `yaml:"headless" toml:"headless"`
}

// Default returns a Config with the built-in defaults.
func Default() Config {
	return Config{
		Bridge: Bridge{
			InboundCapacity:  64,
			OutboundCapacity: 256,
			MaxLineBytes:     16 << 20,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the config file at path over the defaults. A missing or empty
// file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &cfg, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Bridge.InboundCapacity <= 0 {
		return fmt.Errorf("config: bridge.inbound_capacity must be positive, got %d", c.Bridge.InboundCapacity)
	}
	if c.Bridge.OutboundCapacity <= 0 {
		return fmt.Errorf("config: bridge.outbound_capacity must be positive, got %d", c.Bridge.OutboundCapacity)
	}
	if c.Bridge.MaxLineBytes <= 0 {
		return fmt.Errorf("config: bridge.max_line_bytes must be positive, got %d", c.Bridge.MaxLineBytes)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// ApplyEnv applies environment variable overrides. Supported variables:
// QUILL_LOG_LEVEL, QUILL_LOG_FILE, QUILL_JOURNAL_PATH, QUILL_WATCH_ACTIVE_FILE.
// Setting QUILL_JOURNAL_PATH also enables the journal.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("QUILL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("QUILL_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("QUILL_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
		c.Journal.Enabled = true
	}
	if v := os.Getenv("QUILL_WATCH_ACTIVE_FILE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid QUILL_WATCH_ACTIVE_FILE %q: %w", v, err)
		}
		c.Bridge.WatchActiveFile = b
	}
	return nil
}
