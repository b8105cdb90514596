package main

import (
	"fmt"
	"os"
	"path/filepath"

	"quill/pkg/protocol"
)

// Paths holds all resolved quill state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	Home        string // ~/.quill or QUILL_HOME
	ConfigPath  string // config.yaml or QUILL_CONFIG
	JournalPath string // journal.db or QUILL_JOURNAL_PATH
}

// ResolvePaths returns all quill paths, respecting env var overrides.
// Environment variables:
//   - QUILL_HOME: base directory for all quill state (default: ~/.quill)
//   - QUILL_CONFIG: config file (default: $QUILL_HOME/config.yaml)
//   - QUILL_JOURNAL_PATH: traffic journal (default: $QUILL_HOME/journal.db)
func ResolvePaths() (*Paths, error) {
	home, err := resolveHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		Home:        home,
		ConfigPath:  resolvePathWithEnv("QUILL_CONFIG", home, protocol.ConfigFile),
		JournalPath: resolvePathWithEnv("QUILL_JOURNAL_PATH", home, protocol.JournalFile),
	}, nil
}

// resolveHome returns the quill home directory from QUILL_HOME or ~/.quill.
func resolveHome() (string, error) {
	if v := os.Getenv("QUILL_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, protocol.QuillDir), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
