// Package config loads engine configuration from JSON/JSONC files and
// environment overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/jsonc"
)

// Config is the on-disk configuration shape.
type Config struct {
	// Model is the currently selected backend model identifier.
	Model string `json:"model,omitempty"`

	// ContextWindow bounds the derived message history, counted in
	// request/response pairs.
	ContextWindow int `json:"contextWindow,omitempty"`

	// SessionLimit caps the in-memory session store.
	SessionLimit int `json:"sessionLimit,omitempty"`

	// PersistDelayMS is the persistence debounce interval.
	PersistDelayMS int `json:"persistDelayMs,omitempty"`

	// DataDir is where session snapshots are stored.
	DataDir string `json:"dataDir,omitempty"`

	// Port is the HTTP server port.
	Port int `json:"port,omitempty"`

	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"logLevel,omitempty"`
}

// Default values applied when neither file nor environment sets a field.
const (
	DefaultContextWindow  = 20
	DefaultSessionLimit   = 20
	DefaultPersistDelayMS = 1000
	DefaultPort           = 8080
)

// Load reads configuration from, in priority order: defaults, the global
// config (~/.chatkit/), the project config in directory, then
// environment variables.
func Load(directory string) (*Config, error) {
	cfg := &Config{
		ContextWindow:  DefaultContextWindow,
		SessionLimit:   DefaultSessionLimit,
		PersistDelayMS: DefaultPersistDelayMS,
		Port:           DefaultPort,
	}

	if home := os.Getenv("HOME"); home != "" {
		loadFile(filepath.Join(home, ".chatkit", "chatkit.json"), cfg)
		loadFile(filepath.Join(home, ".chatkit", "chatkit.jsonc"), cfg)
	}
	if directory != "" {
		loadFile(filepath.Join(directory, "chatkit.json"), cfg)
		loadFile(filepath.Join(directory, "chatkit.jsonc"), cfg)
	}

	applyEnvOverrides(cfg)

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}

	return cfg, nil
}

// loadFile merges one config file into cfg. Missing or malformed files
// are skipped.
func loadFile(path string, cfg *Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	data = jsonc.ToJSON(data)

	var file Config
	if err := json.Unmarshal(data, &file); err != nil {
		return
	}
	merge(cfg, &file)
}

func merge(target, source *Config) {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.ContextWindow > 0 {
		target.ContextWindow = source.ContextWindow
	}
	if source.SessionLimit > 0 {
		target.SessionLimit = source.SessionLimit
	}
	if source.PersistDelayMS > 0 {
		target.PersistDelayMS = source.PersistDelayMS
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
	if source.Port > 0 {
		target.Port = source.Port
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
}

func applyEnvOverrides(cfg *Config) {
	if model := os.Getenv("CHATKIT_MODEL"); model != "" {
		cfg.Model = model
	}
	if dir := os.Getenv("CHATKIT_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if port := os.Getenv("CHATKIT_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Port = n
		}
	}
	if window := os.Getenv("CHATKIT_CONTEXT_WINDOW"); window != "" {
		if n, err := strconv.Atoi(window); err == nil && n > 0 {
			cfg.ContextWindow = n
		}
	}
	if level := os.Getenv("CHATKIT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}

func defaultDataDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".chatkit", "data")
	}
	return ".chatkit-data"
}
