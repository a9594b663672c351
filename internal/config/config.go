// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for askr.
//
// Configuration file locations (in order of precedence):
//   - ~/.askr/config.toml
//   - ~/.askr/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/askr/internal/util"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete askr configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Answering service
	Upstream UpstreamConfig `toml:"upstream" json:"upstream"`

	// Answer text pacing
	Reveal RevealConfig `toml:"reveal" json:"reveal"`

	// Conversation behaviour
	Conversation ConversationConfig `toml:"conversation" json:"conversation"`

	// Local history database
	History HistoryConfig `toml:"history" json:"history"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// UpstreamConfig configures the answering service.
type UpstreamConfig struct {
	// Endpoint receives POST {"question": "..."}.
	Endpoint string `toml:"endpoint" json:"endpoint"`

	// IdleTimeoutSecs aborts a stream silent for this long. 0 disables.
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
}

// IdleTimeout returns the idle watchdog window.
func (u UpstreamConfig) IdleTimeout() time.Duration {
	return time.Duration(u.IdleTimeoutSecs) * time.Second
}

// RevealConfig configures word-by-word reveal.
type RevealConfig struct {
	// DelayMs is the delay between revealed words. 0 shows text at once.
	DelayMs int `toml:"delay_ms" json:"delay_ms"`
}

// Interval returns the reveal delay as a duration.
func (r RevealConfig) Interval() time.Duration {
	return time.Duration(r.DelayMs) * time.Millisecond
}

// ConversationConfig configures how answers are assembled and shown.
type ConversationConfig struct {
	// DedupeSources drops repeated source URLs within one answer.
	DedupeSources bool `toml:"dedupe_sources" json:"dedupe_sources"`

	// MaxSourcesShown limits the sources listed under an answer.
	MaxSourcesShown int `toml:"max_sources_shown" json:"max_sources_shown"`
}

// HistoryConfig configures the local history database.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level"`

	// File receives log records. Empty means stderr for CLI commands and
	// nowhere for the TUI.
	File string `toml:"file" json:"file"`
}

// UIConfig contains UI preferences.
type UIConfig struct {
	WordWrap int  `toml:"word_wrap" json:"word_wrap"`
	Markdown bool `toml:"markdown" json:"markdown"`
}

// Default returns the built-in configuration.
func Default() *Config {
	historyPath := ""
	if dir, err := ConfigDir(); err == nil {
		historyPath = filepath.Join(dir, "history.db")
	}

	return &Config{
		Version: CurrentVersion,
		Upstream: UpstreamConfig{
			Endpoint:        "https://mock-askperplexity.piyushhhxyz.deno.net",
			IdleTimeoutSecs: 0,
		},
		Reveal: RevealConfig{
			DelayMs: 30,
		},
		Conversation: ConversationConfig{
			DedupeSources:   false,
			MaxSourcesShown: 9,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    historyPath,
		},
		Log: LogConfig{
			Level: "warn",
		},
		UI: UIConfig{
			WordWrap: 80,
			Markdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the askr configuration directory path.
// ASKR_CONFIG_DIR overrides the default of ~/.askr.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ASKR_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".askr"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ActivePath returns the config file Load would read, or the TOML path if
// neither exists.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ActivePath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadTOML decodes a TOML file onto cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file onto cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Keys missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// finish applies env overrides, migration, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# askr configuration file\n")
	b.WriteString("# Generated by askr - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Upstream.Endpoint == "" {
		errs = append(errs, ValidationError{"upstream.endpoint", "must not be empty"})
	} else if u, err := url.Parse(c.Upstream.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{"upstream.endpoint", "must be an http or https URL"})
	}
	if c.Upstream.IdleTimeoutSecs < 0 {
		errs = append(errs, ValidationError{"upstream.idle_timeout_secs", "must not be negative"})
	}

	if c.Reveal.DelayMs < 0 || c.Reveal.DelayMs > 1000 {
		errs = append(errs, ValidationError{"reveal.delay_ms", "must be between 0 and 1000"})
	}

	if c.Conversation.MaxSourcesShown < 0 {
		errs = append(errs, ValidationError{"conversation.max_sources_shown", "must not be negative"})
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, ValidationError{"history.path", "must be set when history is enabled"})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{"log.level", "must be one of debug, info, warn, error"})
	}

	if c.UI.WordWrap != 0 && (c.UI.WordWrap < 20 || c.UI.WordWrap > 400) {
		errs = append(errs, ValidationError{"ui.word_wrap", "must be 0 or between 20 and 400"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Upstream.Endpoint == "" {
		c.Upstream.Endpoint = defaults.Upstream.Endpoint
	}
	if c.History.Path == "" {
		c.History.Path = defaults.History.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// Migrate upgrades older config versions in place.
func (c *Config) Migrate() error {
	switch c.Version {
	case "", CurrentVersion:
		c.Version = CurrentVersion
		return nil
	default:
		return fmt.Errorf("unsupported config version %q", c.Version)
	}
}

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - ASKR_ENDPOINT: overrides upstream.endpoint
//   - ASKR_IDLE_TIMEOUT: overrides upstream.idle_timeout_secs (seconds or a Go duration)
//   - ASKR_REVEAL_DELAY_MS: overrides reveal.delay_ms
//   - ASKR_LOG_LEVEL: overrides log.level
//   - ASKR_HISTORY_PATH: overrides history.path
func (c *Config) ApplyEnvOverrides() {
	if endpoint := os.Getenv("ASKR_ENDPOINT"); endpoint != "" {
		c.Upstream.Endpoint = endpoint
	}

	if idle := os.Getenv("ASKR_IDLE_TIMEOUT"); idle != "" {
		if secs, err := strconv.Atoi(idle); err == nil {
			c.Upstream.IdleTimeoutSecs = secs
		} else if d, err := time.ParseDuration(idle); err == nil {
			c.Upstream.IdleTimeoutSecs = int(d / time.Second)
		}
	}

	if delay := os.Getenv("ASKR_REVEAL_DELAY_MS"); delay != "" {
		if ms, err := strconv.Atoi(delay); err == nil {
			c.Reveal.DelayMs = ms
		}
	}

	if level := os.Getenv("ASKR_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if path := os.Getenv("ASKR_HISTORY_PATH"); path != "" {
		c.History.Path = path
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "reveal.delay_ms").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "reveal.delay_ms").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"upstream.endpoint",
		"upstream.idle_timeout_secs",
		"reveal.delay_ms",
		"conversation.dedupe_sources",
		"conversation.max_sources_shown",
		"history.enabled",
		"history.path",
		"log.level",
		"log.file",
		"ui.word_wrap",
		"ui.markdown",
	}
}

// String returns the config as indented JSON for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
