// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ASKR_CONFIG_DIR", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	isolate(t)
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Reveal.DelayMs)
	assert.Equal(t, 30*time.Millisecond, cfg.Reveal.Interval())
	assert.Equal(t, 9, cfg.Conversation.MaxSourcesShown)
	assert.False(t, cfg.Conversation.DedupeSources)
	assert.Zero(t, cfg.Upstream.IdleTimeout())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Upstream.Endpoint, cfg.Upstream.Endpoint)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.History.Path)
}

func TestLoad_PrefersTOML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[reveal]\ndelay_ms = 5\n")
	writeFile(t, filepath.Join(dir, "config.json"), `{"reveal":{"delay_ms":7}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Reveal.DelayMs)
}

func TestLoadFromPath_TOMLKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
[upstream]
endpoint = "http://localhost:8080/ask"
idle_timeout_secs = 45

[reveal]
delay_ms = 0

[conversation]
dedupe_sources = true
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/ask", cfg.Upstream.Endpoint)
	assert.Equal(t, 45*time.Second, cfg.Upstream.IdleTimeout())
	assert.Equal(t, 0, cfg.Reveal.DelayMs, "zero delay is kept, not defaulted")
	assert.True(t, cfg.Conversation.DedupeSources)
	assert.Equal(t, 9, cfg.Conversation.MaxSourcesShown)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFromPath_JSON(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{"log":{"level":"debug"},"ui":{"word_wrap":100}}`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 100, cfg.UI.WordWrap)
}

func TestLoadFromPath_Errors(t *testing.T) {
	dir := isolate(t)

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[reveal\n")
	_, err := LoadFromPath(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.toml")
	writeFile(t, invalid, "[reveal]\ndelay_ms = -5\n")
	_, err = LoadFromPath(invalid)
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "reveal.delay_ms", verrs[0].Field)

	future := filepath.Join(dir, "future.toml")
	writeFile(t, future, "version = \"99\"\n")
	_, err = LoadFromPath(future)
	assert.ErrorContains(t, err, "unsupported config version")
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := Default()
	cfg.Reveal.DelayMs = 12
	cfg.Conversation.DedupeSources = true
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# askr configuration file")

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Reveal.DelayMs)
	assert.True(t, loaded.Conversation.DedupeSources)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty endpoint", func(c *Config) { c.Upstream.Endpoint = "" }, "upstream.endpoint"},
		{"non-http endpoint", func(c *Config) { c.Upstream.Endpoint = "ftp://example.com" }, "upstream.endpoint"},
		{"relative endpoint", func(c *Config) { c.Upstream.Endpoint = "/ask" }, "upstream.endpoint"},
		{"negative idle", func(c *Config) { c.Upstream.IdleTimeoutSecs = -1 }, "upstream.idle_timeout_secs"},
		{"huge delay", func(c *Config) { c.Reveal.DelayMs = 5000 }, "reveal.delay_ms"},
		{"negative sources", func(c *Config) { c.Conversation.MaxSourcesShown = -1 }, "conversation.max_sources_shown"},
		{"history without path", func(c *Config) { c.History.Path = "" }, "history.path"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"tiny word wrap", func(c *Config) { c.UI.WordWrap = 5 }, "ui.word_wrap"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.History.Path = "/tmp/history.db"
			tc.mutate(cfg)

			err := cfg.Validate()
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "expected ValidateErrors, got %v", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	errs := ValidateErrors{{"a", "bad"}, {"b", "worse"}}
	assert.Equal(t, "a: bad; b: worse", errs.Error())
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
}

// =============================================================================
// ENV OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("ASKR_ENDPOINT", "https://answers.example.com")
	t.Setenv("ASKR_REVEAL_DELAY_MS", "0")
	t.Setenv("ASKR_LOG_LEVEL", "debug")
	t.Setenv("ASKR_HISTORY_PATH", "/tmp/h.db")
	t.Setenv("ASKR_IDLE_TIMEOUT", "2m")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "https://answers.example.com", cfg.Upstream.Endpoint)
	assert.Equal(t, 0, cfg.Reveal.DelayMs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/h.db", cfg.History.Path)
	assert.Equal(t, 120, cfg.Upstream.IdleTimeoutSecs)
}

func TestApplyEnvOverrides_IdleSeconds(t *testing.T) {
	isolate(t)
	t.Setenv("ASKR_IDLE_TIMEOUT", "15")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 15, cfg.Upstream.IdleTimeoutSecs)
}

// =============================================================================
// GET/SET TESTS
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	isolate(t)
	cfg := Default()

	v, err := cfg.Get("reveal.delay_ms")
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	require.NoError(t, cfg.Set("reveal.delay_ms", "10"))
	require.NoError(t, cfg.Set("conversation.dedupe_sources", "true"))
	require.NoError(t, cfg.Set("upstream.endpoint", "http://localhost:9000"))
	require.NoError(t, cfg.Set("ui.word_wrap", 120))

	assert.Equal(t, 10, cfg.Reveal.DelayMs)
	assert.True(t, cfg.Conversation.DedupeSources)
	assert.Equal(t, "http://localhost:9000", cfg.Upstream.Endpoint)
	assert.Equal(t, 120, cfg.UI.WordWrap)

	_, err = cfg.Get("nope.field")
	assert.ErrorContains(t, err, "unknown field")
	_, err = cfg.Get("reveal.delay_ms.deeper")
	assert.ErrorContains(t, err, "not a struct")
	assert.Error(t, cfg.Set("reveal.delay_ms", "fast"))
	assert.Error(t, cfg.Set("", "x"))
}

func TestGetAllKeys_Resolve(t *testing.T) {
	isolate(t)
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

// =============================================================================
// WATCH TESTS
// =============================================================================

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[reveal]\ndelay_ms = 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan int, 4)
	require.NoError(t, Watch(ctx, path, 20*time.Millisecond, func(cfg *Config) {
		got <- cfg.Reveal.DelayMs
	}))

	writeFile(t, path, "[reveal]\ndelay_ms = 75\n")

	select {
	case ms := <-got:
		assert.Equal(t, 75, ms)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

