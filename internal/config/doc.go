// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for askr.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - UpstreamConfig: Answering service endpoint and idle watchdog
//   - RevealConfig: Word-by-word reveal pacing
//   - HistoryConfig: Local history database
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ASKR_*)
//   - ~/.askr/config.toml
//   - ~/.askr/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Reload on change:
//
//	config.Watch(ctx, path, 0, func(cfg *config.Config) {
//	    revealer.SetInterval(cfg.Reveal.Interval())
//	})
package config
