// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/jeranaias/askr/internal/config"
	"github.com/jeranaias/askr/internal/logging"
	"github.com/jeranaias/askr/internal/session"
	"github.com/jeranaias/askr/internal/storage"
	"github.com/jeranaias/askr/internal/upstream"
)

// App bundles everything a question-asking command needs.
type App struct {
	Config  *config.Config
	Client  *upstream.Client
	History *storage.History
	Session *session.Session
}

// loadConfig loads configuration and applies the per-run flags.
func loadConfig(args Args) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if args.Endpoint != "" {
		cfg.Upstream.Endpoint = args.Endpoint
		if err := cfg.Validate(); err != nil {
			return nil, &ConfigError{Err: err}
		}
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// setupLogging points the global logger at log.file, or at stderr unless
// quiet is set.
func setupLogging(cfg *config.Config, quiet bool) error {
	logging.SetLevel(cfg.Log.Level)
	switch {
	case cfg.Log.File != "":
		return logging.OpenFile(cfg.Log.File)
	case quiet:
		logging.Discard()
	default:
		logging.SetOutput(stderr)
	}
	return nil
}

// openHistory opens the history database, or returns nil when disabled.
func openHistory(cfg *config.Config) (*storage.History, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	h, err := storage.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return h, nil
}

// newApp wires config into a ready Session. Logging must already be set up.
func newApp(cfg *config.Config) (*App, error) {
	history, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}

	client := upstream.NewClient(cfg.Upstream.Endpoint,
		upstream.WithIdleTimeout(cfg.Upstream.IdleTimeout()),
		upstream.WithUserAgent("askr/"+Version),
	)

	sessCfg := session.Config{
		RevealInterval: cfg.Reveal.Interval(),
		DedupeSources:  cfg.Conversation.DedupeSources,
	}
	if history != nil {
		sessCfg.History = history
	}

	logging.L.Debug("app ready",
		"endpoint", cfg.Upstream.Endpoint,
		"reveal_ms", cfg.Reveal.DelayMs,
		"history", history != nil,
	)

	return &App{
		Config:  cfg,
		Client:  client,
		History: history,
		Session: session.New(client, sessCfg),
	}, nil
}

// Close stops the session and closes the history database.
func (a *App) Close() {
	a.Session.Close()
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			logging.L.Warn("close history", "error", err)
		}
	}
}
