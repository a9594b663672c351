// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/askr/internal/config"
	"github.com/jeranaias/askr/internal/logging"
	"github.com/jeranaias/askr/internal/ui/chat"
	"github.com/jeranaias/askr/internal/ui/styles"
)

// HandleTUI starts the full-screen chat.
func HandleTUI(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	// The TUI owns the terminal: logs go to log.file or nowhere.
	logging.SetLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		if err := logging.OpenFile(cfg.Log.File); err != nil {
			return err
		}
		defer logging.Close()
	} else {
		logging.Discard()
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := chat.New(ctx, app.Session, chat.Options{
		Theme:           styles.NewTheme(),
		MaxSources:      cfg.Conversation.MaxSourcesShown,
		WordWrap:        cfg.UI.WordWrap,
		InitialQuestion: args.Query,
		ConfigUpdates:   watchConfig(ctx),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// watchConfig streams reloaded configuration until ctx is done. It returns
// nil when the config file cannot be watched.
func watchConfig(ctx context.Context) <-chan *config.Config {
	path, err := config.ActivePath()
	if err != nil {
		return nil
	}
	if err := config.EnsureConfigDir(); err != nil {
		logging.L.Warn("config watch disabled", "error", err)
		return nil
	}

	updates := make(chan *config.Config, 1)
	err = config.Watch(ctx, path, config.DefaultWatchDebounce, func(cfg *config.Config) {
		// Only the newest config matters.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- cfg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		logging.L.Warn("config watch disabled", "path", path, "error", err)
		return nil
	}
	return updates
}
