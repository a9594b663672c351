// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/askr/internal/logging"
)

// DefaultWatchDebounce coalesces editor write bursts into one reload.
const DefaultWatchDebounce = 200 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// new config to fn. Invalid files are logged and skipped. Watch returns once
// the watcher is running; it stops when ctx is done.
//
// The parent directory is watched rather than the file so editors that save
// by rename are still noticed.
func Watch(ctx context.Context, path string, debounce time.Duration, fn func(*Config)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	go watchLoop(ctx, watcher, filepath.Clean(path), debounce, fn)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, debounce time.Duration, fn func(*Config)) {
	defer watcher.Close()

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			cfg, err := LoadFromPath(path)
			if err != nil {
				logging.L.Warn("config reload failed", "path", path, "error", err)
				continue
			}
			logging.L.Info("config reloaded", "path", path)
			fn(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.L.Warn("config watcher error", "error", err)
		}
	}
}
