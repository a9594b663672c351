// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging holds the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	levelVar = new(slog.LevelVar)

	mu   sync.Mutex
	sink io.Closer

	// L is the global logger. It writes JSON records to stderr until
	// SetOutput or OpenFile redirects it.
	L = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
)

func init() {
	levelVar.Set(slog.LevelWarn)
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level.
// Unknown names map to info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel configures the global log level.
func SetLevel(lvl string) {
	levelVar.Set(ParseLevel(lvl))
}

// Level returns the current global log level.
func Level() slog.Level {
	return levelVar.Level()
}

// SetOutput redirects the global logger to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeSinkLocked()
	L = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

// Discard silences the global logger. The TUI uses this when no log file is
// configured so records never land on the terminal it draws on.
func Discard() {
	SetOutput(io.Discard)
}

// OpenFile appends log records to the file at path.
func OpenFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	mu.Lock()
	defer mu.Unlock()
	closeSinkLocked()
	sink = f
	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: levelVar}))
	return nil
}

// Close releases the file sink, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeSinkLocked()
}

func closeSinkLocked() error {
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}
