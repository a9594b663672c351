// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// TERMINAL WIDTH DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the current terminal width, or
// DefaultTerminalWidth when it cannot be determined.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled reports whether colored output should be used. NO_COLOR
// wins over FORCE_COLOR, which wins over TTY detection.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorsEnabled = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorsEnabled = true
			return
		}
		colorsEnabled = IsStdoutTTY()
	})
	return colorsEnabled
}

// GetColorProfile returns the termenv profile for stdout.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
