// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateRunes truncates a string to a maximum number of runes.
// If the string is truncated, "..." is appended.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateWidth truncates a string to a maximum display width, counting
// wide (CJK, emoji) characters as two columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// StringWidth returns the display width of a string.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight pads s with spaces to the given display width.
func PadRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// SingleLine collapses all whitespace runs in s to single spaces.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
