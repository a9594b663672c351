// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Blue - Brand accent, prompt, source numbers
var Blue = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// Teal - Plan narrative
var Teal = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#5EEAD4"}

// Emerald - Success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, busy state
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// SurfaceDim - Header and status bar background
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#45475A"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Answer text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#CDD6F4"}

// TextSecondary - Plan, source names
var TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#A6ADC8"}

// TextMuted - Hints, URLs
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// LinkColor - Source URLs
var LinkColor = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet contains text indicators for status states.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

// StatusIndicators are ASCII so they render on every terminal.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an info message with its indicator.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Blue).
		Render(StatusIndicators.Info + " " + message)
}
