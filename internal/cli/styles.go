// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/askr/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// Shared styles for line-oriented output.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Blue)

	PlanStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(styles.TextSecondary)

	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Teal).
			Bold(true)
)
