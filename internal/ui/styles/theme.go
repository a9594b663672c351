// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles used by the TUI.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	Header     lipgloss.Style
	HeaderHint lipgloss.Style

	UserLabel      lipgloss.Style
	UserText       lipgloss.Style
	AssistantLabel lipgloss.Style
	AnswerText     lipgloss.Style
	Plan           lipgloss.Style
	Working        lipgloss.Style

	SourceIndex lipgloss.Style
	SourceName  lipgloss.Style
	SourceURL   lipgloss.Style

	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
	TableBorder lipgloss.Style

	InputPrompt lipgloss.Style
	Separator   lipgloss.Style
	StatusBar   lipgloss.Style
	Error       lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// PlainTheme returns a theme with no colors, for tests and dumb terminals.
func PlainTheme() *Theme {
	t := &Theme{ColorProfile: termenv.Ascii}
	for _, s := range t.all() {
		*s = lipgloss.NewStyle()
	}
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue).
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(SurfaceDim)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Blue)
	t.UserText = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Emerald)
	t.AnswerText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Plan = lipgloss.NewStyle().Italic(true).Foreground(Teal)
	t.Working = lipgloss.NewStyle().Foreground(TextSecondary)

	t.SourceIndex = lipgloss.NewStyle().Foreground(Blue).Bold(true)
	t.SourceName = lipgloss.NewStyle().Foreground(TextSecondary)
	t.SourceURL = lipgloss.NewStyle().Foreground(LinkColor).Underline(true)

	t.TableHeader = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary)
	t.TableCell = lipgloss.NewStyle().Foreground(TextPrimary)
	t.TableBorder = lipgloss.NewStyle().Foreground(Overlay)

	t.InputPrompt = lipgloss.NewStyle().Foreground(Blue).Bold(true)
	t.Separator = lipgloss.NewStyle().Foreground(Overlay)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(SurfaceDim).
		Padding(0, 1)
	t.Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)
}

func (t *Theme) all() []*lipgloss.Style {
	return []*lipgloss.Style{
		&t.Header, &t.HeaderHint,
		&t.UserLabel, &t.UserText, &t.AssistantLabel, &t.AnswerText, &t.Plan, &t.Working,
		&t.SourceIndex, &t.SourceName, &t.SourceURL,
		&t.TableHeader, &t.TableCell, &t.TableBorder,
		&t.InputPrompt, &t.Separator, &t.StatusBar, &t.Error,
	}
}

// SpinnerFrames is an ASCII spinner animation.
var SpinnerFrames = []string{"|", "/", "-", "\\"}
