// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components renders conversation messages for the askr TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/askr/internal/model"
	"github.com/jeranaias/askr/internal/ui/styles"
	"github.com/jeranaias/askr/internal/util"
)

// WorkingText is shown while an answer has neither text nor plan.
const WorkingText = "Working..."

// =============================================================================
// MESSAGE VIEW
// =============================================================================

// MessageView renders one message.
type MessageView struct {
	Message    model.Message
	Width      int
	MaxSources int

	// Spinner is the current spinner frame for loading answers.
	Spinner string

	theme *styles.Theme
}

// NewMessageView creates a view for msg.
func NewMessageView(msg model.Message, theme *styles.Theme) *MessageView {
	return &MessageView{
		Message:    msg,
		Width:      80,
		MaxSources: DefaultMaxSources,
		theme:      theme,
	}
}

// View renders the message.
func (v *MessageView) View() string {
	if v.Message.Role == model.RoleUser {
		return v.renderUser()
	}
	return v.renderAssistant()
}

func (v *MessageView) renderUser() string {
	label := v.theme.UserLabel.Render(model.RoleUser.DisplayName())
	return label + "\n" + renderLines(v.theme.UserText, wordWrap(v.Message.Text, v.contentWidth()))
}

func (v *MessageView) renderAssistant() string {
	m := v.Message
	parts := []string{v.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName())}

	if m.Loading && m.Text == "" && m.Plan == "" {
		working := WorkingText
		if v.Spinner != "" {
			working = v.Spinner + " " + working
		}
		parts = append(parts, v.theme.Working.Render(working))
	}

	if m.Plan != "" {
		parts = append(parts, renderLines(v.theme.Plan, wordWrap("> "+m.Plan, v.contentWidth())))
	}

	if text := strings.TrimSpace(m.Text); text != "" {
		if rows := TableRows(text); len(rows) > 0 {
			parts = append(parts, RenderTable(rows, v.contentWidth(), v.theme))
		} else {
			parts = append(parts, renderLines(v.theme.AnswerText, wordWrap(text, v.contentWidth())))
		}
	}

	if src := RenderSources(m.Sources, v.MaxSources, v.contentWidth(), v.theme); src != "" {
		parts = append(parts, src)
	}

	return strings.Join(parts, "\n")
}

func (v *MessageView) contentWidth() int {
	if v.Width < 20 {
		return 20
	}
	return v.Width
}

// RenderTranscript renders messages separated by blank lines.
func RenderTranscript(msgs []model.Message, width, maxSources int, spinner string, theme *styles.Theme) string {
	if len(msgs) == 0 {
		return ""
	}
	views := make([]string, 0, len(msgs))
	for _, m := range msgs {
		v := NewMessageView(m, theme)
		v.Width = width
		v.MaxSources = maxSources
		v.Spinner = spinner
		views = append(views, v.View())
	}
	return strings.Join(views, "\n\n")
}

// =============================================================================
// HELPERS
// =============================================================================

// renderLines styles each line separately so lines are not padded to a
// common width.
func renderLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = style.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

// wordWrap wraps text at word boundaries to the given display width,
// keeping existing line breaks.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	for lineIdx, line := range strings.Split(text, "\n") {
		if lineIdx > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLine := words[0]
		for _, word := range words[1:] {
			if util.StringWidth(currentLine)+1+util.StringWidth(word) <= width {
				currentLine += " " + word
			} else {
				result.WriteString(currentLine)
				result.WriteString("\n")
				currentLine = word
			}
		}
		result.WriteString(currentLine)
	}
	return result.String()
}
