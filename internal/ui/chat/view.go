// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"github.com/jeranaias/askr/internal/util"
)

// View renders the chat view.
func (m Model) View() string {
	parts := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.theme.Separator.Render(strings.Repeat("-", max(m.width, 1))),
		m.input.View(),
		m.renderStatusBar(),
	}
	if m.showHelp {
		parts = append(parts, m.help.View(m.keys))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderHeader() string {
	title := m.theme.Header.Render("askr")
	hint := ""
	if id := m.sess.ConversationID(); id != "" {
		hint = " " + strings.TrimPrefix(id, "conv_")
		hint = util.TruncateWidth(hint, max(m.width-util.StringWidth(title), 0))
	}
	return title + m.theme.HeaderHint.Render(hint)
}

func (m Model) renderStatusBar() string {
	if m.status == "" {
		return m.theme.StatusBar.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return m.theme.StatusBar.Render(util.TruncateWidth(m.status, max(m.width-2, 1)))
}
