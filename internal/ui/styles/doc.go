// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lipgloss styles for the askr TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. NewTheme inspects the terminal with termenv; PlainTheme strips
every style so rendered output can be compared in tests.

	theme := styles.NewTheme()
	line := theme.Plan.Render(msg.Plan)
*/
package styles
