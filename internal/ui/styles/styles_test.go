// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainThemeRendersVerbatim(t *testing.T) {
	theme := PlainTheme()
	for _, s := range theme.all() {
		assert.Equal(t, "hello", s.Render("hello"))
	}
}

func TestNewThemeInitialisesStyles(t *testing.T) {
	theme := NewTheme()
	assert.True(t, theme.Header.GetBold())
	assert.True(t, theme.Plan.GetItalic())
	assert.True(t, theme.SourceURL.GetUnderline())
}

func TestStatusHelpersIncludeIndicator(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.fn("boom")
			assert.True(t, strings.Contains(out, tt.want))
			assert.Contains(t, out, "boom")
		})
	}
}
