// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/jeranaias/askr/internal/model"
	"github.com/jeranaias/askr/internal/ui/styles"
	"github.com/jeranaias/askr/internal/util"
)

// DefaultMaxSources is how many sources are listed under an answer.
const DefaultMaxSources = 9

// RenderSources lists up to limit sources, one per line, each name truncated
// to fit width. A limit of zero or less uses DefaultMaxSources.
func RenderSources(sources []model.Source, limit, width int, theme *styles.Theme) string {
	if len(sources) == 0 {
		return ""
	}
	if limit <= 0 {
		limit = DefaultMaxSources
	}
	if len(sources) > limit {
		sources = sources[:limit]
	}

	idxWidth := len(strconv.Itoa(len(sources)))
	var lines []string
	for i, src := range sources {
		idx := util.PadRight(strconv.Itoa(i+1), idxWidth)
		avail := width - idxWidth - 2
		if avail < 10 {
			avail = 10
		}
		name := util.TruncateWidth(util.SingleLine(src.Name), avail)
		lines = append(lines, theme.SourceIndex.Render(idx)+"  "+theme.SourceName.Render(name))
		if src.URL != src.Name {
			lines = append(lines, strings.Repeat(" ", idxWidth+2)+theme.SourceURL.Render(util.TruncateWidth(src.URL, avail)))
		}
	}
	return strings.Join(lines, "\n")
}
