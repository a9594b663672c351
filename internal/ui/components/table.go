// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jeranaias/askr/internal/ui/styles"
	"github.com/jeranaias/askr/internal/util"
)

// MinTableLines is the number of non-blank lines an answer needs before a
// numbered list is shown as a table.
const MinTableLines = 3

var numberedLine = regexp.MustCompile(`^\d+\.\s*(.*)$`)

// TableRows extracts the items of a numbered list from answer text.
// It returns nil unless the text has at least MinTableLines non-blank lines
// and one of them starts with "N.".
func TableRows(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < MinTableLines {
		return nil
	}

	var rows []string
	for _, line := range lines {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		row := strings.TrimSpace(m[1])
		if row == "" {
			row = line
		}
		rows = append(rows, row)
	}
	return rows
}

// RenderTable draws rows as a two column "#" / "Name" table no wider than width.
func RenderTable(rows []string, width int, theme *styles.Theme) string {
	numWidth := len(strconv.Itoa(len(rows)))
	if numWidth < 1 {
		numWidth = 1
	}
	nameWidth := 4
	for _, r := range rows {
		if w := util.StringWidth(r); w > nameWidth {
			nameWidth = w
		}
	}
	// "| " + num + " | " + name + " |"
	if avail := width - numWidth - 7; width > 0 && nameWidth > avail {
		nameWidth = avail
	}
	if nameWidth < 4 {
		nameWidth = 4
	}

	border := theme.TableBorder.Render("+" + strings.Repeat("-", numWidth+2) + "+" + strings.Repeat("-", nameWidth+2) + "+")
	bar := theme.TableBorder.Render("|")
	row := func(num, name string, style func(...string) string) string {
		return bar + " " + style(util.PadRight(num, numWidth)) + " " + bar + " " +
			style(util.PadRight(util.TruncateWidth(name, nameWidth), nameWidth)) + " " + bar
	}

	var sb strings.Builder
	sb.WriteString(border + "\n")
	sb.WriteString(row("#", "Name", theme.TableHeader.Render) + "\n")
	sb.WriteString(border + "\n")
	for i, r := range rows {
		sb.WriteString(row(strconv.Itoa(i+1), r, theme.TableCell.Render) + "\n")
	}
	sb.WriteString(border)
	return sb.String()
}
