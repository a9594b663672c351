// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"unicode"
	"unicode/utf8"
)

// Split breaks s into alternating runs of whitespace and non-whitespace.
// Concatenating the result reproduces s exactly. Empty runs are never
// returned, so Split("") is nil.
func Split(s string) []string {
	var runs []string
	start := 0
	inSpace := false

	for i, r := range s {
		space := unicode.IsSpace(r)
		if i == 0 {
			inSpace = space
			continue
		}
		if space != inSpace {
			runs = append(runs, s[start:i])
			start = i
			inSpace = space
		}
	}
	if start < len(s) {
		runs = append(runs, s[start:])
	}
	return runs
}

// runeCount is used for log fields only.
func runeCount(runs []string) int {
	n := 0
	for _, r := range runs {
		n += utf8.RuneCountInString(r)
	}
	return n
}
