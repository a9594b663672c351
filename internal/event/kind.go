// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import "github.com/tidwall/gjson"

// BlockKind is the role a block plays in the answer.
type BlockKind int

const (
	KindUnrecognized BlockKind = iota
	KindPlan
	KindWebResults
)

// String returns the kind name used in logs.
func (k BlockKind) String() string {
	switch k {
	case KindPlan:
		return "plan"
	case KindWebResults:
		return "web_results"
	default:
		return "unrecognized"
	}
}

// Usage tags per kind.
var (
	planUsages = map[string]bool{
		"plan":             true,
		"pro_search_steps": true,
	}
	webUsages = map[string]bool{
		"web_results":         true,
		"sources_answer_mode": true,
	}
)

// webResultField is the diff_block.field value naming a web-result patch.
const webResultField = "web_result_block"

// Kinds returns every kind a block matches, plan first. A block that matches
// nothing returns KindUnrecognized alone.
func Kinds(block gjson.Result) []BlockKind {
	usage := block.Get(fieldUsage)
	tag := ""
	if usage.Type == gjson.String {
		tag = usage.Str
	}

	var kinds []BlockKind
	if planUsages[tag] {
		kinds = append(kinds, KindPlan)
	}
	if webUsages[tag] || isWebResultDiff(block) {
		kinds = append(kinds, KindWebResults)
	}
	if len(kinds) == 0 {
		return []BlockKind{KindUnrecognized}
	}
	return kinds
}

func isWebResultDiff(block gjson.Result) bool {
	diff := block.Get("diff_block")
	if !truthy(diff) {
		return false
	}
	field := diff.Get("field")
	return field.Type == gjson.String && field.Str == webResultField
}
