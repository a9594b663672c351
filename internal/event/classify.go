// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"github.com/tidwall/gjson"

	"github.com/jeranaias/askr/internal/logging"
	"github.com/jeranaias/askr/internal/model"
	"github.com/jeranaias/askr/internal/sse"
)

// =============================================================================
// FIELD PATHS
// =============================================================================

const (
	fieldStepType   = "step_type"
	fieldBlocks     = "blocks"
	fieldUsage      = "intended_usage"
	fieldText       = "text"
	fieldAnswerText = "answer_text"
)

var (
	// Separators marking where a fragment came from.
	textSeparator = " "
	rawSeparator  = "\n"

	planContainerPaths = []string{"diff_block", "plan_block"}
	planTextPaths      = []string{"text", "patches.0.value.text", "description"}
	webContainerPaths  = []string{"diff_block.patches.0.value.web_results", "diff_block.patches.0.value"}
	answerTextPaths    = []string{fieldText, fieldAnswerText}
)

// =============================================================================
// CLASSIFY
// =============================================================================

// Classify converts one decoded payload into patches for the open message.
func Classify(p sse.Payload) []model.Patch {
	if !p.Structured {
		return []model.Patch{model.AppendText(rawSeparator + p.Data)}
	}
	return ClassifyJSON(p.Data)
}

// ClassifyJSON applies the classification rules to a JSON document.
// Non-object documents yield no patches.
func ClassifyJSON(doc string) []model.Patch {
	root := gjson.Parse(doc)
	if !root.IsObject() {
		logging.L.Debug("payload is not an object", "type", root.Type.String())
		return nil
	}

	if truthy(root.Get(fieldStepType)) {
		logging.L.Debug("metadata payload discarded", "step_type", root.Get(fieldStepType).String())
		return nil
	}

	var patches []model.Patch

	if blocks := root.Get(fieldBlocks); blocks.IsArray() {
		for i, block := range blocks.Array() {
			patches = append(patches, classifyBlock(i, block)...)
		}
	}

	if text, ok := firstTruthy(root, answerTextPaths...); ok {
		patches = append(patches, model.AppendText(textSeparator+text.String()))
	}

	return patches
}

func classifyBlock(index int, block gjson.Result) []model.Patch {
	var patches []model.Patch

	kinds := Kinds(block)
	for _, kind := range kinds {
		switch kind {
		case KindPlan:
			if p, ok := planPatch(block); ok {
				patches = append(patches, p)
			}
		case KindWebResults:
			if p, ok := sourcesPatch(block); ok {
				patches = append(patches, p)
			}
		default:
			logging.L.Debug("block skipped",
				"index", index, "usage", block.Get(fieldUsage).String())
		}
	}
	return patches
}

// planPatch extracts the plan narrative from a plan block.
func planPatch(block gjson.Result) (model.Patch, bool) {
	container, ok := firstTruthy(block, planContainerPaths...)
	if !ok {
		container = block
	}

	text, ok := firstTruthy(container, planTextPaths...)
	if !ok {
		return model.Patch{}, false
	}
	return model.SetPlan(text.String()), true
}

// sourcesPatch collects every citable entry of a web-result block.
func sourcesPatch(block gjson.Result) (model.Patch, bool) {
	web, ok := firstTruthy(block, webContainerPaths...)
	if !ok {
		web = block
	}

	candidates := web
	if nested := web.Get("web_results"); truthy(nested) {
		candidates = nested
	}
	if !candidates.IsArray() {
		return model.Patch{}, false
	}

	var sources []model.Source
	for _, entry := range candidates.Array() {
		if src, ok := toSource(entry); ok {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return model.Patch{}, false
	}
	return model.AppendSources(sources), true
}

func toSource(entry gjson.Result) (model.Source, bool) {
	if !entry.IsObject() {
		return model.Source{}, false
	}

	url := entry.Get("url")
	if !truthy(url) {
		return model.Source{}, false
	}

	name, ok := firstTruthy(entry, "name", "title")
	if !ok {
		name = url
	}

	var snippet string
	if s := entry.Get("snippet"); s.Exists() && s.Type != gjson.Null {
		snippet = s.String()
	}

	return model.Source{Name: name.String(), URL: url.String(), Snippet: snippet}, true
}

// =============================================================================
// TRUTHINESS
// =============================================================================

// truthy reports whether a value would pass a loose boolean test.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

// firstTruthy returns the first truthy value among paths.
func firstTruthy(r gjson.Result, paths ...string) (gjson.Result, bool) {
	for _, p := range paths {
		if v := r.Get(p); truthy(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}
