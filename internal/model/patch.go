// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// PatchKind identifies which field of an assistant message a patch changes.
type PatchKind int

const (
	PatchSetPlan PatchKind = iota + 1
	PatchAppendSources
	PatchAppendText
)

// String returns the patch kind name used in logs.
func (k PatchKind) String() string {
	switch k {
	case PatchSetPlan:
		return "SetPlan"
	case PatchAppendSources:
		return "AppendSources"
	case PatchAppendText:
		return "AppendText"
	default:
		return "Unknown"
	}
}

// Patch is one unit of change applied to the open assistant message.
type Patch struct {
	Kind    PatchKind
	Text    string
	Sources []Source
}

// SetPlan overwrites the reasoning plan narrative.
func SetPlan(text string) Patch {
	return Patch{Kind: PatchSetPlan, Text: text}
}

// AppendSources appends a batch of cited sources.
func AppendSources(sources []Source) Patch {
	return Patch{Kind: PatchAppendSources, Sources: sources}
}

// AppendText appends an answer text fragment.
func AppendText(fragment string) Patch {
	return Patch{Kind: PatchAppendText, Text: fragment}
}
