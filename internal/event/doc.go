// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package event classifies decoded stream payloads into message patches.
//
// Payloads come from producers whose nested shapes drift between versions, so
// every field is reached through a fallback chain of gjson paths and a value
// counts only when it is "truthy" (non-empty string, non-zero number, true, or
// any object or array). A missing or mis-shaped field never fails
// classification; the affected block simply contributes nothing.
//
// # Rules
//
//  1. A payload with a truthy step_type is metadata and yields no patches.
//  2. Each entry of blocks is tagged by intended_usage. Plan blocks yield
//     SetPlan, web-result blocks yield AppendSources. A block may be both.
//  3. A truthy text (or, failing that, answer_text) yields AppendText with a
//     leading space.
//
// Unstructured payloads bypass the rules and become AppendText prefixed with
// a newline.
package event
