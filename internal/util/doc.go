// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across askr.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth: Display-width aware truncation for terminal columns
//   - SingleLine: Collapse whitespace for one-line previews
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
package util
