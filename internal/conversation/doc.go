// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the live, ordered list of conversation turns.
//
// A Store owns its messages on a single goroutine. Every mutation is addressed
// by message id and is a silent no-op when the id is unknown, closed, or not an
// assistant message, so late writes from a cancelled stream or reveal never
// corrupt the list. Readers get deep copies and a coalescing notification
// channel.
package conversation
