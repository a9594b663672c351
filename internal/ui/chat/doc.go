// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive askr TUI.
//
// The model owns no conversation state. It renders the session's store each
// time the store signals a change, and re-renders on spinner ticks while an
// answer is open. Enter asks the typed question (or DefaultQuestion when the
// input is empty); the input is blurred until the answer closes. Ctrl+N
// starts a new chat, cancelling the answer in flight.
package chat
