// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal paces answer text into the conversation one word at a time.
//
// Each message id owns a FIFO queue of runs drained by a single goroutine, so
// fragments for the same message are revealed in arrival order while the
// caller never blocks. Pacing uses a token-bucket limiter with a burst of one:
// the first run of an idle queue appears immediately and later runs follow at
// the configured interval.
package reveal
