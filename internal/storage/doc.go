// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists answered turns for askr.
//
// History is kept in a SQLite database (modernc.org/sqlite, no cgo) with one
// row per conversation and one row per message. Only closed assistant
// messages are saved; the live transcript stays in the conversation store.
//
// # Usage
//
//	h, err := storage.Open(path)
//	err = h.SaveTurn(ctx, convID, question, answer)
//	metas, err := h.List(ctx, 20)
//	conv, err := h.Load(ctx, metas[0].ID)
//
// Ids shown by FormatList have the "conv_" prefix removed and are shortened;
// Resolve expands such a prefix back to the full id.
package storage
