// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes a server-sent-event byte stream into payloads.
//
// The Decoder keeps a single carry-over buffer across Feed calls, so the
// transport may split the stream anywhere (mid-prefix, mid-payload, between
// the two newlines of a frame boundary) without losing or duplicating a
// payload.
//
// # Usage
//
//	err := sse.Read(ctx, resp.Body, func(p sse.Payload) error {
//		if !p.Structured {
//			// raw text
//		}
//		return nil
//	})
package sse
