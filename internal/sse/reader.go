// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ReadChunkSize is the size of each read from the underlying stream (64KB).
const ReadChunkSize = 64 * 1024

// Handler receives decoded payloads in arrival order. Returning an error
// stops the read loop and the error is returned from Read.
type Handler func(Payload) error

// Read drives a Decoder from r until EOF, calling fn for every payload.
//
// At EOF the remaining buffer is flushed and Read returns nil. Any other read
// error is returned wrapped, after every payload completed before it has been
// delivered. Context cancellation is checked between reads; the caller is
// expected to tie r to ctx (as an HTTP response body is) so a blocked read
// also unblocks.
func Read(ctx context.Context, r io.Reader, fn Handler) error {
	dec := NewDecoder()
	buf := make([]byte, ReadChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			if err := deliver(dec.Feed(buf[:n]), fn); err != nil {
				return err
			}
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			return deliver(dec.Flush(), fn)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("read stream: %w", readErr)
	}
}

// ReadAll decodes the whole of r and returns the payloads.
func ReadAll(r io.Reader) ([]Payload, error) {
	var out []Payload
	err := Read(context.Background(), r, func(p Payload) error {
		out = append(out, p)
		return nil
	})
	return out, err
}

func deliver(payloads []Payload, fn Handler) error {
	for _, p := range payloads {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}
