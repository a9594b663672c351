// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"bytes"
	"encoding/json"

	"github.com/jeranaias/askr/internal/logging"
)

// =============================================================================
// DECODER CONSTANTS
// =============================================================================

const (
	// DataPrefix marks a payload-carrying line.
	DataPrefix = "data:"

	// DoneSentinel is the payload value that marks the end of the stream.
	DoneSentinel = "[DONE]"

	// DefaultMaxFrameSize bounds the carry buffer (1 MiB). A buffer that grows
	// past it without a frame boundary is decoded as a best-effort frame.
	DefaultMaxFrameSize = 1 << 20
)

var frameBoundary = []byte("\n\n")

// =============================================================================
// PAYLOAD
// =============================================================================

// Payload is one decoded data value.
type Payload struct {
	// Data is the text after the data prefix, trimmed.
	Data string

	// Structured is true when Data is valid JSON.
	Structured bool
}

func newPayload(data []byte) Payload {
	return Payload{Data: string(data), Structured: json.Valid(data)}
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns arbitrary chunks into ordered payloads.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	buf       []byte
	pendingCR bool

	// MaxFrameSize overrides DefaultMaxFrameSize when positive.
	MaxFrameSize int
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes one chunk and returns every payload completed by it.
// Output does not depend on how the stream is split into chunks, except when
// the carry buffer passes the frame size limit: the partial frame is then
// decoded on its own, so where chunks end decides where it is cut.
func (d *Decoder) Feed(chunk []byte) []Payload {
	d.appendNormalized(chunk)

	var out []Payload
	for {
		idx := bytes.Index(d.buf, frameBoundary)
		if idx < 0 {
			break
		}
		out = appendFrame(out, d.buf[:idx])
		d.buf = d.buf[idx+len(frameBoundary):]
	}

	if len(d.buf) > d.maxFrameSize() {
		logging.L.Warn("sse frame exceeds limit, decoding partial frame",
			"size", len(d.buf), "limit", d.maxFrameSize())
		out = appendFrame(out, d.buf)
		d.buf = nil
	}

	// Drop the consumed prefix so the backing array does not grow without bound.
	if len(d.buf) == 0 {
		d.buf = nil
	} else if cap(d.buf) > 4*len(d.buf) && cap(d.buf) > 4096 {
		d.buf = append([]byte(nil), d.buf...)
	}
	return out
}

// Flush decodes whatever remains buffered as a final frame and resets the
// decoder. Call it once the stream has ended.
func (d *Decoder) Flush() []Payload {
	if d.pendingCR {
		d.buf = append(d.buf, '\r')
		d.pendingCR = false
	}
	rest := d.buf
	d.buf = nil
	if len(bytes.TrimSpace(rest)) == 0 {
		return nil
	}
	return appendFrame(nil, rest)
}

// Buffered returns the number of bytes held in the carry buffer.
func (d *Decoder) Buffered() int {
	n := len(d.buf)
	if d.pendingCR {
		n++
	}
	return n
}

func (d *Decoder) maxFrameSize() int {
	if d.MaxFrameSize > 0 {
		return d.MaxFrameSize
	}
	return DefaultMaxFrameSize
}

// appendNormalized appends chunk to the carry buffer, rewriting CRLF to LF.
// A trailing CR is held back until the next byte is known.
func (d *Decoder) appendNormalized(chunk []byte) {
	for _, b := range chunk {
		if d.pendingCR {
			d.pendingCR = false
			if b == '\n' {
				d.buf = append(d.buf, '\n')
				continue
			}
			d.buf = append(d.buf, '\r')
		}
		if b == '\r' {
			d.pendingCR = true
			continue
		}
		d.buf = append(d.buf, b)
	}
}

// appendFrame decodes every data line of a frame.
func appendFrame(out []Payload, frame []byte) []Payload {
	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte(DataPrefix)) {
			if len(line) > 0 {
				logging.L.Debug("sse line ignored", "line", truncate(line, 80))
			}
			continue
		}

		data := bytes.TrimSpace(line[len(DataPrefix):])
		if len(data) == 0 || string(data) == DoneSentinel {
			continue
		}
		out = append(out, newPayload(data))
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
