// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package framing implements the two NETCONF message-framing protocols of
// RFC 6242, selected per session by which base capability was negotiated
// in <hello> (spec.md §6 "Transport"): EOM marker framing for base:1.0,
// chunked framing for base:1.1.
package framing

import (
	"bytes"
	"fmt"
)

// Mode selects which framing a session speaks.
type Mode int

const (
	ModeEOM Mode = iota
	ModeChunked
)

var eomMarker = []byte("]]>]]>")

// EncodeEOM appends the base:1.0 end-of-message marker.
func EncodeEOM(msg []byte) []byte {
	out := make([]byte, 0, len(msg)+len(eomMarker))
	out = append(out, msg...)
	out = append(out, eomMarker...)
	return out
}

// EncodeChunked wraps msg in base:1.1 chunked framing, splitting it into
// chunks of at most maxChunk bytes (RFC 6242 §4.2). maxChunk <= 0 emits a
// single chunk.
func EncodeChunked(msg []byte, maxChunk int) []byte {
	if maxChunk <= 0 {
		maxChunk = len(msg)
		if maxChunk == 0 {
			maxChunk = 1
		}
	}
	var buf bytes.Buffer
	for off := 0; off < len(msg); off += maxChunk {
		end := off + maxChunk
		if end > len(msg) {
			end = len(msg)
		}
		chunk := msg[off:end]
		fmt.Fprintf(&buf, "\n#%d\n", len(chunk))
		buf.Write(chunk)
	}
	buf.WriteString("\n##\n")
	return buf.Bytes()
}

// Encode frames msg for the given mode.
func Encode(mode Mode, msg []byte, maxChunk int) []byte {
	if mode == ModeChunked {
		return EncodeChunked(msg, maxChunk)
	}
	return EncodeEOM(msg)
}

// Decoder incrementally reassembles framed messages out of a byte stream
// delivered in arbitrary-sized reads (the event loop's ReadReady, spec.md
// §4.6 step 2 "parse; on complete PDU, enqueue"). It is not safe for
// concurrent use.
type Decoder struct {
	mode Mode
	buf  []byte

	// chunked-mode accumulator state
	inMessage  bool
	pendingLen int // -1: expecting a chunk-size header next
	msg        []byte
}

func NewDecoder(mode Mode) *Decoder {
	return &Decoder{mode: mode, pendingLen: -1}
}

// SetMode switches framing mode, used right after a base:1.1 <hello> is
// exchanged: the reply carrying the <hello> is still EOM-framed, but
// everything after switches to chunked (RFC 6242 §4.1).
func (d *Decoder) SetMode(mode Mode) {
	d.mode = mode
}

// Feed appends newly read bytes and returns every complete message framed
// out so far, oldest first.
func (d *Decoder) Feed(data []byte) ([][]byte, error) {
	d.buf = append(d.buf, data...)
	switch d.mode {
	case ModeChunked:
		return d.drainChunked()
	default:
		return d.drainEOM()
	}
}

func (d *Decoder) drainEOM() ([][]byte, error) {
	var out [][]byte
	for {
		idx := bytes.Index(d.buf, eomMarker)
		if idx < 0 {
			return out, nil
		}
		msg := make([]byte, idx)
		copy(msg, d.buf[:idx])
		out = append(out, msg)
		d.buf = d.buf[idx+len(eomMarker):]
	}
}

// drainChunked implements RFC 6242 §4.2's grammar:
//
//	chunked-message = 1*chunk end-of-chunks
//	chunk           = "\n#" chunk-size "\n" chunk-data
//	end-of-chunks   = "\n##\n"
func (d *Decoder) drainChunked() ([][]byte, error) {
	var out [][]byte
	for {
		if d.pendingLen < 0 {
			size, consumed, ok, err := parseChunkHeader(d.buf)
			if err != nil {
				return out, err
			}
			if !ok {
				return out, nil
			}
			d.buf = d.buf[consumed:]
			if size < 0 {
				// end-of-chunks: the message is complete.
				out = append(out, d.msg)
				d.msg = nil
				d.inMessage = false
				continue
			}
			d.inMessage = true
			d.pendingLen = size
			continue
		}
		if len(d.buf) < d.pendingLen {
			return out, nil
		}
		d.msg = append(d.msg, d.buf[:d.pendingLen]...)
		d.buf = d.buf[d.pendingLen:]
		d.pendingLen = -1
	}
}

// parseChunkHeader consumes one "\n#<digits>\n" or "\n##\n" header from
// the front of buf. ok is false if buf doesn't yet hold a complete
// header. size is -1 for the end-of-chunks marker.
func parseChunkHeader(buf []byte) (size, consumed int, ok bool, err error) {
	if len(buf) < 2 {
		return 0, 0, false, nil
	}
	if buf[0] != '\n' || buf[1] != '#' {
		return 0, 0, false, fmt.Errorf("malformed chunk header: expected \\n#, got %q", buf[:minInt(2, len(buf))])
	}
	if len(buf) >= 4 && buf[2] == '#' && buf[3] == '\n' {
		return -1, 4, true, nil
	}
	nl := bytes.IndexByte(buf[2:], '\n')
	if nl < 0 {
		if len(buf) > 2+maxChunkSizeDigits {
			return 0, 0, false, fmt.Errorf("malformed chunk header: size field too long")
		}
		return 0, 0, false, nil
	}
	digits := buf[2 : 2+nl]
	if len(digits) == 0 || len(digits) > maxChunkSizeDigits {
		return 0, 0, false, fmt.Errorf("malformed chunk-size %q", digits)
	}
	n := 0
	for _, b := range digits {
		if b < '0' || b > '9' {
			return 0, 0, false, fmt.Errorf("malformed chunk-size %q", digits)
		}
		n = n*10 + int(b-'0')
	}
	if n == 0 {
		return 0, 0, false, fmt.Errorf("chunk-size must be 1-4294967295, got 0")
	}
	return n, 2 + nl + 1, true, nil
}

const maxChunkSizeDigits = 10 // RFC 6242: chunk-size is 1..4294967295

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
