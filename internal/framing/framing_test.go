// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package framing

import (
	"bytes"
	"testing"
)

func TestEOMRoundTrip(t *testing.T) {
	msg := []byte("<rpc message-id=\"1\"><get/></rpc>")
	framed := EncodeEOM(msg)

	d := NewDecoder(ModeEOM)
	got, err := d.Feed(framed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], msg) {
		t.Fatalf("expected round-trip message, got %q", got)
	}
}

func TestEOMAcrossMultipleFeeds(t *testing.T) {
	msg := []byte("<rpc/>")
	framed := EncodeEOM(msg)

	d := NewDecoder(ModeEOM)
	mid := len(framed) / 2
	if got, err := d.Feed(framed[:mid]); err != nil || len(got) != 0 {
		t.Fatalf("expected no message yet, got %q err=%v", got, err)
	}
	got, err := d.Feed(framed[mid:])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], msg) {
		t.Fatalf("expected reassembled message, got %q", got)
	}
}

func TestEOMMultipleMessagesInOneFeed(t *testing.T) {
	a := EncodeEOM([]byte("first"))
	b := EncodeEOM([]byte("second"))

	d := NewDecoder(ModeEOM)
	got, err := d.Feed(append(a, b...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || string(got[0]) != "first" || string(got[1]) != "second" {
		t.Fatalf("expected [first second], got %q", got)
	}
}

func TestChunkedRoundTrip(t *testing.T) {
	msg := []byte("<rpc message-id=\"2\"><commit/></rpc>")
	framed := EncodeChunked(msg, 5)

	d := NewDecoder(ModeChunked)
	got, err := d.Feed(framed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], msg) {
		t.Fatalf("expected reassembled message across small chunks, got %q", got)
	}
}

func TestChunkedAcrossMultipleFeeds(t *testing.T) {
	msg := []byte("<rpc><get-config/></rpc>")
	framed := EncodeChunked(msg, 1024)

	d := NewDecoder(ModeChunked)
	mid := len(framed) / 2
	if got, err := d.Feed(framed[:mid]); err != nil || len(got) != 0 {
		t.Fatalf("expected no message yet, got %q err=%v", got, err)
	}
	got, err := d.Feed(framed[mid:])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], msg) {
		t.Fatalf("expected reassembled message, got %q", got)
	}
}

func TestChunkedEmptyMessage(t *testing.T) {
	framed := EncodeChunked(nil, 1024)
	d := NewDecoder(ModeChunked)
	got, err := d.Feed(framed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("expected one empty message, got %q", got)
	}
}

func TestChunkedMalformedHeaderIsError(t *testing.T) {
	d := NewDecoder(ModeChunked)
	_, err := d.Feed([]byte("\n#abc\n"))
	if err == nil {
		t.Fatalf("expected malformed chunk-size to error")
	}
}

func TestDecoderSetModeSwitchesAfterHello(t *testing.T) {
	d := NewDecoder(ModeEOM)
	hello := EncodeEOM([]byte("<hello/>"))
	got, err := d.Feed(hello)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected hello to decode in EOM mode, got %q err=%v", got, err)
	}

	d.SetMode(ModeChunked)
	rpc := EncodeChunked([]byte("<rpc/>"), 1024)
	got, err = d.Feed(rpc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || string(got[0]) != "<rpc/>" {
		t.Fatalf("expected rpc decoded in chunked mode, got %q", got)
	}
}
