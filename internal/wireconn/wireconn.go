// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package wireconn adapts a byte stream (a Unix-domain socket, or an SSH
// "netconf" subsystem channel) into the eventloop.Conn shape: incremental
// RFC 6242 framing in, a pending-write queue out, one raw fd for the
// poller to watch.
package wireconn

import (
	"io"
	"time"

	"github.com/danos/ncxd/internal/framing"
)

// Conn is a framed, poller-registered byte stream. It is not safe for
// concurrent use; the event loop drives it from a single goroutine.
type Conn struct {
	rw   io.ReadWriteCloser
	fd   int
	id   string
	dec  *framing.Decoder
	mode framing.Mode

	outq   [][]byte
	outOff int

	lastActivity time.Time
	shutdown     bool

	readBuf []byte
}

// New wraps rw (the data path) and fd (the descriptor the poller watches
// for readability/writability — for a plain socket these are the same
// conn, for an SSH channel fd is the underlying TCP connection's).
func New(id string, rw io.ReadWriteCloser, fd int, mode framing.Mode, now time.Time) *Conn {
	return &Conn{
		rw:           rw,
		fd:           fd,
		id:           id,
		dec:          framing.NewDecoder(mode),
		mode:         mode,
		lastActivity: now,
		readBuf:      make([]byte, 16*1024),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Fd() int { return c.fd }

// SetMode switches framing mode after the <hello> exchange per RFC 6242
// §4.1's base:1.1 rule.
func (c *Conn) SetMode(mode framing.Mode) {
	c.mode = mode
	c.dec.SetMode(mode)
}

// Enqueue frames msg and appends it to the write queue.
func (c *Conn) Enqueue(msg []byte, maxChunk int) {
	c.outq = append(c.outq, framing.Encode(c.mode, msg, maxChunk))
}

// RequestShutdown marks the connection to close once its write queue
// drains (used after <close-session>/<kill-session>).
func (c *Conn) RequestShutdown() { c.shutdown = true }

func (c *Conn) WantWrite() bool { return len(c.outq) > 0 }

func (c *Conn) WriteReady() (done, shutdownReq bool, err error) {
	if len(c.outq) == 0 {
		return true, c.shutdown, nil
	}
	cur := c.outq[0]
	n, err := c.rw.Write(cur[c.outOff:])
	if err != nil {
		return false, false, err
	}
	c.outOff += n
	if c.outOff >= len(cur) {
		c.outq = c.outq[1:]
		c.outOff = 0
	}
	done = len(c.outq) == 0
	return done, done && c.shutdown, nil
}

func (c *Conn) ReadReady() (pdus []interface{}, closed bool, err error) {
	n, err := c.rw.Read(c.readBuf)
	if n > 0 {
		msgs, ferr := c.dec.Feed(c.readBuf[:n])
		if ferr != nil {
			return nil, false, ferr
		}
		for _, m := range msgs {
			pdus = append(pdus, m)
		}
		if len(msgs) > 0 {
			c.lastActivity = time.Now()
		}
	}
	if err == io.EOF {
		return pdus, true, nil
	}
	if err != nil {
		return pdus, false, err
	}
	return pdus, false, nil
}

func (c *Conn) LastActivity() time.Time { return c.lastActivity }

func (c *Conn) Touch(now time.Time) { c.lastActivity = now }

func (c *Conn) Close() error { return c.rw.Close() }
