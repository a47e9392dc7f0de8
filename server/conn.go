// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package server implements the NETCONF-facing side of the event loop:
// the Unix-socket Listener/Conn pair satisfying eventloop.Listener/Conn,
// and the RPC dispatcher that routes each parsed <rpc> operation into the
// schema/valtree/txn/notif/lock packages.
package server

import (
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/danos/ncxd/internal/eventloop"
	"github.com/danos/ncxd/internal/framing"
	"github.com/danos/ncxd/internal/wireconn"
	"github.com/danos/ncxd/session"
)

// Conn is one accepted NETCONF session's socket, paired with its session
// table entry once <hello> completes.
type Conn struct {
	*wireconn.Conn
	Session   *session.Session
	HelloSeen bool
	MaxChunk  int
}

// Listener accepts connections on a Unix-domain stream socket (spec.md §6
// "Transport": "a local stream socket at a fixed filesystem path").
type Listener struct {
	ln       *net.UnixListener
	fd       int
	maxChunk int
}

// Listen creates the socket at path.
func Listen(path string, maxChunk int) (*Listener, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}
	return fromUnixListener(ln, maxChunk)
}

// FromSystemd wraps an already-open Unix listener handed to the process by
// systemd socket activation (grounded on the teacher's cmd/configd
// getListeners, which prefers an inherited activation.Listeners() socket
// over binding its own).
func FromSystemd(ln *net.UnixListener, maxChunk int) (*Listener, error) {
	return fromUnixListener(ln, maxChunk)
}

func fromUnixListener(ln *net.UnixListener, maxChunk int) (*Listener, error) {
	fd, err := unixFd(ln)
	if err != nil {
		ln.Close()
		return nil, err
	}
	return &Listener{ln: ln, fd: fd, maxChunk: maxChunk}, nil
}

func (l *Listener) Fd() int                                                 { return l.fd }
func (l *Listener) WantWrite() bool                                         { return false }
func (l *Listener) WriteReady() (done, shutdown bool, err error)            { return true, false, nil }
func (l *Listener) ReadReady() (pdus []interface{}, closed bool, err error) { return nil, false, nil }
func (l *Listener) LastActivity() time.Time                                 { return time.Time{} }
func (l *Listener) Close() error                                            { return l.ln.Close() }
func (l *Listener) Addr() string                                            { return l.ln.Addr().String() }

func (l *Listener) Accept() (eventloop.Conn, error) {
	uc, err := l.ln.AcceptUnix()
	if err != nil {
		return nil, err
	}
	fd, err := unixFd(uc)
	if err != nil {
		uc.Close()
		return nil, err
	}
	wc := wireconn.New(fmt.Sprintf("fd%d", fd), uc, fd, framing.ModeEOM, time.Now())
	return &Conn{Conn: wc, MaxChunk: l.maxChunk}, nil
}

type syscallConner interface {
	SyscallConn() (syscall.RawConn, error)
}

// unixFd extracts the raw descriptor so it can be registered with the
// poller directly, alongside the net.UnixConn/net.UnixListener that owns
// the actual read/write/close path.
func unixFd(c syscallConner) (int, error) {
	rc, err := c.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	if cerr := rc.Control(func(f uintptr) { fd = int(f) }); cerr != nil {
		return 0, cerr
	}
	return fd, nil
}
