// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package session tracks the NETCONF session table of spec.md §5/§9: one
// entry per open connection, its negotiated capabilities, and the
// bookkeeping needed to tear it down cleanly (locks, subscriptions,
// confirmed-commits) on close or <kill-session>.
package session

import (
	"strconv"
	"sync"
	"time"
)

// Session is one open NETCONF session (spec.md §5 "Session").
type Session struct {
	ID           int32
	Transport    string // transport label, e.g. "netconf-unix"
	Username     string
	Capabilities []string
	Base11       bool
	LoginTime    time.Time

	// PartialLocks holds the ids of every partial lock this session
	// currently owns, so <kill-session>/disconnect can release them all.
	PartialLocks []int
}

func (s *Session) IDStr() string { return strconv.Itoa(int(s.ID)) }

// SupportsBase11 reports whether the peer advertised base:1.1, which
// selects chunked framing for the session.
func (s *Session) SupportsBase11() bool { return s.Base11 }

// Table is the process-wide session registry (spec.md §9 ServerState
// "session table"). Session ids are assigned monotonically and never
// reused within a process lifetime.
type Table struct {
	mu       sync.Mutex
	sessions map[int32]*Session
	next     int32
}

func NewTable() *Table {
	return &Table{sessions: make(map[int32]*Session)}
}

// Open allocates a new session id and registers its entry.
func (t *Table) Open(transport, username string, now time.Time) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	s := &Session{ID: t.next, Transport: transport, Username: username, LoginTime: now}
	t.sessions[s.ID] = s
	return s
}

func (t *Table) Get(id int32) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	return s, ok
}

func (t *Table) All() []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s)
	}
	return out
}

func (t *Table) Close(id int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}
