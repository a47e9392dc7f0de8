// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package lock implements the global and partial datastore locks of
// spec.md §5: a global lock per datastore, and a set of partial locks each
// claiming a disjoint node-set, both owned by the session that acquired
// them.
package lock

import (
	"fmt"
	"sync"
)

// Partial is one partial-lock claim (spec.md §5, §8 invariant 7).
type Partial struct {
	ID       int
	SessionID string
	Nodes    []string // canonical instance-identifier paths claimed
}

func (p *Partial) intersects(nodes []string) bool {
	for _, a := range p.Nodes {
		for _, b := range nodes {
			if samePathOrAncestor(a, b) {
				return true
			}
		}
	}
	return false
}

func samePathOrAncestor(a, b string) bool {
	if a == b {
		return true
	}
	// one is a prefix of the other (e.g. "/x" and "/x/y") — the two
	// node-sets are not disjoint.
	return hasPathPrefix(a, b) || hasPathPrefix(b, a)
}

func hasPathPrefix(short, long string) bool {
	if len(long) <= len(short) {
		return false
	}
	return long[:len(short)] == short && long[len(short)] == '/'
}

// Manager tracks lock state for one datastore (spec.md §5, §8 invariants
// 6-7: at most one global lock, and partial-lock node-sets pairwise
// disjoint).
type Manager struct {
	mu          sync.Mutex
	globalOwner string // session id, "" if unlocked
	partials    []*Partial
	nextPartial int
}

func NewManager() *Manager { return &Manager{} }

// Lock acquires the global lock. Refused (lock-denied) if any partial lock
// is held, per spec.md §5.
func (m *Manager) Lock(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.globalOwner != "" {
		return fmt.Errorf("lock-denied: already held by session %s", m.globalOwner)
	}
	if len(m.partials) > 0 {
		return fmt.Errorf("lock-denied: a partial lock is held")
	}
	m.globalOwner = sessionID
	return nil
}

func (m *Manager) Unlock(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.globalOwner != sessionID {
		return fmt.Errorf("lock-denied: not held by session %s", sessionID)
	}
	m.globalOwner = ""
	return nil
}

// PartialLock acquires a lock over nodes. Refused if the global lock is
// held, or the requested node-set intersects any existing partial lock's
// node-set — with error-info naming the holding session, per spec.md §8
// scenario 4.
func (m *Manager) PartialLock(sessionID string, nodes []string) (*Partial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.globalOwner != "" {
		return nil, fmt.Errorf("lock-denied: global lock held by session %s", m.globalOwner)
	}
	for _, p := range m.partials {
		if p.intersects(nodes) {
			return nil, &ConflictError{HolderSessionID: p.SessionID, Nodes: nodes}
		}
	}
	m.nextPartial++
	p := &Partial{ID: m.nextPartial, SessionID: sessionID, Nodes: nodes}
	m.partials = append(m.partials, p)
	return p, nil
}

func (m *Manager) PartialUnlock(id int, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.partials {
		if p.ID == id {
			if p.SessionID != sessionID {
				return fmt.Errorf("lock-denied: partial lock %d not held by session %s", id, sessionID)
			}
			m.partials = append(m.partials[:i], m.partials[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("invalid-value: no such partial lock %d", id)
}

// ReleaseSession releases every lock (global and partial) owned by
// sessionID — called on session termination (spec.md §5).
func (m *Manager) ReleaseSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.globalOwner == sessionID {
		m.globalOwner = ""
	}
	kept := m.partials[:0]
	for _, p := range m.partials {
		if p.SessionID != sessionID {
			kept = append(kept, p)
		}
	}
	m.partials = kept
}

func (m *Manager) GlobalOwner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalOwner
}

// ConflictError carries the holding session id so the caller can populate
// error-info (spec.md §8 scenario 4).
type ConflictError struct {
	HolderSessionID string
	Nodes           []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("lock-denied: node-set intersects a partial lock held by session %s", e.HolderSessionID)
}
