// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package txn

import (
	"sync"
	"time"

	"github.com/danos/ncxd/mgmterror"
	"github.com/danos/ncxd/valtree"
)

// DefaultConfirmTimeout is the confirm-timeout default, in seconds, when a
// <commit confirmed/> omits it (RFC 6241 §8.3.1), grounded on the teacher's
// server/confirmed_commit.go DefaultTimeout.
const DefaultConfirmTimeout = 600

// PendingConfirm tracks one outstanding confirmed-commit (spec.md's
// SUPPLEMENTED FEATURES confirmed-commit entry): the prior running-config
// snapshot to restore if no confirming commit arrives in time, and the
// session that must either confirm, cancel, or disconnect.
type PendingConfirm struct {
	SessionID string
	PersistID string
	Prior     *valtree.Node // running config as it was before the first commit
	Deadline  time.Time
	timer     *time.Timer
}

// ConfirmManager serializes the at-most-one pending confirmed commit per
// datastore (spec.md §5 "running" target) and performs the revert.
type ConfirmManager struct {
	mu      sync.Mutex
	pending *PendingConfirm
	running *valtree.Datastore
}

func NewConfirmManager(running *valtree.Datastore) *ConfirmManager {
	return &ConfirmManager{running: running}
}

// Begin records a new confirmed commit, replacing (and stopping the timer
// of) any commit already pending, whichever session began it. A follow-up
// <commit confirmed/> passes the pending commit's Prior, so it extends the
// timeout rather than stacking (RFC 6241 §8.3.1).
func (cm *ConfirmManager) Begin(sessionID, persistID string, prior *valtree.Node, timeoutSeconds uint32, now time.Time, onExpire func()) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.pending != nil && cm.pending.timer != nil {
		cm.pending.timer.Stop()
	}
	if timeoutSeconds == 0 {
		timeoutSeconds = DefaultConfirmTimeout
	}
	pc := &PendingConfirm{
		SessionID: sessionID,
		PersistID: persistID,
		Prior:     prior,
		Deadline:  now.Add(time.Duration(timeoutSeconds) * time.Second),
	}
	pc.timer = time.AfterFunc(time.Duration(timeoutSeconds)*time.Second, func() {
		cm.expire()
		if onExpire != nil {
			onExpire()
		}
	})
	cm.pending = pc
}

// Confirm clears the pending commit without reverting — the confirming
// <commit> (with matching persist-id, when the original specified one)
// succeeded, so the new running config stands.
func (cm *ConfirmManager) Confirm(persistID string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.pending == nil {
		return mgmterror.New(mgmterror.TagOperationFailed, "no confirmed-commit is pending")
	}
	if cm.pending.PersistID != "" && cm.pending.PersistID != persistID {
		return mgmterror.New(mgmterror.TagInvalidValue, "persist-id does not match pending confirmed-commit")
	}
	if cm.pending.timer != nil {
		cm.pending.timer.Stop()
	}
	cm.pending = nil
	return nil
}

// Cancel reverts running to the pre-commit snapshot immediately (an
// explicit <cancel-commit>, or the owning session disconnecting).
func (cm *ConfirmManager) Cancel(now time.Time) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.revertLocked(now)
}

func (cm *ConfirmManager) expire() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.revertLocked(time.Now())
}

func (cm *ConfirmManager) revertLocked(now time.Time) {
	if cm.pending == nil {
		return
	}
	cm.running.Commit(cm.pending.Prior, now)
	if cm.pending.timer != nil {
		cm.pending.timer.Stop()
	}
	cm.pending = nil
}

// Pending reports whether a confirmed commit is outstanding, and for whom —
// used to refuse a concurrent <lock> per spec.md §5.
func (cm *ConfirmManager) Pending() (*PendingConfirm, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.pending, cm.pending != nil
}
