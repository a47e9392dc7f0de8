// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package lock

import "testing"

func TestGlobalLockRefusedWhilePartialHeld(t *testing.T) {
	m := NewManager()
	if _, err := m.PartialLock("sessA", []string{"/x/y"}); err != nil {
		t.Fatalf("partial lock: %v", err)
	}
	if err := m.Lock("sessB"); err == nil {
		t.Fatalf("expected global lock to be refused while a partial lock is held")
	}
}

func TestPartialLockConflictNamesHolder(t *testing.T) {
	m := NewManager()
	if _, err := m.PartialLock("sessA", []string{"/x/y"}); err != nil {
		t.Fatalf("partial lock: %v", err)
	}
	_, err := m.PartialLock("sessB", []string{"/x"})
	if err == nil {
		t.Fatalf("expected conflict")
	}
	conflict, ok := err.(*ConflictError)
	if !ok {
		t.Fatalf("expected *ConflictError, got %T", err)
	}
	if conflict.HolderSessionID != "sessA" {
		t.Errorf("expected holder sessA, got %s", conflict.HolderSessionID)
	}
}

func TestReleaseSessionFreesAllLocks(t *testing.T) {
	m := NewManager()
	m.Lock("s1")
	m.ReleaseSession("s1")
	if m.GlobalOwner() != "" {
		t.Fatalf("expected global lock released")
	}
	if err := m.Lock("s2"); err != nil {
		t.Fatalf("expected s2 to acquire freed lock: %v", err)
	}
}

func TestLockThenUnlockLeavesStateUnchanged(t *testing.T) {
	m := NewManager()
	if err := m.Lock("s1"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := m.Unlock("s1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if m.GlobalOwner() != "" {
		t.Fatalf("expected no owner after unlock")
	}
}
