// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package txn

import (
	"testing"
	"time"

	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/valtree"
)

func TestConfirmManagerConfirmClearsPending(t *testing.T) {
	root := schema.NewNode("m", "root", schema.Container)
	ds := valtree.NewDatastore(valtree.Running, valtree.NewNode(root))
	cm := NewConfirmManager(ds)

	cm.Begin("sess1", "", ds.Snapshot(), 600, time.Now(), nil)
	if _, pending := cm.Pending(); !pending {
		t.Fatalf("expected a pending confirmed commit")
	}
	if err := cm.Confirm(""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, pending := cm.Pending(); pending {
		t.Fatalf("expected no pending confirmed commit after confirm")
	}
}

func TestConfirmManagerCancelRevertsRunning(t *testing.T) {
	root := schema.NewNode("m", "root", schema.Container)
	prior := valtree.NewNode(root)
	ds := valtree.NewDatastore(valtree.Running, prior)
	cm := NewConfirmManager(ds)

	priorSnapshot := ds.Snapshot()
	newRoot := valtree.NewNode(root)
	leaf := valtree.NewNode(schema.NewNode("m", "x", schema.Leaf))
	newRoot.AddChild(leaf)
	ds.Commit(newRoot, time.Now())

	cm.Begin("sess1", "", priorSnapshot, 600, time.Now(), nil)
	cm.Cancel(time.Now())

	if _, ok := ds.Root().FindChild("x"); ok {
		t.Fatalf("expected cancel to revert to the pre-commit snapshot")
	}
}

func TestConfirmManagerConfirmWrongPersistIdRejected(t *testing.T) {
	root := schema.NewNode("m", "root", schema.Container)
	ds := valtree.NewDatastore(valtree.Running, valtree.NewNode(root))
	cm := NewConfirmManager(ds)

	cm.Begin("sess1", "abc", ds.Snapshot(), 600, time.Now(), nil)
	if err := cm.Confirm("wrong"); err == nil {
		t.Fatalf("expected persist-id mismatch to be rejected")
	}
}
