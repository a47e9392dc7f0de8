// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package notif

import (
	"testing"

	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/types"
	"github.com/danos/ncxd/valtree"
)

func interfaceEvent(name, status string) *valtree.Node {
	root := schema.NewNode("m", "interface-state-change", schema.Notification)
	payload := valtree.NewNode(root)

	ifNameSchema := schema.NewNode("m", "if-name", schema.Leaf)
	ifNameSchema.Typedef = types.Builtin(types.String)
	ifName := valtree.NewNode(ifNameSchema)
	ifName.Payload, _ = valtree.FromString(types.String, 0, name)
	payload.AddChild(ifName)

	statusSchema := schema.NewNode("m", "admin-status", schema.Leaf)
	statusSchema.Typedef = types.Builtin(types.String)
	statusNode := valtree.NewNode(statusSchema)
	statusNode.Payload, _ = valtree.FromString(types.String, 0, status)
	payload.AddChild(statusNode)

	return payload
}

func TestFilterEmptyMatchesEverything(t *testing.T) {
	var f Filter
	ok, err := f.Match(interfaceEvent("eth0", "up"))
	if err != nil || !ok {
		t.Fatalf("expected empty filter to match, got ok=%v err=%v", ok, err)
	}
}

func TestFilterSubtreeMatchesOnNameAndChild(t *testing.T) {
	root := schema.NewNode("m", "interface-state-change", schema.Notification)
	filterTree := valtree.NewNode(root)
	ifNameSchema := schema.NewNode("m", "if-name", schema.Leaf)
	ifNameSchema.Typedef = types.Builtin(types.String)
	want := valtree.NewNode(ifNameSchema)
	want.Payload, _ = valtree.FromString(types.String, 0, "eth0")
	filterTree.AddChild(want)

	f := Filter{Subtree: filterTree}

	ok, err := f.Match(interfaceEvent("eth0", "up"))
	if err != nil || !ok {
		t.Fatalf("expected subtree filter to match same if-name, got ok=%v err=%v", ok, err)
	}

	// Leaf values are not compared: only names and structure take part.
	ok, err = f.Match(interfaceEvent("eth1", "up"))
	if err != nil || !ok {
		t.Fatalf("expected subtree filter to match an event of the same structure, got ok=%v err=%v", ok, err)
	}
}

func TestFilterXPathEvaluatesAgainstPayload(t *testing.T) {
	f := Filter{XPath: "admin-status"}

	ok, err := f.Match(interfaceEvent("eth0", "up"))
	if err != nil || !ok {
		t.Fatalf("expected xpath filter to find admin-status child, got ok=%v err=%v", ok, err)
	}

	f = Filter{XPath: "oper-status"}
	ok, err = f.Match(interfaceEvent("eth0", "up"))
	if err != nil || ok {
		t.Fatalf("expected xpath filter to find nothing, got ok=%v err=%v", ok, err)
	}
}
