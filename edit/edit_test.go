// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package edit

import (
	"testing"

	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/types"
	"github.com/danos/ncxd/valtree"
)

func testRoot() *schema.Node {
	root := schema.NewNode("m", "root", schema.Container)

	iface := schema.NewNode("m", "interfaces", schema.Container)
	root.AddChild(iface)

	eth := schema.NewNode("m", "ethernet", schema.List)
	eth.Keys = []string{"name"}
	iface.AddChild(eth)

	name := schema.NewNode("m", "name", schema.Leaf)
	name.Typedef = types.Builtin(types.String)
	eth.AddChild(name)

	mtu := schema.NewNode("m", "mtu", schema.Leaf)
	mtu.Typedef = types.Builtin(types.Uint32)
	eth.AddChild(mtu)

	return root
}

func TestBuildConfigResolvesNestedListEntry(t *testing.T) {
	root := testRoot()
	raw := []byte(`<config>
  <interfaces xmlns="urn:x">
    <ethernet>
      <name>eth0</name>
      <mtu>1500</mtu>
    </ethernet>
  </interfaces>
</config>`)

	delta, err := BuildConfig(raw, root, valtree.OpMerge)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delta.Children()) != 1 {
		t.Fatalf("expected one top-level child, got %d", len(delta.Children()))
	}
	ifaces := delta.Children()[0]
	if ifaces.Name() != "interfaces" {
		t.Fatalf("expected interfaces, got %s", ifaces.Name())
	}
	ethList := ifaces.Children()[0]
	if len(ethList.KeyValues) != 1 || ethList.KeyValues[0] != "eth0" {
		t.Fatalf("expected key value eth0, got %v", ethList.KeyValues)
	}
	var mtuNode *valtree.Node
	for _, c := range ethList.Children() {
		if c.Name() == "mtu" {
			mtuNode = c
		}
	}
	if mtuNode == nil || mtuNode.Payload == nil || mtuNode.Payload.String() != "1500" {
		t.Fatalf("expected mtu leaf with value 1500, got %+v", mtuNode)
	}
}

func TestBuildConfigUnknownElementErrors(t *testing.T) {
	root := testRoot()
	raw := []byte(`<config><bogus/></config>`)
	if _, err := BuildConfig(raw, root, valtree.OpMerge); err == nil {
		t.Fatalf("expected error for unknown top-level element")
	}
}

func TestBuildConfigDeleteOperationSkipsLeafValue(t *testing.T) {
	root := testRoot()
	raw := []byte(`<config>
  <interfaces>
    <ethernet>
      <name>eth0</name>
      <mtu xmlns:nc="urn:ietf:params:xml:ns:netconf:base:1.0" nc:operation="delete"/>
    </ethernet>
  </interfaces>
</config>`)

	delta, err := BuildConfig(raw, root, valtree.OpMerge)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ethList := delta.Children()[0].Children()[0]
	for _, c := range ethList.Children() {
		if c.Name() == "mtu" {
			if c.Op != valtree.OpDelete {
				t.Fatalf("expected delete op, got %v", c.Op)
			}
			if c.Payload != nil {
				t.Fatalf("expected no payload on delete, got %+v", c.Payload)
			}
		}
	}
}

func TestBuildConfigInheritsDefaultOperation(t *testing.T) {
	root := testRoot()
	raw := []byte(`<config>
  <interfaces>
    <ethernet>
      <name>eth0</name>
      <mtu>9000</mtu>
    </ethernet>
  </interfaces>
</config>`)

	delta, err := BuildConfig(raw, root, valtree.OpReplace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ifaces := delta.Children()[0]
	if ifaces.Op != valtree.OpReplace {
		t.Fatalf("expected inherited replace op, got %v", ifaces.Op)
	}
}
