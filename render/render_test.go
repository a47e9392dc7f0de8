// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package render

import (
	"strings"
	"testing"

	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/types"
	"github.com/danos/ncxd/valtree"
)

func buildTree() *valtree.Node {
	root := valtree.NewNode(schema.NewNode("m", "root", schema.Container))

	ifaces := valtree.NewNode(schema.NewNode("m", "interfaces", schema.Container))
	root.AddChild(ifaces)

	eth := valtree.NewNode(schema.NewNode("m", "ethernet", schema.List))
	eth.KeyValues = []string{"eth0"}
	ifaces.AddChild(eth)

	nameSn := schema.NewNode("m", "name", schema.Leaf)
	name := valtree.NewNode(nameSn)
	p, _ := valtree.FromString(types.String, 0, "eth0")
	name.Payload = p
	eth.AddChild(name)

	mtuSn := schema.NewNode("m", "mtu", schema.Leaf)
	mtu := valtree.NewNode(mtuSn)
	mp, _ := valtree.FromString(types.Uint32, 0, "1500")
	mtu.Payload = mp
	eth.AddChild(mtu)

	return root
}

func TestToXMLRendersWholeTree(t *testing.T) {
	out, err := ToXML(buildTree())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "<name>eth0</name>") || !strings.Contains(s, "<mtu>1500</mtu>") {
		t.Fatalf("expected rendered leaves, got %q", s)
	}
}

func TestPruneRestrictsToFilteredLeaves(t *testing.T) {
	data := buildTree()

	filterRoot := valtree.NewNode(nil)
	ifacesF := valtree.NewNode(schema.NewNode("m", "interfaces", schema.Container))
	filterRoot.AddChild(ifacesF)
	ethF := valtree.NewNode(schema.NewNode("m", "ethernet", schema.List))
	ifacesF.AddChild(ethF)
	nameF := valtree.NewNode(schema.NewNode("m", "name", schema.Leaf))
	ethF.AddChild(nameF)

	pruned := Prune(data, filterRoot)
	out, err := ToXML(pruned)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "<name>eth0</name>") {
		t.Fatalf("expected name leaf retained, got %q", s)
	}
	if strings.Contains(s, "<mtu>") {
		t.Fatalf("expected mtu leaf pruned, got %q", s)
	}
}
