// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package xpath

import "testing"

func TestAbsolutePathEval(t *testing.T) {
	root := build()
	p, err := Compile("/interfaces/interface/mtu")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	results := Eval(p, root.children[0].children[0]) // start anywhere, absolute should reach root
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if v, _ := results[0].XValue(); v != "1500" {
		t.Errorf("expected mtu 1500, got %s", v)
	}
}

func TestRelativeParentStep(t *testing.T) {
	root := build()
	mtu := root.children[0].children[1]
	p, _ := Compile("../name")
	results := Eval(p, mtu)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if v, _ := results[0].XValue(); v != "eth0" {
		t.Errorf("expected eth0, got %s", v)
	}
}

func TestBooleanResultNonEmpty(t *testing.T) {
	root := build()
	ok, err := BooleanResult("/interfaces/interface[name='eth0']", root)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !ok {
		t.Errorf("expected match for eth0")
	}
	ok, _ = BooleanResult("/interfaces/interface[name='eth1']", root)
	if ok {
		t.Errorf("expected no match for eth1")
	}
}
