// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package xpath implements the reduced XPath 1.0 subset YANG itself
// requires: absolute/relative location paths with name-test steps and
// simple key-equality predicates, used for leafref targets and for the
// notification engine's XPath-filter evaluation (spec.md §4.1, §4.5).
// A general query language is explicitly out of scope (spec.md §1).
package xpath

// Node is the minimal tree-walking capability an XPath evaluation needs.
// Both schema.Node (for leafref target location) and valtree.Node (for
// leafref require-instance checks and filter evaluation) implement it via
// small adapters, so this package has no dependency on either.
type Node interface {
	XName() string
	XParent() (Node, bool)
	XChildren() []Node
	XValue() (string, bool)
}
