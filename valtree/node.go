// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package valtree

import (
	"strings"
	"time"

	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/xpath"
)

// Getter materializes a virtual node's payload on demand (spec.md §4.3):
// state data such as per-session counters or interface statistics that are
// never stored. It returns a freshly built subtree to stand in for the
// virtual node's value at read time.
type Getter func() (*Node, error)

// Node is an instance in a datastore tree (spec.md §3 "Value node").
type Node struct {
	Schema   *schema.Node
	Parent   *Node
	children []*Node

	Payload *Payload // nil for container/list/choice/case nodes
	Attrs   map[string]string

	Getter  Getter // non-nil marks this node virtual
	Mutated time.Time

	// KeyValues holds the ordered key-leaf values for a list entry, used
	// as this node's identity within its parent (spec.md §3).
	KeyValues []string

	// Op and Insert are populated only on delta-tree nodes produced by
	// parsing an <edit-config> payload (spec.md §4.2): the per-node edit
	// operation and, for ordered-by-user lists, the insert placement.
	Op     EditOp
	Insert *InsertAttr
}

// EditOp is the per-node edit operation of spec.md §4.2.
type EditOp int

const (
	OpNotSet EditOp = iota // no "operation" attribute on this node; inherit
	OpMerge
	OpReplace
	OpCreate
	OpDelete
	OpRemove
)

func (op EditOp) String() string {
	switch op {
	case OpNotSet:
		return "not-set"
	case OpMerge:
		return "merge"
	case OpReplace:
		return "replace"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// InsertMode is the YANG "insert" attribute for ordered-by-user lists.
type InsertMode int

const (
	InsertNone InsertMode = iota
	InsertFirst
	InsertLast
	InsertBefore
	InsertAfter
)

// InsertAttr carries the insert placement for an ordered-by-user list
// entry (spec.md §4.2).
type InsertAttr struct {
	Mode InsertMode
	Key  string // sibling key value, for Before/After
}

func NewNode(sn *schema.Node) *Node {
	return &Node{Schema: sn, Mutated: time.Now()}
}

func (n *Node) IsVirtual() bool { return n.Getter != nil }

// Materialize resolves a virtual node into its concrete subtree; for a
// non-virtual node it returns itself.
func (n *Node) Materialize() (*Node, error) {
	if !n.IsVirtual() {
		return n, nil
	}
	return n.Getter()
}

func (n *Node) Name() string {
	if n.Schema == nil {
		return ""
	}
	return n.Schema.Local
}

// Identity returns the key used to find this node among its siblings:
// the schema-node local name for containers/leaves, or the key-leaf value
// tuple for list entries (spec.md §3).
func (n *Node) Identity() string {
	if len(n.KeyValues) > 0 {
		return n.Name() + "[" + strings.Join(n.KeyValues, ",") + "]"
	}
	return n.Name()
}

func (n *Node) Children() []*Node { return n.children }

func (n *Node) AddChild(c *Node) {
	c.Parent = n
	n.children = append(n.children, c)
}

func (n *Node) RemoveChild(identity string) bool {
	for i, c := range n.children {
		if c.Identity() == identity {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Node) FindChild(identity string) (*Node, bool) {
	for _, c := range n.children {
		if c.Identity() == identity {
			return c, true
		}
	}
	return nil, false
}

// ReplaceChild swaps out any existing child with the same identity.
func (n *Node) ReplaceChild(c *Node) {
	for i, existing := range n.children {
		if existing.Identity() == c.Identity() {
			c.Parent = n
			n.children[i] = c
			return
		}
	}
	n.AddChild(c)
}

// Clone deep-copies the subtree rooted at n. The transaction engine's apply
// phase mutates a clone (the "scratch" tree) so the live tree is never
// touched before commit (spec.md §4.2).
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Schema:    n.Schema,
		Getter:    n.Getter,
		Mutated:   n.Mutated,
		KeyValues: append([]string(nil), n.KeyValues...),
		Op:        n.Op,
		Insert:    n.Insert,
	}
	if n.Payload != nil {
		p := *n.Payload
		p.Bytes = append([]byte(nil), p.Bytes...)
		p.BitNames = append([]string(nil), p.BitNames...)
		p.Paths = append([]string(nil), p.Paths...)
		c.Payload = &p
	}
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	for _, ch := range n.children {
		c.AddChild(ch.Clone())
	}
	return c
}

// --- xpath.Node adapter: lets leafref/filter evaluation walk a value tree ---

func (n *Node) XName() string { return n.Name() }

func (n *Node) XParent() (xpath.Node, bool) {
	if n.Parent == nil {
		return nil, false
	}
	return n.Parent, true
}

func (n *Node) XChildren() []xpath.Node {
	out := make([]xpath.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *Node) XValue() (string, bool) {
	if n.Payload == nil {
		return "", false
	}
	return n.Payload.String(), true
}
