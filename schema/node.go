// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package schema implements the compiled YANG schema tree of spec.md §3
// ("Schema node") and the per-module capability URI construction grounded
// on the original agent's agt_cap.c.
package schema

import (
	"strings"
	"sync"

	"github.com/danos/ncxd/callback"
	"github.com/danos/ncxd/types"
)

// Kind is the schema node variant (spec.md §3).
type Kind int

const (
	Container Kind = iota
	List
	Leaf
	LeafList
	Choice
	Case
	Anyxml
	Rpc
	Notification
)

func (k Kind) String() string {
	switch k {
	case Container:
		return "container"
	case List:
		return "list"
	case Leaf:
		return "leaf"
	case LeafList:
		return "leaf-list"
	case Choice:
		return "choice"
	case Case:
		return "case"
	case Anyxml:
		return "anyxml"
	case Rpc:
		return "rpc"
	case Notification:
		return "notification"
	}
	return "unknown"
}

// Node is a compiled schema tree node. Nodes form a tree by parent/child
// references; ownership is by the owning module, per spec.md §3.
type Node struct {
	Module  string
	Local   string
	Kind    Kind
	Typedef *types.Typedef // set for Leaf/LeafList

	Keys []string // key-leaf local names, for List

	MinElements int
	MaxElements int // 0 == unbounded
	OrderedByUser bool

	// Unique holds each "unique" statement as a set of relative leaf
	// names that together must be distinct across sibling list entries.
	Unique [][]string

	Default string
	HasDefault bool
	Mandatory  bool

	// Must and When hold raw XPath boolean-expression source, compiled
	// lazily by the transaction engine against the value tree (spec.md
	// §4.2 "check must and when predicates").
	Must []string
	When string

	Config bool // true == configuration data, false == state data

	Parent   *Node
	children []*Node
	byName   map[string]*Node

	mu       sync.RWMutex
	Callbacks *callback.Set // nil means "use engine defaults" (spec.md §4.4/§9)

	// Virtual makes this node's payload produced on demand rather than
	// stored (spec.md §4.3); Getter is consulted by the valtree package.
	Virtual bool
}

func NewNode(module, local string, kind Kind) *Node {
	return &Node{Module: module, Local: local, Kind: kind, Config: true, byName: make(map[string]*Node)}
}

func (n *Node) AddChild(c *Node) {
	c.Parent = n
	n.children = append(n.children, c)
	if n.byName == nil {
		n.byName = make(map[string]*Node)
	}
	n.byName[c.Local] = c
}

func (n *Node) Children() []*Node { return n.children }

func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.byName[name]
	return c, ok
}

// RemoveChildNode detaches child c by identity (pointer, not name) — used
// when reassembling the aggregate datastore root on module unload.
func (n *Node) RemoveChildNode(c *Node) {
	for i, existing := range n.children {
		if existing == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	if n.byName[c.Local] == c {
		delete(n.byName, c.Local)
	}
}

// CanonicalPath returns the absolute schema-path string used as the
// callback registry key and as an error-path (spec.md §4.4, §7).
func (n *Node) CanonicalPath() string {
	if n.Parent == nil {
		return "/" + n.Local
	}
	return n.Parent.CanonicalPath() + "/" + n.Local
}

// SetCallbacks installs a callback set, guarded so concurrent registry binds
// (there are none in this single-threaded server, but tests may run
// parallel subtests) don't race on the pointer.
func (n *Node) SetCallbacks(cs *callback.Set) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Callbacks = cs
}

func (n *Node) GetCallbacks() *callback.Set {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.Callbacks
}

// ClearCallbacks releases the callback-set pointer, used when a module is
// unloaded (spec.md §4.4).
func (n *Node) ClearCallbacks() { n.SetCallbacks(nil) }

// Root walks up to the synthetic top node used as the ground schema root
// for leafref/instance-identifier XPath compilation (spec.md §4.1 pass 4).
func (n *Node) Root() *Node {
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// FindAbsolute resolves a "/"-separated absolute path of local names from
// the root, used by the leafref resolver hook wired into types.Resolver.
func (n *Node) FindAbsolute(path string) (*Node, bool) {
	root := n.Root()
	parts := strings.Split(strings.Trim(path, "/"), "/")
	cur := root
	for _, p := range parts {
		if p == "" {
			continue
		}
		next, ok := cur.Child(p)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
