// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package schema

import (
	"fmt"
	"sync"

	"github.com/danos/ncxd/callback"
	"github.com/danos/ncxd/types"
)

// ModelSet is the compiled schema for every loaded module — the tree that
// the type resolver, callback registry and transaction engine all walk.
// It is the single schema-side piece of the ServerState described in
// spec.md §9.
type ModelSet struct {
	mu       sync.RWMutex
	modules  map[string]*Module
	index    map[string]map[string]*Node // module -> canonical path -> node
	Registry *callback.Registry

	// root is the synthetic, module-less container every loaded module's
	// top-level data nodes are reparented under, so a <config>/<filter>
	// wire tree that spans modules still resolves through one schema walk
	// and leafref paths are absolute from a single ground (spec.md §3's
	// "ground schema root" for instance-identifier/leafref compilation).
	root *Node
}

func NewModelSet() *ModelSet {
	return &ModelSet{
		modules:  make(map[string]*Module),
		index:    make(map[string]map[string]*Node),
		Registry: callback.NewRegistry(),
		root:     &Node{Kind: Container, Config: true, byName: make(map[string]*Node)},
	}
}

// Root returns the aggregate datastore root: the schema node the running,
// candidate and startup datastores are all created against.
func (ms *ModelSet) Root() *Node { return ms.root }

func indexTree(root *Node, into map[string]*Node) {
	into[root.CanonicalPath()] = root
	for _, c := range root.Children() {
		indexTree(c, into)
	}
}

// LoadModule compiles and resolves mod (wiring the leafref resolver hook
// into resolver so pass 4 can locate targets), then binds any callback
// records parked for this module (spec.md §4.4).
func (ms *ModelSet) LoadModule(mod *Module, resolver *types.Resolver) error {
	resolver.ResolveLeafref = func(path string) (types.LeafLocator, error) {
		n, ok := mod.Root.FindAbsolute(path)
		if !ok {
			return nil, fmt.Errorf("leafref target %q not found", path)
		}
		return n, nil
	}
	if err := resolver.Resolve(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	idx := make(map[string]*Node)
	indexTree(mod.Root, idx)
	ms.modules[mod.Name] = mod
	ms.index[mod.Name] = idx

	for _, top := range mod.Root.Children() {
		ms.root.AddChild(top)
	}

	ms.Registry.ModuleLoaded(mod.Name, mod.Revision, func(path string) (callback.SchemaNode, bool) {
		n, ok := idx[path]
		return n, ok
	})
	return nil
}

// UnloadModule removes a module's nodes from the set and releases its
// callback records (spec.md §4.4, §3 lifecycle summary).
func (ms *ModelSet) UnloadModule(name string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	mod, ok := ms.modules[name]
	if ok {
		for _, top := range mod.Root.Children() {
			ms.root.RemoveChildNode(top)
		}
	}
	ms.Registry.ModuleUnloaded(name)
	delete(ms.modules, name)
	delete(ms.index, name)
}

func (ms *ModelSet) Module(name string) (*Module, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	m, ok := ms.modules[name]
	return m, ok
}

func (ms *ModelSet) Modules() []*Module {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]*Module, 0, len(ms.modules))
	for _, m := range ms.modules {
		out = append(out, m)
	}
	return out
}

// Capabilities returns the full advertised capability list for a <hello>
// (spec.md §6): base protocol capabilities plus one URI per loaded module.
func (ms *ModelSet) Capabilities(base11, candidateModel, startup, rollback bool) []string {
	caps := BaseCapabilities(base11, candidateModel, startup, rollback)
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, m := range ms.modules {
		caps = append(caps, m.CapabilityURI())
	}
	return caps
}

// FindNode resolves a canonical "/module-local/path" style lookup used by
// the transaction engine to map a delta node back to its schema node.
func (ms *ModelSet) FindNode(module, path string) (*Node, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	idx, ok := ms.index[module]
	if !ok {
		return nil, false
	}
	n, ok := idx[path]
	return n, ok
}
