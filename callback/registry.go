// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package callback implements the schema-path-indexed handler registry of
// spec.md §4.4: a map from canonical schema path to a four-phase callback
// set, with deferred binding for modules registered before their YANG
// definition loads.
package callback

import (
	"fmt"
	"sync"
)

// Phase is one step of the three-phase edit protocol (spec.md §4.2), plus
// rollback.
type Phase int

const (
	PhaseValidate Phase = iota
	PhaseApply
	PhaseCommit
	PhaseRollback
)

func (p Phase) String() string {
	switch p {
	case PhaseValidate:
		return "validate"
	case PhaseApply:
		return "apply"
	case PhaseCommit:
		return "commit"
	case PhaseRollback:
		return "rollback"
	}
	return "unknown"
}

// Operation is the effective edit operation in force for a node (spec.md
// §4.2).
type Operation int

const (
	OpMerge Operation = iota
	OpReplace
	OpCreate
	OpDelete
	OpRemove
)

// Context, Header and Value are intentionally opaque (interface{}) here:
// the callback package must not depend on the session, rpc or valtree
// packages (which depend on it), so the concrete types are supplied by
// whichever package constructs the call — spec.md §4.2's "Callback
// contract" paragraph.
type Context interface{}
type Header interface{}
type Value interface{}

// Handler is one phase's callback function.
type Handler func(ctx Context, hdr Header, phase Phase, op Operation, newVal, curVal Value) error

// Set binds up to four handlers, indexed by phase; a nil entry falls back
// to engine default behavior (spec.md §9 "dynamic callback dispatch").
type Set struct {
	Validate Handler
	Apply    Handler
	Commit   Handler
	Rollback Handler
}

func (s *Set) Get(p Phase) Handler {
	if s == nil {
		return nil
	}
	switch p {
	case PhaseValidate:
		return s.Validate
	case PhaseApply:
		return s.Apply
	case PhaseCommit:
		return s.Commit
	case PhaseRollback:
		return s.Rollback
	}
	return nil
}

// SchemaNode is the minimal capability the registry needs from a schema
// tree node in order to bind a callback set into it; schema.Node satisfies
// this without callback importing schema.
type SchemaNode interface {
	SetCallbacks(*Set)
}

// Record binds one (module, path) registration.
type Record struct {
	Module        string
	Path          string
	Set           *Set
	Bound         bool
	BoundRevision string
}

// Registry is the schema-path-indexed handler table of spec.md §4.4.
type Registry struct {
	mu       sync.Mutex
	records  map[string]*Record                                // key: module + "\x00" + path
	waiting  map[string][]*Record                               // per-module, not-yet-bound
	lookups  map[string]func(path string) (SchemaNode, bool)     // per loaded module
	revision map[string]string                                   // module -> bound revision
}

func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
		waiting: make(map[string][]*Record),
		lookups: make(map[string]func(string) (SchemaNode, bool)),
		revision: make(map[string]string),
	}
}

func key(module, path string) string { return module + "\x00" + path }

// Register installs a callback set for (module, path). Idempotent: a
// repeat registration with the same module/path replaces the handler set
// in place rather than creating a duplicate record (spec.md §4.4).
func (r *Registry) Register(module, path string, set *Set) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(module, path)
	rec, exists := r.records[k]
	if !exists {
		rec = &Record{Module: module, Path: path}
		r.records[k] = rec
	}
	rec.Set = set

	if lookup, ok := r.lookups[module]; ok {
		r.bindLocked(rec, lookup)
		return
	}
	if !exists {
		r.waiting[module] = append(r.waiting[module], rec)
	}
}

func (r *Registry) bindLocked(rec *Record, lookup func(string) (SchemaNode, bool)) {
	node, ok := lookup(rec.Path)
	if !ok {
		return
	}
	node.SetCallbacks(rec.Set)
	rec.Bound = true
	rec.BoundRevision = r.revision[rec.Module]
}

// ModuleLoaded binds every parked record for module (and any future
// registration) using lookup to dereference a schema path into a node.
func (r *Registry) ModuleLoaded(module, revision string, lookup func(path string) (SchemaNode, bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookups[module] = lookup
	r.revision[module] = revision

	for _, rec := range r.waiting[module] {
		r.bindLocked(rec, lookup)
	}
	delete(r.waiting, module)
}

// ModuleUnloaded releases every callback record owned by module and clears
// the callback-set pointer on each bound schema node (spec.md §4.4).
func (r *Registry) ModuleUnloaded(module string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lookup, hadLookup := r.lookups[module]
	for k, rec := range r.records {
		if rec.Module != module {
			continue
		}
		if hadLookup && rec.Bound {
			if node, ok := lookup(rec.Path); ok {
				node.SetCallbacks(nil)
			}
		}
		delete(r.records, k)
	}
	delete(r.waiting, module)
	delete(r.lookups, module)
	delete(r.revision, module)
}

// Lookup returns the record for (module, path), primarily for tests and
// diagnostics.
func (r *Registry) Lookup(module, path string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key(module, path)]
	return rec, ok
}

func (r *Registry) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("callback.Registry{%d records, %d waiting modules}", len(r.records), len(r.waiting))
}
