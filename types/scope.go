// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package types

// Scope models the name-resolution lookup chain of spec.md §4.1 pass 1:
// (a) local enclosing object, (b) enclosing grouping chain, (c) current
// module scope, (d) imported modules (by prefix, then by name). Each level
// is searched in order; Levels[0] is the innermost (local) scope.
type Scope struct {
	Levels  []map[string]*Typedef
	Module  *Module
}

// NewScope builds a lookup chain from innermost to outermost. levels hold
// the local and grouping scopes only; the module is not added as a level,
// since Lookup and shadows search mod's typedefs after every level, so a
// bare module-level typedef resolves with Levels == nil.
func NewScope(mod *Module, levels ...map[string]*Typedef) *Scope {
	return &Scope{Levels: levels, Module: mod}
}

// Lookup resolves ref against the chain. It returns the typedef and the
// scope level index it was found at (used by declaration-time shadow
// checks), or ok=false.
func (s *Scope) Lookup(ref UnresolvedRef) (*Typedef, int, bool) {
	if ref.Prefix != "" {
		if s.Module == nil {
			return nil, -1, false
		}
		imported, ok := s.Module.Imports[ref.Prefix]
		if !ok {
			return nil, -1, false
		}
		td, ok := imported.Typedefs[ref.Name]
		return td, -1, ok
	}
	for i, level := range s.Levels {
		if td, ok := level[ref.Name]; ok {
			return td, i, true
		}
	}
	if s.Module != nil {
		if td, ok := s.Module.Typedefs[ref.Name]; ok {
			return td, len(s.Levels), true
		}
	}
	return nil, -1, false
}

// LookupIdentity resolves an identity base reference through the same
// module/import rules (identities are always module-scoped, never local).
func (s *Scope) LookupIdentity(ref UnresolvedRef) (*Identity, bool) {
	if s.Module == nil {
		return nil, false
	}
	if ref.Prefix != "" {
		imported, ok := s.Module.Imports[ref.Prefix]
		if !ok {
			return nil, false
		}
		id, ok := imported.Identities[ref.Name]
		return id, ok
	}
	id, ok := s.Module.Identities[ref.Name]
	return id, ok
}

// shadows reports whether declaring name at Levels[0] of s would shadow a
// same-named typedef already visible from an outer level — an error per
// spec.md §4.1 pass 1 ("a local typedef that shadows an outer visible
// typedef of the same name is reported as an error").
func (s *Scope) shadows(name string) bool {
	for i := 1; i < len(s.Levels); i++ {
		if _, ok := s.Levels[i][name]; ok {
			return true
		}
	}
	if s.Module != nil {
		if _, ok := s.Module.Typedefs[name]; ok {
			return true
		}
	}
	return false
}
