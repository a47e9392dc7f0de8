// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package types

import (
	"regexp"

	"github.com/danos/ncxd/xpath"
)

// UnresolvedRef is a named-type (or identity, or leafref-target) reference
// as it appears before pass 1 of the resolver runs: possibly qualified by an
// import prefix, e.g. "if:interface-ref".
type UnresolvedRef struct {
	Prefix string // "" means "current module or enclosing scope"
	Name   string
}

// EnumValue is one "enum" statement inside an enumeration typedef.
type EnumValue struct {
	Name     string
	Value    int32
	Explicit bool // true if the value was given in source, false if auto-assigned
}

// BitValue is one "bit" statement inside a bits typedef.
type BitValue struct {
	Name     string
	Position uint32
	Explicit bool
}

// Typedef is the fully resolved (after all 4 passes) or in-progress (before)
// description of a YANG type, per spec.md §3.
type Typedef struct {
	Name   string // "" for an anonymous inline type
	Module string
	Local  bool // true if declared inside a leaf/grouping, not at module scope

	BaseRef *UnresolvedRef // unresolved "type <name>" reference, pass-1 input
	Base    *Typedef       // resolved ancestor; nil for a builtin base kind
	BaseKind Kind

	// numeric restriction (int*/decimal64)
	Ranges         []Interval
	RangeAppTag    string
	RangeMessage   string

	// string/binary restriction
	Lengths        []Interval
	PatternSources []string // raw regex text, own + inherited (conjunctive)
	compiled       []*regexp.Regexp

	FractionDigits int // decimal64, 1..18

	Enums []EnumValue
	Bits  []BitValue

	UnionMemberRefs []UnresolvedRef
	UnionMembers    []*Typedef

	LeafrefPathExpr string
	LeafrefTarget   LeafLocator // resolved in the last pass
	LeafrefCompiled *xpath.Path // compiled LeafrefPathExpr, for runtime instance checks
	RequireInstance bool

	IdentityBaseRef *UnresolvedRef
	IdentityBase    *Identity

	DefaultStr string
	HasDefault bool

	// resolution bookkeeping
	resolving  bool
	resolved   bool
	resolveErr error

	// scope this typedef's unresolved names must be looked up through
	scope *Scope
}

// LeafLocator is the minimal view the types package needs of a schema leaf
// node, so that types does not depend on the schema package (schema depends
// on types, not the reverse). schema.Node implements this.
type LeafLocator interface {
	CanonicalPath() string
}

// Ancestors walks the Base chain from nearest to root, not including t
// itself.
func (t *Typedef) Ancestors() []*Typedef {
	var out []*Typedef
	for cur := t.Base; cur != nil; cur = cur.Base {
		out = append(out, cur)
	}
	return out
}

// Root returns the ultimate ancestor (the builtin typedef with BaseKind set
// and Base == nil).
func (t *Typedef) Root() *Typedef {
	cur := t
	for cur.Base != nil {
		cur = cur.Base
	}
	return cur
}

func (t *Typedef) patterns() []*regexp.Regexp {
	if t.compiled != nil || len(t.PatternSources) == 0 {
		return t.compiled
	}
	t.compiled = make([]*regexp.Regexp, 0, len(t.PatternSources))
	for _, src := range t.PatternSources {
		if re, err := regexp.Compile(src); err == nil {
			t.compiled = append(t.compiled, re)
		}
	}
	return t.compiled
}
