// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package types

import "github.com/danos/ncxd/xpath"

// LeafrefResolver compiles and locates a leafref's target leaf against the
// ground schema root (spec.md §4.1 pass 4). It is supplied by the schema
// package, which owns the schema tree; the types package itself has no
// schema dependency (it uses xpath only to compile the path expression) so
// it can be tested in isolation.
type LeafrefResolver func(pathExpr string) (LeafLocator, error)

// Resolver runs the four-pass algorithm of spec.md §4.1 over a set of
// modules. Errors and Warnings accumulate across all typedefs; Resolve does
// not stop at the first failure so that a single call surfaces every
// problem in the module set, matching the teacher's batch-compile style.
type Resolver struct {
	Modules map[string]*Module
	Errors  []error
	Warnings []error

	ResolveLeafref LeafrefResolver
}

func NewResolver() *Resolver {
	return &Resolver{Modules: make(map[string]*Module)}
}

func (r *Resolver) AddModule(m *Module) {
	r.Modules[m.Name] = m
}

func (r *Resolver) fail(err error) {
	r.Errors = append(r.Errors, err)
}

func (r *Resolver) warn(err error) {
	r.Warnings = append(r.Warnings, err)
}

// Resolve runs all four passes. It returns the first error only for
// convenience (callers wanting the full list should inspect r.Errors); a
// successful return means every typedef in every module satisfies the
// ordering properties of spec.md §4.1.
func (r *Resolver) Resolve() error {
	r.pass1NameResolution()
	r.pass2LoopDetection()
	r.pass3RestrictionCheck()
	r.pass4RangeFinalizationAndLateResolution()
	if len(r.Errors) > 0 {
		return r.Errors[0]
	}
	return nil
}

func (r *Resolver) allTypedefs() []*Typedef {
	var out []*Typedef
	for _, m := range r.Modules {
		for _, td := range m.Typedefs {
			out = append(out, td)
		}
	}
	return out
}

// --- pass 1: name resolution ---

func (r *Resolver) pass1NameResolution() {
	for _, td := range r.allTypedefs() {
		r.resolveOneName(td)
	}
}

func (r *Resolver) resolveOneName(td *Typedef) {
	if td.scope == nil {
		td.scope = NewScope(nil)
	}
	if td.Local && td.scope.shadows(td.Name) {
		r.fail(&ResolveError{Kind: "def-not-found", Typedef: td.Name,
			Detail: "local typedef shadows an outer visible typedef of the same name"})
	}
	if td.BaseRef != nil {
		base, _, ok := td.scope.Lookup(*td.BaseRef)
		if !ok {
			r.fail(errDefNotFound(td.BaseRef.Name))
			return
		}
		td.Base = base
		td.BaseKind = base.BaseKind
	}
	for _, ref := range td.UnionMemberRefs {
		member, _, ok := td.scope.Lookup(ref)
		if !ok {
			r.fail(errDefNotFound(ref.Name))
			continue
		}
		td.UnionMembers = append(td.UnionMembers, member)
	}
	if td.IdentityBaseRef != nil {
		id, ok := td.scope.LookupIdentity(*td.IdentityBaseRef)
		if !ok {
			r.fail(errDefNotFound(td.IdentityBaseRef.Name))
		} else {
			td.IdentityBase = id
		}
	}
	for _, m := range r.Modules {
		for _, id := range m.Identities {
			for i, ref := range id.BaseRefs {
				if i < len(id.Bases) {
					continue // already resolved
				}
				base, ok := NewScope(m).LookupIdentity(ref)
				if ok {
					id.Bases = append(id.Bases, base)
				}
			}
		}
	}
}

// --- pass 2: loop detection ---

func (r *Resolver) pass2LoopDetection() {
	for _, td := range r.allTypedefs() {
		visited := map[*Typedef]bool{td: true}
		for cur := td.Base; cur != nil; cur = cur.Base {
			if visited[cur] {
				td.resolveErr = errLoop(td.Name)
				r.fail(td.resolveErr)
				break
			}
			visited[cur] = true
		}
	}
}

// --- pass 3: restriction check ---

func (r *Resolver) pass3RestrictionCheck() {
	// process parent-first (by ancestor depth) so each subset check can
	// trust its immediate parent was already validated against its own.
	// a typedef whose Base chain loops has no root, so it is left out.
	var all []*Typedef
	for _, td := range r.allTypedefs() {
		if td.resolveErr == nil {
			all = append(all, td)
		}
	}
	depth := func(td *Typedef) int {
		d := 0
		for cur := td.Base; cur != nil; cur = cur.Base {
			d++
		}
		return d
	}
	ordered := append([]*Typedef(nil), all...)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && depth(ordered[j]) < depth(ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	for _, td := range ordered {
		r.checkRestrictions(td)
	}
}

func (r *Resolver) checkRestrictions(td *Typedef) {
	root := td.Root().BaseKind

	if len(td.Ranges) > 0 && !root.IsNumeric() {
		r.fail(errRestrictionNotAllowed(td.Name, "range"))
	}
	if (len(td.Lengths) > 0 || len(td.PatternSources) > 0) && !root.IsStringlike() {
		if len(td.Lengths) > 0 {
			r.fail(errRestrictionNotAllowed(td.Name, "length"))
		}
		if len(td.PatternSources) > 0 && root != String {
			r.fail(errRestrictionNotAllowed(td.Name, "pattern"))
		}
	}
	if len(td.Bits) > 0 && root != Bits {
		r.fail(errRestrictionNotAllowed(td.Name, "bit"))
	}
	if len(td.Enums) > 0 && root != Enumeration {
		r.fail(errRestrictionNotAllowed(td.Name, "enum"))
	}
	if td.FractionDigits != 0 {
		if root != Decimal64 {
			r.fail(errRestrictionNotAllowed(td.Name, "fraction-digits"))
		} else if td.FractionDigits < 1 || td.FractionDigits > 18 {
			r.fail(&ResolveError{Kind: "restriction-not-allowed", Typedef: td.Name,
				Detail: "fraction-digits must be in [1,18]"})
		}
	}

	r.assignEnumValues(td)
	r.assignBitPositions(td)

	ancestorLow, ancestorHigh := int64(-1 << 62), int64(1<<62 - 1)
	if td.Base != nil && len(td.Base.Ranges) > 0 {
		ancestorLow = td.Base.Ranges[0].Low.Value
		ancestorHigh = td.Base.Ranges[len(td.Base.Ranges)-1].High.Value
	} else if low, high, ok := builtinRange(root); ok {
		ancestorLow, ancestorHigh = low, high
	}

	if len(td.Ranges) > 0 {
		finalized, err := finalizeIntervals(td.Ranges, ancestorLow, ancestorHigh)
		if err != nil {
			r.fail(err)
		} else {
			if td.Base != nil && len(td.Base.Ranges) > 0 && !subsetOf(finalized, td.Base.Ranges) {
				r.fail(errNotInRange(td.Name))
			} else {
				td.Ranges = finalized
			}
		}
	} else if td.Base != nil {
		td.Ranges = td.Base.Ranges
	}

	if len(td.Lengths) > 0 {
		finalized, err := finalizeIntervals(td.Lengths, 0, ancestorHigh)
		if err != nil {
			r.fail(err)
		} else {
			if td.Base != nil && len(td.Base.Lengths) > 0 && !subsetOf(finalized, td.Base.Lengths) {
				r.fail(errNotInRange(td.Name))
			} else {
				td.Lengths = finalized
			}
		}
	} else if td.Base != nil {
		td.Lengths = td.Base.Lengths
	}
}

func (r *Resolver) assignEnumValues(td *Typedef) {
	if len(td.Enums) == 0 {
		return
	}
	names := make(map[string]bool)
	values := make(map[int32]bool)
	next := int32(0)
	lastExplicit := int32(-1)
	outOfOrderWarned := false
	for i := range td.Enums {
		e := &td.Enums[i]
		if names[e.Name] {
			r.fail(errDuplicateEnumName(e.Name))
		}
		names[e.Name] = true
		if !e.Explicit {
			e.Value = next
		} else if e.Value <= lastExplicit && !outOfOrderWarned && i > 0 {
			r.warn(errBitPositionOrder(e.Name))
			outOfOrderWarned = true
		}
		if values[e.Value] {
			r.fail(errDuplicateEnumValue(e.Name, e.Value))
		}
		values[e.Value] = true
		if e.Explicit {
			lastExplicit = e.Value
		}
		next = e.Value + 1
	}
}

func (r *Resolver) assignBitPositions(td *Typedef) {
	if len(td.Bits) == 0 {
		return
	}
	names := make(map[string]bool)
	positions := make(map[uint32]bool)
	next := uint32(0)
	for i := range td.Bits {
		b := &td.Bits[i]
		if names[b.Name] {
			r.fail(errDuplicateEnumName(b.Name))
		}
		names[b.Name] = true
		if !b.Explicit {
			b.Position = next
		}
		if positions[b.Position] {
			r.fail(errDuplicateEnumValue(b.Name, int32(b.Position)))
		}
		positions[b.Position] = true
		next = b.Position + 1
	}
}

// --- pass 4: range finalization & late resolution ---

func (r *Resolver) pass4RangeFinalizationAndLateResolution() {
	for _, td := range r.allTypedefs() {
		if td.resolveErr != nil {
			continue
		}
		if td.BaseKind == Leafref && td.LeafrefPathExpr != "" && r.ResolveLeafref != nil {
			target, err := r.ResolveLeafref(td.LeafrefPathExpr)
			if err != nil {
				r.fail(&ResolveError{Kind: "def-not-found", Typedef: td.Name, Detail: err.Error()})
			} else {
				td.LeafrefTarget = target
			}
			if td.RequireInstance && td.LeafrefTarget == nil {
				r.fail(&ResolveError{Kind: "def-not-found", Typedef: td.Name,
					Detail: "require-instance leafref has no resolvable target"})
			}
			if compiled, cerr := xpath.Compile(td.LeafrefPathExpr); cerr == nil {
				td.LeafrefCompiled = compiled
			}
		}
		if td.HasDefault {
			if err := td.Validate(td.DefaultStr); err != nil {
				r.fail(errInvalidDefault(td.Name, td.DefaultStr))
			}
		}
		td.resolved = true
	}
}
