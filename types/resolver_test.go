// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package types

import "testing"

func TestInt32MinMaxRange(t *testing.T) {
	mod := NewModule("test", "2020-01-01")
	td := &Typedef{Name: "port", BaseKind: Int32,
		Ranges: []Interval{{Bound{Token: BoundMin}, Bound{Token: BoundMax}}}}
	mod.AddTypedef(td)

	r := NewResolver()
	r.AddModule(mod)
	if err := r.Resolve(); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(td.Ranges) != 1 || td.Ranges[0].Low.Value != -2147483648 || td.Ranges[0].High.Value != 2147483647 {
		t.Fatalf("unexpected resolved range: %+v", td.Ranges)
	}
	if err := td.Validate("2147483647"); err != nil {
		t.Errorf("expected max int32 to validate: %v", err)
	}
	if err := td.Validate("2147483648"); err == nil {
		t.Errorf("expected overflow to fail validation")
	}
}

func TestDerivedRangeMustBeSubset(t *testing.T) {
	mod := NewModule("test", "2020-01-01")
	base := &Typedef{Name: "base", BaseKind: Int32,
		Ranges: []Interval{{Literal(0), Literal(100)}}}
	mod.AddTypedef(base)
	derived := &Typedef{Name: "derived", BaseRef: &UnresolvedRef{Name: "base"},
		Ranges: []Interval{{Literal(50), Literal(200)}}}
	mod.AddTypedef(derived)

	r := NewResolver()
	r.AddModule(mod)
	r.Resolve()

	if len(r.Errors) == 0 {
		t.Fatalf("expected not-in-range error for escaping child range")
	}
}

func TestTypedefLoopDetected(t *testing.T) {
	mod := NewModule("test", "2020-01-01")
	a := &Typedef{Name: "a"}
	b := &Typedef{Name: "b", BaseRef: &UnresolvedRef{Name: "a"}}
	a.BaseRef = &UnresolvedRef{Name: "b"}
	mod.AddTypedef(a)
	mod.AddTypedef(b)

	r := NewResolver()
	r.AddModule(mod)
	r.Resolve()

	found := false
	for _, e := range r.Errors {
		if re, ok := e.(*ResolveError); ok && re.Kind == "loop" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a loop error, got %v", r.Errors)
	}
}

func TestEnumAutoAssignment(t *testing.T) {
	mod := NewModule("test", "2020-01-01")
	td := &Typedef{Name: "color", BaseKind: Enumeration, Enums: []EnumValue{
		{Name: "red", Value: 5, Explicit: true},
		{Name: "blue"},
	}}
	mod.AddTypedef(td)

	r := NewResolver()
	r.AddModule(mod)
	if err := r.Resolve(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if td.Enums[1].Value != 6 {
		t.Errorf("expected auto-assigned value 6, got %d", td.Enums[1].Value)
	}
}

func TestDecimal64FractionDigits(t *testing.T) {
	mod := NewModule("test", "2020-01-01")
	td := &Typedef{Name: "price", BaseKind: Decimal64, FractionDigits: 2}
	mod.AddTypedef(td)

	r := NewResolver()
	r.AddModule(mod)
	if err := r.Resolve(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := td.Validate("0.01"); err != nil {
		t.Errorf("expected 0.01 to validate: %v", err)
	}
	if err := td.Validate("0.001"); err == nil {
		t.Errorf("expected 0.001 to be rejected (too many fraction digits)")
	}
}

func TestUnionValidatesUnderAnyMember(t *testing.T) {
	mod := NewModule("test", "2020-01-01")
	intTd := &Typedef{Name: "int32t", BaseKind: Int32, Ranges: []Interval{{Literal(-2147483648), Literal(2147483647)}}}
	strTd := &Typedef{Name: "strt", BaseKind: String}
	mod.AddTypedef(intTd)
	mod.AddTypedef(strTd)
	union := &Typedef{Name: "u", BaseKind: Union,
		UnionMemberRefs: []UnresolvedRef{{Name: "int32t"}, {Name: "strt"}}}
	mod.AddTypedef(union)

	r := NewResolver()
	r.AddModule(mod)
	if err := r.Resolve(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := union.Validate("42"); err != nil {
		t.Errorf("expected 42 to validate under int member: %v", err)
	}
	if err := union.Validate("hello"); err != nil {
		t.Errorf("expected hello to validate under string member: %v", err)
	}
}
