// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package types

// Builtin returns the (already-resolved) typedef for a YANG base type. All
// derived typedefs eventually chain up to one of these via Base.
func Builtin(kind Kind) *Typedef {
	td := &Typedef{BaseKind: kind, resolved: true}
	if low, high, ok := builtinRange(kind); ok && kind != Decimal64 {
		td.Ranges = []Interval{{Literal(low), Literal(high)}}
	}
	return td
}
