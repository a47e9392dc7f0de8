// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package types implements the YANG type system: the four-pass typedef
// resolver described in spec.md §4.1 (name resolution, loop detection,
// restriction checking, range finalization) plus the resolved-type
// validators used at edit-config validate time.
package types

import "fmt"

// Kind is a YANG base type. Every Typedef, however deeply derived, has one
// of these as its ultimate base_kind (spec.md §3 "Typedef").
type Kind int

const (
	Int8 Kind = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Decimal64
	Bool
	String
	Binary
	Enumeration
	Bits
	Empty
	Union
	Leafref
	InstanceIdentifier
	Identityref
)

func (k Kind) String() string {
	switch k {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Decimal64:
		return "decimal64"
	case Bool:
		return "boolean"
	case String:
		return "string"
	case Binary:
		return "binary"
	case Enumeration:
		return "enumeration"
	case Bits:
		return "bits"
	case Empty:
		return "empty"
	case Union:
		return "union"
	case Leafref:
		return "leafref"
	case InstanceIdentifier:
		return "instance-identifier"
	case Identityref:
		return "identityref"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsNumeric reports whether range restrictions apply to this base kind.
func (k Kind) IsNumeric() bool {
	switch k {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Decimal64:
		return true
	}
	return false
}

// IsStringlike reports whether length/pattern restrictions apply.
func (k Kind) IsStringlike() bool {
	return k == String || k == Binary
}

// builtinRange returns the [min,max] span of the representable values for a
// fixed-width integer kind, used by range finalization to resolve bare
// "min"/"max" tokens (spec.md §4.1 pass 4, and the boundary law in §8:
// int32 "[min..max]" resolves to [-2147483648, 2147483647]).
func builtinRange(k Kind) (low, high int64, ok bool) {
	switch k {
	case Int8:
		return -128, 127, true
	case Int16:
		return -32768, 32767, true
	case Int32:
		return -2147483648, 2147483647, true
	case Int64:
		return -9223372036854775808, 9223372036854775807, true
	case Uint8:
		return 0, 255, true
	case Uint16:
		return 0, 65535, true
	case Uint32:
		return 0, 4294967295, true
	case Uint64:
		// uint64 max doesn't fit in int64, so the span is capped at the
		// int64 maximum.
		return 0, 9223372036854775807, true
	}
	return 0, 0, false
}
