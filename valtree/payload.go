// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package valtree implements the value tree and datastore of spec.md §3/§4.3:
// an ordered tree of typed values with attributes, virtual (read-on-demand)
// nodes, and the named top-level datastores (running/candidate/startup).
package valtree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danos/ncxd/types"
)

// Payload is the typed value carried by a materialized leaf/leaf-list
// instance, matching the variant list in spec.md §3 "Value node": one of
// signed/unsigned integer, decimal scaled by fraction-digits, boolean,
// owned byte string, enum name/value, bits name set, union discriminant +
// inner value, or a list of instance paths.
type Payload struct {
	Kind types.Kind

	Signed   int64
	Unsigned uint64
	Decimal  int64 // scaled integer; unscale with FractionDigits
	FractionDigits int
	Bool     bool
	Bytes    []byte
	EnumName string
	BitNames []string

	UnionMember int
	UnionInner  *Payload

	Paths []string // instance-identifier / leafref-of-leaf-list targets
}

// FromString parses raw (the wire/default-value encoding) into a Payload of
// the given resolved kind. Decimal64 uses fractionDigits for scaling.
func FromString(kind types.Kind, fractionDigits int, raw string) (*Payload, error) {
	p := &Payload{Kind: kind, FractionDigits: fractionDigits}
	switch kind {
	case types.Int8, types.Int16, types.Int32, types.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		p.Signed = v
	case types.Uint8, types.Uint16, types.Uint32, types.Uint64:
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		p.Unsigned = v
	case types.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, err
		}
		p.Bool = v
	case types.Binary:
		p.Bytes = []byte(raw)
	case types.Enumeration:
		p.EnumName = raw
	case types.Bits:
		if raw != "" {
			p.BitNames = strings.Fields(raw)
		}
	case types.Decimal64:
		scaled, err := scaleDecimal(raw, fractionDigits)
		if err != nil {
			return nil, err
		}
		p.Decimal = scaled
	default:
		// string, union, leafref, instance-identifier, identityref,
		// anyxml: kept as opaque text via Bytes.
		p.Bytes = []byte(raw)
	}
	return p, nil
}

func scaleDecimal(raw string, fractionDigits int) (int64, error) {
	neg := strings.HasPrefix(raw, "-")
	s := strings.TrimPrefix(raw, "-")
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if len(fracPart) > fractionDigits {
		return 0, fmt.Errorf("too many fraction digits in %q", raw)
	}
	for len(fracPart) < fractionDigits {
		fracPart += "0"
	}
	if intPart == "" {
		intPart = "0"
	}
	v, err := strconv.ParseInt(intPart+fracPart, 10, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}

// String renders the payload back to its canonical text form.
func (p *Payload) String() string {
	if p == nil {
		return ""
	}
	switch p.Kind {
	case types.Int8, types.Int16, types.Int32, types.Int64:
		return strconv.FormatInt(p.Signed, 10)
	case types.Uint8, types.Uint16, types.Uint32, types.Uint64:
		return strconv.FormatUint(p.Unsigned, 10)
	case types.Bool:
		return strconv.FormatBool(p.Bool)
	case types.Binary:
		return string(p.Bytes)
	case types.Enumeration:
		return p.EnumName
	case types.Bits:
		return strings.Join(p.BitNames, " ")
	case types.Decimal64:
		return unscaleDecimal(p.Decimal, p.FractionDigits)
	default:
		return string(p.Bytes)
	}
}

func unscaleDecimal(v int64, fractionDigits int) string {
	if fractionDigits == 0 {
		return strconv.FormatInt(v, 10)
	}
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	for len(s) <= fractionDigits {
		s = "0" + s
	}
	whole, frac := s[:len(s)-fractionDigits], s[len(s)-fractionDigits:]
	out := whole + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
