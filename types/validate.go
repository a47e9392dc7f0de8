// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package types

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Validate checks a raw (string-encoded) value against the fully resolved
// type, per spec.md §3/§8. It is used both for default-value checking
// (resolver pass 4) and for leaf value validation during edit-config
// (txn package).
func (t *Typedef) Validate(raw string) error {
	switch t.Root().BaseKind {
	case Int8, Int16, Int32, Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid-value: %q is not an integer", raw)
		}
		return t.validateRange(v)
	case Uint8, Uint16, Uint32, Uint64:
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid-value: %q is not an unsigned integer", raw)
		}
		return t.validateRange(int64(v))
	case Decimal64:
		v, err := t.parseDecimal64(raw)
		if err != nil {
			return err
		}
		return t.validateRange(v)
	case Bool:
		if raw != "true" && raw != "false" {
			return fmt.Errorf("invalid-value: %q is not a boolean", raw)
		}
		return nil
	case String:
		return t.validateStringlike(raw, len([]rune(raw)))
	case Binary:
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return fmt.Errorf("invalid-value: %q is not valid base64", raw)
		}
		return t.validateStringlike(raw, len(decoded))
	case Enumeration:
		for cur := t; cur != nil; cur = cur.Base {
			for _, e := range cur.Enums {
				if e.Name == raw {
					return nil
				}
			}
		}
		return fmt.Errorf("invalid-value: %q is not a declared enum", raw)
	case Bits:
		for _, name := range strings.Fields(raw) {
			found := false
			for cur := t; cur != nil; cur = cur.Base {
				for _, b := range cur.Bits {
					if b.Name == name {
						found = true
					}
				}
			}
			if !found {
				return fmt.Errorf("invalid-value: %q is not a declared bit", name)
			}
		}
		return nil
	case Empty:
		if raw != "" {
			return fmt.Errorf("invalid-value: empty type carries no value")
		}
		return nil
	case Union:
		members := t.allUnionMembers()
		for _, m := range members {
			if m.Validate(raw) == nil {
				return nil
			}
		}
		return fmt.Errorf("invalid-value: %q does not validate under any union member", raw)
	case Leafref, InstanceIdentifier:
		// Target-instance existence is checked by the transaction engine at
		// validate time (spec.md §4.2), not here.
		return nil
	case Identityref:
		return t.validateIdentityref(raw)
	}
	return fmt.Errorf("invalid-value: unrecognized base type")
}

func (t *Typedef) allUnionMembers() []*Typedef {
	var out []*Typedef
	for cur := t; cur != nil; cur = cur.Base {
		out = append(out, cur.UnionMembers...)
	}
	return out
}

func (t *Typedef) validateRange(v int64) error {
	for cur := t; cur != nil; cur = cur.Base {
		if len(cur.Ranges) > 0 {
			r := &RangeDescriptor{Intervals: cur.Ranges}
			if !r.Contains(v) {
				return fmt.Errorf("invalid-value: %d is outside the permitted range", v)
			}
			return nil
		}
	}
	return nil
}

func (t *Typedef) validateStringlike(raw string, length int) error {
	for cur := t; cur != nil; cur = cur.Base {
		if len(cur.Lengths) > 0 {
			r := &RangeDescriptor{Intervals: cur.Lengths}
			if !r.Contains(int64(length)) {
				return fmt.Errorf("invalid-value: length %d is outside the permitted range", length)
			}
			break
		}
	}
	for cur := t; cur != nil; cur = cur.Base {
		for _, re := range cur.patterns() {
			if !re.MatchString(raw) {
				return fmt.Errorf("invalid-value: %q does not match required pattern", raw)
			}
		}
	}
	return nil
}

func (t *Typedef) validateIdentityref(raw string) error {
	if t.IdentityBase == nil || t.scope == nil {
		return fmt.Errorf("invalid-value: identityref has no resolved base")
	}
	ref := parseQName(raw)
	id, ok := t.scope.LookupIdentity(ref)
	if !ok {
		return fmt.Errorf("invalid-value: %q is not a known identity", raw)
	}
	if !id.IsDerivedFrom(t.IdentityBase) {
		return fmt.Errorf("invalid-value: %q is not derived from %s", raw, t.IdentityBase.Name)
	}
	return nil
}

func parseQName(raw string) UnresolvedRef {
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		return UnresolvedRef{Prefix: raw[:i], Name: raw[i+1:]}
	}
	return UnresolvedRef{Name: raw}
}

// parseDecimal64 scales a decimal string like "1.23" into the integer
// representation used internally (fraction-digits=2 -> 123), rejecting
// values with more fractional digits than declared (spec.md §8: fraction-
// digits=2 accepts 0.01, rejects 0.001).
func (t *Typedef) parseDecimal64(raw string) (int64, error) {
	fd := t.fractionDigits()
	neg := false
	s := raw
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if len(fracPart) > fd {
		return 0, fmt.Errorf("invalid-value: %q has more than %d fraction digits", raw, fd)
	}
	for len(fracPart) < fd {
		fracPart += "0"
	}
	if intPart == "" {
		intPart = "0"
	}
	digits := intPart + fracPart
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid-value: %q is not a valid decimal64", raw)
	}
	if neg {
		v = -v
	}
	return v, nil
}

func (t *Typedef) fractionDigits() int {
	for cur := t; cur != nil; cur = cur.Base {
		if cur.FractionDigits != 0 {
			return cur.FractionDigits
		}
	}
	return 1
}
