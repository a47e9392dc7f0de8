// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package types

import (
	"fmt"

	"github.com/danos/ncxd/mgmterror"
)

// ResolveError is one of the named failures from spec.md §4.1. Kind is a
// short machine-readable label (not the NETCONF error-tag; see AsMgmtError
// for that mapping), matching the vocabulary the section itself uses.
type ResolveError struct {
	Kind    string
	Typedef string
	Detail  string
}

func (e *ResolveError) Error() string {
	if e.Typedef != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Typedef, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// AsMgmtError maps a resolver failure onto the NETCONF taxonomy so it can be
// surfaced in an rpc-error (spec.md §7).
func (e *ResolveError) AsMgmtError() *mgmterror.Error {
	switch e.Kind {
	case "loop":
		return mgmterror.New(mgmterror.TagOperationFailed, e.Error())
	case "restriction-not-allowed":
		return mgmterror.New(mgmterror.TagBadElement, e.Error())
	case "not-in-range", "overlap-range", "invalid-range":
		return mgmterror.New(mgmterror.TagInvalidValue, e.Error())
	case "duplicate-enum-name", "duplicate-enum-value":
		return mgmterror.New(mgmterror.TagBadElement, e.Error())
	case "missing-type", "def-not-found":
		return mgmterror.New(mgmterror.TagUnknownElement, e.Error())
	case "invalid-default":
		return mgmterror.New(mgmterror.TagInvalidValue, e.Error())
	case "wrong-version":
		return mgmterror.New(mgmterror.TagOperationFailed, e.Error())
	default:
		return mgmterror.New(mgmterror.TagOperationFailed, e.Error())
	}
}

func errLoop(name string) error {
	return &ResolveError{Kind: "loop", Typedef: name, Detail: "typedef parent chain contains a cycle"}
}

func errDefNotFound(name string) error {
	return &ResolveError{Kind: "def-not-found", Typedef: name, Detail: "no visible typedef with this name"}
}

func errRestrictionNotAllowed(name, restriction string) error {
	return &ResolveError{Kind: "restriction-not-allowed", Typedef: name,
		Detail: fmt.Sprintf("%s restriction not valid for this base type", restriction)}
}

func errNotInRange(name string) error {
	return &ResolveError{Kind: "not-in-range", Typedef: name,
		Detail: "restriction is not a subset of the ancestor's range"}
}

func errInvalidRange(low, high int64) error {
	return &ResolveError{Kind: "invalid-range", Detail: fmt.Sprintf("lower bound %d exceeds upper bound %d", low, high)}
}

func errOverlapRange(prevHigh, nextLow int64) error {
	return &ResolveError{Kind: "overlap-range", Detail: fmt.Sprintf("interval starting at %d overlaps the one ending at %d", nextLow, prevHigh)}
}

func errDuplicateEnumName(name string) error {
	return &ResolveError{Kind: "duplicate-enum-name", Detail: name}
}

func errDuplicateEnumValue(name string, value int32) error {
	return &ResolveError{Kind: "duplicate-enum-value", Detail: fmt.Sprintf("%s reuses value %d", name, value)}
}

func errBitPositionOrder(name string) error {
	return &ResolveError{Kind: "bit-position-order", Detail: name}
}

func errMissingType(name string) error {
	return &ResolveError{Kind: "missing-type", Typedef: name, Detail: "leaf has no type statement"}
}

func errInvalidDefault(name, value string) error {
	return &ResolveError{Kind: "invalid-default", Typedef: name,
		Detail: fmt.Sprintf("default value %q does not validate against the resolved type", value)}
}

func errWrongVersion(name string) error {
	return &ResolveError{Kind: "wrong-version", Typedef: name, Detail: "named type declared an incompatible revision"}
}
