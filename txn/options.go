// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package txn implements the three-phase edit-config transaction engine of
// spec.md §4.2: validate against a throwaway scratch tree, apply into the
// real scratch tree, then commit it into the datastore or roll it back.
package txn

import "github.com/danos/ncxd/mgmterror"

// DefaultOperation is the edit-config "default-operation" attribute.
type DefaultOperation uint32

const (
	DefaultOperationNotSet DefaultOperation = iota
	DefaultOperationMerge
	DefaultOperationReplace
	DefaultOperationNone
)

func (o *DefaultOperation) Set(v string) error {
	values := map[string]DefaultOperation{
		"merge":   DefaultOperationMerge,
		"replace": DefaultOperationReplace,
		"none":    DefaultOperationNone,
	}
	if dv, ok := values[v]; ok {
		*o = dv
		return nil
	}
	return mgmterror.New(mgmterror.TagInvalidValue, "invalid default-operation "+v)
}

// TestOption is the edit-config "test-option" attribute.
type TestOption uint32

const (
	TestOptionNotSet TestOption = iota
	TestThenSet
	TestSet
	TestOnly
)

func (o *TestOption) Set(v string) error {
	values := map[string]TestOption{
		"test-then-set": TestThenSet,
		"set":           TestSet,
		"test-only":     TestOnly,
	}
	if tv, ok := values[v]; ok {
		*o = tv
		return nil
	}
	return mgmterror.New(mgmterror.TagInvalidValue, "invalid test-option "+v)
}

// ErrorOption is the edit-config "error-option" attribute.
type ErrorOption uint32

const (
	ErrorOptionNotSet ErrorOption = iota
	StopOnError
	ContinueOnError
	RollbackOnError
)

func (o *ErrorOption) Set(v string) error {
	values := map[string]ErrorOption{
		"stop-on-error":     StopOnError,
		"continue-on-error": ContinueOnError,
		"rollback-on-error": RollbackOnError,
	}
	if ev, ok := values[v]; ok {
		*o = ev
		return nil
	}
	return mgmterror.New(mgmterror.TagInvalidValue, "invalid error-option "+v)
}

// State is the transaction's position in the state machine of spec.md §4.2.
type State int

const (
	Init State = iota
	Validating
	ValidateFailed
	Applying
	ApplyFailed
	Committed
	RolledBack
	Aborted
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Validating:
		return "validating"
	case ValidateFailed:
		return "validate-failed"
	case Applying:
		return "applying"
	case ApplyFailed:
		return "apply-failed"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}
