// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package mgmterror models the NETCONF <rpc-error> taxonomy (RFC 6241 §4.3)
// used throughout the server: every validate/apply failure, callback error,
// and protocol violation is surfaced as one of these.
package mgmterror

import (
	"fmt"
)

// Layer identifies which protocol layer detected the error.
type Layer string

const (
	LayerTransport  Layer = "transport"
	LayerRPC        Layer = "rpc"
	LayerProtocol   Layer = "protocol"
	LayerApplication Layer = "application"
)

// Severity of the error.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Tag is one of the error kinds enumerated in spec.md §7.
type Tag string

const (
	TagInUse               Tag = "in-use"
	TagInvalidValue        Tag = "invalid-value"
	TagTooBig              Tag = "too-big"
	TagMissingAttribute    Tag = "missing-attribute"
	TagBadAttribute        Tag = "bad-attribute"
	TagUnknownAttribute    Tag = "unknown-attribute"
	TagMissingElement      Tag = "missing-element"
	TagBadElement          Tag = "bad-element"
	TagUnknownElement      Tag = "unknown-element"
	TagUnknownNamespace    Tag = "unknown-namespace"
	TagAccessDenied        Tag = "access-denied"
	TagLockDenied          Tag = "lock-denied"
	TagResourceDenied      Tag = "resource-denied"
	TagRollbackFailed      Tag = "rollback-failed"
	TagDataExists          Tag = "data-exists"
	TagDataMissing         Tag = "data-missing"
	TagOperationNotSupported Tag = "operation-not-supported"
	TagOperationFailed     Tag = "operation-failed"
	TagPartialOperation    Tag = "partial-operation"
	TagMalformedMessage    Tag = "malformed-message"
	TagNotFound            Tag = "not-found" // RFC 5277 create-subscription: unknown stream
)

// Error is a single <rpc-error>.
type Error struct {
	Layer        Layer
	Severity     Severity
	Tag          Tag
	AppTag       string
	Path         string // canonical instance-identifier of the offending node
	Message      string
	Info         map[string]string // structured error-info, e.g. "session-id" -> "3"
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path %s)", e.Tag, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Tag, e.Message)
}

// New builds an application-layer error with error severity — the common case
// for validate/apply-phase failures.
func New(tag Tag, msg string) *Error {
	return &Error{
		Layer:    LayerApplication,
		Severity: SeverityError,
		Tag:      tag,
		Message:  msg,
	}
}

func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) WithAppTag(tag string) *Error {
	e.AppTag = tag
	return e
}

func (e *Error) WithInfo(key, value string) *Error {
	if e.Info == nil {
		e.Info = make(map[string]string)
	}
	e.Info[key] = value
	return e
}

// Warning marks the error as a warning rather than an error, e.g. the
// bit-position-order diagnostic from the type resolver (spec.md §4.1).
func (e *Error) Warning() *Error {
	e.Severity = SeverityWarning
	return e
}

// List is an ordered collection of errors attached to a single PDU's
// rpc-reply, as described in spec.md §7 propagation policy.
type List struct {
	Errors []*Error
}

func (l *List) Add(e *Error) {
	l.Errors = append(l.Errors, e)
}

func (l *List) HasErrors() bool {
	for _, e := range l.Errors {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (l *List) Error() string {
	if len(l.Errors) == 0 {
		return ""
	}
	s := l.Errors[0].Error()
	for _, e := range l.Errors[1:] {
		s += "; " + e.Error()
	}
	return s
}
