// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package ncxd assembles the per-process ServerState (spec.md §9): the
// schema, datastores, lock/confirm/notification managers and session table
// every RPC handler is dispatched against, plus the syslog-backed loggers
// every subsystem writes through.
package ncxd

import (
	"io/ioutil"
	"log"
	"log/syslog"
	"os"
	"path/filepath"
)

// NewLogger is a version of syslog.NewLogger which uses the running
// binary's base name as the logging tag.
func NewLogger(p syslog.Priority, logFlag int) (*log.Logger, error) {
	tag := filepath.Base(os.Args[0])
	s, err := syslog.New(p, tag)
	if err != nil {
		return nil, err
	}
	return log.New(s, "", logFlag), nil
}

// mustLogger never fails: used when the syslog daemon is unreachable
// (e.g. in a container without /dev/log) so the server still starts.
func mustLogger(p syslog.Priority, elog *log.Logger) *log.Logger {
	l, err := NewLogger(p, 0)
	if err != nil {
		if elog != nil {
			elog.Println(err)
		}
		return log.New(ioutil.Discard, "", 0)
	}
	return l
}
