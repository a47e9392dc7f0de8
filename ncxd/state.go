// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package ncxd

import (
	"log"
	"log/syslog"
	"time"

	"github.com/danos/ncxd/internal/config"
	"github.com/danos/ncxd/lock"
	"github.com/danos/ncxd/notif"
	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/session"
	"github.com/danos/ncxd/txn"
	"github.com/danos/ncxd/valtree"
)

const (
	DatastoreRunning   = "running"
	DatastoreCandidate = "candidate"
	DatastoreStartup   = "startup"
)

// ServerState is the single value every subsystem is constructed against
// (spec.md §9): the compiled schema, the named datastores, their lock
// managers, the confirmed-commit tracker for running, the notification
// engine, and the session table. Nothing here is global package state —
// tests build isolated instances freely.
type ServerState struct {
	Profile  *config.Profile
	ModelSet *schema.ModelSet

	Datastores map[string]*valtree.Datastore
	Locks      map[string]*lock.Manager

	Confirm  *txn.ConfirmManager
	Notify   *notif.Engine
	Sessions *session.Table

	Dlog *log.Logger
	Elog *log.Logger
	Wlog *log.Logger
}

// New constructs a ServerState with empty (root-only) datastores. Startup
// is only created when the profile carries a startup path, matching the
// ":startup" capability being conditional on configuration (spec.md §6).
func New(profile *config.Profile, ms *schema.ModelSet, now time.Time) *ServerState {
	elog := mustLogger(syslog.LOG_ERR|syslog.LOG_DAEMON, nil)
	dlog := mustLogger(syslog.LOG_DEBUG|syslog.LOG_DAEMON, elog)
	wlog := mustLogger(syslog.LOG_WARNING|syslog.LOG_DAEMON, elog)

	root := ms.Root()
	running := valtree.NewDatastore(DatastoreRunning, valtree.NewNode(root))
	candidate := valtree.NewDatastore(DatastoreCandidate, valtree.NewNode(root))

	st := &ServerState{
		Profile:  profile,
		ModelSet: ms,
		Datastores: map[string]*valtree.Datastore{
			DatastoreRunning:   running,
			DatastoreCandidate: candidate,
		},
		Locks: map[string]*lock.Manager{
			DatastoreRunning:   lock.NewManager(),
			DatastoreCandidate: lock.NewManager(),
		},
		Confirm:  txn.NewConfirmManager(running),
		Notify:   notif.NewEngine(profile.EventlogSize),
		Sessions: session.NewTable(),
		Dlog:     dlog,
		Elog:     elog,
		Wlog:     wlog,
	}
	if profile.StartupPath != "" {
		startup := valtree.NewDatastore(DatastoreStartup, valtree.NewNode(root))
		st.Datastores[DatastoreStartup] = startup
		st.Locks[DatastoreStartup] = lock.NewManager()
	}
	st.Notify.RegisterStream("NETCONF")
	return st
}

func (st *ServerState) HasStartup() bool {
	_, ok := st.Datastores[DatastoreStartup]
	return ok
}

// Capabilities builds the <hello> capability list this server advertises.
func (st *ServerState) Capabilities(base11 bool) []string {
	return st.ModelSet.Capabilities(base11, true, st.HasStartup(), true)
}
