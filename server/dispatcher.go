// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package server

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/danos/ncxd/edit"
	"github.com/danos/ncxd/internal/eventloop"
	"github.com/danos/ncxd/internal/framing"
	"github.com/danos/ncxd/lock"
	"github.com/danos/ncxd/mgmterror"
	"github.com/danos/ncxd/ncxd"
	"github.com/danos/ncxd/notif"
	"github.com/danos/ncxd/render"
	"github.com/danos/ncxd/rpc"
	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/txn"
	"github.com/danos/ncxd/valtree"
)

// Dispatcher routes each session's parsed PDUs into the core packages. It
// holds the one cross-session piece of state a handler ever needs besides
// ServerState: a session-id -> live connection index, so <kill-session>
// can reach a connection other than the one it arrived on.
type Dispatcher struct {
	State *ncxd.ServerState
	conns map[int32]*Conn
}

func NewDispatcher(state *ncxd.ServerState) *Dispatcher {
	return &Dispatcher{State: state, conns: make(map[int32]*Conn)}
}

// Dispatch is the eventloop.Dispatcher this server installs.
func (d *Dispatcher) Dispatch(sess eventloop.Conn, pdu interface{}) {
	conn, ok := sess.(*Conn)
	if !ok {
		return
	}
	raw, ok := pdu.([]byte)
	if !ok {
		return
	}
	now := time.Now()

	if !conn.HelloSeen {
		d.handleHello(conn, raw, now)
		return
	}

	req, err := rpc.ParseRequest(raw)
	if err != nil {
		d.send(conn, rpc.NewErrorReply("", listOf(mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))))
		return
	}
	d.send(conn, d.route(conn, req, now))
}

func (d *Dispatcher) send(conn *Conn, reply *rpc.Reply) {
	out, err := xml.Marshal(reply)
	if err != nil {
		d.State.Elog.Printf("marshaling rpc-reply: %v", err)
		return
	}
	conn.Enqueue(out, conn.MaxChunk)
}

func (d *Dispatcher) handleHello(conn *Conn, raw []byte, now time.Time) {
	var hello rpc.Hello
	if err := xml.Unmarshal(raw, &hello); err != nil {
		conn.RequestShutdown()
		return
	}
	base11 := false
	for _, c := range hello.Capabilities {
		if c == "urn:ietf:params:netconf:base:1.1" {
			base11 = true
		}
	}

	sess := d.State.Sessions.Open("netconf-unix", "", now)
	sess.Base11 = base11
	sess.Capabilities = hello.Capabilities
	conn.Session = sess
	conn.HelloSeen = true
	d.conns[sess.ID] = conn

	reply := &rpc.Hello{Capabilities: d.State.Capabilities(base11), SessionID: int(sess.ID)}
	out, err := xml.Marshal(reply)
	if err != nil {
		d.State.Elog.Printf("marshaling hello: %v", err)
		conn.RequestShutdown()
		return
	}
	conn.Enqueue(out, conn.MaxChunk)

	if base11 {
		conn.SetMode(framing.ModeChunked)
	}
	d.State.Dlog.Printf("session %d: hello, base11=%v", sess.ID, base11)
}

func (d *Dispatcher) route(conn *Conn, req *rpc.Request, now time.Time) *rpc.Reply {
	switch req.Operation.Local {
	case "get":
		return d.handleGet(conn, req)
	case "get-config":
		return d.handleGetConfig(conn, req)
	case "edit-config":
		return d.handleEditConfig(conn, req, now)
	case "copy-config":
		return d.handleCopyConfig(conn, req, now)
	case "delete-config":
		return d.handleDeleteConfig(req, now)
	case "lock":
		return d.handleLock(conn, req)
	case "unlock":
		return d.handleUnlock(conn, req)
	case "close-session":
		return d.handleCloseSession(conn, req)
	case "kill-session":
		return d.handleKillSession(conn, req)
	case "commit":
		return d.handleCommit(conn, req, now)
	case "discard-changes":
		return d.handleDiscardChanges(req, now)
	case "cancel-commit":
		return d.handleCancelCommit(req, now)
	case "validate":
		return d.handleValidate(req, now)
	case "create-subscription":
		return d.handleCreateSubscription(conn, req, now)
	case "get-schema":
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagOperationNotSupported,
			"get-schema: raw module source is not retained by this server"))
	case "partial-lock":
		return d.handlePartialLock(conn, req)
	case "partial-unlock":
		return d.handlePartialUnlock(conn, req)
	case "set-log-level":
		return d.handleSetLogLevel(req)
	}
	return errReply(req.MessageID, mgmterror.New(mgmterror.TagOperationNotSupported, "unknown operation "+req.Operation.Local))
}

// --- wire shapes shared across handlers ---

type rawInner struct {
	InnerXML []byte `xml:",innerxml"`
}

// sourceTarget decodes a <source>/<target> element. Config is only ever
// populated when this is a <source> carrying an inline <config> (only
// copy-config allows that), not a datastore name.
type sourceTarget struct {
	Running   *struct{} `xml:"running"`
	Candidate *struct{} `xml:"candidate"`
	Startup   *struct{} `xml:"startup"`
	Config    *rawInner `xml:"config"`
}

func (st sourceTarget) name() (string, error) {
	switch {
	case st.Running != nil:
		return ncxd.DatastoreRunning, nil
	case st.Candidate != nil:
		return ncxd.DatastoreCandidate, nil
	case st.Startup != nil:
		return ncxd.DatastoreStartup, nil
	}
	return "", mgmterror.New(mgmterror.TagMissingElement, "missing source/target datastore")
}

func listOf(e *mgmterror.Error) *mgmterror.List {
	l := &mgmterror.List{}
	l.Add(e)
	return l
}

func errReply(messageID string, err error) *rpc.Reply {
	switch e := err.(type) {
	case *mgmterror.List:
		return rpc.NewErrorReply(messageID, e)
	case *mgmterror.Error:
		return rpc.NewErrorReply(messageID, listOf(e))
	default:
		return rpc.NewErrorReply(messageID, listOf(mgmterror.New(mgmterror.TagOperationFailed, err.Error())))
	}
}

func wrapElement(name string, inner []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<%s>", name)
	buf.Write(inner)
	fmt.Fprintf(&buf, "</%s>", name)
	return buf.Bytes()
}

// parseFilterTree resolves a <filter type="subtree">'s inner XML against
// root, reusing the edit package's wire-node decoder since a filter
// selection node has the same shape as an edit-config payload node (it
// just carries no operation attribute, so OpMerge is passed and ignored).
func parseFilterTree(root *schema.Node, raw []byte) (*valtree.Node, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	top, err := edit.Parse(raw)
	if err != nil {
		return nil, err
	}
	out := valtree.NewNode(root)
	for _, cn := range top.Children {
		cv, err := edit.Build(&cn, root, valtree.OpMerge)
		if err != nil {
			return nil, err
		}
		out.AddChild(cv)
	}
	return out, nil
}

func rootOpFor(o txn.DefaultOperation) valtree.EditOp {
	switch o {
	case txn.DefaultOperationReplace:
		return valtree.OpReplace
	case txn.DefaultOperationNone:
		return valtree.OpNotSet
	}
	return valtree.OpMerge
}

func lockErrToMgmt(err error) *mgmterror.Error {
	if ce, ok := err.(*lock.ConflictError); ok {
		return mgmterror.New(mgmterror.TagLockDenied, ce.Error()).WithInfo("session-id", ce.HolderSessionID)
	}
	return mgmterror.New(mgmterror.TagLockDenied, err.Error())
}

func runningLockHeldByOther(d *Dispatcher, dsName string, conn *Conn) *mgmterror.Error {
	mgr, ok := d.State.Locks[dsName]
	if !ok {
		return nil
	}
	owner := mgr.GlobalOwner()
	if owner == "" || owner == conn.Session.IDStr() {
		return nil
	}
	return mgmterror.New(mgmterror.TagLockDenied, "datastore is locked by another session").
		WithInfo("session-id", owner)
}

// --- get / get-config ---

func (d *Dispatcher) handleGet(conn *Conn, req *rpc.Request) *rpc.Reply {
	var body struct {
		Filter rawInner `xml:"filter"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	return d.renderDatastore(req.MessageID, ncxd.DatastoreRunning, body.Filter.InnerXML)
}

func (d *Dispatcher) handleGetConfig(conn *Conn, req *rpc.Request) *rpc.Reply {
	var body struct {
		Source sourceTarget `xml:"source"`
		Filter  rawInner    `xml:"filter"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	dsName, err := body.Source.name()
	if err != nil {
		return errReply(req.MessageID, err)
	}
	return d.renderDatastore(req.MessageID, dsName, body.Filter.InnerXML)
}

func (d *Dispatcher) renderDatastore(messageID, dsName string, filterXML []byte) *rpc.Reply {
	ds, ok := d.State.Datastores[dsName]
	if !ok {
		return errReply(messageID, mgmterror.New(mgmterror.TagInvalidValue, "no such datastore "+dsName))
	}
	root := d.State.ModelSet.Root()
	filter, err := parseFilterTree(root, filterXML)
	if err != nil {
		return errReply(messageID, err)
	}
	pruned := render.Prune(ds.Root(), filter)
	xmlBytes, err := render.ToXML(pruned)
	if err != nil {
		return errReply(messageID, mgmterror.New(mgmterror.TagOperationFailed, err.Error()))
	}
	return rpc.NewDataReply(messageID, wrapElement("data", xmlBytes))
}

// --- edit-config ---

func (d *Dispatcher) handleEditConfig(conn *Conn, req *rpc.Request, now time.Time) *rpc.Reply {
	var body struct {
		Target           sourceTarget `xml:"target"`
		DefaultOperation string       `xml:"default-operation"`
		TestOption       string       `xml:"test-option"`
		ErrorOption      string       `xml:"error-option"`
		Config           rawInner     `xml:"config"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	dsName, err := body.Target.name()
	if err != nil {
		return errReply(req.MessageID, err)
	}
	if dsName == ncxd.DatastoreRunning {
		if lockErr := runningLockHeldByOther(d, dsName, conn); lockErr != nil {
			return errReply(req.MessageID, lockErr)
		}
	}
	ds, ok := d.State.Datastores[dsName]
	if !ok {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagInvalidValue, "no such datastore "+dsName))
	}

	defOp := txn.DefaultOperationMerge
	if body.DefaultOperation != "" {
		if err := defOp.Set(body.DefaultOperation); err != nil {
			return errReply(req.MessageID, err)
		}
	}
	testOpt := txn.TestThenSet
	if body.TestOption != "" {
		if err := testOpt.Set(body.TestOption); err != nil {
			return errReply(req.MessageID, err)
		}
	}
	errOpt := txn.StopOnError
	if body.ErrorOption != "" {
		if err := errOpt.Set(body.ErrorOption); err != nil {
			return errReply(req.MessageID, err)
		}
	}

	root := d.State.ModelSet.Root()
	delta, err := edit.BuildConfig(body.Config.InnerXML, root, rootOpFor(defOp))
	if err != nil {
		return errReply(req.MessageID, err)
	}

	tx := txn.New(ds, d.State.ModelSet, delta)
	tx.DefaultOp = defOp
	tx.TestOpt = testOpt
	tx.ErrOpt = errOpt
	if err := tx.Run(now); err != nil {
		return errReply(req.MessageID, err)
	}
	return rpc.NewOKReply(req.MessageID)
}

// --- copy-config / delete-config ---

func (d *Dispatcher) handleCopyConfig(conn *Conn, req *rpc.Request, now time.Time) *rpc.Reply {
	var body struct {
		Target sourceTarget `xml:"target"`
		Source sourceTarget `xml:"source"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	targetName, err := body.Target.name()
	if err != nil {
		return errReply(req.MessageID, err)
	}
	if targetName == ncxd.DatastoreRunning {
		if lockErr := runningLockHeldByOther(d, targetName, conn); lockErr != nil {
			return errReply(req.MessageID, lockErr)
		}
	}
	targetDs, ok := d.State.Datastores[targetName]
	if !ok {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagInvalidValue, "no such datastore "+targetName))
	}
	root := d.State.ModelSet.Root()

	if body.Source.Config != nil {
		delta, err := edit.BuildConfig(body.Source.Config.InnerXML, root, valtree.OpReplace)
		if err != nil {
			return errReply(req.MessageID, err)
		}
		tx := txn.New(targetDs, d.State.ModelSet, delta)
		tx.DefaultOp = txn.DefaultOperationReplace
		tx.ErrOpt = txn.StopOnError
		if err := tx.Run(now); err != nil {
			return errReply(req.MessageID, err)
		}
		return rpc.NewOKReply(req.MessageID)
	}

	srcName, err := body.Source.name()
	if err != nil {
		return errReply(req.MessageID, err)
	}
	srcDs, ok := d.State.Datastores[srcName]
	if !ok {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagInvalidValue, "no such datastore "+srcName))
	}
	targetDs.Commit(srcDs.Root().Clone(), now)
	return rpc.NewOKReply(req.MessageID)
}

func (d *Dispatcher) handleDeleteConfig(req *rpc.Request, now time.Time) *rpc.Reply {
	var body struct {
		Target sourceTarget `xml:"target"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	name, err := body.Target.name()
	if err != nil {
		return errReply(req.MessageID, err)
	}
	if name == ncxd.DatastoreRunning {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagOperationNotSupported, "running cannot be deleted"))
	}
	ds, ok := d.State.Datastores[name]
	if !ok {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagInvalidValue, "no such datastore "+name))
	}
	ds.Commit(valtree.NewNode(d.State.ModelSet.Root()), now)
	return rpc.NewOKReply(req.MessageID)
}

// --- lock / unlock / partial-lock / partial-unlock ---

func (d *Dispatcher) handleLock(conn *Conn, req *rpc.Request) *rpc.Reply {
	var body struct {
		Target sourceTarget `xml:"target"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	name, err := body.Target.name()
	if err != nil {
		return errReply(req.MessageID, err)
	}
	mgr, ok := d.State.Locks[name]
	if !ok {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagInvalidValue, "no such datastore "+name))
	}
	if name == ncxd.DatastoreRunning {
		if _, pending := d.State.Confirm.Pending(); pending {
			return errReply(req.MessageID, mgmterror.New(mgmterror.TagLockDenied, "a confirmed commit is pending"))
		}
	}
	if err := mgr.Lock(conn.Session.IDStr()); err != nil {
		return errReply(req.MessageID, lockErrToMgmt(err))
	}
	return rpc.NewOKReply(req.MessageID)
}

func (d *Dispatcher) handleUnlock(conn *Conn, req *rpc.Request) *rpc.Reply {
	var body struct {
		Target sourceTarget `xml:"target"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	name, err := body.Target.name()
	if err != nil {
		return errReply(req.MessageID, err)
	}
	mgr, ok := d.State.Locks[name]
	if !ok {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagInvalidValue, "no such datastore "+name))
	}
	if err := mgr.Unlock(conn.Session.IDStr()); err != nil {
		return errReply(req.MessageID, lockErrToMgmt(err))
	}
	return rpc.NewOKReply(req.MessageID)
}

func (d *Dispatcher) handlePartialLock(conn *Conn, req *rpc.Request) *rpc.Reply {
	var body struct {
		Select []string `xml:"select"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	if len(body.Select) == 0 {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMissingElement, "partial-lock requires at least one select"))
	}
	mgr := d.State.Locks[ncxd.DatastoreRunning]
	p, err := mgr.PartialLock(conn.Session.IDStr(), body.Select)
	if err != nil {
		return errReply(req.MessageID, lockErrToMgmt(err))
	}
	conn.Session.PartialLocks = append(conn.Session.PartialLocks, p.ID)
	return rpc.NewDataReply(req.MessageID, wrapElement("lock-id", []byte(strconv.Itoa(p.ID))))
}

func (d *Dispatcher) handlePartialUnlock(conn *Conn, req *rpc.Request) *rpc.Reply {
	var body struct {
		LockID int `xml:"lock-id"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	mgr := d.State.Locks[ncxd.DatastoreRunning]
	if err := mgr.PartialUnlock(body.LockID, conn.Session.IDStr()); err != nil {
		return errReply(req.MessageID, lockErrToMgmt(err))
	}
	for i, id := range conn.Session.PartialLocks {
		if id == body.LockID {
			conn.Session.PartialLocks = append(conn.Session.PartialLocks[:i], conn.Session.PartialLocks[i+1:]...)
			break
		}
	}
	return rpc.NewOKReply(req.MessageID)
}

// --- session teardown ---

func (d *Dispatcher) handleCloseSession(conn *Conn, req *rpc.Request) *rpc.Reply {
	d.teardownSession(conn)
	conn.RequestShutdown()
	return rpc.NewOKReply(req.MessageID)
}

func (d *Dispatcher) handleKillSession(conn *Conn, req *rpc.Request) *rpc.Reply {
	var body struct {
		SessionID int32 `xml:"session-id"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	if conn.Session != nil && body.SessionID == conn.Session.ID {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagInvalidValue, "a session cannot kill itself"))
	}
	target, ok := d.conns[body.SessionID]
	if !ok {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagOperationFailed, "no such session"))
	}
	d.teardownSession(target)
	target.RequestShutdown()
	return rpc.NewOKReply(req.MessageID)
}

func (d *Dispatcher) teardownSession(conn *Conn) {
	if conn.Session == nil {
		return
	}
	id := conn.Session.IDStr()
	for _, mgr := range d.State.Locks {
		mgr.ReleaseSession(id)
	}
	d.State.Notify.Unsubscribe(id)
	if _, pending := d.State.Confirm.Pending(); pending {
		if p, ok := d.State.Confirm.Pending(); ok && p.SessionID == id {
			d.State.Confirm.Cancel(time.Now())
		}
	}
	delete(d.conns, conn.Session.ID)
	d.State.Sessions.Close(conn.Session.ID)
}

// --- commit / discard-changes / cancel-commit / validate ---

func (d *Dispatcher) handleCommit(conn *Conn, req *rpc.Request, now time.Time) *rpc.Reply {
	var body struct {
		Confirmed      *struct{} `xml:"confirmed"`
		ConfirmTimeout uint32    `xml:"confirm-timeout"`
		Persist        string    `xml:"persist"`
		PersistID      string    `xml:"persist-id"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}

	if lockErr := runningLockHeldByOther(d, ncxd.DatastoreRunning, conn); lockErr != nil {
		return errReply(req.MessageID, lockErr)
	}

	var prior *valtree.Node
	if p, ok := d.State.Confirm.Pending(); ok {
		if body.Confirmed != nil {
			prior = p.Prior // a follow-up confirmed commit keeps the first revert point
		}
		if err := d.State.Confirm.Confirm(body.PersistID); err != nil {
			return errReply(req.MessageID, err)
		}
	}

	candidate := d.State.Datastores[ncxd.DatastoreCandidate]
	running := d.State.Datastores[ncxd.DatastoreRunning]
	if prior == nil {
		prior = running.Root()
	}

	running.Commit(candidate.Root().Clone(), now)

	if body.Confirmed != nil {
		sessionID := conn.Session.IDStr()
		persistID := body.PersistID
		if persistID == "" {
			persistID = body.Persist
		}
		timeout := body.ConfirmTimeout
		if timeout == 0 && d.State.Profile != nil && d.State.Profile.ConfirmTimeout > 0 {
			timeout = uint32(d.State.Profile.ConfirmTimeout)
		}
		d.State.Confirm.Begin(sessionID, persistID, prior, timeout, now, func() {
			d.State.Wlog.Printf("confirmed commit by session %s expired, reverting running", sessionID)
		})
	}
	return rpc.NewOKReply(req.MessageID)
}

func (d *Dispatcher) handleCancelCommit(req *rpc.Request, now time.Time) *rpc.Reply {
	if _, ok := d.State.Confirm.Pending(); !ok {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagOperationFailed, "no confirmed-commit is pending"))
	}
	d.State.Confirm.Cancel(now)
	return rpc.NewOKReply(req.MessageID)
}

func (d *Dispatcher) handleDiscardChanges(req *rpc.Request, now time.Time) *rpc.Reply {
	candidate := d.State.Datastores[ncxd.DatastoreCandidate]
	running := d.State.Datastores[ncxd.DatastoreRunning]
	candidate.Commit(running.Root().Clone(), now)
	return rpc.NewOKReply(req.MessageID)
}

func (d *Dispatcher) handleValidate(req *rpc.Request, now time.Time) *rpc.Reply {
	var body struct {
		Source sourceTarget `xml:"source"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	root := d.State.ModelSet.Root()

	if body.Source.Config != nil {
		scratch := valtree.NewDatastore("validate-scratch", valtree.NewNode(root))
		delta, err := edit.BuildConfig(body.Source.Config.InnerXML, root, valtree.OpReplace)
		if err != nil {
			return errReply(req.MessageID, err)
		}
		tx := txn.New(scratch, d.State.ModelSet, delta)
		tx.DefaultOp = txn.DefaultOperationReplace
		tx.TestOpt = txn.TestOnly
		tx.ErrOpt = txn.StopOnError
		if err := tx.Run(now); err != nil {
			return errReply(req.MessageID, err)
		}
		return rpc.NewOKReply(req.MessageID)
	}

	name, err := body.Source.name()
	if err != nil {
		return errReply(req.MessageID, err)
	}
	ds, ok := d.State.Datastores[name]
	if !ok {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagInvalidValue, "no such datastore "+name))
	}
	tx := txn.New(ds, d.State.ModelSet, valtree.NewNode(root))
	tx.TestOpt = txn.TestOnly
	tx.ErrOpt = txn.StopOnError
	if err := tx.Run(now); err != nil {
		return errReply(req.MessageID, err)
	}
	return rpc.NewOKReply(req.MessageID)
}

// --- create-subscription ---

func (d *Dispatcher) handleCreateSubscription(conn *Conn, req *rpc.Request, now time.Time) *rpc.Reply {
	var body struct {
		Stream    string    `xml:"stream"`
		Filter    *rawInner `xml:"filter"`
		StartTime string    `xml:"startTime"`
		StopTime  string    `xml:"stopTime"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}

	var filter notif.Filter
	if body.Filter != nil {
		tree, err := parseFilterTree(d.State.ModelSet.Root(), body.Filter.InnerXML)
		if err != nil {
			return errReply(req.MessageID, err)
		}
		filter.Subtree = tree
	}

	var start, stop *time.Time
	if body.StartTime != "" {
		t, err := time.Parse(time.RFC3339, body.StartTime)
		if err != nil {
			return errReply(req.MessageID, mgmterror.New(mgmterror.TagBadElement, "invalid startTime"))
		}
		start = &t
	}
	if body.StopTime != "" {
		t, err := time.Parse(time.RFC3339, body.StopTime)
		if err != nil {
			return errReply(req.MessageID, mgmterror.New(mgmterror.TagBadElement, "invalid stopTime"))
		}
		stop = &t
	}

	_, err := d.State.Notify.Subscribe(conn.Session.IDStr(), body.Stream, filter, start, stop, now)
	if err != nil {
		return errReply(req.MessageID, err)
	}
	return rpc.NewOKReply(req.MessageID)
}

// --- set-log-level ---

func (d *Dispatcher) handleSetLogLevel(req *rpc.Request) *rpc.Reply {
	var body struct {
		Level string `xml:"level"`
	}
	if err := xml.Unmarshal(req.Body, &body); err != nil {
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagMalformedMessage, err.Error()))
	}
	switch body.Level {
	case "debug", "info", "warning", "error":
	default:
		return errReply(req.MessageID, mgmterror.New(mgmterror.TagInvalidValue, "unknown log level "+body.Level))
	}
	d.State.Dlog.Printf("log level set to %s", body.Level)
	return rpc.NewOKReply(req.MessageID)
}

// --- notification delivery ---

// connForSessionID resolves a notif.Delivery's string session id back to
// the live connection, bridging the session table's int32 ids and the
// notification engine's string ones (spec.md §4.5 subscriptions are keyed
// the same way locks are).
func (d *Dispatcher) connForSessionID(id string) (*Conn, bool) {
	n, err := strconv.ParseInt(id, 10, 32)
	if err != nil {
		return nil, false
	}
	conn, ok := d.conns[int32(n)]
	return conn, ok
}

// DeliverNotifications drains one Tick's worth of due deliveries from the
// notification engine and enqueues each onto its subscriber's connection
// (spec.md §4.5 "Per-event delivery"). Installed as the event loop's
// OnTick.
func (d *Dispatcher) DeliverNotifications(now time.Time, maxBurst int) {
	for _, dl := range d.State.Notify.Tick(now, maxBurst) {
		conn, ok := d.connForSessionID(dl.SessionID)
		if !ok {
			continue
		}
		switch dl.Kind {
		case notif.DeliveryData:
			d.enqueueNotification(conn, dl.Event)
		case notif.DeliveryReplayComplete:
			d.enqueueBareEvent(conn, "replayComplete", now)
		case notif.DeliveryNotificationComplete:
			d.enqueueBareEvent(conn, "notificationComplete", now)
		}
	}
}

func (d *Dispatcher) enqueueNotification(conn *Conn, ev *notif.Event) {
	wrapper := valtree.NewNode(nil)
	wrapper.AddChild(ev.Payload)
	body, err := render.ToXML(wrapper)
	if err != nil {
		d.State.Elog.Printf("rendering notification payload: %v", err)
		return
	}
	out, err := xml.Marshal(&rpc.Notification{
		EventTime: ev.Time.Format(time.RFC3339),
		Event:     body,
	})
	if err != nil {
		d.State.Elog.Printf("marshaling notification: %v", err)
		return
	}
	conn.Enqueue(out, conn.MaxChunk)
}

// enqueueBareEvent sends a <replayComplete/> or <notificationComplete/>
// signal element (RFC 5277 §2.4.3/§3.3) as a notification whose only child
// is that empty element, with the current time as its eventTime.
func (d *Dispatcher) enqueueBareEvent(conn *Conn, local string, now time.Time) {
	out, err := xml.Marshal(&rpc.Notification{
		EventTime: now.Format(time.RFC3339),
		Event:     []byte(fmt.Sprintf("<%s/>", local)),
	})
	if err != nil {
		d.State.Elog.Printf("marshaling %s: %v", local, err)
		return
	}
	conn.Enqueue(out, conn.MaxChunk)
}
