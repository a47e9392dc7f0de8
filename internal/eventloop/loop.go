// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package eventloop

import (
	"log"
	"time"
)

// KillReason explains why a session was removed from the loop.
type KillReason int

const (
	ReasonOther KillReason = iota
	ReasonDropped
	ReasonTimeout
	ReasonShutdownReq
)

func (r KillReason) String() string {
	switch r {
	case ReasonDropped:
		return "DROPPED"
	case ReasonTimeout:
		return "TIMEOUT"
	case ReasonShutdownReq:
		return "SHUTDOWN_REQ"
	}
	return "OTHER"
}

// Conn is one open descriptor the loop multiplexes: an accepted session
// connection, or the listener itself.
type Conn interface {
	Fd() int

	// WantWrite reports whether the descriptor currently has an
	// out-queue to drain (spec.md §4.6 "write-set").
	WantWrite() bool

	// WriteReady writes one packet's worth of bytes. done is true once
	// the out-queue is fully drained; shutdown is true if the session
	// requested termination after this write (SHUTDOWN_REQ).
	WriteReady() (done, shutdown bool, err error)

	// ReadReady consumes available bytes, parsing as many complete PDUs
	// as are available; pdus holds their opaque payloads in arrival
	// order. closed is true on EOF/hangup.
	ReadReady() (pdus []interface{}, closed bool, err error)

	// LastActivity reports the time of the last complete PDU received,
	// for idle-timeout enforcement.
	LastActivity() time.Time
}

// Listener is the loop's accept-capable descriptor.
type Listener interface {
	Conn
	Accept() (Conn, error)
}

// Dispatcher processes one fully-parsed PDU from a session, e.g. routing
// it to the rpc/session layer. It runs on the main task and must not
// block (spec.md §5).
type Dispatcher func(sess Conn, pdu interface{})

// Loop is the readiness-based multiplexer of spec.md §4.6.
type Loop struct {
	poller   *Poller
	listener Listener
	sessions map[int]Conn
	timers   *TimerTable
	ready    []readyItem
	shutdown bool

	HelloTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBurst     int
	WaitTimeout  time.Duration // ≤ 1 second, spec.md §4.6 "Cancellation"

	Dispatch Dispatcher
	// OnTick runs after every iteration's ready queue drains, regardless
	// of how many events fired — e.g. notification delivery (spec.md
	// §4.6 step 5), which must interleave with ordinary traffic rather
	// than wait for an idle poll.
	OnTick func(now time.Time)
	Log    *log.Logger
}

type readyItem struct {
	sess Conn
	pdu  interface{}
}

func NewLoop(l Listener, dispatch Dispatcher) (*Loop, error) {
	p, err := NewPoller()
	if err != nil {
		return nil, err
	}
	lp := &Loop{
		poller:      p,
		listener:    l,
		sessions:    make(map[int]Conn),
		timers:      NewTimerTable(),
		Dispatch:    dispatch,
		WaitTimeout: time.Second,
		Log:         log.Default(),
	}
	if err := SetNonblocking(l.Fd()); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.Add(l.Fd(), false); err != nil {
		p.Close()
		return nil, err
	}
	return lp, nil
}

func (lp *Loop) Timers() *TimerTable { return lp.timers }

// RequestShutdown sets the process-wide shutdown flag (spec.md §4.6
// "Cancellation"): the loop finishes the current iteration's writes then
// exits.
func (lp *Loop) RequestShutdown() { lp.shutdown = true }

// Run executes the loop until RequestShutdown is called or the poller
// fails. now is re-evaluated by the caller each iteration via nowFn so
// tests can drive a fake clock.
func (lp *Loop) Run(nowFn func() time.Time) error {
	for !lp.shutdown {
		now := nowFn()
		timeout := lp.timers.NextFireIn(now, lp.WaitTimeout)
		events, err := lp.poller.Wait(int(timeout / time.Millisecond))
		if err != nil {
			return err
		}
		now = nowFn()

		if len(events) == 0 {
			lp.fireTimeoutWork(now)
		}
		for _, ev := range events {
			lp.handleEvent(ev, now)
		}

		lp.drainReady()
		if lp.shutdown {
			break
		}
		if lp.OnTick != nil {
			lp.OnTick(now)
		}
	}
	return nil
}

func (lp *Loop) handleEvent(ev Event, now time.Time) {
	if ev.Fd == lp.listener.Fd() {
		lp.acceptNew()
		return
	}
	sess, ok := lp.sessions[ev.Fd]
	if !ok {
		return
	}
	if ev.Writable && sess.WantWrite() {
		done, shutdownReq, err := sess.WriteReady()
		if err != nil {
			lp.kill(sess, ReasonOther)
			return
		}
		if done && shutdownReq {
			lp.kill(sess, ReasonShutdownReq)
			return
		}
	}
	if ev.Readable {
		pdus, closed, err := sess.ReadReady()
		for _, pdu := range pdus {
			lp.ready = append(lp.ready, readyItem{sess: sess, pdu: pdu})
		}
		if closed {
			lp.kill(sess, ReasonDropped)
			return
		}
		if err != nil {
			lp.kill(sess, ReasonOther)
			return
		}
	}
	if ev.Hangup {
		lp.kill(sess, ReasonDropped)
	}
}

func (lp *Loop) acceptNew() {
	conn, err := lp.listener.Accept()
	if err != nil {
		if lp.Log != nil {
			lp.Log.Printf("accept: %v", err)
		}
		return
	}
	if err := SetNonblocking(conn.Fd()); err != nil {
		lp.kill(conn, ReasonOther)
		return
	}
	if err := lp.poller.Add(conn.Fd(), conn.WantWrite()); err != nil {
		lp.kill(conn, ReasonOther)
		return
	}
	lp.sessions[conn.Fd()] = conn
}

func (lp *Loop) kill(c Conn, reason KillReason) {
	lp.poller.Remove(c.Fd())
	delete(lp.sessions, c.Fd())
	if lp.Log != nil {
		lp.Log.Printf("session fd=%d killed: %s", c.Fd(), reason)
	}
}

// fireTimeoutWork runs the timer table and idle-session eviction; it only
// runs when Wait returned with nothing ready, since it has nothing to do
// otherwise. Unlike OnTick (see Run), it is not needed every iteration.
func (lp *Loop) fireTimeoutWork(now time.Time) {
	lp.timers.Fire(now)
	for fd, sess := range lp.sessions {
		if lp.IdleTimeout > 0 && now.Sub(sess.LastActivity()) > lp.IdleTimeout {
			lp.kill(sess, ReasonTimeout)
			delete(lp.sessions, fd)
		}
	}
}

// drainReady processes every fully-parsed PDU queued this iteration
// (spec.md §4.6 step 5), stopping early if shutdown was requested
// mid-drain. A dispatch can enqueue a reply on the session it was called
// with, or — e.g. <kill-session> — on an unrelated session, so write
// interest is resynced against every open session afterward rather than
// just the one a PDU arrived on.
func (lp *Loop) drainReady() {
	for len(lp.ready) > 0 && !lp.shutdown {
		item := lp.ready[0]
		lp.ready = lp.ready[1:]
		if lp.Dispatch != nil {
			lp.Dispatch(item.sess, item.pdu)
		}
	}
	for _, sess := range lp.sessions {
		lp.poller.Modify(sess.Fd(), sess.WantWrite())
	}
}
