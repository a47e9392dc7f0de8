// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package notif implements the notification engine of spec.md §4.5: the
// per-subscription state machine, a bounded replay log, and subtree/XPath
// filter evaluation.
package notif

import (
	"sync"
	"time"

	"github.com/danos/ncxd/valtree"
)

// Event is one notification instance, appended to the replay log through
// Engine.Publish. The server's commit handling does not publish a
// sysConfigChange event.
type Event struct {
	MessageID uint64
	Stream    string
	Time      time.Time
	Payload   *valtree.Node
}

// ReplayLog is the bounded FIFO of spec.md §4.5 "Replay log retention": if
// capacity is 0, events are discarded immediately after delivery to all
// then-active subscriptions (Append still assigns a message id and the
// caller is expected to deliver before the next Append); otherwise the log
// holds up to capacity entries, discarding the oldest on overflow.
type ReplayLog struct {
	mu       sync.Mutex
	capacity int
	events   []*Event
	nextID   uint64
}

func NewReplayLog(capacity int) *ReplayLog {
	return &ReplayLog{capacity: capacity}
}

// Append assigns the next monotonic message id and stores the event,
// evicting the oldest entry if the log is at capacity. It returns the
// stored event (capacity 0 still returns it, for immediate delivery, but
// Snapshot/Since will never see it again).
func (l *ReplayLog) Append(stream string, payload *valtree.Node, now time.Time) *Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	ev := &Event{MessageID: l.nextID, Stream: stream, Time: now, Payload: payload}
	if l.capacity <= 0 {
		return ev
	}
	l.events = append(l.events, ev)
	if len(l.events) > l.capacity {
		l.events = l.events[1:]
	}
	return ev
}

// Since returns every retained event with Time >= start (and, if stop is
// non-nil, Time <= *stop), oldest first — the replay-phase delivery order
// of spec.md §4.5.
func (l *ReplayLog) Since(start time.Time, stop *time.Time) []*Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Event
	for _, ev := range l.events {
		if ev.Time.Before(start) {
			continue
		}
		if stop != nil && ev.Time.After(*stop) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Find locates a retained event by message id, for reseating a
// subscription's back-pointer (spec.md §4.5).
func (l *ReplayLog) Find(id uint64) (*Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if ev.MessageID == id {
			return ev, true
		}
	}
	return nil, false
}

// Oldest reports the message id of the oldest retained event, or ok=false
// if the log is empty — used to reseat a subscription whose back-pointer
// fell off the front of the FIFO.
func (l *ReplayLog) Oldest() (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return 0, false
	}
	return l.events[0].MessageID, true
}
