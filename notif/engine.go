// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package notif

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danos/ncxd/mgmterror"
	"github.com/danos/ncxd/valtree"
)

// DefaultStream is the only stream name every server must support (spec.md
// §6 "stream (default NETCONF)").
const DefaultStream = "NETCONF"

// Engine owns the replay log and every live subscription (spec.md §4.5).
// It is single-threaded by contract (spec.md §5 "owned by this task"); the
// mutex here only guards against tests exercising it from multiple
// goroutines, not genuine concurrent access from the event loop.
type Engine struct {
	mu      sync.Mutex
	Log     *ReplayLog
	subs    map[string]*Subscription // by session id: at most one each
	streams map[string]bool
}

func NewEngine(eventlogSize int) *Engine {
	return &Engine{
		Log:     NewReplayLog(eventlogSize),
		subs:    make(map[string]*Subscription),
		streams: map[string]bool{DefaultStream: true},
	}
}

// RegisterStream adds a recognized stream name beyond the mandatory
// "NETCONF" (e.g. a module-defined notification stream).
func (e *Engine) RegisterStream(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.streams[name] = true
}

// Subscribe validates and installs a create-subscription, per the
// parameter rules of spec.md §6.
func (e *Engine) Subscribe(sessionID, stream string, filter Filter, start, stop *time.Time, now time.Time) (*Subscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.subs[sessionID]; exists {
		return nil, mgmterror.New(mgmterror.TagInUse, "session already has an active subscription")
	}
	if stream == "" {
		stream = DefaultStream
	}
	if !e.streams[stream] {
		return nil, mgmterror.New(mgmterror.TagNotFound, "unknown stream "+stream)
	}
	if stop != nil && start == nil {
		return nil, mgmterror.New(mgmterror.TagMissingElement, "stopTime requires startTime")
	}
	if start != nil && start.After(now) {
		return nil, mgmterror.New(mgmterror.TagBadElement, "startTime is in the future")
	}
	if start != nil && stop != nil && stop.Before(*start) {
		return nil, mgmterror.New(mgmterror.TagBadElement, "stopTime is before startTime")
	}

	sub := &Subscription{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Stream:    stream,
		Filter:    filter,
		StartTime: start,
		StopTime:  stop,
		State:     StateInit,
	}
	sub.enter(e.Log, now)
	e.subs[sessionID] = sub
	return sub, nil
}

// Unsubscribe removes a session's subscription, e.g. on session close
// (spec.md §4.5 "shutdown: remove subscription, free resources").
func (e *Engine) Unsubscribe(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, sessionID)
}

// Publish appends an event to the replay log — the sink for a commit's
// sysConfigChange (spec.md §5 "queued after all commit callbacks return")
// or any other event source.
func (e *Engine) Publish(stream string, payload *valtree.Node, now time.Time) *Event {
	return e.Log.Append(stream, payload, now)
}

// Delivery is one message the event loop must write to a session's
// out-queue.
type Delivery struct {
	SessionID string
	Kind      DeliveryKind
	Event     *Event // nil for ReplayComplete/NotificationComplete
}

type DeliveryKind int

const (
	DeliveryData DeliveryKind = iota
	DeliveryReplayComplete
	DeliveryNotificationComplete
)

// Tick advances every subscription by at most one event each, capped at
// maxBurst deliveries total (spec.md §4.5 "Per-event delivery"), and drops
// any subscription that reaches shutdown.
func (e *Engine) Tick(now time.Time, maxBurst int) []Delivery {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Delivery
	var toRemove []string

	for sessionID, sub := range e.subs {
		if len(out) >= maxBurst {
			break
		}
		switch sub.State {
		case StateReplay:
			ev, sig := sub.advanceReplay(now)
			if ev != nil {
				out = append(out, Delivery{SessionID: sessionID, Kind: DeliveryData, Event: ev})
			}
			switch sig {
			case signalReplayComplete:
				out = append(out, Delivery{SessionID: sessionID, Kind: DeliveryReplayComplete})
			case signalNotificationComplete:
				out = append(out, Delivery{SessionID: sessionID, Kind: DeliveryNotificationComplete})
				toRemove = append(toRemove, sessionID)
			}
		case StateLive, StateTimed:
			if sub.checkTimedExpiry(now) {
				out = append(out, Delivery{SessionID: sessionID, Kind: DeliveryNotificationComplete})
				toRemove = append(toRemove, sessionID)
				continue
			}
			ev := e.nextLiveEvent(sub)
			if ev != nil {
				out = append(out, Delivery{SessionID: sessionID, Kind: DeliveryData, Event: ev})
			}
		}
	}
	for _, id := range toRemove {
		delete(e.subs, id)
	}
	return out
}

// nextLiveEvent returns the oldest retained event newer than the
// subscription's last-delivered id that passes its filter, reseating the
// back-pointer to the log's oldest surviving id if the prior one was
// evicted (spec.md §4.5 "Replay log retention").
func (e *Engine) nextLiveEvent(sub *Subscription) *Event {
	candidates := e.Log.Since(time.Time{}, nil)
	for _, ev := range candidates {
		if ev.MessageID <= sub.LastDeliveredID {
			continue
		}
		ok, err := sub.Filter.Match(ev.Payload)
		if err != nil || !ok {
			sub.LastDeliveredID = ev.MessageID
			continue
		}
		sub.LastDeliveredID = ev.MessageID
		return ev
	}
	return nil
}

// Subscription returns a session's active subscription, if any.
func (e *Engine) Subscription(sessionID string) (*Subscription, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.subs[sessionID]
	return s, ok
}
