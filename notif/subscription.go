// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package notif

import "time"

// State is one position in the subscription state machine of spec.md
// §4.5.
type State int

const (
	StateInit State = iota
	StateReplay
	StateTimed
	StateLive
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReplay:
		return "replay"
	case StateTimed:
		return "timed"
	case StateLive:
		return "live"
	case StateShutdown:
		return "shutdown"
	}
	return "unknown"
}

// Subscription is one RFC 5277 create-subscription (spec.md §4.5/§6). A
// session holds at most one.
type Subscription struct {
	ID        string
	SessionID string
	Stream    string
	Filter    Filter
	StartTime *time.Time
	StopTime  *time.Time

	State State

	// replayQueue holds the still-undelivered replay-log events, oldest
	// first, while State == StateReplay.
	replayQueue []*Event

	// LastDeliveredID is both a message-id and a back-pointer into the
	// replay log (spec.md §4.5 "last-delivered pointer"); it survives log
	// eviction because it's a plain id, not a pointer into the slice.
	LastDeliveredID uint64
}

// enter runs the init transition of spec.md §4.5: into replay if
// startTime is set and not in the future, otherwise straight to live.
func (s *Subscription) enter(log *ReplayLog, now time.Time) {
	if s.StartTime != nil && !s.StartTime.After(now) {
		s.State = StateReplay
		s.replayQueue = log.Since(*s.StartTime, s.StopTime)
		return
	}
	s.State = StateLive
}

// advanceReplay pops one event per call (the event-loop tick's "at most
// one event per subscription" rule); when the queue drains it runs the
// replay-exhausted transition (replayComplete, then live or timed
// depending on whether a stopTime is set).
func (s *Subscription) advanceReplay(now time.Time) (*Event, replaySignal) {
	if len(s.replayQueue) > 0 {
		ev := s.replayQueue[0]
		s.replayQueue = s.replayQueue[1:]
		s.LastDeliveredID = ev.MessageID
		if len(s.replayQueue) == 0 {
			return ev, s.afterReplayExhausted(now)
		}
		return ev, signalNone
	}
	return nil, s.afterReplayExhausted(now)
}

type replaySignal int

const (
	signalNone replaySignal = iota
	signalReplayComplete
	signalNotificationComplete
)

// afterReplayExhausted always signals replayComplete first, even when
// stopTime has already passed: per the original agent's state machine
// (agt_not.c), replayComplete is sent and flagged done on its own tick,
// and notificationComplete only follows on a later tick once stopTime's
// already-past expiry is next checked (checkTimedExpiry).
func (s *Subscription) afterReplayExhausted(now time.Time) replaySignal {
	if s.StopTime == nil {
		s.State = StateLive
		return signalReplayComplete
	}
	s.State = StateTimed
	return signalReplayComplete
}

// checkTimedExpiry transitions a StateTimed subscription to shutdown once
// stopTime has passed; called once per tick for live/timed subscriptions.
func (s *Subscription) checkTimedExpiry(now time.Time) bool {
	if s.State == StateTimed && s.StopTime != nil && !s.StopTime.After(now) {
		s.State = StateShutdown
		return true
	}
	return false
}
