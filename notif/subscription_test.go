// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package notif

import (
	"testing"
	"time"
)

func TestSubscriptionEnterNoStartTimeGoesLive(t *testing.T) {
	log := NewReplayLog(10)
	sub := &Subscription{}
	sub.enter(log, time.Now())
	if sub.State != StateLive {
		t.Fatalf("expected live, got %s", sub.State)
	}
}

func TestSubscriptionEnterPastStartTimeGoesReplay(t *testing.T) {
	log := NewReplayLog(10)
	now := time.Now()
	log.Append("NETCONF", eventPayload("a"), now.Add(-time.Minute))

	start := now.Add(-2 * time.Minute)
	sub := &Subscription{StartTime: &start}
	sub.enter(log, now)
	if sub.State != StateReplay {
		t.Fatalf("expected replay, got %s", sub.State)
	}
	if len(sub.replayQueue) != 1 {
		t.Fatalf("expected 1 queued replay event, got %d", len(sub.replayQueue))
	}
}

func TestSubscriptionReplayDrainsThenGoesLiveWithoutStopTime(t *testing.T) {
	log := NewReplayLog(10)
	now := time.Now()
	log.Append("NETCONF", eventPayload("a"), now.Add(-time.Minute))

	start := now.Add(-2 * time.Minute)
	sub := &Subscription{StartTime: &start}
	sub.enter(log, now)

	ev, sig := sub.advanceReplay(now)
	if ev == nil {
		t.Fatalf("expected the queued event to be delivered")
	}
	if sig != signalReplayComplete {
		t.Fatalf("expected replayComplete signal, got %d", sig)
	}
	if sub.State != StateLive {
		t.Fatalf("expected live after replay drains with no stopTime, got %s", sub.State)
	}
}

// TestSubscriptionReplayDrainsThenShutsDownWhenStopTimePast covers a
// subscription whose stopTime has already passed by the time replay
// drains. replayComplete still fires on its own tick; notificationComplete
// only follows on a later tick, once checkTimedExpiry next observes the
// already-past stopTime (spec.md §8 scenario 3).
func TestSubscriptionReplayDrainsThenShutsDownWhenStopTimePast(t *testing.T) {
	log := NewReplayLog(10)
	now := time.Now()

	start := now.Add(-2 * time.Minute)
	stop := now.Add(-time.Minute)
	sub := &Subscription{StartTime: &start, StopTime: &stop}
	sub.enter(log, now)

	_, sig := sub.advanceReplay(now)
	if sig != signalReplayComplete {
		t.Fatalf("expected replayComplete signal, got %d", sig)
	}
	if sub.State != StateTimed {
		t.Fatalf("expected timed (shutdown deferred to the next tick), got %s", sub.State)
	}

	if !sub.checkTimedExpiry(now) {
		t.Fatalf("expected expiry on the next tick since stopTime already passed")
	}
	if sub.State != StateShutdown {
		t.Fatalf("expected shutdown after expiry, got %s", sub.State)
	}
}

func TestSubscriptionReplayDrainsThenTimedWhenStopTimeFuture(t *testing.T) {
	log := NewReplayLog(10)
	now := time.Now()

	start := now.Add(-2 * time.Minute)
	stop := now.Add(time.Hour)
	sub := &Subscription{StartTime: &start, StopTime: &stop}
	sub.enter(log, now)

	_, sig := sub.advanceReplay(now)
	if sig != signalReplayComplete {
		t.Fatalf("expected replayComplete signal, got %d", sig)
	}
	if sub.State != StateTimed {
		t.Fatalf("expected timed, got %s", sub.State)
	}

	if sub.checkTimedExpiry(now) {
		t.Fatalf("should not expire before stopTime")
	}
	if !sub.checkTimedExpiry(stop.Add(time.Second)) {
		t.Fatalf("expected expiry once stopTime has passed")
	}
	if sub.State != StateShutdown {
		t.Fatalf("expected shutdown after expiry, got %s", sub.State)
	}
}
