// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package notif

import (
	"testing"
	"time"

	"github.com/danos/ncxd/mgmterror"
)

func TestSubscribeUnknownStreamIsNotFound(t *testing.T) {
	e := NewEngine(16)
	_, err := e.Subscribe("sess1", "bogus", Filter{}, nil, nil, time.Now())
	assertTag(t, err, mgmterror.TagNotFound)
}

func TestSubscribeStopTimeWithoutStartTimeIsMissingElement(t *testing.T) {
	e := NewEngine(16)
	now := time.Now()
	stop := now.Add(time.Minute)
	_, err := e.Subscribe("sess1", "", Filter{}, nil, &stop, now)
	assertTag(t, err, mgmterror.TagMissingElement)
}

func TestSubscribeFutureStartTimeIsBadElement(t *testing.T) {
	e := NewEngine(16)
	now := time.Now()
	start := now.Add(time.Minute)
	_, err := e.Subscribe("sess1", "", Filter{}, &start, nil, now)
	assertTag(t, err, mgmterror.TagBadElement)
}

func TestSubscribeStopBeforeStartIsBadElement(t *testing.T) {
	e := NewEngine(16)
	now := time.Now()
	start := now.Add(-time.Minute)
	stop := start.Add(-time.Second)
	_, err := e.Subscribe("sess1", "", Filter{}, &start, &stop, now)
	assertTag(t, err, mgmterror.TagBadElement)
}

func TestSubscribeSecondForSameSessionIsInUse(t *testing.T) {
	e := NewEngine(16)
	now := time.Now()
	if _, err := e.Subscribe("sess1", "", Filter{}, nil, nil, now); err != nil {
		t.Fatalf("first subscribe should succeed: %v", err)
	}
	_, err := e.Subscribe("sess1", "", Filter{}, nil, nil, now)
	assertTag(t, err, mgmterror.TagInUse)
}

func TestSubscribeDefaultsToNetconfStreamAndGoesLive(t *testing.T) {
	e := NewEngine(16)
	sub, err := e.Subscribe("sess1", "", Filter{}, nil, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Stream != DefaultStream {
		t.Fatalf("expected default stream, got %q", sub.Stream)
	}
	if sub.State != StateLive {
		t.Fatalf("expected live, got %s", sub.State)
	}
}

func TestPublishThenTickDeliversToLiveSubscription(t *testing.T) {
	e := NewEngine(16)
	now := time.Now()
	if _, err := e.Subscribe("sess1", "", Filter{}, nil, nil, now); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	e.Publish(DefaultStream, eventPayload("eth0-up"), now.Add(time.Second))

	deliveries := e.Tick(now.Add(2*time.Second), 10)
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
	if deliveries[0].Kind != DeliveryData {
		t.Fatalf("expected data delivery, got kind %d", deliveries[0].Kind)
	}

	if more := e.Tick(now.Add(3*time.Second), 10); len(more) != 0 {
		t.Fatalf("expected no redelivery on subsequent tick, got %d", len(more))
	}
}

func TestTickCapsDeliveriesAtMaxBurst(t *testing.T) {
	e := NewEngine(16)
	now := time.Now()
	for i := 0; i < 3; i++ {
		sessionID := string(rune('a' + i))
		if _, err := e.Subscribe(sessionID, "", Filter{}, nil, nil, now); err != nil {
			t.Fatalf("subscribe %d failed: %v", i, err)
		}
	}
	e.Publish(DefaultStream, eventPayload("x"), now.Add(time.Second))

	deliveries := e.Tick(now.Add(2*time.Second), 2)
	if len(deliveries) != 2 {
		t.Fatalf("expected burst cap of 2, got %d", len(deliveries))
	}
}

// TestTickAlreadyPastStopTimeStillSendsReplayCompleteFirst covers spec.md
// §8 scenario 3: a subscription whose startTime and stopTime are both
// already in the past at creation must still see replayComplete before
// notificationComplete, across two ticks, never collapsed into one.
func TestTickAlreadyPastStopTimeStillSendsReplayCompleteFirst(t *testing.T) {
	e := NewEngine(16)
	now := time.Now()
	e.Log.Append(DefaultStream, eventPayload("old"), now.Add(-2*time.Minute))

	start := now.Add(-3 * time.Minute)
	stop := now.Add(-time.Minute)
	if _, err := e.Subscribe("sess1", "", Filter{}, &start, &stop, now); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	first := e.Tick(now, 10)
	if len(first) != 2 {
		t.Fatalf("expected a data delivery plus replayComplete, got %d: %+v", len(first), first)
	}
	if first[0].Kind != DeliveryData {
		t.Fatalf("expected first delivery to be the replayed event, got kind %d", first[0].Kind)
	}
	if first[1].Kind != DeliveryReplayComplete {
		t.Fatalf("expected second delivery to be replayComplete, got kind %d", first[1].Kind)
	}

	second := e.Tick(now, 10)
	if len(second) != 1 || second[0].Kind != DeliveryNotificationComplete {
		t.Fatalf("expected notificationComplete on the following tick, got %+v", second)
	}

	if _, ok := e.Subscription("sess1"); ok {
		t.Fatalf("expected subscription to be removed after notificationComplete")
	}
}

func TestUnsubscribeRemovesSubscription(t *testing.T) {
	e := NewEngine(16)
	now := time.Now()
	e.Subscribe("sess1", "", Filter{}, nil, nil, now)
	e.Unsubscribe("sess1")
	if _, ok := e.Subscription("sess1"); ok {
		t.Fatalf("expected subscription to be removed")
	}
}

func assertTag(t *testing.T, err error, want mgmterror.Tag) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with tag %s, got nil", want)
	}
	me, ok := err.(*mgmterror.Error)
	if !ok {
		t.Fatalf("expected *mgmterror.Error, got %T", err)
	}
	if me.Tag != want {
		t.Fatalf("expected tag %s, got %s", want, me.Tag)
	}
}
