// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package notif

import (
	"testing"
	"time"

	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/valtree"
)

func eventPayload(name string) *valtree.Node {
	sn := schema.NewNode("m", name, schema.Container)
	return valtree.NewNode(sn)
}

func TestReplayLogEvictsOldestOnOverflow(t *testing.T) {
	log := NewReplayLog(2)
	now := time.Now()

	first := log.Append("NETCONF", eventPayload("a"), now)
	log.Append("NETCONF", eventPayload("b"), now.Add(time.Second))
	log.Append("NETCONF", eventPayload("c"), now.Add(2*time.Second))

	if _, ok := log.Find(first.MessageID); ok {
		t.Fatalf("expected oldest event to be evicted")
	}
	oldest, ok := log.Oldest()
	if !ok {
		t.Fatalf("expected log to be non-empty")
	}
	if oldest != first.MessageID+1 {
		t.Fatalf("expected oldest id %d, got %d", first.MessageID+1, oldest)
	}
}

func TestReplayLogMessageIDsAreMonotonicAcrossEviction(t *testing.T) {
	log := NewReplayLog(1)
	now := time.Now()

	var last uint64
	for i := 0; i < 5; i++ {
		ev := log.Append("NETCONF", eventPayload("x"), now.Add(time.Duration(i)*time.Second))
		if ev.MessageID <= last {
			t.Fatalf("message ids must be strictly increasing, got %d after %d", ev.MessageID, last)
		}
		last = ev.MessageID
	}
}

func TestReplayLogSinceOrdersOldestFirstAndRespectsStop(t *testing.T) {
	log := NewReplayLog(10)
	base := time.Now()

	log.Append("NETCONF", eventPayload("a"), base)
	log.Append("NETCONF", eventPayload("b"), base.Add(time.Second))
	log.Append("NETCONF", eventPayload("c"), base.Add(2*time.Second))

	stop := base.Add(time.Second)
	got := log.Since(base, &stop)
	if len(got) != 2 {
		t.Fatalf("expected 2 events within stop bound, got %d", len(got))
	}
	if got[0].MessageID != 1 || got[1].MessageID != 2 {
		t.Fatalf("expected oldest-first order, got %d, %d", got[0].MessageID, got[1].MessageID)
	}
}

func TestReplayLogZeroCapacityDoesNotRetain(t *testing.T) {
	log := NewReplayLog(0)
	now := time.Now()

	ev := log.Append("NETCONF", eventPayload("a"), now)
	if ev == nil {
		t.Fatalf("expected Append to still assign and return an event")
	}
	if _, ok := log.Oldest(); ok {
		t.Fatalf("expected zero-capacity log to retain nothing")
	}
}
