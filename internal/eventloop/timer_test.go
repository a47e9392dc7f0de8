// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package eventloop

import (
	"testing"
	"time"
)

func TestTimerTableOneShotFiresOnceAndIsRemoved(t *testing.T) {
	tt := NewTimerTable()
	now := time.Now()
	fired := 0
	tt.AfterFunc("hello-timeout", time.Second, now, func(time.Time) { fired++ })

	tt.Fire(now) // not yet due
	if fired != 0 {
		t.Fatalf("expected no fire before due time, got %d", fired)
	}

	tt.Fire(now.Add(2 * time.Second))
	if fired != 1 {
		t.Fatalf("expected exactly 1 fire, got %d", fired)
	}

	tt.Fire(now.Add(3 * time.Second))
	if fired != 1 {
		t.Fatalf("expected one-shot timer not to refire, got %d", fired)
	}
}

func TestTimerTablePeriodicReschedules(t *testing.T) {
	tt := NewTimerTable()
	now := time.Now()
	fired := 0
	tt.Every("idle-sweep", time.Second, now, func(time.Time) { fired++ })

	tt.Fire(now.Add(time.Second))
	tt.Fire(now.Add(2 * time.Second))
	tt.Fire(now.Add(3 * time.Second))
	if fired != 3 {
		t.Fatalf("expected periodic timer to fire 3 times, got %d", fired)
	}
}

func TestTimerTableCancelStopsFiring(t *testing.T) {
	tt := NewTimerTable()
	now := time.Now()
	fired := 0
	h := tt.Every("idle-sweep", time.Second, now, func(time.Time) { fired++ })

	tt.Fire(now.Add(time.Second))
	h.Cancel()
	tt.Fire(now.Add(2 * time.Second))
	if fired != 1 {
		t.Fatalf("expected cancel to stop further fires, got %d", fired)
	}
}

func TestTimerTableNextFireInCapsAtMax(t *testing.T) {
	tt := NewTimerTable()
	now := time.Now()
	tt.AfterFunc("far-off", time.Hour, now, func(time.Time) {})

	d := tt.NextFireIn(now, time.Second)
	if d != time.Second {
		t.Fatalf("expected cap at max wait of 1s, got %v", d)
	}
}

func TestTimerTableNextFireInReportsSoonestTimer(t *testing.T) {
	tt := NewTimerTable()
	now := time.Now()
	tt.AfterFunc("slow", 900*time.Millisecond, now, func(time.Time) {})
	tt.AfterFunc("fast", 100*time.Millisecond, now, func(time.Time) {})

	d := tt.NextFireIn(now, time.Second)
	if d > 150*time.Millisecond {
		t.Fatalf("expected soonest timer (~100ms) to dominate, got %v", d)
	}
}
