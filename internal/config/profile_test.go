// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProfile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ncxd.ini")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing test profile: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeProfile(t, `
[server]
socket = /tmp/ncxd-test.sock
hello-timeout = 5s
data-dir = /tmp/ncxd-data

[notifications]
eventlog-size = 256
max-burst = 8

[commit]
confirm-timeout = 120
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.SocketPath != "/tmp/ncxd-test.sock" {
		t.Errorf("unexpected socket path %q", p.SocketPath)
	}
	if p.HelloTimeout != 5*time.Second {
		t.Errorf("unexpected hello timeout %v", p.HelloTimeout)
	}
	if p.EventlogSize != 256 {
		t.Errorf("unexpected eventlog size %d", p.EventlogSize)
	}
	if p.MaxBurst != 8 {
		t.Errorf("unexpected max burst %d", p.MaxBurst)
	}
	if p.ConfirmTimeout != 120 {
		t.Errorf("unexpected confirm timeout %d", p.ConfirmTimeout)
	}
}

func TestLoadKeepsDefaultsForMissingSections(t *testing.T) {
	path := writeProfile(t, `
[server]
socket = /tmp/only-socket.sock
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.SocketPath != "/tmp/only-socket.sock" {
		t.Errorf("unexpected socket path %q", p.SocketPath)
	}
	d := defaults()
	if p.EventlogSize != d.EventlogSize || p.MaxBurst != d.MaxBurst || p.ConfirmTimeout != d.ConfirmTimeout {
		t.Errorf("expected defaults to survive when sections absent, got %+v", p)
	}
}
