// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package config loads the server profile: socket path, session timeouts,
// replay-log size, per-tick notification burst cap, startup file location
// and data directory, from a .ini-style file, the way the sibling tooling
// in this codebase loads its own configuration.
package config

import (
	"fmt"
	"time"

	"github.com/go-ini/ini"
)

// Profile holds every value the core needs at startup. cmd/ncxd parses
// flags to find the profile path, loads it with Load, and hands the
// result to the core — flag parsing itself stays in cmd/ncxd.
type Profile struct {
	// SocketPath is the Unix domain socket the server listens on.
	SocketPath string

	// HelloTimeout is how long a new connection has to send its <hello>
	// (spec.md §4.6). cmd/ncxd copies it into the event loop, which does
	// not act on it: a connection that never sends <hello> is closed only
	// by IdleTimeout, when that is non-zero.
	HelloTimeout time.Duration

	// IdleTimeout closes a session that issues no RPC for this long, 0
	// disables idle timeout.
	IdleTimeout time.Duration

	// EventlogSize is the replay log's retained event capacity
	// (spec.md §4.5 "Replay log retention").
	EventlogSize int

	// MaxBurst bounds per-tick notification deliveries across all
	// subscriptions (spec.md §4.5 "Per-event delivery").
	MaxBurst int

	// StartupPath is the startup-datastore file loaded at boot.
	StartupPath string

	// DataDir holds persisted running/startup datastore snapshots.
	DataDir string

	// ConfirmTimeout is the default confirmed-commit revert timeout in
	// seconds, used when a <commit confirmed="true"/> omits
	// confirm-timeout.
	ConfirmTimeout int

	// AuthorizedKeysPath is an authorized_keys-format file (sshd(8)
	// AUTHORIZED_KEYS FILE FORMAT, one user per line) backing
	// -print-authorized-key's sshd AuthorizedKeysCommand helper. The
	// server itself never opens an SSH listener (remote transport is
	// out of scope); this only feeds an external sshd's key lookup.
	AuthorizedKeysPath string
}

// defaults mirror the values baked into the original agent's profile,
// reused here since spec.md leaves the exact numbers unspecified.
func defaults() *Profile {
	return &Profile{
		SocketPath:         "/var/run/ncxd/ncxd.sock",
		HelloTimeout:       10 * time.Second,
		IdleTimeout:        0,
		EventlogSize:       1024,
		MaxBurst:           64,
		StartupPath:        "/var/lib/ncxd/startup.xml",
		DataDir:            "/var/lib/ncxd",
		ConfirmTimeout:     600,
		AuthorizedKeysPath: "/var/lib/ncxd/authorized_keys",
	}
}

// Load reads a profile from an .ini file, e.g.
//
//	[server]
//	socket = /var/run/ncxd/ncxd.sock
//	hello-timeout = 10s
//	idle-timeout = 0
//	data-dir = /var/lib/ncxd
//	startup-file = /var/lib/ncxd/startup.xml
//
//	[notifications]
//	eventlog-size = 1024
//	max-burst = 64
//
//	[commit]
//	confirm-timeout = 600
//
//	[ssh]
//	authorized-keys = /var/lib/ncxd/authorized_keys
//
// Any section or key absent from the file keeps its default.
func Load(path string) (*Profile, error) {
	p := defaults()

	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", path, err)
	}

	if s, err := f.GetSection("server"); err == nil {
		p.SocketPath = s.Key("socket").MustString(p.SocketPath)
		p.DataDir = s.Key("data-dir").MustString(p.DataDir)
		p.StartupPath = s.Key("startup-file").MustString(p.StartupPath)
		if d, err := s.Key("hello-timeout").Duration(); err == nil {
			p.HelloTimeout = d
		}
		if d, err := s.Key("idle-timeout").Duration(); err == nil {
			p.IdleTimeout = d
		}
	}

	if s, err := f.GetSection("notifications"); err == nil {
		p.EventlogSize = s.Key("eventlog-size").MustInt(p.EventlogSize)
		p.MaxBurst = s.Key("max-burst").MustInt(p.MaxBurst)
	}

	if s, err := f.GetSection("commit"); err == nil {
		p.ConfirmTimeout = s.Key("confirm-timeout").MustInt(p.ConfirmTimeout)
	}

	if s, err := f.GetSection("ssh"); err == nil {
		p.AuthorizedKeysPath = s.Key("authorized-keys").MustString(p.AuthorizedKeysPath)
	}

	return p, nil
}
