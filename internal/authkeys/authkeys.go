// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package authkeys parses authorized_keys-format files (sshd(8)
// AUTHORIZED_KEYS FILE FORMAT) and looks a user's keys up by name.
//
// The NETCONF core itself never speaks the SSH transport (remote
// transport is explicitly out of scope); instead it can be pointed to by
// an external sshd's AuthorizedKeysCommand, which calls out to a helper
// program for the key material rather than reading ~/.ssh/authorized_keys
// directly. This package backs that helper.
package authkeys

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Entry is one parsed line of an authorized_keys file.
type Entry struct {
	User    string
	Key     ssh.PublicKey
	Comment string
	Options []string
}

// AuthorizedKeyLine renders e the way sshd(8) expects an
// AuthorizedKeysCommand to print it back on stdout.
func (e *Entry) AuthorizedKeyLine() string {
	line := strings.TrimRight(string(ssh.MarshalAuthorizedKey(e.Key)), "\n")
	if len(e.Options) > 0 {
		line = strings.Join(e.Options, ",") + " " + line
	}
	return line
}

// Parse reads a file of "user key-type key comment" lines, one key per
// line. Blank lines and comments (the same rules ssh.ParseAuthorizedKey
// applies to a single entry) are skipped without error.
//
// This is keyed by an explicit per-line user field rather than the usual
// one-file-per-user layout, since the daemon keeps every user's keys in
// one place the way its own configuration does.
func Parse(r io.Reader) ([]*Entry, error) {
	var entries []*Entry
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		lineNum++
		if len(line) == 0 || bytes.HasPrefix(bytes.TrimSpace(line), []byte("#")) {
			continue
		}
		fields := bytes.SplitN(bytes.TrimSpace(line), []byte(" "), 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: missing user field", lineNum)
		}
		user := string(fields[0])
		key, comment, options, _, err := ssh.ParseAuthorizedKey(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		entries = append(entries, &Entry{User: user, Key: key, Comment: comment, Options: options})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ForUser filters entries down to the ones belonging to user.
func ForUser(entries []*Entry, user string) []*Entry {
	var out []*Entry
	for _, e := range entries {
		if e.User == user {
			out = append(out, e)
		}
	}
	return out
}

// Print writes user's authorized key lines to w, one per line, the
// shape sshd's AuthorizedKeysCommand expects on its subprocess's stdout.
func Print(w io.Writer, path, user string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening authorized keys file: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return fmt.Errorf("parsing authorized keys file: %w", err)
	}
	for _, e := range ForUser(entries, user) {
		fmt.Fprintln(w, e.AuthorizedKeyLine())
	}
	return nil
}
