// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// Package eventloop implements the single-threaded readiness loop of
// spec.md §4.6: one task multiplexes the listening socket and every open
// session over epoll, with no worker threads and no locks on the state it
// owns (spec.md §5 "Scheduling model").
package eventloop

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Event is one readiness notification for a registered descriptor.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Hangup   bool
}

// Poller wraps an epoll instance. It is not safe for concurrent use — the
// event loop is the only caller, per spec.md §5.
type Poller struct {
	epfd int
}

// NewPoller creates an epoll instance.
func NewPoller() (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &Poller{epfd: fd}, nil
}

func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}

// Add registers fd for read readiness, and for write readiness too when
// writable is true (a session with a non-empty out-queue, per spec.md
// §4.6 "build ... write-set").
func (p *Poller) Add(fd int, writable bool) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: epollMask(writable),
		Fd:     int32(fd),
	})
}

// Modify updates fd's registered interest set, e.g. when a session's
// out-queue transitions between empty and non-empty.
func (p *Poller) Modify(fd int, writable bool) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: epollMask(writable),
		Fd:     int32(fd),
	})
}

// Remove deregisters fd, e.g. once a session is killed.
func (p *Poller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func epollMask(writable bool) uint32 {
	mask := uint32(unix.EPOLLIN | unix.EPOLLRDHUP)
	if writable {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// Wait blocks for up to timeoutMs (spec.md §4.6 "wait timeout is ≤ 1
// second") and returns the descriptors that became ready. timeoutMs < 0
// blocks indefinitely; this loop never passes that.
func (p *Poller) Wait(timeoutMs int) ([]Event, error) {
	var raw [128]unix.EpollEvent
	n, err := unix.EpollWait(p.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("epoll_wait: %w", err)
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ev := raw[i]
		out = append(out, Event{
			Fd:       int(ev.Fd),
			Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP) != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Hangup:   ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0,
		})
	}
	return out, nil
}

// SetNonblocking marks fd non-blocking, required before adding it to the
// poller (spec.md §4.6 "set the descriptor non-blocking").
func SetNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}
