// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

// ncxd is a daemon that exposes a NETCONF management interface over a
// local stream socket.
//
// Usage:
//
//	-config=<filename>
//		.ini profile to load (default: /etc/ncxd/ncxd.ini). Absent keys
//		keep their built-in defaults.
//
//	-socketfile=<filename>
//		Overrides the profile's socket path.
//
//	-pidfile=<filename>
//		Write the daemon's pid to the given file.
//
//	-logfile=<filename>
//		Redirect stdout/stderr to the given file.
//
//	-print-authorized-key=<user>
//		Print user's authorized key lines, one per line, and exit.
//		For use as an sshd(8) AuthorizedKeysCommand, so an external sshd
//		can delegate SSH public-key lookups to this daemon's own key
//		store without the core itself speaking the SSH transport.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/activation"

	"github.com/danos/ncxd/internal/authkeys"
	"github.com/danos/ncxd/internal/config"
	"github.com/danos/ncxd/internal/eventloop"
	"github.com/danos/ncxd/ncxd"
	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/server"
)

var (
	configfile         = flag.String("config", "/etc/ncxd/ncxd.ini", "Profile to load.")
	socketOverride     = flag.String("socketfile", "", "Override the profile's socket path.")
	pidfile            = flag.String("pidfile", "", "Write pid to supplied file.")
	logfile            = flag.String("logfile", "", "Redirect std{out,err} to supplied file.")
	maxChunk           = flag.Int("max-chunk", 1<<20, "Largest base:1.1 chunk size written per PDU.")
	printAuthorizedKey = flag.String("print-authorized-key", "", "Print user's authorized key lines and exit (sshd AuthorizedKeysCommand helper).")
)

func fatal(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func openLogfile() {
	if *logfile == "" {
		return
	}
	f, err := os.OpenFile(*logfile, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0640)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return
	}
	syscall.Dup2(int(f.Fd()), 1)
	syscall.Dup2(int(f.Fd()), 2)
}

func writePid() {
	if *pidfile == "" {
		return
	}
	f, err := os.OpenFile(*pidfile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%d\n", os.Getpid())
}

// getListener prefers a socket inherited from systemd socket activation
// over binding path itself, matching the original agent's getListeners.
func getListener(path string, maxChunk int) (*server.Listener, error) {
	listeners, err := activation.Listeners(true)
	if err != nil {
		return nil, err
	}
	for _, l := range listeners {
		if ul, ok := l.(*net.UnixListener); ok {
			return server.FromSystemd(ul, maxChunk)
		}
	}
	return server.Listen(path, maxChunk)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	profile, err := config.Load(*configfile)
	if err != nil {
		log.Printf("loading profile: %v, using built-in defaults", err)
		profile, _ = config.Load(os.DevNull)
	}

	if *printAuthorizedKey != "" {
		fatal(authkeys.Print(os.Stdout, profile.AuthorizedKeysPath, *printAuthorizedKey))
		return
	}

	openLogfile()

	if *socketOverride != "" {
		profile.SocketPath = *socketOverride
	}

	// No YANG-text compiler is wired in yet (nothing in this module turns
	// .yang source into a *schema.Module); the server starts with an empty
	// model set until one is loaded some other way.
	ms := schema.NewModelSet()

	state := ncxd.New(profile, ms, time.Now())

	ln, err := getListener(profile.SocketPath, *maxChunk)
	fatal(err)

	dispatcher := server.NewDispatcher(state)

	loop, err := eventloop.NewLoop(ln, dispatcher.Dispatch)
	fatal(err)
	loop.HelloTimeout = profile.HelloTimeout
	loop.IdleTimeout = profile.IdleTimeout
	loop.MaxBurst = profile.MaxBurst
	loop.OnTick = func(now time.Time) {
		dispatcher.DeliverNotifications(now, profile.MaxBurst)
	}

	writePid()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigch
		loop.RequestShutdown()
	}()

	state.Dlog.Printf("listening on %s", ln.Addr())
	fatal(loop.Run(time.Now))
}
