// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

// Package daemon owns castellond's process lifetime: watchdog timer,
// credential scoping, and the accept loop that hands each connection to the
// session layer. Connections are serviced one at a time; one connection's
// failure never terminates the loop or affects the others.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/castellan-sh/castellan/pkg/netaddr"
	"github.com/castellan-sh/castellan/pkg/netconn"
)

const (
	// DefaultPort is the listen port when none is configured.
	DefaultPort = 4444

	// DefaultWatchdogTimeout bounds total runtime in single-shot mode so
	// that a client cannot hold on to the process forever.
	DefaultWatchdogTimeout = time.Hour
)

// watchdogExpired terminates the process when the watchdog fires. A variable
// so that tests can observe the firing instead of exiting.
var watchdogExpired = func(timeout time.Duration) {
	logrus.Fatalf("watchdog expired after %v, exiting", timeout)
}

// Handler services one authenticated connection until completion. The daemon
// never inspects protocol bytes itself; it hands the raw connection and the
// shared credential to the handler and closes the connection when the
// handler returns.
type Handler interface {
	Serve(ctx context.Context, conn net.Conn, creds *Credential) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, conn net.Conn, creds *Credential) error

func (f HandlerFunc) Serve(ctx context.Context, conn net.Conn, creds *Credential) error {
	return f(ctx, conn, creds)
}

// Options configures a Daemon. The zero value is not usable: a Handler is
// required.
type Options struct {
	// Standalone selects listening mode. When false the daemon serves a
	// single inherited connection on stdin and exits, as under inetd.
	Standalone bool

	// Port to listen on in standalone mode. 0 asks the kernel for an
	// ephemeral port; the config layer applies DefaultPort.
	Port uint16

	// BindAddress restricts listening to one address. "", "any" or "all"
	// bind every locally configured address family.
	BindAddress string

	// PIDFile, when nonempty, receives the decimal process id at startup
	// in standalone mode.
	PIDFile string

	// Service pins the credential to one service principal. Empty means
	// accept any identity the keytab supports.
	Service string

	// Keytab is the path of the keytab file.
	Keytab string

	// WatchdogTimeout overrides DefaultWatchdogTimeout.
	WatchdogTimeout time.Duration

	Handler Handler
}

// Daemon is the connection-acceptance lifecycle. Construct with New, drive
// with Run.
type Daemon struct {
	opts      Options
	creds     *Credential
	listeners []net.Listener
}

func New(opts Options) (*Daemon, error) {
	if opts.Handler == nil {
		return nil, errors.New("daemon: no connection handler")
	}
	if opts.WatchdogTimeout == 0 {
		opts.WatchdogTimeout = DefaultWatchdogTimeout
	}
	return &Daemon{opts: opts}, nil
}

// Run acquires credentials and serves until ctx is canceled (standalone) or
// the single inherited connection completes (single-shot). A scoped
// credential that cannot be acquired is fatal: Run returns before any socket
// is created.
func (d *Daemon) Run(ctx context.Context) error {
	watchdog := time.AfterFunc(d.opts.WatchdogTimeout, func() {
		watchdogExpired(d.opts.WatchdogTimeout)
	})
	defer watchdog.Stop()

	creds, err := AcquireCredential(d.opts.Keytab, d.opts.Service)
	if err != nil {
		return fmt.Errorf("unable to acquire creds, aborting: %w", err)
	}
	d.creds = creds
	defer creds.Release()

	if !d.opts.Standalone {
		return d.serveInherited(ctx)
	}

	// The watchdog only guards single-shot mode against outliving its
	// caller; a standalone daemon is meant to run indefinitely.
	watchdog.Stop()

	if err := d.Listen(ctx); err != nil {
		return err
	}
	defer d.closeListeners()
	if d.opts.PIDFile != "" {
		if err := writePIDFile(d.opts.PIDFile); err != nil {
			return fmt.Errorf("cannot create PID file %s: %w", d.opts.PIDFile, err)
		}
	}
	return d.Serve(ctx)
}

// Listen binds the standalone listening sockets. Exposed separately from Run
// for callers that need the bound addresses before serving.
func (d *Daemon) Listen(ctx context.Context) error {
	switch d.opts.BindAddress {
	case "", "any", "all":
		d.listeners = netconn.BindAll(ctx, d.opts.Port)
	default:
		ip, err := netip.ParseAddr(d.opts.BindAddress)
		if err != nil {
			return fmt.Errorf("%w: bind address %q", netconn.ErrInvalidAddress, d.opts.BindAddress)
		}
		// An IPv4-mapped literal binds as the embedded IPv4 address.
		ip = ip.Unmap()
		var ln net.Listener
		if ip.Is4() {
			ln, err = netconn.BindIPv4(ctx, ip.String(), d.opts.Port)
		} else {
			ln, err = netconn.BindIPv6(ctx, ip.String(), d.opts.Port)
		}
		if err != nil {
			return err
		}
		d.listeners = []net.Listener{ln}
	}
	if len(d.listeners) == 0 {
		return fmt.Errorf("%w: no local address could be bound on port %d", netconn.ErrBindFailed, d.opts.Port)
	}
	for _, ln := range d.listeners {
		logrus.Infof("listening on %s", ln.Addr())
	}
	return nil
}

// Addrs returns the bound listen addresses after a successful Listen.
func (d *Daemon) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(d.listeners))
	for _, ln := range d.listeners {
		addrs = append(addrs, ln.Addr())
	}
	return addrs
}

// Serve accepts and services connections one at a time until ctx is
// canceled. Accept errors and handler failures are logged and the loop
// continues; only cancellation ends it.
func (d *Daemon) Serve(ctx context.Context) error {
	conns := make(chan net.Conn)
	var wg sync.WaitGroup
	for _, ln := range d.listeners {
		wg.Add(1)
		go func(ln net.Listener) {
			defer wg.Done()
			d.acceptLoop(ctx, ln, conns)
		}(ln)
	}
	// Unblock Accept on cancellation.
	stop := context.AfterFunc(ctx, d.closeListeners)
	defer stop()
	go func() {
		wg.Wait()
		close(conns)
	}()
	for conn := range conns {
		d.handle(ctx, conn)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (d *Daemon) acceptLoop(ctx context.Context, ln net.Listener, conns chan<- net.Conn) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logrus.Warnf("error accepting connection: %v", err)
			continue
		}
		select {
		case conns <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// serveInherited services the single connection inherited on stdin, as when
// spawned by inetd or tcpserver.
func (d *Daemon) serveInherited(ctx context.Context) error {
	conn, err := net.FileConn(os.Stdin)
	if err != nil {
		return fmt.Errorf("inherited connection on stdin: %w", err)
	}
	d.handle(ctx, conn)
	return nil
}

func (d *Daemon) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	peer := "unknown"
	if remote := conn.RemoteAddr(); remote != nil {
		if s, err := netaddr.Format(remote); err == nil {
			peer = s
		}
	}
	logrus.Debugf("accepted connection from %s", peer)
	if err := d.opts.Handler.Serve(ctx, conn, d.creds); err != nil {
		logrus.Warnf("error serving connection from %s: %v", peer, err)
	}
}

func (d *Daemon) closeListeners() {
	for _, ln := range d.listeners {
		ln.Close()
	}
}
