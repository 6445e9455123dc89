// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package daemon

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

// redirectStdin swaps os.Stdin for one end of a socketpair, as when spawned
// by inetd, and returns the other end for the test to drive.
func redirectStdin(t *testing.T) *os.File {
	t.Helper()
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	assert.NilError(t, err)
	client := os.NewFile(uintptr(fds[0]), "client")
	inherited := os.NewFile(uintptr(fds[1]), "inherited")
	oldStdin := os.Stdin
	os.Stdin = inherited
	t.Cleanup(func() {
		os.Stdin = oldStdin
		inherited.Close()
		client.Close()
	})
	return client
}

func TestRunSingleShot(t *testing.T) {
	client := redirectStdin(t)
	served := make(chan string, 1)
	handler := HandlerFunc(func(_ context.Context, conn net.Conn, _ *Credential) error {
		b, err := io.ReadAll(conn)
		if err != nil {
			return err
		}
		served <- string(b)
		return nil
	})
	d, err := New(Options{
		Keytab:  filepath.Join(t.TempDir(), "missing.keytab"),
		Handler: handler,
	})
	assert.NilError(t, err)

	_, err = client.Write([]byte("ping\n"))
	assert.NilError(t, err)
	assert.NilError(t, client.Close())

	// Single-shot serves the inherited connection once and returns.
	assert.NilError(t, d.Run(context.Background()))
	select {
	case got := <-served:
		assert.Equal(t, got, "ping\n")
	default:
		t.Fatal("the inherited connection was never served")
	}
	assert.Equal(t, len(d.Addrs()), 0, "single-shot mode must not listen")
}

// TestWatchdogArmedInSingleShot stalls the handler past a short watchdog
// timeout and checks that the watchdog fires, bounding the runtime of a
// process whose client refuses to let go.
func TestWatchdogArmedInSingleShot(t *testing.T) {
	client := redirectStdin(t)
	fired := make(chan struct{})
	prev := watchdogExpired
	watchdogExpired = func(time.Duration) { close(fired) }
	t.Cleanup(func() { watchdogExpired = prev })

	handler := HandlerFunc(func(context.Context, net.Conn, *Credential) error {
		select {
		case <-fired:
		case <-time.After(5 * time.Second):
		}
		return nil
	})
	d, err := New(Options{
		WatchdogTimeout: 50 * time.Millisecond,
		Keytab:          filepath.Join(t.TempDir(), "missing.keytab"),
		Handler:         handler,
	})
	assert.NilError(t, err)
	assert.NilError(t, client.Close())

	assert.NilError(t, d.Run(context.Background()))
	select {
	case <-fired:
	default:
		t.Fatal("watchdog never fired while the single-shot handler was stalled")
	}
}
