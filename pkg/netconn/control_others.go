// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package netconn

import (
	"errors"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// reuseAddr marks the bind address reusable so that something new can listen
// on the same port immediately if the daemon dies unexpectedly. Best effort:
// a setsockopt failure is logged, not fatal.
func reuseAddr(_, _ string, c syscall.RawConn) error {
	return c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			logrus.Warnf("cannot mark bind address reusable: %v", err)
		}
	})
}

// familyUnsupported reports whether err means the kernel lacks the address
// family, as on hosts where IPv6 exists in userland only.
func familyUnsupported(err error) bool {
	return errors.Is(err, unix.EAFNOSUPPORT) || errors.Is(err, unix.EPROTONOSUPPORT)
}
