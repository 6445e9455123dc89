// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

// Package session defines the contracts between the connection daemon and
// the protocol layer: establishing an authenticated session on an accepted
// connection and dispatching its traffic by negotiated protocol version. The
// security-context handshake and the command protocol itself are supplied by
// implementations registered at build time; this package only routes.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/castellan-sh/castellan/pkg/daemon"
)

// Session is one authenticated client connection.
type Session struct {
	Conn net.Conn

	// Principal is the authenticated Kerberos principal of the peer.
	Principal string

	// Protocol is the negotiated protocol version.
	Protocol int
}

// Establisher performs the security-context handshake on a freshly accepted
// connection using the daemon's shared credential. On failure the connection
// is unusable and the daemon closes it.
type Establisher interface {
	Establish(ctx context.Context, conn net.Conn, creds *daemon.Credential) (*Session, error)
}

// Dispatcher consumes all request/response traffic of one session until the
// client is done sending commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, sess *Session) error
}

// Handler wires an Establisher and per-version Dispatchers into the daemon's
// Handler interface.
type Handler struct {
	establisher Establisher
	dispatchers map[int]Dispatcher
	latest      int
}

func NewHandler(e Establisher, dispatchers map[int]Dispatcher) *Handler {
	h := &Handler{establisher: e, dispatchers: dispatchers}
	for version := range dispatchers {
		if version > h.latest {
			h.latest = version
		}
	}
	return h
}

// Serve implements daemon.Handler. A session whose negotiated version has no
// registered dispatcher is handled by the latest one, which is expected to
// speak downward-compatibly to older clients.
func (h *Handler) Serve(ctx context.Context, conn net.Conn, creds *daemon.Credential) error {
	if h.establisher == nil {
		return errors.New("no security-context establisher registered")
	}
	sess, err := h.establisher.Establish(ctx, conn, creds)
	if err != nil {
		return fmt.Errorf("establishing security context: %w", err)
	}
	logrus.Debugf("accepted connection from %s (protocol %d)", sess.Principal, sess.Protocol)
	dispatcher, ok := h.dispatchers[sess.Protocol]
	if !ok {
		dispatcher, ok = h.dispatchers[h.latest]
	}
	if !ok {
		return fmt.Errorf("no dispatcher for protocol %d", sess.Protocol)
	}
	return dispatcher.Dispatch(ctx, sess)
}
