// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

// Package netconn creates listening and outbound sockets without making its
// callers care about IPv4 vs. IPv6. Listeners get SO_REUSEADDR so that a new
// daemon can take over the port immediately if the old one dies unexpectedly;
// outbound connections walk an ordered candidate list and fall back until one
// connects.
package netconn

import "errors"

var (
	// ErrInvalidAddress indicates a textual address that does not parse
	// for the requested address family.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrBindFailed indicates that a listening socket could not be
	// created or bound. Socket creation and binding are a single
	// operation here, so the two conditions share one error kind.
	ErrBindFailed = errors.New("cannot bind socket")

	// ErrConnectFailed indicates that every candidate address was tried
	// and none connected. The last underlying error is wrapped.
	ErrConnectFailed = errors.New("cannot connect")
)
