// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// The protocol layer plugs itself in through package-level registration,
// usually from an init function in the implementing package.
var (
	registryMu         sync.Mutex
	defaultEstablisher Establisher
	defaultDispatchers = map[int]Dispatcher{}
)

// RegisterEstablisher installs the security-context establisher used by
// DefaultHandler. The last registration wins.
func RegisterEstablisher(e Establisher) {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultEstablisher = e
}

// RegisterDispatcher installs the dispatcher for one protocol version.
func RegisterDispatcher(version int, d Dispatcher) {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultDispatchers[version] = d
}

// DefaultHandler builds a Handler from the registered protocol layer. With
// nothing registered the handler refuses every connection with an error; the
// daemon logs that per connection and keeps serving.
func DefaultHandler() *Handler {
	registryMu.Lock()
	defer registryMu.Unlock()
	if defaultEstablisher == nil {
		logrus.Warn("no security-context establisher registered; connections will be refused")
	}
	dispatchers := make(map[int]Dispatcher, len(defaultDispatchers))
	for version, d := range defaultDispatchers {
		dispatchers[version] = d
	}
	return NewHandler(defaultEstablisher, dispatchers)
}
