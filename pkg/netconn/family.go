// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

package netconn

import (
	"fmt"
	"net/netip"
)

// Family identifies an address family for binding and connecting.
type Family int

const (
	IPv4 Family = iota + 1
	IPv6
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Network returns the stream network name for the family, as understood by
// the net package.
func (f Family) Network() string {
	return familyOf(f).network()
}

// family is the per-family bind/connect capability. Everything that differs
// between IPv4 and IPv6 lives behind it; callers select an implementation by
// the resolved candidate's family and never branch again.
type family interface {
	network() string
	wildcard() string
	parse(address string) (netip.Addr, error)
}

func familyOf(f Family) family {
	if f == IPv6 {
		return v6{}
	}
	return v4{}
}

type v4 struct{}

func (v4) network() string  { return "tcp4" }
func (v4) wildcard() string { return "0.0.0.0" }

func (v4) parse(address string) (netip.Addr, error) {
	ip, err := netip.ParseAddr(address)
	if err != nil {
		return netip.Addr{}, err
	}
	if !ip.Is4() {
		return netip.Addr{}, fmt.Errorf("%q is not an IPv4 address", address)
	}
	return ip, nil
}

type v6 struct{}

func (v6) network() string  { return "tcp6" }
func (v6) wildcard() string { return "::" }

func (v6) parse(address string) (netip.Addr, error) {
	ip, err := netip.ParseAddr(address)
	if err != nil {
		return netip.Addr{}, err
	}
	if ip.Is4() {
		return netip.Addr{}, fmt.Errorf("%q is not an IPv6 address", address)
	}
	return ip, nil
}
