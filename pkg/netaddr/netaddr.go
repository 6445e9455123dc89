// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

// Package netaddr normalizes and compares socket addresses so that the rest
// of the daemon never branches on address family. IPv4 addresses that have
// been mapped into IPv6 form compare equal to, and render as, the plain IPv4
// address.
package netaddr

import (
	"errors"
	"net"
	"net/netip"
)

// ErrUnsupportedFamily is returned by Format for addresses that are neither
// IPv4 nor IPv6.
var ErrUnsupportedFamily = errors.New("unsupported address family")

// ipOf extracts the IP from the supported net.Addr implementations. The
// second return is false for anything else.
func ipOf(addr net.Addr) (netip.Addr, bool) {
	var ip net.IP
	switch a := addr.(type) {
	case *net.TCPAddr:
		ip = a.IP
	case *net.UDPAddr:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	default:
		return netip.Addr{}, false
	}
	parsed, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, false
	}
	return parsed, true
}

// Format renders the numeric host portion of addr, without port or brackets.
// An IPv4-mapped IPv6 address renders as the embedded IPv4 address.
func Format(addr net.Addr) (string, error) {
	ip, ok := ipOf(addr)
	if !ok {
		return "", ErrUnsupportedFamily
	}
	return ip.Unmap().String(), nil
}

// Equal reports whether a and b denote the same host. An IPv4 address and
// its IPv4-mapped IPv6 form are equal; a plain IPv6 address never equals a
// plain IPv4 one. Unsupported families compare unequal rather than failing,
// since this runs on hot comparison paths.
func Equal(a, b net.Addr) bool {
	ipA, ok := ipOf(a)
	if !ok {
		return false
	}
	ipB, ok := ipOf(b)
	if !ok {
		return false
	}
	return ipA.Unmap() == ipB.Unmap()
}

// Port returns the port of addr, or 0 if the address has no recognized
// family.
func Port(addr net.Addr) uint16 {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return uint16(a.Port)
	case *net.UDPAddr:
		return uint16(a.Port)
	}
	return 0
}
