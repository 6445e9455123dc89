// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

package netaddr

import (
	"encoding/binary"
	"errors"
	"net/netip"
	"strconv"
	"strings"
)

var errZonedAddr = errors.New("zoned address")

// parseAddr parses an address literal, rejecting zone suffixes such as
// "fe80::1%eth0" which have no place in subnet comparison.
func parseAddr(s string) (netip.Addr, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if ip.Zone() != "" {
		return netip.Addr{}, errZonedAddr
	}
	return ip, nil
}

// Match compares two textual addresses, applying an optional mask. It is the
// subnet-authorization primitive used by ACL evaluation on untrusted peer
// addresses, so malformed addresses or masks always yield false, never an
// error.
//
// For a pair of IPv4 literals the mask may be a dotted quad ("255.255.0.0")
// or a CIDR prefix length ("16"); an empty mask means exact match. For IPv6
// literals only a CIDR prefix length up to 128 is accepted.
func Match(a, b, mask string) bool {
	if a4, ok := parse4(a); ok {
		if b4, ok := parse4(b); ok {
			m, ok := mask4(mask)
			if !ok {
				return false
			}
			return a4&m == b4&m
		}
	}
	return match6(a, b, mask)
}

func parse4(s string) (uint32, bool) {
	ip, err := parseAddr(s)
	if err != nil || !ip.Is4() {
		return 0, false
	}
	v4 := ip.As4()
	return binary.BigEndian.Uint32(v4[:]), true
}

// mask4 interprets an IPv4 mask specification as a 32-bit bitmask. A mask
// containing no "." is a CIDR prefix length; otherwise it is parsed as a
// dotted quad.
func mask4(mask string) (uint32, bool) {
	if mask == "" {
		return ^uint32(0), true
	}
	if !strings.Contains(mask, ".") {
		cidr, err := strconv.ParseUint(mask, 10, 8)
		if err != nil || cidr > 32 {
			return 0, false
		}
		// Shift counts of 32 or more yield 0, which handles "/0".
		return ^uint32(0) << (32 - cidr), true
	}
	m, ok := parse4(mask)
	return m, ok
}

func match6(a, b, mask string) bool {
	ipA, err := parseAddr(a)
	if err != nil || !ipA.Is6() {
		return false
	}
	ipB, err := parseAddr(b)
	if err != nil || !ipB.Is6() {
		return false
	}
	cidr := uint64(128)
	if mask != "" {
		var err error
		cidr, err = strconv.ParseUint(mask, 10, 8)
		if err != nil || cidr > 128 {
			return false
		}
	}
	a16 := ipA.As16()
	b16 := ipB.As16()
	for i := 0; uint64(i)*8 < cidr; i++ {
		if uint64(i+1)*8 <= cidr {
			if a16[i] != b16[i] {
				return false
			}
		} else {
			m := byte(0xff) << (8 - cidr%8)
			if a16[i]&m != b16[i]&m {
				return false
			}
		}
	}
	return true
}
