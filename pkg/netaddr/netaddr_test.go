// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

package netaddr

import (
	"net"
	"testing"

	"gotest.tools/v3/assert"
)

func tcpAddr(ip string, port int) *net.TCPAddr {
	return &net.TCPAddr{IP: net.ParseIP(ip), Port: port}
}

func TestFormat(t *testing.T) {
	type testCase struct {
		addr     net.Addr
		expected string
	}
	testCases := []testCase{
		{
			addr:     tcpAddr("0.0.0.0", 80),
			expected: "0.0.0.0",
		},
		{
			addr:     tcpAddr("203.0.113.5", 4444),
			expected: "203.0.113.5",
		},
		{
			// IPv4-mapped IPv6 renders as the embedded IPv4 address.
			addr:     tcpAddr("::ffff:203.0.113.5", 4444),
			expected: "203.0.113.5",
		},
		{
			addr:     tcpAddr("2001:db8::1", 0),
			expected: "2001:db8::1",
		},
		{
			addr:     &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 53},
			expected: "10.0.0.1",
		},
	}
	for _, tc := range testCases {
		got, err := Format(tc.addr)
		assert.NilError(t, err)
		assert.Equal(t, got, tc.expected)
	}
}

func TestFormatUnsupportedFamily(t *testing.T) {
	_, err := Format(&net.UnixAddr{Name: "/run/castellond.sock", Net: "unix"})
	assert.ErrorIs(t, err, ErrUnsupportedFamily)
}

func TestEqual(t *testing.T) {
	type testCase struct {
		a, b     net.Addr
		expected bool
	}
	testCases := []testCase{
		{
			a:        tcpAddr("203.0.113.5", 1),
			b:        tcpAddr("203.0.113.5", 2),
			expected: true,
		},
		{
			// Mapped form equals the plain IPv4 address.
			a:        tcpAddr("203.0.113.5", 0),
			b:        tcpAddr("::ffff:203.0.113.5", 0),
			expected: true,
		},
		{
			a:        tcpAddr("::ffff:203.0.113.5", 0),
			b:        tcpAddr("::ffff:203.0.113.5", 0),
			expected: true,
		},
		{
			a:        tcpAddr("203.0.113.5", 0),
			b:        tcpAddr("2001:db8::1", 0),
			expected: false,
		},
		{
			a:        tcpAddr("2001:db8::1", 0),
			b:        tcpAddr("2001:db8::2", 0),
			expected: false,
		},
		{
			a:        tcpAddr("203.0.113.5", 0),
			b:        &net.UnixAddr{Name: "x", Net: "unix"},
			expected: false,
		},
	}
	for _, tc := range testCases {
		assert.Equal(t, Equal(tc.a, tc.b), tc.expected)
		assert.Equal(t, Equal(tc.b, tc.a), tc.expected)
	}
}

func TestPort(t *testing.T) {
	assert.Equal(t, Port(tcpAddr("10.0.0.1", 4444)), uint16(4444))
	assert.Equal(t, Port(&net.UDPAddr{IP: net.ParseIP("::1"), Port: 53}), uint16(53))
	assert.Equal(t, Port(&net.UnixAddr{Name: "x", Net: "unix"}), uint16(0))
}
