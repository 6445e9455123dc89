// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

package netaddr

import (
	"fmt"
	"net"
	"testing"

	"github.com/apparentlymart/go-cidr/cidr"
	"gotest.tools/v3/assert"
)

func TestMatchIPv4(t *testing.T) {
	type testCase struct {
		a, b, mask string
		expected   bool
	}
	testCases := []testCase{
		{a: "10.0.0.1", b: "10.0.0.1", mask: "", expected: true},
		{a: "10.0.0.1", b: "10.0.0.2", mask: "", expected: false},
		{a: "10.0.0.1", b: "10.0.0.2", mask: "24", expected: true},
		{a: "10.0.0.1", b: "10.1.0.2", mask: "24", expected: false},
		{a: "10.0.0.1", b: "10.0.255.255", mask: "16", expected: true},
		{a: "10.0.0.1", b: "10.20.30.40", mask: "8", expected: true},
		{a: "10.0.0.1", b: "10.0.0.2", mask: "255.255.255.0", expected: true},
		{a: "10.0.0.1", b: "10.1.0.2", mask: "255.255.255.0", expected: false},
		{a: "10.0.0.1", b: "192.168.0.1", mask: "0", expected: true},
		// Malformed masks match nothing, never abort the caller.
		{a: "10.0.0.1", b: "10.0.0.1", mask: "33", expected: false},
		{a: "10.0.0.1", b: "10.0.0.1", mask: "abc", expected: false},
		{a: "10.0.0.1", b: "10.0.0.1", mask: "255.255.255.256", expected: false},
		{a: "10.0.0.1", b: "10.0.0.1", mask: "24x", expected: false},
		{a: "10.0.0.1", b: "10.0.0.1", mask: "-1", expected: false},
		// Malformed addresses likewise.
		{a: "10.0.0", b: "10.0.0.1", mask: "", expected: false},
		{a: "bogus", b: "10.0.0.1", mask: "8", expected: false},
	}
	for _, tc := range testCases {
		assert.Equal(t, Match(tc.a, tc.b, tc.mask), tc.expected,
			"Match(%q, %q, %q)", tc.a, tc.b, tc.mask)
	}
}

func TestMatchIPv6(t *testing.T) {
	type testCase struct {
		a, b, mask string
		expected   bool
	}
	testCases := []testCase{
		{a: "2001:db8::1", b: "2001:db8::1", mask: "", expected: true},
		{a: "2001:db8::1", b: "2001:db8::2", mask: "", expected: false},
		{a: "2001:db8::1", b: "2001:db8::ffff", mask: "64", expected: true},
		{a: "2001:db8::1", b: "2001:db9::1", mask: "64", expected: false},
		// Prefixes that end inside a byte compare the partial byte only.
		{a: "2001:db8::1", b: "2001:dbf::1", mask: "27", expected: true},
		{a: "2001:db8::1", b: "2001:dc0::1", mask: "27", expected: false},
		{a: "::1", b: "2001:db8::1", mask: "0", expected: true},
		{a: "2001:db8::1", b: "2001:db8::1", mask: "129", expected: false},
		{a: "2001:db8::1", b: "2001:db8::1", mask: "abc", expected: false},
		// A dotted-quad mask is an IPv4 concept.
		{a: "2001:db8::1", b: "2001:db8::1", mask: "255.255.0.0", expected: false},
		// Mixed families never match.
		{a: "2001:db8::1", b: "10.0.0.1", mask: "", expected: false},
		{a: "fe80::1%eth0", b: "fe80::1", mask: "", expected: false},
	}
	for _, tc := range testCases {
		assert.Equal(t, Match(tc.a, tc.b, tc.mask), tc.expected,
			"Match(%q, %q, %q)", tc.a, tc.b, tc.mask)
	}
}

// TestMatchSubnets walks the /26 subnets of a /24 and checks that hosts
// match under the parent prefix but only same-subnet hosts match under /26.
func TestMatchSubnets(t *testing.T) {
	_, parent, err := net.ParseCIDR("192.0.2.0/24")
	assert.NilError(t, err)
	for i := 0; i < 4; i++ {
		subnet, err := cidr.Subnet(parent, 2, i)
		assert.NilError(t, err)
		first, err := cidr.Host(subnet, 1)
		assert.NilError(t, err)
		last, err := cidr.Host(subnet, 62)
		assert.NilError(t, err)
		assert.Assert(t, Match(first.String(), last.String(), "26"),
			"hosts of %s should match under /26", subnet)
		assert.Assert(t, Match(first.String(), "192.0.2.1", "24"))
		if i > 0 {
			assert.Assert(t, !Match(first.String(), "192.0.2.1", "26"),
				"subnet %d host should not match subnet 0 under /26", i)
		}
	}
}

func ExampleMatch() {
	fmt.Println(Match("10.0.0.1", "10.0.0.200", "24"))
	fmt.Println(Match("10.0.0.1", "10.1.0.1", "255.255.0.0"))
	// Output:
	// true
	// false
}
