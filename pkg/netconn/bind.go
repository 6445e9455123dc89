// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

package netconn

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/sirupsen/logrus"
)

var listenConfig = net.ListenConfig{
	Control: reuseAddr,
}

// BindIPv4 creates an IPv4 stream listener bound to the given address and
// port. The address "any" or "all" means 0.0.0.0.
func BindIPv4(ctx context.Context, address string, port uint16) (net.Listener, error) {
	return bindFamily(ctx, IPv4, address, port)
}

// BindIPv6 creates an IPv6 stream listener bound to the given address and
// port. The address "any" or "all" means "::". When the kernel does not
// support IPv6 the error is returned without a warning, since that is an
// expected condition on IPv6-incapable hosts.
func BindIPv6(ctx context.Context, address string, port uint16) (net.Listener, error) {
	return bindFamily(ctx, IPv6, address, port)
}

func bindFamily(ctx context.Context, fam Family, address string, port uint16) (net.Listener, error) {
	f := familyOf(fam)
	if address == "any" || address == "all" {
		address = f.wildcard()
	}
	ip, err := f.parse(address)
	if err != nil {
		logrus.Warnf("invalid %s address %s", fam, address)
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	hostport := net.JoinHostPort(ip.String(), strconv.FormatUint(uint64(port), 10))
	ln, err := listenConfig.Listen(ctx, f.network(), hostport)
	if err != nil {
		if fam != IPv6 || !familyUnsupported(err) {
			logrus.Warnf("cannot bind socket for %s,%d: %v", address, port, err)
		}
		return nil, fmt.Errorf("%w for %s,%d: %w", ErrBindFailed, address, port, err)
	}
	return ln, nil
}

// BindAll creates one wildcard listener per address family configured on the
// local host. Binding failures for one family do not abort the others; the
// result is whatever did bind, possibly empty. If the local address families
// cannot be enumerated at all, BindAll falls back to a single IPv4 wildcard
// listener. The caller owns every returned listener.
func BindAll(ctx context.Context, port uint16) []net.Listener {
	families, err := localFamilies()
	if err != nil {
		logrus.Warnf("cannot enumerate local addresses: %v", err)
		ln, err := BindIPv4(ctx, "any", port)
		if err != nil {
			return nil
		}
		return []net.Listener{ln}
	}
	var set []net.Listener
	for _, fam := range families {
		ln, err := bindFamily(ctx, fam, "any", port)
		if err != nil {
			continue
		}
		set = append(set, ln)
	}
	return set
}

// localFamilies reports which address families have a configured local
// address, IPv6 first to match resolver preference order.
func localFamilies() ([]Family, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var has4, has6 bool
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		if ip.Unmap().Is4() {
			has4 = true
		} else {
			has6 = true
		}
	}
	var families []Family
	if has6 {
		families = append(families, IPv6)
	}
	if has4 {
		families = append(families, IPv4)
	}
	return families, nil
}
