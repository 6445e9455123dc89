// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

package netconn

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// Endpoint is one candidate network location: an address, a port, and
// implicitly the family of the address.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// Family returns the address family of the endpoint. IPv4-mapped IPv6
// addresses count as IPv4.
func (e Endpoint) Family() Family {
	if e.Addr.Unmap().Is4() {
		return IPv4
	}
	return IPv6
}

func (e Endpoint) String() string {
	return netip.AddrPortFrom(e.Addr.Unmap(), e.Port).String()
}

// Connect tries each candidate in the order supplied until one connects and
// returns that connection. The order is meaningful: it is the order returned
// by address resolution, typically protocol-preference order. A failure to
// bind the optional source address fails only that candidate. When every
// candidate fails, the error wraps ErrConnectFailed and the most recent
// underlying error.
func Connect(ctx context.Context, candidates []Endpoint, source string) (net.Conn, error) {
	var lastErr error
	for _, cand := range candidates {
		dialer, err := ClientDialer(cand.Family(), source)
		if err != nil {
			lastErr = err
			continue
		}
		conn, err := dialer.DialContext(ctx, cand.Family().Network(), cand.String())
		if err != nil {
			lastErr = err
			continue
		}
		return conn, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, lastErr)
	}
	return nil, ErrConnectFailed
}

// ConnectHost resolves host into candidate endpoints and connects with
// fallback, preserving resolver order.
func ConnectHost(ctx context.Context, host string, port uint16, source string) (net.Conn, error) {
	candidates, err := Resolve(ctx, host, port)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %q: %w", ErrConnectFailed, host, err)
	}
	return Connect(ctx, candidates, source)
}

// Resolve looks up host and returns one endpoint per resolved address, in
// resolver order.
func Resolve(ctx context.Context, host string, port uint16) ([]Endpoint, error) {
	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	endpoints := make([]Endpoint, 0, len(ips))
	for _, ip := range ips {
		endpoints = append(endpoints, Endpoint{Addr: ip.Unmap(), Port: port})
	}
	return endpoints, nil
}

// ClientDialer returns a dialer for the given family, optionally bound to a
// local source address, without connecting. It exists for callers that drive
// their own (possibly non-blocking) connect. A source of "" or "all" means
// no explicit source binding; a source that does not parse for the family is
// ErrInvalidAddress.
func ClientDialer(fam Family, source string) (*net.Dialer, error) {
	dialer := &net.Dialer{}
	if source == "" || source == "all" {
		return dialer, nil
	}
	ip, err := familyOf(fam).parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: source %q for %s: %v", ErrInvalidAddress, source, fam, err)
	}
	dialer.LocalAddr = &net.TCPAddr{IP: net.IP(ip.AsSlice()), Zone: ip.Zone()}
	return dialer, nil
}
