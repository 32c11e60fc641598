/*
Copyright The TRDP-Go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package socket

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// Kind distinguishes the three endpoint flavors a Pool manages.
type Kind int

const (
	UDP Kind = iota
	TCP
	TCPListener
)

// Endpoint wraps a raw, blocking, SO_REUSEPORT UDP socket bound to one
// local address and port.
type Endpoint struct {
	fd      int
	local   netip.AddrPort
	groups  map[netip.Addr]bool
	ifIndex int
}

// NewUDPEndpoint opens and binds a UDP socket on local, in blocking mode
// with SO_REUSEPORT, following the same unix.Socket/Bind sequence used
// for PTP event sockets.
func NewUDPEndpoint(local netip.AddrPort) (*Endpoint, error) {
	domain := unix.AF_INET
	if local.Addr().Is6() {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("socket: unable to create UDP socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("socket: SO_REUSEPORT: %w", err)
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("socket: set blocking: %w", err)
	}
	if err := unix.Bind(fd, addrPortToSockaddr(local)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("socket: bind %v: %w", local, err)
	}

	bound, err := localAddrPort(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return &Endpoint{fd: fd, local: bound, groups: map[netip.Addr]bool{}}, nil
}

// SetTTL sets the unicast/multicast TTL used on outgoing datagrams.
func (e *Endpoint) SetTTL(ttl int) error {
	if e.local.Addr().Is4() {
		return unix.SetsockoptInt(e.fd, unix.IPPROTO_IP, unix.IP_TTL, ttl)
	}
	return unix.SetsockoptInt(e.fd, unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, ttl)
}

// SetQoS sets the IP TOS / traffic-class byte used on outgoing datagrams.
func (e *Endpoint) SetQoS(tos int) error {
	if e.local.Addr().Is4() {
		return unix.SetsockoptInt(e.fd, unix.IPPROTO_IP, unix.IP_TOS, tos)
	}
	return unix.SetsockoptInt(e.fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
}

// JoinMulticast joins group on the interface with index ifIndex, a no-op
// if already joined.
func (e *Endpoint) JoinMulticast(group netip.Addr, ifIndex int) error {
	if e.groups[group] {
		return nil
	}
	if group.Is4() {
		mreq := &unix.IPMreqn{Ifindex: int32(ifIndex)}
		copy(mreq.Multiaddr[:], group.AsSlice())
		if err := unix.SetsockoptIPMreqn(e.fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq); err != nil {
			return fmt.Errorf("socket: join multicast %v: %w", group, err)
		}
	} else {
		mreq := &unix.IPv6Mreq{Interface: uint32(ifIndex)}
		copy(mreq.Multiaddr[:], group.AsSlice())
		if err := unix.SetsockoptIPv6Mreq(e.fd, unix.IPPROTO_IPV6, unix.IPV6_JOIN_GROUP, mreq); err != nil {
			return fmt.Errorf("socket: join multicast %v: %w", group, err)
		}
	}
	e.ifIndex = ifIndex
	e.groups[group] = true
	return nil
}

// LeaveMulticast leaves a previously joined group.
func (e *Endpoint) LeaveMulticast(group netip.Addr) error {
	if !e.groups[group] {
		return nil
	}
	if group.Is4() {
		mreq := &unix.IPMreqn{Ifindex: int32(e.ifIndex)}
		copy(mreq.Multiaddr[:], group.AsSlice())
		if err := unix.SetsockoptIPMreqn(e.fd, unix.IPPROTO_IP, unix.IP_DROP_MEMBERSHIP, mreq); err != nil {
			return fmt.Errorf("socket: leave multicast %v: %w", group, err)
		}
	} else {
		mreq := &unix.IPv6Mreq{Interface: uint32(e.ifIndex)}
		copy(mreq.Multiaddr[:], group.AsSlice())
		if err := unix.SetsockoptIPv6Mreq(e.fd, unix.IPPROTO_IPV6, unix.IPV6_LEAVE_GROUP, mreq); err != nil {
			return fmt.Errorf("socket: leave multicast %v: %w", group, err)
		}
	}
	delete(e.groups, group)
	return nil
}

// WriteTo sends b to dst.
func (e *Endpoint) WriteTo(b []byte, dst netip.AddrPort) error {
	return unix.Sendto(e.fd, b, 0, addrPortToSockaddr(dst))
}

// ReadFrom blocks until a datagram arrives, returning its source.
func (e *Endpoint) ReadFrom(buf []byte) (int, netip.AddrPort, error) {
	n, from, err := unix.Recvfrom(e.fd, buf, 0)
	if err != nil {
		return 0, netip.AddrPort{}, err
	}
	addr, ok := sockaddrToAddrPort(from)
	if !ok {
		return n, netip.AddrPort{}, fmt.Errorf("socket: unsupported sockaddr type %T", from)
	}
	return n, addr, nil
}

// LocalAddrPort returns the bound local address, with the kernel-assigned
// port filled in if the caller bound to port 0.
func (e *Endpoint) LocalAddrPort() netip.AddrPort { return e.local }

// Fd returns the underlying file descriptor, for building a poll/select
// readiness set over several endpoints at once.
func (e *Endpoint) Fd() int { return e.fd }

// Close releases the underlying file descriptor.
func (e *Endpoint) Close() error { return unix.Close(e.fd) }

func addrPortToSockaddr(ap netip.AddrPort) unix.Sockaddr {
	if ap.Addr().Is4() {
		return &unix.SockaddrInet4{Port: int(ap.Port()), Addr: ap.Addr().As4()}
	}
	return &unix.SockaddrInet6{Port: int(ap.Port()), Addr: ap.Addr().As16()}
}

func sockaddrToAddrPort(sa unix.Sockaddr) (netip.AddrPort, bool) {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(s.Addr), uint16(s.Port)), true
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(s.Addr), uint16(s.Port)), true
	default:
		return netip.AddrPort{}, false
	}
}

func localAddrPort(fd int) (netip.AddrPort, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("socket: getsockname: %w", err)
	}
	addr, ok := sockaddrToAddrPort(sa)
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("socket: unsupported sockaddr type %T", sa)
	}
	return addr, nil
}
