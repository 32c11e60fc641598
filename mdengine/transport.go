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

package mdengine

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/tcnopen/trdp-go/socket"
	"github.com/tcnopen/trdp-go/wire"
)

// mdTrailingLen derives how many more bytes follow a just-read MD header:
// the 4-byte-aligned dataset plus its trailing body CRC, per §4.4
// Transport. header must be exactly wire.MDHeaderSize bytes.
func mdTrailingLen(header []byte) (int, error) {
	var h wire.MDHeader
	if err := h.UnmarshalBinary(header); err != nil {
		return 0, fmt.Errorf("mdengine: reading MD header: %w", err)
	}
	n := int(h.DatasetLength)
	if rem := n % 4; rem != 0 {
		n += 4 - rem
	}
	return n + 4, nil // + trailing body CRC
}

// TCPTransport multiplexes MD sessions over one persistent connection per
// peer, as §4.4 requires: one socket, many sessionIds. It dials out
// lazily on first use per destination and keeps that connection until a
// write to it fails or Close is called. It has no accept side and no
// idle detection; Config.ConnectTimeout is not read by it.
type TCPTransport struct {
	dial func(addr string) (net.Conn, error)

	mu    sync.Mutex
	conns map[netip.AddrPort]net.Conn
}

// NewTCPTransport returns a TCPTransport using dial to open new peer
// connections (normally socket.DialTCP).
func NewTCPTransport(dial func(addr string) (net.Conn, error)) *TCPTransport {
	return &TCPTransport{dial: dial, conns: map[netip.AddrPort]net.Conn{}}
}

// Send writes raw (a complete, already-marshalled MD frame) to dest,
// dialing a new connection the first time dest is used.
func (tr *TCPTransport) Send(dest netip.AddrPort, raw []byte) error {
	tr.mu.Lock()
	conn, ok := tr.conns[dest]
	tr.mu.Unlock()

	if !ok {
		var err error
		conn, err = tr.dial(dest.String())
		if err != nil {
			return fmt.Errorf("mdengine: dialing %s: %w", dest, err)
		}
		tr.mu.Lock()
		tr.conns[dest] = conn
		tr.mu.Unlock()
	}

	_, err := conn.Write(raw)
	if err != nil {
		tr.mu.Lock()
		delete(tr.conns, dest)
		tr.mu.Unlock()
		_ = conn.Close()
	}
	return err
}

// Close closes every open peer connection.
func (tr *TCPTransport) Close() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for dest, conn := range tr.conns {
		_ = conn.Close()
		delete(tr.conns, dest)
	}
	return nil
}

// ReadNextFrame reads one complete MD frame from conn: the fixed-size
// header first, then the 4-byte-aligned dataset plus the trailing body
// CRC, per §4.4.
func ReadNextFrame(conn net.Conn) ([]byte, error) {
	return socket.ReadFrame(conn, wire.MDHeaderSize, mdTrailingLen)
}
