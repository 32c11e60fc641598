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
	"sync"
)

// Key identifies the socket a publication or listener should share: same
// source address, same local port, same QoS/TTL pair and the same
// transport kind never need two file descriptors.
type Key struct {
	SrcAddr netip.Addr
	Port    uint16
	QoS     int
	TTL     int
	Kind    Kind
}

type entry struct {
	ep       *Endpoint
	refCount int
}

// Pool hands out reference-counted Endpoints, opening a new one only the
// first time a Key is requested.
type Pool struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{entries: map[Key]*entry{}}
}

// Acquire returns the Endpoint for key, opening and configuring one if
// this is the first caller to ask for it. Each successful Acquire must be
// matched with a Release.
func (p *Pool) Acquire(key Key) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[key]; ok {
		e.refCount++
		return e.ep, nil
	}

	if key.Kind != UDP {
		return nil, fmt.Errorf("socket: Pool.Acquire: unsupported kind %d for pooled endpoints", key.Kind)
	}

	ep, err := NewUDPEndpoint(netip.AddrPortFrom(key.SrcAddr, key.Port))
	if err != nil {
		return nil, err
	}
	if key.TTL != 0 {
		if err := ep.SetTTL(key.TTL); err != nil {
			_ = ep.Close()
			return nil, err
		}
	}
	if key.QoS != 0 {
		if err := ep.SetQoS(key.QoS); err != nil {
			_ = ep.Close()
			return nil, err
		}
	}

	p.entries[key] = &entry{ep: ep, refCount: 1}
	return ep, nil
}

// Release drops one reference to key's endpoint, closing it once the
// count reaches zero.
func (p *Pool) Release(key Key) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return fmt.Errorf("socket: Pool.Release: unknown key %+v", key)
	}
	e.refCount--
	if e.refCount > 0 {
		return nil
	}
	delete(p.entries, key)
	return e.ep.Close()
}

// Len reports how many distinct endpoints are currently open, for tests
// and diagnostics.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Endpoints returns every currently open endpoint, for a caller building
// a poll/select readiness set over the whole pool.
func (p *Pool) Endpoints() []*Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	eps := make([]*Endpoint, 0, len(p.entries))
	for _, e := range p.entries {
		eps = append(eps, e.ep)
	}
	return eps
}
