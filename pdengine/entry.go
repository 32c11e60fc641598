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

package pdengine

import (
	"net/netip"
	"time"

	"github.com/tcnopen/trdp-go/socket"
	"github.com/tcnopen/trdp-go/trdperr"
	"github.com/tcnopen/trdp-go/trdptime"
	"github.com/tcnopen/trdp-go/wire"
)

// Behavior governs what Get returns for a subscription after its timeout
// fires: the last good payload, or a zeroed buffer.
type Behavior int

const (
	KeepLastValue Behavior = iota
	SetToZero
)

// PubFlags are the per-publication options Publish accepts.
type PubFlags struct {
	// Marshall selects whether InitialData/Put payloads are host Records
	// run through marshal.MarshalDataset, or already-wire bytes.
	Marshall bool
	// Redundant exempts this publication from beQuiet suppression when
	// the owning session is the standby half of a redundancy pair.
	Redundant bool
}

// SendParams are the per-publication/subscription socket parameters.
type SendParams struct {
	QoS int
	TTL int
}

// Event is delivered to a subscription's callback on receive or timeout.
// Data is a []byte when the marshalled argument passed to Subscribe is
// false, or a *marshal.Record when it is true.
type Event struct {
	Result trdperr.ResultCode
	ComID  uint32
	SrcIP  netip.Addr
	DestIP netip.Addr
	Data   any
}

// Callback receives PD subscription events.
type Callback func(Event)

// PubHandle identifies a publication returned by Publish.
type PubHandle uint64

// SubHandle identifies a subscription returned by Subscribe.
type SubHandle uint64

// pubEntry is one telegram this scheduler sends cyclically.
type pubEntry struct {
	handle     PubHandle
	addr       wire.Address
	interval   time.Duration
	flags      PubFlags
	sendParams SendParams
	dsID       uint32
	ep         *socket.Endpoint
	sockKey    socket.Key
	dest       netip.AddrPort

	header   wire.PDHeader
	data     []byte // pre-marshalled wire bytes, ready to send as-is
	timeToGo trdptime.Time
	heapIdx  int
}

func (e *pubEntry) Deadline() trdptime.Time { return e.timeToGo }
func (e *pubEntry) HeapIndex() int          { return e.heapIdx }
func (e *pubEntry) SetHeapIndex(i int)      { e.heapIdx = i }

// subEntry is one telegram this scheduler listens for.
type subEntry struct {
	handle     SubHandle
	addr       wire.Address
	timeout    time.Duration
	behavior   Behavior
	maxSize    int
	dsID       uint32
	marshalled bool
	srcFilter1 netip.Addr
	srcFilter2 netip.Addr
	ep         *socket.Endpoint
	sockKey    socket.Key
	callback   Callback

	// data is a []byte when marshalled is false, a *marshal.Record when true.
	data     any
	timedOut bool
	timeToGo trdptime.Time
	heapIdx  int
}

func (e *subEntry) Deadline() trdptime.Time { return e.timeToGo }
func (e *subEntry) HeapIndex() int          { return e.heapIdx }
func (e *subEntry) SetHeapIndex(i int)      { e.heapIdx = i }

// matchSrc reports whether src satisfies a subscription's (up to two)
// redundant-sender source filters. No filter configured means any source
// is accepted.
func (e *subEntry) matchSrc(src netip.Addr) bool {
	if !e.srcFilter1.IsValid() && !e.srcFilter2.IsValid() {
		return true
	}
	return e.srcFilter1 == src || e.srcFilter2 == src
}
