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
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/tcnopen/trdp-go/marshal"
	"github.com/tcnopen/trdp-go/socket"
	"github.com/tcnopen/trdp-go/trdperr"
	"github.com/tcnopen/trdp-go/trdptime"
	"github.com/tcnopen/trdp-go/wire"
)

// maxShapingSlots bounds the traffic-shaping bucket array so a
// publication with a multi-second interval doesn't allocate one
// millisecond bucket per millisecond of it.
const maxShapingSlots = 1000

// Scheduler owns the PD send queue (publications) and receive queue
// (subscriptions) for one session, and the pair of deadline heaps that
// make getInterval and Process O(log n) per entry that moves.
//
// It plays the role the teacher's server.Server plus
// server.SubscriptionClient play together: one struct owns the
// lifecycle, but instead of handing each due entry to a worker queue it
// advances the entry itself and re-inserts it into a heap.
type Scheduler struct {
	mu     sync.Mutex
	cfg    Config
	pool   *socket.Pool
	tables *marshal.Tables

	epoch trdptime.Time

	nextHandle uint64
	pubByAddr  map[wire.Address]PubHandle
	pubs       map[PubHandle]*pubEntry
	subs       map[SubHandle]*subEntry

	pubQueue deadlineQueue[*pubEntry]
	subQueue deadlineQueue[*subEntry]

	etbTopoCnt   uint32
	opTrnTopoCnt uint32
	beQuiet      bool

	noSubscriberCount uint64
}

// New creates a Scheduler backed by pool for socket acquisition and
// tables for optional marshalling of publish/subscribe payloads. tables
// may be nil if no publication or subscription uses PubFlags.Marshall.
func New(cfg Config, pool *socket.Pool, tables *marshal.Tables) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		pool:      pool,
		tables:    tables,
		epoch:     trdptime.Now(),
		pubByAddr: make(map[wire.Address]PubHandle),
		pubs:      make(map[PubHandle]*pubEntry),
		subs:      make(map[SubHandle]*subEntry),
	}
}

// SetRedundant sets whether this scheduler's non-redundant publications
// should stay quiet (standby half of a redundancy pair).
func (s *Scheduler) SetRedundant(beQuiet bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beQuiet = beQuiet
}

// SetTopoCount updates the topo counts stamped into outgoing headers.
func (s *Scheduler) SetTopoCount(etbTopoCnt, opTrnTopoCnt uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.etbTopoCnt = etbTopoCnt
	s.opTrnTopoCnt = opTrnTopoCnt
}

// Publish allocates a telegram entry for cyclic sending. It fails with
// AlreadyPublished if addr is already published.
func (s *Scheduler) Publish(addr wire.Address, dest netip.AddrPort, interval time.Duration, flags PubFlags, sendParams SendParams, dsID uint32, initialData any) (PubHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pubByAddr[addr]; ok {
		return 0, trdperr.New("pdengine.Publish", trdperr.AlreadyPublished, nil)
	}

	// Publications share one outgoing socket per (srcIP, QoS, TTL): the
	// destination port plays no part in which local socket sends the
	// datagram, only in where it is addressed to.
	key := socket.Key{
		SrcAddr: addr.SrcIP,
		QoS:     sendParams.QoS,
		TTL:     sendParams.TTL,
		Kind:    socket.UDP,
	}
	ep, err := s.pool.Acquire(key)
	if err != nil {
		return 0, trdperr.New("pdengine.Publish", trdperr.IOError, err)
	}

	data, err := s.encode(flags.Marshall, dsID, initialData)
	if err != nil {
		_ = s.pool.Release(key)
		return 0, err
	}

	s.nextHandle++
	e := &pubEntry{
		handle:     PubHandle(s.nextHandle),
		addr:       addr,
		interval:   interval,
		flags:      flags,
		sendParams: sendParams,
		dsID:       dsID,
		ep:         ep,
		sockKey:    key,
		dest:       dest,
		data:       data,
	}
	e.header.ComID = addr.ComID
	e.header.MsgType = wire.PD
	e.header.ProtocolVersion = wire.ProtocolVersion

	e.timeToGo = s.firstDeadline(interval)

	s.pubByAddr[addr] = e.handle
	s.pubs[e.handle] = e
	s.pubQueue.Insert(e)

	return e.handle, nil
}

// firstDeadline picks the initial timeToGo for a new publication: now +
// interval normally, or the least-loaded slot within the first interval
// when traffic shaping is enabled.
func (s *Scheduler) firstDeadline(interval time.Duration) trdptime.Time {
	now := trdptime.Now()
	if !s.cfg.TrafficShaping || interval <= 0 {
		return now.Add(trdptime.FromDuration(interval))
	}

	slots := int(interval / time.Millisecond)
	if slots <= 0 {
		slots = 1
	}
	if slots > maxShapingSlots {
		slots = maxShapingSlots
	}
	bucketWidth := interval / time.Duration(slots)

	load := make([]int, slots)
	for _, p := range s.pubs {
		phase := p.timeToGo.Sub(s.epoch).Duration() % interval
		if phase < 0 {
			phase += interval
		}
		idx := int(phase / bucketWidth)
		if idx >= slots {
			idx = slots - 1
		}
		load[idx]++
	}

	best := 0
	for i := 1; i < slots; i++ {
		if load[i] < load[best] {
			best = i
		}
	}
	nowPhase := now.Sub(s.epoch).Duration() % interval
	if nowPhase < 0 {
		nowPhase += interval
	}
	offset := (time.Duration(best)*bucketWidth - nowPhase + interval) % interval
	return now.Add(trdptime.FromDuration(offset))
}

// Put updates the payload of an existing publication.
func (s *Scheduler) Put(h PubHandle, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pubs[h]
	if !ok {
		return trdperr.New("pdengine.Put", trdperr.NoPublish, nil)
	}
	encoded, err := s.encode(e.flags.Marshall, e.dsID, data)
	if err != nil {
		return err
	}
	e.data = encoded
	return nil
}

// Unpublish releases a publication's socket and removes it from the
// send queue.
func (s *Scheduler) Unpublish(h PubHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pubs[h]
	if !ok {
		return trdperr.New("pdengine.Unpublish", trdperr.NoPublish, nil)
	}
	s.pubQueue.Remove(e)
	delete(s.pubs, h)
	delete(s.pubByAddr, e.addr)
	return s.pool.Release(e.sockKey)
}

// Subscribe allocates a receive entry for addr. destIP in 224.0.0.0/4
// joins the corresponding multicast group on the acquired socket.
func (s *Scheduler) Subscribe(addr wire.Address, local netip.AddrPort, timeout time.Duration, behavior Behavior, maxSize int, dsID uint32, marshalled bool, srcFilter1, srcFilter2 netip.Addr, cb Callback) (SubHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := socket.Key{SrcAddr: local.Addr(), Port: local.Port(), Kind: socket.UDP}
	ep, err := s.pool.Acquire(key)
	if err != nil {
		return 0, trdperr.New("pdengine.Subscribe", trdperr.IOError, err)
	}
	if addr.IsMulticast() {
		if err := ep.JoinMulticast(addr.MCGroup, 0); err != nil {
			return 0, trdperr.New("pdengine.Subscribe", trdperr.IOError, err)
		}
	}

	s.nextHandle++
	e := &subEntry{
		handle:     SubHandle(s.nextHandle),
		addr:       addr,
		timeout:    timeout,
		behavior:   behavior,
		maxSize:    maxSize,
		dsID:       dsID,
		marshalled: marshalled,
		srcFilter1: srcFilter1,
		srcFilter2: srcFilter2,
		ep:         ep,
		sockKey:    key,
		callback:   cb,
		timeToGo:   trdptime.Now().Add(trdptime.FromDuration(timeout)),
	}

	s.subs[e.handle] = e
	s.subQueue.Insert(e)
	return e.handle, nil
}

// Unsubscribe releases a subscription's socket (leaving any multicast
// group it had joined) and removes it from the receive queue.
func (s *Scheduler) Unsubscribe(h SubHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.subs[h]
	if !ok {
		return trdperr.New("pdengine.Unsubscribe", trdperr.NoSubscribe, nil)
	}
	if e.addr.IsMulticast() {
		_ = e.ep.LeaveMulticast(e.addr.MCGroup)
	}
	s.subQueue.Remove(e)
	delete(s.subs, h)
	return s.pool.Release(e.sockKey)
}

// Get returns the subscription's current cached payload and whether it
// is presently in the timed-out state.
func (s *Scheduler) Get(h SubHandle) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.subs[h]
	if !ok {
		return nil, false, trdperr.New("pdengine.Get", trdperr.NoSubscribe, nil)
	}
	return e.data, e.timedOut, nil
}

// Process sends due publications and fires timeout callbacks for due
// subscriptions. It must be called periodically by the owning session;
// getInterval tells the caller how long it may sleep beforehand.
func (s *Scheduler) Process(now trdptime.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		p, ok := s.pubQueue.Peek()
		if !ok || p.Deadline().After(now) {
			break
		}
		s.sendDue(p, now)
		s.pubQueue.Fix(p)
	}

	for {
		sub, ok := s.subQueue.Peek()
		if !ok || sub.Deadline().After(now) {
			break
		}
		s.fireTimeout(sub, now)
		s.subQueue.Fix(sub)
	}
}

func (s *Scheduler) sendDue(p *pubEntry, now trdptime.Time) {
	defer func() { p.timeToGo = now.Add(trdptime.FromDuration(p.interval)) }()

	if s.beQuiet && !p.flags.Redundant {
		return
	}

	p.header.EtbTopoCnt = s.etbTopoCnt
	p.header.OpTrnTopoCnt = s.opTrnTopoCnt

	frame := wire.PDFrame{PDHeader: p.header, Data: p.data}
	p.header.SequenceCounter++
	raw, err := frame.MarshalBinary()
	if err != nil {
		return
	}
	_ = p.ep.WriteTo(raw, p.dest)
}

func (s *Scheduler) fireTimeout(e *subEntry, now trdptime.Time) {
	if !e.timedOut {
		e.timedOut = true
		if e.behavior == SetToZero {
			if b, ok := e.data.([]byte); ok {
				for i := range b {
					b[i] = 0
				}
			} else {
				e.data = nil
			}
		}
		if e.callback != nil {
			e.callback(Event{Result: trdperr.Timeout, ComID: e.addr.ComID, SrcIP: e.addr.SrcIP, DestIP: e.addr.DestIP, Data: e.data})
		}
	}
	e.timeToGo = now.Add(trdptime.FromDuration(e.timeout))
}

// GetInterval returns the duration the caller may safely poll its
// sockets for, bounded by the earliest pub/sub deadline and by
// cfg.PollInterval.
func (s *Scheduler) GetInterval(now trdptime.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}

	if p, ok := s.pubQueue.Peek(); ok {
		if d := p.Deadline().Sub(now).Duration(); d < interval {
			interval = d
		}
	}
	if e, ok := s.subQueue.Peek(); ok {
		if d := e.Deadline().Sub(now).Duration(); d < interval {
			interval = d
		}
	}
	if interval < 0 {
		interval = 0
	}
	return interval
}

// Dispatch validates raw as a PD frame and routes it to the matching
// subscription, preferring an entry whose address names a source IP over
// one with a wildcard source. It increments the no-subscriber counter
// and drops the frame if nothing matches.
func (s *Scheduler) Dispatch(raw []byte, topo wire.TopoFilter, srcIP, destIP netip.Addr) (trdperr.ResultCode, error) {
	pkt, code, err := wire.Validate(raw, topo)
	if err != nil {
		return code, err
	}
	pd, ok := pkt.(*wire.PDFrame)
	if !ok {
		return trdperr.WireError, fmt.Errorf("pdengine: Dispatch: not a PD frame")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rx := wire.Address{ComID: pd.ComID, SrcIP: srcIP, DestIP: destIP}

	var exact, wildcard *subEntry
	for _, e := range s.subs {
		if e.addr.ComID != pd.ComID {
			continue
		}
		if !e.addr.Matches(rx) || !e.matchSrc(srcIP) {
			continue
		}
		if e.addr.SrcIP.IsValid() {
			exact = e
			break
		}
		if wildcard == nil {
			wildcard = e
		}
	}
	match := exact
	if match == nil {
		match = wildcard
	}
	if match == nil {
		s.noSubscriberCount++
		return trdperr.NoSubscribe, nil
	}

	match.timedOut = false
	match.timeToGo = trdptime.Now().Add(trdptime.FromDuration(match.timeout))
	s.subQueue.Fix(match)

	data, err := s.decode(match.marshalled, match.dsID, pd.Data)
	if err != nil {
		return trdperr.WireError, err
	}
	match.data = data

	if match.callback != nil {
		match.callback(Event{Result: trdperr.OK, ComID: pd.ComID, SrcIP: srcIP, DestIP: destIP, Data: data})
	}
	return trdperr.OK, nil
}

// NoSubscriberCount returns the running count of received PD frames that
// matched no subscription.
func (s *Scheduler) NoSubscriberCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noSubscriberCount
}

// encode turns a caller-supplied payload into wire bytes ready to send.
// data is a []byte when marshalled is false, a *marshal.Record when true.
func (s *Scheduler) encode(marshalled bool, dsID uint32, data any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	if !marshalled {
		b, ok := data.([]byte)
		if !ok {
			return nil, trdperr.New("pdengine.encode", trdperr.ParamError, fmt.Errorf("expected []byte payload, got %T", data))
		}
		return b, nil
	}
	rec, ok := data.(*marshal.Record)
	if !ok {
		return nil, trdperr.New("pdengine.encode", trdperr.ParamError, fmt.Errorf("expected *marshal.Record payload, got %T", data))
	}
	if s.tables == nil {
		return nil, trdperr.New("pdengine.encode", trdperr.InitError, fmt.Errorf("no marshal tables configured"))
	}
	return marshal.MarshalDataset(s.tables, dsID, rec)
}

// decode turns received wire bytes into the Go value a subscription's
// caller expects: a copy of the raw bytes, or an unmarshalled Record.
func (s *Scheduler) decode(marshalled bool, dsID uint32, wireData []byte) (any, error) {
	if !marshalled {
		return append([]byte(nil), wireData...), nil
	}
	if s.tables == nil {
		return nil, trdperr.New("pdengine.decode", trdperr.InitError, fmt.Errorf("no marshal tables configured"))
	}
	return marshal.UnmarshalDataset(s.tables, dsID, wireData)
}
