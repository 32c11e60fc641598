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

package session

import (
	"fmt"
	"net/netip"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tcnopen/trdp-go/mdengine"
	"github.com/tcnopen/trdp-go/pdengine"
	"github.com/tcnopen/trdp-go/socket"
	"github.com/tcnopen/trdp-go/trdperr"
	"github.com/tcnopen/trdp-go/trdpstats"
	"github.com/tcnopen/trdp-go/trdptime"
	"github.com/tcnopen/trdp-go/wire"
)

// Session binds one socket pool, one PD scheduler and one MD engine under
// a single mutex: own IP, virtual (leader) IP, topo counts and
// redundancy state live here, alongside the statistics counters the host
// application reads back.
//
// Public operations take mu only long enough to check whether a Process
// or Dispatch* call is running its callback chain. The engines fire
// callbacks with their own mutex held, so a mutating operation invoked
// from a callback is deferred to a post-dispatch drain list instead of
// being run inline, which would deadlock against the engine's mutex.
// Get and the Set* methods are not deferred. See drainPending.
type Session struct {
	mu sync.Mutex

	pool  *socket.Pool
	sched *pdengine.Scheduler
	mdeng *mdengine.Engine
	stats *trdpstats.Counters

	ownIP    netip.Addr
	leaderIP netip.Addr
	topo     wire.TopoFilter

	dispatching bool
	drainList   []func()

	closed bool
}

// Open stands up a new Session from cfg. The caller owns its lifetime and
// must call Close when done.
func Open(cfg Config) *Session {
	pool := socket.NewPool()
	return &Session{
		pool:     pool,
		sched:    pdengine.New(cfg.PD, pool, cfg.Tables),
		mdeng:    mdengine.New(cfg.MD, pool),
		stats:    trdpstats.New(),
		ownIP:    cfg.OwnIP,
		leaderIP: cfg.LeaderIP,
	}
}

// Close marks the session closed. Publications, subscriptions and
// listeners the caller has not already released remain registered with
// their engines; Close does not force-unwind them; a host application
// tears these down individually (so it can log which entry owned which
// socket) before discarding the Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return trdperr.New("session.Close", trdperr.NoInit, fmt.Errorf("already closed"))
	}
	s.closed = true
	return nil
}

// Stats returns the counters this session accumulates.
func (s *Session) Stats() *trdpstats.Counters { return s.stats }

// OwnIP returns the address stamped as the default source for this
// session's traffic.
func (s *Session) OwnIP() netip.Addr { return s.ownIP }

// LeaderIP returns the virtual redundancy-leader address, if configured.
func (s *Session) LeaderIP() netip.Addr { return s.leaderIP }

// SetRedundant sets whether this session's non-redundant publications
// should stay quiet, because it is the standby half of a redundancy
// pair.
func (s *Session) SetRedundant(beQuiet bool) {
	s.sched.SetRedundant(beQuiet)
}

// SetTopoCount updates the topo counts stamped into outgoing PD and MD
// headers, and the filter applied to inbound frames on Dispatch*. Topo
// ownership is per-Session, not a package-level global.
func (s *Session) SetTopoCount(etbTopoCnt, opTrnTopoCnt uint32) {
	s.sched.SetTopoCount(etbTopoCnt, opTrnTopoCnt)
	s.mdeng.SetTopoCount(etbTopoCnt, opTrnTopoCnt)

	s.mu.Lock()
	s.topo = wire.TopoFilter{EtbTopoCnt: etbTopoCnt, OpTrnTopoCnt: opTrnTopoCnt}
	s.mu.Unlock()
}

// guardErr runs fn (an operation returning only an error) immediately,
// unless the session is presently dispatching a callback on this
// goroutine, in which case fn is deferred to the drain list and this
// call returns nil; a deferred operation's error is logged, not
// returned, since there is no longer a caller on the stack to receive
// it. onSuccess, if non-nil, runs exactly once fn has actually run and
// returned nil — immediately in the non-deferred case, or from within
// the deferred thunk otherwise — so a tx counter bump never fires ahead
// of the send it counts.
func (s *Session) guardErr(op string, fn func() error, onSuccess func()) error {
	s.mu.Lock()
	if s.dispatching {
		s.drainList = append(s.drainList, func() {
			if err := fn(); err != nil {
				log.Errorf("session: deferred %s: %v", op, err)
			} else if onSuccess != nil {
				onSuccess()
			}
		})
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

// Publish registers a cyclic PD telegram. See pdengine.Scheduler.Publish
// for the parameters. Calling Publish from within a PD/MD callback
// defers the allocation; the returned handle is then always zero and
// must not be used — this is an inherent limit of deferring an
// allocating call, not a bug.
func (s *Session) Publish(addr wire.Address, dest netip.AddrPort, interval time.Duration, flags pdengine.PubFlags, sendParams pdengine.SendParams, dsID uint32, initialData any) (pdengine.PubHandle, error) {
	s.mu.Lock()
	if s.dispatching {
		s.drainList = append(s.drainList, func() {
			if _, err := s.sched.Publish(addr, dest, interval, flags, sendParams, dsID, initialData); err != nil {
				log.Errorf("session: deferred Publish(comID=%d): %v", addr.ComID, err)
			}
		})
		s.mu.Unlock()
		return 0, nil
	}
	s.mu.Unlock()
	return s.sched.Publish(addr, dest, interval, flags, sendParams, dsID, initialData)
}

// Put updates a publication's payload.
func (s *Session) Put(h pdengine.PubHandle, data any) error {
	return s.guardErr(fmt.Sprintf("Put(%d)", h), func() error { return s.sched.Put(h, data) }, nil)
}

// Unpublish releases a publication.
func (s *Session) Unpublish(h pdengine.PubHandle) error {
	return s.guardErr(fmt.Sprintf("Unpublish(%d)", h), func() error { return s.sched.Unpublish(h) }, nil)
}

// Subscribe registers a PD receive entry. See pdengine.Scheduler.Subscribe.
func (s *Session) Subscribe(addr wire.Address, local netip.AddrPort, timeout time.Duration, behavior pdengine.Behavior, maxSize int, dsID uint32, marshalled bool, srcFilter1, srcFilter2 netip.Addr, cb pdengine.Callback) (pdengine.SubHandle, error) {
	s.mu.Lock()
	if s.dispatching {
		s.drainList = append(s.drainList, func() {
			if _, err := s.sched.Subscribe(addr, local, timeout, behavior, maxSize, dsID, marshalled, srcFilter1, srcFilter2, cb); err != nil {
				log.Errorf("session: deferred Subscribe(comID=%d): %v", addr.ComID, err)
			}
		})
		s.mu.Unlock()
		return 0, nil
	}
	s.mu.Unlock()
	return s.sched.Subscribe(addr, local, timeout, behavior, maxSize, dsID, marshalled, srcFilter1, srcFilter2, cb)
}

// Unsubscribe releases a subscription, the canonical example of the
// callback re-entrancy this package's drain list exists for (Design Note
// §9: "a callback that unsubscribes").
func (s *Session) Unsubscribe(h pdengine.SubHandle) error {
	return s.guardErr(fmt.Sprintf("Unsubscribe(%d)", h), func() error { return s.sched.Unsubscribe(h) }, nil)
}

// Get returns a subscription's current cached payload.
func (s *Session) Get(h pdengine.SubHandle) (any, bool, error) {
	return s.sched.Get(h)
}

// AddListener registers an MD replier/notify sink.
func (s *Session) AddListener(addr wire.Address, local netip.AddrPort, srcURI, destURI string, cb mdengine.Callback) (mdengine.ListenerHandle, error) {
	s.mu.Lock()
	if s.dispatching {
		s.drainList = append(s.drainList, func() {
			if _, err := s.mdeng.AddListener(addr, local, srcURI, destURI, cb); err != nil {
				log.Errorf("session: deferred AddListener(comID=%d): %v", addr.ComID, err)
			}
		})
		s.mu.Unlock()
		return 0, nil
	}
	s.mu.Unlock()
	return s.mdeng.AddListener(addr, local, srcURI, destURI, cb)
}

// RemoveListener releases an MD listener.
func (s *Session) RemoveListener(h mdengine.ListenerHandle) error {
	return s.guardErr(fmt.Sprintf("RemoveListener(%d)", h), func() error { return s.mdeng.RemoveListener(h) }, nil)
}

// Request issues an MD request. See mdengine.Engine.Request.
func (s *Session) Request(addr wire.Address, dest netip.AddrPort, noOfRepliers int, replyTimeout time.Duration, numRetriesMax int, data []byte, cb mdengine.Callback) (mdengine.RequestHandle, error) {
	s.mu.Lock()
	if s.dispatching {
		s.drainList = append(s.drainList, func() {
			if _, err := s.mdeng.Request(addr, dest, noOfRepliers, replyTimeout, numRetriesMax, data, cb); err != nil {
				log.Errorf("session: deferred Request(comID=%d): %v", addr.ComID, err)
			} else {
				s.stats.IncTX(wire.MDRequest)
			}
		})
		s.mu.Unlock()
		return 0, nil
	}
	s.mu.Unlock()
	h, err := s.mdeng.Request(addr, dest, noOfRepliers, replyTimeout, numRetriesMax, data, cb)
	if err == nil {
		s.stats.IncTX(wire.MDRequest)
	}
	return h, err
}

// Notify sends a one-shot MD notification.
func (s *Session) Notify(addr wire.Address, dest netip.AddrPort, data []byte) error {
	return s.guardErr(fmt.Sprintf("Notify(comID=%d)", addr.ComID),
		func() error { return s.mdeng.Notify(addr, dest, data) },
		func() { s.stats.IncTX(wire.MDNotify) })
}

// Reply answers a pending MD request with a terminal reply.
func (s *Session) Reply(sessionID mdengine.SessionID, data []byte) error {
	return s.guardErr("Reply",
		func() error { return s.mdeng.Reply(sessionID, data) },
		func() { s.stats.IncTX(wire.MDReply) })
}

// ReplyQuery answers a pending MD request and awaits the caller's confirm.
func (s *Session) ReplyQuery(sessionID mdengine.SessionID, confirmTimeout time.Duration, cb mdengine.Callback, data []byte) error {
	return s.guardErr("ReplyQuery",
		func() error { return s.mdeng.ReplyQuery(sessionID, confirmTimeout, cb, data) },
		func() { s.stats.IncTX(wire.MDReplyQ) })
}

// Confirm sends a confirm for a caller session that received a ReplyQuery.
func (s *Session) Confirm(sessionID mdengine.SessionID) error {
	return s.guardErr("Confirm",
		func() error { return s.mdeng.Confirm(sessionID) },
		func() { s.stats.IncTX(wire.MDConfirm) })
}

// GetInterval returns how long the caller may safely poll its sockets
// for before the next Process call is due, bounded by the tighter of the
// PD and MD engines' own deadlines.
func (s *Session) GetInterval(now trdptime.Time) time.Duration {
	pd := s.sched.GetInterval(now)
	md := s.mdeng.GetInterval(now)
	if md < pd {
		return md
	}
	return pd
}

// Process drives both engines' due sends/timeouts for one now snapshot,
// then drains any destructive mutation a fired callback deferred.
func (s *Session) Process(now trdptime.Time) {
	s.mu.Lock()
	if s.dispatching {
		// Process is not re-entrant; a callback driving its own Process
		// call would re-run the same pass twice. Ignore instead.
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	s.mu.Unlock()

	s.sched.Process(now)
	s.mdeng.Process(now)

	s.stats.SetNoSubscriberCount(s.sched.NoSubscriberCount())
	s.stats.SetNoListenerCount(s.mdeng.NoListenerCount())

	s.drainPending()
}

// DispatchPD routes a raw PD frame to the matching subscription.
func (s *Session) DispatchPD(raw []byte, srcIP, destIP netip.Addr) (trdperr.ResultCode, error) {
	return s.dispatch(raw, func(topo wire.TopoFilter) (trdperr.ResultCode, error) {
		return s.sched.Dispatch(raw, topo, srcIP, destIP)
	})
}

// DispatchMD routes a raw MD frame to the matching listener or caller
// session.
func (s *Session) DispatchMD(raw []byte, srcIP netip.Addr, srcPort uint16) (trdperr.ResultCode, error) {
	return s.dispatch(raw, func(topo wire.TopoFilter) (trdperr.ResultCode, error) {
		return s.mdeng.Dispatch(raw, topo, srcIP, srcPort)
	})
}

// DispatchFrame peeks raw's msgType and routes it to DispatchPD or
// DispatchMD, for a caller that reads one socket carrying both families
// (e.g. a single UDP port shared by convention, or a TCP connection
// multiplexing MD sessions).
func (s *Session) DispatchFrame(raw []byte, srcIP, destIP netip.Addr, srcPort uint16) (trdperr.ResultCode, error) {
	mt, err := wire.PeekMsgType(raw)
	if err != nil {
		return trdperr.WireError, err
	}
	switch mt.Kind() {
	case wire.KindPD:
		return s.DispatchPD(raw, srcIP, destIP)
	case wire.KindMD:
		return s.DispatchMD(raw, srcIP, srcPort)
	default:
		return trdperr.WireError, fmt.Errorf("session: DispatchFrame: unrecognized msgType %s", mt)
	}
}

func (s *Session) dispatch(raw []byte, call func(wire.TopoFilter) (trdperr.ResultCode, error)) (trdperr.ResultCode, error) {
	if mt, err := wire.PeekMsgType(raw); err == nil {
		s.stats.IncRX(mt)
	}

	s.mu.Lock()
	topo := s.topo
	if s.dispatching {
		s.mu.Unlock()
		code, err := call(topo)
		s.stats.IncResult(code)
		if code == trdperr.TopoError {
			s.stats.IncTopoError()
		}
		return code, err
	}
	s.dispatching = true
	s.mu.Unlock()

	code, err := call(topo)
	s.stats.IncResult(code)
	if code == trdperr.TopoError {
		s.stats.IncTopoError()
	}

	s.drainPending()
	return code, err
}

func (s *Session) drainPending() {
	s.mu.Lock()
	s.dispatching = false
	pending := s.drainList
	s.drainList = nil
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}
