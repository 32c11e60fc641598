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
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tcnopen/trdp-go/socket"
	"github.com/tcnopen/trdp-go/trdperr"
	"github.com/tcnopen/trdp-go/trdptime"
	"github.com/tcnopen/trdp-go/wire"
)

// Engine is the message data caller/replier state machine for one session.
// It does not read sockets: callers hand it raw bytes via Dispatch and
// drive timeouts/retries via Process.
type Engine struct {
	mu   sync.Mutex
	cfg  Config
	pool *socket.Pool

	listeners    map[uint32][]*listener
	listenerSeq  uint64
	pending      map[SessionID]*pendingRequest
	callers      map[SessionID]*callerSession
	callerQueue  deadlineQueue[*callerSession]
	callerSeq    uint64
	repliers     map[SessionID]*replySession
	replierQueue deadlineQueue[*replySession]

	backoffs map[netip.Addr]*backoff

	etbTopoCnt   uint32
	opTrnTopoCnt uint32

	noListenerCount uint64
}

// New returns an Engine using pool to acquire send/receive sockets.
func New(cfg Config, pool *socket.Pool) *Engine {
	return &Engine{
		cfg:       cfg,
		pool:      pool,
		listeners: map[uint32][]*listener{},
		pending:   map[SessionID]*pendingRequest{},
		callers:   map[SessionID]*callerSession{},
		repliers:  map[SessionID]*replySession{},
		backoffs:  map[netip.Addr]*backoff{},
	}
}

// SetTopoCount updates the topo counts stamped into outgoing Mr/Mn
// headers, mirroring pdengine.Scheduler.SetTopoCount.
func (e *Engine) SetTopoCount(etbTopoCnt, opTrnTopoCnt uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.etbTopoCnt = etbTopoCnt
	e.opTrnTopoCnt = opTrnTopoCnt
}

// newSessionID builds a time-based (v1) UUID, which packs a monotonic
// timestamp into the leading bytes and a MAC-derived (or, absent a MAC,
// random) node ID into the trailing six, per the session ID format §3
// specifies.
func newSessionID() (SessionID, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return SessionID{}, fmt.Errorf("mdengine: generating session id: %w", err)
	}
	return SessionID(id), nil
}

// AddListener registers a replier/notification sink for addr (matched by
// comID, and by srcURI/destURI when non-empty). Incoming Mr/Mn frames
// matching it are delivered to callback; an Mr additionally registers a
// pendingRequest the host answers with Reply or ReplyQuery.
func (e *Engine) AddListener(addr wire.Address, local netip.AddrPort, srcURI, destURI string, callback Callback) (ListenerHandle, error) {
	if callback == nil {
		return 0, trdperr.New("mdengine.AddListener", trdperr.ParamError, nil)
	}

	key := socket.Key{SrcAddr: local.Addr(), Port: local.Port(), QoS: e.cfg.QoS, TTL: e.cfg.TTL, Kind: socket.UDP}
	ep, err := e.pool.Acquire(key)
	if err != nil {
		return 0, trdperr.New("mdengine.AddListener", trdperr.IOError, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.listenerSeq++
	l := &listener{
		handle:   ListenerHandle(e.listenerSeq),
		addr:     addr,
		srcURI:   srcURI,
		destURI:  destURI,
		local:    local,
		ep:       ep,
		sockKey:  key,
		callback: callback,
	}
	e.listeners[addr.ComID] = append(e.listeners[addr.ComID], l)
	return l.handle, nil
}

// RemoveListener unregisters a listener and releases its socket.
func (e *Engine) RemoveListener(h ListenerHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for comID, ls := range e.listeners {
		for i, l := range ls {
			if l.handle != h {
				continue
			}
			e.listeners[comID] = append(ls[:i], ls[i+1:]...)
			if len(e.listeners[comID]) == 0 {
				delete(e.listeners, comID)
			}
			return e.pool.Release(l.sockKey)
		}
	}
	return trdperr.New("mdengine.RemoveListener", trdperr.ParamError, nil)
}

func (e *Engine) findListener(comID uint32, srcURI, destURI string) *listener {
	for _, l := range e.listeners[comID] {
		if l.matchesURI(srcURI, destURI) {
			return l
		}
	}
	return nil
}

// uriString returns a NUL-padded header URI field as a string.
func uriString(b [32]byte) string {
	return strings.TrimRight(string(b[:]), "\x00")
}

// Request sends an Mr to dest and tracks the resulting caller session
// until noOfRepliers replies arrive (0 means "however many show up by
// replyTimeout"). replyTimeout and numRetriesMax of zero take the
// Engine's configured defaults.
func (e *Engine) Request(addr wire.Address, dest netip.AddrPort, noOfRepliers int, replyTimeout time.Duration, numRetriesMax int, data []byte, callback Callback) (RequestHandle, error) {
	const op = "mdengine.Request"
	if replyTimeout <= 0 {
		replyTimeout = e.cfg.ReplyTimeout
	}
	if numRetriesMax <= 0 {
		numRetriesMax = e.cfg.MaxRetries
	}

	e.mu.Lock()
	if b, ok := e.backoffs[dest.Addr()]; ok && b.active() {
		e.mu.Unlock()
		return 0, trdperr.New(op, trdperr.BlockError, errBackoff)
	}
	e.mu.Unlock()

	sessionID, err := newSessionID()
	if err != nil {
		return 0, trdperr.New(op, trdperr.MemError, err)
	}

	key := socket.Key{SrcAddr: addr.SrcIP, QoS: e.cfg.QoS, TTL: e.cfg.TTL, Kind: socket.UDP}
	ep, err := e.pool.Acquire(key)
	if err != nil {
		return 0, trdperr.New(op, trdperr.IOError, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.callerSeq++
	s := &callerSession{
		handle:        RequestHandle(e.callerSeq),
		sessionID:     sessionID,
		addr:          addr,
		dest:          dest,
		ep:            ep,
		sockKey:       key,
		request:       data,
		noOfRepliers:  noOfRepliers,
		replyTimeout:  replyTimeout,
		numRetriesMax: numRetriesMax,
		callback:      callback,
	}
	s.header = wire.MDHeader{}
	s.header.ComID = addr.ComID
	s.header.MsgType = wire.MDRequest
	s.header.ProtocolVersion = wire.ProtocolVersion
	s.header.SessionID = [16]byte(sessionID)
	s.header.ReplyTimeoutUS = uint32(replyTimeout.Microseconds())
	s.header.EtbTopoCnt = e.etbTopoCnt
	s.header.OpTrnTopoCnt = e.opTrnTopoCnt

	if err := e.send(ep, &s.header, data, dest); err != nil {
		_ = e.pool.Release(key)
		return 0, trdperr.New(op, trdperr.IOError, err)
	}

	s.timeToGo = trdptime.Now().Add(trdptime.FromDuration(replyTimeout))
	e.callers[sessionID] = s
	e.callerQueue.Insert(s)
	return s.handle, nil
}

// Notify sends a one-shot Mn with no expectation of reply.
func (e *Engine) Notify(addr wire.Address, dest netip.AddrPort, data []byte) error {
	const op = "mdengine.Notify"
	sessionID, err := newSessionID()
	if err != nil {
		return trdperr.New(op, trdperr.MemError, err)
	}

	key := socket.Key{SrcAddr: addr.SrcIP, QoS: e.cfg.QoS, TTL: e.cfg.TTL, Kind: socket.UDP}
	ep, err := e.pool.Acquire(key)
	if err != nil {
		return trdperr.New(op, trdperr.IOError, err)
	}
	defer func() { _ = e.pool.Release(key) }()

	e.mu.Lock()
	etbTopoCnt, opTrnTopoCnt := e.etbTopoCnt, e.opTrnTopoCnt
	e.mu.Unlock()

	var h wire.MDHeader
	h.ComID = addr.ComID
	h.MsgType = wire.MDNotify
	h.ProtocolVersion = wire.ProtocolVersion
	h.SessionID = [16]byte(sessionID)
	h.EtbTopoCnt = etbTopoCnt
	h.OpTrnTopoCnt = opTrnTopoCnt

	if err := e.send(ep, &h, data, dest); err != nil {
		return trdperr.New(op, trdperr.IOError, err)
	}
	return nil
}

// Reply answers a pending request with a terminal Mp, no confirm expected.
func (e *Engine) Reply(sessionID SessionID, data []byte) error {
	_, err := e.replyWithType(sessionID, wire.MDReply, 0, data)
	return err
}

// ReplyQuery answers a pending request with an Mq: the caller owes a
// Confirm within confirmTimeout or the replier's callback fires
// confirm-timeout.
func (e *Engine) ReplyQuery(sessionID SessionID, confirmTimeout time.Duration, callback Callback, data []byte) error {
	if confirmTimeout <= 0 {
		confirmTimeout = e.cfg.ConfirmTimeout
	}
	pr, err := e.replyWithType(sessionID, wire.MDReplyQ, confirmTimeout, data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	rs := &replySession{
		sessionID: sessionID,
		comID:     pr.comID,
		callback:  callback,
		timeToGo:  trdptime.Now().Add(trdptime.FromDuration(confirmTimeout)),
	}
	e.repliers[sessionID] = rs
	e.replierQueue.Insert(rs)
	return nil
}

// replyWithType sends a reply-kind frame for the pending request named by
// sessionID and returns the pendingRequest it consumed, so ReplyQuery can
// still read its comID after it is removed from the pending table.
func (e *Engine) replyWithType(sessionID SessionID, msgType wire.MsgType, replyTimeoutUS time.Duration, data []byte) (*pendingRequest, error) {
	const op = "mdengine.Reply"

	e.mu.Lock()
	pr, ok := e.pending[sessionID]
	if !ok {
		e.mu.Unlock()
		return nil, trdperr.New(op, trdperr.NoListener, nil)
	}
	delete(e.pending, sessionID)
	l := pr.listener
	e.mu.Unlock()

	var h wire.MDHeader
	h.ComID = pr.comID
	h.MsgType = msgType
	h.ProtocolVersion = wire.ProtocolVersion
	h.SessionID = [16]byte(sessionID)
	h.EtbTopoCnt = pr.etbTopoCnt
	h.OpTrnTopoCnt = pr.opTrnTopoCnt
	h.ReplyTimeoutUS = uint32(replyTimeoutUS.Microseconds())

	if err := e.send(l.ep, &h, data, pr.replyTo); err != nil {
		return nil, trdperr.New(op, trdperr.IOError, err)
	}
	return pr, nil
}

// Confirm sends Mc for every replier still owed one after an Mq, per
// sessionID. It is a no-op, not an error, if the caller session exists
// but none are owed; a sessionID with no caller session fails with
// param-error.
func (e *Engine) Confirm(sessionID SessionID) error {
	const op = "mdengine.Confirm"

	e.mu.Lock()
	s, ok := e.callers[sessionID]
	if !ok {
		e.mu.Unlock()
		return trdperr.New(op, trdperr.ParamError, nil)
	}
	targets := s.pendingConfirms
	s.pendingConfirms = nil
	done := s.resolved()
	if done {
		e.removeCaller(s)
	}
	ep := s.ep
	e.mu.Unlock()

	var h wire.MDHeader
	h.ComID = s.addr.ComID
	h.MsgType = wire.MDConfirm
	h.ProtocolVersion = wire.ProtocolVersion
	h.SessionID = [16]byte(sessionID)

	for _, dest := range targets {
		if err := e.send(ep, &h, nil, dest); err != nil {
			return trdperr.New(op, trdperr.IOError, err)
		}
	}
	return nil
}

func (e *Engine) send(ep *socket.Endpoint, h *wire.MDHeader, data []byte, dest netip.AddrPort) error {
	f := wire.MDFrame{MDHeader: *h, Data: data}
	raw, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return ep.WriteTo(raw, dest)
}

// removeCaller drops s from both the session table and the deadline
// queue. Caller must hold e.mu.
func (e *Engine) removeCaller(s *callerSession) {
	delete(e.callers, s.sessionID)
	e.callerQueue.Remove(s)
	_ = e.pool.Release(s.sockKey)
}

// Process retransmits or terminates due caller sessions and expires
// unconfirmed replier sessions, relative to now.
func (e *Engine) Process(now trdptime.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		s, ok := e.callerQueue.Peek()
		if !ok || s.Deadline().After(now) {
			break
		}

		if s.numReplies == 0 && s.numRetries < s.numRetriesMax {
			s.numRetries++
			if err := e.send(s.ep, &s.header, s.request, s.dest); err == nil {
				s.timeToGo = now.Add(trdptime.FromDuration(s.replyTimeout))
				e.callerQueue.Fix(s)
				continue
			}
		}

		if s.numReplies == 0 {
			e.bumpBackoff(s.dest.Addr())
			if s.callback != nil {
				s.callback(Event{Result: trdperr.Timeout, ComID: s.addr.ComID, SessionID: s.sessionID})
			}
		}
		e.removeCaller(s)
	}

	for {
		rs, ok := e.replierQueue.Peek()
		if !ok || rs.Deadline().After(now) {
			break
		}
		delete(e.repliers, rs.sessionID)
		e.replierQueue.Remove(rs)
		if rs.callback != nil {
			rs.callback(Event{Result: trdperr.ConfirmTimeout, ComID: rs.comID, SessionID: rs.sessionID})
		}
	}
}

func (e *Engine) bumpBackoff(addr netip.Addr) {
	b, ok := e.backoffs[addr]
	if !ok {
		b = newBackoff(e.cfg.Backoff)
		e.backoffs[addr] = b
	}
	b.inc()
}

// GetInterval returns how long Process can safely be deferred: the
// configured poll interval, bounded above by the earliest pending
// deadline.
func (e *Engine) GetInterval(now trdptime.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	interval := e.cfg.PollInterval
	if s, ok := e.callerQueue.Peek(); ok {
		if d := s.Deadline().Sub(now).Duration(); d < interval {
			interval = d
		}
	}
	if rs, ok := e.replierQueue.Peek(); ok {
		if d := rs.Deadline().Sub(now).Duration(); d < interval {
			interval = d
		}
	}
	if interval < 0 {
		interval = 0
	}
	return interval
}

// Dispatch routes one validated raw MD datagram: Mr/Mn to a matching
// listener, Mp/Mq/Me to the caller session named by (comID, sessionId),
// Mc to the replier session awaiting confirm. srcIP is the datagram's
// source address, recorded on delivered events and used as the Reply
// destination for Mr.
func (e *Engine) Dispatch(raw []byte, topo wire.TopoFilter, srcIP netip.Addr, srcPort uint16) (trdperr.ResultCode, error) {
	const op = "mdengine.Dispatch"

	pkt, code, err := wire.Validate(raw, topo)
	if code != trdperr.OK {
		return code, trdperr.New(op, code, err)
	}
	f, ok := pkt.(*wire.MDFrame)
	if !ok {
		return trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}

	switch f.MsgType {
	case wire.MDRequest:
		return e.dispatchRequest(f, srcIP, srcPort), nil
	case wire.MDNotify:
		return e.dispatchNotify(f, srcIP), nil
	case wire.MDReply, wire.MDReplyQ, wire.MDError:
		return e.dispatchReply(f, srcIP, srcPort), nil
	case wire.MDConfirm:
		return e.dispatchConfirm(f), nil
	default:
		return trdperr.WireError, nil
	}
}

func (e *Engine) dispatchRequest(f *wire.MDFrame, srcIP netip.Addr, srcPort uint16) trdperr.ResultCode {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.findListener(f.ComID, uriString(f.SourceURI), uriString(f.DestinationURI))
	if l == nil {
		e.noListenerCount++
		return trdperr.NoListener
	}
	sessionID := SessionID(f.SessionID)
	e.pending[sessionID] = &pendingRequest{
		sessionID:    sessionID,
		comID:        f.ComID,
		listener:     l,
		replyTo:      netip.AddrPortFrom(srcIP, srcPort),
		etbTopoCnt:   f.EtbTopoCnt,
		opTrnTopoCnt: f.OpTrnTopoCnt,
	}
	l.callback(Event{Result: trdperr.OK, ComID: f.ComID, SessionID: sessionID, SrcIP: srcIP, Data: f.Data})
	return trdperr.OK
}

func (e *Engine) dispatchNotify(f *wire.MDFrame, srcIP netip.Addr) trdperr.ResultCode {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.findListener(f.ComID, uriString(f.SourceURI), uriString(f.DestinationURI))
	if l == nil {
		e.noListenerCount++
		return trdperr.NoListener
	}
	l.callback(Event{Result: trdperr.OK, ComID: f.ComID, SessionID: SessionID(f.SessionID), SrcIP: srcIP, Data: f.Data})
	return trdperr.OK
}

func (e *Engine) dispatchReply(f *wire.MDFrame, srcIP netip.Addr, srcPort uint16) trdperr.ResultCode {
	sessionID := SessionID(f.SessionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.callers[sessionID]
	if !ok || s.disableReplyRx || s.addr.ComID != f.ComID {
		e.noListenerCount++
		return trdperr.NoListener
	}

	code := trdperr.OK
	if f.MsgType == wire.MDError {
		code = trdperr.WireError
	}

	s.numReplies++
	if f.MsgType == wire.MDReplyQ {
		s.numRepliesQuery++
		s.pendingConfirms = append(s.pendingConfirms, netip.AddrPortFrom(srcIP, srcPort))
	}
	if s.noOfRepliers > 0 && s.numReplies >= s.noOfRepliers {
		s.disableReplyRx = true
	}
	if b, ok := e.backoffs[s.dest.Addr()]; ok {
		b.reset()
	}

	if s.resolved() {
		e.removeCaller(s)
	}
	if s.callback != nil {
		s.callback(Event{Result: code, ComID: f.ComID, SessionID: sessionID, SrcIP: srcIP, Data: f.Data})
	}
	return trdperr.OK
}

func (e *Engine) dispatchConfirm(f *wire.MDFrame) trdperr.ResultCode {
	sessionID := SessionID(f.SessionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	rs, ok := e.repliers[sessionID]
	if !ok {
		e.noListenerCount++
		return trdperr.NoListener
	}
	delete(e.repliers, sessionID)
	e.replierQueue.Remove(rs)
	if rs.callback != nil {
		rs.callback(Event{Result: trdperr.OK, ComID: f.ComID, SessionID: sessionID})
	}
	return trdperr.OK
}

// NoListenerCount reports how many received frames matched no listener or
// session, for statistics.
func (e *Engine) NoListenerCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.noListenerCount
}
