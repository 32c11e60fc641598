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
	"net/netip"
	"time"

	"github.com/tcnopen/trdp-go/socket"
	"github.com/tcnopen/trdp-go/trdperr"
	"github.com/tcnopen/trdp-go/trdptime"
	"github.com/tcnopen/trdp-go/wire"
)

// SessionID is the 16-byte value the wire header carries to tie a
// request, its replies and an optional confirm together.
type SessionID [16]byte

// Event is delivered to a caller's or a listener's callback.
type Event struct {
	Result    trdperr.ResultCode
	ComID     uint32
	SessionID SessionID
	SrcIP     netip.Addr
	Data      []byte
}

// Callback receives MD events.
type Callback func(Event)

// RequestHandle identifies an outstanding caller session.
type RequestHandle uint64

// ListenerHandle identifies a registered listener.
type ListenerHandle uint64

// listener is a registered replier or notification sink, matched against
// incoming Mr/Mn frames by comID and, if set, URI.
type listener struct {
	handle   ListenerHandle
	addr     wire.Address
	srcURI   string
	destURI  string
	local    netip.AddrPort
	ep       *socket.Endpoint
	sockKey  socket.Key
	callback Callback
}

func (l *listener) matchesURI(srcURI, destURI string) bool {
	if l.srcURI != "" && l.srcURI != srcURI {
		return false
	}
	if l.destURI != "" && l.destURI != destURI {
		return false
	}
	return true
}

// pendingRequest is the replier-side bookkeeping created when an Mr frame
// matches a listener: it records where and how to send the eventual
// Reply/ReplyQuery.
type pendingRequest struct {
	sessionID    SessionID
	comID        uint32
	listener     *listener
	replyTo      netip.AddrPort
	etbTopoCnt   uint32
	opTrnTopoCnt uint32
}

// callerSession is one outstanding Request, tracked from the first send
// until its replies (or the reply timeout) resolve it.
type callerSession struct {
	handle    RequestHandle
	sessionID SessionID
	addr      wire.Address
	dest      netip.AddrPort
	ep        *socket.Endpoint
	sockKey   socket.Key
	header    wire.MDHeader
	request   []byte // marshalled request payload, kept for retransmits

	noOfRepliers    int
	numReplies      int
	numRepliesQuery int
	disableReplyRx  bool
	pendingConfirms []netip.AddrPort

	replyTimeout  time.Duration
	numRetries    int
	numRetriesMax int
	callback      Callback

	timeToGo trdptime.Time
	heapIdx  int
}

func (e *callerSession) Deadline() trdptime.Time { return e.timeToGo }
func (e *callerSession) HeapIndex() int          { return e.heapIdx }
func (e *callerSession) SetHeapIndex(i int)      { e.heapIdx = i }

// resolved reports whether this session has collected as many replies as
// it is ever going to, and is not waiting on any outstanding confirm.
func (e *callerSession) resolved() bool {
	if e.noOfRepliers > 0 && e.numReplies >= e.noOfRepliers {
		return len(e.pendingConfirms) == 0
	}
	return false
}

// replySession is the replier-side bookkeeping for a sent ReplyQuery (Mq):
// it times out waiting for the caller's Mc.
type replySession struct {
	sessionID SessionID
	comID     uint32
	callback  Callback

	timeToGo trdptime.Time
	heapIdx  int
}

func (e *replySession) Deadline() trdptime.Time { return e.timeToGo }
func (e *replySession) HeapIndex() int          { return e.heapIdx }
func (e *replySession) SetHeapIndex(i int)      { e.heapIdx = i }
