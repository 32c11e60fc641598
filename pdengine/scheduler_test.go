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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcnopen/trdp-go/socket"
	"github.com/tcnopen/trdp-go/trdperr"
	"github.com/tcnopen/trdp-go/trdptime"
	"github.com/tcnopen/trdp-go/wire"
)

var loopback = netip.MustParseAddr("127.0.0.1")

func TestPublishAlreadyPublished(t *testing.T) {
	s := New(DefaultConfig(), socket.NewPool(), nil)
	addr := wire.Address{ComID: 100, SrcIP: loopback}
	dest := netip.AddrPortFrom(loopback, 17224)

	_, err := s.Publish(addr, dest, 10*time.Millisecond, PubFlags{}, SendParams{}, 0, []byte("a"))
	require.NoError(t, err)

	_, err = s.Publish(addr, dest, 10*time.Millisecond, PubFlags{}, SendParams{}, 0, []byte("a"))
	require.Error(t, err)
}

func TestPublishSendsOnProcess(t *testing.T) {
	recv, err := socket.NewUDPEndpoint(netip.MustParseAddrPort("127.0.0.1:0"))
	require.NoError(t, err)
	defer recv.Close()

	s := New(DefaultConfig(), socket.NewPool(), nil)
	addr := wire.Address{ComID: 100, SrcIP: loopback}

	payload := []byte("trdp-pd-payload")
	h, err := s.Publish(addr, recv.LocalAddrPort(), 10*time.Millisecond, PubFlags{}, SendParams{}, 0, payload)
	require.NoError(t, err)
	require.NotZero(t, h)

	now := trdptime.Now()
	s.Process(now.Add(trdptime.FromDuration(20 * time.Millisecond)))

	buf := make([]byte, 256)
	n, _, err := recv.ReadFrom(buf)
	require.NoError(t, err)

	pkt, err := wire.DecodePacket(buf[:n])
	require.NoError(t, err)
	pd, ok := pkt.(*wire.PDFrame)
	require.True(t, ok)
	assert.Equal(t, uint32(100), pd.ComID)
	assert.Equal(t, uint32(0), pd.SequenceCounter)
	assert.Equal(t, payload, pd.Data)
}

func TestSubscribeTimeoutFiresCallbackOnce(t *testing.T) {
	s := New(DefaultConfig(), socket.NewPool(), nil)
	addr := wire.Address{ComID: 200, SrcIP: loopback}

	var gotEvent Event
	fired := 0
	cb := func(e Event) {
		fired++
		gotEvent = e
	}

	h, err := s.Subscribe(addr, netip.MustParseAddrPort("127.0.0.1:0"), 10*time.Millisecond, SetToZero, 64, 0, false, netip.Addr{}, netip.Addr{}, cb)
	require.NoError(t, err)

	data, timedOut, err := s.Get(h)
	require.NoError(t, err)
	assert.False(t, timedOut)
	assert.Nil(t, data)

	now := trdptime.Now()
	s.Process(now.Add(trdptime.FromDuration(20 * time.Millisecond)))

	assert.Equal(t, 1, fired, "callback fires exactly once until a receive clears timed-out")
	assert.Equal(t, 200, int(gotEvent.ComID))

	_, timedOut, err = s.Get(h)
	require.NoError(t, err)
	assert.True(t, timedOut)

	// A second Process pass past the same interval must not refire
	// the callback again — only a receive can clear timed-out.
	s.Process(now.Add(trdptime.FromDuration(40 * time.Millisecond)))
	assert.Equal(t, 1, fired)
}

func TestDispatchMatchClearsTimeoutAndInvokesCallback(t *testing.T) {
	s := New(DefaultConfig(), socket.NewPool(), nil)
	addr := wire.Address{ComID: 300, SrcIP: loopback}

	var gotEvent Event
	fired := 0
	h, err := s.Subscribe(addr, netip.MustParseAddrPort("127.0.0.1:0"), 100*time.Millisecond, KeepLastValue, 64, 0, false, netip.Addr{}, netip.Addr{}, func(e Event) {
		fired++
		gotEvent = e
	})
	require.NoError(t, err)

	frame := wire.PDFrame{Data: []byte("hello")}
	frame.ComID = 300
	frame.MsgType = wire.PD
	frame.ProtocolVersion = wire.ProtocolVersion
	raw, err := frame.MarshalBinary()
	require.NoError(t, err)

	code, err := s.Dispatch(raw, wire.TopoFilter{}, loopback, loopback)
	require.NoError(t, err)
	assert.Equal(t, trdperr.OK, code)

	require.Equal(t, 1, fired)
	assert.Equal(t, []byte("hello"), gotEvent.Data)

	data, timedOut, err := s.Get(h)
	require.NoError(t, err)
	assert.False(t, timedOut)
	assert.Equal(t, []byte("hello"), data)
}

func TestDispatchNoSubscriberIncrementsCounter(t *testing.T) {
	s := New(DefaultConfig(), socket.NewPool(), nil)

	frame := wire.PDFrame{Data: []byte("x")}
	frame.ComID = 999
	frame.MsgType = wire.PD
	frame.ProtocolVersion = wire.ProtocolVersion
	raw, err := frame.MarshalBinary()
	require.NoError(t, err)

	_, err = s.Dispatch(raw, wire.TopoFilter{}, loopback, loopback)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.NoSubscriberCount())
}

func TestGetIntervalBoundedByPollInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	s := New(cfg, socket.NewPool(), nil)

	now := trdptime.Now()
	d := s.GetInterval(now)
	assert.Equal(t, 10*time.Millisecond, d)

	addr := wire.Address{ComID: 400, SrcIP: loopback}
	_, err := s.Publish(addr, netip.MustParseAddrPort("127.0.0.1:17224"), time.Millisecond, PubFlags{}, SendParams{}, 0, []byte("a"))
	require.NoError(t, err)

	d = s.GetInterval(now)
	assert.Less(t, d, 10*time.Millisecond, "a 1ms publication must shorten the poll interval below the 10ms default")
}

func TestUnpublishAndUnsubscribeReleaseSockets(t *testing.T) {
	pool := socket.NewPool()
	s := New(DefaultConfig(), pool, nil)

	addr := wire.Address{ComID: 500, SrcIP: loopback}
	h, err := s.Publish(addr, netip.MustParseAddrPort("127.0.0.1:17224"), time.Second, PubFlags{}, SendParams{}, 0, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Len())
	require.NoError(t, s.Unpublish(h))
	assert.Equal(t, 0, pool.Len())

	sh, err := s.Subscribe(addr, netip.MustParseAddrPort("127.0.0.1:0"), time.Second, KeepLastValue, 64, 0, false, netip.Addr{}, netip.Addr{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Len())
	require.NoError(t, s.Unsubscribe(sh))
	assert.Equal(t, 0, pool.Len())
}
