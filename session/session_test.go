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
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcnopen/trdp-go/pdengine"
	"github.com/tcnopen/trdp-go/trdperr"
	"github.com/tcnopen/trdp-go/trdptime"
	"github.com/tcnopen/trdp-go/wire"
)

var loopback = netip.MustParseAddr("127.0.0.1")

func TestPublishAndProcessDelivers(t *testing.T) {
	sub := Open(DefaultConfig())
	pub := Open(DefaultConfig())

	received := make(chan []byte, 1)
	addr := wire.Address{ComID: 500, SrcIP: loopback}

	subHandle, err := sub.Subscribe(addr, netip.AddrPortFrom(loopback, 0), time.Second,
		pdengine.KeepLastValue, 64, 0, false, netip.Addr{}, netip.Addr{},
		func(ev pdengine.Event) { received <- ev.Data.([]byte) })
	require.NoError(t, err)
	require.NotZero(t, subHandle)

	dest := sub.pool.Endpoints()[0]

	_, err = pub.Publish(addr, dest.LocalAddrPort(), 5*time.Millisecond, pdengine.PubFlags{}, pdengine.SendParams{}, 0, []byte("hello"))
	require.NoError(t, err)

	now := trdptime.Now()
	pub.Process(now.Add(trdptime.FromDuration(10 * time.Millisecond)))

	buf := make([]byte, 1500)
	n, _, err := dest.ReadFrom(buf)
	require.NoError(t, err)

	code, err := sub.DispatchPD(buf[:n], loopback, loopback)
	require.NoError(t, err)
	assert.Equal(t, trdperr.OK, code)

	select {
	case data := <-received:
		assert.Equal(t, []byte("hello"), data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestUnsubscribeFromCallbackIsDeferred(t *testing.T) {
	sub := Open(DefaultConfig())
	addr := wire.Address{ComID: 501, SrcIP: loopback}

	var handle pdengine.SubHandle
	var err error
	handle, err = sub.Subscribe(addr, netip.AddrPortFrom(loopback, 0), time.Second,
		pdengine.KeepLastValue, 64, 0, false, netip.Addr{}, netip.Addr{},
		func(ev pdengine.Event) {
			// Re-entrant: must not deadlock against sub.mu.
			_ = sub.Unsubscribe(handle)
		})
	require.NoError(t, err)

	local := sub.pool.Endpoints()[0].LocalAddrPort()

	pub := Open(DefaultConfig())
	_, err = pub.Publish(addr, local, 5*time.Millisecond, pdengine.PubFlags{}, pdengine.SendParams{}, 0, []byte("x"))
	require.NoError(t, err)
	pub.Process(trdptime.Now().Add(trdptime.FromDuration(10 * time.Millisecond)))

	ep := sub.pool.Endpoints()[0]
	buf := make([]byte, 1500)
	n, _, err := ep.ReadFrom(buf)
	require.NoError(t, err)

	code, err := sub.DispatchPD(buf[:n], loopback, loopback)
	require.NoError(t, err)
	assert.Equal(t, trdperr.OK, code)

	// The deferred Unsubscribe should have drained by the time DispatchPD
	// returns; a second dispatch against the now-stale handle state
	// should find no match.
	code, err = sub.DispatchPD(buf[:n], loopback, loopback)
	require.NoError(t, err)
	assert.Equal(t, trdperr.NoSubscribe, code)
}

func TestSetTopoCountRejectsMismatch(t *testing.T) {
	sub := Open(DefaultConfig())
	sub.SetTopoCount(7, 0)

	addr := wire.Address{ComID: 502, SrcIP: loopback}
	_, err := sub.Subscribe(addr, netip.AddrPortFrom(loopback, 0), time.Second,
		pdengine.KeepLastValue, 64, 0, false, netip.Addr{}, netip.Addr{}, nil)
	require.NoError(t, err)

	local := sub.pool.Endpoints()[0].LocalAddrPort()
	pub := Open(DefaultConfig())
	pub.SetTopoCount(99, 0)
	_, err = pub.Publish(addr, local, 5*time.Millisecond, pdengine.PubFlags{}, pdengine.SendParams{}, 0, []byte("x"))
	require.NoError(t, err)
	pub.Process(trdptime.Now().Add(trdptime.FromDuration(10 * time.Millisecond)))

	ep := sub.pool.Endpoints()[0]
	buf := make([]byte, 1500)
	n, _, err := ep.ReadFrom(buf)
	require.NoError(t, err)

	code, err := sub.DispatchPD(buf[:n], loopback, loopback)
	require.Error(t, err)
	assert.Equal(t, trdperr.TopoError, code)
	assert.EqualValues(t, 1, sub.Stats().Snapshot()["topo_error"])
}

func TestGetIntervalIsNonNegative(t *testing.T) {
	s := Open(DefaultConfig())
	now := trdptime.Now()
	d := s.GetInterval(now)
	assert.GreaterOrEqual(t, d, time.Duration(0))
}

func TestRegistryOpenCloseTracksSessions(t *testing.T) {
	r := NewRegistry()
	h1, _, err := r.Open(DefaultConfig())
	require.NoError(t, err)
	h2, _, err := r.Open(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	require.NoError(t, r.Close(h1))
	assert.Equal(t, 1, r.Len())

	_, ok := r.Session(h1)
	assert.False(t, ok)
	_, ok = r.Session(h2)
	assert.True(t, ok)

	err = r.Close(Handle(9999))
	require.Error(t, err)
}
