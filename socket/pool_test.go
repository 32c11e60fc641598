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
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSharesEndpointForSameKey(t *testing.T) {
	p := NewPool()
	key := Key{SrcAddr: netip.MustParseAddr("127.0.0.1"), Port: 0, Kind: UDP}

	ep1, err := p.Acquire(key)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	ep2, err := p.Acquire(key)
	require.NoError(t, err)
	assert.Same(t, ep1, ep2)
	assert.Equal(t, 1, p.Len())

	require.NoError(t, p.Release(key))
	assert.Equal(t, 1, p.Len(), "still one live reference")

	require.NoError(t, p.Release(key))
	assert.Equal(t, 0, p.Len(), "last reference closes the endpoint")
}

func TestPoolDistinctKeysGetDistinctEndpoints(t *testing.T) {
	p := NewPool()
	a := Key{SrcAddr: netip.MustParseAddr("127.0.0.1"), Port: 0, Kind: UDP}
	b := Key{SrcAddr: netip.MustParseAddr("127.0.0.1"), Port: 0, Kind: UDP, TTL: 16}

	epA, err := p.Acquire(a)
	require.NoError(t, err)
	epB, err := p.Acquire(b)
	require.NoError(t, err)

	assert.NotSame(t, epA, epB)
	assert.Equal(t, 2, p.Len())

	require.NoError(t, p.Release(a))
	require.NoError(t, p.Release(b))
}

func TestPoolReleaseUnknownKey(t *testing.T) {
	p := NewPool()
	err := p.Release(Key{})
	assert.Error(t, err)
}
