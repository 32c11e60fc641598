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

package trdpstats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcnopen/trdp-go/trdperr"
	"github.com/tcnopen/trdp-go/wire"
)

func TestIncTXRX(t *testing.T) {
	c := New()
	c.IncTX(wire.PD)
	c.IncTX(wire.PD)
	c.IncRX(wire.MDRequest)

	snap := c.Snapshot()
	assert.EqualValues(t, 2, snap["tx.Pd"])
	assert.EqualValues(t, 1, snap["rx.Mr"])
}

func TestIncResult(t *testing.T) {
	c := New()
	c.IncResult(trdperr.Timeout)
	c.IncResult(trdperr.Timeout)
	c.IncResult(trdperr.CRCError)

	snap := c.Snapshot()
	assert.EqualValues(t, 2, snap["result.timeout"])
	assert.EqualValues(t, 1, snap["result.crc-error"])
}

func TestNoSubscriberAndNoListenerCounts(t *testing.T) {
	c := New()
	c.SetNoSubscriberCount(3)
	c.SetNoListenerCount(7)
	c.IncTopoError()

	snap := c.Snapshot()
	assert.EqualValues(t, 3, snap["no_subscriber"])
	assert.EqualValues(t, 7, snap["no_listener"])
	assert.EqualValues(t, 1, snap["topo_error"])
}

func TestJitterUnobservedIsNotOK(t *testing.T) {
	c := New()
	_, _, ok := c.Jitter(1001)
	assert.False(t, ok)
}

func TestJitterAccumulates(t *testing.T) {
	c := New()
	c.ObserveInterval(1001, 100*time.Millisecond)
	c.ObserveInterval(1001, 110*time.Millisecond)
	c.ObserveInterval(1001, 90*time.Millisecond)

	mean, stddev, ok := c.Jitter(1001)
	require.True(t, ok)
	assert.InDelta(t, 100000, mean, 1) // microseconds
	assert.Greater(t, stddev, 0.0)

	snap := c.Snapshot()
	assert.Contains(t, snap, "jitter.1001.mean_us")
	assert.Contains(t, snap, "jitter.1001.stddev_us")
}

func TestReset(t *testing.T) {
	c := New()
	c.IncTX(wire.PD)
	c.IncResult(trdperr.Timeout)
	c.SetNoSubscriberCount(5)
	c.ObserveInterval(1001, time.Millisecond)

	c.Reset()

	snap := c.Snapshot()
	assert.EqualValues(t, 0, snap["no_subscriber"])
	assert.NotContains(t, snap, "tx.Pd")
	assert.NotContains(t, snap, "result.timeout")
	_, _, ok := c.Jitter(1001)
	assert.False(t, ok)
}
