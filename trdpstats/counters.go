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
	"fmt"
	"sync"
	"time"

	"github.com/eclesh/welford"

	"github.com/tcnopen/trdp-go/trdperr"
	"github.com/tcnopen/trdp-go/wire"
)

// Counters is the set of metrics one session accumulates. All methods are
// safe for concurrent use.
type Counters struct {
	mu sync.Mutex

	tx          map[wire.MsgType]int64
	rx          map[wire.MsgType]int64
	resultCodes map[trdperr.ResultCode]int64

	noSubscriberCount uint64
	noListenerCount   uint64
	numTopoErr        int64

	jitter map[uint32]*jitterStat
}

// jitterStat pairs a streaming mean/variance with an explicit sample
// count, since welford.Stats itself exposes no "has any sample been
// added yet" query.
type jitterStat struct {
	stats *welford.Stats
	n     int64
}

// New returns an empty Counters.
func New() *Counters {
	return &Counters{
		tx:          make(map[wire.MsgType]int64),
		rx:          make(map[wire.MsgType]int64),
		resultCodes: make(map[trdperr.ResultCode]int64),
		jitter:      make(map[uint32]*jitterStat),
	}
}

// IncTX counts one outgoing frame of type t.
func (c *Counters) IncTX(t wire.MsgType) {
	c.mu.Lock()
	c.tx[t]++
	c.mu.Unlock()
}

// IncRX counts one incoming frame of type t.
func (c *Counters) IncRX(t wire.MsgType) {
	c.mu.Lock()
	c.rx[t]++
	c.mu.Unlock()
}

// IncResult counts one delivered result code, e.g. a timeout or a
// wire-error rejection.
func (c *Counters) IncResult(code trdperr.ResultCode) {
	c.mu.Lock()
	c.resultCodes[code]++
	c.mu.Unlock()
}

// SetNoSubscriberCount mirrors the pdengine scheduler's running total of
// PD frames dropped for want of a matching subscription.
func (c *Counters) SetNoSubscriberCount(n uint64) {
	c.mu.Lock()
	c.noSubscriberCount = n
	c.mu.Unlock()
}

// SetNoListenerCount mirrors the mdengine engine's running total of MD
// frames dropped for want of a matching listener or session.
func (c *Counters) SetNoListenerCount(n uint64) {
	c.mu.Lock()
	c.noListenerCount = n
	c.mu.Unlock()
}

// IncTopoError counts one frame rejected for a topo-count mismatch.
func (c *Counters) IncTopoError() {
	c.mu.Lock()
	c.numTopoErr++
	c.mu.Unlock()
}

// ObserveInterval feeds one PD inter-arrival gap for comID into a
// running mean/variance, letting a monitoring consumer flag publications
// whose jitter has grown without keeping every sample around.
func (c *Counters) ObserveInterval(comID uint32, d time.Duration) {
	c.mu.Lock()
	s, ok := c.jitter[comID]
	if !ok {
		s = &jitterStat{stats: welford.New()}
		c.jitter[comID] = s
	}
	s.stats.Add(float64(d.Microseconds()))
	s.n++
	c.mu.Unlock()
}

// Jitter returns the current mean and standard deviation of comID's
// observed inter-arrival gaps, in microseconds. ok is false if no sample
// has been observed yet.
func (c *Counters) Jitter(comID uint32) (mean, stddev float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, present := c.jitter[comID]
	if !present || s.n == 0 {
		return 0, 0, false
	}
	return s.stats.Mean(), s.stats.Stddev(), true
}

// Reset zeroes every counter. Jitter statistics are dropped rather than
// zeroed, since a running mean/variance has no meaningful "zero" state
// short of discarding it.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tx = make(map[wire.MsgType]int64)
	c.rx = make(map[wire.MsgType]int64)
	c.resultCodes = make(map[trdperr.ResultCode]int64)
	c.noSubscriberCount = 0
	c.noListenerCount = 0
	c.numTopoErr = 0
	c.jitter = make(map[uint32]*jitterStat)
}

// Snapshot flattens all counters into a map, the shape both exporters
// consume.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.tx)+len(c.rx)+len(c.resultCodes)+3)
	for t, n := range c.tx {
		out[fmt.Sprintf("tx.%s", t)] = n
	}
	for t, n := range c.rx {
		out[fmt.Sprintf("rx.%s", t)] = n
	}
	for code, n := range c.resultCodes {
		out[fmt.Sprintf("result.%s", code)] = n
	}
	out["no_subscriber"] = int64(c.noSubscriberCount)
	out["no_listener"] = int64(c.noListenerCount)
	out["topo_error"] = c.numTopoErr

	for comID, s := range c.jitter {
		if s.n == 0 {
			continue
		}
		out[fmt.Sprintf("jitter.%d.mean_us", comID)] = int64(s.stats.Mean())
		out[fmt.Sprintf("jitter.%d.stddev_us", comID)] = int64(s.stats.Stddev())
	}
	return out
}
