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

package trdptime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDurationRoundTrip(t *testing.T) {
	cases := []time.Duration{
		0,
		time.Second,
		1500 * time.Millisecond,
		-1500 * time.Millisecond,
		-1 * time.Microsecond,
	}
	for _, d := range cases {
		tt := FromDuration(d)
		require.True(t, tt.USec >= 0 && tt.USec < 1_000_000)
		assert.Equal(t, d, tt.Duration(), "round-trip for %v", d)
	}
}

func TestAddSub(t *testing.T) {
	a := Time{Sec: 1, USec: 900_000}
	b := Time{Sec: 0, USec: 200_000}
	sum := a.Add(b)
	assert.Equal(t, Time{Sec: 2, USec: 100_000}, sum)

	back := sum.Sub(b)
	assert.Equal(t, a, back)
}

func TestSubNegative(t *testing.T) {
	a := Time{Sec: 1, USec: 100_000}
	b := Time{Sec: 1, USec: 900_000}
	diff := a.Sub(b)
	assert.Equal(t, Time{Sec: -1, USec: 200_000}, diff)
}

func TestMulDiv(t *testing.T) {
	a := Time{Sec: 1, USec: 500_000}
	assert.Equal(t, Time{Sec: 3, USec: 0}, a.Mul(2))
	assert.Equal(t, a, a.Mul(4).Div(4))
}

func TestCmp(t *testing.T) {
	a := Time{Sec: 1, USec: 0}
	b := Time{Sec: 1, USec: 1}
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
	assert.True(t, b.After(a))
	assert.True(t, a.Before(b))
	assert.True(t, a.AfterOrEqual(a))
}

func TestNowMonotonic(t *testing.T) {
	t1 := Now()
	time.Sleep(time.Millisecond)
	t2 := Now()
	assert.True(t, t2.After(t1))
}
