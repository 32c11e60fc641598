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

package trdpmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocRoundsUpToBin(t *testing.T) {
	p, err := New(1<<20, nil)
	require.NoError(t, err)

	buf, err := p.Alloc(40)
	require.NoError(t, err)
	assert.Equal(t, 40, len(buf))
	assert.Equal(t, 64, cap(buf))
}

func TestFreeReturnsToBin(t *testing.T) {
	p, err := New(1<<20, nil)
	require.NoError(t, err)

	buf, err := p.Alloc(100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Outstanding(100))

	p.Free(buf)
	assert.EqualValues(t, 0, p.Outstanding(100))
}

func TestAllocRejectsOversize(t *testing.T) {
	p, err := New(1<<20, nil)
	require.NoError(t, err)

	_, err = p.Alloc(MaxBinSize + 1)
	require.Error(t, err)
}

func TestAllocExhaustsBin(t *testing.T) {
	// A tiny budget with one 32-byte bucket's worth of room forces the
	// limit to 1, so a second Alloc of the same size must fail.
	p, err := New(int64(len(binsList())*MinBinSize), nil)
	require.NoError(t, err)

	_, err = p.Alloc(16)
	require.NoError(t, err)
	_, err = p.Alloc(16)
	assert.Error(t, err)
}

func TestPreallocPrimesBin(t *testing.T) {
	p, err := New(1<<20, []PreallocBin{{Size: 128, Count: 4}})
	require.NoError(t, err)

	buf, err := p.Alloc(100)
	require.NoError(t, err)
	assert.Equal(t, 128, cap(buf))
}

func binsList() []int {
	var sizes []int
	for n := MinBinSize; n <= MaxBinSize; n *= 2 {
		sizes = append(sizes, n)
	}
	return sizes
}
