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

package crc32fcs

import (
	"hash/crc32"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesReferenceIEEE(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		b := make([]byte, r.Intn(300))
		_, _ = r.Read(b)
		assert.Equal(t, crc32.ChecksumIEEE(b), Checksum(b))
	}
}

func TestIncrementalMatchesWholeSpan(t *testing.T) {
	header := []byte("0123456789abcdef")
	body := []byte("the quick brown fox jumps over the lazy dog")
	whole := append(append([]byte{}, header...), body...)

	incremental := Update(Update(InitialValue, header), body)
	assert.Equal(t, Checksum(whole), incremental)
}

func TestPutAndReadLittleEndian(t *testing.T) {
	buf := make([]byte, 4)
	PutLittleEndian(buf, 0x01020304)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)
	assert.Equal(t, uint32(0x01020304), LittleEndian(buf))
}

func TestVerify(t *testing.T) {
	data := []byte("a TRDP header")
	fcs := Checksum(data)
	buf := make([]byte, 4)
	PutLittleEndian(buf, fcs)
	assert.True(t, Verify(data, buf))
	buf[0] ^= 0xff
	assert.False(t, Verify(data, buf))
}
