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
	"encoding/binary"
	"hash/crc32"
)

// InitialValue seeds an incremental computation, matching the TRDP
// reference implementation's vos_crc32(0xffffffff, NULL, 0) idiom. It is
// the identity value for Update: Update(InitialValue, b) starts a fresh
// checksum over b.
const InitialValue uint32 = 0

// Update folds b into a running CRC started from InitialValue (or a prior
// Update's return value), allowing header and body to be checksummed as
// two separate spans without concatenating them first.
func Update(crc uint32, b []byte) uint32 {
	return crc32.Update(crc, crc32.IEEETable, b)
}

// Checksum computes the FCS of a single byte span.
func Checksum(b []byte) uint32 {
	return Update(InitialValue, b)
}

// PutLittleEndian writes crc into b (which must be at least 4 bytes) in the
// little-endian order TRDP uses for FCS fields on the wire.
func PutLittleEndian(b []byte, crc uint32) {
	binary.LittleEndian.PutUint32(b, crc)
}

// LittleEndian reads a little-endian FCS field out of b.
func LittleEndian(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// Verify computes the FCS over data and compares it against the
// little-endian FCS trailer stored in fcsField.
func Verify(data []byte, fcsField []byte) bool {
	return Checksum(data) == LittleEndian(fcsField)
}
