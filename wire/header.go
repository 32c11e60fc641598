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

package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/tcnopen/trdp-go/crc32fcs"
)

// ProtocolMajor/ProtocolMinor are this stack's protocol version. A received
// frame is accepted as long as its protocolVersion high byte equals
// ProtocolMajor; the minor byte is informational only.
const (
	ProtocolMajor uint8 = 1
	ProtocolMinor uint8 = 0
)

// ProtocolVersion is the value this stack stamps into outgoing frames.
var ProtocolVersion = uint16(ProtocolMajor)<<8 | uint16(ProtocolMinor)

const (
	commonHeaderSize = 36
	pdHeaderSize     = commonHeaderSize + 4   // + headerFCS
	mdHeaderSize     = commonHeaderSize + 92  // + MD extension + headerFCS
	bodyCRCSize      = 4
	sessionIDSize    = 16
	uriSize          = 32
)

// PDHeaderSize and MDHeaderSize are exported for callers sizing read
// buffers ahead of DecodePacket.
const (
	PDHeaderSize = pdHeaderSize
	MDHeaderSize = mdHeaderSize
)

// commonHeader is the leading 36 bytes shared by PD and MD frames.
type commonHeader struct {
	SequenceCounter uint32
	ProtocolVersion uint16
	MsgType         MsgType
	ComID           uint32
	EtbTopoCnt      uint32
	OpTrnTopoCnt    uint32
	DatasetLength   uint32
	Reserved        uint32
	ReplyComID      uint32
	ReplyIPAddress  uint32
}

func (h *commonHeader) marshalTo(b []byte) int {
	binary.BigEndian.PutUint32(b[0:4], h.SequenceCounter)
	binary.BigEndian.PutUint16(b[4:6], h.ProtocolVersion)
	binary.BigEndian.PutUint16(b[6:8], uint16(h.MsgType))
	binary.BigEndian.PutUint32(b[8:12], h.ComID)
	binary.BigEndian.PutUint32(b[12:16], h.EtbTopoCnt)
	binary.BigEndian.PutUint32(b[16:20], h.OpTrnTopoCnt)
	binary.BigEndian.PutUint32(b[20:24], h.DatasetLength)
	binary.BigEndian.PutUint32(b[24:28], h.Reserved)
	binary.BigEndian.PutUint32(b[28:32], h.ReplyComID)
	binary.BigEndian.PutUint32(b[32:36], h.ReplyIPAddress)
	return commonHeaderSize
}

// unmarshalCommonHeader reads the leading 36 bytes of b. Callers must
// ensure len(b) >= commonHeaderSize themselves; it is package-private so
// that PDHeader and MDHeader don't leak an UnmarshalBinary through
// embedding that would only ever see 36 of their bytes.
func unmarshalCommonHeader(h *commonHeader, b []byte) {
	h.SequenceCounter = binary.BigEndian.Uint32(b[0:4])
	h.ProtocolVersion = binary.BigEndian.Uint16(b[4:6])
	h.MsgType = MsgType(binary.BigEndian.Uint16(b[6:8]))
	h.ComID = binary.BigEndian.Uint32(b[8:12])
	h.EtbTopoCnt = binary.BigEndian.Uint32(b[12:16])
	h.OpTrnTopoCnt = binary.BigEndian.Uint32(b[16:20])
	h.DatasetLength = binary.BigEndian.Uint32(b[20:24])
	h.Reserved = binary.BigEndian.Uint32(b[24:28])
	h.ReplyComID = binary.BigEndian.Uint32(b[28:32])
	h.ReplyIPAddress = binary.BigEndian.Uint32(b[32:36])
}

// PeekMsgType reads just the msgType field out of b without parsing the
// rest of the header, letting a caller demultiplex a raw frame to the PD
// or MD engine before paying for a full Validate.
func PeekMsgType(b []byte) (MsgType, error) {
	if len(b) < 8 {
		return 0, fmt.Errorf("wire: PeekMsgType: frame too short (%d bytes)", len(b))
	}
	return MsgType(binary.BigEndian.Uint16(b[6:8])), nil
}

// PDHeader is the 40-byte process data frame header.
type PDHeader struct {
	commonHeader
	HeaderFCS uint32
}

// headerMarshalBinaryTo writes the header into b (which must be at least
// PDHeaderSize long) and returns the number of bytes written. The FCS is
// computed over the preceding 36 bytes, not supplied by the caller.
func (h *PDHeader) headerMarshalBinaryTo(b []byte) int {
	n := h.commonHeader.marshalTo(b)
	fcs := crc32fcs.Checksum(b[:n])
	crc32fcs.PutLittleEndian(b[n:n+4], fcs)
	return n + 4
}

// MarshalBinaryTo writes the header into b and returns bytes written.
func (h *PDHeader) MarshalBinaryTo(b []byte) (int, error) {
	if len(b) < PDHeaderSize {
		return 0, fmt.Errorf("wire: PDHeader.MarshalBinaryTo: buffer too small (%d < %d)", len(b), PDHeaderSize)
	}
	return h.headerMarshalBinaryTo(b), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h *PDHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, PDHeaderSize)
	_, err := h.MarshalBinaryTo(b)
	return b, err
}

func unmarshalPDHeader(h *PDHeader, b []byte) {
	unmarshalCommonHeader(&h.commonHeader, b)
	h.HeaderFCS = crc32fcs.LittleEndian(b[commonHeaderSize : commonHeaderSize+4])
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *PDHeader) UnmarshalBinary(b []byte) error {
	if len(b) < PDHeaderSize {
		return fmt.Errorf("wire: PDHeader.UnmarshalBinary: short buffer (%d < %d)", len(b), PDHeaderSize)
	}
	unmarshalPDHeader(h, b)
	return nil
}

// MDHeader is the 128-byte message data frame header.
type MDHeader struct {
	commonHeader
	ReplyStatus    uint32
	SessionID      [sessionIDSize]byte
	ReplyTimeoutUS uint32
	SourceURI      [uriSize]byte
	DestinationURI [uriSize]byte
	HeaderFCS      uint32
}

func (h *MDHeader) headerMarshalBinaryTo(b []byte) int {
	n := h.commonHeader.marshalTo(b)
	binary.BigEndian.PutUint32(b[n:n+4], h.ReplyStatus)
	n += 4
	copy(b[n:n+sessionIDSize], h.SessionID[:])
	n += sessionIDSize
	binary.BigEndian.PutUint32(b[n:n+4], h.ReplyTimeoutUS)
	n += 4
	copy(b[n:n+uriSize], h.SourceURI[:])
	n += uriSize
	copy(b[n:n+uriSize], h.DestinationURI[:])
	n += uriSize

	fcs := crc32fcs.Checksum(b[:n])
	crc32fcs.PutLittleEndian(b[n:n+4], fcs)
	return n + 4
}

// MarshalBinaryTo writes the header into b and returns bytes written.
func (h *MDHeader) MarshalBinaryTo(b []byte) (int, error) {
	if len(b) < MDHeaderSize {
		return 0, fmt.Errorf("wire: MDHeader.MarshalBinaryTo: buffer too small (%d < %d)", len(b), MDHeaderSize)
	}
	return h.headerMarshalBinaryTo(b), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h *MDHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, MDHeaderSize)
	_, err := h.MarshalBinaryTo(b)
	return b, err
}

func unmarshalMDHeader(h *MDHeader, b []byte) {
	unmarshalCommonHeader(&h.commonHeader, b)
	n := commonHeaderSize
	h.ReplyStatus = binary.BigEndian.Uint32(b[n : n+4])
	n += 4
	copy(h.SessionID[:], b[n:n+sessionIDSize])
	n += sessionIDSize
	h.ReplyTimeoutUS = binary.BigEndian.Uint32(b[n : n+4])
	n += 4
	copy(h.SourceURI[:], b[n:n+uriSize])
	n += uriSize
	copy(h.DestinationURI[:], b[n:n+uriSize])
	n += uriSize
	h.HeaderFCS = crc32fcs.LittleEndian(b[n : n+4])
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *MDHeader) UnmarshalBinary(b []byte) error {
	if len(b) < MDHeaderSize {
		return fmt.Errorf("wire: MDHeader.UnmarshalBinary: short buffer (%d < %d)", len(b), MDHeaderSize)
	}
	unmarshalMDHeader(h, b)
	return nil
}

func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}
