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
	"fmt"

	"github.com/tcnopen/trdp-go/crc32fcs"
)

// Packet is implemented by PDFrame and MDFrame. It lets DecodePacket hand
// back either kind behind one interface.
type Packet interface {
	Header() *commonHeader
	Body() []byte
}

// PDFrame is a complete process data datagram: 40-byte header followed by
// the dataset payload, 4-byte aligned.
type PDFrame struct {
	PDHeader
	Data []byte
}

func (f *PDFrame) Header() *commonHeader { return &f.commonHeader }
func (f *PDFrame) Body() []byte          { return f.Data }

// MarshalBinary lays out the header (with DatasetLength and HeaderFCS
// recomputed from Data) followed by the 4-byte-aligned, zero-padded
// payload.
func (f *PDFrame) MarshalBinary() ([]byte, error) {
	f.DatasetLength = uint32(len(f.Data))
	if f.MsgType == 0 {
		f.MsgType = PD
	}
	total := PDHeaderSize + align4(f.DatasetLength)
	b := make([]byte, total)
	n, err := f.PDHeader.MarshalBinaryTo(b)
	if err != nil {
		return nil, err
	}
	copy(b[n:], f.Data)
	return b, nil
}

// UnmarshalBinary parses a raw PD datagram without running Validate; call
// Validate separately to check CRC/length/topo consistency.
func (f *PDFrame) UnmarshalBinary(b []byte) error {
	if len(b) < PDHeaderSize {
		return fmt.Errorf("wire: PDFrame.UnmarshalBinary: short buffer (%d < %d)", len(b), PDHeaderSize)
	}
	if err := f.PDHeader.UnmarshalBinary(b); err != nil {
		return err
	}
	end := PDHeaderSize + int(f.DatasetLength)
	if end > len(b) {
		return fmt.Errorf("wire: PDFrame.UnmarshalBinary: datasetLength %d exceeds buffer", f.DatasetLength)
	}
	f.Data = append([]byte(nil), b[PDHeaderSize:end]...)
	return nil
}

// MDFrame is a complete message data datagram: 128-byte header, dataset
// payload (4-byte aligned) and a trailing 4-byte little-endian body FCS.
type MDFrame struct {
	MDHeader
	Data []byte
}

func (f *MDFrame) Header() *commonHeader { return &f.commonHeader }
func (f *MDFrame) Body() []byte          { return f.Data }

// MarshalBinary lays out header, payload and trailing body CRC.
func (f *MDFrame) MarshalBinary() ([]byte, error) {
	f.DatasetLength = uint32(len(f.Data))
	total := MDHeaderSize + align4(f.DatasetLength) + bodyCRCSize
	b := make([]byte, total)
	n, err := f.MDHeader.MarshalBinaryTo(b)
	if err != nil {
		return nil, err
	}
	copy(b[n:], f.Data)

	bodyEnd := n + int(align4(f.DatasetLength))
	fcs := crc32fcs.Checksum(f.Data)
	crc32fcs.PutLittleEndian(b[bodyEnd:bodyEnd+bodyCRCSize], fcs)
	return b, nil
}

// UnmarshalBinary parses a raw MD datagram without running Validate.
func (f *MDFrame) UnmarshalBinary(b []byte) error {
	if len(b) < MDHeaderSize {
		return fmt.Errorf("wire: MDFrame.UnmarshalBinary: short buffer (%d < %d)", len(b), MDHeaderSize)
	}
	if err := f.MDHeader.UnmarshalBinary(b); err != nil {
		return err
	}
	dataEnd := MDHeaderSize + int(f.DatasetLength)
	paddedEnd := MDHeaderSize + int(align4(f.DatasetLength))
	if paddedEnd+bodyCRCSize > len(b) {
		return fmt.Errorf("wire: MDFrame.UnmarshalBinary: datasetLength %d exceeds buffer", f.DatasetLength)
	}
	f.Data = append([]byte(nil), b[MDHeaderSize:dataEnd]...)
	return nil
}

// DecodePacket sniffs the msgType in the first 8 bytes of b and dispatches
// to PDFrame or MDFrame. It does not run Validate; callers almost always
// want to call Validate on the result before acting on it.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < commonHeaderSize {
		return nil, fmt.Errorf("wire: DecodePacket: short buffer (%d < %d)", len(b), commonHeaderSize)
	}
	var ch commonHeader
	unmarshalCommonHeader(&ch, b)

	switch ch.MsgType.Kind() {
	case KindPD:
		f := &PDFrame{}
		if err := f.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		return f, nil
	case KindMD:
		f := &MDFrame{}
		if err := f.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("wire: DecodePacket: unknown msgType %s", ch.MsgType)
	}
}
