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
	"github.com/tcnopen/trdp-go/crc32fcs"
	"github.com/tcnopen/trdp-go/trdperr"
)

// MaxPacketSize bounds the length sanity check; TRDP frames travel over UDP
// and stay well clear of IP fragmentation in practice.
const MaxPacketSize = 64 * 1024

// TopoFilter carries the receiving session's current topo counts. A zero
// value in either field disables that comparison, matching the "don't
// care" convention used for etbTopoCnt/opTrnTopoCnt elsewhere.
type TopoFilter struct {
	EtbTopoCnt   uint32
	OpTrnTopoCnt uint32
}

func (f TopoFilter) matches(h *commonHeader) bool {
	if f.EtbTopoCnt != 0 && h.EtbTopoCnt != 0 && f.EtbTopoCnt != h.EtbTopoCnt {
		return false
	}
	if f.OpTrnTopoCnt != 0 && h.OpTrnTopoCnt != 0 && f.OpTrnTopoCnt != h.OpTrnTopoCnt {
		return false
	}
	return true
}

// Validate runs a received frame through the checks in §4.1: overall
// length bounds, header CRC, body CRC (MD only), protocol version,
// msgType, exact length and topo-count match. It returns trdperr.OK on
// success and the taxonomy code of the first failing check otherwise.
//
// Reading msgType requires the first 36 bytes to already be parsed, which
// in turn is needed to know whether raw is a 40-byte PD frame or a
// 128-byte MD frame before the remaining checks can locate the CRC and
// length fields. That one step is therefore resolved ahead of the order
// in which the checks are listed; everything else follows the listed
// order.
func Validate(raw []byte, topo TopoFilter) (Packet, trdperr.ResultCode, error) {
	const op = "wire.Validate"

	if len(raw) < commonHeaderSize {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}
	var ch commonHeader
	unmarshalCommonHeader(&ch, raw)

	if !ch.MsgType.Valid() {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}

	if len(raw) < MinSizeFor(ch.MsgType.Kind()) || len(raw) > MaxPacketSize {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}

	switch ch.MsgType.Kind() {
	case KindPD:
		return validatePD(raw, topo)
	case KindMD:
		return validateMD(raw, topo)
	default:
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}
}

// MinSizeFor returns the smallest valid frame size for kind, used by
// callers sizing receive buffers.
func MinSizeFor(kind Kind) int {
	switch kind {
	case KindPD:
		return PDHeaderSize
	case KindMD:
		return MDHeaderSize + bodyCRCSize
	default:
		return commonHeaderSize
	}
}

func validatePD(raw []byte, topo TopoFilter) (Packet, trdperr.ResultCode, error) {
	const op = "wire.Validate"

	if !crc32fcs.Verify(raw[:commonHeaderSize], raw[commonHeaderSize:PDHeaderSize]) {
		return nil, trdperr.CRCError, trdperr.New(op, trdperr.CRCError, nil)
	}

	f := &PDFrame{}
	if err := f.UnmarshalBinary(raw); err != nil {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, err)
	}

	if f.ProtocolVersion>>8 != uint16(ProtocolMajor) {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}

	wantLen := PDHeaderSize + int(align4(f.DatasetLength))
	if len(raw) != wantLen {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}

	if !topo.matches(&f.commonHeader) {
		return nil, trdperr.TopoError, trdperr.New(op, trdperr.TopoError, nil)
	}

	return f, trdperr.OK, nil
}

func validateMD(raw []byte, topo TopoFilter) (Packet, trdperr.ResultCode, error) {
	const op = "wire.Validate"

	if !crc32fcs.Verify(raw[:MDHeaderSize-4], raw[MDHeaderSize-4:MDHeaderSize]) {
		return nil, trdperr.CRCError, trdperr.New(op, trdperr.CRCError, nil)
	}

	var ch commonHeader
	unmarshalCommonHeader(&ch, raw)
	dataEnd := MDHeaderSize + int(align4(ch.DatasetLength))
	if dataEnd+bodyCRCSize > len(raw) {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}
	if ch.DatasetLength > 0 {
		body := raw[MDHeaderSize : MDHeaderSize+int(ch.DatasetLength)]
		if !crc32fcs.Verify(body, raw[dataEnd:dataEnd+bodyCRCSize]) {
			return nil, trdperr.CRCError, trdperr.New(op, trdperr.CRCError, nil)
		}
	}

	f := &MDFrame{}
	if err := f.UnmarshalBinary(raw); err != nil {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, err)
	}

	wantLen := dataEnd + bodyCRCSize
	if len(raw) != wantLen {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}

	if ch.ProtocolVersion>>8 != uint16(ProtocolMajor) {
		return nil, trdperr.WireError, trdperr.New(op, trdperr.WireError, nil)
	}

	if !topo.matches(&f.commonHeader) {
		return nil, trdperr.TopoError, trdperr.New(op, trdperr.TopoError, nil)
	}

	return f, trdperr.OK, nil
}

