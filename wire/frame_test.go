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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcnopen/trdp-go/trdperr"
)

func samplePD() *PDFrame {
	f := &PDFrame{}
	f.ComID = 1001
	f.ProtocolVersion = ProtocolVersion
	f.EtbTopoCnt = 7
	f.OpTrnTopoCnt = 3
	f.Data = []byte{1, 2, 3, 4, 5}
	return f
}

func TestPDFrameRoundTrip(t *testing.T) {
	f := samplePD()
	raw, err := f.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, PDHeaderSize+8, len(raw)) // 5 bytes padded to 8

	var got PDFrame
	require.NoError(t, got.UnmarshalBinary(raw))
	assert.Equal(t, f.ComID, got.ComID)
	assert.Equal(t, f.Data, got.Data)
	assert.Equal(t, PD, got.MsgType)
}

func TestPDFrameValidateOK(t *testing.T) {
	f := samplePD()
	raw, err := f.MarshalBinary()
	require.NoError(t, err)

	pkt, code, err := Validate(raw, TopoFilter{EtbTopoCnt: 7, OpTrnTopoCnt: 3})
	require.NoError(t, err)
	assert.Equal(t, trdperr.OK, code)
	require.IsType(t, &PDFrame{}, pkt)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, pkt.(*PDFrame).Data)
}

func TestPDFrameValidateCRCError(t *testing.T) {
	f := samplePD()
	raw, err := f.MarshalBinary()
	require.NoError(t, err)
	raw[0] ^= 0xff // corrupt sequenceCounter, inside the header CRC span

	_, code, err := Validate(raw, TopoFilter{})
	assert.Error(t, err)
	assert.Equal(t, trdperr.CRCError, code)
}

func TestPDFrameValidateTopoMismatch(t *testing.T) {
	f := samplePD()
	raw, err := f.MarshalBinary()
	require.NoError(t, err)

	_, code, err := Validate(raw, TopoFilter{EtbTopoCnt: 99})
	assert.Error(t, err)
	assert.Equal(t, trdperr.TopoError, code)
}

func TestPDFrameValidateProtocolVersion(t *testing.T) {
	f := samplePD()
	f.ProtocolVersion = uint16(ProtocolMajor+1) << 8
	raw, err := f.MarshalBinary()
	require.NoError(t, err)

	_, code, err := Validate(raw, TopoFilter{})
	assert.Error(t, err)
	assert.Equal(t, trdperr.WireError, code)
}

func TestPDFrameValidateLengthMismatch(t *testing.T) {
	f := samplePD()
	raw, err := f.MarshalBinary()
	require.NoError(t, err)

	_, code, err := Validate(raw[:len(raw)-1], TopoFilter{})
	assert.Error(t, err)
	assert.Equal(t, trdperr.WireError, code)
}

func sampleMD() *MDFrame {
	f := &MDFrame{}
	f.ComID = 2002
	f.ProtocolVersion = ProtocolVersion
	f.MsgType = MDRequest
	f.ReplyTimeoutUS = 1_000_000
	copy(f.SourceURI[:], "caller@consist")
	copy(f.DestinationURI[:], "replier@consist")
	f.Data = []byte("hello trdp")
	return f
}

func TestMDFrameRoundTrip(t *testing.T) {
	f := sampleMD()
	raw, err := f.MarshalBinary()
	require.NoError(t, err)

	var got MDFrame
	require.NoError(t, got.UnmarshalBinary(raw))
	assert.Equal(t, f.ComID, got.ComID)
	assert.Equal(t, f.Data, got.Data)
	assert.Equal(t, f.ReplyTimeoutUS, got.ReplyTimeoutUS)
}

func TestMDFrameValidateOK(t *testing.T) {
	f := sampleMD()
	raw, err := f.MarshalBinary()
	require.NoError(t, err)

	pkt, code, err := Validate(raw, TopoFilter{})
	require.NoError(t, err)
	assert.Equal(t, trdperr.OK, code)
	require.IsType(t, &MDFrame{}, pkt)
}

func TestMDFrameValidateBodyCRCError(t *testing.T) {
	f := sampleMD()
	raw, err := f.MarshalBinary()
	require.NoError(t, err)
	raw[MDHeaderSize] ^= 0xff // corrupt first payload byte

	_, code, err := Validate(raw, TopoFilter{})
	assert.Error(t, err)
	assert.Equal(t, trdperr.CRCError, code)
}

func TestDecodePacketDispatch(t *testing.T) {
	pdRaw, err := samplePD().MarshalBinary()
	require.NoError(t, err)
	pkt, err := DecodePacket(pdRaw)
	require.NoError(t, err)
	assert.IsType(t, &PDFrame{}, pkt)

	mdRaw, err := sampleMD().MarshalBinary()
	require.NoError(t, err)
	pkt, err = DecodePacket(mdRaw)
	require.NoError(t, err)
	assert.IsType(t, &MDFrame{}, pkt)
}

func TestDecodePacketUnknownMsgType(t *testing.T) {
	raw := make([]byte, commonHeaderSize)
	_, err := DecodePacket(raw)
	assert.Error(t, err)
}
