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

package marshal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcnopen/trdp-go/trdperr"
)

func nestedTables() *Tables {
	d2 := Dataset{ID: 2, Fields: []Field{
		{Name: "x", Type: Int32, Count: 1},
		{Name: "y", Type: Real32, Count: 3},
	}}
	d1 := Dataset{ID: 1, Fields: []Field{
		{Name: "a", Type: UInt16, Count: 1},
		{Name: "b", Type: UInt8, Count: Dynamic},
		{Name: "c", IsDataset: true, DatasetRef: 2, Count: 1},
	}}
	return NewTables([]Dataset{d1, d2}, []ComIDEntry{{ComID: 100, DatasetID: 1}})
}

func TestMarshalNestedDatasetScenario(t *testing.T) {
	tables := nestedTables()
	rec := &Record{Fields: []any{
		uint16(0x1234),
		[]byte{0xAA, 0xBB, 0xCC},
		&Record{Fields: []any{int32(-1), []float32{1.0, 2.0, 3.0}}},
	}}

	want := []byte{
		0x12, 0x34,
		0x00, 0x03,
		0xAA, 0xBB, 0xCC,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x3F, 0x80, 0x00, 0x00,
		0x40, 0x00, 0x00, 0x00,
		0x40, 0x40, 0x00, 0x00,
	}

	size, err := CalcDatasetSize(tables, 1, rec)
	require.NoError(t, err)
	assert.Equal(t, len(want), size)

	got, err := MarshalDataset(tables, 1, rec)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	roundTrip, err := UnmarshalDataset(tables, 1, got)
	require.NoError(t, err)
	assert.Equal(t, rec, roundTrip)

	byComID, err := UnmarshalByComID(tables, 100, got)
	require.NoError(t, err)
	assert.Equal(t, rec, byComID)
}

func TestMarshalUnknownComID(t *testing.T) {
	tables := nestedTables()
	_, err := MarshalByComID(tables, 999, &Record{})
	code, ok := trdperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, trdperr.ComIDError, code)
}

func TestMarshalUnknownDataset(t *testing.T) {
	tables := nestedTables()
	_, err := MarshalDataset(tables, 999, &Record{})
	code, ok := trdperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, trdperr.ParamError, code)
}

func TestUnmarshalDynamicCountExceedsSource(t *testing.T) {
	tables := nestedTables()
	raw := []byte{0x12, 0x34, 0x00, 0xFF} // claims 255 bytes follow, none do
	_, err := UnmarshalDataset(tables, 1, raw)
	code, ok := trdperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, trdperr.ParamError, code)
}

func TestMarshalDestinationTooSmall(t *testing.T) {
	tables := nestedTables()
	rec := &Record{Fields: []any{
		uint16(1),
		[]byte{1, 2},
		&Record{Fields: []any{int32(1), []float32{1, 2, 3}}},
	}}
	dst := make([]byte, 4)
	_, err := MarshalDatasetTo(tables, 1, rec, dst)
	code, ok := trdperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, trdperr.MemError, code)
}

func TestRecursionDepthCap(t *testing.T) {
	// A dataset that embeds itself; nesting past depth 8 must fail with
	// param-error rather than recursing forever.
	cyclic := Dataset{ID: 7, Fields: []Field{
		{Name: "self", IsDataset: true, DatasetRef: 7, Count: 1},
	}}
	tables := NewTables([]Dataset{cyclic}, nil)

	var build func(depth int) *Record
	build = func(depth int) *Record {
		if depth == 0 {
			return &Record{Fields: []any{&Record{Fields: []any{nil}}}}
		}
		return &Record{Fields: []any{build(depth - 1)}}
	}
	rec := build(10)

	_, err := CalcDatasetSize(tables, 7, rec)
	code, ok := trdperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, trdperr.ParamError, code)
}

func TestRecordWrongFieldCount(t *testing.T) {
	tables := nestedTables()
	rec := &Record{Fields: []any{uint16(1), []byte{1}}} // missing the nested dataset field
	_, err := CalcDatasetSize(tables, 1, rec)
	code, ok := trdperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, trdperr.ParamError, code)
}

func TestTimeDate48And64RoundTrip(t *testing.T) {
	ds := Dataset{ID: 3, Fields: []Field{
		{Name: "t48", Type: TimeDate48, Count: 1},
		{Name: "t64", Type: TimeDate64, Count: 1},
	}}
	tables := NewTables([]Dataset{ds}, nil)
	rec := &Record{Fields: []any{
		TimeDate48{Sec: 100, Ticks: 5},
		TimeDate64{Sec: 200, USec: 999},
	}}

	raw, err := MarshalDataset(tables, 3, rec)
	require.NoError(t, err)
	assert.Equal(t, 14, len(raw)) // 6 + 8

	got, err := UnmarshalDataset(tables, 3, raw)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}
