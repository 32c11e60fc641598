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
	"encoding/binary"
	"math"

	"github.com/tcnopen/trdp-go/trdperr"
)

// maxDepth bounds dataset recursion, preventing a cyclic schema from
// recursing forever.
const maxDepth = 8

const countFieldSize = 2 // u16 element count ahead of a dynamic array

// MarshalByComID resolves comID to a dataset and marshals rec against it.
func MarshalByComID(t *Tables, comID uint32, rec *Record) ([]byte, error) {
	dsID, ok := t.DatasetForComID(comID)
	if !ok {
		return nil, trdperr.New("marshal.MarshalByComID", trdperr.ComIDError, nil)
	}
	return MarshalDataset(t, dsID, rec)
}

// MarshalDataset sizes and fills a wire buffer for rec against dataset dsID.
func MarshalDataset(t *Tables, dsID uint32, rec *Record) ([]byte, error) {
	n, err := CalcDatasetSize(t, dsID, rec)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := MarshalDatasetTo(t, dsID, rec, b); err != nil {
		return nil, err
	}
	return b, nil
}

// MarshalDatasetTo writes rec into dst, which must be at least as large as
// CalcDatasetSize reports, and returns the number of bytes written.
func MarshalDatasetTo(t *Tables, dsID uint32, rec *Record, dst []byte) (int, error) {
	ds, ok := t.Dataset(dsID)
	if !ok {
		return 0, trdperr.New("marshal.MarshalDatasetTo", trdperr.ParamError, nil)
	}
	w := &writer{buf: dst}
	if err := marshalRecord(t, ds, rec, w, 1); err != nil {
		return 0, err
	}
	return w.pos, nil
}

// CalcDatasetSize performs the marshal traversal without writing,
// returning the wire length rec would occupy.
func CalcDatasetSize(t *Tables, dsID uint32, rec *Record) (int, error) {
	ds, ok := t.Dataset(dsID)
	if !ok {
		return 0, trdperr.New("marshal.CalcDatasetSize", trdperr.ParamError, nil)
	}
	c := &sizer{}
	if err := sizeRecord(t, ds, rec, c, 1); err != nil {
		return 0, err
	}
	return c.n, nil
}

type writer struct {
	buf []byte
	pos int
}

func (w *writer) reserve(n int) ([]byte, error) {
	if w.pos+n > len(w.buf) {
		return nil, trdperr.New("marshal", trdperr.MemError, nil)
	}
	b := w.buf[w.pos : w.pos+n]
	w.pos += n
	return b, nil
}

type sizer struct{ n int }

func (c *sizer) reserve(n int) { c.n += n }

func marshalRecord(t *Tables, ds *Dataset, rec *Record, w *writer, depth int) error {
	if depth > maxDepth {
		return trdperr.New("marshal.marshalRecord", trdperr.ParamError, nil)
	}
	if len(rec.Fields) != len(ds.Fields) {
		return trdperr.New("marshal.marshalRecord", trdperr.ParamError, nil)
	}
	for i, f := range ds.Fields {
		if err := marshalField(t, f, rec.Fields[i], w, depth); err != nil {
			return err
		}
	}
	return nil
}

func sizeRecord(t *Tables, ds *Dataset, rec *Record, c *sizer, depth int) error {
	if depth > maxDepth {
		return trdperr.New("marshal.sizeRecord", trdperr.ParamError, nil)
	}
	if len(rec.Fields) != len(ds.Fields) {
		return trdperr.New("marshal.sizeRecord", trdperr.ParamError, nil)
	}
	for i, f := range ds.Fields {
		if err := sizeField(t, f, rec.Fields[i], c, depth); err != nil {
			return err
		}
	}
	return nil
}

func marshalField(t *Tables, f Field, v any, w *writer, depth int) error {
	if f.IsDataset {
		nested, ok := t.Dataset(f.DatasetRef)
		if !ok {
			return trdperr.New("marshal.marshalField", trdperr.ParamError, nil)
		}
		if f.Count == 1 {
			rec, ok := v.(*Record)
			if !ok {
				return trdperr.New("marshal.marshalField", trdperr.ParamError, nil)
			}
			return marshalRecord(t, nested, rec, w, depth+1)
		}
		recs, ok := v.([]*Record)
		if !ok {
			return trdperr.New("marshal.marshalField", trdperr.ParamError, nil)
		}
		if f.Count == Dynamic {
			if err := writeU16(w, uint16(len(recs))); err != nil {
				return err
			}
		}
		for _, rec := range recs {
			if err := marshalRecord(t, nested, rec, w, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if f.Count == 1 {
		return writeScalar(w, f.Type, v)
	}
	if f.Count == Dynamic {
		n, err := sliceLen(f.Type, v)
		if err != nil {
			return err
		}
		if err := writeU16(w, uint16(n)); err != nil {
			return err
		}
	}
	return writeScalarSlice(w, f.Type, v)
}

func sizeField(t *Tables, f Field, v any, c *sizer, depth int) error {
	if f.IsDataset {
		nested, ok := t.Dataset(f.DatasetRef)
		if !ok {
			return trdperr.New("marshal.sizeField", trdperr.ParamError, nil)
		}
		if f.Count == 1 {
			rec, ok := v.(*Record)
			if !ok {
				return trdperr.New("marshal.sizeField", trdperr.ParamError, nil)
			}
			return sizeRecord(t, nested, rec, c, depth+1)
		}
		recs, ok := v.([]*Record)
		if !ok {
			return trdperr.New("marshal.sizeField", trdperr.ParamError, nil)
		}
		if f.Count == Dynamic {
			c.reserve(countFieldSize)
		}
		for _, rec := range recs {
			if err := sizeRecord(t, nested, rec, c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if f.Count == Dynamic {
		c.reserve(countFieldSize)
	}
	n, err := elementCount(f, v)
	if err != nil {
		return err
	}
	c.reserve(n * f.Type.wireSize())
	return nil
}

func elementCount(f Field, v any) (int, error) {
	if f.Count == 1 {
		return 1, nil
	}
	return sliceLen(f.Type, v)
}

func writeU16(w *writer, n uint16) error {
	b, err := w.reserve(2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, n)
	return nil
}

func writeScalar(w *writer, wt WireType, v any) error {
	switch wt {
	case Bool8:
		b, err := w.reserve(1)
		if err != nil {
			return err
		}
		val, ok := v.(bool)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		if val {
			b[0] = 1
		} else {
			b[0] = 0
		}
	case Char8, UInt8:
		b, err := w.reserve(1)
		if err != nil {
			return err
		}
		val, ok := v.(byte)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		b[0] = val
	case Int8:
		b, err := w.reserve(1)
		if err != nil {
			return err
		}
		val, ok := v.(int8)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		b[0] = byte(val)
	case UTF16, UInt16:
		b, err := w.reserve(2)
		if err != nil {
			return err
		}
		val, ok := v.(uint16)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		binary.BigEndian.PutUint16(b, val)
	case Int16:
		b, err := w.reserve(2)
		if err != nil {
			return err
		}
		val, ok := v.(int16)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		binary.BigEndian.PutUint16(b, uint16(val))
	case Int32:
		b, err := w.reserve(4)
		if err != nil {
			return err
		}
		val, ok := v.(int32)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		binary.BigEndian.PutUint32(b, uint32(val))
	case UInt32, TimeDate32:
		b, err := w.reserve(4)
		if err != nil {
			return err
		}
		val, ok := v.(uint32)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		binary.BigEndian.PutUint32(b, val)
	case Int64:
		b, err := w.reserve(8)
		if err != nil {
			return err
		}
		val, ok := v.(int64)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		binary.BigEndian.PutUint64(b, uint64(val))
	case UInt64:
		b, err := w.reserve(8)
		if err != nil {
			return err
		}
		val, ok := v.(uint64)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		binary.BigEndian.PutUint64(b, val)
	case Real32:
		b, err := w.reserve(4)
		if err != nil {
			return err
		}
		val, ok := v.(float32)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		binary.BigEndian.PutUint32(b, math.Float32bits(val))
	case Real64:
		b, err := w.reserve(8)
		if err != nil {
			return err
		}
		val, ok := v.(float64)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		binary.BigEndian.PutUint64(b, math.Float64bits(val))
	case TimeDate48:
		val, ok := v.(TimeDate48)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		b, err := w.reserve(4)
		if err != nil {
			return err
		}
		binary.BigEndian.PutUint32(b, val.Sec)
		b, err = w.reserve(2)
		if err != nil {
			return err
		}
		binary.BigEndian.PutUint16(b, val.Ticks)
	case TimeDate64:
		val, ok := v.(TimeDate64)
		if !ok {
			return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
		}
		b, err := w.reserve(4)
		if err != nil {
			return err
		}
		binary.BigEndian.PutUint32(b, val.Sec)
		b, err = w.reserve(4)
		if err != nil {
			return err
		}
		binary.BigEndian.PutUint32(b, val.USec)
	default:
		return trdperr.New("marshal.writeScalar", trdperr.ParamError, nil)
	}
	return nil
}

func sliceLen(wt WireType, v any) (int, error) {
	switch wt {
	case Bool8:
		s, ok := v.([]bool)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case Char8, UInt8:
		s, ok := v.([]byte)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case Int8:
		s, ok := v.([]int8)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case UTF16, UInt16:
		s, ok := v.([]uint16)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case Int16:
		s, ok := v.([]int16)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case Int32:
		s, ok := v.([]int32)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case UInt32, TimeDate32:
		s, ok := v.([]uint32)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case Int64:
		s, ok := v.([]int64)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case UInt64:
		s, ok := v.([]uint64)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case Real32:
		s, ok := v.([]float32)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case Real64:
		s, ok := v.([]float64)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case TimeDate48:
		s, ok := v.([]TimeDate48)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	case TimeDate64:
		s, ok := v.([]TimeDate64)
		if !ok {
			return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
		}
		return len(s), nil
	default:
		return 0, trdperr.New("marshal.sliceLen", trdperr.ParamError, nil)
	}
}

func writeScalarSlice(w *writer, wt WireType, v any) error {
	n, err := sliceLen(wt, v)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		elem, err := indexSlice(wt, v, i)
		if err != nil {
			return err
		}
		if err := writeScalar(w, wt, elem); err != nil {
			return err
		}
	}
	return nil
}

func indexSlice(wt WireType, v any, i int) (any, error) {
	switch wt {
	case Bool8:
		return v.([]bool)[i], nil
	case Char8, UInt8:
		return v.([]byte)[i], nil
	case Int8:
		return v.([]int8)[i], nil
	case UTF16, UInt16:
		return v.([]uint16)[i], nil
	case Int16:
		return v.([]int16)[i], nil
	case Int32:
		return v.([]int32)[i], nil
	case UInt32, TimeDate32:
		return v.([]uint32)[i], nil
	case Int64:
		return v.([]int64)[i], nil
	case UInt64:
		return v.([]uint64)[i], nil
	case Real32:
		return v.([]float32)[i], nil
	case Real64:
		return v.([]float64)[i], nil
	case TimeDate48:
		return v.([]TimeDate48)[i], nil
	case TimeDate64:
		return v.([]TimeDate64)[i], nil
	default:
		return nil, trdperr.New("marshal.indexSlice", trdperr.ParamError, nil)
	}
}
