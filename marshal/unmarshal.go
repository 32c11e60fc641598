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

// UnmarshalByComID resolves comID to a dataset and unmarshals wireSrc
// against it.
func UnmarshalByComID(t *Tables, comID uint32, wireSrc []byte) (*Record, error) {
	dsID, ok := t.DatasetForComID(comID)
	if !ok {
		return nil, trdperr.New("marshal.UnmarshalByComID", trdperr.ComIDError, nil)
	}
	return UnmarshalDataset(t, dsID, wireSrc)
}

// UnmarshalDataset parses wireSrc into a Record against dataset dsID.
func UnmarshalDataset(t *Tables, dsID uint32, wireSrc []byte) (*Record, error) {
	ds, ok := t.Dataset(dsID)
	if !ok {
		return nil, trdperr.New("marshal.UnmarshalDataset", trdperr.ParamError, nil)
	}
	r := &reader{buf: wireSrc}
	rec, err := unmarshalRecord(t, ds, r, 1)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

type reader struct {
	buf []byte
	pos int
}

// take reserves the next n bytes of source; a short source (including a
// dynamic array whose declared count runs past what remains) is reported
// as param-error, matching "dynamic count exceeds remaining source".
func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, trdperr.New("marshal", trdperr.ParamError, nil)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func unmarshalRecord(t *Tables, ds *Dataset, r *reader, depth int) (*Record, error) {
	if depth > maxDepth {
		return nil, trdperr.New("marshal.unmarshalRecord", trdperr.ParamError, nil)
	}
	rec := &Record{Fields: make([]any, len(ds.Fields))}
	for i, f := range ds.Fields {
		v, err := unmarshalField(t, f, r, depth)
		if err != nil {
			return nil, err
		}
		rec.Fields[i] = v
	}
	return rec, nil
}

func unmarshalField(t *Tables, f Field, r *reader, depth int) (any, error) {
	if f.IsDataset {
		nested, ok := t.Dataset(f.DatasetRef)
		if !ok {
			return nil, trdperr.New("marshal.unmarshalField", trdperr.ParamError, nil)
		}
		if f.Count == 1 {
			return unmarshalRecord(t, nested, r, depth+1)
		}
		n, err := f.resolveCount(r)
		if err != nil {
			return nil, err
		}
		recs := make([]*Record, n)
		for i := range recs {
			rec, err := unmarshalRecord(t, nested, r, depth+1)
			if err != nil {
				return nil, err
			}
			recs[i] = rec
		}
		return recs, nil
	}

	if f.Count == 1 {
		return readScalar(r, f.Type)
	}
	n, err := f.resolveCount(r)
	if err != nil {
		return nil, err
	}
	return readScalarSlice(r, f.Type, n)
}

// resolveCount reads the wire-carried count for a dynamic field, or
// returns the schema's fixed count.
func (f Field) resolveCount(r *reader) (int, error) {
	if f.Count == Dynamic {
		n, err := r.u16()
		if err != nil {
			return 0, err
		}
		return int(n), nil
	}
	return f.Count, nil
}

func readScalar(r *reader, wt WireType) (any, error) {
	switch wt {
	case Bool8:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		return b[0] != 0, nil
	case Char8, UInt8:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		return b[0], nil
	case Int8:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		return int8(b[0]), nil
	case UTF16, UInt16:
		b, err := r.take(2)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint16(b), nil
	case Int16:
		b, err := r.take(2)
		if err != nil {
			return nil, err
		}
		return int16(binary.BigEndian.Uint16(b)), nil
	case Int32:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return int32(binary.BigEndian.Uint32(b)), nil
	case UInt32, TimeDate32:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint32(b), nil
	case Int64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case UInt64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint64(b), nil
	case Real32:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
	case Real64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case TimeDate48:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		sec := binary.BigEndian.Uint32(b)
		b, err = r.take(2)
		if err != nil {
			return nil, err
		}
		return TimeDate48{Sec: sec, Ticks: binary.BigEndian.Uint16(b)}, nil
	case TimeDate64:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		sec := binary.BigEndian.Uint32(b)
		b, err = r.take(4)
		if err != nil {
			return nil, err
		}
		return TimeDate64{Sec: sec, USec: binary.BigEndian.Uint32(b)}, nil
	default:
		return nil, trdperr.New("marshal.readScalar", trdperr.ParamError, nil)
	}
}

func readScalarSlice(r *reader, wt WireType, n int) (any, error) {
	switch wt {
	case Bool8:
		s := make([]bool, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(bool)
		}
		return s, nil
	case Char8, UInt8:
		s := make([]byte, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(byte)
		}
		return s, nil
	case Int8:
		s := make([]int8, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(int8)
		}
		return s, nil
	case UTF16, UInt16:
		s := make([]uint16, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(uint16)
		}
		return s, nil
	case Int16:
		s := make([]int16, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(int16)
		}
		return s, nil
	case Int32:
		s := make([]int32, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(int32)
		}
		return s, nil
	case UInt32, TimeDate32:
		s := make([]uint32, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(uint32)
		}
		return s, nil
	case Int64:
		s := make([]int64, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(int64)
		}
		return s, nil
	case UInt64:
		s := make([]uint64, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(uint64)
		}
		return s, nil
	case Real32:
		s := make([]float32, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(float32)
		}
		return s, nil
	case Real64:
		s := make([]float64, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(float64)
		}
		return s, nil
	case TimeDate48:
		s := make([]TimeDate48, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(TimeDate48)
		}
		return s, nil
	case TimeDate64:
		s := make([]TimeDate64, n)
		for i := range s {
			v, err := readScalar(r, wt)
			if err != nil {
				return nil, err
			}
			s[i] = v.(TimeDate64)
		}
		return s, nil
	default:
		return nil, trdperr.New("marshal.readScalarSlice", trdperr.ParamError, nil)
	}
}
