package variant

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wippyai/gi-bridge/errors"
)

// Bytes returns the serialized value in GVariant normal form.
func (v *Value) Bytes() []byte {
	return v.serialize()
}

func (v *Value) serialize() []byte {
	t := v.typ
	switch t.Class {
	case ClassBoolean:
		if v.scalar.(bool) {
			return []byte{1}
		}
		return []byte{0}
	case ClassByte:
		return []byte{v.scalar.(uint8)}
	case ClassInt16:
		return binary.LittleEndian.AppendUint16(nil, uint16(v.scalar.(int16)))
	case ClassUint16:
		return binary.LittleEndian.AppendUint16(nil, v.scalar.(uint16))
	case ClassInt32, ClassHandle:
		return binary.LittleEndian.AppendUint32(nil, uint32(v.scalar.(int32)))
	case ClassUint32:
		return binary.LittleEndian.AppendUint32(nil, v.scalar.(uint32))
	case ClassInt64:
		return binary.LittleEndian.AppendUint64(nil, uint64(v.scalar.(int64)))
	case ClassUint64:
		return binary.LittleEndian.AppendUint64(nil, v.scalar.(uint64))
	case ClassDouble:
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v.scalar.(float64)))
	case ClassString, ClassObjectPath, ClassSignature:
		return append([]byte(v.scalar.(string)), 0)

	case ClassVariant:
		inner := v.children[0]
		out := inner.serialize()
		out = append(out, 0)
		return append(out, inner.typ.str...)

	case ClassMaybe:
		if len(v.children) == 0 {
			return nil
		}
		out := v.children[0].serialize()
		if t.Elem.FixedSize() == 0 {
			out = append(out, 0)
		}
		return out

	case ClassArray:
		if len(v.children) == 0 {
			return nil
		}
		if t.Elem.FixedSize() > 0 {
			var out []byte
			for _, c := range v.children {
				out = append(out, c.serialize()...)
			}
			return out
		}
		align := t.Elem.Alignment()
		var body []byte
		ends := make([]int, 0, len(v.children))
		for _, c := range v.children {
			body = pad(body, align)
			body = append(body, c.serialize()...)
			ends = append(ends, len(body))
		}
		return appendOffsets(body, ends)

	case ClassTuple, ClassDictEntry:
		if len(t.Items) == 0 {
			return []byte{0}
		}
		var body []byte
		var ends []int
		for i, c := range v.children {
			it := t.Items[i]
			body = pad(body, it.Alignment())
			body = append(body, c.serialize()...)
			if it.FixedSize() == 0 && i < len(t.Items)-1 {
				ends = append(ends, len(body))
			}
		}
		if t.FixedSize() > 0 {
			return pad(body, t.Alignment())
		}
		for i, j := 0, len(ends)-1; i < j; i, j = i+1, j-1 {
			ends[i], ends[j] = ends[j], ends[i]
		}
		return appendOffsets(body, ends)
	}
	return nil
}

func pad(b []byte, align int) []byte {
	for len(b)%align != 0 {
		b = append(b, 0)
	}
	return b
}

// frameWidth picks the smallest offset width able to address the whole
// container, offsets included.
func frameWidth(body, n int) int {
	switch {
	case body+n <= math.MaxUint8:
		return 1
	case body+2*n <= math.MaxUint16:
		return 2
	case uint64(body)+4*uint64(n) <= math.MaxUint32:
		return 4
	}
	return 8
}

// offsetWidth recovers the offset width from a container's total size.
func offsetWidth(size int) int {
	switch {
	case uint64(size) > math.MaxUint32:
		return 8
	case size > math.MaxUint16:
		return 4
	case size > math.MaxUint8:
		return 2
	case size > 0:
		return 1
	}
	return 0
}

func appendOffsets(body []byte, offsets []int) []byte {
	w := frameWidth(len(body), len(offsets))
	for _, off := range offsets {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(off))
		body = append(body, buf[:w]...)
	}
	return body
}

func readOffset(data []byte, at, w int) int {
	var buf [8]byte
	copy(buf[:], data[at:at+w])
	return int(binary.LittleEndian.Uint64(buf[:]))
}

// FromBytes deserializes a value of the given type.
func FromBytes(typeString string, data []byte) (*Value, error) {
	t, err := Parse(typeString)
	if err != nil {
		return nil, err
	}
	return FromBytesOf(t, data)
}

// FromBytesOf deserializes a value of a parsed type.
func FromBytesOf(t *Type, data []byte) (*Value, error) {
	return decode(t, data, nil)
}

func corrupt(t *Type, path []string, format string, args ...any) error {
	return errors.New(errors.PhaseVariant, errors.KindInvalidData).
		Path(path...).
		NativeType(t.str).
		Detail(format, args...).
		Build()
}

func decode(t *Type, data []byte, path []string) (*Value, error) {
	if fixed := t.FixedSize(); fixed > 0 && len(data) != fixed {
		return nil, corrupt(t, path, "expected %d bytes, got %d", fixed, len(data))
	}

	v := &Value{typ: t}
	le := binary.LittleEndian
	switch t.Class {
	case ClassBoolean:
		v.scalar = data[0] != 0
	case ClassByte:
		v.scalar = data[0]
	case ClassInt16:
		v.scalar = int16(le.Uint16(data))
	case ClassUint16:
		v.scalar = le.Uint16(data)
	case ClassInt32, ClassHandle:
		v.scalar = int32(le.Uint32(data))
	case ClassUint32:
		v.scalar = le.Uint32(data)
	case ClassInt64:
		v.scalar = int64(le.Uint64(data))
	case ClassUint64:
		v.scalar = le.Uint64(data)
	case ClassDouble:
		v.scalar = math.Float64frombits(le.Uint64(data))

	case ClassString, ClassObjectPath, ClassSignature:
		if len(data) == 0 || data[len(data)-1] != 0 {
			return nil, corrupt(t, path, "string is not NUL-terminated")
		}
		s := string(data[:len(data)-1])
		if bytes.IndexByte(data[:len(data)-1], 0) >= 0 {
			return nil, corrupt(t, path, "string contains NUL")
		}
		v.scalar = s

	case ClassVariant:
		sep := bytes.LastIndexByte(data, 0)
		if sep < 0 {
			return nil, corrupt(t, path, "variant has no type string")
		}
		inner, err := Parse(string(data[sep+1:]))
		if err != nil {
			return nil, err
		}
		child, err := decode(inner, data[:sep], childPath(path, "v"))
		if err != nil {
			return nil, err
		}
		v.children = []*Value{child}

	case ClassMaybe:
		if len(data) == 0 {
			return v, nil
		}
		body := data
		if t.Elem.FixedSize() == 0 {
			body = data[:len(data)-1]
		}
		child, err := decode(t.Elem, body, childPath(path, "just"))
		if err != nil {
			return nil, err
		}
		v.children = []*Value{child}

	case ClassArray:
		if len(data) == 0 {
			return v, nil
		}
		spans, err := arraySpans(t, data, path)
		if err != nil {
			return nil, err
		}
		v.children = make([]*Value, len(spans))
		for i, s := range spans {
			child, err := decode(t.Elem, data[s[0]:s[1]], childPath(path, fmt.Sprint(i+1)))
			if err != nil {
				return nil, err
			}
			v.children[i] = child
		}

	case ClassTuple, ClassDictEntry:
		if len(t.Items) == 0 {
			return v, nil
		}
		spans, err := tupleSpans(t, data, path)
		if err != nil {
			return nil, err
		}
		v.children = make([]*Value, len(spans))
		for i, s := range spans {
			child, err := decode(t.Items[i], data[s[0]:s[1]], childPath(path, fmt.Sprint(i+1)))
			if err != nil {
				return nil, err
			}
			v.children[i] = child
		}
	}
	return v, nil
}

func arraySpans(t *Type, data []byte, path []string) ([][2]int, error) {
	if size := t.Elem.FixedSize(); size > 0 {
		if len(data)%size != 0 {
			return nil, corrupt(t, path, "array size %d is not a multiple of %d", len(data), size)
		}
		spans := make([][2]int, len(data)/size)
		for i := range spans {
			spans[i] = [2]int{i * size, (i + 1) * size}
		}
		return spans, nil
	}

	w := offsetWidth(len(data))
	last := readOffset(data, len(data)-w, w)
	if last > len(data)-w || (len(data)-last)%w != 0 {
		return nil, corrupt(t, path, "bad framing offset %d", last)
	}
	n := (len(data) - last) / w
	align := t.Elem.Alignment()
	spans := make([][2]int, n)
	prev := 0
	for i := 0; i < n; i++ {
		end := readOffset(data, last+i*w, w)
		start := alignInt(prev, align)
		if start > end || end > last {
			return nil, corrupt(t, path, "bad framing offset %d for element %d", end, i+1)
		}
		spans[i] = [2]int{start, end}
		prev = end
	}
	return spans, nil
}

func tupleSpans(t *Type, data []byte, path []string) ([][2]int, error) {
	w := 0
	frames := 0
	if t.FixedSize() == 0 {
		w = offsetWidth(len(data))
		for i, it := range t.Items {
			if it.FixedSize() == 0 && i < len(t.Items)-1 {
				frames++
			}
		}
	}
	limit := len(data) - frames*w
	if limit < 0 {
		return nil, corrupt(t, path, "container too small for its framing offsets")
	}

	spans := make([][2]int, len(t.Items))
	frame := len(data)
	pos := 0
	for i, it := range t.Items {
		pos = alignInt(pos, it.Alignment())
		var end int
		switch size := it.FixedSize(); {
		case size > 0:
			end = pos + size
		case i == len(t.Items)-1:
			end = limit
		default:
			frame -= w
			end = readOffset(data, frame, w)
		}
		if pos > end || end > limit {
			return nil, corrupt(t, path, "item %d out of bounds", i+1)
		}
		spans[i] = [2]int{pos, end}
		pos = end
	}
	return spans, nil
}
