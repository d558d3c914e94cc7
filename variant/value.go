package variant

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/internal/coerce"
)

// Value is an immutable variant value.
type Value struct {
	typ      *Type
	scalar   any
	children []*Value
}

// Array is a host sequence with an explicit element count. N wins over
// len(Items): extra items are dropped and missing ones are absent. N of 0
// means len(Items).
type Array struct {
	Items []any
	N     int
}

func (a Array) items() []any {
	if a.N <= 0 || a.N == len(a.Items) {
		return a.Items
	}
	out := make([]any, a.N)
	copy(out, a.Items)
	return out
}

// New builds a value of the given type from a host value.
func New(typeString string, host any) (*Value, error) {
	t, err := Parse(typeString)
	if err != nil {
		return nil, err
	}
	return NewOf(t, host)
}

// NewOf builds a value of a parsed type from a host value.
func NewOf(t *Type, host any) (*Value, error) {
	return build(t, host, nil)
}

// MustNew is New that panics on error.
func MustNew(typeString string, host any) *Value {
	v, err := New(typeString, host)
	if err != nil {
		panic(err)
	}
	return v
}

func mismatch(path []string, host any, t *Type) error {
	return errors.TypeMismatch(errors.PhaseVariant, path, coerce.TypeName(host), t.str)
}

func childPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

func build(t *Type, host any, path []string) (*Value, error) {
	if hv, ok := host.(*Value); ok && t.Class != ClassVariant {
		if hv == nil || hv.typ.str != t.str {
			return nil, mismatch(path, host, t)
		}
		return hv, nil
	}

	v := &Value{typ: t}
	switch t.Class {
	case ClassBoolean:
		b, ok := host.(bool)
		if !ok {
			return nil, mismatch(path, host, t)
		}
		v.scalar = b

	case ClassByte, ClassUint16, ClassUint32, ClassUint64:
		bits := map[Class]int{ClassByte: 8, ClassUint16: 16, ClassUint32: 32, ClassUint64: 64}[t.Class]
		n, ok := coerce.Unsigned(host, bits)
		if !ok {
			return nil, rangeOrMismatch(path, host, t)
		}
		switch t.Class {
		case ClassByte:
			v.scalar = uint8(n)
		case ClassUint16:
			v.scalar = uint16(n)
		case ClassUint32:
			v.scalar = uint32(n)
		default:
			v.scalar = n
		}

	case ClassInt16, ClassInt32, ClassHandle, ClassInt64:
		bits := map[Class]int{ClassInt16: 16, ClassInt32: 32, ClassHandle: 32, ClassInt64: 64}[t.Class]
		n, ok := coerce.Signed(host, bits)
		if !ok {
			return nil, rangeOrMismatch(path, host, t)
		}
		switch t.Class {
		case ClassInt16:
			v.scalar = int16(n)
		case ClassInt64:
			v.scalar = n
		default:
			v.scalar = int32(n)
		}

	case ClassDouble:
		f, ok := coerce.Float(host)
		if !ok {
			return nil, mismatch(path, host, t)
		}
		v.scalar = f

	case ClassString, ClassObjectPath, ClassSignature:
		s, ok := host.(string)
		if !ok {
			return nil, mismatch(path, host, t)
		}
		if t.Class == ClassObjectPath && !validObjectPath(s) {
			return nil, errors.InvalidData(errors.PhaseVariant, path, fmt.Sprintf("invalid object path %q", s))
		}
		if t.Class == ClassSignature {
			if _, err := ParseSignature(s); err != nil {
				return nil, err
			}
		}
		v.scalar = s

	case ClassVariant:
		inner, ok := host.(*Value)
		if !ok || inner == nil {
			return nil, mismatch(path, host, t)
		}
		v.children = []*Value{inner}

	case ClassMaybe:
		if host == nil {
			return v, nil
		}
		child, err := build(t.Elem, host, childPath(path, "just"))
		if err != nil {
			return nil, err
		}
		v.children = []*Value{child}

	case ClassArray:
		items, err := arrayItems(t, host, path)
		if err != nil {
			return nil, err
		}
		v.children = make([]*Value, len(items))
		for i, it := range items {
			child, err := build(t.Elem, it, childPath(path, strconv.Itoa(i+1)))
			if err != nil {
				return nil, err
			}
			v.children[i] = child
		}

	case ClassTuple, ClassDictEntry:
		items, ok := sequence(host)
		if !ok || len(items) > len(t.Items) {
			return nil, mismatch(path, host, t)
		}
		if t.Class == ClassDictEntry && len(items) != 2 {
			return nil, mismatch(path, host, t)
		}
		v.children = make([]*Value, len(t.Items))
		for i, it := range t.Items {
			var h any
			if i < len(items) {
				h = items[i]
			}
			child, err := build(it, h, childPath(path, strconv.Itoa(i+1)))
			if err != nil {
				return nil, err
			}
			v.children[i] = child
		}

	default:
		return nil, errors.Unsupported(errors.PhaseVariant, "type "+t.str)
	}
	return v, nil
}

func rangeOrMismatch(path []string, host any, t *Type) error {
	if coerce.IsNumber(host) {
		return errors.OutOfRange(errors.PhaseVariant, path, host, t.str)
	}
	return errors.TypeMismatch(errors.PhaseVariant, path, coerce.TypeName(host), t.str)
}

// sequence flattens a host sequence.
func sequence(host any) ([]any, bool) {
	switch h := host.(type) {
	case nil:
		return nil, false
	case []any:
		return h, true
	case Array:
		return h.items(), true
	case *Array:
		return h.items(), true
	}
	rv := reflect.ValueOf(host)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func arrayItems(t *Type, host any, path []string) ([]any, error) {
	if t.Elem.Class == ClassByte {
		switch h := host.(type) {
		case []byte:
			return bytesToItems(h), nil
		case string:
			return bytesToItems([]byte(h)), nil
		}
	}

	if items, ok := sequence(host); ok {
		return items, nil
	}

	rv := reflect.ValueOf(host)
	if rv.Kind() == reflect.Map && t.Elem.Class == ClassDictEntry {
		type entry struct {
			key any
			val any
			str string
		}
		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().Interface()
			entries = append(entries, entry{key: k, val: iter.Value().Interface(), str: fmt.Sprint(k)})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].str < entries[j].str })
		items := make([]any, len(entries))
		for i, e := range entries {
			items[i] = []any{e.key, e.val}
		}
		return items, nil
	}
	return nil, mismatch(path, host, t)
}

func bytesToItems(b []byte) []any {
	out := make([]any, len(b))
	for i, c := range b {
		out[i] = c
	}
	return out
}

// Type returns the value's type.
func (v *Value) Type() *Type {
	return v.typ
}

// TypeString returns the value's type string.
func (v *Value) TypeString() string {
	return v.typ.str
}

// Len returns the number of children; 0 for basic values and empty maybes.
func (v *Value) Len() int {
	return len(v.children)
}

// At returns the i-th child counting from 1, or nil when out of range.
func (v *Value) At(i int) *Value {
	if i < 1 || i > len(v.children) {
		return nil
	}
	return v.children[i-1]
}

// Value projects the variant to a host value.
func (v *Value) Value() any {
	switch v.typ.Class {
	case ClassVariant:
		return v.children[0]
	case ClassMaybe:
		if len(v.children) == 0 {
			return nil
		}
		return v.children[0].Value()
	case ClassTuple, ClassDictEntry:
		out := make([]any, len(v.children))
		for i, c := range v.children {
			out[i] = c.Value()
		}
		return out
	case ClassArray:
		return v.projectArray()
	}
	return v.scalar
}

func (v *Value) projectArray() any {
	elem := v.typ.Elem
	switch {
	case elem.Class == ClassByte:
		out := make([]byte, len(v.children))
		for i, c := range v.children {
			out[i] = c.scalar.(uint8)
		}
		return out
	case elem.Class == ClassDictEntry:
		switch elem.Items[0].Class {
		case ClassString, ClassObjectPath, ClassSignature:
			out := make(map[string]any, len(v.children))
			for _, c := range v.children {
				out[c.children[0].scalar.(string)] = c.children[1].Value()
			}
			return out
		}
		out := make(map[any]any, len(v.children))
		for _, c := range v.children {
			out[c.children[0].scalar] = c.children[1].Value()
		}
		return out
	}
	out := make([]any, len(v.children))
	for i, c := range v.children {
		out[i] = c.Value()
	}
	return out
}

// Equal reports structural equality.
func (v *Value) Equal(o *Value) bool {
	if v == o {
		return true
	}
	if v == nil || o == nil || v.typ.str != o.typ.str || len(v.children) != len(o.children) {
		return false
	}
	if f, ok := v.scalar.(float64); ok {
		g, ok := o.scalar.(float64)
		return ok && math.Float64bits(f) == math.Float64bits(g)
	}
	if v.scalar != o.scalar {
		return false
	}
	for i := range v.children {
		if !v.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// String renders the value in GVariant text notation.
func (v *Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v *Value) format(sb *strings.Builder) {
	switch v.typ.Class {
	case ClassString, ClassObjectPath, ClassSignature:
		sb.WriteString(strconv.Quote(v.scalar.(string)))
	case ClassVariant:
		sb.WriteByte('<')
		v.children[0].format(sb)
		sb.WriteByte('>')
	case ClassMaybe:
		if len(v.children) == 0 {
			sb.WriteString("nothing")
			return
		}
		v.children[0].format(sb)
	case ClassArray:
		dict := v.typ.Elem.Class == ClassDictEntry
		if dict {
			sb.WriteByte('{')
		} else {
			sb.WriteByte('[')
		}
		for i, c := range v.children {
			if i > 0 {
				sb.WriteString(", ")
			}
			if dict {
				c.children[0].format(sb)
				sb.WriteString(": ")
				c.children[1].format(sb)
				continue
			}
			c.format(sb)
		}
		if dict {
			sb.WriteByte('}')
		} else {
			sb.WriteByte(']')
		}
	case ClassTuple, ClassDictEntry:
		open, closing := byte('('), byte(')')
		if v.typ.Class == ClassDictEntry {
			open, closing = '{', '}'
		}
		sb.WriteByte(open)
		for i, c := range v.children {
			if i > 0 {
				sb.WriteString(", ")
			}
			c.format(sb)
		}
		if len(v.children) == 1 && v.typ.Class == ClassTuple {
			sb.WriteByte(',')
		}
		sb.WriteByte(closing)
	default:
		fmt.Fprint(sb, v.scalar)
	}
}
