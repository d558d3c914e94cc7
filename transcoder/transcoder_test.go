package transcoder

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/types"
	"github.com/wippyai/gi-bridge/variant"
)

func newHeap(t *testing.T) *native.Heap {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = rt.Close(ctx) })
	inst, err := native.Instantiate(ctx, rt, native.NewLibrary("transcoder-test"), 1)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	return inst.Heap()
}

type fakeLookup struct {
	byName map[string]*types.Type
}

func (f *fakeLookup) Resolve(name string) (*types.Type, error) {
	if t, ok := f.byName[name]; ok {
		return t, nil
	}
	return nil, errors.UnknownType(name)
}

func (f *fakeLookup) ByGType(id uint32) (*types.Type, error) {
	for _, t := range f.byName {
		if t.GType == id {
			return t, nil
		}
	}
	return nil, errors.UnknownType("gtype")
}

var (
	colorEnum = &types.Type{
		Kind: types.KindEnum, Name: "Demo.Color", GType: 0x1000, LengthParam: -1,
		Values: []types.EnumValue{{Name: "red", Value: 0}, {Name: "dark_blue", Value: 2}, {Name: "minus", Value: -1}},
	}
	modeFlags = &types.Type{
		Kind: types.KindFlags, Name: "Demo.Mode", GType: 0x1001, LengthParam: -1,
		Values: []types.EnumValue{{Name: "read", Value: 1}, {Name: "write", Value: 2}, {Name: "exec", Value: 4}},
	}
	lookup = &fakeLookup{byName: map[string]*types.Type{"Demo.Color": colorEnum, "Demo.Mode": modeFlags}}
)

func basic(k types.Kind) *types.Type { return types.Basic(k) }

func arrayOf(elem *types.Type, length types.ArrayLength) *types.Type {
	return &types.Type{Kind: types.KindArray, Elem: elem, Length: length, LengthParam: -1}
}

func roundTrip(t *testing.T, typ *types.Type, v any) any {
	t.Helper()
	enc := NewEncoder(lookup, nil)
	dec := NewDecoder(lookup, nil)
	h := newHeap(t)
	word, err := enc.Lower(typ, v, Options{}, h, nil, nil)
	if err != nil {
		t.Fatalf("Lower(%s, %v): %v", typ, v, err)
	}
	got, err := dec.Lift(typ, word, Options{Length: -1}, h, nil)
	if err != nil {
		t.Fatalf("Lift(%s): %v", typ, err)
	}
	return got
}

func TestIntegerRanges(t *testing.T) {
	tests := []struct {
		value  any
		name   string
		kind   types.Kind
		want   any
		wantOK bool
	}{
		{127, "int8 max", types.KindInt8, int8(127), true},
		{128, "int8 overflow", types.KindInt8, nil, false},
		{-128, "int8 min", types.KindInt8, int8(-128), true},
		{-129, "int8 underflow", types.KindInt8, nil, false},
		{1.9, "int8 truncation", types.KindInt8, int8(1), true},
		{-1.9, "int8 negative truncation", types.KindInt8, int8(-1), true},
		{255, "uint8 max", types.KindUint8, uint8(255), true},
		{-1, "uint8 negative", types.KindUint8, nil, false},
		{32767, "int16 max", types.KindInt16, int16(32767), true},
		{65536, "uint16 overflow", types.KindUint16, nil, false},
		{int64(math.MinInt32), "int32 min", types.KindInt32, int32(math.MinInt32), true},
		{int64(math.MaxInt32) + 1, "int32 overflow", types.KindInt32, nil, false},
		{uint32(math.MaxUint32), "uint32 max", types.KindUint32, uint32(math.MaxUint32), true},
		{int64(math.MinInt64), "int64 min", types.KindInt64, int64(math.MinInt64), true},
		{uint64(math.MaxUint64), "uint64 max", types.KindUint64, uint64(math.MaxUint64), true},
		{true, "bool as int", types.KindInt32, nil, false},
		{"1", "string as int", types.KindInt32, nil, false},
		{nil, "nil as int", types.KindInt32, nil, false},
	}

	h := newHeap(t)
	enc := NewEncoder(nil, nil)
	dec := NewDecoder(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := basic(tt.kind)
			word, err := enc.Lower(typ, tt.value, Options{}, h, nil, nil)
			if (err == nil) != tt.wantOK {
				t.Fatalf("Lower(%v) error = %v, wantOK %v", tt.value, err, tt.wantOK)
			}
			if err != nil {
				if !errors.IsKind(err, errors.KindTypeMismatch) {
					t.Errorf("error kind = %s, want type_mismatch", errors.KindOf(err))
				}
				return
			}
			got, err := dec.Lift(typ, word, Options{}, h, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("round trip = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestFloatsAndBools(t *testing.T) {
	if got := roundTrip(t, basic(types.KindDouble), 3); got != float64(3) {
		t.Errorf("double from int = %v", got)
	}
	if got := roundTrip(t, basic(types.KindFloat), 0.5); got != float32(0.5) {
		t.Errorf("float = %v", got)
	}
	if got := roundTrip(t, basic(types.KindBool), true); got != true {
		t.Errorf("bool = %v", got)
	}
	enc := NewEncoder(nil, nil)
	if _, err := enc.Lower(basic(types.KindBool), 1, Options{}, nil, nil, nil); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("bool from int = %v", err)
	}
	if _, err := enc.Lower(basic(types.KindDouble), "x", Options{}, nil, nil, nil); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("double from string = %v", err)
	}
}

func TestEnum(t *testing.T) {
	tests := []struct {
		in   any
		name string
		want any
	}{
		{"red", "by name", "red"},
		{"DARK-BLUE", "folded name", "dark_blue"},
		{2, "by number", "dark_blue"},
		{-1, "negative", "minus"},
		{7, "undeclared number", int64(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundTrip(t, colorEnum, tt.in); got != tt.want {
				t.Errorf("got %v (%T), want %v", got, got, tt.want)
			}
		})
	}

	enc := NewEncoder(nil, nil)
	if _, err := enc.Lower(colorEnum, "green", Options{}, nil, nil, nil); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("unknown member = %v", err)
	}
}

func TestFlags(t *testing.T) {
	inputs := []struct {
		in   any
		name string
	}{
		{3, "number"},
		{"read|write", "joined names"},
		{[]any{"read", "write"}, "name list"},
		{map[string]any{"read": true, "write": true, "exec": false}, "bool map"},
		{types.FlagSet{Bits: 3}, "flag set"},
	}
	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := roundTrip(t, modeFlags, tt.in).(types.FlagSet)
			if !ok {
				t.Fatalf("decoded %T, want FlagSet", got)
			}
			if !got.Has("read") || !got.Has("write") || got.Has("exec") {
				t.Errorf("flags = %s", got)
			}
		})
	}
	if _, err := NewEncoder(nil, nil).Lower(modeFlags, "read|fly", Options{}, nil, nil, nil); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestGType(t *testing.T) {
	if got := roundTrip(t, basic(types.KindGType), "Demo.Color"); got != "Demo.Color" {
		t.Errorf("named gtype = %v", got)
	}
	if got := roundTrip(t, basic(types.KindGType), types.GTypeString); got != "utf8" {
		t.Errorf("fundamental gtype = %v", got)
	}
	if got := roundTrip(t, basic(types.KindGType), modeFlags); got != "Demo.Mode" {
		t.Errorf("descriptor gtype = %v", got)
	}
}

func TestStrings(t *testing.T) {
	h := newHeap(t)
	enc := NewEncoder(nil, nil)
	dec := NewDecoder(nil, nil)
	base := h.Live()

	utf := basic(types.KindUTF8)
	word, err := enc.Lower(utf, "héllo", Options{Transfer: types.TransferEverything}, h, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dec.Lift(utf, word, Options{Transfer: types.TransferNone}, h, nil)
	if err != nil || got != "héllo" {
		t.Fatalf("Lift none = %v, %v", got, err)
	}
	if h.Live() != base+1 {
		t.Errorf("transfer none freed the string")
	}
	if _, err := dec.Lift(utf, word, Options{Transfer: types.TransferEverything}, h, nil); err != nil {
		t.Fatal(err)
	}
	if h.Live() != base {
		t.Errorf("transfer everything leaked: %d live", h.Live()-base)
	}

	if _, err := enc.Lower(utf, string([]byte{0xff}), Options{}, h, nil, nil); !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("invalid utf8 = %v", err)
	}
	if _, err := enc.Lower(basic(types.KindFilename), string([]byte{0xff}), Options{Transfer: types.TransferEverything}, h, nil, nil); err != nil {
		t.Errorf("filename rejected raw bytes: %v", err)
	}
	if _, err := enc.Lower(utf, nil, Options{}, h, nil, nil); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("nil for non-nullable = %v", err)
	}
	if w, err := enc.Lower(utf, nil, Options{Nullable: true}, h, nil, nil); err != nil || w != 0 {
		t.Errorf("nil for nullable = %d, %v", w, err)
	}
	if v, _ := dec.Lift(utf, 0, Options{}, h, nil); v != nil {
		t.Errorf("NULL decoded to %v", v)
	}
}

func TestAllocationTracking(t *testing.T) {
	h := newHeap(t)
	enc := NewEncoder(nil, nil)
	base := h.Live()

	allocs := NewAllocationList()
	strv := arrayOf(basic(types.KindUTF8), types.LengthZeroTerminated)
	if _, err := enc.Lower(strv, []any{"a", "b"}, Options{}, h, allocs, nil); err != nil {
		t.Fatal(err)
	}
	if allocs.Count() != 3 {
		t.Errorf("tracked %d blocks, want 3", allocs.Count())
	}
	allocs.FreeAndRelease(h)
	if h.Live() != base {
		t.Errorf("leaked %d blocks", h.Live()-base)
	}

	allocs = NewAllocationList()
	if _, err := enc.Lower(strv, []any{"a", "b"}, Options{Transfer: types.TransferContainer}, h, allocs, nil); err != nil {
		t.Fatal(err)
	}
	if allocs.Count() != 2 {
		t.Errorf("container transfer tracked %d blocks, want 2 elements", allocs.Count())
	}
	allocs.FreeAndRelease(h)
}

func TestArrays(t *testing.T) {
	h := newHeap(t)
	enc := NewEncoder(nil, nil)
	dec := NewDecoder(nil, nil)
	base := h.Live()

	ints := arrayOf(basic(types.KindInt32), types.LengthParam)
	word, err := enc.Lower(ints, []any{1, 2, 3}, Options{Transfer: types.TransferEverything}, h, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, _ := Count([]any{1, 2, 3})
	got, err := dec.Lift(ints, word, Options{Transfer: types.TransferEverything, Length: n}, h, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []any{int32(1), int32(2), int32(3)}) {
		t.Errorf("array = %v", got)
	}

	word, _ = enc.Lower(ints, []int{}, Options{Transfer: types.TransferEverything}, h, nil, nil)
	if word == 0 {
		t.Fatal("empty array encoded as NULL")
	}
	got, _ = dec.Lift(ints, word, Options{Transfer: types.TransferEverything, Length: 0}, h, nil)
	if got == nil || len(got.([]any)) != 0 {
		t.Errorf("empty array decoded to %#v", got)
	}

	strv := arrayOf(basic(types.KindUTF8), types.LengthZeroTerminated)
	word, _ = enc.Lower(strv, []string{"x", "y"}, Options{Transfer: types.TransferEverything}, h, nil, nil)
	got, _ = dec.Lift(strv, word, Options{Transfer: types.TransferEverything}, h, nil)
	if !reflect.DeepEqual(got, []any{"x", "y"}) {
		t.Errorf("strv = %v", got)
	}

	fixed := arrayOf(basic(types.KindInt16), types.LengthFixed)
	fixed.Fixed = 3
	word, _ = enc.Lower(fixed, []any{7}, Options{Transfer: types.TransferEverything}, h, nil, nil)
	got, _ = dec.Lift(fixed, word, Options{Transfer: types.TransferEverything}, h, nil)
	if !reflect.DeepEqual(got, []any{int16(7), int16(0), int16(0)}) {
		t.Errorf("fixed = %v", got)
	}
	if _, err := enc.Lower(fixed, []any{1, 2, 3, 4}, Options{}, h, nil, nil); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("fixed overflow = %v", err)
	}

	bytesArr := arrayOf(basic(types.KindUint8), types.LengthParam)
	word, _ = enc.Lower(bytesArr, "abc", Options{Transfer: types.TransferEverything}, h, nil, nil)
	got, _ = dec.Lift(bytesArr, word, Options{Transfer: types.TransferEverything, Length: 3}, h, nil)
	if string(got.([]byte)) != "abc" {
		t.Errorf("byte array = %v", got)
	}

	if h.Live() != base {
		t.Errorf("leaked %d blocks", h.Live()-base)
	}

	if _, err := enc.Lower(ints, []any{1, "x"}, Options{}, h, nil, nil); err == nil {
		t.Error("expected element mismatch")
	} else if e, ok := err.(*errors.Error); !ok || len(e.Path) != 1 || e.Path[0] != "2" {
		t.Errorf("error path = %v", err)
	}
}

func TestArrayContainerTransfer(t *testing.T) {
	h := newHeap(t)
	enc := NewEncoder(nil, nil)
	dec := NewDecoder(nil, nil)
	base := h.Live()

	strv := arrayOf(basic(types.KindUTF8), types.LengthZeroTerminated)
	word, _ := enc.Lower(strv, []any{"a", "b"}, Options{Transfer: types.TransferEverything}, h, nil, nil)
	if _, err := dec.Lift(strv, word, Options{Transfer: types.TransferContainer}, h, nil); err != nil {
		t.Fatal(err)
	}
	if h.Live() != base+2 {
		t.Errorf("container transfer live = %d, want elements only (%d)", h.Live()-base, 2)
	}
}

func TestLists(t *testing.T) {
	h := newHeap(t)
	enc := NewEncoder(nil, nil)
	dec := NewDecoder(nil, nil)
	base := h.Live()

	cases := []struct {
		typ  *types.Type
		in   []any
		want []any
		name string
	}{
		{&types.Type{Kind: types.KindList, Elem: basic(types.KindInt32)}, []any{1, -2, 3}, []any{int32(1), int32(-2), int32(3)}, "glist int"},
		{&types.Type{Kind: types.KindSList, Elem: basic(types.KindUTF8)}, []any{"a", "b"}, []any{"a", "b"}, "gslist utf8"},
		{&types.Type{Kind: types.KindList, Elem: basic(types.KindDouble)}, []any{1.5, 2}, []any{1.5, 2.0}, "glist boxed double"},
		{&types.Type{Kind: types.KindList, Elem: basic(types.KindInt32)}, []any{}, []any{}, "empty"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			word, err := enc.Lower(tt.typ, tt.in, Options{Transfer: types.TransferEverything}, h, nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, err := dec.Lift(tt.typ, word, Options{Transfer: types.TransferEverything}, h, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
	if h.Live() != base {
		t.Errorf("leaked %d blocks", h.Live()-base)
	}
}

func TestHash(t *testing.T) {
	h := newHeap(t)
	enc := NewEncoder(nil, nil)
	dec := NewDecoder(nil, nil)
	base := h.Live()

	strInt := &types.Type{Kind: types.KindHash, Key: basic(types.KindUTF8), Value: basic(types.KindInt32)}
	word, err := enc.Lower(strInt, map[string]any{"a": 1, "b": 2}, Options{Transfer: types.TransferEverything}, h, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dec.Lift(strInt, word, Options{Transfer: types.TransferEverything}, h, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, map[string]any{"a": int32(1), "b": int32(2)}) {
		t.Errorf("hash = %v", got)
	}

	nullable := &types.Type{Kind: types.KindHash, Key: basic(types.KindInt32), Value: basic(types.KindUTF8), ValueNullable: true}
	word, err = enc.Lower(nullable, map[any]any{1: "one", 2: nil}, Options{Transfer: types.TransferEverything}, h, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _ = dec.Lift(nullable, word, Options{Transfer: types.TransferEverything}, h, nil)
	m := got.(map[any]any)
	if len(m) != 2 || m[int32(1)] != "one" {
		t.Errorf("hash = %v", m)
	}
	if v, ok := m[int32(2)]; !ok || v != nil {
		t.Errorf("nil entry = %v, %v; want present nil", v, ok)
	}

	if h.Live() != base {
		t.Errorf("leaked %d blocks", h.Live()-base)
	}
	if _, err := enc.Lower(strInt, []any{1}, Options{}, h, nil, nil); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("sequence as hash = %v", err)
	}
}

func TestGValue(t *testing.T) {
	h := newHeap(t)
	enc := NewEncoder(lookup, nil)
	dec := NewDecoder(lookup, nil)
	base := h.Live()
	vt := basic(types.KindValue)

	cases := []struct {
		in   any
		name string
		want any
	}{
		{NewGValue(basic(types.KindInt32), -5), "int", int32(-5)},
		{NewGValue(basic(types.KindUTF8), "text"), "string", "text"},
		{NewGValue(basic(types.KindDouble), 2.5), "double", 2.5},
		{NewGValue(colorEnum, "dark-blue"), "enum", "dark_blue"},
		{true, "inferred bool", true},
		{int64(1) << 40, "inferred int64", int64(1) << 40},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			word, err := enc.Lower(vt, tt.in, Options{Transfer: types.TransferEverything}, h, nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, err := dec.Lift(vt, word, Options{Transfer: types.TransferEverything}, h, nil)
			if err != nil {
				t.Fatal(err)
			}
			if gv := got.(*GValue); gv.Get() != tt.want {
				t.Errorf("payload = %v (%T), want %v", gv.Get(), gv.Get(), tt.want)
			}
		})
	}

	vv := variant.MustNew("(si)", []any{"a", 1})
	word, _ := enc.Lower(vt, NewGValue(VariantType(), vv), Options{Transfer: types.TransferEverything}, h, nil, nil)
	got, _ := dec.Lift(vt, word, Options{Transfer: types.TransferEverything}, h, nil)
	if back, ok := got.(*GValue).Get().(*variant.Value); !ok || !back.Equal(vv) {
		t.Errorf("variant payload = %v", got.(*GValue).Get())
	}

	word, _ = enc.Lower(vt, &GValue{}, Options{Transfer: types.TransferEverything}, h, nil, nil)
	got, _ = dec.Lift(vt, word, Options{Transfer: types.TransferEverything}, h, nil)
	if gv := got.(*GValue); gv.Type() != nil || gv.Get() != nil {
		t.Errorf("unset value = %v / %v", gv.Type(), gv.Get())
	}

	if h.Live() != base {
		t.Errorf("leaked %d blocks", h.Live()-base)
	}
}

func TestGValueTagging(t *testing.T) {
	g := NewGValue(basic(types.KindInt32), 5)
	g.Set(nil)
	if g.Type() == nil || g.Type().Kind != types.KindInt32 {
		t.Error("Set(nil) dropped the type")
	}
	g.Set(7)
	g.SetType(basic(types.KindInt32))
	if g.Get() != 7 {
		t.Error("re-assigning the same tag cleared the payload")
	}
	g.SetType(basic(types.KindUTF8))
	if g.Get() != nil {
		t.Error("new tag kept the payload")
	}
}

func TestVariantAndError(t *testing.T) {
	h := newHeap(t)
	enc := NewEncoder(nil, nil)
	dec := NewDecoder(nil, nil)
	base := h.Live()

	vv := variant.MustNew("a{sd}", map[string]any{"PI": 3.14})
	vtype := basic(types.KindVariant)
	word, err := enc.Lower(vtype, vv, Options{Transfer: types.TransferEverything}, h, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dec.Lift(vtype, word, Options{Transfer: types.TransferEverything}, h, nil)
	if err != nil || !got.(*variant.Value).Equal(vv) {
		t.Errorf("variant = %v, %v", got, err)
	}

	ptr, _ := native.NewError(h, 3, 42, "boom")
	got, err = dec.Lift(basic(types.KindError), uint64(ptr), Options{Transfer: types.TransferEverything}, h, nil)
	if err != nil {
		t.Fatal(err)
	}
	ne := got.(*NativeError)
	if ne.Code != 42 || ne.Domain != 3 || ne.Message != "boom" {
		t.Errorf("error = %+v", ne)
	}
	if !errors.IsKind(ne.Err(), errors.KindNativeFailure) {
		t.Error("Err() is not a native failure")
	}

	if h.Live() != base {
		t.Errorf("leaked %d blocks", h.Live()-base)
	}
}

type recordRef struct{ addr uint32 }

type testHost struct{}

func (testHost) Wrap(_ *types.Type, addr uint32, _ types.Transfer) (any, error) {
	return recordRef{addr: addr}, nil
}

func (testHost) Unwrap(t *types.Type, v any, _ types.Transfer) (uint32, error) {
	r, ok := v.(recordRef)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, nil, typeName(v), t.String())
	}
	return r.addr, nil
}

func TestInstancesThroughHost(t *testing.T) {
	h := newHeap(t)
	point := &types.Type{Kind: types.KindStruct, Name: "Demo.Point", Size: 8, Align: 4, LengthParam: -1}
	enc := NewEncoder(nil, testHost{})
	dec := NewDecoder(nil, testHost{})

	word, err := enc.Lower(point, recordRef{addr: 64}, Options{}, h, nil, nil)
	if err != nil || word != 64 {
		t.Fatalf("Lower = %d, %v", word, err)
	}
	got, _ := dec.Lift(point, 64, Options{}, h, nil)
	if got != (recordRef{addr: 64}) {
		t.Errorf("Lift = %v", got)
	}
	if _, err := enc.Lower(point, 5, Options{}, h, nil, nil); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("non-record = %v", err)
	}
	if _, err := NewEncoder(nil, nil).Lower(point, recordRef{}, Options{}, h, nil, nil); !errors.IsKind(err, errors.KindNotInitialized) {
		t.Errorf("missing host = %v", err)
	}
}

func TestLength(t *testing.T) {
	h := newHeap(t)
	enc := NewEncoder(nil, nil)
	dec := NewDecoder(nil, nil)

	slot, err := h.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Free(slot, 0, 0)

	kinds := []types.Kind{
		types.KindInt8, types.KindUint8, types.KindInt16, types.KindUint16,
		types.KindInt32, types.KindUint32, types.KindInt64, types.KindUint64,
	}
	for _, k := range kinds {
		t.Run(k.String(), func(t *testing.T) {
			lt := basic(k)
			if err := enc.Store(lt, slot, 7, Options{}, h, nil, nil); err != nil {
				t.Fatal(err)
			}
			v, err := dec.Load(lt, slot, Options{}, h, nil)
			if err != nil {
				t.Fatal(err)
			}
			if n := Length(v); n != 7 {
				t.Errorf("Length(%T %v) = %d, want 7", v, v, n)
			}
		})
	}

	for _, v := range []any{int32(-1), uint64(math.MaxUint64), 2.0, "3", nil} {
		if n := Length(v); n != -1 {
			t.Errorf("Length(%#v) = %d, want -1", v, n)
		}
	}
}
