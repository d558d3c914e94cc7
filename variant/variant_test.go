package variant

import (
	"math"
	"testing"

	"github.com/wippyai/gi-bridge/errors"
)

func TestParse(t *testing.T) {
	valid := []struct {
		in        string
		align     int
		fixedSize int
	}{
		{"b", 1, 1},
		{"n", 2, 2},
		{"x", 8, 8},
		{"s", 1, 0},
		{"v", 8, 0},
		{"ai", 4, 0},
		{"mi", 4, 0},
		{"()", 1, 1},
		{"(yi)", 4, 8},
		{"(iy)", 4, 8},
		{"(ti)", 8, 16},
		{"{sv}", 8, 0},
		{"a{sd}", 8, 0},
		{"(mii)", 4, 0},
		{"aa{s(ii)}", 4, 0},
	}
	for _, tt := range valid {
		t.Run(tt.in, func(t *testing.T) {
			typ, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if typ.String() != tt.in {
				t.Errorf("String() = %q", typ.String())
			}
			if typ.Alignment() != tt.align {
				t.Errorf("Alignment() = %d, want %d", typ.Alignment(), tt.align)
			}
			if typ.FixedSize() != tt.fixedSize {
				t.Errorf("FixedSize() = %d, want %d", typ.FixedSize(), tt.fixedSize)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	invalid := []struct {
		in   string
		name string
	}{
		{"", "empty"},
		{"(ii", "unclosed tuple"},
		{"ii)", "trailing"},
		{")", "stray close"},
		{"{}", "empty dict entry"},
		{"{s}", "dict entry without value"},
		{"{vs}", "non-basic key"},
		{"{(i)s}", "tuple key"},
		{"{sii}", "three types"},
		{"{si", "unclosed dict entry"},
		{"z", "unknown letter"},
		{"a", "array without element"},
		{"m", "maybe without element"},
		{"ii", "two complete types"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if !errors.IsKind(err, errors.KindInvalidVariantType) {
				t.Fatalf("Parse(%q) = %v, want invalid variant type", tt.in, err)
			}
		})
	}
}

func TestParse_Depth(t *testing.T) {
	deep := ""
	for i := 0; i < maxDepth+2; i++ {
		deep += "a"
	}
	if _, err := Parse(deep + "i"); err == nil {
		t.Error("expected nesting error")
	}
}

func TestNew_MaybeTuple(t *testing.T) {
	v, err := New("(mii)", []any{nil, 1})
	if err != nil {
		t.Fatal(err)
	}
	if v.TypeString() != "(mii)" {
		t.Errorf("type = %q", v.TypeString())
	}
	if v.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", v.Len())
	}
	if v.At(1).Len() != 0 {
		t.Errorf("absent maybe Len() = %d, want 0", v.At(1).Len())
	}
	if got := v.At(2).Value(); got != int32(1) {
		t.Errorf("At(2) = %v", got)
	}
	if v.At(0) != nil || v.At(3) != nil {
		t.Error("out of range index should yield nil")
	}

	proj := v.Value().([]any)
	if len(proj) != 2 || proj[0] != nil || proj[1] != int32(1) {
		t.Errorf("Value() = %v", proj)
	}
}

func TestNew_Dict(t *testing.T) {
	v, err := New("a{sd}", map[string]any{"PI": 3.14})
	if err != nil {
		t.Fatal(err)
	}
	back, err := FromBytes("a{sd}", v.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(v) {
		t.Errorf("round trip mismatch: %s vs %s", back, v)
	}
	m := back.Value().(map[string]any)
	if m["PI"] != 3.14 {
		t.Errorf("projection = %v", m)
	}
}

func TestNew_ArrayOfMaybe(t *testing.T) {
	v, err := New("ams", Array{N: 4, Items: []any{"a", nil, "c"}})
	if err != nil {
		t.Fatal(err)
	}
	if v.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", v.Len())
	}
	if v.At(2).Len() != 0 || v.At(4).Len() != 0 {
		t.Error("expected absent slots at 2 and 4")
	}

	truncated, err := New("ams", Array{N: 1, Items: []any{"a", "b"}})
	if err != nil {
		t.Fatal(err)
	}
	if truncated.Len() != 1 {
		t.Errorf("N should truncate: Len() = %d", truncated.Len())
	}

	implicit := MustNew("ams", Array{Items: []any{"a", nil}})
	if implicit.Len() != 2 {
		t.Errorf("N=0 should use len(Items): Len() = %d", implicit.Len())
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		host any
		name string
		typ  string
		kind errors.Kind
	}{
		{"x", "string as int", "i", errors.KindTypeMismatch},
		{40000, "int16 overflow", "n", errors.KindTypeMismatch},
		{1, "bool from int", "b", errors.KindTypeMismatch},
		{[]any{1, 2, 3}, "tuple too long", "(ii)", errors.KindTypeMismatch},
		{[]any{1}, "missing non-maybe", "(ii)", errors.KindTypeMismatch},
		{"a/b", "bad object path", "o", errors.KindInvalidData},
		{"(i", "bad signature", "g", errors.KindInvalidVariantType},
		{42, "variant needs value", "v", errors.KindTypeMismatch},
		{map[string]any{"a": 1}, "map for plain array", "ai", errors.KindTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.typ, tt.host)
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("New(%q, %v) = %v, want %s", tt.typ, tt.host, err, tt.kind)
			}
		})
	}

	if _, err := New("y", 256); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("y overflow = %v", err)
	}
	if v, err := New("y", 1.9); err != nil || v.Value() != uint8(1) {
		t.Errorf("float truncation = %v, %v", v, err)
	}
}

func TestRoundTrip(t *testing.T) {
	inner := MustNew("(si)", []any{"inner", 7})
	cases := []struct {
		host any
		typ  string
	}{
		{true, "b"},
		{200, "y"},
		{-300, "n"},
		{60000, "q"},
		{-5, "i"},
		{4000000000, "u"},
		{int64(math.MinInt64), "x"},
		{uint64(math.MaxUint64), "t"},
		{3, "h"},
		{-2.5, "d"},
		{"hello", "s"},
		{"/org/demo/Obj1", "o"},
		{"a{sv}", "g"},
		{inner, "v"},
		{nil, "ms"},
		{"x", "ms"},
		{7, "mi"},
		{[]any{}, "as"},
		{[]any{"a", "bb", ""}, "as"},
		{[]any{1, 2, 3}, "ai"},
		{[]byte("raw\x00bytes"), "ay"},
		{[]any{}, "()"},
		{[]any{1, "two", 3.0}, "(isd)"},
		{[]any{uint8(1), int32(2)}, "(yi)"},
		{[]any{[]any{"a", 1}, []any{"b", nil}}, "a(smi)"},
		{map[string]any{"a": inner, "b": MustNew("i", 2)}, "a{sv}"},
		{map[any]any{int32(1): "one", int32(2): "two"}, "a{is}"},
		{[]any{[]any{"x"}, []any{}, []any{"y", "z"}}, "aas"},
		{Array{N: 3, Items: []any{nil, "m"}}, "ams"},
	}
	for _, tt := range cases {
		t.Run(tt.typ, func(t *testing.T) {
			v, err := New(tt.typ, tt.host)
			if err != nil {
				t.Fatalf("New(%q): %v", tt.typ, err)
			}
			back, err := FromBytes(tt.typ, v.Bytes())
			if err != nil {
				t.Fatalf("FromBytes(%q): %v", tt.typ, err)
			}
			if !back.Equal(v) {
				t.Errorf("round trip mismatch: %s vs %s", back, v)
			}
		})
	}
}

func TestSerialize_NormalForm(t *testing.T) {
	tests := []struct {
		v    *Value
		name string
		want []byte
	}{
		{MustNew("i", 1), "int32", []byte{1, 0, 0, 0}},
		{MustNew("s", "hi"), "string", []byte{'h', 'i', 0}},
		{MustNew("(yi)", []any{1, 2}), "padded tuple", []byte{1, 0, 0, 0, 2, 0, 0, 0}},
		{MustNew("as", []any{"a", "b"}), "string array", []byte{'a', 0, 'b', 0, 2, 4}},
		{MustNew("(si)", []any{"a", 1}), "variable tuple", []byte{'a', 0, 0, 0, 1, 0, 0, 0, 2}},
		{MustNew("(ss)", []any{"a", "b"}), "framed tuple", []byte{'a', 0, 'b', 0, 2}},
		{MustNew("ms", "a"), "just string", []byte{'a', 0, 0}},
		{MustNew("v", MustNew("y", 5)), "variant", []byte{5, 0, 'y'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.Bytes()
			if string(got) != string(tt.want) {
				t.Errorf("Bytes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromBytes_Corrupt(t *testing.T) {
	tests := []struct {
		typ  string
		name string
		data []byte
	}{
		{"i", "short int", []byte{1, 2}},
		{"s", "unterminated", []byte{'a'}},
		{"as", "bad offset", []byte{'a', 0, 9}},
		{"ai", "ragged", []byte{1, 0, 0}},
		{"v", "no separator", []byte{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromBytes(tt.typ, tt.data); err == nil {
				t.Errorf("FromBytes(%q, %v) succeeded", tt.typ, tt.data)
			}
		})
	}
}

func TestProjection(t *testing.T) {
	v := MustNew("(ay{sb}a{ys})", []any{"ab", []any{"k", true}, map[any]any{1: "one"}})
	proj := v.Value().([]any)
	if string(proj[0].([]byte)) != "ab" {
		t.Errorf("ay = %v", proj[0])
	}
	entry := proj[1].([]any)
	if entry[0] != "k" || entry[1] != true {
		t.Errorf("dict entry = %v", entry)
	}
	m := proj[2].(map[any]any)
	if m[uint8(1)] != "one" {
		t.Errorf("byte-keyed dict = %v", m)
	}

	boxed := MustNew("v", MustNew("s", "x"))
	if inner, ok := boxed.Value().(*Value); !ok || inner.Value() != "x" {
		t.Errorf("boxed projection = %v", boxed.Value())
	}
	if MustNew("i", 3).Len() != 0 {
		t.Error("basic value has children")
	}
}

func TestString(t *testing.T) {
	v := MustNew("(sa{si}mi)", []any{"x", map[string]any{"a": 1}, nil})
	if got := v.String(); got != `("x", {"a": 1}, nothing)` {
		t.Errorf("String() = %s", got)
	}
	if got := MustNew("(i)", []any{1}).String(); got != "(1,)" {
		t.Errorf("1-tuple String() = %s", got)
	}
}

func TestEqual(t *testing.T) {
	a := MustNew("ai", []any{1, 2})
	b := MustNew("ai", []any{1, 2})
	c := MustNew("an", []any{1, 2})
	if !a.Equal(b) {
		t.Error("equal arrays differ")
	}
	if a.Equal(c) {
		t.Error("different types compare equal")
	}
	nan := MustNew("d", math.NaN())
	if !nan.Equal(MustNew("d", math.NaN())) {
		t.Error("NaN should equal itself structurally")
	}
}
