package types

import "testing"

func TestComputeLayout(t *testing.T) {
	point := &Type{Kind: KindStruct, Name: "T.Point", Fields: []*Field{
		{Name: "x", Type: Basic(KindInt32)},
		{Name: "y", Type: Basic(KindInt32)},
	}}
	ComputeLayout(point)
	if point.Size != 8 || point.Align != 4 {
		t.Fatalf("Point size/align = %d/%d", point.Size, point.Align)
	}

	tests := []struct {
		name   string
		fields []*Field
		size   uint32
		align  uint32
		offs   []uint32
	}{
		{
			name:   "padding before int32",
			fields: []*Field{{Name: "a", Type: Basic(KindInt8)}, {Name: "b", Type: Basic(KindInt32)}},
			size:   8, align: 4, offs: []uint32{0, 4},
		},
		{
			name:   "int64 alignment",
			fields: []*Field{{Name: "a", Type: Basic(KindBool)}, {Name: "b", Type: Basic(KindDouble)}, {Name: "c", Type: Basic(KindInt16)}},
			size:   24, align: 8, offs: []uint32{0, 8, 16},
		},
		{
			name: "inline and pointer struct",
			fields: []*Field{
				{Name: "origin", Type: point},
				{Name: "ref", Type: point, Pointer: true},
				{Name: "name", Type: Basic(KindUTF8)},
			},
			size: 16, align: 4, offs: []uint32{0, 8, 12},
		},
		{
			name: "fixed array",
			fields: []*Field{
				{Name: "tag", Type: Basic(KindUint8)},
				{Name: "v", Type: &Type{Kind: KindArray, Elem: Basic(KindInt16), Length: LengthFixed, Fixed: 3}},
			},
			size: 8, align: 2, offs: []uint32{0, 2},
		},
		{
			name:   "empty",
			fields: nil,
			size:   0, align: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &Type{Kind: KindStruct, Fields: tt.fields}
			ComputeLayout(st)
			if st.Size != tt.size || st.Align != tt.align {
				t.Errorf("size/align = %d/%d, want %d/%d", st.Size, st.Align, tt.size, tt.align)
			}
			for i, off := range tt.offs {
				if st.Fields[i].Offset != off {
					t.Errorf("field %s offset = %d, want %d", st.Fields[i].Name, st.Fields[i].Offset, off)
				}
			}
		})
	}
}

func TestKindHelpers(t *testing.T) {
	if !KindInt8.IsSigned() || KindUint8.IsSigned() {
		t.Error("IsSigned wrong for 8-bit kinds")
	}
	if KindInt16.Bits() != 16 || KindUint64.Bits() != 64 {
		t.Error("Bits wrong")
	}
	if !KindStruct.IsNamed() || KindArray.IsNamed() {
		t.Error("IsNamed wrong")
	}
	for _, k := range []Kind{KindBool, KindInt8, KindUint8, KindInt32, KindUint32, KindInt64, KindUint64, KindFloat, KindDouble, KindUTF8, KindVariant} {
		back, ok := KindForGType(k.FundamentalGType())
		if !ok {
			t.Errorf("%s: no kind for gtype %d", k, k.FundamentalGType())
			continue
		}
		if back.FundamentalGType() != k.FundamentalGType() {
			t.Errorf("%s round-tripped to %s", k, back)
		}
	}
}

func TestFlagSet(t *testing.T) {
	mode := &Type{Kind: KindFlags, Name: "T.Mode", Values: []EnumValue{
		{Name: "read", Value: 1},
		{Name: "write", Value: 2},
		{Name: "read_write", Value: 3},
		{Name: "none", Value: 0},
	}}

	f := FlagSet{Type: mode, Bits: 1}
	if !f.Has("read") || f.Has("write") || f.Has("read-write") {
		t.Errorf("Has wrong for %v", f)
	}
	if f.Has("none") || f.Has("missing") {
		t.Error("zero or unknown member should never test true")
	}

	all := FlagSet{Type: mode, Bits: 3}
	if got := all.String(); got != "read|write|read_write" {
		t.Errorf("String() = %q", got)
	}
}

func TestSymbolInheritance(t *testing.T) {
	base := &Type{Kind: KindFundamental, Name: "T.Base", Symbols: map[string]string{"ref": "base_ref", "unref": "base_unref"}}
	mid := &Type{Kind: KindFundamental, Name: "T.Mid", Parent: base}
	leaf := &Type{Kind: KindFundamental, Name: "T.Leaf", Parent: mid, Symbols: map[string]string{"ref": "leaf_ref"}}

	sym, owner, ok := leaf.Symbol("ref")
	if !ok || sym != "leaf_ref" || owner != leaf {
		t.Errorf("leaf ref = %q from %v", sym, owner)
	}
	sym, owner, _ = leaf.Symbol("unref")
	if sym != "base_unref" || owner != base {
		t.Errorf("leaf unref = %q from %v", sym, owner)
	}
	if _, _, ok := mid.Symbol("copy"); ok {
		t.Error("undeclared symbol found")
	}
	if !leaf.IsA(base) || base.IsA(leaf) {
		t.Error("IsA wrong")
	}
}

func TestParseModes(t *testing.T) {
	if ParseTransfer("full") != TransferEverything || ParseTransfer("") != TransferNone || ParseTransfer("container") != TransferContainer {
		t.Error("ParseTransfer")
	}
	if TransferContainer.Elements() != TransferNone || TransferEverything.Elements() != TransferEverything {
		t.Error("Elements")
	}
	if ParseDirection("inout") != DirInOut || !DirInOut.IsIn() || !DirInOut.IsOut() || DirOut.IsIn() {
		t.Error("Direction")
	}
	if ParseScope("notified") != ScopeNotified || ParseScope("") != ScopeCall {
		t.Error("ParseScope")
	}
}

func TestFoldName(t *testing.T) {
	if FoldName("Nick_Name") != FoldName("nick-name") {
		t.Error("folding should equate case and separators")
	}
	st := &Type{Fields: []*Field{{Name: "line_width", Type: Basic(KindInt32)}}}
	if _, ok := st.Field("line-width"); !ok {
		t.Error("Field lookup should fold names")
	}
}

func TestCallableHidden(t *testing.T) {
	cb := &Type{Kind: KindCallback, Name: "T.Func"}
	arr := &Type{Kind: KindArray, Elem: Basic(KindInt32), Length: LengthParam, LengthParam: 1}
	p := func(name string, t *Type) *Param {
		return &Param{Name: name, Type: t, Closure: -1, Destroy: -1}
	}

	fn := p("fn", cb)
	fn.Closure, fn.Destroy = 3, 4
	data := p("data", Basic(KindPointer))
	user := p("user_data", Basic(KindPointer))
	user.Closure = 1

	tests := []struct {
		name   string
		params []*Param
		want   []bool
	}{
		{"plain", []*Param{p("a", Basic(KindInt32)), p("b", Basic(KindInt32))}, []bool{false, false}},
		{"array length", []*Param{p("values", arr), p("n", Basic(KindInt32))}, []bool{false, true}},
		{"callback", []*Param{p("x", Basic(KindInt32)), p("y", Basic(KindInt32)), fn, data, p("destroy", cb)}, []bool{false, false, false, true, true}},
		{"user data of a signature", []*Param{p("value", Basic(KindInt32)), user}, []bool{false, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Callable{Name: "T.f", Params: tt.params}
			got := c.Hidden()
			if len(got) != len(tt.want) {
				t.Fatalf("Hidden() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Hidden()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
