package types

// GValue and variant block geometry.
const (
	ValueSize        = 16
	ValueAlign       = 8
	VariantBlockSize = 12
	ErrorSize        = 12
	ListNodeSize     = 12
	SListNodeSize    = 8
	HashSize         = 16
)

// AlignTo rounds offset up to a multiple of align.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// ComputeLayout assigns field offsets and the size and alignment of a
// struct following C rules. Inline struct fields must already be laid out.
func ComputeLayout(t *Type) {
	offset := uint32(0)
	maxAlign := uint32(1)

	for _, f := range t.Fields {
		size, align := fieldGeometry(f)
		offset = AlignTo(offset, align)
		f.Offset = offset
		offset += size
		if align > maxAlign {
			maxAlign = align
		}
	}

	t.Align = maxAlign
	t.Size = AlignTo(offset, maxAlign)
}

func fieldGeometry(f *Field) (uint32, uint32) {
	ft := f.Type
	if ft.Kind == KindArray && ft.Length == LengthFixed && !f.Pointer {
		size := ft.Elem.SlotSize(ft.ElemByValue) * uint32(ft.Fixed)
		return size, ft.Elem.SlotAlign(ft.ElemByValue)
	}
	inline := f.Inline()
	return ft.SlotSize(inline), ft.SlotAlign(inline)
}
