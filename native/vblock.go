package native

import (
	gibridge "github.com/wippyai/gi-bridge"
	"github.com/wippyai/gi-bridge/types"
)

// Variant block field offsets.
const (
	vbType = 0
	vbData = 4
	vbSize = 8
)

// NewVariantBlock stores a serialized variant: its type string and bytes.
func NewVariantBlock(h gibridge.Heap, typeString string, data []byte) (uint32, error) {
	blk, err := h.Alloc(types.VariantBlockSize, 4)
	if err != nil {
		return 0, err
	}
	ts, err := NewCString(h, typeString)
	if err != nil {
		h.Free(blk, 0, 0)
		return 0, err
	}
	var buf uint32
	if len(data) > 0 {
		if buf, err = h.Alloc(uint32(len(data)), 8); err != nil {
			h.Free(ts, 0, 0)
			h.Free(blk, 0, 0)
			return 0, err
		}
		if err := h.Write(buf, data); err != nil {
			return 0, err
		}
	}
	if err := h.WriteU32(blk+vbType, ts); err != nil {
		return 0, err
	}
	if err := h.WriteU32(blk+vbData, buf); err != nil {
		return 0, err
	}
	if err := h.WriteU32(blk+vbSize, uint32(len(data))); err != nil {
		return 0, err
	}
	return blk, nil
}

// ReadVariantBlock returns a copy of the block's type string and bytes.
func ReadVariantBlock(mem gibridge.Memory, blk uint32) (string, []byte, error) {
	ts, err := mem.ReadU32(blk + vbType)
	if err != nil {
		return "", nil, err
	}
	buf, err := mem.ReadU32(blk + vbData)
	if err != nil {
		return "", nil, err
	}
	size, err := mem.ReadU32(blk + vbSize)
	if err != nil {
		return "", nil, err
	}
	typeString, err := ReadCString(mem, ts)
	if err != nil {
		return "", nil, err
	}
	if size == 0 {
		return typeString, nil, nil
	}
	view, err := mem.Read(buf, size)
	if err != nil {
		return "", nil, err
	}
	return typeString, append([]byte(nil), view...), nil
}

// CopyVariantBlock duplicates a variant block.
func CopyVariantBlock(h gibridge.Heap, blk uint32) (uint32, error) {
	if blk == 0 {
		return 0, nil
	}
	ts, data, err := ReadVariantBlock(h, blk)
	if err != nil {
		return 0, err
	}
	return NewVariantBlock(h, ts, data)
}

// FreeVariantBlock frees a block and everything it owns.
func FreeVariantBlock(h gibridge.Heap, blk uint32) {
	if blk == 0 {
		return
	}
	if ts, err := h.ReadU32(blk + vbType); err == nil {
		h.Free(ts, 0, 0)
	}
	if buf, err := h.ReadU32(blk + vbData); err == nil {
		h.Free(buf, 0, 0)
	}
	h.Free(blk, types.VariantBlockSize, 4)
}
