package native

import (
	gibridge "github.com/wippyai/gi-bridge"
	"github.com/wippyai/gi-bridge/types"
)

// GValue field offsets.
const (
	valueType = 0
	valueData = 8
)

// ReadValue returns the type tag and payload of a GValue.
func ReadValue(mem gibridge.Memory, addr uint32) (gtype uint32, data uint64, err error) {
	if gtype, err = mem.ReadU32(addr + valueType); err != nil {
		return 0, 0, err
	}
	if data, err = mem.ReadU64(addr + valueData); err != nil {
		return 0, 0, err
	}
	return gtype, data, nil
}

// WriteValue stores a type tag and payload into a GValue.
func WriteValue(mem gibridge.Memory, addr uint32, gtype uint32, data uint64) error {
	if err := mem.WriteU32(addr+valueType, gtype); err != nil {
		return err
	}
	if err := mem.WriteU32(addr+valueType+4, 0); err != nil {
		return err
	}
	return mem.WriteU64(addr+valueData, data)
}

// ValueOwnsPayload reports whether a GValue of this type owns its payload
// block.
func ValueOwnsPayload(gtype uint32) bool {
	return gtype == types.GTypeString || gtype == types.GTypeVariant
}

// ValueUnset releases whatever the GValue owns and clears it.
func ValueUnset(h gibridge.Heap, addr uint32) error {
	gtype, data, err := ReadValue(h, addr)
	if err != nil {
		return err
	}
	switch gtype {
	case types.GTypeString:
		h.Free(uint32(data), 0, 0)
	case types.GTypeVariant:
		FreeVariantBlock(h, uint32(data))
	}
	return WriteValue(h, addr, 0, 0)
}

// ValueCopy deep-copies src into dst, which must be unset.
func ValueCopy(h gibridge.Heap, dst, src uint32) error {
	gtype, data, err := ReadValue(h, src)
	if err != nil {
		return err
	}
	switch gtype {
	case types.GTypeString:
		p, err := Strdup(h, uint32(data))
		if err != nil {
			return err
		}
		data = uint64(p)
	case types.GTypeVariant:
		p, err := CopyVariantBlock(h, uint32(data))
		if err != nil {
			return err
		}
		data = uint64(p)
	}
	return WriteValue(h, dst, gtype, data)
}

// NewValue allocates an unset GValue.
func NewValue(h gibridge.Heap) (uint32, error) {
	return h.Alloc(types.ValueSize, types.ValueAlign)
}

// FreeValue unsets and frees a GValue.
func FreeValue(h gibridge.Heap, addr uint32) {
	if addr == 0 {
		return
	}
	_ = ValueUnset(h, addr)
	h.Free(addr, types.ValueSize, types.ValueAlign)
}
