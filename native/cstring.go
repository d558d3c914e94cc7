package native

import (
	"bytes"

	gibridge "github.com/wippyai/gi-bridge"
	"github.com/wippyai/gi-bridge/errors"
)

// Safety limits for walking native data.
const (
	MaxStringSize = 16 * 1024 * 1024
	MaxListLength = 1 << 24
)

const scanChunk = 256

// NewCString copies s into a fresh NUL-terminated block.
func NewCString(h gibridge.Heap, s string) (uint32, error) {
	if len(s) > MaxStringSize {
		return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Detail("string size %d exceeds maximum %d", len(s), MaxStringSize).
			Build()
	}
	size := uint32(len(s)) + 1
	ptr, err := h.Alloc(size, 1)
	if err != nil {
		return 0, err
	}
	if len(s) > 0 {
		if err := h.Write(ptr, []byte(s)); err != nil {
			h.Free(ptr, size, 1)
			return 0, err
		}
	}
	return ptr, nil
}

// ReadCString reads a NUL-terminated string.
func ReadCString(mem gibridge.Memory, addr uint32) (string, error) {
	if addr == 0 {
		return "", errors.InvalidData(errors.PhaseDecode, nil, "NULL string")
	}
	var out []byte
	for off := addr; ; off += scanChunk {
		chunk, err := readUpTo(mem, off, scanChunk)
		if err != nil {
			return "", err
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			return string(append(out, chunk[:i]...)), nil
		}
		out = append(out, chunk...)
		if len(out) > MaxStringSize {
			return "", errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Detail("string at 0x%x exceeds maximum %d", addr, MaxStringSize).
				Build()
		}
	}
}

// readUpTo reads n bytes or as many as remain before the end of memory.
func readUpTo(mem gibridge.Memory, off, n uint32) ([]byte, error) {
	if sizer, ok := mem.(gibridge.MemorySizer); ok {
		size := sizer.Size()
		if off >= size {
			return nil, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
				Detail("unterminated string at 0x%x", off).
				Build()
		}
		if size-off < n {
			n = size - off
		}
	}
	return mem.Read(off, n)
}

// Strdup duplicates the string at addr.
func Strdup(h gibridge.Heap, addr uint32) (uint32, error) {
	if addr == 0 {
		return 0, nil
	}
	s, err := ReadCString(h, addr)
	if err != nil {
		return 0, err
	}
	return NewCString(h, s)
}

// NewStrv builds a NULL-terminated char** whose strings are owned by it.
func NewStrv(h gibridge.Heap, items []string) (uint32, error) {
	arr, err := h.Alloc(uint32(len(items)+1)*4, 4)
	if err != nil {
		return 0, err
	}
	for i, s := range items {
		p, err := NewCString(h, s)
		if err != nil {
			FreeStrv(h, arr)
			return 0, err
		}
		if err := h.WriteU32(arr+uint32(i)*4, p); err != nil {
			h.Free(p, 0, 0)
			FreeStrv(h, arr)
			return 0, err
		}
	}
	return arr, nil
}

// ReadStrv reads a NULL-terminated char**.
func ReadStrv(mem gibridge.Memory, addr uint32) ([]string, error) {
	if addr == 0 {
		return nil, nil
	}
	var out []string
	for i := uint32(0); ; i++ {
		if i > MaxListLength {
			return nil, errors.InvalidData(errors.PhaseDecode, nil, "unterminated string vector")
		}
		p, err := mem.ReadU32(addr + i*4)
		if err != nil {
			return nil, err
		}
		if p == 0 {
			return out, nil
		}
		s, err := ReadCString(mem, p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

// FreeStrv frees a char** and every string in it.
func FreeStrv(h gibridge.Heap, addr uint32) {
	if addr == 0 {
		return
	}
	for i := uint32(0); i <= MaxListLength; i++ {
		p, err := h.ReadU32(addr + i*4)
		if err != nil || p == 0 {
			break
		}
		h.Free(p, 0, 0)
	}
	h.Free(addr, 0, 0)
}
