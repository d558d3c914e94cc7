package native

import (
	gibridge "github.com/wippyai/gi-bridge"
	"github.com/wippyai/gi-bridge/types"
)

// GError field offsets.
const (
	errDomain  = 0
	errCode    = 4
	errMessage = 8
)

// NewError allocates a GError with its own message string.
func NewError(h gibridge.Heap, domain uint32, code int32, message string) (uint32, error) {
	ptr, err := h.Alloc(types.ErrorSize, 4)
	if err != nil {
		return 0, err
	}
	msg, err := NewCString(h, message)
	if err != nil {
		h.Free(ptr, 0, 0)
		return 0, err
	}
	if err := h.WriteU32(ptr+errDomain, domain); err != nil {
		return 0, err
	}
	if err := h.WriteU32(ptr+errCode, uint32(code)); err != nil {
		return 0, err
	}
	if err := h.WriteU32(ptr+errMessage, msg); err != nil {
		return 0, err
	}
	return ptr, nil
}

// ReadError reads a GError.
func ReadError(mem gibridge.Memory, ptr uint32) (domain uint32, code int32, message string, err error) {
	if domain, err = mem.ReadU32(ptr + errDomain); err != nil {
		return 0, 0, "", err
	}
	c, err := mem.ReadU32(ptr + errCode)
	if err != nil {
		return 0, 0, "", err
	}
	msg, err := mem.ReadU32(ptr + errMessage)
	if err != nil {
		return 0, 0, "", err
	}
	if msg != 0 {
		if message, err = ReadCString(mem, msg); err != nil {
			return 0, 0, "", err
		}
	}
	return domain, int32(c), message, nil
}

// FreeError frees a GError and its message.
func FreeError(h gibridge.Heap, ptr uint32) {
	if ptr == 0 {
		return
	}
	if msg, err := h.ReadU32(ptr + errMessage); err == nil {
		h.Free(msg, 0, 0)
	}
	h.Free(ptr, types.ErrorSize, 4)
}
