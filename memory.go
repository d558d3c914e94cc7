package gibridge

// Memory represents the native heap as seen by the marshaling layers.
// All addresses are 32-bit and address 0 is NULL.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of the native heap in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates blocks in the native heap.
// Free accepts size and align of zero when the caller does not know the
// block geometry; the allocator tracks it.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// Heap is a Memory with an Allocator, the view native helpers work on.
type Heap interface {
	Memory
	Allocator
}
