package native

import (
	"sort"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/gi-bridge/errors"
	"go.uber.org/zap"
)

const (
	// heapBase keeps the first bytes unused so that 0 is never a valid block.
	heapBase     uint32 = 8
	minAlign     uint32 = 8
	wasmPageSize uint32 = 65536
)

type span struct {
	addr uint32
	size uint32
}

// Heap is the native heap: a wazero linear memory plus a first-fit
// allocator with block accounting. Freed blocks are coalesced; the bump
// pointer retreats when the topmost block is freed.
type Heap struct {
	mem    api.Memory
	blocks map[uint32]uint32
	free   []span
	top    uint32
	mu     sync.Mutex
}

// NewHeap wraps a linear memory.
func NewHeap(mem api.Memory) *Heap {
	return &Heap{
		mem:    mem,
		blocks: make(map[uint32]uint32),
		top:    heapBase,
	}
}

// Size returns the current memory size in bytes.
func (h *Heap) Size() uint32 {
	return h.mem.Size()
}

// Alloc returns a zeroed block of at least size bytes.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	if align < minAlign {
		align = minAlign
	}
	size = alignUp(size, minAlign)

	h.mu.Lock()
	defer h.mu.Unlock()

	addr, ok := h.takeFree(size, align)
	if !ok {
		start := alignUp(h.top, align)
		end := uint64(start) + uint64(size)
		if end > uint64(^uint32(0)) {
			return 0, errors.AllocationFailed(errors.PhaseCall, size, align)
		}
		if uint32(end) > h.mem.Size() {
			need := (uint32(end) - h.mem.Size() + wasmPageSize - 1) / wasmPageSize
			if _, grown := h.mem.Grow(need); !grown {
				return 0, errors.AllocationFailed(errors.PhaseCall, size, align)
			}
		}
		if start > h.top {
			h.insertFree(span{addr: h.top, size: start - h.top})
		}
		addr = start
		h.top = uint32(end)
	}

	if !h.mem.Write(addr, make([]byte, size)) {
		return 0, errors.AllocationFailed(errors.PhaseCall, size, align)
	}
	h.blocks[addr] = size
	return addr, nil
}

// Free releases a block. size and align are ignored; the heap knows the
// block geometry. Freeing NULL is a no-op.
func (h *Heap) Free(ptr, _, _ uint32) {
	if ptr == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	size, ok := h.blocks[ptr]
	if !ok {
		Logger().Warn("free of unknown block", zap.Uint32("ptr", ptr))
		return
	}
	delete(h.blocks, ptr)
	h.insertFree(span{addr: ptr, size: size})

	if n := len(h.free); n > 0 {
		last := h.free[n-1]
		if last.addr+last.size == h.top {
			h.top = last.addr
			h.free = h.free[:n-1]
		}
	}
}

// BlockSize returns the size of a live block.
func (h *Heap) BlockSize(ptr uint32) (uint32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	size, ok := h.blocks[ptr]
	return size, ok
}

// Live returns the number of live blocks.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks)
}

// LiveBytes returns the total size of live blocks.
func (h *Heap) LiveBytes() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	var total uint32
	for _, size := range h.blocks {
		total += size
	}
	return total
}

func (h *Heap) takeFree(size, align uint32) (uint32, bool) {
	for i, s := range h.free {
		start := alignUp(s.addr, align)
		end := start + size
		if end > s.addr+s.size {
			continue
		}

		h.free = append(h.free[:i], h.free[i+1:]...)
		if start > s.addr {
			h.insertFree(span{addr: s.addr, size: start - s.addr})
		}
		if rest := s.addr + s.size - end; rest > 0 {
			h.insertFree(span{addr: end, size: rest})
		}
		return start, true
	}
	return 0, false
}

func (h *Heap) insertFree(s span) {
	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].addr >= s.addr })
	h.free = append(h.free, span{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = s

	if i+1 < len(h.free) && h.free[i].addr+h.free[i].size == h.free[i+1].addr {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].addr+h.free[i-1].size == h.free[i].addr {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

func outOfBounds(offset, length uint32) error {
	return errors.New(errors.PhaseCall, errors.KindOutOfBounds).
		Detail("memory access out of bounds: offset=%d, length=%d", offset, length).
		Build()
}

// Read returns a view of length bytes at offset. The view is only valid
// until the next allocation that grows memory.
func (h *Heap) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := h.mem.Read(offset, length)
	if !ok {
		return nil, outOfBounds(offset, length)
	}
	return data, nil
}

func (h *Heap) Write(offset uint32, data []byte) error {
	if !h.mem.Write(offset, data) {
		return outOfBounds(offset, uint32(len(data)))
	}
	return nil
}

func (h *Heap) ReadU8(offset uint32) (uint8, error) {
	v, ok := h.mem.ReadByte(offset)
	if !ok {
		return 0, outOfBounds(offset, 1)
	}
	return v, nil
}

func (h *Heap) ReadU16(offset uint32) (uint16, error) {
	v, ok := h.mem.ReadUint16Le(offset)
	if !ok {
		return 0, outOfBounds(offset, 2)
	}
	return v, nil
}

func (h *Heap) ReadU32(offset uint32) (uint32, error) {
	v, ok := h.mem.ReadUint32Le(offset)
	if !ok {
		return 0, outOfBounds(offset, 4)
	}
	return v, nil
}

func (h *Heap) ReadU64(offset uint32) (uint64, error) {
	v, ok := h.mem.ReadUint64Le(offset)
	if !ok {
		return 0, outOfBounds(offset, 8)
	}
	return v, nil
}

func (h *Heap) WriteU8(offset uint32, value uint8) error {
	if !h.mem.WriteByte(offset, value) {
		return outOfBounds(offset, 1)
	}
	return nil
}

func (h *Heap) WriteU16(offset uint32, value uint16) error {
	if !h.mem.WriteUint16Le(offset, value) {
		return outOfBounds(offset, 2)
	}
	return nil
}

func (h *Heap) WriteU32(offset uint32, value uint32) error {
	if !h.mem.WriteUint32Le(offset, value) {
		return outOfBounds(offset, 4)
	}
	return nil
}

func (h *Heap) WriteU64(offset uint32, value uint64) error {
	if !h.mem.WriteUint64Le(offset, value) {
		return outOfBounds(offset, 8)
	}
	return nil
}
