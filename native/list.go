package native

import (
	gibridge "github.com/wippyai/gi-bridge"
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/types"
)

// Node field offsets shared by GList and GSList.
const (
	nodeData = 0
	nodeNext = 4
	nodePrev = 8
)

func nodeSize(singly bool) uint32 {
	if singly {
		return types.SListNodeSize
	}
	return types.ListNodeSize
}

// NewList builds a linked list with one node per data word. singly selects
// the GSList layout. An empty list is NULL.
func NewList(h gibridge.Heap, data []uint32, singly bool) (uint32, error) {
	size := nodeSize(singly)
	var head, prev uint32
	for _, d := range data {
		node, err := h.Alloc(size, 4)
		if err != nil {
			FreeList(h, head, singly)
			return 0, err
		}
		if err := h.WriteU32(node+nodeData, d); err != nil {
			FreeList(h, head, singly)
			return 0, err
		}
		if prev == 0 {
			head = node
		} else {
			if err := h.WriteU32(prev+nodeNext, node); err != nil {
				FreeList(h, head, singly)
				return 0, err
			}
			if !singly {
				if err := h.WriteU32(node+nodePrev, prev); err != nil {
					FreeList(h, head, singly)
					return 0, err
				}
			}
		}
		prev = node
	}
	return head, nil
}

// ListData returns the data words of a list in order.
func ListData(mem gibridge.Memory, head uint32) ([]uint32, error) {
	var out []uint32
	for node := head; node != 0; {
		if len(out) >= MaxListLength {
			return nil, errors.InvalidData(errors.PhaseDecode, nil, "list exceeds maximum length")
		}
		d, err := mem.ReadU32(node + nodeData)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		if node, err = mem.ReadU32(node + nodeNext); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FreeList frees the nodes of a list, not the data they point to.
func FreeList(h gibridge.Heap, head uint32, singly bool) {
	size := nodeSize(singly)
	for n := 0; head != 0 && n < MaxListLength; n++ {
		next, err := h.ReadU32(head + nodeNext)
		h.Free(head, size, 4)
		if err != nil {
			return
		}
		head = next
	}
}

// Hash table header offsets.
const (
	hashSize   = 0
	hashCap    = 4
	hashKeys   = 8
	hashValues = 12
)

// NewHash builds a hash table from parallel key and value words.
func NewHash(h gibridge.Heap, keys, values []uint32) (uint32, error) {
	if len(keys) != len(values) {
		return 0, errors.InvalidInput(errors.PhaseEncode, "hash keys and values differ in length")
	}
	n := uint32(len(keys))
	capacity := n
	if capacity == 0 {
		capacity = 1
	}

	tbl, err := h.Alloc(types.HashSize, 4)
	if err != nil {
		return 0, err
	}
	karr, err := h.Alloc(capacity*4, 4)
	if err != nil {
		h.Free(tbl, 0, 0)
		return 0, err
	}
	varr, err := h.Alloc(capacity*4, 4)
	if err != nil {
		h.Free(karr, 0, 0)
		h.Free(tbl, 0, 0)
		return 0, err
	}

	for i := uint32(0); i < n; i++ {
		if err := h.WriteU32(karr+i*4, keys[i]); err != nil {
			return 0, err
		}
		if err := h.WriteU32(varr+i*4, values[i]); err != nil {
			return 0, err
		}
	}
	for off, v := range map[uint32]uint32{hashSize: n, hashCap: capacity, hashKeys: karr, hashValues: varr} {
		if err := h.WriteU32(tbl+off, v); err != nil {
			return 0, err
		}
	}
	return tbl, nil
}

// HashEntries returns the key and value words of a hash table.
func HashEntries(mem gibridge.Memory, tbl uint32) (keys, values []uint32, err error) {
	if tbl == 0 {
		return nil, nil, nil
	}
	n, err := mem.ReadU32(tbl + hashSize)
	if err != nil {
		return nil, nil, err
	}
	if n > MaxListLength {
		return nil, nil, errors.InvalidData(errors.PhaseDecode, nil, "hash table exceeds maximum size")
	}
	karr, err := mem.ReadU32(tbl + hashKeys)
	if err != nil {
		return nil, nil, err
	}
	varr, err := mem.ReadU32(tbl + hashValues)
	if err != nil {
		return nil, nil, err
	}
	keys = make([]uint32, n)
	values = make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		if keys[i], err = mem.ReadU32(karr + i*4); err != nil {
			return nil, nil, err
		}
		if values[i], err = mem.ReadU32(varr + i*4); err != nil {
			return nil, nil, err
		}
	}
	return keys, values, nil
}

// FreeHash frees the table structure, not the entries.
func FreeHash(h gibridge.Heap, tbl uint32) {
	if tbl == 0 {
		return
	}
	if karr, err := h.ReadU32(tbl + hashKeys); err == nil {
		h.Free(karr, 0, 0)
	}
	if varr, err := h.ReadU32(tbl + hashValues); err == nil {
		h.Free(varr, 0, 0)
	}
	h.Free(tbl, types.HashSize, 4)
}
