package demolib

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/gi-bridge/native"
)

// Record layouts, matching the field order in demo.yaml.
const (
	pointSize = 8
	boxedSize = 8
)

func (s *State) defineRecords(lib *native.Library) {
	i32 := native.I32

	lib.Define("demo_point_new", native.Sig(i32, i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			p := must(h.Alloc(pointSize, 4))
			check(h.WriteU32(p, api.DecodeU32(stack[0])))
			check(h.WriteU32(p+4, api.DecodeU32(stack[1])))
			stack[0] = uint64(p)
		})

	lib.Define("demo_point_get_origin", nil, native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			s.mu.Lock()
			if s.origin == 0 {
				s.origin = must(h.Alloc(pointSize, 4))
				check(h.WriteU32(s.origin, 1))
				check(h.WriteU32(s.origin+4, 2))
			}
			p := s.origin
			s.mu.Unlock()
			stack[0] = uint64(p)
		})

	lib.Define("demo_point_fill", native.Sig(i32), nil,
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			p := api.DecodeU32(stack[0])
			check(h.WriteU32(p, 7))
			check(h.WriteU32(p+4, 9))
		})

	lib.Define("demo_point_norm1", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			p := api.DecodeU32(stack[0])
			x, err := h.ReadU32(p)
			check(err)
			y, err := h.ReadU32(p + 4)
			check(err)
			stack[0] = api.EncodeI32(abs(int32(x)) + abs(int32(y)))
		})

	// Rect: origin Point @0, size Point @8, label @16, corner @20, id @24.
	lib.Define("demo_rect_area", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			p := api.DecodeU32(stack[0])
			w, err := h.ReadU32(p + 8)
			check(err)
			ht, err := h.ReadU32(p + 12)
			check(err)
			stack[0] = api.EncodeI32(int32(w) * int32(ht))
		})

	// Boxed: value @0, name @4.
	lib.Define("demo_boxed_new", native.Sig(i32, i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			b := must(h.Alloc(boxedSize, 4))
			check(h.WriteU32(b, api.DecodeU32(stack[0])))
			var name uint32
			if src := api.DecodeU32(stack[1]); src != 0 {
				name = must(native.Strdup(h, src))
			}
			check(h.WriteU32(b+4, name))
			stack[0] = uint64(b)
		})

	lib.Define("demo_boxed_copy", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			src := api.DecodeU32(stack[0])
			v, err := h.ReadU32(src)
			check(err)
			name, err := h.ReadU32(src + 4)
			check(err)
			dst := must(h.Alloc(boxedSize, 4))
			check(h.WriteU32(dst, v))
			if name != 0 {
				name = must(native.Strdup(h, name))
			}
			check(h.WriteU32(dst+4, name))
			s.mu.Lock()
			s.boxedCopies++
			s.mu.Unlock()
			stack[0] = uint64(dst)
		})

	lib.Define("demo_boxed_free", native.Sig(i32), nil,
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			b := api.DecodeU32(stack[0])
			if name, err := h.ReadU32(b + 4); err == nil && name != 0 {
				h.Free(name, 0, 0)
			}
			h.Free(b, boxedSize, 4)
			s.mu.Lock()
			s.boxedFrees++
			s.mu.Unlock()
		})
}

// BoxedCounts returns how many times the boxed copy and free functions ran.
func (s *State) BoxedCounts() (copies, frees int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boxedCopies, s.boxedFrees
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
