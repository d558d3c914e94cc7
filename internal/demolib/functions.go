package demolib

import (
	"context"
	"math"
	"slices"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/types"
)

// Error domain and codes reported through GError.
const (
	ErrorDomain       uint32 = 1
	ErrDivisionByZero int32  = 2
)

func (s *State) defineFunctions(lib *native.Library) {
	i32, i64, f64 := native.I32, native.I64, native.F64

	lib.Define("demo_add", native.Sig(i32, i32), native.Sig(i32),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			stack[0] = api.EncodeI32(api.DecodeI32(stack[0]) + api.DecodeI32(stack[1]))
		})

	lib.Define("demo_half", native.Sig(f64), native.Sig(f64),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			stack[0] = api.EncodeF64(api.DecodeF64(stack[0]) / 2)
		})

	lib.Define("demo_sum", native.Sig(i32, i32), native.Sig(i64),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			ptr, n := api.DecodeU32(stack[0]), api.DecodeI32(stack[1])
			var total int64
			for i := int32(0); i < n; i++ {
				v, err := h.ReadU32(ptr + uint32(i)*4)
				check(err)
				total += int64(int32(v))
			}
			stack[0] = api.EncodeI64(total)
		})

	lib.Define("demo_range", native.Sig(i32, i32, i32), nil,
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			n := fillRange(h, api.DecodeI32(stack[0]), api.DecodeU32(stack[1]))
			check(h.WriteU32(api.DecodeU32(stack[2]), n))
		})

	// Same as demo_range with the count written at other widths.
	for symbol, store := range map[string]func(h *native.Heap, addr, n uint32) error{
		"demo_range_u8":  func(h *native.Heap, addr, n uint32) error { return h.WriteU8(addr, uint8(n)) },
		"demo_range_u16": func(h *native.Heap, addr, n uint32) error { return h.WriteU16(addr, uint16(n)) },
		"demo_range_u32": func(h *native.Heap, addr, n uint32) error { return h.WriteU32(addr, n) },
		"demo_range_u64": func(h *native.Heap, addr, n uint32) error { return h.WriteU64(addr, uint64(n)) },
	} {
		lib.Define(symbol, native.Sig(i32, i32, i32), nil,
			func(_ context.Context, inst *native.Instance, stack []uint64) {
				h := inst.Heap()
				n := fillRange(h, api.DecodeI32(stack[0]), api.DecodeU32(stack[1]))
				check(store(h, api.DecodeU32(stack[2]), n))
			})
	}

	lib.Define("demo_greet", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			name, err := native.ReadCString(h, api.DecodeU32(stack[0]))
			check(err)
			stack[0] = uint64(must(native.NewCString(h, "hello, "+name)))
		})

	lib.Define("demo_divide", native.Sig(i32, i32, i32, i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			a, b := api.DecodeI32(stack[0]), api.DecodeI32(stack[1])
			rem, errSlot := api.DecodeU32(stack[2]), api.DecodeU32(stack[3])
			if b == 0 {
				e := must(native.NewError(h, ErrorDomain, ErrDivisionByZero, "division by zero"))
				check(h.WriteU32(errSlot, e))
				stack[0] = 0
				return
			}
			check(h.WriteU32(rem, uint32(a%b)))
			stack[0] = api.EncodeI32(a / b)
		})

	lib.Define("demo_inc", native.Sig(i32), nil,
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			p := api.DecodeU32(stack[0])
			v, err := h.ReadU32(p)
			check(err)
			check(h.WriteU32(p, v+1))
		})

	lib.Define("demo_strv", nil, native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			stack[0] = uint64(must(native.NewStrv(inst.Heap(), []string{"alpha", "beta", "gamma"})))
		})

	lib.Define("demo_reverse_list", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			data, err := native.ListData(h, api.DecodeU32(stack[0]))
			check(err)
			slices.Reverse(data)
			for i, p := range data {
				data[i] = must(native.Strdup(h, p))
			}
			stack[0] = uint64(must(native.NewList(h, data, false)))
		})

	lib.Define("demo_count_keys", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			keys, _, err := native.HashEntries(inst.Heap(), api.DecodeU32(stack[0]))
			check(err)
			stack[0] = uint64(len(keys))
		})

	lib.Define("demo_make_table", nil, native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			keys := []uint32{must(native.NewCString(h, "one")), must(native.NewCString(h, "two"))}
			stack[0] = uint64(must(native.NewHash(h, keys, []uint32{1, 2})))
		})

	lib.Define("demo_apply", native.Sig(i32, i32, i32), native.Sig(i32),
		func(ctx context.Context, inst *native.Instance, stack []uint64) {
			fn, data, x := api.DecodeU32(stack[0]), stack[1], stack[2]
			res, err := inst.CallIndirect(ctx, fn, x, data)
			if err != nil || len(res) == 0 {
				s.fail(err)
				stack[0] = 0
				return
			}
			stack[0] = res[0]
		})

	lib.Define("demo_schedule", native.Sig(i32, i32, i32), nil,
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			s.mu.Lock()
			s.scheduled = append(s.scheduled, scheduled{
				fn:      api.DecodeU32(stack[0]),
				data:    api.DecodeU32(stack[1]),
				destroy: api.DecodeU32(stack[2]),
			})
			s.mu.Unlock()
		})

	lib.Define("demo_schedule_once", native.Sig(i32, i32), nil,
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			s.mu.Lock()
			s.scheduled = append(s.scheduled, scheduled{fn: api.DecodeU32(stack[0]), data: api.DecodeU32(stack[1]), once: true})
			s.mu.Unlock()
		})

	lib.Define("demo_schedule_once_at", native.Sig(i32, i32, i32), nil,
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			e := scheduled{fn: api.DecodeU32(stack[0]), data: api.DecodeU32(stack[1]), once: true}
			s.mu.Lock()
			pos := min(int(api.DecodeU32(stack[2])), len(s.scheduled))
			s.scheduled = slices.Insert(s.scheduled, pos, e)
			s.mu.Unlock()
		})

	lib.Define("demo_run_scheduled", native.Sig(i32), native.Sig(i32),
		func(ctx context.Context, inst *native.Instance, stack []uint64) {
			value := stack[0]
			s.mu.Lock()
			queue := append([]scheduled(nil), s.scheduled...)
			s.scheduled = slices.DeleteFunc(s.scheduled, func(e scheduled) bool { return e.once })
			s.mu.Unlock()

			var total int32
			for _, e := range queue {
				res, err := inst.CallIndirect(ctx, e.fn, value, uint64(e.data))
				if err != nil {
					s.fail(err)
					continue
				}
				if len(res) > 0 {
					total += api.DecodeI32(res[0])
				}
			}
			stack[0] = api.EncodeI32(total)
		})

	lib.Define("demo_clear_scheduled", nil, nil,
		func(ctx context.Context, inst *native.Instance, _ []uint64) {
			s.mu.Lock()
			queue := s.scheduled
			s.scheduled = nil
			s.mu.Unlock()
			for _, e := range queue {
				if e.destroy == 0 {
					continue
				}
				if _, err := inst.CallIndirect(ctx, e.destroy, uint64(e.data)); err != nil {
					s.fail(err)
				}
			}
		})

	lib.Define("demo_echo_variant", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			stack[0] = uint64(must(native.CopyVariantBlock(inst.Heap(), api.DecodeU32(stack[0]))))
		})

	lib.Define("demo_echo_value", native.Sig(i32, i32), nil,
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			check(native.ValueCopy(inst.Heap(), api.DecodeU32(stack[1]), api.DecodeU32(stack[0])))
		})

	lib.Define("demo_color_name", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			names := []string{"red", "green", "dark-blue"}
			c := api.DecodeI32(stack[0])
			name := "unknown"
			if c >= 0 && int(c) < len(names) {
				name = names[c]
			}
			stack[0] = uint64(s.static(inst.Heap(), name))
		})

	lib.Define("demo_mode_bits", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			stack[0] = uint64(api.DecodeU32(stack[0]))
		})

	lib.Define("demo_live_objects", nil, native.Sig(i32),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			s.mu.Lock()
			n := len(s.objects)
			s.mu.Unlock()
			stack[0] = uint64(n)
		})
}

func (s *State) defineShapes(lib *native.Library) {
	i32, f64 := native.I32, native.F64

	lib.Define("demo_circle_new", native.Sig(f64), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			addr := must(inst.Heap().Alloc(8, 8))
			check(inst.Heap().WriteU64(addr, stack[0]))
			s.mu.Lock()
			s.shapes[addr] = &shape{gtype: s.gtypes.Circle, refs: 1, radius: api.DecodeF64(stack[0])}
			s.mu.Unlock()
			stack[0] = uint64(addr)
		})

	lib.Define("demo_shape_ref", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			s.mu.Lock()
			if sh, ok := s.shapes[api.DecodeU32(stack[0])]; ok {
				sh.refs++
			}
			s.mu.Unlock()
		})

	lib.Define("demo_shape_unref", native.Sig(i32), nil,
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			addr := api.DecodeU32(stack[0])
			s.mu.Lock()
			sh, ok := s.shapes[addr]
			if ok {
				sh.refs--
				if sh.refs <= 0 {
					delete(s.shapes, addr)
				}
			}
			s.mu.Unlock()
			if ok && sh.refs <= 0 {
				inst.Heap().Free(addr, 8, 8)
			}
		})

	lib.Define("demo_shape_type", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			s.mu.Lock()
			gtype := s.gtypes.Shape
			if sh, ok := s.shapes[api.DecodeU32(stack[0])]; ok {
				gtype = sh.gtype
			}
			s.mu.Unlock()
			stack[0] = uint64(gtype)
		})

	lib.Define("demo_shape_area", native.Sig(i32), native.Sig(f64),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			s.mu.Lock()
			var r float64
			if sh, ok := s.shapes[api.DecodeU32(stack[0])]; ok {
				r = sh.radius
			}
			s.mu.Unlock()
			stack[0] = api.EncodeF64(math.Pi * r * r)
		})
}

// valueInt writes an int GValue.
// fillRange allocates [0, n) as gint32 values, stores the array at out
// and returns the count.
func fillRange(h *native.Heap, n int32, out uint32) uint32 {
	n = max(n, 0)
	arr := must(h.Alloc(uint32(max(n, 1))*4, 4))
	for i := int32(0); i < n; i++ {
		check(h.WriteU32(arr+uint32(i)*4, uint32(i)))
	}
	check(h.WriteU32(out, arr))
	return uint32(n)
}

func valueInt(h *native.Heap, addr uint32, v int32) {
	check(native.WriteValue(h, addr, types.GTypeInt, uint64(uint32(v))))
}
