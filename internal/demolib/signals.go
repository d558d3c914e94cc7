package demolib

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/types"
)

func (s *State) defineSignals(lib *native.Library) {
	i32 := native.I32

	lib.Define("demo_signal_connect", native.Sig(i32, i32, i32, i32, i32, i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			full, err := native.ReadCString(inst.Heap(), api.DecodeU32(stack[1]))
			check(err)
			name, detail := splitDetail(full)

			s.mu.Lock()
			defer s.mu.Unlock()
			o, ok := s.objects[api.DecodeU32(stack[0])]
			if !ok || !knownSignal(name) {
				stack[0] = 0
				return
			}
			s.nextID++
			o.handlers = append(o.handlers, handler{
				id:      s.nextID,
				name:    name,
				detail:  detail,
				fn:      api.DecodeU32(stack[2]),
				data:    api.DecodeU32(stack[3]),
				destroy: api.DecodeU32(stack[4]),
				after:   api.DecodeU32(stack[5]) != 0,
			})
			stack[0] = uint64(s.nextID)
		})

	lib.Define("demo_signal_emit", native.Sig(i32, i32, i32, i32, i32), nil,
		func(ctx context.Context, inst *native.Instance, stack []uint64) {
			name, err := native.ReadCString(inst.Heap(), api.DecodeU32(stack[1]))
			check(err)
			s.emit(ctx, inst, api.DecodeU32(stack[0]), name,
				api.DecodeI32(stack[2]), api.DecodeU32(stack[3]), api.DecodeU32(stack[4]))
		})

	lib.Define("demo_signal_disconnect", native.Sig(i32, i32), nil,
		func(ctx context.Context, inst *native.Instance, stack []uint64) {
			id := api.DecodeU32(stack[1])
			s.mu.Lock()
			o, ok := s.objects[api.DecodeU32(stack[0])]
			var removed *handler
			if ok {
				for i, hd := range o.handlers {
					if hd.id == id {
						removed = &hd
						o.handlers = append(o.handlers[:i], o.handlers[i+1:]...)
						break
					}
				}
			}
			s.mu.Unlock()
			if removed != nil {
				s.destroyHandler(ctx, inst, *removed)
			}
		})
}

func knownSignal(name string) bool {
	return name == "changed" || name == "compute" || name == "notify"
}

func (s *State) destroyHandler(ctx context.Context, inst *native.Instance, hd handler) {
	if hd.destroy == 0 {
		return
	}
	if _, err := inst.CallIndirect(ctx, hd.destroy, uint64(hd.data)); err != nil {
		s.fail(err)
	}
}

// emit runs the handlers of signal on the object at addr. Handler
// closures receive the instance followed by the n values at params.
func (s *State) emit(ctx context.Context, inst *native.Instance, addr uint32, signal string, n int32, params, ret uint32) {
	name, detail := splitDetail(signal)

	s.mu.Lock()
	o, ok := s.objects[addr]
	if !ok {
		s.mu.Unlock()
		return
	}
	gtype := o.gtype
	var first, after []handler
	for _, hd := range o.handlers {
		if hd.name != name || (hd.detail != "" && hd.detail != detail) {
			continue
		}
		if hd.after {
			after = append(after, hd)
		} else {
			first = append(first, hd)
		}
	}
	s.mu.Unlock()

	h := inst.Heap()
	count := uint32(n) + 1
	block := must(h.Alloc(count*types.ValueSize, types.ValueAlign))
	defer h.Free(block, 0, 0)
	check(native.WriteValue(h, block, gtype, uint64(addr)))
	if n > 0 {
		raw, err := h.Read(params, uint32(n)*types.ValueSize)
		check(err)
		check(h.Write(block+types.ValueSize, append([]byte(nil), raw...)))
	}

	if ret == 0 {
		ret = must(native.NewValue(h))
		check(native.WriteValue(h, ret, 0, 0))
		defer native.FreeValue(h, ret)
	}
	for _, hd := range append(first, after...) {
		if _, err := inst.CallIndirect(ctx, hd.fn, uint64(ret), uint64(count), uint64(block)); err != nil {
			s.fail(err)
		}
	}
}
