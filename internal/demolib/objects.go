package demolib

import (
	"context"
	"math"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/types"
)

const objectSize = 8

// newObject allocates an instance with one reference.
func (s *State) newObject(h *native.Heap, gtype uint32) uint32 {
	addr := must(h.Alloc(objectSize, 4))
	check(h.WriteU32(addr, gtype))
	s.mu.Lock()
	s.objects[addr] = &object{
		gtype:    gtype,
		refs:     1,
		floating: gtype == s.gtypes.Button,
		props: map[string]prop{
			"scale": {gtype: types.GTypeDouble, data: math.Float64bits(1)},
		},
	}
	s.mu.Unlock()
	return addr
}

func (s *State) lookup(addr uint32) *object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[addr]
}

func (s *State) typeName(gtype uint32) string {
	switch gtype {
	case s.gtypes.Button:
		return "Button"
	case s.gtypes.Widget:
		return "Widget"
	}
	return "Object"
}

// setProp stores the GValue at value under name.
func (s *State) setProp(h *native.Heap, addr uint32, name string, value uint32) {
	gtype, data, err := native.ReadValue(h, value)
	check(err)
	p := prop{gtype: gtype, data: data}
	if gtype == types.GTypeString {
		if data == 0 {
			p.null = true
		} else {
			p.str, err = native.ReadCString(h, uint32(data))
			check(err)
		}
		p.data = 0
	}
	s.mu.Lock()
	if o, ok := s.objects[addr]; ok {
		o.props[types.FoldName(name)] = p
	}
	s.mu.Unlock()
}

// getProp writes property name into the GValue at value. Strings are
// duplicated; the GValue owns them.
func (s *State) getProp(h *native.Heap, addr uint32, name string, value uint32) {
	name = types.FoldName(name)
	s.mu.Lock()
	o := s.objects[addr]
	p, ok := prop{}, false
	if o != nil {
		p, ok = o.props[name]
	}
	gtype := s.propTypes[name]
	s.mu.Unlock()

	if !ok {
		p = prop{gtype: gtype, null: true}
	}
	if p.gtype == types.GTypeString {
		var ptr uint32
		if !p.null {
			ptr = must(native.NewCString(h, p.str))
		}
		check(native.WriteValue(h, value, types.GTypeString, uint64(ptr)))
		return
	}
	check(native.WriteValue(h, value, p.gtype, p.data))
}

func (s *State) release(ctx context.Context, inst *native.Instance, addr uint32) {
	s.mu.Lock()
	o, ok := s.objects[addr]
	if !ok {
		s.mu.Unlock()
		return
	}
	o.refs--
	if o.refs > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.objects, addr)
	handlers := o.handlers
	o.handlers = nil
	s.mu.Unlock()

	for _, hd := range handlers {
		s.destroyHandler(ctx, inst, hd)
	}
	inst.Heap().Free(addr, objectSize, 4)
}

func (s *State) defineObjects(lib *native.Library) {
	i32 := native.I32

	lib.Define("demo_object_ref", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			s.mu.Lock()
			if o, ok := s.objects[api.DecodeU32(stack[0])]; ok {
				o.refs++
			}
			s.mu.Unlock()
		})

	lib.Define("demo_object_unref", native.Sig(i32), nil,
		func(ctx context.Context, inst *native.Instance, stack []uint64) {
			s.release(ctx, inst, api.DecodeU32(stack[0]))
		})

	lib.Define("demo_object_ref_sink", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			s.mu.Lock()
			if o, ok := s.objects[api.DecodeU32(stack[0])]; ok {
				if o.floating {
					o.floating = false
				} else {
					o.refs++
				}
			}
			s.mu.Unlock()
		})

	lib.Define("demo_object_is_floating", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			var floating uint64
			if s.Floating(api.DecodeU32(stack[0])) {
				floating = 1
			}
			stack[0] = floating
		})

	lib.Define("demo_object_type", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, _ *native.Instance, stack []uint64) {
			gtype := s.gtypes.Object
			if o := s.lookup(api.DecodeU32(stack[0])); o != nil {
				gtype = o.gtype
			}
			stack[0] = uint64(gtype)
		})

	lib.Define("demo_object_find_property", native.Sig(i32, i32, i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			gtype := api.DecodeU32(stack[0])
			name, err := native.ReadCString(h, api.DecodeU32(stack[1]))
			check(err)
			stack[0] = 0
			if gtype != s.gtypes.Widget && gtype != s.gtypes.Button {
				return
			}
			pt, ok := s.propTypes[types.FoldName(name)]
			if !ok {
				return
			}
			check(h.WriteU32(api.DecodeU32(stack[2]), flagReadable|flagWritable))
			stack[0] = uint64(pt)
		})

	lib.Define("demo_object_get_property", native.Sig(i32, i32, i32), nil,
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			name, err := native.ReadCString(h, api.DecodeU32(stack[1]))
			check(err)
			s.getProp(h, api.DecodeU32(stack[0]), name, api.DecodeU32(stack[2]))
		})

	lib.Define("demo_object_set_property", native.Sig(i32, i32, i32), nil,
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			name, err := native.ReadCString(h, api.DecodeU32(stack[1]))
			check(err)
			s.setProp(h, api.DecodeU32(stack[0]), name, api.DecodeU32(stack[2]))
		})

	lib.Define("demo_object_new", native.Sig(i32, i32, i32, i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			gtype, n := api.DecodeU32(stack[0]), api.DecodeI32(stack[1])
			names, values := api.DecodeU32(stack[2]), api.DecodeU32(stack[3])
			addr := s.newObject(h, gtype)
			for i := int32(0); i < n; i++ {
				np, err := h.ReadU32(names + uint32(i)*4)
				check(err)
				name, err := native.ReadCString(h, np)
				check(err)
				s.setProp(h, addr, name, values+uint32(i)*types.ValueSize)
			}
			stack[0] = uint64(addr)
		})

	lib.Define("demo_widget_new", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			h := inst.Heap()
			addr := s.newObject(h, s.gtypes.Widget)
			if label := api.DecodeU32(stack[0]); label != 0 {
				str, err := native.ReadCString(h, label)
				check(err)
				s.mu.Lock()
				s.objects[addr].props["label"] = prop{gtype: types.GTypeString, str: str}
				s.mu.Unlock()
			}
			stack[0] = uint64(addr)
		})

	lib.Define("demo_button_new", nil, native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			stack[0] = uint64(s.newObject(inst.Heap(), s.gtypes.Button))
		})

	lib.Define("demo_widget_bump", native.Sig(i32), native.Sig(i32),
		func(ctx context.Context, inst *native.Instance, stack []uint64) {
			addr := api.DecodeU32(stack[0])
			s.mu.Lock()
			o, ok := s.objects[addr]
			var count int32
			if ok {
				count = int32(o.props["count"].data) + 1
				o.props["count"] = prop{gtype: types.GTypeInt, data: uint64(uint32(count))}
			}
			s.mu.Unlock()
			if ok {
				h := inst.Heap()
				arg := must(native.NewValue(h))
				valueInt(h, arg, count)
				s.emit(ctx, inst, addr, "changed", 1, arg, 0)
				native.FreeValue(h, arg)
			}
			stack[0] = api.EncodeI32(count)
		})

	lib.Define("demo_widget_get_self", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, _ *native.Instance, _ []uint64) {})

	lib.Define("demo_named_describe", native.Sig(i32), native.Sig(i32),
		func(_ context.Context, inst *native.Instance, stack []uint64) {
			addr := api.DecodeU32(stack[0])
			s.mu.Lock()
			desc := "?"
			if o, ok := s.objects[addr]; ok {
				label := o.props["label"].str
				desc = s.typeName(o.gtype) + "(" + label + ")"
			}
			s.mu.Unlock()
			stack[0] = uint64(must(native.NewCString(inst.Heap(), desc)))
		})
}

func splitDetail(name string) (string, string) {
	if i := strings.Index(name, "::"); i >= 0 {
		return name[:i], name[i+2:]
	}
	return name, ""
}
