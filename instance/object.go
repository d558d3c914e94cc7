package instance

import (
	"context"
	"runtime"
	"slices"
	"sync"
	"weak"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/transcoder"
	"github.com/wippyai/gi-bridge/types"
	"go.uber.org/zap"
)

// Object is a host handle to a refcounted class instance. It holds one
// native reference for as long as it is reachable.
type Object struct {
	m     *Manager
	t     *types.Type
	addr  uint32
	attrs map[string]any
	order []string
	mu    sync.Mutex
}

// Arg is a named construct argument: a property, or a host attribute when
// the class has no property of that name.
type Arg struct {
	Value any
	Name  string
}

var (
	utf8Type  = types.Basic(types.KindUTF8)
	boolType  = types.Basic(types.KindBool)
	int32Type = types.Basic(types.KindInt32)
	gtypeType = types.Basic(types.KindGType)
	ptrType   = types.Basic(types.KindPointer)
	u32Type   = types.Basic(types.KindUint32)
)

func param(name string, t *types.Type) *types.Param {
	return &types.Param{Name: name, Type: t, Closure: -1, Destroy: -1}
}

func (m *Manager) cached(addr uint32) *Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wp, ok := m.objects[addr]; ok {
		return wp.Value()
	}
	return nil
}

func (m *Manager) wrapObject(ctx context.Context, t *types.Type, addr uint32, transfer types.Transfer) (*Object, error) {
	if obj := m.cached(addr); obj != nil {
		if transfer != types.TransferNone {
			if err := m.unrefObject(ctx, obj.t, addr); err != nil {
				return nil, err
			}
		}
		return obj, nil
	}

	ct := m.concreteType(ctx, t, addr)
	floating, err := m.isFloating(ctx, ct, addr)
	if err != nil {
		return nil, err
	}
	switch {
	case floating:
		sym, err := symbol(ct, "ref_sink")
		if err != nil {
			return nil, err
		}
		if _, err := m.natives.Call(ctx, sym, uint64(addr)); err != nil {
			return nil, err
		}
	case transfer == types.TransferNone:
		if err := m.refObject(ctx, ct, addr); err != nil {
			return nil, err
		}
	}

	unref, err := symbol(ct, "unref")
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if wp, ok := m.objects[addr]; ok {
		if obj := wp.Value(); obj != nil {
			m.mu.Unlock()
			// lost a race with another wrap; drop the reference just taken
			m.enqueue(release{kind: "object", symbol: unref, t: ct, addr: addr})
			return obj, nil
		}
	}
	obj := &Object{m: m, t: ct, addr: addr}
	m.objects[addr] = weak.Make(obj)
	m.mu.Unlock()

	runtime.AddCleanup(obj, m.dropObject, release{kind: "object", symbol: unref, t: ct, addr: addr})
	Logger().Debug("object wrapped",
		zap.String("type", ct.Name),
		zap.Uint32("addr", addr),
		zap.Bool("floating", floating),
		zap.Stringer("transfer", transfer))
	return obj, nil
}

// dropObject runs after an Object became unreachable.
func (m *Manager) dropObject(r release) {
	m.mu.Lock()
	if wp, ok := m.objects[r.addr]; ok && wp.Value() == nil {
		delete(m.objects, r.addr)
	}
	m.mu.Unlock()
	m.enqueue(r)
}

func (m *Manager) isFloating(ctx context.Context, t *types.Type, addr uint32) (bool, error) {
	sym, _, ok := t.Symbol("is_floating")
	if !ok {
		return false, nil
	}
	res, err := m.natives.Call(ctx, sym, uint64(addr))
	if err != nil {
		return false, err
	}
	return len(res) > 0 && res[0] != 0, nil
}

func (m *Manager) refObject(ctx context.Context, t *types.Type, addr uint32) error {
	sym, err := symbol(t, "ref")
	if err != nil {
		return err
	}
	_, err = m.natives.Call(ctx, sym, uint64(addr))
	return err
}

func (m *Manager) unrefObject(ctx context.Context, t *types.Type, addr uint32) error {
	sym, err := symbol(t, "unref")
	if err != nil {
		return err
	}
	_, err = m.natives.Call(ctx, sym, uint64(addr))
	return err
}

// Type returns the most derived known descriptor.
func (o *Object) Type() *types.Type {
	return o.t
}

// Addr returns the native address.
func (o *Object) Addr() uint32 {
	return o.addr
}

// IsA reports whether the object is an instance of t.
func (o *Object) IsA(t *types.Type) bool {
	return o.t.IsA(t)
}

func (o *Object) property(name string) (*types.Property, error) {
	mem, err := o.m.res.Member(o.t, name, types.MemberProperty)
	if err != nil {
		return nil, err
	}
	return mem.Property, nil
}

func (o *Object) entry(key string) (string, error) {
	return symbol(o.t, key)
}

// Get reads a property.
func (o *Object) Get(ctx context.Context, name string) (any, error) {
	p, err := o.property(name)
	if err != nil {
		return nil, err
	}
	if !p.Readable() {
		return nil, errors.NotReadable(o.t.Name, p.Name)
	}
	sym, err := o.entry("get_property")
	if err != nil {
		return nil, err
	}
	out := param("value", valueType())
	out.Direction = types.DirOut
	out.CallerAllocates = true
	out.Transfer = types.TransferEverything

	c := &types.Callable{
		Name:   o.t.Name + ".get_property",
		Symbol: sym,
		Owner:  o.t,
		Method: true,
		Params: []*types.Param{param("name", utf8Type), out},
	}
	res, err := o.m.disp.Invoke(ctx, c, o, p.Name)
	if err != nil {
		return nil, err
	}
	if gv, ok := res[0].(*transcoder.GValue); ok {
		return gv.Get(), nil
	}
	return res[0], nil
}

// Set writes a property.
func (o *Object) Set(ctx context.Context, name string, v any) error {
	p, err := o.property(name)
	if err != nil {
		return err
	}
	if !p.Writable() {
		return errors.NotWritable(o.t.Name, p.Name)
	}
	sym, err := o.entry("set_property")
	if err != nil {
		return err
	}
	c := &types.Callable{
		Name:   o.t.Name + ".set_property",
		Symbol: sym,
		Owner:  o.t,
		Method: true,
		Params: []*types.Param{param("name", utf8Type), param("value", valueType())},
	}
	_, err = o.m.disp.Invoke(ctx, c, o, p.Name, transcoder.NewGValue(p.Type, v))
	return err
}

// Attr returns a host-attached attribute. Attributes live on the wrapper
// and are lost when it is collected.
func (o *Object) Attr(name string) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.attrs[name]
	return v, ok
}

// SetAttr attaches a host value to the wrapper. Names that collide with a
// property are rejected.
func (o *Object) SetAttr(name string, v any) error {
	if _, ok := o.m.res.Lookup(o.t, name, types.MemberProperty); ok {
		return errors.New(errors.PhaseLifecycle, errors.KindInvalidInput).
			NativeType(o.t.Name).
			Detail("%q is a property of %s; use Set", name, o.t.Name).
			Build()
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attrs == nil {
		o.attrs = make(map[string]any)
	}
	if _, ok := o.attrs[name]; !ok {
		o.order = append(o.order, name)
	}
	o.attrs[name] = v
	return nil
}

// AttrNames lists the host attributes in the order they were first set.
func (o *Object) AttrNames() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.order)
}

// Call invokes a method with o as the instance.
func (o *Object) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	return o.m.method(ctx, o.t, o, method, args)
}

// NewObject constructs an instance of t. Property args are passed to the
// constructor and the others are set as attributes afterwards.
func (m *Manager) NewObject(ctx context.Context, t *types.Type, args ...Arg) (*Object, error) {
	if t == nil || t.Kind != types.KindObject {
		return nil, errors.New(errors.PhaseLifecycle, errors.KindTypeMismatch).
			NativeType(t.String()).
			Detail("%s is not a class", t.String()).
			Build()
	}
	sym, err := symbol(t, "new")
	if err != nil {
		return nil, err
	}

	names, values := []any{}, []any{}
	var attrs []Arg
	for _, a := range args {
		mem, ok := m.res.Lookup(t, a.Name, types.MemberProperty)
		if !ok {
			attrs = append(attrs, a)
			continue
		}
		p := mem.Property
		if !p.Writable() && p.Flags&types.PropConstruct == 0 {
			return nil, errors.NotWritable(t.Name, p.Name)
		}
		names = append(names, p.Name)
		values = append(values, transcoder.NewGValue(p.Type, a.Value))
	}

	namesType := &types.Type{Kind: types.KindArray, Elem: utf8Type, Length: types.LengthParam, LengthParam: 1}
	valuesType := &types.Type{Kind: types.KindArray, Elem: valueType(), Length: types.LengthParam, LengthParam: 1, ElemByValue: true}
	c := &types.Callable{
		Name:           t.Name + ".new",
		Symbol:         sym,
		Return:         t,
		ReturnTransfer: types.TransferEverything,
		Constructor:    true,
		Params: []*types.Param{
			param("gtype", gtypeType),
			param("n", int32Type),
			param("names", namesType),
			param("values", valuesType),
		},
	}
	res, err := m.disp.Invoke(ctx, c, t.GType, names, values)
	if err != nil {
		return nil, err
	}
	obj, ok := res[0].(*Object)
	if !ok {
		return nil, errors.New(errors.PhaseLifecycle, errors.KindAllocation).
			NativeType(t.Name).
			Detail("%s returned NULL", sym).
			Build()
	}
	for _, a := range attrs {
		if err := obj.SetAttr(a.Name, a.Value); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// findProperty asks the native class of t for a property the metadata
// does not declare.
func (m *Manager) findProperty(t *types.Type, name string) (*types.Member, bool) {
	sym, _, ok := t.Symbol("find_property")
	if !ok {
		return nil, false
	}
	h := m.Heap()
	cname, err := native.NewCString(h, name)
	if err != nil {
		return nil, false
	}
	defer h.Free(cname, 0, 0)
	flags, err := h.Alloc(4, 4)
	if err != nil {
		return nil, false
	}
	defer h.Free(flags, 4, 4)
	_ = h.WriteU32(flags, 0)

	res, err := m.natives.Call(context.Background(), sym, uint64(t.GType), uint64(cname), uint64(flags))
	if err != nil || len(res) == 0 || res[0] == 0 {
		return nil, false
	}
	pt, ok := m.res.ByGType(uint32(res[0]))
	if !ok {
		return nil, false
	}
	bits, err := h.ReadU32(flags)
	if err != nil {
		return nil, false
	}
	prop := &types.Property{Type: pt, Owner: t, Name: name, Flags: types.PropFlags(bits)}
	Logger().Debug("live property found", zap.String("type", t.Name), zap.String("property", name))
	return &types.Member{Kind: types.MemberProperty, Name: name, Property: prop, Owner: t}, true
}

func valueType() *types.Type {
	return types.Basic(types.KindValue)
}
