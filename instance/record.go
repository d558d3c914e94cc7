package instance

import (
	"context"
	"reflect"
	"runtime"
	"sort"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/internal/coerce"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/transcoder"
	"github.com/wippyai/gi-bridge/types"
	"go.uber.org/zap"
)

// Record is a host handle to a native struct.
type Record struct {
	m       *Manager
	t       *types.Type
	parent  *Record
	cleanup runtime.Cleanup
	addr    uint32
	owned   bool
}

// NewRecord allocates a zeroed record of type t and assigns fields.
func (m *Manager) NewRecord(t *types.Type, fields map[string]any) (*Record, error) {
	if t == nil || t.Kind != types.KindStruct {
		return nil, errors.New(errors.PhaseLifecycle, errors.KindTypeMismatch).
			NativeType(t.String()).
			Detail("%s is not a record type", t.String()).
			Build()
	}
	size := t.Size
	if size == 0 {
		size = 1
	}
	addr, err := m.Heap().Alloc(size, t.SlotAlign(true))
	if err != nil {
		return nil, err
	}
	r := m.adoptRecord(t, addr)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.Set(name, fields[name]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// adoptRecord wraps an owned block and schedules its release.
func (m *Manager) adoptRecord(t *types.Type, addr uint32) *Record {
	r := &Record{m: m, t: t, addr: addr, owned: true}
	r.cleanup = runtime.AddCleanup(r, m.enqueue, release{kind: "record", t: t, addr: addr})
	return r
}

// BorrowRecord wraps a native struct without taking ownership. The
// caller keeps the memory alive for the wrapper's lifetime.
func (m *Manager) BorrowRecord(t *types.Type, addr uint32) *Record {
	return &Record{m: m, t: t, addr: addr}
}

func (m *Manager) wrapRecord(ctx context.Context, t *types.Type, addr uint32, transfer types.Transfer) (*Record, error) {
	if transfer == types.TransferNone {
		cp, err := m.copyRecord(ctx, t, addr)
		if err != nil {
			return nil, err
		}
		addr = cp
	}
	return m.adoptRecord(t, addr), nil
}

// copyRecord returns an owned deep copy of the struct at addr, using the
// declared copy function when there is one.
func (m *Manager) copyRecord(ctx context.Context, t *types.Type, addr uint32) (uint32, error) {
	if t.Copy != "" {
		res, err := m.natives.Call(ctx, t.Copy, uint64(addr))
		if err != nil {
			return 0, err
		}
		if len(res) == 0 || res[0] == 0 {
			return 0, errors.New(errors.PhaseLifecycle, errors.KindAllocation).
				NativeType(t.Name).
				Detail("%s returned NULL", t.Copy).
				Build()
		}
		return uint32(res[0]), nil
	}

	h := m.Heap()
	size := t.Size
	if size == 0 {
		size = 1
	}
	dst, err := h.Alloc(size, t.SlotAlign(true))
	if err != nil {
		return 0, err
	}
	if t.Size > 0 {
		data, err := h.Read(addr, t.Size)
		if err != nil {
			h.Free(dst, 0, 0)
			return 0, err
		}
		if err := h.Write(dst, append([]byte(nil), data...)); err != nil {
			h.Free(dst, 0, 0)
			return 0, err
		}
	}
	if err := m.dupStrings(t, dst); err != nil {
		return 0, err
	}
	return dst, nil
}

// freeRecord releases an owned struct with the declared free function,
// or frees its string fields and the block.
func (m *Manager) freeRecord(ctx context.Context, t *types.Type, addr uint32) error {
	if t.Free != "" {
		_, err := m.natives.Call(ctx, t.Free, uint64(addr))
		return err
	}
	h := m.Heap()
	m.freeStrings(t, addr)
	h.Free(addr, t.Size, t.Align)
	return nil
}

func ownsString(f *types.Field) bool {
	return f.Type.Kind == types.KindUTF8 || f.Type.Kind == types.KindFilename
}

// dupStrings replaces string pointers in a fresh copy with private
// duplicates, recursing into inline structs.
func (m *Manager) dupStrings(t *types.Type, addr uint32) error {
	h := m.Heap()
	for _, f := range t.Fields {
		switch {
		case ownsString(f):
			old, err := h.ReadU32(addr + f.Offset)
			if err != nil || old == 0 {
				continue
			}
			dup, err := native.Strdup(h, old)
			if err != nil {
				return err
			}
			if err := h.WriteU32(addr+f.Offset, dup); err != nil {
				return err
			}
		case f.Inline() && f.Type.Kind == types.KindStruct:
			if err := m.dupStrings(f.Type, addr+f.Offset); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Manager) freeStrings(t *types.Type, addr uint32) {
	h := m.Heap()
	for _, f := range t.Fields {
		switch {
		case ownsString(f):
			if p, err := h.ReadU32(addr + f.Offset); err == nil && p != 0 {
				h.Free(p, 0, 0)
			}
		case f.Inline() && f.Type.Kind == types.KindStruct:
			m.freeStrings(f.Type, addr+f.Offset)
		}
	}
}

// Type returns the record's descriptor.
func (r *Record) Type() *types.Type {
	return r.t
}

// Addr returns the native address.
func (r *Record) Addr() uint32 {
	return r.addr
}

// Owned reports whether the record or its root parent owns the memory.
func (r *Record) Owned() bool {
	return r.root().owned
}

// Parent returns the record a nested record lives in.
func (r *Record) Parent() *Record {
	return r.parent
}

func (r *Record) root() *Record {
	cur := r
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Fields returns the field names in declaration order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.t.Fields))
	for i, f := range r.t.Fields {
		out[i] = f.Name
	}
	return out
}

func (r *Record) field(name string) (*types.Field, error) {
	mem, err := r.m.res.Member(r.t, name, types.MemberField)
	if err != nil {
		return nil, err
	}
	return mem.Field, nil
}

func inlineArray(f *types.Field) bool {
	return f.Type.Kind == types.KindArray && f.Type.Length == types.LengthFixed && !f.Pointer
}

// Get reads a field. Inline struct fields return a nested record that
// writes through to r; struct pointer fields return a detached copy.
func (r *Record) Get(name string) (any, error) {
	f, err := r.field(name)
	if err != nil {
		return nil, err
	}
	addr := r.addr + f.Offset
	path := []string{r.t.Name, f.Name}

	switch {
	case f.Inline() && f.Type.Kind == types.KindStruct:
		return &Record{m: r.m, t: f.Type, parent: r, addr: addr}, nil
	case inlineArray(f):
		return r.m.dec.Lift(f.Type, uint64(addr), transcoder.Options{}, r.m.Heap(), path)
	}
	return r.m.dec.Load(f.Type, addr, transcoder.Options{Nullable: f.Nullable, ByValue: f.Inline()}, r.m.Heap(), path)
}

// Ref returns a struct pointer field as a borrowed record sharing the
// pointee instead of a copy.
func (r *Record) Ref(name string) (*Record, error) {
	f, err := r.field(name)
	if err != nil {
		return nil, err
	}
	if f.Type.Kind != types.KindStruct {
		return nil, errors.TypeMismatch(errors.PhaseLifecycle, []string{r.t.Name, f.Name}, "*Record", f.Type.String())
	}
	if f.Inline() {
		return &Record{m: r.m, t: f.Type, parent: r, addr: r.addr + f.Offset}, nil
	}
	ptr, err := r.m.Heap().ReadU32(r.addr + f.Offset)
	if err != nil || ptr == 0 {
		return nil, err
	}
	return &Record{m: r.m, t: f.Type, parent: r, addr: ptr}, nil
}

// Set writes a field.
func (r *Record) Set(name string, v any) error {
	f, err := r.field(name)
	if err != nil {
		return err
	}
	if f.Readonly {
		return errors.NotWritable(r.t.Name, f.Name)
	}
	h := r.m.Heap()
	addr := r.addr + f.Offset
	path := []string{r.t.Name, f.Name}

	switch {
	case f.Inline() && f.Type.Kind == types.KindStruct:
		return r.setInline(f, addr, v, path)

	case inlineArray(f):
		tmp, err := r.m.enc.Lower(f.Type, v, transcoder.Options{Transfer: types.TransferEverything}, h, nil, path)
		if err != nil {
			return err
		}
		size := f.Type.Elem.SlotSize(f.Type.ElemByValue) * uint32(f.Type.Fixed)
		data, err := h.Read(uint32(tmp), size)
		if err == nil {
			err = h.Write(addr, append([]byte(nil), data...))
		}
		h.Free(uint32(tmp), 0, 0)
		return err
	}

	var old uint32
	if ownsString(f) && r.Owned() {
		old, _ = h.ReadU32(addr)
	}
	opts := transcoder.Options{Transfer: types.TransferEverything, Nullable: f.Nullable || f.Pointer, ByValue: f.Inline()}
	if err := r.m.enc.Store(f.Type, addr, v, opts, h, nil, path); err != nil {
		return err
	}
	if old != 0 {
		h.Free(old, 0, 0)
	}
	return nil
}

func (r *Record) setInline(f *types.Field, addr uint32, v any, path []string) error {
	nested := &Record{m: r.m, t: f.Type, parent: r, addr: addr}
	switch src := v.(type) {
	case map[string]any:
		names := make([]string, 0, len(src))
		for name := range src {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := nested.Set(name, src[name]); err != nil {
				return err
			}
		}
		return nil
	case *Record:
		if src == nil || !src.t.IsA(f.Type) {
			break
		}
		h := r.m.Heap()
		data, err := h.Read(src.addr, f.Type.Size)
		if err != nil {
			return err
		}
		if r.Owned() {
			r.m.freeStrings(f.Type, addr)
		}
		if err := h.Write(addr, append([]byte(nil), data...)); err != nil {
			return err
		}
		return r.m.dupStrings(f.Type, addr)
	}
	return errors.TypeMismatch(errors.PhaseEncode, path, coerce.TypeName(v), f.Type.String())
}

// Clone returns an owned deep copy.
func (r *Record) Clone() (*Record, error) {
	addr, err := r.m.copyRecord(context.Background(), r.t, r.addr)
	if err != nil {
		return nil, err
	}
	return r.m.adoptRecord(r.t, addr), nil
}

// Equal reports field-wise value equality. Identity is pointer equality.
func (r *Record) Equal(o *Record) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil || r.t.Name != o.t.Name {
		return false
	}
	for _, f := range r.t.Fields {
		a, errA := r.Get(f.Name)
		b, errB := o.Get(f.Name)
		if errA != nil || errB != nil {
			return false
		}
		if ra, ok := a.(*Record); ok {
			rb, ok := b.(*Record)
			if !ok || !ra.Equal(rb) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return true
}

// Map returns the fields as a host mapping. Nested records are expanded.
func (r *Record) Map() (map[string]any, error) {
	out := make(map[string]any, len(r.t.Fields))
	for _, f := range r.t.Fields {
		v, err := r.Get(f.Name)
		if err != nil {
			return nil, err
		}
		if nested, ok := v.(*Record); ok {
			if v, err = nested.Map(); err != nil {
				return nil, err
			}
		}
		out[f.Name] = v
	}
	return out, nil
}

// Call invokes a method of the record's type with r as the instance.
func (r *Record) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	return r.m.method(ctx, r.t, r, method, args)
}

// Free releases an owned record immediately. Using r afterwards is an
// error the native side cannot detect.
func (r *Record) Free(ctx context.Context) error {
	if r.parent != nil || !r.owned {
		return errors.New(errors.PhaseLifecycle, errors.KindInvalidInput).
			NativeType(r.t.Name).
			Detail("record at 0x%x is not owned", r.addr).
			Build()
	}
	r.owned = false
	r.cleanup.Stop()
	Logger().Debug("record freed", zap.String("type", r.t.Name), zap.Uint32("addr", r.addr))
	return r.m.freeRecord(ctx, r.t, r.addr)
}
