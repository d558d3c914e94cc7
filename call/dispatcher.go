package call

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/wippyai/gi-bridge/closure"
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/internal/coerce"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/transcoder"
	"github.com/wippyai/gi-bridge/types"
)

// Natives is the native library calls are dispatched to.
type Natives interface {
	Call(ctx context.Context, symbol string, params ...uint64) ([]uint64, error)
	Heap() *native.Heap
}

// Dispatcher turns host argument lists into native calls.
type Dispatcher struct {
	natives  Natives
	enc      *transcoder.Encoder
	dec      *transcoder.Decoder
	closures *closure.Registry
	hooks    []func()
	active   atomic.Int32
	mu       sync.Mutex
}

// NewDispatcher creates a dispatcher. closures may be nil when no
// callable takes callbacks.
func NewDispatcher(natives Natives, enc *transcoder.Encoder, dec *transcoder.Decoder, closures *closure.Registry) *Dispatcher {
	return &Dispatcher{natives: natives, enc: enc, dec: dec, closures: closures}
}

// OnCall registers fn to run on the calling goroutine before a dispatched
// call. Hooks are skipped while another call is in flight, which includes
// calls made from callbacks during a native call.
func (d *Dispatcher) OnCall(fn func()) {
	d.mu.Lock()
	d.hooks = append(d.hooks, fn)
	d.mu.Unlock()
}

func (d *Dispatcher) runHooks() {
	d.mu.Lock()
	hooks := d.hooks
	d.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// frame is the native side of one call in preparation.
type frame struct {
	words    []uint64
	slots    []uint32
	blocks   []uint32
	releases []*closure.Trampoline
	created  []*closure.Trampoline
	allocs   *transcoder.AllocationList
	hidden   []bool
	errSlot  uint32
	offset   int
}

// Invoke calls c with host arguments. Methods take the instance as the
// first argument.
func (d *Dispatcher) Invoke(ctx context.Context, c *types.Callable, args ...any) (_ []any, err error) {
	if c == nil {
		return nil, errors.InvalidInput(errors.PhaseCall, "callable is nil")
	}
	if d.active.Add(1) == 1 {
		d.runHooks()
	}
	defer d.active.Add(-1)

	h := d.natives.Heap()
	f := &frame{allocs: transcoder.NewAllocationList(), hidden: c.Hidden()}
	defer func() { d.cleanup(f, h, err != nil) }()

	if c.Method {
		if len(args) == 0 || args[0] == nil {
			return nil, errors.New(errors.PhaseCall, errors.KindTypeMismatch).
				Path("self").
				NativeType(c.Owner.String()).
				Detail("%s requires an instance", c.Name).
				Build()
		}
		w, err := d.enc.Lower(c.Owner, args[0], transcoder.Options{}, h, f.allocs, []string{"self"})
		if err != nil {
			return nil, err
		}
		f.words = append(f.words, w)
		f.offset = 1
		args = args[1:]
	}

	f.words = append(f.words, make([]uint64, len(c.Params))...)
	f.slots = make([]uint32, len(c.Params))

	next := 0
	for i, p := range c.Params {
		if f.hidden[i] {
			if p.Direction.IsOut() {
				if err := d.outSlot(f, h, i, p); err != nil {
					return nil, err
				}
			}
			continue
		}
		if p.Direction == types.DirOut {
			if err := d.outSlot(f, h, i, p); err != nil {
				return nil, err
			}
			continue
		}

		var v any
		present := next < len(args)
		if present {
			v = args[next]
			next++
		} else if !p.Nullable && !p.Optional {
			return nil, errors.New(errors.PhaseCall, errors.KindTypeMismatch).
				Path(p.Name).
				NativeType(p.Type.String()).
				GoType("nil").
				Detail("%s: missing argument %q", c.Name, p.Name).
				Build()
		}
		if err := d.encodeIn(f, h, c, i, p, v); err != nil {
			return nil, err
		}
	}

	if c.Throws {
		slot, err := d.alloc(f, h, 4, 4)
		if err != nil {
			return nil, err
		}
		f.errSlot = slot
		f.words = append(f.words, uint64(slot))
	}

	results, err := d.natives.Call(ctx, c.Symbol, f.words...)
	if err != nil {
		return nil, err
	}

	if f.errSlot != 0 {
		ptr, err := h.ReadU32(f.errSlot)
		if err != nil {
			return nil, err
		}
		if ptr != 0 {
			v, err := d.dec.Lift(types.Basic(types.KindError), uint64(ptr), transcoder.Options{Transfer: types.TransferEverything}, h, nil)
			if err != nil {
				return nil, err
			}
			ne := v.(*transcoder.NativeError)
			return []any{false, ne.Message, ne.Code}, nil
		}
	}

	return d.decodeResults(f, h, c, results)
}

func (d *Dispatcher) encodeIn(f *frame, h *native.Heap, c *types.Callable, i int, p *types.Param, v any) error {
	path := []string{p.Name}
	opts := transcoder.Options{Transfer: p.Transfer, Nullable: p.Nullable || p.Optional}

	if p.Type.Kind == types.KindCallback {
		return d.encodeCallback(f, c, i, p, v)
	}

	if p.Type.Kind == types.KindArray && p.Type.Length == types.LengthParam {
		if li := p.Type.LengthParam; li >= 0 && li < len(c.Params) && !c.Params[li].Direction.IsOut() {
			n, _ := transcoder.Count(v)
			f.words[f.offset+li] = uint64(uint32(n))
		}
	}

	if p.Direction == types.DirInOut {
		slot, err := d.outSlotFor(f, h, i, p)
		if err != nil {
			return err
		}
		if v != nil || !opts.Nullable {
			if err := d.enc.Store(p.Type, slot, v, opts, h, f.allocs, path); err != nil {
				return err
			}
		}
		return nil
	}

	w, err := d.enc.Lower(p.Type, v, opts, h, f.allocs, path)
	if err != nil {
		return err
	}
	f.words[f.offset+i] = w
	return nil
}

func (d *Dispatcher) encodeCallback(f *frame, c *types.Callable, i int, p *types.Param, v any) error {
	var tr *closure.Trampoline
	switch fv := v.(type) {
	case nil:
		return nil
	case transcoder.FuncPtr:
		f.words[f.offset+i] = uint64(fv)
		return nil
	case *closure.Trampoline:
		t, err := fv.Acquire()
		if err != nil {
			return err
		}
		tr = t
		f.releases = append(f.releases, tr)
	case closure.Func:
		t, err := d.wrap(fv, p)
		if err != nil {
			return err
		}
		tr = t
		f.created = append(f.created, tr)
	case func(...any) []any:
		t, err := d.wrap(closure.Func(fv), p)
		if err != nil {
			return err
		}
		tr = t
		f.created = append(f.created, tr)
	default:
		return errors.TypeMismatch(errors.PhaseCall, []string{p.Name}, coerce.TypeName(v), p.Type.String())
	}

	f.words[f.offset+i] = uint64(tr.Ptr())
	if p.Scope == types.ScopeCall && tr.Policy() == closure.RefCounted {
		f.releases = appendOnce(f.releases, tr)
	}
	if p.Closure >= 0 && p.Closure < len(c.Params) {
		f.words[f.offset+p.Closure] = uint64(tr.Ptr())
	}
	if p.Destroy >= 0 && p.Destroy < len(c.Params) {
		notifier, err := d.closures.DestroyNotifier()
		if err != nil {
			return err
		}
		f.words[f.offset+p.Destroy] = uint64(notifier)
	}
	return nil
}

func (d *Dispatcher) wrap(fn closure.Func, p *types.Param) (*closure.Trampoline, error) {
	if d.closures == nil {
		return nil, errors.NotInitialized(errors.PhaseCall, "closure registry")
	}
	if p.Type.Callable == nil {
		return nil, errors.New(errors.PhaseCall, errors.KindUnknownType).
			Path(p.Name).
			NativeType(p.Type.String()).
			Detail("callback %s has no signature", p.Type.String()).
			Build()
	}
	return d.closures.WrapScope(fn, p.Type.Callable, p.Scope)
}

func appendOnce(list []*closure.Trampoline, t *closure.Trampoline) []*closure.Trampoline {
	for _, x := range list {
		if x == t {
			return list
		}
	}
	return append(list, t)
}

// outSlot prepares the storage an out parameter writes to.
func (d *Dispatcher) outSlot(f *frame, h *native.Heap, i int, p *types.Param) error {
	if p.CallerAllocates && p.Type.Kind == types.KindStruct {
		size := p.Type.Size
		if size == 0 {
			size = 1
		}
		block, err := h.Alloc(size, p.Type.SlotAlign(true))
		if err != nil {
			return err
		}
		f.blocks = append(f.blocks, block)
		f.slots[i] = block
		f.words[f.offset+i] = uint64(block)
		return nil
	}
	_, err := d.outSlotFor(f, h, i, p)
	return err
}

func (d *Dispatcher) outSlotFor(f *frame, h *native.Heap, i int, p *types.Param) (uint32, error) {
	byValue := p.CallerAllocates && p.Type.Kind == types.KindValue
	slot, err := d.alloc(f, h, p.Type.SlotSize(byValue), p.Type.SlotAlign(byValue))
	if err != nil {
		return 0, err
	}
	f.slots[i] = slot
	f.words[f.offset+i] = uint64(slot)
	return slot, nil
}

func (d *Dispatcher) alloc(f *frame, h *native.Heap, size, align uint32) (uint32, error) {
	if size == 0 {
		size = 4
	}
	p, err := h.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	f.blocks = append(f.blocks, p)
	return p, nil
}

func (d *Dispatcher) decodeResults(f *frame, h *native.Heap, c *types.Callable, results []uint64) ([]any, error) {
	out := make([]any, 0, 1+len(c.Params))

	if c.Return != nil && c.Return.Kind != types.KindVoid {
		var word uint64
		if len(results) > 0 {
			word = results[0]
		}
		opts := transcoder.Options{Transfer: c.ReturnTransfer, Nullable: c.ReturnNullable, Length: d.lengthOf(f, h, c, c.Return)}
		v, err := d.dec.Lift(c.Return, word, opts, h, []string{"return"})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	for i, p := range c.Params {
		if f.hidden[i] || !p.Direction.IsOut() {
			continue
		}
		opts := transcoder.Options{Transfer: p.Transfer, Nullable: true, Length: d.lengthOf(f, h, c, p.Type)}
		path := []string{p.Name}

		if p.CallerAllocates && p.Type.Kind == types.KindStruct {
			v, err := d.dec.Lift(p.Type, uint64(f.slots[i]), transcoder.Options{Transfer: types.TransferEverything}, h, path)
			if err != nil {
				return nil, err
			}
			f.blocks = removeBlock(f.blocks, f.slots[i])
			out = append(out, v)
			continue
		}
		opts.ByValue = p.CallerAllocates && p.Type.Kind == types.KindValue
		v, err := d.dec.Load(p.Type, f.slots[i], opts, h, path)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// lengthOf returns the element count of an array whose length travels
// in a parameter, -1 otherwise.
func (d *Dispatcher) lengthOf(f *frame, h *native.Heap, c *types.Callable, t *types.Type) int {
	if t == nil || t.Kind != types.KindArray || t.Length != types.LengthParam {
		return -1
	}
	li := t.LengthParam
	if li < 0 || li >= len(c.Params) {
		return -1
	}
	lp := c.Params[li]
	var v any
	var err error
	if lp.Direction.IsOut() {
		v, err = d.dec.Load(lp.Type, f.slots[li], transcoder.Options{}, h, nil)
	} else {
		v, err = d.dec.Lift(lp.Type, f.words[f.offset+li], transcoder.Options{}, h, nil)
	}
	if err != nil {
		return -1
	}
	return transcoder.Length(v)
}

func removeBlock(blocks []uint32, ptr uint32) []uint32 {
	for i, b := range blocks {
		if b == ptr {
			return append(blocks[:i], blocks[i+1:]...)
		}
	}
	return blocks
}

// cleanup frees the frame. On failure the trampolines wrapped for this
// call are discarded whatever their policy.
func (d *Dispatcher) cleanup(f *frame, h *native.Heap, failed bool) {
	for _, t := range f.releases {
		t.Release()
	}
	if failed {
		for _, t := range f.created {
			t.Discard()
		}
	}
	f.allocs.FreeAndRelease(h)
	for _, b := range f.blocks {
		h.Free(b, 0, 0)
	}
}
