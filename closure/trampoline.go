package closure

import (
	"context"
	"strconv"
	"sync"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/transcoder"
	"github.com/wippyai/gi-bridge/types"
)

// Policy is the lifetime policy of a trampoline.
type Policy uint8

const (
	RefCounted Policy = iota
	OneShot
	DestroyNotified
	Forever
)

func (p Policy) String() string {
	switch p {
	case OneShot:
		return "oneshot"
	case DestroyNotified:
		return "destroy-notified"
	case Forever:
		return "forever"
	default:
		return "refcounted"
	}
}

// PolicyFor maps a declared callback scope to its lifetime policy.
func PolicyFor(scope types.Scope) Policy {
	switch scope {
	case types.ScopeAsync:
		return OneShot
	case types.ScopeNotified:
		return DestroyNotified
	case types.ScopeForever:
		return Forever
	default:
		return RefCounted
	}
}

// Convention is how native code passes arguments to a trampoline.
type Convention uint8

const (
	Flat Convention = iota
	Marshal
)

func (c Convention) String() string {
	if c == Marshal {
		return "marshal"
	}
	return "flat"
}

var valueType = types.Basic(types.KindValue)

// Trampoline is a native-callable stub bound to one host function.
type Trampoline struct {
	reg      *Registry
	fn       Func
	sig      *types.Callable
	ret      *types.Type
	ptr      uint32
	refs     int
	calls    int
	policy   Policy
	conv     Convention
	released bool
	mu       sync.Mutex
}

// Ptr returns the native function pointer.
func (t *Trampoline) Ptr() uint32 {
	return t.ptr
}

// Policy returns the lifetime policy.
func (t *Trampoline) Policy() Policy {
	return t.policy
}

// Calls returns how many times native code invoked the trampoline.
func (t *Trampoline) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Released reports whether the host function has been dropped.
func (t *Trampoline) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// Acquire adds a reference to the trampoline. It fails once the
// trampoline has been released, since its pointer is no longer callable.
func (t *Trampoline) Acquire() (*Trampoline, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil, errors.New(errors.PhaseClosure, errors.KindInvalidInput).
			Value(t.ptr).
			Detail("trampoline 0x%x has been released", t.ptr).
			Build()
	}
	t.refs++
	return t, nil
}

// Release drops a reference. The trampoline is freed when none remain.
// Forever trampolines ignore it and DestroyNotified ones are freed only
// by their notifier.
func (t *Trampoline) Release() {
	switch t.policy {
	case Forever, DestroyNotified:
		return
	}
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	t.refs--
	last := t.refs <= 0
	t.mu.Unlock()
	if last {
		t.free()
	}
}

// Discard frees the trampoline regardless of policy. Used when the native
// side never took the pointer.
func (t *Trampoline) Discard() {
	t.free()
}

func (t *Trampoline) free() {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	t.released = true
	t.refs = 0
	t.fn = nil
	t.mu.Unlock()
	t.reg.forget(t)
}

// Invoke implements native.Entry.
func (t *Trampoline) Invoke(_ context.Context, args []uint64) ([]uint64, error) {
	t.mu.Lock()
	fn := t.fn
	if fn == nil {
		t.mu.Unlock()
		return nil, errors.New(errors.PhaseClosure, errors.KindInvalidData).
			Value(t.ptr).
			Detail("trampoline 0x%x was released", t.ptr).
			Build()
	}
	t.calls++
	t.mu.Unlock()

	if t.policy == OneShot {
		defer t.free()
	}
	if t.conv == Marshal {
		return t.invokeMarshal(fn, args)
	}
	return t.invokeFlat(fn, args)
}

type outSlot struct {
	param *types.Param
	addr  uint32
	index int
}

func (t *Trampoline) invokeFlat(fn Func, args []uint64) ([]uint64, error) {
	h := t.reg.natives.Heap()
	sig := t.sig
	if len(args) < len(sig.Params) {
		return nil, errors.New(errors.PhaseClosure, errors.KindInvalidInput).
			Detail("%s: got %d native arguments, want %d", sig.Name, len(args), len(sig.Params)).
			Build()
	}
	hidden := sig.Hidden()

	hostArgs := make([]any, 0, len(sig.Params))
	var outs []outSlot
	for i, p := range sig.Params {
		if hidden[i] {
			continue
		}
		path := []string{p.Name}
		opts := transcoder.Options{Transfer: p.Transfer, Nullable: p.Nullable, Length: t.lengthOf(p, args)}
		if p.Direction.IsOut() {
			addr := uint32(args[i])
			outs = append(outs, outSlot{param: p, addr: addr, index: i})
			if p.Direction == types.DirOut {
				continue
			}
			if addr == 0 {
				hostArgs = append(hostArgs, nil)
				continue
			}
			v, err := t.reg.dec.Load(p.Type, addr, opts, h, path)
			if err != nil {
				return nil, err
			}
			hostArgs = append(hostArgs, v)
			continue
		}
		v, err := t.reg.dec.Lift(p.Type, args[i], opts, h, path)
		if err != nil {
			return nil, err
		}
		hostArgs = append(hostArgs, v)
	}

	hasReturn := sig.Return != nil && sig.Return.Kind != types.KindVoid
	zero := make([]uint64, 0, 1)
	if hasReturn {
		zero = append(zero, 0)
	}

	if t.reg.schedule(t, hostArgs) {
		return zero, nil
	}
	results, err := run(fn, hostArgs)
	if err != nil {
		return nil, err
	}

	next := 0
	if hasReturn {
		if len(results) > 0 && results[0] != nil {
			w, err := t.reg.enc.Lower(sig.Return, results[0],
				transcoder.Options{Transfer: sig.ReturnTransfer, Nullable: sig.ReturnNullable}, h, nil, []string{"return"})
			if err != nil {
				return nil, err
			}
			zero[0] = w
		}
		next = 1
	}

	for _, o := range outs {
		if o.addr == 0 {
			next++
			continue
		}
		if next >= len(results) {
			break
		}
		v := results[next]
		next++
		opts := transcoder.Options{Transfer: o.param.Transfer, Nullable: true, ByValue: o.param.CallerAllocates}
		if err := t.reg.enc.Store(o.param.Type, o.addr, v, opts, h, nil, []string{o.param.Name}); err != nil {
			return nil, err
		}
		if err := t.storeLength(o.param, v, args); err != nil {
			return nil, err
		}
	}
	return zero, nil
}

// lengthOf returns the element count of an array parameter whose length
// travels in a sibling parameter, -1 otherwise.
func (t *Trampoline) lengthOf(p *types.Param, args []uint64) int {
	if p.Type.Kind != types.KindArray || p.Type.Length != types.LengthParam {
		return -1
	}
	li := p.Type.LengthParam
	if li < 0 || li >= len(args) {
		return -1
	}
	lp := t.sig.Params[li]
	if !lp.Direction.IsOut() {
		v, err := t.reg.dec.Lift(lp.Type, args[li], transcoder.Options{}, t.reg.natives.Heap(), nil)
		if err != nil {
			return -1
		}
		return transcoder.Length(v)
	}
	v, err := t.reg.dec.Load(lp.Type, uint32(args[li]), transcoder.Options{}, t.reg.natives.Heap(), nil)
	if err != nil {
		return -1
	}
	return transcoder.Length(v)
}

// storeLength writes the element count of an out array into its out
// length parameter.
func (t *Trampoline) storeLength(p *types.Param, v any, args []uint64) error {
	if p.Type.Kind != types.KindArray || p.Type.Length != types.LengthParam {
		return nil
	}
	li := p.Type.LengthParam
	if li < 0 || li >= len(args) || !t.sig.Params[li].Direction.IsOut() || args[li] == 0 {
		return nil
	}
	n, _ := transcoder.Count(v)
	lp := t.sig.Params[li]
	return t.reg.enc.Store(lp.Type, uint32(args[li]), n, transcoder.Options{}, t.reg.natives.Heap(), nil, []string{lp.Name})
}

func (t *Trampoline) invokeMarshal(fn Func, args []uint64) ([]uint64, error) {
	if len(args) < 3 {
		return nil, errors.InvalidInput(errors.PhaseClosure, "marshal trampoline expects (return, n, params)")
	}
	h := t.reg.natives.Heap()
	ret, n, params := uint32(args[0]), int(uint32(args[1])), uint32(args[2])

	hostArgs := make([]any, n)
	for i := range hostArgs {
		v, err := t.reg.dec.Load(valueType, params+uint32(i)*types.ValueSize,
			transcoder.Options{ByValue: true}, h, []string{strconv.Itoa(i + 1)})
		if err != nil {
			return nil, err
		}
		if gv, ok := v.(*transcoder.GValue); ok {
			v = gv.Get()
		}
		hostArgs[i] = v
	}

	if t.reg.schedule(t, hostArgs) {
		return nil, nil
	}
	results, err := run(fn, hostArgs)
	if err != nil {
		return nil, err
	}
	if ret == 0 || len(results) == 0 || results[0] == nil {
		return nil, nil
	}

	var out any = results[0]
	if t.ret != nil && t.ret.Kind != types.KindVoid {
		out = transcoder.NewGValue(t.ret, results[0])
	}
	if err := t.reg.enc.Store(valueType, ret, out, transcoder.Options{ByValue: true}, h, nil, []string{"return"}); err != nil {
		return nil, err
	}
	return nil, nil
}

// run calls a host function, turning a panic into an error.
func run(fn Func, args []any) (results []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseClosure, errors.KindInvalidInput).
				Value(r).
				Detail("callback panicked: %v", r).
				Build()
		}
	}()
	return fn(args...), nil
}
