package closure

import (
	"context"
	"sync"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/transcoder"
	"github.com/wippyai/gi-bridge/types"
	"go.uber.org/zap"
)

// Func is a host function callable from native code. It receives the
// decoded in-arguments and returns [return?, out...].
type Func func(args ...any) []any

// Natives is the function table and heap trampolines are installed in.
type Natives interface {
	Register(e native.Entry) (uint32, error)
	Unregister(ptr uint32) error
	Heap() *native.Heap
}

type pendingCall struct {
	fn   Func
	args []any
	ptr  uint32
}

// Registry owns the live trampolines of one native instance.
type Registry struct {
	natives  Natives
	enc      *transcoder.Encoder
	dec      *transcoder.Decoder
	live     map[uint32]*Trampoline
	pending  []pendingCall
	notifier uint32
	frozen   int
	mu       sync.Mutex
}

// NewRegistry creates a registry. The codecs decide how instance-typed
// arguments cross the boundary.
func NewRegistry(natives Natives, enc *transcoder.Encoder, dec *transcoder.Decoder) *Registry {
	return &Registry{
		natives: natives,
		enc:     enc,
		dec:     dec,
		live:    make(map[uint32]*Trampoline),
	}
}

// Wrap creates a flat trampoline for fn with signature sig.
func (r *Registry) Wrap(fn Func, sig *types.Callable, policy Policy) (*Trampoline, error) {
	if sig == nil {
		return nil, errors.InvalidInput(errors.PhaseClosure, "callback signature is required")
	}
	return r.install(&Trampoline{fn: fn, sig: sig, policy: policy, conv: Flat})
}

// WrapMarshal creates a marshal trampoline whose result is stored into
// the return GValue under tag ret. A nil ret infers the tag from the
// result.
func (r *Registry) WrapMarshal(fn Func, ret *types.Type, policy Policy) (*Trampoline, error) {
	return r.install(&Trampoline{fn: fn, ret: ret, policy: policy, conv: Marshal})
}

// WrapScope picks the policy declared by a callback parameter's scope.
func (r *Registry) WrapScope(fn Func, sig *types.Callable, scope types.Scope) (*Trampoline, error) {
	return r.Wrap(fn, sig, PolicyFor(scope))
}

func (r *Registry) install(t *Trampoline) (*Trampoline, error) {
	if t.fn == nil {
		return nil, errors.InvalidInput(errors.PhaseClosure, "callback function is nil")
	}
	t.reg = r
	t.refs = 1
	ptr, err := r.natives.Register(t)
	if err != nil {
		return nil, err
	}
	t.ptr = ptr

	r.mu.Lock()
	r.live[ptr] = t
	r.mu.Unlock()

	Logger().Debug("trampoline created",
		zap.Uint32("ptr", ptr),
		zap.Stringer("policy", t.policy),
		zap.Stringer("convention", t.conv))
	return t, nil
}

// Lookup returns the live trampoline behind a function pointer.
func (r *Registry) Lookup(ptr uint32) (*Trampoline, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.live[ptr]
	return t, ok
}

// Live returns the number of unreleased trampolines.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// DestroyNotifier returns the function pointer natives call with a
// trampoline pointer as user data once they will no longer invoke it.
func (r *Registry) DestroyNotifier() (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notifier != 0 {
		return r.notifier, nil
	}
	ptr, err := r.natives.Register(destroyEntry{reg: r})
	if err != nil {
		return 0, err
	}
	r.notifier = ptr
	return ptr, nil
}

type destroyEntry struct {
	reg *Registry
}

func (d destroyEntry) Invoke(_ context.Context, args []uint64) ([]uint64, error) {
	if len(args) == 0 {
		return nil, nil
	}
	d.reg.notify(uint32(args[0]))
	return nil, nil
}

func (r *Registry) notify(ptr uint32) {
	t, ok := r.Lookup(ptr)
	if !ok {
		Logger().Warn("destroy notify for unknown trampoline", zap.Uint32("ptr", ptr))
		return
	}
	t.free()
}

// Freeze defers trampoline invocations until the matching Thaw.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen++
	r.mu.Unlock()
}

// Frozen reports whether invocations are being deferred.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen > 0
}

// Pending returns the number of queued invocations.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Thaw undoes one Freeze. When the last freeze is lifted the queued
// invocations run in the order they were scheduled. It returns how many
// ran.
func (r *Registry) Thaw() int {
	r.mu.Lock()
	if r.frozen > 0 {
		r.frozen--
	}
	r.mu.Unlock()

	ran := 0
	for {
		r.mu.Lock()
		if r.frozen > 0 || len(r.pending) == 0 {
			r.mu.Unlock()
			break
		}
		p := r.pending[0]
		r.pending[0] = pendingCall{}
		r.pending = r.pending[1:]
		r.mu.Unlock()

		if _, err := run(p.fn, p.args); err != nil {
			Logger().Warn("deferred callback failed", zap.Uint32("ptr", p.ptr), zap.Error(err))
		}
		ran++
	}
	if ran > 0 {
		Logger().Debug("pending callbacks drained", zap.Int("count", ran))
	}
	return ran
}

// schedule queues a call when frozen. It reports whether it did.
func (r *Registry) schedule(t *Trampoline, args []any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen == 0 {
		return false
	}
	r.pending = append(r.pending, pendingCall{fn: t.fn, args: args, ptr: t.ptr})
	return true
}

func (r *Registry) forget(t *Trampoline) {
	r.mu.Lock()
	delete(r.live, t.ptr)
	r.mu.Unlock()
	if err := r.natives.Unregister(t.ptr); err != nil {
		Logger().Warn("unregister trampoline", zap.Uint32("ptr", t.ptr), zap.Error(err))
	}
	Logger().Debug("trampoline released", zap.Uint32("ptr", t.ptr), zap.Stringer("policy", t.policy))
}

// Close releases every trampoline except Forever ones and drops the
// pending queue.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*Trampoline, 0, len(r.live))
	for _, t := range r.live {
		all = append(all, t)
	}
	r.pending = nil
	r.frozen = 0
	r.mu.Unlock()

	for _, t := range all {
		if t.policy != Forever {
			t.free()
		}
	}
}
