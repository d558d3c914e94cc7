package instance

import (
	"context"
	"sync"
	"weak"

	"github.com/wippyai/gi-bridge/call"
	"github.com/wippyai/gi-bridge/closure"
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/internal/coerce"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/resolver"
	"github.com/wippyai/gi-bridge/transcoder"
	"github.com/wippyai/gi-bridge/types"
	"go.uber.org/zap"
)

// Natives is the native instance the manager drives.
type Natives interface {
	Call(ctx context.Context, symbol string, params ...uint64) ([]uint64, error)
	Register(e native.Entry) (uint32, error)
	Unregister(ptr uint32) error
	Heap() *native.Heap
}

// release is a queued native release.
type release struct {
	kind   string
	symbol string
	t      *types.Type
	addr   uint32
}

// Manager owns wrappers, caches and the finalization queue of one native
// instance.
type Manager struct {
	natives  Natives
	res      *resolver.Resolver
	enc      *transcoder.Encoder
	dec      *transcoder.Decoder
	closures *closure.Registry
	disp     *call.Dispatcher

	objects      map[uint32]weak.Pointer[Object]
	fundamentals map[uint32]weak.Pointer[Fundamental]
	mu           sync.Mutex

	queue []release
	qmu   sync.Mutex
}

// NewManager wires codecs, the closure registry and the dispatcher around
// natives and installs the live property query into res.
func NewManager(natives Natives, res *resolver.Resolver) *Manager {
	m := &Manager{
		natives:      natives,
		res:          res,
		objects:      make(map[uint32]weak.Pointer[Object]),
		fundamentals: make(map[uint32]weak.Pointer[Fundamental]),
	}
	lookup := typeLookup{res: res}
	m.enc = transcoder.NewEncoder(lookup, m)
	m.dec = transcoder.NewDecoder(lookup, m)
	m.closures = closure.NewRegistry(natives, m.enc, m.dec)
	m.disp = call.NewDispatcher(natives, m.enc, m.dec, m.closures)
	m.disp.OnCall(func() { m.Collect(context.Background()) })
	res.SetLiveQuery(m.findProperty)
	return m
}

// Dispatcher returns the call dispatcher bound to this manager.
func (m *Manager) Dispatcher() *call.Dispatcher {
	return m.disp
}

// Closures returns the trampoline registry.
func (m *Manager) Closures() *closure.Registry {
	return m.closures
}

// Resolver returns the descriptor resolver.
func (m *Manager) Resolver() *resolver.Resolver {
	return m.res
}

// Encoder returns the encoder whose host is this manager.
func (m *Manager) Encoder() *transcoder.Encoder {
	return m.enc
}

// Decoder returns the decoder whose host is this manager.
func (m *Manager) Decoder() *transcoder.Decoder {
	return m.dec
}

// Heap returns the native heap.
func (m *Manager) Heap() *native.Heap {
	return m.natives.Heap()
}

// Wrap implements transcoder.Host.
func (m *Manager) Wrap(t *types.Type, addr uint32, transfer types.Transfer) (any, error) {
	if addr == 0 {
		return nil, nil
	}
	ctx := context.Background()
	switch t.Kind {
	case types.KindStruct:
		return m.wrapRecord(ctx, t, addr, transfer)
	case types.KindObject, types.KindInterface:
		return m.wrapObject(ctx, t, addr, transfer)
	case types.KindFundamental:
		return m.wrapFundamental(ctx, t, addr, transfer)
	}
	return nil, errors.Unsupported(errors.PhaseLifecycle, "wrap "+t.Kind.String())
}

// Unwrap implements transcoder.Host.
func (m *Manager) Unwrap(t *types.Type, v any, transfer types.Transfer) (uint32, error) {
	ctx := context.Background()
	switch hv := v.(type) {
	case *Record:
		if hv == nil {
			return 0, nil
		}
		if !hv.t.IsA(t) {
			return 0, errors.TypeMismatch(errors.PhaseEncode, nil, hv.t.Name, t.String())
		}
		if transfer == types.TransferNone {
			return hv.addr, nil
		}
		return m.copyRecord(ctx, hv.t, hv.addr)

	case map[string]any:
		if t.Kind != types.KindStruct {
			break
		}
		r, err := m.NewRecord(t, hv)
		if err != nil {
			return 0, err
		}
		if transfer == types.TransferNone {
			return r.addr, nil
		}
		return m.copyRecord(ctx, t, r.addr)

	case *Object:
		if hv == nil {
			return 0, nil
		}
		if !hv.t.IsA(t) {
			return 0, errors.TypeMismatch(errors.PhaseEncode, nil, hv.t.Name, t.String())
		}
		if transfer != types.TransferNone {
			if err := m.refObject(ctx, hv.t, hv.addr); err != nil {
				return 0, err
			}
		}
		return hv.addr, nil

	case *Fundamental:
		if hv == nil {
			return 0, nil
		}
		if !hv.t.IsA(t) {
			return 0, errors.TypeMismatch(errors.PhaseEncode, nil, hv.t.Name, t.String())
		}
		if transfer != types.TransferNone {
			if err := m.fundamentalRef(ctx, hv.t, hv.addr); err != nil {
				return 0, err
			}
		}
		return hv.addr, nil
	}
	return 0, errors.TypeMismatch(errors.PhaseEncode, nil, coerce.TypeName(v), t.String())
}

// Callback implements transcoder.CallbackHost for callbacks stored
// outside a call frame. Such trampolines are never released.
func (m *Manager) Callback(t *types.Type, fn any) (uint32, error) {
	switch f := fn.(type) {
	case *closure.Trampoline:
		tr, err := f.Acquire()
		if err != nil {
			return 0, err
		}
		return tr.Ptr(), nil
	case closure.Func:
		return m.wrapForever(t, f)
	case func(...any) []any:
		return m.wrapForever(t, f)
	}
	return 0, errors.TypeMismatch(errors.PhaseEncode, nil, coerce.TypeName(fn), t.String())
}

func (m *Manager) wrapForever(t *types.Type, fn closure.Func) (uint32, error) {
	if t.Callable == nil {
		return 0, errors.UnknownType(t.String())
	}
	tr, err := m.closures.Wrap(fn, t.Callable, closure.Forever)
	if err != nil {
		return 0, err
	}
	return tr.Ptr(), nil
}

// enqueue schedules a native release for the next drain.
func (m *Manager) enqueue(r release) {
	m.qmu.Lock()
	m.queue = append(m.queue, r)
	m.qmu.Unlock()
}

// Pending returns the number of queued releases.
func (m *Manager) Pending() int {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	return len(m.queue)
}

// Collect runs the queued native releases on the calling goroutine and
// returns how many ran.
func (m *Manager) Collect(ctx context.Context) int {
	m.qmu.Lock()
	queue := m.queue
	m.queue = nil
	m.qmu.Unlock()

	for _, r := range queue {
		var err error
		switch r.kind {
		case "record":
			err = m.freeRecord(ctx, r.t, r.addr)
		default:
			_, err = m.natives.Call(ctx, r.symbol, uint64(r.addr))
		}
		if err != nil {
			Logger().Warn("release failed",
				zap.String("kind", r.kind),
				zap.String("type", r.t.Name),
				zap.Uint32("addr", r.addr),
				zap.Error(err))
		}
	}
	if len(queue) > 0 {
		Logger().Debug("finalization queue drained", zap.Int("count", len(queue)))
	}
	return len(queue)
}

// Live returns the number of cached object and fundamental wrappers.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects) + len(m.fundamentals)
}

// Invoke calls a resolved callable through the dispatcher.
func (m *Manager) Invoke(ctx context.Context, c *types.Callable, args ...any) ([]any, error) {
	return m.disp.Invoke(ctx, c, args...)
}

// method resolves a method by name on t and calls it with self first.
func (m *Manager) method(ctx context.Context, t *types.Type, self any, name string, args []any) ([]any, error) {
	mem, err := m.res.Member(t, name, types.MemberMethod)
	if err != nil {
		return nil, err
	}
	c := mem.Method
	full := make([]any, 0, len(args)+1)
	if c.Method {
		full = append(full, self)
	}
	return m.disp.Invoke(ctx, c, append(full, args...)...)
}

// symbol returns a runtime symbol of t or fails with no_such_member.
func symbol(t *types.Type, key string) (string, error) {
	s, _, ok := t.Symbol(key)
	if !ok {
		return "", errors.New(errors.PhaseLifecycle, errors.KindNoSuchMember).
			NativeType(t.Name).
			Detail("%s declares no %s function", t.Name, key).
			Build()
	}
	return s, nil
}

// concreteType returns the most derived descriptor of the instance at
// addr, falling back to t.
func (m *Manager) concreteType(ctx context.Context, t *types.Type, addr uint32) *types.Type {
	sym, _, ok := t.Symbol("type_of")
	if !ok {
		return t
	}
	res, err := m.natives.Call(ctx, sym, uint64(addr))
	if err != nil || len(res) == 0 {
		return t
	}
	ct, ok := m.res.ByGType(uint32(res[0]))
	if !ok || !ct.IsA(t) {
		return t
	}
	return ct
}

type typeLookup struct {
	res *resolver.Resolver
}

func (l typeLookup) Resolve(name string) (*types.Type, error) {
	return l.res.Resolve(name)
}

func (l typeLookup) ByGType(id uint32) (*types.Type, error) {
	if t, ok := l.res.ByGType(id); ok {
		return t, nil
	}
	return nil, errors.New(errors.PhaseDecode, errors.KindUnknownType).
		Value(id).
		Detail("no type registered for gtype 0x%x", id).
		Build()
}
