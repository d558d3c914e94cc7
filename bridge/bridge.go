package bridge

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/gi-bridge/closure"
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/handle"
	"github.com/wippyai/gi-bridge/instance"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/resolver"
	"github.com/wippyai/gi-bridge/typelib"
	"github.com/wippyai/gi-bridge/types"
	"github.com/wippyai/gi-bridge/variant"
)

// Config holds bridge configuration options.
type Config struct {
	// Logger is installed into every package of the engine.
	// Leave nil to keep the current loggers.
	Logger *zap.Logger

	// LibraryName labels log entries. Defaults to the library's own name.
	LibraryName string

	// MemoryLimitPages limits linear memory growth.
	// Each page is 64KB. 0 means no limit (up to 4GB).
	MemoryLimitPages uint32

	// InitialPages is the size of the native heap at instantiation.
	// 0 means one page.
	InitialPages uint32
}

// Stats is a snapshot of the engine's live resources.
type Stats struct {
	HeapBlocks       int
	HeapBytes        uint32
	Trampolines      int
	Symbols          int
	Wrappers         int
	PendingReleases  int
	PendingCallbacks int
}

// Bridge binds one native library to a typelib.
type Bridge struct {
	rt      wazero.Runtime
	inst    *native.Instance
	res     *resolver.Resolver
	mgr     *instance.Manager
	counter *tableCounter
	name    string
	closed  bool
	mu      sync.Mutex
}

// New instantiates lib in a fresh wazero runtime and resolves descriptors
// through loader. cfg may be nil.
func New(ctx context.Context, cfg *Config, loader typelib.Loader, lib *native.Library) (*Bridge, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if loader == nil || lib == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "bridge needs a loader and a library")
	}
	if cfg.Logger != nil {
		SetLogger(cfg.Logger)
		native.SetLogger(cfg.Logger)
		closure.SetLogger(cfg.Logger)
		instance.SetLogger(cfg.Logger)
	}

	rc := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	inst, err := native.Instantiate(ctx, rt, lib, cfg.InitialPages)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	name := cfg.LibraryName
	if name == "" {
		name = lib.Name()
	}
	b := &Bridge{
		rt:      rt,
		inst:    inst,
		res:     resolver.New(loader),
		counter: &tableCounter{},
		name:    name,
	}
	inst.Table().Subscribe(b.counter)
	b.mgr = instance.NewManager(inst, b.res)

	Logger().Debug("bridge ready",
		zap.String("library", name),
		zap.Int("symbols", len(lib.Symbols())))
	return b, nil
}

// Resolve returns the descriptor of a named type.
func (b *Bridge) Resolve(name string) (*types.Type, error) {
	return b.res.Resolve(name)
}

// Callable returns the descriptor of a function or method such as
// "Demo.add" or "Demo.Widget.new".
func (b *Bridge) Callable(name string) (*types.Callable, error) {
	return b.res.Callable(name)
}

// Call invokes a function or method by qualified name. For methods the
// receiver is the first argument.
func (b *Bridge) Call(ctx context.Context, name string, args ...any) ([]any, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	c, err := b.res.Callable(name)
	if err != nil {
		return nil, err
	}
	return b.mgr.Invoke(ctx, c, args...)
}

// Invoke calls a resolved callable.
func (b *Bridge) Invoke(ctx context.Context, c *types.Callable, args ...any) ([]any, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	return b.mgr.Invoke(ctx, c, args...)
}

// Record allocates an owned record of the named struct type.
func (b *Bridge) Record(name string, fields map[string]any) (*instance.Record, error) {
	t, err := b.res.Resolve(name)
	if err != nil {
		return nil, err
	}
	return b.mgr.NewRecord(t, fields)
}

// NewObject constructs an instance of the named object type. Args naming
// a property go to the constructor; the rest become host attributes set
// in order on the new object.
func (b *Bridge) NewObject(ctx context.Context, name string, args ...instance.Arg) (*instance.Object, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	t, err := b.res.Resolve(name)
	if err != nil {
		return nil, err
	}
	return b.mgr.NewObject(ctx, t, args...)
}

// Wrap returns the wrapper for a native address of the named type.
func (b *Bridge) Wrap(name string, addr uint32, transfer types.Transfer) (any, error) {
	t, err := b.res.Resolve(name)
	if err != nil {
		return nil, err
	}
	return b.mgr.Wrap(t, addr, transfer)
}

// Closure wraps fn as a reference-counted trampoline for the named
// callback type. The trampoline can be passed to several calls; the
// caller drops its reference with Release.
func (b *Bridge) Closure(name string, fn closure.Func) (*closure.Trampoline, error) {
	t, err := b.res.Resolve(name)
	if err != nil {
		return nil, err
	}
	if t.Kind != types.KindCallback || t.Callable == nil {
		return nil, errors.TypeMismatch(errors.PhaseClosure, nil, t.String(), "callback")
	}
	return b.mgr.Closures().Wrap(fn, t.Callable, closure.RefCounted)
}

// Variant builds a GVariant value from a host value.
func (b *Bridge) Variant(typeString string, host any) (*variant.Value, error) {
	return variant.New(typeString, host)
}

// FreezeNotifications defers callback invocations until the matching
// ThawNotifications. Calls nest.
func (b *Bridge) FreezeNotifications() {
	b.mgr.Closures().Freeze()
}

// ThawNotifications ends one freeze and returns how many deferred
// invocations ran.
func (b *Bridge) ThawNotifications() int {
	return b.mgr.Closures().Thaw()
}

// Collect runs queued native releases now.
func (b *Bridge) Collect(ctx context.Context) int {
	return b.mgr.Collect(ctx)
}

// Heap returns the native heap.
func (b *Bridge) Heap() *native.Heap {
	return b.inst.Heap()
}

// Manager returns the instance manager.
func (b *Bridge) Manager() *instance.Manager {
	return b.mgr
}

// Native returns the instantiated library.
func (b *Bridge) Native() *native.Instance {
	return b.inst
}

// Stats returns a snapshot of live resources.
func (b *Bridge) Stats() Stats {
	h := b.inst.Heap()
	return Stats{
		HeapBlocks:       h.Live(),
		HeapBytes:        h.LiveBytes(),
		Trampolines:      b.counter.count(native.KindTrampoline),
		Symbols:          b.counter.count(native.KindSymbol),
		Wrappers:         b.mgr.Live(),
		PendingReleases:  b.mgr.Pending(),
		PendingCallbacks: b.mgr.Closures().Pending(),
	}
}

// Close releases trampolines, drains the finalization queue and shuts the
// runtime down. It is safe to call more than once.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.mgr.Collect(ctx)
	b.mgr.Closures().Close()
	b.inst.Table().Unsubscribe(b.counter)

	var firstErr error
	if err := b.inst.Close(ctx); err != nil {
		firstErr = err
	}
	if err := b.rt.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	Logger().Debug("bridge closed", zap.String("library", b.name))
	return firstErr
}

func (b *Bridge) check() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.NotInitialized(errors.PhaseCall, "bridge "+b.name)
	}
	return nil
}

// tableCounter tracks live function table entries per kind.
type tableCounter struct {
	live map[uint32]int
	mu   sync.Mutex
}

func (c *tableCounter) OnHandleEvent(e handle.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live == nil {
		c.live = make(map[uint32]int)
	}
	switch e.Type {
	case handle.EventCreated:
		c.live[e.Kind]++
	case handle.EventRemoved:
		c.live[e.Kind]--
	}
}

func (c *tableCounter) count(kind uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live[kind]
}
