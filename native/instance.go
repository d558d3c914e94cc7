package native

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/handle"
	"go.uber.org/zap"
)

// Function table entry kinds.
const (
	KindSymbol     uint32 = 1
	KindTrampoline uint32 = 2
)

// Entry is something callable through a function pointer.
type Entry interface {
	Invoke(ctx context.Context, args []uint64) ([]uint64, error)
}

type symbolEntry struct {
	fn api.Function
}

func (e symbolEntry) Invoke(ctx context.Context, args []uint64) ([]uint64, error) {
	return e.fn.Call(ctx, args...)
}

// Instance is an instantiated library: its module, heap and function table.
type Instance struct {
	lib      *Library
	host     api.Module
	mod      api.Module
	heap     *Heap
	funcs    map[string]api.Function
	table    *handle.Table
	symPtrs  map[string]uint32
	deferred map[uint32]bool
	mu       sync.Mutex
}

// Instantiate links a library into a wazero runtime.
func Instantiate(ctx context.Context, rt wazero.Runtime, lib *Library, initialPages uint32) (*Instance, error) {
	inst := &Instance{
		lib:      lib,
		funcs:    make(map[string]api.Function, len(lib.defs)),
		table:    handle.NewTable(),
		symPtrs:  make(map[string]uint32),
		deferred: make(map[uint32]bool),
	}

	hostName := lib.name + ".impl"
	hb := rt.NewHostModuleBuilder(hostName)
	mb := newModuleBuilder(hostName, initialPages)
	for _, d := range lib.defs {
		fn := d.fn
		hb.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
				fn(ctx, inst, stack)
			}), d.params, d.results).
			Export(d.name)
		mb.addFunc(d.name, d.params, d.results)
	}

	host, err := hb.Instantiate(ctx)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("instantiate host module %q", hostName), err)
	}

	compiled, err := rt.CompileModule(ctx, mb.build())
	if err != nil {
		_ = host.Close(ctx)
		return nil, errors.Load(fmt.Sprintf("compile library %q", lib.name), err)
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(lib.name))
	if err != nil {
		_ = host.Close(ctx)
		return nil, errors.Load(fmt.Sprintf("instantiate library %q", lib.name), err)
	}

	inst.host = host
	inst.mod = mod
	inst.heap = NewHeap(mod.Memory())
	for _, d := range lib.defs {
		fn := mod.ExportedFunction(d.name)
		if fn == nil {
			continue
		}
		inst.funcs[d.name] = fn
	}

	Logger().Debug("library instantiated",
		zap.String("library", lib.name),
		zap.Int("symbols", len(inst.funcs)),
		zap.Uint32("pages", mb.initialPages))
	return inst, nil
}

// Library returns the library this instance was built from.
func (i *Instance) Library() *Library {
	return i.lib
}

// Heap returns the native heap.
func (i *Instance) Heap() *Heap {
	return i.heap
}

// Has reports whether symbol is exported.
func (i *Instance) Has(symbol string) bool {
	_, ok := i.funcs[symbol]
	return ok
}

// Call invokes an exported symbol.
func (i *Instance) Call(ctx context.Context, symbol string, params ...uint64) ([]uint64, error) {
	fn, ok := i.funcs[symbol]
	if !ok {
		return nil, errors.New(errors.PhaseCall, errors.KindUnknownType).
			NativeType(symbol).
			Detail("symbol %q not found in %s", symbol, i.lib.name).
			Build()
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCall, errors.KindNativeFailure, err, "call "+symbol)
	}
	return results, nil
}

// FuncPtr returns a stable function pointer for a symbol.
func (i *Instance) FuncPtr(symbol string) (uint32, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if ptr, ok := i.symPtrs[symbol]; ok {
		return ptr, nil
	}
	fn, ok := i.funcs[symbol]
	if !ok {
		return 0, errors.New(errors.PhaseCall, errors.KindUnknownType).
			NativeType(symbol).
			Detail("symbol %q not found in %s", symbol, i.lib.name).
			Build()
	}
	ptr := uint32(i.table.Insert(KindSymbol, symbolEntry{fn: fn}))
	if ptr == 0 {
		return 0, errors.NotInitialized(errors.PhaseCall, "function table")
	}
	i.symPtrs[symbol] = ptr
	return ptr, nil
}

// Register installs a callable entry and returns its function pointer.
func (i *Instance) Register(e Entry) (uint32, error) {
	ptr := uint32(i.table.Insert(KindTrampoline, e))
	if ptr == 0 {
		return 0, errors.NotInitialized(errors.PhaseClosure, "function table")
	}
	return ptr, nil
}

// Unregister removes a trampoline. When the entry is executing the removal
// happens as soon as the outermost invocation returns.
func (i *Instance) Unregister(ptr uint32) error {
	_, _, err := i.table.Remove(handle.Handle(ptr))
	if err == handle.ErrOutstandingBorrow {
		i.mu.Lock()
		i.deferred[ptr] = true
		i.mu.Unlock()
		return nil
	}
	return err
}

// Registered reports whether ptr is a live function pointer.
func (i *Instance) Registered(ptr uint32) bool {
	_, ok := i.table.Get(handle.Handle(ptr))
	return ok
}

// CallIndirect invokes a function pointer.
func (i *Instance) CallIndirect(ctx context.Context, ptr uint32, args ...uint64) ([]uint64, error) {
	h := handle.Handle(ptr)
	if !i.table.Borrow(h) {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidData).
			Value(ptr).
			Detail("invalid function pointer 0x%x", ptr).
			Build()
	}
	v, _ := i.table.Get(h)
	entry, ok := v.(Entry)
	if !ok {
		_ = i.table.ReturnBorrow(h)
		return nil, errors.InvalidData(errors.PhaseCall, nil, fmt.Sprintf("function pointer 0x%x is not callable", ptr))
	}

	results, callErr := entry.Invoke(ctx, args)

	_ = i.table.ReturnBorrow(h)
	i.mu.Lock()
	pending := i.deferred[ptr]
	i.mu.Unlock()
	if pending {
		if _, _, err := i.table.Remove(h); err == nil {
			i.mu.Lock()
			delete(i.deferred, ptr)
			i.mu.Unlock()
		}
	}
	return results, callErr
}

// Table exposes the function table.
func (i *Instance) Table() *handle.Table {
	return i.table
}

// Close releases the module and its host functions.
func (i *Instance) Close(ctx context.Context) error {
	_ = i.table.Close()
	var firstErr error
	if i.mod != nil {
		if err := i.mod.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if i.host != nil {
		if err := i.host.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
