package instance

import (
	"context"
	"runtime"
	"weak"

	"github.com/wippyai/gi-bridge/types"
	"go.uber.org/zap"
)

// Fundamental is a host handle to an instance of a non-object
// refcounted type. Its ref and unref functions come from the nearest
// type in the hierarchy that declares them.
type Fundamental struct {
	m    *Manager
	t    *types.Type
	addr uint32
}

func (m *Manager) wrapFundamental(ctx context.Context, t *types.Type, addr uint32, transfer types.Transfer) (*Fundamental, error) {
	m.mu.Lock()
	if wp, ok := m.fundamentals[addr]; ok {
		if f := wp.Value(); f != nil {
			m.mu.Unlock()
			if transfer != types.TransferNone {
				if err := m.fundamentalUnref(ctx, f.t, addr); err != nil {
					return nil, err
				}
			}
			return f, nil
		}
	}
	m.mu.Unlock()

	ct := m.concreteType(ctx, t, addr)
	unref, err := symbol(ct, "unref")
	if err != nil {
		return nil, err
	}
	if transfer == types.TransferNone {
		if err := m.fundamentalRef(ctx, ct, addr); err != nil {
			return nil, err
		}
	}

	f := &Fundamental{m: m, t: ct, addr: addr}
	m.mu.Lock()
	m.fundamentals[addr] = weak.Make(f)
	m.mu.Unlock()
	runtime.AddCleanup(f, m.dropFundamental, release{kind: "fundamental", symbol: unref, t: ct, addr: addr})

	Logger().Debug("fundamental wrapped", zap.String("type", ct.Name), zap.Uint32("addr", addr))
	return f, nil
}

func (m *Manager) dropFundamental(r release) {
	m.mu.Lock()
	if wp, ok := m.fundamentals[r.addr]; ok && wp.Value() == nil {
		delete(m.fundamentals, r.addr)
	}
	m.mu.Unlock()
	m.enqueue(r)
}

func (m *Manager) fundamentalRef(ctx context.Context, t *types.Type, addr uint32) error {
	sym, err := symbol(t, "ref")
	if err != nil {
		return err
	}
	_, err = m.natives.Call(ctx, sym, uint64(addr))
	return err
}

func (m *Manager) fundamentalUnref(ctx context.Context, t *types.Type, addr uint32) error {
	sym, err := symbol(t, "unref")
	if err != nil {
		return err
	}
	_, err = m.natives.Call(ctx, sym, uint64(addr))
	return err
}

// Type returns the most derived known descriptor.
func (f *Fundamental) Type() *types.Type {
	return f.t
}

// Addr returns the native address.
func (f *Fundamental) Addr() uint32 {
	return f.addr
}

// Call invokes a method with f as the instance.
func (f *Fundamental) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	return f.m.method(ctx, f.t, f, method, args)
}
