package resolver

import (
	"sync"

	"github.com/wippyai/gi-bridge/typelib"
	"github.com/wippyai/gi-bridge/types"
	"golang.org/x/sync/singleflight"
)

// GTypeLoader is implemented by loaders that index entries by type id.
type GTypeLoader interface {
	ByGType(id uint32) (*typelib.Info, bool)
}

// Resolver resolves and caches descriptors.
type Resolver struct {
	loader    typelib.Loader
	live      LiveQuery
	types     sync.Map // qualified name -> *types.Type
	callables sync.Map // qualified name -> *types.Callable
	byGType   sync.Map // uint32 -> *types.Type
	group     singleflight.Group
	liveMu    sync.RWMutex
}

// New creates a resolver over loader.
func New(loader typelib.Loader) *Resolver {
	return &Resolver{loader: loader}
}

// Loader returns the metadata source.
func (r *Resolver) Loader() typelib.Loader {
	return r.loader
}

// Resolve returns the descriptor for a qualified type name.
func (r *Resolver) Resolve(name string) (*types.Type, error) {
	if t, ok := r.types.Load(name); ok {
		return t.(*types.Type), nil
	}

	v, err, _ := r.group.Do("type:"+name, func() (any, error) {
		s := newSession(r)
		t, err := s.named(name)
		if err != nil {
			return nil, err
		}
		return s.publish(t), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Type), nil
}

// ResolveInfo resolves a use-site type reference.
func (r *Resolver) ResolveInfo(ti *typelib.TypeInfo) (*types.Type, error) {
	s := newSession(r)
	t, err := s.use(ti)
	if err != nil {
		return nil, err
	}
	return s.publish(t), nil
}

// Callable returns the signature of a qualified function or method name
// such as "Demo.add" or "Demo.Widget.get_label".
func (r *Resolver) Callable(name string) (*types.Callable, error) {
	if c, ok := r.callables.Load(name); ok {
		return c.(*types.Callable), nil
	}

	v, err, _ := r.group.Do("callable:"+name, func() (any, error) {
		info, err := r.loader.Lookup(name)
		if err != nil {
			return nil, err
		}
		sig, err := r.loader.Signature(info)
		if err != nil {
			return nil, err
		}

		s := newSession(r)
		var owner *types.Type
		if info.Container != "" {
			if owner, err = s.named(info.Container); err != nil {
				return nil, err
			}
		}
		c, err := s.callable(sig, info.QualifiedName(), owner)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			c.Owner = s.publish(owner)
		} else {
			s.publish(nil)
		}

		actual, _ := r.callables.LoadOrStore(name, c)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Callable), nil
}

// ByGType returns the descriptor registered under a type id. Fundamental
// ids yield fresh scalar descriptors.
func (r *Resolver) ByGType(id uint32) (*types.Type, bool) {
	if t, ok := r.byGType.Load(id); ok {
		return t.(*types.Type), true
	}
	if k, ok := types.KindForGType(id); ok {
		return types.Basic(k), true
	}
	gl, ok := r.loader.(GTypeLoader)
	if !ok {
		return nil, false
	}
	info, ok := gl.ByGType(id)
	if !ok {
		return nil, false
	}
	t, err := r.Resolve(info.QualifiedName())
	if err != nil {
		return nil, false
	}
	return t, true
}
