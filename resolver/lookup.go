package resolver

import (
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/types"
)

// LiveQuery asks the running native type system for a member the static
// metadata does not declare. Only properties are discoverable this way.
type LiveQuery func(t *types.Type, name string) (*types.Member, bool)

// strategy is one step of the member lookup chain.
type strategy func(t *types.Type, folded string, kind types.MemberKind) (*types.Member, bool)

// SetLiveQuery installs the last strategy of the lookup chain.
func (r *Resolver) SetLiveQuery(q LiveQuery) {
	r.liveMu.Lock()
	r.live = q
	r.liveMu.Unlock()
}

// Lookup finds a member by name. Names are folded so "nick_name",
// "nick-name" and "Nick-Name" are equal. Strategies run in fixed order:
// own members, parents, interfaces, live class query.
func (r *Resolver) Lookup(t *types.Type, name string, kind types.MemberKind) (*types.Member, bool) {
	if t == nil {
		return nil, false
	}
	folded := types.FoldName(name)
	for _, s := range []strategy{ownMembers, parentMembers, interfaceMembers, r.liveMembers} {
		if m, ok := s(t, folded, kind); ok {
			return m, true
		}
	}
	return nil, false
}

// Member is Lookup returning NoSuchMember on a miss.
func (r *Resolver) Member(t *types.Type, name string, kind types.MemberKind) (*types.Member, error) {
	if m, ok := r.Lookup(t, name, kind); ok {
		return m, nil
	}
	owner := "<nil>"
	if t != nil {
		owner = t.Name
	}
	return nil, errors.NoSuchMember(owner, name)
}

func ownMembers(t *types.Type, folded string, kind types.MemberKind) (*types.Member, bool) {
	want := func(k types.MemberKind) bool { return kind == types.MemberAny || kind == k }

	if want(types.MemberField) {
		for _, f := range t.Fields {
			if types.FoldName(f.Name) == folded {
				return &types.Member{Kind: types.MemberField, Name: f.Name, Field: f, Owner: t}, true
			}
		}
	}
	if want(types.MemberProperty) {
		for _, p := range t.Properties {
			if types.FoldName(p.Name) == folded {
				return &types.Member{Kind: types.MemberProperty, Name: p.Name, Property: p, Owner: t}, true
			}
		}
	}
	if want(types.MemberSignal) {
		for _, s := range t.Signals {
			if types.FoldName(s.Name) == folded {
				return &types.Member{Kind: types.MemberSignal, Name: s.Name, Signal: s, Owner: t}, true
			}
		}
	}
	if want(types.MemberMethod) {
		for _, m := range t.Methods {
			short := m.Name[len(t.Name)+1:]
			if types.FoldName(short) == folded {
				return &types.Member{Kind: types.MemberMethod, Name: short, Method: m, Owner: t}, true
			}
		}
	}
	return nil, false
}

func parentMembers(t *types.Type, folded string, kind types.MemberKind) (*types.Member, bool) {
	for p := t.Parent; p != nil; p = p.Parent {
		if m, ok := ownMembers(p, folded, kind); ok {
			return m, true
		}
	}
	return nil, false
}

func interfaceMembers(t *types.Type, folded string, kind types.MemberKind) (*types.Member, bool) {
	seen := make(map[*types.Type]bool)
	var walk func(iface *types.Type) (*types.Member, bool)
	walk = func(iface *types.Type) (*types.Member, bool) {
		if seen[iface] {
			return nil, false
		}
		seen[iface] = true
		if m, ok := ownMembers(iface, folded, kind); ok {
			return m, true
		}
		for _, pre := range iface.Interfaces {
			if m, ok := walk(pre); ok {
				return m, true
			}
		}
		return nil, false
	}

	for cur := t; cur != nil; cur = cur.Parent {
		for _, iface := range cur.Interfaces {
			if m, ok := walk(iface); ok {
				return m, true
			}
		}
	}
	return nil, false
}

func (r *Resolver) liveMembers(t *types.Type, folded string, kind types.MemberKind) (*types.Member, bool) {
	if kind != types.MemberAny && kind != types.MemberProperty {
		return nil, false
	}
	r.liveMu.RLock()
	q := r.live
	r.liveMu.RUnlock()
	if q == nil {
		return nil, false
	}
	return q(t, folded)
}
