package resolver

import (
	"fmt"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/typelib"
	"github.com/wippyai/gi-bridge/types"
)

// session is one top-level resolution. Named descriptors built during a
// session stay private until publish, so other goroutines never observe a
// partially built descriptor.
type session struct {
	r        *Resolver
	building map[string]*types.Type
	done     map[*types.Type]bool
	built    []*types.Type
}

func newSession(r *Resolver) *session {
	return &session{r: r, building: make(map[string]*types.Type), done: make(map[*types.Type]bool)}
}

// publish stores every descriptor built in this session and returns the
// cached counterpart of t.
func (s *session) publish(t *types.Type) *types.Type {
	for _, b := range s.built {
		actual, _ := s.r.types.LoadOrStore(b.Name, b)
		if b.GType != 0 {
			s.r.byGType.LoadOrStore(b.GType, actual)
		}
	}
	s.built = nil
	if t != nil && t.Kind.IsNamed() {
		if actual, ok := s.r.types.Load(t.Name); ok {
			return actual.(*types.Type)
		}
	}
	return t
}

func (s *session) named(name string) (*types.Type, error) {
	if t, ok := s.r.types.Load(name); ok {
		return t.(*types.Type), nil
	}
	if t, ok := s.building[name]; ok {
		return t, nil
	}

	info, err := s.r.loader.Lookup(name)
	if err != nil {
		return nil, err
	}

	t := &types.Type{
		Name:        name,
		GType:       info.GType,
		LengthParam: -1,
		Copy:        info.Copy,
		Free:        info.Free,
		Symbols:     info.Symbols,
	}
	switch info.Kind {
	case typelib.InfoStruct:
		t.Kind = types.KindStruct
	case typelib.InfoObject:
		t.Kind = types.KindObject
	case typelib.InfoInterface:
		t.Kind = types.KindInterface
	case typelib.InfoFundamental:
		t.Kind = types.KindFundamental
	case typelib.InfoEnum:
		t.Kind = types.KindEnum
	case typelib.InfoFlags:
		t.Kind = types.KindFlags
	case typelib.InfoCallback:
		t.Kind = types.KindCallback
	default:
		return nil, errors.New(errors.PhaseResolve, errors.KindTypeMismatch).
			NativeType(name).
			Detail("%s entry is not a type", info.Kind).
			Build()
	}

	s.building[name] = t
	if err := s.fill(t, info); err != nil {
		return nil, err
	}
	s.done[t] = true
	s.built = append(s.built, t)
	return t, nil
}

func (s *session) fill(t *types.Type, info *typelib.Info) error {
	if info.Parent != "" {
		parent, err := s.named(info.Parent)
		if err != nil {
			return wrapMember(t.Name, "parent", err)
		}
		t.Parent = parent
	}
	for _, name := range info.Interfaces {
		iface, err := s.named(name)
		if err != nil {
			return wrapMember(t.Name, "interface", err)
		}
		t.Interfaces = append(t.Interfaces, iface)
	}

	for i := range info.Values {
		v := info.Values[i]
		t.Values = append(t.Values, types.EnumValue{Name: v.Name, Value: v.Value})
	}

	for i := range info.Fields {
		fi := &info.Fields[i]
		ft, err := s.use(&fi.Type)
		if err != nil {
			return wrapMember(t.Name, fi.Name, err)
		}
		f := &types.Field{
			Name:     fi.Name,
			Type:     ft,
			Pointer:  fi.Type.Pointer,
			Nullable: fi.Type.Nullable,
			Readonly: fi.Readonly,
		}
		if _, pending := s.building[ft.Name]; f.Inline() && ft.Kind == types.KindStruct && pending && !s.done[ft] {
			return errors.InvalidData(errors.PhaseResolve, []string{t.Name, fi.Name}, "recursive inline struct field")
		}
		t.Fields = append(t.Fields, f)
	}
	if t.Kind == types.KindStruct {
		types.ComputeLayout(t)
	}

	for i := range info.Properties {
		pi := &info.Properties[i]
		pt, err := s.use(&pi.Type)
		if err != nil {
			return wrapMember(t.Name, pi.Name, err)
		}
		p := &types.Property{Name: pi.Name, Type: pt, Owner: t}
		switch pi.Access {
		case "rw":
			p.Flags = types.PropReadable | types.PropWritable
		case "r":
			p.Flags = types.PropReadable
		case "w":
			p.Flags = types.PropWritable
		}
		if pi.Construct {
			p.Flags |= types.PropConstruct
		}
		t.Properties = append(t.Properties, p)
	}

	for i := range info.Signals {
		si := &info.Signals[i]
		sig := &types.Signal{Name: si.Name, Owner: t}
		c, err := s.callable(&typelib.CallableInfo{Name: si.Name, Params: si.Params, Return: si.Return}, t.Name+"::"+si.Name, t)
		if err != nil {
			return wrapMember(t.Name, si.Name, err)
		}
		sig.Params = c.Params
		sig.Return = c.Return
		t.Signals = append(t.Signals, sig)
	}

	for _, mi := range info.Methods {
		c, err := s.callable(mi, t.Name+"."+mi.Name, t)
		if err != nil {
			return wrapMember(t.Name, mi.Name, err)
		}
		t.Methods = append(t.Methods, c)
	}

	if info.Kind == typelib.InfoCallback {
		c, err := s.callable(info.Signature, t.Name, nil)
		if err != nil {
			return err
		}
		t.Callable = c
	}
	return nil
}

func (s *session) use(ti *typelib.TypeInfo) (*types.Type, error) {
	switch ti.Tag {
	case typelib.TagVoid:
		return types.Basic(types.KindVoid), nil
	case typelib.TagBoolean:
		return types.Basic(types.KindBool), nil
	case typelib.TagInt8:
		return types.Basic(types.KindInt8), nil
	case typelib.TagUint8:
		return types.Basic(types.KindUint8), nil
	case typelib.TagInt16:
		return types.Basic(types.KindInt16), nil
	case typelib.TagUint16:
		return types.Basic(types.KindUint16), nil
	case typelib.TagInt32:
		return types.Basic(types.KindInt32), nil
	case typelib.TagUint32:
		return types.Basic(types.KindUint32), nil
	case typelib.TagInt64:
		return types.Basic(types.KindInt64), nil
	case typelib.TagUint64:
		return types.Basic(types.KindUint64), nil
	case typelib.TagFloat:
		return types.Basic(types.KindFloat), nil
	case typelib.TagDouble:
		return types.Basic(types.KindDouble), nil
	case typelib.TagUTF8:
		return types.Basic(types.KindUTF8), nil
	case typelib.TagFilename:
		return types.Basic(types.KindFilename), nil
	case typelib.TagGType:
		return types.Basic(types.KindGType), nil
	case typelib.TagPointer:
		return types.Basic(types.KindPointer), nil
	case typelib.TagValue:
		return types.Basic(types.KindValue), nil
	case typelib.TagVariant:
		return types.Basic(types.KindVariant), nil
	case typelib.TagError:
		return types.Basic(types.KindError), nil
	case typelib.TagInterface:
		return s.named(ti.Name)

	case typelib.TagArray:
		if ti.Elem == nil {
			return nil, errors.InvalidData(errors.PhaseResolve, nil, "array without element type")
		}
		elem, err := s.use(ti.Elem)
		if err != nil {
			return nil, err
		}
		t := &types.Type{
			Kind:         types.KindArray,
			Elem:         elem,
			LengthParam:  -1,
			ElemNullable: ti.Elem.Nullable,
			ElemByValue:  (elem.Kind == types.KindStruct || elem.Kind == types.KindValue) && !ti.Elem.Pointer,
		}
		switch {
		case ti.Fixed > 0:
			t.Length = types.LengthFixed
			t.Fixed = ti.Fixed
		case ti.Length != "":
			t.Length = types.LengthParam
		default:
			t.Length = types.LengthZeroTerminated
		}
		return t, nil

	case typelib.TagList, typelib.TagSList:
		if ti.Elem == nil {
			return nil, errors.InvalidData(errors.PhaseResolve, nil, "list without element type")
		}
		elem, err := s.use(ti.Elem)
		if err != nil {
			return nil, err
		}
		k := types.KindList
		if ti.Tag == typelib.TagSList {
			k = types.KindSList
		}
		return &types.Type{Kind: k, Elem: elem, ElemNullable: ti.Elem.Nullable, LengthParam: -1}, nil

	case typelib.TagHash:
		if ti.Key == nil || ti.Value == nil {
			return nil, errors.InvalidData(errors.PhaseResolve, nil, "hash without key or value type")
		}
		key, err := s.use(ti.Key)
		if err != nil {
			return nil, err
		}
		val, err := s.use(ti.Value)
		if err != nil {
			return nil, err
		}
		return &types.Type{Kind: types.KindHash, Key: key, Value: val, ValueNullable: ti.Value.Nullable, LengthParam: -1}, nil
	}

	return nil, errors.UnknownType(string(ti.Tag))
}

func (s *session) callable(ci *typelib.CallableInfo, name string, owner *types.Type) (*types.Callable, error) {
	c := &types.Callable{
		Name:           name,
		Symbol:         ci.Symbol,
		Owner:          owner,
		Method:         ci.Method,
		Constructor:    ci.Constructor,
		Throws:         ci.Throws,
		ReturnTransfer: types.ParseTransfer(ci.ReturnTransfer),
	}

	index := make(map[string]int, len(ci.Params))
	for i, pi := range ci.Params {
		index[pi.Name] = i
	}
	lengthOf := func(ti *typelib.TypeInfo, t *types.Type) {
		if t.Kind == types.KindArray && t.Length == types.LengthParam {
			t.LengthParam = index[ti.Length]
		}
	}

	for i := range ci.Params {
		pi := &ci.Params[i]
		pt, err := s.use(&pi.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %s: %w", name, pi.Name, err)
		}
		lengthOf(&pi.Type, pt)

		p := &types.Param{
			Name:            pi.Name,
			Type:            pt,
			Direction:       types.ParseDirection(pi.Direction),
			Transfer:        types.ParseTransfer(pi.Transfer),
			Scope:           types.ParseScope(pi.Scope),
			CallerAllocates: pi.CallerAllocates,
			Nullable:        pi.Type.Nullable,
			Optional:        pi.Optional,
			Closure:         -1,
			Destroy:         -1,
		}
		if pi.Closure != "" {
			p.Closure = index[pi.Closure]
		}
		if pi.Destroy != "" {
			p.Destroy = index[pi.Destroy]
		}
		c.Params = append(c.Params, p)
	}

	if ci.Return != nil && ci.Return.Tag != typelib.TagVoid {
		rt, err := s.use(ci.Return)
		if err != nil {
			return nil, fmt.Errorf("%s: return: %w", name, err)
		}
		lengthOf(ci.Return, rt)
		c.Return = rt
		c.ReturnNullable = ci.Return.Nullable
	}
	return c, nil
}

func wrapMember(owner, member string, err error) error {
	kind := errors.KindOf(err)
	if kind == "" {
		kind = errors.KindInvalidData
	}
	return errors.New(errors.PhaseResolve, kind).
		Path(owner, member).
		Cause(err).
		Detail("resolve %s.%s", owner, member).
		Build()
}
