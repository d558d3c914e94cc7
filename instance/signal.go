package instance

import (
	"context"

	"github.com/wippyai/gi-bridge/closure"
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/transcoder"
	"github.com/wippyai/gi-bridge/types"
	"go.uber.org/zap"
)

// Signal is a bound signal of one object.
type Signal struct {
	obj *Object
	sig *types.Signal
}

// ConnectOptions tune a connection.
type ConnectOptions struct {
	// Detail restricts the handler to one detail, as in "notify::label".
	Detail string
	// After runs the handler after the default handler.
	After bool
}

// Signal returns the signal name of o.
func (o *Object) Signal(name string) (*Signal, error) {
	mem, err := o.m.res.Member(o.t, name, types.MemberSignal)
	if err != nil {
		return nil, err
	}
	return &Signal{obj: o, sig: mem.Signal}, nil
}

// Name returns the declared signal name.
func (s *Signal) Name() string {
	return s.sig.Name
}

// Connect attaches handler. The handler receives the emitting object
// followed by the signal arguments and returns at most one value. The
// trampoline lives until the native side disconnects it.
func (s *Signal) Connect(ctx context.Context, handler closure.Func, opts ConnectOptions) (uint32, error) {
	o := s.obj
	sym, err := o.entry("connect")
	if err != nil {
		return 0, err
	}
	tr, err := o.m.closures.WrapMarshal(handler, s.sig.Return, closure.DestroyNotified)
	if err != nil {
		return 0, err
	}
	notifier, err := o.m.closures.DestroyNotifier()
	if err != nil {
		tr.Discard()
		return 0, err
	}

	name := s.sig.Name
	if opts.Detail != "" {
		name += "::" + opts.Detail
	}
	c := &types.Callable{
		Name:   o.t.Name + ".connect",
		Symbol: sym,
		Owner:  o.t,
		Method: true,
		Return: u32Type,
		Params: []*types.Param{
			param("signal", utf8Type),
			param("handler", ptrType),
			param("data", ptrType),
			param("destroy", ptrType),
			param("after", boolType),
		},
	}
	res, err := o.m.disp.Invoke(ctx, c, o, name,
		transcoder.FuncPtr(tr.Ptr()), transcoder.FuncPtr(tr.Ptr()), transcoder.FuncPtr(notifier), opts.After)
	if err != nil {
		tr.Discard()
		return 0, err
	}
	id, _ := res[0].(uint32)
	if id == 0 {
		tr.Discard()
		return 0, errors.New(errors.PhaseLifecycle, errors.KindNoSuchMember).
			NativeType(o.t.Name).
			Detail("%s refused signal %q", o.t.Name, name).
			Build()
	}
	Logger().Debug("signal connected",
		zap.String("type", o.t.Name),
		zap.String("signal", name),
		zap.Uint32("id", id),
		zap.Uint32("trampoline", tr.Ptr()))
	return id, nil
}

// Emit runs the handlers with args and returns the signal's result, nil
// for void signals.
func (s *Signal) Emit(ctx context.Context, args ...any) (any, error) {
	o := s.obj
	if len(args) != len(s.sig.Params) {
		return nil, errors.New(errors.PhaseCall, errors.KindTypeMismatch).
			NativeType(o.t.Name).
			Detail("signal %s takes %d arguments, got %d", s.sig.Name, len(s.sig.Params), len(args)).
			Build()
	}
	sym, err := o.entry("emit")
	if err != nil {
		return nil, err
	}

	values := make([]any, len(args))
	for i, a := range args {
		values[i] = transcoder.NewGValue(s.sig.Params[i].Type, a)
	}
	ret := param("return", valueType())
	ret.Direction = types.DirOut
	ret.CallerAllocates = true
	ret.Transfer = types.TransferEverything

	c := &types.Callable{
		Name:   o.t.Name + ".emit",
		Symbol: sym,
		Owner:  o.t,
		Method: true,
		Params: []*types.Param{
			param("signal", utf8Type),
			param("n", int32Type),
			param("params", &types.Type{Kind: types.KindArray, Elem: valueType(), Length: types.LengthParam, LengthParam: 1, ElemByValue: true}),
			ret,
		},
	}
	res, err := o.m.disp.Invoke(ctx, c, o, s.sig.Name, values)
	if err != nil {
		return nil, err
	}
	if gv, ok := res[0].(*transcoder.GValue); ok {
		return gv.Get(), nil
	}
	return res[0], nil
}

// Disconnect removes a handler by id. The native side releases the
// handler through its destroy notifier.
func (o *Object) Disconnect(ctx context.Context, id uint32) error {
	sym, err := o.entry("disconnect")
	if err != nil {
		return err
	}
	c := &types.Callable{
		Name:   o.t.Name + ".disconnect",
		Symbol: sym,
		Owner:  o.t,
		Method: true,
		Params: []*types.Param{param("id", u32Type)},
	}
	_, err = o.m.disp.Invoke(ctx, c, o, id)
	return err
}
