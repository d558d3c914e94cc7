package transcoder

import (
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/internal/coerce"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/types"
	"github.com/wippyai/gi-bridge/variant"
)

// GValue is the host form of a generic value: a type tag and a payload
// that change independently.
type GValue struct {
	typ   *types.Type
	value any
}

// NewGValue creates a value holding v under tag t.
func NewGValue(t *types.Type, v any) *GValue {
	return &GValue{typ: t, value: v}
}

// Type returns the type tag, nil when unset.
func (g *GValue) Type() *types.Type {
	return g.typ
}

// Get returns the payload.
func (g *GValue) Get() any {
	return g.value
}

// SetType assigns a new tag. A different tag clears the payload.
func (g *GValue) SetType(t *types.Type) {
	if sameTag(g.typ, t) {
		return
	}
	g.typ = t
	g.value = nil
}

// Set assigns the payload and keeps the tag, also when v is nil.
func (g *GValue) Set(v any) {
	g.value = v
}

func sameTag(a, b *types.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a == b || (a.Kind == b.Kind && a.Name == b.Name)
}

var variantTag = types.Basic(types.KindVariant)

// VariantType is the tag of values holding a *variant.Value.
func VariantType() *types.Type {
	return variantTag
}

// inferTag picks a tag for an untagged host value.
func inferTag(v any) (*types.Type, bool) {
	switch x := v.(type) {
	case bool:
		return types.Basic(types.KindBool), true
	case string:
		return types.Basic(types.KindUTF8), true
	case float32:
		return types.Basic(types.KindFloat), true
	case float64:
		return types.Basic(types.KindDouble), true
	case int8, int16, int32:
		return types.Basic(types.KindInt32), true
	case uint8, uint16, uint32:
		return types.Basic(types.KindUint32), true
	case int, int64:
		if _, ok := coerce.Signed(x, 32); ok {
			return types.Basic(types.KindInt32), true
		}
		return types.Basic(types.KindInt64), true
	case uint, uint64:
		return types.Basic(types.KindUint64), true
	case *variant.Value:
		return variantTag, true
	}
	return nil, false
}

// storeValue writes a host value into the GValue at addr. The GValue owns
// string and variant payloads; instance payloads are borrowed.
func (e *Encoder) storeValue(addr uint32, v any, opts Options, h Heap, allocs *AllocationList, path []string) error {
	var t *types.Type
	var payload any
	switch gv := v.(type) {
	case *GValue:
		if gv == nil {
			return native.WriteValue(h, addr, 0, 0)
		}
		t, payload = gv.typ, gv.value
	case GValue:
		t, payload = gv.typ, gv.value
	case nil:
		return native.WriteValue(h, addr, 0, 0)
	default:
		var ok bool
		if t, ok = inferTag(v); !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), "GValue")
		}
		payload = v
	}
	if t == nil {
		return native.WriteValue(h, addr, 0, 0)
	}

	gtype := t.GType
	if gtype == types.GTypeInvalid {
		gtype = t.Kind.FundamentalGType()
	}
	if payload == nil {
		return native.WriteValue(h, addr, gtype, 0)
	}

	var data uint64
	switch {
	case isScalar(t.Kind):
		bits, err := e.scalarBits(t, payload, path)
		if err != nil {
			return err
		}
		data = bits
		if t.Kind.Bits() <= 32 {
			data = uint64(uint32(bits))
		}
	case t.Kind == types.KindUTF8 || t.Kind == types.KindFilename:
		ptr, err := e.encodeString(t, payload, Options{Transfer: opts.Transfer}, h, allocs, path)
		if err != nil {
			return err
		}
		data = uint64(ptr)
	case t.Kind == types.KindVariant:
		ptr, err := e.Pointer(t, payload, Options{Transfer: opts.Transfer}, h, allocs, path)
		if err != nil {
			return err
		}
		data = uint64(ptr)
	default:
		ptr, err := e.Pointer(t, payload, Options{Transfer: types.TransferNone, Nullable: true}, h, allocs, path)
		if err != nil {
			return err
		}
		data = uint64(ptr)
	}
	return native.WriteValue(h, addr, gtype, data)
}

// loadValue reads the GValue at addr. Under transfer everything its owned
// payload is released after decoding.
func (d *Decoder) loadValue(addr uint32, opts Options, h Heap, path []string) (any, error) {
	gtype, data, err := native.ReadValue(h, addr)
	if err != nil {
		return nil, err
	}
	if gtype == types.GTypeInvalid {
		return &GValue{}, nil
	}

	t, err := d.valueTag(gtype)
	if err != nil {
		return nil, err
	}

	var payload any
	switch {
	case isScalar(t.Kind):
		bits := data
		if t.Kind.Bits() <= 32 {
			bits = wordBits(t.Kind, uint64(uint32(data)))
		}
		if payload, err = d.scalarValue(t, bits); err != nil {
			return nil, err
		}
	case t.Kind == types.KindUTF8 || t.Kind == types.KindFilename || t.Kind == types.KindVariant:
		if payload, err = d.liftPointer(t, uint32(data), Options{}, h, path); err != nil {
			return nil, err
		}
	default:
		if payload, err = d.liftPointer(t, uint32(data), Options{Transfer: types.TransferNone}, h, path); err != nil {
			return nil, err
		}
	}

	if opts.Transfer == types.TransferEverything {
		if err := native.ValueUnset(h, addr); err != nil {
			return nil, err
		}
	}
	return &GValue{typ: t, value: payload}, nil
}

func (d *Decoder) valueTag(gtype uint32) (*types.Type, error) {
	if gtype == types.GTypeVariant {
		return variantTag, nil
	}
	if k, ok := types.KindForGType(gtype); ok {
		return types.Basic(k), nil
	}
	if d.types == nil {
		return nil, errors.NotInitialized(errors.PhaseDecode, "type lookup")
	}
	return d.types.ByGType(gtype)
}
