package transcoder

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/internal/coerce"
	"github.com/wippyai/gi-bridge/types"
)

var typeName = coerce.TypeName

func mismatch(phase errors.Phase, path []string, v any, t *types.Type) error {
	return errors.TypeMismatch(phase, path, typeName(v), t.String())
}

// isScalar reports whether t fits in one core value without memory.
func isScalar(k types.Kind) bool {
	switch k {
	case types.KindBool, types.KindInt8, types.KindUint8, types.KindInt16, types.KindUint16,
		types.KindInt32, types.KindUint32, types.KindInt64, types.KindUint64,
		types.KindFloat, types.KindDouble, types.KindEnum, types.KindFlags, types.KindGType:
		return true
	}
	return false
}

// scalarBits converts a host value to the raw bits of a scalar kind:
// integers zero- or sign-extended to 64 bits, floats as IEEE bits.
func (e *Encoder) scalarBits(t *types.Type, v any, path []string) (uint64, error) {
	switch k := t.Kind; k {
	case types.KindBool:
		b, ok := v.(bool)
		if !ok {
			return 0, mismatch(errors.PhaseEncode, path, v, t)
		}
		if b {
			return 1, nil
		}
		return 0, nil

	case types.KindInt8, types.KindInt16, types.KindInt32, types.KindInt64:
		n, ok := coerce.Signed(v, k.Bits())
		if !ok {
			return 0, rangeError(path, v, t)
		}
		return uint64(n), nil

	case types.KindUint8, types.KindUint16, types.KindUint32, types.KindUint64:
		n, ok := coerce.Unsigned(v, k.Bits())
		if !ok {
			return 0, rangeError(path, v, t)
		}
		return n, nil

	case types.KindFloat:
		f, ok := coerce.Float(v)
		if !ok {
			return 0, mismatch(errors.PhaseEncode, path, v, t)
		}
		return uint64(math.Float32bits(float32(f))), nil

	case types.KindDouble:
		f, ok := coerce.Float(v)
		if !ok {
			return 0, mismatch(errors.PhaseEncode, path, v, t)
		}
		return math.Float64bits(f), nil

	case types.KindEnum:
		return e.enumBits(t, v, path)

	case types.KindFlags:
		return e.flagBits(t, v, path)

	case types.KindGType:
		return e.gtypeBits(t, v, path)
	}
	return 0, errors.Unsupported(errors.PhaseEncode, "scalar kind "+t.Kind.String())
}

func rangeError(path []string, v any, t *types.Type) error {
	if coerce.IsNumber(v) {
		return errors.OutOfRange(errors.PhaseEncode, path, v, t.String())
	}
	return mismatch(errors.PhaseEncode, path, v, t)
}

func (e *Encoder) enumBits(t *types.Type, v any, path []string) (uint64, error) {
	if s, ok := v.(string); ok {
		n, ok := t.EnumValue(s)
		if !ok {
			return 0, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
				Path(path...).
				GoType("string").
				NativeType(t.String()).
				Detail("%q is not a member of %s", s, t.String()).
				Build()
		}
		return uint64(uint32(int32(n))), nil
	}
	n, ok := coerce.Signed(v, 32)
	if !ok {
		return 0, rangeError(path, v, t)
	}
	return uint64(uint32(int32(n))), nil
}

func (e *Encoder) flagBits(t *types.Type, v any, path []string) (uint64, error) {
	switch fv := v.(type) {
	case types.FlagSet:
		return uint64(fv.Bits), nil
	case *types.FlagSet:
		if fv == nil {
			return 0, nil
		}
		return uint64(fv.Bits), nil
	case string:
		var bits uint32
		for _, name := range strings.Split(fv, "|") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			b, err := flagBit(t, name, path)
			if err != nil {
				return 0, err
			}
			bits |= b
		}
		return uint64(bits), nil
	case []any:
		var bits uint32
		for i, item := range fv {
			name, ok := item.(string)
			if !ok {
				n, ok := coerce.Unsigned(item, 32)
				if !ok {
					return 0, mismatch(errors.PhaseEncode, childPath(path, fmt.Sprint(i+1)), item, t)
				}
				bits |= uint32(n)
				continue
			}
			b, err := flagBit(t, name, path)
			if err != nil {
				return 0, err
			}
			bits |= b
		}
		return uint64(bits), nil
	case map[string]any:
		names := make([]string, 0, len(fv))
		for name := range fv {
			names = append(names, name)
		}
		sort.Strings(names)
		var bits uint32
		for _, name := range names {
			on, ok := fv[name].(bool)
			if !ok {
				return 0, mismatch(errors.PhaseEncode, childPath(path, name), fv[name], types.Basic(types.KindBool))
			}
			if !on {
				continue
			}
			b, err := flagBit(t, name, path)
			if err != nil {
				return 0, err
			}
			bits |= b
		}
		return uint64(bits), nil
	}
	n, ok := coerce.Unsigned(v, 32)
	if !ok {
		return 0, rangeError(path, v, t)
	}
	return n, nil
}

func flagBit(t *types.Type, name string, path []string) (uint32, error) {
	n, ok := t.EnumValue(name)
	if !ok {
		return 0, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			Path(path...).
			GoType("string").
			NativeType(t.String()).
			Detail("%q is not a flag of %s", name, t.String()).
			Build()
	}
	return uint32(n), nil
}

func (e *Encoder) gtypeBits(t *types.Type, v any, path []string) (uint64, error) {
	switch gv := v.(type) {
	case *types.Type:
		if gv == nil {
			return uint64(types.GTypeInvalid), nil
		}
		return uint64(gv.GType), nil
	case string:
		if e.types == nil {
			return 0, errors.NotInitialized(errors.PhaseEncode, "type lookup")
		}
		rt, err := e.types.Resolve(gv)
		if err != nil {
			return 0, err
		}
		return uint64(rt.GType), nil
	case nil:
		return uint64(types.GTypeInvalid), nil
	}
	n, ok := coerce.Unsigned(v, 32)
	if !ok {
		return 0, rangeError(path, v, t)
	}
	return n, nil
}

// scalarValue converts raw bits of a scalar kind to its host value.
func (d *Decoder) scalarValue(t *types.Type, bits uint64) (any, error) {
	switch t.Kind {
	case types.KindBool:
		return uint32(bits) != 0, nil
	case types.KindInt8:
		return int8(bits), nil
	case types.KindUint8:
		return uint8(bits), nil
	case types.KindInt16:
		return int16(bits), nil
	case types.KindUint16:
		return uint16(bits), nil
	case types.KindInt32:
		return int32(bits), nil
	case types.KindUint32:
		return uint32(bits), nil
	case types.KindInt64:
		return int64(bits), nil
	case types.KindUint64:
		return bits, nil
	case types.KindFloat:
		return math.Float32frombits(uint32(bits)), nil
	case types.KindDouble:
		return math.Float64frombits(bits), nil
	case types.KindEnum:
		n := int64(int32(bits))
		if name, ok := t.EnumName(n); ok {
			return name, nil
		}
		return n, nil
	case types.KindFlags:
		return types.FlagSet{Type: t, Bits: uint32(bits)}, nil
	case types.KindGType:
		return d.gtypeName(uint32(bits))
	}
	return nil, errors.Unsupported(errors.PhaseDecode, "scalar kind "+t.Kind.String())
}

func (d *Decoder) gtypeName(id uint32) (any, error) {
	if id == types.GTypeInvalid {
		return nil, nil
	}
	if d.types != nil {
		if t, err := d.types.ByGType(id); err == nil {
			return t.Name, nil
		}
	}
	if k, ok := types.KindForGType(id); ok {
		return k.String(), nil
	}
	return nil, errors.New(errors.PhaseDecode, errors.KindUnknownType).
		Value(id).
		Detail("unknown gtype %d", id).
		Build()
}

// coreWord converts raw scalar bits to the core value passed to natives.
func coreWord(k types.Kind, bits uint64) uint64 {
	switch k {
	case types.KindInt64, types.KindUint64, types.KindDouble:
		return bits
	case types.KindInt8, types.KindInt16, types.KindInt32, types.KindEnum:
		return uint64(uint32(int32(int64(bits))))
	}
	return uint64(uint32(bits))
}

// wordBits undoes coreWord, sign-extending narrow signed kinds.
func wordBits(k types.Kind, word uint64) uint64 {
	switch k {
	case types.KindInt64, types.KindUint64, types.KindDouble:
		return word
	case types.KindInt8:
		return uint64(int64(int8(word)))
	case types.KindInt16:
		return uint64(int64(int16(word)))
	case types.KindInt32, types.KindEnum:
		return uint64(int64(int32(word)))
	case types.KindUint8:
		return uint64(uint8(word))
	case types.KindUint16:
		return uint64(uint16(word))
	case types.KindBool:
		if uint32(word) != 0 {
			return 1
		}
		return 0
	}
	return uint64(uint32(word))
}

// sequence flattens host sequences of any slice type.
func sequence(v any) ([]any, bool) {
	switch sv := v.(type) {
	case []any:
		return sv, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
