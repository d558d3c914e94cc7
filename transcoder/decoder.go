package transcoder

import (
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/types"
	"github.com/wippyai/gi-bridge/variant"
)

// Decoder converts native slots into host values, releasing what the
// transfer mode hands over.
type Decoder struct {
	types TypeLookup
	host  Host
}

// NewDecoder creates a decoder.
func NewDecoder(lookup TypeLookup, host Host) *Decoder {
	return &Decoder{types: lookup, host: host}
}

// Lift converts a core value returned by a native into a host value.
func (d *Decoder) Lift(t *types.Type, word uint64, opts Options, h Heap, path []string) (any, error) {
	if t == nil || t.Kind == types.KindVoid {
		return nil, nil
	}
	if isScalar(t.Kind) {
		return d.scalarValue(t, wordBits(t.Kind, word))
	}
	return d.liftPointer(t, uint32(word), opts, h, path)
}

// Load reads the slot at addr.
func (d *Decoder) Load(t *types.Type, addr uint32, opts Options, h Heap, path []string) (any, error) {
	if isScalar(t.Kind) {
		bits, err := loadBits(h, addr, t.SlotSize(false))
		if err != nil {
			return nil, err
		}
		if t.Kind.IsSigned() || t.Kind == types.KindEnum {
			bits = wordBits(t.Kind, bits)
		}
		return d.scalarValue(t, bits)
	}

	if opts.ByValue {
		switch t.Kind {
		case types.KindStruct:
			if d.host == nil {
				return nil, errors.NotInitialized(errors.PhaseDecode, "instance host")
			}
			return d.host.Wrap(t, addr, types.TransferNone)
		case types.KindValue:
			return d.loadValue(addr, opts, h, path)
		}
	}

	ptr, err := h.ReadU32(addr)
	if err != nil {
		return nil, err
	}
	return d.liftPointer(t, ptr, opts, h, path)
}

func loadBits(m Memory, addr, size uint32) (uint64, error) {
	switch size {
	case 1:
		v, err := m.ReadU8(addr)
		return uint64(v), err
	case 2:
		v, err := m.ReadU16(addr)
		return uint64(v), err
	case 8:
		return m.ReadU64(addr)
	}
	v, err := m.ReadU32(addr)
	return uint64(v), err
}

func (d *Decoder) liftPointer(t *types.Type, ptr uint32, opts Options, h Heap, path []string) (any, error) {
	switch t.Kind {
	case types.KindList, types.KindSList:
		return d.decodeList(t, ptr, opts, h, path)
	}
	if ptr == 0 {
		return nil, nil
	}

	switch t.Kind {
	case types.KindUTF8, types.KindFilename:
		s, err := native.ReadCString(h, ptr)
		if err != nil {
			return nil, err
		}
		if opts.Transfer == types.TransferEverything {
			h.Free(ptr, 0, 0)
		}
		return s, nil

	case types.KindPointer:
		return ptr, nil

	case types.KindCallback:
		return FuncPtr(ptr), nil

	case types.KindArray:
		return d.decodeArray(t, ptr, opts, h, path)

	case types.KindHash:
		return d.decodeHash(t, ptr, opts, h, path)

	case types.KindStruct, types.KindObject, types.KindInterface, types.KindFundamental:
		if d.host == nil {
			return nil, errors.NotInitialized(errors.PhaseDecode, "instance host")
		}
		return d.host.Wrap(t, ptr, opts.Transfer)

	case types.KindValue:
		v, err := d.loadValue(ptr, Options{Transfer: opts.Transfer}, h, path)
		if err != nil {
			return nil, err
		}
		if opts.Transfer == types.TransferEverything {
			h.Free(ptr, types.ValueSize, types.ValueAlign)
		}
		return v, nil

	case types.KindVariant:
		ts, data, err := native.ReadVariantBlock(h, ptr)
		if err != nil {
			return nil, err
		}
		v, err := variant.FromBytes(ts, data)
		if err != nil {
			return nil, err
		}
		if opts.Transfer == types.TransferEverything {
			native.FreeVariantBlock(h, ptr)
		}
		return v, nil

	case types.KindError:
		domain, code, msg, err := native.ReadError(h, ptr)
		if err != nil {
			return nil, err
		}
		if opts.Transfer == types.TransferEverything {
			native.FreeError(h, ptr)
		}
		return &NativeError{Domain: domain, Code: code, Message: msg}, nil
	}

	return nil, errors.Unsupported(errors.PhaseDecode, "kind "+t.Kind.String())
}
