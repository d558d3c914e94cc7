package transcoder

import (
	"unicode/utf8"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/types"
	"github.com/wippyai/gi-bridge/variant"
)

// Encoder converts host values into native slots.
type Encoder struct {
	types TypeLookup
	host  Host
}

// NewEncoder creates an encoder. Either argument may be nil when the
// values encoded never need it.
func NewEncoder(lookup TypeLookup, host Host) *Encoder {
	return &Encoder{types: lookup, host: host}
}

// Lower converts a host value to the core value passed to a native.
// Blocks the caller keeps ownership of are recorded in allocs.
func (e *Encoder) Lower(t *types.Type, v any, opts Options, h Heap, allocs *AllocationList, path []string) (uint64, error) {
	if isScalar(t.Kind) {
		bits, err := e.scalarBits(t, v, path)
		if err != nil {
			return 0, err
		}
		return coreWord(t.Kind, bits), nil
	}
	ptr, err := e.Pointer(t, v, opts, h, allocs, path)
	return uint64(ptr), err
}

// Store writes a host value into the slot at addr.
func (e *Encoder) Store(t *types.Type, addr uint32, v any, opts Options, h Heap, allocs *AllocationList, path []string) error {
	if isScalar(t.Kind) {
		bits, err := e.scalarBits(t, v, path)
		if err != nil {
			return err
		}
		return storeBits(h, addr, t.SlotSize(false), bits)
	}

	if opts.ByValue {
		switch t.Kind {
		case types.KindStruct:
			return e.storeStruct(t, addr, v, opts, h, path)
		case types.KindValue:
			return e.storeValue(addr, v, opts, h, allocs, path)
		}
	}

	ptr, err := e.Pointer(t, v, opts, h, allocs, path)
	if err != nil {
		return err
	}
	return h.WriteU32(addr, ptr)
}

func storeBits(m Memory, addr, size uint32, bits uint64) error {
	switch size {
	case 1:
		return m.WriteU8(addr, uint8(bits))
	case 2:
		return m.WriteU16(addr, uint16(bits))
	case 8:
		return m.WriteU64(addr, bits)
	}
	return m.WriteU32(addr, uint32(bits))
}

// Pointer encodes a pointer-shaped value and returns its address.
func (e *Encoder) Pointer(t *types.Type, v any, opts Options, h Heap, allocs *AllocationList, path []string) (uint32, error) {
	if v == nil {
		if opts.Nullable || t.Kind == types.KindPointer || t.Kind == types.KindVoid || t.Kind == types.KindCallback || t.Kind == types.KindError {
			return 0, nil
		}
		return 0, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			Path(path...).
			GoType("nil").
			NativeType(t.String()).
			Detail("%s is not nullable", t.String()).
			Build()
	}

	switch t.Kind {
	case types.KindUTF8, types.KindFilename:
		return e.encodeString(t, v, opts, h, allocs, path)

	case types.KindPointer:
		if p, ok := v.(FuncPtr); ok {
			return uint32(p), nil
		}
		bits, err := e.scalarBits(types.Basic(types.KindUint32), v, path)
		return uint32(bits), err

	case types.KindArray:
		return e.encodeArray(t, v, opts, h, allocs, path)

	case types.KindList, types.KindSList:
		return e.encodeList(t, v, opts, h, allocs, path)

	case types.KindHash:
		return e.encodeHash(t, v, opts, h, allocs, path)

	case types.KindStruct, types.KindObject, types.KindInterface, types.KindFundamental:
		if e.host == nil {
			return 0, errors.NotInitialized(errors.PhaseEncode, "instance host")
		}
		addr, err := e.host.Unwrap(t, v, opts.Transfer)
		if err != nil {
			return 0, err
		}
		return addr, nil

	case types.KindCallback:
		switch fv := v.(type) {
		case FuncPtr:
			return uint32(fv), nil
		}
		if cb, ok := e.host.(CallbackHost); ok {
			return cb.Callback(t, v)
		}
		return 0, mismatch(errors.PhaseEncode, path, v, t)

	case types.KindValue:
		ptr, err := native.NewValue(h)
		if err != nil {
			return 0, err
		}
		track(allocs, opts.Transfer, ptr, types.ValueSize, types.ValueAlign)
		if err := e.storeValue(ptr, v, opts, h, allocs, path); err != nil {
			return 0, err
		}
		return ptr, nil

	case types.KindVariant:
		vv, ok := v.(*variant.Value)
		if !ok || vv == nil {
			return 0, mismatch(errors.PhaseEncode, path, v, t)
		}
		blk, err := native.NewVariantBlock(h, vv.TypeString(), vv.Bytes())
		if err != nil {
			return 0, err
		}
		if opts.Transfer == types.TransferNone && allocs != nil {
			e.trackVariantBlock(h, blk, allocs)
		}
		return blk, nil

	case types.KindError:
		ev, ok := v.(*NativeError)
		if !ok || ev == nil {
			return 0, mismatch(errors.PhaseEncode, path, v, t)
		}
		ptr, err := native.NewError(h, ev.Domain, ev.Code, ev.Message)
		if err != nil {
			return 0, err
		}
		if opts.Transfer == types.TransferNone && allocs != nil {
			if msg, err := h.ReadU32(ptr + 8); err == nil {
				allocs.Add(msg, 0, 0)
			}
			allocs.Add(ptr, types.ErrorSize, 4)
		}
		return ptr, nil
	}

	return 0, errors.Unsupported(errors.PhaseEncode, "kind "+t.Kind.String())
}

func (e *Encoder) trackVariantBlock(h Heap, blk uint32, allocs *AllocationList) {
	if ts, err := h.ReadU32(blk); err == nil {
		allocs.Add(ts, 0, 0)
	}
	if buf, err := h.ReadU32(blk + 4); err == nil {
		allocs.Add(buf, 0, 0)
	}
	allocs.Add(blk, types.VariantBlockSize, 4)
}

func (e *Encoder) encodeString(t *types.Type, v any, opts Options, h Heap, allocs *AllocationList, path []string) (uint32, error) {
	var s string
	switch sv := v.(type) {
	case string:
		s = sv
	case []byte:
		s = string(sv)
	default:
		return 0, mismatch(errors.PhaseEncode, path, v, t)
	}
	if t.Kind == types.KindUTF8 && !utf8.ValidString(s) {
		return 0, errors.InvalidData(errors.PhaseEncode, path, "invalid UTF-8 string")
	}
	ptr, err := native.NewCString(h, s)
	if err != nil {
		return 0, err
	}
	track(allocs, opts.Transfer, ptr, uint32(len(s))+1, 1)
	return ptr, nil
}

// storeStruct copies a record into an inline slot. Under transfer
// everything the slot takes over a private copy.
func (e *Encoder) storeStruct(t *types.Type, addr uint32, v any, opts Options, h Heap, path []string) error {
	if e.host == nil {
		return errors.NotInitialized(errors.PhaseEncode, "instance host")
	}
	if v == nil {
		return mismatch(errors.PhaseEncode, path, v, t)
	}
	src, err := e.host.Unwrap(t, v, opts.Transfer)
	if err != nil {
		return err
	}
	data, err := h.Read(src, t.Size)
	if err != nil {
		return err
	}
	if err := h.Write(addr, append([]byte(nil), data...)); err != nil {
		return err
	}
	if opts.Transfer == types.TransferEverything {
		h.Free(src, t.Size, t.Align)
	}
	return nil
}
