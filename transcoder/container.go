package transcoder

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/internal/coerce"
	"github.com/wippyai/gi-bridge/native"
	"github.com/wippyai/gi-bridge/types"
)

// Count returns the element count of a host sequence, the value a length
// parameter receives.
func Count(v any) (int, bool) {
	switch sv := v.(type) {
	case nil:
		return 0, true
	case string:
		return len(sv), true
	case []byte:
		return len(sv), true
	}
	items, ok := sequence(v)
	return len(items), ok
}

// Length converts a decoded length parameter of any integer width to an
// element count. It returns -1 for non-integers and out-of-range values.
func Length(v any) int {
	switch v.(type) {
	case int8, int16, int32, int64, uint8, uint16, uint32, uint64:
	default:
		return -1
	}
	n, ok := coerce.Signed(v, 32)
	if !ok || n < 0 {
		return -1
	}
	return int(n)
}

func isByteElem(t *types.Type) bool {
	return t.Elem != nil && (t.Elem.Kind == types.KindUint8 || t.Elem.Kind == types.KindInt8)
}

func (e *Encoder) encodeArray(t *types.Type, v any, opts Options, h Heap, allocs *AllocationList, path []string) (uint32, error) {
	elem := t.Elem
	slot := elem.SlotSize(t.ElemByValue)
	align := elem.SlotAlign(t.ElemByValue)

	var raw []byte
	var items []any
	if isByteElem(t) {
		switch bv := v.(type) {
		case string:
			raw = []byte(bv)
		case []byte:
			raw = bv
		}
	}
	n := len(raw)
	if raw == nil {
		var ok bool
		if items, ok = sequence(v); !ok {
			return 0, mismatch(errors.PhaseEncode, path, v, t)
		}
		n = len(items)
	}

	count := n
	switch t.Length {
	case types.LengthFixed:
		if n > t.Fixed {
			return 0, errors.OutOfBounds(errors.PhaseEncode, path, n, t.Fixed)
		}
		count = t.Fixed
	case types.LengthZeroTerminated:
		count = n + 1
	}

	size, ok := coerce.SafeMulU32(uint32(count), slot)
	if !ok || count > native.MaxListLength {
		return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Path(path...).
			Detail("array of %d elements is too large", count).
			Build()
	}
	ptr, err := h.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	track(allocs, opts.Transfer, ptr, size, align)

	if raw != nil {
		if len(raw) > 0 {
			if err := h.Write(ptr, raw); err != nil {
				return 0, err
			}
		}
		return ptr, nil
	}

	eopts := opts.ElemOptions(t)
	for i, it := range items {
		if err := e.Store(elem, ptr+uint32(i)*slot, it, eopts, h, allocs, childPath(path, strconv.Itoa(i+1))); err != nil {
			return 0, err
		}
	}
	return ptr, nil
}

func (d *Decoder) decodeArray(t *types.Type, ptr uint32, opts Options, h Heap, path []string) (any, error) {
	if ptr == 0 {
		return nil, nil
	}
	elem := t.Elem
	slot := elem.SlotSize(t.ElemByValue)

	var n int
	switch t.Length {
	case types.LengthFixed:
		n = t.Fixed
	case types.LengthParam:
		if opts.Length < 0 {
			return nil, errors.InvalidData(errors.PhaseDecode, path, "array length is unknown")
		}
		n = opts.Length
	default:
		var err error
		if n, err = zeroTerminatedLength(h, ptr, slot); err != nil {
			return nil, err
		}
	}
	if n > native.MaxListLength {
		return nil, errors.InvalidData(errors.PhaseDecode, path, "array exceeds maximum length")
	}

	var out any
	if isByteElem(t) && elem.Kind == types.KindUint8 {
		data, err := h.Read(ptr, uint32(n))
		if err != nil {
			return nil, err
		}
		out = append([]byte{}, data...)
	} else {
		items := make([]any, n)
		eopts := opts.ElemOptions(t)
		for i := range items {
			v, err := d.Load(elem, ptr+uint32(i)*slot, eopts, h, childPath(path, strconv.Itoa(i+1)))
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		out = items
	}

	if opts.Transfer != types.TransferNone {
		h.Free(ptr, 0, 0)
	}
	return out, nil
}

func zeroTerminatedLength(m Memory, ptr, slot uint32) (int, error) {
	for i := 0; i <= native.MaxListLength; i++ {
		data, err := m.Read(ptr+uint32(i)*slot, slot)
		if err != nil {
			return 0, err
		}
		zero := true
		for _, b := range data {
			if b != 0 {
				zero = false
				break
			}
		}
		if zero {
			return i, nil
		}
	}
	return 0, errors.InvalidData(errors.PhaseDecode, nil, "unterminated array")
}

// inSlot reports whether values of kind k are stored directly in a
// pointer-sized list or hash slot.
func inSlot(k types.Kind) bool {
	switch k {
	case types.KindBool, types.KindInt8, types.KindUint8, types.KindInt16, types.KindUint16,
		types.KindInt32, types.KindUint32, types.KindEnum, types.KindFlags, types.KindGType:
		return true
	}
	return false
}

// slotWord encodes a list element or hash entry as a pointer-sized word.
func (e *Encoder) slotWord(t *types.Type, v any, opts Options, h Heap, allocs *AllocationList, path []string) (uint32, error) {
	if inSlot(t.Kind) {
		bits, err := e.scalarBits(t, v, path)
		return uint32(bits), err
	}
	if isScalar(t.Kind) {
		if v == nil && opts.Nullable {
			return 0, nil
		}
		bits, err := e.scalarBits(t, v, path)
		if err != nil {
			return 0, err
		}
		size := t.SlotSize(false)
		p, err := h.Alloc(size, size)
		if err != nil {
			return 0, err
		}
		track(allocs, opts.Transfer, p, size, size)
		return p, storeBits(h, p, size, bits)
	}
	return e.Pointer(t, v, opts, h, allocs, path)
}

func (d *Decoder) slotValue(t *types.Type, w uint32, opts Options, h Heap, path []string) (any, error) {
	if inSlot(t.Kind) {
		return d.scalarValue(t, wordBits(t.Kind, uint64(w)))
	}
	if isScalar(t.Kind) {
		if w == 0 {
			return nil, nil
		}
		v, err := d.Load(t, w, Options{}, h, path)
		if err != nil {
			return nil, err
		}
		if opts.Transfer == types.TransferEverything {
			h.Free(w, 0, 0)
		}
		return v, nil
	}
	return d.liftPointer(t, w, opts, h, path)
}

func (e *Encoder) encodeList(t *types.Type, v any, opts Options, h Heap, allocs *AllocationList, path []string) (uint32, error) {
	items, ok := sequence(v)
	if !ok {
		return 0, mismatch(errors.PhaseEncode, path, v, t)
	}
	eopts := opts.ElemOptions(t)
	words := make([]uint32, len(items))
	for i, it := range items {
		w, err := e.slotWord(t.Elem, it, eopts, h, allocs, childPath(path, strconv.Itoa(i+1)))
		if err != nil {
			return 0, err
		}
		words[i] = w
	}

	singly := t.Kind == types.KindSList
	head, err := native.NewList(h, words, singly)
	if err != nil {
		return 0, err
	}
	if opts.Transfer == types.TransferNone && allocs != nil {
		for node := head; node != 0; {
			allocs.Add(node, 0, 0)
			next, err := h.ReadU32(node + 4)
			if err != nil {
				return 0, err
			}
			node = next
		}
	}
	return head, nil
}

func (d *Decoder) decodeList(t *types.Type, head uint32, opts Options, h Heap, path []string) (any, error) {
	words, err := native.ListData(h, head)
	if err != nil {
		return nil, err
	}
	eopts := opts.ElemOptions(t)
	out := make([]any, len(words))
	for i, w := range words {
		v, err := d.slotValue(t.Elem, w, eopts, h, childPath(path, strconv.Itoa(i+1)))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	if opts.Transfer != types.TransferNone {
		native.FreeList(h, head, t.Kind == types.KindSList)
	}
	return out, nil
}

func (e *Encoder) encodeHash(t *types.Type, v any, opts Options, h Heap, allocs *AllocationList, path []string) (uint32, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return 0, mismatch(errors.PhaseEncode, path, v, t)
	}

	type entry struct {
		key any
		val any
		str string
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		entries = append(entries, entry{key: k, val: iter.Value().Interface(), str: fmt.Sprint(k)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].str < entries[j].str })

	kopts := Options{Transfer: opts.Transfer.Elements()}
	vopts := Options{Transfer: opts.Transfer.Elements(), Nullable: t.ValueNullable}
	keys := make([]uint32, len(entries))
	values := make([]uint32, len(entries))
	for i, en := range entries {
		kp := childPath(path, en.str)
		kw, err := e.slotWord(t.Key, en.key, kopts, h, allocs, kp)
		if err != nil {
			return 0, err
		}
		vw, err := e.slotWord(t.Value, en.val, vopts, h, allocs, kp)
		if err != nil {
			return 0, err
		}
		keys[i], values[i] = kw, vw
	}

	tbl, err := native.NewHash(h, keys, values)
	if err != nil {
		return 0, err
	}
	if opts.Transfer == types.TransferNone && allocs != nil {
		for _, off := range []uint32{8, 12} {
			if arr, err := h.ReadU32(tbl + off); err == nil {
				allocs.Add(arr, 0, 0)
			}
		}
		allocs.Add(tbl, types.HashSize, 4)
	}
	return tbl, nil
}

func (d *Decoder) decodeHash(t *types.Type, tbl uint32, opts Options, h Heap, path []string) (any, error) {
	if tbl == 0 {
		return nil, nil
	}
	keys, values, err := native.HashEntries(h, tbl)
	if err != nil {
		return nil, err
	}

	kopts := Options{Transfer: opts.Transfer.Elements()}
	vopts := Options{Transfer: opts.Transfer.Elements(), Nullable: t.ValueNullable}
	stringKeys := t.Key.Kind == types.KindUTF8 || t.Key.Kind == types.KindFilename

	var byString map[string]any
	var byAny map[any]any
	if stringKeys {
		byString = make(map[string]any, len(keys))
	} else {
		byAny = make(map[any]any, len(keys))
	}

	for i := range keys {
		k, err := d.slotValue(t.Key, keys[i], kopts, h, path)
		if err != nil {
			return nil, err
		}
		v, err := d.slotValue(t.Value, values[i], vopts, h, childPath(path, fmt.Sprint(k)))
		if err != nil {
			return nil, err
		}
		if stringKeys {
			s, _ := k.(string)
			byString[s] = v
			continue
		}
		if k != nil && !reflect.TypeOf(k).Comparable() {
			return nil, errors.InvalidData(errors.PhaseDecode, path, "hash key of type "+typeName(k)+" is not comparable")
		}
		byAny[k] = v
	}

	if opts.Transfer != types.TransferNone {
		native.FreeHash(h, tbl)
	}
	if stringKeys {
		return byString, nil
	}
	return byAny, nil
}
