package transcoder

import (
	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/types"
)

// Host turns native instances into host wrappers and back.
type Host interface {
	// Wrap returns the host value for an instance of t at addr. Under
	// transfer everything the wrapper adopts the reference; records
	// received under transfer none are copied.
	Wrap(t *types.Type, addr uint32, transfer types.Transfer) (any, error)

	// Unwrap returns the native address behind a host value. Under
	// transfer everything the address carries a reference or copy owned
	// by the receiver.
	Unwrap(t *types.Type, v any, transfer types.Transfer) (uint32, error)
}

// CallbackHost is implemented by hosts that can turn host functions into
// native function pointers outside of a call frame.
type CallbackHost interface {
	Callback(t *types.Type, fn any) (uint32, error)
}

// TypeLookup resolves descriptors for gtype values and GValue tags.
type TypeLookup interface {
	Resolve(name string) (*types.Type, error)
	ByGType(id uint32) (*types.Type, error)
}

// FuncPtr is a decoded native function pointer.
type FuncPtr uint32

// Options carry the per-slot context of an encode or decode.
type Options struct {
	// Length is the element count of a length-parameter array on decode.
	Length   int
	Transfer types.Transfer
	Nullable bool
	// ByValue marks struct and GValue slots stored inline.
	ByValue bool
}

// ElemOptions returns the options for the elements of container t.
func (o Options) ElemOptions(t *types.Type) Options {
	return Options{
		Transfer: o.Transfer.Elements(),
		Nullable: t.ElemNullable,
		ByValue:  t.ElemByValue,
	}
}

func track(allocs *AllocationList, transfer types.Transfer, ptr, size, align uint32) {
	if allocs != nil && transfer == types.TransferNone && ptr != 0 {
		allocs.Add(ptr, size, align)
	}
}

func childPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

// NativeError is a decoded GError.
type NativeError struct {
	Message string
	Domain  uint32
	Code    int32
}

func (e *NativeError) Error() string {
	return e.Message
}

// Err converts the report into a structured native failure.
func (e *NativeError) Err() error {
	return errors.NativeFailure(e.Domain, e.Code, e.Message)
}
