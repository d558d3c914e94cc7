// Package transcoder converts between host values and the native ABI.
//
// Every conversion is driven by a resolved types.Type and a set of
// Options (ownership transfer, nullability, inline storage):
//
//	Host value ←→ [Encoder / Decoder] ←→ core values / native heap
//
// # Slots
//
//	Lower / Lift   - core call values (i32, i64, f32, f64 bits)
//	Store / Load   - memory slots (struct fields, array elements)
//	Pointer        - pointer-shaped values (strings, containers, instances)
//
// Lists and hash tables store small integers in their pointer-sized
// slots; wider scalars are boxed.
//
// # Host values
//
//	bool, intN/uintN, float32/float64   scalars
//	string                              enum members, utf8, filename
//	types.FlagSet                       flags
//	[]any / []byte                      arrays, lists
//	map[string]any / map[any]any        hash tables
//	*GValue                             generic values
//	*variant.Value                      GVariant
//	*NativeError                        GError
//	FuncPtr                             callbacks
//
// Instance kinds (struct, object, interface, fundamental) go through the
// Host interface, which the instance layer implements.
//
// # Ownership
//
// On encode, blocks the caller keeps ownership of are recorded in an
// AllocationList and freed after the native call returns. On decode,
// transfer everything frees the container and its elements, transfer
// container frees only the container and transfer none frees nothing.
//
// # Errors
//
//	[encode] type_mismatch at items.2: Go type string, native type gint32
//	[encode] type_mismatch: value 128 out of range for gint8
package transcoder
