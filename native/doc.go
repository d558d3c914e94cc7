// Package native hosts the native side of the bridge.
//
// A Library is a set of Go-implemented symbols with wasm signatures. It is
// instantiated into a wazero runtime as a synthesized core module that owns
// a linear memory; the Heap allocates inside that memory with C layout
// rules and 32-bit pointers, 0 being NULL.
//
// The package also carries the C data helpers both sides share: strings
// and string vectors, GList/GSList, hash tables, GError, GValue and
// serialized variant blocks. Function pointers are handles into a
// function table, so natives can call back into trampolines registered by
// the closure layer through Instance.CallIndirect.
package native
