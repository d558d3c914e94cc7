// Package handle provides the handle table behind native function pointers.
//
// Every native-callable entry point the bridge hands to native code (library
// symbols whose address is taken and host trampolines) is stored in a Table.
// The handle value doubles as the function pointer: it is never 0, so a NULL
// function pointer is always distinguishable.
//
//	table := handle.NewTable()
//	h := table.Insert(KindTrampoline, tramp)
//	v, ok := table.Get(h)
//	table.Remove(h)
//
// A handle may be borrowed while its entry is executing. Remove refuses to
// drop a borrowed entry; the owner retries once the borrow is returned.
//
// Observers receive Created and Removed events, which the bridge uses for
// live-trampoline accounting in tests and in the inspector.
package handle
