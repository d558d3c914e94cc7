// Package instance manages the host side of native instances.
//
// Three handle kinds wrap a native address and its descriptor:
//
//	Record       value-type struct; nested records write through to their
//	             parent, detached records are private copies
//	Object       refcounted class instance with an identity cache,
//	             properties, signals and host-attached fields
//	Fundamental  refcounted instance with type-specific ref/unref
//
// The Manager implements transcoder.Host, so every codec path that meets
// an instance kind goes through Wrap and Unwrap.
//
// # Ownership
//
// Wrappers that own a reference or copy register a runtime cleanup. The
// cleanup only queues the native release; the queue is drained on the
// calling goroutine by Collect and before every dispatched call, so
// native code never runs on the runtime's cleanup goroutine.
//
// # Object identity
//
// The same native address always maps to the same *Object while a
// wrapper is reachable. The cache holds weak pointers; entries are
// removed by the wrapper's cleanup, not eagerly.
//
// # Runtime symbols
//
// Objects and fundamentals find their runtime entry points through the
// descriptor's symbol table, walking up from the concrete type:
//
//	ref(obj) obj             unref(obj)
//	ref_sink(obj) obj        is_floating(obj) bool
//	type_of(obj) gtype       find_property(gtype, name, flags*) gtype
//	get_property(obj, name, GValue* out)
//	set_property(obj, name, GValue* in)
//	new(gtype, n, names[n], GValue values[n]) obj
//	connect(obj, signal, handler, data, destroy, after) id
//	emit(obj, signal, n, GValue params[n], GValue* return)
//	disconnect(obj, id)
package instance
