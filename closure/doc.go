// Package closure turns host functions into native function pointers.
//
// A Trampoline binds one Func to a callable signature and registers a
// native.Entry in the instance's function table. Natives call it through
// its pointer; the trampoline decodes the native arguments, runs the host
// function and encodes the results back.
//
// # Lifetimes
//
//	OneShot          released after the first invocation (scope async)
//	RefCounted       Acquire/Release; scope call trampolines are released
//	                 by the dispatcher when the call returns
//	DestroyNotified  released once by the native destroy notifier
//	Forever          never released
//
// A released trampoline drops its host function; the function pointer
// stays valid until an in-flight invocation returns.
//
// # Conventions
//
// Flat trampolines receive core values laid out per the signature.
// Marshal trampolines receive (return GValue*, n, GValue params[n]),
// the form used for signal handlers.
//
// # Deferred execution
//
// While notifications are frozen, invocations decode their arguments,
// queue the host call and return zero results to native. Thaw runs the
// queue in scheduling order.
package closure
