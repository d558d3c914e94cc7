// Package call invokes native callables from host arguments.
//
// A Dispatcher builds the native frame for a resolved signature:
//
//	host args -> [self] [in / inout / out slots] [hidden] [GError**] -> native
//
// In-arguments are encoded positionally. Missing trailing arguments
// encode as NULL when the parameter is nullable or optional and fail
// with type_mismatch otherwise. Hidden parameters (array lengths,
// callback user data and destroy notifiers) are filled in by the
// dispatcher. Out and inout parameters get slots on the native heap.
//
// The result is [return?, out...] in declaration order. A callable that
// throws and sets its error returns []any{false, message, code} with a
// nil Go error; every other failure is a Go error.
package call
