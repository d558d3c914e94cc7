// Package errors provides structured error types for the bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/native type names, and cause chain.
//
// The kinds surfaced to callers follow the marshaling taxonomy:
//
//	unknown_type          resolution miss in the loaded metadata
//	type_mismatch         encode rejected the host value's shape or range
//	no_such_member        property/signal/field absent after the full lookup chain
//	not_readable          property read forbidden by its access flags
//	not_writable          property write forbidden by its access flags
//	invalid_variant_type  malformed variant type string
//	native_failure        native call reported a structured error
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
//		Path("point", "x").
//		GoType("string").
//		NativeType("gint32").
//		Detail("cannot convert string to integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseEncode, path, "string", "gint32")
//	err := errors.OutOfRange(errors.PhaseEncode, path, 128, "gint8")
//
// All errors implement the standard error interface and support errors.Is/As.
// IsKind walks the cause chain looking for a kind regardless of phase.
package errors
