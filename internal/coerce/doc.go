// Package coerce converts host numbers to native widths.
//
// Every Go integer and float kind is accepted, including named types.
// Floats are truncated toward zero before the range check; bools, strings
// and everything else are rejected.
//
// This package is internal to the bridge.
package coerce
