// Package types defines resolved type descriptors.
//
// A *Type is produced by the resolver from typelib metadata and is immutable
// once published. Named descriptors (structs, objects, interfaces,
// fundamentals, enums, flags, callbacks) are shared process-wide; container
// and scalar descriptors are created per use site.
//
// The package also carries the fixed native layout rules: scalar widths,
// pointer size, and C struct layout with natural alignment.
package types
