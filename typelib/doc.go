// Package typelib holds the raw type metadata consumed by the resolver.
//
// A typelib is a set of namespaces. Each namespace declares named types
// (structs, objects, interfaces, fundamentals, enums, flags, callbacks) and
// free functions. Metadata is immutable once added to a Repository.
//
// Namespaces are usually loaded from YAML:
//
//	namespace: Demo
//	version: "1.0"
//	types:
//	  - kind: struct
//	    name: Point
//	    fields:
//	      - {name: x, type: gint32}
//	      - {name: y, type: gint32}
//	functions:
//	  - name: add
//	    symbol: demo_add
//	    params:
//	      - {name: a, type: gint32}
//	      - {name: b, type: gint32}
//	    return: gint32
//
// Type references use a scalar shorthand (a basic tag such as "gint32" or
// "utf8", or a type name) with optional "*" (by pointer) and "?" (nullable)
// suffixes, or a mapping for containers:
//
//	{array: gint32, length: n}
//	{array: utf8, zero_terminated: true}
//	{list: Point*}
//	{hash: utf8, value: gint32}
//
// Unqualified type names are qualified with the declaring namespace.
// WIT type definitions can be imported with WITImporter.
package typelib
