// Package gibridge provides an introspection-driven marshaling engine between
// dynamically typed Go values and a native object ecosystem described by
// runtime-loadable type metadata (a typelib).
//
// The native side follows a fixed 32-bit little-endian C ABI executed inside a
// wazero linear memory: pointers are u32 addresses, native callables are
// wazero host functions, and function pointers index a shared function table.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	gibridge/            Root package with core Memory and Allocator interfaces
//	├── bridge/          High-level API: calls, records, objects, notifications
//	├── typelib/         Raw metadata model, repository, YAML and WIT loaders
//	├── types/           Resolved type descriptors and C layout rules
//	├── resolver/        Qualified-name resolution, member lookup chain
//	├── native/          wazero heap, native library synthesis, C helpers
//	├── transcoder/      Scalar, container and GValue encode/decode
//	├── variant/         Variant type strings and serialization
//	├── closure/         Trampolines for host callbacks
//	├── call/            Call frame building and invocation
//	├── instance/        Record, object and fundamental lifecycle
//	├── handle/          Handle table used for function pointers
//	├── errors/          Structured error types for debugging
//	└── cmd/gi-inspect/  Typelib browser and variant type checker
//
// # Quick Start
//
//	repo := typelib.NewRepository()
//	if err := repo.LoadYAML(data); err != nil {
//	    log.Fatal(err)
//	}
//
//	b, err := bridge.New(ctx, nil, repo, lib)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close(ctx)
//
//	res, err := b.Call(ctx, "Demo.add", 2, 3)
//	fmt.Println(res[0]) // 5
//
// # Host Values
//
// Host values are plain Go dynamic values: nil is absent, []any is an ordered
// sequence, map[string]any and map[any]any are mappings, []byte is a raw
// buffer and closure.Func is a host function. Call results are returned as
// []any holding the return value followed by out parameters.
//
// # Thread Safety
//
// Descriptor resolution and the object identity cache are safe for concurrent
// use. Native calls are synchronous; deferred callbacks run only when
// notifications are thawed, on the goroutine that thaws them.
package gibridge
