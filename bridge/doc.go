// Package bridge assembles the marshaling engine around one native library.
//
// A Bridge owns a wazero runtime, the instantiated native library, the
// descriptor resolver and the instance manager. Free functions are called
// by qualified name:
//
//	b, err := bridge.New(ctx, nil, repo, lib)
//	if err != nil {
//		return err
//	}
//	defer b.Close(ctx)
//
//	out, err := b.Call(ctx, "Demo.add", 2, 3)
//
// Records, objects and fundamentals returned by calls are wrappers from
// package instance. Their native releases are queued when the wrapper is
// garbage collected and run on the next call or on Collect.
package bridge
