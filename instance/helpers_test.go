package instance_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/wippyai/gi-bridge/bridge"
	"github.com/wippyai/gi-bridge/instance"
	"github.com/wippyai/gi-bridge/internal/demolib"
)

func newDemo(t *testing.T) (*bridge.Bridge, *demolib.State) {
	t.Helper()
	ctx := context.Background()
	repo, err := demolib.LoadTypelib()
	if err != nil {
		t.Fatalf("LoadTypelib: %v", err)
	}
	lib, st, err := demolib.New(repo)
	if err != nil {
		t.Fatalf("demolib.New: %v", err)
	}
	b, err := bridge.New(ctx, nil, repo, lib)
	if err != nil {
		t.Fatalf("bridge.New: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(ctx) })
	return b, st
}

// collectUntil forces garbage collection and drains the finalization
// queue until done reports true.
func collectUntil(t *testing.T, b *bridge.Bridge, done func() bool) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		runtime.GC()
		b.Collect(ctx)
		if done() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("wrappers were not collected")
}

func mustObject(t *testing.T) func(res []any, err error) *instance.Object {
	t.Helper()
	return func(res []any, err error) *instance.Object {
		t.Helper()
		if err != nil {
			t.Fatalf("call: %v", err)
		}
		o, ok := res[0].(*instance.Object)
		if !ok {
			t.Fatalf("result is %T, want *instance.Object", res[0])
		}
		return o
	}
}

func mustRecord(t *testing.T) func(res []any, err error) *instance.Record {
	t.Helper()
	return func(res []any, err error) *instance.Record {
		t.Helper()
		if err != nil {
			t.Fatalf("call: %v", err)
		}
		r, ok := res[0].(*instance.Record)
		if !ok {
			t.Fatalf("result is %T, want *instance.Record", res[0])
		}
		return r
	}
}
