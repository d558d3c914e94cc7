package instance_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/instance"
)

func TestSignal_ConnectEmit(t *testing.T) {
	b, st := newDemo(t)
	ctx := context.Background()
	w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", "sig"))

	changed, err := w.Signal("changed")
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	var got [][]any
	id, err := changed.Connect(ctx, func(args ...any) []any {
		got = append(got, args)
		return nil
	}, instance.ConnectOptions{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if id == 0 || st.Handlers(w.Addr()) != 1 {
		t.Fatalf("Connect id = %d, handlers = %d", id, st.Handlers(w.Addr()))
	}

	// Emitted natively by bump.
	if _, err := w.Call(ctx, "bump"); err != nil {
		t.Fatal(err)
	}
	// Emitted from the host.
	if v, err := changed.Emit(ctx, 7); err != nil || v != nil {
		t.Fatalf("Emit = %v, %v", v, err)
	}

	want := [][]any{{w, int32(1)}, {w, int32(7)}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("handler saw %v, want %v", got, want)
	}

	if _, err := changed.Emit(ctx); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("Emit without args error = %v, want type mismatch", err)
	}
}

func TestSignal_Return(t *testing.T) {
	b, _ := newDemo(t)
	ctx := context.Background()
	w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", nil))

	compute, err := w.Signal("compute")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := compute.Connect(ctx, func(args ...any) []any {
		return []any{args[1].(int32) * args[2].(int32)}
	}, instance.ConnectOptions{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	v, err := compute.Emit(ctx, 6, 7)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if v != int32(42) {
		t.Errorf("Emit = %#v, want 42", v)
	}
}

func TestSignal_Order(t *testing.T) {
	b, _ := newDemo(t)
	ctx := context.Background()
	w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", nil))
	changed, _ := w.Signal("changed")

	var order []string
	record := func(name string) func(...any) []any {
		return func(...any) []any {
			order = append(order, name)
			return nil
		}
	}
	connect := func(name string, opts instance.ConnectOptions) {
		t.Helper()
		if _, err := changed.Connect(ctx, record(name), opts); err != nil {
			t.Fatalf("Connect(%s): %v", name, err)
		}
	}
	connect("late", instance.ConnectOptions{After: true})
	connect("early", instance.ConnectOptions{})
	connect("detailed", instance.ConnectOptions{Detail: "other"})

	if _, err := changed.Emit(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(order, []string{"early", "late"}) {
		t.Errorf("handler order = %v, want [early late]", order)
	}
}

func TestSignal_Disconnect(t *testing.T) {
	b, st := newDemo(t)
	ctx := context.Background()
	closures := b.Manager().Closures()
	w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", nil))
	changed, _ := w.Signal("changed")

	calls := 0
	id, err := changed.Connect(ctx, func(...any) []any {
		calls++
		return nil
	}, instance.ConnectOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if closures.Live() != 1 {
		t.Fatalf("live trampolines = %d, want 1", closures.Live())
	}

	if err := w.Disconnect(ctx, id); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if closures.Live() != 0 {
		t.Errorf("live trampolines = %d after disconnect, want 0", closures.Live())
	}
	if st.Handlers(w.Addr()) != 0 {
		t.Errorf("handlers = %d after disconnect", st.Handlers(w.Addr()))
	}
	if _, err := changed.Emit(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("disconnected handler ran %d times", calls)
	}
}

func TestSignal_Finalize(t *testing.T) {
	b, st := newDemo(t)
	ctx := context.Background()
	closures := b.Manager().Closures()

	func() {
		w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", nil))
		changed, _ := w.Signal("changed")
		for i := 0; i < 2; i++ {
			if _, err := changed.Connect(ctx, func(...any) []any { return nil }, instance.ConnectOptions{}); err != nil {
				t.Fatal(err)
			}
		}
	}()
	if closures.Live() != 2 {
		t.Fatalf("live trampolines = %d, want 2", closures.Live())
	}

	collectUntil(t, b, func() bool { return len(st.Objects()) == 0 })
	if closures.Live() != 0 {
		t.Errorf("live trampolines = %d after finalize, want 0", closures.Live())
	}
}

func TestSignal_Unknown(t *testing.T) {
	b, _ := newDemo(t)
	ctx := context.Background()
	w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", nil))

	if _, err := w.Signal("exploded"); !errors.IsKind(err, errors.KindNoSuchMember) {
		t.Errorf("Signal(exploded) error = %v, want no such member", err)
	}
}
