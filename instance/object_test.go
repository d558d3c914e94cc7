package instance_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/instance"
	"github.com/wippyai/gi-bridge/types"
)

func TestObject_Identity(t *testing.T) {
	b, st := newDemo(t)
	ctx := context.Background()

	w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", "hi"))
	if st.Refs(w.Addr()) != 1 {
		t.Errorf("refs = %d after transfer-full construct, want 1", st.Refs(w.Addr()))
	}

	self := mustObject(t)(w.Call(ctx, "get_self"))
	if self != w {
		t.Error("same native address produced a second wrapper")
	}
	if st.Refs(w.Addr()) != 1 {
		t.Errorf("refs = %d after transfer-none return of a cached object, want 1", st.Refs(w.Addr()))
	}

	wrapped, err := b.Wrap("Demo.Object", w.Addr(), types.TransferNone)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if wrapped != any(w) {
		t.Error("Wrap did not return the cached wrapper")
	}

	widget, err := b.Resolve("Demo.Widget")
	if err != nil {
		t.Fatal(err)
	}
	if w.Type() != widget || !w.IsA(widget) {
		t.Errorf("Type() = %v, want Demo.Widget", w.Type())
	}
}

func TestObject_ConcreteType(t *testing.T) {
	b, st := newDemo(t)
	ctx := context.Background()

	btn := mustObject(t)(b.Call(ctx, "Demo.Button.new"))
	button, _ := b.Resolve("Demo.Button")
	if btn.Type() != button {
		t.Errorf("Type() = %v, want Demo.Button", btn.Type())
	}
	if st.Floating(btn.Addr()) {
		t.Error("floating reference was not sunk")
	}
	if st.Refs(btn.Addr()) != 1 {
		t.Errorf("refs = %d, want 1", st.Refs(btn.Addr()))
	}

	// Declared as Widget, the native type says Button.
	w, err := b.Wrap("Demo.Widget", btn.Addr(), types.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	if w.(*instance.Object).Type() != button {
		t.Error("wrapper lost the most derived type")
	}

	res, err := btn.Call(ctx, "describe")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if res[0] != "Button()" {
		t.Errorf("describe = %v, want Button()", res[0])
	}
}

func TestObject_Properties(t *testing.T) {
	b, _ := newDemo(t)
	ctx := context.Background()
	w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", nil))

	tests := []struct {
		name string
		set  any
		want any
	}{
		{"label", "hello", "hello"},
		{"scale", 2.5, 2.5},
		{"color", "dark_blue", "dark_blue"},
		{"color", 1, "green"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.Set(ctx, tt.name, tt.set); err != nil {
				t.Fatalf("Set(%s): %v", tt.name, err)
			}
			got, err := w.Get(ctx, tt.name)
			if err != nil {
				t.Fatalf("Get(%s): %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("Get(%s) = %#v, want %#v", tt.name, got, tt.want)
			}
		})
	}

	t.Run("defaults", func(t *testing.T) {
		fresh := mustObject(t)(b.Call(ctx, "Demo.Widget.new", nil))
		if v, _ := fresh.Get(ctx, "scale"); v != 1.0 {
			t.Errorf("scale = %v, want 1", v)
		}
		if v, _ := fresh.Get(ctx, "label"); v != nil {
			t.Errorf("label = %v, want nil", v)
		}
		if v, _ := fresh.Get(ctx, "count"); v != int32(0) {
			t.Errorf("count = %v, want 0", v)
		}
	})

	t.Run("read only", func(t *testing.T) {
		if _, err := w.Call(ctx, "bump"); err != nil {
			t.Fatal(err)
		}
		if v, _ := w.Get(ctx, "count"); v != int32(1) {
			t.Errorf("count = %v, want 1", v)
		}
		if err := w.Set(ctx, "count", 5); !errors.IsKind(err, errors.KindNotWritable) {
			t.Errorf("Set(count) error = %v, want not writable", err)
		}
	})

	t.Run("write only", func(t *testing.T) {
		if err := w.Set(ctx, "secret", "s3"); err != nil {
			t.Fatalf("Set(secret): %v", err)
		}
		if _, err := w.Get(ctx, "secret"); !errors.IsKind(err, errors.KindNotReadable) {
			t.Errorf("Get(secret) error = %v, want not readable", err)
		}
	})

	t.Run("live class query", func(t *testing.T) {
		if err := w.Set(ctx, "tag", "t1"); err != nil {
			t.Fatalf("Set(tag): %v", err)
		}
		if v, err := w.Get(ctx, "tag"); err != nil || v != "t1" {
			t.Errorf("Get(tag) = %v, %v; want t1", v, err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := w.Get(ctx, "missing"); !errors.IsKind(err, errors.KindNoSuchMember) {
			t.Errorf("Get(missing) error = %v, want no such member", err)
		}
	})

	t.Run("type mismatch", func(t *testing.T) {
		if err := w.Set(ctx, "scale", "big"); !errors.IsKind(err, errors.KindTypeMismatch) {
			t.Errorf("Set(scale, string) error = %v, want type mismatch", err)
		}
	})
}

func TestObject_Interface(t *testing.T) {
	b, _ := newDemo(t)
	ctx := context.Background()
	w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", "knob"))

	res, err := w.Call(ctx, "describe")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if res[0] != "Widget(knob)" {
		t.Errorf("describe = %v", res[0])
	}

	named, _ := b.Resolve("Demo.Named")
	if !w.IsA(named) {
		t.Error("widget is not a Named")
	}
	res, err = b.Call(ctx, "Demo.Named.describe", w)
	if err != nil || res[0] != "Widget(knob)" {
		t.Errorf("Named.describe = %v, %v", res, err)
	}
}

func TestObject_NewObject(t *testing.T) {
	b, st := newDemo(t)
	ctx := context.Background()

	w, err := b.NewObject(ctx, "Demo.Widget",
		instance.Arg{Name: "label", Value: "built"},
		instance.Arg{Name: "scale", Value: 0.5})
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	if st.Refs(w.Addr()) != 1 {
		t.Errorf("refs = %d, want 1", st.Refs(w.Addr()))
	}
	if v, _ := w.Get(ctx, "label"); v != "built" {
		t.Errorf("label = %v", v)
	}
	if v, _ := w.Get(ctx, "scale"); v != 0.5 {
		t.Errorf("scale = %v", v)
	}

	if _, err := b.NewObject(ctx, "Demo.Widget", instance.Arg{Name: "count", Value: 3}); !errors.IsKind(err, errors.KindNotWritable) {
		t.Errorf("NewObject(count) error = %v, want not writable", err)
	}
	if _, err := b.NewObject(ctx, "Demo.Point"); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("NewObject(Point) error = %v, want type mismatch", err)
	}
}

func TestObject_NewObjectAttrs(t *testing.T) {
	b, _ := newDemo(t)
	ctx := context.Background()

	w, err := b.NewObject(ctx, "Demo.Widget",
		instance.Arg{Name: "userdata", Value: 7},
		instance.Arg{Name: "label", Value: "mixed"},
		instance.Arg{Name: "owner", Value: "me"},
		instance.Arg{Name: "userdata", Value: 8})
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	if v, _ := w.Get(ctx, "label"); v != "mixed" {
		t.Errorf("label = %v, want mixed", v)
	}
	if got, want := w.AttrNames(), []string{"userdata", "owner"}; !reflect.DeepEqual(got, want) {
		t.Errorf("AttrNames = %v, want %v", got, want)
	}
	tests := []struct {
		name string
		want any
	}{
		{"userdata", 8},
		{"owner", "me"},
	}
	for _, tt := range tests {
		if v, ok := w.Attr(tt.name); !ok || v != tt.want {
			t.Errorf("Attr(%s) = %v, %v; want %v", tt.name, v, ok, tt.want)
		}
	}
	if _, ok := w.Attr("label"); ok {
		t.Error("property stored as a host attribute")
	}
}

func TestObject_Attrs(t *testing.T) {
	b, _ := newDemo(t)
	ctx := context.Background()
	w := mustObject(t)(b.Call(ctx, "Demo.Widget.new", nil))

	if err := w.SetAttr("note", 42); err != nil {
		t.Fatalf("SetAttr: %v", err)
	}
	if v, ok := w.Attr("note"); !ok || v != 42 {
		t.Errorf("Attr(note) = %v, %v", v, ok)
	}
	self := mustObject(t)(w.Call(ctx, "get_self"))
	if v, _ := self.Attr("note"); v != 42 {
		t.Error("attribute lost across wrapper lookups")
	}
	if err := w.SetAttr("label", "x"); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("SetAttr(label) error = %v, want invalid input", err)
	}
}

func TestObject_Collect(t *testing.T) {
	b, st := newDemo(t)
	ctx := context.Background()

	keep := mustObject(t)(b.Call(ctx, "Demo.Widget.new", "keep"))
	func() {
		for i := 0; i < 3; i++ {
			mustObject(t)(b.Call(ctx, "Demo.Widget.new", "drop"))
		}
		mustObject(t)(b.Call(ctx, "Demo.Button.new"))
	}()

	collectUntil(t, b, func() bool { return len(st.Objects()) == 1 })
	if got := st.Objects(); got[0] != keep.Addr() {
		t.Errorf("live objects = %v, want only %d", got, keep.Addr())
	}
	if n := b.Manager().Live(); n != 1 {
		t.Errorf("cached wrappers = %d, want 1", n)
	}
	if n := b.Manager().Pending(); n != 0 {
		t.Errorf("pending releases = %d after drain", n)
	}
}
