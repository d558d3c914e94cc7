package instance_test

import (
	"context"
	"math"
	"testing"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/instance"
	"github.com/wippyai/gi-bridge/types"
)

func TestFundamental(t *testing.T) {
	b, st := newDemo(t)
	ctx := context.Background()

	res, err := b.Call(ctx, "Demo.Circle.new", 2.0)
	if err != nil {
		t.Fatalf("Circle.new: %v", err)
	}
	c, ok := res[0].(*instance.Fundamental)
	if !ok {
		t.Fatalf("Circle.new returned %T", res[0])
	}
	circle, _ := b.Resolve("Demo.Circle")
	if c.Type() != circle {
		t.Errorf("Type() = %v, want Demo.Circle", c.Type())
	}
	if st.Refs(c.Addr()) != 1 {
		t.Errorf("refs = %d, want 1", st.Refs(c.Addr()))
	}

	area, err := c.Call(ctx, "area")
	if err != nil {
		t.Fatalf("area: %v", err)
	}
	if a := area[0].(float64); math.Abs(a-4*math.Pi) > 1e-9 {
		t.Errorf("area = %v, want 4π", a)
	}

	again, err := b.Wrap("Demo.Shape", c.Addr(), types.TransferNone)
	if err != nil {
		t.Fatal(err)
	}
	if again != any(c) {
		t.Error("same address produced a second wrapper")
	}
	if st.Refs(c.Addr()) != 1 {
		t.Errorf("refs = %d after cached wrap, want 1", st.Refs(c.Addr()))
	}

	if _, err := c.Call(ctx, "perimeter"); !errors.IsKind(err, errors.KindNoSuchMember) {
		t.Errorf("Call(perimeter) error = %v, want no such member", err)
	}
}

func TestFundamental_Collect(t *testing.T) {
	b, st := newDemo(t)
	ctx := context.Background()

	var addr uint32
	func() {
		res, err := b.Call(ctx, "Demo.Circle.new", 1.0)
		if err != nil {
			t.Fatal(err)
		}
		addr = res[0].(*instance.Fundamental).Addr()
	}()

	collectUntil(t, b, func() bool { return st.Refs(addr) == 0 })
	if n := b.Manager().Live(); n != 0 {
		t.Errorf("cached wrappers = %d, want 0", n)
	}
}
