package resolver

import (
	"sync"
	"testing"

	"github.com/wippyai/gi-bridge/errors"
	"github.com/wippyai/gi-bridge/typelib"
	"github.com/wippyai/gi-bridge/types"
)

const testNamespace = `
namespace: R
types:
  - kind: struct
    name: Point
    fields:
      - {name: x, type: gint32}
      - {name: y, type: gint32}
  - kind: struct
    name: Rect
    fields:
      - {name: origin, type: Point}
      - {name: size, type: Point}
      - {name: name, type: "utf8?"}
  - kind: struct
    name: Node
    fields:
      - {name: value, type: gint32}
      - {name: next, type: "Node*?"}
  - kind: struct
    name: Left
    fields:
      - {name: right, type: Right*}
  - kind: struct
    name: Right
    fields:
      - {name: left, type: Left*}
  - kind: struct
    name: Loop
    fields:
      - {name: self, type: Loop}
  - kind: interface
    name: Named
    properties:
      - {name: nick_name, type: utf8, access: rw}
  - kind: object
    name: Base
    symbols: {ref: r_base_ref, unref: r_base_unref}
    properties:
      - {name: id, type: guint32, access: r}
    signals:
      - name: changed
        params:
          - {name: value, type: gint32}
  - kind: object
    name: Widget
    parent: Base
    interfaces: [Named]
    properties:
      - {name: label, type: utf8, access: rw}
    methods:
      - name: get_label
        symbol: r_widget_get_label
        method: true
        return: utf8
  - kind: callback
    name: Func
    signature:
      name: Func
      params:
        - {name: value, type: gint32}
        - {name: data, type: gpointer}
      return: gint32
functions:
  - name: apply
    symbol: r_apply
    params:
      - {name: values, type: {array: gint32, length: n}}
      - {name: n, type: gint32}
      - {name: fn, type: Func, scope: notified, closure: data, destroy: notify}
      - {name: data, type: gpointer}
      - {name: notify, type: gpointer}
    return: {array: utf8, zero_terminated: true}
    return_transfer: full
`

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	repo := typelib.NewRepository()
	if err := repo.LoadYAML([]byte(testNamespace)); err != nil {
		t.Fatal(err)
	}
	return New(repo)
}

func TestResolve_StructLayout(t *testing.T) {
	r := newTestResolver(t)

	rect, err := r.Resolve("R.Rect")
	if err != nil {
		t.Fatal(err)
	}
	if rect.Kind != types.KindStruct || rect.Size != 20 {
		t.Fatalf("Rect kind/size = %s/%d", rect.Kind, rect.Size)
	}
	origin, _ := rect.Field("origin")
	size, _ := rect.Field("size")
	if origin.Offset != 0 || size.Offset != 8 || !origin.Inline() {
		t.Errorf("offsets = %d, %d", origin.Offset, size.Offset)
	}

	point, _ := r.Resolve("R.Point")
	if origin.Type != point {
		t.Error("nested struct descriptor should be the cached Point")
	}

	again, _ := r.Resolve("R.Rect")
	if again != rect {
		t.Error("Resolve should return the cached descriptor")
	}
}

func TestResolve_SelfReference(t *testing.T) {
	r := newTestResolver(t)

	node, err := r.Resolve("R.Node")
	if err != nil {
		t.Fatal(err)
	}
	next, _ := node.Field("next")
	if next.Type != node {
		t.Error("recursive leg should point at the same descriptor")
	}
	if node.Size != 8 {
		t.Errorf("Node size = %d", node.Size)
	}

	left, err := r.Resolve("R.Left")
	if err != nil {
		t.Fatal(err)
	}
	right, _ := r.Resolve("R.Right")
	if left.Fields[0].Type != right || right.Fields[0].Type != left {
		t.Error("mutual references should resolve to cached descriptors")
	}
}

func TestResolve_InlineCycleRejected(t *testing.T) {
	r := newTestResolver(t)
	if _, err := r.Resolve("R.Loop"); err == nil {
		t.Fatal("inline self-embedding must fail")
	}
}

func TestResolve_Unknown(t *testing.T) {
	r := newTestResolver(t)
	_, err := r.Resolve("R.Nope")
	if !errors.IsKind(err, errors.KindUnknownType) {
		t.Fatalf("err = %v", err)
	}
	if _, err := r.Callable("R.nope"); !errors.IsKind(err, errors.KindUnknownType) {
		t.Fatalf("callable err = %v", err)
	}
}

func TestResolve_Concurrent(t *testing.T) {
	r := newTestResolver(t)

	const n = 16
	results := make([]*types.Type, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Resolve("R.Widget")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] == nil || results[i] != results[0] {
			t.Fatalf("result %d differs from result 0", i)
		}
	}
}

func TestCallable(t *testing.T) {
	r := newTestResolver(t)

	c, err := r.Callable("R.apply")
	if err != nil {
		t.Fatal(err)
	}
	if c.Symbol != "r_apply" || c.ReturnTransfer != types.TransferEverything {
		t.Errorf("callable = %+v", c)
	}
	values := c.Params[0]
	if values.Type.Length != types.LengthParam || values.Type.LengthParam != 1 {
		t.Errorf("values length = %s/%d", values.Type.Length, values.Type.LengthParam)
	}
	fn := c.Params[2]
	if fn.Scope != types.ScopeNotified || fn.Closure != 3 || fn.Destroy != 4 {
		t.Errorf("fn = %+v", fn)
	}
	if fn.Type.Kind != types.KindCallback || fn.Type.Callable == nil {
		t.Errorf("fn type = %+v", fn.Type)
	}
	if c.Return.Length != types.LengthZeroTerminated {
		t.Errorf("return length = %s", c.Return.Length)
	}

	m, err := r.Callable("R.Widget.get_label")
	if err != nil {
		t.Fatal(err)
	}
	widget, _ := r.Resolve("R.Widget")
	if !m.Method || m.Owner != widget {
		t.Errorf("method owner = %v", m.Owner)
	}
}

func TestLookupChain(t *testing.T) {
	r := newTestResolver(t)
	widget, err := r.Resolve("R.Widget")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		kind  types.MemberKind
		owner string
	}{
		{"label", types.MemberProperty, "R.Widget"},
		{"id", types.MemberProperty, "R.Base"},
		{"nick-name", types.MemberProperty, "R.Named"},
		{"NICK_NAME", types.MemberAny, "R.Named"},
		{"changed", types.MemberSignal, "R.Base"},
		{"get-label", types.MemberMethod, "R.Widget"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := r.Lookup(widget, tt.name, tt.kind)
			if !ok {
				t.Fatal("not found")
			}
			if m.Owner.Name != tt.owner {
				t.Errorf("owner = %s, want %s", m.Owner.Name, tt.owner)
			}
		})
	}

	if _, ok := r.Lookup(widget, "label", types.MemberSignal); ok {
		t.Error("kind filter ignored")
	}
	_, err = r.Member(widget, "tooltip", types.MemberProperty)
	if !errors.IsKind(err, errors.KindNoSuchMember) {
		t.Errorf("err = %v", err)
	}
}

func TestLookupLiveQuery(t *testing.T) {
	r := newTestResolver(t)
	widget, _ := r.Resolve("R.Widget")

	var asked []string
	r.SetLiveQuery(func(t *types.Type, name string) (*types.Member, bool) {
		asked = append(asked, name)
		if name != "tooltip-text" {
			return nil, false
		}
		p := &types.Property{Name: name, Type: types.Basic(types.KindUTF8), Owner: t, Flags: types.PropReadable}
		return &types.Member{Kind: types.MemberProperty, Name: name, Property: p, Owner: t}, true
	})

	if _, ok := r.Lookup(widget, "label", types.MemberProperty); !ok || len(asked) != 0 {
		t.Error("live query should only run after static strategies miss")
	}
	m, ok := r.Lookup(widget, "tooltip_text", types.MemberProperty)
	if !ok || m.Property.Name != "tooltip-text" {
		t.Fatalf("live property not found: %v", m)
	}
	if asked[0] != "tooltip-text" {
		t.Errorf("live query received unfolded name %q", asked[0])
	}
	if _, ok := r.Lookup(widget, "tooltip_text", types.MemberSignal); ok {
		t.Error("live query should not answer signal lookups")
	}
}

func TestByGType(t *testing.T) {
	r := newTestResolver(t)

	point, _ := r.Resolve("R.Point")
	got, ok := r.ByGType(point.GType)
	if !ok || got != point {
		t.Error("ByGType should return the cached Point")
	}

	fresh := newTestResolver(t)
	w, ok := fresh.ByGType(typelib.FirstDynamicGType + 8)
	if !ok || w.Name != "R.Widget" {
		t.Errorf("ByGType on cold cache = %v", w)
	}

	s, ok := r.ByGType(types.GTypeString)
	if !ok || s.Kind != types.KindUTF8 {
		t.Error("fundamental string id should map to utf8")
	}
	if _, ok := r.ByGType(0xdead); ok {
		t.Error("unknown id should miss")
	}
}
