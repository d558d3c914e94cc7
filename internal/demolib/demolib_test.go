package demolib

import (
	"testing"

	"github.com/wippyai/gi-bridge/typelib"
)

func TestLoadTypelib(t *testing.T) {
	repo, err := LoadTypelib()
	if err != nil {
		t.Fatalf("LoadTypelib: %v", err)
	}

	tests := []struct {
		name string
		kind typelib.InfoKind
	}{
		{"Demo.Rect", typelib.InfoStruct},
		{"Demo.Boxed", typelib.InfoStruct},
		{"Demo.Widget", typelib.InfoObject},
		{"Demo.Widget.new", typelib.InfoFunction},
		{"Demo.IntFunc", typelib.InfoCallback},
		{"Demo.boxed_new", typelib.InfoFunction},
		{"Demo.range_u64", typelib.InfoFunction},
		{"Demo.schedule_once_at", typelib.InfoFunction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := repo.Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if info.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", info.Kind, tt.kind)
			}
		})
	}

	rect, err := repo.Lookup("Demo.Rect")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range rect.Fields {
		if f.Name == "label" && !f.Type.Nullable {
			t.Error("Rect.label lost its nullable marker")
		}
	}
}

func TestNew(t *testing.T) {
	repo, err := LoadTypelib()
	if err != nil {
		t.Fatal(err)
	}
	_, st, err := New(repo)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	gt := st.GTypes()
	if gt.Widget == 0 || gt.Widget == gt.Object {
		t.Errorf("gtypes = %+v", gt)
	}
	if n := st.Scheduled(); n != 0 {
		t.Errorf("scheduled = %d, want 0", n)
	}
}
