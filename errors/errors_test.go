package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:      PhaseEncode,
				Kind:       KindTypeMismatch,
				Path:       []string{"rect", "origin", "x"},
				GoType:     "string",
				NativeType: "gint32",
				Detail:     "cannot convert",
			},
			contains: []string{"[encode]", "type_mismatch", "rect.origin.x", "string", "gint32", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseCall,
				Kind:   KindAllocation,
				Detail: "heap full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[call]", "allocation", "heap full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseLoad, KindInvalidData, cause, "load typelib")
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should find the cause")
	}
}

func TestError_Is(t *testing.T) {
	err := TypeMismatch(PhaseEncode, nil, "bool", "gint32")

	if !errors.Is(err, &Error{Phase: PhaseEncode, Kind: KindTypeMismatch}) {
		t.Error("same phase and kind should match")
	}
	if errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindTypeMismatch}) {
		t.Error("different phase should not match")
	}
	if !errors.Is(err, &Error{Kind: KindTypeMismatch}) {
		t.Error("empty phase should match on kind alone")
	}
}

func TestIsKind(t *testing.T) {
	inner := NotWritable("Demo.Widget", "id")
	outer := fmt.Errorf("set property: %w", inner)

	if !IsKind(outer, KindNotWritable) {
		t.Error("IsKind should see through fmt wrapping")
	}
	if IsKind(outer, KindNotReadable) {
		t.Error("IsKind matched the wrong kind")
	}
	if KindOf(outer) != KindNotWritable {
		t.Errorf("KindOf = %q", KindOf(outer))
	}

	chained := Wrap(PhaseCall, KindInvalidData, UnknownType("Demo.Missing"), "resolve argument")
	if !IsKind(chained, KindUnknownType) {
		t.Error("IsKind should follow Cause chains")
	}
	if IsKind(nil, KindUnknownType) {
		t.Error("nil error has no kind")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseEncode, KindTypeMismatch).
		Path("a", "b").
		GoType("string").
		NativeType("guint8").
		Value("x").
		Detail("bad %s", "value").
		Build()

	if err.Detail != "bad value" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if len(err.Path) != 2 || err.Value != "x" {
		t.Errorf("unexpected builder result: %+v", err)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err  *Error
		kind Kind
		text string
	}{
		{UnknownType("Demo.Nope"), KindUnknownType, "Demo.Nope"},
		{OutOfRange(PhaseEncode, nil, 128, "gint8"), KindTypeMismatch, "out of range"},
		{NoSuchMember("Demo.Widget", "bogus"), KindNoSuchMember, "bogus"},
		{NotReadable("Demo.Widget", "secret"), KindNotReadable, "not readable"},
		{NotWritable("Demo.Widget", "id"), KindNotWritable, "not writable"},
		{InvalidVariantType("(i", 2, "unterminated tuple"), KindInvalidVariantType, "unterminated"},
		{NativeFailure(7, 3, "parse failed"), KindNativeFailure, "parse failed"},
		{AllocationFailed(PhaseEncode, 16, 8), KindAllocation, "16 bytes"},
		{OutOfBounds(PhaseDecode, nil, 5, 3), KindOutOfBounds, "index 5"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.text) {
				t.Errorf("%q does not contain %q", tt.err.Error(), tt.text)
			}
		})
	}
}
