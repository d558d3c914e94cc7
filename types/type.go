package types

import (
	"strconv"
	"strings"
)

// PointerSize is the size of a native pointer.
const PointerSize = 4

// Type is a resolved type descriptor.
type Type struct {
	Elem       *Type
	Key        *Type
	Value      *Type
	Parent     *Type
	Callable   *Callable
	Symbols    map[string]string
	Name       string
	Copy       string
	Free       string
	Interfaces []*Type
	Fields     []*Field
	Properties []*Property
	Signals    []*Signal
	Methods    []*Callable
	Values     []EnumValue

	// LengthParam is the parameter index holding the element count of a
	// LengthParam array, -1 otherwise.
	LengthParam int
	Fixed       int
	Size        uint32
	Align       uint32
	GType       uint32
	Kind        Kind
	Length      ArrayLength

	// ElemByValue marks arrays whose struct or GValue elements are stored
	// inline rather than as pointers.
	ElemByValue   bool
	ElemNullable  bool
	ValueNullable bool
}

// Basic returns a fresh descriptor for a scalar kind.
func Basic(k Kind) *Type {
	return &Type{Kind: k, Name: k.String(), GType: k.FundamentalGType(), LengthParam: -1}
}

// String returns the qualified name for named types and a shorthand
// rendering otherwise.
func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case KindArray:
		s := "array<" + t.Elem.String() + ">"
		if t.Length == LengthFixed {
			s += "[" + strconv.Itoa(t.Fixed) + "]"
		}
		return s
	case KindList, KindSList:
		return t.Kind.String() + "<" + t.Elem.String() + ">"
	case KindHash:
		return "ghash<" + t.Key.String() + "," + t.Value.String() + ">"
	}
	if t.Name != "" {
		return t.Name
	}
	return t.Kind.String()
}

// SlotSize returns the storage size of t as a struct field or array
// element. Named aggregates count as pointers unless byValue is set.
func (t *Type) SlotSize(byValue bool) uint32 {
	switch t.Kind {
	case KindVoid:
		return 0
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindBool, KindInt32, KindUint32, KindFloat, KindEnum, KindFlags, KindGType:
		return 4
	case KindInt64, KindUint64, KindDouble:
		return 8
	case KindStruct:
		if byValue {
			return t.Size
		}
	case KindValue:
		if byValue {
			return ValueSize
		}
	}
	return PointerSize
}

// SlotAlign returns the alignment matching SlotSize.
func (t *Type) SlotAlign(byValue bool) uint32 {
	switch t.Kind {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt64, KindUint64, KindDouble:
		return 8
	case KindStruct:
		if byValue {
			if t.Align == 0 {
				return 1
			}
			return t.Align
		}
	case KindValue:
		if byValue {
			return 8
		}
	}
	return 4
}

// IsA reports whether t equals other or derives from it through parents
// or implemented interfaces.
func (t *Type) IsA(other *Type) bool {
	for cur := t; cur != nil; cur = cur.Parent {
		if cur == other || cur.Name == other.Name {
			return true
		}
		for _, iface := range cur.Interfaces {
			if iface.IsA(other) {
				return true
			}
		}
	}
	return false
}

// Symbol returns a runtime symbol declared by t or its nearest ancestor,
// together with the declaring type.
func (t *Type) Symbol(key string) (string, *Type, bool) {
	for cur := t; cur != nil; cur = cur.Parent {
		if s, ok := cur.Symbols[key]; ok && s != "" {
			return s, cur, true
		}
	}
	return "", nil, false
}

// Field returns an own field by folded name.
func (t *Type) Field(name string) (*Field, bool) {
	folded := FoldName(name)
	for _, f := range t.Fields {
		if FoldName(f.Name) == folded {
			return f, true
		}
	}
	return nil, false
}

// EnumValue returns the numeric value of a symbolic enum or flags member.
func (t *Type) EnumValue(name string) (int64, bool) {
	folded := FoldName(name)
	for _, v := range t.Values {
		if FoldName(v.Name) == folded {
			return v.Value, true
		}
	}
	return 0, false
}

// EnumName returns the symbolic name of a value, if declared.
func (t *Type) EnumName(value int64) (string, bool) {
	for _, v := range t.Values {
		if v.Value == value {
			return v.Name, true
		}
	}
	return "", false
}

// FoldName normalizes member names: case-insensitive, '_' and '-' equal.
func FoldName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// EnumValue is one enum member or flag bit.
type EnumValue struct {
	Name  string
	Value int64
}

// Field is a struct field with its computed offset.
type Field struct {
	Type     *Type
	Name     string
	Offset   uint32
	Pointer  bool
	Nullable bool
	Readonly bool
}

// Inline reports whether the field stores an aggregate by value.
func (f *Field) Inline() bool {
	return !f.Pointer && (f.Type.Kind == KindStruct || f.Type.Kind == KindValue)
}

// PropFlags are property access flags.
type PropFlags uint8

const (
	PropReadable PropFlags = 1 << iota
	PropWritable
	PropConstruct
)

// Property is an object or interface property.
type Property struct {
	Type  *Type
	Owner *Type
	Name  string
	Flags PropFlags
}

// Readable reports whether reads are permitted.
func (p *Property) Readable() bool { return p.Flags&PropReadable != 0 }

// Writable reports whether writes are permitted.
func (p *Property) Writable() bool { return p.Flags&PropWritable != 0 }

// Signal is a signal declared on an object or interface.
type Signal struct {
	Return *Type
	Owner  *Type
	Name   string
	Params []*Param
}

// Param is a resolved callable parameter.
type Param struct {
	Type *Type
	Name string

	// Closure and Destroy index the user-data and destroy-notify
	// parameters of a callback parameter, -1 when absent.
	Closure int
	Destroy int

	Direction       Direction
	Transfer        Transfer
	Scope           Scope
	CallerAllocates bool
	Nullable        bool
	Optional        bool
}

// Callable is a resolved function, method, constructor or callback signature.
type Callable struct {
	Return         *Type
	Owner          *Type
	Name           string
	Symbol         string
	Params         []*Param
	ReturnTransfer Transfer
	Method         bool
	Constructor    bool
	Throws         bool
	ReturnNullable bool
}

// Param returns a parameter by name.
func (c *Callable) Param(name string) (*Param, int, bool) {
	for i, p := range c.Params {
		if p.Name == name {
			return p, i, true
		}
	}
	return nil, -1, false
}

// MemberKind classifies lookup results.
type MemberKind uint8

const (
	MemberAny MemberKind = iota
	MemberField
	MemberProperty
	MemberSignal
	MemberMethod
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberProperty:
		return "property"
	case MemberSignal:
		return "signal"
	case MemberMethod:
		return "method"
	default:
		return "member"
	}
}

// Member is the result of a member lookup.
type Member struct {
	Field    *Field
	Property *Property
	Signal   *Signal
	Method   *Callable
	Owner    *Type
	Name     string
	Kind     MemberKind
}

// Hidden marks parameters the bridge computes itself: array lengths,
// closure user data and destroy notifiers.
func (c *Callable) Hidden() []bool {
	hidden := make([]bool, len(c.Params))
	mark := func(i int) {
		if i >= 0 && i < len(hidden) {
			hidden[i] = true
		}
	}
	for i, p := range c.Params {
		if p.Type != nil && p.Type.Kind == KindArray && p.Type.Length == LengthParam {
			mark(p.Type.LengthParam)
		}
		if p.Type != nil && p.Type.Kind == KindCallback {
			mark(p.Destroy)
			if p.Closure != i {
				mark(p.Closure)
			}
			continue
		}
		if p.Closure == i {
			mark(i)
		}
	}
	return hidden
}
