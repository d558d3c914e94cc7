package types

import "strings"

// FlagSet is a decoded flags value supporting named-bit tests.
type FlagSet struct {
	Type *Type
	Bits uint32
}

// Has reports whether every bit of the named member is set.
func (f FlagSet) Has(name string) bool {
	if f.Type == nil {
		return false
	}
	v, ok := f.Type.EnumValue(name)
	if !ok {
		return false
	}
	return uint32(v) != 0 && f.Bits&uint32(v) == uint32(v)
}

// Names returns the names of declared members whose bits are all set.
func (f FlagSet) Names() []string {
	if f.Type == nil {
		return nil
	}
	var names []string
	for _, v := range f.Type.Values {
		if uint32(v.Value) != 0 && f.Bits&uint32(v.Value) == uint32(v.Value) {
			names = append(names, v.Name)
		}
	}
	return names
}

func (f FlagSet) String() string {
	names := f.Names()
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}
