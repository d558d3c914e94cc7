package typelib

import "strings"

// InfoKind classifies a named metadata entry.
type InfoKind string

const (
	InfoStruct      InfoKind = "struct"
	InfoObject      InfoKind = "object"
	InfoInterface   InfoKind = "interface"
	InfoFundamental InfoKind = "fundamental"
	InfoEnum        InfoKind = "enum"
	InfoFlags       InfoKind = "flags"
	InfoCallback    InfoKind = "callback"
	InfoFunction    InfoKind = "function"
)

// Info is one named entry of a namespace.
type Info struct {
	Signature  *CallableInfo     `yaml:"signature,omitempty"`
	Symbols    map[string]string `yaml:"symbols,omitempty"`
	Kind       InfoKind          `yaml:"kind"`
	Name       string            `yaml:"name"`
	Namespace  string            `yaml:"-"`
	Container  string            `yaml:"-"`
	Parent     string            `yaml:"parent,omitempty"`
	Copy       string            `yaml:"copy,omitempty"`
	Free       string            `yaml:"free,omitempty"`
	Interfaces []string          `yaml:"interfaces,omitempty"`
	Fields     []FieldInfo       `yaml:"fields,omitempty"`
	Properties []PropertyInfo    `yaml:"properties,omitempty"`
	Signals    []SignalInfo      `yaml:"signals,omitempty"`
	Methods    []*CallableInfo   `yaml:"methods,omitempty"`
	Values     []ValueInfo       `yaml:"values,omitempty"`
	GType      uint32            `yaml:"-"`
}

// QualifiedName returns Namespace.Name, or Namespace.Container.Name for
// functions declared as methods.
func (i *Info) QualifiedName() string {
	if i.Container != "" {
		return i.Container + "." + i.Name
	}
	if i.Namespace == "" {
		return i.Name
	}
	return i.Namespace + "." + i.Name
}

// FieldInfo describes a struct field.
type FieldInfo struct {
	Name     string   `yaml:"name"`
	Type     TypeInfo `yaml:"type"`
	Readonly bool     `yaml:"readonly,omitempty"`
}

// PropertyInfo describes an object or interface property.
// Access is one of "rw", "r" or "w".
type PropertyInfo struct {
	Name      string   `yaml:"name"`
	Type      TypeInfo `yaml:"type"`
	Access    string   `yaml:"access"`
	Construct bool     `yaml:"construct,omitempty"`
}

// SignalInfo describes a signal. The emitting instance is implicit.
type SignalInfo struct {
	Return *TypeInfo   `yaml:"return,omitempty"`
	Name   string      `yaml:"name"`
	Params []ParamInfo `yaml:"params,omitempty"`
}

// ValueInfo is one enum member or flag bit.
type ValueInfo struct {
	Name  string `yaml:"name"`
	Value int64  `yaml:"value"`
}

// CallableInfo describes a function, method, constructor or callback.
type CallableInfo struct {
	Return         *TypeInfo   `yaml:"return,omitempty"`
	Name           string      `yaml:"name"`
	Symbol         string      `yaml:"symbol,omitempty"`
	ReturnTransfer string      `yaml:"return_transfer,omitempty"`
	Container      string      `yaml:"-"`
	Params         []ParamInfo `yaml:"params,omitempty"`
	Method         bool        `yaml:"method,omitempty"`
	Constructor    bool        `yaml:"constructor,omitempty"`
	Throws         bool        `yaml:"throws,omitempty"`
}

// ParamInfo describes one callable parameter. Closure, Destroy and the
// array Length of Type name sibling parameters.
type ParamInfo struct {
	Name            string   `yaml:"name"`
	Type            TypeInfo `yaml:"type"`
	Direction       string   `yaml:"direction,omitempty"`
	Transfer        string   `yaml:"transfer,omitempty"`
	Scope           string   `yaml:"scope,omitempty"`
	Closure         string   `yaml:"closure,omitempty"`
	Destroy         string   `yaml:"destroy,omitempty"`
	CallerAllocates bool     `yaml:"caller_allocates,omitempty"`
	Optional        bool     `yaml:"optional,omitempty"`
}

// MemberKind classifies members returned by Loader.Members.
type MemberKind string

const (
	MemberField    MemberKind = "field"
	MemberProperty MemberKind = "property"
	MemberSignal   MemberKind = "signal"
	MemberMethod   MemberKind = "method"
	MemberValue    MemberKind = "value"
)

// Member is one entry of a type's ordered member list.
type Member struct {
	Field    *FieldInfo
	Property *PropertyInfo
	Signal   *SignalInfo
	Method   *CallableInfo
	Value    *ValueInfo
	Kind     MemberKind
	Name     string
}

// Loader is the boundary between the marshaling core and the metadata source.
type Loader interface {
	// Lookup returns the entry for a qualified name such as "Demo.Point"
	// or "Demo.Widget.get_label".
	Lookup(qualifiedName string) (*Info, error)

	// Members enumerates an entry's fields, properties, signals, methods
	// and values in declaration order.
	Members(info *Info) []Member

	// Signature returns the callable descriptor of a function or callback.
	Signature(info *Info) (*CallableInfo, error)
}

// SplitName splits "Demo.Point" into ("Demo", "Point").
func SplitName(qualified string) (ns, name string) {
	if i := strings.IndexByte(qualified, '.'); i >= 0 {
		return qualified[:i], qualified[i+1:]
	}
	return "", qualified
}
