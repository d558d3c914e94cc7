package variant

import (
	"fmt"
	"strings"

	"github.com/wippyai/gi-bridge/errors"
)

// Class is the leading letter of a type string.
type Class byte

const (
	ClassBoolean    Class = 'b'
	ClassByte       Class = 'y'
	ClassInt16      Class = 'n'
	ClassUint16     Class = 'q'
	ClassInt32      Class = 'i'
	ClassUint32     Class = 'u'
	ClassInt64      Class = 'x'
	ClassUint64     Class = 't'
	ClassHandle     Class = 'h'
	ClassDouble     Class = 'd'
	ClassString     Class = 's'
	ClassObjectPath Class = 'o'
	ClassSignature  Class = 'g'
	ClassVariant    Class = 'v'
	ClassMaybe      Class = 'm'
	ClassArray      Class = 'a'
	ClassTuple      Class = '('
	ClassDictEntry  Class = '{'
)

const maxDepth = 64

// Type is a parsed variant type.
type Type struct {
	Elem  *Type
	Items []*Type
	str   string
	Class Class
}

var basicTypes = func() map[Class]*Type {
	m := make(map[Class]*Type)
	for _, c := range "bynqiuxthdsog" {
		m[Class(c)] = &Type{Class: Class(c), str: string(c)}
	}
	m[ClassVariant] = &Type{Class: ClassVariant, str: "v"}
	return m
}()

// String returns the type string.
func (t *Type) String() string {
	return t.str
}

// IsBasic reports whether t may be a dictionary key.
func (t *Type) IsBasic() bool {
	switch t.Class {
	case ClassBoolean, ClassByte, ClassInt16, ClassUint16, ClassInt32, ClassUint32,
		ClassInt64, ClassUint64, ClassHandle, ClassDouble, ClassString, ClassObjectPath, ClassSignature:
		return true
	}
	return false
}

// IsContainer reports whether values of t have children.
func (t *Type) IsContainer() bool {
	switch t.Class {
	case ClassVariant, ClassMaybe, ClassArray, ClassTuple, ClassDictEntry:
		return true
	}
	return false
}

// Alignment returns the serialization alignment.
func (t *Type) Alignment() int {
	switch t.Class {
	case ClassInt16, ClassUint16:
		return 2
	case ClassInt32, ClassUint32, ClassHandle:
		return 4
	case ClassInt64, ClassUint64, ClassDouble, ClassVariant:
		return 8
	case ClassMaybe, ClassArray:
		return t.Elem.Alignment()
	case ClassTuple, ClassDictEntry:
		align := 1
		for _, it := range t.Items {
			if a := it.Alignment(); a > align {
				align = a
			}
		}
		return align
	}
	return 1
}

// FixedSize returns the serialized size of every value of t, or 0 when
// the size varies.
func (t *Type) FixedSize() int {
	switch t.Class {
	case ClassBoolean, ClassByte:
		return 1
	case ClassInt16, ClassUint16:
		return 2
	case ClassInt32, ClassUint32, ClassHandle:
		return 4
	case ClassInt64, ClassUint64, ClassDouble:
		return 8
	case ClassTuple, ClassDictEntry:
		if len(t.Items) == 0 {
			return 1
		}
		offset := 0
		for _, it := range t.Items {
			size := it.FixedSize()
			if size == 0 {
				return 0
			}
			offset = alignInt(offset, it.Alignment()) + size
		}
		return alignInt(offset, t.Alignment())
	}
	return 0
}

func alignInt(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}

// Parse parses a single complete type string.
func Parse(s string) (*Type, error) {
	p := &parser{src: s}
	t, err := p.one(0)
	if err != nil {
		return nil, err
	}
	if p.pos != len(s) {
		return nil, p.fail("trailing characters after complete type")
	}
	return t, nil
}

// MustParse is Parse that panics on error.
func MustParse(s string) *Type {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseSignature parses a sequence of complete types, the content of a
// signature value.
func ParseSignature(s string) ([]*Type, error) {
	p := &parser{src: s}
	var out []*Type
	for p.pos < len(s) {
		t, err := p.one(0)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) fail(detail string) error {
	return errors.InvalidVariantType(p.src, p.pos, detail)
}

func (p *parser) one(depth int) (*Type, error) {
	if depth > maxDepth {
		return nil, p.fail("type nesting too deep")
	}
	if p.pos >= len(p.src) {
		return nil, p.fail("unexpected end of type string")
	}
	start := p.pos
	c := Class(p.src[p.pos])
	p.pos++

	if t, ok := basicTypes[c]; ok {
		return t, nil
	}

	switch c {
	case ClassMaybe, ClassArray:
		elem, err := p.one(depth + 1)
		if err != nil {
			return nil, err
		}
		return &Type{Class: c, Elem: elem, str: p.src[start:p.pos]}, nil

	case ClassTuple:
		var items []*Type
		for {
			if p.pos >= len(p.src) {
				return nil, p.fail("unbalanced parenthesis")
			}
			if p.src[p.pos] == ')' {
				p.pos++
				return &Type{Class: c, Items: items, str: p.src[start:p.pos]}, nil
			}
			it, err := p.one(depth + 1)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}

	case ClassDictEntry:
		if p.pos < len(p.src) && p.src[p.pos] == '}' {
			return nil, p.fail("empty dictionary entry")
		}
		key, err := p.one(depth + 1)
		if err != nil {
			return nil, err
		}
		if !key.IsBasic() {
			p.pos = start + 1
			return nil, p.fail(fmt.Sprintf("dictionary entry key %q is not a basic type", key.str))
		}
		if p.pos < len(p.src) && p.src[p.pos] == '}' {
			return nil, p.fail("dictionary entry has no value type")
		}
		val, err := p.one(depth + 1)
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.src) {
			return nil, p.fail("unbalanced brace")
		}
		if p.src[p.pos] != '}' {
			return nil, p.fail("dictionary entry must hold exactly two types")
		}
		p.pos++
		return &Type{Class: c, Items: []*Type{key, val}, str: p.src[start:p.pos]}, nil

	case ')', '}':
		p.pos = start
		return nil, p.fail(fmt.Sprintf("unbalanced %q", string(rune(c))))
	}

	p.pos = start
	return nil, p.fail(fmt.Sprintf("unknown type letter %q", string(rune(c))))
}

// validObjectPath reports whether s is a D-Bus style object path.
func validObjectPath(s string) bool {
	if s == "/" {
		return true
	}
	if !strings.HasPrefix(s, "/") || strings.HasSuffix(s, "/") {
		return false
	}
	for _, seg := range strings.Split(s[1:], "/") {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return false
			}
		}
	}
	return true
}
