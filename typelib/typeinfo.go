package typelib

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tag is the raw type tag of a type reference.
type Tag string

const (
	TagVoid      Tag = "void"
	TagBoolean   Tag = "gboolean"
	TagInt8      Tag = "gint8"
	TagUint8     Tag = "guint8"
	TagInt16     Tag = "gint16"
	TagUint16    Tag = "guint16"
	TagInt32     Tag = "gint32"
	TagUint32    Tag = "guint32"
	TagInt64     Tag = "gint64"
	TagUint64    Tag = "guint64"
	TagFloat     Tag = "gfloat"
	TagDouble    Tag = "gdouble"
	TagUTF8      Tag = "utf8"
	TagFilename  Tag = "filename"
	TagGType     Tag = "GType"
	TagPointer   Tag = "gpointer"
	TagInterface Tag = "interface"
	TagArray     Tag = "array"
	TagList      Tag = "glist"
	TagSList     Tag = "gslist"
	TagHash      Tag = "ghash"
	TagValue     Tag = "GValue"
	TagVariant   Tag = "GVariant"
	TagError     Tag = "GError"
)

var basicTags = map[string]Tag{
	"void":          TagVoid,
	"none":          TagVoid,
	"gboolean":      TagBoolean,
	"bool":          TagBoolean,
	"gint8":         TagInt8,
	"gchar":         TagInt8,
	"guint8":        TagUint8,
	"guchar":        TagUint8,
	"gint16":        TagInt16,
	"gshort":        TagInt16,
	"guint16":       TagUint16,
	"gushort":       TagUint16,
	"gint32":        TagInt32,
	"gint":          TagInt32,
	"glong":         TagInt32,
	"gssize":        TagInt32,
	"guint32":       TagUint32,
	"guint":         TagUint32,
	"gulong":        TagUint32,
	"gsize":         TagUint32,
	"gunichar":      TagUint32,
	"gint64":        TagInt64,
	"guint64":       TagUint64,
	"gfloat":        TagFloat,
	"gdouble":       TagDouble,
	"utf8":          TagUTF8,
	"filename":      TagFilename,
	"GType":         TagGType,
	"gpointer":      TagPointer,
	"GValue":        TagValue,
	"GObject.Value": TagValue,
	"GVariant":      TagVariant,
	"GLib.Variant":  TagVariant,
	"GError":        TagError,
	"GLib.Error":    TagError,
}

// TypeInfo is an unresolved type reference as written in metadata.
type TypeInfo struct {
	Elem           *TypeInfo
	Key            *TypeInfo
	Value          *TypeInfo
	Tag            Tag
	Name           string
	Length         string
	Fixed          int
	ZeroTerminated bool
	Nullable       bool
	Pointer        bool
}

// Basic returns a reference to a basic tag.
func Basic(tag Tag) TypeInfo {
	return TypeInfo{Tag: tag}
}

// Named returns a reference to a named type.
func Named(qualified string) TypeInfo {
	return TypeInfo{Tag: TagInterface, Name: qualified}
}

// String renders the reference in shorthand form.
func (t TypeInfo) String() string {
	var s string
	switch t.Tag {
	case TagInterface:
		s = t.Name
	case TagArray:
		s = "array<" + t.Elem.String() + ">"
		switch {
		case t.Fixed > 0:
			s += fmt.Sprintf("[%d]", t.Fixed)
		case t.Length != "":
			s += "[" + t.Length + "]"
		case t.ZeroTerminated:
			s += "[0]"
		}
	case TagList, TagSList:
		s = string(t.Tag) + "<" + t.Elem.String() + ">"
	case TagHash:
		s = "ghash<" + t.Key.String() + "," + t.Value.String() + ">"
	default:
		s = string(t.Tag)
	}
	if t.Pointer {
		s += "*"
	}
	if t.Nullable {
		s += "?"
	}
	return s
}

// ParseShorthand parses a scalar type reference such as "utf8?",
// "Demo.Point*" or "gint32".
func ParseShorthand(s string) (TypeInfo, error) {
	var t TypeInfo
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "?") {
		t.Nullable = true
		s = strings.TrimSuffix(s, "?")
	}
	if strings.HasSuffix(s, "*") {
		t.Pointer = true
		s = strings.TrimSuffix(s, "*")
	}
	if s == "" {
		return t, fmt.Errorf("empty type reference")
	}
	if tag, ok := basicTags[s]; ok {
		t.Tag = tag
		return t, nil
	}
	for _, r := range s {
		if !(r == '.' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return t, fmt.Errorf("invalid type reference %q", s)
		}
	}
	t.Tag = TagInterface
	t.Name = s
	return t, nil
}

// typeInfoMapping is the mapping form of a type reference.
type typeInfoMapping struct {
	Array          *TypeInfo `yaml:"array"`
	List           *TypeInfo `yaml:"list"`
	SList          *TypeInfo `yaml:"slist"`
	Hash           *TypeInfo `yaml:"hash"`
	Value          *TypeInfo `yaml:"value"`
	Type           string    `yaml:"type"`
	Length         string    `yaml:"length"`
	Fixed          int       `yaml:"fixed"`
	ZeroTerminated bool      `yaml:"zero_terminated"`
	Nullable       bool      `yaml:"nullable"`
}

// UnmarshalYAML accepts both the scalar shorthand and the mapping form.
func (t *TypeInfo) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseShorthand(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*t = parsed
		return nil
	}

	var m typeInfoMapping
	if err := node.Decode(&m); err != nil {
		return err
	}

	switch {
	case m.Array != nil:
		*t = TypeInfo{Tag: TagArray, Elem: m.Array, Length: m.Length, Fixed: m.Fixed, ZeroTerminated: m.ZeroTerminated}
	case m.List != nil:
		*t = TypeInfo{Tag: TagList, Elem: m.List}
	case m.SList != nil:
		*t = TypeInfo{Tag: TagSList, Elem: m.SList}
	case m.Hash != nil:
		if m.Value == nil {
			return fmt.Errorf("line %d: hash type requires a value type", node.Line)
		}
		*t = TypeInfo{Tag: TagHash, Key: m.Hash, Value: m.Value}
	case m.Type != "":
		parsed, err := ParseShorthand(m.Type)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*t = parsed
	default:
		return fmt.Errorf("line %d: type mapping needs one of array, list, slist, hash or type", node.Line)
	}
	if m.Nullable {
		t.Nullable = true
	}
	return nil
}
