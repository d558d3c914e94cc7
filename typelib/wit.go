package typelib

import (
	"fmt"

	"github.com/wippyai/gi-bridge/errors"
	"go.bytecodealliance.org/wit"
)

// WITImporter converts WIT type definitions into typelib entries.
// Records become structs, enums and flags keep their case order, list<T>
// becomes a doubly linked list and option<T> a nullable reference.
type WITImporter struct {
	named map[*wit.TypeDef]string
	ns    *Namespace
}

// NewWITImporter creates an importer that declares into namespace ns.
func NewWITImporter(ns string) *WITImporter {
	return &WITImporter{
		named: make(map[*wit.TypeDef]string),
		ns:    &Namespace{Name: ns},
	}
}

// Namespace returns the namespace built so far, ready for Repository.Add.
func (im *WITImporter) Namespace() *Namespace {
	return im.ns
}

// Declare names a record, enum or flags definition and adds it to the
// namespace. Definitions referenced by later declarations must be
// declared first.
func (im *WITImporter) Declare(name string, def *wit.TypeDef) (*Info, error) {
	if def == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "nil WIT definition")
	}
	im.named[def] = im.ns.Name + "." + name

	info := &Info{Name: name}
	switch kind := def.Kind.(type) {
	case *wit.Record:
		info.Kind = InfoStruct
		for _, f := range kind.Fields {
			ft, err := im.Type(f.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, f.Name, err)
			}
			info.Fields = append(info.Fields, FieldInfo{Name: f.Name, Type: ft})
		}
	case *wit.Enum:
		info.Kind = InfoEnum
		for i, c := range kind.Cases {
			info.Values = append(info.Values, ValueInfo{Name: c.Name, Value: int64(i)})
		}
	case *wit.Flags:
		if len(kind.Flags) > 32 {
			return nil, errors.Unsupported(errors.PhaseLoad, "flags wider than 32 bits")
		}
		info.Kind = InfoFlags
		for i, f := range kind.Flags {
			info.Values = append(info.Values, ValueInfo{Name: f.Name, Value: int64(1) << i})
		}
	default:
		delete(im.named, def)
		return nil, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("WIT definition %T cannot be declared", def.Kind))
	}

	im.ns.Types = append(im.ns.Types, info)
	return info, nil
}

// Type maps a WIT type to a type reference. Named definitions must have
// been declared.
func (im *WITImporter) Type(t wit.Type) (TypeInfo, error) {
	switch t := t.(type) {
	case wit.Bool:
		return Basic(TagBoolean), nil
	case wit.U8:
		return Basic(TagUint8), nil
	case wit.S8:
		return Basic(TagInt8), nil
	case wit.U16:
		return Basic(TagUint16), nil
	case wit.S16:
		return Basic(TagInt16), nil
	case wit.U32, wit.Char:
		return Basic(TagUint32), nil
	case wit.S32:
		return Basic(TagInt32), nil
	case wit.U64:
		return Basic(TagUint64), nil
	case wit.S64:
		return Basic(TagInt64), nil
	case wit.F32:
		return Basic(TagFloat), nil
	case wit.F64:
		return Basic(TagDouble), nil
	case wit.String:
		return Basic(TagUTF8), nil
	case *wit.TypeDef:
		if name, ok := im.named[t]; ok {
			return Named(name), nil
		}
		return im.typeDef(t)
	default:
		return TypeInfo{}, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("WIT type %T", t))
	}
}

func (im *WITImporter) typeDef(def *wit.TypeDef) (TypeInfo, error) {
	switch kind := def.Kind.(type) {
	case *wit.List:
		elem, err := im.Type(kind.Type)
		if err != nil {
			return TypeInfo{}, err
		}
		if elem.Tag == TagInterface {
			elem.Pointer = true
		}
		return TypeInfo{Tag: TagList, Elem: &elem}, nil
	case *wit.Option:
		inner, err := im.Type(kind.Type)
		if err != nil {
			return TypeInfo{}, err
		}
		inner.Nullable = true
		return inner, nil
	case wit.Type:
		return im.Type(kind)
	default:
		return TypeInfo{}, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("anonymous WIT %T", def.Kind))
	}
}

// ParseWIT parses a WIT type expression such as "list<u32>" or
// "option<string>" into a type reference.
func ParseWIT(expr string) (TypeInfo, error) {
	t, err := wit.ParseType(expr)
	if err != nil {
		return TypeInfo{}, errors.Load("parse WIT type "+expr, err)
	}
	return NewWITImporter("").Type(t)
}
