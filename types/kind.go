package types

// Kind is the resolved kind of a type descriptor.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat
	KindDouble
	KindUTF8
	KindFilename
	KindGType
	KindPointer
	KindEnum
	KindFlags
	KindStruct
	KindObject
	KindInterface
	KindFundamental
	KindCallback
	KindArray
	KindList
	KindSList
	KindHash
	KindValue
	KindVariant
	KindError
)

var kindNames = [...]string{
	KindVoid:        "void",
	KindBool:        "gboolean",
	KindInt8:        "gint8",
	KindUint8:       "guint8",
	KindInt16:       "gint16",
	KindUint16:      "guint16",
	KindInt32:       "gint32",
	KindUint32:      "guint32",
	KindInt64:       "gint64",
	KindUint64:      "guint64",
	KindFloat:       "gfloat",
	KindDouble:      "gdouble",
	KindUTF8:        "utf8",
	KindFilename:    "filename",
	KindGType:       "GType",
	KindPointer:     "gpointer",
	KindEnum:        "enum",
	KindFlags:       "flags",
	KindStruct:      "struct",
	KindObject:      "object",
	KindInterface:   "interface",
	KindFundamental: "fundamental",
	KindCallback:    "callback",
	KindArray:       "array",
	KindList:        "glist",
	KindSList:       "gslist",
	KindHash:        "ghash",
	KindValue:       "GValue",
	KindVariant:     "GVariant",
	KindError:       "GError",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsInteger reports whether k is a fixed-width integer kind.
func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindUint64
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// Bits returns the width of an integer or float kind, 0 otherwise.
func (k Kind) Bits() int {
	switch k {
	case KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32, KindFloat, KindBool, KindEnum, KindFlags, KindGType:
		return 32
	case KindInt64, KindUint64, KindDouble:
		return 64
	}
	return 0
}

// IsNamed reports whether descriptors of kind k are shared by name.
func (k Kind) IsNamed() bool {
	switch k {
	case KindEnum, KindFlags, KindStruct, KindObject, KindInterface, KindFundamental, KindCallback:
		return true
	}
	return false
}

// IsInstance reports whether k is a refcounted instance kind.
func (k Kind) IsInstance() bool {
	return k == KindObject || k == KindInterface || k == KindFundamental
}

// Fundamental type ids, fixed by the native type system.
const (
	GTypeInvalid   uint32 = 0
	GTypeNone      uint32 = 4
	GTypeInterface uint32 = 8
	GTypeChar      uint32 = 12
	GTypeUChar     uint32 = 16
	GTypeBoolean   uint32 = 20
	GTypeInt       uint32 = 24
	GTypeUInt      uint32 = 28
	GTypeLong      uint32 = 32
	GTypeULong     uint32 = 36
	GTypeInt64     uint32 = 40
	GTypeUInt64    uint32 = 44
	GTypeEnum      uint32 = 48
	GTypeFlags     uint32 = 52
	GTypeFloat     uint32 = 56
	GTypeDouble    uint32 = 60
	GTypeString    uint32 = 64
	GTypePointer   uint32 = 68
	GTypeBoxed     uint32 = 72
	GTypeParam     uint32 = 76
	GTypeObject    uint32 = 80
	GTypeVariant   uint32 = 84
)

// FundamentalGType returns the fundamental type id used to tag values of
// kind k, or GTypeInvalid when k has no fundamental tag.
func (k Kind) FundamentalGType() uint32 {
	switch k {
	case KindVoid:
		return GTypeNone
	case KindBool:
		return GTypeBoolean
	case KindInt8:
		return GTypeChar
	case KindUint8:
		return GTypeUChar
	case KindInt16, KindInt32:
		return GTypeInt
	case KindUint16, KindUint32:
		return GTypeUInt
	case KindInt64:
		return GTypeInt64
	case KindUint64:
		return GTypeUInt64
	case KindFloat:
		return GTypeFloat
	case KindDouble:
		return GTypeDouble
	case KindUTF8, KindFilename:
		return GTypeString
	case KindPointer:
		return GTypePointer
	case KindEnum:
		return GTypeEnum
	case KindFlags:
		return GTypeFlags
	case KindStruct:
		return GTypeBoxed
	case KindObject, KindInterface:
		return GTypeObject
	case KindVariant:
		return GTypeVariant
	}
	return GTypeInvalid
}

// KindForGType maps a fundamental type id back to a scalar kind.
func KindForGType(id uint32) (Kind, bool) {
	switch id {
	case GTypeNone:
		return KindVoid, true
	case GTypeBoolean:
		return KindBool, true
	case GTypeChar:
		return KindInt8, true
	case GTypeUChar:
		return KindUint8, true
	case GTypeInt, GTypeLong:
		return KindInt32, true
	case GTypeUInt, GTypeULong:
		return KindUint32, true
	case GTypeInt64:
		return KindInt64, true
	case GTypeUInt64:
		return KindUint64, true
	case GTypeFloat:
		return KindFloat, true
	case GTypeDouble:
		return KindDouble, true
	case GTypeString:
		return KindUTF8, true
	case GTypePointer:
		return KindPointer, true
	case GTypeVariant:
		return KindVariant, true
	}
	return KindVoid, false
}
