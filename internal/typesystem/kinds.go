package typesystem

// TypeKind classifies a named type the way the runtime treats it during binding.
type TypeKind int

const (
	KindClass TypeKind = iota
	KindStruct
	KindInterface
	KindEnum
	KindPrimitive
)

func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindPrimitive:
		return "primitive"
	default:
		return "unknown"
	}
}

// ParseTypeKind maps the textual kind used in schema documents back to a TypeKind.
func ParseTypeKind(s string) (TypeKind, bool) {
	switch s {
	case "", "class":
		return KindClass, true
	case "struct":
		return KindStruct, true
	case "interface":
		return KindInterface, true
	case "enum":
		return KindEnum, true
	case "primitive":
		return KindPrimitive, true
	}
	return KindClass, false
}

// TypeCode identifies the underlying primitive representation of a type.
// Every non-primitive type reports CodeObject.
type TypeCode int

const (
	CodeObject TypeCode = iota
	CodeBoolean
	CodeChar
	CodeSByte
	CodeByte
	CodeInt16
	CodeUInt16
	CodeInt32
	CodeUInt32
	CodeInt64
	CodeUInt64
	CodeSingle
	CodeDouble
	CodeDecimal
	CodeString
)

// IsInteger reports whether the code denotes a signed or unsigned integer.
func (c TypeCode) IsInteger() bool {
	return c >= CodeSByte && c <= CodeUInt64
}

// IsNumeric reports whether the code denotes an integer, floating point or decimal.
func (c TypeCode) IsNumeric() bool {
	return c >= CodeSByte && c <= CodeDecimal
}

// IsUnsigned reports whether the code denotes an unsigned integer.
func (c TypeCode) IsUnsigned() bool {
	switch c {
	case CodeByte, CodeUInt16, CodeUInt32, CodeUInt64:
		return true
	}
	return false
}
