package typesystem

// Built-in types. They are created once during package initialization and are
// shared by every registry.
var (
	Object  = &TNamed{Name: "object", Kind: KindClass, Code: CodeObject}
	Bool    = primitive("bool", CodeBoolean)
	Char    = primitive("char", CodeChar)
	SByte   = primitive("sbyte", CodeSByte)
	Byte    = primitive("byte", CodeByte)
	Int16   = primitive("short", CodeInt16)
	UInt16  = primitive("ushort", CodeUInt16)
	Int32   = primitive("int", CodeInt32)
	UInt32  = primitive("uint", CodeUInt32)
	Int64   = primitive("long", CodeInt64)
	UInt64  = primitive("ulong", CodeUInt64)
	Single  = primitive("float", CodeSingle)
	Double  = primitive("double", CodeDouble)
	Decimal = primitive("decimal", CodeDecimal)
	String  = &TNamed{Name: "string", Kind: KindClass, Code: CodeString, Base: Object}
	// TypeToken is the static type of constants holding a Type.
	TypeToken = &TNamed{Name: "Type", Kind: KindClass, Base: Object}

	Enumerable = &TNamed{Name: "IEnumerable", Kind: KindInterface, Params: []TVar{{Name: "T"}}}
	List       = &TNamed{Name: "List", Kind: KindClass, Base: Object, Params: []TVar{{Name: "T"}}}
	Dictionary = &TNamed{Name: "Dictionary", Kind: KindClass, Base: Object, Params: []TVar{{Name: "K"}, {Name: "V"}}}
	KeyValue   = &TNamed{Name: "KeyValuePair", Kind: KindStruct, Params: []TVar{{Name: "K"}, {Name: "V"}}}
)

func init() {
	List.Interfaces = []Type{TApp{Constructor: Enumerable, Args: []Type{TVar{Name: "T"}}}}
	Dictionary.Interfaces = []Type{TApp{Constructor: Enumerable, Args: []Type{
		TApp{Constructor: KeyValue, Args: []Type{TVar{Name: "K"}, TVar{Name: "V"}}},
	}}}
	String.Interfaces = []Type{TApp{Constructor: Enumerable, Args: []Type{Char}}}
}

func primitive(name string, code TypeCode) *TNamed {
	return &TNamed{Name: name, Kind: KindPrimitive, Code: code}
}

// builtinNames lists the keywords understood by ParseTypeRef, including the Go spellings.
var builtinNames = map[string]*TNamed{
	"object":  Object,
	"any":     Object,
	"bool":    Bool,
	"char":    Char,
	"sbyte":   SByte,
	"int8":    SByte,
	"byte":    Byte,
	"uint8":   Byte,
	"short":   Int16,
	"int16":   Int16,
	"ushort":  UInt16,
	"uint16":  UInt16,
	"int":     Int32,
	"int32":   Int32,
	"rune":    Int32,
	"uint":    UInt32,
	"uint32":  UInt32,
	"long":    Int64,
	"int64":   Int64,
	"ulong":   UInt64,
	"uint64":  UInt64,
	"float":   Single,
	"float32": Single,
	"double":  Double,
	"float64": Double,
	"decimal": Decimal,
	"string":  String,
	"Type":    TypeToken,

	"IEnumerable":  Enumerable,
	"List":         List,
	"Dictionary":   Dictionary,
	"KeyValuePair": KeyValue,
}

// Builtin looks up a built-in type by keyword.
func Builtin(name string) (*TNamed, bool) {
	t, ok := builtinNames[name]
	return t, ok
}

// Builtins returns the canonical built-in types, one entry per type.
func Builtins() []*TNamed {
	return []*TNamed{
		Object, Bool, Char, SByte, Byte, Int16, UInt16, Int32, UInt32, Int64, UInt64,
		Single, Double, Decimal, String, TypeToken, Enumerable, List, Dictionary, KeyValue,
	}
}

// NewClass creates a reference type deriving from base (Object when nil).
func NewClass(name string, base Type, interfaces ...Type) *TNamed {
	if base == nil {
		base = Object
	}
	return &TNamed{Name: name, Kind: KindClass, Base: base, Interfaces: interfaces}
}

// NewStruct creates a value type.
func NewStruct(name string, interfaces ...Type) *TNamed {
	return &TNamed{Name: name, Kind: KindStruct, Interfaces: interfaces}
}

// NewInterface creates an interface type.
func NewInterface(name string, interfaces ...Type) *TNamed {
	return &TNamed{Name: name, Kind: KindInterface, Interfaces: interfaces}
}

// NewEnum creates an enum backed by the given integral type (int when nil).
func NewEnum(name string, underlying *TNamed) *TNamed {
	if underlying == nil {
		underlying = Int32
	}
	return &TNamed{Name: name, Kind: KindEnum, Code: underlying.Code, Underlying: underlying}
}

// NewGeneric creates a generic type definition with the given parameter names.
func NewGeneric(kind TypeKind, name string, params ...string) *TNamed {
	t := &TNamed{Name: name, Kind: kind}
	if kind == KindClass {
		t.Base = Object
	}
	for _, p := range params {
		t.Params = append(t.Params, TVar{Name: p})
	}
	return t
}

// Instantiate applies type arguments to a generic definition.
func Instantiate(def *TNamed, args ...Type) TApp {
	return TApp{Constructor: def, Args: args}
}
