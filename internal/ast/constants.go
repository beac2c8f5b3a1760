package ast

import (
	"github.com/funvibe/bindexpr/internal/config"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Canonical constants. They are built during package initialization and never
// change afterwards, so concurrent readers need no locking.
var (
	TrueConstant        = &ConstantExpression{value: true, typ: typesystem.Bool}
	FalseConstant       = &ConstantExpression{value: false, typ: typesystem.Bool}
	NullConstant        = &ConstantExpression{value: nil, typ: typesystem.Object}
	EmptyStringConstant = &ConstantExpression{value: "", typ: typesystem.String}
)

var (
	intConstants  [config.MaxCachedInt - config.MinCachedInt + 1]*ConstantExpression
	typeConstants = map[*typesystem.TNamed]*ConstantExpression{}
)

func init() {
	for i := range intConstants {
		intConstants[i] = &ConstantExpression{value: i + config.MinCachedInt, typ: typesystem.Int32}
	}
	for _, t := range typesystem.Builtins() {
		typeConstants[t] = &ConstantExpression{value: typesystem.Type(t), typ: typesystem.TypeToken}
	}
}

// ConstantOf returns the canonical node for booleans, null, the empty string,
// ints inside the cache range and built-in type tokens. Other values get a
// fresh node.
func ConstantOf(value any) *ConstantExpression {
	switch v := value.(type) {
	case nil:
		return NullConstant
	case bool:
		if v {
			return TrueConstant
		}
		return FalseConstant
	case string:
		if v == "" {
			return EmptyStringConstant
		}
	case int:
		if v >= config.MinCachedInt && v <= config.MaxCachedInt {
			return intConstants[v-config.MinCachedInt]
		}
	case *typesystem.TNamed:
		if c, ok := typeConstants[v]; ok {
			return c
		}
		return NewConstant(typesystem.Type(v), typesystem.TypeToken)
	}
	return NewConstant(value, nil)
}

// StaticTypeOf maps a Go value to the binding type a constant of it carries.
func StaticTypeOf(value any) typesystem.Type {
	switch value.(type) {
	case bool:
		return typesystem.Bool
	case int8:
		return typesystem.SByte
	case uint8:
		return typesystem.Byte
	case int16:
		return typesystem.Int16
	case uint16:
		return typesystem.UInt16
	case int, int32:
		return typesystem.Int32
	case uint, uint32:
		return typesystem.UInt32
	case int64:
		return typesystem.Int64
	case uint64:
		return typesystem.UInt64
	case float32:
		return typesystem.Single
	case float64:
		return typesystem.Double
	case string:
		return typesystem.String
	case typesystem.Type:
		return typesystem.TypeToken
	}
	return typesystem.Object
}
