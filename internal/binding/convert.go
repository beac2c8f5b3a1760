package binding

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Converter coerces runtime values to the canonical Go representation of a
// binding type: bool, rune for char, int8/uint8/int16/uint16, int for int,
// uint32, int64, uint64, float32, float64 for double and decimal, string.
// Other types accept values whose runtime type is assignable.
type Converter struct {
	reg *registry.Registry
}

func NewConverter(reg *registry.Registry) *Converter {
	return &Converter{reg: reg}
}

// Convert returns value coerced to target. A nil target or object accepts
// anything unchanged.
func (c *Converter) Convert(value any, target typesystem.Type) (any, error) {
	if target == nil || target == typesystem.Type(typesystem.Object) || typesystem.ContainsGenericParameters(target) {
		return value, nil
	}
	if n, ok := target.(typesystem.TNullable); ok {
		if value == nil {
			return nil, nil
		}
		return c.Convert(value, n.Elem)
	}
	if value == nil {
		if typesystem.IsValueType(target) {
			return nil, NewInvalidConversionError(nil, target)
		}
		return nil, nil
	}
	if named, ok := target.(*typesystem.TNamed); ok && named.Kind == typesystem.KindEnum {
		v, err := convertPrimitive(value, named.Code)
		if err != nil {
			return nil, NewInvalidConversionError(value, target)
		}
		return v, nil
	}
	if code := typesystem.CodeOf(target); code != typesystem.CodeObject {
		v, err := convertPrimitive(value, code)
		if err != nil {
			return nil, NewInvalidConversionError(value, target)
		}
		return v, nil
	}
	if actual, ok := c.reg.TypeOf(value); ok && typesystem.AssignableTo(actual, target) {
		return value, nil
	}
	if arr, ok := target.(typesystem.TArray); ok {
		return c.convertSlice(value, arr)
	}
	if _, ok := target.(typesystem.TFunc); ok && reflect.TypeOf(value).Kind() == reflect.Func {
		return value, nil
	}
	return nil, NewInvalidConversionError(value, target)
}

func (c *Converter) convertSlice(value any, arr typesystem.TArray) (any, error) {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, NewInvalidConversionError(value, arr)
	}
	out := make([]any, v.Len())
	for i := range out {
		elem, err := c.Convert(v.Index(i).Interface(), arr.Elem)
		if err != nil {
			return nil, err
		}
		out[i] = elem
	}
	return out, nil
}

// convertPrimitive range-checks numeric conversions and parses strings.
func convertPrimitive(value any, code typesystem.TypeCode) (any, error) {
	switch code {
	case typesystem.CodeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		if r, ok := value.(rune); ok {
			return string(r), nil
		}
		return fmt.Sprint(value), nil
	case typesystem.CodeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, err
			}
			return b, nil
		}
		return nil, fmt.Errorf("not a bool")
	case typesystem.CodeChar:
		if s, ok := value.(string); ok {
			if utf8.RuneCountInString(s) != 1 {
				return nil, fmt.Errorf("not a single character")
			}
			r, _ := utf8.DecodeRuneInString(s)
			return r, nil
		}
		i, err := toInt64(value)
		if err != nil || i < 0 || i > utf8.MaxRune {
			return nil, fmt.Errorf("not a character")
		}
		return rune(i), nil
	case typesystem.CodeSingle, typesystem.CodeDouble, typesystem.CodeDecimal:
		f, err := toFloat64(value)
		if err != nil {
			return nil, err
		}
		if code == typesystem.CodeSingle {
			if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
				return nil, fmt.Errorf("overflow")
			}
			return float32(f), nil
		}
		return f, nil
	case typesystem.CodeUInt64:
		u, err := toUint64(value)
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	if !code.IsInteger() {
		return nil, fmt.Errorf("unsupported type code %d", code)
	}
	if code.IsUnsigned() {
		u, err := toUint64(value)
		if err != nil {
			return nil, err
		}
		switch code {
		case typesystem.CodeByte:
			if u > math.MaxUint8 {
				return nil, fmt.Errorf("overflow")
			}
			return uint8(u), nil
		case typesystem.CodeUInt16:
			if u > math.MaxUint16 {
				return nil, fmt.Errorf("overflow")
			}
			return uint16(u), nil
		default:
			if u > math.MaxUint32 {
				return nil, fmt.Errorf("overflow")
			}
			return uint32(u), nil
		}
	}
	i, err := toInt64(value)
	if err != nil {
		return nil, err
	}
	switch code {
	case typesystem.CodeSByte:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return nil, fmt.Errorf("overflow")
		}
		return int8(i), nil
	case typesystem.CodeInt16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return nil, fmt.Errorf("overflow")
		}
		return int16(i), nil
	case typesystem.CodeInt32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, fmt.Errorf("overflow")
		}
		return int(i), nil
	}
	return i, nil
}

func toInt64(value any) (int64, error) {
	if s, ok := value.(string); ok {
		return strconv.ParseInt(s, 10, 64)
	}
	v := reflect.ValueOf(value)
	switch {
	case v.CanInt():
		return v.Int(), nil
	case v.CanUint():
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("overflow")
		}
		return int64(u), nil
	case v.CanFloat():
		f := v.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("not a number")
}

func toUint64(value any) (uint64, error) {
	if s, ok := value.(string); ok {
		return strconv.ParseUint(s, 10, 64)
	}
	v := reflect.ValueOf(value)
	switch {
	case v.CanUint():
		return v.Uint(), nil
	case v.CanInt():
		if v.Int() < 0 {
			return 0, fmt.Errorf("negative")
		}
		return uint64(v.Int()), nil
	case v.CanFloat():
		f := v.Float()
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, fmt.Errorf("not an unsigned integer")
		}
		return uint64(f), nil
	}
	return 0, fmt.Errorf("not a number")
}

func toFloat64(value any) (float64, error) {
	if s, ok := value.(string); ok {
		return strconv.ParseFloat(s, 64)
	}
	v := reflect.ValueOf(value)
	switch {
	case v.CanFloat():
		return v.Float(), nil
	case v.CanInt():
		return float64(v.Int()), nil
	case v.CanUint():
		return float64(v.Uint()), nil
	}
	return 0, fmt.Errorf("not a number")
}
