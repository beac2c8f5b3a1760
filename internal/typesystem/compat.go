package typesystem

// widening lists, per source code, every target code an implicit numeric
// conversion may produce. Integers only widen within their signedness. Codes
// missing from the table only match themselves.
var widening = map[TypeCode][]TypeCode{
	CodeSByte:  {CodeSByte, CodeInt16, CodeInt32, CodeInt64, CodeSingle, CodeDouble, CodeDecimal},
	CodeByte:   {CodeByte, CodeUInt16, CodeUInt32, CodeUInt64, CodeSingle, CodeDouble, CodeDecimal},
	CodeInt16:  {CodeInt16, CodeInt32, CodeInt64, CodeSingle, CodeDouble, CodeDecimal},
	CodeUInt16: {CodeUInt16, CodeUInt32, CodeUInt64, CodeSingle, CodeDouble, CodeDecimal},
	CodeInt32:  {CodeInt32, CodeInt64, CodeSingle, CodeDouble, CodeDecimal},
	CodeUInt32: {CodeUInt32, CodeUInt64, CodeSingle, CodeDouble, CodeDecimal},
	CodeInt64:  {CodeInt64, CodeSingle, CodeDouble, CodeDecimal},
	CodeUInt64: {CodeUInt64, CodeSingle, CodeDouble, CodeDecimal},
	CodeSingle: {CodeSingle, CodeDouble},
}

// IsCompatibleWith reports whether a value of static type source can be passed
// where target is expected. A nil source stands for the null literal.
func IsCompatibleWith(source, target Type) bool {
	if Equal(source, target) {
		return true
	}
	if source == nil {
		return !IsValueType(target) || IsNullable(target)
	}
	if !IsValueType(target) {
		return AssignableTo(source, target)
	}

	st := NonNullable(source)
	tt := NonNullable(target)
	// T? never converts implicitly to T.
	if !Equal(st, source) && Equal(tt, target) {
		return false
	}

	targets, ok := widening[CodeOf(st)]
	if !ok {
		return Equal(st, tt)
	}
	tc := CodeOf(tt)
	for _, c := range targets {
		if c == tc {
			return true
		}
	}
	return false
}

// AssignableTo reports whether source can be stored in a location of type target
// without conversion (identity, boxing to object, base classes, interfaces).
func AssignableTo(source, target Type) bool {
	if Equal(source, target) {
		return true
	}
	if source == nil {
		return !IsValueType(target) || IsNullable(target)
	}
	if target == Object {
		return true
	}
	switch tt := target.(type) {
	case TNullable:
		return Equal(source, tt.Elem)
	case TArray:
		sa, ok := source.(TArray)
		if !ok {
			return false
		}
		// Array covariance only holds for reference elements.
		return !IsValueType(sa.Elem) && !IsValueType(tt.Elem) && AssignableTo(sa.Elem, tt.Elem)
	case TVar, TFunc:
		return false
	}
	for _, a := range Ancestors(source) {
		if Equal(a, target) {
			return true
		}
	}
	return false
}
