package typesystem

// Contains reports whether formal mentions the type parameter param anywhere.
func Contains(formal Type, param TVar) bool {
	if formal == nil {
		return false
	}
	for _, v := range formal.FreeTypeVariables() {
		if v.Name == param.Name {
			return true
		}
	}
	return false
}

// InferTypeArg matches the formal parameter type against the static type of the
// actual argument and returns what param must be bound to. Generic types are
// matched through the actual type's ancestry, so List<int> satisfies IEnumerable<T>.
func InferTypeArg(formal Type, param TVar, actual Type) (Type, bool) {
	if formal == nil || actual == nil {
		return nil, false
	}
	switch f := formal.(type) {
	case TVar:
		if f.Name == param.Name {
			return actual, true
		}
	case TArray:
		if a, ok := actual.(TArray); ok {
			return InferTypeArg(f.Elem, param, a.Elem)
		}
	case TNullable:
		if a, ok := actual.(TNullable); ok {
			return InferTypeArg(f.Elem, param, a.Elem)
		}
		return InferTypeArg(f.Elem, param, actual)
	case TApp:
		common, ok := FindCommonType(f.Constructor, actual)
		if !ok {
			return nil, false
		}
		for i, arg := range f.Args {
			if i >= len(common.Args) {
				break
			}
			if t, ok := InferTypeArg(arg, param, common.Args[i]); ok {
				return t, true
			}
		}
	case TFunc:
		a, ok := actual.(TFunc)
		if !ok || len(a.Params) != len(f.Params) {
			return nil, false
		}
		for i, p := range f.Params {
			if t, ok := InferTypeArg(p, param, a.Params[i]); ok {
				return t, true
			}
		}
		return InferTypeArg(f.Result, param, a.Result)
	}
	return nil, false
}

// DelegateOf returns the delegate signature accepted by a parameter of type t,
// looking through expression-tree wrappers.
func DelegateOf(t Type) (TFunc, bool) {
	f, ok := t.(TFunc)
	return f, ok
}
