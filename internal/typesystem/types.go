package typesystem

import (
	"strings"
)

// Type is the interface for all types the binding runtime can reason about.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TVar
}

// Subst maps type parameter names to the types that replace them.
type Subst map[string]Type

// TVar represents a generic type parameter (e.g. 'T' in Add<T>(T, T)).
type TVar struct {
	Name string
}

func (t TVar) String() string { return t.Name }

// Apply replaces the variable if the substitution binds it. Replacements are not
// substituted again: parameters of different generic scopes may share a name.
func (t TVar) Apply(s Subst) Type {
	if replacement, ok := s[t.Name]; ok && replacement != nil {
		return replacement
	}
	return t
}

func (t TVar) FreeTypeVariables() []TVar { return []TVar{t} }

// TNamed is a nominal type: a primitive, class, struct, interface, enum, or the
// definition of a generic type when Params is non-empty.
type TNamed struct {
	Name       string
	Kind       TypeKind
	Code       TypeCode
	Base       Type    // Base class, nil for roots and interfaces
	Interfaces []Type  // Implemented interfaces, may mention Params
	Params     []TVar  // Generic definition parameters
	Underlying *TNamed // Integral representation of an enum
}

func (t *TNamed) String() string {
	if len(t.Params) == 0 {
		return t.Name
	}
	names := make([]string, len(t.Params))
	for i, p := range t.Params {
		names[i] = p.Name
	}
	return t.Name + "<" + strings.Join(names, ", ") + ">"
}

func (t *TNamed) Apply(Subst) Type          { return t }
func (t *TNamed) FreeTypeVariables() []TVar { return nil }

// IsGenericDefinition reports whether the type must be instantiated with TApp before use.
func (t *TNamed) IsGenericDefinition() bool { return len(t.Params) > 0 }

// TApp is an instantiated generic type (e.g. List<int>).
type TApp struct {
	Constructor *TNamed
	Args        []Type
}

func (t TApp) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = typeString(a)
	}
	return t.Constructor.Name + "<" + strings.Join(args, ", ") + ">"
}

func (t TApp) Apply(s Subst) Type {
	args := make([]Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = applySafe(a, s)
	}
	return TApp{Constructor: t.Constructor, Args: args}
}

func (t TApp) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, a := range t.Args {
		vars = appendVars(vars, a)
	}
	return vars
}

// TArray is a single-dimensional array of Elem.
type TArray struct {
	Elem Type
}

func (t TArray) String() string            { return typeString(t.Elem) + "[]" }
func (t TArray) Apply(s Subst) Type        { return TArray{Elem: applySafe(t.Elem, s)} }
func (t TArray) FreeTypeVariables() []TVar { return appendVars(nil, t.Elem) }

// TNullable wraps a value type so that it can hold null (e.g. int?).
type TNullable struct {
	Elem Type
}

func (t TNullable) String() string            { return typeString(t.Elem) + "?" }
func (t TNullable) Apply(s Subst) Type        { return TNullable{Elem: applySafe(t.Elem, s)} }
func (t TNullable) FreeTypeVariables() []TVar { return appendVars(nil, t.Elem) }

// TFunc is a delegate type. When Expression is set the parameter expects an
// expression tree of the delegate instead of the delegate itself.
type TFunc struct {
	Params     []Type
	Result     Type // nil for no result
	Expression bool
}

func (t TFunc) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = typeString(p)
	}
	s := "func(" + strings.Join(params, ", ") + ")"
	if t.Result != nil {
		s += " " + t.Result.String()
	}
	if t.Expression {
		return "Expression<" + s + ">"
	}
	return s
}

func (t TFunc) Apply(s Subst) Type {
	params := make([]Type, len(t.Params))
	for i, p := range t.Params {
		params[i] = applySafe(p, s)
	}
	return TFunc{Params: params, Result: applySafe(t.Result, s), Expression: t.Expression}
}

func (t TFunc) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, p := range t.Params {
		vars = appendVars(vars, p)
	}
	return appendVars(vars, t.Result)
}

// Arity returns the number of parameters of the delegate's invoke signature.
func (t TFunc) Arity() int { return len(t.Params) }

func typeString(t Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}

func applySafe(t Type, s Subst) Type {
	if t == nil {
		return nil
	}
	return t.Apply(s)
}

func appendVars(vars []TVar, t Type) []TVar {
	if t == nil {
		return vars
	}
	for _, v := range t.FreeTypeVariables() {
		seen := false
		for _, existing := range vars {
			if existing.Name == v.Name {
				seen = true
				break
			}
		}
		if !seen {
			vars = append(vars, v)
		}
	}
	return vars
}

// Equal reports whether two types denote the same type. Named types compare by identity.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *TNamed:
		y, ok := b.(*TNamed)
		return ok && x == y
	case TVar:
		y, ok := b.(TVar)
		return ok && x.Name == y.Name
	case TApp:
		y, ok := b.(TApp)
		return ok && x.Constructor == y.Constructor && equalList(x.Args, y.Args)
	case TArray:
		y, ok := b.(TArray)
		return ok && Equal(x.Elem, y.Elem)
	case TNullable:
		y, ok := b.(TNullable)
		return ok && Equal(x.Elem, y.Elem)
	case TFunc:
		y, ok := b.(TFunc)
		return ok && x.Expression == y.Expression && Equal(x.Result, y.Result) && equalList(x.Params, y.Params)
	}
	return false
}

func equalList(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IsValueType reports whether values of t are copied by value and cannot be null.
func IsValueType(t Type) bool {
	switch typ := t.(type) {
	case *TNamed:
		return typ.Kind == KindStruct || typ.Kind == KindEnum || typ.Kind == KindPrimitive
	case TApp:
		return typ.Constructor.Kind == KindStruct
	case TNullable:
		return true
	}
	return false
}

// IsNullable reports whether t is a nullable wrapper.
func IsNullable(t Type) bool {
	_, ok := t.(TNullable)
	return ok
}

// NonNullable strips one nullable wrapper, if any.
func NonNullable(t Type) Type {
	if n, ok := t.(TNullable); ok {
		return n.Elem
	}
	return t
}

// CodeOf returns the primitive code used by the promotion table. Enums report
// CodeObject so that they only match themselves.
func CodeOf(t Type) TypeCode {
	named, ok := t.(*TNamed)
	if !ok || named.Kind == KindEnum {
		return CodeObject
	}
	return named.Code
}

// IsGenericParameter reports whether t is an unresolved type parameter.
func IsGenericParameter(t Type) bool {
	_, ok := t.(TVar)
	return ok
}

// ContainsGenericParameters reports whether t mentions any type parameter.
func ContainsGenericParameters(t Type) bool {
	return t != nil && len(t.FreeTypeVariables()) > 0
}

// ElementType returns the element type of arrays and of types implementing IEnumerable<T>.
func ElementType(t Type) (Type, bool) {
	if arr, ok := t.(TArray); ok {
		return arr.Elem, true
	}
	if app, ok := FindCommonType(Enumerable, t); ok {
		return app.Args[0], true
	}
	return nil, false
}
