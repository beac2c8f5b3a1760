package registry

import (
	"strings"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Getter reads a property from target; target is nil for static members.
type Getter func(target any) (any, error)

// Setter writes a property on target; target is nil for static members.
type Setter func(target any, value any) error

// Invoker calls a method. Extension methods receive their receiver as args[0]
// and a nil target.
type Invoker func(target any, args []any) (any, error)

// Property describes a readable and/or writable member: a property or a field.
type Property struct {
	Name   string
	Type   typesystem.Type
	Static bool
	Field  bool
	Get    Getter // nil when write-only
	Set    Setter // nil when read-only
}

func (p *Property) CanRead() bool  { return p.Get != nil }
func (p *Property) CanWrite() bool { return p.Set != nil }

func (p *Property) substitute(s typesystem.Subst) *Property {
	if len(s) == 0 || !typesystem.ContainsGenericParameters(p.Type) {
		return p
	}
	copied := *p
	copied.Type = typesystem.Apply(p.Type, s)
	return &copied
}

// Indexer describes an indexed property such as items[i] or map[key].
type Indexer struct {
	Params []typesystem.Type
	Type   typesystem.Type
	Static bool
	Get    func(target any, args []any) (any, error)
	Set    func(target any, args []any, value any) error
}

func (ix *Indexer) CanRead() bool  { return ix.Get != nil }
func (ix *Indexer) CanWrite() bool { return ix.Set != nil }

func (ix *Indexer) substitute(s typesystem.Subst) *Indexer {
	if len(s) == 0 {
		return ix
	}
	copied := *ix
	copied.Params = applyAll(ix.Params, s)
	copied.Type = typesystem.Apply(ix.Type, s)
	return &copied
}

// Parameter is one formal parameter of a method.
type Parameter struct {
	Name string
	Type typesystem.Type
	// Variadic marks a trailing params parameter; Type is then the array type.
	Variadic bool
}

// Param is shorthand for a plain parameter.
func Param(name string, t typesystem.Type) Parameter {
	return Parameter{Name: name, Type: t}
}

// VariadicParam declares a trailing params parameter of element type elem.
func VariadicParam(name string, elem typesystem.Type) Parameter {
	return Parameter{Name: name, Type: typesystem.TArray{Elem: elem}, Variadic: true}
}

// Method describes one overload. Generic methods list their type parameters;
// an instantiated method keeps a pointer to its generic definition.
type Method struct {
	Name          string
	DeclaringType typesystem.Type
	TypeParams    []typesystem.TVar
	TypeArgs      []typesystem.Type
	Params        []Parameter
	Result        typesystem.Type // nil for no result
	Static        bool
	// Extension methods are static methods whose first parameter is the receiver.
	Extension bool
	Invoke    Invoker

	definition *Method
}

// IsGeneric reports whether the method still needs type arguments.
func (m *Method) IsGeneric() bool { return len(m.TypeParams) > 0 && m.TypeArgs == nil }

// IsVariadic reports whether the last parameter takes a variable argument list.
func (m *Method) IsVariadic() bool {
	return len(m.Params) > 0 && m.Params[len(m.Params)-1].Variadic
}

// Definition returns the generic definition of an instantiated method, or m itself.
func (m *Method) Definition() *Method {
	if m.definition != nil {
		return m.definition
	}
	return m
}

// ParamTypes returns the formal parameter types in order.
func (m *Method) ParamTypes() []typesystem.Type {
	types := make([]typesystem.Type, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	return types
}

// Instantiate substitutes the method's type parameters with args. Arguments
// may themselves be type parameters, which leaves those parameters open.
func (m *Method) Instantiate(args []typesystem.Type) *Method {
	def := m.Definition()
	s := typesystem.SubstOf(def.TypeParams, args)
	inst := def.substitute(s)
	if inst == def {
		copied := *def
		inst = &copied
	}
	inst.TypeArgs = append([]typesystem.Type(nil), args...)
	inst.definition = def
	return inst
}

// OpenTypeParams returns the method type parameters that are still unbound in
// an instantiation.
func (m *Method) OpenTypeParams() []typesystem.TVar {
	def := m.Definition()
	if m.TypeArgs == nil {
		return append([]typesystem.TVar(nil), def.TypeParams...)
	}
	var open []typesystem.TVar
	for i, p := range def.TypeParams {
		if i >= len(m.TypeArgs) {
			break
		}
		if v, ok := m.TypeArgs[i].(typesystem.TVar); ok && v.Name == p.Name {
			open = append(open, p)
		}
	}
	return open
}

func (m *Method) substitute(s typesystem.Subst) *Method {
	if len(s) == 0 {
		return m
	}
	copied := *m
	copied.Params = make([]Parameter, len(m.Params))
	for i, p := range m.Params {
		p.Type = typesystem.Apply(p.Type, s)
		copied.Params[i] = p
	}
	copied.Result = typesystem.Apply(m.Result, s)
	return &copied
}

// withDeclaringSubst applies the declaring type's substitution while keeping
// the method's own type parameters intact.
func (m *Method) withDeclaringSubst(s typesystem.Subst, declaring typesystem.Type) *Method {
	if len(s) == 0 {
		return m
	}
	own := make(typesystem.Subst, len(s))
	for k, v := range s {
		own[k] = v
	}
	for _, p := range m.TypeParams {
		delete(own, p.Name)
	}
	inst := m.substitute(own)
	if inst == m {
		copied := *m
		inst = &copied
	}
	inst.DeclaringType = declaring
	return inst
}

// Signature renders the method as Name<T>(type, type) result.
func (m *Method) Signature() string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	switch {
	case m.TypeArgs != nil:
		sb.WriteString("<")
		sb.WriteString(joinTypes(m.TypeArgs))
		sb.WriteString(">")
	case len(m.TypeParams) > 0:
		names := make([]typesystem.Type, len(m.TypeParams))
		for i, p := range m.TypeParams {
			names[i] = p
		}
		sb.WriteString("<")
		sb.WriteString(joinTypes(names))
		sb.WriteString(">")
	}
	sb.WriteString("(")
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Variadic {
			sb.WriteString("params ")
		}
		sb.WriteString(typeName(p.Type))
	}
	sb.WriteString(")")
	if m.Result != nil {
		sb.WriteString(" ")
		sb.WriteString(m.Result.String())
	}
	return sb.String()
}

// Descriptor is the member table of one type. Members keep declaration order.
type Descriptor struct {
	Type       *typesystem.TNamed
	Properties []*Property
	Methods    []*Method
	Indexers   []*Indexer
}

// Property returns the property declared under name.
func (d *Descriptor) Property(name string) (*Property, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// MethodsNamed returns the overloads declared under name in declaration order.
func (d *Descriptor) MethodsNamed(name string) []*Method {
	var out []*Method
	for _, m := range d.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

func applyAll(types []typesystem.Type, s typesystem.Subst) []typesystem.Type {
	out := make([]typesystem.Type, len(types))
	for i, t := range types {
		out[i] = typesystem.Apply(t, s)
	}
	return out
}

func joinTypes(types []typesystem.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = typeName(t)
	}
	return strings.Join(names, ", ")
}

func typeName(t typesystem.Type) string {
	if t == nil {
		return "void"
	}
	return t.String()
}
