package resolver

import (
	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/typesystem"
	"github.com/funvibe/bindexpr/internal/utils"
)

// Catalog enumerates the members visible on a type, most derived first.
type Catalog interface {
	Properties(t typesystem.Type, static bool) []*registry.Property
	Methods(t typesystem.Type, name string, static bool) []*registry.Method
	Indexers(t typesystem.Type, static bool) []*registry.Indexer
}

// Extensions supplies the extension methods applicable to a receiver type.
type Extensions interface {
	MethodsNamed(t typesystem.Type, name string) []*registry.Method
}

// Resolver locates members and selects method overloads. It holds no mutable
// state of its own; the extension lookup it is given must be safe for
// concurrent use.
type Resolver struct {
	catalog    Catalog
	extensions Extensions
}

// New creates a resolver. extensions may be nil to disable extension methods.
func New(catalog Catalog, extensions Extensions) *Resolver {
	return &Resolver{catalog: catalog, extensions: extensions}
}

// ForRegistry wires a resolver to a registry and its extension cache.
func ForRegistry(r *registry.Registry) *Resolver {
	return New(r, r.Extensions())
}

// ResolveMember finds the property or field called name. Names that do not
// match exactly are retried in their exported spelling, so "firstName" finds
// FirstName on Go types.
func (r *Resolver) ResolveMember(t typesystem.Type, name string, static bool) (*registry.Property, error) {
	props := r.catalog.Properties(t, static)
	for _, candidate := range memberNames(name) {
		for _, p := range props {
			if p.Name == candidate {
				return p, nil
			}
		}
	}
	return nil, NewMissingMemberError(t, name)
}

// ResolveIndexer returns the first indexer taking exactly len(args) parameters.
func (r *Resolver) ResolveIndexer(t typesystem.Type, args []Argument, static bool) (*registry.Indexer, error) {
	for _, ix := range r.catalog.Indexers(t, static) {
		if len(ix.Params) == len(args) {
			return ix, nil
		}
	}
	return nil, NewMissingMemberError(t, "[]")
}

// Call describes a method call to resolve.
type Call struct {
	Type     typesystem.Type
	Name     string
	TypeArgs []typesystem.Type
	Args     []Argument
	Static   bool
}

type candidate struct {
	method    *registry.Method
	args      []Argument // receiver first for extension methods
	extension bool
	open      []typesystem.TVar
}

// ResolveMethod selects one overload for call.
//
// Candidates are the methods declared on the type (or its static methods),
// followed by extension methods for instance calls. The first candidate that
// accepts the arguments wins. When none does and an argument is a lambda the
// call fails; otherwise the first candidate with a matching parameter count is
// returned regardless of argument types.
func (r *Resolver) ResolveMethod(call Call) (MethodResult, error) {
	var (
		methods    []*registry.Method
		extensions []*registry.Method
	)
	for _, name := range memberNames(call.Name) {
		methods = r.catalog.Methods(call.Type, name, call.Static)
		if !call.Static && r.extensions != nil {
			extensions = r.extensions.MethodsNamed(call.Type, name)
		}
		if len(methods)+len(extensions) > 0 {
			break
		}
	}
	if len(methods)+len(extensions) == 0 {
		return MethodResult{}, NewMissingMemberError(call.Type, call.Name)
	}

	candidates := make([]candidate, 0, len(methods)+len(extensions))
	for _, m := range methods {
		candidates = append(candidates, prepare(m, call.TypeArgs, call.Args, false))
	}
	if len(extensions) > 0 {
		withReceiver := append([]Argument{Arg(call.Type)}, call.Args...)
		for _, m := range extensions {
			candidates = append(candidates, prepare(m, call.TypeArgs, withReceiver, true))
		}
	}

	for _, c := range candidates {
		if accepts(c.method, c.args) {
			return r.result(call, c), nil
		}
	}
	if hasLambda(call.Args) {
		return MethodResult{}, NewAmbiguousOverloadError(call.Type, call.Name, call.Args)
	}
	for _, c := range candidates {
		if len(c.method.Params) == len(c.args) {
			return r.result(call, c), nil
		}
	}
	return MethodResult{}, NewAmbiguousOverloadError(call.Type, call.Name, call.Args)
}

// prepare applies explicit type arguments or infers them from args.
func prepare(m *registry.Method, typeArgs []typesystem.Type, args []Argument, extension bool) candidate {
	c := candidate{method: m, args: args, extension: extension}
	switch {
	case len(typeArgs) > 0 && len(m.TypeParams) == len(typeArgs):
		c.method = m.Instantiate(typeArgs)
	case len(m.TypeParams) == 0:
	default:
		c.method, c.open = infer(m, args)
	}
	return c
}

// infer binds each type parameter from the first formal parameter mentioning
// it whose argument type allows inference. Parameters that cannot be inferred
// stay bound to themselves and are reported as open.
func infer(m *registry.Method, args []Argument) (*registry.Method, []typesystem.TVar) {
	inferred := make([]typesystem.Type, len(m.TypeParams))
	var open []typesystem.TVar
	for i, p := range m.TypeParams {
		for j, param := range m.Params {
			if j >= len(args) || !typesystem.Contains(param.Type, p) || args[j].Type == nil {
				continue
			}
			formal := formalAt(m.Params, j, args)
			if t, ok := typesystem.InferTypeArg(formal, p, args[j].Type); ok {
				inferred[i] = t
				break
			}
		}
		if inferred[i] == nil {
			inferred[i] = p
			open = append(open, p)
		}
	}
	return m.Instantiate(inferred), open
}

// accepts is the compatibility filter: the argument count fits, every typed
// argument converts to its formal type, and every lambda meets a delegate
// parameter of the same arity. Formal types still mentioning open type
// parameters accept any argument.
func accepts(m *registry.Method, args []Argument) bool {
	n := len(m.Params)
	if len(args) != n && !(m.IsVariadic() && len(args) >= n-1) {
		return false
	}
	for i, a := range args {
		formal := formalAt(m.Params, i, args)
		if a.Lambda {
			fn, ok := typesystem.DelegateOf(formal)
			if !ok || fn.Arity() != a.Arity {
				return false
			}
			continue
		}
		if typesystem.ContainsGenericParameters(formal) {
			continue
		}
		if !typesystem.IsCompatibleWith(a.Type, formal) {
			return false
		}
	}
	return true
}

// formalAt returns the formal type matched by argument i. Arguments at or past
// a variadic parameter match its element type, except for a single trailing
// argument that already is a compatible array.
func formalAt(params []registry.Parameter, i int, args []Argument) typesystem.Type {
	n := len(params)
	if n == 0 || i < n-1 || !params[n-1].Variadic {
		if i < n {
			return params[i].Type
		}
		return nil
	}
	last := params[n-1].Type
	if len(args) == n && i == n-1 && args[i].Type != nil && typesystem.IsCompatibleWith(args[i].Type, last) {
		return last
	}
	if arr, ok := last.(typesystem.TArray); ok {
		return arr.Elem
	}
	return last
}

func memberNames(name string) []string {
	if alt := utils.ExportedMemberName(name); alt != "" {
		return []string{name, alt}
	}
	return []string{name}
}
