package resolver

import (
	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// State tells whether a resolved method is ready to invoke.
type State int

const (
	// Resolved means every type parameter of the method is bound.
	Resolved State = iota
	// PartiallyResolved means some type parameters could not be inferred yet,
	// typically because they only appear in lambda signatures. Call Reresolve
	// once the argument types are known.
	PartiallyResolved
)

func (s State) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "partially resolved"
}

// MethodResult is the outcome of ResolveMethod.
type MethodResult struct {
	State State
	// Method is the selected overload. For a partial result it still mentions
	// the open type parameters.
	Method *registry.Method
	// Extension reports that Method is an extension method; the receiver is
	// passed as its first argument.
	Extension bool
	// Open lists the type parameters that remain unbound.
	Open []typesystem.TVar

	retry func(args []Argument) (MethodResult, error)
}

// Template returns the generic definition the result was instantiated from.
func (m MethodResult) Template() *registry.Method {
	if m.Method == nil {
		return nil
	}
	return m.Method.Definition()
}

// Reresolve repeats inference for the selected overload with a new argument
// list, usually one where lambdas carry their delegate types. A resolved
// result returns itself.
func (m MethodResult) Reresolve(args []Argument) (MethodResult, error) {
	if m.State == Resolved || m.retry == nil {
		return m, nil
	}
	return m.retry(args)
}

func (r *Resolver) result(call Call, c candidate) MethodResult {
	res := MethodResult{Method: c.method, Extension: c.extension, Open: c.open}
	if len(c.open) == 0 {
		res.State = Resolved
		return res
	}
	res.State = PartiallyResolved
	template := c.method.Definition()
	res.retry = func(args []Argument) (MethodResult, error) {
		full := args
		if c.extension {
			full = append([]Argument{Arg(call.Type)}, args...)
		}
		next := prepare(template, call.TypeArgs, full, c.extension)
		if !accepts(next.method, next.args) {
			return MethodResult{}, NewAmbiguousOverloadError(call.Type, call.Name, args)
		}
		retried := call
		retried.Args = args
		return r.result(retried, next), nil
	}
	return res
}
