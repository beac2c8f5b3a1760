package resolver

import (
	"fmt"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Argument describes one actual argument of a call: its static type, or for
// a lambda its parameter count and, once known, its delegate type.
type Argument struct {
	Type   typesystem.Type // nil for the null literal or an untyped lambda
	Lambda bool
	Arity  int
}

// Arg is an argument of static type t.
func Arg(t typesystem.Type) Argument { return Argument{Type: t} }

// Null is the null literal.
func Null() Argument { return Argument{} }

// Lambda is a lambda whose parameter types are not known yet.
func Lambda(arity int) Argument { return Argument{Lambda: true, Arity: arity} }

// TypedLambda is a lambda whose delegate type has been inferred.
func TypedLambda(fn typesystem.TFunc) Argument {
	return Argument{Type: fn, Lambda: true, Arity: fn.Arity()}
}

// Args converts static types into arguments.
func Args(types ...typesystem.Type) []Argument {
	out := make([]Argument, len(types))
	for i, t := range types {
		out[i] = Arg(t)
	}
	return out
}

func (a Argument) String() string {
	switch {
	case a.Lambda && a.Type == nil:
		return fmt.Sprintf("lambda/%d", a.Arity)
	case a.Type == nil:
		return "null"
	}
	return a.Type.String()
}

func hasLambda(args []Argument) bool {
	for _, a := range args {
		if a.Lambda {
			return true
		}
	}
	return false
}
