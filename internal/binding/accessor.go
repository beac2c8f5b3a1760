package binding

import (
	"fmt"

	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Accessor is a member bound to a live target. It reads, writes or invokes the
// member with values coerced to the declared types. Panics raised by the
// underlying accessors are returned as errors.
type Accessor struct {
	name   string
	typ    typesystem.Type
	conv   *Converter
	params []registry.Parameter
	get    func() (any, error)
	set    func(value any) error
	invoke func(args []any) (any, error)
}

func (a *Accessor) Name() string { return a.name }

// Type returns the declared type of the member, or the result type of a method.
func (a *Accessor) Type() typesystem.Type { return a.typ }

func (a *Accessor) CanRead() bool   { return a.get != nil }
func (a *Accessor) CanWrite() bool  { return a.set != nil }
func (a *Accessor) CanInvoke() bool { return a.invoke != nil }

func (a *Accessor) Get() (value any, err error) {
	if a.get == nil {
		return nil, fmt.Errorf("%s is not readable", a.name)
	}
	defer recoverInto(a.name, &err)
	return a.get()
}

func (a *Accessor) Set(value any) (err error) {
	if a.set == nil {
		return fmt.Errorf("%s is not writable", a.name)
	}
	converted, err := a.conv.Convert(value, a.typ)
	if err != nil {
		return fmt.Errorf("%s: %w", a.name, err)
	}
	defer recoverInto(a.name, &err)
	return a.set(converted)
}

// Invoke calls a bound method with args in place of the ones it was bound with.
func (a *Accessor) Invoke(args ...any) (value any, err error) {
	if a.invoke == nil {
		return nil, fmt.Errorf("%s is not a method", a.name)
	}
	converted, err := a.convertArgs(args)
	if err != nil {
		return nil, err
	}
	defer recoverInto(a.name, &err)
	return a.invoke(converted)
}

func (a *Accessor) convertArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, v := range args {
		c, err := a.conv.Convert(v, formalType(a.params, i, args))
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", a.name, i, err)
		}
		out[i] = c
	}
	return out, nil
}

// formalType is the declared type for argument i. Arguments past a variadic
// parameter take its element type unless a single slice is passed for it.
func formalType(params []registry.Parameter, i int, args []any) typesystem.Type {
	n := len(params)
	if n == 0 {
		return nil
	}
	if i < n-1 || !params[n-1].Variadic {
		if i < n {
			return params[i].Type
		}
		return nil
	}
	if len(args) == n && isSlice(args[i]) {
		return params[n-1].Type
	}
	if arr, ok := params[n-1].Type.(typesystem.TArray); ok {
		return arr.Elem
	}
	return params[n-1].Type
}

func recoverInto(name string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: %v", name, r)
	}
}
