package binding

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/funvibe/bindexpr/internal/ast"
	"github.com/funvibe/bindexpr/internal/pipeline"
	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/resolver"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Binder binds expression leaves to members of live objects.
type Binder struct {
	reg       *registry.Registry
	res       *resolver.Resolver
	conv      *Converter
	normalize *pipeline.Pipeline
}

func New(reg *registry.Registry) *Binder {
	return &Binder{reg: reg, res: resolver.ForRegistry(reg), conv: NewConverter(reg)}
}

// WithPipeline returns a binder that runs p over expressions before
// EvaluateExpression extracts their member path.
func (b *Binder) WithPipeline(p *pipeline.Pipeline) *Binder {
	copied := *b
	copied.normalize = p
	return &copied
}

func (b *Binder) Registry() *registry.Registry { return b.reg }
func (b *Binder) Resolver() *resolver.Resolver { return b.res }
func (b *Binder) Converter() *Converter        { return b.conv }

// Bind resolves leaf against target. leaf is a Member, Index or MethodCall
// whose own target is ignored, except that a TypeAccess target binds a static
// member and target may then be nil. ok is false when the member does not
// exist on the target's type or target is nil; the caller may retry later.
func (b *Binder) Bind(target any, leaf ast.Expression) (acc *Accessor, ok bool, err error) {
	var (
		t      typesystem.Type
		static bool
		parent ast.Expression
	)
	switch e := leaf.(type) {
	case *ast.MemberExpression:
		parent = e.Target()
	case *ast.IndexExpression:
		parent = e.Target()
	case *ast.MethodCallExpression:
		parent = e.Target()
	default:
		return nil, false, NewParseShapeError(leaf, "not a member, indexer or method call")
	}
	if ta, isType := parent.(*ast.TypeAccessExpression); isType {
		t, static, target = ta.Type(), true, nil
	} else {
		if t, ok = b.reg.TypeOf(target); !ok {
			return nil, false, nil
		}
	}

	switch e := leaf.(type) {
	case *ast.MemberExpression:
		acc, err = b.bindMember(target, t, e.Member(), static)
	case *ast.IndexExpression:
		acc, err = b.bindIndex(target, t, e, static)
	case *ast.MethodCallExpression:
		acc, err = b.bindMethod(target, t, e, static)
	}
	var missing *resolver.MissingMemberError
	if errors.As(err, &missing) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

func (b *Binder) bindMember(target any, t typesystem.Type, name string, static bool) (*Accessor, error) {
	p, err := b.res.ResolveMember(t, name, static)
	if err != nil {
		return nil, err
	}
	acc := &Accessor{name: p.Name, typ: p.Type, conv: b.conv}
	if p.Get != nil {
		acc.get = func() (any, error) { return p.Get(target) }
	}
	if p.Set != nil {
		acc.set = func(v any) error { return p.Set(target, v) }
	}
	return acc, nil
}

func (b *Binder) bindIndex(target any, t typesystem.Type, e *ast.IndexExpression, static bool) (*Accessor, error) {
	values, args, err := b.constantArgs(e.Args())
	if err != nil {
		return nil, err
	}
	ix, err := b.res.ResolveIndexer(t, args, static)
	if err != nil {
		return nil, err
	}
	params := make([]registry.Parameter, len(ix.Params))
	for i, p := range ix.Params {
		params[i] = registry.Param(fmt.Sprintf("index%d", i), p)
	}
	acc := &Accessor{name: e.String(), typ: ix.Type, conv: b.conv, params: params}
	keys, err := acc.convertArgs(values)
	if err != nil {
		return nil, err
	}
	if ix.Get != nil {
		acc.get = func() (any, error) { return ix.Get(target, keys) }
	}
	if ix.Set != nil {
		acc.set = func(v any) error { return ix.Set(target, keys, v) }
	}
	return acc, nil
}

func (b *Binder) bindMethod(target any, t typesystem.Type, e *ast.MethodCallExpression, static bool) (*Accessor, error) {
	values, args, err := b.constantArgs(e.Args())
	if err != nil {
		return nil, err
	}
	var typeArgs []typesystem.Type
	for _, name := range e.TypeArgs() {
		ta, err := b.reg.ParseType(name)
		if err != nil {
			return nil, err
		}
		typeArgs = append(typeArgs, ta)
	}
	res, err := b.res.ResolveMethod(resolver.Call{Type: t, Name: e.Method(), TypeArgs: typeArgs, Args: args, Static: static})
	if err != nil {
		return nil, err
	}
	m := res.Method
	if m.Invoke == nil {
		return nil, fmt.Errorf("method %s has no implementation", m.Signature())
	}
	acc := &Accessor{name: m.Name, typ: m.Result, conv: b.conv, params: m.Params}
	if res.Extension {
		acc.params = m.Params[1:]
		acc.invoke = func(a []any) (any, error) {
			return m.Invoke(nil, append([]any{target}, a...))
		}
	} else {
		acc.invoke = func(a []any) (any, error) { return m.Invoke(target, a) }
	}
	bound, err := acc.convertArgs(values)
	if err != nil {
		return nil, err
	}
	acc.get = func() (any, error) { return acc.invoke(bound) }
	return acc, nil
}

// constantArgs evaluates constant argument expressions and reports their
// static types for overload resolution.
func (b *Binder) constantArgs(exprs []ast.Expression) ([]any, []resolver.Argument, error) {
	values := make([]any, len(exprs))
	args := make([]resolver.Argument, len(exprs))
	for i, x := range exprs {
		c, ok := x.(*ast.ConstantExpression)
		if !ok {
			return nil, nil, NewParseShapeError(x, "argument is not a constant")
		}
		values[i] = c.Value()
		if c.Value() == nil {
			args[i] = resolver.Null()
			continue
		}
		if t, ok := b.reg.TypeOf(c.Value()); ok {
			args[i] = resolver.Arg(t)
		} else {
			args[i] = resolver.Arg(c.Type())
		}
	}
	return values, args, nil
}

// Evaluate walks path from root. ok is false when an intermediate value is nil
// or a member is missing; a nil reached through a null-conditional segment
// yields (nil, true).
func (b *Binder) Evaluate(root any, path Path) (any, bool, error) {
	cur := root
	for i := range path.Segments {
		if isNil(cur) {
			if i > 0 && path.Segments[i-1].NullConditional {
				return nil, true, nil
			}
			return nil, false, nil
		}
		acc, ok, err := b.Bind(cur, path.Leaf(i))
		if err != nil || !ok {
			return nil, false, err
		}
		if cur, err = acc.Get(); err != nil {
			return nil, false, err
		}
	}
	return cur, true, nil
}

// EvaluateExpression extracts the member path of expr and evaluates it.
func (b *Binder) EvaluateExpression(root any, expr ast.Expression) (any, bool, error) {
	if b.normalize != nil {
		out := b.normalize.Run(&pipeline.PipelineContext{Root: expr})
		if len(out.Errors) > 0 {
			return nil, false, errors.Join(out.Errors...)
		}
		expr = out.Root
	}
	path, err := MemberPathOf(expr)
	if err != nil {
		return nil, false, err
	}
	return b.Evaluate(root, path)
}

// isNil also reports typed nil pointers, maps and slices read from fields.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func isSlice(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
