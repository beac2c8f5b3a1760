package schema

import (
	"fmt"

	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Functions maps implementation names used in documents to method bodies.
// Indexer getters receive the index arguments; setters receive them followed
// by the assigned value.
type Functions map[string]registry.Invoker

// Load registers the document's types and extension methods in reg and
// returns the declared types by name. Instances of declared classes and
// structs are *registry.Record values; enum values are ints.
func Load(reg *registry.Registry, doc *Document, funcs Functions) (map[string]*typesystem.TNamed, error) {
	l := &loader{reg: reg, doc: doc, funcs: funcs, types: make(map[string]*typesystem.TNamed)}
	for _, spec := range doc.Types {
		l.types[spec.Name] = declare(spec)
	}
	for i, spec := range doc.Types {
		d, err := l.describe(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: types[%d] (%s): %w", doc.Path, i, spec.Name, err)
		}
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("%s: types[%d]: %w", doc.Path, i, err)
		}
	}
	for i, ext := range doc.Extensions {
		if err := l.extensions(ext); err != nil {
			return nil, fmt.Errorf("%s: extensions[%d] (%s): %w", doc.Path, i, ext.Container, err)
		}
	}
	return l.types, nil
}

type loader struct {
	reg   *registry.Registry
	doc   *Document
	funcs Functions
	types map[string]*typesystem.TNamed
}

func declare(spec TypeSpec) *typesystem.TNamed {
	kind, _ := typesystem.ParseTypeKind(spec.Kind)
	t := &typesystem.TNamed{Name: spec.Name, Kind: kind}
	for _, p := range spec.Params {
		t.Params = append(t.Params, typesystem.TVar{Name: p})
	}
	return t
}

// lookup resolves names against the given type parameters, the document and
// then the registry.
func (l *loader) lookup(params []typesystem.TVar) typesystem.Lookup {
	return func(name string) (typesystem.Type, bool) {
		for _, p := range params {
			if p.Name == name {
				return p, true
			}
		}
		if t, ok := l.types[name]; ok {
			return t, true
		}
		return l.reg.Lookup(name)
	}
}

func (l *loader) parse(src string, params []typesystem.TVar) (typesystem.Type, error) {
	return typesystem.ParseTypeRef(src, l.lookup(params))
}

func (l *loader) describe(spec TypeSpec) (*registry.Descriptor, error) {
	t := l.types[spec.Name]
	scope := t.Params

	switch t.Kind {
	case typesystem.KindEnum:
		return l.enum(t, spec)
	case typesystem.KindClass:
		t.Base = typesystem.Object
		if spec.Base != "" {
			base, err := l.parse(spec.Base, scope)
			if err != nil {
				return nil, fmt.Errorf("base: %w", err)
			}
			t.Base = base
		}
	}
	for _, name := range spec.Interfaces {
		iface, err := l.parse(name, scope)
		if err != nil {
			return nil, fmt.Errorf("interfaces: %w", err)
		}
		t.Interfaces = append(t.Interfaces, iface)
	}

	d := &registry.Descriptor{Type: t}
	for _, ps := range spec.Properties {
		pt, err := l.parse(ps.Type, scope)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", ps.Name, err)
		}
		d.Properties = append(d.Properties, property(ps, pt))
	}
	for _, ms := range spec.Methods {
		m, err := l.method(ms, scope)
		if err != nil {
			return nil, err
		}
		m.DeclaringType = t
		d.Methods = append(d.Methods, m)
	}
	for j, is := range spec.Indexers {
		ix, err := l.indexer(is, scope)
		if err != nil {
			return nil, fmt.Errorf("indexers[%d]: %w", j, err)
		}
		d.Indexers = append(d.Indexers, ix)
	}
	return d, nil
}

func (l *loader) enum(t *typesystem.TNamed, spec TypeSpec) (*registry.Descriptor, error) {
	underlying := typesystem.Int32
	if spec.Base != "" {
		b, ok := typesystem.Builtin(spec.Base)
		if !ok || !b.Code.IsInteger() {
			return nil, fmt.Errorf("enum base %q is not an integral type", spec.Base)
		}
		underlying = b
	}
	t.Code = underlying.Code
	t.Underlying = underlying

	d := &registry.Descriptor{Type: t}
	for i, name := range spec.Values {
		value := i
		d.Properties = append(d.Properties, &registry.Property{
			Name:   name,
			Type:   t,
			Static: true,
			Get:    func(any) (any, error) { return value, nil },
		})
	}
	return d, nil
}

func property(ps PropertySpec, t typesystem.Type) *registry.Property {
	if !ps.Static {
		return registry.RecordProperty(ps.Name, t, !ps.ReadOnly)
	}
	value := ps.Value
	p := &registry.Property{
		Name:   ps.Name,
		Type:   t,
		Static: true,
		Get:    func(any) (any, error) { return value, nil },
	}
	if !ps.ReadOnly {
		p.Set = func(_ any, v any) error {
			value = v
			return nil
		}
	}
	return p
}

func (l *loader) method(ms MethodSpec, scope []typesystem.TVar) (*registry.Method, error) {
	m := &registry.Method{Name: ms.Name, Static: ms.Static}
	for _, tp := range ms.TypeParams {
		m.TypeParams = append(m.TypeParams, typesystem.TVar{Name: tp})
	}
	inner := append(append([]typesystem.TVar(nil), scope...), m.TypeParams...)
	for _, p := range ms.Params {
		pt, err := l.parse(p.Type, inner)
		if err != nil {
			return nil, fmt.Errorf("method %s: parameter %s: %w", ms.Name, p.Name, err)
		}
		if p.Variadic {
			m.Params = append(m.Params, registry.VariadicParam(p.Name, pt))
		} else {
			m.Params = append(m.Params, registry.Param(p.Name, pt))
		}
	}
	if ms.Result != "" {
		rt, err := l.parse(ms.Result, inner)
		if err != nil {
			return nil, fmt.Errorf("method %s: result: %w", ms.Name, err)
		}
		m.Result = rt
	}
	if ms.Impl != "" {
		fn, err := l.function(ms.Impl)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", ms.Name, err)
		}
		m.Invoke = fn
	}
	return m, nil
}

func (l *loader) indexer(is IndexerSpec, scope []typesystem.TVar) (*registry.Indexer, error) {
	ix := &registry.Indexer{Static: is.Static}
	for _, src := range is.Params {
		pt, err := l.parse(src, scope)
		if err != nil {
			return nil, err
		}
		ix.Params = append(ix.Params, pt)
	}
	t, err := l.parse(is.Type, scope)
	if err != nil {
		return nil, err
	}
	ix.Type = t
	if is.Get != "" {
		get, err := l.function(is.Get)
		if err != nil {
			return nil, err
		}
		ix.Get = func(target any, args []any) (any, error) { return get(target, args) }
	}
	if is.Set != "" {
		set, err := l.function(is.Set)
		if err != nil {
			return nil, err
		}
		ix.Set = func(target any, args []any, value any) error {
			_, err := set(target, append(append([]any(nil), args...), value))
			return err
		}
	}
	return ix, nil
}

func (l *loader) function(name string) (registry.Invoker, error) {
	fn, ok := l.funcs[name]
	if !ok {
		return nil, fmt.Errorf("unknown implementation %q", name)
	}
	return fn, nil
}

func (l *loader) extensions(ext ExtensionSpec) error {
	container, ok := l.types[ext.Container]
	if !ok {
		t, found := l.reg.Lookup(ext.Container)
		if named, isNamed := t.(*typesystem.TNamed); found && isNamed {
			container = named
		} else {
			container = typesystem.NewClass(ext.Container, nil)
		}
	}
	methods := make([]*registry.Method, 0, len(ext.Methods))
	for _, ms := range ext.Methods {
		m, err := l.method(ms, nil)
		if err != nil {
			return err
		}
		m.Extension = true
		methods = append(methods, m)
	}
	return l.reg.RegisterExtensions(container, methods...)
}
