package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

// TypeHook maps a runtime value to its binding type. Hooks let value
// representations other than Go structs (records, protobuf messages) take
// part in resolution.
type TypeHook func(value any) (typesystem.Type, bool)

// Typed is implemented by values that know their binding type.
type Typed interface {
	BindingType() typesystem.Type
}

// Registry holds type descriptors and the known types that contribute
// extension methods.
//
// Thread-safe: registration normally happens once at startup; lookups happen
// from any number of goroutines.
type Registry struct {
	mu         sync.RWMutex
	byName     map[string]*Descriptor
	byType     map[*typesystem.TNamed]*Descriptor
	byGo       map[reflect.Type]*typesystem.TNamed
	goTypes    map[*typesystem.TNamed]reflect.Type
	extensions []*Method
	known      []*typesystem.TNamed
	hooks      []TypeHook

	extCache *ExtensionCache
}

// New returns a registry preloaded with the descriptors of the built-in types.
func New() *Registry {
	r := &Registry{
		byName:  make(map[string]*Descriptor),
		byType:  make(map[*typesystem.TNamed]*Descriptor),
		byGo:    make(map[reflect.Type]*typesystem.TNamed),
		goTypes: make(map[*typesystem.TNamed]reflect.Type),
	}
	r.extCache = NewExtensionCache(r)
	for _, d := range builtinDescriptors() {
		r.mustRegister(d)
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// Register adds a descriptor. A type name may only be registered once; built-in
// descriptors may be extended by registering the same *TNamed again, which
// appends members.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Type == nil {
		return fmt.Errorf("registry: descriptor without type")
	}
	for _, m := range d.Methods {
		if m.DeclaringType == nil {
			m.DeclaringType = d.Type
		}
	}
	r.mu.Lock()
	if existing, ok := r.byType[d.Type]; ok {
		if existing != d {
			existing.Properties = concat(existing.Properties, d.Properties)
			existing.Methods = concat(existing.Methods, d.Methods)
			existing.Indexers = concat(existing.Indexers, d.Indexers)
		}
		r.mu.Unlock()
		return nil
	}
	if _, ok := r.byName[d.Type.Name]; ok {
		r.mu.Unlock()
		return fmt.Errorf("registry: type %s already registered", d.Type.Name)
	}
	r.byName[d.Type.Name] = d
	r.byType[d.Type] = d
	r.mu.Unlock()
	return nil
}

// concat never writes into the backing array of a, which readers may still
// be iterating.
func concat[T any](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

func (r *Registry) mustRegister(d *Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// RegisterExtensions records container as a known type and adds the extension
// methods it declares. Methods must have Extension set and at least one parameter.
func (r *Registry) RegisterExtensions(container *typesystem.TNamed, methods ...*Method) error {
	for _, m := range methods {
		if !m.Extension || len(m.Params) == 0 {
			return fmt.Errorf("registry: %s.%s is not an extension method", container.Name, m.Name)
		}
		m.Static = true
		if m.DeclaringType == nil {
			m.DeclaringType = container
		}
	}
	r.mu.Lock()
	if _, ok := r.byType[container]; !ok {
		d := &Descriptor{Type: container}
		r.byName[container.Name] = d
		r.byType[container] = d
	}
	r.byType[container].Methods = concat(r.byType[container].Methods, methods)
	known := false
	for _, k := range r.known {
		known = known || k == container
	}
	if !known {
		r.known = append(r.known, container)
	}
	r.extensions = append(r.extensions, methods...)
	r.mu.Unlock()

	r.extCache.Reset()
	return nil
}

// ExtensionMethods returns every registered extension method in registration order.
func (r *Registry) ExtensionMethods() []*Method {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Method(nil), r.extensions...)
}

// Extensions returns the extension method cache bound to this registry.
func (r *Registry) Extensions() *ExtensionCache { return r.extCache }

// AddTypeHook registers a value-to-type mapping consulted by TypeOf.
func (r *Registry) AddTypeHook(hook TypeHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Lookup finds a registered type by name. It satisfies typesystem.Lookup.
func (r *Registry) Lookup(name string) (typesystem.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byName[name]; ok {
		return d.Type, true
	}
	return nil, false
}

// ParseType parses a type reference against the registered types.
func (r *Registry) ParseType(src string) (typesystem.Type, error) {
	return typesystem.ParseTypeRef(src, r.Lookup)
}

// Descriptor returns the descriptor registered for t.
func (r *Registry) Descriptor(t *typesystem.TNamed) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byType[t]
	return d, ok
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// describe returns the descriptor of one type together with the substitution
// that instantiates its generic members.
func (r *Registry) describe(t typesystem.Type) (*Descriptor, typesystem.Subst, bool) {
	switch typ := t.(type) {
	case *typesystem.TNamed:
		d, ok := r.byType[typ]
		return d, nil, ok
	case typesystem.TApp:
		d, ok := r.byType[typ.Constructor]
		return d, typesystem.SubstOf(typ.Constructor.Params, typ.Args), ok
	case typesystem.TArray:
		return arrayDescriptor, typesystem.Subst{"T": typ.Elem}, true
	case typesystem.TNullable:
		return r.describe(typ.Elem)
	}
	return nil, nil, false
}

// chain returns the descriptors of t and its ancestors, most derived first.
func (r *Registry) chain(t typesystem.Type) []describedType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []describedType
	for _, a := range typesystem.Ancestors(t) {
		if d, s, ok := r.describe(a); ok {
			out = append(out, describedType{
				typ:        a,
				subst:      s,
				properties: d.Properties,
				methods:    d.Methods,
				indexers:   d.Indexers,
			})
		}
	}
	return out
}

// describedType is a snapshot of one descriptor's members taken under the
// read lock.
type describedType struct {
	typ        typesystem.Type
	subst      typesystem.Subst
	properties []*Property
	methods    []*Method
	indexers   []*Indexer
}

// Properties returns the properties visible on t, most derived first. Members
// of generic instantiations carry substituted types.
func (r *Registry) Properties(t typesystem.Type, static bool) []*Property {
	var out []*Property
	for _, dt := range r.chain(t) {
		for _, p := range dt.properties {
			if p.Static == static {
				out = append(out, p.substitute(dt.subst))
			}
		}
	}
	return out
}

// Methods returns the overloads named name visible on t, most derived first and
// in declaration order within a type. Extension methods are not included.
func (r *Registry) Methods(t typesystem.Type, name string, static bool) []*Method {
	var out []*Method
	for _, dt := range r.chain(t) {
		for _, m := range dt.methods {
			if m.Name == name && m.Static == static && !m.Extension {
				out = append(out, m.withDeclaringSubst(dt.subst, dt.typ))
			}
		}
	}
	return out
}

// MemberNames returns every property and method name visible on t.
func (r *Registry) MemberNames(t typesystem.Type, static bool) []string {
	seen := map[string]bool{}
	var names []string
	for _, dt := range r.chain(t) {
		for _, p := range dt.properties {
			if p.Static == static && !seen[p.Name] {
				seen[p.Name] = true
				names = append(names, p.Name)
			}
		}
		for _, m := range dt.methods {
			if m.Static == static && !m.Extension && !seen[m.Name] {
				seen[m.Name] = true
				names = append(names, m.Name)
			}
		}
	}
	return names
}

// Indexers returns the indexers visible on t, most derived first.
func (r *Registry) Indexers(t typesystem.Type, static bool) []*Indexer {
	var out []*Indexer
	for _, dt := range r.chain(t) {
		for _, ix := range dt.indexers {
			if ix.Static == static {
				out = append(out, ix.substitute(dt.subst))
			}
		}
	}
	return out
}

// TypeOf returns the binding type of a runtime value. Nil has no type.
func (r *Registry) TypeOf(value any) (typesystem.Type, bool) {
	if value == nil {
		return nil, false
	}
	if typed, ok := value.(Typed); ok {
		return typed.BindingType(), true
	}
	r.mu.RLock()
	hooks := r.hooks
	r.mu.RUnlock()
	for _, hook := range hooks {
		if t, ok := hook(value); ok {
			return t, true
		}
	}
	return r.TypeOfGo(reflect.TypeOf(value)), true
}

// KnownTypes returns the types that contributed extension methods.
func (r *Registry) KnownTypes() []*typesystem.TNamed {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*typesystem.TNamed(nil), r.known...)
}
