package registry

import (
	"sync"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

// ExtensionSource supplies the extension methods of all known types.
type ExtensionSource interface {
	ExtensionMethods() []*Method
}

// ExtensionCache maps a receiver type to the extension methods applicable to
// it. Lookup and population happen under one mutex; populating an entry twice
// would yield the same list.
type ExtensionCache struct {
	mu      sync.Mutex
	source  ExtensionSource
	entries map[string][]*Method
	misses  int
}

func NewExtensionCache(source ExtensionSource) *ExtensionCache {
	return &ExtensionCache{source: source, entries: make(map[string][]*Method)}
}

// Methods returns the extension methods whose receiver accepts t, in
// registration order.
func (c *ExtensionCache) Methods(t typesystem.Type) []*Method {
	key := typeName(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	if methods, ok := c.entries[key]; ok {
		return methods
	}
	c.misses++
	var methods []*Method
	for _, m := range c.source.ExtensionMethods() {
		if ReceiverAccepts(m.Params[0].Type, t) {
			methods = append(methods, m)
		}
	}
	c.entries[key] = methods
	return methods
}

// MethodsNamed filters Methods by name.
func (c *ExtensionCache) MethodsNamed(t typesystem.Type, name string) []*Method {
	var out []*Method
	for _, m := range c.Methods(t) {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Reset drops every cached entry.
func (c *ExtensionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]*Method)
}

// Misses returns how many lookups had to populate an entry.
func (c *ExtensionCache) Misses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}

// ReceiverAccepts reports whether an extension receiver parameter of type
// formal can take a value of type actual. Generic receivers are matched by
// inferring their type parameters from actual first.
func ReceiverAccepts(formal, actual typesystem.Type) bool {
	if !typesystem.ContainsGenericParameters(formal) {
		return typesystem.IsCompatibleWith(actual, formal)
	}
	s := typesystem.Subst{}
	for _, v := range formal.FreeTypeVariables() {
		inferred, ok := typesystem.InferTypeArg(formal, v, actual)
		if !ok {
			return false
		}
		s[v.Name] = inferred
	}
	return typesystem.IsCompatibleWith(actual, typesystem.Apply(formal, s))
}
