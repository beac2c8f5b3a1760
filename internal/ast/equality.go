package ast

import (
	"fmt"
	"hash/fnv"
	"reflect"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Comparer intercepts equality and hashing of child nodes. Returning
// handled == false delegates to the child's own structural Equal or Hash.
// A nil Comparer always delegates.
type Comparer interface {
	Equal(x, y Expression) (equal, handled bool)
	Hash(e Expression) (hash int, handled bool)
}

// ComparerFuncs adapts a pair of functions to Comparer. Either may be nil.
type ComparerFuncs struct {
	EqualFunc func(x, y Expression) (bool, bool)
	HashFunc  func(e Expression) (int, bool)
}

func (c ComparerFuncs) Equal(x, y Expression) (bool, bool) {
	if c.EqualFunc == nil {
		return false, false
	}
	return c.EqualFunc(x, y)
}

func (c ComparerFuncs) Hash(e Expression) (int, bool) {
	if c.HashFunc == nil {
		return 0, false
	}
	return c.HashFunc(e)
}

// Equal compares two possibly nil expressions structurally.
func Equal(x, y Expression, cmp Comparer) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	return x.Equal(y, cmp)
}

// equalNodes checks kind, metadata and scalar fields before any child, then
// consults cmp exactly once for every child pair.
func equalNodes(x, y Expression, cmp Comparer) bool {
	if y == nil {
		return false
	}
	if x == y {
		return true
	}
	if x.Kind() != y.Kind() || !x.Metadata().Same(y.Metadata()) || !x.equalScalars(y) {
		return false
	}
	xs, ys := x.Children(), y.Children()
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if !equalChild(xs[i], ys[i], cmp) {
			return false
		}
	}
	return true
}

func equalChild(x, y Expression, cmp Comparer) bool {
	if cmp != nil {
		if eq, handled := cmp.Equal(x, y); handled {
			return eq
		}
	}
	return x.Equal(y, cmp)
}

func hashNode(e Expression, cmp Comparer) int {
	h := combine(int(e.Kind())+1, e.scalarHash())
	h = combine(h, metadataHash(e.Metadata()))
	for _, child := range e.Children() {
		h = combine(h, hashChild(child, cmp))
	}
	return h
}

func hashChild(e Expression, cmp Comparer) int {
	if cmp != nil {
		if h, handled := cmp.Hash(e); handled {
			return h
		}
	}
	return e.Hash(cmp)
}

// metadataHash agrees with Metadata.Same: empty maps hash alike, and a shared
// instance always has the same length.
func metadataHash(md Metadata) int {
	if md.IsEmpty() {
		return 0
	}
	return md.Len()
}

func combine(h, v int) int {
	return h*31 + v
}

func hashString(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32())
}

func hashValue(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return hashString(x)
	case bool:
		if x {
			return 1
		}
		return 2
	case int:
		return x
	case typesystem.Type:
		return hashString(x.String())
	}
	return hashString(fmt.Sprintf("%T:%v", v, v))
}

func valuesEqual(a, b any) bool {
	if ta, ok := a.(typesystem.Type); ok {
		tb, ok := b.(typesystem.Type)
		return ok && typesystem.Equal(ta, tb)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if reflect.TypeOf(a).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
