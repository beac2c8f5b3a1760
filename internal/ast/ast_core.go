package ast

import (
	"sort"
	"strings"
)

// NodeKind tags the variant of an expression node.
type NodeKind int

const (
	KindConstant NodeKind = iota
	KindParameter
	KindMember
	KindNullConditionalMember
	KindIndex
	KindMethodCall
	KindBinary
	KindUnary
	KindCondition
	KindLambda
	KindTypeAccess
)

var kindNames = [...]string{
	KindConstant:              "Constant",
	KindParameter:             "Parameter",
	KindMember:                "Member",
	KindNullConditionalMember: "NullConditionalMember",
	KindIndex:                 "Index",
	KindMethodCall:            "MethodCall",
	KindBinary:                "Binary",
	KindUnary:                 "Unary",
	KindCondition:             "Condition",
	KindLambda:                "Lambda",
	KindTypeAccess:            "TypeAccess",
}

func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Expression is the base interface for all expression nodes. The set of
// implementations is closed: every variant lives in this package.
//
// Nodes are immutable. Every operation that "changes" a node returns a new one,
// so trees may be shared between goroutines without synchronization.
type Expression interface {
	Kind() NodeKind
	Metadata() Metadata
	// UpdateMetadata returns the receiver itself when md equals the current
	// metadata, otherwise a copy carrying md.
	UpdateMetadata(md Metadata) Expression
	// Children returns the structural children in traversal order.
	Children() []Expression
	Equal(other Expression, cmp Comparer) bool
	Hash(cmp Comparer) int
	String() string

	withChildren(children []Expression) Expression
	withMetadata(md Metadata) Expression
	equalScalars(other Expression) bool
	scalarHash() int
}

// Metadata is an immutable string-keyed map attached to a node. The zero value
// is the empty map.
type Metadata struct {
	m *metadataMap
}

type metadataMap struct {
	values map[string]any
}

// NewMetadata copies values into a new metadata map. An empty input yields the empty map.
func NewMetadata(values map[string]any) Metadata {
	if len(values) == 0 {
		return Metadata{}
	}
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Metadata{m: &metadataMap{values: copied}}
}

// Len returns the number of entries.
func (md Metadata) Len() int {
	if md.m == nil {
		return 0
	}
	return len(md.m.values)
}

// IsEmpty reports whether the map has no entries.
func (md Metadata) IsEmpty() bool { return md.Len() == 0 }

// Get returns the value stored under key.
func (md Metadata) Get(key string) (any, bool) {
	if md.m == nil {
		return nil, false
	}
	v, ok := md.m.values[key]
	return v, ok
}

// Keys returns the keys in sorted order.
func (md Metadata) Keys() []string {
	if md.m == nil {
		return nil
	}
	keys := make([]string, 0, len(md.m.values))
	for k := range md.m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a new map with key set to value.
func (md Metadata) With(key string, value any) Metadata {
	values := make(map[string]any, md.Len()+1)
	if md.m != nil {
		for k, v := range md.m.values {
			values[k] = v
		}
	}
	values[key] = value
	return Metadata{m: &metadataMap{values: values}}
}

// Without returns a map lacking key. The receiver is returned when key is absent.
func (md Metadata) Without(key string) Metadata {
	if _, ok := md.Get(key); !ok {
		return md
	}
	values := make(map[string]any, md.Len())
	for k, v := range md.m.values {
		if k != key {
			values[k] = v
		}
	}
	return NewMetadata(values)
}

// Same is the default metadata equality: both maps are empty, or both are the
// same map instance.
func (md Metadata) Same(other Metadata) bool {
	if md.IsEmpty() && other.IsEmpty() {
		return true
	}
	return md.m == other.m
}

func (md Metadata) String() string {
	if md.IsEmpty() {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range md.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
	}
	sb.WriteString("}")
	return sb.String()
}

// UpdateMetadataWith is the copy-on-write metadata update with a caller supplied
// map equality. A nil equal uses Metadata.Same.
func UpdateMetadataWith(expr Expression, md Metadata, equal func(a, b Metadata) bool) Expression {
	if equal == nil {
		equal = Metadata.Same
	}
	if equal(expr.Metadata(), md) {
		return expr
	}
	return expr.withMetadata(md)
}

// base carries the state shared by every node.
type base struct {
	md Metadata
}

func (b base) Metadata() Metadata { return b.md }

func joinExpressions(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func cloneExpressions(exprs []Expression) []Expression {
	if len(exprs) == 0 {
		return nil
	}
	out := make([]Expression, len(exprs))
	copy(out, exprs)
	return out
}
