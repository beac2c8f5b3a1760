package registry

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

var (
	tT = typesystem.TVar{Name: "T"}
	tK = typesystem.TVar{Name: "K"}
	tV = typesystem.TVar{Name: "V"}
)

// arrayType stands in for every T[]; describe binds T to the element type.
var arrayType = &typesystem.TNamed{Name: "Array", Kind: typesystem.KindClass, Base: typesystem.Object, Params: []typesystem.TVar{tT}}

var arrayDescriptor = &Descriptor{
	Type:       arrayType,
	Properties: []*Property{lengthProperty("Length")},
	Indexers:   []*Indexer{sliceIndexer(tT)},
}

func builtinDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Type: typesystem.Object,
			Methods: []*Method{
				{Name: "ToString", Result: typesystem.String, Invoke: func(target any, _ []any) (any, error) {
					return fmt.Sprint(target), nil
				}},
				{Name: "Equals", Params: []Parameter{Param("other", typesystem.Object)}, Result: typesystem.Bool,
					Invoke: func(target any, args []any) (any, error) {
						return reflect.DeepEqual(target, args[0]), nil
					}},
			},
		},
		stringDescriptor(),
		{
			Type:       typesystem.List,
			Properties: []*Property{lengthProperty("Count")},
			Indexers:   []*Indexer{sliceIndexer(tT)},
			Methods: []*Method{
				{Name: "Add", Params: []Parameter{Param("item", tT)}, Invoke: listAdd},
				{Name: "Contains", Params: []Parameter{Param("item", tT)}, Result: typesystem.Bool, Invoke: sliceContains},
			},
		},
		{
			Type:       typesystem.Dictionary,
			Properties: []*Property{lengthProperty("Count")},
			Indexers:   []*Indexer{mapIndexer(tK, tV)},
			Methods: []*Method{
				{Name: "ContainsKey", Params: []Parameter{Param("key", tK)}, Result: typesystem.Bool, Invoke: mapContainsKey},
			},
		},
		{Type: typesystem.Enumerable},
		{
			Type: typesystem.KeyValue,
			Properties: []*Property{
				{Name: "Key", Type: tK, Get: func(target any) (any, error) { return pairPart(target, 0) }},
				{Name: "Value", Type: tV, Get: func(target any) (any, error) { return pairPart(target, 1) }},
			},
		},
	}
}

func stringDescriptor() *Descriptor {
	s := typesystem.String
	str := func(fn func(string, []any) any) Invoker {
		return func(target any, args []any) (any, error) {
			v, ok := target.(string)
			if !ok {
				return nil, fmt.Errorf("target %T is not a string", target)
			}
			return fn(v, args), nil
		}
	}
	return &Descriptor{
		Type:       s,
		Properties: []*Property{lengthProperty("Length")},
		Indexers: []*Indexer{{
			Params: []typesystem.Type{typesystem.Int32},
			Type:   typesystem.Char,
			Get: func(target any, args []any) (any, error) {
				runes := []rune(fmt.Sprint(target))
				i, ok := args[0].(int)
				if !ok || i < 0 || i >= len(runes) {
					return nil, fmt.Errorf("index %v out of range", args[0])
				}
				return runes[i], nil
			},
		}},
		Methods: []*Method{
			{Name: "Contains", Params: []Parameter{Param("value", s)}, Result: typesystem.Bool,
				Invoke: str(func(v string, a []any) any { return strings.Contains(v, a[0].(string)) })},
			{Name: "StartsWith", Params: []Parameter{Param("value", s)}, Result: typesystem.Bool,
				Invoke: str(func(v string, a []any) any { return strings.HasPrefix(v, a[0].(string)) })},
			{Name: "ToUpper", Result: s, Invoke: str(func(v string, _ []any) any { return strings.ToUpper(v) })},
			{Name: "ToLower", Result: s, Invoke: str(func(v string, _ []any) any { return strings.ToLower(v) })},
			{Name: "Trim", Result: s, Invoke: str(func(v string, _ []any) any { return strings.TrimSpace(v) })},
			{Name: "Substring", Params: []Parameter{Param("start", typesystem.Int32)}, Result: s,
				Invoke: str(func(v string, a []any) any { return substring(v, a[0].(int), -1) })},
			{Name: "Substring", Params: []Parameter{Param("start", typesystem.Int32), Param("length", typesystem.Int32)}, Result: s,
				Invoke: str(func(v string, a []any) any { return substring(v, a[0].(int), a[1].(int)) })},
			{Name: "IsNullOrEmpty", Params: []Parameter{Param("value", s)}, Result: typesystem.Bool, Static: true,
				Invoke: func(_ any, a []any) (any, error) {
					v, _ := a[0].(string)
					return v == "", nil
				}},
			{Name: "Concat", Params: []Parameter{VariadicParam("values", typesystem.Object)}, Result: s, Static: true,
				Invoke: func(_ any, a []any) (any, error) {
					var sb strings.Builder
					for _, v := range a {
						if v != nil {
							sb.WriteString(fmt.Sprint(v))
						}
					}
					return sb.String(), nil
				}},
		},
	}
}

func substring(s string, start, length int) string {
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		start = len(runes)
	}
	end := len(runes)
	if length >= 0 && start+length < end {
		end = start + length
	}
	return string(runes[start:end])
}

func lengthProperty(name string) *Property {
	return &Property{
		Name: name,
		Type: typesystem.Int32,
		Get: func(target any) (any, error) {
			if s, ok := target.(string); ok {
				return len([]rune(s)), nil
			}
			v := indirect(reflect.ValueOf(target))
			switch v.Kind() {
			case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
				return v.Len(), nil
			}
			return nil, fmt.Errorf("%s: %T has no length", name, target)
		},
	}
}

func sliceIndexer(elem typesystem.Type) *Indexer {
	return &Indexer{
		Params: []typesystem.Type{typesystem.Int32},
		Type:   elem,
		Get: func(target any, args []any) (any, error) {
			v, err := indexable(target, args)
			if err != nil {
				return nil, err
			}
			return v.Interface(), nil
		},
		Set: func(target any, args []any, value any) error {
			v, err := indexable(target, args)
			if err != nil {
				return err
			}
			if !v.CanSet() {
				return fmt.Errorf("element of %T is not settable", target)
			}
			converted, err := goValue(value, v.Type())
			if err != nil {
				return err
			}
			v.Set(converted)
			return nil
		},
	}
}

func indexable(target any, args []any) (reflect.Value, error) {
	v := indirect(reflect.ValueOf(target))
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return reflect.Value{}, fmt.Errorf("%T is not indexable", target)
	}
	i, ok := args[0].(int)
	if !ok {
		return reflect.Value{}, fmt.Errorf("index %v is not an int", args[0])
	}
	if i < 0 || i >= v.Len() {
		return reflect.Value{}, fmt.Errorf("index %d out of range [0, %d)", i, v.Len())
	}
	return v.Index(i), nil
}

func mapIndexer(key, value typesystem.Type) *Indexer {
	return &Indexer{
		Params: []typesystem.Type{key},
		Type:   value,
		Get: func(target any, args []any) (any, error) {
			m, k, err := mapEntry(target, args[0])
			if err != nil {
				return nil, err
			}
			v := m.MapIndex(k)
			if !v.IsValid() {
				return nil, fmt.Errorf("key %v not found", args[0])
			}
			return v.Interface(), nil
		},
		Set: func(target any, args []any, val any) error {
			m, k, err := mapEntry(target, args[0])
			if err != nil {
				return err
			}
			if m.IsNil() {
				return fmt.Errorf("assignment to entry in nil map")
			}
			converted, err := goValue(val, m.Type().Elem())
			if err != nil {
				return err
			}
			m.SetMapIndex(k, converted)
			return nil
		},
	}
}

func mapEntry(target any, key any) (reflect.Value, reflect.Value, error) {
	m := indirect(reflect.ValueOf(target))
	if m.Kind() != reflect.Map {
		return reflect.Value{}, reflect.Value{}, fmt.Errorf("%T is not a map", target)
	}
	k, err := goValue(key, m.Type().Key())
	if err != nil {
		return reflect.Value{}, reflect.Value{}, err
	}
	return m, k, nil
}

func mapContainsKey(target any, args []any) (any, error) {
	m, k, err := mapEntry(target, args[0])
	if err != nil {
		return nil, err
	}
	return m.MapIndex(k).IsValid(), nil
}

func listAdd(target any, args []any) (any, error) {
	p := reflect.ValueOf(target)
	if p.Kind() != reflect.Ptr || p.Elem().Kind() != reflect.Slice {
		return nil, fmt.Errorf("Add needs a pointer to a slice, got %T", target)
	}
	s := p.Elem()
	item, err := goValue(args[0], s.Type().Elem())
	if err != nil {
		return nil, err
	}
	s.Set(reflect.Append(s, item))
	return nil, nil
}

func sliceContains(target any, args []any) (any, error) {
	v := indirect(reflect.ValueOf(target))
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("%T is not a list", target)
	}
	for i := 0; i < v.Len(); i++ {
		if reflect.DeepEqual(v.Index(i).Interface(), args[0]) {
			return true, nil
		}
	}
	return false, nil
}

// Pair is the runtime value of KeyValuePair<K, V>.
type Pair struct {
	Key   any
	Value any
}

func pairPart(target any, i int) (any, error) {
	p, ok := target.(Pair)
	if !ok {
		return nil, fmt.Errorf("%T is not a key/value pair", target)
	}
	if i == 0 {
		return p.Key, nil
	}
	return p.Value, nil
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
