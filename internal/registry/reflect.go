package registry

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// RegisterGoType builds a descriptor for the Go type of sample from its
// exported fields and methods, and registers it under the Go type name.
//
// A pointer sample (&T{}) registers T as a class whose fields are writable
// through the pointer; a struct value registers a read-only struct. A nil
// interface pointer ((*I)(nil)) registers an interface. Register field types
// before the types that use them, otherwise they are typed as object.
func (r *Registry) RegisterGoType(sample any) (*typesystem.TNamed, error) {
	rt := reflect.TypeOf(sample)
	if rt == nil {
		return nil, fmt.Errorf("registry: cannot register nil")
	}
	return r.RegisterGoTypeNamed(sample, goName(rt))
}

// RegisterGoTypeNamed is RegisterGoType with an explicit binding type name.
func (r *Registry) RegisterGoTypeNamed(sample any, name string) (*typesystem.TNamed, error) {
	rt := reflect.TypeOf(sample)
	if rt == nil {
		return nil, fmt.Errorf("registry: cannot register nil")
	}
	if name == "" {
		return nil, fmt.Errorf("registry: %s has no name", rt)
	}

	var (
		t        *typesystem.TNamed
		elem     = rt
		writable bool
	)
	switch {
	case rt.Kind() == reflect.Ptr && rt.Elem().Kind() == reflect.Interface:
		elem = rt.Elem()
		t = typesystem.NewInterface(name)
	case rt.Kind() == reflect.Ptr && rt.Elem().Kind() == reflect.Struct:
		elem = rt.Elem()
		writable = true
		t = typesystem.NewClass(name, r.goBase(elem), r.goInterfaces(rt)...)
	case rt.Kind() == reflect.Struct:
		t = typesystem.NewStruct(name, r.goInterfaces(rt)...)
	default:
		t = typesystem.NewClass(name, nil, r.goInterfaces(rt)...)
	}

	d := &Descriptor{Type: t}
	if elem.Kind() == reflect.Struct {
		d.Properties = goFields(r, elem, writable)
	}
	d.Methods = goMethods(r, rt, t)
	if ix := goIndexer(r, elem); ix != nil {
		d.Indexers = []*Indexer{ix}
	}

	if err := r.Register(d); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.byGo[elem] = t
	if rt != elem {
		r.byGo[rt] = t
	}
	r.goTypes[t] = rt
	r.mu.Unlock()
	return t, nil
}

// GoType returns the Go type a binding type was registered from.
func (r *Registry) GoType(t *typesystem.TNamed) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.goTypes[t]
	return rt, ok
}

// TypeOfGo maps a Go type to its binding type.
func (r *Registry) TypeOfGo(rt reflect.Type) typesystem.Type {
	if rt == nil {
		return typesystem.Object
	}
	r.mu.RLock()
	t, ok := r.byGo[rt]
	r.mu.RUnlock()
	if ok {
		return t
	}
	switch rt.Kind() {
	case reflect.Bool:
		return typesystem.Bool
	case reflect.Int, reflect.Int32:
		return typesystem.Int32
	case reflect.Int8:
		return typesystem.SByte
	case reflect.Int16:
		return typesystem.Int16
	case reflect.Int64:
		return typesystem.Int64
	case reflect.Uint, reflect.Uint32:
		return typesystem.UInt32
	case reflect.Uint8:
		return typesystem.Byte
	case reflect.Uint16:
		return typesystem.UInt16
	case reflect.Uint64:
		return typesystem.UInt64
	case reflect.Float32:
		return typesystem.Single
	case reflect.Float64:
		return typesystem.Double
	case reflect.String:
		return typesystem.String
	case reflect.Slice, reflect.Array:
		return typesystem.TArray{Elem: r.TypeOfGo(rt.Elem())}
	case reflect.Map:
		return typesystem.Instantiate(typesystem.Dictionary, r.TypeOfGo(rt.Key()), r.TypeOfGo(rt.Elem()))
	case reflect.Ptr:
		return r.TypeOfGo(rt.Elem())
	case reflect.Func:
		return funcType(r, rt, 0)
	}
	return typesystem.Object
}

// ExtensionFromFunc wraps a Go function as an extension method. The first
// parameter of fn is the receiver. A trailing error result is returned as the
// call error.
func (r *Registry) ExtensionFromFunc(name string, fn any) (*Method, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.Type().NumIn() == 0 {
		return nil, fmt.Errorf("registry: extension %s needs a function with a receiver parameter", name)
	}
	ft := fv.Type()
	m := &Method{
		Name:      name,
		Params:    goParams(r, ft, 0),
		Result:    goResult(r, ft),
		Static:    true,
		Extension: true,
	}
	m.Invoke = func(_ any, args []any) (any, error) {
		return callGo(fv, args)
	}
	return m, nil
}

func goName(rt reflect.Type) string {
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	return rt.Name()
}

func (r *Registry) goBase(st reflect.Type) typesystem.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if base, ok := r.byGo[ft]; ok && base.Kind == typesystem.KindClass {
			return base
		}
	}
	return nil
}

func (r *Registry) goInterfaces(rt reflect.Type) []typesystem.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []typesystem.Type
	for gt, t := range r.byGo {
		if gt.Kind() == reflect.Interface && t.Kind == typesystem.KindInterface && rt.Implements(gt) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func goFields(r *Registry, st reflect.Type, writable bool) []*Property {
	var props []*Property
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.PkgPath != "" || f.Anonymous {
			continue
		}
		name := f.Name
		p := &Property{
			Name:  name,
			Type:  r.TypeOfGo(f.Type),
			Field: true,
			Get: func(target any) (any, error) {
				v, err := structValue(target)
				if err != nil {
					return nil, err
				}
				return v.FieldByName(name).Interface(), nil
			},
		}
		if writable {
			p.Set = func(target any, value any) error {
				v := reflect.ValueOf(target)
				if v.Kind() != reflect.Ptr || v.IsNil() {
					return fmt.Errorf("field %s: target is not addressable", name)
				}
				field := v.Elem().FieldByName(name)
				converted, err := goValue(value, field.Type())
				if err != nil {
					return fmt.Errorf("field %s: %w", name, err)
				}
				field.Set(converted)
				return nil
			}
		}
		props = append(props, p)
	}
	return props
}

func goMethods(r *Registry, rt reflect.Type, declaring *typesystem.TNamed) []*Method {
	// Interface method types have no receiver parameter.
	skip := 1
	if rt.Kind() == reflect.Ptr && rt.Elem().Kind() == reflect.Interface {
		rt = rt.Elem()
		skip = 0
	}
	var methods []*Method
	for i := 0; i < rt.NumMethod(); i++ {
		gm := rt.Method(i)
		if gm.PkgPath != "" {
			continue
		}
		name := gm.Name
		methods = append(methods, &Method{
			Name:          name,
			DeclaringType: declaring,
			Params:        goParams(r, gm.Type, skip),
			Result:        goResult(r, gm.Type),
			Invoke: func(target any, args []any) (any, error) {
				mv := reflect.ValueOf(target).MethodByName(name)
				if !mv.IsValid() {
					return nil, fmt.Errorf("method %s not found on %T", name, target)
				}
				return callGo(mv, args)
			},
		})
	}
	return methods
}

func goIndexer(r *Registry, rt reflect.Type) *Indexer {
	switch rt.Kind() {
	case reflect.Slice, reflect.Array:
		return sliceIndexer(r.TypeOfGo(rt.Elem()))
	case reflect.Map:
		return mapIndexer(r.TypeOfGo(rt.Key()), r.TypeOfGo(rt.Elem()))
	}
	return nil
}

func goParams(r *Registry, ft reflect.Type, skip int) []Parameter {
	var params []Parameter
	for i := skip; i < ft.NumIn(); i++ {
		name := fmt.Sprintf("arg%d", i-skip)
		in := ft.In(i)
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			params = append(params, VariadicParam(name, r.TypeOfGo(in.Elem())))
			continue
		}
		params = append(params, Param(name, r.TypeOfGo(in)))
	}
	return params
}

func goResult(r *Registry, ft reflect.Type) typesystem.Type {
	if ft.NumOut() == 0 || ft.Out(0) == errorType {
		return nil
	}
	return r.TypeOfGo(ft.Out(0))
}

func funcType(r *Registry, ft reflect.Type, skip int) typesystem.TFunc {
	params := goParams(r, ft, skip)
	f := typesystem.TFunc{Result: goResult(r, ft)}
	for _, p := range params {
		f.Params = append(f.Params, p.Type)
	}
	return f
}

// callGo calls fn with args converted to its parameter types.
func callGo(fn reflect.Value, args []any) (any, error) {
	ft := fn.Type()
	n := ft.NumIn()
	if (!ft.IsVariadic() && len(args) != n) || (ft.IsVariadic() && len(args) < n-1) {
		return nil, fmt.Errorf("call: got %d arguments, want %d", len(args), n)
	}
	// A single trailing slice fills the variadic parameter as a whole.
	spread := ft.IsVariadic() && len(args) == n && args[n-1] != nil &&
		reflect.TypeOf(args[n-1]).Kind() == reflect.Slice
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := paramType(ft, i)
		if spread && i == n-1 {
			pt = ft.In(i)
		}
		v, err := goValue(a, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = v
	}
	var out []reflect.Value
	if spread {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}
	var result any
	for _, o := range out {
		if o.Type() == errorType {
			if !o.IsNil() {
				return result, o.Interface().(error)
			}
			continue
		}
		if result == nil {
			result = o.Interface()
		}
	}
	return result, nil
}

func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

// goValue converts a canonical binding value into a value of Go type rt.
func goValue(value any, rt reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch rt.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
			return reflect.Zero(rt), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use null as %s", rt)
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(rt) {
		return v, nil
	}
	if isNumberKind(v.Kind()) && isNumberKind(rt.Kind()) {
		return v.Convert(rt), nil
	}
	if v.Kind() == reflect.Slice && rt.Kind() == reflect.Slice {
		out := reflect.MakeSlice(rt, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := goValue(v.Index(i).Interface(), rt.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	}
	if v.Type().ConvertibleTo(rt) && v.Kind() == rt.Kind() {
		return v.Convert(rt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", value, rt)
}

func isNumberKind(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Float64) && k != reflect.Uintptr
}

func structValue(target any) (reflect.Value, error) {
	v := reflect.ValueOf(target)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil target")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("target %T is not a struct", target)
	}
	return v, nil
}
