// Package inspect describes the exported types of Go packages as schema
// documents, so that Go code can be bound without hand-written YAML.
package inspect

import (
	"fmt"
	"go/constant"
	"go/types"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/funvibe/bindexpr/internal/schema"
	"github.com/funvibe/bindexpr/internal/utils"
)

// Config controls which packages are loaded and what is described.
type Config struct {
	// Dir is the directory the patterns are resolved in.
	Dir string

	// Types limits the output to the named types. Empty means every exported
	// type.
	Types []string

	// Functions turns package functions whose first parameter is a described
	// type into extension methods.
	Functions bool
}

// Load type-checks the packages matching patterns and describes them in a
// single document.
func Load(cfg Config, patterns ...string) (*schema.Document, error) {
	pcfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
		Dir:  cfg.Dir,
		Env:  append(os.Environ(), "GOWORK=off"),
	}
	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	var errs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", pkg.PkgPath, e.Msg))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors:\n  %s", strings.Join(errs, "\n  "))
	}

	doc := &schema.Document{Path: strings.Join(patterns, " ")}
	for _, pkg := range pkgs {
		doc.Merge(Describe(pkg.Types, cfg))
	}
	return doc, nil
}

// Describe builds a document from a type-checked package.
func Describe(pkg *types.Package, cfg Config) *schema.Document {
	d := &describer{pkg: pkg, cfg: cfg, named: make(map[string]*types.Named)}
	d.collect()

	doc := &schema.Document{Path: pkg.Path()}
	for _, name := range d.order {
		doc.Types = append(doc.Types, d.typeSpec(d.named[name]))
	}
	if cfg.Functions {
		if ext, ok := d.functions(); ok {
			doc.Extensions = append(doc.Extensions, ext)
		}
	}
	return doc
}

type describer struct {
	pkg   *types.Package
	cfg   Config
	named map[string]*types.Named
	order []string
}

func (d *describer) collect() {
	only := make(map[string]bool, len(d.cfg.Types))
	for _, t := range d.cfg.Types {
		only[t] = true
	}
	scope := d.pkg.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !tn.Exported() || tn.IsAlias() {
			continue
		}
		if len(only) > 0 && !only[name] {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}
		d.named[name] = named
		d.order = append(d.order, name)
	}
}

func (d *describer) typeSpec(named *types.Named) schema.TypeSpec {
	spec := schema.TypeSpec{Name: named.Obj().Name()}
	if tparams := named.TypeParams(); tparams != nil {
		for i := 0; i < tparams.Len(); i++ {
			spec.Params = append(spec.Params, tparams.At(i).Obj().Name())
		}
	}

	switch u := named.Underlying().(type) {
	case *types.Interface:
		spec.Kind = "interface"
		for i := 0; i < u.NumMethods(); i++ {
			if m := u.Method(i); m.Exported() {
				spec.Methods = append(spec.Methods, d.method(m))
			}
		}
		return spec
	case *types.Basic:
		if values, ok := d.enumValues(named); ok {
			spec.Kind = "enum"
			spec.Values = values
			if base := basicName(u); base != "int" {
				spec.Base = base
			}
			return spec
		}
		spec.Properties = d.constants(named)
	case *types.Struct:
		spec.Properties = d.fields(u, &spec)
	}

	spec.Kind = "class"
	spec.Interfaces = d.interfaces(named)
	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		fn, ok := mset.At(i).Obj().(*types.Func)
		if !ok || !fn.Exported() || len(mset.At(i).Index()) > 1 {
			continue
		}
		spec.Methods = append(spec.Methods, d.method(fn))
	}
	sort.Slice(spec.Methods, func(i, j int) bool { return spec.Methods[i].Name < spec.Methods[j].Name })
	return spec
}

// fields describes exported struct fields. The first embedded struct of the
// same package becomes the base class; its promoted members are not repeated.
func (d *describer) fields(st *types.Struct, spec *schema.TypeSpec) []schema.PropertySpec {
	var props []schema.PropertySpec
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if f.Embedded() {
			if spec.Base == "" {
				if base, ok := d.local(f.Type()); ok {
					spec.Base = base
					continue
				}
			}
		}
		if !f.Exported() {
			continue
		}
		props = append(props, schema.PropertySpec{Name: f.Name(), Type: d.typeRef(f.Type())})
	}
	return props
}

// constants lists typed package constants as static read-only properties.
func (d *describer) constants(named *types.Named) []schema.PropertySpec {
	var props []schema.PropertySpec
	for _, c := range d.constsOf(named) {
		props = append(props, schema.PropertySpec{
			Name:     c.Name(),
			Type:     d.typeRef(named.Underlying()),
			Static:   true,
			ReadOnly: true,
			Value:    constantValue(c.Val()),
		})
	}
	return props
}

// enumValues reports the constants of an integral type when they number
// 0..n-1, which is what a schema enum can express.
func (d *describer) enumValues(named *types.Named) ([]string, bool) {
	basic, ok := named.Underlying().(*types.Basic)
	if !ok || basic.Info()&types.IsInteger == 0 {
		return nil, false
	}
	consts := d.constsOf(named)
	if len(consts) == 0 {
		return nil, false
	}
	values := make([]string, len(consts))
	for _, c := range consts {
		n, exact := constant.Int64Val(c.Val())
		if !exact || n < 0 || n >= int64(len(consts)) || values[n] != "" {
			return nil, false
		}
		values[n] = c.Name()
	}
	return values, true
}

func (d *describer) constsOf(named *types.Named) []*types.Const {
	var out []*types.Const
	scope := d.pkg.Scope()
	for _, name := range scope.Names() {
		c, ok := scope.Lookup(name).(*types.Const)
		if ok && c.Exported() && types.Identical(c.Type(), named) {
			out = append(out, c)
		}
	}
	return out
}

// interfaces lists the described interfaces that *T implements.
func (d *describer) interfaces(named *types.Named) []string {
	var out []string
	ptr := types.NewPointer(named)
	for _, name := range d.order {
		other := d.named[name]
		iface, ok := other.Underlying().(*types.Interface)
		if !ok || other == named || other.TypeParams().Len() > 0 || iface.NumMethods() == 0 {
			continue
		}
		if types.Implements(ptr, iface) {
			out = append(out, name)
		}
	}
	return out
}

func (d *describer) method(fn *types.Func) schema.MethodSpec {
	sig := fn.Type().(*types.Signature)
	return schema.MethodSpec{
		Name:   fn.Name(),
		Params: d.params(sig, 0),
		Result: d.result(sig),
	}
}

func (d *describer) params(sig *types.Signature, skip int) []schema.ParamSpec {
	var out []schema.ParamSpec
	params := sig.Params()
	for i := skip; i < params.Len(); i++ {
		p := params.At(i)
		if i == 0 && isContext(p.Type()) {
			continue
		}
		ps := schema.ParamSpec{Name: p.Name()}
		t := p.Type()
		if sig.Variadic() && i == params.Len()-1 {
			ps.Variadic = true
			t = t.(*types.Slice).Elem()
		}
		ps.Type = d.typeRef(t)
		out = append(out, ps)
	}
	return out
}

// result maps the results of sig, dropping a trailing error. Several values
// are returned as object.
func (d *describer) result(sig *types.Signature) string {
	results := sig.Results()
	n := results.Len()
	if n > 0 && isError(results.At(n-1).Type()) {
		n--
	}
	switch n {
	case 0:
		return ""
	case 1:
		return d.typeRef(results.At(0).Type())
	}
	return "object"
}

// functions collects package functions whose first parameter is a described
// type as extension methods of a container named after the package.
func (d *describer) functions() (schema.ExtensionSpec, bool) {
	ext := schema.ExtensionSpec{Container: utils.ExportedMemberName(d.pkg.Name()) + "Functions"}
	if ext.Container == "Functions" {
		ext.Container = d.pkg.Name() + "Functions"
	}
	scope := d.pkg.Scope()
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		sig := fn.Type().(*types.Signature)
		if sig.TypeParams().Len() > 0 || sig.Params().Len() == 0 {
			continue
		}
		recv, ok := d.local(sig.Params().At(0).Type())
		if !ok || (sig.Variadic() && sig.Params().Len() == 1) {
			continue
		}
		m := schema.MethodSpec{Name: fn.Name(), Result: d.result(sig)}
		m.Params = append([]schema.ParamSpec{{Name: sig.Params().At(0).Name(), Type: recv}}, d.params(sig, 1)...)
		ext.Methods = append(ext.Methods, m)
	}
	return ext, len(ext.Methods) > 0
}

// local returns the name of t (or *t) when it is a described type.
func (d *describer) local(t types.Type) (string, bool) {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, ok := t.(*types.Named)
	if !ok || named.Obj().Pkg() != d.pkg {
		return "", false
	}
	if _, described := d.named[named.Obj().Name()]; !described {
		return "", false
	}
	return named.Obj().Name(), true
}

// typeRef renders t as a binding type reference. Types outside the described
// set are typed as object.
func (d *describer) typeRef(t types.Type) string {
	switch t := t.(type) {
	case *types.Basic:
		return basicName(t)
	case *types.Pointer:
		return d.typeRef(t.Elem())
	case *types.Slice:
		return d.typeRef(t.Elem()) + "[]"
	case *types.Array:
		return d.typeRef(t.Elem()) + "[]"
	case *types.Map:
		return "Dictionary<" + d.typeRef(t.Key()) + ", " + d.typeRef(t.Elem()) + ">"
	case *types.Signature:
		sig := t
		params := make([]string, 0, sig.Params().Len())
		for i := 0; i < sig.Params().Len(); i++ {
			params = append(params, d.typeRef(sig.Params().At(i).Type()))
		}
		s := "func(" + strings.Join(params, ", ") + ")"
		if r := d.result(sig); r != "" {
			s += " " + r
		}
		return s
	case *types.TypeParam:
		return t.Obj().Name()
	case *types.Named:
		if isError(t) {
			return "string"
		}
		name, ok := d.local(t)
		if !ok {
			return "object"
		}
		if args := t.TypeArgs(); args != nil && args.Len() > 0 {
			refs := make([]string, args.Len())
			for i := 0; i < args.Len(); i++ {
				refs[i] = d.typeRef(args.At(i))
			}
			return name + "<" + strings.Join(refs, ", ") + ">"
		}
		return name
	}
	return "object"
}

func basicName(t *types.Basic) string {
	switch t.Kind() {
	case types.Bool, types.UntypedBool:
		return "bool"
	case types.Int, types.Int32, types.UntypedInt, types.UntypedRune:
		return "int"
	case types.Int8:
		return "sbyte"
	case types.Int16:
		return "short"
	case types.Int64:
		return "long"
	case types.Uint8:
		return "byte"
	case types.Uint16:
		return "ushort"
	case types.Uint, types.Uint32:
		return "uint"
	case types.Uint64, types.Uintptr:
		return "ulong"
	case types.Float32:
		return "float"
	case types.Float64, types.UntypedFloat:
		return "double"
	case types.String, types.UntypedString:
		return "string"
	}
	return "object"
}

func constantValue(v constant.Value) any {
	switch v.Kind() {
	case constant.Bool:
		return constant.BoolVal(v)
	case constant.String:
		return constant.StringVal(v)
	case constant.Int:
		if n, ok := constant.Int64Val(v); ok {
			return n
		}
	case constant.Float:
		f, _ := constant.Float64Val(v)
		return f
	}
	return v.ExactString()
}

func isContext(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "context" && obj.Name() == "Context"
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}
