package resolver

import (
	"errors"
	"testing"

	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

var (
	tT = typesystem.TVar{Name: "T"}
	tR = typesystem.TVar{Name: "R"}
)

func enumerableOf(t typesystem.Type) typesystem.Type {
	return typesystem.Instantiate(typesystem.Enumerable, t)
}

func fn(result typesystem.Type, params ...typesystem.Type) typesystem.TFunc {
	return typesystem.TFunc{Params: params, Result: result}
}

type fixture struct {
	reg  *registry.Registry
	res  *Resolver
	calc *typesystem.TNamed
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg := registry.New()
	calc := typesystem.NewClass("Calculator", nil)
	i32 := typesystem.Int32
	err := reg.Register(&registry.Descriptor{
		Type: calc,
		Properties: []*registry.Property{
			{Name: "Total", Type: i32},
		},
		Methods: []*registry.Method{
			{Name: "Add", Params: []registry.Parameter{registry.Param("a", i32), registry.Param("b", i32)}, Result: i32},
			{Name: "Add", TypeParams: []typesystem.TVar{tT}, Params: []registry.Parameter{registry.Param("a", tT), registry.Param("b", tT)}, Result: tT},
			{Name: "Scale", Params: []registry.Parameter{registry.Param("factor", typesystem.Double)}, Result: typesystem.Double},
			{Name: "Format", Params: []registry.Parameter{registry.Param("pattern", typesystem.String)}, Result: typesystem.String},
			{Name: "Apply", Params: []registry.Parameter{registry.Param("f", fn(typesystem.Bool, i32))}, Result: typesystem.Bool},
			{Name: "Describe", Result: typesystem.String},
			{Name: "Sum", Params: []registry.Parameter{registry.Param("first", i32), registry.VariadicParam("rest", i32)}, Result: i32},
			{Name: "Create", Static: true, Result: calc},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	linq := typesystem.NewClass("Linq", nil)
	err = reg.RegisterExtensions(linq,
		&registry.Method{
			Name:       "Where",
			TypeParams: []typesystem.TVar{tT},
			Params: []registry.Parameter{
				registry.Param("source", enumerableOf(tT)),
				registry.Param("predicate", fn(typesystem.Bool, tT)),
			},
			Result:    enumerableOf(tT),
			Extension: true,
		},
		&registry.Method{
			Name:       "Select",
			TypeParams: []typesystem.TVar{tT, tR},
			Params: []registry.Parameter{
				registry.Param("source", enumerableOf(tT)),
				registry.Param("selector", typesystem.TFunc{Params: []typesystem.Type{tT}, Result: tR, Expression: true}),
			},
			Result:    enumerableOf(tR),
			Extension: true,
		},
		&registry.Method{
			Name:      "Describe",
			Params:    []registry.Parameter{registry.Param("value", typesystem.Object)},
			Result:    typesystem.String,
			Extension: true,
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return fixture{reg: reg, res: ForRegistry(reg), calc: calc}
}

func TestPrefersNonGenericOverloadInDeclarationOrder(t *testing.T) {
	f := newFixture(t)
	res, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Add", Args: Args(typesystem.Int32, typesystem.Int32)})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Resolved || res.Method.IsGeneric() || len(res.Method.TypeParams) != 0 {
		t.Errorf("selected %s (%s), want Add(int, int)", res.Method.Signature(), res.State)
	}
}

func TestGenericOverloadInference(t *testing.T) {
	f := newFixture(t)
	res, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Add", Args: Args(typesystem.Int64, typesystem.Int64)})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Method.Signature(); got != "Add<long>(long, long) long" {
		t.Errorf("selected %s", got)
	}
	if res.Template().TypeParams[0] != tT {
		t.Error("template lost its type parameter")
	}

	res, err = f.res.ResolveMethod(Call{Type: f.calc, Name: "Add", TypeArgs: []typesystem.Type{typesystem.Double}, Args: Args(typesystem.Double, typesystem.Int32)})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Method.Signature(); got != "Add<double>(double, double) double" {
		t.Errorf("explicit type arguments selected %s", got)
	}
}

func TestNumericPromotionInResolution(t *testing.T) {
	f := newFixture(t)
	res, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Scale", Args: Args(typesystem.Int32)})
	if err != nil || res.Method.Name != "Scale" {
		t.Fatalf("Scale(int) = %v, %v", res.Method, err)
	}
}

func TestSameArityFallback(t *testing.T) {
	f := newFixture(t)
	res, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Format", Args: Args(typesystem.Int32)})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Method.Signature(); got != "Format(string) string" {
		t.Errorf("fallback selected %s", got)
	}

	_, err = f.res.ResolveMethod(Call{Type: f.calc, Name: "Format", Args: Args(typesystem.Int32, typesystem.Int32)})
	var amb *AmbiguousOverloadError
	if !errors.As(err, &amb) {
		t.Errorf("err = %v, want AmbiguousOverloadError", err)
	}
}

func TestLambdaBlocksFallback(t *testing.T) {
	f := newFixture(t)
	if _, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Apply", Args: []Argument{Lambda(1)}}); err != nil {
		t.Errorf("Apply(x => ...) = %v", err)
	}
	_, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Apply", Args: []Argument{Lambda(2)}})
	var amb *AmbiguousOverloadError
	if !errors.As(err, &amb) {
		t.Fatalf("err = %v, want AmbiguousOverloadError", err)
	}
	if amb.Error() != "no overload of Calculator.Apply accepts (lambda/2)" {
		t.Errorf("message = %q", amb.Error())
	}
}

func TestMissingMember(t *testing.T) {
	f := newFixture(t)
	_, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Nope"})
	var missing *MissingMemberError
	if !errors.As(err, &missing) || missing.Name != "Nope" {
		t.Errorf("err = %v, want MissingMemberError", err)
	}
	if _, err := f.res.ResolveMember(f.calc, "Missing", false); !errors.As(err, &missing) {
		t.Errorf("ResolveMember err = %v", err)
	}
	// Static calls do not see instance methods.
	if _, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Add", Args: Args(typesystem.Int32, typesystem.Int32), Static: true}); !errors.As(err, &missing) {
		t.Errorf("static Add err = %v", err)
	}
	if res, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Create", Static: true}); err != nil || res.Method.Result != typesystem.Type(f.calc) {
		t.Errorf("static Create = %v, %v", res.Method, err)
	}
}

func TestInstanceMethodsBeforeExtensions(t *testing.T) {
	f := newFixture(t)
	res, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Describe"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Extension {
		t.Error("extension method chosen over instance method")
	}

	res, err = f.res.ResolveMethod(Call{Type: typesystem.String, Name: "Describe"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Extension || res.Method.Params[0].Type != typesystem.Type(typesystem.Object) {
		t.Errorf("Describe on string = %s, extension %v", res.Method.Signature(), res.Extension)
	}
}

func TestExtensionMethodInference(t *testing.T) {
	f := newFixture(t)
	list := typesystem.Instantiate(typesystem.List, typesystem.Int32)
	res, err := f.res.ResolveMethod(Call{Type: list, Name: "Where", Args: []Argument{Lambda(1)}})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Resolved || !res.Extension {
		t.Fatalf("Where = %s, extension %v", res.State, res.Extension)
	}
	if got := res.Method.Signature(); got != "Where<int>(IEnumerable<int>, func(int) bool) IEnumerable<int>" {
		t.Errorf("Where = %s", got)
	}

	if _, err := f.res.ResolveMethod(Call{Type: typesystem.Int32, Name: "Where", Args: []Argument{Lambda(1)}}); err == nil {
		t.Error("Where should not apply to int")
	}
}

func TestPartialResolutionAndReresolve(t *testing.T) {
	f := newFixture(t)
	arr := typesystem.TArray{Elem: typesystem.Int32}
	res, err := f.res.ResolveMethod(Call{Type: arr, Name: "Select", Args: []Argument{Lambda(1)}})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != PartiallyResolved || len(res.Open) != 1 || res.Open[0] != tR {
		t.Fatalf("Select = %s, open %v", res.State, res.Open)
	}
	if got := res.Method.Signature(); got != "Select<int, R>(IEnumerable<int>, Expression<func(int) R>) IEnumerable<R>" {
		t.Errorf("partial Select = %s", got)
	}

	done, err := res.Reresolve([]Argument{TypedLambda(fn(typesystem.String, typesystem.Int32))})
	if err != nil {
		t.Fatal(err)
	}
	if done.State != Resolved || !done.Extension {
		t.Fatalf("reresolved state = %s", done.State)
	}
	if !typesystem.Equal(done.Method.Result, enumerableOf(typesystem.String)) {
		t.Errorf("result type = %s", done.Method.Result)
	}
	if again, _ := done.Reresolve(nil); again.Method != done.Method {
		t.Error("reresolving a resolved result should return it unchanged")
	}

	if _, err := res.Reresolve([]Argument{Lambda(3)}); err == nil {
		t.Error("expected an error for a lambda of the wrong arity")
	}
}

func TestVariadicCandidates(t *testing.T) {
	f := newFixture(t)
	i32 := typesystem.Int32
	for _, args := range [][]Argument{
		Args(i32),
		Args(i32, i32),
		Args(i32, i32, typesystem.Int16),
		Args(i32, typesystem.TArray{Elem: i32}),
	} {
		if _, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Sum", Args: args}); err != nil {
			t.Errorf("Sum%v: %v", args, err)
		}
	}

	res, err := f.res.ResolveMethod(Call{Type: typesystem.String, Name: "Concat", Static: true, Args: Args(i32, typesystem.String, typesystem.Double)})
	if err != nil || res.Method.Name != "Concat" {
		t.Errorf("string.Concat = %v", err)
	}
}

func TestNullArguments(t *testing.T) {
	f := newFixture(t)
	if res, err := f.res.ResolveMethod(Call{Type: f.calc, Name: "Format", Args: []Argument{Null()}}); err != nil || res.Method.Name != "Format" {
		t.Errorf("Format(null) = %v", err)
	}
	if !accepts(f.reg.Methods(f.calc, "Format", false)[0], []Argument{Null()}) {
		t.Error("null should convert to string")
	}
	if accepts(f.reg.Methods(f.calc, "Scale", false)[0], []Argument{Null()}) {
		t.Error("null should not convert to double")
	}
}

type Customer struct {
	FirstName string
}

func TestMemberAndIndexerResolution(t *testing.T) {
	f := newFixture(t)
	customer, err := f.reg.RegisterGoType(&Customer{})
	if err != nil {
		t.Fatal(err)
	}
	p, err := f.res.ResolveMember(customer, "firstName", false)
	if err != nil || p.Name != "FirstName" {
		t.Errorf("firstName = %v, %v", p, err)
	}
	if p, err := f.res.ResolveMember(f.calc, "Total", false); err != nil || p.Type != typesystem.Type(typesystem.Int32) {
		t.Errorf("Total = %v, %v", p, err)
	}

	dict := typesystem.Instantiate(typesystem.Dictionary, typesystem.String, typesystem.Double)
	ix, err := f.res.ResolveIndexer(dict, Args(typesystem.String), false)
	if err != nil || !typesystem.Equal(ix.Type, typesystem.Double) {
		t.Errorf("dict[string] = %v, %v", ix, err)
	}
	if _, err := f.res.ResolveIndexer(dict, Args(typesystem.String, typesystem.Int32), false); err == nil {
		t.Error("two-argument indexer should not match")
	}
}
