package binding

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/funvibe/bindexpr/internal/ast"
	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/rewrite"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

type Address struct {
	City string
	Zip  int
}

type Person struct {
	Name   string
	Age    int
	Home   *Address
	Tags   []string
	Scores map[string]int
}

func (p *Person) Greet(greeting string) string { return greeting + ", " + p.Name }

func (p *Person) Explode() string { panic("boom") }

func (p *Person) Sum(xs ...int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func newBinder(t *testing.T) *Binder {
	t.Helper()
	reg := registry.New()
	for _, sample := range []any{&Address{}, &Person{}} {
		if _, err := reg.RegisterGoType(sample); err != nil {
			t.Fatal(err)
		}
	}
	return New(reg)
}

func member(target ast.Expression, names ...string) ast.Expression {
	for _, n := range names {
		target = ast.NewMember(target, n)
	}
	return target
}

func TestMemberPathOf(t *testing.T) {
	tests := []struct {
		expr     ast.Expression
		want     string
		segments int
	}{
		{
			expr:     ast.NewMember(ast.NewIndex(ast.NewIndex(member(ast.NewParameter("a"), "b"), ast.ConstantOf(0)), ast.ConstantOf("k")), "c"),
			want:     `a.b[0]["k"].c`,
			segments: 4,
		},
		{expr: member(nil, "Name"), want: "Name", segments: 1},
		{expr: ast.NewMember(ast.NewNullConditionalMember(member(nil, "Home")), "City"), want: "Home?.City", segments: 2},
		{expr: ast.NewIndex(nil, ast.ConstantOf(1), ast.ConstantOf(2)), want: "[1, 2]", segments: 1},
		{expr: ast.NewParameter("x"), want: "x", segments: 0},
	}
	for _, tt := range tests {
		p, err := MemberPathOf(tt.expr)
		if err != nil {
			t.Errorf("MemberPathOf(%s): %v", tt.expr, err)
			continue
		}
		if got := p.String(); got != tt.want {
			t.Errorf("MemberPathOf(%s) = %q, want %q", tt.expr, got, tt.want)
		}
		if len(p.Segments) != tt.segments {
			t.Errorf("MemberPathOf(%s) has %d segments, want %d", tt.expr, len(p.Segments), tt.segments)
		}
	}
}

func TestMemberPathOfRejectsShapes(t *testing.T) {
	x := ast.NewParameter("x")
	bad := []ast.Expression{
		ast.NewIndex(member(x, "Items"), x),
		member(ast.NewMethodCall(x, "Get", nil), "Name"),
		ast.NewBinary(ast.Addition, ast.ConstantOf(1), ast.ConstantOf(2)),
		ast.NewNullConditionalMember(x),
		ast.NewIndex(member(x, "Items")),
	}
	for _, expr := range bad {
		_, err := MemberPathOf(expr)
		var shape *ParseShapeError
		if !errors.As(err, &shape) {
			t.Errorf("MemberPathOf(%s) err = %v, want ParseShapeError", expr, err)
		}
	}
}

func TestConvert(t *testing.T) {
	c := NewConverter(registry.New())
	tests := []struct {
		value  any
		target typesystem.Type
		want   any
	}{
		{int64(5), typesystem.Int32, 5},
		{"42", typesystem.Int32, 42},
		{3, typesystem.Double, 3.0},
		{"x", typesystem.Char, 'x'},
		{200, typesystem.Byte, uint8(200)},
		{-3, typesystem.Int64, int64(-3)},
		{2.0, typesystem.Int16, int16(2)},
		{true, typesystem.String, "true"},
		{"true", typesystem.Bool, true},
		{nil, typesystem.TNullable{Elem: typesystem.Int32}, nil},
		{7, typesystem.TNullable{Elem: typesystem.Int64}, int64(7)},
		{nil, typesystem.String, nil},
		{[]int{1, 2}, typesystem.TArray{Elem: typesystem.Int64}, []any{int64(1), int64(2)}},
		{"anything", typesystem.Object, "anything"},
	}
	for _, tt := range tests {
		got, err := c.Convert(tt.value, tt.target)
		if err != nil {
			t.Errorf("Convert(%v, %s): %v", tt.value, tt.target, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Convert(%v, %s) = %#v, want %#v", tt.value, tt.target, got, tt.want)
		}
	}
}

func TestConvertFailures(t *testing.T) {
	c := NewConverter(registry.New())
	tests := []struct {
		value  any
		target typesystem.Type
	}{
		{300, typesystem.Byte},
		{-1, typesystem.UInt32},
		{1.5, typesystem.Int32},
		{"abc", typesystem.Int32},
		{"xy", typesystem.Char},
		{nil, typesystem.Int32},
		{"s", typesystem.Bool},
		{struct{}{}, typesystem.TArray{Elem: typesystem.Int32}},
	}
	for _, tt := range tests {
		_, err := c.Convert(tt.value, tt.target)
		var conv *InvalidConversionError
		if !errors.As(err, &conv) {
			t.Errorf("Convert(%v, %s) err = %v, want InvalidConversionError", tt.value, tt.target, err)
		}
	}
}

func TestBindMember(t *testing.T) {
	b := newBinder(t)
	p := &Person{Name: "Ann", Age: 30}

	acc, ok, err := b.Bind(p, member(nil, "Name"))
	if err != nil || !ok {
		t.Fatalf("Bind(Name) = %v, %v", ok, err)
	}
	if acc.Type() != typesystem.Type(typesystem.String) || !acc.CanRead() || !acc.CanWrite() {
		t.Errorf("Name accessor: type %s, read %v, write %v", acc.Type(), acc.CanRead(), acc.CanWrite())
	}
	if v, err := acc.Get(); err != nil || v != "Ann" {
		t.Errorf("Get = %v, %v", v, err)
	}
	if err := acc.Set("Bob"); err != nil || p.Name != "Bob" {
		t.Errorf("Set: %v, name %q", err, p.Name)
	}

	age, ok, err := b.Bind(p, member(nil, "age"))
	if err != nil || !ok {
		t.Fatalf("Bind(age) = %v, %v", ok, err)
	}
	if err := age.Set("41"); err != nil || p.Age != 41 {
		t.Errorf("Set(\"41\"): %v, age %d", err, p.Age)
	}
	var conv *InvalidConversionError
	if err := age.Set("old"); !errors.As(err, &conv) {
		t.Errorf("Set(\"old\") err = %v", err)
	}

	if _, ok, err := b.Bind(p, member(nil, "Salary")); ok || err != nil {
		t.Errorf("missing member: ok %v, err %v", ok, err)
	}
	if _, ok, err := b.Bind(nil, member(nil, "Name")); ok || err != nil {
		t.Errorf("nil target: ok %v, err %v", ok, err)
	}
	if _, _, err := b.Bind(p, ast.ConstantOf(1)); err == nil {
		t.Error("binding a constant should fail")
	}
}

func TestBindIndex(t *testing.T) {
	b := newBinder(t)
	tags := []string{"a", "b"}
	acc, ok, err := b.Bind(tags, ast.NewIndex(nil, ast.ConstantOf(1)))
	if err != nil || !ok {
		t.Fatalf("Bind(tags[1]) = %v, %v", ok, err)
	}
	if v, err := acc.Get(); err != nil || v != "b" {
		t.Errorf("tags[1] = %v, %v", v, err)
	}
	if err := acc.Set("z"); err != nil || tags[1] != "z" {
		t.Errorf("Set: %v, tags %v", err, tags)
	}

	scores := map[string]int{"x": 1}
	acc, ok, err = b.Bind(scores, ast.NewIndex(nil, ast.ConstantOf("x")))
	if err != nil || !ok {
		t.Fatalf("Bind(scores[x]) = %v, %v", ok, err)
	}
	if err := acc.Set(int64(9)); err != nil || scores["x"] != 9 {
		t.Errorf("Set: %v, scores %v", err, scores)
	}

	if _, ok, _ := b.Bind(tags, ast.NewIndex(nil, ast.ConstantOf(1), ast.ConstantOf(2))); ok {
		t.Error("two-argument indexer should be missing")
	}
	var shape *ParseShapeError
	if _, _, err := b.Bind(tags, ast.NewIndex(nil, ast.NewParameter("i"))); !errors.As(err, &shape) {
		t.Errorf("non-constant index err = %v", err)
	}
}

func TestBindMethod(t *testing.T) {
	b := newBinder(t)
	p := &Person{Name: "Ann"}

	acc, ok, err := b.Bind(p, ast.NewMethodCall(nil, "Greet", nil, ast.ConstantOf("Hi")))
	if err != nil || !ok {
		t.Fatalf("Bind(Greet) = %v, %v", ok, err)
	}
	if v, err := acc.Get(); err != nil || v != "Hi, Ann" {
		t.Errorf("Greet(\"Hi\") = %v, %v", v, err)
	}
	if v, err := acc.Invoke("Hello"); err != nil || v != "Hello, Ann" {
		t.Errorf("Invoke(\"Hello\") = %v, %v", v, err)
	}
	if acc.CanWrite() || !acc.CanInvoke() {
		t.Error("methods are invocable and read-only")
	}

	boom, ok, err := b.Bind(p, ast.NewMethodCall(nil, "Explode", nil))
	if err != nil || !ok {
		t.Fatalf("Bind(Explode) = %v, %v", ok, err)
	}
	if _, err := boom.Get(); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("panicking accessor err = %v", err)
	}

	static := ast.NewMethodCall(ast.NewTypeAccess(typesystem.String), "IsNullOrEmpty", nil, ast.ConstantOf(""))
	acc, ok, err = b.Bind(nil, static)
	if err != nil || !ok {
		t.Fatalf("Bind(string.IsNullOrEmpty) = %v, %v", ok, err)
	}
	if v, err := acc.Get(); err != nil || v != true {
		t.Errorf("IsNullOrEmpty(\"\") = %v, %v", v, err)
	}
}

func TestBindVariadicMethod(t *testing.T) {
	b := newBinder(t)
	p := &Person{}

	tests := []struct {
		name string
		args []ast.Expression
		want int
	}{
		{"spread", []ast.Expression{ast.ConstantOf(1), ast.ConstantOf(2)}, 3},
		{"none", nil, 0},
		{"slice", []ast.Expression{ast.NewConstant([]int{1, 2}, nil)}, 3},
	}
	for _, tt := range tests {
		acc, ok, err := b.Bind(p, ast.NewMethodCall(nil, "Sum", nil, tt.args...))
		if err != nil || !ok {
			t.Fatalf("%s: Bind(Sum) = %v, %v", tt.name, ok, err)
		}
		if v, err := acc.Get(); err != nil || v != tt.want {
			t.Errorf("%s: Sum = %v, %v, want %d", tt.name, v, err, tt.want)
		}
	}
}

func TestBindExtensionMethod(t *testing.T) {
	b := newBinder(t)
	reg := b.Registry()
	shout, err := reg.ExtensionFromFunc("Shout", func(s string, suffix string) string {
		return strings.ToUpper(s) + suffix
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterExtensions(typesystem.NewClass("StringExtensions", nil), shout); err != nil {
		t.Fatal(err)
	}
	acc, ok, err := b.Bind("hey", ast.NewMethodCall(nil, "Shout", nil, ast.ConstantOf("!")))
	if err != nil || !ok {
		t.Fatalf("Bind(Shout) = %v, %v", ok, err)
	}
	if v, err := acc.Get(); err != nil || v != "HEY!" {
		t.Errorf("Shout = %v, %v", v, err)
	}
	if v, err := acc.Invoke("?"); err != nil || v != "HEY?" {
		t.Errorf("Invoke = %v, %v", v, err)
	}
}

func TestBindRecord(t *testing.T) {
	b := newBinder(t)
	point := typesystem.NewClass("Point", nil)
	err := b.Registry().Register(&registry.Descriptor{
		Type:       point,
		Properties: []*registry.Property{registry.RecordProperty("X", typesystem.Int32, true)},
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := registry.NewRecord(point, map[string]any{"X": 1})
	acc, ok, err := b.Bind(rec, member(nil, "X"))
	if err != nil || !ok {
		t.Fatalf("Bind(X) = %v, %v", ok, err)
	}
	if err := acc.Set(int64(5)); err != nil {
		t.Fatal(err)
	}
	if v, _ := rec.Field("X"); v != 5 {
		t.Errorf("X = %#v, want 5", v)
	}
}

func TestEvaluate(t *testing.T) {
	b := newBinder(t)
	p := &Person{Name: "Ann", Tags: []string{"go"}, Scores: map[string]int{"math": 7}}
	x := ast.NewParameter("p")

	tests := []struct {
		expr   ast.Expression
		want   any
		wantOK bool
	}{
		{member(x, "Name"), "Ann", true},
		{member(nil, "Home", "City"), nil, false},
		{ast.NewMember(ast.NewNullConditionalMember(member(nil, "Home")), "City"), nil, true},
		{ast.NewIndex(member(nil, "Tags"), ast.ConstantOf(0)), "go", true},
		{ast.NewIndex(member(nil, "Scores"), ast.ConstantOf("math")), 7, true},
		{member(nil, "Name", "Length"), 3, true},
		{member(nil, "Missing"), nil, false},
	}
	for _, tt := range tests {
		got, ok, err := b.EvaluateExpression(p, tt.expr)
		if err != nil {
			t.Errorf("%s: %v", tt.expr, err)
			continue
		}
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("%s = %v, %v; want %v, %v", tt.expr, got, ok, tt.want, tt.wantOK)
		}
	}

	p.Home = &Address{City: "Paris"}
	if got, ok, err := b.EvaluateExpression(p, member(nil, "Home", "City")); err != nil || !ok || got != "Paris" {
		t.Errorf("Home.City = %v, %v, %v", got, ok, err)
	}
}

func TestEvaluateNormalized(t *testing.T) {
	macros := rewrite.NewMacroExpander()
	macros.Register("$home", ast.NewMember(nil, "Home"))
	b := newBinder(t).WithPipeline(rewrite.Normalize(macros))
	p := &Person{Name: "Ann", Home: &Address{City: "Oslo"}}

	got, ok, err := b.EvaluateExpression(p, ast.NewMember(ast.NewMember(nil, "$home"), "City"))
	if err != nil || !ok || got != "Oslo" {
		t.Errorf("$home.City = %v, %v, %v; want Oslo", got, ok, err)
	}

	// Without the pipeline the macro is an ordinary, missing member.
	if _, ok, err := newBinder(t).EvaluateExpression(p, ast.NewMember(ast.NewMember(nil, "$home"), "City")); err != nil || ok {
		t.Errorf("unexpanded macro: ok = %v, err = %v", ok, err)
	}
}
