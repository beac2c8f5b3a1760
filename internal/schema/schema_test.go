package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/resolver"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

const shapes = `
types:
  - name: Color
    kind: enum
    base: byte
    values: [Red, Green, Blue]
  - name: IShape
    kind: interface
    methods:
      - name: Area
        result: double
  - name: Shape
    interfaces: [IShape]
    properties:
      - {name: Name, type: string}
      - {name: Fill, type: Color}
      - {name: Count, type: int, static: true, value: 3, readonly: true}
    methods:
      - name: Area
        result: double
        impl: shape.area
  - name: Circle
    base: Shape
    properties:
      - {name: Radius, type: double}
  - name: Box
    params: [T]
    properties:
      - {name: Value, type: T}
    methods:
      - name: Map
        type_params: [R]
        params:
          - {type: "func(T) R"}
        result: Box<R>
    indexers:
      - params: [string]
        type: T
        get: box.get
extensions:
  - container: ShapeExtensions
    methods:
      - name: Describe
        params:
          - {name: shape, type: IShape}
          - {name: parts, type: string, variadic: true}
        result: string
        impl: shape.describe
`

func functions() Functions {
	return Functions{
		"shape.area": func(target any, _ []any) (any, error) {
			r, _ := target.(*registry.Record).Field("Radius")
			f, _ := r.(float64)
			return 3 * f * f, nil
		},
		"shape.describe": func(_ any, args []any) (any, error) {
			return "shape with " + strings.Repeat("*", len(args)-1), nil
		},
		"box.get": func(target any, args []any) (any, error) {
			v, _ := target.(*registry.Record).Field("Value")
			return v, nil
		},
	}
}

func TestParseAndDefaults(t *testing.T) {
	doc, err := Parse([]byte(shapes), "shapes.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Types) != 5 {
		t.Fatalf("expected 5 types, got %d", len(doc.Types))
	}
	if got := doc.Types[2].Kind; got != "class" {
		t.Errorf("default kind = %q, want class", got)
	}
	if got := doc.Types[4].Methods[0].Params[0].Name; got != "arg0" {
		t.Errorf("default parameter name = %q, want arg0", got)
	}
	if doc.Path != "shapes.yaml" {
		t.Errorf("path = %q", doc.Path)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "types: []", "no types defined"},
		{"no name", "types:\n  - kind: class", "types[0]: name is required"},
		{"duplicate", "types:\n  - name: A\n  - name: A", `duplicate type "A"`},
		{"bad kind", "types:\n  - name: A\n    kind: record", `unknown kind "record"`},
		{"enum without values", "types:\n  - name: E\n    kind: enum", "enum needs values"},
		{"values on class", "types:\n  - name: A\n    values: [X]", "only valid for enums"},
		{"struct base", "types:\n  - name: S\n    kind: struct\n    base: A", "cannot have a base type"},
		{"property type", "types:\n  - name: A\n    properties:\n      - name: X", "properties[0] (A): name and type are required"},
		{"instance value", "types:\n  - name: A\n    properties:\n      - {name: X, type: int, value: 1}", "only valid for static properties"},
		{"variadic not last", "types:\n  - name: A\n    methods:\n      - name: M\n        params:\n          - {type: int, variadic: true}\n          - {type: int}", "only the last parameter can be variadic"},
		{"extension receiver", "extensions:\n  - container: X\n    methods:\n      - name: M", "needs a receiver parameter"},
		{"syntax", "types: [", "parsing bad.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "bad.yaml")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
			if !strings.HasPrefix(err.Error(), "bad.yaml") && tt.name != "syntax" {
				t.Errorf("error %q is not prefixed with the file path", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	doc, err := Parse([]byte(shapes), "shapes.yaml")
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New()
	types, err := Load(reg, doc, functions())
	if err != nil {
		t.Fatal(err)
	}

	circle := types["Circle"]
	if !typesystem.AssignableTo(circle, types["IShape"]) {
		t.Error("Circle should implement IShape through Shape")
	}
	color := types["Color"]
	if color.Kind != typesystem.KindEnum || color.Underlying != typesystem.Byte {
		t.Errorf("Color = %v, underlying %v", color.Kind, color.Underlying)
	}

	res := resolver.ForRegistry(reg)
	green, err := res.ResolveMember(color, "Green", true)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := green.Get(nil); v != 1 {
		t.Errorf("Color.Green = %v, want 1", v)
	}
	count, err := res.ResolveMember(types["Shape"], "Count", true)
	if err != nil || count.CanWrite() {
		t.Fatalf("Shape.Count = %v, %v", count, err)
	}
	if v, _ := count.Get(nil); v != 3 {
		t.Errorf("Shape.Count = %v, want 3", v)
	}

	c := registry.NewRecord(circle, map[string]any{"Radius": 2.0, "Name": "c"})
	call, err := res.ResolveMethod(resolver.Call{Type: circle, Name: "Area"})
	if err != nil {
		t.Fatal(err)
	}
	if v, err := call.Method.Invoke(c, nil); err != nil || v != 12.0 {
		t.Errorf("Area() = %v, %v", v, err)
	}
	name, err := res.ResolveMember(circle, "Name", false)
	if err != nil || !name.CanWrite() {
		t.Fatalf("Name = %v, %v", name, err)
	}
	if v, _ := name.Get(c); v != "c" {
		t.Errorf("Name = %v", v)
	}

	ext, err := res.ResolveMethod(resolver.Call{Type: circle, Name: "Describe", Args: resolver.Args(typesystem.String, typesystem.String)})
	if err != nil || !ext.Extension {
		t.Fatalf("Describe = %v, %v", ext, err)
	}
	if v, _ := ext.Method.Invoke(nil, []any{c, "a", "b"}); v != "shape with **" {
		t.Errorf("Describe = %v", v)
	}
}

func TestLoadGenericType(t *testing.T) {
	doc, err := Parse([]byte(shapes), "shapes.yaml")
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New()
	types, err := Load(reg, doc, functions())
	if err != nil {
		t.Fatal(err)
	}
	boxOfInt := typesystem.Instantiate(types["Box"], typesystem.Int32)
	res := resolver.ForRegistry(reg)

	value, err := res.ResolveMember(boxOfInt, "Value", false)
	if err != nil || !typesystem.Equal(value.Type, typesystem.Int32) {
		t.Errorf("Box<int>.Value = %v, %v", value, err)
	}
	ix, err := res.ResolveIndexer(boxOfInt, resolver.Args(typesystem.String), false)
	if err != nil || !typesystem.Equal(ix.Type, typesystem.Int32) {
		t.Errorf("Box<int>[string] = %v, %v", ix, err)
	}

	mapped, err := res.ResolveMethod(resolver.Call{
		Type: boxOfInt,
		Name: "Map",
		Args: []resolver.Argument{resolver.TypedLambda(typesystem.TFunc{Params: []typesystem.Type{typesystem.Int32}, Result: typesystem.String})},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := mapped.Method.Result.String(); got != "Box<string>" {
		t.Errorf("Map result = %s, want Box<string>", got)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown type", "types:\n  - name: A\n    properties:\n      - {name: X, type: Missing}", "property X"},
		{"unknown impl", "types:\n  - name: A\n    methods:\n      - {name: M, impl: nope}", `unknown implementation "nope"`},
		{"enum base", "types:\n  - name: E\n    kind: enum\n    base: string\n    values: [A]", "not an integral type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.yaml), "bad.yaml")
			if err != nil {
				t.Fatal(err)
			}
			_, err = Load(registry.New(), doc, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load err = %v, want %q", err, tt.want)
			}
		})
	}

	doc, _ := Parse([]byte("types:\n  - name: A\n    base: Nowhere"), "bad.yaml")
	_, err := Load(registry.New(), doc, nil)
	var notFound *typesystem.TypeNotFoundError
	if !errors.As(err, &notFound) || notFound.Name != "Nowhere" {
		t.Errorf("Load err = %v, want TypeNotFoundError", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	doc, err := Parse([]byte(shapes), "shapes.yaml")
	if err != nil {
		t.Fatal(err)
	}
	data, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(data, "encoded.yaml")
	if err != nil {
		t.Fatalf("re-parsing encoded document: %v\n%s", err, data)
	}
	if len(again.Types) != len(doc.Types) || len(again.Extensions) != 1 {
		t.Errorf("round trip lost declarations:\n%s", data)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bindexpr.yaml")
	if err := os.WriteFile(path, []byte(shapes), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Path != path {
		t.Errorf("path = %q, want %q", doc.Path, path)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
