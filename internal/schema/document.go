// Package schema reads type descriptor documents.
//
// A document declares binding types (classes, structs, interfaces, enums and
// generic definitions) with their properties, methods and indexers, plus
// extension methods grouped by container type. Method bodies are not part of
// the document: methods name an implementation that the loader looks up in a
// function table supplied by the host.
//
//	types:
//	  - name: Point
//	    properties:
//	      - {name: X, type: int}
//	      - {name: Y, type: int}
//	    methods:
//	      - name: Offset
//	        params: [{name: dx, type: int}, {name: dy, type: int}]
//	        result: Point
//	        impl: point.offset
package schema

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Document is the top-level content of a schema file.
type Document struct {
	Types      []TypeSpec      `yaml:"types,omitempty"`
	Extensions []ExtensionSpec `yaml:"extensions,omitempty"`

	// Path is the file the document was read from, used in error messages.
	Path string `yaml:"-"`
}

// TypeSpec declares one binding type.
type TypeSpec struct {
	Name string `yaml:"name"`

	// Kind is class, struct, interface or enum. Defaults to class.
	Kind string `yaml:"kind,omitempty"`

	// Base is the base class, or the integral type of an enum.
	Base       string   `yaml:"base,omitempty"`
	Interfaces []string `yaml:"interfaces,omitempty"`

	// Params makes the type a generic definition (e.g. [K, V]).
	Params []string `yaml:"params,omitempty"`

	// Values lists enum members; they are numbered from zero.
	Values []string `yaml:"values,omitempty"`

	Properties []PropertySpec `yaml:"properties,omitempty"`
	Methods    []MethodSpec   `yaml:"methods,omitempty"`
	Indexers   []IndexerSpec  `yaml:"indexers,omitempty"`
}

type PropertySpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	ReadOnly bool   `yaml:"readonly,omitempty"`
	Static   bool   `yaml:"static,omitempty"`

	// Value is the constant value of a static property.
	Value any `yaml:"value,omitempty"`
}

type MethodSpec struct {
	Name       string      `yaml:"name"`
	TypeParams []string    `yaml:"type_params,omitempty"`
	Params     []ParamSpec `yaml:"params,omitempty"`
	Result     string      `yaml:"result,omitempty"`
	Static     bool        `yaml:"static,omitempty"`

	// Impl names the function table entry implementing the method. Methods
	// without one resolve but cannot be invoked.
	Impl string `yaml:"impl,omitempty"`
}

type ParamSpec struct {
	Name     string `yaml:"name,omitempty"`
	Type     string `yaml:"type"`
	Variadic bool   `yaml:"variadic,omitempty"`
}

type IndexerSpec struct {
	Params []string `yaml:"params"`
	Type   string   `yaml:"type"`
	Static bool     `yaml:"static,omitempty"`
	Get    string   `yaml:"get,omitempty"`
	Set    string   `yaml:"set,omitempty"`
}

// ExtensionSpec groups extension methods declared by a container type. The
// first parameter of each method is its receiver.
type ExtensionSpec struct {
	Container string       `yaml:"container"`
	Methods   []MethodSpec `yaml:"methods"`
}

// LoadFile reads and parses a schema file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses schema content. The path argument is used only for error
// messages.
func Parse(data []byte, path string) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	doc.Path = path
	if err := doc.validate(path); err != nil {
		return nil, err
	}
	doc.setDefaults()
	return &doc, nil
}

// Encode renders the document as YAML.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	return buf.Bytes(), nil
}

// Merge appends the types and extensions of other to d.
func (d *Document) Merge(other *Document) {
	d.Types = append(d.Types, other.Types...)
	d.Extensions = append(d.Extensions, other.Extensions...)
}

// validate checks the document for structural errors. Type references are
// checked when the document is loaded into a registry.
func (d *Document) validate(path string) error {
	if len(d.Types) == 0 && len(d.Extensions) == 0 {
		return fmt.Errorf("%s: no types defined", path)
	}

	seen := make(map[string]bool)
	for i, t := range d.Types {
		if t.Name == "" {
			return fmt.Errorf("%s: types[%d]: name is required", path, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("%s: types[%d]: duplicate type %q", path, i, t.Name)
		}
		seen[t.Name] = true

		kind, ok := typesystem.ParseTypeKind(t.Kind)
		if !ok || kind == typesystem.KindPrimitive {
			return fmt.Errorf("%s: types[%d] (%s): unknown kind %q", path, i, t.Name, t.Kind)
		}
		switch kind {
		case typesystem.KindEnum:
			if len(t.Values) == 0 {
				return fmt.Errorf("%s: types[%d] (%s): enum needs values", path, i, t.Name)
			}
			if len(t.Params) > 0 || len(t.Properties) > 0 || len(t.Methods) > 0 || len(t.Indexers) > 0 {
				return fmt.Errorf("%s: types[%d] (%s): enums only support base and values", path, i, t.Name)
			}
		case typesystem.KindInterface, typesystem.KindStruct:
			if t.Base != "" {
				return fmt.Errorf("%s: types[%d] (%s): %s cannot have a base type", path, i, t.Name, kind)
			}
		}
		if len(t.Values) > 0 && kind != typesystem.KindEnum {
			return fmt.Errorf("%s: types[%d] (%s): values are only valid for enums", path, i, t.Name)
		}

		props := make(map[string]bool)
		for j, p := range t.Properties {
			if p.Name == "" || p.Type == "" {
				return fmt.Errorf("%s: types[%d].properties[%d] (%s): name and type are required", path, i, j, t.Name)
			}
			if props[p.Name] {
				return fmt.Errorf("%s: types[%d].properties[%d] (%s): duplicate property %q", path, i, j, t.Name, p.Name)
			}
			props[p.Name] = true
			if p.Value != nil && !p.Static {
				return fmt.Errorf("%s: types[%d].properties[%d] (%s.%s): value is only valid for static properties", path, i, j, t.Name, p.Name)
			}
		}
		for j, m := range t.Methods {
			if err := m.validate(fmt.Sprintf("%s: types[%d].methods[%d] (%s)", path, i, j, t.Name)); err != nil {
				return err
			}
		}
		for j, ix := range t.Indexers {
			if len(ix.Params) == 0 || ix.Type == "" {
				return fmt.Errorf("%s: types[%d].indexers[%d] (%s): params and type are required", path, i, j, t.Name)
			}
		}
	}

	for i, ext := range d.Extensions {
		if ext.Container == "" {
			return fmt.Errorf("%s: extensions[%d]: container is required", path, i)
		}
		if len(ext.Methods) == 0 {
			return fmt.Errorf("%s: extensions[%d] (%s): no methods defined", path, i, ext.Container)
		}
		for j, m := range ext.Methods {
			prefix := fmt.Sprintf("%s: extensions[%d].methods[%d] (%s)", path, i, j, ext.Container)
			if err := m.validate(prefix); err != nil {
				return err
			}
			if len(m.Params) == 0 {
				return fmt.Errorf("%s: extension method %s needs a receiver parameter", prefix, m.Name)
			}
		}
	}
	return nil
}

func (m *MethodSpec) validate(prefix string) error {
	if m.Name == "" {
		return fmt.Errorf("%s: name is required", prefix)
	}
	for k, p := range m.Params {
		if p.Type == "" {
			return fmt.Errorf("%s: %s params[%d]: type is required", prefix, m.Name, k)
		}
		if p.Variadic && k != len(m.Params)-1 {
			return fmt.Errorf("%s: %s params[%d]: only the last parameter can be variadic", prefix, m.Name, k)
		}
	}
	return nil
}

// setDefaults fills in default values for omitted fields.
func (d *Document) setDefaults() {
	for i := range d.Types {
		t := &d.Types[i]
		if t.Kind == "" {
			t.Kind = typesystem.KindClass.String()
		}
		for j := range t.Methods {
			t.Methods[j].setDefaults()
		}
	}
	for i := range d.Extensions {
		for j := range d.Extensions[i].Methods {
			d.Extensions[i].Methods[j].setDefaults()
		}
	}
}

func (m *MethodSpec) setDefaults() {
	for k := range m.Params {
		if m.Params[k].Name == "" {
			m.Params[k].Name = fmt.Sprintf("arg%d", k)
		}
	}
}
