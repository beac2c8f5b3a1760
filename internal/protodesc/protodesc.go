// Package protodesc exposes protobuf messages and enums as binding types.
//
// Message types are registered under their fully qualified names and their
// runtime values are *dynamic.Message. Fields become properties typed after
// their protobuf kind; repeated fields are arrays and map fields are
// dictionaries.
package protodesc

import (
	"fmt"
	"reflect"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/funvibe/bindexpr/internal/binding"
	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// ParseFiles parses .proto files found in importPaths.
func ParseFiles(importPaths []string, files ...string) ([]*desc.FileDescriptor, error) {
	parser := protoparse.Parser{ImportPaths: importPaths}
	fds, err := parser.ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("parsing proto: %w", err)
	}
	return fds, nil
}

// ParseSource parses a single in-memory .proto source.
func ParseSource(name, src string) (*desc.FileDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{name: src}),
	}
	fds, err := parser.ParseFiles(name)
	if err != nil {
		return nil, fmt.Errorf("parsing proto %s: %w", name, err)
	}
	return fds[0], nil
}

// Register adds binding types for every message and enum declared in files,
// including nested declarations, and returns them by fully qualified name.
func Register(reg *registry.Registry, files ...*desc.FileDescriptor) (map[string]*typesystem.TNamed, error) {
	r := &registrar{
		reg:      reg,
		conv:     binding.NewConverter(reg),
		types:    make(map[string]*typesystem.TNamed),
		messages: make(map[string]*desc.MessageDescriptor),
	}
	for _, fd := range files {
		for _, md := range fd.GetMessageTypes() {
			r.declareMessage(md)
		}
		for _, ed := range fd.GetEnumTypes() {
			r.declareEnum(ed)
		}
	}
	for _, d := range r.enums {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	for name, md := range r.messages {
		if err := reg.Register(r.messageDescriptor(r.types[name], md)); err != nil {
			return nil, err
		}
	}
	reg.AddTypeHook(func(value any) (typesystem.Type, bool) {
		msg, ok := value.(*dynamic.Message)
		if !ok {
			return nil, false
		}
		t, ok := r.types[msg.GetMessageDescriptor().GetFullyQualifiedName()]
		return t, ok
	})
	return r.types, nil
}

type registrar struct {
	reg      *registry.Registry
	conv     *binding.Converter
	types    map[string]*typesystem.TNamed
	messages map[string]*desc.MessageDescriptor
	enums    []*registry.Descriptor
}

func (r *registrar) declareMessage(md *desc.MessageDescriptor) {
	if md.IsMapEntry() {
		return
	}
	name := md.GetFullyQualifiedName()
	r.types[name] = typesystem.NewClass(name, nil)
	r.messages[name] = md
	for _, nested := range md.GetNestedMessageTypes() {
		r.declareMessage(nested)
	}
	for _, ed := range md.GetNestedEnumTypes() {
		r.declareEnum(ed)
	}
}

func (r *registrar) declareEnum(ed *desc.EnumDescriptor) {
	t := typesystem.NewEnum(ed.GetFullyQualifiedName(), typesystem.Int32)
	r.types[t.Name] = t
	d := &registry.Descriptor{Type: t}
	for _, v := range ed.GetValues() {
		number := int(v.GetNumber())
		d.Properties = append(d.Properties, &registry.Property{
			Name:   v.GetName(),
			Type:   t,
			Static: true,
			Get:    func(any) (any, error) { return number, nil },
		})
	}
	r.enums = append(r.enums, d)
}

func (r *registrar) messageDescriptor(t *typesystem.TNamed, md *desc.MessageDescriptor) *registry.Descriptor {
	d := &registry.Descriptor{Type: t}
	for _, fd := range md.GetFields() {
		d.Properties = append(d.Properties, r.fieldProperty(fd))
	}
	return d
}

func (r *registrar) fieldProperty(fd *desc.FieldDescriptor) *registry.Property {
	return &registry.Property{
		Name:  fd.GetName(),
		Type:  r.fieldType(fd),
		Field: true,
		Get: func(target any) (any, error) {
			msg, ok := target.(*dynamic.Message)
			if !ok {
				return nil, fmt.Errorf("%s: target %T is not a message", fd.GetName(), target)
			}
			v, err := msg.TryGetField(fd)
			if err != nil {
				return nil, err
			}
			return fromProto(fd, v), nil
		},
		Set: func(target any, value any) error {
			msg, ok := target.(*dynamic.Message)
			if !ok {
				return fmt.Errorf("%s: target %T is not a message", fd.GetName(), target)
			}
			if value == nil {
				return msg.TryClearField(fd)
			}
			v, err := r.toProto(fd, value)
			if err != nil {
				return fmt.Errorf("%s: %w", fd.GetName(), err)
			}
			return msg.TrySetField(fd, v)
		},
	}
}

// fieldType maps a field to its binding type.
func (r *registrar) fieldType(fd *desc.FieldDescriptor) typesystem.Type {
	if fd.IsMap() {
		return typesystem.Instantiate(typesystem.Dictionary,
			r.singleType(fd.GetMapKeyType()), r.singleType(fd.GetMapValueType()))
	}
	t := r.singleType(fd)
	if fd.IsRepeated() {
		return typesystem.TArray{Elem: t}
	}
	return t
}

func (r *registrar) singleType(fd *desc.FieldDescriptor) typesystem.Type {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		if t, ok := r.types[fd.GetMessageType().GetFullyQualifiedName()]; ok {
			return t
		}
		return typesystem.Object
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		if t, ok := r.types[fd.GetEnumType().GetFullyQualifiedName()]; ok {
			return t
		}
		return typesystem.Int32
	}
	return ScalarType(fd.GetType())
}

// ScalarType maps a scalar protobuf kind to its binding type.
func ScalarType(kind descriptorpb.FieldDescriptorProto_Type) typesystem.Type {
	switch kind {
	case descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_TYPE_SINT32, descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		return typesystem.Int32
	case descriptorpb.FieldDescriptorProto_TYPE_INT64, descriptorpb.FieldDescriptorProto_TYPE_SINT64, descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		return typesystem.Int64
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32, descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		return typesystem.UInt32
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64, descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		return typesystem.UInt64
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return typesystem.Single
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		return typesystem.Double
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return typesystem.Bool
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		return typesystem.String
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return typesystem.TArray{Elem: typesystem.Byte}
	}
	return typesystem.Object
}

// fromProto converts a dynamic message field value to its canonical binding
// representation: int32 and enum numbers become int.
func fromProto(fd *desc.FieldDescriptor, v any) any {
	switch val := v.(type) {
	case int32:
		return int(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromProto(fd, item)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(val))
		for k, item := range val {
			out[fromProto(fd.GetMapKeyType(), k)] = fromProto(fd.GetMapValueType(), item)
		}
		return out
	}
	return v
}

func (r *registrar) toProto(fd *desc.FieldDescriptor, value any) (any, error) {
	if fd.IsMap() {
		m := reflect.ValueOf(value)
		if m.Kind() != reflect.Map {
			return nil, fmt.Errorf("expected a map, got %T", value)
		}
		out := make(map[any]any, m.Len())
		iter := m.MapRange()
		for iter.Next() {
			k, err := r.toProtoSingle(fd.GetMapKeyType(), iter.Key().Interface())
			if err != nil {
				return nil, fmt.Errorf("map key: %w", err)
			}
			v, err := r.toProtoSingle(fd.GetMapValueType(), iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("map value: %w", err)
			}
			out[k] = v
		}
		return out, nil
	}
	if fd.IsRepeated() {
		s := reflect.ValueOf(value)
		if s.Kind() != reflect.Slice && s.Kind() != reflect.Array {
			return nil, fmt.Errorf("expected a list, got %T", value)
		}
		out := make([]any, s.Len())
		for i := range out {
			v, err := r.toProtoSingle(fd, s.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return r.toProtoSingle(fd, value)
}

func (r *registrar) toProtoSingle(fd *desc.FieldDescriptor, value any) (any, error) {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		msg, ok := value.(*dynamic.Message)
		if !ok {
			return nil, fmt.Errorf("expected message %s, got %T", fd.GetMessageType().GetFullyQualifiedName(), value)
		}
		return msg, nil
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		if s, ok := value.(string); ok {
			ev := fd.GetEnumType().FindValueByName(s)
			if ev == nil {
				return nil, fmt.Errorf("%s has no value %q", fd.GetEnumType().GetName(), s)
			}
			return ev.GetNumber(), nil
		}
		v, err := r.conv.Convert(value, typesystem.Int32)
		if err != nil {
			return nil, err
		}
		return int32(v.(int)), nil
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		if b, ok := value.([]byte); ok {
			return b, nil
		}
		return nil, fmt.Errorf("expected bytes, got %T", value)
	}
	v, err := r.conv.Convert(value, ScalarType(fd.GetType()))
	if err != nil {
		return nil, err
	}
	if i, ok := v.(int); ok {
		return int32(i), nil
	}
	return v, nil
}
