package registry

import (
	"fmt"
	"sync"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

// Record is the runtime value of a descriptor-only type, such as a type
// declared in a schema document. Fields are keyed by property name.
type Record struct {
	Type *typesystem.TNamed

	mu     sync.RWMutex
	fields map[string]any
}

// NewRecord creates a record holding a copy of fields.
func NewRecord(t *typesystem.TNamed, fields map[string]any) *Record {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Record{Type: t, fields: copied}
}

func (r *Record) BindingType() typesystem.Type { return r.Type }

// Field returns the value stored under name.
func (r *Record) Field(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.fields[name]
	return v, ok
}

// SetField stores value under name.
func (r *Record) SetField(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[name] = value
}

func (r *Record) String() string {
	return fmt.Sprintf("%s%v", r.Type.Name, r.fields)
}

// RecordProperty describes a record field. Missing fields read as nil.
func RecordProperty(name string, t typesystem.Type, writable bool) *Property {
	p := &Property{
		Name: name,
		Type: t,
		Get: func(target any) (any, error) {
			rec, ok := target.(*Record)
			if !ok {
				return nil, fmt.Errorf("%s: target %T is not a record", name, target)
			}
			v, _ := rec.Field(name)
			return v, nil
		},
	}
	if writable {
		p.Set = func(target any, value any) error {
			rec, ok := target.(*Record)
			if !ok {
				return fmt.Errorf("%s: target %T is not a record", name, target)
			}
			rec.SetField(name, value)
			return nil
		}
	}
	return p
}
