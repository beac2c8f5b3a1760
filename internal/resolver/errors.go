package resolver

import (
	"fmt"
	"strings"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

// MissingMemberError indicates that no member or method of the requested name
// exists on the type. Callers may retry once the object graph changes.
type MissingMemberError struct {
	Type typesystem.Type
	Name string
}

func (e *MissingMemberError) Error() string {
	return fmt.Sprintf("member not found: %s.%s", typeName(e.Type), e.Name)
}

func NewMissingMemberError(t typesystem.Type, name string) *MissingMemberError {
	return &MissingMemberError{Type: t, Name: name}
}

// AmbiguousOverloadError indicates that methods of the requested name exist
// but none could be selected for the arguments.
type AmbiguousOverloadError struct {
	Type typesystem.Type
	Name string
	Args []Argument
}

func (e *AmbiguousOverloadError) Error() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("no overload of %s.%s accepts (%s)", typeName(e.Type), e.Name, strings.Join(args, ", "))
}

func NewAmbiguousOverloadError(t typesystem.Type, name string, args []Argument) *AmbiguousOverloadError {
	return &AmbiguousOverloadError{Type: t, Name: name, Args: args}
}

func typeName(t typesystem.Type) string {
	if t == nil {
		return "null"
	}
	return t.String()
}
