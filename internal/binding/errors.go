package binding

import (
	"fmt"

	"github.com/funvibe/bindexpr/internal/ast"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

// ParseShapeError reports an expression that cannot be used where a member
// path or a bindable leaf is expected.
type ParseShapeError struct {
	Expr   ast.Expression
	Reason string
}

func (e *ParseShapeError) Error() string {
	if e.Expr == nil {
		return "unsupported expression: " + e.Reason
	}
	return fmt.Sprintf("unsupported expression %s: %s", e.Expr, e.Reason)
}

func NewParseShapeError(expr ast.Expression, reason string) *ParseShapeError {
	return &ParseShapeError{Expr: expr, Reason: reason}
}

// InvalidConversionError reports a value that cannot be coerced to the
// declared type of a member or parameter.
type InvalidConversionError struct {
	Value  any
	Target typesystem.Type
}

func (e *InvalidConversionError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("cannot convert null to %s", e.Target)
	}
	return fmt.Sprintf("cannot convert %v (%T) to %s", e.Value, e.Value, e.Target)
}

func NewInvalidConversionError(value any, target typesystem.Type) *InvalidConversionError {
	return &InvalidConversionError{Value: value, Target: target}
}
