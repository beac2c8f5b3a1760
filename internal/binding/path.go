package binding

import (
	"fmt"
	"strings"

	"github.com/funvibe/bindexpr/internal/ast"
)

// Segment is one step of a member path: a named member, or an indexer when
// Index is non-nil.
type Segment struct {
	Name            string
	Index           []any
	NullConditional bool
}

func (s Segment) IsIndex() bool { return s.Index != nil }

// Path is a chain of member accesses starting at an optional parameter.
type Path struct {
	Root     string
	Segments []Segment
}

func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString(p.Root)
	for i, s := range p.Segments {
		if s.IsIndex() {
			sb.WriteString("[")
			for j, v := range s.Index {
				if j > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(ast.ConstantOf(v).String())
			}
			sb.WriteString("]")
		} else {
			if i > 0 || p.Root != "" {
				sb.WriteString(".")
			}
			sb.WriteString(s.Name)
		}
		if s.NullConditional {
			sb.WriteString("?")
		}
	}
	return sb.String()
}

// MemberPathOf extracts the member path denoted by expr, for example
// item.Tags[0]["k"].Name. Indexer arguments must be constants; method calls,
// operators and lambdas are rejected with a ParseShapeError.
func MemberPathOf(expr ast.Expression) (Path, error) {
	var p Path
	if err := appendPath(&p, expr); err != nil {
		return Path{}, err
	}
	return p, nil
}

func appendPath(p *Path, expr ast.Expression) error {
	switch e := expr.(type) {
	case nil:
		return nil
	case *ast.ParameterExpression:
		p.Root = e.Name()
		return nil
	case *ast.MemberExpression:
		if err := appendPath(p, e.Target()); err != nil {
			return err
		}
		p.Segments = append(p.Segments, Segment{Name: e.Member()})
		return nil
	case *ast.NullConditionalMemberExpression:
		if err := appendPath(p, e.Target()); err != nil {
			return err
		}
		if len(p.Segments) == 0 {
			return NewParseShapeError(expr, "null-conditional access needs a member")
		}
		p.Segments[len(p.Segments)-1].NullConditional = true
		return nil
	case *ast.IndexExpression:
		if err := appendPath(p, e.Target()); err != nil {
			return err
		}
		args := e.Args()
		if len(args) == 0 {
			return NewParseShapeError(expr, "indexer without arguments")
		}
		values := make([]any, len(args))
		for i, a := range args {
			c, ok := a.(*ast.ConstantExpression)
			if !ok {
				return NewParseShapeError(a, "indexer argument is not a constant")
			}
			values[i] = c.Value()
		}
		p.Segments = append(p.Segments, Segment{Index: values})
		return nil
	}
	return NewParseShapeError(expr, fmt.Sprintf("%s is not part of a member path", expr.Kind()))
}

// Leaf rebuilds the expression for segment i with no target, suitable for Bind.
func (p Path) Leaf(i int) ast.Expression {
	s := p.Segments[i]
	if !s.IsIndex() {
		return ast.NewMember(nil, s.Name)
	}
	args := make([]ast.Expression, len(s.Index))
	for j, v := range s.Index {
		args[j] = ast.ConstantOf(v)
	}
	return ast.NewIndex(nil, args...)
}
