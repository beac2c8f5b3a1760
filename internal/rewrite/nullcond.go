package rewrite

import "github.com/funvibe/bindexpr/internal/ast"

// NullConditionalNormalizer collapses repeated null-conditional markers
// (target??) and drops the marker on constants that are never null.
type NullConditionalNormalizer struct{}

func (NullConditionalNormalizer) Name() string { return "null-conditional" }

func (NullConditionalNormalizer) TraversalType() ast.TraversalType { return ast.Postorder }

func (NullConditionalNormalizer) Visit(expr ast.Expression, _ ast.Metadata) ast.Expression {
	nc, ok := expr.(*ast.NullConditionalMemberExpression)
	if !ok {
		return expr
	}
	switch target := nc.Target().(type) {
	case *ast.NullConditionalMemberExpression:
		return target
	case *ast.ConstantExpression:
		if target.Value() != nil {
			return target
		}
	}
	return expr
}
