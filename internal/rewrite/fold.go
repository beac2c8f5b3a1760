package rewrite

import (
	"cmp"
	"math"

	"github.com/funvibe/bindexpr/internal/ast"
	"github.com/funvibe/bindexpr/internal/config"
)

// ConstantFolder evaluates operators whose operands are all constants.
// Integer operands are computed as int64 and floating operands as float64;
// the result keeps `int` when both operands were `int` and it fits in 32 bits,
// otherwise it becomes a `long`. Folded nodes record
// the source text under config.FoldedMetadataKey.
type ConstantFolder struct{}

func (ConstantFolder) Name() string { return "fold" }

func (ConstantFolder) TraversalType() ast.TraversalType { return ast.Postorder }

func (ConstantFolder) Visit(expr ast.Expression, _ ast.Metadata) ast.Expression {
	var (
		value any
		ok    bool
	)
	switch e := expr.(type) {
	case *ast.UnaryExpression:
		c, isConst := e.Operand().(*ast.ConstantExpression)
		if !isConst {
			return expr
		}
		value, ok = foldUnary(e.Operator(), c.Value())
	case *ast.BinaryExpression:
		l, lok := e.Left().(*ast.ConstantExpression)
		r, rok := e.Right().(*ast.ConstantExpression)
		if !lok || !rok {
			return expr
		}
		if e.Operator() == ast.NullCoalescing {
			if l.Value() == nil {
				return r
			}
			return l
		}
		value, ok = foldBinary(e.Operator(), l.Value(), r.Value())
	case *ast.ConditionExpression:
		c, isConst := e.Condition().(*ast.ConstantExpression)
		if !isConst {
			return expr
		}
		if b, isBool := c.Value().(bool); isBool {
			if b {
				return e.IfTrue()
			}
			return e.IfFalse()
		}
		return expr
	default:
		return expr
	}
	if !ok {
		return expr
	}
	folded := ast.ConstantOf(value)
	return folded.UpdateMetadata(folded.Metadata().With(config.FoldedMetadataKey, expr.String()))
}

func foldUnary(op ast.UnaryOperator, v any) (any, bool) {
	switch op {
	case ast.LogicalNegation:
		if b, ok := v.(bool); ok {
			return !b, true
		}
	case ast.Plus:
		if _, ok := toFloat(v); ok {
			return v, true
		}
	case ast.Minus:
		if i, isInt := v.(int); isInt && i != math.MinInt32 {
			return -i, true
		}
		if i, ok := toInt(v); ok {
			return -i, true
		}
		if f, ok := toFloat(v); ok {
			return -f, true
		}
	case ast.BitwiseNegation:
		if i, isInt := v.(int); isInt {
			return ^i, true
		}
		if i, ok := toInt(v); ok {
			return ^i, true
		}
	}
	return nil, false
}

func foldBinary(op ast.BinaryOperator, l, r any) (any, bool) {
	if lb, ok := l.(bool); ok {
		rb, ok := r.(bool)
		if !ok {
			return nil, false
		}
		return foldBool(op, lb, rb)
	}
	if ls, ok := l.(string); ok {
		rs, ok := r.(string)
		if !ok {
			return nil, false
		}
		return foldString(op, ls, rs)
	}

	li, lint := toInt(l)
	ri, rint := toInt(r)
	if lint && rint {
		result, ok := foldInt(op, li, ri)
		if !ok {
			return nil, false
		}
		_, lnative := l.(int)
		_, rnative := r.(int)
		if n, isInt := result.(int64); isInt && lnative && rnative && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int(n), true
		}
		return result, true
	}

	lf, lfloat := toFloat(l)
	rf, rfloat := toFloat(r)
	if lfloat && rfloat {
		return foldFloat(op, lf, rf)
	}
	return nil, false
}

func foldBool(op ast.BinaryOperator, l, r bool) (any, bool) {
	switch op {
	case ast.ConditionalAnd, ast.LogicalAnd:
		return l && r, true
	case ast.ConditionalOr, ast.LogicalOr:
		return l || r, true
	case ast.LogicalXor:
		return l != r, true
	case ast.Equality:
		return l == r, true
	case ast.NotEqual:
		return l != r, true
	}
	return nil, false
}

func foldString(op ast.BinaryOperator, l, r string) (any, bool) {
	switch op {
	case ast.Addition:
		return l + r, true
	case ast.Equality:
		return l == r, true
	case ast.NotEqual:
		return l != r, true
	}
	return nil, false
}

func foldInt(op ast.BinaryOperator, l, r int64) (any, bool) {
	switch op {
	case ast.Addition:
		return l + r, true
	case ast.Subtraction:
		return l - r, true
	case ast.Multiplication:
		return l * r, true
	case ast.Division:
		if r == 0 {
			return nil, false
		}
		return l / r, true
	case ast.Remainder:
		if r == 0 {
			return nil, false
		}
		return l % r, true
	case ast.LeftShift:
		if r < 0 {
			return nil, false
		}
		return l << uint64(r), true
	case ast.RightShift:
		if r < 0 {
			return nil, false
		}
		return l >> uint64(r), true
	case ast.LogicalAnd:
		return l & r, true
	case ast.LogicalOr:
		return l | r, true
	case ast.LogicalXor:
		return l ^ r, true
	}
	return compare(op, l, r)
}

func foldFloat(op ast.BinaryOperator, l, r float64) (any, bool) {
	switch op {
	case ast.Addition:
		return l + r, true
	case ast.Subtraction:
		return l - r, true
	case ast.Multiplication:
		return l * r, true
	case ast.Division:
		return l / r, true
	case ast.Remainder:
		return math.Mod(l, r), true
	}
	return compare(op, l, r)
}

func compare[T cmp.Ordered](op ast.BinaryOperator, l, r T) (any, bool) {
	switch op {
	case ast.LessThan:
		return l < r, true
	case ast.GreaterThan:
		return l > r, true
	case ast.LessThanOrEqual:
		return l <= r, true
	case ast.GreaterThanOrEqual:
		return l >= r, true
	case ast.Equality:
		return l == r, true
	case ast.NotEqual:
		return l != r, true
	}
	return nil, false
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case uint64:
		return float64(n), true
	case uint:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
