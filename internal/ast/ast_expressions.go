package ast

import (
	"fmt"
	"strings"

	"github.com/funvibe/bindexpr/internal/typesystem"
)

// ConstantExpression represents a literal value and its static type, e.g. "text" or 42.
type ConstantExpression struct {
	base
	value any
	typ   typesystem.Type
}

// NewConstant always allocates a new node; use ConstantOf for canonical instances.
func NewConstant(value any, typ typesystem.Type) *ConstantExpression {
	if typ == nil {
		typ = StaticTypeOf(value)
	}
	return &ConstantExpression{value: value, typ: typ}
}

func (e *ConstantExpression) Value() any                          { return e.value }
func (e *ConstantExpression) Type() typesystem.Type               { return e.typ }
func (e *ConstantExpression) Kind() NodeKind                      { return KindConstant }
func (e *ConstantExpression) Children() []Expression              { return nil }
func (e *ConstantExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *ConstantExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *ConstantExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *ConstantExpression) withChildren([]Expression) Expression { return e }
func (e *ConstantExpression) withMetadata(md Metadata) Expression {
	return &ConstantExpression{base: base{md}, value: e.value, typ: e.typ}
}
func (e *ConstantExpression) equalScalars(other Expression) bool {
	o := other.(*ConstantExpression)
	return typesystem.Equal(e.typ, o.typ) && valuesEqual(e.value, o.value)
}
func (e *ConstantExpression) scalarHash() int {
	return combine(hashValue(e.value), hashString(typeName(e.typ)))
}

func (e *ConstantExpression) String() string {
	switch v := e.value.(type) {
	case nil:
		return "null"
	case string:
		return "\"" + v + "\""
	case typesystem.Type:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ParameterExpression represents a named lambda parameter.
type ParameterExpression struct {
	base
	name string
}

func NewParameter(name string) *ParameterExpression {
	return &ParameterExpression{name: name}
}

func (e *ParameterExpression) Name() string                        { return e.name }
func (e *ParameterExpression) Kind() NodeKind                      { return KindParameter }
func (e *ParameterExpression) Children() []Expression              { return nil }
func (e *ParameterExpression) String() string                      { return e.name }
func (e *ParameterExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *ParameterExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *ParameterExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *ParameterExpression) withChildren([]Expression) Expression { return e }
func (e *ParameterExpression) withMetadata(md Metadata) Expression {
	return &ParameterExpression{base: base{md}, name: e.name}
}
func (e *ParameterExpression) equalScalars(other Expression) bool {
	return e.name == other.(*ParameterExpression).name
}
func (e *ParameterExpression) scalarHash() int { return hashString(e.name) }

// MemberExpression represents member access, e.g. target.Name, or a bare Name
// resolved against the binding source when Target is nil.
type MemberExpression struct {
	base
	target Expression
	member string
}

func NewMember(target Expression, member string) *MemberExpression {
	return &MemberExpression{target: target, member: member}
}

func (e *MemberExpression) Target() Expression { return e.target }
func (e *MemberExpression) Member() string     { return e.member }
func (e *MemberExpression) Kind() NodeKind     { return KindMember }
func (e *MemberExpression) Children() []Expression {
	if e.target == nil {
		return nil
	}
	return []Expression{e.target}
}
func (e *MemberExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *MemberExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *MemberExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *MemberExpression) withChildren(children []Expression) Expression {
	return &MemberExpression{base: e.base, target: children[0], member: e.member}
}
func (e *MemberExpression) withMetadata(md Metadata) Expression {
	return &MemberExpression{base: base{md}, target: e.target, member: e.member}
}
func (e *MemberExpression) equalScalars(other Expression) bool {
	o := other.(*MemberExpression)
	return e.member == o.member && (e.target == nil) == (o.target == nil)
}
func (e *MemberExpression) scalarHash() int { return hashString(e.member) }

func (e *MemberExpression) String() string {
	if e.target == nil {
		return e.member
	}
	return e.target.String() + "." + e.member
}

// NullConditionalMemberExpression marks a target whose null value short-circuits
// the rest of the access chain, e.g. the "target?" in target?.Name.
type NullConditionalMemberExpression struct {
	base
	target Expression
}

func NewNullConditionalMember(target Expression) *NullConditionalMemberExpression {
	if target == nil {
		panic("ast: null-conditional member requires a target")
	}
	return &NullConditionalMemberExpression{target: target}
}

func (e *NullConditionalMemberExpression) Target() Expression     { return e.target }
func (e *NullConditionalMemberExpression) Kind() NodeKind         { return KindNullConditionalMember }
func (e *NullConditionalMemberExpression) Children() []Expression { return []Expression{e.target} }
func (e *NullConditionalMemberExpression) String() string         { return e.target.String() + "?" }
func (e *NullConditionalMemberExpression) Equal(o Expression, c Comparer) bool {
	return equalNodes(e, o, c)
}
func (e *NullConditionalMemberExpression) Hash(c Comparer) int { return hashNode(e, c) }
func (e *NullConditionalMemberExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *NullConditionalMemberExpression) withChildren(children []Expression) Expression {
	return &NullConditionalMemberExpression{base: e.base, target: children[0]}
}
func (e *NullConditionalMemberExpression) withMetadata(md Metadata) Expression {
	return &NullConditionalMemberExpression{base: base{md}, target: e.target}
}
func (e *NullConditionalMemberExpression) equalScalars(Expression) bool { return true }
func (e *NullConditionalMemberExpression) scalarHash() int              { return 0 }

// IndexExpression represents indexer access, e.g. items[0] or map["key", 1].
type IndexExpression struct {
	base
	target Expression
	args   []Expression
}

func NewIndex(target Expression, args ...Expression) *IndexExpression {
	return &IndexExpression{target: target, args: cloneExpressions(args)}
}

func (e *IndexExpression) Target() Expression { return e.target }
func (e *IndexExpression) Args() []Expression { return cloneExpressions(e.args) }
func (e *IndexExpression) Kind() NodeKind     { return KindIndex }
func (e *IndexExpression) Children() []Expression {
	return targetAndArgs(e.target, e.args)
}
func (e *IndexExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *IndexExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *IndexExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *IndexExpression) withChildren(children []Expression) Expression {
	target, args := splitTarget(e.target != nil, children)
	return &IndexExpression{base: e.base, target: target, args: args}
}
func (e *IndexExpression) withMetadata(md Metadata) Expression {
	return &IndexExpression{base: base{md}, target: e.target, args: e.args}
}
func (e *IndexExpression) equalScalars(other Expression) bool {
	o := other.(*IndexExpression)
	return (e.target == nil) == (o.target == nil) && len(e.args) == len(o.args)
}
func (e *IndexExpression) scalarHash() int { return len(e.args) }

func (e *IndexExpression) String() string {
	prefix := ""
	if e.target != nil {
		prefix = e.target.String()
	}
	return prefix + "[" + joinExpressions(e.args) + "]"
}

// MethodCallExpression represents a call, e.g. target.Name<T1, T2>(arg1).
// Type arguments are kept as names and resolved during binding.
type MethodCallExpression struct {
	base
	target   Expression
	method   string
	typeArgs []string
	args     []Expression
}

func NewMethodCall(target Expression, method string, typeArgs []string, args ...Expression) *MethodCallExpression {
	var ta []string
	if len(typeArgs) > 0 {
		ta = append([]string(nil), typeArgs...)
	}
	return &MethodCallExpression{target: target, method: method, typeArgs: ta, args: cloneExpressions(args)}
}

func (e *MethodCallExpression) Target() Expression { return e.target }
func (e *MethodCallExpression) Method() string     { return e.method }
func (e *MethodCallExpression) TypeArgs() []string { return append([]string(nil), e.typeArgs...) }
func (e *MethodCallExpression) Args() []Expression { return cloneExpressions(e.args) }
func (e *MethodCallExpression) Kind() NodeKind     { return KindMethodCall }
func (e *MethodCallExpression) Children() []Expression {
	return targetAndArgs(e.target, e.args)
}
func (e *MethodCallExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *MethodCallExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *MethodCallExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *MethodCallExpression) withChildren(children []Expression) Expression {
	target, args := splitTarget(e.target != nil, children)
	return &MethodCallExpression{base: e.base, target: target, method: e.method, typeArgs: e.typeArgs, args: args}
}
func (e *MethodCallExpression) withMetadata(md Metadata) Expression {
	return &MethodCallExpression{base: base{md}, target: e.target, method: e.method, typeArgs: e.typeArgs, args: e.args}
}
func (e *MethodCallExpression) equalScalars(other Expression) bool {
	o := other.(*MethodCallExpression)
	if e.method != o.method || (e.target == nil) != (o.target == nil) || len(e.args) != len(o.args) {
		return false
	}
	if len(e.typeArgs) != len(o.typeArgs) {
		return false
	}
	for i := range e.typeArgs {
		if e.typeArgs[i] != o.typeArgs[i] {
			return false
		}
	}
	return true
}
func (e *MethodCallExpression) scalarHash() int {
	h := hashString(e.method)
	for _, ta := range e.typeArgs {
		h = combine(h, hashString(ta))
	}
	return combine(h, len(e.args))
}

func (e *MethodCallExpression) String() string {
	var sb strings.Builder
	if e.target != nil {
		sb.WriteString(e.target.String())
		sb.WriteString(".")
	}
	sb.WriteString(e.method)
	if len(e.typeArgs) > 0 {
		sb.WriteString("<")
		sb.WriteString(strings.Join(e.typeArgs, ", "))
		sb.WriteString(">")
	}
	sb.WriteString("(")
	sb.WriteString(joinExpressions(e.args))
	sb.WriteString(")")
	return sb.String()
}

// BinaryExpression represents an infix operation, e.g. (a + b).
type BinaryExpression struct {
	base
	op    BinaryOperator
	left  Expression
	right Expression
}

func NewBinary(op BinaryOperator, left, right Expression) *BinaryExpression {
	if left == nil || right == nil {
		panic("ast: binary expression requires both operands")
	}
	return &BinaryExpression{op: op, left: left, right: right}
}

func (e *BinaryExpression) Operator() BinaryOperator            { return e.op }
func (e *BinaryExpression) Left() Expression                    { return e.left }
func (e *BinaryExpression) Right() Expression                   { return e.right }
func (e *BinaryExpression) Kind() NodeKind                      { return KindBinary }
func (e *BinaryExpression) Children() []Expression              { return []Expression{e.left, e.right} }
func (e *BinaryExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *BinaryExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *BinaryExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *BinaryExpression) withChildren(children []Expression) Expression {
	return e.with(children[0], children[1])
}
func (e *BinaryExpression) with(left, right Expression) *BinaryExpression {
	return &BinaryExpression{base: e.base, op: e.op, left: left, right: right}
}
func (e *BinaryExpression) withMetadata(md Metadata) Expression {
	return &BinaryExpression{base: base{md}, op: e.op, left: e.left, right: e.right}
}
func (e *BinaryExpression) equalScalars(other Expression) bool {
	return e.op == other.(*BinaryExpression).op
}
func (e *BinaryExpression) scalarHash() int { return int(e.op) + 1 }

func (e *BinaryExpression) String() string {
	return "(" + e.left.String() + " " + e.op.String() + " " + e.right.String() + ")"
}

// UnaryExpression represents a prefix operation, e.g. !flag or -value.
type UnaryExpression struct {
	base
	op      UnaryOperator
	operand Expression
}

func NewUnary(op UnaryOperator, operand Expression) *UnaryExpression {
	if operand == nil {
		panic("ast: unary expression requires an operand")
	}
	return &UnaryExpression{op: op, operand: operand}
}

func (e *UnaryExpression) Operator() UnaryOperator             { return e.op }
func (e *UnaryExpression) Operand() Expression                 { return e.operand }
func (e *UnaryExpression) Kind() NodeKind                      { return KindUnary }
func (e *UnaryExpression) Children() []Expression              { return []Expression{e.operand} }
func (e *UnaryExpression) String() string                      { return e.op.String() + e.operand.String() }
func (e *UnaryExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *UnaryExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *UnaryExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *UnaryExpression) withChildren(children []Expression) Expression {
	return &UnaryExpression{base: e.base, op: e.op, operand: children[0]}
}
func (e *UnaryExpression) withMetadata(md Metadata) Expression {
	return &UnaryExpression{base: base{md}, op: e.op, operand: e.operand}
}
func (e *UnaryExpression) equalScalars(other Expression) bool {
	return e.op == other.(*UnaryExpression).op
}
func (e *UnaryExpression) scalarHash() int { return int(e.op) + 1 }

// ConditionExpression represents the ternary condition ? ifTrue : ifFalse.
type ConditionExpression struct {
	base
	condition Expression
	ifTrue    Expression
	ifFalse   Expression
}

func NewCondition(condition, ifTrue, ifFalse Expression) *ConditionExpression {
	if condition == nil || ifTrue == nil || ifFalse == nil {
		panic("ast: condition expression requires all three operands")
	}
	return &ConditionExpression{condition: condition, ifTrue: ifTrue, ifFalse: ifFalse}
}

func (e *ConditionExpression) Condition() Expression { return e.condition }
func (e *ConditionExpression) IfTrue() Expression    { return e.ifTrue }
func (e *ConditionExpression) IfFalse() Expression   { return e.ifFalse }
func (e *ConditionExpression) Kind() NodeKind        { return KindCondition }
func (e *ConditionExpression) Children() []Expression {
	return []Expression{e.condition, e.ifTrue, e.ifFalse}
}
func (e *ConditionExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *ConditionExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *ConditionExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *ConditionExpression) withChildren(children []Expression) Expression {
	return &ConditionExpression{base: e.base, condition: children[0], ifTrue: children[1], ifFalse: children[2]}
}
func (e *ConditionExpression) withMetadata(md Metadata) Expression {
	return &ConditionExpression{base: base{md}, condition: e.condition, ifTrue: e.ifTrue, ifFalse: e.ifFalse}
}
func (e *ConditionExpression) equalScalars(Expression) bool { return true }
func (e *ConditionExpression) scalarHash() int              { return 0 }

func (e *ConditionExpression) String() string {
	return "if (" + e.condition.String() + ") {" + e.ifTrue.String() + "} else {" + e.ifFalse.String() + "}"
}

// LambdaExpression represents a single-expression lambda, e.g. (x, y) => x + y.
type LambdaExpression struct {
	base
	body       Expression
	parameters []*ParameterExpression
}

// NewLambda builds a lambda, rejecting parameter lists that repeat a name.
func NewLambda(body Expression, parameters ...*ParameterExpression) (*LambdaExpression, error) {
	if body == nil {
		panic("ast: lambda expression requires a body")
	}
	seen := make(map[string]bool, len(parameters))
	for _, p := range parameters {
		if seen[p.name] {
			return nil, NewDuplicateLambdaParameterError(p.name)
		}
		seen[p.name] = true
	}
	return &LambdaExpression{body: body, parameters: append([]*ParameterExpression(nil), parameters...)}, nil
}

func (e *LambdaExpression) Body() Expression { return e.body }
func (e *LambdaExpression) Parameters() []*ParameterExpression {
	return append([]*ParameterExpression(nil), e.parameters...)
}
func (e *LambdaExpression) Arity() int     { return len(e.parameters) }
func (e *LambdaExpression) Kind() NodeKind { return KindLambda }
func (e *LambdaExpression) Children() []Expression {
	children := make([]Expression, 0, len(e.parameters)+1)
	children = append(children, e.body)
	for _, p := range e.parameters {
		children = append(children, p)
	}
	return children
}
func (e *LambdaExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *LambdaExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *LambdaExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *LambdaExpression) withChildren(children []Expression) Expression {
	params := make([]*ParameterExpression, len(children)-1)
	for i, c := range children[1:] {
		p, ok := c.(*ParameterExpression)
		if !ok {
			panic(fmt.Sprintf("ast: lambda parameter rewritten to %s", c.Kind()))
		}
		params[i] = p
	}
	return &LambdaExpression{base: e.base, body: children[0], parameters: params}
}
func (e *LambdaExpression) withMetadata(md Metadata) Expression {
	return &LambdaExpression{base: base{md}, body: e.body, parameters: e.parameters}
}
func (e *LambdaExpression) equalScalars(other Expression) bool {
	return len(e.parameters) == len(other.(*LambdaExpression).parameters)
}
func (e *LambdaExpression) scalarHash() int { return len(e.parameters) }

func (e *LambdaExpression) String() string {
	names := make([]string, len(e.parameters))
	for i, p := range e.parameters {
		names[i] = p.String()
	}
	return "(" + strings.Join(names, ", ") + ") => " + e.body.String()
}

// TypeAccessExpression references a resolved static type, used as the target of
// static member access.
type TypeAccessExpression struct {
	base
	typ typesystem.Type
}

func NewTypeAccess(typ typesystem.Type) *TypeAccessExpression {
	if typ == nil {
		panic("ast: type access requires a type")
	}
	return &TypeAccessExpression{typ: typ}
}

func (e *TypeAccessExpression) Type() typesystem.Type               { return e.typ }
func (e *TypeAccessExpression) Kind() NodeKind                      { return KindTypeAccess }
func (e *TypeAccessExpression) Children() []Expression              { return nil }
func (e *TypeAccessExpression) String() string                      { return e.typ.String() }
func (e *TypeAccessExpression) Equal(o Expression, c Comparer) bool { return equalNodes(e, o, c) }
func (e *TypeAccessExpression) Hash(c Comparer) int                 { return hashNode(e, c) }
func (e *TypeAccessExpression) UpdateMetadata(md Metadata) Expression {
	return UpdateMetadataWith(e, md, nil)
}
func (e *TypeAccessExpression) withChildren([]Expression) Expression { return e }
func (e *TypeAccessExpression) withMetadata(md Metadata) Expression {
	return &TypeAccessExpression{base: base{md}, typ: e.typ}
}
func (e *TypeAccessExpression) equalScalars(other Expression) bool {
	return typesystem.Equal(e.typ, other.(*TypeAccessExpression).typ)
}
func (e *TypeAccessExpression) scalarHash() int { return hashString(e.typ.String()) }

func targetAndArgs(target Expression, args []Expression) []Expression {
	children := make([]Expression, 0, len(args)+1)
	if target != nil {
		children = append(children, target)
	}
	return append(children, args...)
}

func splitTarget(hasTarget bool, children []Expression) (Expression, []Expression) {
	if hasTarget {
		return children[0], cloneExpressions(children[1:])
	}
	return nil, cloneExpressions(children)
}

func typeName(t typesystem.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}
