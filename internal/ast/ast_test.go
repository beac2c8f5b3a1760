package ast

import (
	"errors"
	"testing"

	"github.com/funvibe/bindexpr/internal/config"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

func mustLambda(t *testing.T, body Expression, params ...*ParameterExpression) *LambdaExpression {
	t.Helper()
	l, err := NewLambda(body, params...)
	if err != nil {
		t.Fatalf("NewLambda: %v", err)
	}
	return l
}

// sampleTrees returns one tree per node variant, each with at least one child
// where the variant allows it.
func sampleTrees(t *testing.T) []Expression {
	x := NewParameter("x")
	target := NewMember(nil, "Items")
	return []Expression{
		ConstantOf(5),
		x,
		NewMember(target, "Count"),
		NewMember(nil, "Name"),
		NewNullConditionalMember(target),
		NewIndex(target, ConstantOf(0), ConstantOf("k")),
		NewMethodCall(target, "Where", []string{"int"}, mustLambda(t, NewBinary(GreaterThan, x, ConstantOf(1)), x)),
		NewMethodCall(nil, "Now", nil),
		NewBinary(Addition, ConstantOf(1), NewBinary(Multiplication, ConstantOf(2), ConstantOf(3))),
		NewUnary(LogicalNegation, NewMember(nil, "IsBusy")),
		NewCondition(TrueConstant, ConstantOf("a"), NullConstant),
		mustLambda(t, NewMember(x, "Id"), x),
		NewTypeAccess(typesystem.String),
	}
}

func TestRendering(t *testing.T) {
	target := NewMember(nil, "target")
	x := NewParameter("x")
	y := NewParameter("y")
	tests := []struct {
		expr Expression
		want string
	}{
		{NewBinary(Equality, ConstantOf("1"), ConstantOf("2")), `("1" == "2")`},
		{NewMethodCall(target, "Name", []string{"T1", "T2"}, NewMember(nil, "arg1")), "target.Name<T1, T2>(arg1)"},
		{NewMethodCall(nil, "Name", nil), "Name()"},
		{NewNullConditionalMember(target), "target?"},
		{NewMember(NewNullConditionalMember(target), "Value"), "target?.Value"},
		{NewIndex(target, ConstantOf(0), ConstantOf("k")), `target[0, "k"]`},
		{NewIndex(nil, ConstantOf(1)), "[1]"},
		{NewUnary(Minus, ConstantOf(3)), "-3"},
		{NewCondition(TrueConstant, ConstantOf(1), NullConstant), "if (true) {1} else {null}"},
		{mustLambda(t, NewBinary(Addition, x, y), x, y), "(x, y) => (x + y)"},
		{NewTypeAccess(typesystem.Int32), "int"},
		{ConstantOf(typesystem.String), "string"},
		{NewBinary(NullCoalescing, NewMember(nil, "A"), ConstantOf(2.5)), "(A ?? 2.5)"},
	}
	for _, tt := range tests {
		if got := tt.expr.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

type recordingVisitor struct {
	order   TraversalType
	visited []Expression
}

func (v *recordingVisitor) TraversalType() TraversalType { return v.order }

func (v *recordingVisitor) Visit(expr Expression, _ Metadata) Expression {
	v.visited = append(v.visited, expr)
	return expr
}

func TestTraversalOrder(t *testing.T) {
	c3, c4, c5 := NewConstant(3, nil), NewConstant(4, nil), NewConstant(5, nil)
	left := NewBinary(Equality, c4, c5)
	root := NewBinary(Addition, left, c3)

	tests := []struct {
		order TraversalType
		want  []Expression
	}{
		{Preorder, []Expression{root, left, c4, c5, c3}},
		{Inorder, []Expression{c4, left, c5, root, c3}},
		{Postorder, []Expression{c4, c5, left, c3, root}},
	}
	for _, tt := range tests {
		v := &recordingVisitor{order: tt.order}
		if got := Accept(root, v, Metadata{}); got != Expression(root) {
			t.Errorf("%s: Accept returned a new node", tt.order)
		}
		if len(v.visited) != len(tt.want) {
			t.Fatalf("%s: visited %d nodes, want %d", tt.order, len(v.visited), len(tt.want))
		}
		for i := range tt.want {
			if v.visited[i] != tt.want[i] {
				t.Errorf("%s: visit #%d = %s, want %s", tt.order, i, v.visited[i], tt.want[i])
			}
		}
	}
}

func TestAcceptPreservesIdentity(t *testing.T) {
	for _, order := range []TraversalType{Preorder, Inorder, Postorder} {
		for _, tree := range sampleTrees(t) {
			v := &recordingVisitor{order: order}
			if got := Accept(tree, v, Metadata{}); got != tree {
				t.Errorf("%s: no-op rewrite of %s returned a new node", order, tree)
			}
		}
	}
}

func TestAcceptNilResultMeansUnchanged(t *testing.T) {
	tree := NewMember(NewMember(nil, "A"), "B")
	v := VisitorFunc{Order: Postorder, Func: func(Expression, Metadata) Expression { return nil }}
	if got := Accept(tree, v, Metadata{}); got != Expression(tree) {
		t.Errorf("got %s, want the original node", got)
	}
}

func TestRewritePropagation(t *testing.T) {
	target := NewParameter("old")
	sibling := NewMember(nil, "Sibling")
	inner := NewMember(target, "Inner")
	call := NewMethodCall(inner, "Run", nil, sibling)
	root := NewBinary(Addition, call, ConstantOf(1))

	replacement := NewParameter("new")
	for _, order := range []TraversalType{Preorder, Inorder, Postorder} {
		v := VisitorFunc{Order: order, Func: func(e Expression, _ Metadata) Expression {
			if e == Expression(target) {
				return replacement
			}
			return e
		}}
		got, ok := Accept(root, v, Metadata{}).(*BinaryExpression)
		if !ok || got == root {
			t.Fatalf("%s: root was not rebuilt", order)
		}
		if got.Right() != root.Right() {
			t.Errorf("%s: untouched right operand was copied", order)
		}
		newCall := got.Left().(*MethodCallExpression)
		if newCall == call {
			t.Fatalf("%s: call was not rebuilt", order)
		}
		if newCall.Args()[0] != Expression(sibling) {
			t.Errorf("%s: untouched argument was copied", order)
		}
		newInner := newCall.Target().(*MemberExpression)
		if newInner == inner || newInner.Target() != Expression(replacement) {
			t.Errorf("%s: member target not replaced, got %s", order, newInner)
		}
		if got.String() != "(new.Inner.Run(Sibling) + 1)" {
			t.Errorf("%s: got %s", order, got)
		}
	}
}

func TestPreorderReplacementIsNotDescended(t *testing.T) {
	root := NewMember(NewMember(nil, "A"), "B")
	replacement := NewMember(NewMember(nil, "C"), "D")
	var visits int
	v := VisitorFunc{Order: Preorder, Func: func(e Expression, _ Metadata) Expression {
		visits++
		if e == Expression(root) {
			return replacement
		}
		return e
	}}
	if got := Accept(root, v, Metadata{}); got != Expression(replacement) {
		t.Errorf("got %s, want the replacement", got)
	}
	if visits != 1 {
		t.Errorf("visits = %d, want 1", visits)
	}
}

func TestRewriteKeepsMetadata(t *testing.T) {
	md := NewMetadata(map[string]any{"source": "xaml"})
	leaf := NewMember(nil, "A")
	root := NewUnary(Minus, leaf).UpdateMetadata(md)
	v := VisitorFunc{Order: Postorder, Func: func(e Expression, _ Metadata) Expression {
		if e == Expression(leaf) {
			return NewMember(nil, "B")
		}
		return e
	}}
	got := Accept(root, v, Metadata{})
	if got == root {
		t.Fatal("expected a rebuilt node")
	}
	if !got.Metadata().Same(md) {
		t.Errorf("metadata = %s, want %s", got.Metadata(), md)
	}
}

type countingComparer struct {
	equals, hashes int
}

func (c *countingComparer) Equal(x, y Expression) (bool, bool) {
	c.equals++
	return false, false
}

func (c *countingComparer) Hash(e Expression) (int, bool) {
	c.hashes++
	return 0, false
}

func TestEqualityAndHash(t *testing.T) {
	first := sampleTrees(t)
	second := sampleTrees(t)
	for i := range first {
		if !first[i].Equal(second[i], nil) {
			t.Errorf("%s: independently built trees are not equal", first[i])
		}
		if first[i].Hash(nil) != second[i].Hash(nil) {
			t.Errorf("%s: hashes differ", first[i])
		}
		cmp := &countingComparer{}
		if !first[i].Equal(second[i], cmp) || first[i].Hash(cmp) != second[i].Hash(cmp) {
			t.Errorf("%s: comparer changed the result", first[i])
		}
		for j := range second {
			if i != j && first[i].Equal(second[j], nil) {
				t.Errorf("%s equals %s", first[i], second[j])
			}
		}
	}
}

func TestComparerCalledOncePerChild(t *testing.T) {
	build := func() Expression {
		return NewCondition(NewMember(nil, "Flag"), ConstantOf(1), NewBinary(Addition, ConstantOf(2), ConstantOf(3)))
	}
	x, y := build(), build()

	cmp := &countingComparer{}
	if !x.Equal(y, cmp) {
		t.Fatal("trees should be equal")
	}
	// Three children of the condition plus two operands of the nested binary.
	if cmp.equals != 5 {
		t.Errorf("Equal invoked comparer %d times, want 5", cmp.equals)
	}

	cmp = &countingComparer{}
	x.Hash(cmp)
	if cmp.hashes != 5 {
		t.Errorf("Hash invoked comparer %d times, want 5", cmp.hashes)
	}
}

func TestComparerShortCircuitsOnScalars(t *testing.T) {
	x := NewBinary(Addition, ConstantOf(1), ConstantOf(2))
	y := NewBinary(Subtraction, ConstantOf(1), ConstantOf(2))
	cmp := &countingComparer{}
	if x.Equal(y, cmp) {
		t.Error("different operators compared equal")
	}
	if cmp.equals != 0 {
		t.Errorf("comparer invoked %d times before scalar mismatch was detected", cmp.equals)
	}
}

func TestComparerOverridesChildren(t *testing.T) {
	x := NewMember(NewMember(nil, "A"), "Value")
	y := NewMember(NewMember(nil, "B"), "Value")
	if x.Equal(y, nil) {
		t.Fatal("structurally different trees compared equal")
	}
	always := ComparerFuncs{
		EqualFunc: func(Expression, Expression) (bool, bool) { return true, true },
		HashFunc:  func(Expression) (int, bool) { return 7, true },
	}
	if !x.Equal(y, always) {
		t.Error("comparer result was ignored by Equal")
	}
	if x.Hash(always) != y.Hash(always) {
		t.Error("comparer result was ignored by Hash")
	}
}

func TestMetadataParticipatesInEquality(t *testing.T) {
	x := NewMember(nil, "A")
	y := NewMember(nil, "A")
	md := NewMetadata(map[string]any{"k": 1})

	if !x.Equal(y.UpdateMetadata(Metadata{}), nil) {
		t.Error("empty metadata changed equality")
	}
	withMD := x.UpdateMetadata(md)
	if withMD.Equal(y, nil) || y.Equal(withMD, nil) {
		t.Error("metadata presence did not flip equality")
	}
	if !withMD.Equal(y.UpdateMetadata(md), nil) {
		t.Error("same metadata instance should compare equal")
	}
	if withMD.Hash(nil) != y.UpdateMetadata(md).Hash(nil) {
		t.Error("hash differs for equal nodes")
	}
	other := NewMetadata(map[string]any{"k": 1})
	if withMD.Equal(y.UpdateMetadata(other), nil) {
		t.Error("distinct non-empty metadata maps should compare unequal")
	}
}

func TestUpdateMetadataCopyOnWrite(t *testing.T) {
	md := NewMetadata(map[string]any{"k": "v"})
	for _, tree := range sampleTrees(t) {
		if got := tree.UpdateMetadata(Metadata{}); got != tree {
			t.Errorf("%s: empty update allocated a new node", tree)
		}
		updated := tree.UpdateMetadata(md)
		if updated == tree {
			t.Fatalf("%s: update returned the receiver", tree)
		}
		if updated.Kind() != tree.Kind() || updated.String() != tree.String() {
			t.Errorf("%s: update changed the structure to %s", tree, updated)
		}
		if again := updated.UpdateMetadata(md); again != updated {
			t.Errorf("%s: same metadata allocated a new node", tree)
		}
	}

	byValue := func(a, b Metadata) bool { return a.Len() == b.Len() }
	node := NewMember(nil, "A").UpdateMetadata(md)
	if got := UpdateMetadataWith(node, NewMetadata(map[string]any{"x": 1}), byValue); got != node {
		t.Error("custom equality was not used")
	}
}

func TestMetadataOperations(t *testing.T) {
	src := map[string]any{"b": 2, "a": 1}
	md := NewMetadata(src)
	src["c"] = 3
	if md.Len() != 2 {
		t.Errorf("Len() = %d, want 2", md.Len())
	}
	if keys := md.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v", keys)
	}
	with := md.With("c", 3)
	if _, ok := md.Get("c"); ok {
		t.Error("With mutated the receiver")
	}
	if v, _ := with.Get("c"); v != 3 {
		t.Errorf("Get(c) = %v, want 3", v)
	}
	if md.Without("missing").m != md.m {
		t.Error("Without of an absent key should return the receiver")
	}
	if !with.Without("a").Without("b").Without("c").IsEmpty() {
		t.Error("removing every key should leave an empty map")
	}
	if md.String() != "{a, b}" {
		t.Errorf("String() = %q", md.String())
	}
}

func TestCanonicalConstants(t *testing.T) {
	if ConstantOf(true) != TrueConstant || ConstantOf(true) != ConstantOf(true) {
		t.Error("true constant is not canonical")
	}
	if ConstantOf(false) != FalseConstant || ConstantOf(nil) != NullConstant || ConstantOf("") != EmptyStringConstant {
		t.Error("false/null/empty constants are not canonical")
	}
	if ConstantOf(5) != ConstantOf(5) {
		t.Error("cached int constant is not canonical")
	}
	if ConstantOf(config.MinCachedInt) != ConstantOf(config.MinCachedInt) || ConstantOf(config.MaxCachedInt) != ConstantOf(config.MaxCachedInt) {
		t.Error("cache bounds are not canonical")
	}
	big1, big2 := ConstantOf(config.MaxCachedInt+1), ConstantOf(config.MaxCachedInt+1)
	if big1 == big2 {
		t.Error("out-of-range ints should not be cached")
	}
	if !big1.Equal(big2, nil) || big1.Hash(nil) != big2.Hash(nil) {
		t.Error("out-of-range ints should still be equal")
	}
	if ConstantOf(typesystem.Int32) != ConstantOf(typesystem.Int32) {
		t.Error("builtin type constant is not canonical")
	}
	if ConstantOf("text") == ConstantOf("text") {
		t.Error("non-empty strings should not be cached")
	}
	if c := ConstantOf(5); c.Type() != typesystem.Int32 || c.Value() != 5 {
		t.Errorf("ConstantOf(5) = %v of %s", c.Value(), c.Type())
	}
	if c := ConstantOf(typesystem.String); c.Type() != typesystem.TypeToken {
		t.Errorf("type constant has static type %s", c.Type())
	}
}

func TestStaticTypeOf(t *testing.T) {
	tests := []struct {
		value any
		want  typesystem.Type
	}{
		{true, typesystem.Bool},
		{int8(1), typesystem.SByte},
		{uint8(1), typesystem.Byte},
		{1, typesystem.Int32},
		{int64(1), typesystem.Int64},
		{float32(1), typesystem.Single},
		{1.5, typesystem.Double},
		{"s", typesystem.String},
		{struct{}{}, typesystem.Object},
	}
	for _, tt := range tests {
		if got := StaticTypeOf(tt.value); got != tt.want {
			t.Errorf("StaticTypeOf(%#v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestDuplicateLambdaParameter(t *testing.T) {
	_, err := NewLambda(ConstantOf(1), NewParameter("x"), NewParameter("x"))
	var dup *DuplicateLambdaParameterError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateLambdaParameterError", err)
	}
	if dup.Name != "x" {
		t.Errorf("Name = %q, want x", dup.Name)
	}
}

func TestLambdaParameterMustStayParameter(t *testing.T) {
	x := NewParameter("x")
	lambda := mustLambda(t, x, x)
	v := VisitorFunc{Order: Postorder, Func: func(e Expression, _ Metadata) Expression {
		if e == Expression(x) {
			return ConstantOf(1)
		}
		return e
	}}
	defer func() {
		if recover() == nil {
			t.Error("expected a panic when a parameter is replaced by a constant")
		}
	}()
	Accept(lambda, v, Metadata{})
}

func TestInspect(t *testing.T) {
	root := NewBinary(Addition, NewMember(NewMember(nil, "A"), "B"), ConstantOf(1))
	var kinds []NodeKind
	Inspect(root, func(e Expression) bool {
		kinds = append(kinds, e.Kind())
		return e.Kind() != KindMember
	})
	want := []NodeKind{KindBinary, KindMember, KindConstant}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestParseOperators(t *testing.T) {
	for _, tt := range []struct {
		text string
		want BinaryOperator
	}{{"&&", ConditionalAnd}, {"and", ConditionalAnd}, {"or", ConditionalOr}, {"mod", Remainder}, {"??", NullCoalescing}} {
		if got, ok := ParseBinaryOperator(tt.text); !ok || got != tt.want {
			t.Errorf("ParseBinaryOperator(%q) = %s, %v", tt.text, got, ok)
		}
	}
	if _, ok := ParseBinaryOperator("<>"); ok {
		t.Error("unknown operator parsed")
	}
	if Multiplication.Priority() <= Addition.Priority() || ConditionalOr.Priority() <= NullCoalescing.Priority() {
		t.Error("operator priorities out of order")
	}
	if op, ok := ParseUnaryOperator("$$"); !ok || op != StaticExpression {
		t.Errorf("ParseUnaryOperator($$) = %s, %v", op, ok)
	}
}
