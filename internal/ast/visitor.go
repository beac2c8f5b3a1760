package ast

// TraversalType declares when a visitor sees a node relative to its children.
type TraversalType int

const (
	// Preorder visits the node, then its original children. A replaced node
	// is returned as is; its subtree is not visited.
	Preorder TraversalType = iota
	// Inorder visits left, self, right for binary nodes and behaves like
	// Postorder for every other node.
	Inorder
	// Postorder visits the children first, then the node carrying the
	// rewritten children.
	Postorder
)

func (t TraversalType) String() string {
	switch t {
	case Preorder:
		return "preorder"
	case Inorder:
		return "inorder"
	case Postorder:
		return "postorder"
	}
	return "unknown"
}

// Visitor rewrites nodes. Visit returns its input (or nil) to leave the node
// unchanged; any other result replaces it.
type Visitor interface {
	TraversalType() TraversalType
	Visit(expr Expression, ctx Metadata) Expression
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc struct {
	Order TraversalType
	Func  func(expr Expression, ctx Metadata) Expression
}

func (v VisitorFunc) TraversalType() TraversalType { return v.Order }

func (v VisitorFunc) Visit(expr Expression, ctx Metadata) Expression {
	return v.Func(expr, ctx)
}

// Accept applies v to expr and its subtree. When nothing changes the original
// expr is returned, so callers can detect rewrites with ==.
func Accept(expr Expression, v Visitor, ctx Metadata) Expression {
	if expr == nil {
		return nil
	}
	switch v.TraversalType() {
	case Preorder:
		if result := visit(expr, v, ctx); result != expr {
			return result
		}
		return acceptChildren(expr, v, ctx)
	case Inorder:
		if b, ok := expr.(*BinaryExpression); ok {
			return acceptInorder(b, v, ctx)
		}
	}
	return visit(acceptChildren(expr, v, ctx), v, ctx)
}

func acceptInorder(b *BinaryExpression, v Visitor, ctx Metadata) Expression {
	node := b
	if left := Accept(b.left, v, ctx); left != b.left {
		node = node.with(left, node.right)
	}
	result := visit(node, v, ctx)
	if result != Expression(node) {
		return result
	}
	if right := Accept(node.right, v, ctx); right != node.right {
		node = node.with(node.left, right)
	}
	return node
}

func acceptChildren(expr Expression, v Visitor, ctx Metadata) Expression {
	children := expr.Children()
	var updated []Expression
	for i, child := range children {
		result := Accept(child, v, ctx)
		if result == child {
			continue
		}
		if updated == nil {
			updated = make([]Expression, len(children))
			copy(updated, children)
		}
		updated[i] = result
	}
	if updated == nil {
		return expr
	}
	return expr.withChildren(updated)
}

func visit(expr Expression, v Visitor, ctx Metadata) Expression {
	if result := v.Visit(expr, ctx); result != nil {
		return result
	}
	return expr
}

// Inspect walks the tree in preorder, calling fn for every node. Children of
// a node are skipped when fn returns false.
func Inspect(expr Expression, fn func(Expression) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	for _, child := range expr.Children() {
		Inspect(child, fn)
	}
}
