package ast

// BinaryOperator is the token of a binary expression.
type BinaryOperator int

const (
	Multiplication BinaryOperator = iota
	Division
	Remainder
	Addition
	Subtraction
	LeftShift
	RightShift
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	Equality
	NotEqual
	LogicalAnd
	LogicalXor
	LogicalOr
	ConditionalAnd
	ConditionalOr
	NullCoalescing
)

type operatorInfo struct {
	text     string
	priority int
	aliases  []string
}

var binaryOperators = [...]operatorInfo{
	Multiplication:     {"*", 900, nil},
	Division:           {"/", 900, nil},
	Remainder:          {"%", 900, []string{"mod"}},
	Addition:           {"+", 800, nil},
	Subtraction:        {"-", 800, nil},
	LeftShift:          {"<<", 700, nil},
	RightShift:         {">>", 700, nil},
	LessThan:           {"<", 600, nil},
	GreaterThan:        {">", 600, nil},
	LessThanOrEqual:    {"<=", 600, nil},
	GreaterThanOrEqual: {">=", 600, nil},
	Equality:           {"==", 500, nil},
	NotEqual:           {"!=", 500, nil},
	LogicalAnd:         {"&", 400, nil},
	LogicalXor:         {"^", 390, nil},
	LogicalOr:          {"|", 380, nil},
	ConditionalAnd:     {"&&", 300, []string{"and"}},
	ConditionalOr:      {"||", 290, []string{"or"}},
	NullCoalescing:     {"??", 280, nil},
}

func (op BinaryOperator) String() string {
	if op >= 0 && int(op) < len(binaryOperators) {
		return binaryOperators[op].text
	}
	return "?"
}

// Priority returns the binding strength; higher binds tighter.
func (op BinaryOperator) Priority() int {
	if op >= 0 && int(op) < len(binaryOperators) {
		return binaryOperators[op].priority
	}
	return 0
}

// IsComparison reports whether the operator yields a boolean from two operands of the same kind.
func (op BinaryOperator) IsComparison() bool {
	return op >= LessThan && op <= NotEqual
}

// ParseBinaryOperator looks up an operator by its token or alias.
func ParseBinaryOperator(text string) (BinaryOperator, bool) {
	for i, info := range binaryOperators {
		if info.text == text {
			return BinaryOperator(i), true
		}
		for _, alias := range info.aliases {
			if alias == text {
				return BinaryOperator(i), true
			}
		}
	}
	return 0, false
}

// UnaryOperator is the token of a unary expression.
type UnaryOperator int

const (
	Minus UnaryOperator = iota
	Plus
	LogicalNegation
	BitwiseNegation
	DynamicExpression
	StaticExpression
)

var unaryOperators = [...]string{
	Minus:             "-",
	Plus:              "+",
	LogicalNegation:   "!",
	BitwiseNegation:   "~",
	DynamicExpression: "$",
	StaticExpression:  "$$",
}

func (op UnaryOperator) String() string {
	if op >= 0 && int(op) < len(unaryOperators) {
		return unaryOperators[op]
	}
	return "?"
}

// ParseUnaryOperator looks up an operator by its token.
func ParseUnaryOperator(text string) (UnaryOperator, bool) {
	for i, s := range unaryOperators {
		if s == text {
			return UnaryOperator(i), true
		}
	}
	return 0, false
}
