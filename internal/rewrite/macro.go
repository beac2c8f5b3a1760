package rewrite

import (
	"github.com/funvibe/bindexpr/internal/ast"
	"github.com/funvibe/bindexpr/internal/config"
	"github.com/funvibe/bindexpr/internal/pipeline"
)

// MacroExpander replaces macro names with their expansions. A macro is used
// either as a bare member (`$self`) or as a call without arguments (`$self()`).
// Expansions are tagged with the macro name under config.MacroMetadataKey.
//
// Register every macro before the expander is shared between goroutines.
type MacroExpander struct {
	macros map[string]ast.Expression
}

// NewMacroExpander returns an expander knowing the built-in macros.
func NewMacroExpander() *MacroExpander {
	m := &MacroExpander{macros: map[string]ast.Expression{}}
	m.Register(config.SelfMacro, ast.NewMember(nil, config.SelfMemberName))
	m.Register(config.ContextMacro, ast.NewMember(nil, config.ContextMemberName))
	m.Register(config.ArgsMacro, ast.NewMember(nil, config.ArgsMemberName))
	return m
}

// Register adds or replaces a macro.
func (m *MacroExpander) Register(name string, expansion ast.Expression) {
	m.macros[name] = expansion.UpdateMetadata(expansion.Metadata().With(config.MacroMetadataKey, name))
}

// Lookup returns the tagged expansion of name.
func (m *MacroExpander) Lookup(name string) (ast.Expression, bool) {
	e, ok := m.macros[name]
	return e, ok
}

func (m *MacroExpander) Name() string { return "macros" }

// Expansions are not expanded again, so the expander runs in preorder.
func (m *MacroExpander) TraversalType() ast.TraversalType { return ast.Preorder }

func (m *MacroExpander) Visit(expr ast.Expression, _ ast.Metadata) ast.Expression {
	switch e := expr.(type) {
	case *ast.MemberExpression:
		if e.Target() == nil {
			if expansion, ok := m.macros[e.Member()]; ok {
				return expansion
			}
		}
	case *ast.MethodCallExpression:
		if e.Target() == nil && len(e.Args()) == 0 && len(e.TypeArgs()) == 0 {
			if expansion, ok := m.macros[e.Method()]; ok {
				return expansion
			}
		}
	}
	return expr
}

// Normalize returns the standard rewrite pipeline: macro expansion,
// null-conditional normalization and constant folding.
func Normalize(macros *MacroExpander) *pipeline.Pipeline {
	if macros == nil {
		macros = NewMacroExpander()
	}
	return pipeline.Visitors(macros, NullConditionalNormalizer{}, ConstantFolder{})
}
