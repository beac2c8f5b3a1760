package pipeline

import "github.com/funvibe/bindexpr/internal/ast"

// PipelineContext carries an expression through the rewrite stages.
type PipelineContext struct {
	Root     ast.Expression
	Metadata ast.Metadata
	// Stages lists the names of the processors that replaced Root.
	Stages []string
	Errors []error
}

// Changed reports whether any stage replaced the root.
func (c *PipelineContext) Changed() bool { return len(c.Stages) > 0 }

// Processor is one stage of a pipeline.
type Processor interface {
	Name() string
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Visitors builds a pipeline with one stage per visitor.
func Visitors(visitors ...ast.Visitor) *Pipeline {
	processors := make([]Processor, len(visitors))
	for i, v := range visitors {
		processors[i] = VisitorStage{Visitor: v}
	}
	return New(processors...)
}

// Then returns a pipeline running p followed by the given processors.
func (p *Pipeline) Then(processors ...Processor) *Pipeline {
	all := make([]Processor, 0, len(p.processors)+len(processors))
	all = append(all, p.processors...)
	return &Pipeline{processors: append(all, processors...)}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		before := ctx.Root
		ctx = processor.Process(ctx)
		if ctx.Root != before {
			ctx.Stages = append(ctx.Stages, processor.Name())
		}
		// Later stages still run so that every stage can report its errors.
	}
	return ctx
}

// Rewrite runs the pipeline over root and returns the result along with
// whether it differs from root by identity.
func (p *Pipeline) Rewrite(root ast.Expression, md ast.Metadata) (ast.Expression, bool, error) {
	ctx := p.Run(&PipelineContext{Root: root, Metadata: md})
	if len(ctx.Errors) > 0 {
		return ctx.Root, ctx.Root != root, ctx.Errors[0]
	}
	return ctx.Root, ctx.Root != root, nil
}

// VisitorStage runs one visitor over the whole tree.
type VisitorStage struct {
	Visitor ast.Visitor
}

type namer interface {
	Name() string
}

func (s VisitorStage) Name() string {
	if n, ok := s.Visitor.(namer); ok {
		return n.Name()
	}
	return s.Visitor.TraversalType().String() + " visitor"
}

func (s VisitorStage) Process(ctx *PipelineContext) *PipelineContext {
	ctx.Root = ast.Accept(ctx.Root, s.Visitor, ctx.Metadata)
	return ctx
}
