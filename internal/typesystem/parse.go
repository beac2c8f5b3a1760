package typesystem

import (
	"fmt"
	"strings"
	"unicode"
)

// Lookup resolves a type name that is not a builtin keyword.
type Lookup func(name string) (Type, bool)

// ParseTypeRef parses textual type references such as "int?", "string[]",
// "List<T>", "Dictionary<string, int>", "func(T) bool" and
// "Expression<func(T) bool>". Names that are neither builtins nor known to
// lookup yield a *TypeNotFoundError.
func ParseTypeRef(src string, lookup Lookup) (Type, error) {
	p := &typeParser{src: src, lookup: lookup}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("type %q: unexpected %q at offset %d", src, p.src[p.pos:], p.pos)
	}
	return t, nil
}

type typeParser struct {
	src    string
	pos    int
	lookup Lookup
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) peek(s string) bool {
	p.skipSpace()
	return strings.HasPrefix(p.src[p.pos:], s)
}

func (p *typeParser) expect(s string) error {
	if !p.peek(s) {
		return fmt.Errorf("type %q: expected %q at offset %d", p.src, s, p.pos)
	}
	p.pos += len(s)
	return nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parseType() (Type, error) {
	t, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.peek("[]"):
			p.pos += 2
			t = TArray{Elem: t}
		case p.peek("?"):
			p.pos++
			t = TNullable{Elem: t}
		default:
			return t, nil
		}
	}
}

func (p *typeParser) parseBase() (Type, error) {
	name := p.ident()
	if name == "" {
		return nil, fmt.Errorf("type %q: expected type name at offset %d", p.src, p.pos)
	}
	if name == "func" {
		return p.parseFunc()
	}

	var args []Type
	if p.peek("<") {
		p.pos++
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek(",") {
				p.pos++
				continue
			}
			if err := p.expect(">"); err != nil {
				return nil, err
			}
			break
		}
	}

	if name == "Expression" {
		if len(args) != 1 {
			return nil, fmt.Errorf("type %q: Expression takes exactly one delegate argument", p.src)
		}
		fn, ok := args[0].(TFunc)
		if !ok {
			return nil, fmt.Errorf("type %q: Expression argument must be a func type", p.src)
		}
		fn.Expression = true
		return fn, nil
	}

	base, err := p.resolve(name)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return base, nil
	}
	def, ok := base.(*TNamed)
	if !ok || len(def.Params) != len(args) {
		return nil, fmt.Errorf("type %q: %s does not take %d type arguments", p.src, name, len(args))
	}
	return TApp{Constructor: def, Args: args}, nil
}

func (p *typeParser) parseFunc() (Type, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	fn := TFunc{}
	if !p.peek(")") {
		for {
			param, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, param)
			if p.peek(",") {
				p.pos++
				continue
			}
			break
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) && !p.peek(",") && !p.peek(">") && !p.peek(")") && !p.peek("[]") && !p.peek("?") {
		result, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fn.Result = result
	}
	return fn, nil
}

func (p *typeParser) resolve(name string) (Type, error) {
	if p.lookup != nil {
		if t, ok := p.lookup(name); ok {
			return t, nil
		}
	}
	if t, ok := Builtin(name); ok {
		return t, nil
	}
	return nil, NewTypeNotFoundError(name)
}
