package parser

import (
	"fmt"

	"github.com/gosuda/mlrdsl/ast"
)

const maxDepth = 256

// precRedirect is the binding power of a redirect target: tight enough
// that ',' and comparison operators end it.
const precRedirect = 12

var contextVariables = map[string]bool{
	"NR": true, "FNR": true, "NF": true, "FILENAME": true, "M_PI": true, "M_E": true,
}

type parser struct {
	tokens []token
	pos    int
	depth  int
}

func (p *parser) peek() token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *parser) peekAt(off int) token {
	if p.pos+off >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+off]
}

func (p *parser) next() token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf(format, args...), AtEOF: t.kind == tokEOF}
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, found %s", what, t)
	}
	return p.next(), nil
}

func (p *parser) isOp(lit string) bool {
	t := p.peek()
	return t.kind == tokOp && t.lit == lit
}

func (p *parser) parse(minPrec int) (*ast.Node, error) {
	p.depth++
	if p.depth > maxDepth {
		return nil, p.errorf(p.peek(), "expression nesting too deep near %s", p.peek())
	}
	defer func() { p.depth-- }()

	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp {
			break
		}
		prec := opPrecedence(tok.lit)
		if prec == 0 || prec < minPrec {
			break
		}
		p.next()
		next := prec + 1
		if tok.lit == "**" {
			next = prec
		}
		right, err := p.parse(next)
		if err != nil {
			return nil, err
		}
		left = ast.New(ast.Operator, tok.lit, tok.pos, left, right)
	}
	if minPrec <= 1 && p.peek().kind == tokQuestion {
		q := p.next()
		onTrue, err := p.parse(1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':' in ternary expression"); err != nil {
			return nil, err
		}
		onFalse, err := p.parse(1)
		if err != nil {
			return nil, err
		}
		left = ast.New(ast.Operator, "?:", q.pos, left, onTrue, onFalse)
	}
	return left, nil
}

func (p *parser) parsePrefix() (*ast.Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber, tokString:
		return ast.New(ast.StrnumLiteral, t.lit, t.pos), nil
	case tokIdent:
		switch {
		case t.lit == "true" || t.lit == "false":
			return ast.New(ast.BooleanLiteral, t.lit, t.pos), nil
		case p.peek().kind == tokLParen:
			return p.call(t)
		case contextVariables[t.lit]:
			return ast.New(ast.ContextVariable, t.lit, t.pos), nil
		case t.lit == "all":
			return ast.New(ast.All, t.lit, t.pos), nil
		case keywords[t.lit]:
			return nil, p.errorf(t, "unexpected keyword %q", t.lit)
		}
		return ast.New(ast.BoundVariable, t.lit, t.pos), nil
	case tokField:
		return ast.New(ast.FieldName, t.lit, t.pos), nil
	case tokFieldIndirect:
		e, err := p.parse(1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return ast.New(ast.IndirectFieldName, "$[]", t.pos, e), nil
	case tokFullSrec:
		return ast.New(ast.FullSrec, "$*", t.pos), nil
	case tokOosvar:
		n := ast.New(ast.OosvarKeylist, "@"+t.lit, t.pos, ast.New(ast.StringLiteral, t.lit, t.pos))
		return p.indexes(n)
	case tokOosvarIndirect:
		e, err := p.parse(1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return p.indexes(ast.New(ast.OosvarKeylist, "@[]", t.pos, e))
	case tokFullOosvar:
		return ast.New(ast.FullOosvar, "@*", t.pos), nil
	case tokLParen:
		e, err := p.parse(1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	case tokOp:
		switch t.lit {
		case "-", "+", "!", "~":
			operand, err := p.parse(opPrecedence("**"))
			if err != nil {
				return nil, err
			}
			return ast.New(ast.Operator, t.lit, t.pos, operand), nil
		}
	}
	return nil, p.errorf(t, "unexpected %s", t)
}

// indexes appends [e] subscripts to an oosvar keylist.
func (p *parser) indexes(n *ast.Node) (*ast.Node, error) {
	for p.peek().kind == tokLBracket && !p.peek().nl {
		p.next()
		e, err := p.parse(1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		n.Append(e)
	}
	return n, nil
}

func (p *parser) call(name token) (*ast.Node, error) {
	p.next()
	n := ast.New(ast.FunctionCallsite, name.lit, name.pos)
	if p.peek().kind == tokRParen {
		p.next()
		return n, nil
	}
	for {
		e, err := p.parse(1)
		if err != nil {
			return nil, err
		}
		n.Append(e)
		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, "')' in call expression"); err != nil {
		return nil, err
	}
	return n, nil
}

func opPrecedence(op string) int {
	switch op {
	case "||":
		return 2
	case "^^":
		return 3
	case "&&":
		return 4
	case "=~", "!=~":
		return 5
	case "==", "!=":
		return 6
	case "<", "<=", ">", ">=":
		return 7
	case "|":
		return 8
	case "^":
		return 9
	case "&":
		return 10
	case "<<", ">>", ">>>":
		return 11
	case "+", "-", ".":
		return 12
	case "*", "/", "//", "%":
		return 13
	case "**":
		return 15
	default:
		return 0
	}
}
