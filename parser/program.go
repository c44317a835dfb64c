package parser

import (
	"strings"

	"github.com/gosuda/mlrdsl/ast"
)

var keywords = map[string]bool{
	"begin": true, "end": true, "if": true, "elif": true, "else": true,
	"while": true, "do": true, "for": true, "in": true, "break": true, "continue": true,
	"unset": true, "filter": true, "emit": true, "emitp": true, "emitf": true,
	"tee": true, "print": true, "printn": true, "eprint": true, "eprintn": true,
	"dump": true, "edump": true,
}

// ParseProgram parses DSL source into a statement_list tree. Statements are
// separated by ';' or newlines; a statement ending in a block needs neither.
func ParseProgram(src string) (*ast.Node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: toks}
	return p.statementList(false)
}

// ParseExpr parses a single expression.
func ParseExpr(src string) (*ast.Node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: toks}
	e, err := p.parse(1)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}
	return e, nil
}

func (p *parser) statementList(braced bool) (*ast.Node, error) {
	open := p.peek()
	if braced {
		if _, err := p.expect(tokLBrace, "'{'"); err != nil {
			return nil, err
		}
	}
	list := ast.New(ast.StatementList, "list", open.pos)
	for {
		for p.peek().kind == tokSemi {
			p.next()
		}
		t := p.peek()
		switch t.kind {
		case tokEOF:
			if braced {
				return nil, p.errorf(t, "missing '}' for block opened at %s", open.pos)
			}
			return list, nil
		case tokRBrace:
			if !braced {
				return nil, p.errorf(t, "unexpected '}'")
			}
			p.next()
			return list, nil
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		list.Append(s)
		t = p.peek()
		switch {
		case t.kind == tokSemi, t.kind == tokEOF, t.kind == tokRBrace, t.nl:
		case endsWithBlock(s.Kind):
		default:
			return nil, p.errorf(t, "expected ';' after statement, found %s", t)
		}
	}
}

func endsWithBlock(k ast.Kind) bool {
	switch k {
	case ast.Begin, ast.End, ast.CondBlock, ast.IfHead, ast.While, ast.ForSrec, ast.ForOosvar:
		return true
	}
	return false
}

func (p *parser) statement() (*ast.Node, error) {
	t := p.peek()
	if t.kind == tokIdent {
		switch t.lit {
		case "begin", "end":
			p.next()
			body, err := p.statementList(true)
			if err != nil {
				return nil, err
			}
			kind := ast.Begin
			if t.lit == "end" {
				kind = ast.End
			}
			return ast.New(kind, t.lit, t.pos, body), nil
		case "if":
			return p.ifChain()
		case "elif", "else":
			return nil, p.errorf(t, "%s without if", t.lit)
		case "while":
			p.next()
			cond, err := p.parenCond()
			if err != nil {
				return nil, err
			}
			body, err := p.statementList(true)
			if err != nil {
				return nil, err
			}
			return ast.New(ast.While, "while", t.pos, cond, body), nil
		case "do":
			p.next()
			body, err := p.statementList(true)
			if err != nil {
				return nil, err
			}
			if w := p.next(); w.kind != tokIdent || w.lit != "while" {
				return nil, p.errorf(w, "expected while after do block, found %s", w)
			}
			cond, err := p.parenCond()
			if err != nil {
				return nil, err
			}
			return ast.New(ast.DoWhile, "do", t.pos, body, cond), nil
		case "for":
			return p.forLoop()
		case "break":
			p.next()
			return ast.New(ast.Break, "break", t.pos), nil
		case "continue":
			p.next()
			return ast.New(ast.Continue, "continue", t.pos), nil
		case "unset":
			return p.unset()
		case "filter":
			p.next()
			e, err := p.parse(1)
			if err != nil {
				return nil, err
			}
			return ast.New(ast.Filter, "filter", t.pos, e), nil
		case "emitf":
			return p.emitf()
		case "emit", "emitp":
			return p.emit()
		case "tee":
			return p.tee()
		case "print", "printn", "eprint", "eprintn":
			return p.print()
		case "dump", "edump":
			return p.dump()
		}
	}
	return p.assignmentOrExpr()
}

func (p *parser) parenCond() (*ast.Node, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	e, err := p.parse(1)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) ifChain() (*ast.Node, error) {
	t := p.next()
	head := ast.New(ast.IfHead, "if_head", t.pos)
	cond, err := p.parenCond()
	if err != nil {
		return nil, err
	}
	body, err := p.statementList(true)
	if err != nil {
		return nil, err
	}
	head.Append(ast.New(ast.IfItem, "if", t.pos, cond, body))
	for {
		e := p.peek()
		if e.kind != tokIdent || (e.lit != "elif" && e.lit != "else") {
			return head, nil
		}
		p.next()
		if e.lit == "else" && !(p.peek().kind == tokIdent && p.peek().lit == "if") {
			body, err := p.statementList(true)
			if err != nil {
				return nil, err
			}
			head.Append(ast.New(ast.IfItem, "else", e.pos, body))
			return head, nil
		}
		if e.lit == "else" {
			p.next() // else if
		}
		cond, err := p.parenCond()
		if err != nil {
			return nil, err
		}
		body, err := p.statementList(true)
		if err != nil {
			return nil, err
		}
		head.Append(ast.New(ast.IfItem, "elif", e.pos, cond, body))
	}
}

func (p *parser) ident(what string) (token, error) {
	t := p.peek()
	if t.kind != tokIdent || keywords[t.lit] || contextVariables[t.lit] {
		return t, p.errorf(t, "expected %s, found %s", what, t)
	}
	return p.next(), nil
}

func (p *parser) expectKeyword(kw string) error {
	t := p.peek()
	if t.kind != tokIdent || t.lit != kw {
		return p.errorf(t, "expected %q, found %s", kw, t)
	}
	p.next()
	return nil
}

// forLoop parses for (k, v in $*), for (k, v in @x...) and
// for ((k1, k2, ...), v in @x...).
func (p *parser) forLoop() (*ast.Node, error) {
	t := p.next()
	if _, err := p.expect(tokLParen, "'(' after for"); err != nil {
		return nil, err
	}
	keys := ast.New(ast.KeyVariables, "key_variables", p.peek().pos)
	multi := p.peek().kind == tokLParen
	if multi {
		p.next()
		for {
			k, err := p.ident("key variable name")
			if err != nil {
				return nil, err
			}
			keys.Append(ast.New(ast.BoundVariable, k.lit, k.pos))
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen, "')' after key variables"); err != nil {
			return nil, err
		}
	} else {
		k, err := p.ident("key variable name")
		if err != nil {
			return nil, err
		}
		keys.Append(ast.New(ast.BoundVariable, k.lit, k.pos))
	}
	if _, err := p.expect(tokComma, "','"); err != nil {
		return nil, err
	}
	v, err := p.ident("value variable name")
	if err != nil {
		return nil, err
	}
	value := ast.New(ast.BoundVariable, v.lit, v.pos)
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	target, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')' after for-loop target"); err != nil {
		return nil, err
	}
	body, err := p.statementList(true)
	if err != nil {
		return nil, err
	}
	switch target.Kind {
	case ast.FullSrec:
		if multi {
			return nil, p.errorf(t, "for-loops over $* take a single key variable")
		}
		vars := ast.New(ast.ForVariables, "for_variables", t.pos, keys.Children[0], value)
		return ast.New(ast.ForSrec, "for", t.pos, vars, body), nil
	case ast.OosvarKeylist, ast.FullOosvar:
		vars := ast.New(ast.ForVariables, "for_variables", t.pos, keys, value)
		return ast.New(ast.ForOosvar, "for", t.pos, vars, target, body), nil
	}
	return nil, p.errorf(t, "for-loop target must be $*, @*, or an oosvar")
}

func (p *parser) unset() (*ast.Node, error) {
	t := p.next()
	n := ast.New(ast.Unset, "unset", t.pos)
	for {
		target, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}
		switch target.Kind {
		case ast.FieldName, ast.IndirectFieldName, ast.FullSrec, ast.OosvarKeylist, ast.FullOosvar, ast.All:
		default:
			return nil, p.errorf(t, "unset: cannot unset %s", target.Kind)
		}
		n.Append(target)
		if p.peek().kind != tokComma {
			return n, nil
		}
		p.next()
	}
}

// redirect parses an optional "> target" or ">> target" clause. It returns
// a nil target when there is none.
func (p *parser) redirect(comma bool) (*ast.Node, bool, error) {
	if !p.isOp(">") && !p.isOp(">>") {
		return nil, false, nil
	}
	appendMode := p.next().lit == ">>"
	target, err := p.parse(precRedirect)
	if err != nil {
		return nil, false, err
	}
	if comma {
		if _, err := p.expect(tokComma, "',' after redirect target"); err != nil {
			return nil, false, err
		}
	}
	return target, appendMode, nil
}

func (p *parser) emitf() (*ast.Node, error) {
	t := p.next()
	target, appendMode, err := p.redirect(true)
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.Emitf, "emitf", t.pos)
	for {
		e, err := p.parse(1)
		if err != nil {
			return nil, err
		}
		if e.Kind != ast.OosvarKeylist {
			return nil, p.errorf(t, "emitf: expected out-of-stream variable, found %s", e.Kind)
		}
		n.Append(e)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if target == nil {
		return n, nil
	}
	if appendMode {
		return ast.New(ast.EmitfAppend, "emitf", t.pos, n, target), nil
	}
	return ast.New(ast.EmitfWrite, "emitf", t.pos, n, target), nil
}

var emitKinds = map[string][3]ast.Kind{
	"emit":         {ast.Emit, ast.EmitWrite, ast.EmitAppend},
	"emitp":        {ast.Emitp, ast.EmitpWrite, ast.EmitpAppend},
	"emit_lashed":  {ast.EmitLashed, ast.EmitLashedWrite, ast.EmitLashedAppend},
	"emitp_lashed": {ast.EmitpLashed, ast.EmitpLashedWrite, ast.EmitpLashedAppend},
}

func (p *parser) emit() (*ast.Node, error) {
	t := p.next()
	target, appendMode, err := p.redirect(true)
	if err != nil {
		return nil, err
	}

	var emittable *ast.Node
	lashed := false
	if p.peek().kind == tokLParen {
		open := p.next()
		var items []*ast.Node
		for {
			e, err := p.parse(1)
			if err != nil {
				return nil, err
			}
			items = append(items, e)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen, "')' after lashed emittables"); err != nil {
			return nil, err
		}
		if len(items) == 1 {
			emittable = items[0]
		} else {
			for _, it := range items {
				if it.Kind != ast.OosvarKeylist {
					return nil, p.errorf(open, "%s: lashed emittables must be out-of-stream variables", t.lit)
				}
			}
			emittable = ast.New(ast.LashedKeylists, "lashed_keylists", open.pos, items...)
			lashed = true
		}
	} else {
		if emittable, err = p.parse(1); err != nil {
			return nil, err
		}
	}
	switch emittable.Kind {
	case ast.OosvarKeylist, ast.FullOosvar, ast.All, ast.LashedKeylists:
	default:
		return nil, p.errorf(t, "%s: expected out-of-stream variable, @*, or all; found %s", t.lit, emittable.Kind)
	}

	key := t.lit
	if lashed {
		key += "_lashed"
	}
	kinds := emitKinds[key]
	n := ast.New(kinds[0], t.lit, t.pos, emittable)
	if p.peek().kind == tokComma {
		names := ast.New(ast.EmitNamelist, "emit_namelist", p.next().pos)
		for {
			e, err := p.parse(1)
			if err != nil {
				return nil, err
			}
			names.Append(e)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		n.Append(names)
	}
	switch {
	case target == nil:
		return n, nil
	case appendMode:
		return ast.New(kinds[2], t.lit, t.pos, n, target), nil
	}
	return ast.New(kinds[1], t.lit, t.pos, n, target), nil
}

func (p *parser) tee() (*ast.Node, error) {
	t := p.next()
	target, appendMode, err := p.redirect(true)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, p.errorf(t, "tee: expected > or >> and a filename")
	}
	if _, err := p.expect(tokFullSrec, "$* after tee target"); err != nil {
		return nil, err
	}
	if appendMode {
		return ast.New(ast.TeeAppend, "tee", t.pos, target), nil
	}
	return ast.New(ast.TeeWrite, "tee", t.pos, target), nil
}

func (p *parser) atStatementEnd() bool {
	t := p.peek()
	return t.kind == tokSemi || t.kind == tokRBrace || t.kind == tokEOF || t.nl
}

func (p *parser) print() (*ast.Node, error) {
	t := p.next()
	target, appendMode, err := p.redirect(true)
	if err != nil {
		return nil, err
	}
	if target != nil && strings.HasPrefix(t.lit, "e") {
		return nil, p.errorf(t, "%s: output redirection is not supported", t.lit)
	}
	var value *ast.Node
	if p.atStatementEnd() {
		value = ast.New(ast.StrnumLiteral, "", t.pos)
	} else if value, err = p.parse(1); err != nil {
		return nil, err
	}
	kind := map[string]ast.Kind{
		"print": ast.Print, "printn": ast.Printn, "eprint": ast.Eprint, "eprintn": ast.Eprintn,
	}[t.lit]
	if target == nil {
		return ast.New(kind, t.lit, t.pos, value), nil
	}
	switch {
	case kind == ast.Print && appendMode:
		kind = ast.PrintAppend
	case kind == ast.Print:
		kind = ast.PrintWrite
	case appendMode:
		kind = ast.PrintnAppend
	default:
		kind = ast.PrintnWrite
	}
	return ast.New(kind, t.lit, t.pos, value, target), nil
}

func (p *parser) dump() (*ast.Node, error) {
	t := p.next()
	if t.lit == "edump" {
		return ast.New(ast.Edump, t.lit, t.pos), nil
	}
	target, appendMode, err := p.redirect(false)
	if err != nil {
		return nil, err
	}
	switch {
	case target == nil:
		return ast.New(ast.Dump, t.lit, t.pos), nil
	case appendMode:
		return ast.New(ast.DumpAppend, t.lit, t.pos, target), nil
	}
	return ast.New(ast.DumpWrite, t.lit, t.pos, target), nil
}

// assignmentOrExpr parses an assignment, a pattern-action block, or a bare
// boolean expression. Compound assignments are desugared: $x += 1 becomes
// $x = $x + 1.
func (p *parser) assignmentOrExpr() (*ast.Node, error) {
	lhs, err := p.parse(1)
	if err != nil {
		return nil, err
	}
	t := p.peek()
	switch t.kind {
	case tokLBrace:
		body, err := p.statementList(true)
		if err != nil {
			return nil, err
		}
		return ast.New(ast.CondBlock, "cond", lhs.Pos, lhs, body), nil
	case tokAssign:
	default:
		return lhs, nil
	}
	p.next()
	rhs, err := p.parse(1)
	if err != nil {
		return nil, err
	}
	if t.lit != "=" {
		rhs = ast.New(ast.Operator, strings.TrimSuffix(t.lit, "="), t.pos, lhs, rhs)
	}
	switch lhs.Kind {
	case ast.FieldName:
		return ast.New(ast.SrecAssignment, "=", t.pos, lhs, rhs), nil
	case ast.IndirectFieldName:
		return ast.New(ast.IndirectSrecAssignment, "=", t.pos, lhs.Children[0], rhs), nil
	case ast.OosvarKeylist:
		if rhs.Kind == ast.FullSrec {
			return ast.New(ast.OosvarFromFullSrecAssignment, "=", t.pos, lhs, rhs), nil
		}
		return ast.New(ast.OosvarAssignment, "=", t.pos, lhs, rhs), nil
	case ast.FullSrec:
		if rhs.Kind == ast.OosvarKeylist || rhs.Kind == ast.FullOosvar {
			return ast.New(ast.FullSrecFromOosvarAssignment, "=", t.pos, lhs, rhs), nil
		}
		return nil, p.errorf(t, "$* can only be assigned from an out-of-stream variable")
	}
	return nil, p.errorf(t, "invalid assignment target %s", lhs.Kind)
}
