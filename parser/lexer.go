package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gosuda/mlrdsl/ast"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokField
	tokFieldIndirect
	tokFullSrec
	tokOosvar
	tokOosvarIndirect
	tokFullOosvar
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokComma
	tokSemi
	tokQuestion
	tokColon
	tokOp
	tokAssign
)

type token struct {
	kind tokenKind
	lit  string
	pos  ast.Pos
	// nl is set when a newline separates this token from the previous one.
	nl bool
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return fmt.Sprintf("string %q", t.lit)
	case tokField:
		return "$" + t.lit
	case tokOosvar:
		return "@" + t.lit
	}
	return fmt.Sprintf("%q", t.lit)
}

// Longest first, so that prefixes never shadow longer operators.
var operators = []string{
	">>>=",
	"**=", "//=", ">>>", "<<=", ">>=", "||=", "&&=", "^^=", "!=~",
	"+=", "-=", "*=", "/=", "%=", ".=", "&=", "|=", "^=",
	"**", "//", "==", "!=", "<=", ">=", "=~", "&&", "||", "^^", "<<", ">>",
	"+", "-", "*", "/", "%", ".", "<", ">", "!", "~", "&", "|", "^", "=",
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true,
	"**=": true, ".=": true, "&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
	">>>=": true, "||=": true, "&&=": true, "^^=": true,
}

var punct = map[rune]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	'{': tokLBrace,
	'}': tokRBrace,
	'[': tokLBracket,
	']': tokRBracket,
	',': tokComma,
	';': tokSemi,
	'?': tokQuestion,
	':': tokColon,
}

type lexer struct {
	src  []rune
	i    int
	line int
	col  int
	toks []token
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: []rune(src), line: 1, col: 1}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.toks, nil
}

func (lx *lexer) peekAt(off int) rune {
	if lx.i+off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.i+off]
}

func (lx *lexer) advance(n int) {
	for ; n > 0 && lx.i < len(lx.src); n-- {
		if lx.src[lx.i] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.i++
	}
}

func (lx *lexer) errorf(format string, args ...any) error {
	return &SyntaxError{
		Pos:   ast.Pos{Line: lx.line, Column: lx.col},
		Msg:   fmt.Sprintf(format, args...),
		AtEOF: lx.i >= len(lx.src),
	}
}

func (lx *lexer) run() error {
	nl := false
	for {
		// whitespace and comments
		for lx.i < len(lx.src) {
			ch := lx.src[lx.i]
			if ch == '\n' {
				nl = true
			}
			if unicode.IsSpace(ch) {
				lx.advance(1)
				continue
			}
			if ch == '#' {
				for lx.i < len(lx.src) && lx.src[lx.i] != '\n' {
					lx.advance(1)
				}
				continue
			}
			break
		}
		pos := ast.Pos{Line: lx.line, Column: lx.col}
		if lx.i >= len(lx.src) {
			lx.toks = append(lx.toks, token{kind: tokEOF, pos: pos, nl: true})
			return nil
		}
		tok, err := lx.next()
		if err != nil {
			return err
		}
		tok.pos = pos
		tok.nl = nl
		nl = false
		lx.toks = append(lx.toks, tok)
	}
}

func (lx *lexer) next() (token, error) {
	ch := lx.src[lx.i]
	switch {
	case isDigit(ch) || (ch == '.' && isDigit(lx.peekAt(1))):
		return lx.number(), nil
	case ch == '"':
		return lx.str()
	case isIdentStart(ch):
		return token{kind: tokIdent, lit: lx.ident()}, nil
	case ch == '$' || ch == '@':
		return lx.variable(ch)
	}
	if k, ok := punct[ch]; ok {
		lx.advance(1)
		return token{kind: k, lit: string(ch)}, nil
	}
	rest := string(lx.src[lx.i:min(lx.i+4, len(lx.src))])
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			lx.advance(len([]rune(op)))
			if assignOps[op] {
				return token{kind: tokAssign, lit: op}, nil
			}
			return token{kind: tokOp, lit: op}, nil
		}
	}
	return token{}, lx.errorf("unexpected character %q", ch)
}

// number keeps the literal text as written; typing happens at build time.
func (lx *lexer) number() token {
	start := lx.i
	if lx.src[lx.i] == '0' && (lx.peekAt(1) == 'x' || lx.peekAt(1) == 'X' || lx.peekAt(1) == 'b' || lx.peekAt(1) == 'B') {
		lx.advance(2)
		for lx.i < len(lx.src) && isHexDigit(lx.src[lx.i]) {
			lx.advance(1)
		}
		return token{kind: tokNumber, lit: string(lx.src[start:lx.i])}
	}
	for lx.i < len(lx.src) && isDigit(lx.src[lx.i]) {
		lx.advance(1)
	}
	if lx.i < len(lx.src) && lx.src[lx.i] == '.' && lx.peekAt(1) != '=' {
		lx.advance(1)
		for lx.i < len(lx.src) && isDigit(lx.src[lx.i]) {
			lx.advance(1)
		}
	}
	if lx.i < len(lx.src) && (lx.src[lx.i] == 'e' || lx.src[lx.i] == 'E') {
		off := 1
		if s := lx.peekAt(1); s == '+' || s == '-' {
			off = 2
		}
		if isDigit(lx.peekAt(off)) {
			lx.advance(off)
			for lx.i < len(lx.src) && isDigit(lx.src[lx.i]) {
				lx.advance(1)
			}
		}
	}
	return token{kind: tokNumber, lit: string(lx.src[start:lx.i])}
}

func (lx *lexer) str() (token, error) {
	start := lx.i
	lx.advance(1)
	escape := false
	for lx.i < len(lx.src) {
		r := lx.src[lx.i]
		lx.advance(1)
		if escape {
			escape = false
			continue
		}
		if r == '\\' {
			escape = true
			continue
		}
		if r == '"' {
			v, ok := unquoteString(string(lx.src[start:lx.i]))
			if !ok {
				return token{}, lx.errorf("invalid string literal")
			}
			return token{kind: tokString, lit: v}, nil
		}
	}
	return token{}, lx.errorf("unterminated string")
}

func (lx *lexer) ident() string {
	start := lx.i
	for lx.i < len(lx.src) && isIdentPart(lx.src[lx.i]) {
		lx.advance(1)
	}
	return string(lx.src[start:lx.i])
}

// variable lexes $name, ${name}, $*, $[ and their @ counterparts.
func (lx *lexer) variable(sigil rune) (token, error) {
	named, indirect, full := tokField, tokFieldIndirect, tokFullSrec
	if sigil == '@' {
		named, indirect, full = tokOosvar, tokOosvarIndirect, tokFullOosvar
	}
	switch next := lx.peekAt(1); {
	case next == '*':
		lx.advance(2)
		return token{kind: full, lit: string(sigil) + "*"}, nil
	case next == '[':
		lx.advance(2)
		return token{kind: indirect, lit: string(sigil) + "["}, nil
	case next == '{':
		lx.advance(2)
		start := lx.i
		for lx.i < len(lx.src) && lx.src[lx.i] != '}' {
			if lx.src[lx.i] == '\n' {
				return token{}, lx.errorf("unterminated %c{...} name", sigil)
			}
			lx.advance(1)
		}
		if lx.i >= len(lx.src) {
			return token{}, lx.errorf("unterminated %c{...} name", sigil)
		}
		name := string(lx.src[start:lx.i])
		lx.advance(1)
		return token{kind: named, lit: name}, nil
	case isIdentPart(next):
		lx.advance(1)
		return token{kind: named, lit: lx.ident()}, nil
	}
	return token{}, lx.errorf("expected name after %c", sigil)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
