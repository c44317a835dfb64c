package mruntime

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gosuda/mlrdsl/ast"
)

type contextFlags uint8

const (
	inBeginOrEnd contextFlags = 1 << iota
	inBreakable
	inBindable
)

// InternalError reports a syntax tree whose shape the builder does not
// expect. It always indicates a parser or builder defect.
type InternalError struct {
	File   string
	Line   int
	Detail string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal coding error detected in file %s at line %d: %s", e.File, e.Line, e.Detail)
}

// SemanticError reports a program that parses but is not valid.
type SemanticError struct {
	Pos ast.Pos
	Msg string
}

func (e *SemanticError) Error() string {
	if e.Pos.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Builder lowers syntax trees into statements.
type Builder struct {
	mode  InferMode
	count int
}

func NewBuilder(mode InferMode) *Builder {
	return &Builder{mode: mode}
}

// Build lowers a whole program. A nil root is the empty program.
func Build(root *ast.Node, mode InferMode) (*Program, error) {
	return NewBuilder(mode).Program(root)
}

func (b *Builder) Program(root *ast.Node) (*Program, error) {
	if root == nil {
		root = ast.New(ast.StatementList, "list", ast.Pos{})
	}
	if root.Kind != ast.StatementList {
		return nil, b.internal(root, "expected root node type %s but found %s", ast.StatementList, root.Kind)
	}
	prog := &Program{}
	for _, child := range root.Children {
		switch child.Kind {
		case ast.Begin, ast.End:
			list, err := b.blockList(child)
			if err != nil {
				return nil, err
			}
			stmts, err := b.statements(list, inBeginOrEnd)
			if err != nil {
				return nil, err
			}
			if child.Kind == ast.Begin {
				prog.Begin = append(prog.Begin, stmts...)
			} else {
				prog.End = append(prog.End, stmts...)
			}
		default:
			s, err := b.statement(child, 0)
			if err != nil {
				return nil, err
			}
			prog.Main = append(prog.Main, s)
		}
	}
	return prog, nil
}

// Statements lowers a statement list in end-block context, against which
// the interactive shell runs each line.
func (b *Builder) Statements(root *ast.Node) ([]Statement, error) {
	if root == nil {
		return nil, nil
	}
	if root.Kind != ast.StatementList {
		return nil, b.internal(root, "expected root node type %s but found %s", ast.StatementList, root.Kind)
	}
	return b.statements(root, inBeginOrEnd)
}

func (b *Builder) blockList(n *ast.Node) (*ast.Node, error) {
	if len(n.Children) != 1 || n.Children[0].Kind != ast.StatementList {
		return nil, b.internal(n, "%s block must have exactly one statement list", n.Kind)
	}
	return n.Children[0], nil
}

func (b *Builder) statements(list *ast.Node, flags contextFlags) ([]Statement, error) {
	if list == nil || list.Kind != ast.StatementList {
		return nil, b.internal(list, "expected statement list")
	}
	stmts := make([]Statement, 0, len(list.Children))
	for _, c := range list.Children {
		s, err := b.statement(c, flags)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func (b *Builder) block(list *ast.Node, flags contextFlags) (Block, error) {
	stmts, err := b.statements(list, flags)
	if err != nil {
		return Block{}, err
	}
	return Block{Statements: stmts, Breakable: flags&inBreakable != 0}, nil
}

// Count reports how many statements have been lowered so far.
func (b *Builder) Count() int {
	return b.count
}

func (b *Builder) statement(n *ast.Node, flags contextFlags) (Statement, error) {
	if n == nil {
		return nil, b.internal(n, "nil statement node")
	}
	b.count++
	switch n.Kind {
	case ast.Begin:
		return nil, b.semantic(n, "begin statements are only valid at top level.")
	case ast.End:
		return nil, b.semantic(n, "end statements are only valid at top level.")

	case ast.CondBlock:
		return b.condBlock(n, flags)
	case ast.IfHead:
		return b.ifChain(n, flags)
	case ast.While:
		return b.while(n, flags|inBreakable)
	case ast.DoWhile:
		return b.doWhile(n, flags|inBreakable)
	case ast.ForSrec:
		return b.forSrec(n, flags|inBreakable|inBindable)
	case ast.ForOosvar:
		return b.forOosvar(n, flags)
	case ast.Break:
		if flags&inBreakable == 0 {
			return nil, b.semantic(n, "break statements are only valid within for, while, or do-while.")
		}
		return &Break{}, nil
	case ast.Continue:
		if flags&inBreakable == 0 {
			return nil, b.semantic(n, "continue statements are only valid within for, while, or do-while.")
		}
		return &Continue{}, nil

	case ast.SrecAssignment:
		if flags&inBeginOrEnd != 0 {
			return nil, b.semantic(n, "assignments to $-variables are not valid within begin or end blocks.")
		}
		return b.srecAssignment(n, flags)
	case ast.IndirectSrecAssignment:
		if flags&inBeginOrEnd != 0 {
			return nil, b.semantic(n, "assignments to $-variables are not valid within begin or end blocks.")
		}
		return b.indirectSrecAssignment(n, flags)
	case ast.OosvarAssignment:
		return b.oosvarAssignment(n, flags)
	case ast.OosvarFromFullSrecAssignment:
		if flags&inBeginOrEnd != 0 {
			return nil, b.semantic(n, "assignments from $-variables are not valid within begin or end blocks.")
		}
		return b.oosvarFromFullSrec(n, flags)
	case ast.FullSrecFromOosvarAssignment:
		if flags&inBeginOrEnd != 0 {
			return nil, b.semantic(n, "assignments to $-variables are not valid within begin or end blocks.")
		}
		return b.fullSrecFromOosvar(n, flags)
	case ast.Unset:
		return b.unset(n, flags)

	case ast.TeeWrite, ast.TeeAppend:
		return b.tee(n, flags)
	case ast.Emitf, ast.EmitfWrite, ast.EmitfAppend:
		return b.emitf(n, flags)
	case ast.Emit, ast.Emitp, ast.EmitWrite, ast.EmitAppend, ast.EmitpWrite, ast.EmitpAppend:
		return b.emit(n, flags)
	case ast.EmitLashed, ast.EmitpLashed, ast.EmitLashedWrite, ast.EmitLashedAppend,
		ast.EmitpLashedWrite, ast.EmitpLashedAppend:
		return b.emitLashed(n, flags)
	case ast.Dump, ast.Edump, ast.DumpWrite, ast.DumpAppend:
		return b.dump(n, flags)
	case ast.Print, ast.Eprint, ast.Printn, ast.Eprintn,
		ast.PrintWrite, ast.PrintAppend, ast.PrintnWrite, ast.PrintnAppend:
		return b.print(n, flags)

	case ast.Filter:
		if len(n.Children) != 1 {
			return nil, b.internal(n, "filter with %d children", len(n.Children))
		}
		cond, err := b.expr(n.Children[0], flags)
		if err != nil {
			return nil, err
		}
		return &Filter{Cond: cond}, nil
	}
	// Anything else is an expression evaluated for its boolean value.
	e, err := b.expr(n, flags)
	if err != nil {
		return nil, err
	}
	return &BareBoolean{Expr: e}, nil
}

func (b *Builder) srecAssignment(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 2 || n.Children[0].Kind != ast.FieldName {
		return nil, b.internal(n, "malformed srec assignment")
	}
	rhs, err := b.expr(n.Children[1], flags)
	if err != nil {
		return nil, err
	}
	return &SrecAssign{Name: n.Children[0].Text, RHS: rhs}, nil
}

func (b *Builder) indirectSrecAssignment(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 2 {
		return nil, b.internal(n, "malformed indirect srec assignment")
	}
	name, err := b.expr(n.Children[0], flags)
	if err != nil {
		return nil, err
	}
	rhs, err := b.expr(n.Children[1], flags)
	if err != nil {
		return nil, err
	}
	return &IndirectSrecAssign{Name: name, RHS: rhs}, nil
}

func (b *Builder) oosvarAssignment(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 2 || n.Children[0].Kind != ast.OosvarKeylist {
		return nil, b.internal(n, "malformed oosvar assignment")
	}
	lhs, err := b.keylist(n.Children[0], flags)
	if err != nil {
		return nil, err
	}
	if rn := n.Children[1]; rn.Kind == ast.OosvarKeylist {
		src, err := b.keylist(rn, flags)
		if err != nil {
			return nil, err
		}
		return &OosvarCopy{Dst: lhs, Src: src}, nil
	}
	rhs, err := b.expr(n.Children[1], flags)
	if err != nil {
		return nil, err
	}
	return &OosvarAssign{Path: lhs, RHS: rhs}, nil
}

func (b *Builder) oosvarFromFullSrec(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 2 || n.Children[0].Kind != ast.OosvarKeylist || n.Children[1].Kind != ast.FullSrec {
		return nil, b.internal(n, "malformed oosvar-from-record assignment")
	}
	path, err := b.keylist(n.Children[0], flags)
	if err != nil {
		return nil, err
	}
	return &OosvarFromFullSrec{Path: path, Mode: b.mode}, nil
}

func (b *Builder) fullSrecFromOosvar(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 2 || n.Children[0].Kind != ast.FullSrec {
		return nil, b.internal(n, "malformed record-from-oosvar assignment")
	}
	path, err := b.keylist(n.Children[1], flags)
	if err != nil {
		return nil, err
	}
	return &FullSrecFromOosvar{Path: path}, nil
}

func (b *Builder) unset(n *ast.Node, flags contextFlags) (Statement, error) {
	stmt := &Unset{}
	for _, c := range n.Children {
		switch c.Kind {
		case ast.All, ast.FullOosvar:
			if len(n.Children) == 1 {
				return &UnsetAll{}, nil
			}
			stmt.Targets = append(stmt.Targets, VarArg{Kind: VarOosvarPath})
		case ast.FullSrec:
			if flags&inBeginOrEnd != 0 {
				return nil, b.semantic(c, "unset of $-variables is not valid within begin or end blocks.")
			}
			stmt.Targets = append(stmt.Targets, VarArg{Kind: VarFullRecord})
		case ast.FieldName:
			if flags&inBeginOrEnd != 0 {
				return nil, b.semantic(c, "unset of $-variables is not valid within begin or end blocks.")
			}
			stmt.Targets = append(stmt.Targets, VarArg{Kind: VarFieldName, Name: c.Text})
		case ast.IndirectFieldName:
			if flags&inBeginOrEnd != 0 {
				return nil, b.semantic(c, "unset of $-variables is not valid within begin or end blocks.")
			}
			if len(c.Children) != 1 {
				return nil, b.internal(c, "indirect field name with %d children", len(c.Children))
			}
			e, err := b.expr(c.Children[0], flags)
			if err != nil {
				return nil, err
			}
			stmt.Targets = append(stmt.Targets, VarArg{Kind: VarComputedField, Expr: e})
		case ast.OosvarKeylist:
			path, err := b.keylist(c, flags)
			if err != nil {
				return nil, err
			}
			stmt.Targets = append(stmt.Targets, VarArg{Kind: VarOosvarPath, Path: path})
		default:
			return nil, b.internal(c, "unhandled unset target %s", c.Kind)
		}
	}
	return stmt, nil
}

func (b *Builder) redirect(n *ast.Node, appendMode bool, flags contextFlags) (*Redirect, error) {
	target, err := b.expr(n, flags)
	if err != nil {
		return nil, err
	}
	return &Redirect{Target: target, Append: appendMode}, nil
}

func (b *Builder) tee(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 1 {
		return nil, b.internal(n, "tee with %d children", len(n.Children))
	}
	r, err := b.redirect(n.Children[0], n.Kind == ast.TeeAppend, flags)
	if err != nil {
		return nil, err
	}
	return &Tee{Redirect: *r}, nil
}

func (b *Builder) emitf(n *ast.Node, flags contextFlags) (Statement, error) {
	var r *Redirect
	if n.Kind != ast.Emitf {
		if len(n.Children) != 2 || n.Children[0].Kind != ast.Emitf {
			return nil, b.internal(n, "malformed redirected emitf")
		}
		var err error
		if r, err = b.redirect(n.Children[1], n.Kind == ast.EmitfAppend, flags); err != nil {
			return nil, err
		}
		n = n.Children[0]
	}
	stmt := &Emitf{Redirect: r}
	for _, c := range n.Children {
		if c.Kind != ast.OosvarKeylist || len(c.Children) != 1 || c.Children[0].Kind != ast.StringLiteral {
			return nil, b.semantic(c, `emitf arguments must be all non-indexed, e.g. @a but not @["a"] or @a[2].`)
		}
		name := c.Children[0].Text
		stmt.Targets = append(stmt.Targets, VarArg{
			Kind: VarOosvarPath,
			Name: name,
			Path: []Evaluator{Literal(Str(name))},
		})
	}
	return stmt, nil
}

// emitRedirect unwraps a write/append node into its inner emit node and
// the redirect it carries.
func (b *Builder) emitRedirect(n *ast.Node, flags contextFlags, inner ...ast.Kind) (*ast.Node, *Redirect, error) {
	for _, k := range inner {
		if n.Kind == k {
			return n, nil, nil
		}
	}
	if len(n.Children) != 2 {
		return nil, nil, b.internal(n, "redirected %s with %d children", n.Kind, len(n.Children))
	}
	body := n.Children[0]
	ok := false
	for _, k := range inner {
		ok = ok || body.Kind == k
	}
	if !ok {
		return nil, nil, b.internal(n, "redirected %s wraps %s", n.Kind, body.Kind)
	}
	appendMode := strings.HasSuffix(n.Kind.String(), "_append")
	r, err := b.redirect(n.Children[1], appendMode, flags)
	if err != nil {
		return nil, nil, err
	}
	return body, r, nil
}

func (b *Builder) emitNames(n *ast.Node, flags contextFlags) ([]Evaluator, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != ast.EmitNamelist {
		return nil, b.internal(n, "expected emit namelist, got %s", n.Kind)
	}
	names := make([]Evaluator, len(n.Children))
	for i, c := range n.Children {
		e, err := b.expr(c, flags)
		if err != nil {
			return nil, err
		}
		names[i] = e
	}
	return names, nil
}

func (b *Builder) emit(n *ast.Node, flags contextFlags) (Statement, error) {
	body, r, err := b.emitRedirect(n, flags, ast.Emit, ast.Emitp)
	if err != nil {
		return nil, err
	}
	if len(body.Children) < 1 || len(body.Children) > 2 {
		return nil, b.internal(body, "%s with %d children", body.Kind, len(body.Children))
	}
	stmt := &Emit{Prefixed: body.Kind == ast.Emitp, Redirect: r}
	switch target := body.Children[0]; target.Kind {
	case ast.All, ast.FullOosvar:
		stmt.All = true
	case ast.OosvarKeylist:
		if stmt.Path, err = b.keylist(target, flags); err != nil {
			return nil, err
		}
	default:
		return nil, b.internal(target, "unhandled emit target %s", target.Kind)
	}
	if stmt.Names, err = b.emitNames(body.Child(1), flags); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (b *Builder) emitLashed(n *ast.Node, flags contextFlags) (Statement, error) {
	body, r, err := b.emitRedirect(n, flags, ast.EmitLashed, ast.EmitpLashed)
	if err != nil {
		return nil, err
	}
	if len(body.Children) < 1 || len(body.Children) > 2 || body.Children[0].Kind != ast.LashedKeylists {
		return nil, b.internal(body, "malformed %s", body.Kind)
	}
	stmt := &EmitLashed{Prefixed: body.Kind == ast.EmitpLashed, Redirect: r}
	for _, kl := range body.Children[0].Children {
		path, err := b.keylist(kl, flags)
		if err != nil {
			return nil, err
		}
		stmt.Paths = append(stmt.Paths, path)
	}
	if stmt.Names, err = b.emitNames(body.Child(1), flags); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (b *Builder) dump(n *ast.Node, flags contextFlags) (Statement, error) {
	switch n.Kind {
	case ast.Dump:
		return &Dump{}, nil
	case ast.Edump:
		return &Dump{Stderr: true}, nil
	}
	if len(n.Children) != 1 {
		return nil, b.internal(n, "%s with %d children", n.Kind, len(n.Children))
	}
	r, err := b.redirect(n.Children[0], n.Kind == ast.DumpAppend, flags)
	if err != nil {
		return nil, err
	}
	return &Dump{Redirect: r}, nil
}

func (b *Builder) print(n *ast.Node, flags contextFlags) (Statement, error) {
	stmt := &Print{}
	want := 1
	switch n.Kind {
	case ast.Print:
		stmt.Newline = true
	case ast.Eprint:
		stmt.Newline, stmt.Stderr = true, true
	case ast.Eprintn:
		stmt.Stderr = true
	case ast.PrintWrite, ast.PrintAppend:
		stmt.Newline = true
		want = 2
	case ast.PrintnWrite, ast.PrintnAppend:
		want = 2
	}
	if len(n.Children) != want {
		return nil, b.internal(n, "%s with %d children", n.Kind, len(n.Children))
	}
	v, err := b.expr(n.Children[0], flags)
	if err != nil {
		return nil, err
	}
	stmt.Value = v
	if want == 2 {
		appendMode := n.Kind == ast.PrintAppend || n.Kind == ast.PrintnAppend
		if stmt.Redirect, err = b.redirect(n.Children[1], appendMode, flags); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (b *Builder) condBlock(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 2 {
		return nil, b.internal(n, "cond block with %d children", len(n.Children))
	}
	cond, err := b.expr(n.Children[0], flags)
	if err != nil {
		return nil, err
	}
	body, err := b.block(n.Children[1], flags)
	if err != nil {
		return nil, err
	}
	return &CondBlock{Cond: cond, Body: body}, nil
}

func (b *Builder) ifChain(n *ast.Node, flags contextFlags) (Statement, error) {
	stmt := &IfChain{}
	for i, item := range n.Children {
		if item.Kind != ast.IfItem {
			return nil, b.internal(item, "expected if item, got %s", item.Kind)
		}
		var it IfItem
		switch len(item.Children) {
		case 1:
			if i != len(n.Children)-1 {
				return nil, b.internal(item, "else arm is not last")
			}
		case 2:
			cond, err := b.expr(item.Children[0], flags)
			if err != nil {
				return nil, err
			}
			it.Cond = cond
		default:
			return nil, b.internal(item, "if item with %d children", len(item.Children))
		}
		body, err := b.block(item.Children[len(item.Children)-1], flags)
		if err != nil {
			return nil, err
		}
		it.Body = body
		stmt.Items = append(stmt.Items, it)
	}
	return stmt, nil
}

func (b *Builder) while(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 2 {
		return nil, b.internal(n, "while with %d children", len(n.Children))
	}
	cond, err := b.expr(n.Children[0], flags)
	if err != nil {
		return nil, err
	}
	body, err := b.block(n.Children[1], flags)
	if err != nil {
		return nil, err
	}
	return &While{Cond: cond, Body: body}, nil
}

func (b *Builder) doWhile(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 2 {
		return nil, b.internal(n, "do-while with %d children", len(n.Children))
	}
	body, err := b.block(n.Children[0], flags)
	if err != nil {
		return nil, err
	}
	cond, err := b.expr(n.Children[1], flags)
	if err != nil {
		return nil, err
	}
	return &DoWhile{Body: body, Cond: cond}, nil
}

func (b *Builder) forSrec(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 2 {
		return nil, b.internal(n, "for-srec with %d children", len(n.Children))
	}
	vars := n.Children[0]
	if vars.Kind != ast.ForVariables || len(vars.Children) != 2 {
		return nil, b.internal(vars, "malformed for-loop variables")
	}
	k, v := vars.Children[0].Text, vars.Children[1].Text
	if k == v {
		return nil, b.semantic(vars, "duplicate for-loop boundvars %q and %q.", k, v)
	}
	body, err := b.block(n.Children[1], flags)
	if err != nil {
		return nil, err
	}
	return &ForSrec{KeyName: k, ValueName: v, Mode: b.mode, Body: body, frame: newScopeFrame()}, nil
}

func (b *Builder) forOosvar(n *ast.Node, flags contextFlags) (Statement, error) {
	if len(n.Children) != 3 {
		return nil, b.internal(n, "for-oosvar with %d children", len(n.Children))
	}
	vars := n.Children[0]
	if vars.Kind != ast.ForVariables || len(vars.Children) != 2 || vars.Children[0].Kind != ast.KeyVariables {
		return nil, b.internal(vars, "malformed for-loop variables")
	}
	seen := map[string]bool{}
	var keys []string
	for _, kn := range vars.Children[0].Children {
		if seen[kn.Text] {
			return nil, b.semantic(kn, "duplicate for-loop boundvar %q.", kn.Text)
		}
		seen[kn.Text] = true
		keys = append(keys, kn.Text)
	}
	v := vars.Children[1].Text
	if seen[v] {
		return nil, b.semantic(vars.Children[1], "duplicate for-loop boundvar %q.", v)
	}
	path, err := b.keylist(n.Children[1], flags)
	if err != nil {
		return nil, err
	}
	body, err := b.block(n.Children[2], flags|inBreakable|inBindable)
	if err != nil {
		return nil, err
	}
	return &ForOosvar{KeyNames: keys, ValueName: v, Path: path, Body: body, frame: newScopeFrame()}, nil
}

func (b *Builder) semantic(n *ast.Node, format string, args ...any) error {
	e := &SemanticError{Msg: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Pos = n.Pos
	}
	return e
}

// internal tags the error with the builder source line that detected it.
func (b *Builder) internal(n *ast.Node, format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	detail := fmt.Sprintf(format, args...)
	if n != nil {
		detail = fmt.Sprintf("%s (node %q of type %s)", detail, n.Text, n.Kind)
	}
	return &InternalError{File: filepath.Base(file), Line: line, Detail: detail}
}
