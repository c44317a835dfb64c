package mruntime

import (
	"math"
	"regexp"

	"github.com/gosuda/mlrdsl/ast"
)

// Evaluator computes a scalar from the current state. Evaluators are built
// once per sub-expression and are safe to call any number of times.
type Evaluator interface {
	Evaluate(st *State) Value
}

type evalFunc func(st *State) Value

func (f evalFunc) Evaluate(st *State) Value {
	return f(st)
}

type literal struct {
	v Value
}

func (l literal) Evaluate(*State) Value {
	return l.v
}

// Literal returns an evaluator that always yields v.
func Literal(v Value) Evaluator {
	return literal{v: v}
}

func (b *Builder) expr(n *ast.Node, flags contextFlags) (Evaluator, error) {
	if n == nil {
		return nil, b.internal(n, "nil expression node")
	}
	mode := b.mode
	switch n.Kind {
	case ast.StringLiteral:
		return Literal(Str(n.Text)), nil
	case ast.StrnumLiteral:
		return Literal(Infer(n.Text, mode)), nil
	case ast.BooleanLiteral:
		switch n.Text {
		case "true":
			return Literal(Bool(true)), nil
		case "false":
			return Literal(Bool(false)), nil
		}
		return nil, b.internal(n, "boolean literal %q", n.Text)
	case ast.FieldName:
		name := n.Text
		return evalFunc(func(st *State) Value {
			return st.Field(name, mode)
		}), nil
	case ast.IndirectFieldName:
		if len(n.Children) != 1 {
			return nil, b.internal(n, "indirect field name with %d children", len(n.Children))
		}
		name, err := b.expr(n.Children[0], flags)
		if err != nil {
			return nil, err
		}
		return evalFunc(func(st *State) Value {
			nv := name.Evaluate(st)
			if nv.IsAbsent() || nv.IsError() {
				return nv
			}
			return st.Field(nv.String(), mode)
		}), nil
	case ast.OosvarKeylist:
		keys, err := b.keylist(n, flags)
		if err != nil {
			return nil, err
		}
		return evalFunc(func(st *State) Value {
			path, ok := evalKeys(keys, st)
			if !ok {
				return Absent()
			}
			return st.Vars.Get(path)
		}), nil
	case ast.FullSrec:
		return nil, b.semantic(n, "$* is not valid within scalar contexts.")
	case ast.FullOosvar, ast.All:
		return nil, b.semantic(n, "@* is not valid within scalar contexts.")
	case ast.ContextVariable:
		return b.contextVariable(n)
	case ast.BoundVariable:
		if flags&inBindable == 0 {
			return nil, b.semantic(n, "bound variable %q is only valid within for-loop bodies.", n.Text)
		}
		name := n.Text
		return evalFunc(func(st *State) Value {
			return st.Bound(name)
		}), nil
	case ast.FunctionCallsite:
		return b.functionCall(n, flags)
	case ast.Operator:
		return b.operator(n, flags)
	}
	return nil, b.internal(n, "unhandled expression node type %s", n.Kind)
}

func (b *Builder) contextVariable(n *ast.Node) (Evaluator, error) {
	switch n.Text {
	case "NR":
		return evalFunc(func(st *State) Value { return Int(st.Context.NR) }), nil
	case "FNR":
		return evalFunc(func(st *State) Value { return Int(st.Context.FNR) }), nil
	case "NF":
		return evalFunc(func(st *State) Value { return Int(int64(st.Record.Len())) }), nil
	case "FILENAME":
		return evalFunc(func(st *State) Value {
			if st.Context.Filename == "" {
				return Absent()
			}
			return Str(st.Context.Filename)
		}), nil
	case "M_PI":
		return Literal(Float(math.Pi)), nil
	case "M_E":
		return Literal(Float(math.E)), nil
	}
	return nil, b.internal(n, "unknown context variable %q", n.Text)
}

// keylist lowers an oosvar_keylist node: the first child names the variable,
// later children index into it.
func (b *Builder) keylist(n *ast.Node, flags contextFlags) ([]Evaluator, error) {
	if n.Kind == ast.FullOosvar || n.Kind == ast.All {
		return nil, nil
	}
	if n.Kind != ast.OosvarKeylist {
		return nil, b.internal(n, "expected oosvar keylist, got %s", n.Kind)
	}
	keys := make([]Evaluator, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Kind == ast.StringLiteral {
			keys = append(keys, Literal(Str(c.Text)))
			continue
		}
		e, err := b.expr(c, flags)
		if err != nil {
			return nil, err
		}
		keys = append(keys, e)
	}
	return keys, nil
}

// evalKeys evaluates a key path. Any absent or error key makes the path
// unusable.
func evalKeys(keys []Evaluator, st *State) ([]Value, bool) {
	path := make([]Value, len(keys))
	for i, k := range keys {
		v := k.Evaluate(st)
		if v.IsAbsent() || v.IsError() {
			return nil, false
		}
		path[i] = v
	}
	return path, true
}

// evalNames evaluates emit names to strings; any absent or error name
// cancels the emit.
func evalNames(names []Evaluator, st *State) ([]string, bool) {
	out := make([]string, len(names))
	for i, n := range names {
		v := n.Evaluate(st)
		if v.IsAbsent() || v.IsError() {
			return nil, false
		}
		out[i] = v.String()
	}
	return out, true
}

func (b *Builder) operator(n *ast.Node, flags contextFlags) (Evaluator, error) {
	args := make([]Evaluator, len(n.Children))
	for i, c := range n.Children {
		e, err := b.expr(c, flags)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	switch len(args) {
	case 1:
		fn, ok := unaryOps[n.Text]
		if !ok {
			return nil, b.internal(n, "unknown unary operator %q", n.Text)
		}
		a := args[0]
		return evalFunc(func(st *State) Value {
			return fn(a.Evaluate(st))
		}), nil
	case 2:
		return b.binary(n, args[0], args[1])
	case 3:
		if n.Text != "?:" {
			return nil, b.internal(n, "unknown ternary operator %q", n.Text)
		}
		c, t, f := args[0], args[1], args[2]
		return evalFunc(func(st *State) Value {
			cv := c.Evaluate(st)
			v, ok := cv.AsBool()
			if !ok {
				return Error("ternary condition is not boolean")
			}
			if v {
				return t.Evaluate(st)
			}
			return f.Evaluate(st)
		}), nil
	}
	return nil, b.internal(n, "operator %q with %d operands", n.Text, len(args))
}

func (b *Builder) binary(n *ast.Node, l, r Evaluator) (Evaluator, error) {
	switch n.Text {
	case "&&":
		return evalFunc(func(st *State) Value { return logicalAnd(l, r, st) }), nil
	case "||":
		return evalFunc(func(st *State) Value { return logicalOr(l, r, st) }), nil
	case "=~", "!=~":
		negate := n.Text == "!=~"
		if lit, ok := r.(literal); ok {
			re, err := regexp.Compile(lit.v.String())
			if err != nil {
				return nil, b.semantic(n, "invalid regular expression %q: %v", lit.v.String(), err)
			}
			return evalFunc(func(st *State) Value {
				return regexMatch(l.Evaluate(st), re, negate)
			}), nil
		}
		return evalFunc(func(st *State) Value {
			pv := r.Evaluate(st)
			if pv.IsAbsent() || pv.IsError() {
				return pv
			}
			re, err := regexp.Compile(pv.String())
			if err != nil {
				return Error("invalid regular expression")
			}
			return regexMatch(l.Evaluate(st), re, negate)
		}), nil
	}
	fn, ok := binaryOps[n.Text]
	if !ok {
		return nil, b.internal(n, "unknown binary operator %q", n.Text)
	}
	return evalFunc(func(st *State) Value {
		return fn(l.Evaluate(st), r.Evaluate(st))
	}), nil
}

func regexMatch(v Value, re *regexp.Regexp, negate bool) Value {
	if v.IsAbsent() || v.IsError() {
		return v
	}
	return Bool(re.MatchString(v.String()) != negate)
}

func logicalAnd(l, r Evaluator, st *State) Value {
	lv := l.Evaluate(st)
	if lv.IsError() {
		return lv
	}
	if !lv.IsAbsent() {
		a, ok := lv.AsBool()
		if !ok {
			return Error("&& operand is not boolean")
		}
		if !a {
			return Bool(false)
		}
	}
	rv := r.Evaluate(st)
	if rv.IsAbsent() || rv.IsError() {
		if lv.IsAbsent() {
			return rv
		}
		return lv
	}
	c, ok := rv.AsBool()
	if !ok {
		return Error("&& operand is not boolean")
	}
	return Bool(c)
}

func logicalOr(l, r Evaluator, st *State) Value {
	lv := l.Evaluate(st)
	if lv.IsError() {
		return lv
	}
	if !lv.IsAbsent() {
		a, ok := lv.AsBool()
		if !ok {
			return Error("|| operand is not boolean")
		}
		if a {
			return Bool(true)
		}
	}
	rv := r.Evaluate(st)
	if rv.IsAbsent() || rv.IsError() {
		if lv.IsAbsent() {
			return rv
		}
		return lv
	}
	c, ok := rv.AsBool()
	if !ok {
		return Error("|| operand is not boolean")
	}
	return Bool(c)
}
