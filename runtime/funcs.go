package mruntime

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gosuda/mlrdsl/ast"
)

type builtin struct {
	name    string
	minArgs int
	maxArgs int // -1 for variadic
	fn      func(args []Value) Value
	help    string
}

var builtins = map[string]*builtin{}

func register(b *builtin) {
	builtins[b.name] = b
}

// FunctionNames lists the built-in functions in sorted order.
func FunctionNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FunctionUsage returns the help line of a built-in function.
func FunctionUsage(name string) (string, bool) {
	f, ok := builtins[name]
	if !ok {
		return "", false
	}
	return f.help, true
}

func (b *Builder) functionCall(n *ast.Node, flags contextFlags) (Evaluator, error) {
	f, ok := builtins[n.Text]
	if !ok {
		return nil, b.semantic(n, "function name not found: %s", n.Text)
	}
	argc := len(n.Children)
	if argc < f.minArgs || (f.maxArgs >= 0 && argc > f.maxArgs) {
		return nil, b.semantic(n, "function %s invoked with %d argument(s); expected %s.", n.Text, argc, arityText(f))
	}
	args := make([]Evaluator, argc)
	for i, c := range n.Children {
		e, err := b.expr(c, flags)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	fn := f.fn
	return evalFunc(func(st *State) Value {
		vals := make([]Value, len(args))
		for i, a := range args {
			vals[i] = a.Evaluate(st)
		}
		return fn(vals)
	}), nil
}

func arityText(f *builtin) string {
	switch {
	case f.maxArgs < 0:
		return fmt.Sprintf("at least %d", f.minArgs)
	case f.minArgs == f.maxArgs:
		return strconv.Itoa(f.minArgs)
	}
	return fmt.Sprintf("%d to %d", f.minArgs, f.maxArgs)
}

// stringFunc lifts a string transform; absent and error pass through.
func stringFunc(fn func(string) string) func([]Value) Value {
	return func(args []Value) Value {
		a := args[0]
		if a.IsAbsent() || a.IsError() {
			return a
		}
		return Str(fn(a.String()))
	}
}

// mathFunc lifts a float transform; ints whose result is integral stay int
// when keepInt is set.
func mathFunc(fn func(float64) float64, keepInt bool) func([]Value) Value {
	return func(args []Value) Value {
		a := args[0]
		if a.IsAbsent() || a.IsError() || a.IsNull() {
			return a
		}
		if !a.IsNumeric() {
			return Error("math function on non-numeric value")
		}
		if keepInt && a.kind == IntKind {
			return a.normalized()
		}
		return Float(fn(a.Float64()))
	}
}

func predicate(fn func(Value) bool) func([]Value) Value {
	return func(args []Value) Value {
		return Bool(fn(args[0]))
	}
}

func init() {
	register(&builtin{name: "strlen", minArgs: 1, maxArgs: 1, help: "strlen(s): string length in characters.",
		fn: func(args []Value) Value {
			a := args[0]
			if a.IsAbsent() || a.IsError() {
				return a
			}
			return Int(int64(utf8.RuneCountInString(a.String())))
		}})
	register(&builtin{name: "toupper", minArgs: 1, maxArgs: 1, help: "toupper(s): uppercase.", fn: stringFunc(strings.ToUpper)})
	register(&builtin{name: "tolower", minArgs: 1, maxArgs: 1, help: "tolower(s): lowercase.", fn: stringFunc(strings.ToLower)})
	register(&builtin{name: "capitalize", minArgs: 1, maxArgs: 1, help: "capitalize(s): uppercase the first character.",
		fn: stringFunc(func(s string) string {
			r, size := utf8.DecodeRuneInString(s)
			if size == 0 {
				return s
			}
			return string(unicode.ToUpper(r)) + s[size:]
		})})
	register(&builtin{name: "lstrip", minArgs: 1, maxArgs: 1, help: "lstrip(s): strip leading whitespace.",
		fn: stringFunc(func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) })})
	register(&builtin{name: "rstrip", minArgs: 1, maxArgs: 1, help: "rstrip(s): strip trailing whitespace.",
		fn: stringFunc(func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) })})
	register(&builtin{name: "strip", minArgs: 1, maxArgs: 1, help: "strip(s): strip leading and trailing whitespace.",
		fn: stringFunc(strings.TrimSpace)})
	register(&builtin{name: "sub", minArgs: 3, maxArgs: 3, help: "sub(s, regex, replacement): replace the first match.", fn: regexSub(false)})
	register(&builtin{name: "gsub", minArgs: 3, maxArgs: 3, help: "gsub(s, regex, replacement): replace all matches.", fn: regexSub(true)})

	register(&builtin{name: "abs", minArgs: 1, maxArgs: 1, help: "abs(x): absolute value.",
		fn: func(args []Value) Value {
			a := args[0]
			if a.kind == IntKind {
				if a.i < 0 {
					return Int(-a.i)
				}
				return a.normalized()
			}
			return mathFunc(math.Abs, false)(args)
		}})
	register(&builtin{name: "ceiling", minArgs: 1, maxArgs: 1, help: "ceiling(x): round up.", fn: mathFunc(math.Ceil, true)})
	register(&builtin{name: "floor", minArgs: 1, maxArgs: 1, help: "floor(x): round down.", fn: mathFunc(math.Floor, true)})
	register(&builtin{name: "round", minArgs: 1, maxArgs: 1, help: "round(x): round to nearest.", fn: mathFunc(math.Round, true)})
	register(&builtin{name: "sqrt", minArgs: 1, maxArgs: 1, help: "sqrt(x): square root.", fn: mathFunc(math.Sqrt, false)})
	register(&builtin{name: "exp", minArgs: 1, maxArgs: 1, help: "exp(x): e to the x.", fn: mathFunc(math.Exp, false)})
	register(&builtin{name: "log", minArgs: 1, maxArgs: 1, help: "log(x): natural logarithm.", fn: mathFunc(math.Log, false)})
	register(&builtin{name: "min", minArgs: 0, maxArgs: -1, help: "min(a, b, ...): numeric minimum; absent arguments are ignored.",
		fn: extremum(func(c int) bool { return c < 0 })})
	register(&builtin{name: "max", minArgs: 0, maxArgs: -1, help: "max(a, b, ...): numeric maximum; absent arguments are ignored.",
		fn: extremum(func(c int) bool { return c > 0 })})

	register(&builtin{name: "int", minArgs: 1, maxArgs: 1, help: "int(x): convert to integer, truncating floats.", fn: toInt})
	register(&builtin{name: "float", minArgs: 1, maxArgs: 1, help: "float(x): convert to float.", fn: toFloat})
	register(&builtin{name: "boolean", minArgs: 1, maxArgs: 1, help: "boolean(x): convert to boolean.", fn: toBoolean})
	register(&builtin{name: "string", minArgs: 1, maxArgs: 1, help: "string(x): convert to string.",
		fn: func(args []Value) Value {
			a := args[0]
			if a.IsAbsent() || a.IsError() {
				return a
			}
			return Str(a.String())
		}})
	register(&builtin{name: "hexfmt", minArgs: 1, maxArgs: 1, help: "hexfmt(n): format an integer as 0x-prefixed hex.",
		fn: func(args []Value) Value {
			a := args[0]
			if a.kind != IntKind {
				return a
			}
			return Str("0x" + strconv.FormatUint(uint64(a.i), 16))
		}})
	register(&builtin{name: "fmtnum", minArgs: 2, maxArgs: 2, help: `fmtnum(x, "%08.3lf"): printf-style number formatting.`, fn: fmtnum})
	register(&builtin{name: "typeof", minArgs: 1, maxArgs: 1, help: "typeof(x): type name of x.",
		fn: func(args []Value) Value {
			a := args[0]
			if a.kind == StringKind && a.s == "" {
				return Str("empty")
			}
			return Str(a.kind.String())
		}})
	register(&builtin{name: "is_present", minArgs: 1, maxArgs: 1, help: "is_present(x): true unless x is absent.", fn: predicate(Value.IsPresent)})
	register(&builtin{name: "is_absent", minArgs: 1, maxArgs: 1, help: "is_absent(x): true if x is absent.", fn: predicate(Value.IsAbsent)})
	register(&builtin{name: "is_empty", minArgs: 1, maxArgs: 1, help: "is_empty(x): true if x is present and empty.",
		fn: predicate(func(v Value) bool { return v.kind == StringKind && v.s == "" })})
	register(&builtin{name: "is_not_empty", minArgs: 1, maxArgs: 1, help: "is_not_empty(x): true if x is present and not empty.",
		fn: predicate(func(v Value) bool { return v.IsPresent() && !v.IsNull() })})
	register(&builtin{name: "is_string", minArgs: 1, maxArgs: 1, help: "is_string(x): true for non-numeric strings.",
		fn: predicate(func(v Value) bool { return v.kind == StringKind })})
	register(&builtin{name: "is_numeric", minArgs: 1, maxArgs: 1, help: "is_numeric(x): true for ints and floats.", fn: predicate(Value.IsNumeric)})
	register(&builtin{name: "asserting_not_null", minArgs: 1, maxArgs: 1, help: "asserting_not_null(x): x, or an error value if x is absent or empty.",
		fn: func(args []Value) Value {
			if args[0].IsNull() {
				return Error("asserting_not_null: value is null")
			}
			return args[0]
		}})
	register(&builtin{name: "systime", minArgs: 0, maxArgs: 0, help: "systime(): seconds since the epoch, as a float.",
		fn: func([]Value) Value {
			return Float(float64(time.Now().UnixNano()) / 1e9)
		}})
}

func regexSub(all bool) func([]Value) Value {
	return func(args []Value) Value {
		for _, a := range args {
			if a.IsAbsent() || a.IsError() {
				return a
			}
		}
		re, err := regexp.Compile(args[1].String())
		if err != nil {
			return Error("invalid regular expression")
		}
		s, repl := args[0].String(), args[2].String()
		repl = strings.NewReplacer(`\0`, "${0}", `\1`, "${1}", `\2`, "${2}", `\3`, "${3}",
			`\4`, "${4}", `\5`, "${5}", `\6`, "${6}", `\7`, "${7}", `\8`, "${8}", `\9`, "${9}").Replace(repl)
		if all {
			return Str(re.ReplaceAllString(s, repl))
		}
		loc := re.FindStringSubmatchIndex(s)
		if loc == nil {
			return Str(s)
		}
		var dst []byte
		dst = re.ExpandString(dst, repl, s, loc)
		return Str(s[:loc[0]] + string(dst) + s[loc[1]:])
	}
}

func extremum(better func(int) bool) func([]Value) Value {
	return func(args []Value) Value {
		best := Absent()
		for _, a := range args {
			switch {
			case a.IsError():
				return a
			case a.IsAbsent():
				continue
			case !a.IsNumeric() && !a.IsNull():
				return Error("min/max of non-numeric value")
			case a.IsNull():
				continue
			}
			if best.IsAbsent() || better(collate(a, best)) {
				best = a
			}
		}
		return best
	}
}

func toInt(args []Value) Value {
	a := args[0]
	switch a.kind {
	case IntKind:
		return a.normalized()
	case FloatKind:
		return Int(int64(a.f))
	case BooleanKind:
		return Int(a.Int64())
	case StringKind:
		if a.s == "" {
			return a
		}
		if n := Infer(a.s, InferStringFloatInt); n.IsNumeric() {
			return toInt([]Value{n})
		}
		return Error("int of non-numeric value")
	}
	return a
}

func toFloat(args []Value) Value {
	a := args[0]
	switch a.kind {
	case IntKind, FloatKind:
		return Float(a.Float64())
	case BooleanKind:
		return Float(float64(a.Int64()))
	case StringKind:
		if a.s == "" {
			return a
		}
		if n := Infer(a.s, InferStringFloatInt); n.IsNumeric() {
			return Float(n.Float64())
		}
		return Error("float of non-numeric value")
	}
	return a
}

func toBoolean(args []Value) Value {
	a := args[0]
	switch a.kind {
	case BooleanKind:
		return a
	case IntKind:
		return Bool(a.i != 0)
	case FloatKind:
		return Bool(a.f != 0)
	case StringKind:
		if b, ok := a.AsBool(); ok {
			return Bool(b)
		}
		if a.s == "" {
			return a
		}
		return Error("boolean of non-boolean string")
	}
	return a
}

// fmtnum accepts C-style formats, including the l and ll length modifiers.
func fmtnum(args []Value) Value {
	v, f := args[0], args[1]
	if v.IsAbsent() || v.IsError() {
		return v
	}
	if f.IsAbsent() || f.IsError() {
		return f
	}
	if !v.IsNumeric() {
		return Error("fmtnum of non-numeric value")
	}
	format := strings.NewReplacer("lld", "d", "llx", "x", "ld", "d", "lx", "x", "lf", "f", "le", "e", "lg", "g").Replace(f.String())
	verb, ok := formatVerb(format)
	if !ok {
		return Error("fmtnum: invalid format")
	}
	switch verb {
	case 'd', 'x', 'X', 'o', 'b':
		return Str(fmt.Sprintf(format, v.Int64()))
	case 'f', 'e', 'E', 'g', 'G':
		return Str(fmt.Sprintf(format, v.Float64()))
	}
	return Error("fmtnum: unsupported format verb")
}

// formatVerb finds the single conversion verb of a printf format.
func formatVerb(format string) (byte, bool) {
	var verb byte
	found := false
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		if found {
			return 0, false
		}
		j := i + 1
		for j < len(format) && strings.IndexByte("0123456789.-+ #", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			return 0, false
		}
		verb = format[j]
		found = true
		i = j
	}
	return verb, found
}
