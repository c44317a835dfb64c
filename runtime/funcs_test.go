package mruntime

import (
	"slices"
	"strings"
	"testing"
)

func call(t *testing.T, name string, args ...Value) Value {
	t.Helper()
	f, ok := builtins[name]
	if !ok {
		t.Fatalf("no builtin %q", name)
	}
	return f.fn(args)
}

func TestStringFunctions(t *testing.T) {
	tests := []struct {
		name string
		args []Value
		want string
	}{
		{"strlen", []Value{Str("héllo")}, "5"},
		{"toupper", []Value{Str("abc")}, "ABC"},
		{"capitalize", []Value{Str("élan")}, "Élan"},
		{"strip", []Value{Str("  a b  ")}, "a b"},
		{"lstrip", []Value{Str("  a ")}, "a "},
		{"rstrip", []Value{Str(" a  ")}, " a"},
		{"sub", []Value{Str("banana"), Str("a"), Str("o")}, "bonana"},
		{"gsub", []Value{Str("banana"), Str("a"), Str("o")}, "bonono"},
		{"sub", []Value{Str("abcde"), Str("(b)(c)"), Str("<\\2\\1>")}, "a<cb>de"},
		{"gsub", []Value{Str("a.b.c"), Str("\\."), Str("")}, "abc"},
		{"sub", []Value{Str("xyz"), Str("q"), Str("r")}, "xyz"},
		{"string", []Value{Int(3)}, "3"},
		{"hexfmt", []Value{Int(255)}, "0xff"},
		{"typeof", []Value{Str("")}, "empty"},
		{"typeof", []Value{Absent()}, "absent"},
		{"typeof", []Value{Float(1)}, "float"},
	}
	for _, tt := range tests {
		if got := call(t, tt.name, tt.args...); got.String() != tt.want {
			t.Errorf("%s(%v) = %q, want %q", tt.name, tt.args, got, tt.want)
		}
	}
}

func TestSubWithBadRegex(t *testing.T) {
	if got := call(t, "sub", Str("x"), Str("("), Str("y")); !got.IsError() {
		t.Fatalf("expected error value, got %s", got.Kind())
	}
}

func TestMathFunctions(t *testing.T) {
	tests := []struct {
		name string
		arg  Value
		want string
		kind ValueKind
	}{
		{"abs", Int(-3), "3", IntKind},
		{"abs", Float(-1.5), "1.5", FloatKind},
		{"floor", Float(2.7), "2", FloatKind},
		{"floor", Int(2), "2", IntKind},
		{"ceiling", Float(2.1), "3", FloatKind},
		{"round", Float(2.5), "3", FloatKind},
		{"sqrt", Int(16), "4", FloatKind},
		{"int", Float(-2.9), "-2", IntKind},
		{"int", Str("0x10"), "16", IntKind},
		{"float", Int(2), "2", FloatKind},
		{"boolean", Int(0), "false", BooleanKind},
		{"boolean", Str("true"), "true", BooleanKind},
	}
	for _, tt := range tests {
		got := call(t, tt.name, tt.arg)
		if got.String() != tt.want || got.Kind() != tt.kind {
			t.Errorf("%s(%s) = %s (%s), want %s (%s)", tt.name, tt.arg, got, got.Kind(), tt.want, tt.kind)
		}
	}
	if got := call(t, "sqrt", Str("abc")); !got.IsError() {
		t.Fatalf("expected error for sqrt of a string")
	}
	if got := call(t, "int", Str("abc")); !got.IsError() {
		t.Fatalf("expected error for int of a string")
	}
}

func TestMinMax(t *testing.T) {
	if got := call(t, "max", Int(1), Float(2.5), Absent(), Int(2)); got.String() != "2.5" {
		t.Fatalf("max = %q", got)
	}
	if got := call(t, "min", Int(4), Str(""), Int(-1)); got.String() != "-1" {
		t.Fatalf("min = %q", got)
	}
	if got := call(t, "min"); !got.IsAbsent() {
		t.Fatalf("min() should be absent, got %s", got.Kind())
	}
	if got := call(t, "max", Int(1), Str("x")); !got.IsError() {
		t.Fatalf("expected error for non-numeric argument")
	}
}

func TestFmtnum(t *testing.T) {
	tests := []struct {
		v      Value
		format string
		want   string
	}{
		{Float(3.14159), "%.2f", "3.14"},
		{Float(3.14159), "%08.3lf", "0003.142"},
		{Int(17), "%d", "17"},
		{Int(17), "%lld", "17"},
		{Int(255), "%x", "ff"},
		{Int(255), "%08llx", "000000ff"},
		{Float(2.9), "%d", "2"},
		{Int(5), "%.1f", "5.0"},
		{Int(5), "[%d%%]", "[5%]"},
	}
	for _, tt := range tests {
		if got := call(t, "fmtnum", tt.v, Str(tt.format)); got.String() != tt.want {
			t.Errorf("fmtnum(%s, %q) = %q, want %q", tt.v, tt.format, got, tt.want)
		}
	}
	for _, format := range []string{"%d %d", "%", "%s", "plain"} {
		if got := call(t, "fmtnum", Int(1), Str(format)); !got.IsError() {
			t.Errorf("fmtnum with %q should fail, got %q", format, got)
		}
	}
	if got := call(t, "fmtnum", Str("abc"), Str("%d")); !got.IsError() {
		t.Fatalf("fmtnum of a string should fail")
	}
	if got := call(t, "fmtnum", Absent(), Str("%d")); !got.IsAbsent() {
		t.Fatalf("fmtnum of absent should be absent")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		arg  Value
		want bool
	}{
		{"is_present", Str(""), true},
		{"is_absent", Absent(), true},
		{"is_empty", Str(""), true},
		{"is_empty", Absent(), false},
		{"is_not_empty", Str("x"), true},
		{"is_not_empty", Absent(), false},
		{"is_string", Str("x"), true},
		{"is_numeric", Infer("1e5", InferStringFloatInt), true},
	}
	for _, tt := range tests {
		b, ok := call(t, tt.name, tt.arg).AsBool()
		if !ok || b != tt.want {
			t.Errorf("%s(%s) = %v, want %v", tt.name, tt.arg, b, tt.want)
		}
	}
	if got := call(t, "asserting_not_null", Str("")); !got.IsError() {
		t.Fatalf("expected error for empty value")
	}
}

func TestFunctionNamesSortedWithUsage(t *testing.T) {
	names := FunctionNames()
	if !slices.IsSorted(names) {
		t.Fatalf("names not sorted")
	}
	for _, n := range names {
		help, ok := FunctionUsage(n)
		if !ok || !strings.HasPrefix(help, n+"(") {
			t.Errorf("function %s has bad usage %q", n, help)
		}
	}
	if _, ok := FunctionUsage("nosuch"); ok {
		t.Fatalf("unexpected usage for unknown function")
	}
}

func TestKeywordUsage(t *testing.T) {
	for _, k := range Keywords() {
		text, ok := KeywordUsage(k)
		if !ok || !strings.HasPrefix(text, k+":") {
			t.Errorf("keyword %s has bad usage %q", k, text)
		}
	}
	var b strings.Builder
	if err := WriteKeywordUsage(&b, "emitp"); err != nil {
		t.Fatalf("usage failed: %v", err)
	}
	if !strings.Contains(b.String(), "flatten separator") {
		t.Fatalf("unexpected emitp usage %q", b.String())
	}
	b.Reset()
	if err := WriteKeywordUsage(&b, "strlen"); err != nil {
		t.Fatalf("function usage failed: %v", err)
	}
	if !strings.HasPrefix(b.String(), "strlen(s)") {
		t.Fatalf("unexpected strlen usage %q", b.String())
	}
	b.Reset()
	if err := WriteKeywordUsage(&b, ""); err != nil {
		t.Fatalf("full usage failed: %v", err)
	}
	for _, k := range Keywords() {
		if !strings.Contains(b.String(), k+":") {
			t.Errorf("full usage misses %s", k)
		}
	}
	if err := WriteKeywordUsage(&b, "nosuch"); err == nil {
		t.Fatalf("expected error for unknown keyword")
	}
}
