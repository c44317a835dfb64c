package mruntime

import (
	"math"
	"testing"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		text string
		mode InferMode
		kind ValueKind
	}{
		{"12", InferStringFloatInt, IntKind},
		{"-12", InferStringFloatInt, IntKind},
		{"0x10", InferStringFloatInt, IntKind},
		{"0b101", InferStringFloatInt, IntKind},
		{"1.5", InferStringFloatInt, FloatKind},
		{".5", InferStringFloatInt, FloatKind},
		{"1e3", InferStringFloatInt, FloatKind},
		{"abc", InferStringFloatInt, StringKind},
		{"inf", InferStringFloatInt, StringKind},
		{"1_000", InferStringFloatInt, StringKind},
		{"", InferStringFloatInt, StringKind},
		{"12", InferStringFloat, FloatKind},
		{"12", InferString, StringKind},
		{"99999999999999999999", InferStringFloatInt, FloatKind},
	}
	for _, tt := range tests {
		if got := Infer(tt.text, tt.mode).Kind(); got != tt.kind {
			t.Errorf("Infer(%q, %s) kind = %s, want %s", tt.text, tt.mode, got, tt.kind)
		}
	}
}

func TestInferredTextSurvivesUntilModified(t *testing.T) {
	v := Infer("0x10", InferStringFloatInt)
	if v.String() != "0x10" {
		t.Fatalf("expected original text, got %q", v.String())
	}
	if v.Int64() != 16 {
		t.Fatalf("unexpected int value %d", v.Int64())
	}
	if got := binaryOps["+"](v, Int(1)).String(); got != "17" {
		t.Fatalf("expected 17, got %q", got)
	}
	if got := Infer("1.50", InferStringFloatInt).String(); got != "1.50" {
		t.Fatalf("expected 1.50, got %q", got)
	}
}

func TestParseInferMode(t *testing.T) {
	for in, want := range map[string]InferMode{
		"int":    InferStringFloatInt,
		"":       InferStringFloatInt,
		"float":  InferStringFloat,
		"String": InferString,
	} {
		got, ok := ParseInferMode(in)
		if !ok || got != want {
			t.Errorf("ParseInferMode(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseInferMode("hex"); ok {
		t.Fatalf("expected hex to be rejected")
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		op   string
		a, b Value
		want string
		kind ValueKind
	}{
		{"+", Int(1), Int(2), "3", IntKind},
		{"+", Int(1), Float(0.5), "1.5", FloatKind},
		{"-", Int(1), Int(5), "-4", IntKind},
		{"*", Int(6), Int(7), "42", IntKind},
		{"/", Int(6), Int(2), "3", IntKind},
		{"/", Int(7), Int(2), "3.5", FloatKind},
		{"//", Int(7), Int(2), "3", IntKind},
		{"//", Int(-7), Int(2), "-4", IntKind},
		{"%", Int(-7), Int(5), "3", IntKind},
		{"%", Int(7), Int(-5), "-3", IntKind},
		{"**", Int(2), Int(10), "1024", IntKind},
		{"**", Int(2), Int(-1), "0.5", FloatKind},
		{".", Str("a"), Int(1), "a1", StringKind},
		{"&", Int(6), Int(3), "2", IntKind},
		{"|", Int(6), Int(3), "7", IntKind},
		{"^", Int(6), Int(3), "5", IntKind},
		{"<<", Int(1), Int(4), "16", IntKind},
		{">>", Int(-16), Int(2), "-4", IntKind},
	}
	for _, tt := range tests {
		got := binaryOps[tt.op](tt.a, tt.b)
		if got.String() != tt.want || got.Kind() != tt.kind {
			t.Errorf("%s %s %s = %s (%s), want %s (%s)", tt.a, tt.op, tt.b, got, got.Kind(), tt.want, tt.kind)
		}
	}
}

func TestIntOverflowBecomesFloat(t *testing.T) {
	if got := binaryOps["+"](Int(math.MaxInt64), Int(1)); got.Kind() != FloatKind {
		t.Fatalf("expected float on overflow, got %s", got.Kind())
	}
	if got := binaryOps["*"](Int(math.MaxInt64), Int(2)); got.Kind() != FloatKind {
		t.Fatalf("expected float on overflow, got %s", got.Kind())
	}
	if got := binaryOps["**"](Int(3), Int(50)); got.Kind() != FloatKind {
		t.Fatalf("expected float on overflow, got %s", got.Kind())
	}
}

func TestAbsentAndEmptyRules(t *testing.T) {
	if got := binaryOps["+"](Absent(), Int(4)); got.String() != "4" {
		t.Fatalf("absent + 4 = %q", got)
	}
	if got := binaryOps["-"](Int(4), Absent()); got.String() != "4" {
		t.Fatalf("4 - absent = %q", got)
	}
	if got := binaryOps["+"](Absent(), Absent()); !got.IsAbsent() {
		t.Fatalf("absent + absent = %s", got.Kind())
	}
	if got := binaryOps["+"](Str(""), Int(4)); got.Kind() != StringKind || got.String() != "" {
		t.Fatalf("empty + 4 = %q (%s)", got, got.Kind())
	}
	if got := binaryOps["+"](Str("abc"), Int(4)); !got.IsError() {
		t.Fatalf("expected error for non-numeric operand, got %s", got.Kind())
	}
	if got := binaryOps["."](Absent(), Int(4)); got.Kind() != StringKind || got.String() != "4" {
		t.Fatalf("absent . 4 = %q (%s)", got, got.Kind())
	}
	if got := binaryOps["<"](Absent(), Int(4)); !got.IsAbsent() {
		t.Fatalf("comparison with absent should be absent, got %s", got.Kind())
	}
	if got := binaryOps["+"](Error("boom"), Int(1)); got.ErrorText() != "boom" {
		t.Fatalf("error did not propagate: %q", got.ErrorText())
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		op   string
		a, b Value
		want bool
	}{
		{"<", Int(9), Int(10), true},
		{"<", Int(9), Float(9.5), true},
		{"==", Int(2), Float(2), true},
		{"<", Str("abc"), Str("abd"), true},
		{"<", Int(10), Str("9"), true},
		{"!=", Str("x"), Str("x"), false},
		{">=", Float(1.5), Int(1), true},
	}
	for _, tt := range tests {
		got := binaryOps[tt.op](tt.a, tt.b)
		b, ok := got.AsBool()
		if !ok || b != tt.want {
			t.Errorf("%s %s %s = %s, want %v", tt.a, tt.op, tt.b, got, tt.want)
		}
	}
}

func TestUnaryOperators(t *testing.T) {
	if got := unaryOps["-"](Int(3)); got.String() != "-3" {
		t.Fatalf("-3 = %q", got)
	}
	if got := unaryOps["!"](Str("true")); got.String() != "false" {
		t.Fatalf("!true = %q", got)
	}
	if got := unaryOps["!"](Int(1)); !got.IsError() {
		t.Fatalf("expected error for !1, got %s", got.Kind())
	}
	if got := unaryOps["~"](Int(0)); got.String() != "-1" {
		t.Fatalf("~0 = %q", got)
	}
	if got := unaryOps["+"](Infer("0x1F", InferStringFloatInt)); got.String() != "31" {
		t.Fatalf("+0x1F = %q", got)
	}
}

func TestLogicalXor(t *testing.T) {
	if got := binaryOps["^^"](Bool(true), Str("false")); got.String() != "true" {
		t.Fatalf("true ^^ false = %q", got)
	}
	if got := binaryOps["^^"](Bool(true), Int(1)); !got.IsError() {
		t.Fatalf("expected error, got %s", got.Kind())
	}
}

func TestAsBoolIsStrict(t *testing.T) {
	for _, v := range []Value{Int(1), Float(0), Str("yes"), Str(""), Absent()} {
		if _, ok := v.AsBool(); ok {
			t.Errorf("%s (%s) should not convert to boolean", v, v.Kind())
		}
	}
	if b, ok := Str("true").AsBool(); !ok || !b {
		t.Fatalf("expected \"true\" to convert")
	}
}

func TestKeyEquality(t *testing.T) {
	if !Str("2").Equal(Int(2)) {
		t.Fatalf("expected \"2\" and 2 to share a slot")
	}
	if !Str("0x10").Equal(Int(16)) {
		t.Fatalf("expected \"0x10\" and 16 to share a slot")
	}
	if Str("a").Equal(Str("b")) {
		t.Fatalf("distinct strings compared equal")
	}
	if Absent().Equal(Str("")) {
		t.Fatalf("absent equals empty string")
	}
	if !Str("007").Equal(Int(7)) {
		t.Fatalf("expected \"007\" and 7 to share a slot")
	}
	if Infer("1.10", InferStringFloatInt).Equal(Infer("1.1", InferStringFloatInt)) {
		t.Fatalf("float keys with different text share a slot")
	}
	if !Str("1.10").Equal(Infer("1.10", InferStringFloatInt)) {
		t.Fatalf("expected string and inferred float with the same text to share a slot")
	}
	if !Str("0.5").Equal(Float(0.5)) {
		t.Fatalf("expected \"0.5\" and a computed 0.5 to share a slot")
	}
}

func TestInt64Bounds(t *testing.T) {
	for text, want := range map[string]int64{
		"9223372036854775807":  math.MaxInt64,
		"-9223372036854775808": math.MinInt64,
	} {
		v := Infer(text, InferStringFloatInt)
		if v.Kind() != IntKind || v.Int64() != want {
			t.Errorf("Infer(%q) = %s %d, want int %d", text, v.Kind(), v.Int64(), want)
		}
	}
	for _, text := range []string{"9223372036854775808", "-9223372036854775809"} {
		if got := Infer(text, InferStringFloatInt).Kind(); got != FloatKind {
			t.Errorf("Infer(%q) kind = %s, want float", text, got)
		}
	}
}

func TestFloatFormatting(t *testing.T) {
	a, b := 0.1, 0.2
	for v, want := range map[float64]string{
		a + b:  "0.30000000000000004",
		3:      "3",
		1e-7:   "1e-07",
		2.5e22: "2.5e+22",
		-0.25:  "-0.25",
	} {
		if got := Float(v).String(); got != want {
			t.Errorf("Float(%v) = %q, want %q", v, got, want)
		}
	}
}
