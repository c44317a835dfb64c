package mruntime

import (
	"math"
	"testing"
)

func TestJSONDump(t *testing.T) {
	tree := NewVariableTree()
	tree.PutTerminal(keys("count"), Int(3))
	tree.PutTerminal(keys("sum", "pan"), Infer(".5", InferStringFloatInt))
	tree.PutTerminal(keys("sum", "eks"), Infer("0xff", InferStringFloatInt))
	tree.PutTerminal(keys("name"), Str("say \"hi\"\n"))
	tree.PutTerminal(keys("ok"), Bool(true))
	tree.PutTerminal(keys("x", 1), Infer("1.250", InferStringFloatInt))

	want := `{
  "count": 3,
  "sum": {
    "pan": 0.5,
    "eks": 255
  },
  "name": "say \"hi\"\n",
  "ok": true,
  "x": {
    "1": 1.250
  }
}
`
	if got := tree.JSON(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestJSONDumpEmpty(t *testing.T) {
	if got := NewVariableTree().JSON(); got != "{}\n" {
		t.Fatalf("unexpected dump %q", got)
	}
}

func TestJSONQuoteControlCharacters(t *testing.T) {
	if got := jsonQuote("a\tb\x01"); got != `"a\tb\u0001"` {
		t.Fatalf("unexpected quoting %s", got)
	}
}

func TestJSONNumbers(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"12", "12"},
		{"-0.5", "-0.5"},
		{"1e3", "1e3"},
		{"0", "0"},
		{"01234", `"01234"`},
		{"-007", `"-007"`},
		{"00.5", `"00.5"`},
		{"+5", "5"},
		{"5.", "5"},
		{"-.5", "-0.5"},
		{"0b11", "3"},
	}
	for _, tt := range tests {
		if got := jsonScalar(Infer(tt.text, InferStringFloatInt)); got != tt.want {
			t.Errorf("jsonScalar(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
	if got := jsonScalar(Float(math.Inf(1))); got != `"+Inf"` {
		t.Fatalf("infinity should be quoted, got %s", got)
	}
}

func TestJSONDumpKeepsZeroPaddedDigits(t *testing.T) {
	tree := NewVariableTree()
	tree.PutTerminal(keys("zip"), Infer("01234", InferStringFloatInt))
	if got, want := tree.JSON(), "{\n  \"zip\": \"01234\"\n}\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
