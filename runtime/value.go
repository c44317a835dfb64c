package mruntime

import (
	"math"
	"strconv"
	"strings"
)

type ValueKind int

const (
	AbsentKind ValueKind = iota
	ErrorKind
	StringKind
	IntKind
	FloatKind
	BooleanKind
)

func (k ValueKind) String() string {
	switch k {
	case AbsentKind:
		return "absent"
	case ErrorKind:
		return "error"
	case StringKind:
		return "string"
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case BooleanKind:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is the tagged scalar every evaluator produces. Numbers inferred
// from input text keep that text so unmodified values print as they came in.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
}

// InferMode selects how untyped text (field values, numeric literals) is
// interpreted.
type InferMode int

const (
	InferStringFloatInt InferMode = iota
	InferStringFloat
	InferString
)

func (m InferMode) String() string {
	switch m {
	case InferString:
		return "string"
	case InferStringFloat:
		return "float"
	default:
		return "int"
	}
}

func ParseInferMode(s string) (InferMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "int", "string-float-int":
		return InferStringFloatInt, true
	case "float", "string-float":
		return InferStringFloat, true
	case "string", "none":
		return InferString, true
	default:
		return InferStringFloatInt, false
	}
}

func Absent() Value {
	return Value{kind: AbsentKind}
}

func Error(msg string) Value {
	return Value{kind: ErrorKind, s: msg}
}

func Str(v string) Value {
	return Value{kind: StringKind, s: v}
}

func Int(v int64) Value {
	return Value{kind: IntKind, i: v}
}

func Float(v float64) Value {
	return Value{kind: FloatKind, f: v}
}

func Bool(v bool) Value {
	return Value{kind: BooleanKind, b: v}
}

// Infer types raw text under mode. Empty text stays an empty string.
func Infer(text string, mode InferMode) Value {
	if mode == InferString || text == "" {
		return Str(text)
	}
	if mode == InferStringFloatInt {
		if i, ok := parseInt(text); ok {
			return Value{kind: IntKind, i: i, s: text}
		}
	}
	if f, ok := parseFloat(text); ok {
		return Value{kind: FloatKind, f: f, s: text}
	}
	return Str(text)
}

func parseInt(text string) (int64, bool) {
	t := text
	neg := false
	if strings.HasPrefix(t, "-") {
		neg = true
		t = t[1:]
	} else if strings.HasPrefix(t, "+") {
		t = t[1:]
	}
	if t == "" {
		return 0, false
	}
	base := 10
	if len(t) > 2 && t[0] == '0' && (t[1] == 'x' || t[1] == 'X') {
		base = 16
		t = t[2:]
	} else if len(t) > 2 && t[0] == '0' && (t[1] == 'b' || t[1] == 'B') {
		base = 2
		t = t[2:]
	}
	u, err := strconv.ParseUint(t, base, 64)
	if err != nil {
		return 0, false
	}
	if base == 10 && u > math.MaxInt64 && !(neg && u == 1<<63) {
		return 0, false
	}
	v := int64(u)
	if neg {
		v = -v
	}
	return v, true
}

func parseFloat(text string) (float64, bool) {
	// ParseFloat accepts "inf", "nan", hex floats and underscores; records
	// rarely mean those as numbers.
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) IsAbsent() bool {
	return v.kind == AbsentKind
}

func (v Value) IsError() bool {
	return v.kind == ErrorKind
}

func (v Value) IsPresent() bool {
	return v.kind != AbsentKind
}

// IsNull reports absent or empty-string values.
func (v Value) IsNull() bool {
	return v.kind == AbsentKind || (v.kind == StringKind && v.s == "")
}

func (v Value) IsNumeric() bool {
	return v.kind == IntKind || v.kind == FloatKind
}

func (v Value) Int64() int64 {
	switch v.kind {
	case IntKind:
		return v.i
	case FloatKind:
		return int64(v.f)
	case BooleanKind:
		if v.b {
			return 1
		}
	}
	return 0
}

func (v Value) Float64() float64 {
	switch v.kind {
	case IntKind:
		return float64(v.i)
	case FloatKind:
		return v.f
	}
	return 0
}

func (v Value) String() string {
	switch v.kind {
	case AbsentKind:
		return ""
	case ErrorKind:
		return "(error)"
	case StringKind:
		return v.s
	case IntKind:
		if v.s != "" {
			return v.s
		}
		return strconv.FormatInt(v.i, 10)
	case FloatKind:
		if v.s != "" {
			return v.s
		}
		return formatFloat(v.f)
	case BooleanKind:
		if v.b {
			return "true"
		}
		return "false"
	}
	return ""
}

// ErrorText returns the message carried by an error value.
func (v Value) ErrorText() string {
	if v.kind != ErrorKind {
		return ""
	}
	return v.s
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// AsBool applies the strict boolean rule: booleans and the strings
// "true"/"false" convert, anything else does not.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case BooleanKind:
		return v.b, true
	case StringKind:
		switch v.s {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// normalized drops the input text of inferred numbers.
func (v Value) normalized() Value {
	if v.kind == IntKind || v.kind == FloatKind {
		v.s = ""
	}
	return v
}

// keyString is the slot identity of a value used as a map key: "2" and 2
// address the same slot. Floats keep their text, so "1.10" and "1.1" do not.
func (v Value) keyString() string {
	switch v.kind {
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case FloatKind:
		return v.String()
	case StringKind:
		if n, ok := parseInt(v.s); ok {
			return strconv.FormatInt(n, 10)
		}
		return v.s
	}
	return v.String()
}

// Equal compares two values as keys.
func (v Value) Equal(o Value) bool {
	if v.kind == AbsentKind || o.kind == AbsentKind {
		return v.kind == o.kind
	}
	return v.keyString() == o.keyString()
}
