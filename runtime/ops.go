package mruntime

import (
	"math"
	"strings"
)

var unaryOps = map[string]func(Value) Value{
	"-": negate,
	"+": func(a Value) Value {
		if a.IsAbsent() || a.IsError() || a.IsNumeric() {
			return a.normalized()
		}
		return Error("unary + of non-numeric value")
	},
	"!": func(a Value) Value {
		if a.IsAbsent() || a.IsError() {
			return a
		}
		v, ok := a.AsBool()
		if !ok {
			return Error("! of non-boolean value")
		}
		return Bool(!v)
	},
	"~": func(a Value) Value {
		if a.IsAbsent() || a.IsError() {
			return a
		}
		if a.kind != IntKind {
			return Error("~ of non-integer value")
		}
		return Int(^a.i)
	},
}

func negate(a Value) Value {
	switch a.kind {
	case AbsentKind, ErrorKind:
		return a
	case IntKind:
		return Int(-a.i)
	case FloatKind:
		return Float(-a.f)
	case StringKind:
		if a.s == "" {
			return a
		}
	}
	return Error("unary - of non-numeric value")
}

var binaryOps = map[string]func(a, b Value) Value{
	"+":   arith(addInt, func(x, y float64) float64 { return x + y }),
	"-":   arith(subInt, func(x, y float64) float64 { return x - y }),
	"*":   arith(mulInt, func(x, y float64) float64 { return x * y }),
	"/":   arith(divInt, func(x, y float64) float64 { return x / y }),
	"//":  arith(floorDivInt, func(x, y float64) float64 { return math.Floor(x / y) }),
	"%":   arith(modInt, floatMod),
	"**":  arith(powInt, math.Pow),
	".":   concat,
	"^^":  logicalXor,
	"&":   bitwise(func(x, y int64) int64 { return x & y }),
	"|":   bitwise(func(x, y int64) int64 { return x | y }),
	"^":   bitwise(func(x, y int64) int64 { return x ^ y }),
	"<<":  bitwise(func(x, y int64) int64 { return x << uint64(y&63) }),
	">>":  bitwise(func(x, y int64) int64 { return x >> uint64(y&63) }),
	">>>": bitwise(func(x, y int64) int64 { return int64(uint64(x) >> uint64(y&63)) }),
	"==":  compare(func(c int) bool { return c == 0 }),
	"!=":  compare(func(c int) bool { return c != 0 }),
	"<":   compare(func(c int) bool { return c < 0 }),
	"<=":  compare(func(c int) bool { return c <= 0 }),
	">":   compare(func(c int) bool { return c > 0 }),
	">=":  compare(func(c int) bool { return c >= 0 }),
}

// absentRule applies the shared absent/error rules of binary operators:
// absent op x is x, and errors propagate. done is false when both operands
// are present and non-error.
func absentRule(a, b Value) (Value, bool) {
	switch {
	case a.IsError():
		return a, true
	case b.IsError():
		return b, true
	case a.IsAbsent():
		return b, true
	case b.IsAbsent():
		return a, true
	}
	return Value{}, false
}

// arith builds a numeric operator. Int results that overflow are redone in
// float. The empty string is absorbing.
func arith(ints func(x, y int64) (Value, bool), floats func(x, y float64) float64) func(a, b Value) Value {
	return func(a, b Value) Value {
		if v, done := absentRule(a, b); done {
			return v
		}
		if a.IsNull() || b.IsNull() {
			return Str("")
		}
		if !a.IsNumeric() || !b.IsNumeric() {
			return Error("arithmetic on non-numeric value")
		}
		if a.kind == IntKind && b.kind == IntKind {
			if v, ok := ints(a.i, b.i); ok {
				return v
			}
		}
		return Float(floats(a.Float64(), b.Float64()))
	}
}

func addInt(x, y int64) (Value, bool) {
	r := x + y
	if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
		return Value{}, false
	}
	return Int(r), true
}

func subInt(x, y int64) (Value, bool) {
	r := x - y
	if (x >= 0 && y < 0 && r < 0) || (x < 0 && y > 0 && r >= 0) {
		return Value{}, false
	}
	return Int(r), true
}

func mulInt(x, y int64) (Value, bool) {
	if x == 0 || y == 0 {
		return Int(0), true
	}
	r := x * y
	if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return Value{}, false
	}
	return Int(r), true
}

// divInt stays integer only for exact quotients.
func divInt(x, y int64) (Value, bool) {
	if y == 0 || x%y != 0 || (x == math.MinInt64 && y == -1) {
		return Value{}, false
	}
	return Int(x / y), true
}

func floorDivInt(x, y int64) (Value, bool) {
	if y == 0 || (x == math.MinInt64 && y == -1) {
		return Value{}, false
	}
	q := x / y
	if x%y != 0 && (x < 0) != (y < 0) {
		q--
	}
	return Int(q), true
}

// modInt takes the sign of the divisor.
func modInt(x, y int64) (Value, bool) {
	if y == 0 {
		return Value{}, false
	}
	m := x % y
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return Int(m), true
}

func floatMod(x, y float64) float64 {
	m := math.Mod(x, y)
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return m
}

func powInt(x, y int64) (Value, bool) {
	switch {
	case y < 0:
		return Value{}, false
	case x == 0 || x == 1:
		if y == 0 {
			return Int(1), true
		}
		return Int(x), true
	case x == -1:
		if y%2 == 0 {
			return Int(1), true
		}
		return Int(-1), true
	}
	r := int64(1)
	for i := int64(0); i < y; i++ {
		next, ok := mulInt(r, x)
		if !ok {
			return Value{}, false
		}
		r = next.i
	}
	return Int(r), true
}

func concat(a, b Value) Value {
	if v, done := absentRule(a, b); done {
		if v.IsError() {
			return v
		}
		return Str(v.String())
	}
	return Str(a.String() + b.String())
}

func logicalXor(a, b Value) Value {
	if v, done := absentRule(a, b); done {
		return v
	}
	x, ok1 := a.AsBool()
	y, ok2 := b.AsBool()
	if !ok1 || !ok2 {
		return Error("^^ operand is not boolean")
	}
	return Bool(x != y)
}

func bitwise(fn func(x, y int64) int64) func(a, b Value) Value {
	return func(a, b Value) Value {
		if v, done := absentRule(a, b); done {
			return v
		}
		if a.kind != IntKind || b.kind != IntKind {
			return Error("bitwise operator on non-integer value")
		}
		return Int(fn(a.i, b.i))
	}
}

// compare orders numbers numerically and everything else lexically. A
// comparison involving absent is absent.
func compare(pred func(int) bool) func(a, b Value) Value {
	return func(a, b Value) Value {
		if a.IsError() {
			return a
		}
		if b.IsError() {
			return b
		}
		if a.IsAbsent() || b.IsAbsent() {
			return Absent()
		}
		return Bool(pred(collate(a, b)))
	}
}

func collate(a, b Value) int {
	if a.kind == IntKind && b.kind == IntKind {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	}
	if a.IsNumeric() && b.IsNumeric() {
		x, y := a.Float64(), b.Float64()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(a.String(), b.String())
}
