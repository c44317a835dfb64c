package mruntime

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// WriteJSON renders the tree as multi-line JSON with two-space indentation.
func (t *VariableTree) WriteJSON(w io.Writer) error {
	var b strings.Builder
	writeJSONLevel(&b, t.root, 0)
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func (t *VariableTree) JSON() string {
	var b strings.Builder
	_ = t.WriteJSON(&b)
	return b.String()
}

func writeJSONLevel(b *strings.Builder, m *MapValue, depth int) {
	if m.terminal {
		b.WriteString(jsonScalar(m.value))
		return
	}
	if m.Len() == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{\n")
	i := 0
	for key, child := range m.Entries() {
		b.WriteString(strings.Repeat("  ", depth+1))
		b.WriteString(jsonQuote(key.String()))
		b.WriteString(": ")
		writeJSONLevel(b, child, depth+1)
		if i < m.Len()-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
		i++
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteByte('}')
}

func jsonScalar(v Value) string {
	switch v.kind {
	case IntKind, FloatKind:
		return jsonNumber(v)
	case BooleanKind:
		return v.String()
	default:
		return jsonQuote(v.String())
	}
}

// jsonNumber keeps the input text when it is already a JSON number.
// Zero-padded decimals such as zip codes are quoted so the digits survive;
// other spellings (hex, binary, "+1", ".5") are rewritten.
func jsonNumber(v Value) string {
	if s := v.String(); isJSONNumber(s) {
		return s
	}
	digits := strings.TrimLeft(v.s, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] >= '0' && digits[1] <= '9' {
		return jsonQuote(v.s)
	}
	if s := v.normalized().String(); isJSONNumber(s) {
		return s
	}
	return jsonQuote(v.String())
}

func isJSONNumber(s string) bool {
	i := 0
	digits := func() int {
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		return i - start
	}
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case digits() == 0:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		if digits() == 0 {
			return false
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if digits() == 0 {
			return false
		}
	}
	return i == len(s)
}

func jsonQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
