package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosuda/mlrdsl/ast"
)

// SyntaxError is a parse failure at a source position.
type SyntaxError struct {
	Pos ast.Pos
	Msg string
	// AtEOF is set when the input ran out before the construct was complete.
	AtEOF bool
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Msg)
}

func unquoteString(raw string) (string, bool) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", false
	}
	b := strings.Builder{}
	escape := false
	for _, r := range raw[1 : len(raw)-1] {
		if escape {
			switch r {
			case 'n':
				b.WriteRune('\n')
			case 'r':
				b.WriteRune('\r')
			case 't':
				b.WriteRune('\t')
			case '"', '\\':
				b.WriteRune(r)
			default:
				// Unknown escapes are kept, so regex classes like "\d" and
				// "\." survive into the pattern.
				b.WriteRune('\\')
				b.WriteRune(r)
			}
			escape = false
			continue
		}
		if r == '\\' {
			escape = true
			continue
		}
		b.WriteRune(r)
	}
	if escape {
		return "", false
	}
	return b.String(), true
}

// IsIncomplete reports whether err is a syntax error caused by input ending
// early, such as an unclosed brace.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.AtEOF
}
