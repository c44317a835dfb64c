package ast

import (
	"fmt"
	"io"
	"strings"
)

type Kind int

const (
	StatementList Kind = iota
	Begin
	End
	CondBlock
	IfHead
	IfItem
	While
	DoWhile
	ForSrec
	ForOosvar
	ForVariables
	KeyVariables
	Break
	Continue

	SrecAssignment
	IndirectSrecAssignment
	OosvarAssignment
	OosvarFromFullSrecAssignment
	FullSrecFromOosvarAssignment
	Unset

	TeeWrite
	TeeAppend
	Emitf
	EmitfWrite
	EmitfAppend
	Emit
	EmitWrite
	EmitAppend
	Emitp
	EmitpWrite
	EmitpAppend
	EmitLashed
	EmitLashedWrite
	EmitLashedAppend
	EmitpLashed
	EmitpLashedWrite
	EmitpLashedAppend
	EmitNamelist
	LashedKeylists
	Filter
	Dump
	Edump
	DumpWrite
	DumpAppend
	Print
	Eprint
	PrintWrite
	PrintAppend
	Printn
	Eprintn
	PrintnWrite
	PrintnAppend

	StringLiteral
	StrnumLiteral
	BooleanLiteral
	FieldName
	IndirectFieldName
	FullSrec
	OosvarKeylist
	FullOosvar
	All
	ContextVariable
	BoundVariable
	FunctionCallsite
	Operator
)

var kindNames = [...]string{
	StatementList:                "statement_list",
	Begin:                        "begin",
	End:                          "end",
	CondBlock:                    "cond",
	IfHead:                       "if_head",
	IfItem:                       "if_item",
	While:                        "while",
	DoWhile:                      "do_while",
	ForSrec:                      "for_srec",
	ForOosvar:                    "for_oosvar",
	ForVariables:                 "for_variables",
	KeyVariables:                 "key_variables",
	Break:                        "break",
	Continue:                     "continue",
	SrecAssignment:               "srec_assignment",
	IndirectSrecAssignment:       "indirect_srec_assignment",
	OosvarAssignment:             "oosvar_assignment",
	OosvarFromFullSrecAssignment: "oosvar_from_full_srec_assignment",
	FullSrecFromOosvarAssignment: "full_srec_from_oosvar_assignment",
	Unset:                        "unset",
	TeeWrite:                     "tee_write",
	TeeAppend:                    "tee_append",
	Emitf:                        "emitf",
	EmitfWrite:                   "emitf_write",
	EmitfAppend:                  "emitf_append",
	Emit:                         "emit",
	EmitWrite:                    "emit_write",
	EmitAppend:                   "emit_append",
	Emitp:                        "emitp",
	EmitpWrite:                   "emitp_write",
	EmitpAppend:                  "emitp_append",
	EmitLashed:                   "emit_lashed",
	EmitLashedWrite:              "emit_lashed_write",
	EmitLashedAppend:             "emit_lashed_append",
	EmitpLashed:                  "emitp_lashed",
	EmitpLashedWrite:             "emitp_lashed_write",
	EmitpLashedAppend:            "emitp_lashed_append",
	EmitNamelist:                 "emit_namelist",
	LashedKeylists:               "lashed_keylists",
	Filter:                       "filter",
	Dump:                         "dump",
	Edump:                        "edump",
	DumpWrite:                    "dump_write",
	DumpAppend:                   "dump_append",
	Print:                        "print",
	Eprint:                       "eprint",
	PrintWrite:                   "print_write",
	PrintAppend:                  "print_append",
	Printn:                       "printn",
	Eprintn:                      "eprintn",
	PrintnWrite:                  "printn_write",
	PrintnAppend:                 "printn_append",
	StringLiteral:                "string_literal",
	StrnumLiteral:                "strnum_literal",
	BooleanLiteral:               "boolean_literal",
	FieldName:                    "field_name",
	IndirectFieldName:            "indirect_field_name",
	FullSrec:                     "full_srec",
	OosvarKeylist:                "oosvar_keylist",
	FullOosvar:                   "full_oosvar",
	All:                          "all",
	ContextVariable:              "context_variable",
	BoundVariable:                "bound_variable",
	FunctionCallsite:             "function_callsite",
	Operator:                     "operator",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is one vertex of a parsed program. The parser owns the tree;
// consumers treat it as read-only.
type Node struct {
	Kind     Kind
	Text     string
	Children []*Node
	Pos      Pos
}

func New(kind Kind, text string, pos Pos, children ...*Node) *Node {
	return &Node{Kind: kind, Text: text, Children: children, Pos: pos}
}

func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Fprint writes the tree one node per line, indented four spaces per level.
func Fprint(w io.Writer, n *Node) error {
	return fprint(w, n, 0)
}

func fprint(w io.Writer, n *Node, depth int) error {
	if n == nil {
		return nil
	}
	indent := strings.Repeat("    ", depth)
	suffix := "."
	if len(n.Children) > 0 {
		suffix = ":"
	}
	if _, err := fmt.Fprintf(w, "%s%s (%s)%s\n", indent, n.Text, n.Kind, suffix); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := fprint(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) String() string {
	var b strings.Builder
	_ = Fprint(&b, n)
	return b.String()
}
