package mlrdsl

import (
	"github.com/gosuda/mlrdsl/ast"
	"github.com/gosuda/mlrdsl/parser"
	mruntime "github.com/gosuda/mlrdsl/runtime"
)

// Compile parses DSL source and builds an interpreter for it.
func Compile(src string, opts mruntime.Options) (*mruntime.Interpreter, error) {
	root, err := parser.ParseProgram(src)
	if err != nil {
		return nil, err
	}
	return mruntime.New(root, opts)
}

// Parse only returns the syntax tree for tooling use.
func Parse(src string) (*ast.Node, error) {
	return parser.ParseProgram(src)
}
