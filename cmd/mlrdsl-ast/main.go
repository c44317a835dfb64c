package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gosuda/mlrdsl/ast"
	"github.com/gosuda/mlrdsl/parser"
	mruntime "github.com/gosuda/mlrdsl/runtime"
)

func main() {
	expr := flag.String("e", "", "program text (otherwise read from the file argument or stdin)")
	check := flag.Bool("check", false, "also lower the tree and report build errors")
	flag.Parse()

	src, err := source(*expr, flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	root, err := parser.ParseProgram(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := ast.Fprint(os.Stdout, root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *check {
		prog, err := mruntime.Build(root, mruntime.InferStringFloatInt)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("begin=%d main=%d end=%d\n", len(prog.Begin), len(prog.Main), len(prog.End))
	}
}

func source(expr string, args []string) (string, error) {
	if expr != "" {
		return expr, nil
	}
	if len(args) > 0 {
		b, err := os.ReadFile(args[0])
		return string(b), err
	}
	var b strings.Builder
	_, err := io.Copy(&b, os.Stdin)
	return b.String(), err
}
