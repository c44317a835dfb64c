package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	mruntime "github.com/gosuda/mlrdsl/runtime"
)

// loadProgram joins the -f files and -e expressions in command-line order.
// With neither given, the first positional argument is the expression.
func loadProgram(files, exprs []string, args []string) (string, []string, error) {
	var parts []string
	for _, path := range files {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("load %s: %w", path, err)
		}
		parts = append(parts, string(b))
	}
	parts = append(parts, exprs...)
	if len(parts) == 0 {
		if len(args) == 0 {
			return "", nil, fmt.Errorf("no DSL expression given; use -e, -f or a positional expression")
		}
		parts = append(parts, args[0])
		args = args[1:]
	}
	return strings.Join(parts, "\n"), args, nil
}

type openedInput struct {
	mruntime.Input
	closer io.Closer
}

// openInputs opens each named file, or stdin when none are named.
func openInputs(format string, names []string, opts mruntime.ReaderOptions) ([]openedInput, error) {
	if len(names) == 0 {
		r, err := mruntime.NewRecordReader(format, os.Stdin, opts)
		if err != nil {
			return nil, err
		}
		return []openedInput{{Input: mruntime.Input{Name: "(stdin)", Reader: r}}}, nil
	}
	inputs := make([]openedInput, 0, len(names))
	for _, name := range names {
		f, err := os.Open(name)
		if err != nil {
			closeInputs(inputs)
			return nil, err
		}
		r, err := mruntime.NewRecordReader(format, f, opts)
		if err != nil {
			f.Close()
			closeInputs(inputs)
			return nil, err
		}
		inputs = append(inputs, openedInput{Input: mruntime.Input{Name: name, Reader: r}, closer: f})
	}
	return inputs, nil
}

func closeInputs(inputs []openedInput) {
	for _, in := range inputs {
		if in.closer != nil {
			in.closer.Close()
		}
	}
}

func runInputs(inputs []openedInput) []mruntime.Input {
	out := make([]mruntime.Input, len(inputs))
	for i, in := range inputs {
		out[i] = in.Input
	}
	return out
}
