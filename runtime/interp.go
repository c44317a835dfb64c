package mruntime

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gosuda/mlrdsl/ast"
)

type Options struct {
	Infer      InferMode
	FlattenSep string
	Stdout     io.Writer
	Stderr     io.Writer

	// OutputFormat and Writer configure records sent to redirected files.
	OutputFormat string
	Writer       WriterOptions

	// SuppressRecord drops the current record from the main output, leaving
	// only emitted records.
	SuppressRecord bool
	// FilterMode makes bare-boolean statements decide whether the record is
	// kept.
	FilterMode bool

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.FlattenSep == "" {
		o.FlattenSep = ":"
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.OutputFormat == "" {
		o.OutputFormat = "dkvp"
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Interpreter runs a lowered program: begin once, main once per record,
// end once. The variable tree persists across all of them.
type Interpreter struct {
	prog    *Program
	opts    Options
	state   *State
	outputs *Outputs
	logger  *slog.Logger

	nr       int64
	filename string
}

// New builds root and returns an interpreter for it.
func New(root *ast.Node, opts Options) (*Interpreter, error) {
	opts.defaults()
	b := NewBuilder(opts.Infer)
	prog, err := b.Program(root)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("program built",
		"begin", len(prog.Begin), "main", len(prog.Main), "end", len(prog.End), "statements", b.Count())
	return NewFromProgram(prog, opts), nil
}

func NewFromProgram(prog *Program, opts Options) *Interpreter {
	opts.defaults()
	return &Interpreter{
		prog:    prog,
		opts:    opts,
		state:   NewState(),
		outputs: NewOutputs(opts.OutputFormat, opts.Writer, opts.Logger),
		logger:  opts.Logger,
	}
}

func (in *Interpreter) Program() *Program {
	return in.prog
}

// Vars exposes the variable tree of the run.
func (in *Interpreter) Vars() *VariableTree {
	return in.state.Vars
}

func (in *Interpreter) pass(stmts []Statement) (*Sink, error) {
	out := NewSink(in.opts.FlattenSep)
	err := in.execList(stmts, out)
	return out, err
}

// Begin runs the begin statements and returns the records they emit.
func (in *Interpreter) Begin() ([]*Record, error) {
	in.state.SetRecord(NewRecord(), Context{})
	out, err := in.pass(in.prog.Begin)
	if err != nil {
		return out.Records, fmt.Errorf("begin: %w", err)
	}
	return out.Records, nil
}

// Process runs the main statements against rec. The result holds the
// emitted records followed by rec itself unless it was filtered out.
func (in *Interpreter) Process(rec *Record, ctx Context) ([]*Record, error) {
	in.nr = ctx.NR
	in.filename = ctx.Filename
	in.state.SetRecord(rec, ctx)
	out, err := in.pass(in.prog.Main)
	in.state.FlushOverlay()
	if err != nil {
		return out.Records, fmt.Errorf("record %d: %w", ctx.NR, err)
	}
	if out.EmitRecord && !in.opts.SuppressRecord {
		return append(out.Records, in.state.Record), nil
	}
	return out.Records, nil
}

// End runs the end statements and returns the records they emit.
func (in *Interpreter) End() ([]*Record, error) {
	in.state.SetRecord(NewRecord(), Context{NR: in.nr, Filename: in.filename})
	out, err := in.pass(in.prog.End)
	if err != nil {
		return out.Records, fmt.Errorf("end: %w", err)
	}
	return out.Records, nil
}

// Exec builds and runs a statement list in end-block context against the
// current variable tree.
func (in *Interpreter) Exec(root *ast.Node) ([]*Record, error) {
	stmts, err := NewBuilder(in.opts.Infer).Statements(root)
	if err != nil {
		return nil, err
	}
	in.state.SetRecord(NewRecord(), Context{NR: in.nr, Filename: in.filename})
	out, err := in.pass(stmts)
	return out.Records, err
}

// Stream runs the main statements over every record of r, writing results
// to w. NR continues across calls; FNR restarts.
func (in *Interpreter) Stream(filename string, r RecordReader, w RecordWriter) error {
	var fnr int64
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(filename), err)
		}
		fnr++
		recs, err := in.Process(rec, Context{NR: in.nr + 1, FNR: fnr, Filename: filename})
		if werr := writeAll(w, recs); werr != nil {
			return werr
		}
		if err != nil {
			return err
		}
	}
}

func displayName(filename string) string {
	if filename == "" {
		return "(stdin)"
	}
	return filename
}

func writeAll(w RecordWriter, recs []*Record) error {
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// Run is Begin, Stream over each input, then End, with all output records
// written to w.
func (in *Interpreter) Run(inputs []Input, w RecordWriter) error {
	recs, err := in.Begin()
	if werr := writeAll(w, recs); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	for _, input := range inputs {
		if err := in.Stream(input.Name, input.Reader, w); err != nil {
			return err
		}
	}
	recs, err = in.End()
	if werr := writeAll(w, recs); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	return w.Flush()
}

// Input is one named record source.
type Input struct {
	Name   string
	Reader RecordReader
}

// Close drains and closes every redirected output file.
func (in *Interpreter) Close() error {
	return in.outputs.Close()
}
