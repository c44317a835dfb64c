package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/gosuda/mlrdsl"
	"github.com/gosuda/mlrdsl/parser"
	mruntime "github.com/gosuda/mlrdsl/runtime"
)

const (
	promptMain = "mlrdsl> "
	promptCont = "   ...> "
)

// runREPL executes statements one entry at a time against a single
// variable tree. Entries run in end-block context, so $-assignments are
// rejected.
func runREPL(app appConfig, logger *slog.Logger) error {
	src := app.source
	interp, err := mlrdsl.Compile(src, interpOptions(app, os.Stdout, os.Stderr, logger))
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	defer interp.Close()
	w, err := mruntime.NewRecordWriter(app.cfg.OutputFormat, os.Stdout, writerOptions(app))
	if err != nil {
		return err
	}
	if recs, err := interp.Begin(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
	} else {
		writeRecords(w, recs)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completeWord)

	if path := app.cfg.HistoryFile; path != "" {
		if f, err := os.Open(path); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(path); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for {
		code, ok := readEntry(ln)
		if !ok {
			fmt.Println()
			return nil
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if strings.HasPrefix(code, ":") {
			if quit := replCommand(interp, code); quit {
				return nil
			}
			continue
		}
		root, err := parser.ParseProgram(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
			continue
		}
		recs, err := interp.Exec(root)
		writeRecords(w, recs)
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		}
	}
}

func writeRecords(w mruntime.RecordWriter, recs []*mruntime.Record) {
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
			return
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
	}
}

// readEntry reads lines until they parse or fail for a reason other than
// running out of input.
func readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := parser.ParseProgram(src); parser.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}

func replCommand(interp *mruntime.Interpreter, code string) bool {
	fields := strings.Fields(code)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":dump":
		if err := interp.Vars().WriteJSON(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		}
	case ":clear":
		interp.Vars().Clear()
	case ":help":
		name := ""
		if len(fields) > 1 {
			name = fields[1]
		}
		if err := mruntime.WriteKeywordUsage(os.Stdout, name); err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		}
	default:
		fmt.Println("commands: :dump, :clear, :help [keyword], :quit")
	}
	return false
}

func completeWord(line string) []string {
	i := strings.LastIndexAny(line, " \t(;{,") + 1
	prefix, word := line[:i], line[i:]
	if word == "" {
		return nil
	}
	var out []string
	for _, group := range [][]string{mruntime.Keywords(), mruntime.FunctionNames()} {
		for _, name := range group {
			if strings.HasPrefix(name, word) {
				out = append(out, prefix+name)
			}
		}
	}
	return out
}
