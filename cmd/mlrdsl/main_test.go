package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosuda/mlrdsl/config"
)

func TestLoadProgram(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.mlr")
	if err := os.WriteFile(path, []byte("$y = 1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src, rest, err := loadProgram([]string{path}, []string{"$z = 2"}, []string{"in.dkvp"})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if src != "$y = 1\n$z = 2" {
		t.Fatalf("unexpected source %q", src)
	}
	if !slices.Equal(rest, []string{"in.dkvp"}) {
		t.Fatalf("unexpected remaining args %v", rest)
	}

	src, rest, err = loadProgram(nil, nil, []string{"$x = 1", "a.csv", "b.csv"})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if src != "$x = 1" || !slices.Equal(rest, []string{"a.csv", "b.csv"}) {
		t.Fatalf("positional expression not taken: %q %v", src, rest)
	}

	if _, _, err := loadProgram(nil, nil, nil); err == nil {
		t.Fatalf("expected error without any program")
	}
	if _, _, err := loadProgram([]string{filepath.Join(dir, "absent.mlr")}, nil, nil); err == nil {
		t.Fatalf("expected error for missing program file")
	}
}

func TestCompleteWord(t *testing.T) {
	got := completeWord("$y = strl")
	if !slices.Equal(got, []string{"$y = strlen"}) {
		t.Fatalf("unexpected completions %v", got)
	}
	got = completeWord("end{emit")
	for _, want := range []string{"end{emit", "end{emitp", "end{emitf"} {
		if !slices.Contains(got, want) {
			t.Fatalf("missing completion %q in %v", want, got)
		}
	}
	if got := completeWord("$y = "); got != nil {
		t.Fatalf("expected no completions for an empty word, got %v", got)
	}
}

func testApp(t *testing.T, source, input string) appConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := config.Default()
	cfg.InputFormat = "csv"
	cfg.OutputFormat = "json"
	return appConfig{cfg: cfg, source: source, inputs: []string{path}}
}

func TestExecute(t *testing.T) {
	app := testApp(t, "$c = $a + $b", "a,b\n1,2\n3,4\n")
	var stdout, stderr bytes.Buffer
	if err := execute(app, &stdout, &stderr, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	want := "{ \"a\": 1, \"b\": 2, \"c\": 3 }\n{ \"a\": 3, \"b\": 4, \"c\": 7 }\n"
	if stdout.String() != want {
		t.Fatalf("got %q, want %q", stdout.String(), want)
	}
}

func TestExecuteQuietAndStack(t *testing.T) {
	app := testApp(t, "@sum += $a; end { emit @sum }", "a\n1\n2\n")
	app.quiet = true
	app.stack = true
	var stdout, stderr bytes.Buffer
	if err := execute(app, &stdout, &stderr, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if want := "{\n  \"sum\": 3\n}\n"; stdout.String() != want {
		t.Fatalf("got %q, want %q", stdout.String(), want)
	}
}

func TestExecuteCompileError(t *testing.T) {
	app := testApp(t, "$x = ", "a\n1\n")
	err := execute(app, &bytes.Buffer{}, &bytes.Buffer{}, slog.New(slog.DiscardHandler))
	if err == nil || !strings.HasPrefix(err.Error(), "compile: ") {
		t.Fatalf("expected compile error, got %v", err)
	}
}

func TestRunInterpStreamsLines(t *testing.T) {
	app := testApp(t, `print "seen ".$a; eprintn "partial"`, "a\n1\n2\n")
	app.quiet = true
	events := make(chan tea.Msg, 16)
	runInterp(app, slog.New(slog.DiscardHandler), events)

	var out, errs []string
	var done *runDoneMsg
	for msg := range events {
		switch m := msg.(type) {
		case runOutputMsg:
			if m.stderr {
				errs = append(errs, m.text)
			} else {
				out = append(out, m.text)
			}
		case runDoneMsg:
			done = &m
		}
	}
	if done == nil || done.err != nil {
		t.Fatalf("unexpected completion %+v", done)
	}
	if !slices.Equal(out, []string{"seen 1", "seen 2"}) {
		t.Fatalf("unexpected stdout lines %q", out)
	}
	if !slices.Equal(errs, []string{"partialpartial"}) {
		t.Fatalf("unexpected stderr lines %q", errs)
	}
}
