package mruntime

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestOutputsTruncateOnceThenKeepWriting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.dkvp")
	if err := os.WriteFile(path, []byte("stale=1\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	o := NewOutputs("dkvp", WriterOptions{}, nil)
	if err := o.WriteRecords(path, false, []*Record{RecordFrom("a", "1")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readFile(t, path); got != "a=1\n" {
		t.Fatalf("records not flushed after write: %q", got)
	}
	if err := o.WriteRecords(path, false, []*Record{RecordFrom("a", "2")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := readFile(t, path); got != "a=1\na=2\n" {
		t.Fatalf("unexpected file contents %q", got)
	}
}

func TestOutputsAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	o := NewOutputs("dkvp", WriterOptions{}, nil)
	if err := o.WriteString(path, true, "second\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := readFile(t, path); got != "first\nsecond\n" {
		t.Fatalf("unexpected file contents %q", got)
	}
}

func TestOutputsPPrintDrainsAtClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	o := NewOutputs("pprint", WriterOptions{}, nil)
	for _, v := range []string{"1", "22"} {
		if err := o.WriteRecords(path, false, []*Record{RecordFrom("a", v)}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := readFile(t, path); got != "" {
		t.Fatalf("pprint written before close: %q", got)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := readFile(t, path); got != "a\n1\n22\n" {
		t.Fatalf("unexpected file contents %q", got)
	}
}

func TestOutputsNamesAndOpenError(t *testing.T) {
	dir := t.TempDir()
	o := NewOutputs("dkvp", WriterOptions{}, nil)
	b := filepath.Join(dir, "b")
	a := filepath.Join(dir, "a")
	for _, name := range []string{b, a, b} {
		if err := o.WriteString(name, false, "x\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := o.Names(); !slices.Equal(got, []string{b, a}) {
		t.Fatalf("unexpected names %v", got)
	}
	if err := o.WriteString(filepath.Join(dir, "missing", "c"), false, "x"); err == nil {
		t.Fatalf("expected open error")
	}
	if err := o.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(o.Names()) != 0 {
		t.Fatalf("close should forget files")
	}
}
