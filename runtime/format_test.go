package mruntime

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, format, input string, opts ReaderOptions) []string {
	t.Helper()
	r, err := NewRecordReader(format, strings.NewReader(input), opts)
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	var out []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		out = append(out, rec.String())
	}
}

func formatRecords(t *testing.T, format string, opts WriterOptions, recs ...*Record) string {
	t.Helper()
	var b strings.Builder
	w, err := NewRecordWriter(format, &b, opts)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return b.String()
}

func TestReaders(t *testing.T) {
	tests := []struct {
		name   string
		format string
		input  string
		opts   ReaderOptions
		want   []string
	}{
		{"dkvp", "dkvp", "a=1,b=2,c\n\nx=y=z\r\n", ReaderOptions{}, []string{"a=1,b=2,3=c", "x=y=z"}},
		{"dkvp separators", "dkvp", "a:1;b:2\n", ReaderOptions{IFS: ";", IPS: ":"}, []string{"a=1,b=2"}},
		{"nidx", "nidx", "x  y z\n", ReaderOptions{}, []string{"1=x,2=y,3=z"}},
		{"csv", "csv", "a,b\n1,2\n\"3,5\",4\n", ReaderOptions{}, []string{"a=1,b=2", "a=3,5,b=4"}},
		{"csv implicit header", "csv", "1,2\n3,4\n", ReaderOptions{ImplicitHeader: true}, []string{"1=1,2=2", "1=3,2=4"}},
		{"tsv", "tsv", "a\tb\n1\t2\n", ReaderOptions{}, []string{"a=1,b=2"}},
		{"json", "json", `{"a":1,"b":{"c":"x","d":[true,null]}} [{"a":2.50}]`, ReaderOptions{}, []string{"a=1,b:c=x,b:d:1=true,b:d:2=", "a=2.50"}},
		{"json separator", "json", `{"a":{"b":1}}`, ReaderOptions{FlattenSep: "."}, []string{"a.b=1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, tt.format, tt.input, tt.opts)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCSVReaderRejectsRaggedRows(t *testing.T) {
	r, err := NewRecordReader("csv", strings.NewReader("a,b\n1\n"), ReaderOptions{})
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	_, err = r.Read()
	if err == nil || !strings.Contains(err.Error(), "length mismatch") {
		t.Fatalf("expected length mismatch error, got %v", err)
	}
}

func TestJSONReaderRejectsScalars(t *testing.T) {
	r, err := NewRecordReader("json", strings.NewReader(`3`), ReaderOptions{})
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	if _, err := r.Read(); err == nil {
		t.Fatalf("expected error for top-level scalar")
	}
}

func TestUnknownFormats(t *testing.T) {
	if _, err := NewRecordReader("xls", strings.NewReader(""), ReaderOptions{}); err == nil {
		t.Fatalf("expected unknown input format error")
	}
	if _, err := NewRecordWriter("html", io.Discard, WriterOptions{}); err == nil {
		t.Fatalf("expected unknown output format error")
	}
}

func TestWriters(t *testing.T) {
	recs := []*Record{
		RecordFrom("a", "1", "bb", "xyz"),
		RecordFrom("a", "22", "bb", ""),
		RecordFrom("c", "5"),
	}
	tests := []struct {
		format string
		opts   WriterOptions
		want   string
	}{
		{"dkvp", WriterOptions{}, "a=1,bb=xyz\na=22,bb=\nc=5\n"},
		{"dkvp", WriterOptions{OFS: ";", OPS: ":"}, "a:1;bb:xyz\na:22;bb:\nc:5\n"},
		{"nidx", WriterOptions{}, "1 xyz\n22 \n5\n"},
		{"csv", WriterOptions{}, "a,bb\n1,xyz\n22,\n\nc\n5\n"},
		{"csv", WriterOptions{Headerless: true}, "1,xyz\n22,\n\n5\n"},
		{"tsv", WriterOptions{}, "a\tbb\n1\txyz\n22\t\n\nc\n5\n"},
		{"pprint", WriterOptions{}, "a  bb\n1  xyz\n22 -\n\nc\n5\n"},
		{"xtab", WriterOptions{}, "a  1\nbb xyz\n\na  22\nbb \n\nc 5\n"},
		{"markdown", WriterOptions{}, "| a | bb |\n| --- | --- |\n| 1 | xyz |\n| 22 |  |\n\n| c |\n| --- |\n| 5 |\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := formatRecords(t, tt.format, tt.opts, recs...); got != tt.want {
				t.Fatalf("got:\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestJSONWriter(t *testing.T) {
	rec := RecordFrom("a", "1", "b", "x", "c", "0x1F", "d", "")
	got := formatRecords(t, "json", WriterOptions{}, rec, NewRecord())
	want := "{ \"a\": 1, \"b\": \"x\", \"c\": 31, \"d\": \"\" }\n{}\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	got = formatRecords(t, "json", WriterOptions{JSONStack: true}, RecordFrom("a", "1", "b", "x"))
	want = "{\n  \"a\": 1,\n  \"b\": \"x\"\n}\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestJSONWriterQuotesZeroPaddedNumbers(t *testing.T) {
	got := formatRecords(t, "json", WriterOptions{}, RecordFrom("zip", "01234", "n", "-007", "m", "0.25"))
	if want := "{ \"zip\": \"01234\", \"n\": \"-007\", \"m\": 0.25 }\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMarkdownEscapesPipes(t *testing.T) {
	got := formatRecords(t, "markdown", WriterOptions{}, RecordFrom("a", "x|y"))
	if want := "| a |\n| --- |\n| x\\|y |\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPPrintBatchesUntilFlush(t *testing.T) {
	var b strings.Builder
	w, err := NewRecordWriter("pprint", &b, WriterOptions{})
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	if err := w.Write(RecordFrom("a", "1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("pprint wrote before flush: %q", b.String())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if b.String() != "a\n1\n" {
		t.Fatalf("unexpected output %q", b.String())
	}
}
