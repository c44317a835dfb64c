package mruntime

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// RecordReader yields records until io.EOF.
type RecordReader interface {
	Read() (*Record, error)
}

// RecordWriter writes records. Flush drains anything batched and flushes
// the underlying buffer.
type RecordWriter interface {
	Write(rec *Record) error
	Flush() error
}

type ReaderOptions struct {
	IFS string
	IPS string
	// ImplicitHeader numbers CSV columns 1..n instead of reading a header.
	ImplicitHeader bool
	// FlattenSep joins nested JSON keys.
	FlattenSep string
}

type WriterOptions struct {
	OFS string
	OPS string
	// Headerless omits the CSV header line.
	Headerless bool
	// JSONStack writes one field per line.
	JSONStack bool
}

var (
	InputFormats  = []string{"dkvp", "nidx", "csv", "tsv", "json"}
	OutputFormats = []string{"dkvp", "nidx", "csv", "tsv", "json", "xtab", "pprint", "markdown"}
)

func NewRecordReader(format string, r io.Reader, opts ReaderOptions) (RecordReader, error) {
	switch format {
	case "dkvp", "":
		return &dkvpReader{sc: newScanner(r), ifs: orDefault(opts.IFS, ","), ips: orDefault(opts.IPS, "=")}, nil
	case "nidx":
		return &nidxReader{sc: newScanner(r), ifs: orDefault(opts.IFS, " ")}, nil
	case "csv":
		return newCSVReader(r, firstRune(opts.IFS, ','), opts.ImplicitHeader), nil
	case "tsv":
		return newCSVReader(r, firstRune(opts.IFS, '\t'), opts.ImplicitHeader), nil
	case "json":
		return &jsonReader{dec: json.NewDecoder(r), sep: orDefault(opts.FlattenSep, ":")}, nil
	}
	return nil, fmt.Errorf("unknown input format %q", format)
}

func NewRecordWriter(format string, w io.Writer, opts WriterOptions) (RecordWriter, error) {
	bw := bufio.NewWriter(w)
	switch format {
	case "dkvp", "":
		return &dkvpWriter{w: bw, ofs: orDefault(opts.OFS, ","), ops: orDefault(opts.OPS, "=")}, nil
	case "nidx":
		return &nidxWriter{w: bw, ofs: orDefault(opts.OFS, " ")}, nil
	case "csv":
		return newCSVWriter(bw, firstRune(opts.OFS, ','), opts.Headerless), nil
	case "tsv":
		return newCSVWriter(bw, firstRune(opts.OFS, '\t'), opts.Headerless), nil
	case "json":
		return &jsonWriter{w: bw, stack: opts.JSONStack}, nil
	case "xtab":
		return &xtabWriter{w: bw, ops: orDefault(opts.OPS, " ")}, nil
	case "pprint":
		return &pprintWriter{w: bw}, nil
	case "markdown":
		return &markdownWriter{w: bw}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func firstRune(s string, def rune) rune {
	if s == "" {
		return def
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return sc
}

func nextLine(sc *bufio.Scanner) (string, error) {
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line != "" {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

type dkvpReader struct {
	sc       *bufio.Scanner
	ifs, ips string
}

// Read splits a line into pairs; a pair without the separator is keyed by
// its 1-up position.
func (r *dkvpReader) Read() (*Record, error) {
	line, err := nextLine(r.sc)
	if err != nil {
		return nil, err
	}
	rec := NewRecord()
	for i, pair := range strings.Split(line, r.ifs) {
		k, v, ok := strings.Cut(pair, r.ips)
		if !ok {
			rec.Put(strconv.Itoa(i+1), pair)
			continue
		}
		rec.Put(k, v)
	}
	return rec, nil
}

type nidxReader struct {
	sc  *bufio.Scanner
	ifs string
}

func (r *nidxReader) Read() (*Record, error) {
	line, err := nextLine(r.sc)
	if err != nil {
		return nil, err
	}
	var parts []string
	if r.ifs == " " {
		parts = strings.Fields(line)
	} else {
		parts = strings.Split(line, r.ifs)
	}
	rec := NewRecord()
	for i, p := range parts {
		rec.Put(strconv.Itoa(i+1), p)
	}
	return rec, nil
}

// jsonReader accepts concatenated top-level objects or arrays of objects.
// Nested objects are flattened with sep.
type jsonReader struct {
	dec     *json.Decoder
	sep     string
	inArray bool
}

func (r *jsonReader) Read() (*Record, error) {
	r.dec.UseNumber()
	for {
		if r.inArray && !r.dec.More() {
			if _, err := r.dec.Token(); err != nil {
				return nil, err
			}
			r.inArray = false
			continue
		}
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		switch tok {
		case json.Delim('['):
			if r.inArray {
				return nil, errors.New("json: nested arrays of records are not supported")
			}
			r.inArray = true
			continue
		case json.Delim('{'):
			rec := NewRecord()
			if err := r.object(rec, ""); err != nil {
				return nil, err
			}
			return rec, nil
		}
		return nil, fmt.Errorf("json: expected object, got %v", tok)
	}
}

// object reads the members of an object whose opening brace was consumed.
func (r *jsonReader) object(rec *Record, prefix string) error {
	for r.dec.More() {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("json: expected key, got %v", tok)
		}
		if prefix != "" {
			key = prefix + r.sep + key
		}
		if err := r.value(rec, key); err != nil {
			return err
		}
	}
	_, err := r.dec.Token()
	return err
}

func (r *jsonReader) value(rec *Record, key string) error {
	tok, err := r.dec.Token()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return r.object(rec, key)
		case '[':
			for i := 1; r.dec.More(); i++ {
				if err := r.value(rec, key+r.sep+strconv.Itoa(i)); err != nil {
					return err
				}
			}
			_, err := r.dec.Token()
			return err
		}
		return fmt.Errorf("json: unexpected %v", v)
	case string:
		rec.Put(key, v)
	case json.Number:
		rec.Put(key, v.String())
	case bool:
		rec.Put(key, strconv.FormatBool(v))
	case nil:
		rec.Put(key, "")
	}
	return nil
}

type dkvpWriter struct {
	w        *bufio.Writer
	ofs, ops string
}

func (w *dkvpWriter) Write(rec *Record) error {
	for i, f := range rec.Fields() {
		if i > 0 {
			w.w.WriteString(w.ofs)
		}
		w.w.WriteString(f.Key)
		w.w.WriteString(w.ops)
		w.w.WriteString(f.Value)
	}
	return w.w.WriteByte('\n')
}

func (w *dkvpWriter) Flush() error { return w.w.Flush() }

type nidxWriter struct {
	w   *bufio.Writer
	ofs string
}

func (w *nidxWriter) Write(rec *Record) error {
	for i, f := range rec.Fields() {
		if i > 0 {
			w.w.WriteString(w.ofs)
		}
		w.w.WriteString(f.Value)
	}
	return w.w.WriteByte('\n')
}

func (w *nidxWriter) Flush() error { return w.w.Flush() }

type jsonWriter struct {
	w     *bufio.Writer
	stack bool
}

// Write renders numbers and booleans bare and everything else quoted.
func (w *jsonWriter) Write(rec *Record) error {
	if rec.Len() == 0 {
		_, err := w.w.WriteString("{}\n")
		return err
	}
	if w.stack {
		w.w.WriteString("{\n")
	} else {
		w.w.WriteString("{ ")
	}
	for i, f := range rec.Fields() {
		if w.stack {
			w.w.WriteString("  ")
		}
		w.w.WriteString(jsonQuote(f.Key))
		w.w.WriteString(": ")
		w.w.WriteString(jsonScalar(Infer(f.Value, InferStringFloatInt)))
		if i < rec.Len()-1 {
			w.w.WriteByte(',')
			if !w.stack {
				w.w.WriteByte(' ')
			}
		}
		if w.stack {
			w.w.WriteByte('\n')
		}
	}
	if w.stack {
		_, err := w.w.WriteString("}\n")
		return err
	}
	_, err := w.w.WriteString(" }\n")
	return err
}

func (w *jsonWriter) Flush() error { return w.w.Flush() }

// xtabWriter writes one "key value" line per field with a blank line
// between records.
type xtabWriter struct {
	w       *bufio.Writer
	ops     string
	started bool
}

func (w *xtabWriter) Write(rec *Record) error {
	if w.started {
		w.w.WriteByte('\n')
	}
	w.started = true
	width := 0
	for _, f := range rec.Fields() {
		width = max(width, utf8.RuneCountInString(f.Key))
	}
	for _, f := range rec.Fields() {
		w.w.WriteString(f.Key)
		if w.ops == " " {
			w.w.WriteString(strings.Repeat(" ", width-utf8.RuneCountInString(f.Key)+1))
		} else {
			w.w.WriteString(w.ops)
		}
		w.w.WriteString(f.Value)
		w.w.WriteByte('\n')
	}
	return nil
}

func (w *xtabWriter) Flush() error { return w.w.Flush() }

// pprintWriter batches records with the same keys and prints each batch
// as left-aligned columns.
type pprintWriter struct {
	w       *bufio.Writer
	batch   []*Record
	blocks  int
	joinKey string
}

func (w *pprintWriter) Write(rec *Record) error {
	key := strings.Join(rec.Keys(), "\x1f")
	if len(w.batch) > 0 && key != w.joinKey {
		if err := w.drain(); err != nil {
			return err
		}
	}
	w.joinKey = key
	w.batch = append(w.batch, rec.Copy())
	return nil
}

func (w *pprintWriter) drain() error {
	if len(w.batch) == 0 {
		return nil
	}
	if w.blocks > 0 {
		w.w.WriteByte('\n')
	}
	w.blocks++
	keys := w.batch[0].Keys()
	widths := make([]int, len(keys))
	for i, k := range keys {
		widths[i] = utf8.RuneCountInString(k)
	}
	for _, rec := range w.batch {
		for i, f := range rec.Fields() {
			widths[i] = max(widths[i], utf8.RuneCountInString(pprintCell(f.Value)))
		}
	}
	writeRow := func(cells []string) {
		for i, c := range cells {
			w.w.WriteString(c)
			if i < len(cells)-1 {
				w.w.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c)+1))
			}
		}
		w.w.WriteByte('\n')
	}
	writeRow(keys)
	for _, rec := range w.batch {
		cells := make([]string, rec.Len())
		for i, f := range rec.Fields() {
			cells[i] = pprintCell(f.Value)
		}
		writeRow(cells)
	}
	w.batch = w.batch[:0]
	return nil
}

func pprintCell(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func (w *pprintWriter) Flush() error {
	if err := w.drain(); err != nil {
		return err
	}
	return w.w.Flush()
}

type markdownWriter struct {
	w       *bufio.Writer
	joinKey string
}

func (w *markdownWriter) Write(rec *Record) error {
	key := strings.Join(rec.Keys(), "\x1f")
	if key != w.joinKey {
		if w.joinKey != "" {
			w.w.WriteByte('\n')
		}
		w.joinKey = key
		w.w.WriteString("|")
		for _, k := range rec.Keys() {
			w.w.WriteString(" " + k + " |")
		}
		w.w.WriteString("\n|")
		for range rec.Keys() {
			w.w.WriteString(" --- |")
		}
		w.w.WriteByte('\n')
	}
	w.w.WriteString("|")
	for _, f := range rec.Fields() {
		w.w.WriteString(" " + strings.ReplaceAll(f.Value, "|", `\|`) + " |")
	}
	return w.w.WriteByte('\n')
}

func (w *markdownWriter) Flush() error { return w.w.Flush() }
