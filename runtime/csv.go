package mruntime

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type csvReader struct {
	r        *csv.Reader
	header   []string
	implicit bool
	line     int
}

func newCSVReader(r io.Reader, comma rune, implicitHeader bool) *csvReader {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &csvReader{r: cr, implicit: implicitHeader}
}

// Read returns the next data row keyed by the header.
func (c *csvReader) Read() (*Record, error) {
	for {
		row, err := c.r.Read()
		if err != nil {
			return nil, err
		}
		c.line++
		if c.header == nil && !c.implicit {
			c.header = append([]string(nil), row...)
			continue
		}
		rec := NewRecord()
		if c.implicit {
			for i, v := range row {
				rec.Put(strconv.Itoa(i+1), v)
			}
			return rec, nil
		}
		if len(row) != len(c.header) {
			return nil, fmt.Errorf("csv: header/data length mismatch %d != %d at data line %d", len(c.header), len(row), c.line)
		}
		for i, v := range row {
			rec.Put(c.header[i], v)
		}
		return rec, nil
	}
}

// csvWriter reprints the header, after a blank line, whenever the key set
// changes.
type csvWriter struct {
	bw         *bufio.Writer
	w          *csv.Writer
	headerless bool
	joinKey    string
	wrote      bool
}

func newCSVWriter(bw *bufio.Writer, comma rune, headerless bool) *csvWriter {
	w := csv.NewWriter(bw)
	w.Comma = comma
	return &csvWriter{bw: bw, w: w, headerless: headerless}
}

func (c *csvWriter) Write(rec *Record) error {
	keys := rec.Keys()
	key := strings.Join(keys, "\x1f")
	if !c.wrote || key != c.joinKey {
		if c.wrote {
			c.w.Flush()
			c.bw.WriteByte('\n')
		}
		c.joinKey = key
		if !c.headerless {
			if err := c.w.Write(keys); err != nil {
				return err
			}
		}
	}
	c.wrote = true
	values := make([]string, rec.Len())
	for i, f := range rec.Fields() {
		values[i] = f.Value
	}
	return c.w.Write(values)
}

func (c *csvWriter) Flush() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	return c.bw.Flush()
}
