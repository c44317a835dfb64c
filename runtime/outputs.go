package mruntime

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Outputs caches one open file per redirect target for the duration of a
// run. Every write is flushed so that files are complete at any point.
type Outputs struct {
	format string
	opts   WriterOptions
	logger *slog.Logger
	files  map[string]*outputFile
	order  []string
}

type outputFile struct {
	f      *os.File
	writer RecordWriter
}

func NewOutputs(format string, opts WriterOptions, logger *slog.Logger) *Outputs {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Outputs{format: format, opts: opts, logger: logger, files: map[string]*outputFile{}}
}

// open returns the cached file for name. The first use decides between
// truncating and appending.
func (o *Outputs) open(name string, appendMode bool) (*outputFile, error) {
	if of, ok := o.files[name]; ok {
		return of, nil
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s for %s: %w", name, modeName(appendMode), err)
	}
	o.logger.Debug("opened output file", "file", name, "mode", modeName(appendMode))
	of := &outputFile{f: f}
	o.files[name] = of
	o.order = append(o.order, name)
	return of, nil
}

func modeName(appendMode bool) string {
	if appendMode {
		return "append"
	}
	return "write"
}

func (o *Outputs) WriteRecords(name string, appendMode bool, recs []*Record) error {
	of, err := o.open(name, appendMode)
	if err != nil {
		return err
	}
	if of.writer == nil {
		if of.writer, err = NewRecordWriter(o.format, of.f, o.opts); err != nil {
			return err
		}
	}
	for _, rec := range recs {
		if err := of.writer.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if o.format == "pprint" {
		// pprint batches until drained; that happens at Close.
		return nil
	}
	if err := of.writer.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (o *Outputs) WriteString(name string, appendMode bool, s string) error {
	of, err := o.open(name, appendMode)
	if err != nil {
		return err
	}
	if of.writer != nil {
		if err := of.writer.Flush(); err != nil {
			return err
		}
	}
	if _, err := of.f.WriteString(s); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Names lists the files opened so far, in opening order.
func (o *Outputs) Names() []string {
	return append([]string(nil), o.order...)
}

// Close drains and closes every file.
func (o *Outputs) Close() error {
	var errs []error
	for _, name := range o.order {
		of := o.files[name]
		if of.writer != nil {
			if err := of.writer.Flush(); err != nil {
				errs = append(errs, fmt.Errorf("flush %s: %w", name, err))
			}
		}
		if err := of.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	clear(o.files)
	o.order = nil
	return errors.Join(errs...)
}
