package main

import (
	"bytes"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// lineWriter turns written bytes into one runOutputMsg per complete line.
type lineWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	stderr bool
	events chan<- tea.Msg
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.events <- runOutputMsg{text: line[:len(line)-1], stderr: w.stderr}
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.events <- runOutputMsg{text: w.buf.String(), stderr: w.stderr}
		w.buf.Reset()
	}
}

func runInterp(app appConfig, logger *slog.Logger, events chan<- tea.Msg) {
	defer close(events)
	stdout := &lineWriter{events: events}
	stderr := &lineWriter{events: events, stderr: true}
	err := execute(app, stdout, stderr, logger)
	stdout.flush()
	stderr.flush()
	events <- runDoneMsg{err: err}
}
