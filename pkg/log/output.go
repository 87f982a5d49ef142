package log

import (
	"io"
	"os"
)

// ConsoleOutput writes formatted entries to stderr.
type ConsoleOutput struct {
	w io.Writer
}

// NewConsoleOutput creates a console output bound to stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{w: os.Stderr} }

func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	w := o.w
	if w == nil {
		w = os.Stderr
	}
	_, err := w.Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// WriterOutput writes formatted entries to an arbitrary writer.
type WriterOutput struct {
	W io.Writer
}

func (o *WriterOutput) Write(_ *Entry, formatted []byte) error {
	_, err := o.W.Write(formatted)
	return err
}

// Close closes the writer when it is an io.Closer.
func (o *WriterOutput) Close() error {
	if c, ok := o.W.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NullOutput discards everything.
type NullOutput struct{}

func (*NullOutput) Write(*Entry, []byte) error { return nil }
func (*NullOutput) Close() error               { return nil }
