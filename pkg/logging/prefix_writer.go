package logging

import (
	"bytes"
	"io"
)

// PrefixWriter wraps an io.Writer and prepends a prefix to every complete line.
// Partial lines are held back until their newline arrives.
type PrefixWriter struct {
	prefix  []byte
	writer  io.Writer
	pending []byte
}

// NewPrefixWriter creates a new PrefixWriter.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{
		prefix: []byte(prefix),
		writer: w,
	}
}

// Write implements io.Writer.
func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.pending = append(pw.pending, p...)

	for {
		idx := bytes.IndexByte(pw.pending, '\n')
		if idx < 0 {
			break
		}

		line := make([]byte, 0, len(pw.prefix)+idx+1)
		line = append(line, pw.prefix...)
		line = append(line, pw.pending[:idx+1]...)
		if _, err := pw.writer.Write(line); err != nil {
			return 0, err
		}
		pw.pending = pw.pending[idx+1:]
	}

	return len(p), nil
}

// Flush writes any buffered partial line, prefixed, without a trailing newline.
func (pw *PrefixWriter) Flush() error {
	if len(pw.pending) == 0 {
		return nil
	}
	line := append(append([]byte{}, pw.prefix...), pw.pending...)
	pw.pending = nil
	_, err := pw.writer.Write(line)
	return err
}
