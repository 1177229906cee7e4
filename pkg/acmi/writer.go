package acmi

import (
	"fmt"
	"io"
)

// FileHeader is written once at the top of every ACMI text file.
const FileHeader = fileTypeKey + "=" + fileTypeValue + "\n" + versionKey + "=2.2\n"

// Writer renders records as newline-terminated ACMI lines.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter returns a Writer for file output. The file header is written
// before it returns.
func NewWriter(w io.Writer) (*Writer, error) {
	if _, err := io.WriteString(w, FileHeader); err != nil {
		return nil, fmt.Errorf("write acmi header: %w", err)
	}
	return &Writer{w: w}, nil
}

// NewStreamWriter returns a Writer for a live connection. It writes no header.
func NewStreamWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write appends exactly one line for r. Records rejected by Validate are
// not written.
func (w *Writer) Write(r Record) error {
	if err := Validate(r); err != nil {
		return err
	}
	w.buf = AppendRecord(w.buf[:0], r)
	w.buf = append(w.buf, '\n')
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("write acmi record: %w", err)
	}
	return nil
}

// WriteAll writes records in order, stopping at the first error.
func (w *Writer) WriteAll(records ...Record) error {
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
