package acmi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

const (
	fileTypeKey   = "FileType"
	fileTypeValue = "text/acmi/tacview"
	versionKey    = "FileVersion"
	maxLineSize   = 4 << 20
	utf8BOM       = "\ufeff"
)

// Reader parses an ACMI text stream lazily, one logical line at a time.
type Reader struct {
	sc      *bufio.Scanner
	line    int
	pending []Record
	version string
}

// NewReader validates the file header and returns a Reader positioned at
// the first record. It fails with ErrInvalidFileType or ErrInvalidVersion
// when the header is wrong, or with the underlying error on I/O failure.
func NewReader(r io.Reader) (*Reader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	rd := &Reader{sc: sc}

	first, _, err := rd.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrInvalidFileType
		}
		return nil, err
	}
	key, value, _ := strings.Cut(strings.TrimPrefix(first, utf8BOM), "=")
	if key != fileTypeKey || value != fileTypeValue {
		return nil, ErrInvalidFileType
	}

	second, _, err := rd.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrInvalidVersion
		}
		return nil, err
	}
	key, value, _ = strings.Cut(second, "=")
	if key != versionKey || (value != "2" && !strings.HasPrefix(value, "2.")) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, second)
	}
	rd.version = value
	return rd, nil
}

// Version returns the FileVersion declared in the header.
func (r *Reader) Version() string {
	return r.version
}

// readLine returns the next non-empty logical line with its starting
// physical line number, joining ACMI line continuations.
func (r *Reader) readLine() (string, int, error) {
	for {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return "", r.line, err
			}
			return "", r.line, io.EOF
		}
		r.line++
		start := r.line
		line := strings.TrimSuffix(r.sc.Text(), "\r")
		for continues(line) && r.sc.Scan() {
			r.line++
			line += "\n" + strings.TrimSuffix(r.sc.Text(), "\r")
		}
		if err := r.sc.Err(); err != nil {
			return "", r.line, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, start, nil
	}
}

// Next returns the next record. It returns io.EOF at the end of the stream,
// a *LineError for a malformed line (the caller may keep reading), or the
// underlying error on I/O failure.
func (r *Reader) Next() (Record, error) {
	for len(r.pending) == 0 {
		line, n, err := r.readLine()
		if err != nil {
			return nil, err
		}
		recs, err := appendDecoded(r.pending[:0], line)
		if err != nil {
			return nil, &LineError{Line: n, Text: line, Err: err}
		}
		r.pending = recs
	}
	rec := r.pending[0]
	r.pending = r.pending[1:]
	return rec, nil
}

// All yields every remaining record. Line errors are yielded and iteration
// continues; an I/O error is yielded once and ends the sequence.
func (r *Reader) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			var lineErr *LineError
			if err != nil && !errors.As(err, &lineErr) {
				yield(nil, err)
				return
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

// Records validates the header of data and returns a restartable sequence
// over its records. Each iteration parses data from the start.
func Records(data []byte) (iter.Seq2[Record, error], error) {
	if _, err := NewReader(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return func(yield func(Record, error) bool) {
		rd, err := NewReader(bytes.NewReader(data))
		if err != nil {
			yield(nil, err)
			return
		}
		for rec, err := range rd.All() {
			if !yield(rec, err) {
				return
			}
		}
	}, nil
}
