package acmi

import (
	"errors"
	"fmt"
)

// Stream-level conditions. Either one aborts the whole parse.
var (
	ErrInvalidFileType = errors.New("input is not an ACMI text file")
	ErrInvalidVersion  = errors.New("invalid version, expected ACMI v2.x")
)

// Line-level conditions, wrapped in a *LineError by the Reader.
var (
	ErrInvalidID               = errors.New("object id is not a hexadecimal u64")
	ErrInvalidNumeric          = errors.New("expected numeric")
	ErrMissingDelimiter        = errors.New("missing expected delimiter")
	ErrInvalidCoordinateFormat = errors.New("invalid coordinate format")
	ErrInvalidEvent            = errors.New("invalid event syntax")
)

// ErrUnencodable is returned by Validate for a record whose text form would
// not decode back to it.
var ErrUnencodable = errors.New("record cannot be encoded")

// LineError reports a syntax failure on a single line. The stream can
// continue past it.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func missingDelimiter(d byte, s string) error {
	return fmt.Errorf("%w %q in %q", ErrMissingDelimiter, d, s)
}
