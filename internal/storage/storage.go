// Package storage defines where recordings go. A backend receives the same
// byte stream a live Tacview client would, minus the real-time banner.
package storage

import (
	"errors"

	"github.com/OCAP2/tacview/pkg/acmi"
)

// ErrNotStarted is returned by Write before StartRecording.
var ErrNotStarted = errors.New("recording not started")

// ErrResync is returned by Write when the backend lost stream continuity
// and needs a full sync before it accepts increments again. The rejected
// data is dropped.
var ErrResync = errors.New("recording requires a full resync")

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	Init() error
	Close() error

	StartRecording(name string, meta acmi.Metadata) error
	// Write appends one tick's worth of ACMI text.
	Write(data []byte) error
	EndRecording() error
}

// Uploadable is an optional interface for backends that produce a file
// suitable for upload to a web frontend.
type Uploadable interface {
	ExportedFilePath() string
}
