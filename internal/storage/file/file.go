// Package file writes recordings as Tacview text files on disk.
package file

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/OCAP2/tacview/internal/storage"
	"github.com/OCAP2/tacview/internal/util"
	"github.com/OCAP2/tacview/pkg/acmi"
)

// Extension is the suffix Tacview associates with uncompressed recordings.
const Extension = ".txt.acmi"

// Config holds file backend settings.
type Config struct {
	OutputDir string
}

// Backend writes one recording per StartRecording/EndRecording pair.
type Backend struct {
	cfg Config

	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
	last string
}

// New creates a file backend.
func New(cfg Config) *Backend {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return &Backend{cfg: cfg}
}

// Init creates the output directory.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// StartRecording opens <OutputDir>/<name>.txt.acmi. The header and metadata
// arrive through Write like any other connection's preface.
func (b *Backend) StartRecording(name string, _ acmi.Metadata) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f != nil {
		return fmt.Errorf("recording %s already open", b.path)
	}

	path := filepath.Join(b.cfg.OutputDir, util.SafeFileName(name)+Extension)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	b.f = f
	b.w = bufio.NewWriterSize(f, 64*1024)
	b.path = path
	return nil
}

// Write appends data to the open recording.
func (b *Backend) Write(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.w == nil {
		return storage.ErrNotStarted
	}
	if _, err := b.w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", b.path, err)
	}
	return nil
}

// EndRecording flushes and closes the recording. The path stays available
// through ExportedFilePath.
func (b *Backend) EndRecording() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return storage.ErrNotStarted
	}
	flushErr := b.w.Flush()
	closeErr := b.f.Close()
	b.last, b.path = b.path, ""
	b.f, b.w = nil, nil
	if flushErr != nil {
		return fmt.Errorf("flush recording: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close recording: %w", closeErr)
	}
	return nil
}

// Close ends any open recording.
func (b *Backend) Close() error {
	b.mu.Lock()
	open := b.f != nil
	b.mu.Unlock()
	if open {
		return b.EndRecording()
	}
	return nil
}

// ExportedFilePath returns the last completed recording, "" if none.
func (b *Backend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
