// Package recorder writes the stream to a storage backend. The recorder is
// a connection like any other: the engine renders for it, and its Send
// appends to the backend instead of a socket.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/tacview/internal/api"
	"github.com/OCAP2/tacview/internal/database"
	"github.com/OCAP2/tacview/internal/storage"
	"github.com/OCAP2/tacview/internal/transport"
	"github.com/OCAP2/tacview/internal/util"
	"github.com/OCAP2/tacview/pkg/acmi"
)

// Attacher registers the recorder with the sync engine.
type Attacher interface {
	AttachRecording(conn transport.ConnID) error
	OnDisconnected(conn transport.ConnID)
}

// Binder routes Send calls for the recorder's connection to it.
type Binder interface {
	Bind(conn transport.ConnID, owner transport.Sender)
	Unbind(conn transport.ConnID)
}

// MetadataSource supplies the metadata the recording starts with.
type MetadataSource interface {
	Metadata() acmi.Metadata
}

// Catalog stores finished recordings.
type Catalog interface {
	SaveRecording(rec *database.Recording) error
	MarkUploaded(name string) error
}

// Uploader publishes finished recording files.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta api.UploadMetadata) error
}

// Summary describes a finished recording.
type Summary struct {
	Name     string
	Path     string
	Duration float64
	Writes   uint64
	Bytes    uint64
	Uploaded bool
}

// Options holds the optional collaborators.
type Options struct {
	Catalog  Catalog
	Uploader Uploader
}

// Recorder drives one recording at a time. Start and Stop touch the sync
// engine and must not run concurrently with a session tick.
type Recorder struct {
	conn     transport.ConnID
	host     string
	backend  storage.Backend
	attacher Attacher
	binder   Binder
	meta     MetadataSource
	opts     Options
	logger   *slog.Logger

	mu      sync.Mutex
	name    string
	started acmi.Metadata
	writes  uint64
	bytes   uint64
}

// New creates a Recorder for host.
func New(host string, backend storage.Backend, attacher Attacher, binder Binder, meta MetadataSource, opts Options, logger *slog.Logger) *Recorder {
	return &Recorder{
		conn:     transport.NewConnID(),
		host:     host,
		backend:  backend,
		attacher: attacher,
		binder:   binder,
		meta:     meta,
		opts:     opts,
		logger:   logger.With("component", "recorder"),
	}
}

// Conn returns the recorder's pseudo-connection id.
func (r *Recorder) Conn() transport.ConnID {
	return r.conn
}

// Start opens the backend and attaches the recorder to the engine. The
// recording is named after the mission title and now.
func (r *Recorder) Start(now time.Time) error {
	meta := r.meta.Metadata()
	name := util.RecordingName(meta.Title, now)

	if err := r.backend.Init(); err != nil {
		return fmt.Errorf("init recording backend: %w", err)
	}
	if err := r.backend.StartRecording(name, meta); err != nil {
		_ = r.backend.Close()
		return fmt.Errorf("start recording %s: %w", name, err)
	}

	r.mu.Lock()
	r.name, r.started = name, meta
	r.writes, r.bytes = 0, 0
	r.mu.Unlock()

	r.binder.Bind(r.conn, r)
	if err := r.attacher.AttachRecording(r.conn); err != nil {
		r.binder.Unbind(r.conn)
		_ = r.backend.EndRecording()
		_ = r.backend.Close()
		return err
	}
	r.logger.Info("Recording started", "name", name)
	return nil
}

// Send implements transport.Sender for the recorder's connection.
func (r *Recorder) Send(conn transport.ConnID, data []byte) error {
	if conn != r.conn {
		return fmt.Errorf("recorder got data for %s: %w", conn, transport.ErrUnknownConn)
	}
	if err := r.backend.Write(data); err != nil {
		if errors.Is(err, storage.ErrResync) {
			return fmt.Errorf("%w: %w", transport.ErrResync, err)
		}
		return err
	}
	r.mu.Lock()
	r.writes++
	r.bytes += uint64(len(data))
	r.mu.Unlock()
	return nil
}

// Stop detaches the recorder, closes the backend, catalogs the recording
// and uploads it when an uploader is configured and the backend produced a
// file. lastFrame is the final frame time, recorded as the duration.
// Catalog and upload failures are logged, not returned.
func (r *Recorder) Stop(ctx context.Context, lastFrame float64) (Summary, error) {
	r.attacher.OnDisconnected(r.conn)
	r.binder.Unbind(r.conn)

	r.mu.Lock()
	sum := Summary{Name: r.name, Duration: lastFrame, Writes: r.writes, Bytes: r.bytes}
	meta := r.started
	r.mu.Unlock()

	endErr := r.backend.EndRecording()
	if u, ok := r.backend.(storage.Uploadable); ok {
		sum.Path = u.ExportedFilePath()
	}
	closeErr := r.backend.Close()
	if err := errors.Join(endErr, closeErr); err != nil {
		return sum, fmt.Errorf("finish recording %s: %w", sum.Name, err)
	}
	r.logger.Info("Recording finished", "name", sum.Name, "path", sum.Path, "bytes", sum.Bytes, "duration", sum.Duration)

	r.catalog(sum, meta)
	if r.opts.Uploader != nil && sum.Path != "" {
		sum.Uploaded = r.upload(ctx, sum, meta)
	}
	return sum, nil
}

func (r *Recorder) catalog(sum Summary, meta acmi.Metadata) {
	if r.opts.Catalog == nil {
		return
	}
	rec, err := database.NewRecording(sum.Name, r.host, meta)
	if err != nil {
		r.logger.Error("Failed to build catalog entry", "name", sum.Name, "error", err)
		return
	}
	rec.Duration = sum.Duration
	rec.Ticks = sum.Writes
	rec.Bytes = sum.Bytes
	rec.FilePath = sum.Path
	if err := r.opts.Catalog.SaveRecording(&rec); err != nil {
		r.logger.Error("Failed to catalog recording", "name", sum.Name, "error", err)
	}
}

func (r *Recorder) upload(ctx context.Context, sum Summary, meta acmi.Metadata) bool {
	err := r.opts.Uploader.Upload(ctx, sum.Path, api.UploadMetadata{
		Name:     sum.Name,
		Title:    meta.Title,
		Category: meta.Category,
		Host:     r.host,
		Duration: sum.Duration,
	})
	if err != nil {
		r.logger.Error("Failed to upload recording", "name", sum.Name, "error", err)
		return false
	}
	r.logger.Info("Recording uploaded", "name", sum.Name)
	if r.opts.Catalog != nil {
		if err := r.opts.Catalog.MarkUploaded(sum.Name); err != nil {
			r.logger.Error("Failed to mark recording uploaded", "name", sum.Name, "error", err)
		}
	}
	return true
}
