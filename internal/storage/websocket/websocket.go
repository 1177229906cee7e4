// Package websocket relays a recording to a remote collector. Each tick's
// ACMI text travels as one envelope; the collector assembles the file.
package websocket

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/OCAP2/tacview/internal/storage"
	"github.com/OCAP2/tacview/pkg/acmi"
	"github.com/OCAP2/tacview/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams a recording over WebSocket. It implements storage.Backend
// but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config

	mu     sync.Mutex
	name   string
	chunks uint64
	bytes  uint64
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	return &Backend{
		conn: newConnection(logger.With("component", "relay")),
		cfg:  cfg,
	}
}

// Init connects to the collector.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the collector.
func (b *Backend) Close() error {
	return b.conn.close()
}

func startPayload(name string, meta acmi.Metadata) streaming.StartRecordingPayload {
	return streaming.StartRecordingPayload{
		Name:          name,
		Title:         meta.Title,
		Category:      meta.Category,
		Author:        meta.Author,
		ReferenceTime: meta.ReferenceTime,
		RecordingTime: meta.RecordingTime,
	}
}

// StartRecording announces the recording and waits for the collector's ack.
func (b *Backend) StartRecording(name string, meta acmi.Metadata) error {
	payload := startPayload(name, meta)
	data, err := streaming.Marshal(streaming.TypeStartRecording, payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeStartRecording, err)
	}
	payload.Resumed = true
	replay, err := streaming.Marshal(streaming.TypeStartRecording, payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeStartRecording, err)
	}

	b.conn.mu.Lock()
	b.conn.cachedStart = replay
	b.conn.mu.Unlock()

	b.mu.Lock()
	b.name, b.chunks, b.bytes = name, 0, 0
	b.mu.Unlock()

	// A fresh recording starts with a full sync anyway.
	b.conn.takeBroken()
	return b.conn.sendAndWait(data, streaming.TypeStartRecording, ackTimeout)
}

// Write relays one chunk. After a reconnect or a dropped chunk it returns
// storage.ErrResync and drops data, so the caller can send a full sync.
func (b *Backend) Write(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.name == "" {
		return storage.ErrNotStarted
	}
	if b.conn.takeBroken() {
		return storage.ErrResync
	}

	msg, err := streaming.Marshal(streaming.TypeACMI, streaming.ChunkPayload{Seq: b.chunks, Data: string(data)})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeACMI, err)
	}
	if !b.conn.send(msg) {
		b.conn.takeBroken()
		return storage.ErrResync
	}
	b.chunks++
	b.bytes += uint64(len(data))
	return nil
}

// EndRecording sends end_recording and waits for the collector's ack.
func (b *Backend) EndRecording() error {
	b.mu.Lock()
	payload := streaming.EndRecordingPayload{Name: b.name, Chunks: b.chunks, Bytes: b.bytes}
	started := b.name != ""
	b.name = ""
	b.mu.Unlock()
	if !started {
		return storage.ErrNotStarted
	}

	data, err := streaming.Marshal(streaming.TypeEndRecording, payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeEndRecording, err)
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndRecording, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStart = nil
	b.conn.mu.Unlock()

	return err
}
