// Package handshake prepares new connections for streaming: the real-time
// banner, the file header and the mission metadata block.
package handshake

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/OCAP2/tacview/internal/dispatcher"
	"github.com/OCAP2/tacview/internal/transport"
	"github.com/OCAP2/tacview/pkg/acmi"
)

// Engine is the part of the sync engine the handshake drives.
type Engine interface {
	Attach(conn transport.ConnID, preface []byte)
	Drop(conn transport.ConnID)
}

// MetadataSource supplies the mission metadata at connect time.
type MetadataSource interface {
	Metadata() acmi.Metadata
}

// Handshake reacts to transport notifications.
type Handshake struct {
	host   string
	meta   MetadataSource
	sender transport.Sender
	engine Engine
	logger *slog.Logger
}

// New creates a Handshake announcing itself as host.
func New(host string, meta MetadataSource, sender transport.Sender, engine Engine, logger *slog.Logger) *Handshake {
	return &Handshake{
		host:   host,
		meta:   meta,
		sender: sender,
		engine: engine,
		logger: logger,
	}
}

// Register wires the handshake into the dispatcher's inbox.
func (h *Handshake) Register(d *dispatcher.Dispatcher) {
	d.Register(transport.Connected, func(n transport.Notification) error {
		return h.OnConnected(n.Conn)
	}, dispatcher.Logged())
	d.Register(transport.Disconnected, func(n transport.Notification) error {
		h.OnDisconnected(n.Conn)
		return nil
	}, dispatcher.Logged())
	d.Register(transport.Errored, func(n transport.Notification) error {
		h.OnError(n.Conn, n.Err)
		return nil
	})
}

// Preface renders the file header followed by the metadata block.
func Preface(meta acmi.Metadata) ([]byte, error) {
	var buf bytes.Buffer
	w, err := acmi.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if err := w.WriteAll(meta.Records()...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OnConnected sends the banner straight to conn and schedules the header,
// the metadata block and a full sync for its next tick.
func (h *Handshake) OnConnected(conn transport.ConnID) error {
	if err := h.sender.Send(conn, acmi.Banner(h.host)); err != nil {
		return fmt.Errorf("send banner to %s: %w", conn, err)
	}
	return h.attach(conn)
}

// AttachRecording prepares a file sink: no banner, otherwise identical to
// a live connection.
func (h *Handshake) AttachRecording(conn transport.ConnID) error {
	return h.attach(conn)
}

func (h *Handshake) attach(conn transport.ConnID) error {
	preface, err := Preface(h.meta.Metadata())
	if err != nil {
		return fmt.Errorf("render metadata for %s: %w", conn, err)
	}
	h.engine.Attach(conn, preface)
	h.logger.Info("Client synchronised", "conn", conn.String())
	return nil
}

// OnDisconnected discards everything known about conn.
func (h *Handshake) OnDisconnected(conn transport.ConnID) {
	h.engine.Drop(conn)
	h.logger.Info("Client disconnected", "conn", conn.String())
}

// OnError logs a transport error. Nothing is retried.
func (h *Handshake) OnError(conn transport.ConnID, err error) {
	h.logger.Error("Transport error", "conn", conn.String(), "error", err)
}
