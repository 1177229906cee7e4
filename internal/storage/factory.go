package storage

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/tacview/internal/config"
	"github.com/OCAP2/tacview/internal/storage/file"
	"github.com/OCAP2/tacview/internal/storage/websocket"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.RecordingConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "file":
		return file.New(file.Config{OutputDir: cfg.File.OutputDir}), nil
	case "websocket":
		if cfg.WebSocket.URL == "" {
			return nil, fmt.Errorf("websocket recording needs recording.websocket.url")
		}
		return websocket.New(websocket.Config{URL: cfg.WebSocket.URL, Secret: cfg.WebSocket.Secret}, logger), nil
	default:
		return nil, fmt.Errorf("unknown recording type: %s", cfg.Type)
	}
}
