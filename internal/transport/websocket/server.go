// Package websocket streams ACMI to browser observers, one text message per
// tick buffer.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/tacview/internal/transport"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	readLimit    = 4096
	shutdownWait = 5 * time.Second
)

// Config holds WebSocket server settings.
type Config struct {
	Addr       string
	Path       string
	Secret     string
	SendBuffer int
}

// Server upgrades HTTP requests to WebSocket observers.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	upgrader ws.Upgrader

	mu     sync.Mutex
	notify transport.Notifier
	http   *http.Server
	ln     net.Listener
	closed bool

	peers transport.Peers
	wg    sync.WaitGroup
}

// New creates a Server.
func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.Path == "" {
		cfg.Path = "/acmi"
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: ws.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Send implements transport.Sender.
func (s *Server) Send(conn transport.ConnID, data []byte) error {
	return s.peers.Send(conn, data)
}

// Clients returns the number of connected observers.
func (s *Server) Clients() int {
	return s.peers.Len()
}

// Handler returns the upgrade handler reporting to notify. It can be
// mounted on any mux; Serve uses it on its own listener.
func (s *Server) Handler(notify transport.Notifier) http.Handler {
	s.mu.Lock()
	s.notify = notify
	s.mu.Unlock()
	return http.HandlerFunc(s.serveWS)
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.logger.Info("WebSocket observer server listening", "addr", ln.Addr().String(), "path", s.cfg.Path)
	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve runs the HTTP server until ctx is done.
func (s *Server) Serve(ctx context.Context, notify transport.Notifier) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s.Handler(notify))

	s.mu.Lock()
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	srv, ln := s.http, s.ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve websocket: %w", err)
	}
	s.wg.Wait()
	return nil
}

// Close disconnects every observer and stops the HTTP server. Upgrades
// arriving afterwards are refused.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	srv := s.http
	s.mu.Unlock()
	s.peers.CloseAll()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Secret != "" && r.URL.Query().Get("secret") != s.cfg.Secret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	// Handlers are counted before the upgrade so that Serve, once Close has
	// run, waits for every hijacked connection.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	notify := s.notify
	s.mu.Unlock()
	defer s.wg.Done()

	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	p := transport.NewPeer(r.RemoteAddr, s.cfg.SendBuffer, func() error {
		_ = c.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		return c.Close()
	})
	s.peers.Add(p)
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		// Close may have swept the peers before this one was added.
		_ = p.Close()
		s.peers.Remove(p.ID)
		return
	}
	transport.Notify(notify, transport.Connected, p.ID, p.Addr, nil)

	defer func() {
		_ = p.Close()
		if s.peers.Remove(p.ID) {
			transport.Notify(notify, transport.Disconnected, p.ID, p.Addr, nil)
		}
	}()

	go s.writeLoop(c, p, notify)
	s.readLoop(c)
}

// writeLoop is the only goroutine writing data messages to c. Pings go
// through WriteControl, which gorilla allows concurrently.
func (s *Server) writeLoop(c *ws.Conn, p *transport.Peer, notify transport.Notifier) {
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-p.Done():
				return
			case <-ticker.C:
				if err := c.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					_ = p.Close()
					return
				}
			}
		}
	}()

	err := p.WriteLoop(func(data []byte) error {
		if err := c.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return c.WriteMessage(ws.TextMessage, data)
	})
	if err != nil {
		s.logger.Warn("WebSocket write error", "peer", p.Addr, "error", err)
		transport.Notify(notify, transport.Errored, p.ID, p.Addr, err)
	}
	_ = p.Close()
}

// readLoop keeps control frames flowing and returns when the peer goes away.
func (s *Server) readLoop(c *ws.Conn) {
	c.SetReadLimit(readLimit)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
