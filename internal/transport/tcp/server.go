// Package tcp serves the Tacview real-time telemetry protocol over TCP.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/OCAP2/tacview/internal/transport"
	"github.com/OCAP2/tacview/pkg/acmi"
)

// DefaultAddr is the port Tacview connects to by default.
const DefaultAddr = ":42674"

const (
	defaultWriteWait     = 10 * time.Second
	defaultHelloTimeout  = 30 * time.Second
	maxClientHelloLength = 4096
)

// ErrBadPassword is reported when a client's handshake password does not match.
var ErrBadPassword = errors.New("client password rejected")

// Config holds TCP server settings.
type Config struct {
	Addr         string
	Password     string
	SendBuffer   int
	WriteWait    time.Duration
	HelloTimeout time.Duration
}

// Server accepts real-time clients and streams to them.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	ln     net.Listener
	closed bool

	peers transport.Peers
	wg    sync.WaitGroup
}

// New creates a Server. Zero config fields take defaults.
func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.HelloTimeout <= 0 {
		cfg.HelloTimeout = defaultHelloTimeout
	}
	return &Server{cfg: cfg, logger: logger}
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
	s.logger.Info("Real-time telemetry server listening", "addr", ln.Addr().String())
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

// Send implements transport.Sender.
func (s *Server) Send(conn transport.ConnID, data []byte) error {
	return s.peers.Send(conn, data)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return s.peers.Len()
}

// Serve accepts clients until ctx is done or Close is called. Listen is
// called first if needed. Connection changes are reported to notify.
func (s *Server) Serve(ctx context.Context, notify transport.Notifier) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		c, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(c, notify)
		}()
	}
}

// Close stops accepting and disconnects every client.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	s.mu.Unlock()

	s.peers.CloseAll()
	if ln != nil {
		return ln.Close()
	}
	return nil
}

func (s *Server) handle(c net.Conn, notify transport.Notifier) {
	p := transport.NewPeer(c.RemoteAddr().String(), s.cfg.SendBuffer, c.Close)
	s.peers.Add(p)
	transport.Notify(notify, transport.Connected, p.ID, p.Addr, nil)

	defer func() {
		_ = p.Close()
		if s.peers.Remove(p.ID) {
			transport.Notify(notify, transport.Disconnected, p.ID, p.Addr, nil)
		}
	}()

	// The first buffer is the banner. Everything after it waits for the
	// client's handshake to pass.
	authed := make(chan struct{})
	go func() {
		first := true
		err := p.WriteLoop(func(data []byte) error {
			if !first {
				select {
				case <-authed:
				case <-p.Done():
					return net.ErrClosed
				}
			}
			first = false
			if err := c.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait)); err != nil {
				return err
			}
			_, err := c.Write(data)
			return err
		})
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("Client write error", "peer", p.Addr, "error", err)
			transport.Notify(notify, transport.Errored, p.ID, p.Addr, err)
		}
		_ = p.Close()
	}()

	if err := s.readHello(c, p); err != nil {
		if !errors.Is(err, net.ErrClosed) {
			transport.Notify(notify, transport.Errored, p.ID, p.Addr, err)
		}
		return
	}
	close(authed)

	// Clients send nothing after their handshake; the read only detects hangups.
	_, _ = io.Copy(io.Discard, c)
}

func (s *Server) readHello(c net.Conn, p *transport.Peer) error {
	if err := c.SetReadDeadline(time.Now().Add(s.cfg.HelloTimeout)); err != nil {
		return err
	}
	r := bufio.NewReader(io.LimitReader(c, maxClientHelloLength))
	raw, err := r.ReadBytes(0)
	if err != nil {
		return fmt.Errorf("read client handshake: %w", err)
	}
	hello, err := acmi.ParseClientHello(raw)
	if err != nil {
		return err
	}
	if s.cfg.Password != "" && hello.Password != s.cfg.Password {
		return fmt.Errorf("client %q: %w", hello.Client, ErrBadPassword)
	}
	s.logger.Info("Client handshake", "peer", p.Addr, "client", hello.Client)
	return c.SetReadDeadline(time.Time{})
}
