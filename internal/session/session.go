// Package session runs the tick loop: drain the notification inbox, take a
// world snapshot from the host, filter it against the area of interest, run
// the sync engine and hand each connection its bytes.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/tacview/internal/geo"
	"github.com/OCAP2/tacview/internal/stream"
	"github.com/OCAP2/tacview/internal/transport"
	"github.com/OCAP2/tacview/pkg/acmi"
)

// DefaultTickRate is used when Config.TickRate is not positive.
const DefaultTickRate = 200 * time.Millisecond

// Source is the host adapter. Snapshot returns the world at frame seconds
// since the recording origin; hosts may override Snapshot.Time.
type Source interface {
	Snapshot(frame float64) stream.Snapshot
}

// SourceFunc adapts a function to Source.
type SourceFunc func(frame float64) stream.Snapshot

// Snapshot implements Source.
func (f SourceFunc) Snapshot(frame float64) stream.Snapshot { return f(frame) }

// Engine is the part of the sync engine the loop drives.
type Engine interface {
	Tick(snap stream.Snapshot) ([]stream.Output, error)
	MarkResync(conn transport.ConnID) error
	Connections() []transport.ConnID
}

// Inbox is drained at the start of every tick.
type Inbox interface {
	Drain() int
}

// MetadataSource supplies the recording origin.
type MetadataSource interface {
	Metadata() acmi.Metadata
}

// Config holds tick loop settings.
type Config struct {
	TickRate time.Duration
	// Area, when non-zero, flags live objects outside it as LeftArea.
	Area geo.Area
}

// Stats is a point-in-time view of the loop.
type Stats struct {
	Ticks         uint64
	Frame         float64
	Connections   int
	Objects       int
	Records       uint64
	Bytes         uint64
	Notifications uint64
	SendErrors    uint64
	LeftArea      uint64
	TickErrors    uint64
	LastTick      time.Duration
}

// Session ties the inbox, engine, host and transports together.
type Session struct {
	cfg    Config
	inbox  Inbox
	engine Engine
	source Source
	sender transport.Sender
	meta   MetadataSource
	logger *slog.Logger
	start  time.Time

	mu    sync.Mutex
	stats Stats
}

// New creates a Session. start is the frame origin used until the mission
// metadata carries a RecordingTime.
func New(cfg Config, inbox Inbox, engine Engine, source Source, sender transport.Sender,
	meta MetadataSource, start time.Time, logger *slog.Logger) *Session {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	return &Session{
		cfg:    cfg,
		inbox:  inbox,
		engine: engine,
		source: source,
		sender: sender,
		meta:   meta,
		start:  start,
		logger: logger,
	}
}

// Frame returns the frame time at now, in seconds since the recording
// origin.
func (s *Session) Frame(now time.Time) float64 {
	origin := s.start
	if s.meta != nil {
		if rt := s.meta.Metadata().RecordingTime; !rt.IsZero() {
			origin = rt
		}
	}
	return now.Sub(origin).Seconds()
}

// Step runs one tick at now.
func (s *Session) Step(now time.Time) error {
	began := time.Now()
	handled := s.inbox.Drain()

	snap := s.source.Snapshot(s.Frame(now))
	left := s.filterArea(&snap)

	outputs, err := s.engine.Tick(snap)
	if err != nil {
		s.update(func(st *Stats) {
			st.TickErrors++
			st.Notifications += uint64(handled)
		})
		return fmt.Errorf("tick at %.2f: %w", snap.Time, err)
	}

	var records, bytes, failed uint64
	for _, out := range outputs {
		records += uint64(out.Records)
		bytes += uint64(len(out.Data))
		if err := s.sender.Send(out.Conn, out.Data); err != nil {
			failed++
			s.logger.Debug("Send failed", "conn", out.Conn.String(), "error", err)
			if transport.NeedsResync(err) {
				_ = s.engine.MarkResync(out.Conn)
			}
		}
	}

	elapsed := time.Since(began)
	s.update(func(st *Stats) {
		st.Ticks++
		st.Frame = snap.Time
		st.Connections = len(outputs)
		st.Objects = len(snap.Objects)
		st.Records += records
		st.Bytes += bytes
		st.Notifications += uint64(handled)
		st.SendErrors += failed
		st.LeftArea += uint64(left)
		st.LastTick = elapsed
	})
	return nil
}

// Run ticks until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickRate)
	defer ticker.Stop()

	s.logger.Info("Session started", "tickRate", s.cfg.TickRate.String(), "area", !s.cfg.Area.IsZero())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session stopped", "ticks", s.Stats().Ticks)
			return nil
		case now := <-ticker.C:
			if err := s.Step(now); err != nil {
				s.logger.Error("Tick failed", "error", err)
			}
		}
	}
}

// Stats returns a copy of the loop statistics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// LogAttrs returns the attributes attached to every log record while the
// session runs.
func (s *Session) LogAttrs() []slog.Attr {
	st := s.Stats()
	return []slog.Attr{
		slog.Uint64("tick", st.Ticks),
		slog.Int("connections", st.Connections),
	}
}

func (s *Session) update(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// filterArea flags live objects positioned outside the area as LeftArea
// and returns how many were flagged. Objects without a position are kept.
func (s *Session) filterArea(snap *stream.Snapshot) int {
	if s.cfg.Area.IsZero() {
		return 0
	}
	n := 0
	for i := range snap.Objects {
		obj := &snap.Objects[i]
		if obj.Lifecycle != stream.Alive || obj.Coords == nil {
			continue
		}
		lon, okLon := obj.Coords.Get(acmi.FieldLongitude)
		lat, okLat := obj.Coords.Get(acmi.FieldLatitude)
		if !okLon || !okLat {
			continue
		}
		if !s.cfg.Area.Contains(lon, lat) {
			obj.Lifecycle = stream.LeftArea
			n++
		}
	}
	return n
}
