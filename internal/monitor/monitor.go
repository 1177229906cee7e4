package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/OCAP2/tacview/internal/session"
)

// DefaultInterval is used when Dependencies.Interval is not set.
const DefaultInterval = 5 * time.Second

// PointWriter receives one performance point per interval.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Inbox reports the notification inbox depth.
type Inbox interface {
	Pending() int
	Dropped() uint64
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Stats      func() session.Stats
	Inbox      Inbox
	Logger     *slog.Logger
	Points     PointWriter
	StatusFile string
	HostName   string
	Interval   time.Duration
}

// Status is the content of the status file.
type Status struct {
	Time          time.Time `json:"time"`
	Host          string    `json:"host"`
	Frame         float64   `json:"frame"`
	Ticks         uint64    `json:"ticks"`
	Connections   int       `json:"connections"`
	Objects       int       `json:"objects"`
	Records       uint64    `json:"records"`
	Bytes         uint64    `json:"bytes"`
	Notifications uint64    `json:"notifications"`
	SendErrors    uint64    `json:"sendErrors"`
	TickErrors    uint64    `json:"tickErrors"`
	LeftArea      uint64    `json:"leftArea"`
	LastTickMs    float64   `json:"lastTickMs"`
	InboxPending  int       `json:"inboxPending"`
	InboxDropped  uint64    `json:"inboxDropped"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus snapshots the session statistics.
func (s *Service) GetStatus(now time.Time) Status {
	st := s.deps.Stats()
	out := Status{
		Time:          now.UTC(),
		Host:          s.deps.HostName,
		Frame:         st.Frame,
		Ticks:         st.Ticks,
		Connections:   st.Connections,
		Objects:       st.Objects,
		Records:       st.Records,
		Bytes:         st.Bytes,
		Notifications: st.Notifications,
		SendErrors:    st.SendErrors,
		TickErrors:    st.TickErrors,
		LeftArea:      st.LeftArea,
		LastTickMs:    float64(st.LastTick.Microseconds()) / 1000,
	}
	if s.deps.Inbox != nil {
		out.InboxPending = s.deps.Inbox.Pending()
		out.InboxDropped = s.deps.Inbox.Dropped()
	}
	return out
}

// Point converts a status to an InfluxDB point.
func Point(st Status) *influxdb2_write.Point {
	return influxdb2.NewPoint("stream_stats",
		map[string]string{"host": st.Host},
		map[string]interface{}{
			"frame":         st.Frame,
			"ticks":         int64(st.Ticks),
			"connections":   st.Connections,
			"objects":       st.Objects,
			"records":       int64(st.Records),
			"bytes":         int64(st.Bytes),
			"notifications": int64(st.Notifications),
			"send_errors":   int64(st.SendErrors),
			"tick_errors":   int64(st.TickErrors),
			"left_area":     int64(st.LeftArea),
			"last_tick_ms":  st.LastTickMs,
			"inbox_pending": st.InboxPending,
			"inbox_dropped": int64(st.InboxDropped),
		},
		st.Time)
}

// Report takes one snapshot and writes it to every configured output.
func (s *Service) Report(now time.Time) error {
	st := s.GetStatus(now)

	if s.deps.Logger != nil {
		s.deps.Logger.Debug("Stream status",
			"frame", st.Frame,
			"connections", st.Connections,
			"objects", st.Objects,
			"bytes", st.Bytes,
			"sendErrors", st.SendErrors,
			"lastTickMs", st.LastTickMs)
	}

	if s.deps.StatusFile != "" {
		body, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal status: %w", err)
		}
		if err := os.WriteFile(s.deps.StatusFile, append(body, '\n'), 0644); err != nil {
			return fmt.Errorf("write status file: %w", err)
		}
	}

	if s.deps.Points != nil {
		if err := s.deps.Points.WritePoint(Point(st)); err != nil {
			return fmt.Errorf("write status point: %w", err)
		}
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				if err := s.Report(now); err != nil && s.deps.Logger != nil {
					s.deps.Logger.Error("Status report failed", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
