package monitor

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/tacview/internal/session"
)

type pointSink struct {
	mu     sync.Mutex
	points []*influxdb2_write.Point
	err    error
}

func (p *pointSink) WritePoint(point *influxdb2_write.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.points = append(p.points, point)
	return nil
}

func (p *pointSink) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.points)
}

type fakeInbox struct{}

func (fakeInbox) Pending() int    { return 3 }
func (fakeInbox) Dropped() uint64 { return 7 }

func fixedStats() session.Stats {
	return session.Stats{
		Ticks:       12,
		Frame:       2.4,
		Connections: 2,
		Objects:     5,
		Records:     40,
		Bytes:       1024,
		LastTick:    1500 * time.Microsecond,
	}
}

func TestReport_WritesStatusFileAndPoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.txt")
	sink := &pointSink{}
	svc := NewService(Dependencies{
		Stats:      fixedStats,
		Inbox:      fakeInbox{},
		Points:     sink,
		StatusFile: path,
		HostName:   "range7",
	})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Report(now))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "range7", st.Host)
	assert.Equal(t, 2, st.Connections)
	assert.Equal(t, uint64(1024), st.Bytes)
	assert.Equal(t, 1.5, st.LastTickMs)
	assert.True(t, now.Equal(st.Time))
	assert.Equal(t, 3, st.InboxPending)
	assert.Equal(t, uint64(7), st.InboxDropped)

	require.Equal(t, 1, sink.Len())
	p := sink.points[0]
	assert.Equal(t, "stream_stats", p.Name())
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, "range7", p.TagList()[0].Value)
}

func TestReport_PointError(t *testing.T) {
	svc := NewService(Dependencies{
		Stats:  fixedStats,
		Points: &pointSink{err: errors.New("down")},
	})
	err := svc.Report(time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}

func TestStartStop(t *testing.T) {
	sink := &pointSink{}
	svc := NewService(Dependencies{
		Stats:    fixedStats,
		Points:   sink,
		Interval: 10 * time.Millisecond,
	})

	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	assert.Eventually(t, func() bool { return sink.Len() >= 2 }, 2*time.Second, 5*time.Millisecond)

	svc.Stop()
	assert.False(t, svc.IsRunning())
	svc.Stop()
}

func TestNewService_DefaultInterval(t *testing.T) {
	svc := NewService(Dependencies{Stats: fixedStats})
	assert.Equal(t, DefaultInterval, svc.deps.Interval)
}
