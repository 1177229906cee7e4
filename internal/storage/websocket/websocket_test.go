package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/tacview/internal/storage"
	"github.com/OCAP2/tacview/pkg/acmi"
	"github.com/OCAP2/tacview/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

// collector is an httptest server that upgrades to WebSocket, records
// received envelopes and acks start/end messages.
type collector struct {
	*httptest.Server

	mu       sync.Mutex
	messages []streaming.Envelope
	secrets  []string
	conns    []*ws.Conn
}

func newCollector(t *testing.T) *collector {
	t.Helper()
	c := &collector{}
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	c.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()

		c.mu.Lock()
		c.secrets = append(c.secrets, r.URL.Query().Get("secret"))
		c.conns = append(c.conns, conn)
		c.mu.Unlock()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			c.mu.Lock()
			c.messages = append(c.messages, env)
			c.mu.Unlock()

			if env.Type == streaming.TypeStartRecording || env.Type == streaming.TypeEndRecording {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(c.Close)
	return c
}

func (c *collector) url() string {
	return "ws" + strings.TrimPrefix(c.URL, "http")
}

func (c *collector) all() []streaming.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]streaming.Envelope(nil), c.messages...)
}

func (c *collector) dropConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conn := range c.conns {
		_ = conn.Close()
	}
}

func newBackend(t *testing.T, c *collector) *Backend {
	t.Helper()
	b := New(Config{URL: c.url(), Secret: "s3cret"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.conn.initialBackoff = 10 * time.Millisecond
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestRecording_RelaysChunksInOrder(t *testing.T) {
	c := newCollector(t)
	b := newBackend(t, c)

	meta := acmi.Metadata{Title: "Red Flag", ReferenceTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, b.StartRecording("rf", meta))
	require.NoError(t, b.Write([]byte(acmi.FileHeader)))
	require.NoError(t, b.Write([]byte("#0.00\n")))
	require.NoError(t, b.EndRecording())

	msgs := c.all()
	require.Len(t, msgs, 4)
	assert.Equal(t, streaming.TypeStartRecording, msgs[0].Type)
	assert.Equal(t, streaming.TypeACMI, msgs[1].Type)
	assert.Equal(t, streaming.TypeACMI, msgs[2].Type)
	assert.Equal(t, streaming.TypeEndRecording, msgs[3].Type)

	var start streaming.StartRecordingPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "rf", start.Name)
	assert.Equal(t, "Red Flag", start.Title)
	assert.False(t, start.Resumed)

	var chunk streaming.ChunkPayload
	require.NoError(t, json.Unmarshal(msgs[2].Payload, &chunk))
	assert.Equal(t, uint64(1), chunk.Seq)
	assert.Equal(t, "#0.00\n", chunk.Data)

	var end streaming.EndRecordingPayload
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &end))
	assert.Equal(t, uint64(2), end.Chunks)
	assert.Equal(t, uint64(len(acmi.FileHeader)+len("#0.00\n")), end.Bytes)

	assert.Equal(t, []string{"s3cret"}, c.secrets)
}

func TestWrite_BeforeStart(t *testing.T) {
	b := newBackend(t, newCollector(t))
	assert.ErrorIs(t, b.Write([]byte("#0.00\n")), storage.ErrNotStarted)
	assert.ErrorIs(t, b.EndRecording(), storage.ErrNotStarted)
}

func TestReconnect_ReplaysStartAndRequestsResync(t *testing.T) {
	c := newCollector(t)
	b := newBackend(t, c)
	require.NoError(t, b.StartRecording("rf", acmi.Metadata{Title: "Red Flag"}))

	c.dropConnections()

	require.Eventually(t, func() bool {
		for _, env := range c.all()[1:] {
			if env.Type == streaming.TypeStartRecording {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "start_recording replayed")

	var replay streaming.StartRecordingPayload
	msgs := c.all()
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, &replay))
	assert.True(t, replay.Resumed)
	assert.Equal(t, "rf", replay.Name)

	assert.ErrorIs(t, b.Write([]byte("#1.00\n")), storage.ErrResync)
	require.NoError(t, b.Write([]byte("#1.00\n1,T=1|2|3\n")))

	require.Eventually(t, func() bool {
		msgs := c.all()
		return msgs[len(msgs)-1].Type == streaming.TypeACMI
	}, 5*time.Second, 10*time.Millisecond)
}
