package websocket

import (
	"context"
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

	"github.com/OCAP2/tacview/internal/transport"
)

// Compile-time interface check.
var _ transport.Sender = (*Server)(nil)

type chanNotifier chan transport.Notification

func (c chanNotifier) Notify(n transport.Notification) { c <- n }

func next(t *testing.T, ch chanNotifier) transport.Notification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return transport.Notification{}
	}
}

func testServer(t *testing.T, cfg Config) (*Server, *httptest.Server, chanNotifier) {
	t.Helper()
	srv := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	notes := make(chanNotifier, 16)
	hs := httptest.NewServer(srv.Handler(notes))
	t.Cleanup(func() {
		srv.peers.CloseAll()
		hs.Close()
	})
	return srv, hs, notes
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestServer_SendsOneMessagePerBuffer(t *testing.T) {
	srv, hs, notes := testServer(t, Config{})

	c, _, err := ws.DefaultDialer.Dial(wsURL(hs), nil)
	require.NoError(t, err)
	defer c.Close()

	connected := next(t, notes)
	require.Equal(t, transport.Connected, connected.Kind)
	assert.Equal(t, 1, srv.Clients())

	require.NoError(t, srv.Send(connected.Conn, []byte("#0.00\n1,T=1|2|3\n")))
	require.NoError(t, srv.Send(connected.Conn, []byte("#1.00\n")))

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ws.TextMessage, kind)
	assert.Equal(t, "#0.00\n1,T=1|2|3\n", string(msg))

	_, msg, err = c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "#1.00\n", string(msg))

	require.NoError(t, c.Close())
	gone := next(t, notes)
	assert.Equal(t, transport.Disconnected, gone.Kind)
	assert.Equal(t, connected.Conn, gone.Conn)
}

func TestServer_RequiresSecret(t *testing.T) {
	_, hs, notes := testServer(t, Config{Secret: "s3cret"})

	_, resp, err := ws.DefaultDialer.Dial(wsURL(hs), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	c, _, err := ws.DefaultDialer.Dial(wsURL(hs)+"?secret=s3cret", nil)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, transport.Connected, next(t, notes).Kind)
}

func TestServer_SendToUnknownConn(t *testing.T) {
	srv, _, _ := testServer(t, Config{})
	assert.ErrorIs(t, srv.Send(transport.NewConnID(), []byte("x")), transport.ErrUnknownConn)
}

func TestServer_RefusesUpgradesAfterClose(t *testing.T) {
	srv, hs, notes := testServer(t, Config{})
	require.NoError(t, srv.Close())

	_, resp, err := ws.DefaultDialer.Dial(wsURL(hs), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Empty(t, notes)
	assert.Zero(t, srv.Clients())
}

func TestServer_ServeWaitsForObserversDuringShutdown(t *testing.T) {
	srv := New(Config{Addr: "127.0.0.1:0"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, srv.Listen())

	notes := make(chanNotifier, 256)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, notes) }()

	url := "ws://" + srv.Addr().String() + "/acmi"
	var dials sync.WaitGroup
	for range 20 {
		dials.Add(1)
		go func() {
			defer dials.Done()
			if c, _, err := ws.DefaultDialer.Dial(url, nil); err == nil {
				_ = c.Close()
			}
		}()
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
	dials.Wait()
	assert.Zero(t, srv.Clients())
}
