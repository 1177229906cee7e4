package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// captureStdout swaps the console writer for a pipe; the returned func
// restores it and yields what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	prev := osStdout
	osStdout = w
	return func() string {
		_ = w.Close()
		osStdout = prev
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		_ = r.Close()
		return buf.String()
	}
}

func TestSetup_Destination(t *testing.T) {
	t.Run("file suppresses console", func(t *testing.T) {
		restore := captureStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("peer connected", "peer", "127.0.0.1:5000")

		assert.Empty(t, restore())
		assert.Contains(t, file.String(), "peer connected")
		assert.Contains(t, file.String(), "Logging initialized")
	})

	t.Run("console without file", func(t *testing.T) {
		restore := captureStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("peer connected")

		assert.Contains(t, restore(), "peer connected")
	})
}

func TestSetup_Level(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)

			m.Logger().Debug("frame rendered")
			m.Logger().Error("send failed")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("frame rendered")))
			assert.Contains(t, buf.String(), "send failed")
		})
	}
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var before, after bytes.Buffer
	m := NewSlogManager()

	m.Setup(&before, "info", nil)
	m.Logger().Info("boot")
	m.Setup(&after, "info", nil)
	m.Logger().Info("streaming")

	assert.NotContains(t, before.String(), "streaming")
	assert.Contains(t, after.String(), "streaming")
}

func TestSetup_ExtraWritersGetJSON(t *testing.T) {
	var file, gelf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, nil, &gelf)

	m.Logger().Info("client attached", "conn", "c1")

	assert.Contains(t, file.String(), "conn=c1")
	assert.Contains(t, gelf.String(), `"conn":"c1"`)
}

func TestSetup_ContextProvider(t *testing.T) {
	var buf, gelf bytes.Buffer
	tick := uint64(0)
	m := NewSlogManager()
	m.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.Uint64("tick", tick), slog.Int("connections", 2)}
	})
	m.Setup(&buf, "info", nil, &gelf)

	tick = 125
	m.Logger().Info("tick complete")

	assert.Contains(t, buf.String(), "stream.tick=125")
	assert.Contains(t, buf.String(), "stream.connections=2")
	assert.Contains(t, gelf.String(), `"stream":{"tick":125,"connections":2}`)
}

func TestSetup_EmptyContextAddsNothing(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.SetContextProvider(func() []slog.Attr { return nil })
	m.Setup(&buf, "info", nil)

	m.Logger().Info("before first tick")
	assert.NotContains(t, buf.String(), "stream")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)
	m.Logger().Info("bridged")

	assert.Contains(t, buf.String(), "bridged")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, parseLevel(in))
		})
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("graylog down") }

func TestMultiHandler(t *testing.T) {
	t.Run("fans out and skips nil", func(t *testing.T) {
		var a, b bytes.Buffer
		multi := NewMultiHandler(nil, slog.NewTextHandler(&a, nil), nil, slog.NewJSONHandler(&b, nil))
		require.Len(t, multi.handlers, 2)

		slog.New(multi).Info("fanned out")
		assert.Contains(t, a.String(), "fanned out")
		assert.Contains(t, b.String(), "fanned out")
	})

	t.Run("enabled if any sink is", func(t *testing.T) {
		info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
		debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})
		ctx := context.Background()

		assert.False(t, NewMultiHandler(info).Enabled(ctx, slog.LevelDebug))
		assert.True(t, NewMultiHandler(info, debug).Enabled(ctx, slog.LevelDebug))
		assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))
	})

	t.Run("failing sink does not starve others", func(t *testing.T) {
		var buf bytes.Buffer
		multi := NewMultiHandler(failingHandler{}, slog.NewTextHandler(&buf, nil))

		r := slog.NewRecord(time.Time{}, slog.LevelInfo, "still delivered", 0)
		err := multi.Handle(context.Background(), r)
		assert.EqualError(t, err, "graylog down")
		assert.Contains(t, buf.String(), "still delivered")
	})

	t.Run("attrs and groups", func(t *testing.T) {
		var buf bytes.Buffer
		multi := NewMultiHandler(slog.NewTextHandler(&buf, nil))
		assert.Same(t, multi, multi.WithGroup(""))

		logger := slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "tcp")}).WithGroup("peer"))
		logger.Info("hello", "addr", "10.0.0.2")
		assert.Contains(t, buf.String(), "component=tcp")
		assert.Contains(t, buf.String(), "peer.addr=10.0.0.2")
	})
}
