package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutExporter(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "tacview-host"})
	assert.ErrorIs(t, err, ErrNoExporter)
}

func TestNew_WritesLogsToWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "tacview-host",
		HostName:     "Range 7",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())
	assert.True(t, p.Enabled())
	assert.NotNil(t, p.Meter("github.com/OCAP2/tacview/internal/stream"))

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestResourceAttrs(t *testing.T) {
	attrs := resourceAttrs(Config{ServiceName: "svc"})
	require.Len(t, attrs, 1)
	assert.Equal(t, "svc", attrs[0].Value.AsString())

	attrs = resourceAttrs(Config{ServiceName: "svc", HostName: "h"})
	require.Len(t, attrs, 2)
	assert.Equal(t, "tacview.host.name", string(attrs[1].Key))
}
