package stream

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/tacview/internal/stream"

type metrics struct {
	records  metric.Int64Counter
	spawns   metric.Int64Counter
	updates  metric.Int64Counter
	removals metric.Int64Counter
	bytes    metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	if out.records, err = m.Int64Counter("stream.records", metric.WithDescription("ACMI records rendered")); err != nil {
		return nil, fmt.Errorf("creating records counter: %w", err)
	}
	if out.spawns, err = m.Int64Counter("stream.spawns", metric.WithDescription("Full object updates rendered")); err != nil {
		return nil, fmt.Errorf("creating spawns counter: %w", err)
	}
	if out.updates, err = m.Int64Counter("stream.updates", metric.WithDescription("Incremental object updates rendered")); err != nil {
		return nil, fmt.Errorf("creating updates counter: %w", err)
	}
	if out.removals, err = m.Int64Counter("stream.removals", metric.WithDescription("Objects removed from a connection")); err != nil {
		return nil, fmt.Errorf("creating removals counter: %w", err)
	}
	if out.bytes, err = m.Int64Counter("stream.bytes", metric.WithDescription("Encoded bytes handed to transports"), metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("creating bytes counter: %w", err)
	}
	return out, nil
}
