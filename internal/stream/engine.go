// Package stream turns a sequence of world snapshots into per-connection
// ACMI byte streams. Each connection gets a full spawn of every live object
// after its handshake and diff-only updates afterwards.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/OCAP2/tacview/internal/transport"
	"github.com/OCAP2/tacview/pkg/acmi"
)

// Output is the bytes one connection receives for one tick.
type Output struct {
	Conn    transport.ConnID
	Data    []byte
	Records int
}

type tracked struct {
	state  State
	coords *acmi.Coords
	props  acmi.PropertyList
	ended  acmi.EventKind
}

type connState struct {
	fullSync  bool
	preface   []byte
	lastFrame float64
	framed    bool
	objects   map[uint64]*tracked

	// sentPreface is the preface carried by the last Tick output, if any.
	sentPreface []byte
	// replay holds removals from a lost buffer, emitted by the next pass.
	replay []acmi.Record
}

// Engine owns the sync state of every attached connection. It is not safe
// for concurrent use; the tick loop drives it from a single goroutine.
type Engine struct {
	conns   map[transport.ConnID]*connState
	order   []transport.ConnID
	logger  *slog.Logger
	metrics *metrics
}

// New creates an Engine. Uses the global OTel meter for metrics.
func New(logger *slog.Logger) (*Engine, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	return &Engine{
		conns:   make(map[transport.ConnID]*connState),
		logger:  logger,
		metrics: m,
	}, nil
}

// Attach starts tracking conn. preface is written once, ahead of the next
// tick's records, and the next tick is a full sync. Attaching a known
// connection resets its state.
func (e *Engine) Attach(conn transport.ConnID, preface []byte) {
	if _, ok := e.conns[conn]; !ok {
		e.order = append(e.order, conn)
	}
	e.conns[conn] = &connState{
		fullSync: true,
		preface:  slices.Clone(preface),
		objects:  make(map[uint64]*tracked),
	}
	e.logger.Debug("connection attached", "conn", conn.String(), "preface", len(preface))
}

// Drop discards all state for conn.
func (e *Engine) Drop(conn transport.ConnID) {
	if _, ok := e.conns[conn]; !ok {
		return
	}
	delete(e.conns, conn)
	e.order = slices.DeleteFunc(e.order, func(c transport.ConnID) bool { return c == conn })
	e.logger.Debug("connection dropped", "conn", conn.String())
}

// MarkResync makes the next pass for conn a full sync. It is meant for a
// connection whose last Tick output was lost: the preface, if that output
// carried it, is queued again, and so are the removals it announced.
func (e *Engine) MarkResync(conn transport.ConnID) error {
	cs, ok := e.conns[conn]
	if !ok {
		return fmt.Errorf("mark resync %s: %w", conn, ErrUnknownConn)
	}
	cs.fullSync = true
	if cs.preface == nil && cs.sentPreface != nil {
		cs.preface = cs.sentPreface
	}

	var ended []uint64
	for id, t := range cs.objects {
		if t.state == Removed {
			ended = append(ended, id)
		}
	}
	slices.Sort(ended)
	cs.replay = cs.replay[:0]
	for _, id := range ended {
		cs.replay = append(cs.replay, acmi.Remove(id), acmi.LifecycleEvent(cs.objects[id].ended, id))
	}
	return nil
}

// NeedsFullSync reports whether the next pass for conn is a full sync.
func (e *Engine) NeedsFullSync(conn transport.ConnID) bool {
	cs, ok := e.conns[conn]
	return ok && cs.fullSync
}

// Connections returns the attached connections in attach order.
func (e *Engine) Connections() []transport.ConnID {
	return slices.Clone(e.order)
}

// State returns the sync state of object id on conn.
func (e *Engine) State(conn transport.ConnID, id uint64) State {
	cs, ok := e.conns[conn]
	if !ok {
		return Untracked
	}
	t, ok := cs.objects[id]
	if !ok {
		return Untracked
	}
	return t.state
}

// Tracked returns how many objects conn currently knows as live.
func (e *Engine) Tracked(conn transport.ConnID) int {
	cs, ok := e.conns[conn]
	if !ok {
		return 0
	}
	n := 0
	for _, t := range cs.objects {
		if t.state != Removed {
			n++
		}
	}
	return n
}

// Render runs one pass for conn and returns the records it produces. The
// preface is not included.
func (e *Engine) Render(conn transport.ConnID, snap Snapshot) ([]acmi.Record, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	cs, ok := e.conns[conn]
	if !ok {
		return nil, fmt.Errorf("render %s: %w", conn, ErrUnknownConn)
	}
	return e.render(cs, snap), nil
}

// Tick runs one pass for every attached connection and encodes the result,
// one buffer per connection.
func (e *Engine) Tick(snap Snapshot) ([]Output, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	outputs := make([]Output, 0, len(e.order))
	for _, conn := range e.order {
		cs := e.conns[conn]
		records := e.render(cs, snap)

		data := slices.Clip(cs.preface)
		cs.sentPreface = cs.preface
		cs.preface = nil
		for _, r := range records {
			data = acmi.AppendRecord(data, r)
			data = append(data, '\n')
		}

		e.metrics.bytes.Add(ctx, int64(len(data)))
		outputs = append(outputs, Output{Conn: conn, Data: data, Records: len(records)})
	}
	return outputs, nil
}

func (e *Engine) render(cs *connState, snap Snapshot) []acmi.Record {
	ctx := context.Background()

	// Objects removed last pass may come back as new spawns.
	for id, t := range cs.objects {
		if t.state == Removed {
			delete(cs.objects, id)
		}
	}

	frame := snap.Time
	if math.IsNaN(frame) || (cs.framed && frame < cs.lastFrame) {
		frame = cs.lastFrame
	}
	cs.lastFrame = frame
	cs.framed = true

	records := []acmi.Record{acmi.Frame(frame)}
	records = append(records, cs.replay...)
	cs.replay = nil
	full := cs.fullSync
	seen := make(map[uint64]struct{}, len(snap.Objects))

	for _, obj := range snap.Objects {
		seen[obj.ID] = struct{}{}
		t := cs.objects[obj.ID]

		if obj.Lifecycle != Alive {
			if t == nil {
				continue
			}
			t.ended = obj.Lifecycle.event()
			records = append(records, acmi.Remove(obj.ID), acmi.LifecycleEvent(t.ended, obj.ID))
			t.state = Removed
			e.metrics.removals.Add(ctx, 1)
			continue
		}

		if t == nil || full {
			records = append(records, spawn(obj))
			cs.objects[obj.ID] = &tracked{state: Spawned, coords: copyCoords(obj.Coords), props: obj.Props.Clone()}
			e.metrics.spawns.Add(ctx, 1)
			continue
		}

		if u, changed := t.diff(obj); changed {
			records = append(records, u)
			e.metrics.updates.Add(ctx, 1)
		}
		t.state = Synced
	}

	var gone []uint64
	for id, t := range cs.objects {
		if _, ok := seen[id]; !ok && t.state != Removed {
			gone = append(gone, id)
		}
	}
	slices.Sort(gone)
	for _, id := range gone {
		records = append(records, acmi.Remove(id), acmi.LifecycleEvent(acmi.EventTimeout, id))
		cs.objects[id].state = Removed
		cs.objects[id].ended = acmi.EventTimeout
		e.metrics.removals.Add(ctx, 1)
	}

	cs.fullSync = false
	e.metrics.records.Add(ctx, int64(len(records)))
	return records
}

func spawn(obj Object) acmi.Update {
	return acmi.Update{ID: obj.ID, Coords: copyCoords(obj.Coords), Props: obj.Props.Clone()}
}

// diff returns the incremental update for obj and folds it into t. Any
// included object carries its full coords, the last known ones when obj has
// none; properties are sent only when
// their value changed. Properties missing from obj keep their last value.
func (t *tracked) diff(obj Object) (acmi.Update, bool) {
	u := acmi.Update{ID: obj.ID}

	if obj.Coords != nil && (t.coords == nil || *t.coords != *obj.Coords) {
		u.Coords = copyCoords(obj.Coords)
		t.coords = copyCoords(obj.Coords)
	}

	for _, p := range obj.Props {
		if v, ok := t.props.Get(p.Name); ok && v == p.Value {
			continue
		}
		u.Props = append(u.Props, p)
		t.props = t.props.Set(p.Name, p.Value)
	}
	if len(u.Props) > 0 && u.Coords == nil {
		u.Coords = copyCoords(t.coords)
	}

	return u, u.Coords != nil || len(u.Props) > 0
}

func copyCoords(c *acmi.Coords) *acmi.Coords {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
