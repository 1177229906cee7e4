// Package acmi implements the Tacview ACMI 2.x text telemetry format:
// record values, their line encoding and a streaming reader/writer.
package acmi

// GlobalID is the object id every global line (metadata, events) is addressed to.
const GlobalID uint64 = 0

// Record is one ACMI line. The set of implementations is closed:
// GlobalProperty, Frame, Update, Remove and Event.
type Record interface {
	isRecord()
}

// Frame starts a batch of object updates at an offset in seconds from
// ReferenceTime. Frame values must not decrease within a stream.
type Frame float64

// Remove deletes an object from the scene.
type Remove uint64

// GlobalProperty is a mission-wide metadata line on object 0.
type GlobalProperty struct {
	Key   GlobalKey
	Value string
}

// Update carries one object's properties. When Coords is set it is
// rendered first as the T= property.
type Update struct {
	ID     uint64
	Coords *Coords
	Props  PropertyList
}

// Event is a global event line (0,Event=Kind|params|Text).
type Event struct {
	Kind   EventKind
	Params []string
	Text   string
}

func (GlobalProperty) isRecord() {}
func (Frame) isRecord()          {}
func (Update) isRecord()         {}
func (Remove) isRecord()         {}
func (Event) isRecord()          {}
