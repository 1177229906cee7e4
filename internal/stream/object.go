package stream

import (
	"errors"
	"fmt"

	"github.com/OCAP2/tacview/pkg/acmi"
)

var (
	// ErrReservedID is returned for a snapshot object using the global id 0.
	ErrReservedID = errors.New("object id 0 is reserved for global properties")
	// ErrDuplicateID is returned when a snapshot lists the same id twice.
	ErrDuplicateID = errors.New("duplicate object id")
	// ErrUnknownConn is returned for a connection the engine does not track.
	ErrUnknownConn = errors.New("connection not attached")
)

// Lifecycle is the host's verdict on an object for the current tick.
type Lifecycle uint8

const (
	Alive Lifecycle = iota
	Destroyed
	LeftArea
	Timeout
)

func (l Lifecycle) String() string {
	switch l {
	case Alive:
		return "alive"
	case Destroyed:
		return "destroyed"
	case LeftArea:
		return "left_area"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("lifecycle(%d)", uint8(l))
	}
}

// event returns the ACMI event announcing the end of an object.
func (l Lifecycle) event() acmi.EventKind {
	switch l {
	case Destroyed:
		return acmi.EventDestroyed
	case LeftArea:
		return acmi.EventLeftArea
	default:
		return acmi.EventTimeout
	}
}

// Object is one entry of a host snapshot.
type Object struct {
	ID        uint64
	Coords    *acmi.Coords
	Props     acmi.PropertyList
	Lifecycle Lifecycle
}

// Snapshot is the world state for one tick. Time is in seconds since the
// recording reference.
type Snapshot struct {
	Time    float64
	Objects []Object
}

// Validate checks the id invariants of the snapshot and that every property
// can be encoded.
func (s Snapshot) Validate() error {
	seen := make(map[uint64]struct{}, len(s.Objects))
	for i, o := range s.Objects {
		if o.ID == acmi.GlobalID {
			return fmt.Errorf("object %d: %w", i, ErrReservedID)
		}
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("object %d (%s): %w", i, acmi.FormatID(o.ID), ErrDuplicateID)
		}
		seen[o.ID] = struct{}{}
		if err := acmi.ValidateProperties(o.Props); err != nil {
			return fmt.Errorf("object %d (%s): %w", i, acmi.FormatID(o.ID), err)
		}
	}
	return nil
}

// State is the sync state of one object on one connection.
type State uint8

const (
	Untracked State = iota
	Spawned
	Synced
	Removed
)

func (s State) String() string {
	switch s {
	case Untracked:
		return "untracked"
	case Spawned:
		return "spawned"
	case Synced:
		return "synced"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}
