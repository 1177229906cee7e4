package acmi

import "strconv"

// EventKind is the first field of an Event= value.
type EventKind string

const (
	EventMessage   EventKind = "Message"
	EventBookmark  EventKind = "Bookmark"
	EventDebug     EventKind = "Debug"
	EventLeftArea  EventKind = "LeftArea"
	EventDestroyed EventKind = "Destroyed"
	EventTakenOff  EventKind = "TakenOff"
	EventLanded    EventKind = "Landed"
	EventTimeout   EventKind = "Timeout"
)

// eventArity is the number of positional parameters each kind carries
// between the kind and the optional text.
var eventArity = map[EventKind]int{
	EventMessage:   1,
	EventBookmark:  0,
	EventDebug:     0,
	EventLeftArea:  1,
	EventDestroyed: 1,
	EventTakenOff:  1,
	EventLanded:    1,
	EventTimeout:   1,
}

// Arity returns the parameter count of k and whether k is known.
func (k EventKind) Arity() (int, bool) {
	n, ok := eventArity[k]
	return n, ok
}

// IsLifecycle reports whether k retires the object named by its parameter.
func (k EventKind) IsLifecycle() bool {
	switch k {
	case EventDestroyed, EventLeftArea, EventTimeout:
		return true
	}
	return false
}

// FormatID renders an object id the way ACMI addresses objects.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 16)
}

// ParseID parses a hexadecimal object id.
func ParseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, ErrInvalidID
	}
	return id, nil
}

// LifecycleEvent builds the event that accompanies the removal of id.
func LifecycleEvent(kind EventKind, id uint64) Event {
	return Event{Kind: kind, Params: []string{FormatID(id)}}
}
