// Package transport defines how the stream core talks to its peers: a
// non-blocking per-connection send and a stream of lifecycle notifications.
package transport

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownConn is returned when sending to a connection nobody owns.
	ErrUnknownConn = errors.New("unknown connection")
	// ErrSendBufferFull is returned when a peer's send queue cannot take more data.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrClosed is returned when sending on a closed transport.
	ErrClosed = errors.New("transport closed")
	// ErrResync is returned by peers that dropped data and can only continue
	// from a full sync.
	ErrResync = errors.New("peer requires a full resync")
)

// NeedsResync reports whether a Send error left the peer's view of the
// stream incomplete.
func NeedsResync(err error) bool {
	return errors.Is(err, ErrSendBufferFull) || errors.Is(err, ErrResync)
}

// ConnID identifies one peer for the lifetime of its connection.
type ConnID uuid.UUID

// NewConnID returns a fresh random connection id.
func NewConnID() ConnID {
	return ConnID(uuid.New())
}

func (c ConnID) String() string {
	return uuid.UUID(c).String()
}

// Kind is the type of a transport notification.
type Kind string

const (
	Connected    Kind = "connected"
	Disconnected Kind = "disconnected"
	Errored      Kind = "error"
)

// Notification reports a change on one connection.
type Notification struct {
	Kind Kind
	Conn ConnID
	// Peer is a human readable peer description (remote address, client name).
	Peer string
	Err  error
	At   time.Time
}

// Sender delivers bytes to one connection without blocking.
type Sender interface {
	Send(conn ConnID, data []byte) error
}

// Notifier receives connection notifications. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Notify builds a notification stamped with the current time.
func Notify(to Notifier, kind Kind, conn ConnID, peer string, err error) {
	to.Notify(Notification{Kind: kind, Conn: conn, Peer: peer, Err: err, At: time.Now()})
}
