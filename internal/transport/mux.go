package transport

import (
	"fmt"
	"sync"
)

// Mux routes sends to the Sender that owns a connection. Ownership is
// learned from Connected notifications passing through Route and released
// on Disconnected.
type Mux struct {
	mu     sync.RWMutex
	owners map[ConnID]Sender
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{owners: make(map[ConnID]Sender)}
}

// Bind assigns conn to owner.
func (m *Mux) Bind(conn ConnID, owner Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[conn] = owner
}

// Unbind forgets conn.
func (m *Mux) Unbind(conn ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, conn)
}

// Len returns the number of bound connections.
func (m *Mux) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.owners)
}

// Send forwards data to the owner of conn.
func (m *Mux) Send(conn ConnID, data []byte) error {
	m.mu.RLock()
	owner, ok := m.owners[conn]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send to %s: %w", conn, ErrUnknownConn)
	}
	return owner.Send(conn, data)
}

// Route returns a Notifier for a transport owned by owner. It keeps the
// routing table in step with the transport's notifications and then
// forwards them to next.
func (m *Mux) Route(owner Sender, next Notifier) Notifier {
	return NotifierFunc(func(n Notification) {
		switch n.Kind {
		case Connected:
			m.Bind(n.Conn, owner)
		case Disconnected:
			m.Unbind(n.Conn)
		}
		next.Notify(n)
	})
}
