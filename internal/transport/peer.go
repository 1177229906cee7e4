package transport

import (
	"fmt"
	"sync"
)

// DefaultSendBuffer is the number of tick buffers a peer may lag behind.
const DefaultSendBuffer = 256

// Peer is one connected client with a bounded send queue drained by a
// single write goroutine.
type Peer struct {
	ID   ConnID
	Addr string

	sendCh  chan []byte
	done    chan struct{}
	once    sync.Once
	closeFn func() error
}

// NewPeer creates a peer whose queue holds size buffers. closeFn releases
// the underlying connection and runs once.
func NewPeer(addr string, size int, closeFn func() error) *Peer {
	if size <= 0 {
		size = DefaultSendBuffer
	}
	return &Peer{
		ID:      NewConnID(),
		Addr:    addr,
		sendCh:  make(chan []byte, size),
		done:    make(chan struct{}),
		closeFn: closeFn,
	}
}

// Enqueue hands data to the write goroutine. Non-blocking; fails when the
// queue is full or the peer is closed. data must not be modified afterwards.
func (p *Peer) Enqueue(data []byte) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.sendCh <- data:
		return nil
	default:
		return fmt.Errorf("peer %s: %w", p.Addr, ErrSendBufferFull)
	}
}

// WriteLoop drains the queue through write until the peer closes or write
// fails. Only one WriteLoop may run per peer.
func (p *Peer) WriteLoop(write func([]byte) error) error {
	for {
		select {
		case <-p.done:
			return nil
		case data := <-p.sendCh:
			if err := write(data); err != nil {
				return err
			}
		}
	}
}

// Close shuts the peer down. Safe to call more than once.
func (p *Peer) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		if p.closeFn != nil {
			err = p.closeFn()
		}
	})
	return err
}

// Done is closed once the peer is closed.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Peers is a concurrent set of peers that routes sends by connection id.
type Peers struct {
	mu    sync.RWMutex
	peers map[ConnID]*Peer
}

// Add registers p.
func (ps *Peers) Add(p *Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.peers == nil {
		ps.peers = make(map[ConnID]*Peer)
	}
	ps.peers[p.ID] = p
}

// Remove unregisters conn and reports whether it was present.
func (ps *Peers) Remove(conn ConnID) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	_, ok := ps.peers[conn]
	delete(ps.peers, conn)
	return ok
}

// Len returns the number of registered peers.
func (ps *Peers) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.peers)
}

// Send implements Sender.
func (ps *Peers) Send(conn ConnID, data []byte) error {
	ps.mu.RLock()
	p, ok := ps.peers[conn]
	ps.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send to %s: %w", conn, ErrUnknownConn)
	}
	return p.Enqueue(data)
}

// CloseAll closes every registered peer.
func (ps *Peers) CloseAll() {
	ps.mu.RLock()
	all := make([]*Peer, 0, len(ps.peers))
	for _, p := range ps.peers {
		all = append(all, p)
	}
	ps.mu.RUnlock()
	for _, p := range all {
		_ = p.Close()
	}
}
