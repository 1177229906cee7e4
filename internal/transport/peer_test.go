package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeer_EnqueueDropsWhenFull(t *testing.T) {
	p := NewPeer("test", 2, nil)

	require.NoError(t, p.Enqueue([]byte("a")))
	require.NoError(t, p.Enqueue([]byte("b")))
	assert.ErrorIs(t, p.Enqueue([]byte("c")), ErrSendBufferFull)
}

func TestPeer_WriteLoopPreservesOrder(t *testing.T) {
	p := NewPeer("test", 8, nil)
	for _, s := range []string{"one", "two", "three"} {
		require.NoError(t, p.Enqueue([]byte(s)))
	}

	var got []string
	done := make(chan error, 1)
	go func() {
		done <- p.WriteLoop(func(b []byte) error {
			got = append(got, string(b))
			if len(got) == 3 {
				return errors.New("stop")
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.EqualError(t, err, "stop")
	case <-time.After(time.Second):
		t.Fatal("write loop did not finish")
	}
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestPeer_CloseOnce(t *testing.T) {
	calls := 0
	p := NewPeer("test", 1, func() error {
		calls++
		return nil
	})

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, p.Enqueue([]byte("late")), ErrClosed)

	select {
	case <-p.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.NoError(t, p.WriteLoop(func([]byte) error { return nil }))
}

func TestPeers_Send(t *testing.T) {
	var ps Peers
	p := NewPeer("test", 1, nil)
	ps.Add(p)
	assert.Equal(t, 1, ps.Len())

	require.NoError(t, ps.Send(p.ID, []byte("x")))
	assert.ErrorIs(t, ps.Send(NewConnID(), []byte("x")), ErrUnknownConn)

	assert.True(t, ps.Remove(p.ID))
	assert.False(t, ps.Remove(p.ID))
	assert.ErrorIs(t, ps.Send(p.ID, []byte("x")), ErrUnknownConn)
}
