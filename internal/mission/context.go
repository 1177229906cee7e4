package mission

import (
	"sync"
	"time"

	"github.com/OCAP2/tacview/pkg/acmi"
)

// Context holds the metadata of the mission being streamed. It is read by
// the handshake on every new connection and may be changed by the host at
// any time.
type Context struct {
	mu   sync.RWMutex
	meta acmi.Metadata
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		meta: acmi.Metadata{Title: "No mission loaded"},
	}
}

// Metadata returns a copy of the current metadata.
func (mc *Context) Metadata() acmi.Metadata {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.meta
}

// SetMetadata replaces the current metadata.
func (mc *Context) SetMetadata(meta acmi.Metadata) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.meta = meta
}

// StartRecording stamps RecordingTime if it is not set yet and returns it.
func (mc *Context) StartRecording(now time.Time) time.Time {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.meta.RecordingTime.IsZero() {
		mc.meta.RecordingTime = now.UTC()
	}
	return mc.meta.RecordingTime
}
