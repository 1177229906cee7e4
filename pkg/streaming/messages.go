// Package streaming defines the JSON envelope protocol used to relay a
// recording to a remote collector over WebSocket.
package streaming

import (
	"encoding/json"
	"time"
)

// Message types.
const (
	TypeStartRecording = "start_recording"
	TypeACMI           = "acmi"
	TypeEndRecording   = "end_recording"
	TypeAck            = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRecordingPayload announces a recording. Resumed is set when the
// message is replayed after a reconnect; the collector appends to the same
// recording and the next chunk is a full resync.
type StartRecordingPayload struct {
	Name          string    `json:"name"`
	Title         string    `json:"title"`
	Category      string    `json:"category,omitempty"`
	Author        string    `json:"author,omitempty"`
	ReferenceTime time.Time `json:"referenceTime,omitzero"`
	RecordingTime time.Time `json:"recordingTime,omitzero"`
	Resumed       bool      `json:"resumed,omitempty"`
}

// ChunkPayload carries one tick of ACMI text.
type ChunkPayload struct {
	Seq  uint64 `json:"seq"`
	Data string `json:"data"`
}

// EndRecordingPayload closes a recording.
type EndRecordingPayload struct {
	Name   string `json:"name"`
	Chunks uint64 `json:"chunks"`
	Bytes  uint64 `json:"bytes"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
