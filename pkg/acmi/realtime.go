package acmi

import (
	"bytes"
	"fmt"
	"strings"
)

// Real-time telemetry protocol identifiers exchanged before any record.
const (
	streamProtocol   = "XtraLib.Stream.0"
	realtimeProtocol = "Tacview.RealTimeTelemetry.0"
)

// Banner returns the handshake a host sends to every newly connected
// real-time client, NUL terminated.
func Banner(host string) []byte {
	return []byte(streamProtocol + "\n" + realtimeProtocol + "\nHost " + host + "\n\x00")
}

// ClientHello is the handshake a real-time client answers with.
type ClientHello struct {
	Client   string
	Password string
}

// ParseClientHello parses a client handshake, with or without its NUL
// terminator. The password line is optional.
func ParseClientHello(b []byte) (ClientHello, error) {
	b = bytes.TrimSuffix(b, []byte{0})
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) < 3 {
		return ClientHello{}, fmt.Errorf("client handshake: %w: expected at least 3 lines, got %d", ErrMissingDelimiter, len(lines))
	}
	if lines[0] != streamProtocol || lines[1] != realtimeProtocol {
		return ClientHello{}, fmt.Errorf("client handshake: unsupported protocol %q / %q", lines[0], lines[1])
	}
	hello := ClientHello{Client: lines[2]}
	if len(lines) > 3 {
		hello.Password = lines[3]
	}
	return hello, nil
}
