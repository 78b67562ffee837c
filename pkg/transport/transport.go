// Package transport provides the byte stream to the inverter bus,
// either a local serial device or a TCP connection to a serial bridge.
//
// The bus is a 1200 baud half duplex medium without any length prefix
// at the session layer, so reads are quiet window based: a read returns
// once the link has been silent for a short while after the first byte,
// or empty when nothing arrived within the long timeout.
package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrPartialWrite = errors.New("partial write to bus")

// Read timeouts of the bus. Long is the wait for the first byte of a
// response, Quiet the allowed gap between bytes of one response train.
const (
	DefaultLongTimeout  = 5 * time.Second
	DefaultQuietTimeout = 500 * time.Millisecond
)

// A Transport is a bidirectional byte stream to the inverter bus. It is
// owned by a single driver; none of the implementations is safe for
// concurrent use.
type Transport interface {
	// WriteAll writes all of p or fails.
	WriteAll(p []byte) error
	// ReadUntilQuiet accumulates bytes until the link has been silent
	// for quiet after at least one byte arrived, or until long elapses
	// with nothing received. An empty result and nil error is a hard
	// timeout.
	ReadUntilQuiet(long, quiet time.Duration) ([]byte, error)
	// Close is idempotent.
	Close() error
}

// Open acquires the bus endpoint: "host:port" dials a serial to
// Ethernet bridge, anything else is opened as a local serial device.
func Open(endpoint string) (Transport, error) {
	if strings.Contains(endpoint, ":") {
		return OpenTCP(endpoint)
	}
	return OpenSerial(endpoint)
}

// readQuiet implements the quiet window read on top of a Read whose
// timeout can be adjusted between calls. A timed out Read must report
// zero bytes via the timedOut classifier.
func readQuiet(read func(p []byte) (int, error), setTimeout func(time.Duration) error,
	timedOut func(error) bool, long, quiet time.Duration) ([]byte, error) {

	var buf []byte
	chunk := make([]byte, 256)
	timeout := long
	for {
		if err := setTimeout(timeout); err != nil {
			return buf, fmt.Errorf("set read timeout: %w", err)
		}
		n, err := read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			timeout = quiet
			continue
		}
		if err == nil || timedOut(err) {
			return buf, nil
		}
		return buf, err
	}
}
