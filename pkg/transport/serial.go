package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialTransport talks to an inverter bus attached to a local serial
// device, configured for the fixed SWR-NET line parameters: 1200 baud,
// 8 data bits, no parity, one stop bit, no flow control and no modem
// control signals.
type SerialTransport struct {
	path string
	port serial.Port
}

func OpenSerial(path string) (*SerialTransport, error) {
	mode := &serial.Mode{
		BaudRate: 1200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			RTS: false,
			DTR: false,
		},
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush %s: %w", path, err)
	}
	return &SerialTransport{path: path, port: port}, nil
}

func (t *SerialTransport) WriteAll(p []byte) error {
	n, err := t.port.Write(p)
	if err != nil {
		return fmt.Errorf("write %s: %w", t.path, err)
	}
	if n != len(p) {
		return fmt.Errorf("write %s: %w: %d of %d bytes", t.path, ErrPartialWrite, n, len(p))
	}
	return nil
}

func (t *SerialTransport) ReadUntilQuiet(long, quiet time.Duration) ([]byte, error) {
	// go.bug.st/serial reports a timed out read as (0, nil)
	return readQuiet(t.port.Read, t.port.SetReadTimeout,
		func(error) bool { return false }, long, quiet)
}

func (t *SerialTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}
