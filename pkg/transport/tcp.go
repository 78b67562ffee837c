package transport

import (
	"fmt"
	"net"
	"time"
)

const dialTimeout = 10 * time.Second

// TCPTransport talks to an inverter bus behind a serial to Ethernet
// bridge. The bridge is expected to be configured for the SWR-NET line
// parameters itself; only raw bytes pass through here.
type TCPTransport struct {
	addr string
	conn net.Conn
}

func OpenTCP(addr string) (*TCPTransport, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &TCPTransport{addr: addr, conn: conn}, nil
}

func (t *TCPTransport) WriteAll(p []byte) error {
	n, err := t.conn.Write(p)
	if err != nil {
		return fmt.Errorf("write %s: %w", t.addr, err)
	}
	if n != len(p) {
		return fmt.Errorf("write %s: %w: %d of %d bytes", t.addr, ErrPartialWrite, n, len(p))
	}
	return nil
}

func (t *TCPTransport) ReadUntilQuiet(long, quiet time.Duration) ([]byte, error) {
	setTimeout := func(d time.Duration) error {
		return t.conn.SetReadDeadline(time.Now().Add(d))
	}
	timedOut := func(err error) bool {
		ne, ok := err.(net.Error)
		return ok && ne.Timeout()
	}
	return readQuiet(t.conn.Read, setTimeout, timedOut, long, quiet)
}

func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
