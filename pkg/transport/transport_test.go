package transport

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpPair(t *testing.T) (Transport, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	tr, err := Open(ln.Addr().String())
	require.Nil(t, err)
	peer := <-accepted
	t.Cleanup(func() {
		tr.Close()
		peer.Close()
	})
	return tr, peer
}

func TestReadUntilQuietAccumulates(t *testing.T) {
	tr, peer := tcpPair(t)
	go func() {
		peer.Write([]byte{0xAA, 0xBB})
		time.Sleep(30 * time.Millisecond)
		peer.Write([]byte{0xCC})
	}()
	b, err := tr.ReadUntilQuiet(time.Second, 300*time.Millisecond)
	require.Nil(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, b)
}

func TestReadUntilQuietHardTimeout(t *testing.T) {
	tr, _ := tcpPair(t)
	start := time.Now()
	b, err := tr.ReadUntilQuiet(100*time.Millisecond, 20*time.Millisecond)
	require.Nil(t, err)
	assert.Empty(t, b)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestWriteAll(t *testing.T) {
	tr, peer := tcpPair(t)
	require.Nil(t, tr.WriteAll([]byte{1, 2, 3}))
	buf := make([]byte, 3)
	peer.SetReadDeadline(time.Now().Add(time.Second))
	n, err := peer.Read(buf)
	require.Nil(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf[:n])
}

func TestCloseIdempotent(t *testing.T) {
	tr, _ := tcpPair(t)
	assert.Nil(t, tr.Close())
	assert.Nil(t, tr.Close())
}

type scriptedTransport struct {
	wrote []byte
	reads [][]byte
}

func (s *scriptedTransport) WriteAll(p []byte) error {
	s.wrote = append(s.wrote, p...)
	return nil
}

func (s *scriptedTransport) ReadUntilQuiet(long, quiet time.Duration) ([]byte, error) {
	if len(s.reads) == 0 {
		return nil, nil
	}
	b := s.reads[0]
	s.reads = s.reads[1:]
	return b, nil
}

func (s *scriptedTransport) Close() error { return nil }

func TestTraceDumpsBothDirections(t *testing.T) {
	dir := t.TempDir()
	inner := &scriptedTransport{reads: [][]byte{{0x68, 0x16}}}
	tr := Trace(inner, dir)

	require.Nil(t, tr.WriteAll([]byte{0xAA, 0xAA}))
	b, err := tr.ReadUntilQuiet(time.Second, time.Second)
	require.Nil(t, err)
	assert.Equal(t, []byte{0x68, 0x16}, b)

	to, _ := filepath.Glob(filepath.Join(dir, "*.to"))
	from, _ := filepath.Glob(filepath.Join(dir, "*.from"))
	require.Len(t, to, 1)
	require.Len(t, from, 1)
	raw, err := os.ReadFile(to[0])
	require.Nil(t, err)
	assert.Equal(t, []byte{0xAA, 0xAA}, raw)
	raw, err = os.ReadFile(from[0])
	require.Nil(t, err)
	assert.Equal(t, []byte{0x68, 0x16}, raw)
}
