package transport

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// TraceTransport wraps another transport and dumps the raw bytes of
// every write and every non empty read into a directory, one file per
// direction named <unix_ts>.to and <unix_ts>.from. Frames landing in
// the same second append to the same file.
type TraceTransport struct {
	inner Transport
	dir   string
}

func Trace(inner Transport, dir string) *TraceTransport {
	return &TraceTransport{inner: inner, dir: dir}
}

func (t *TraceTransport) dump(suffix string, p []byte) {
	name := filepath.Join(t.dir, strconv.FormatInt(time.Now().Unix(), 10)+suffix)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Warnf("[TRACE] open %s: %v", name, err)
		return
	}
	defer f.Close()
	if _, err := f.Write(p); err != nil {
		log.Warnf("[TRACE] write %s: %v", name, err)
	}
}

func (t *TraceTransport) WriteAll(p []byte) error {
	t.dump(".to", p)
	return t.inner.WriteAll(p)
}

func (t *TraceTransport) ReadUntilQuiet(long, quiet time.Duration) ([]byte, error) {
	b, err := t.inner.ReadUntilQuiet(long, quiet)
	if len(b) > 0 {
		t.dump(".from", b)
	}
	return b, err
}

func (t *TraceTransport) Close() error {
	return t.inner.Close()
}
