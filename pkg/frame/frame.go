// Package frame implements the SWR-NET telegram codec: wake bytes,
// start marker, duplicated length, addressing header, additive 16-bit
// checksum and end marker.
package frame

import (
	"encoding/binary"
	"errors"

	swrnet "github.com/j256/goswrnet"
)

var (
	ErrMalformed        = errors.New("telegram structure does not match")
	ErrLengthMismatch   = errors.New("duplicated length bytes differ")
	ErrChecksum         = errors.New("checksum does not match")
	ErrFragmentMismatch = errors.New("fragment header differs from previous fragments")
)

// headerLen covers src, dst, control, counter and command.
const headerLen = 7

// trailerLen covers the checksum and the end marker.
const trailerLen = 3

// A Frame is one decoded on-wire telegram.
type Frame struct {
	Src     uint16
	Dst     uint16
	Ctrl    swrnet.Control
	Counter uint8
	Command swrnet.Command
	Payload []byte
}

// Build encodes one request telegram from the controller (source
// address 0) to dst. Payloads longer than 255 bytes cannot be
// represented on the wire.
func Build(dst uint16, counter uint8, cmd swrnet.Command, ctrl swrnet.Control, payload []byte) []byte {
	buf := make([]byte, 0, 6+headerLen+len(payload)+trailerLen)
	buf = append(buf, swrnet.WakeByte, swrnet.WakeByte)
	buf = append(buf, swrnet.StartByte, byte(len(payload)), byte(len(payload)), swrnet.StartByte)
	buf = binary.LittleEndian.AppendUint16(buf, swrnet.CtrlAddr)
	buf = binary.LittleEndian.AppendUint16(buf, dst)
	buf = append(buf, byte(ctrl), counter, byte(cmd))
	buf = append(buf, payload...)
	buf = binary.LittleEndian.AppendUint16(buf, checksum(buf[6:]))
	buf = append(buf, swrnet.EndByte)
	return buf
}

// checksum is the unsigned sum of the given bytes modulo 2^16.
func checksum(b []byte) uint16 {
	var sum uint16
	for _, c := range b {
		sum += uint16(c)
	}
	return sum
}

// Decode parses one telegram from the front of buf and returns the
// unconsumed tail, so that several telegrams read back to back in one
// quiet window can be decoded in sequence. Leading wake bytes are
// skipped. The duplicated length bytes are compared before anything
// length-dependent so that a corrupted length is reported as
// ErrLengthMismatch rather than a structure error.
func Decode(buf []byte) (Frame, []byte, error) {
	for len(buf) > 0 && buf[0] == swrnet.WakeByte {
		buf = buf[1:]
	}
	if len(buf) < 4 {
		return Frame{}, buf, ErrMalformed
	}
	if buf[0] != swrnet.StartByte {
		return Frame{}, buf, ErrMalformed
	}
	if buf[1] != buf[2] {
		return Frame{}, buf, ErrLengthMismatch
	}
	if buf[3] != swrnet.StartByte {
		return Frame{}, buf, ErrMalformed
	}
	plen := int(buf[1])
	total := 4 + headerLen + plen + trailerLen
	if len(buf) < total {
		return Frame{}, buf, ErrMalformed
	}
	body := buf[4 : 4+headerLen+plen]
	want := binary.LittleEndian.Uint16(buf[4+headerLen+plen:])
	if checksum(body) != want {
		return Frame{}, buf, ErrChecksum
	}
	if buf[total-1] != swrnet.EndByte {
		return Frame{}, buf, ErrMalformed
	}
	f := Frame{
		Src:     binary.LittleEndian.Uint16(body[0:]),
		Dst:     binary.LittleEndian.Uint16(body[2:]),
		Ctrl:    swrnet.Control(body[4]),
		Counter: body[5],
		Command: swrnet.Command(body[6]),
		Payload: append([]byte(nil), body[headerLen:]...),
	}
	return f, buf[total:], nil
}
