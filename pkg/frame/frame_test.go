package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	swrnet "github.com/j256/goswrnet"
)

func TestBuildNetStartBroadcast(t *testing.T) {
	b := Build(2, 0, swrnet.CmdGetNetStart, swrnet.CtrlBroadcast, nil)
	assert.Equal(t, []byte{
		0xAA, 0xAA, 0x68, 0x00, 0x00, 0x68,
		0x00, 0x00, 0x02, 0x00, 0x80, 0x00, 0x06,
		0x88, 0x00, 0x16,
	}, b)
}

func TestBuildDuplicatedLength(t *testing.T) {
	for _, payload := range [][]byte{nil, {0x01}, {0x01, 0x02, 0x03}, make([]byte, 200)} {
		b := Build(1, 0, swrnet.CmdGetData, swrnet.CtrlRequest, payload)
		assert.EqualValues(t, len(payload), b[3])
		assert.EqualValues(t, len(payload), b[4])
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	b := Build(2, 0, swrnet.CmdGetNetStart, swrnet.CtrlBroadcast, nil)
	f, rest, err := Decode(b)
	require.Nil(t, err)
	assert.Empty(t, rest)
	assert.EqualValues(t, 0, f.Src)
	assert.EqualValues(t, 2, f.Dst)
	assert.Equal(t, swrnet.CtrlBroadcast, f.Ctrl)
	assert.EqualValues(t, 0, f.Counter)
	assert.Equal(t, swrnet.CmdGetNetStart, f.Command)
	assert.Empty(t, f.Payload)
}

func TestDecodeRoundTripPayload(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x05}
	b := Build(7, 2, swrnet.CmdGetData, swrnet.CtrlRequest, payload)
	f, rest, err := Decode(b)
	require.Nil(t, err)
	assert.Empty(t, rest)
	assert.EqualValues(t, 7, f.Dst)
	assert.EqualValues(t, 2, f.Counter)
	assert.Equal(t, payload, f.Payload)
}

func TestDecodeWithoutWakeBytes(t *testing.T) {
	b := Build(2, 0, swrnet.CmdGetNetStart, swrnet.CtrlBroadcast, nil)
	f, _, err := Decode(b[2:])
	require.Nil(t, err)
	assert.Equal(t, swrnet.CmdGetNetStart, f.Command)
}

func TestDecodeChecksumRejected(t *testing.T) {
	b := Build(2, 0, swrnet.CmdGetNetStart, swrnet.CtrlBroadcast, nil)
	b[13] = 0x89
	_, _, err := Decode(b)
	assert.Equal(t, ErrChecksum, err)
}

func TestDecodeLengthMismatch(t *testing.T) {
	b := []byte{
		0xAA, 0xAA, 0x68, 0x02, 0x03, 0x68,
		0x00, 0x00, 0x02, 0x00, 0x80, 0x00, 0x06,
		0xAA, 0xBB, 0x3D, 0x01, 0x16,
	}
	_, _, err := Decode(b)
	assert.Equal(t, ErrLengthMismatch, err)
}

func TestDecodeTruncated(t *testing.T) {
	b := Build(2, 0, swrnet.CmdGetCinfo, swrnet.CtrlRequest, []byte{1, 2, 3})
	for i := 1; i < len(b); i++ {
		_, _, err := Decode(b[:i])
		assert.NotNil(t, err, "length %d", i)
	}
}

func TestDecodeBadMarkers(t *testing.T) {
	b := Build(2, 0, swrnet.CmdGetNetStart, swrnet.CtrlBroadcast, nil)
	bad := append([]byte(nil), b...)
	bad[2] = 0x69
	_, _, err := Decode(bad)
	assert.Equal(t, ErrMalformed, err)

	bad = append([]byte(nil), b...)
	bad[5] = 0x00
	_, _, err = Decode(bad)
	assert.Equal(t, ErrMalformed, err)

	bad = append([]byte(nil), b...)
	bad[15] = 0x00
	_, _, err = Decode(bad)
	assert.Equal(t, ErrMalformed, err)
}

func TestDecodeSuccessive(t *testing.T) {
	one := Build(2, 1, swrnet.CmdGetData, swrnet.CtrlResponse, []byte{0xAA, 0xBB})
	two := Build(2, 0, swrnet.CmdGetData, swrnet.CtrlResponse, []byte{0xCC})
	buf := append(append([]byte(nil), one...), two...)

	f, rest, err := Decode(buf)
	require.Nil(t, err)
	assert.EqualValues(t, 1, f.Counter)
	f, rest, err = Decode(rest)
	require.Nil(t, err)
	assert.EqualValues(t, 0, f.Counter)
	assert.Equal(t, []byte{0xCC}, f.Payload)
	assert.Empty(t, rest)
}
