package channel

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// descriptor builds one catalogue record for tests.
func descriptor(index uint8, kind Kind, name string, tail []byte) []byte {
	b := []byte{index, uint8(kind), FlagSpot, 0, 0, 0x01, 0}
	b = append(b, padded(name, 16)...)
	return append(b, tail...)
}

func padded(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func analogTail(unit string, gain, offset float32) []byte {
	b := padded(unit, 8)
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(gain))
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(offset))
}

func counterTail(unit string, gain float32) []byte {
	b := padded(unit, 8)
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(gain))
}

func TestParseCatalogue(t *testing.T) {
	payload := descriptor(1, Analog, "Pac", analogTail("W", 0.5, 10))
	payload = append(payload, descriptor(2, Counter, "E-Total", counterTail("kWh", 0.001))...)
	payload = append(payload, descriptor(3, Digital, "Status",
		append(padded("Off", 16), padded("Mpp", 16)...))...)
	payload = append(payload, descriptor(4, Status, "Fehler",
		append([]byte{3, 0}, 0xDE, 0xAD, 0xBE))...)

	cat, err := ParseCatalogue(payload)
	require.Nil(t, err)
	require.Equal(t, 4, cat.Len())

	pac, ok := cat.Lookup("Pac")
	require.True(t, ok)
	assert.EqualValues(t, 1, pac.Index)
	assert.Equal(t, Analog, pac.Kind)
	assert.Equal(t, "W", pac.Unit)
	assert.EqualValues(t, 0.5, pac.Gain)
	assert.EqualValues(t, 10, pac.Offset)

	etotal, ok := cat.Lookup("E-Total")
	require.True(t, ok)
	assert.Equal(t, Counter, etotal.Kind)
	assert.Equal(t, "kWh", etotal.Unit)
	assert.InDelta(t, 0.001, etotal.Gain, 1e-9)

	status, ok := cat.Lookup("Status")
	require.True(t, ok)
	assert.Equal(t, "Off", status.TextLow)
	assert.Equal(t, "Mpp", status.TextHigh)

	fehler, ok := cat.Lookup("Fehler")
	require.True(t, ok)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE}, fehler.Status)

	// advertisement order is preserved
	names := []string{}
	for _, ch := range cat.Channels() {
		names = append(names, ch.Name)
	}
	assert.Equal(t, []string{"Pac", "E-Total", "Status", "Fehler"}, names)
}

func TestParseCatalogueTrimsNames(t *testing.T) {
	name := append([]byte("Vpv   "), 0, 0)
	payload := descriptor(1, Analog, string(name), analogTail("V  \x00", 1, 0))
	cat, err := ParseCatalogue(payload)
	require.Nil(t, err)
	ch, ok := cat.Lookup("Vpv")
	require.True(t, ok)
	assert.Equal(t, "V", ch.Unit)
}

func TestParseCatalogueUnknownType(t *testing.T) {
	payload := descriptor(1, Kind(3), "Bogus", nil)
	_, err := ParseCatalogue(payload)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestParseCatalogueDuplicateName(t *testing.T) {
	payload := descriptor(1, Analog, "Pac", analogTail("W", 1, 0))
	payload = append(payload, descriptor(2, Analog, "Pac", analogTail("W", 1, 0))...)
	_, err := ParseCatalogue(payload)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestParseCatalogueTruncated(t *testing.T) {
	payload := descriptor(1, Analog, "Pac", analogTail("W", 1, 0))
	_, err := ParseCatalogue(payload[:len(payload)-2])
	assert.ErrorIs(t, err, ErrShortPayload)
}
