// Package channel decodes the channel catalogue advertised by a device
// and the per-channel measurement values read from it.
//
// A catalogue is the payload of a CMD_GET_CINFO response: a sequence of
// variable length records, one per channel, whose tail layout depends
// on the channel kind. Values are the payload of CMD_GET_DATA
// responses and are scaled with the gain and offset from the catalogue.
package channel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownType  = errors.New("unknown channel type")
	ErrShortPayload = errors.New("payload too short")
	ErrDuplicate    = errors.New("duplicate channel name")
)

// Kind is the primary channel type.
type Kind uint8

const (
	Analog  Kind = 1
	Digital Kind = 2
	Counter Kind = 4
	Status  Kind = 8
)

func (k Kind) String() string {
	switch k {
	case Analog:
		return "analog"
	case Digital:
		return "digital"
	case Counter:
		return "counter"
	case Status:
		return "status"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Secondary type flag bits.
const (
	FlagInput  = 0x01
	FlagOutput = 0x02
	FlagParam  = 0x04
	FlagSpot   = 0x08
	FlagMean   = 0x10
	FlagTest   = 0x20
)

// A Channel is one measurement variable advertised by a device. Which
// fields are meaningful depends on Kind: analog carries Unit, Gain and
// Offset, counter carries Unit and Gain, digital carries the two text
// labels and status carries the raw bitmap.
type Channel struct {
	Index    uint8
	Kind     Kind
	Flags    uint8
	Format   uint16
	Access   uint16
	Name     string
	Unit     string
	Gain     float32
	Offset   float32
	TextLow  string
	TextHigh string
	Status   []byte
}

// A Catalogue is the set of channels of one device, in advertisement
// order, with lookup by canonical name.
type Catalogue struct {
	channels []*Channel
	byName   map[string]*Channel
}

// Channels returns the channels in advertisement order.
func (c *Catalogue) Channels() []*Channel {
	return c.channels
}

// Lookup returns the channel with the given canonical name.
func (c *Catalogue) Lookup(name string) (*Channel, bool) {
	ch, ok := c.byName[name]
	return ch, ok
}

func (c *Catalogue) Len() int {
	return len(c.channels)
}

// trim canonicalizes a fixed width text field: trailing NUL bytes and
// whitespace are stripped once at decode time, so that lookups compare
// plain names.
func trim(b []byte) string {
	return string(bytes.TrimRight(b, "\x00 \t\r\n"))
}

// take splits n bytes off the front of b.
func take(b []byte, n int) ([]byte, []byte, error) {
	if len(b) < n {
		return nil, b, ErrShortPayload
	}
	return b[:n], b[n:], nil
}

func takeFloat(b []byte) (float32, []byte, error) {
	raw, rest, err := take(b, 4)
	if err != nil {
		return 0, b, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(raw)), rest, nil
}

// ParseCatalogue decodes the payload of a CMD_GET_CINFO response.
func ParseCatalogue(payload []byte) (*Catalogue, error) {
	cat := &Catalogue{byName: make(map[string]*Channel)}
	rest := payload
	for len(rest) > 0 {
		ch, tail, err := parseChannel(rest)
		if err != nil {
			return nil, err
		}
		if _, ok := cat.byName[ch.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, ch.Name)
		}
		cat.channels = append(cat.channels, ch)
		cat.byName[ch.Name] = ch
		rest = tail
	}
	return cat, nil
}

// parseChannel consumes one descriptor record and returns the
// remaining payload.
func parseChannel(b []byte) (*Channel, []byte, error) {
	head, rest, err := take(b, 7)
	if err != nil {
		return nil, b, err
	}
	ch := &Channel{
		Index:  head[0],
		Kind:   Kind(head[1]),
		Flags:  head[2],
		Format: binary.LittleEndian.Uint16(head[3:]),
		Access: binary.LittleEndian.Uint16(head[5:]),
	}
	name, rest, err := take(rest, 16)
	if err != nil {
		return nil, b, err
	}
	ch.Name = trim(name)

	switch ch.Kind {
	case Analog:
		var unit []byte
		unit, rest, err = take(rest, 8)
		if err != nil {
			return nil, b, err
		}
		ch.Unit = trim(unit)
		ch.Gain, rest, err = takeFloat(rest)
		if err != nil {
			return nil, b, err
		}
		ch.Offset, rest, err = takeFloat(rest)
		if err != nil {
			return nil, b, err
		}
	case Counter:
		var unit []byte
		unit, rest, err = take(rest, 8)
		if err != nil {
			return nil, b, err
		}
		ch.Unit = trim(unit)
		ch.Gain, rest, err = takeFloat(rest)
		if err != nil {
			return nil, b, err
		}
	case Digital:
		var txt []byte
		txt, rest, err = take(rest, 16)
		if err != nil {
			return nil, b, err
		}
		ch.TextLow = trim(txt)
		txt, rest, err = take(rest, 16)
		if err != nil {
			return nil, b, err
		}
		ch.TextHigh = trim(txt)
	case Status:
		var size []byte
		size, rest, err = take(rest, 2)
		if err != nil {
			return nil, b, err
		}
		var bitmap []byte
		bitmap, rest, err = take(rest, int(binary.LittleEndian.Uint16(size)))
		if err != nil {
			return nil, b, err
		}
		ch.Status = append([]byte(nil), bitmap...)
	default:
		return nil, b, fmt.Errorf("%w: %d", ErrUnknownType, uint8(ch.Kind))
	}
	return ch, rest, nil
}
