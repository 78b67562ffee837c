package channel

import (
	"encoding/binary"
	"fmt"
)

// A Sample is one value read from a channel during a poll. Value is the
// scaled measurement for analog and counter channels; digital channels
// carry the label pair and status channels the raw bitfield instead.
type Sample struct {
	Channel  *Channel
	Raw      uint32
	Value    float64
	TextLow  string
	TextHigh string
	Status   []byte
	// Since is the device time of the last synchronization, as sent in
	// the response header. It normally equals the poll time broadcast
	// with SYN_ONLINE.
	Since     uint32
	TimeBasis uint32
}

// DecodeSample decodes the payload of a CMD_GET_DATA response for this
// channel. Responses may carry more than one data set; only the first
// one is decoded and trailing bytes are ignored.
func (ch *Channel) DecodeSample(payload []byte) (Sample, error) {
	head, rest, err := take(payload, 13)
	if err != nil {
		return Sample{}, fmt.Errorf("value header: %w", err)
	}
	s := Sample{
		Channel:   ch,
		Since:     binary.LittleEndian.Uint32(head[5:]),
		TimeBasis: binary.LittleEndian.Uint32(head[9:]),
	}
	switch ch.Kind {
	case Analog:
		raw, _, err := take(rest, 2)
		if err != nil {
			return Sample{}, fmt.Errorf("analog value: %w", err)
		}
		s.Raw = uint32(binary.LittleEndian.Uint16(raw))
		s.Value = float64(s.Raw)*float64(ch.Gain) + float64(ch.Offset)
	case Counter:
		raw, _, err := take(rest, 4)
		if err != nil {
			return Sample{}, fmt.Errorf("counter value: %w", err)
		}
		s.Raw = binary.LittleEndian.Uint32(raw)
		s.Value = float64(s.Raw) * float64(ch.Gain)
	case Digital:
		txt, rest, err := take(rest, 16)
		if err != nil {
			return Sample{}, fmt.Errorf("digital value: %w", err)
		}
		s.TextLow = trim(txt)
		txt, _, err = take(rest, 16)
		if err != nil {
			return Sample{}, fmt.Errorf("digital value: %w", err)
		}
		s.TextHigh = trim(txt)
	case Status:
		raw, _, err := take(rest, 4)
		if err != nil {
			return Sample{}, fmt.Errorf("status value: %w", err)
		}
		s.Status = append([]byte(nil), raw...)
		s.Raw = binary.LittleEndian.Uint32(raw)
	default:
		return Sample{}, fmt.Errorf("%w: %d", ErrUnknownType, uint8(ch.Kind))
	}
	return s, nil
}
