package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	swrnet "github.com/j256/goswrnet"
	"github.com/j256/goswrnet/pkg/channel"
	"github.com/j256/goswrnet/pkg/frame"
	"github.com/j256/goswrnet/pkg/transport"
)

// settleDelay is the pause between the SYN_ONLINE broadcast and the
// first data request. Without it the first channel of the first device
// does not answer.
const settleDelay = 5 * time.Second

// A Driver sequences the SWR-NET phases on one bus. It owns the
// attached transport and the discovered device set. The bus is half
// duplex, so all requests are strictly sequential; the driver is not
// safe for concurrent use.
type Driver struct {
	bus      transport.Transport
	rec      Recorder
	devices  []*Device
	pending  []byte
	Channels []string
	Long     time.Duration
	Quiet    time.Duration
	Settle   time.Duration
}

func NewDriver(bus transport.Transport, rec Recorder) *Driver {
	return &Driver{
		bus:      bus,
		rec:      rec,
		Channels: DefaultChannels,
		Long:     transport.DefaultLongTimeout,
		Quiet:    transport.DefaultQuietTimeout,
		Settle:   settleDelay,
	}
}

// Devices returns the inverters found by the last discovery, in
// discovery order.
func (d *Driver) Devices() []*Device {
	return d.devices
}

// Attach hands a freshly opened transport to the driver.
func (d *Driver) Attach(bus transport.Transport) {
	d.bus = bus
	d.pending = nil
}

// Attached reports whether the driver currently holds a transport.
func (d *Driver) Attached() bool {
	return d.bus != nil
}

// Detach closes and releases the transport.
func (d *Driver) Detach() error {
	if d.bus == nil {
		return nil
	}
	err := d.bus.Close()
	d.bus = nil
	d.pending = nil
	return err
}

func (d *Driver) comment(addr uint16, text string) {
	if d.rec == nil {
		return
	}
	if err := d.rec.AppendComment(addr, text); err != nil {
		log.Errorf("[STORE] append comment: %v", err)
	}
}

func (d *Driver) send(dst uint16, cmd swrnet.Command, ctrl swrnet.Control, payload []byte) error {
	b := frame.Build(dst, 0, cmd, ctrl, payload)
	log.Tracef("[TX] dst %d cmd %d ctl %d payload % x", dst, cmd, ctrl, payload)
	if err := d.bus.WriteAll(b); err != nil {
		d.Detach()
		return err
	}
	return nil
}

// readResponse reassembles the next logical response from the bus.
// Telegrams echoed back by the half duplex link (source address 0) and
// undecodable byte runs are skipped. An empty read yields ErrNoResponse.
func (d *Driver) readResponse() (frame.Response, error) {
	var ra frame.Reassembler
	for {
		for len(d.pending) > 0 {
			f, rest, err := frame.Decode(d.pending)
			if err != nil {
				log.Debugf("[RX] discarding %d bytes: %v", len(d.pending), err)
				d.pending = nil
				break
			}
			d.pending = rest
			if f.Src == swrnet.CtrlAddr {
				continue
			}
			log.Tracef("[RX] src %d cmd %d cnt %d payload % x", f.Src, f.Command, f.Counter, f.Payload)
			done, err := ra.Add(f)
			if err != nil {
				d.pending = nil
				return frame.Response{}, err
			}
			if done {
				return ra.Response(), nil
			}
		}
		b, err := d.bus.ReadUntilQuiet(d.Long, d.Quiet)
		if err != nil {
			d.Detach()
			return frame.Response{}, err
		}
		if len(b) == 0 {
			return frame.Response{}, ErrNoResponse
		}
		d.pending = append(d.pending, b...)
	}
}

// request performs one unicast command and waits for the matching
// response, skipping unrelated traffic on the shared bus.
func (d *Driver) request(dev *Device, cmd swrnet.Command, payload []byte) (frame.Response, error) {
	if err := d.send(dev.Addr, cmd, swrnet.CtrlRequest, payload); err != nil {
		return frame.Response{}, err
	}
	for {
		resp, err := d.readResponse()
		if err != nil {
			return frame.Response{}, err
		}
		if resp.Src != dev.Addr || resp.Command != cmd {
			log.Debugf("[RX] ignoring response src %d cmd %d while waiting for %d cmd %d",
				resp.Src, resp.Command, dev.Addr, cmd)
			continue
		}
		return resp, nil
	}
}

// Discover broadcasts a net start and gathers the answering inverters
// until the bus goes quiet. The device set is keyed by bus address;
// re-running replaces the previous set.
func (d *Driver) Discover() error {
	d.pending = nil
	if err := d.send(0, swrnet.CmdGetNetStart, swrnet.CtrlBroadcast, nil); err != nil {
		return err
	}
	seen := make(map[uint16]bool)
	var found []*Device
	for {
		resp, err := d.readResponse()
		if errors.Is(err, ErrNoResponse) {
			break
		}
		if err != nil {
			if !d.Attached() {
				return err
			}
			d.comment(0, fmt.Sprintf("discovery response dropped: %v", err))
			continue
		}
		if resp.Command != swrnet.CmdGetNetStart || resp.Src == swrnet.CtrlAddr {
			continue
		}
		if len(resp.Payload) < 12 {
			d.comment(resp.Src, "short net start response")
			continue
		}
		if seen[resp.Src] {
			continue
		}
		seen[resp.Src] = true
		dev := &Device{
			Addr:   resp.Src,
			Serial: binary.LittleEndian.Uint32(resp.Payload),
			Type:   trimTag(resp.Payload[4:12]),
		}
		found = append(found, dev)
		log.Infof("[SCAN] device %d serial %d type %q", dev.Addr, dev.Serial, dev.Type)
	}
	if len(found) == 0 {
		d.comment(0, "no inverters answered net start")
		return ErrNoDevices
	}
	d.devices = found
	for _, dev := range found {
		d.comment(dev.Addr, fmt.Sprintf("found inverter serial %d type %q", dev.Serial, dev.Type))
	}
	return nil
}

func trimTag(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0 || b[end-1] == ' ') {
		end--
	}
	return string(b[:end])
}

// Enumerate reads the channel catalogue of every discovered device.
// Per device failures are recorded and skipped; enumeration fails when
// no device delivered a catalogue, or with ErrNoResponse once the
// transport has been lost.
func (d *Driver) Enumerate() error {
	enumerated := 0
	for _, dev := range d.devices {
		if !d.Attached() {
			return ErrNoResponse
		}
		resp, err := d.request(dev, swrnet.CmdGetCinfo, nil)
		if err != nil {
			d.comment(dev.Addr, fmt.Sprintf("channel enumeration failed: %v", err))
			continue
		}
		cat, err := channel.ParseCatalogue(resp.Payload)
		if err != nil {
			d.comment(dev.Addr, fmt.Sprintf("channel catalogue unreadable: %v", err))
			continue
		}
		dev.Catalogue = cat
		enumerated++
		for _, ch := range cat.Channels() {
			d.comment(dev.Addr, fmt.Sprintf("channel %q %s unit %q gain %g offset %g",
				ch.Name, ch.Kind, ch.Unit, ch.Gain, ch.Offset))
		}
		log.Infof("[SCAN] device %d advertises %d channels", dev.Addr, cat.Len())
	}
	if enumerated == 0 {
		return ErrNoDevices
	}
	return nil
}

// Poll runs one cycle at the given aligned poll time: a SYN_ONLINE
// broadcast carrying the cycle time, a settle pause, then one GET_DATA
// per device and monitored channel. One stats row lands per device that
// passes the sanity gate.
func (d *Driver) Poll(pollTime time.Time) error {
	cycle := uint32(pollTime.Unix())
	syn := binary.LittleEndian.AppendUint32(nil, cycle)
	d.pending = nil
	if err := d.send(0, swrnet.CmdSynOnline, swrnet.CtrlBroadcast, syn); err != nil {
		return err
	}
	time.Sleep(d.Settle)

	for _, dev := range d.devices {
		if dev.Catalogue == nil {
			continue
		}
		if !d.Attached() {
			return ErrNoResponse
		}
		row := Stats{Time: pollTime, Addr: dev.Addr}
		for _, name := range d.Channels {
			ch, ok := dev.Catalogue.Lookup(name)
			if !ok {
				continue
			}
			sample, err := d.readSample(dev, ch)
			if err != nil {
				d.comment(dev.Addr, fmt.Sprintf("channel %q dropped: %v", name, err))
				if !d.Attached() {
					return err
				}
				continue
			}
			if sample.Since != cycle {
				d.comment(dev.Addr, fmt.Sprintf("channel %q reports sync time %d, cycle is %d",
					name, sample.Since, cycle))
			}
			switch ch.Kind {
			case channel.Analog, channel.Counter:
				row.Values = append(row.Values, Value{Name: name, Value: sample.Value})
				log.Debugf("[POLL] device %d %s = %g %s", dev.Addr, name, sample.Value, ch.Unit)
			default:
				log.Debugf("[POLL] device %d %s = %d", dev.Addr, name, sample.Raw)
			}
		}
		if !sane(row) {
			log.Debugf("[POLL] device %d row suppressed by sanity gate", dev.Addr)
			continue
		}
		if d.rec != nil {
			if err := d.rec.AppendStats(row); err != nil {
				log.Errorf("[STORE] append stats for device %d: %v", dev.Addr, err)
			}
		}
	}
	return nil
}

func (d *Driver) readSample(dev *Device, ch *channel.Channel) (channel.Sample, error) {
	resp, err := d.request(dev, swrnet.CmdGetData, []byte{byte(ch.Kind), ch.Flags, ch.Index})
	if err != nil {
		return channel.Sample{}, err
	}
	return ch.DecodeSample(resp.Payload)
}

// sane suppresses rows read while an inverter is starting up or only
// partially answering: the grid frequency must be live and the slow
// moving channels must all be present.
func sane(row Stats) bool {
	fac, ok := row.Get("Fac")
	if !ok || fac <= 50 {
		return false
	}
	for _, name := range []string{"Temperature", "E-Total", "h-Total"} {
		if _, ok := row.Get(name); !ok {
			return false
		}
	}
	return true
}
