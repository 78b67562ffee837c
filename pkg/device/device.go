// Package device drives the SWR-NET session against the inverters on
// one bus: discovery, channel enumeration and the synchronized per
// cycle polling.
package device

import (
	"errors"
	"time"

	"github.com/j256/goswrnet/pkg/channel"
)

var (
	ErrNoResponse = errors.New("no response from bus")
	ErrNoDevices  = errors.New("no devices found on bus")
)

// DefaultChannels is the canonical set of monitored channels, in
// polling and persistence order.
var DefaultChannels = []string{
	"Pac", "Ipv", "Vpv", "E-Total", "h-Total", "Temperature", "Vac", "Fac",
}

// A Device is one inverter discovered on the bus. The address is
// assigned by the inverter firmware during net start. The catalogue is
// attached during enumeration and retained for the process lifetime.
type Device struct {
	Addr      uint16
	Serial    uint32
	Type      string
	Catalogue *channel.Catalogue
}

// A Value is one scaled channel reading of a stats row.
type Value struct {
	Name  string
	Value float64
}

// Stats is one per device row of a poll cycle.
type Stats struct {
	Time   time.Time
	Addr   uint16
	Values []Value
}

// Get returns the named value of the row.
func (s Stats) Get(name string) (float64, bool) {
	for _, v := range s.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// A Recorder persists the driver's output. Implementations append one
// row per call; the driver performs one append at a time.
type Recorder interface {
	AppendStats(s Stats) error
	AppendComment(addr uint16, text string) error
}
