// swrscan probes one SWR-NET bus and prints the discovered inverters
// with their advertised channel catalogues. A commissioning aid: run it
// once after wiring to check that every inverter answers and carries
// the channels the poller expects.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"

	"github.com/j256/goswrnet/pkg/channel"
	"github.com/j256/goswrnet/pkg/device"
	"github.com/j256/goswrnet/pkg/transport"
)

func main() {
	verbose := flag.Bool("v", false, "debug logging")
	trace := flag.Bool("V", false, "protocol trace logging")
	flag.Parse()

	switch {
	case *trace:
		log.SetLevel(log.TraceLevel)
	case *verbose:
		log.SetLevel(log.DebugLevel)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: swrscan [-v] [-V] <device>")
		os.Exit(1)
	}

	bus, err := transport.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "swrscan: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	driver := device.NewDriver(bus, nil)
	if err := driver.Discover(); err != nil {
		fmt.Fprintf(os.Stderr, "swrscan: %v\n", err)
		os.Exit(1)
	}
	if err := driver.Enumerate(); err != nil {
		fmt.Fprintf(os.Stderr, "swrscan: %v\n", err)
		os.Exit(1)
	}

	for _, dev := range driver.Devices() {
		fmt.Printf("device %d serial %d type %q\n", dev.Addr, dev.Serial, dev.Type)
		if dev.Catalogue == nil {
			fmt.Println("  no catalogue")
			continue
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  idx\tkind\tname\tunit\tgain\toffset\tlabels")
		for _, ch := range dev.Catalogue.Channels() {
			extra := ""
			switch ch.Kind {
			case channel.Digital:
				extra = fmt.Sprintf("%q/%q", ch.TextLow, ch.TextHigh)
			case channel.Status:
				extra = fmt.Sprintf("% x", ch.Status)
			}
			fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%g\t%g\t%s\n",
				ch.Index, ch.Kind, ch.Name, ch.Unit, ch.Gain, ch.Offset, extra)
		}
		w.Flush()
	}
}
