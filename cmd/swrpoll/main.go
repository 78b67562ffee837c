// swrpoll polls the SMA inverters on one SWR-NET bus and appends their
// measurements to the stats database.
//
// Usage:
//
//	swrpoll [options] <device>
//
// where device is either a serial device path or host:port of a serial
// to Ethernet bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/j256/goswrnet/pkg/config"
	"github.com/j256/goswrnet/pkg/device"
	"github.com/j256/goswrnet/pkg/sched"
	"github.com/j256/goswrnet/pkg/store"
	"github.com/j256/goswrnet/pkg/transport"
)

func main() {
	interval := flag.Int("i", 0, "poll interval in seconds (default 60)")
	closeBetween := flag.Bool("c", false, "close the link between poll cycles")
	traceDir := flag.String("l", "", "dump every raw frame into `DIR`")
	pidFile := flag.String("p", "", "write the process id to `FILE`")
	configFile := flag.String("f", "", "read configuration from ini `FILE`")
	dsn := flag.String("d", "", "database connection string")
	verbose := flag.Bool("v", false, "debug logging")
	trace := flag.Bool("V", false, "protocol trace logging")
	flag.Parse()

	switch {
	case *trace:
		log.SetLevel(log.TraceLevel)
	case *verbose:
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "swrpoll: %v\n", err)
			os.Exit(1)
		}
	}
	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "swrpoll: expected a single device argument")
		flag.Usage()
		os.Exit(1)
	}
	if flag.NArg() == 1 {
		cfg.Endpoint = flag.Arg(0)
	}
	if cfg.Endpoint == "" {
		fmt.Fprintln(os.Stderr, "swrpoll: no bus device given")
		flag.Usage()
		os.Exit(1)
	}
	if *interval > 0 {
		cfg.Interval = time.Duration(*interval) * time.Second
	}
	if *closeBetween {
		cfg.CloseBetween = true
	}
	if *traceDir != "" {
		cfg.TraceDir = *traceDir
	}
	if *dsn != "" {
		cfg.DSN = *dsn
	}

	if *pidFile != "" {
		pid := strconv.Itoa(os.Getpid()) + "\n"
		if err := os.WriteFile(*pidFile, []byte(pid), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "swrpoll: write pid file: %v\n", err)
			os.Exit(1)
		}
		defer os.Remove(*pidFile)
	}

	st, err := store.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swrpoll: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	dial := func() (transport.Transport, error) {
		bus, err := transport.Open(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		if cfg.TraceDir != "" {
			return transport.Trace(bus, cfg.TraceDir), nil
		}
		return bus, nil
	}

	driver := device.NewDriver(nil, st)
	driver.Channels = cfg.Channels
	scheduler := &sched.Scheduler{
		Poller:       driver,
		Rec:          st,
		Dial:         dial,
		Interval:     cfg.Interval,
		CloseBetween: cfg.CloseBetween,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("[MAIN] polling %s every %v", cfg.Endpoint, cfg.Interval)
	st.AppendComment(0, "poller started")
	scheduler.Run(ctx)
	st.AppendComment(0, "poller stopped")
	log.Info("[MAIN] stopped")
}
