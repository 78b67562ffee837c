// Package config reads the optional poller configuration file, an ini
// file with [link], [poll] and [database] sections. Command line flags
// override anything set here.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"

	"github.com/j256/goswrnet/pkg/device"
)

type Config struct {
	// [link]
	Endpoint     string
	CloseBetween bool
	TraceDir     string
	// [poll]
	Interval time.Duration
	Channels []string
	// [database]
	Driver string
	DSN    string
}

// Default returns the built in configuration: poll every minute for
// the canonical channel set, persist to a local Postgres.
func Default() Config {
	return Config{
		Interval: time.Minute,
		Channels: device.DefaultChannels,
		Driver:   "postgres",
		DSN:      "dbname=sunnyboy sslmode=disable",
	}
}

// Load reads the given ini file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}

	link := f.Section("link")
	if k := link.Key("endpoint"); k.String() != "" {
		cfg.Endpoint = k.String()
	}
	cfg.CloseBetween = link.Key("close").MustBool(cfg.CloseBetween)
	if k := link.Key("trace"); k.String() != "" {
		cfg.TraceDir = k.String()
	}

	poll := f.Section("poll")
	if secs := poll.Key("interval").MustInt(0); secs > 0 {
		cfg.Interval = time.Duration(secs) * time.Second
	}
	if names := poll.Key("channels").Strings(","); len(names) > 0 {
		cfg.Channels = names
	}

	db := f.Section("database")
	if k := db.Key("driver"); k.String() != "" {
		cfg.Driver = k.String()
	}
	if k := db.Key("dsn"); k.String() != "" {
		cfg.DSN = k.String()
	}
	return cfg, nil
}
