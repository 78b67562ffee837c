// Package sched keeps the polling cadence phase locked: every cycle
// runs at an integral multiple of the configured interval, regardless
// of how long the previous cycle took and across process restarts.
package sched

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/j256/goswrnet/pkg/device"
	"github.com/j256/goswrnet/pkg/transport"
)

// A Poller is the protocol driver as seen by the scheduler.
type Poller interface {
	Discover() error
	Enumerate() error
	Poll(pollTime time.Time) error
	Attach(bus transport.Transport)
	Attached() bool
	Detach() error
}

// A Scheduler drives the poller on the aligned cadence. Discovery and
// enumeration are retried with interval backoff until they succeed;
// polling failures skip the cycle and never terminate the loop.
type Scheduler struct {
	Poller   Poller
	Rec      device.Recorder
	Dial     func() (transport.Transport, error)
	Interval time.Duration
	// CloseBetween releases the bus between cycles, for setups where
	// the serial device is shared with other tooling.
	CloseBetween bool
}

// NextAligned returns the smallest multiple of interval (counted from
// the Unix epoch) that is not before now.
func NextAligned(now time.Time, interval time.Duration) time.Time {
	ns := now.UnixNano()
	next := time.Unix(0, ns-ns%int64(interval))
	if next.Before(now) {
		next = next.Add(interval)
	}
	return next
}

// Advance moves a completed cycle time forward: at least one interval,
// then as many more as needed to leave the past. The result stays a
// multiple of the interval however long the previous cycle stalled.
func Advance(prev, now time.Time, interval time.Duration) time.Time {
	next := prev.Add(interval)
	for next.Before(now) {
		next = next.Add(interval)
	}
	return next
}

func (s *Scheduler) comment(text string) {
	if s.Rec == nil {
		return
	}
	if err := s.Rec.AppendComment(0, text); err != nil {
		log.Errorf("[STORE] append comment: %v", err)
	}
}

func (s *Scheduler) ensureOpen() error {
	if s.Poller.Attached() {
		return nil
	}
	bus, err := s.Dial()
	if err != nil {
		return err
	}
	s.Poller.Attach(bus)
	return nil
}

// sleepUntil blocks until the deadline or context cancellation,
// reporting false when cancelled.
func sleepUntil(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Run executes the phases: discovery and enumeration with interval
// backoff, then the phase locked polling loop. It returns once the
// context is cancelled; an in flight cycle is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		err := s.setup()
		if err == nil {
			break
		}
		log.Warnf("[SCHED] setup failed, retrying in %v: %v", s.Interval, err)
		s.comment(fmt.Sprintf("setup failed: %v", err))
		if !sleepUntil(ctx, time.Now().Add(s.Interval)) {
			s.Poller.Detach()
			return ctx.Err()
		}
	}

	next := NextAligned(time.Now(), s.Interval)
	for {
		if !sleepUntil(ctx, next) {
			s.Poller.Detach()
			return ctx.Err()
		}
		if err := s.ensureOpen(); err != nil {
			log.Warnf("[SCHED] bus unavailable, skipping cycle: %v", err)
			s.comment(fmt.Sprintf("bus unavailable: %v", err))
		} else {
			log.Debugf("[SCHED] cycle at %v", next)
			if err := s.Poller.Poll(next); err != nil {
				log.Warnf("[SCHED] cycle at %v failed: %v", next, err)
				s.comment(fmt.Sprintf("poll cycle failed: %v", err))
			}
			if s.CloseBetween {
				s.Poller.Detach()
			}
		}
		next = Advance(next, time.Now(), s.Interval)
	}
}

func (s *Scheduler) setup() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.Poller.Discover(); err != nil {
		return err
	}
	return s.Poller.Enumerate()
}
