// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"sync"
	"time"

	"shottimer/internal/analysis"
	applog "shottimer/internal/log"
	"shottimer/internal/timer"
)

// Broadcaster fans timer output out to every registered Transport. Non-final
// elapsed updates are throttled to at most one per interval; shots and final
// readings always go through.
type Broadcaster struct {
	interval time.Duration
	now      func() time.Time
	log      applog.Logger

	mu          sync.Mutex
	transports  []Transport
	lastElapsed time.Time
}

var _ timer.Relay = (*Broadcaster)(nil)

// NewBroadcaster returns a broadcaster over transports.
func NewBroadcaster(interval time.Duration, logger applog.Logger, transports ...Transport) *Broadcaster {
	if logger == nil {
		logger = applog.Default()
	}
	return &Broadcaster{
		interval:   interval,
		now:        time.Now,
		log:        logger,
		transports: transports,
	}
}

// Add registers another transport.
func (b *Broadcaster) Add(t Transport) {
	b.mu.Lock()
	b.transports = append(b.transports, t)
	b.mu.Unlock()
}

func (b *Broadcaster) snapshot() []Transport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Transport(nil), b.transports...)
}

// Shots publishes each event as a ShotMessage.
func (b *Broadcaster) Shots(events []analysis.ShotEvent) {
	transports := b.snapshot()
	for _, e := range events {
		msg := NewShotMessage(e)
		for _, t := range transports {
			if err := t.Send(msg); err != nil {
				b.log.Warnf("Broadcaster: shot %d not sent via %T: %v", e.Number, t, err)
			}
		}
	}
}

// Elapsed publishes the clock reading, dropping non-final readings that
// arrive within the throttle interval of the previous one.
func (b *Broadcaster) Elapsed(elapsed time.Duration, final bool) {
	b.mu.Lock()
	now := b.now()
	if !final && b.interval > 0 && !b.lastElapsed.IsZero() && now.Sub(b.lastElapsed) < b.interval {
		b.mu.Unlock()
		return
	}
	b.lastElapsed = now
	transports := append([]Transport(nil), b.transports...)
	b.mu.Unlock()

	msg := ElapsedMessage{
		Type:      TypeElapsed,
		ElapsedMs: elapsed.Milliseconds(),
		Elapsed:   analysis.FormatElapsed(elapsed),
		Final:     final,
	}
	for _, t := range transports {
		if err := t.Send(msg); err != nil {
			b.log.Debugf("Broadcaster: elapsed not sent via %T: %v", t, err)
		}
	}
}

// Close closes every transport and returns their combined errors.
func (b *Broadcaster) Close() error {
	var errs []error
	for _, t := range b.snapshot() {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
