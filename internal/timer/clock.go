// SPDX-License-Identifier: MIT
package timer

import (
	"sync"
	"time"
)

// Clock is a stopwatch. Elapsed time accumulates across Start/Stop pairs
// until Reset.
type Clock struct {
	now func() time.Time

	mu          sync.Mutex
	running     bool
	startedAt   time.Time
	accumulated time.Duration
}

// NewClock returns a stopped clock reading zero. A nil now uses time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Start begins timing. It is a no-op if the clock is already running.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.startedAt = c.now()
}

// Stop freezes the elapsed time. It is a no-op if the clock is stopped.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.accumulated += c.now().Sub(c.startedAt)
	c.running = false
}

// Reset zeroes the elapsed time. A running clock keeps running from zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accumulated = 0
	if c.running {
		c.startedAt = c.now()
	}
}

// Elapsed returns the time accumulated so far.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return c.accumulated + c.now().Sub(c.startedAt)
	}
	return c.accumulated
}

// Running reports whether the clock is timing.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Ticker calls publish at a fixed interval from its own goroutine between
// Start and Stop. Both are safe to call repeatedly.
type Ticker struct {
	interval time.Duration
	publish  func()

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewTicker returns a stopped ticker. Intervals <= 0 default to 1ms.
func NewTicker(interval time.Duration, publish func()) *Ticker {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Ticker{interval: interval, publish: publish}
}

// Start launches the publishing goroutine.
func (t *Ticker) Start() {
	t.mu.Lock()
	if t.ticker != nil {
		t.mu.Unlock()
		return
	}
	t.ticker = time.NewTicker(t.interval)
	t.doneChan = make(chan struct{})
	t.stopOnce = sync.Once{}

	ticker := t.ticker
	doneChan := t.doneChan
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ticker.C:
				t.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop halts publishing and waits for the goroutine to exit. No publish call
// happens after Stop returns.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if t.ticker == nil {
		t.mu.Unlock()
		return
	}
	t.stopOnce.Do(func() {
		close(t.doneChan)
		t.ticker.Stop()
		t.ticker = nil
	})
	t.mu.Unlock()

	t.wg.Wait()
}
