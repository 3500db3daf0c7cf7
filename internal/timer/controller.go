// SPDX-License-Identifier: MIT
/*
Package timer sequences a shooting drill: optional standby cue, start delay,
start cue, then a running clock against which detected shots are recorded.

A Controller owns one worker goroutine per run. The capture callback feeds
HandleAudio from its own thread; only short critical sections are shared with
the worker, and no lock is held while a cue plays. Detected shots are handed
to a per-run relay goroutine so a slow display never stalls capture.
*/
package timer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"shottimer/internal/analysis"
	applog "shottimer/internal/log"
)

var (
	// ErrNoCueAvailable means there is no start cue to play; a drill cannot run.
	ErrNoCueAvailable = errors.New("no start cue available")
	// ErrEmptyStandbySet is logged when standby is enabled without any cues.
	ErrEmptyStandbySet = errors.New("standby enabled but no standby cues available")
	// ErrNotIdle is returned by Start and Reset outside the Idle phase.
	ErrNotIdle = errors.New("timer is not idle")
)

// relayQueueSize bounds the shot batches waiting for the relay goroutine.
const relayQueueSize = 256

// CuePlayer plays an audio cue and returns when it has finished or ctx is
// cancelled.
type CuePlayer interface {
	Play(ctx context.Context, cue string) error
}

// Relay receives everything a display needs. Shots come from the relay
// goroutine, Elapsed from the tick goroutine and Stop/Reset callers.
type Relay interface {
	Shots(events []analysis.ShotEvent)
	Elapsed(elapsed time.Duration, final bool)
}

// Options configures a drill.
type Options struct {
	MinDelay     time.Duration
	MaxDelay     time.Duration
	RandomDelay  bool
	PlayStandby  bool
	StandbyCues  []string
	StartCue     string
	TickInterval time.Duration // Elapsed publishing period, 1ms if zero
}

// Deps are the collaborators of a Controller. Logger, Rand and Now are
// optional.
type Deps struct {
	Detector analysis.ShotDetector
	Player   CuePlayer
	Relay    Relay
	Logger   applog.Logger
	Rand     *rand.Rand
	Now      func() time.Time
}

// Controller runs drills. All methods are safe for concurrent use.
type Controller struct {
	opts     Options
	detector analysis.ShotDetector
	player   CuePlayer
	relay    Relay
	log      applog.Logger
	rng      *rand.Rand // Only touched by the worker; one worker runs at a time
	clock    *Clock
	ticker   *Ticker

	mu     sync.Mutex
	phase  Phase
	cancel context.CancelFunc // nil once Stop has begun
	done   chan struct{}      // Closed when the worker exits
	cues   sync.WaitGroup     // In-flight start cue
	shots  []analysis.ShotEvent

	relayQ    chan []analysis.ShotEvent // nil outside a run
	relayDone chan struct{}             // Closed when the relay goroutine exits
}

// New validates opts and deps and returns an idle controller.
func New(opts Options, deps Deps) (*Controller, error) {
	if opts.StartCue == "" {
		return nil, ErrNoCueAvailable
	}
	if deps.Detector == nil {
		return nil, fmt.Errorf("timer: detector cannot be nil")
	}
	if deps.Player == nil {
		return nil, fmt.Errorf("timer: cue player cannot be nil")
	}
	if deps.Relay == nil {
		return nil, fmt.Errorf("timer: relay cannot be nil")
	}

	logger := deps.Logger
	if logger == nil {
		logger = applog.Default()
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}

	c := &Controller{
		opts:     opts,
		detector: deps.Detector,
		player:   deps.Player,
		relay:    deps.Relay,
		log:      logger,
		rng:      rng,
		clock:    NewClock(deps.Now),
	}
	c.ticker = NewTicker(opts.TickInterval, func() {
		c.relay.Elapsed(c.clock.Elapsed(), false)
	})
	return c, nil
}

// Start arms a drill and returns immediately. The sequence runs on a worker
// goroutine until Stop is called or ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != Idle {
		phase := c.phase
		c.mu.Unlock()
		return fmt.Errorf("start in %s phase: %w", phase, ErrNotIdle)
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	relayQ := make(chan []analysis.ShotEvent, relayQueueSize)
	relayDone := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.relayQ = relayQ
	c.relayDone = relayDone
	c.phase = Armed
	c.mu.Unlock()

	c.log.Infof("Timer: armed")
	go c.relayShots(relayQ, relayDone)
	go c.run(runCtx, done)
	return nil
}

// relayShots delivers queued shot batches in detection order until the queue
// is closed by Stop.
func (c *Controller) relayShots(queue <-chan []analysis.ShotEvent, done chan<- struct{}) {
	defer close(done)
	for events := range queue {
		c.relay.Shots(events)
	}
}

func (c *Controller) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	if c.opts.PlayStandby {
		c.setPhase(Standby)
		c.playStandby(ctx)
	}
	if ctx.Err() != nil {
		return
	}

	delay := NextDelay(c.opts.MinDelay, c.opts.MaxDelay, c.opts.RandomDelay, c.rng)
	c.setPhase(Delaying)
	c.log.Debugf("Timer: start delay %s", delay)

	wait := time.NewTimer(delay)
	defer wait.Stop()
	select {
	case <-ctx.Done():
		c.log.Debugf("Timer: cancelled during start delay")
		return
	case <-wait.C:
	}

	c.beginRunning(ctx)
}

func (c *Controller) playStandby(ctx context.Context) {
	if len(c.opts.StandbyCues) == 0 {
		c.log.Warnf("Timer: %v", ErrEmptyStandbySet)
		return
	}
	cue := c.opts.StandbyCues[c.rng.IntN(len(c.opts.StandbyCues))]
	if err := c.player.Play(ctx, cue); err != nil && ctx.Err() == nil {
		c.log.Warnf("Timer: standby cue %s failed: %v", cue, err)
	}
}

// beginRunning starts the clock and the start cue together, unless the run
// was cancelled first.
func (c *Controller) beginRunning(ctx context.Context) {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return
	}

	c.cues.Add(1)
	go func() {
		defer c.cues.Done()
		if err := c.player.Play(ctx, c.opts.StartCue); err != nil && ctx.Err() == nil {
			c.log.Errorf("Timer: start cue %s failed: %v", c.opts.StartCue, err)
		}
	}()

	c.detector.Reset()
	c.clock.Reset()
	c.clock.Start()
	c.shots = nil
	c.phase = Running
	c.mu.Unlock()

	c.ticker.Start()
	c.log.Infof("Timer: running")
}

// HandleAudio is the capture callback. Shots detected while the clock is not
// running are dropped. It never waits on the relay.
func (c *Controller) HandleAudio(buffer []byte) {
	c.mu.Lock()
	events := c.detector.ProcessAudio(buffer)
	running := c.clock.Running()
	queued := false
	if running && len(events) > 0 {
		c.shots = append(c.shots, events...)
		select {
		case c.relayQ <- events:
			queued = true
		default:
		}
	}
	c.mu.Unlock()

	if !running || len(events) == 0 {
		return
	}
	for _, e := range events {
		c.log.Debugf("Timer: %s", e)
	}
	if !queued {
		c.log.Warnf("Timer: relay queue full, %d shots recorded but not relayed", len(events))
	}
}

// Stop cancels the current run from any phase and blocks until the worker
// and any playing cue have finished. The final elapsed time is relayed once.
// Stop is a no-op when idle or while another Stop is in progress.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.phase == Idle || c.cancel == nil {
		c.mu.Unlock()
		return
	}
	cancel, done, relayDone := c.cancel, c.done, c.relayDone
	c.cancel = nil
	cancel()
	// HandleAudio only queues while the clock runs, so the queue can close.
	c.clock.Stop()
	close(c.relayQ)
	c.relayQ = nil
	c.mu.Unlock()

	<-done
	c.cues.Wait()
	c.ticker.Stop()
	<-relayDone

	elapsed := c.clock.Elapsed()
	c.relay.Elapsed(elapsed, true)

	c.mu.Lock()
	c.phase = Idle
	c.done = nil
	c.relayDone = nil
	shots := len(c.shots)
	c.mu.Unlock()

	c.log.Infof("Timer: stopped at %s with %d shots", analysis.FormatElapsed(elapsed), shots)
}

// Reset clears the clock, the detector and the shot log. Only valid when idle.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.phase != Idle {
		phase := c.phase
		c.mu.Unlock()
		return fmt.Errorf("reset in %s phase: %w", phase, ErrNotIdle)
	}
	c.clock.Reset()
	c.detector.Reset()
	c.shots = nil
	c.mu.Unlock()

	c.relay.Elapsed(0, true)
	c.log.Debugf("Timer: reset")
	return nil
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Elapsed returns the clock reading.
func (c *Controller) Elapsed() time.Duration {
	return c.clock.Elapsed()
}

// Running reports whether the clock is running.
func (c *Controller) Running() bool {
	return c.clock.Running()
}

// Shots returns a copy of the shots recorded in the current or last run.
func (c *Controller) Shots() []analysis.ShotEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]analysis.ShotEvent(nil), c.shots...)
}

// ShotCount returns the number of shots in the current or last run.
func (c *Controller) ShotCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.shots)
}
