// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "shottimer/internal/log"
)

// ClockSource is what the publisher samples on every tick.
type ClockSource interface {
	Elapsed() time.Duration
	Running() bool
	ShotCount() int
}

// PacketSize is the length in bytes of every clock packet.
const PacketSize = 4 + 8 + 4 + 1 + 2

// UDPPublisher periodically samples the drill clock, packs it into a fixed
// binary format and sends it over UDP. It runs in a separate goroutine
// managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	clock    ClockSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 33ms (~30Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, clock ClockSource) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if clock == nil {
		return nil, fmt.Errorf("UDPPublisher: clock source cannot be nil")
	}

	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Target: %s)", interval, sender.Target())

	return &UDPPublisher{
		sender:       sender,
		clock:        clock,
		interval:     interval,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, PacketSize)),
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a running
// publisher is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Captured so the goroutine never reads p.ticker/p.doneChan
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to
// exit. One last packet is sent so receivers see the final reading.
// It is safe to call Stop multiple times.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	p.buildAndSendPacket()
	applog.Debugf("UDPPublisher: Publisher goroutine finished after %d packets.", p.sequenceNum)
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Elapsed           | uint32         | 4            | Clock reading in ms     |
| Running           | uint8          | 1            | 1 while the clock runs  |
| Shot Count        | uint16         | 2            | Shots in the current run|
+-----------------------------------------------------------------------------+
*/

// Packet is the decoded form of one clock packet.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	ElapsedMs uint32
	Running   bool
	Shots     uint16
}

// Elapsed returns the clock reading carried by the packet.
func (pk Packet) Elapsed() time.Duration {
	return time.Duration(pk.ElapsedMs) * time.Millisecond
}

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp: short clock packet")

// DecodePacket parses a packet produced by UDPPublisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < PacketSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	return Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
		ElapsedMs: binary.BigEndian.Uint32(b[12:16]),
		Running:   b[16] == 1,
		Shots:     binary.BigEndian.Uint16(b[17:19]),
	}, nil
}

func saturate[T uint16 | uint32](v int64, limit T) T {
	if v < 0 {
		return 0
	}
	if v > int64(limit) {
		return limit
	}
	return T(v)
}

// buildAndSendPacket samples the clock and sends one packet. Only the
// publisher goroutine and Stop (after the goroutine exits) call it.
func (p *UDPPublisher) buildAndSendPacket() {
	p.sequenceNum++

	var running uint8
	if p.clock.Running() {
		running = 1
	}

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, struct {
		Seq       uint32
		Timestamp int64
		ElapsedMs uint32
		Running   uint8
		Shots     uint16
	}{
		Seq:       p.sequenceNum,
		Timestamp: time.Now().UnixNano(),
		ElapsedMs: saturate(p.clock.Elapsed().Milliseconds(), uint32(math.MaxUint32)),
		Running:   running,
		Shots:     saturate(int64(p.clock.ShotCount()), uint16(math.MaxUint16)),
	})
	if err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d", p.sequenceNum)
	}
}

// Close stops the publisher. The sender is owned by the caller.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
