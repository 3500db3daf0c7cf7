// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	applog "shottimer/internal/log"
)

type fakeClock struct {
	mu      sync.Mutex
	elapsed time.Duration
	running bool
	shots   int
}

func (f *fakeClock) set(elapsed time.Duration, running bool, shots int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elapsed, f.running, f.shots = elapsed, running, shots
}

func (f *fakeClock) Elapsed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elapsed
}

func (f *fakeClock) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeClock) ShotCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shots
}

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readPacket(t *testing.T, conn *net.UDPConn) Packet {
	t.Helper()
	buf := make([]byte, 64)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}
	if n != PacketSize {
		t.Fatalf("packet size = %d, want %d", n, PacketSize)
	}
	pk, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("DecodePacket() error = %v", err)
	}
	return pk
}

func TestNewUDPPublisherValidation(t *testing.T) {
	if _, err := NewUDPPublisher(time.Millisecond, nil, &fakeClock{}); err == nil {
		t.Error("expected error for nil sender")
	}
	sender, err := NewUDPSender("127.0.0.1:9", applog.Nop())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}
	defer sender.Close()
	if _, err := NewUDPPublisher(time.Millisecond, sender, nil); err == nil {
		t.Error("expected error for nil clock")
	}
}

func TestUDPPublisherSendsClockPackets(t *testing.T) {
	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String(), applog.Nop())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}
	defer sender.Close()

	clock := &fakeClock{}
	clock.set(1234*time.Millisecond, true, 3)

	pub, err := NewUDPPublisher(5*time.Millisecond, sender, clock)
	if err != nil {
		t.Fatalf("NewUDPPublisher() error = %v", err)
	}
	pub.Start()
	pub.Start() // no-op

	first := readPacket(t, conn)
	if first.Sequence != 1 {
		t.Errorf("first sequence = %d, want 1", first.Sequence)
	}
	if first.Elapsed() != 1234*time.Millisecond || !first.Running || first.Shots != 3 {
		t.Errorf("first packet = %+v", first)
	}
	if first.Timestamp <= 0 {
		t.Errorf("timestamp = %d, want positive", first.Timestamp)
	}

	second := readPacket(t, conn)
	if second.Sequence != 2 {
		t.Errorf("second sequence = %d, want 2", second.Sequence)
	}

	clock.set(4000*time.Millisecond, false, 5)
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	// Drain until the final packet sent by Stop.
	var last Packet
	for {
		last = readPacket(t, conn)
		if !last.Running {
			break
		}
	}
	if last.ElapsedMs != 4000 || last.Shots != 5 {
		t.Errorf("final packet = %+v", last)
	}
}

func TestDecodePacketShort(t *testing.T) {
	if _, err := DecodePacket(make([]byte, PacketSize-1)); !errors.Is(err, ErrShortPacket) {
		t.Errorf("DecodePacket() error = %v, want ErrShortPacket", err)
	}
}

func TestSaturate(t *testing.T) {
	if got := saturate(-5, uint16(10)); got != 0 {
		t.Errorf("saturate(-5) = %d, want 0", got)
	}
	if got := saturate(70000, uint16(65535)); got != 65535 {
		t.Errorf("saturate(70000) = %d, want 65535", got)
	}
	if got := saturate(42, uint32(1000)); got != 42 {
		t.Errorf("saturate(42) = %d, want 42", got)
	}
}
