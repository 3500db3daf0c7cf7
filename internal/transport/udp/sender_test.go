// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"net"
	"runtime"
	"testing"
	"time"

	applog "shottimer/internal/log"
)

func newTestSender(t *testing.T, addr string) *UDPSender {
	t.Helper()
	sender, err := NewUDPSender(addr, applog.Nop())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}
	t.Cleanup(func() { _ = sender.Close() })
	return sender
}

func clockPacket(seq byte) []byte {
	p := make([]byte, PacketSize)
	p[3] = seq
	return p
}

func TestUDPSenderRoundTrip(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer conn.Close()

	sender := newTestSender(t, conn.LocalAddr().String())

	payload := clockPacket(1)
	if err := sender.Send(payload); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	buf := make([]byte, 64)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Errorf("received % x, want % x", buf[:n], payload)
	}
	if st := sender.Stats(); st.Sent != 1 || st.Dropped != 0 {
		t.Errorf("Stats() = %+v, want 1 sent", st)
	}

	if err := sender.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := sender.Send(payload); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send() after Close = %v, want ErrSenderClosed", err)
	}
}

func TestUDPSenderRejectsWrongSize(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer conn.Close()
	sender := newTestSender(t, conn.LocalAddr().String())

	for _, size := range []int{0, 4, PacketSize - 1, PacketSize + 1, 512} {
		if err := sender.Send(make([]byte, size)); !errors.Is(err, ErrPacketSize) {
			t.Errorf("Send(%d bytes) error = %v, want ErrPacketSize", size, err)
		}
	}
	if st := sender.Stats(); st.Sent != 0 || st.Dropped != 0 {
		t.Errorf("rejected packets were counted: %+v", st)
	}
}

func TestUDPSenderNoDisplayListening(t *testing.T) {
	// Bind and release a port so nothing is listening on it.
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	addr := conn.LocalAddr().String()
	conn.Close()

	sender := newTestSender(t, addr)

	const packets = 10
	for i := range packets {
		if err := sender.Send(clockPacket(byte(i))); err != nil {
			t.Fatalf("Send() %d error = %v, want nil while the display is away", i, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	st := sender.Stats()
	if st.Sent+st.Dropped != packets {
		t.Errorf("Stats() = %+v, want %d packets accounted for", st, packets)
	}
	// Loopback reports the refused port back to the socket on Linux.
	if runtime.GOOS == "linux" && st.Dropped == 0 {
		t.Errorf("Stats() = %+v, want refused packets counted as dropped", st)
	}
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not an address", nil); err == nil {
		t.Error("expected error for malformed address")
	}
}
