// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"

	applog "shottimer/internal/log"
)

var (
	// ErrSenderClosed is returned by Send after Close.
	ErrSenderClosed = errors.New("UDP sender is closed")
	// ErrPacketSize is returned for anything that is not a clock packet.
	ErrPacketSize = errors.New("clock packet has the wrong size")
)

// SenderStats counts clock packets by outcome.
type SenderStats struct {
	Sent    uint64
	Dropped uint64 // Refused because no display was listening
}

// UDPSender writes clock packets to one display. A display that is not
// listening yet is normal on a range: refused packets are counted as dropped
// rather than reported as errors, and the sender keeps trying every tick.
type UDPSender struct {
	targetAddr *net.UDPAddr
	log        applog.Logger

	mu        sync.Mutex // Protects everything below
	conn      *net.UDPConn
	closed    bool
	listening bool
	stats     SenderStats
}

// NewUDPSender dials the display at targetAddress ("host:port").
func NewUDPSender(targetAddress string, logger applog.Logger) (*UDPSender, error) {
	if logger == nil {
		logger = applog.Default()
	}
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve clock display address '%s': %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial clock display '%s': %w", targetAddress, err)
	}

	logger.Infof("UDP Sender: Publishing clock packets to %s", conn.RemoteAddr())

	return &UDPSender{
		conn:       conn,
		targetAddr: udpAddr,
		log:        logger,
		listening:  true,
	}, nil
}

// Target returns the resolved display address.
func (s *UDPSender) Target() *net.UDPAddr {
	return s.targetAddr
}

// Send writes one clock packet. It is safe for concurrent use.
func (s *UDPSender) Send(packet []byte) error {
	if len(packet) != PacketSize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrPacketSize, len(packet), PacketSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSenderClosed
	}

	_, err := s.conn.Write(packet)
	switch {
	case err == nil:
		s.stats.Sent++
		if !s.listening {
			s.listening = true
			s.log.Infof("UDP Sender: Display at %s is listening again", s.targetAddr)
		}
		return nil

	case errors.Is(err, syscall.ECONNREFUSED):
		// The previous packet bounced; nobody is bound to the display port.
		s.stats.Dropped++
		if s.listening {
			s.listening = false
			s.log.Warnf("UDP Sender: No display listening on %s, dropping packets", s.targetAddr)
		}
		return nil
	}

	s.log.Debugf("UDP Sender: Error sending packet: %v", err)
	return fmt.Errorf("failed to send clock packet: %w", err)
}

// Stats returns the packet counters.
func (s *UDPSender) Stats() SenderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close closes the connection and logs the final counters.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.log.Infof("UDP Sender: Closing connection to %s (%d sent, %d dropped)",
		s.targetAddr, s.stats.Sent, s.stats.Dropped)
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

var _ interface{ Close() error } = (*UDPSender)(nil)
