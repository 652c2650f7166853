// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	applog "specviz/internal/log"
)

// MaxDatagram is the largest UDP payload over IPv4.
const MaxDatagram = 65507

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp sender is closed")

// ErrPacketTooLarge is returned for packets that do not fit one datagram.
// At HeaderSize+4 bytes per bin that is roughly 16k bins.
var ErrPacketTooLarge = errors.New("packet exceeds the UDP datagram limit")

// SenderStats counts packets since the sender was created.
type SenderStats struct {
	Sent    uint64
	Dropped uint64 // rejected or failed writes
	Bytes   uint64
}

// UDPSender writes spectrum packets to one dialed UDP peer. It is safe for
// concurrent use.
type UDPSender struct {
	mu     sync.Mutex // guards conn against a concurrent Close
	conn   *net.UDPConn
	remote string

	sent, dropped, bytes atomic.Uint64
}

// NewUDPSender dials targetAddress ("host:port"). Nothing needs to listen
// there; packets to a closed port are dropped by the network.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	s := &UDPSender{conn: conn, remote: conn.RemoteAddr().String()}
	applog.Infof("UDPSender: Sending to %s", s.remote)
	return s, nil
}

// RemoteAddr is the resolved peer address.
func (s *UDPSender) RemoteAddr() string {
	return s.remote
}

// Send transmits data as one datagram.
func (s *UDPSender) Send(data []byte) error {
	if len(data) > MaxDatagram {
		s.dropped.Add(1)
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(data))
	}

	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return ErrSenderClosed
	}
	n, err := s.conn.Write(data)
	s.mu.Unlock()

	if err != nil {
		// A peer that is not listening yields ECONNREFUSED on the next write.
		s.dropped.Add(1)
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	s.sent.Add(1)
	s.bytes.Add(uint64(n))
	return nil
}

// Stats returns the packet counters.
func (s *UDPSender) Stats() SenderStats {
	return SenderStats{Sent: s.sent.Load(), Dropped: s.dropped.Load(), Bytes: s.bytes.Load()}
}

// Close closes the connection. Further calls are no-ops.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}

	st := s.Stats()
	applog.Debugf("UDPSender: Closing %s (%d sent, %d dropped, %d bytes)", s.remote, st.Sent, st.Dropped, st.Bytes)
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

var (
	_ PacketSender               = (*UDPSender)(nil)
	_ interface{ Close() error } = (*UDPSender)(nil)
)
