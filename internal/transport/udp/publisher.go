// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "specviz/internal/log"
	"specviz/internal/transport"
)

// HeaderSize is the fixed part of every packet.
const HeaderSize = 4 + 8 + 1 + 2

// MaxBins is the most values a packet can carry.
const MaxBins = math.MaxUint16

// PacketSender is the part of UDPSender the publisher needs.
type PacketSender interface {
	Send(data []byte) error
}

// UDPPublisher periodically fetches the latest spectrum frame of every
// channel, packs each into the binary format below and sends it with a
// PacketSender. It runs in a separate goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   PacketSender
	frames   transport.FrameProvider
	interval time.Duration

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.

	// Reused between ticks.
	frame    transport.Frame
	lastSeen []uint64
	packet   []byte
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender PacketSender, frames transport.FrameProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if frames == nil {
		return nil, fmt.Errorf("UDPPublisher: frame provider cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Channels: %d)", interval, frames.Channels())

	return &UDPPublisher{
		sender:   sender,
		frames:   frames,
		interval: interval,
		lastSeen: make([]uint64, frames.Channels()),
	}, nil
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
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
				p.publish()
			case <-doneChan:
				applog.Debugf("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Channel           | uint8          | 1            | Displayed channel index |
| Bin Count         | uint16         | 2            | Number of floats (N)    |
| Bins              | []float32      | N * 4        | Spectrum values         |
+-----------------------------------------------------------------------------+
*/

// publish sends one packet for each channel whose frame changed since the
// previous tick.
func (p *UDPPublisher) publish() {
	for ch := range p.lastSeen {
		if !p.frames.LatestFrame(ch, &p.frame) || p.frame.Sequence == p.lastSeen[ch] {
			continue
		}
		p.lastSeen[ch] = p.frame.Sequence
		p.sequenceNum++

		p.packet = AppendPacket(p.packet[:0], p.sequenceNum, &p.frame)
		if err := p.sender.Send(p.packet); err != nil {
			applog.Debugf("UDPPublisher: packet %d not sent: %v", p.sequenceNum, err)
			continue
		}
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(p.packet))
	}
}

// AppendPacket encodes f with the given sequence number onto dst. Frames with
// more than MaxBins values are truncated.
func AppendPacket(dst []byte, seq uint32, f *transport.Frame) []byte {
	bins := f.Bins
	if len(bins) > MaxBins {
		bins = bins[:MaxBins]
	}
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(f.Timestamp))
	dst = append(dst, uint8(f.Channel))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(bins)))
	for _, v := range bins {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
	}
	return dst
}

// Packet is a decoded spectrum packet.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Channel   uint8
	Bins      []float32
}

// ErrShortPacket is returned when a datagram is smaller than its header claims.
var ErrShortPacket = errors.New("udp: short packet")

// DecodePacket parses a datagram produced by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, ErrShortPacket
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
		Channel:   b[12],
	}
	n := int(binary.BigEndian.Uint16(b[13:15]))
	body := b[HeaderSize:]
	if len(body) < n*4 {
		return Packet{}, fmt.Errorf("%w: %d bins need %d bytes, have %d", ErrShortPacket, n, n*4, len(body))
	}
	p.Bins = make([]float32, n)
	for i := range p.Bins {
		p.Bins[i] = math.Float32frombits(binary.BigEndian.Uint32(body[i*4:]))
	}
	return p, nil
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

// Ensure UDPPublisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*UDPPublisher)(nil)
