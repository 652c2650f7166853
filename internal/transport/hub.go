// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"specviz/internal/log"
)

// Hub keeps the latest frame of each channel and fans frames out to
// push-style transports.
type Hub struct {
	mu         sync.Mutex
	latest     []Frame
	published  []bool
	seq        uint64
	transports []Transport
	now        func() time.Time
}

// NewHub creates a hub for the given number of channels. Nil transports are skipped.
func NewHub(channels int, transports ...Transport) *Hub {
	h := &Hub{
		latest:    make([]Frame, channels),
		published: make([]bool, channels),
		now:       time.Now,
	}
	for i := range h.latest {
		h.latest[i].Channel = i
	}
	for _, t := range transports {
		if t != nil {
			h.transports = append(h.transports, t)
		}
	}
	return h
}

// Channels returns the number of channels the hub tracks.
func (h *Hub) Channels() int {
	return len(h.latest)
}

// Publish records bins as the newest frame of channel and sends a copy to
// every transport. bins is not retained.
func (h *Hub) Publish(channel int, bins []float64) error {
	if channel < 0 || channel >= len(h.latest) {
		return fmt.Errorf("hub: channel %d out of range [0, %d)", channel, len(h.latest))
	}

	h.mu.Lock()
	h.seq++
	f := &h.latest[channel]
	f.Sequence = h.seq
	f.Timestamp = h.now().UnixNano()
	f.Bins = append(f.Bins[:0], bins...)
	h.published[channel] = true
	var out Frame
	if len(h.transports) > 0 {
		out = *f
		out.Bins = append([]float64(nil), f.Bins...)
	}
	h.mu.Unlock()

	var errs []error
	for _, t := range h.transports {
		if err := t.Send(out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LatestFrame implements FrameProvider.
func (h *Hub) LatestFrame(channel int, dst *Frame) bool {
	if channel < 0 || channel >= len(h.latest) {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.published[channel] {
		return false
	}
	src := h.latest[channel]
	bins := append(dst.Bins[:0], src.Bins...)
	*dst = src
	dst.Bins = bins
	return true
}

// Close closes every transport.
func (h *Hub) Close() error {
	var errs []error
	for _, t := range h.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	log.Debugf("Hub: closed %d transports", len(h.transports))
	return errors.Join(errs...)
}

var _ FrameProvider = (*Hub)(nil)
