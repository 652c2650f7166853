// SPDX-License-Identifier: MIT

// Package testutil holds signal generators and fakes shared by tests.
package testutil

import (
	"math"
	"sync"
)

// MockTransport records everything sent to it instead of transmitting.
type MockTransport struct {
	Err error // returned from every Send

	mu     sync.Mutex
	sent   []any
	closed bool
}

// Send stores data for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return m.Err
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a snapshot of everything sent so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.sent...)
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Sine returns n samples of a sine at freq Hz with the given peak amplitude.
func Sine(n int, sampleRate, freq, amp float64) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	return buf
}

// Chord returns a 440 Hz fundamental with its second and third harmonics,
// peaking below 1.
func Chord(n int, sampleRate float64) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		tm := float64(i) / sampleRate
		buf[i] = float32(0.9 * (math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2))
	}
	return buf
}

// Interleave merges equally long channels into one frame-ordered slice.
func Interleave(channels ...[]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]float32, n*len(channels))
	for c, ch := range channels {
		for i, s := range ch[:n] {
			out[i*len(channels)+c] = s
		}
	}
	return out
}

// PeakBin returns the index of the largest value in mags[startBin:endBin+1].
// The range is clamped to mags.
func PeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	startBin = max(0, startBin)
	endBin = min(endBin, len(magnitudes)-1)

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
