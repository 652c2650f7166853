// SPDX-License-Identifier: MIT
package audio

import "math"

// Gate decides whether a block is loud enough to analyze. A closed gate lets
// the visualizer skip the transform and show silence.
type Gate struct {
	enabled   bool
	threshold float32 // Absolute peak amplitude (0.0-1.0)
}

// NewGate returns a gate with the given threshold, enabled when threshold > 0.
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	g.enabled = g.threshold > 0
	return g
}

func (g *Gate) Enable() {
	g.enabled = true
}

func (g *Gate) Disable() {
	g.enabled = false
}

func (g *Gate) Enabled() bool {
	return g.enabled
}

// SetThreshold adjusts the gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	g.threshold = float32(max(0, min(1, threshold)))
}

// Threshold returns the current gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) Threshold() float64 {
	return float64(g.threshold)
}

// Open reports whether the peak of samples exceeds the threshold. A disabled
// or nil gate is always open.
//
// Performance Critical (Hot Path):
// - No allocations
// - Branchless absolute value
func (g *Gate) Open(samples []float32) bool {
	if g == nil || !g.enabled {
		return true
	}
	var peak float32
	for _, s := range samples {
		amplitude := math.Float32frombits(math.Float32bits(s) &^ (1 << 31))
		peak = max(peak, amplitude)
	}
	return peak > g.threshold
}
