// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/harmonica"

// springField eases a row of bar heights toward their targets.
type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(fps int, frequency, damping float64) springField {
	return springField{spring: harmonica.NewSpring(harmonica.FPS(max(1, fps)), frequency, damping)}
}

// resize keeps existing bars when the count changes.
func (s *springField) resize(n int) {
	if len(s.pos) == n {
		return
	}
	pos := make([]float64, n)
	vel := make([]float64, n)
	copy(pos, s.pos)
	copy(vel, s.vel)
	s.pos, s.vel = pos, vel
}

func (s *springField) step(i int, target float64) float64 {
	p, v := s.spring.Update(s.pos[i], s.vel[i], target)
	if p < 0 {
		p, v = 0, 0
	}
	s.pos[i] = p
	s.vel[i] = v
	return p
}
