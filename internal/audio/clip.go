// SPDX-License-Identifier: MIT
/*
Package audio loads audio files into memory and plays them back.

A decoded file is a Clip: interleaved float32 samples normalized to [-1, 1].
The visualizer slices blocks out of a Clip by frame position, copies one
channel at a time into a spectrum engine, and writes the same blocks to a
Sink (PortAudio, oto, or a WAV recorder).
*/
package audio

import "time"

// Clip is a fully decoded audio file.
type Clip struct {
	Samples    []float32 // interleaved, len == Frames()*Channels
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// Block returns n interleaved frames starting at frame pos. The result aliases
// Samples when the block lies fully inside the clip; otherwise it is a copy
// zero-padded past the end.
func (c *Clip) Block(pos, n int) []float32 {
	if pos < 0 || n <= 0 {
		return nil
	}
	start := pos * c.Channels
	end := start + n*c.Channels
	if end <= len(c.Samples) {
		return c.Samples[start:end:end]
	}
	out := make([]float32, n*c.Channels)
	if start < len(c.Samples) {
		copy(out, c.Samples[start:])
	}
	return out
}

// Mono returns a single-channel clip averaging every channel. A mono clip
// returns itself.
func (c *Clip) Mono() *Clip {
	if c.Channels <= 1 {
		return c
	}
	frames := c.Frames()
	out := make([]float32, frames)
	scale := 1 / float32(c.Channels)
	for f := range frames {
		var sum float32
		for _, s := range c.Samples[f*c.Channels : (f+1)*c.Channels] {
			sum += s
		}
		out[f] = sum * scale
	}
	return &Clip{Samples: out, Channels: 1, SampleRate: c.SampleRate}
}
