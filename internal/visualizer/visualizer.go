// SPDX-License-Identifier: MIT

// Package visualizer drives the spectrum engines over a decoded clip, one
// video frame at a time, and hands every frame to its outputs.
package visualizer

import (
	"context"
	"fmt"
	"image"
	"time"

	"specviz/internal/audio"
	"specviz/internal/config"
	"specviz/internal/log"
	"specviz/internal/render"
	"specviz/internal/spectrum"
)

// FrameWriter consumes rasterized frames, e.g. an ffmpeg pipe.
type FrameWriter interface {
	WriteFrame(img *image.RGBA) error
}

// Publisher receives the bins of each displayed channel, e.g. a transport hub.
type Publisher interface {
	Publish(channel int, bins []float64) error
}

// Options selects the outputs of a run. Every field is optional.
type Options struct {
	Audio     audio.Sink  // played in step with the frames; paces the loop
	Video     FrameWriter // enables rasterizing onto a canvas
	Publisher Publisher
	OnFrame   func(Frame) // called on the loop goroutine; Clone to keep
}

// Frame is the result of one Step.
type Frame struct {
	Position int           // clip frame the analysis block starts at
	Elapsed  time.Duration // Position as time
	Silent   bool          // the gate was closed
	Bins     [][]float64   // one slice per displayed channel; reused by the next Step
}

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	bins := make([][]float64, len(f.Bins))
	for i, b := range f.Bins {
		bins[i] = append([]float64(nil), b...)
	}
	f.Bins = bins
	return f
}

// channelView is where one displayed channel is drawn.
type channelView struct {
	rect      image.Rectangle
	backwards bool
}

// Visualizer owns one spectrum engine per displayed channel. It is not safe
// for concurrent use except for Configure.
type Visualizer struct {
	clip     *audio.Clip // played
	analysis *audio.Clip // analyzed; a mono mix when forced
	engines  []*spectrum.Engine
	bins     [][]float64
	views    []channelView
	layout   render.Layout
	colors   render.Colorizer
	canvas   *render.Canvas
	gate     *audio.Gate
	hop      int
	fps      int
	opts     Options
	updates  chan spectrum.Settings
}

// New prepares a visualizer for clip. Stereo clips get two engines unless
// cfg.Render.ForceMono is set; any other channel count is mixed down to one.
func New(cfg *config.Config, clip *audio.Clip, opts Options) (*Visualizer, error) {
	if clip == nil || clip.Channels <= 0 || clip.SampleRate <= 0 {
		return nil, fmt.Errorf("visualizer: invalid clip")
	}
	settings, err := cfg.Spectrum.Settings()
	if err != nil {
		return nil, fmt.Errorf("visualizer: %w", err)
	}
	colors, err := render.NewColorizer(cfg.Render.Color, cfg.Render.HSV, cfg.Render.RGB, cfg.Render.WheelRate)
	if err != nil {
		return nil, fmt.Errorf("visualizer: %w", err)
	}
	style, err := render.ParseBarStyle(cfg.Render.BarType)
	if err != nil {
		return nil, fmt.Errorf("visualizer: %w", err)
	}
	if cfg.Render.FPS <= 0 {
		return nil, fmt.Errorf("visualizer: invalid fps %d", cfg.Render.FPS)
	}

	v := &Visualizer{
		clip:     clip,
		analysis: clip,
		layout: render.Layout{
			BarWidth:   cfg.Render.BarWidth,
			BarSpacing: cfg.Render.BarSpacing,
			Margin:     cfg.Render.Margin,
		},
		colors:  colors,
		gate:    audio.NewGate(cfg.Spectrum.GateThreshold),
		hop:     max(1, clip.SampleRate/cfg.Render.FPS),
		fps:     cfg.Render.FPS,
		opts:    opts,
		updates: make(chan spectrum.Settings, 1),
	}

	view := v.layout.Viewport(cfg.Render.Width, cfg.Render.Height)
	if clip.Channels == 2 && !cfg.Render.ForceMono {
		left, right := render.Halves(view)
		v.views = []channelView{{rect: left, backwards: true}, {rect: right}}
	} else {
		v.analysis = clip.Mono()
		v.views = []channelView{{rect: view}}
	}

	for _, cv := range v.views {
		e, err := spectrum.New(settings)
		if err != nil {
			return nil, fmt.Errorf("visualizer: %w", err)
		}
		v.engines = append(v.engines, e)
		v.bins = append(v.bins, make([]float64, v.layout.CountIn(cv.rect)))
	}

	if opts.Video != nil {
		v.canvas = render.NewCanvas(cfg.Render.Width, cfg.Render.Height, v.layout, style, cfg.Spectrum.Multiplier, colors)
	}

	log.Infof("Visualizer: %d channel(s), %d bars each, %d frames per video frame, fft size %d",
		len(v.engines), len(v.bins[0]), v.hop, settings.FFTSize)
	return v, nil
}

// Channels is the number of displayed channels.
func (v *Visualizer) Channels() int {
	return len(v.engines)
}

// Hop is the number of audio frames between consecutive video frames.
func (v *Visualizer) Hop() int {
	return v.hop
}

// Colors returns the colorizer shared by the canvas and other views.
func (v *Visualizer) Colors() render.Colorizer {
	return v.colors
}

// Settings returns the engine settings currently in effect.
func (v *Visualizer) Settings() spectrum.Settings {
	return v.engines[0].Settings()
}

// Configure queues new engine settings. They are applied by Run before the
// next frame; a newer call replaces one still pending. Safe to call from any
// goroutine.
func (v *Visualizer) Configure(s spectrum.Settings) {
	for {
		select {
		case v.updates <- s:
			return
		default:
		}
		select {
		case <-v.updates:
		default:
		}
	}
}

// applyPending applies queued settings to every engine.
func (v *Visualizer) applyPending() {
	select {
	case s := <-v.updates:
		for _, e := range v.engines {
			if err := e.Apply(s); err != nil {
				log.Warnf("Visualizer: settings rejected: %v", err)
				return
			}
		}
		log.Debugf("Visualizer: applied settings %+v", s)
	default:
	}
}

// Step renders the frame whose analysis block starts at clip frame pos. It
// reports false when pos is outside the clip.
func (v *Visualizer) Step(pos int) (Frame, bool) {
	f := Frame{Position: pos, Bins: v.bins}
	if pos < 0 || pos >= v.clip.Frames() {
		return f, false
	}
	f.Elapsed = time.Duration(pos) * time.Second / time.Duration(v.clip.SampleRate)

	block := v.analysis.Block(pos, v.engines[0].FFTSize())
	if !v.gate.Open(block) {
		f.Silent = true
		for _, b := range v.bins {
			clear(b)
		}
		return f, true
	}

	for ch, e := range v.engines {
		if err := audio.CopyChannel(e.Input(), block, v.analysis.Channels, ch); err != nil {
			// Channel counts are fixed in New.
			panic(err)
		}
		e.Render(v.bins[ch])
	}
	return f, true
}

// draw rasterizes the current bins onto the canvas.
func (v *Visualizer) draw() {
	v.canvas.Clear()
	for ch, cv := range v.views {
		v.canvas.DrawBars(cv.rect, v.bins[ch], cv.backwards)
	}
}

// Run plays the clip from the start until it ends or ctx is cancelled. It
// returns ctx.Err() on cancellation and the first output error otherwise.
func (v *Visualizer) Run(ctx context.Context) error {
	frames := v.clip.Frames()
	log.Infof("Visualizer: running %s at %d fps", v.clip.Duration().Round(time.Millisecond), v.fps)

	count := 0
	for pos := 0; pos < frames; pos += v.hop {
		if err := ctx.Err(); err != nil {
			log.Debugf("Visualizer: stopped at frame %d", count)
			return err
		}
		v.applyPending()

		f, _ := v.Step(pos)

		if v.canvas != nil {
			v.draw()
			if err := v.opts.Video.WriteFrame(v.canvas.Image()); err != nil {
				return fmt.Errorf("video frame %d: %w", count, err)
			}
		}
		v.colors.Advance()

		if v.opts.Publisher != nil {
			for ch, b := range f.Bins {
				if err := v.opts.Publisher.Publish(ch, b); err != nil {
					log.Debugf("Visualizer: publish: %v", err)
				}
			}
		}
		if v.opts.OnFrame != nil {
			v.opts.OnFrame(f)
		}

		if v.opts.Audio != nil {
			n := min(v.hop, frames-pos)
			if err := v.opts.Audio.Write(v.clip.Block(pos, n)); err != nil {
				return fmt.Errorf("audio at frame %d: %w", count, err)
			}
		}
		count++
	}

	log.Infof("Visualizer: finished after %d frames", count)
	return nil
}
