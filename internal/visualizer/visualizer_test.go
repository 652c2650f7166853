// SPDX-License-Identifier: MIT
package visualizer

import (
	"context"
	"errors"
	"image"
	"testing"

	"specviz/internal/audio"
	"specviz/internal/config"
	"specviz/internal/spectrum"
	"specviz/internal/testutil"
)

const sampleRate = 48000

// sineClip returns a clip whose channel c carries a sine at freqs[c].
func sineClip(frames int, freqs ...float64) *audio.Clip {
	channels := make([][]float32, len(freqs))
	for c, f := range freqs {
		channels[c] = testutil.Sine(frames, sampleRate, f, 0.5)
	}
	return &audio.Clip{Samples: testutil.Interleave(channels...), Channels: len(freqs), SampleRate: sampleRate}
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Spectrum.FFTSize = 1024
	cfg.Spectrum.Scale = "linear"
	cfg.Spectrum.Interpolation = "none"
	cfg.Render.Width = 200
	cfg.Render.Height = 100
	cfg.Render.FPS = 60
	cfg.Render.BarWidth = 4
	cfg.Render.BarSpacing = 1
	cfg.Render.Margin = 0
	return cfg
}

func TestNewChannelLayout(t *testing.T) {
	cfg := testConfig()

	v, err := New(cfg, sineClip(4800, 1000, 2000), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Channels() != 2 || len(v.bins[0]) != 20 || len(v.bins[1]) != 20 {
		t.Errorf("stereo: %d channels, bars %d/%d", v.Channels(), len(v.bins[0]), len(v.bins[1]))
	}
	if !v.views[0].backwards || v.views[1].backwards {
		t.Error("left channel should be drawn backwards, right forwards")
	}
	if v.Hop() != sampleRate/60 {
		t.Errorf("hop = %d, want %d", v.Hop(), sampleRate/60)
	}

	cfg.Render.ForceMono = true
	v, err = New(cfg, sineClip(4800, 1000, 2000), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Channels() != 1 || len(v.bins[0]) != 40 {
		t.Errorf("forced mono: %d channels, %d bars", v.Channels(), len(v.bins[0]))
	}

	cfg.Render.ForceMono = false
	v, err = New(cfg, sineClip(4800, 1000, 1000, 1000), Options{})
	if err != nil || v.Channels() != 1 {
		t.Errorf("three channel clip should be mixed to mono: %v", err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	clip := sineClip(100, 440)
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"scale", func(c *config.Config) { c.Spectrum.Scale = "cubic" }},
		{"color", func(c *config.Config) { c.Render.Color = "rainbow" }},
		{"bar type", func(c *config.Config) { c.Render.BarType = "circle" }},
		{"fps", func(c *config.Config) { c.Render.FPS = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			if _, err := New(cfg, clip, Options{}); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := New(testConfig(), &audio.Clip{}, Options{}); err == nil {
		t.Error("empty clip accepted")
	}
}

func TestStepSeparatesChannels(t *testing.T) {
	// 1024-point transform at 48 kHz: bin k is k*46.875 Hz. Linear scale maps
	// 513 bins onto 20 bars, about 25.65 bins per bar.
	low := 30 * 46.875   // bar 1
	high := 400 * 46.875 // bar 15
	v, err := New(testConfig(), sineClip(4096, low, high), Options{})
	if err != nil {
		t.Fatal(err)
	}

	f, ok := v.Step(0)
	if !ok || f.Silent {
		t.Fatalf("Step(0) = %v, silent %v", ok, f.Silent)
	}
	if got := testutil.PeakBin(f.Bins[0], 0, len(f.Bins[0])-1); got != 1 {
		t.Errorf("left peak at bar %d, want 1", got)
	}
	if got := testutil.PeakBin(f.Bins[1], 0, len(f.Bins[1])-1); got != 15 {
		t.Errorf("right peak at bar %d, want 15", got)
	}

	if _, ok := v.Step(4096); ok {
		t.Error("Step past the end should report false")
	}
	if _, ok := v.Step(-1); ok {
		t.Error("negative Step should report false")
	}
}

func TestStepGate(t *testing.T) {
	cfg := testConfig()
	cfg.Spectrum.GateThreshold = 0.9
	v, err := New(cfg, sineClip(2048, 1000), Options{})
	if err != nil {
		t.Fatal(err)
	}
	v.bins[0][3] = 1 // stale value from a previous frame

	f, _ := v.Step(0)
	if !f.Silent {
		t.Error("quiet block should close the gate")
	}
	for i, b := range f.Bins[0] {
		if b != 0 {
			t.Fatalf("bar %d = %v behind a closed gate", i, b)
		}
	}
}

type countingSink struct {
	frames int
	writes int
	err    error
}

func (s *countingSink) Write(frames []float32) error {
	s.writes++
	s.frames += len(frames)
	return s.err
}

func (s *countingSink) Close() error { return nil }

type countingVideo struct {
	frames int
	lit    bool
}

func (w *countingVideo) WriteFrame(img *image.RGBA) error {
	w.frames++
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0 {
			w.lit = true
			break
		}
	}
	return nil
}

type countingPublisher struct {
	calls    int
	channels map[int]bool
}

func (p *countingPublisher) Publish(channel int, _ []float64) error {
	p.calls++
	p.channels[channel] = true
	return nil
}

func TestRunDrivesOutputs(t *testing.T) {
	clip := sineClip(8000, 1000, 3000) // 10 hops of 800 frames
	sink := &countingSink{}
	video := &countingVideo{}
	pub := &countingPublisher{channels: map[int]bool{}}
	var frames []Frame

	v, err := New(testConfig(), clip, Options{
		Audio:     sink,
		Video:     video,
		Publisher: pub,
		OnFrame:   func(f Frame) { frames = append(frames, f.Clone()) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if sink.frames != len(clip.Samples) || sink.writes != 10 {
		t.Errorf("audio: %d samples in %d writes, want %d in 10", sink.frames, sink.writes, len(clip.Samples))
	}
	if video.frames != 10 || !video.lit {
		t.Errorf("video: %d frames, lit %v", video.frames, video.lit)
	}
	if pub.calls != 20 || len(pub.channels) != 2 {
		t.Errorf("publisher: %d calls over %d channels", pub.calls, len(pub.channels))
	}
	if len(frames) != 10 || frames[9].Position != 7200 {
		t.Fatalf("OnFrame saw %d frames", len(frames))
	}
	if &frames[0].Bins[0][0] == &frames[1].Bins[0][0] {
		t.Error("Clone shares bins")
	}
}

func TestRunPartialLastHop(t *testing.T) {
	clip := sineClip(1000, 440)
	sink := &countingSink{}
	v, err := New(testConfig(), clip, Options{Audio: sink})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sink.writes != 2 || sink.frames != 1000 {
		t.Errorf("wrote %d frames in %d writes, want 1000 in 2", sink.frames, sink.writes)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	v, err := New(testConfig(), sineClip(48000, 440), Options{
		OnFrame: func(Frame) {
			calls++
			if calls == 3 {
				cancel()
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if calls != 3 {
		t.Errorf("loop ran %d frames after cancel", calls)
	}
}

func TestRunAudioError(t *testing.T) {
	sink := &countingSink{err: errors.New("device gone")}
	v, err := New(testConfig(), sineClip(4800, 440), Options{Audio: sink})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Run(context.Background()); err == nil || sink.writes != 1 {
		t.Errorf("Run = %v after %d writes", err, sink.writes)
	}
}

func TestConfigureBetweenFrames(t *testing.T) {
	v, err := New(testConfig(), sineClip(1600, 440), Options{})
	if err != nil {
		t.Fatal(err)
	}
	s := v.Settings()
	s.FFTSize = 512
	s.Scale = spectrum.ScaleLog
	v.Configure(s)
	s.FFTSize = 2048 // replaces the pending update
	v.Configure(s)

	if v.Settings().FFTSize != 1024 {
		t.Error("settings applied before Run")
	}
	if err := v.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := v.Settings()
	if got.FFTSize != 2048 || got.Scale != spectrum.ScaleLog {
		t.Errorf("settings after Run = %+v", got)
	}

	bad := got
	bad.NthRoot = -1
	bad.Scale = spectrum.ScaleNthRoot
	v.Configure(bad)
	v.applyPending()
	if v.Settings().Scale != spectrum.ScaleLog {
		t.Error("invalid settings were applied")
	}
}
