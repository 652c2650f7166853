// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"strings"
)

// Sink consumes interleaved float32 frames. Write may block; playback sinks
// block until the device has room, which paces the caller at real time.
type Sink interface {
	Write(frames []float32) error
	Close() error
}

// Playback backends.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
)

// SinkOptions describes the stream a playback sink is opened for.
type SinkOptions struct {
	Backend         string
	DeviceID        int // PortAudio only; -1 selects the default output
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	LowLatency      bool
}

// NewSink opens a playback sink on the requested backend.
func NewSink(opts SinkOptions) (Sink, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendPortAudio, "":
		return NewPortAudioSink(opts)
	case BackendOto:
		return NewOtoSink(opts)
	default:
		return nil, fmt.Errorf("unknown audio backend: %q", opts.Backend)
	}
}

// teeSink writes every block to all of its sinks in order.
type teeSink []Sink

// Tee returns a Sink duplicating writes to every non-nil sink given.
func Tee(sinks ...Sink) Sink {
	var t teeSink
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	if len(t) == 1 {
		return t[0]
	}
	return t
}

func (t teeSink) Write(frames []float32) error {
	for _, s := range t {
		if err := s.Write(frames); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSink) Close() error {
	var errs []error
	for _, s := range t {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
