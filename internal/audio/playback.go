// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"

	"specviz/internal/log"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSink plays frames through a blocking PortAudio output stream.
type PortAudioSink struct {
	stream   *portaudio.Stream
	device   *portaudio.DeviceInfo
	buffer   []float32 // stream buffer, FramesPerBuffer*Channels samples
	pending  int       // samples queued in buffer
	channels int
	closed   bool
}

// NewPortAudioSink initializes PortAudio and opens an output stream. Close
// releases both.
func NewPortAudioSink(opts SinkOptions) (*PortAudioSink, error) {
	if opts.Channels <= 0 || opts.SampleRate <= 0 || opts.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("invalid output stream: %d channels, %d Hz, %d frames per buffer",
			opts.Channels, opts.SampleRate, opts.FramesPerBuffer)
	}
	if err := Initialize(); err != nil {
		return nil, err
	}

	s, err := openPortAudioSink(opts)
	if err != nil {
		Terminate()
		return nil, err
	}
	return s, nil
}

func openPortAudioSink(opts SinkOptions) (*PortAudioSink, error) {
	device, err := OutputDevice(opts.DeviceID)
	if err != nil {
		return nil, err
	}
	if device.MaxOutputChannels < opts.Channels {
		return nil, fmt.Errorf("device %q supports %d output channels, need %d",
			device.Name, device.MaxOutputChannels, opts.Channels)
	}

	latency := device.DefaultHighOutputLatency
	if opts.LowLatency {
		latency = device.DefaultLowOutputLatency
	}

	s := &PortAudioSink{
		device:   device,
		buffer:   make([]float32, opts.FramesPerBuffer*opts.Channels),
		channels: opts.Channels,
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: opts.Channels,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: opts.FramesPerBuffer,
		SampleRate:      float64(opts.SampleRate),
	}

	stream, err := portaudio.OpenStream(params, &s.buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start output stream: %w", err)
	}
	s.stream = stream

	log.Debugf("Playback: %s, %d ch @ %d Hz, latency %v", device.Name, opts.Channels, opts.SampleRate, latency)
	return s, nil
}

// Write queues frames and writes every full buffer to the device. It blocks
// while the device buffer is full.
func (s *PortAudioSink) Write(frames []float32) error {
	if s.closed {
		return errors.New("playback stream closed")
	}
	for len(frames) > 0 {
		n := copy(s.buffer[s.pending:], frames)
		s.pending += n
		frames = frames[n:]
		if s.pending == len(s.buffer) {
			if err := s.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *PortAudioSink) flush() error {
	s.pending = 0
	err := s.stream.Write()
	if errors.Is(err, portaudio.OutputUnderflowed) {
		log.Warnf("Playback: output underflow")
		return nil
	}
	return err
}

// Close plays out any queued samples, padded with silence, and shuts the
// stream and PortAudio down.
func (s *PortAudioSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.pending > 0 {
		clear(s.buffer[s.pending:])
		if err := s.flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.stream.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := s.stream.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := Terminate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
