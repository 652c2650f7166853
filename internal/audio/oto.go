// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoCtx      *oto.Context
	otoOnce     sync.Once
	otoInitErr  error
	otoRate     int
	otoChannels int
)

func otoContext(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatFloat32LE,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			otoRate, otoChannels = sampleRate, channels
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if sampleRate != otoRate || channels != otoChannels {
		return nil, fmt.Errorf("oto context already open at %d Hz, %d ch", otoRate, otoChannels)
	}
	return otoCtx, nil
}

// OtoSink plays frames through an oto player fed by a pipe. Write blocks
// until the player has pulled the previous block.
type OtoSink struct {
	player *oto.Player
	pw     *io.PipeWriter
	buf    []byte
}

func NewOtoSink(opts SinkOptions) (*OtoSink, error) {
	ctx, err := otoContext(opts.SampleRate, opts.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to open oto context: %w", err)
	}
	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()
	return &OtoSink{player: player, pw: pw}, nil
}

func (s *OtoSink) Write(frames []float32) error {
	if n := len(frames) * 4; cap(s.buf) < n {
		s.buf = make([]byte, n)
	} else {
		s.buf = s.buf[:n]
	}
	for i, v := range frames {
		binary.LittleEndian.PutUint32(s.buf[i*4:], math.Float32bits(v))
	}
	if _, err := s.pw.Write(s.buf); err != nil {
		return fmt.Errorf("oto write: %w", err)
	}
	return nil
}

// drainTimeout bounds how long Close waits for buffered audio to play out.
const drainTimeout = 2 * time.Second

func (s *OtoSink) Close() error {
	s.pw.Close()
	deadline := time.Now().Add(drainTimeout)
	for s.player.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	err := s.player.Err()
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return errors.Join(err, s.player.Close())
}
