// SPDX-License-Identifier: MIT

// Package encode pipes rendered frames into ffmpeg to produce a video file.
package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"specviz/internal/config"
	"specviz/internal/log"
)

// ErrFFmpegNotFound is returned when the ffmpeg executable cannot be located.
var ErrFFmpegNotFound = errors.New("ffmpeg not found (required for --encode)")

// Options describes one encode job.
type Options struct {
	FFmpeg     string
	Width      int
	Height     int
	FPS        int
	AudioPath  string // muxed in as the soundtrack; empty for a silent video
	Output     string
	VideoCodec string
	PixFmt     string
	CRF        int
	AudioCodec string
	ExtraArgs  []string
}

// OptionsFromConfig fills Options from the encode and render sections.
func OptionsFromConfig(cfg *config.Config, audioPath string) Options {
	return Options{
		FFmpeg:     cfg.Encode.FFmpeg,
		Width:      cfg.Render.Width,
		Height:     cfg.Render.Height,
		FPS:        cfg.Render.FPS,
		AudioPath:  audioPath,
		Output:     cfg.Encode.Output,
		VideoCodec: cfg.Encode.VideoCodec,
		PixFmt:     cfg.Encode.PixFmt,
		CRF:        cfg.Encode.CRF,
		AudioCodec: cfg.Encode.AudioCodec,
		ExtraArgs:  cfg.Encode.ExtraArgs,
	}
}

// Args builds the ffmpeg command line, excluding the executable.
func Args(o Options) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", o.Width, o.Height),
		"-r", strconv.Itoa(o.FPS),
		"-i", "-",
	}
	if o.AudioPath != "" {
		args = append(args, "-i", o.AudioPath)
	}
	if o.VideoCodec != "" {
		args = append(args, "-c:v", o.VideoCodec)
	}
	if o.PixFmt != "" {
		args = append(args, "-pix_fmt", o.PixFmt)
	}
	if o.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(o.CRF))
	}
	if o.AudioPath != "" {
		if o.AudioCodec != "" {
			args = append(args, "-c:a", o.AudioCodec)
		}
		args = append(args, "-shortest")
	}
	args = append(args, o.ExtraArgs...)
	return append(args, "-y", o.Output)
}

// VideoSink feeds RGBA frames to a running ffmpeg process.
type VideoSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *syncBuffer
	width  int
	height int
	frames int

	closeOnce sync.Once
	closeErr  error
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// NewVideoSink starts ffmpeg. Cancelling ctx kills the process.
func NewVideoSink(ctx context.Context, o Options) (*VideoSink, error) {
	if o.Width <= 0 || o.Height <= 0 || o.FPS <= 0 {
		return nil, fmt.Errorf("invalid video geometry %dx%d@%d", o.Width, o.Height, o.FPS)
	}
	if o.Output == "" {
		return nil, errors.New("no output path")
	}
	bin, err := lookPath(o.FFmpeg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}

	args := Args(o)
	log.Debugf("Encode: %s %s", bin, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	stderr := &syncBuffer{}
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}
	log.Infof("Encode: writing %s (%dx%d @ %d fps)", o.Output, o.Width, o.Height, o.FPS)

	return &VideoSink{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		width:  o.Width,
		height: o.Height,
	}, nil
}

// WriteFrame sends one frame. Its size must match the sink's geometry.
func (s *VideoSink) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	if err := writeRGBA(s.stdin, img); err != nil {
		return fmt.Errorf("writing frame %d: %w%s", s.frames, err, s.stderrTail())
	}
	s.frames++
	return nil
}

// Frames is the number of frames written so far.
func (s *VideoSink) Frames() int {
	return s.frames
}

// Close ends the input stream and waits for ffmpeg to finish the file.
func (s *VideoSink) Close() error {
	s.closeOnce.Do(func() {
		if err := s.stdin.Close(); err != nil {
			log.Debugf("Encode: closing stdin: %v", err)
		}
		if err := s.cmd.Wait(); err != nil {
			s.closeErr = fmt.Errorf("ffmpeg: %w%s", err, s.stderrTail())
			return
		}
		log.Infof("Encode: %d frames written", s.frames)
	})
	return s.closeErr
}

func (s *VideoSink) stderrTail() string {
	msg := strings.TrimSpace(s.stderr.String())
	if msg == "" {
		return ""
	}
	if len(msg) > 512 {
		msg = msg[len(msg)-512:]
	}
	return ": " + msg
}

// syncBuffer collects ffmpeg's stderr while frames are still being written.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// writeRGBA writes the visible pixels of img row by row when its stride has
// padding, and in one call otherwise.
func writeRGBA(w io.Writer, img *image.RGBA) error {
	b := img.Bounds()
	rowLen := b.Dx() * 4
	if img.Stride == rowLen {
		start := img.PixOffset(b.Min.X, b.Min.Y)
		_, err := w.Write(img.Pix[start : start+rowLen*b.Dy()])
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := img.PixOffset(b.Min.X, y)
		if _, err := w.Write(img.Pix[start : start+rowLen]); err != nil {
			return err
		}
	}
	return nil
}
