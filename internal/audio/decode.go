// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedFormat is returned by Decode for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decode reads a whole audio file into memory. The format is picked by file
// extension: .wav, .mp3, .flac or .ogg.
func Decode(path string) (*Clip, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var decode func(io.ReadSeeker) (*Clip, error)
	switch ext {
	case ".wav", ".wave":
		decode = decodeWAV
	case ".mp3":
		decode = decodeMP3
	case ".flac":
		decode = decodeFLAC
	case ".ogg", ".oga":
		decode = decodeOGG
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if clip.Channels <= 0 || clip.SampleRate <= 0 {
		return nil, fmt.Errorf("decode %s: invalid format (%d channels, %d Hz)",
			filepath.Base(path), clip.Channels, clip.SampleRate)
	}
	return clip, nil
}

// --- WAV ---

const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported WAV encoding %d", dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	bits := int(dec.BitDepth)
	if bits <= 0 || bits > 32 {
		return nil, fmt.Errorf("unsupported WAV bit depth %d", bits)
	}
	samples := make([]float32, len(buf.Data))
	if bits == 8 {
		// 8-bit WAV is unsigned
		for i, v := range buf.Data {
			samples[i] = float32(v-128) / 128
		}
	} else {
		scale := 1 / float32(int64(1)<<(bits-1))
		for i, v := range buf.Data {
			samples[i] = float32(v) * scale
		}
	}

	return &Clip{
		Samples:    samples,
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
	}, nil
}

// --- MP3 ---

// go-mp3 always produces 16-bit little-endian stereo.
const mp3Channels = 2

func decodeMP3(r io.ReadSeeker) (*Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("reading MP3 frames: %w", err)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return &Clip{
		Samples:    samples,
		Channels:   mp3Channels,
		SampleRate: dec.SampleRate(),
	}, nil
}

// --- FLAC ---

func decodeFLAC(r io.ReadSeeker) (*Clip, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, err
	}

	info := stream.Info
	channels := int(info.NChannels)
	if info.BitsPerSample == 0 || channels == 0 {
		return nil, errors.New("invalid FLAC stream info")
	}
	scale := 1 / float32(int64(1)<<(info.BitsPerSample-1))

	samples := make([]float32, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading FLAC frame: %w", err)
		}
		n := int(frame.Subframes[0].NSamples)
		for i := range n {
			for ch := range channels {
				samples = append(samples, float32(frame.Subframes[ch].Samples[i])*scale)
			}
		}
	}

	return &Clip{
		Samples:    samples,
		Channels:   channels,
		SampleRate: int(info.SampleRate),
	}, nil
}

// --- OGG Vorbis ---

func decodeOGG(r io.ReadSeeker) (*Clip, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	for i, s := range samples {
		samples[i] = max(-1, min(1, s))
	}
	return &Clip{
		Samples:    samples,
		Channels:   format.Channels,
		SampleRate: format.SampleRate,
	}, nil
}
