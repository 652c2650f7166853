// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RecordBitDepth is the sample width of recorded WAV files.
const RecordBitDepth = 16

// Recorder is a Sink that writes everything played to a 16-bit PCM WAV file.
type Recorder struct {
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
}

// NewRecorder creates filename and starts recording into it.
func NewRecorder(filename string, sampleRate, channels int) (*Recorder, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid recording format: %d channels, %d Hz", channels, sampleRate)
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		outputFile: file,
		wavEncoder: wav.NewEncoder(file, sampleRate, RecordBitDepth, channels, wavFormatPCM),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: RecordBitDepth,
		},
	}
	atomic.StoreInt32(&r.isRecording, 1)
	return r, nil
}

// Recording reports whether the recorder still accepts frames.
func (r *Recorder) Recording() bool {
	return atomic.LoadInt32(&r.isRecording) == 1
}

// Write converts frames to 16-bit samples, clipping to [-1, 1], and appends
// them to the file.
func (r *Recorder) Write(frames []float32) error {
	if !r.Recording() {
		return errors.New("not recording")
	}

	if cap(r.sampleBuf.Data) < len(frames) {
		r.sampleBuf.Data = make([]int, len(frames))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(frames)]
	for i, s := range frames {
		v := math.Round(float64(max(-1, min(1, s))) * math.MaxInt16)
		r.sampleBuf.Data[i] = int(v)
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("error writing to WAV file: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file. Calling it again is a
// no-op.
func (r *Recorder) Close() error {
	if !atomic.CompareAndSwapInt32(&r.isRecording, 1, 0) {
		return nil
	}

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			r.outputFile.Close()
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	return nil
}
