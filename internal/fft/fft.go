// SPDX-License-Identifier: MIT
package fft

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrInvalidConfiguration is returned when a transform or analysis parameter
// is semantically impossible (zero or odd block size, zero root, ...).
var ErrInvalidConfiguration = errors.New("invalid configuration")

// workspace holds the buffers owned by a Transform.
type workspace struct {
	input  []float64    // ...for real time-domain samples (N)
	output []complex128 // ...for complex frequency bins (N/2 + 1)
}

// Transform is a real-input forward DFT of fixed block size N. It owns its
// input and output buffers and the gonum plan, all of which are rebuilt when
// the size changes.
//
// A Transform is not safe for concurrent use.
type Transform struct {
	size      int
	plan      *fourier.FFT
	workspace workspace
}

// New creates a Transform for blocks of n samples. n must be positive and
// even so that the half spectrum has a well defined length of n/2+1.
func New(n int) (*Transform, error) {
	if err := validateSize(n); err != nil {
		return nil, err
	}
	t := &Transform{}
	t.init(n)
	return t, nil
}

func validateSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: fft size must be positive, got %d", ErrInvalidConfiguration, n)
	}
	if n&1 != 0 {
		return fmt.Errorf("%w: fft size must be even, got %d", ErrInvalidConfiguration, n)
	}
	return nil
}

func (t *Transform) init(n int) {
	t.size = n
	t.plan = fourier.NewFFT(n)
	t.workspace = workspace{
		input:  make([]float64, n),
		output: make([]complex128, n/2+1),
	}
}

// SetSize changes the block size, discarding the old buffers and plan.
// Setting the current size again is a no-op.
func (t *Transform) SetSize(n int) error {
	if err := validateSize(n); err != nil {
		return err
	}
	if n == t.size {
		return nil
	}
	t.init(n)
	return nil
}

// Size returns the block size N.
func (t *Transform) Size() int { return t.size }

// Bins returns the number of complex output bins, N/2+1.
func (t *Transform) Bins() int { return len(t.workspace.output) }

// Input returns the N-length sample buffer. Callers must fill it completely
// before calling Execute.
func (t *Transform) Input() []float64 { return t.workspace.input }

// Output returns the bins produced by the last Execute.
func (t *Transform) Output() []complex128 { return t.workspace.output }

// Execute runs the forward transform over the input buffer, overwrites the
// output buffer and returns it. The input buffer is left untouched.
func (t *Transform) Execute() []complex128 {
	t.plan.Coefficients(t.workspace.output, t.workspace.input)
	return t.workspace.output
}

// Frequency returns the center frequency in Hz of the given bin for audio
// sampled at sampleRate. Out of range bins report 0.
func (t *Transform) Frequency(bin int, sampleRate float64) float64 {
	if bin < 0 || bin >= len(t.workspace.output) {
		return 0
	}
	return float64(bin) * sampleRate / float64(t.size)
}
