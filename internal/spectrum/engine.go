// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	"specviz/internal/fft"
)

// Default engine settings.
const (
	DefaultFFTSize       = 3000
	DefaultNthRoot       = 2.0
	DefaultScale         = ScaleLog
	DefaultAccumulation  = AccumulateMax
	DefaultWindow        = WindowBlackman
	DefaultInterpolation = InterpolateCubicSpline
)

// Settings is the complete engine configuration.
type Settings struct {
	FFTSize       int
	Scale         Scale
	NthRoot       float64
	Accumulation  Accumulation
	Window        Window
	Interpolation Interpolation
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		FFTSize:       DefaultFFTSize,
		Scale:         DefaultScale,
		NthRoot:       DefaultNthRoot,
		Accumulation:  DefaultAccumulation,
		Window:        DefaultWindow,
		Interpolation: DefaultInterpolation,
	}
}

// Validate checks the numeric parameters with the same rules as the setters.
func (s Settings) Validate() error {
	if s.FFTSize <= 0 || s.FFTSize%2 != 0 {
		return fmt.Errorf("%w: fft size must be positive and even, got %d", ErrInvalidConfiguration, s.FFTSize)
	}
	return validateNthRoot(s.NthRoot)
}

func validateNthRoot(r float64) error {
	switch {
	case r == 0:
		return fmt.Errorf("%w: nth root cannot be zero", ErrInvalidConfiguration)
	case r < 0 || math.IsNaN(r) || math.IsInf(r, 0):
		return fmt.Errorf("%w: nth root must be positive and finite, got %v", ErrInvalidConfiguration, r)
	}
	return nil
}

// Engine turns a block of mono samples into a fixed-width magnitude spectrum.
//
// An Engine is not safe for concurrent use. Configuration changes take effect
// on the next Render; the derived caches are rebuilt lazily there.
type Engine struct {
	transform *fft.Transform
	settings  Settings
	rootInv   float64

	norm      normalizers
	normDirty bool

	coeffs      []float64
	coeffsDirty bool

	// interpolation scratch
	xs, ys    []float64
	curve     curve
	curveKind Interpolation
}

// New creates an engine for the given settings.
func New(s Settings) (*Engine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	t, err := fft.New(s.FFTSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		transform:   t,
		settings:    s,
		rootInv:     1 / s.NthRoot,
		normDirty:   true,
		coeffsDirty: true,
	}, nil
}

// Apply replaces the whole configuration. Nothing changes if s is invalid.
func (e *Engine) Apply(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := e.SetFFTSize(s.FFTSize); err != nil {
		return err
	}
	if err := e.SetNthRoot(s.NthRoot); err != nil {
		return err
	}
	e.SetScale(s.Scale)
	e.SetAccumulation(s.Accumulation)
	e.SetWindow(s.Window)
	e.SetInterpolation(s.Interpolation)
	return nil
}

// SetFFTSize resizes the transform. n must be positive and even.
func (e *Engine) SetFFTSize(n int) error {
	if n == e.settings.FFTSize {
		return nil
	}
	if err := e.transform.SetSize(n); err != nil {
		return err
	}
	e.settings.FFTSize = n
	e.normDirty = true
	e.coeffsDirty = true
	return nil
}

// SetNthRoot sets the root used by ScaleNthRoot.
func (e *Engine) SetNthRoot(r float64) error {
	if err := validateNthRoot(r); err != nil {
		return err
	}
	e.settings.NthRoot = r
	e.rootInv = 1 / r
	e.normDirty = true
	return nil
}

func (e *Engine) SetScale(s Scale) { e.settings.Scale = s }

func (e *Engine) SetAccumulation(a Accumulation) { e.settings.Accumulation = a }

func (e *Engine) SetWindow(w Window) {
	if w != e.settings.Window {
		e.settings.Window = w
		e.coeffsDirty = true
	}
}

func (e *Engine) SetInterpolation(k Interpolation) { e.settings.Interpolation = k }

// Input returns the FFTSize-length sample buffer the caller fills before
// each Render. Render windows it in place.
func (e *Engine) Input() []float64 { return e.transform.Input() }

func (e *Engine) Settings() Settings { return e.settings }

func (e *Engine) FFTSize() int { return e.settings.FFTSize }

// Bins returns the number of source bins, FFTSize/2+1.
func (e *Engine) Bins() int { return e.transform.Bins() }

// refresh rebuilds whichever derived caches a setter marked dirty.
func (e *Engine) refresh() {
	if e.normDirty {
		e.norm = newNormalizers(e.transform.Bins(), e.rootInv)
		e.normDirty = false
	}
	if e.coeffsDirty {
		n := e.settings.FFTSize
		if cap(e.coeffs) < n {
			e.coeffs = make([]float64, n)
		}
		e.coeffs = e.coeffs[:n]
		e.settings.Window.fill(e.coeffs)
		e.coeffsDirty = false
	}
}

// Render computes the spectrum of the current input into out. len(out) is the
// number of output bins and may change between calls. Every value written is
// non-negative.
func (e *Engine) Render(out []float64) {
	m := len(out)
	if m == 0 {
		return
	}
	e.refresh()

	in := e.transform.Input()
	if e.settings.Window != WindowNone {
		for i, w := range e.coeffs {
			in[i] *= w
		}
	}

	bins := e.transform.Execute()

	clear(out)
	scale, acc := e.settings.Scale, e.settings.Accumulation
	root := e.settings.NthRoot
	for i, c := range bins {
		idx := binIndex(scale.ratio(float64(i), root, e.rootInv, &e.norm), m)
		out[idx] = acc.combine(out[idx], cmplx.Abs(c))
	}

	inv := 1 / float64(e.settings.FFTSize)
	for i := range out {
		out[i] *= inv
	}

	if e.settings.Interpolation != InterpolateNone && scale != ScaleLinear {
		e.interpolate(out)
	}
}
