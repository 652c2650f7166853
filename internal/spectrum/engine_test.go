// SPDX-License-Identifier: MIT
package spectrum

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"specviz/internal/fft"
)

const tolerance = 1e-9

func newTestEngine(t testing.TB, s Settings) *Engine {
	t.Helper()
	e, err := New(s)
	if err != nil {
		t.Fatalf("New(%+v) failed: %v", s, err)
	}
	return e
}

func plainSettings(n int) Settings {
	return Settings{
		FFTSize:       n,
		Scale:         ScaleLinear,
		NthRoot:       2,
		Accumulation:  AccumulateSum,
		Window:        WindowNone,
		Interpolation: InterpolateNone,
	}
}

func fillNoise(dst []float64, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range dst {
		dst[i] = rng.Float64()*2 - 1
	}
}

func TestDefaultSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings rejected: %v", err)
	}
	if s.FFTSize != 3000 || s.Scale != ScaleLog || s.NthRoot != 2 ||
		s.Accumulation != AccumulateMax || s.Window != WindowBlackman ||
		s.Interpolation != InterpolateCubicSpline {
		t.Errorf("unexpected defaults: %+v", s)
	}
}

func TestSilenceRendersSilence(t *testing.T) {
	for _, scale := range []Scale{ScaleLinear, ScaleLog, ScaleNthRoot} {
		for _, interp := range []Interpolation{InterpolateNone, InterpolateLinear, InterpolateCubicSpline, InterpolateCubicHermite} {
			s := DefaultSettings()
			s.FFTSize = 256
			s.Scale = scale
			s.Interpolation = interp
			e := newTestEngine(t, s)

			out := make([]float64, 64)
			e.Render(out)
			for k, v := range out {
				if v != 0 {
					t.Fatalf("%v/%v: out[%d] = %v, want 0", scale, interp, k, v)
				}
			}
		}
	}
}

func TestImpulseLinearSum(t *testing.T) {
	e := newTestEngine(t, plainSettings(8))
	e.Input()[0] = 1

	out := make([]float64, 4)
	e.Render(out)

	// Source bins 0..4 all have magnitude 1 and map to outputs 0,0,1,2,3.
	want := []float64{0.25, 0.125, 0.125, 0.125}
	for k := range want {
		if math.Abs(out[k]-want[k]) > tolerance {
			t.Errorf("out[%d] = %v, want %v", k, out[k], want[k])
		}
	}
}

func TestDCLandsInFirstBinUnderLog(t *testing.T) {
	s := plainSettings(64)
	s.Scale = ScaleLog
	s.Accumulation = AccumulateMax
	e := newTestEngine(t, s)
	for i := range e.Input() {
		e.Input()[i] = 1
	}

	out := make([]float64, 16)
	e.Render(out)

	if math.Abs(out[0]-1) > tolerance {
		t.Errorf("out[0] = %v, want 1", out[0])
	}
	for k := 1; k < len(out); k++ {
		if out[k] > tolerance {
			t.Errorf("out[%d] = %v, want 0", k, out[k])
		}
	}
}

func TestSumConservesMagnitude(t *testing.T) {
	const n = 128
	for _, scale := range []Scale{ScaleLinear, ScaleLog, ScaleNthRoot} {
		s := plainSettings(n)
		s.Scale = scale
		e := newTestEngine(t, s)
		fillNoise(e.Input(), 7)

		ref, err := fft.New(n)
		if err != nil {
			t.Fatal(err)
		}
		copy(ref.Input(), e.Input())
		var total float64
		for _, c := range ref.Execute() {
			total += cmplx.Abs(c)
		}

		for _, m := range []int{1, 10, 65, 300} {
			fillNoise(e.Input(), 7)
			out := make([]float64, m)
			e.Render(out)

			var sum float64
			for _, v := range out {
				sum += v
			}
			if math.Abs(sum*n-total) > 1e-6*total {
				t.Errorf("%v, M=%d: sum*N = %v, want %v", scale, m, sum*n, total)
			}
		}
	}
}

func TestMaxIsBoundedByPeak(t *testing.T) {
	const n = 256
	s := plainSettings(n)
	s.Scale = ScaleLog
	s.Accumulation = AccumulateMax
	e := newTestEngine(t, s)

	ref, _ := fft.New(n)
	fillNoise(ref.Input(), 11)
	var peak float64
	for _, c := range ref.Execute() {
		peak = math.Max(peak, cmplx.Abs(c))
	}

	fillNoise(e.Input(), 11)
	out := make([]float64, 40)
	e.Render(out)
	for k, v := range out {
		if v < 0 || v > peak/n+tolerance {
			t.Errorf("out[%d] = %v outside [0, %v]", k, v, peak/n)
		}
	}
}

func TestRatioMonotonicAndInRange(t *testing.T) {
	const bins = 1501
	for _, root := range []float64{0.5, 1, 2, 3, 4.5} {
		norm := newNormalizers(bins, 1/root)
		for _, scale := range []Scale{ScaleLinear, ScaleLog, ScaleNthRoot} {
			prev := -1.0
			for i := range bins {
				r := scale.ratio(float64(i), root, 1/root, &norm)
				if r < 0 || r >= 1 {
					t.Fatalf("%v root %v: ratio(%d) = %v outside [0,1)", scale, root, i, r)
				}
				if r < prev {
					t.Fatalf("%v root %v: ratio(%d) = %v < ratio(%d) = %v", scale, root, i, r, i-1, prev)
				}
				prev = r
			}
		}
	}
}

func TestNthRootSpecialCasesMatchGeneralForm(t *testing.T) {
	const bins = 513
	for _, root := range []float64{1, 2, 3} {
		norm := newNormalizers(bins, 1/root)
		for _, i := range []float64{0, 1, 17, 256, 512} {
			got := ScaleNthRoot.ratio(i, root, 1/root, &norm)
			want := math.Pow(i, 1/root) / math.Pow(bins, 1/root)
			if math.Abs(got-want) > 1e-12 {
				t.Errorf("root %v, i=%v: got %v, want %v", root, i, got, want)
			}
		}
	}
}

func TestBinIndexClamps(t *testing.T) {
	tests := []struct {
		ratio float64
		m     int
		want  int
	}{
		{0, 10, 0},
		{-0.5, 10, 0},
		{0.05, 10, 0},
		{0.55, 10, 5},
		{0.999, 10, 9},
		{1.0, 10, 9},
		{3.0, 10, 9},
		{0.7, 1, 0},
	}
	for _, tt := range tests {
		if got := binIndex(tt.ratio, tt.m); got != tt.want {
			t.Errorf("binIndex(%v, %d) = %d, want %d", tt.ratio, tt.m, got, tt.want)
		}
	}
}

func TestSetFFTSize(t *testing.T) {
	e := newTestEngine(t, DefaultSettings())

	for _, n := range []int{0, -2, 7} {
		err := e.SetFFTSize(n)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("SetFFTSize(%d) error = %v, want ErrInvalidConfiguration", n, err)
		}
		if e.FFTSize() != DefaultFFTSize || len(e.Input()) != DefaultFFTSize {
			t.Errorf("SetFFTSize(%d) changed size to %d", n, e.FFTSize())
		}
	}

	if err := e.SetFFTSize(1024); err != nil {
		t.Fatalf("SetFFTSize(1024) failed: %v", err)
	}
	if len(e.Input()) != 1024 || e.Bins() != 513 {
		t.Errorf("after resize: input %d, bins %d", len(e.Input()), e.Bins())
	}
}

func TestFFTSizeRoundTripRestoresNormalizers(t *testing.T) {
	s := DefaultSettings()
	s.Scale = ScaleNthRoot
	s.NthRoot = 4.5
	e := newTestEngine(t, s)
	e.refresh()
	before := e.norm

	if err := e.SetFFTSize(512); err != nil {
		t.Fatal(err)
	}
	e.refresh()
	if e.norm == before {
		t.Fatal("normalizers did not change with fft size")
	}

	if err := e.SetFFTSize(DefaultFFTSize); err != nil {
		t.Fatal(err)
	}
	e.refresh()
	if e.norm != before {
		t.Errorf("normalizers %+v, want %+v", e.norm, before)
	}
}

func TestSetNthRootRejectsInvalid(t *testing.T) {
	e := newTestEngine(t, DefaultSettings())
	e.refresh()
	before := e.norm

	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := e.SetNthRoot(r); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("SetNthRoot(%v) error = %v, want ErrInvalidConfiguration", r, err)
		}
	}
	if e.Settings().NthRoot != DefaultNthRoot || e.normDirty {
		t.Errorf("rejected root changed state: %+v dirty=%v", e.Settings(), e.normDirty)
	}
	e.refresh()
	if e.norm != before {
		t.Error("rejected root changed normalizers")
	}

	if err := e.SetNthRoot(3); err != nil {
		t.Fatalf("SetNthRoot(3) failed: %v", err)
	}
	if !e.normDirty || e.Settings().NthRoot != 3 {
		t.Error("SetNthRoot(3) did not take effect")
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	e := newTestEngine(t, DefaultSettings())

	bad := DefaultSettings()
	bad.FFTSize = 1024
	bad.Scale = ScaleLinear
	bad.NthRoot = 0
	if err := e.Apply(bad); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Apply(bad) error = %v", err)
	}
	if e.Settings() != DefaultSettings() {
		t.Errorf("Apply(bad) mutated settings: %+v", e.Settings())
	}

	good := plainSettings(64)
	if err := e.Apply(good); err != nil {
		t.Fatalf("Apply(good) failed: %v", err)
	}
	if e.Settings() != good || len(e.Input()) != 64 {
		t.Errorf("Apply(good) = %+v", e.Settings())
	}
}

func TestWindowIsAppliedInPlace(t *testing.T) {
	const n = 8
	tests := []struct {
		window Window
		coeff  func(i float64) float64
	}{
		{WindowNone, func(float64) float64 { return 1 }},
		{WindowHanning, func(i float64) float64 {
			return 0.5 * (1 - math.Cos(2*math.Pi*i/(n-1)))
		}},
		{WindowHamming, func(i float64) float64 {
			return 0.54 - 0.46*math.Cos(2*math.Pi*i/(n-1))
		}},
		{WindowBlackman, func(i float64) float64 {
			return 0.42 - 0.5*math.Cos(2*math.Pi*i/(n-1)) + 0.08*math.Cos(4*math.Pi*i/(n-1))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.window.String(), func(t *testing.T) {
			s := plainSettings(n)
			s.Window = tt.window
			e := newTestEngine(t, s)
			for i := range e.Input() {
				e.Input()[i] = 1
			}
			e.Render(make([]float64, 4))
			for i, v := range e.Input() {
				if want := tt.coeff(float64(i)); math.Abs(v-want) > 1e-12 {
					t.Errorf("input[%d] = %v, want %v", i, v, want)
				}
			}
		})
	}
}

func TestWindowChangeRebuildsCoefficients(t *testing.T) {
	s := plainSettings(16)
	s.Window = WindowHanning
	e := newTestEngine(t, s)
	e.Render(make([]float64, 4))

	e.SetWindow(WindowNone)
	for i := range e.Input() {
		e.Input()[i] = 1
	}
	e.Render(make([]float64, 4))
	for i, v := range e.Input() {
		if v != 1 {
			t.Fatalf("input[%d] = %v after switching to no window", i, v)
		}
	}
}

func TestInterpolationFillsOnlyZeros(t *testing.T) {
	const n, m = 64, 200
	for _, kind := range []Interpolation{InterpolateLinear, InterpolateCubicSpline, InterpolateCubicHermite} {
		t.Run(kind.String(), func(t *testing.T) {
			s := plainSettings(n)
			s.Scale = ScaleLog
			s.Accumulation = AccumulateMax
			e := newTestEngine(t, s)

			fillNoise(e.Input(), 3)
			raw := make([]float64, m)
			e.Render(raw)

			e.SetInterpolation(kind)
			fillNoise(e.Input(), 3)
			out := make([]float64, m)
			e.Render(out)

			filled := 0
			for k := range out {
				if out[k] < 0 {
					t.Fatalf("out[%d] = %v is negative", k, out[k])
				}
				if raw[k] != 0 && out[k] != raw[k] {
					t.Errorf("nonzero out[%d] changed from %v to %v", k, raw[k], out[k])
				}
				if raw[k] == 0 && out[k] > 0 {
					filled++
				}
			}
			if filled == 0 {
				t.Error("no gap was filled")
			}
		})
	}
}

func TestLinearInterpolationBridgesGap(t *testing.T) {
	e := &Engine{settings: Settings{Interpolation: InterpolateLinear}}
	out := []float64{1, 0, 0, 4, 0, 2}
	e.interpolate(out)

	want := []float64{1, 2, 3, 4, 3, 2}
	for k := range want {
		if math.Abs(out[k]-want[k]) > tolerance {
			t.Errorf("out[%d] = %v, want %v", k, out[k], want[k])
		}
	}
}

func TestInterpolationNeedsThreePoints(t *testing.T) {
	e := &Engine{settings: Settings{Interpolation: InterpolateCubicSpline}}
	out := []float64{0, 5, 0, 0, 7, 0}
	e.interpolate(out)

	want := []float64{0, 5, 0, 0, 7, 0}
	for k := range want {
		if out[k] != want[k] {
			t.Errorf("out[%d] = %v, want %v", k, out[k], want[k])
		}
	}
}

func TestLinearScaleSkipsInterpolation(t *testing.T) {
	s := plainSettings(16)
	s.Interpolation = InterpolateLinear
	e := newTestEngine(t, s)
	fillNoise(e.Input(), 5)

	// 9 source bins spread over 40 outputs leave gaps.
	out := make([]float64, 40)
	e.Render(out)
	zeros := 0
	for _, v := range out {
		if v == 0 {
			zeros++
		}
	}
	if zeros != 40-9 {
		t.Errorf("got %d empty bins, want %d", zeros, 40-9)
	}
}

func TestRenderEmptyOutputIsNoop(t *testing.T) {
	e := newTestEngine(t, DefaultSettings())
	fillNoise(e.Input(), 1)
	before := append([]float64(nil), e.Input()...)

	e.Render(nil)
	e.Render([]float64{})

	for i := range before {
		if e.Input()[i] != before[i] {
			t.Fatalf("input[%d] modified by empty render", i)
		}
	}
}

func TestRenderOutputSizeMayChange(t *testing.T) {
	e := newTestEngine(t, DefaultSettings())
	for _, m := range []int{1, 50, 7, 400} {
		fillNoise(e.Input(), uint64(m))
		out := make([]float64, m)
		e.Render(out)
		for k, v := range out {
			if v < 0 || math.IsNaN(v) {
				t.Fatalf("M=%d: out[%d] = %v", m, k, v)
			}
		}
	}
}

func TestUnknownEnumPanics(t *testing.T) {
	tests := []struct {
		name string
		mod  func(e *Engine)
	}{
		{"scale", func(e *Engine) { e.SetScale(Scale(42)) }},
		{"accumulation", func(e *Engine) { e.SetAccumulation(Accumulation(42)) }},
		{"window", func(e *Engine) { e.SetWindow(Window(42)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, plainSettings(16))
			tt.mod(e)
			defer func() {
				var le *LogicError
				err, _ := recover().(error)
				if !errors.As(err, &le) || le.Op != tt.name {
					t.Errorf("recovered %v, want *LogicError for %s", err, tt.name)
				}
			}()
			e.Render(make([]float64, 4))
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []Scale{ScaleLinear, ScaleLog, ScaleNthRoot} {
		if got, err := ParseScale(s.String()); err != nil || got != s {
			t.Errorf("ParseScale(%q) = %v, %v", s.String(), got, err)
		}
	}
	for _, a := range []Accumulation{AccumulateSum, AccumulateMax} {
		if got, err := ParseAccumulation(a.String()); err != nil || got != a {
			t.Errorf("ParseAccumulation(%q) = %v, %v", a.String(), got, err)
		}
	}
	for _, w := range []Window{WindowNone, WindowHanning, WindowHamming, WindowBlackman} {
		if got, err := ParseWindow(w.String()); err != nil || got != w {
			t.Errorf("ParseWindow(%q) = %v, %v", w.String(), got, err)
		}
	}
	for _, k := range []Interpolation{InterpolateNone, InterpolateLinear, InterpolateCubicSpline, InterpolateCubicHermite} {
		if got, err := ParseInterpolation(k.String()); err != nil || got != k {
			t.Errorf("ParseInterpolation(%q) = %v, %v", k.String(), got, err)
		}
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	if _, err := ParseScale("cubic"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("ParseScale: %v", err)
	}
	if _, err := ParseAccumulation("avg"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("ParseAccumulation: %v", err)
	}
	if _, err := ParseWindow("kaiser"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("ParseWindow: %v", err)
	}
	if _, err := ParseInterpolation("akima"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("ParseInterpolation: %v", err)
	}
}

func TestRenderHotPath(t *testing.T) {
	s := DefaultSettings()
	s.Interpolation = InterpolateNone
	e := newTestEngine(t, s)
	out := make([]float64, 128)
	fillNoise(e.Input(), 9)
	e.Render(out)

	allocs := testing.AllocsPerRun(100, func() {
		e.Render(out)
	})
	if allocs > 0 {
		t.Errorf("Render allocated %v times per run", allocs)
	}
}

func BenchmarkRender(b *testing.B) {
	for _, interp := range []Interpolation{InterpolateNone, InterpolateCubicSpline} {
		b.Run(interp.String(), func(b *testing.B) {
			s := DefaultSettings()
			s.Interpolation = interp
			e := newTestEngine(b, s)
			out := make([]float64, 256)
			for b.Loop() {
				fillNoise(e.Input(), 1)
				e.Render(out)
			}
		})
	}
}
