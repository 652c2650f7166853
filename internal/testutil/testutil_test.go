// SPDX-License-Identifier: MIT
package testutil

import (
	"errors"
	"math"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	for i := range 3 {
		if err := mt.Send(i); err != nil {
			t.Fatal(err)
		}
	}
	sent := mt.Sent()
	if len(sent) != 3 || sent[2].(int) != 2 {
		t.Errorf("Sent() = %v", sent)
	}
	sent[0] = "changed"
	if mt.Sent()[0] != 0 {
		t.Error("Sent() returned the internal slice")
	}

	mt.Err = errors.New("down")
	if err := mt.Send(nil); err == nil {
		t.Error("Err not returned")
	}
	mt.Close()
	if !mt.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestSineZeroCrossings(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 44100, 440.0},
		{"Middle C", 44100, 261.63},
		{"High Sample Rate", 192000, 440.0},
		{"Low Sample Rate", 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sine(testSize, tt.sampleRate, tt.frequency, 0.9)
			if len(result) != testSize {
				t.Fatalf("len = %d, want %d", len(result), testSize)
			}

			crossCount := 0
			for i := 1; i < testSize; i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossCount++
				}
			}
			// Two crossings per cycle, within 20% for phase alignment.
			expected := float64(testSize) / (tt.sampleRate / tt.frequency / 2)
			if math.Abs(float64(crossCount)-expected) > 0.2*expected {
				t.Errorf("zero crossings = %d, expected about %.1f", crossCount, expected)
			}
		})
	}
}

func TestChordStaysInRange(t *testing.T) {
	for _, s := range Chord(testSize, testSampleRate) {
		if s > 1 || s < -1 {
			t.Fatalf("sample %v outside [-1, 1]", s)
		}
	}
}

func TestInterleave(t *testing.T) {
	got := Interleave([]float32{1, 2}, []float32{3, 4})
	want := []float32{1, 3, 2, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Interleave = %v, want %v", got, want)
		}
	}
	if Interleave() != nil {
		t.Error("no channels should give nil")
	}
}

func TestPeakBin(t *testing.T) {
	mags := make([]float64, testSize)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	tests := []struct {
		name     string
		mags     []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", mags, 0, testSize - 1, testSize / 4},
		{"Partial Range Start", mags, testSize / 8, testSize - 1, testSize / 4},
		{"Negative Start", mags, -10, testSize - 1, testSize / 4},
		{"Out of Range End", mags, 0, testSize * 2, testSize / 4},
		{"Range Excludes Peak", mags, testSize / 2, testSize - 1, testSize / 2},
		{"Empty Slice", nil, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeakBin(tt.mags, tt.start, tt.end); got != tt.expected {
				t.Errorf("PeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		PeakBin(mags, 0, len(mags)-1)
	})
	if allocs > 0 {
		t.Errorf("PeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkPeakBin(b *testing.B) {
	mags := make([]float64, 8192)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-4096), 2))
	}
	b.ReportAllocs()
	for b.Loop() {
		PeakBin(mags, 0, len(mags)-1)
	}
}
