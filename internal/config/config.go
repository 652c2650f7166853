// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"specviz/internal/spectrum"
)

// Core configuration constants that define the boundaries and defaults
// for the visualizer.
const (
	// Spectrum defaults, matching the engine's own.
	DefaultFFTSize       = spectrum.DefaultFFTSize
	DefaultScale         = "log"
	DefaultNthRoot       = spectrum.DefaultNthRoot
	DefaultAccumulation  = "max"
	DefaultWindow        = "blackman"
	DefaultInterpolation = "cspline"
	DefaultMultiplier    = 4.0
	DefaultGateThreshold = 0.0 // Gate disabled

	// Render defaults
	DefaultWidth      = 1600
	DefaultHeight     = 900
	DefaultFPS        = 60
	DefaultBarWidth   = 10
	DefaultBarSpacing = 5
	DefaultMargin     = 15
	DefaultBarType    = "pill"
	DefaultColor      = "wheel"
	DefaultWheelRate  = 0.0

	// Audio defaults
	DefaultBackend         = "portaudio"
	DefaultDeviceID        = -1  // -1 represents system default device
	DefaultFramesPerBuffer = 512 // Balanced latency/performance
	DefaultLowLatency      = false

	// Encode defaults
	DefaultFFmpeg     = "ffmpeg"
	DefaultVideoCodec = "libx264"
	DefaultPixFmt     = "yuv420p"
	DefaultCRF        = 18
	DefaultAudioCodec = "aac"

	// Transport defaults
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz
	DefaultLogLevel         = "info"

	// Processing limits
	MaxFFTSize      = 1 << 20
	MinFPS          = 1
	MaxFPS          = 240
	MaxBufferFrames = 8192
	MaxDimension    = 8192

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SPECVIZ_"
)

// DefaultHSV is the color wheel's hue offset, saturation and value.
var DefaultHSV = []float64{0.9, 0.7, 1}

// DefaultRGB is the solid bar color.
var DefaultRGB = []int{255, 255, 255}

// NewConfig creates a new Config instance with default values.
// This is the base configuration before a config file, environment
// variables, and command line flags are applied on top.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Spectrum: SpectrumConfig{
			FFTSize:       DefaultFFTSize,
			Scale:         DefaultScale,
			NthRoot:       DefaultNthRoot,
			Accumulation:  DefaultAccumulation,
			Window:        DefaultWindow,
			Interpolation: DefaultInterpolation,
			Multiplier:    DefaultMultiplier,
			GateThreshold: DefaultGateThreshold,
		},
		Render: RenderConfig{
			Width:      DefaultWidth,
			Height:     DefaultHeight,
			FPS:        DefaultFPS,
			BarWidth:   DefaultBarWidth,
			BarSpacing: DefaultBarSpacing,
			Margin:     DefaultMargin,
			BarType:    DefaultBarType,
			Color:      DefaultColor,
			WheelRate:  DefaultWheelRate,
			HSV:        append([]float64(nil), DefaultHSV...),
			RGB:        append([]int(nil), DefaultRGB...),
			TUI:        true,
		},
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			Device:          DefaultDeviceID,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Encode: EncodeConfig{
			FFmpeg:     DefaultFFmpeg,
			VideoCodec: DefaultVideoCodec,
			PixFmt:     DefaultPixFmt,
			CRF:        DefaultCRF,
			AudioCodec: DefaultAudioCodec,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}
