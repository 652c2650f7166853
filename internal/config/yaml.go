// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"specviz/internal/log"
	"specviz/internal/spectrum"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces the debug log level).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Spectrum  SpectrumConfig  `yaml:"spectrum"`  // Spectrum engine settings.
	Render    RenderConfig    `yaml:"render"`    // Bar layout, colors and output size.
	Audio     AudioConfig     `yaml:"audio"`     // Playback settings.
	Encode    EncodeConfig    `yaml:"encode"`    // Video encoding settings.
	Transport TransportConfig `yaml:"transport"` // Network broadcast settings.
}

// SpectrumConfig holds the spectrum engine options in their string form.
type SpectrumConfig struct {
	FFTSize       int     `yaml:"fft_size"`       // Samples per transform; higher is more accurate, lower more responsive.
	Scale         string  `yaml:"scale"`          // "linear", "log" or "nth-root".
	NthRoot       float64 `yaml:"nth_root"`       // Root used by the nth-root scale.
	Accumulation  string  `yaml:"accumulation"`   // "sum" or "max".
	Window        string  `yaml:"window"`         // "none", "hanning", "hamming" or "blackman".
	Interpolation string  `yaml:"interpolation"`  // "none", "linear", "cspline" or "cspline_hermite".
	Multiplier    float64 `yaml:"multiplier"`     // Bar height multiplier.
	GateThreshold float64 `yaml:"gate_threshold"` // Peak below which a block renders as silence (0 disables).
}

// RenderConfig holds settings for the drawn spectrum.
type RenderConfig struct {
	Width      int       `yaml:"width"`       // Video frame width in pixels.
	Height     int       `yaml:"height"`      // Video frame height in pixels.
	FPS        int       `yaml:"fps"`         // Spectrum frames per second.
	BarWidth   int       `yaml:"bar_width"`   // Bar width in pixels.
	BarSpacing int       `yaml:"bar_spacing"` // Gap between bars in pixels.
	Margin     int       `yaml:"margin"`      // Gap between the frame edge and the bars.
	BarType    string    `yaml:"bar_type"`    // "pill" or "rectangle".
	Color      string    `yaml:"color"`       // "wheel", "solid" or "none".
	WheelRate  float64   `yaml:"wheel_rate"`  // Hue advance per frame for the color wheel.
	HSV        []float64 `yaml:"hsv"`         // Color wheel hue offset, saturation and value, each in [0, 1].
	RGB        []int     `yaml:"rgb"`         // Solid color, each in [0, 255].
	ForceMono  bool      `yaml:"force_mono"`  // Render one spectrum even for stereo audio.
	TUI        bool      `yaml:"tui"`         // Show the terminal view during playback.
}

// AudioConfig holds settings related to audio output.
type AudioConfig struct {
	Backend         string `yaml:"backend"`           // "portaudio" or "oto".
	Device          int    `yaml:"device"`            // PortAudio device index for output (-1 for default).
	FramesPerBuffer int    `yaml:"frames_per_buffer"` // Frames per PortAudio write.
	LowLatency      bool   `yaml:"low_latency"`       // Request low latency settings from the PortAudio device.
	Record          string `yaml:"record"`            // Also write the played audio to this WAV file.
}

// EncodeConfig holds settings for rendering to a video file with ffmpeg.
type EncodeConfig struct {
	Output     string   `yaml:"output"`      // Output video path; empty plays in real time instead.
	FFmpeg     string   `yaml:"ffmpeg"`      // ffmpeg executable.
	VideoCodec string   `yaml:"video_codec"` // e.g. "libx264".
	PixFmt     string   `yaml:"pix_fmt"`     // Output pixel format, e.g. "yuv420p".
	CRF        int      `yaml:"crf"`         // Constant rate factor (0 omits the flag).
	AudioCodec string   `yaml:"audio_codec"` // e.g. "aac".
	ExtraArgs  []string `yaml:"extra_args"`  // Appended before the output path.
}

// TransportConfig holds settings related to sending spectrum frames over the network.
type TransportConfig struct {
	WebSocketAddr    string        `yaml:"ws_addr"`            // Listen address for the WebSocket broadcaster (empty disables).
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending spectrum frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
}

// configCandidates lists the files LoadConfig tries when no path is given.
func configCandidates() []string {
	candidates := []string{"specviz.yaml", "config.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "specviz", "config.yaml"))
	}
	return candidates
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches the default locations. If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range configCandidates() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Config: loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Settings converts the spectrum section into engine settings.
func (s SpectrumConfig) Settings() (spectrum.Settings, error) {
	scale, err := spectrum.ParseScale(s.Scale)
	if err != nil {
		return spectrum.Settings{}, err
	}
	accum, err := spectrum.ParseAccumulation(s.Accumulation)
	if err != nil {
		return spectrum.Settings{}, err
	}
	window, err := spectrum.ParseWindow(s.Window)
	if err != nil {
		return spectrum.Settings{}, err
	}
	interp, err := spectrum.ParseInterpolation(s.Interpolation)
	if err != nil {
		return spectrum.Settings{}, err
	}
	settings := spectrum.Settings{
		FFTSize:       s.FFTSize,
		Scale:         scale,
		NthRoot:       s.NthRoot,
		Accumulation:  accum,
		Window:        window,
		Interpolation: interp,
	}
	if err := settings.Validate(); err != nil {
		return spectrum.Settings{}, err
	}
	return settings, nil
}

// Validate checks every section and joins all problems into one error.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level '%s' is not a known level", c.LogLevel))
	}

	// Spectrum Validation
	if _, err := c.Spectrum.Settings(); err != nil {
		errs = append(errs, fmt.Errorf("spectrum: %w", err))
	}
	check(c.Spectrum.FFTSize <= MaxFFTSize, "spectrum.fft_size must be at most %d", MaxFFTSize)
	check(c.Spectrum.Multiplier > 0, "spectrum.multiplier must be positive")
	check(c.Spectrum.GateThreshold >= 0 && c.Spectrum.GateThreshold <= 1,
		"spectrum.gate_threshold must be between 0 and 1")

	// Render Validation
	r := c.Render
	check(r.Width > 0 && r.Width <= MaxDimension, "render.width must be between 1 and %d", MaxDimension)
	check(r.Height > 0 && r.Height <= MaxDimension, "render.height must be between 1 and %d", MaxDimension)
	check(r.FPS >= MinFPS && r.FPS <= MaxFPS, "render.fps must be between %d and %d", MinFPS, MaxFPS)
	check(r.BarWidth > 0, "render.bar_width must be positive")
	check(r.BarSpacing >= 0, "render.bar_spacing cannot be negative")
	check(r.Margin >= 0, "render.margin cannot be negative")
	check(r.BarType == "pill" || r.BarType == "rectangle", "render.bar_type '%s' must be 'pill' or 'rectangle'", r.BarType)
	check(r.Color == "wheel" || r.Color == "solid" || r.Color == "none", "render.color '%s' must be 'wheel', 'solid' or 'none'", r.Color)
	check(r.WheelRate >= 0 && r.WheelRate <= 1, "render.wheel_rate must be between 0 and 1")
	if check(len(r.HSV) == 3, "render.hsv needs 3 values, got %d", len(r.HSV)); len(r.HSV) == 3 {
		for _, v := range r.HSV {
			check(v >= 0 && v <= 1, "render.hsv values must be between 0 and 1, got %v", v)
		}
	}
	if check(len(r.RGB) == 3, "render.rgb needs 3 values, got %d", len(r.RGB)); len(r.RGB) == 3 {
		for _, v := range r.RGB {
			check(v >= 0 && v <= 255, "render.rgb values must be between 0 and 255, got %d", v)
		}
	}

	// Audio Validation
	a := c.Audio
	check(a.Backend == "portaudio" || a.Backend == "oto", "audio.backend '%s' must be 'portaudio' or 'oto'", a.Backend)
	check(a.Device >= DefaultDeviceID, "audio.device must be %d (default) or a device index", DefaultDeviceID)
	check(a.FramesPerBuffer > 0 && a.FramesPerBuffer <= MaxBufferFrames,
		"audio.frames_per_buffer must be between 1 and %d", MaxBufferFrames)

	// Encode Validation
	if c.Encode.Output != "" {
		check(c.Encode.FFmpeg != "", "encode.ffmpeg must be set when encoding")
		check(c.Encode.CRF >= 0 && c.Encode.CRF <= 51, "encode.crf must be between 0 and 51")
		check(r.Width%2 == 0 && r.Height%2 == 0, "render.width and render.height must be even when encoding")
	}

	// Transport Validation
	t := c.Transport
	if t.WebSocketAddr != "" {
		_, _, err := net.SplitHostPort(t.WebSocketAddr)
		check(err == nil, "transport.ws_addr '%s' appears invalid (missing port?)", t.WebSocketAddr)
	}
	if t.UDPEnabled {
		_, _, err := net.SplitHostPort(t.UDPTargetAddress)
		check(err == nil, "transport.udp_target_address '%s' appears invalid (missing port?)", t.UDPTargetAddress)
		check(t.UDPSendInterval > 0, "transport.udp_send_interval must be positive when UDP is enabled")
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies SPECVIZ_* environment variables on top of the
// loaded configuration. A malformed value is an error rather than silently
// ignored.
func (c *Config) applyEnvOverrides() error {
	var errs []error

	str := func(key string, dst *string) {
		if val, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = val
			log.Debugf("Config: Overriding %s from env: %s", strings.ToLower(key), val)
		}
	}
	boolean := func(key string, dst *bool) {
		if val, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
			log.Debugf("Config: Overriding %s from env: %v", strings.ToLower(key), b)
		}
	}
	integer := func(key string, dst *int) {
		if val, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
			log.Debugf("Config: Overriding %s from env: %d", strings.ToLower(key), n)
		}
	}
	duration := func(key string, dst *time.Duration) {
		if val, ok := os.LookupEnv(EnvPrefix + key); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
			log.Debugf("Config: Overriding %s from env: %s", strings.ToLower(key), d)
		}
	}

	// SPECVIZ_{...}
	// These are general overrides.
	boolean("DEBUG", &c.Debug)
	str("LOG_LEVEL", &c.LogLevel)
	integer("FFT_SIZE", &c.Spectrum.FFTSize)

	// Audio output.
	str("BACKEND", &c.Audio.Backend)
	integer("DEVICE", &c.Audio.Device)

	// These are specific to the transport layer.
	str("WS_ADDR", &c.Transport.WebSocketAddr)
	boolean("UDP_ENABLED", &c.Transport.UDPEnabled)
	str("UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	duration("UDP_SEND_INTERVAL", &c.Transport.UDPSendInterval)

	return errors.Join(errs...)
}
