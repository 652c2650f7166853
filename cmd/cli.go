// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"

	"specviz/internal/config"
	"specviz/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Command selects what main does after parsing.
type Command int

const (
	CommandNone    Command = iota // help was shown
	CommandPlay                   // visualize an audio file
	CommandList                   // print output devices
	CommandVersion                // print build information
)

// Options is the parsed command line.
type Options struct {
	Command    Command
	Config     *config.Config
	ConfigPath string
	AudioFile  string
	Headless   bool // no terminal view even when stdout is a terminal
	Browse     bool // list: open the interactive device browser
}

// override copies one flag's value from the flag-bound config into the
// loaded one.
type override struct {
	flag  string
	apply func(dst, src *config.Config)
}

// ParseArgs parses args (without the program name). Configuration is built
// from defaults, then the config file, then SPECVIZ_* environment variables,
// and finally the flags that were explicitly set.
func ParseArgs(args []string, stdout io.Writer) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}
	fc := config.NewConfig() // flag targets
	var overrides []override
	bind := func(flag string, apply func(dst, src *config.Config)) {
		overrides = append(overrides, override{flag, apply})
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [flags] <audio_file>",
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandPlay
			options.AudioFile = args[0]
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio output devices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandList
		},
	}
	listCmd.Flags().BoolVarP(&options.Browse, "tui", "t", false, "Browse devices interactively")
	rootCmd.AddCommand(listCmd)

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandVersion
		},
	})

	// General Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&options.ConfigPath, "config", "", "Path to a YAML config file (default: specviz.yaml, config.yaml, or the user config dir)")
	pf.StringVar(&fc.LogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	bind("log-level", func(d, s *config.Config) { d.LogLevel = s.LogLevel })
	pf.BoolVar(&fc.Debug, "debug", false, "Enable debug logging")
	bind("debug", func(d, s *config.Config) { d.Debug = s.Debug })

	fl := rootCmd.Flags()
	registerSpectrumFlags(fl, fc, bind)
	registerRenderFlags(fl, fc, bind)
	registerOutputFlags(fl, fc, bind, options)

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if options.Command == CommandNone || options.Command == CommandVersion {
		return options, nil
	}

	cfg, err := config.LoadConfig(options.ConfigPath)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		if rootCmd.Flags().Changed(o.flag) || pf.Changed(o.flag) {
			o.apply(cfg, fc)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	options.Config = cfg
	return options, nil
}

type binder func(flag string, apply func(dst, src *config.Config))

func registerSpectrumFlags(fl *pflag.FlagSet, fc *config.Config, bind binder) {
	s := &fc.Spectrum
	fl.IntVarP(&s.FFTSize, "sample-size", "n", config.DefaultFFTSize,
		"Samples per transform; higher is more accurate, lower more responsive")
	bind("sample-size", func(d, s *config.Config) { d.Spectrum.FFTSize = s.Spectrum.FFTSize })
	fl.Float64VarP(&s.Multiplier, "multiplier", "m", config.DefaultMultiplier, "Bar height multiplier")
	bind("multiplier", func(d, s *config.Config) { d.Spectrum.Multiplier = s.Spectrum.Multiplier })
	fl.StringVarP(&s.Scale, "scale", "s", config.DefaultScale, "Frequency scale: linear, log, nth-root")
	bind("scale", func(d, s *config.Config) { d.Spectrum.Scale = s.Spectrum.Scale })
	fl.Float64Var(&s.NthRoot, "nth-root", config.DefaultNthRoot, "Root used by the nth-root scale")
	bind("nth-root", func(d, s *config.Config) { d.Spectrum.NthRoot = s.Spectrum.NthRoot })
	fl.StringVarP(&s.Accumulation, "accum", "a", config.DefaultAccumulation, "Bin accumulation: sum, max")
	bind("accum", func(d, s *config.Config) { d.Spectrum.Accumulation = s.Spectrum.Accumulation })
	fl.StringVarP(&s.Window, "window", "w", config.DefaultWindow, "Window function: none, hanning, hamming, blackman")
	bind("window", func(d, s *config.Config) { d.Spectrum.Window = s.Spectrum.Window })
	fl.StringVarP(&s.Interpolation, "interpolation", "i", config.DefaultInterpolation,
		"Interpolation: none, linear, cspline, cspline_hermite")
	bind("interpolation", func(d, s *config.Config) { d.Spectrum.Interpolation = s.Spectrum.Interpolation })
	fl.Float64Var(&s.GateThreshold, "gate", config.DefaultGateThreshold, "Peak amplitude below which frames render silent (0 disables)")
	bind("gate", func(d, s *config.Config) { d.Spectrum.GateThreshold = s.Spectrum.GateThreshold })
}

func registerRenderFlags(fl *pflag.FlagSet, fc *config.Config, bind binder) {
	r := &fc.Render
	fl.BoolVar(&r.ForceMono, "force-mono", false, "Force a mono spectrum even if audio is stereo")
	bind("force-mono", func(d, s *config.Config) { d.Render.ForceMono = s.Render.ForceMono })
	fl.StringVar(&r.Color, "color", config.DefaultColor, "Bar coloring: wheel, solid, none")
	bind("color", func(d, s *config.Config) { d.Render.Color = s.Render.Color })
	fl.Float64Var(&r.WheelRate, "wheel-rate", config.DefaultWheelRate, "Color wheel rotation per frame")
	bind("wheel-rate", func(d, s *config.Config) { d.Render.WheelRate = s.Render.WheelRate })
	fl.Float64SliceVar(&r.HSV, "hsv", config.DefaultHSV, "Color wheel hue offset, saturation and value")
	bind("hsv", func(d, s *config.Config) { d.Render.HSV = s.Render.HSV })
	fl.IntSliceVar(&r.RGB, "rgb", config.DefaultRGB, "Solid bar color")
	bind("rgb", func(d, s *config.Config) { d.Render.RGB = s.Render.RGB })
	fl.IntVar(&r.BarWidth, "bar-width", config.DefaultBarWidth, "Bar width in pixels")
	bind("bar-width", func(d, s *config.Config) { d.Render.BarWidth = s.Render.BarWidth })
	fl.IntVar(&r.BarSpacing, "bar-spacing", config.DefaultBarSpacing, "Gap between bars in pixels")
	bind("bar-spacing", func(d, s *config.Config) { d.Render.BarSpacing = s.Render.BarSpacing })
	fl.StringVar(&r.BarType, "bar-type", config.DefaultBarType, "Bar shape: pill, rectangle")
	bind("bar-type", func(d, s *config.Config) { d.Render.BarType = s.Render.BarType })
	fl.IntVar(&r.Margin, "margin", config.DefaultMargin, "Gap between the frame edge and the bars")
	bind("margin", func(d, s *config.Config) { d.Render.Margin = s.Render.Margin })
	fl.IntVar(&r.Width, "width", config.DefaultWidth, "Video width in pixels")
	bind("width", func(d, s *config.Config) { d.Render.Width = s.Render.Width })
	fl.IntVar(&r.Height, "height", config.DefaultHeight, "Video height in pixels")
	bind("height", func(d, s *config.Config) { d.Render.Height = s.Render.Height })
	fl.IntVar(&r.FPS, "fps", config.DefaultFPS, "Spectrum frames per second")
	bind("fps", func(d, s *config.Config) { d.Render.FPS = s.Render.FPS })
}

func registerOutputFlags(fl *pflag.FlagSet, fc *config.Config, bind binder, options *Options) {
	fl.StringVar(&fc.Encode.Output, "encode", "", "Render to this video file with ffmpeg instead of playing")
	bind("encode", func(d, s *config.Config) { d.Encode.Output = s.Encode.Output })
	fl.StringVar(&fc.Encode.FFmpeg, "ffmpeg", config.DefaultFFmpeg, "ffmpeg executable")
	bind("ffmpeg", func(d, s *config.Config) { d.Encode.FFmpeg = s.Encode.FFmpeg })

	fl.StringVar(&fc.Audio.Backend, "backend", config.DefaultBackend, "Playback backend: portaudio, oto")
	bind("backend", func(d, s *config.Config) { d.Audio.Backend = s.Audio.Backend })
	fl.IntVarP(&fc.Audio.Device, "device", "d", config.DefaultDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	bind("device", func(d, s *config.Config) { d.Audio.Device = s.Audio.Device })
	fl.IntVarP(&fc.Audio.FramesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	bind("frames-per-buffer", func(d, s *config.Config) { d.Audio.FramesPerBuffer = s.Audio.FramesPerBuffer })
	fl.BoolVarP(&fc.Audio.LowLatency, "low-latency", "l", config.DefaultLowLatency, "Request low latency output")
	bind("low-latency", func(d, s *config.Config) { d.Audio.LowLatency = s.Audio.LowLatency })
	fl.StringVarP(&fc.Audio.Record, "record", "r", "", "Also write the played audio to this WAV file")
	bind("record", func(d, s *config.Config) { d.Audio.Record = s.Audio.Record })

	fl.StringVar(&fc.Transport.WebSocketAddr, "ws-addr", "", "Broadcast frames over WebSocket on this address (e.g. :8080)")
	bind("ws-addr", func(d, s *config.Config) { d.Transport.WebSocketAddr = s.Transport.WebSocketAddr })
	fl.StringVar(&fc.Transport.UDPTargetAddress, "udp-addr", config.DefaultUDPTargetAddress, "Send frames over UDP to this address")
	bind("udp-addr", func(d, s *config.Config) {
		d.Transport.UDPTargetAddress = s.Transport.UDPTargetAddress
		d.Transport.UDPEnabled = true
	})

	fl.BoolVar(&options.Headless, "headless", false, "Disable the terminal view")
}
