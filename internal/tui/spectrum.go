// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"specviz/internal/config"
	"specviz/internal/render"
	"specviz/internal/spectrum"
	"specviz/internal/visualizer"
	"specviz/pkg/bitint"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// barGlyphs index eighths of a cell.
var barGlyphs = []rune(" ▁▂▃▄▅▆▇█")

const (
	eighths    = 8
	chromeRows = 4 // title, blank, status, help
	minFFTSize = 64
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0"))
	silentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94")).Bold(true)
)

// FrameMsg carries one rendered frame. Its bins must not be shared with the
// visualizer loop.
type FrameMsg struct {
	Frame visualizer.Frame
}

// DoneMsg reports that playback finished.
type DoneMsg struct {
	Err error
}

// Controller receives settings changed from the keyboard.
type Controller interface {
	Configure(s spectrum.Settings)
}

var spectrumKeys = struct {
	quit, scale, accum, window, interp, root, grow, shrink, louder, quieter key.Binding
}{
	quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc")),
	scale:   key.NewBinding(key.WithKeys("s")),
	accum:   key.NewBinding(key.WithKeys("a")),
	window:  key.NewBinding(key.WithKeys("w")),
	interp:  key.NewBinding(key.WithKeys("i")),
	root:    key.NewBinding(key.WithKeys("r")),
	grow:    key.NewBinding(key.WithKeys("]")),
	shrink:  key.NewBinding(key.WithKeys("[")),
	louder:  key.NewBinding(key.WithKeys("+", "=")),
	quieter: key.NewBinding(key.WithKeys("-")),
}

// SpectrumModel is the Bubble Tea model of the terminal spectrum view.
type SpectrumModel struct {
	title      string
	total      time.Duration
	settings   spectrum.Settings
	control    Controller
	multiplier float64
	colors     render.Colorizer

	width, height int
	springs       springField
	targets       []float64
	frame         visualizer.Frame
	done          bool
	err           error
}

// NewSpectrumModel builds the view. colors must not be shared with another
// goroutine; it is advanced once per frame.
func NewSpectrumModel(cfg *config.Config, title string, total time.Duration, settings spectrum.Settings,
	colors render.Colorizer, control Controller) SpectrumModel {
	return SpectrumModel{
		title:      title,
		total:      total,
		settings:   settings,
		control:    control,
		multiplier: cfg.Spectrum.Multiplier,
		colors:     colors,
		springs:    newSpringField(cfg.Render.FPS, 8.0, 0.8),
	}
}

// Init initializes the Bubble Tea model
func (m SpectrumModel) Init() tea.Cmd {
	return nil
}

// Update handles frames, resizes and keys.
func (m SpectrumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.targets = make([]float64, max(0, m.width))
		m.springs.resize(len(m.targets))

	case FrameMsg:
		m.frame = msg.Frame
		m.layoutTargets()
		for i, t := range m.targets {
			m.springs.step(i, t)
		}
		m.colors.Advance()

	case DoneMsg:
		m.done, m.err = true, msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m SpectrumModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.settings
	switch {
	case key.Matches(msg, spectrumKeys.quit):
		return m, tea.Quit
	case key.Matches(msg, spectrumKeys.scale):
		s.Scale = (s.Scale + 1) % (spectrum.ScaleNthRoot + 1)
	case key.Matches(msg, spectrumKeys.accum):
		s.Accumulation = (s.Accumulation + 1) % (spectrum.AccumulateMax + 1)
	case key.Matches(msg, spectrumKeys.window):
		s.Window = (s.Window + 1) % (spectrum.WindowBlackman + 1)
	case key.Matches(msg, spectrumKeys.interp):
		s.Interpolation = (s.Interpolation + 1) % (spectrum.InterpolateCubicHermite + 1)
	case key.Matches(msg, spectrumKeys.root):
		s.NthRoot = float64(int(s.NthRoot)%4 + 1)
	case key.Matches(msg, spectrumKeys.grow):
		if next := bitint.NextPowerOfTwo(s.FFTSize + 1); next <= config.MaxFFTSize {
			s.FFTSize = next
		}
	case key.Matches(msg, spectrumKeys.shrink):
		if prev := bitint.PrevPowerOfTwo(s.FFTSize - 1); prev >= minFFTSize {
			s.FFTSize = prev
		}
	case key.Matches(msg, spectrumKeys.louder):
		m.multiplier *= 1.25
		return m, nil
	case key.Matches(msg, spectrumKeys.quieter):
		m.multiplier /= 1.25
		return m, nil
	default:
		return m, nil
	}
	if s != m.settings {
		m.settings = s
		if m.control != nil {
			m.control.Configure(s)
		}
	}
	return m, nil
}

// barRows is the number of terminal rows available for bars.
func (m SpectrumModel) barRows() int {
	return max(1, m.height-chromeRows)
}

// layoutTargets maps the frame's bins onto terminal columns. Stereo frames
// put the left channel mirrored on the left half.
func (m *SpectrumModel) layoutTargets() {
	cols := len(m.targets)
	if cols == 0 || len(m.frame.Bins) == 0 {
		return
	}
	scale := m.barRows() * eighths
	if len(m.frame.Bins) == 1 {
		fillColumns(m.targets, m.frame.Bins[0], false, m.multiplier, scale)
		return
	}
	half := cols / 2
	fillColumns(m.targets[:half], m.frame.Bins[0], true, m.multiplier, scale)
	fillColumns(m.targets[half:], m.frame.Bins[1], false, m.multiplier, scale)
}

// fillColumns sets each column to the loudest bin it covers, in eighths of a
// cell.
func fillColumns(cols, bins []float64, backwards bool, multiplier float64, scale int) {
	n, b := len(cols), len(bins)
	for c := range cols {
		level := 0.0
		if b > 0 {
			lo := c * b / n
			hi := max(lo+1, (c+1)*b/n)
			peak := 0.0
			for _, v := range bins[lo:min(hi, b)] {
				peak = max(peak, v)
			}
			level = float64(render.BarHeight(peak, multiplier, scale))
		}
		if backwards {
			cols[n-1-c] = level
		} else {
			cols[c] = level
		}
	}
}

// View renders the UI
func (m SpectrumModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")
	m.renderBars(&sb)
	sb.WriteString(m.status())
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("s scale • a accum • w window • i interp • r root • [/] size • +/- gain • q quit"))
	return sb.String()
}

func (m SpectrumModel) renderBars(sb *strings.Builder) {
	rows := m.barRows()
	cols := len(m.springs.pos)
	styles := make([]lipgloss.Style, cols)
	for c := range cols {
		styles[c] = lipgloss.NewStyle().Foreground(lipgloss.Color(render.Hex(m.colors.At(m.columnRatio(c)))))
	}

	for row := range rows {
		floor := float64((rows - 1 - row) * eighths)
		for c := range cols {
			fill := int(m.springs.pos[c] - floor + 0.5)
			glyph := barGlyphs[max(0, min(eighths, fill))]
			if glyph == ' ' {
				sb.WriteRune(glyph)
				continue
			}
			sb.WriteString(styles[c].Render(string(glyph)))
		}
		sb.WriteByte('\n')
	}
}

// columnRatio places column c along its channel's spectrum for coloring.
func (m SpectrumModel) columnRatio(c int) float64 {
	cols := len(m.springs.pos)
	if len(m.frame.Bins) < 2 {
		return float64(c) / float64(max(1, cols))
	}
	half := cols / 2
	if c < half {
		return float64(half-1-c) / float64(max(1, half))
	}
	return float64(c-half) / float64(max(1, cols-half))
}

func (m SpectrumModel) status() string {
	s := m.settings
	line := fmt.Sprintf("%s / %s  n=%d scale=%s", fmtClock(m.frame.Elapsed), fmtClock(m.total), s.FFTSize, s.Scale)
	if s.Scale == spectrum.ScaleNthRoot {
		line += fmt.Sprintf("(%g)", s.NthRoot)
	}
	line += fmt.Sprintf(" accum=%s window=%s interp=%s gain=%.2f", s.Accumulation, s.Window, s.Interpolation, m.multiplier)
	out := statusStyle.Render(line)
	if m.frame.Silent {
		out += " " + silentStyle.Render("gated")
	}
	return out
}

func fmtClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Settings returns the settings last sent to the controller.
func (m SpectrumModel) Settings() spectrum.Settings {
	return m.settings
}

// Err returns the playback error reported by DoneMsg, if any.
func (m SpectrumModel) Err() error {
	return m.err
}
